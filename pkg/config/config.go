package config

import (
	"os"
	"time"

	"github.com/shard-ranges/shrd/pkg/models/shrderror"
)

const (
	// DefaultShardContainerThreshold is the object count at which a
	// container is considered in need of sharding. The working
	// thresholds below derive from it.
	DefaultShardContainerThreshold = 1000000
	DefaultShardShrinkPoint        = 10
	DefaultShardMergePoint         = 75

	DefaultRowsPerShard    = DefaultShardContainerThreshold / 2
	DefaultShrinkThreshold = DefaultShardContainerThreshold * DefaultShardShrinkPoint / 100

	DefaultMaxShrinking = 1
	// UnlimitedExpanding disables the cap on acceptors grown per pass.
	UnlimitedExpanding = -1

	DefaultReplaceTimeout = 600 * time.Second
	DefaultEnableTimeout  = 300 * time.Second
)

// Sharder is the shape of the optional config file. Zero fields fall
// back to defaults when resolved.
type Sharder struct {
	LogLevel                string `json:"log_level" toml:"log_level" yaml:"log_level"`
	ShardContainerThreshold int64  `json:"shard_container_threshold" toml:"shard_container_threshold" yaml:"shard_container_threshold"`
	ShardShrinkPoint        int64  `json:"shard_shrink_point" toml:"shard_shrink_point" yaml:"shard_shrink_point"`
	ShardMergePoint         int64  `json:"shard_shrink_merge_point" toml:"shard_shrink_merge_point" yaml:"shard_shrink_merge_point"`
	MaxShrinking            int    `json:"max_shrinking" toml:"max_shrinking" yaml:"max_shrinking"`
	MaxExpanding            int    `json:"max_expanding" toml:"max_expanding" yaml:"max_expanding"`
	ShardsAccountPrefix     string `json:"shards_account_prefix" toml:"shards_account_prefix" yaml:"shards_account_prefix"`
	ReplaceTimeoutSeconds   int    `json:"replace_timeout" toml:"replace_timeout" yaml:"replace_timeout"`
	EnableTimeoutSeconds    int    `json:"enable_timeout" toml:"enable_timeout" yaml:"enable_timeout"`
}

// Values is the resolved configuration handed by value to every
// component. There is no ambient config state.
type Values struct {
	RowsPerShard        int64
	ShrinkThreshold     int64
	ExpansionLimit      int64
	MaxShrinking        int
	MaxExpanding        int
	ShardsAccountPrefix string
	ReplaceTimeout      time.Duration
	EnableTimeout       time.Duration
	LogLevel            string
}

func Defaults() Values {
	return Values{
		RowsPerShard:        DefaultRowsPerShard,
		ShrinkThreshold:     DefaultShrinkThreshold,
		ExpansionLimit:      DefaultRowsPerShard,
		MaxShrinking:        DefaultMaxShrinking,
		MaxExpanding:        UnlimitedExpanding,
		ShardsAccountPrefix: ".shards_",
		ReplaceTimeout:      DefaultReplaceTimeout,
		EnableTimeout:       DefaultEnableTimeout,
		LogLevel:            "info",
	}
}

// LoadSharderCfg reads the optional config file. The format is chosen
// by filename suffix: .toml, .yaml or .json.
func LoadSharderCfg(cfgPath string) (Sharder, error) {
	var cfg Sharder
	file, err := os.Open(cfgPath)
	if err != nil {
		return cfg, shrderror.Newf(shrderror.SHRD_INPUT, "error opening config file %s: %v", cfgPath, err)
	}
	defer file.Close()

	if err := initConfig(file, &cfg); err != nil {
		return cfg, shrderror.Newf(shrderror.SHRD_INPUT, "error reading config file %s: %v", cfgPath, err)
	}
	return cfg, nil
}

// Resolve layers the optional config file over defaults. Command line
// overrides are applied by the caller on top of the result, so the
// precedence is defaults, then file, then flags.
func Resolve(cfgPath string) (Values, error) {
	vals := Defaults()
	if cfgPath == "" {
		return vals, nil
	}
	cfg, err := LoadSharderCfg(cfgPath)
	if err != nil {
		return vals, err
	}
	return vals.apply(cfg)
}

func (v Values) apply(cfg Sharder) (Values, error) {
	if cfg.LogLevel != "" {
		v.LogLevel = cfg.LogLevel
	}
	if cfg.ShardsAccountPrefix != "" {
		v.ShardsAccountPrefix = cfg.ShardsAccountPrefix
	}
	if cfg.MaxShrinking != 0 {
		if cfg.MaxShrinking < 0 {
			return v, shrderror.Newf(shrderror.SHRD_INPUT, "max_shrinking must be > 0, got %d", cfg.MaxShrinking)
		}
		v.MaxShrinking = cfg.MaxShrinking
	}
	if cfg.MaxExpanding != 0 {
		v.MaxExpanding = cfg.MaxExpanding
	}
	if cfg.ReplaceTimeoutSeconds != 0 {
		v.ReplaceTimeout = time.Duration(cfg.ReplaceTimeoutSeconds) * time.Second
	}
	if cfg.EnableTimeoutSeconds != 0 {
		v.EnableTimeout = time.Duration(cfg.EnableTimeoutSeconds) * time.Second
	}
	if cfg.ShardContainerThreshold == 0 {
		return v, nil
	}
	if cfg.ShardContainerThreshold < 0 {
		return v, shrderror.Newf(shrderror.SHRD_INPUT,
			"shard_container_threshold must be > 0, got %d", cfg.ShardContainerThreshold)
	}
	shrinkPoint, err := percent(cfg.ShardShrinkPoint, DefaultShardShrinkPoint, "shard_shrink_point")
	if err != nil {
		return v, err
	}
	mergePoint, err := percent(cfg.ShardMergePoint, DefaultShardMergePoint, "shard_shrink_merge_point")
	if err != nil {
		return v, err
	}
	v.RowsPerShard = cfg.ShardContainerThreshold / 2
	v.ShrinkThreshold = cfg.ShardContainerThreshold * shrinkPoint / 100
	v.ExpansionLimit = cfg.ShardContainerThreshold * mergePoint / 100
	return v, nil
}

func percent(val, def int64, name string) (int64, error) {
	if val == 0 {
		return def, nil
	}
	if val < 0 || val > 100 {
		return 0, shrderror.Newf(shrderror.SHRD_INPUT, "%s must be a percentage, got %d", name, val)
	}
	return val, nil
}
