package sharding

import (
	"context"
	"time"

	"github.com/shard-ranges/shrd/cdb"
	"github.com/shard-ranges/shrd/pkg/config"
	"github.com/shard-ranges/shrd/pkg/models/sr"
	"github.com/shard-ranges/shrd/pkg/shrdlog"
)

// tombstoneRanges soft-deletes every current shard range. Deleted
// ranges are never physically removed, so replicas converge on the
// deletion. Returns how many ranges were marked; zero means there was
// nothing to delete and nothing was written.
func tombstoneRanges(ctx context.Context, store cdb.Store) (int, error) {
	ranges, err := store.ListShardRanges(ctx, cdb.ListOptions{})
	if err != nil {
		return 0, err
	}
	if len(ranges) == 0 {
		return 0, nil
	}

	now := sr.Now()
	for _, rng := range ranges {
		rng.Deleted = true
		rng.Timestamp = now
	}
	if err := store.MergeShardRanges(ctx, ranges); err != nil {
		return 0, err
	}
	return len(ranges), nil
}

// DeleteShardRanges tombstones every current shard range under the
// configured mutation timeout.
func DeleteShardRanges(ctx context.Context, store cdb.Store, vals config.Values) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, vals.ReplaceTimeout)
	defer cancel()
	return tombstoneRanges(ctx, store)
}

// ReplaceShardRanges deletes whatever shard ranges the container holds
// and persists the given records in their place, after validating that
// they exactly cover the own range's namespace. The mutation timeout
// is raised to at least minTimeout so that a replace following a long
// discovery scan does not fail spuriously under lock contention; that
// is a deliberate latency for availability trade.
func ReplaceShardRanges(ctx context.Context, store cdb.Store, records []sr.Record, vals config.Values, minTimeout time.Duration) ([]*sr.ShardRange, error) {
	own, err := GetValidOwnRange(ctx, store, vals.ShardsAccountPrefix)
	if err != nil {
		return nil, err
	}
	info, err := store.GetInfo(ctx)
	if err != nil {
		return nil, err
	}

	shardsAccount := sr.ShardsAccount(vals.ShardsAccountPrefix, info.Account)
	ranges := sr.MakeShardRanges(shardsAccount, info.Container, info.Container, records, sr.Now())
	if err := ValidateRanges(own, ranges); err != nil {
		return nil, err
	}

	timeout := vals.ReplaceTimeout
	if minTimeout > timeout {
		timeout = minTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	deleted, err := tombstoneRanges(ctx, store)
	if err != nil {
		return nil, err
	}
	if err := store.MergeShardRanges(ctx, ranges); err != nil {
		return nil, err
	}
	shrdlog.Zero.Debug().
		Int("deleted", deleted).
		Int("injected", len(ranges)).
		Msg("shard ranges replaced")
	return ranges, nil
}
