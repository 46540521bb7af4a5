// Package cdb defines the container store contract consumed by the
// shard range management core, together with an in-memory
// implementation used in tests. The real container database backend
// lives in the sqlitecdb subpackage.
package cdb

import (
	"context"

	"github.com/shard-ranges/shrd/pkg/models/sr"
)

// DBState describes how far a container has progressed through the
// sharding lifecycle.
type DBState string

const (
	StateUnsharded = DBState("unsharded")
	StateSharding  = DBState("sharding")
	StateSharded   = DBState("sharded")
)

// Sysmeta keys with timestamped values understood by the replication
// and sharding daemons.
const (
	SysmetaSharding  = "X-Container-Sysmeta-Sharding"
	SysmetaShardRoot = "X-Container-Sysmeta-Shard-Root"
)

type Info struct {
	ID          string
	Account     string
	Container   string
	ObjectCount int64
}

// Path is the container's own shard range name.
func (i *Info) Path() string {
	return i.Account + "/" + i.Container
}

type MetaValue struct {
	Value     string       `json:"value"`
	Timestamp sr.Timestamp `json:"timestamp"`
}

type ListOptions struct {
	IncludeDeleted bool
}

// Store is the contract against one replica of a container database.
// Mutations are propagated to other replicas by an external
// replication mechanism; concurrent use of several replicas of the
// same container is out of contract. Callers scope mutating calls
// with a context timeout.
type Store interface {
	GetInfo(ctx context.Context) (*Info, error)
	RootContainer(ctx context.Context) (bool, error)
	DBState(ctx context.Context) (DBState, error)

	// GetOwnShardRange returns the range describing the container
	// itself. When the record is absent a default covering the entire
	// namespace is synthesized unless noDefault is set, in which case
	// nil is returned.
	GetOwnShardRange(ctx context.Context, noDefault bool) (*sr.ShardRange, error)
	ListShardRanges(ctx context.Context, opts ListOptions) ([]*sr.ShardRange, error)

	// MergeShardRanges applies a last-writer-wins reconciling merge of
	// the given records into the store, atomically per call.
	MergeShardRanges(ctx context.Context, ranges []*sr.ShardRange) error

	// FindSplitPoints scans for up to limit split points of at most
	// rowsPerShard objects each, resuming past the last range in
	// existing. The boolean result reports namespace exhaustion. A
	// negative limit scans to exhaustion in one call.
	FindSplitPoints(ctx context.Context, rowsPerShard int64, existing []*sr.ShardRange, limit int) ([]sr.Record, bool, error)

	GetMetadata(ctx context.Context) (map[string]MetaValue, error)
	SetMetadata(ctx context.Context, key, value string, ts sr.Timestamp) error
}

// StateFromOwn derives the container's sharding lifecycle state from
// its own shard range: no epoch means sharding was never enabled, and
// an epoch with the own range still short of SHARDED means cleaving is
// in flight.
func StateFromOwn(own *sr.ShardRange) DBState {
	switch {
	case own == nil || own.Epoch.IsZero():
		return StateUnsharded
	case own.State == sr.StateSharded:
		return StateSharded
	default:
		return StateSharding
	}
}

// ShardingEnabled reports whether the sharding sysmeta flag is set.
func ShardingEnabled(ctx context.Context, store Store) (bool, error) {
	meta, err := store.GetMetadata(ctx)
	if err != nil {
		return false, err
	}
	return meta[SysmetaSharding].Value == "True", nil
}
