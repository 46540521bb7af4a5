package sharding

import (
	"context"

	"github.com/shard-ranges/shrd/cdb"
	"github.com/shard-ranges/shrd/pkg/config"
	"github.com/shard-ranges/shrd/pkg/models/shrderror"
	"github.com/shard-ranges/shrd/pkg/models/sr"
	"github.com/shard-ranges/shrd/pkg/shrdlog"
)

// EnableAction is what enabling sharding actually did.
type EnableAction int

const (
	// ActionEnabled is the normal ACTIVE to SHARDING transition.
	ActionEnabled EnableAction = iota
	// ActionRepaired means the own range was already SHARDING but
	// missing its epoch from a partially applied prior attempt; the
	// epoch has now been assigned.
	ActionRepaired
	// ActionNone means sharding was already fully enabled; the
	// existing epoch is reported and nothing was written.
	ActionNone
)

type EnableResult struct {
	Action EnableAction
	Own    *sr.ShardRange
	Epoch  sr.Timestamp
}

// GetValidOwnRange fetches the container's own shard range, refusing
// to synthesize a whole-namespace default for a shard container: that
// would silently hand a shard the entire namespace.
func GetValidOwnRange(ctx context.Context, store cdb.Store, prefix string) (*sr.ShardRange, error) {
	info, err := store.GetInfo(ctx)
	if err != nil {
		return nil, err
	}
	own, err := store.GetOwnShardRange(ctx, sr.IsShardAccount(prefix, info.Account))
	if err != nil {
		return nil, err
	}
	if own == nil {
		return nil, shrderror.New(shrderror.SHRD_PRECONDITION, "shard container missing own shard range")
	}
	return own, nil
}

// EnableSharding transitions the container's own range into SHARDING
// with a freshly assigned epoch, recording the decision together with
// the sharding sysmeta flag. The transition requires complete, valid
// child coverage. Re-invocation is idempotent: an already enabled
// container reports its existing epoch and is not touched, and a
// SHARDING range missing its epoch is repaired rather than re-derived.
func EnableSharding(ctx context.Context, store cdb.Store, vals config.Values) (*EnableResult, error) {
	own, err := GetValidOwnRange(ctx, store, vals.ShardsAccountPrefix)
	if err != nil {
		return nil, err
	}
	ranges, err := store.ListShardRanges(ctx, cdb.ListOptions{})
	if err != nil {
		return nil, err
	}
	if err := ValidateRanges(own, ranges); err != nil {
		return nil, err
	}

	switch {
	case own.State == sr.StateActive:
		if err := commitEnable(ctx, store, own, vals); err != nil {
			return nil, err
		}
		return &EnableResult{Action: ActionEnabled, Own: own, Epoch: own.Epoch}, nil
	case own.State == sr.StateSharding && own.Epoch.IsZero():
		if err := commitEnable(ctx, store, own, vals); err != nil {
			return nil, err
		}
		return &EnableResult{Action: ActionRepaired, Own: own, Epoch: own.Epoch}, nil
	case own.State == sr.StateSharding:
		return &EnableResult{Action: ActionNone, Own: own, Epoch: own.Epoch}, nil
	default:
		return nil, shrderror.Newf(shrderror.SHRD_PRECONDITION,
			"container in state %s (should be active or sharding)", own.State)
	}
}

// commitEnable assigns the epoch and persists the own range together
// with the sysmeta flag that downstream replication and the sharding
// daemon key off.
func commitEnable(ctx context.Context, store cdb.Store, own *sr.ShardRange, vals config.Values) error {
	epoch := sr.Now()
	// a state timestamp tie loses the reconciling merge, so the
	// transition must claim a strictly newer one
	if !epoch.After(own.StateTimestamp) {
		epoch = own.StateTimestamp + 1
	}
	own.UpdateState(sr.StateSharding, epoch)
	own.StateTimestamp = epoch
	own.Epoch = epoch

	ctx, cancel := context.WithTimeout(ctx, vals.EnableTimeout)
	defer cancel()

	if err := store.MergeShardRanges(ctx, []*sr.ShardRange{own}); err != nil {
		return err
	}
	if err := store.SetMetadata(ctx, cdb.SysmetaSharding, "True", sr.Now()); err != nil {
		return err
	}
	shrdlog.Zero.Debug().
		Stringer("epoch", epoch).
		Msg("sharding enabled")
	return nil
}
