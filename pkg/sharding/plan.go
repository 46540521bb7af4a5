package sharding

import (
	"fmt"

	"github.com/shard-ranges/shrd/cdb"
	"github.com/shard-ranges/shrd/pkg/models/sr"
)

// Action is a pure decision about a destructive operation, separated
// from the I/O that renders prompts: the CLI layer renders Reasons and
// asks for confirmation when NeedsConfirmation is set, the core stays
// testable without any interactive input.
type Action struct {
	Proceed           bool
	NeedsConfirmation bool
	NothingToDo       bool
	Reasons           []string
}

// PlanDelete decides whether deleting the current shard ranges may
// proceed. Deleting when none exist succeeds as a no-op.
func PlanDelete(ranges []*sr.ShardRange, dbState cdb.DBState, force bool) Action {
	if len(ranges) == 0 {
		return Action{
			Proceed:     true,
			NothingToDo: true,
			Reasons:     []string{"no shard ranges found to delete"},
		}
	}
	if force {
		return Action{Proceed: true}
	}

	reasons := []string{
		fmt.Sprintf("this will delete %d existing shard ranges", len(ranges)),
	}
	if dbState != cdb.StateUnsharded {
		started := 0
		for _, rng := range ranges {
			if rng.State != sr.StateFound {
				started++
			}
		}
		reasons = append(reasons,
			"deleting all ranges in this db does not guarantee deletion of all ranges on all replicas of the db",
			fmt.Sprintf("this db is in state %s", dbState),
			fmt.Sprintf("%d existing shard ranges have started sharding", started),
		)
	}
	return Action{Proceed: true, NeedsConfirmation: true, Reasons: reasons}
}

// PlanCompact decides whether an approved compaction plan may be
// applied. An empty plan succeeds as a no-op.
func PlanCompact(sequences []Sequence, yes bool) Action {
	if len(sequences) == 0 {
		return Action{
			Proceed:     true,
			NothingToDo: true,
			Reasons:     []string{"no shards identified for compaction"},
		}
	}
	if yes {
		return Action{Proceed: true}
	}
	reasons := make([]string, 0, len(sequences))
	for _, seq := range sequences {
		reasons = append(reasons, fmt.Sprintf(
			"%d donor shard range(s) with total of %d objects can be compacted into acceptor %s",
			len(seq.Donors()), seq.DonorObjectCount(), seq.Acceptor().Name))
	}
	return Action{Proceed: true, NeedsConfirmation: true, Reasons: reasons}
}
