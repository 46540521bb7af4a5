package sharding

import (
	"context"

	"github.com/shard-ranges/shrd/cdb"
	"github.com/shard-ranges/shrd/pkg/config"
	"github.com/shard-ranges/shrd/pkg/models/shrderror"
	"github.com/shard-ranges/shrd/pkg/models/sr"
	"github.com/shard-ranges/shrd/pkg/shrdlog"
)

// Sequence is an ordered contiguous run of shard ranges selected for
// compaction. All but the last are donors; the last is the acceptor
// that absorbs them.
type Sequence []*sr.ShardRange

func (s Sequence) Acceptor() *sr.ShardRange {
	return s[len(s)-1]
}

func (s Sequence) Donors() []*sr.ShardRange {
	return s[:len(s)-1]
}

func (s Sequence) DonorObjectCount() int64 {
	var total int64
	for _, donor := range s.Donors() {
		total += donor.ObjectCount
	}
	return total
}

// PlanCompaction selects sequences of small adjacent shard ranges that
// can be merged back into fewer, larger ranges. Preconditions, checked
// in order: the container is a root container, it is already sharded,
// and its current non-shrinking ranges have no overlaps. An empty plan
// is a normal outcome, not an error.
func PlanCompaction(ctx context.Context, store cdb.Store, vals config.Values) ([]Sequence, error) {
	if err := checkCompactable(ctx, store); err != nil {
		return nil, err
	}
	ranges, err := store.ListShardRanges(ctx, cdb.ListOptions{})
	if err != nil {
		return nil, err
	}
	live := make([]*sr.ShardRange, 0, len(ranges))
	for _, rng := range ranges {
		if rng.State != sr.StateShrinking {
			live = append(live, rng)
		}
	}
	if len(FindOverlapping(live)) > 0 {
		return nil, shrderror.New(shrderror.SHRD_CONSISTENCY,
			"container has overlapping shard ranges so cannot be compacted")
	}

	sequences := FindCompactibleSequences(ranges, vals)
	if err := ValidateSequences(sequences); err != nil {
		return nil, err
	}
	return sequences, nil
}

func checkCompactable(ctx context.Context, store cdb.Store) error {
	root, err := store.RootContainer(ctx)
	if err != nil {
		return err
	}
	if !root {
		return shrderror.New(shrderror.SHRD_PRECONDITION,
			"shard containers cannot be compacted; use a root container")
	}
	state, err := store.DBState(ctx)
	if err != nil {
		return err
	}
	if state != cdb.StateSharded {
		return shrderror.New(shrderror.SHRD_PRECONDITION,
			"container is not yet sharded so cannot be compacted")
	}
	return nil
}

func isDonorCandidate(rng *sr.ShardRange, shrinkThreshold int64) bool {
	return rng.State == sr.StateActive && rng.ObjectCount < shrinkThreshold
}

// FindCompactibleSequences walks the ordered shard ranges and groups
// runs of small ranges with the neighboring range that would absorb
// them. MaxShrinking caps donors per acceptor; values above one are
// permitted but cause temporary listing gaps for shrunk donors until
// every sibling in the sequence has finished shrinking, because the
// acceptor only serves a donor's namespace once that donor completes.
// MaxExpanding caps how many acceptors may be grown in one pass; a
// negative value means unlimited. Emitted sequences never overlap.
func FindCompactibleSequences(ranges []*sr.ShardRange, vals config.Values) []Sequence {
	var sequences []Sequence
	i := 0
	for i < len(ranges) {
		if vals.MaxExpanding >= 0 && len(sequences) >= vals.MaxExpanding {
			break
		}
		if !isDonorCandidate(ranges[i], vals.ShrinkThreshold) {
			i++
			continue
		}
		donors := []*sr.ShardRange{ranges[i]}
		total := ranges[i].ObjectCount
		j := i + 1
		for j < len(ranges) &&
			len(donors) < vals.MaxShrinking &&
			isDonorCandidate(ranges[j], vals.ShrinkThreshold) &&
			total+ranges[j].ObjectCount < vals.ShrinkThreshold {
			donors = append(donors, ranges[j])
			total += ranges[j].ObjectCount
			j++
		}
		if j < len(ranges) {
			acceptor := ranges[j]
			if total+acceptor.ObjectCount <= vals.ExpansionLimit {
				sequences = append(sequences, Sequence(append(donors, acceptor)))
				i = j + 1
				continue
			}
			// nothing adjacent can absorb this run
			i = j
			continue
		}
		// the run reached the end of the namespace: the final range of
		// the run becomes the acceptor for the preceding donors
		if len(donors) > 1 {
			sequences = append(sequences, Sequence(donors))
		}
		i = j
	}
	return sequences
}

// ValidateSequences fails loudly when any sequence's acceptor is not
// in a state that can accept merges; silently skipping it would
// corrupt the plan.
func ValidateSequences(sequences []Sequence) error {
	for _, seq := range sequences {
		acceptor := seq.Acceptor()
		if acceptor.State != sr.StateActive && acceptor.State != sr.StateSharded {
			return shrderror.Newf(shrderror.SHRD_CONSISTENCY,
				"acceptor %s not in correct state: %s", acceptor.Name, acceptor.State)
		}
	}
	return nil
}

// ApplySequences commits an approved compaction plan: each donor is
// marked SHRINKING and linked to its acceptor so the later physical
// merge knows which donors feed which acceptor. The acceptor's own
// bounds stay unchanged until that merge completes. Each sequence is
// applied atomically in one merge; sequences are independent, so a
// failure leaves earlier sequences applied.
func ApplySequences(ctx context.Context, store cdb.Store, sequences []Sequence, vals config.Values) error {
	now := sr.Now()
	for _, seq := range sequences {
		acceptor := seq.Acceptor()
		updates := make([]*sr.ShardRange, 0, len(seq)-1)
		for _, donor := range seq.Donors() {
			donor = donor.Copy()
			ts := now
			// a state timestamp tie loses the reconciling merge
			if !ts.After(donor.StateTimestamp) {
				ts = donor.StateTimestamp + 1
			}
			donor.UpdateState(sr.StateShrinking, ts)
			donor.MergingInto = acceptor.Name
			updates = append(updates, donor)
		}

		ctx, cancel := context.WithTimeout(ctx, vals.ReplaceTimeout)
		err := store.MergeShardRanges(ctx, updates)
		cancel()
		if err != nil {
			return err
		}
		shrdlog.Zero.Debug().
			Str("acceptor", acceptor.Name).
			Int("donors", len(updates)).
			Msg("compaction sequence applied")
	}
	return nil
}
