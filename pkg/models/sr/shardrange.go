package sr

import "fmt"

// State is a shard range lifecycle state. States are ordered: a range
// normally moves from FOUND through to SHARDED, or through SHRINKING
// to SHRUNK when it is being compacted away.
type State int

const (
	StateFound     State = 10
	StateCreated   State = 20
	StateCleaved   State = 30
	StateActive    State = 40
	StateSharding  State = 50
	StateSharded   State = 60
	StateShrinking State = 70
	StateShrunk    State = 80
)

var stateNames = map[State]string{
	StateFound:     "found",
	StateCreated:   "created",
	StateCleaved:   "cleaved",
	StateActive:    "active",
	StateSharding:  "sharding",
	StateSharded:   "sharded",
	StateShrinking: "shrinking",
	StateShrunk:    "shrunk",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", int(s))
}

func ParseState(name string) (State, error) {
	for s, n := range stateNames {
		if n == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown shard range state %q", name)
}

func (s State) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

func (s *State) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' {
		return fmt.Errorf("malformed shard range state %s", string(data))
	}
	parsed, err := ParseState(string(data[1 : len(data)-1]))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ShardRange describes one contiguous sub-interval (lower, upper] of a
// container's object namespace. An empty bound is open: lower "" means
// the start of the namespace, upper "" the end. The own shard range of
// a container covers the container's entire namespace.
type ShardRange struct {
	Name           string    `json:"name"`
	Timestamp      Timestamp `json:"timestamp"`
	Lower          string    `json:"lower"`
	Upper          string    `json:"upper"`
	ObjectCount    int64     `json:"object_count"`
	State          State     `json:"state"`
	StateTimestamp Timestamp `json:"state_timestamp"`
	Epoch          Timestamp `json:"epoch"`
	Deleted        bool      `json:"deleted"`
	// MergingInto names the acceptor shard range that this range, once
	// in SHRINKING state, will be merged into.
	MergingInto string `json:"merging_into,omitempty"`
}

func (r *ShardRange) Copy() *ShardRange {
	cp := *r
	return &cp
}

// EntireNamespace reports whether the range covers the whole namespace.
func (r *ShardRange) EntireNamespace() bool {
	return r.Lower == "" && r.Upper == ""
}

// UpperBefore orders bounds treating "" as positive infinity for upper
// bounds.
func UpperBefore(a, b string) bool {
	if a == "" {
		return false
	}
	if b == "" {
		return true
	}
	return a < b
}

// UpdateState moves the range to the given state, stamping the state
// timestamp. It returns false, without mutating, when the range is
// already in that state.
func (r *ShardRange) UpdateState(state State, ts Timestamp) bool {
	if r.State == state {
		return false
	}
	r.State = state
	r.StateTimestamp = ts
	return true
}

// Reconcile merges an incoming replica of a shard range into an
// existing record, last writer per field group wins: the row timestamp
// guards the bounds, object count and tombstone, the state timestamp
// guards the lifecycle fields. Neither argument is mutated.
func Reconcile(existing, incoming *ShardRange) *ShardRange {
	if existing == nil {
		return incoming.Copy()
	}
	merged := existing.Copy()
	if incoming.Timestamp.After(existing.Timestamp) {
		merged.Timestamp = incoming.Timestamp
		merged.Lower = incoming.Lower
		merged.Upper = incoming.Upper
		merged.ObjectCount = incoming.ObjectCount
		merged.Deleted = incoming.Deleted
	}
	if incoming.StateTimestamp.After(existing.StateTimestamp) {
		merged.StateTimestamp = incoming.StateTimestamp
		merged.State = incoming.State
		merged.Epoch = incoming.Epoch
		merged.MergingInto = incoming.MergingInto
	}
	return merged
}
