package sr_test

import (
	"testing"

	"github.com/shard-ranges/shrd/pkg/models/sr"
	"github.com/stretchr/testify/assert"
)

func TestUpdateState(t *testing.T) {
	assert := assert.New(t)

	rng := &sr.ShardRange{State: sr.StateActive, StateTimestamp: 100}

	assert.True(rng.UpdateState(sr.StateSharding, 200))
	assert.Equal(sr.StateSharding, rng.State)
	assert.Equal(sr.Timestamp(200), rng.StateTimestamp)

	// repeated transition into the same state is a no-op
	assert.False(rng.UpdateState(sr.StateSharding, 300))
	assert.Equal(sr.Timestamp(200), rng.StateTimestamp)
}

func TestReconcileRowFields(t *testing.T) {
	assert := assert.New(t)

	existing := &sr.ShardRange{
		Name:        "a/c",
		Timestamp:   100,
		Lower:       "a",
		Upper:       "m",
		ObjectCount: 10,
	}
	incoming := &sr.ShardRange{
		Name:        "a/c",
		Timestamp:   200,
		Lower:       "a",
		Upper:       "z",
		ObjectCount: 20,
		Deleted:     true,
	}

	merged := sr.Reconcile(existing, incoming)
	assert.Equal("z", merged.Upper)
	assert.Equal(int64(20), merged.ObjectCount)
	assert.True(merged.Deleted)

	// stale incoming loses
	merged = sr.Reconcile(incoming, existing)
	assert.Equal("z", merged.Upper)
	assert.Equal(int64(20), merged.ObjectCount)
	assert.True(merged.Deleted)
}

func TestReconcileStateFields(t *testing.T) {
	assert := assert.New(t)

	existing := &sr.ShardRange{
		Name:           "a/c",
		Timestamp:      100,
		State:          sr.StateActive,
		StateTimestamp: 100,
	}
	incoming := &sr.ShardRange{
		Name:           "a/c",
		Timestamp:      50,
		State:          sr.StateSharding,
		StateTimestamp: 200,
		Epoch:          200,
		MergingInto:    "a/other",
	}

	merged := sr.Reconcile(existing, incoming)
	// newer state group wins even though the row group is stale
	assert.Equal(sr.StateSharding, merged.State)
	assert.Equal(sr.Timestamp(200), merged.Epoch)
	assert.Equal("a/other", merged.MergingInto)
	assert.Equal(sr.Timestamp(100), merged.Timestamp)

	// missing local record adopts the incoming one
	merged = sr.Reconcile(nil, incoming)
	assert.Equal(incoming, merged)
	assert.NotSame(incoming, merged)
}

func TestReconcileDoesNotMutate(t *testing.T) {
	assert := assert.New(t)

	existing := &sr.ShardRange{Name: "a/c", Timestamp: 100, Upper: "m"}
	incoming := &sr.ShardRange{Name: "a/c", Timestamp: 200, Upper: "z"}

	_ = sr.Reconcile(existing, incoming)
	assert.Equal("m", existing.Upper)
	assert.Equal(sr.Timestamp(100), existing.Timestamp)
}

func TestUpperBefore(t *testing.T) {
	assert := assert.New(t)

	assert.True(sr.UpperBefore("a", "b"))
	assert.True(sr.UpperBefore("a", ""))
	assert.False(sr.UpperBefore("", "a"))
	assert.False(sr.UpperBefore("", ""))
}
