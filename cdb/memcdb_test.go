package cdb_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/shard-ranges/shrd/cdb"
	"github.com/shard-ranges/shrd/pkg/models/sr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetInfo(t *testing.T) {
	assert := assert.New(t)

	store := cdb.NewMemCDB("acct", "cont")
	store.AddObjects("b", "a", "c")

	info, err := store.GetInfo(context.TODO())
	require.NoError(t, err)
	assert.Equal("acct", info.Account)
	assert.Equal("cont", info.Container)
	assert.Equal("acct/cont", info.Path())
	assert.Equal(int64(3), info.ObjectCount)
	assert.NotEmpty(info.ID)
}

func TestGetOwnShardRangeDefault(t *testing.T) {
	assert := assert.New(t)

	store := cdb.NewMemCDB("acct", "cont")

	own, err := store.GetOwnShardRange(context.TODO(), false)
	require.NoError(t, err)
	assert.Equal("acct/cont", own.Name)
	assert.Equal(sr.StateActive, own.State)
	assert.True(own.EntireNamespace())

	own, err = store.GetOwnShardRange(context.TODO(), true)
	require.NoError(t, err)
	assert.Nil(own)
}

func TestMergeShardRangesLWW(t *testing.T) {
	assert := assert.New(t)

	store := cdb.NewMemCDB("acct", "cont")
	ctx := context.TODO()

	require.NoError(t, store.MergeShardRanges(ctx, []*sr.ShardRange{
		{Name: "x/s0", Timestamp: 100, Upper: "m", ObjectCount: 5, State: sr.StateFound, StateTimestamp: 100},
	}))

	// stale replica row loses, newer state group still lands
	require.NoError(t, store.MergeShardRanges(ctx, []*sr.ShardRange{
		{Name: "x/s0", Timestamp: 50, Upper: "z", ObjectCount: 9, State: sr.StateCleaved, StateTimestamp: 200},
	}))

	ranges, err := store.ListShardRanges(ctx, cdb.ListOptions{})
	require.NoError(t, err)
	require.Len(t, ranges, 1)
	assert.Equal("m", ranges[0].Upper)
	assert.Equal(int64(5), ranges[0].ObjectCount)
	assert.Equal(sr.StateCleaved, ranges[0].State)
}

func TestListShardRanges(t *testing.T) {
	assert := assert.New(t)

	store := cdb.NewMemCDB("acct", "cont")
	ctx := context.TODO()

	require.NoError(t, store.MergeShardRanges(ctx, []*sr.ShardRange{
		{Name: "x/s2", Timestamp: 100, Lower: "m", Upper: ""},
		{Name: "x/s0", Timestamp: 100, Lower: "", Upper: "f"},
		{Name: "x/s1", Timestamp: 100, Lower: "f", Upper: "m"},
		{Name: "x/gone", Timestamp: 100, Lower: "f", Upper: "g", Deleted: true},
		{Name: "acct/cont", Timestamp: 100, State: sr.StateActive},
	}))

	ranges, err := store.ListShardRanges(ctx, cdb.ListOptions{})
	require.NoError(t, err)
	var names []string
	for _, rng := range ranges {
		names = append(names, rng.Name)
	}
	// sorted by lower bound, own range and tombstones excluded
	assert.Equal([]string{"x/s0", "x/s1", "x/s2"}, names)

	ranges, err = store.ListShardRanges(ctx, cdb.ListOptions{IncludeDeleted: true})
	require.NoError(t, err)
	assert.Len(ranges, 4)
}

func TestFindSplitPointsResume(t *testing.T) {
	assert := assert.New(t)

	store := cdb.NewMemCDB("acct", "cont")
	for i := 0; i < 10; i++ {
		store.AddObjects(fmt.Sprintf("o_%02d", i))
	}
	ctx := context.TODO()

	records, exhausted, err := store.FindSplitPoints(ctx, 4, nil, 1)
	require.NoError(t, err)
	assert.False(exhausted)
	require.Len(t, records, 1)
	assert.Equal(sr.Record{Index: 0, Lower: "", ObjectCount: 4, Upper: "o_03"}, records[0])

	existing := sr.MakeShardRanges("a", "c", "c", records, sr.Now())
	records, exhausted, err = store.FindSplitPoints(ctx, 4, existing, -1)
	require.NoError(t, err)
	assert.True(exhausted)
	assert.Equal([]sr.Record{
		{Index: 1, Lower: "o_03", ObjectCount: 4, Upper: "o_07"},
		{Index: 2, Lower: "o_07", ObjectCount: 2, Upper: ""},
	}, records)
}

func TestSetMetadataKeepsNewest(t *testing.T) {
	assert := assert.New(t)

	store := cdb.NewMemCDB("acct", "cont")
	ctx := context.TODO()

	require.NoError(t, store.SetMetadata(ctx, cdb.SysmetaSharding, "True", 200))
	require.NoError(t, store.SetMetadata(ctx, cdb.SysmetaSharding, "False", 100))

	meta, err := store.GetMetadata(ctx)
	require.NoError(t, err)
	assert.Equal("True", meta[cdb.SysmetaSharding].Value)
	assert.Equal(sr.Timestamp(200), meta[cdb.SysmetaSharding].Timestamp)

	enabled, err := cdb.ShardingEnabled(ctx, store)
	require.NoError(t, err)
	assert.True(enabled)
}

func TestStateFromOwn(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(cdb.StateUnsharded, cdb.StateFromOwn(nil))
	assert.Equal(cdb.StateUnsharded, cdb.StateFromOwn(&sr.ShardRange{State: sr.StateActive}))
	assert.Equal(cdb.StateSharding, cdb.StateFromOwn(&sr.ShardRange{State: sr.StateSharding, Epoch: 100}))
	assert.Equal(cdb.StateSharded, cdb.StateFromOwn(&sr.ShardRange{State: sr.StateSharded, Epoch: 100}))
}
