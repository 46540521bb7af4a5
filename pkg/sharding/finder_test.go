package sharding_test

import (
	"context"
	"fmt"
	"strconv"
	"testing"

	"github.com/shard-ranges/shrd/cdb"
	"github.com/shard-ranges/shrd/pkg/models/shrderror"
	"github.com/shard-ranges/shrd/pkg/models/sr"
	"github.com/shard-ranges/shrd/pkg/sharding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// syntheticStore serves a namespace of objCount objects named
// o_00000000, o_00000001, ... without materializing them, so finder
// tests can cover production sized namespaces.
type syntheticStore struct {
	*cdb.MemCDB
	objCount int64
}

func newSyntheticStore(objCount int64) *syntheticStore {
	return &syntheticStore{MemCDB: cdb.NewMemCDB("acct", "cont"), objCount: objCount}
}

func objName(i int64) string {
	return fmt.Sprintf("o_%08d", i)
}

// objPos is the index of the first object strictly beyond the marker.
func objPos(marker string) int64 {
	if marker == "" {
		return 0
	}
	i, err := strconv.ParseInt(marker[len("o_"):], 10, 64)
	if err != nil {
		panic(err)
	}
	return i + 1
}

func (s *syntheticStore) FindSplitPoints(ctx context.Context, rowsPerShard int64, existing []*sr.ShardRange, limit int) ([]sr.Record, bool, error) {
	marker := ""
	index := 0
	if len(existing) > 0 {
		marker = existing[len(existing)-1].Upper
		index = len(existing)
	}
	pos := objPos(marker)

	var found []sr.Record
	for limit < 0 || len(found) < limit {
		remaining := s.objCount - pos
		if remaining == 0 {
			return found, true, nil
		}
		if remaining <= rowsPerShard {
			found = append(found, sr.Record{Index: index, Lower: marker, ObjectCount: remaining, Upper: ""})
			return found, true, nil
		}
		upper := objName(pos + rowsPerShard - 1)
		found = append(found, sr.Record{Index: index, Lower: marker, ObjectCount: rowsPerShard, Upper: upper})
		marker = upper
		pos += rowsPerShard
		index++
	}
	return found, false, nil
}

func TestFindSmallNamespace(t *testing.T) {
	assert := assert.New(t)

	store := cdb.NewMemCDB("acct", "cont")
	for i := int64(0); i < 10; i++ {
		store.AddObjects(objName(i))
	}

	records, _, err := sharding.Find(context.TODO(), store, 4)
	assert.NoError(err)
	assert.Equal([]sr.Record{
		{Index: 0, Lower: "", ObjectCount: 4, Upper: "o_00000003"},
		{Index: 1, Lower: "o_00000003", ObjectCount: 4, Upper: "o_00000007"},
		{Index: 2, Lower: "o_00000007", ObjectCount: 2, Upper: ""},
	}, records)
	assert.Equal(int64(10), sharding.TotalObjectCount(records))
}

func TestFindExactMultiple(t *testing.T) {
	assert := assert.New(t)

	store := cdb.NewMemCDB("acct", "cont")
	for i := int64(0); i < 8; i++ {
		store.AddObjects(objName(i))
	}

	records, _, err := sharding.Find(context.TODO(), store, 4)
	assert.NoError(err)
	require.Len(t, records, 2)
	// final range is open ended even when the count divides evenly
	assert.Equal("", records[1].Upper)
	assert.Equal(int64(4), records[1].ObjectCount)
}

func TestFindEmptyNamespace(t *testing.T) {
	store := cdb.NewMemCDB("acct", "cont")
	records, _, err := sharding.Find(context.TODO(), store, 4)
	assert.NoError(t, err)
	assert.Empty(t, records)
}

func TestFindInvalidRowsPerShard(t *testing.T) {
	store := cdb.NewMemCDB("acct", "cont")
	_, _, err := sharding.Find(context.TODO(), store, 0)
	assert.Error(t, err)
	assert.Equal(t, shrderror.SHRD_INPUT, shrderror.CodeOf(err))
}

func TestFindLargeNamespace(t *testing.T) {
	assert := assert.New(t)

	store := newSyntheticStore(3349194)
	records, _, err := sharding.Find(context.TODO(), store, 500000)
	assert.NoError(err)
	require.Len(t, records, 7)

	assert.Equal("", records[0].Lower)
	assert.Equal("", records[6].Upper)
	for i, rec := range records {
		assert.Equal(i, rec.Index)
		if i < 6 {
			assert.Equal(int64(500000), rec.ObjectCount)
		}
		if i > 0 {
			assert.Equal(records[i-1].Upper, rec.Lower)
		}
	}
	assert.Equal(int64(349194), records[6].ObjectCount)
	assert.Equal(int64(3349194), sharding.TotalObjectCount(records))
}

func TestFindBatchSizeIndependence(t *testing.T) {
	store := newSyntheticStore(3349194)

	want, _, err := sharding.FindWithBatch(context.TODO(), store, 500000, -1)
	require.NoError(t, err)
	require.Len(t, want, 7)

	for _, batch := range []int{1, 2, 5, 100} {
		got, _, err := sharding.FindWithBatch(context.TODO(), store, 500000, batch)
		assert.NoError(t, err)
		assert.Equal(t, want, got, "batch size %d", batch)
	}
}
