package sharding

import (
	"context"
	"time"

	"github.com/shard-ranges/shrd/cdb"
	"github.com/shard-ranges/shrd/pkg/models/shrderror"
	"github.com/shard-ranges/shrd/pkg/models/sr"
	"github.com/shard-ranges/shrd/pkg/shrdlog"
)

// FindBatchSize bounds how many split points the store computes per
// call. Each split point costs a sorted scan of live object rows, so
// an unbounded pass over a huge namespace would hold the store for
// far too long.
const FindBatchSize = 5

// progressInterval is how often the finder reassures the operator
// during a long scan.
const progressInterval = 10 * time.Second

// Find discovers a full cover of the container's namespace in ranges
// of at most rowsPerShard objects each, batching the underlying scan
// and resuming each batch past the last discovered boundary. The scan
// is read only; nothing is persisted. Returns the ordered records and
// the elapsed scan time.
func Find(ctx context.Context, store cdb.Store, rowsPerShard int64) ([]sr.Record, time.Duration, error) {
	return FindWithBatch(ctx, store, rowsPerShard, FindBatchSize)
}

// FindWithBatch is Find with an explicit batch size. The resulting
// cover does not depend on the batch size used.
func FindWithBatch(ctx context.Context, store cdb.Store, rowsPerShard int64, batch int) ([]sr.Record, time.Duration, error) {
	if rowsPerShard <= 0 {
		return nil, 0, shrderror.Newf(shrderror.SHRD_INPUT, "rows per shard must be > 0, got %d", rowsPerShard)
	}
	start := time.Now()
	lastReport := start

	records, exhausted, err := store.FindSplitPoints(ctx, rowsPerShard, nil, batch)
	if err != nil {
		return nil, time.Since(start), err
	}
	for len(records) > 0 && !exhausted {
		if time.Since(lastReport) > progressInterval {
			shrdlog.Zero.Info().
				Int("found", len(records)).
				Dur("elapsed", time.Since(start)).
				Msg("looking for more ranges")
			lastReport = time.Now()
		}
		// the found ranges are only fed back as resume state, so the
		// naming prefix is irrelevant
		existing := sr.MakeShardRanges("scan", "scan", "scan", records, sr.Now())
		more, last, err := store.FindSplitPoints(ctx, rowsPerShard, existing, batch)
		if err != nil {
			return nil, time.Since(start), err
		}
		records = append(records, more...)
		exhausted = last
		if len(more) == 0 {
			break
		}
	}
	return records, time.Since(start), nil
}

// TotalObjectCount sums the estimated object counts of the records.
func TotalObjectCount(records []sr.Record) int64 {
	var total int64
	for _, rec := range records {
		total += rec.ObjectCount
	}
	return total
}
