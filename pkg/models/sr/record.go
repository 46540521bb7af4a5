package sr

import (
	"encoding/json"
	"fmt"
)

// Record is the interchange form of a discovered shard range: the four
// fields that survive a serialize/parse round trip. Records are
// emitted by range discovery and ingested by range replacement.
type Record struct {
	Index       int    `json:"index"`
	Lower       string `json:"lower"`
	ObjectCount int64  `json:"object_count"`
	Upper       string `json:"upper"`
}

// recordProbe mirrors Record with pointer fields so that absent keys
// can be told apart from zero values.
type recordProbe struct {
	Index       *int    `json:"index"`
	Lower       *string `json:"lower"`
	ObjectCount *int64  `json:"object_count"`
	Upper       *string `json:"upper"`
}

// ParseRecords decodes an ordered list of shard range records. A
// record missing any of the four required fields is a hard error.
func ParseRecords(data []byte) ([]Record, error) {
	var probes []recordProbe
	if err := json.Unmarshal(data, &probes); err != nil {
		return nil, fmt.Errorf("shard data must be a list of records: %v", err)
	}
	records := make([]Record, 0, len(probes))
	for i, p := range probes {
		switch {
		case p.Lower == nil:
			return nil, fmt.Errorf("record %d: missing field %q", i, "lower")
		case p.Upper == nil:
			return nil, fmt.Errorf("record %d: missing field %q", i, "upper")
		case p.Index == nil:
			return nil, fmt.Errorf("record %d: missing field %q", i, "index")
		case p.ObjectCount == nil:
			return nil, fmt.Errorf("record %d: missing field %q", i, "object_count")
		}
		records = append(records, Record{
			Index:       *p.Index,
			Lower:       *p.Lower,
			ObjectCount: *p.ObjectCount,
			Upper:       *p.Upper,
		})
	}
	return records, nil
}

// SerializeRecords renders records in the human-diffable form accepted
// by ParseRecords.
func SerializeRecords(records []Record) ([]byte, error) {
	if records == nil {
		records = []Record{}
	}
	return json.MarshalIndent(records, "", "  ")
}

// MakeShardRanges materializes records as FOUND shard ranges named for
// the given root container path. The same timestamp stamps every range
// of the batch so that the whole set belongs to one generation.
func MakeShardRanges(shardsAccount, rootContainer, parentContainer string, records []Record, ts Timestamp) []*ShardRange {
	ranges := make([]*ShardRange, 0, len(records))
	for _, rec := range records {
		ranges = append(ranges, &ShardRange{
			Name:           MakeName(shardsAccount, rootContainer, parentContainer, ts, rec.Index),
			Timestamp:      ts,
			Lower:          rec.Lower,
			Upper:          rec.Upper,
			ObjectCount:    rec.ObjectCount,
			State:          StateFound,
			StateTimestamp: ts,
		})
	}
	return ranges
}
