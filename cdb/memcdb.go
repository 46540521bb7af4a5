package cdb

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/shard-ranges/shrd/pkg/models/shrderror"
	"github.com/shard-ranges/shrd/pkg/models/sr"
	"github.com/shard-ranges/shrd/pkg/shrdlog"
)

// MemCDB is an in-memory container store used in tests and as the
// reference implementation of the Store contract.
type MemCDB struct {
	mu sync.RWMutex

	Account   string                    `json:"account"`
	Container string                    `json:"container"`
	ID        string                    `json:"id"`
	Root      bool                      `json:"root"`
	Objects   []string                  `json:"objects"`
	Ranges    map[string]*sr.ShardRange `json:"shard_ranges"`
	Meta      map[string]MetaValue      `json:"metadata"`
}

var _ Store = &MemCDB{}

func NewMemCDB(account, container string) *MemCDB {
	return &MemCDB{
		Account:   account,
		Container: container,
		ID:        uuid.NewString(),
		Root:      true,
		Ranges:    map[string]*sr.ShardRange{},
		Meta:      map[string]MetaValue{},
	}
}

// AddObjects inserts object names, keeping the namespace sorted.
func (m *MemCDB) AddObjects(names ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Objects = append(m.Objects, names...)
	sort.Strings(m.Objects)
}

func (m *MemCDB) GetInfo(ctx context.Context) (*Info, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return &Info{
		ID:          m.ID,
		Account:     m.Account,
		Container:   m.Container,
		ObjectCount: int64(len(m.Objects)),
	}, nil
}

func (m *MemCDB) RootContainer(ctx context.Context) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.Root, nil
}

func (m *MemCDB) DBState(ctx context.Context) (DBState, error) {
	own, err := m.GetOwnShardRange(ctx, true)
	if err != nil {
		return "", err
	}
	return StateFromOwn(own), nil
}

func (m *MemCDB) GetOwnShardRange(ctx context.Context, noDefault bool) (*sr.ShardRange, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	path := m.Account + "/" + m.Container
	if own, ok := m.Ranges[path]; ok {
		return own.Copy(), nil
	}
	if noDefault {
		return nil, nil
	}
	now := sr.Now()
	return &sr.ShardRange{
		Name:           path,
		Timestamp:      now,
		State:          sr.StateActive,
		StateTimestamp: now,
		ObjectCount:    int64(len(m.Objects)),
	}, nil
}

func (m *MemCDB) ListShardRanges(ctx context.Context, opts ListOptions) ([]*sr.ShardRange, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	path := m.Account + "/" + m.Container
	var ret []*sr.ShardRange
	for name, rng := range m.Ranges {
		if name == path {
			continue
		}
		if rng.Deleted && !opts.IncludeDeleted {
			continue
		}
		ret = append(ret, rng.Copy())
	}

	sort.Slice(ret, func(i, j int) bool {
		if ret[i].Lower != ret[j].Lower {
			return ret[i].Lower < ret[j].Lower
		}
		return sr.UpperBefore(ret[i].Upper, ret[j].Upper)
	})

	return ret, nil
}

func (m *MemCDB) MergeShardRanges(ctx context.Context, ranges []*sr.ShardRange) error {
	shrdlog.Zero.Debug().Int("count", len(ranges)).Msg("memcdb: merge shard ranges")
	if err := ctx.Err(); err != nil {
		return shrderror.Newf(shrderror.SHRD_STORE, "merge shard ranges: %v", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, rng := range ranges {
		m.Ranges[rng.Name] = sr.Reconcile(m.Ranges[rng.Name], rng)
	}
	return nil
}

func (m *MemCDB) FindSplitPoints(ctx context.Context, rowsPerShard int64, existing []*sr.ShardRange, limit int) ([]sr.Record, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, shrderror.Newf(shrderror.SHRD_STORE, "find split points: %v", err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	marker := ""
	index := 0
	if len(existing) > 0 {
		marker = existing[len(existing)-1].Upper
		index = len(existing)
	}

	// first object strictly beyond the marker
	pos := sort.Search(len(m.Objects), func(i int) bool { return m.Objects[i] > marker })

	var found []sr.Record
	for limit < 0 || len(found) < limit {
		remaining := int64(len(m.Objects) - pos)
		if remaining == 0 {
			return found, true, nil
		}
		if remaining <= rowsPerShard {
			found = append(found, sr.Record{
				Index:       index,
				Lower:       marker,
				ObjectCount: remaining,
				Upper:       "",
			})
			return found, true, nil
		}
		upper := m.Objects[pos+int(rowsPerShard)-1]
		found = append(found, sr.Record{
			Index:       index,
			Lower:       marker,
			ObjectCount: rowsPerShard,
			Upper:       upper,
		})
		marker = upper
		pos += int(rowsPerShard)
		index++
	}
	return found, false, nil
}

func (m *MemCDB) GetMetadata(ctx context.Context) (map[string]MetaValue, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	meta := make(map[string]MetaValue, len(m.Meta))
	for k, v := range m.Meta {
		meta[k] = v
	}
	return meta, nil
}

func (m *MemCDB) SetMetadata(ctx context.Context, key, value string, ts sr.Timestamp) error {
	if err := ctx.Err(); err != nil {
		return shrderror.Newf(shrderror.SHRD_STORE, "set metadata: %v", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if cur, ok := m.Meta[key]; ok && cur.Timestamp.After(ts) {
		return nil
	}
	m.Meta[key] = MetaValue{Value: value, Timestamp: ts}
	return nil
}
