// Package sqlitecdb is the container database backend: one SQLite
// file per container replica holding the object rows, the shard range
// records and the timestamped sysmeta.
package sqlitecdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shard-ranges/shrd/cdb"
	"github.com/shard-ranges/shrd/pkg/models/shrderror"
	"github.com/shard-ranges/shrd/pkg/models/sr"
	"github.com/shard-ranges/shrd/pkg/shrdlog"
)

type SQLiteCDB struct {
	db   *sql.DB
	path string
}

var _ cdb.Store = &SQLiteCDB{}

// Open opens an existing container database. A missing or unreadable
// file is a store error: a corrupt or locked store must not be
// mutated blindly, so the failure is surfaced instead of retried.
func Open(ctx context.Context, path string) (*SQLiteCDB, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, shrderror.Newf(shrderror.SHRD_STORE, "error opening container DB %s: %v", path, err)
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, shrderror.Newf(shrderror.SHRD_STORE, "error opening container DB %s: %v", path, err)
	}
	s := &SQLiteCDB{db: db, path: path}
	if _, err := s.GetInfo(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Create initializes a fresh container database file.
func Create(ctx context.Context, path, account, container string) (*SQLiteCDB, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, shrderror.Newf(shrderror.SHRD_STORE, "error creating container DB %s: %v", path, err)
	}
	s := &SQLiteCDB{db: db, path: path}
	if err := s.initSchema(ctx, account, container); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteCDB) Close() error {
	return s.db.Close()
}

func (s *SQLiteCDB) Path() string {
	return s.path
}

func (s *SQLiteCDB) initSchema(ctx context.Context, account, container string) error {
	schema := `
	CREATE TABLE IF NOT EXISTS container_stat (
		id TEXT NOT NULL,
		account TEXT NOT NULL,
		container TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS object (
		name TEXT PRIMARY KEY
	);

	CREATE TABLE IF NOT EXISTS shard_range (
		name TEXT PRIMARY KEY,
		timestamp TEXT NOT NULL,
		lower TEXT NOT NULL,
		upper TEXT NOT NULL,
		object_count INTEGER NOT NULL DEFAULT 0,
		state INTEGER NOT NULL,
		state_timestamp TEXT NOT NULL,
		epoch TEXT,
		deleted INTEGER NOT NULL DEFAULT 0,
		merging_into TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS container_sysmeta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		timestamp TEXT NOT NULL
	);
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return shrderror.Newf(shrderror.SHRD_STORE, "failed to initialize schema: %v", err)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO container_stat (id, account, container) VALUES (?, ?, ?)`,
		uuid.NewString(), account, container)
	if err != nil {
		return shrderror.Newf(shrderror.SHRD_STORE, "failed to initialize container stat: %v", err)
	}
	return nil
}

// AddObjects inserts object rows, for tests and tooling.
func (s *SQLiteCDB) AddObjects(ctx context.Context, names ...string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return shrderror.Newf(shrderror.SHRD_STORE, "add objects: %v", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO object (name) VALUES (?)`)
	if err != nil {
		return shrderror.Newf(shrderror.SHRD_STORE, "add objects: %v", err)
	}
	defer stmt.Close()
	for _, name := range names {
		if _, err := stmt.ExecContext(ctx, name); err != nil {
			return shrderror.Newf(shrderror.SHRD_STORE, "add objects: %v", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return shrderror.Newf(shrderror.SHRD_STORE, "add objects: %v", err)
	}
	return nil
}

func (s *SQLiteCDB) GetInfo(ctx context.Context) (*cdb.Info, error) {
	info := &cdb.Info{}
	row := s.db.QueryRowContext(ctx, `SELECT id, account, container FROM container_stat LIMIT 1`)
	if err := row.Scan(&info.ID, &info.Account, &info.Container); err != nil {
		return nil, shrderror.Newf(shrderror.SHRD_STORE, "error reading container DB %s: %v", s.path, err)
	}
	row = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM object`)
	if err := row.Scan(&info.ObjectCount); err != nil {
		return nil, shrderror.Newf(shrderror.SHRD_STORE, "error reading container DB %s: %v", s.path, err)
	}
	return info, nil
}

func (s *SQLiteCDB) RootContainer(ctx context.Context) (bool, error) {
	info, err := s.GetInfo(ctx)
	if err != nil {
		return false, err
	}
	meta, err := s.GetMetadata(ctx)
	if err != nil {
		return false, err
	}
	root, ok := meta[cdb.SysmetaShardRoot]
	if !ok {
		return true, nil
	}
	return root.Value == info.Path(), nil
}

func (s *SQLiteCDB) DBState(ctx context.Context) (cdb.DBState, error) {
	own, err := s.GetOwnShardRange(ctx, true)
	if err != nil {
		return "", err
	}
	return cdb.StateFromOwn(own), nil
}

func (s *SQLiteCDB) GetOwnShardRange(ctx context.Context, noDefault bool) (*sr.ShardRange, error) {
	info, err := s.GetInfo(ctx)
	if err != nil {
		return nil, err
	}
	own, err := s.getShardRange(ctx, info.Path())
	if err != nil {
		return nil, err
	}
	if own != nil {
		return own, nil
	}
	if noDefault {
		return nil, nil
	}
	now := sr.Now()
	return &sr.ShardRange{
		Name:           info.Path(),
		Timestamp:      now,
		State:          sr.StateActive,
		StateTimestamp: now,
		ObjectCount:    info.ObjectCount,
	}, nil
}

const shardRangeColumns = `name, timestamp, lower, upper, object_count, state, state_timestamp, epoch, deleted, merging_into`

func scanShardRange(scan func(...any) error) (*sr.ShardRange, error) {
	var (
		rng                sr.ShardRange
		ts, stateTs, epoch string
		state, deleted     int
	)
	if err := scan(&rng.Name, &ts, &rng.Lower, &rng.Upper, &rng.ObjectCount,
		&state, &stateTs, &epoch, &deleted, &rng.MergingInto); err != nil {
		return nil, err
	}
	var err error
	if rng.Timestamp, err = sr.ParseTimestamp(ts); err != nil {
		return nil, err
	}
	if rng.StateTimestamp, err = sr.ParseTimestamp(stateTs); err != nil {
		return nil, err
	}
	if rng.Epoch, err = sr.ParseTimestamp(epoch); err != nil {
		return nil, err
	}
	rng.State = sr.State(state)
	rng.Deleted = deleted != 0
	return &rng, nil
}

func (s *SQLiteCDB) getShardRange(ctx context.Context, name string) (*sr.ShardRange, error) {
	row := s.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT %s FROM shard_range WHERE name = ?`, shardRangeColumns), name)
	rng, err := scanShardRange(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, shrderror.Newf(shrderror.SHRD_STORE, "error reading shard range %s: %v", name, err)
	}
	return rng, nil
}

func (s *SQLiteCDB) ListShardRanges(ctx context.Context, opts cdb.ListOptions) ([]*sr.ShardRange, error) {
	info, err := s.GetInfo(ctx)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT %s FROM shard_range WHERE name != ?`, shardRangeColumns)
	if !opts.IncludeDeleted {
		query += ` AND deleted = 0`
	}
	query += ` ORDER BY lower, CASE WHEN upper = '' THEN 1 ELSE 0 END, upper`

	rows, err := s.db.QueryContext(ctx, query, info.Path())
	if err != nil {
		return nil, shrderror.Newf(shrderror.SHRD_STORE, "error listing shard ranges: %v", err)
	}
	defer rows.Close()

	var ret []*sr.ShardRange
	for rows.Next() {
		rng, err := scanShardRange(rows.Scan)
		if err != nil {
			return nil, shrderror.Newf(shrderror.SHRD_STORE, "error listing shard ranges: %v", err)
		}
		ret = append(ret, rng)
	}
	if err := rows.Err(); err != nil {
		return nil, shrderror.Newf(shrderror.SHRD_STORE, "error listing shard ranges: %v", err)
	}
	return ret, nil
}

func (s *SQLiteCDB) MergeShardRanges(ctx context.Context, ranges []*sr.ShardRange) error {
	shrdlog.Zero.Debug().Int("count", len(ranges)).Msg("sqlitecdb: merge shard ranges")
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return shrderror.Newf(shrderror.SHRD_STORE, "merge shard ranges: %v", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, incoming := range ranges {
		row := tx.QueryRowContext(ctx,
			fmt.Sprintf(`SELECT %s FROM shard_range WHERE name = ?`, shardRangeColumns), incoming.Name)
		existing, err := scanShardRange(row.Scan)
		if err == sql.ErrNoRows {
			existing = nil
		} else if err != nil {
			return shrderror.Newf(shrderror.SHRD_STORE, "merge shard ranges: %v", err)
		}
		merged := sr.Reconcile(existing, incoming)
		deleted := 0
		if merged.Deleted {
			deleted = 1
		}
		epoch := ""
		if !merged.Epoch.IsZero() {
			epoch = merged.Epoch.String()
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO shard_range (name, timestamp, lower, upper, object_count, state, state_timestamp, epoch, deleted, merging_into)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(name) DO UPDATE SET
				timestamp = excluded.timestamp,
				lower = excluded.lower,
				upper = excluded.upper,
				object_count = excluded.object_count,
				state = excluded.state,
				state_timestamp = excluded.state_timestamp,
				epoch = excluded.epoch,
				deleted = excluded.deleted,
				merging_into = excluded.merging_into`,
			merged.Name, merged.Timestamp.String(), merged.Lower, merged.Upper,
			merged.ObjectCount, int(merged.State), merged.StateTimestamp.String(),
			epoch, deleted, merged.MergingInto)
		if err != nil {
			return shrderror.Newf(shrderror.SHRD_STORE, "merge shard ranges: %v", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return shrderror.Newf(shrderror.SHRD_STORE, "merge shard ranges commit: %v", err)
	}
	return nil
}

func (s *SQLiteCDB) FindSplitPoints(ctx context.Context, rowsPerShard int64, existing []*sr.ShardRange, limit int) ([]sr.Record, bool, error) {
	marker := ""
	index := 0
	if len(existing) > 0 {
		marker = existing[len(existing)-1].Upper
		index = len(existing)
	}

	var found []sr.Record
	for limit < 0 || len(found) < limit {
		var remaining int64
		row := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM object WHERE name > ?`, marker)
		if err := row.Scan(&remaining); err != nil {
			return nil, false, shrderror.Newf(shrderror.SHRD_STORE, "find split points: %v", err)
		}
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
		// the split point is found by a sorted scan of live rows,
		// which is why callers bound the batch size
		var upper string
		row = s.db.QueryRowContext(ctx,
			`SELECT name FROM object WHERE name > ? ORDER BY name LIMIT 1 OFFSET ?`,
			marker, rowsPerShard-1)
		if err := row.Scan(&upper); err != nil {
			return nil, false, shrderror.Newf(shrderror.SHRD_STORE, "find split points: %v", err)
		}
		found = append(found, sr.Record{
			Index:       index,
			Lower:       marker,
			ObjectCount: rowsPerShard,
			Upper:       upper,
		})
		marker = upper
		index++
	}
	return found, false, nil
}

func (s *SQLiteCDB) GetMetadata(ctx context.Context) (map[string]cdb.MetaValue, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value, timestamp FROM container_sysmeta`)
	if err != nil {
		return nil, shrderror.Newf(shrderror.SHRD_STORE, "error reading metadata: %v", err)
	}
	defer rows.Close()

	meta := map[string]cdb.MetaValue{}
	for rows.Next() {
		var key, value, ts string
		if err := rows.Scan(&key, &value, &ts); err != nil {
			return nil, shrderror.Newf(shrderror.SHRD_STORE, "error reading metadata: %v", err)
		}
		parsed, err := sr.ParseTimestamp(ts)
		if err != nil {
			return nil, shrderror.Newf(shrderror.SHRD_STORE, "error reading metadata: %v", err)
		}
		meta[key] = cdb.MetaValue{Value: value, Timestamp: parsed}
	}
	if err := rows.Err(); err != nil {
		return nil, shrderror.Newf(shrderror.SHRD_STORE, "error reading metadata: %v", err)
	}
	return meta, nil
}

func (s *SQLiteCDB) SetMetadata(ctx context.Context, key, value string, ts sr.Timestamp) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO container_sysmeta (key, value, timestamp) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, timestamp = excluded.timestamp
		WHERE excluded.timestamp > container_sysmeta.timestamp`,
		key, value, ts.String())
	if err != nil {
		return shrderror.Newf(shrderror.SHRD_STORE, "error writing metadata: %v", err)
	}
	return nil
}
