package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"
)

// Options configures a SQLiteStore.
type Options struct {
	// Collections are the key prefixes that group records. Subscribing to
	// one of them covers every key of the collection.
	Collections []string
	Logger      *slog.Logger
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db          *sql.DB
	path        string
	collections []string
	log         *slog.Logger

	// mu serializes writers. notifyMu is taken before mu is released so
	// subscribers see changes in commit order.
	mu       sync.Mutex
	notifyMu sync.Mutex
	entropy  *rand.Rand

	subMu  sync.Mutex
	subs   map[uint64]*subscriber
	nextID uint64
}

type subscriber struct {
	key        string
	collection bool
	fn         func(Change)
}

// NewSQLiteStore opens or creates a SQLite database at the given path.
func NewSQLiteStore(dbPath string, opts Options) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &SQLiteStore{
		db:          db,
		path:        dbPath,
		collections: slices.Clone(opts.Collections),
		log:         logger.With("component", "store"),
		entropy:     rand.New(rand.NewSource(time.Now().UnixNano())),
		subs:        make(map[uint64]*subscriber),
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string { return s.path }

func (s *SQLiteStore) newID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS kv (
		key        TEXT PRIMARY KEY,
		collection TEXT NOT NULL DEFAULT '',
		value      TEXT NOT NULL,
		version    INTEGER NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_kv_collection ON kv(collection);

	CREATE TABLE IF NOT EXISTS changes (
		id         TEXT PRIMARY KEY,
		version    INTEGER NOT NULL,
		key        TEXT NOT NULL,
		op         TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_changes_version ON changes(version DESC);

	CREATE TABLE IF NOT EXISTS meta (
		name  TEXT PRIMARY KEY,
		value INTEGER NOT NULL
	);
	INSERT OR IGNORE INTO meta (name, value) VALUES ('version', 0);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) collectionOf(key string) string {
	for _, c := range s.collections {
		if len(key) > len(c) && key[:len(c)] == c {
			return c
		}
	}
	return ""
}

func (s *SQLiteStore) isCollection(prefix string) bool {
	return slices.Contains(s.collections, prefix)
}

func (s *SQLiteStore) Get(ctx context.Context, key string) (json.RawMessage, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return json.RawMessage(value), nil
}

func (s *SQLiteStore) GetCollection(ctx context.Context, prefix string) (map[string]json.RawMessage, error) {
	return readCollection(ctx, s.db, prefix)
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func readCollection(ctx context.Context, q querier, prefix string) (map[string]json.RawMessage, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT key, value FROM kv WHERE substr(key, 1, length(?)) = ? ORDER BY key`, prefix, prefix)
	if err != nil {
		return nil, fmt.Errorf("read collection %s: %w", prefix, err)
	}
	defer rows.Close()

	out := make(map[string]json.RawMessage)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		out[key] = json.RawMessage(value)
	}
	return out, rows.Err()
}

// mutation is one key-level effect of a write.
type mutation struct {
	key   string
	op    string
	value json.RawMessage // nil deletes
}

// write applies the mutations computed by plan inside one transaction and
// notifies subscribers after commit.
func (s *SQLiteStore) write(ctx context.Context, plan func(tx *sql.Tx) ([]mutation, error)) error {
	s.mu.Lock()
	locked := true
	defer func() {
		if locked {
			s.mu.Unlock()
		}
	}()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	muts, err := plan(tx)
	if err != nil {
		return err
	}
	if len(muts) == 0 {
		return nil
	}

	if _, err := tx.ExecContext(ctx, `UPDATE meta SET value = value + 1 WHERE name = 'version'`); err != nil {
		return fmt.Errorf("bump version: %w", err)
	}
	var version int64
	if err := tx.QueryRowContext(ctx, `SELECT value FROM meta WHERE name = 'version'`).Scan(&version); err != nil {
		return fmt.Errorf("read version: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	keys := make([]string, 0, len(muts))
	for _, m := range muts {
		if m.value == nil {
			_, err = tx.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, m.key)
		} else {
			_, err = tx.ExecContext(ctx,
				`INSERT INTO kv (key, collection, value, version, updated_at) VALUES (?, ?, ?, ?, ?)
				 ON CONFLICT(key) DO UPDATE SET value = excluded.value, version = excluded.version, updated_at = excluded.updated_at`,
				m.key, s.collectionOf(m.key), string(m.value), version, now)
		}
		if err != nil {
			return fmt.Errorf("%s %s: %w", m.op, m.key, err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO changes (id, version, key, op, created_at) VALUES (?, ?, ?, ?, ?)`,
			s.newID(), version, m.key, m.op, now)
		if err != nil {
			return fmt.Errorf("record change: %w", err)
		}
		keys = append(keys, m.key)
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	s.notifyMu.Lock()
	s.mu.Unlock()
	locked = false
	defer s.notifyMu.Unlock()

	s.log.Debug("store_write", "version", version, "keys", len(keys))
	s.dispatch(Change{Version: version, Keys: keys})
	return nil
}

func (s *SQLiteStore) dispatch(c Change) {
	s.subMu.Lock()
	ids := make([]uint64, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	subs := make([]*subscriber, 0, len(ids))
	for _, id := range ids {
		subs = append(subs, s.subs[id])
	}
	s.subMu.Unlock()

	for _, sub := range subs {
		var matched []string
		for _, k := range c.Keys {
			if matches(sub.key, sub.collection, k) {
				matched = append(matched, k)
			}
		}
		if len(matched) > 0 {
			sub.fn(Change{Version: c.Version, Keys: matched})
		}
	}
}

func currentValue(ctx context.Context, tx *sql.Tx, key string) (json.RawMessage, error) {
	var value string
	err := tx.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return json.RawMessage(value), nil
}

func setMutation(key string, value json.RawMessage) (mutation, error) {
	if key == "" {
		return mutation{}, errors.New("key is required")
	}
	if isNull(value) {
		return mutation{key: key, op: "remove"}, nil
	}
	if !json.Valid(value) {
		return mutation{}, fmt.Errorf("set %s: value is not valid JSON", key)
	}
	return mutation{key: key, op: "set", value: value}, nil
}

func (s *SQLiteStore) Set(ctx context.Context, key string, value json.RawMessage) error {
	return s.MultiSet(ctx, map[string]json.RawMessage{key: value})
}

func (s *SQLiteStore) MultiSet(ctx context.Context, values map[string]json.RawMessage) error {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	muts := make([]mutation, 0, len(keys))
	for _, k := range keys {
		m, err := setMutation(k, values[k])
		if err != nil {
			return err
		}
		muts = append(muts, m)
	}

	return s.write(ctx, func(tx *sql.Tx) ([]mutation, error) {
		out := muts[:0:0]
		for _, m := range muts {
			if m.value == nil {
				cur, err := currentValue(ctx, tx, m.key)
				if err != nil {
					return nil, err
				}
				if cur == nil {
					continue
				}
			}
			out = append(out, m)
		}
		return out, nil
	})
}

func (s *SQLiteStore) Merge(ctx context.Context, key string, patch json.RawMessage) error {
	if key == "" {
		return errors.New("key is required")
	}
	if !isNull(patch) && !json.Valid(patch) {
		return fmt.Errorf("merge %s: patch is not valid JSON", key)
	}
	return s.write(ctx, func(tx *sql.Tx) ([]mutation, error) {
		cur, err := currentValue(ctx, tx, key)
		if err != nil {
			return nil, err
		}
		merged, err := mergeJSON(cur, patch)
		if err != nil {
			return nil, fmt.Errorf("merge %s: %w", key, err)
		}
		if merged == nil && cur == nil {
			return nil, nil
		}
		return []mutation{{key: key, op: "merge", value: merged}}, nil
	})
}

func (s *SQLiteStore) Remove(ctx context.Context, key string) error {
	return s.Set(ctx, key, nil)
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	return s.write(ctx, func(tx *sql.Tx) ([]mutation, error) {
		rows, err := tx.QueryContext(ctx, `SELECT key FROM kv ORDER BY key`)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		var muts []mutation
		for rows.Next() {
			var key string
			if err := rows.Scan(&key); err != nil {
				return nil, err
			}
			muts = append(muts, mutation{key: key, op: "clear"})
		}
		return muts, rows.Err()
	})
}

func (s *SQLiteStore) Subscribe(key string, fn func(Change)) *Subscription {
	s.subMu.Lock()
	s.nextID++
	id := s.nextID
	s.subs[id] = &subscriber{key: key, collection: s.isCollection(key), fn: fn}
	s.subMu.Unlock()

	var once sync.Once
	return &Subscription{
		Key: key,
		cancel: func() {
			once.Do(func() {
				s.subMu.Lock()
				delete(s.subs, id)
				s.subMu.Unlock()
			})
		},
	}
}

func (s *SQLiteStore) Snapshot(ctx context.Context, keys, prefixes []string) (*Snapshot, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin snapshot: %w", err)
	}
	defer tx.Rollback()

	snap := &Snapshot{
		Values:      make(map[string]json.RawMessage, len(keys)),
		Collections: make(map[string]map[string]json.RawMessage, len(prefixes)),
	}

	// The first read pins the WAL snapshot for the rest of the transaction.
	if err := tx.QueryRowContext(ctx, `SELECT value FROM meta WHERE name = 'version'`).Scan(&snap.Version); err != nil {
		return nil, fmt.Errorf("read version: %w", err)
	}

	for _, key := range keys {
		v, err := currentValue(ctx, tx, key)
		if err != nil {
			return nil, fmt.Errorf("snapshot %s: %w", key, err)
		}
		if v != nil {
			snap.Values[key] = v
		}
	}
	for _, prefix := range prefixes {
		c, err := readCollection(ctx, tx, prefix)
		if err != nil {
			return nil, err
		}
		snap.Collections[prefix] = c
	}

	return snap, nil
}

func (s *SQLiteStore) Close() error {
	s.subMu.Lock()
	s.subs = make(map[uint64]*subscriber)
	s.subMu.Unlock()
	return s.db.Close()
}
