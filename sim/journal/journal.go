// Package journal persists the entities and synchronization passes of an
// exercise to SQLite so a run can be replayed bit for bit.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/triage-sim/triage-sim/sim/world"
)

// ErrSeedMismatch is returned when a journal is reopened with another seed.
var ErrSeedMismatch = errors.New("journal was recorded with a different seed")

const schema = `
CREATE TABLE IF NOT EXISTS meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS entities (
	seq     INTEGER PRIMARY KEY AUTOINCREMENT,
	id      TEXT NOT NULL UNIQUE,
	payload BLOB NOT NULL
);
CREATE TABLE IF NOT EXISTS syncs (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	now INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS events (
	sync_seq INTEGER NOT NULL REFERENCES syncs(seq),
	position INTEGER NOT NULL,
	payload  BLOB NOT NULL,
	PRIMARY KEY (sync_seq, position)
);`

// Meta keys written by the CLI besides the seed.
const (
	MetaConfig  = "config"
	MetaContent = "content"
)

// Entity is a journaled entity registration.
type Entity struct {
	ID   string
	Spec world.EntitySpec
}

// Sync is a journaled synchronization pass: the events exactly as they were
// handed to the manager.
type Sync struct {
	Seq    int64
	Now    int64
	Events []world.Event
}

// Store is an append-only journal backed by a SQLite file.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates the journal at path.
func Open(path string) (*Store, error) {
	if path == "" {
		path = "triage-sim.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// BindSeed records the exercise seed, or checks it against the recorded one.
func (s *Store) BindSeed(ctx context.Context, seed int64) error {
	want := fmt.Sprint(seed)
	var got string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = 'seed'`).Scan(&got)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := s.db.ExecContext(ctx, `INSERT INTO meta (key, value) VALUES ('seed', ?)`, want); err != nil {
			return fmt.Errorf("insert seed: %w", err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("select seed: %w", err)
	case got != want:
		return fmt.Errorf("%w: recorded %s, got %s", ErrSeedMismatch, got, want)
	}
	return nil
}

// Seed returns the recorded seed.
func (s *Store) Seed(ctx context.Context) (int64, bool, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = 'seed'`).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("select seed: %w", err)
	}
	var seed int64
	if _, err := fmt.Sscan(v, &seed); err != nil {
		return 0, false, fmt.Errorf("parse seed %q: %w", v, err)
	}
	return seed, true, nil
}

// SetMeta stores a free-form value, replacing any previous one.
func (s *Store) SetMeta(ctx context.Context, key, value string) error {
	if key == "seed" {
		return fmt.Errorf("seed is bound with BindSeed")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO meta (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("upsert meta %q: %w", key, err)
	}
	return nil
}

// Meta returns a stored value.
func (s *Store) Meta(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("select meta %q: %w", key, err)
	}
	return v, true, nil
}

// AppendEntity journals an entity registration.
func (s *Store) AppendEntity(ctx context.Context, id string, spec world.EntitySpec) error {
	data, err := json.Marshal(spec)
	if err != nil {
		return fmt.Errorf("encode entity %q: %w", id, err)
	}
	if _, err := s.db.ExecContext(ctx, `INSERT INTO entities (id, payload) VALUES (?, ?)`, id, data); err != nil {
		return fmt.Errorf("insert entity %q: %w", id, err)
	}
	return nil
}

// AppendSync journals one synchronization pass atomically and returns its
// sequence number.
func (s *Store) AppendSync(ctx context.Context, now int64, events []world.Event) (seq int64, retErr error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	res, err := tx.ExecContext(ctx, `INSERT INTO syncs (now) VALUES (?)`, now)
	if err != nil {
		return 0, fmt.Errorf("insert sync: %w", err)
	}
	if seq, err = res.LastInsertId(); err != nil {
		return 0, fmt.Errorf("sync id: %w", err)
	}
	for i, ev := range events {
		data, err := world.EncodeEvent(ev)
		if err != nil {
			return 0, err
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO events (sync_seq, position, payload) VALUES (?, ?, ?)`, seq, i, data); err != nil {
			return 0, fmt.Errorf("insert event %d: %w", ev.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit sync: %w", err)
	}
	return seq, nil
}

// Entities returns the journaled entities in registration order.
func (s *Store) Entities(ctx context.Context) ([]Entity, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, payload FROM entities ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("select entities: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []Entity
	for rows.Next() {
		var (
			e    Entity
			data []byte
		)
		if err := rows.Scan(&e.ID, &data); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		if err := json.Unmarshal(data, &e.Spec); err != nil {
			return nil, fmt.Errorf("decode entity %q: %w", e.ID, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Syncs returns every journaled pass in order, events in their original
// batch order.
func (s *Store) Syncs(ctx context.Context) ([]Sync, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.seq, s.now, e.payload
		FROM syncs s LEFT JOIN events e ON e.sync_seq = s.seq
		ORDER BY s.seq, e.position`)
	if err != nil {
		return nil, fmt.Errorf("select syncs: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []Sync
	for rows.Next() {
		var (
			seq, now int64
			data     []byte
		)
		if err := rows.Scan(&seq, &now, &data); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		if n := len(out); n == 0 || out[n-1].Seq != seq {
			out = append(out, Sync{Seq: seq, Now: now})
		}
		if data == nil {
			continue
		}
		ev, err := world.DecodeEvent(data)
		if err != nil {
			return nil, fmt.Errorf("sync %d: %w", seq, err)
		}
		last := &out[len(out)-1]
		last.Events = append(last.Events, ev)
	}
	return out, rows.Err()
}

// Replay registers the journaled entities on m and plays every pass back.
func Replay(ctx context.Context, s *Store, m *world.Manager) ([]world.SyncReport, error) {
	entities, err := s.Entities(ctx)
	if err != nil {
		return nil, err
	}
	for _, e := range entities {
		if err := m.AddEntity(e.ID, e.Spec); err != nil {
			return nil, fmt.Errorf("replaying entity %q: %w", e.ID, err)
		}
	}
	syncs, err := s.Syncs(ctx)
	if err != nil {
		return nil, err
	}
	reports := make([]world.SyncReport, 0, len(syncs))
	for _, sy := range syncs {
		if err := ctx.Err(); err != nil {
			return reports, err
		}
		rep, err := m.Synchronize(sy.Now, sy.Events)
		if err != nil {
			return reports, fmt.Errorf("replaying sync %d: %w", sy.Seq, err)
		}
		reports = append(reports, rep)
	}
	return reports, nil
}
