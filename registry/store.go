// Package registry is the agent registry: a SQLite store of versioned agent
// definitions with an idempotent create-or-update operation and maintenance
// fixes.
package registry

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/hupe1980/researchflow/agent"
	"github.com/hupe1980/researchflow/logging"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when no agent with the requested name is stored.
var ErrNotFound = errors.New("agent not registered")

// Options configures the store.
type Options struct {
	Logger logging.Logger
	// Now is the clock used for updated_at.
	Now func() time.Time
}

// Store wraps the SQLite connection.
type Store struct {
	conn *sql.DB
	path string
	mu   sync.RWMutex
	opts Options
}

// Record is one stored agent version.
type Record struct {
	Name       string
	Version    int
	Digest     string
	Definition agent.Definition
	UpdatedAt  time.Time
}

// Open opens the registry database at path, creating parent directories and
// applying pending migrations.
func Open(path string, optFns ...func(o *Options)) (*Store, error) {
	opts := Options{
		Logger: logging.NoOpLogger{},
		Now:    time.Now,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create registry directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open registry: %w", err)
	}

	// A single writer keeps sync transactions serialized.
	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	s := &Store{conn: conn, path: path, opts: opts}

	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.Close()
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

const migrationV1Agents = `
CREATE TABLE IF NOT EXISTS agents (
	name       TEXT PRIMARY KEY,
	version    INTEGER NOT NULL,
	digest     TEXT NOT NULL,
	definition TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS agent_versions (
	name       TEXT NOT NULL,
	version    INTEGER NOT NULL,
	digest     TEXT NOT NULL,
	definition TEXT NOT NULL,
	created_at TEXT NOT NULL,
	PRIMARY KEY (name, version)
);
`

func (s *Store) migrate() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at TEXT NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	var current int
	if err := s.conn.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&current); err != nil {
		return fmt.Errorf("get schema version: %w", err)
	}

	migrations := []struct {
		version int
		sql     string
	}{
		{1, migrationV1Agents},
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}

		tx, err := s.conn.Begin()
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}

		if _, err := tx.Exec(m.sql); err != nil {
			tx.Rollback()
			return fmt.Errorf("apply migration %d: %w", m.version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version, applied_at) VALUES (?, ?)", m.version, s.now()); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.version, err)
		}
	}

	return nil
}

func (s *Store) now() string {
	return s.opts.Now().UTC().Format(time.RFC3339Nano)
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Get returns the current version of the named agent.
func (s *Store) Get(ctx context.Context, name string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return get(ctx, s.conn, name)
}

func get(ctx context.Context, q querier, name string) (Record, error) {
	row := q.QueryRowContext(ctx, "SELECT name, version, digest, definition, updated_at FROM agents WHERE name = ?", name)

	rec, err := scanRecord(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return rec, err
}

// List returns the current version of every agent, sorted by name.
func (s *Store) List(ctx context.Context) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.conn.QueryContext(ctx, "SELECT name, version, digest, definition, updated_at FROM agents ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}

	return out, rows.Err()
}

// Definitions returns the registered definitions so runs can execute against
// the registry instead of embedded files.
func (s *Store) Definitions(ctx context.Context) ([]agent.Definition, error) {
	recs, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	defs := make([]agent.Definition, len(recs))
	for i, r := range recs {
		defs[i] = r.Definition
	}
	return defs, nil
}

// Versions returns the number of stored versions of the named agent.
func (s *Store) Versions(ctx context.Context, name string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	if err := s.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM agent_versions WHERE name = ?", name).Scan(&n); err != nil {
		return 0, fmt.Errorf("count versions of %s: %w", name, err)
	}
	return n, nil
}

func scanRecord(scan func(dest ...any) error) (Record, error) {
	var (
		rec       Record
		raw       string
		updatedAt string
	)

	if err := scan(&rec.Name, &rec.Version, &rec.Digest, &raw, &updatedAt); err != nil {
		return Record{}, err
	}

	if err := json.Unmarshal([]byte(raw), &rec.Definition); err != nil {
		return Record{}, fmt.Errorf("decode definition %s: %w", rec.Name, err)
	}

	t, err := time.Parse(time.RFC3339Nano, updatedAt)
	if err != nil {
		return Record{}, fmt.Errorf("parse updated_at of %s: %w", rec.Name, err)
	}
	rec.UpdatedAt = t

	return rec, nil
}

// put writes a new version of def inside tx.
func (s *Store) put(ctx context.Context, tx *sql.Tx, def agent.Definition, version int) error {
	data, err := json.Marshal(def)
	if err != nil {
		return fmt.Errorf("encode definition %s: %w", def.Name, err)
	}

	now := s.now()
	digest := def.Digest()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO agents (name, version, digest, definition, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			version = excluded.version,
			digest = excluded.digest,
			definition = excluded.definition,
			updated_at = excluded.updated_at
	`, def.Name, version, digest, string(data), now); err != nil {
		return fmt.Errorf("store agent %s: %w", def.Name, err)
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO agent_versions (name, version, digest, definition, created_at) VALUES (?, ?, ?, ?, ?)",
		def.Name, version, digest, string(data), now,
	); err != nil {
		return fmt.Errorf("store version %d of %s: %w", version, def.Name, err)
	}

	return nil
}
