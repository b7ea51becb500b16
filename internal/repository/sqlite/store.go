// Package sqlite is a single-file run archive used by the simulate CLI and by
// the server when no Postgres URL is configured.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Store implements the run and cycle repositories on SQLite.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the archive at path. ":memory:" is accepted.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("sqlite pragma %q: %w", p, err)
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			creator_id TEXT NOT NULL,
			status TEXT NOT NULL,
			seed TEXT NOT NULL DEFAULT '',
			shuffle INTEGER NOT NULL DEFAULT 0,
			recolor INTEGER NOT NULL DEFAULT 0,
			cast_format TEXT NOT NULL,
			events_format TEXT NOT NULL,
			cast_doc TEXT NOT NULL,
			events_doc TEXT NOT NULL,
			cycle INTEGER NOT NULL,
			cycles_run INTEGER NOT NULL DEFAULT 0,
			auto_interval TEXT NOT NULL DEFAULT '',
			next_cycle_at TEXT,
			winner TEXT NOT NULL DEFAULT '',
			fail_reason TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL,
			readied_at TEXT,
			finished_at TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS cycles (
			run_id TEXT NOT NULL REFERENCES runs (id) ON DELETE CASCADE,
			cycle_index INTEGER NOT NULL,
			cycle_name TEXT NOT NULL,
			narration TEXT NOT NULL,
			deaths INTEGER NOT NULL,
			complete INTEGER NOT NULL,
			created_at TEXT NOT NULL,
			PRIMARY KEY (run_id, cycle_index)
		);`,
		`CREATE INDEX IF NOT EXISTS runs_status_idx ON runs (status, next_cycle_at);`,
	}
	for _, q := range stmts {
		if _, err := db.Exec(q); err != nil {
			return fmt.Errorf("sqlite schema: %w", err)
		}
	}
	return nil
}

func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func formatTimePtr(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseTime(s string) (time.Time, error) { return time.Parse(time.RFC3339Nano, s) }

func parseTimePtr(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid {
		return nil, nil
	}
	t, err := parseTime(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
