// Package store persists alert rules, recipients, message templates, the
// delivery log, and operator settings in SQLite.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jonboulle/clockwork"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

const schema = `
CREATE TABLE IF NOT EXISTS rules (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	weather_type TEXT    NOT NULL,
	kind         TEXT    NOT NULL,
	operator     TEXT    NOT NULL DEFAULT '',
	threshold    REAL    NOT NULL DEFAULT 0,
	unit         TEXT    NOT NULL DEFAULT '',
	keyword      TEXT    NOT NULL DEFAULT '',
	active       INTEGER NOT NULL DEFAULT 1,
	created_at   TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS recipients (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	name          TEXT NOT NULL,
	email         TEXT NOT NULL,
	region        TEXT NOT NULL,
	category      TEXT NOT NULL DEFAULT 'customer',
	weather_types TEXT NOT NULL DEFAULT '[]'
);

CREATE TABLE IF NOT EXISTS templates (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	name         TEXT NOT NULL,
	weather_type TEXT NOT NULL DEFAULT '',
	target_role  TEXT NOT NULL DEFAULT 'all',
	subject      TEXT NOT NULL,
	body         TEXT NOT NULL,
	active       INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS delivery_log (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	created_at      TIMESTAMP NOT NULL,
	notification_id TEXT NOT NULL,
	recipient_id    INTEGER NOT NULL,
	recipient_email TEXT NOT NULL,
	region          TEXT NOT NULL,
	weather_type    TEXT NOT NULL,
	status          TEXT NOT NULL,
	detail          TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_delivery_log_created ON delivery_log(created_at);

CREATE TABLE IF NOT EXISTS settings (
	id                  INTEGER PRIMARY KEY CHECK (id = 1),
	auto_approval       INTEGER NOT NULL,
	advance_days        INTEGER NOT NULL,
	interval_prediction INTEGER NOT NULL,
	dedup_window_hours  INTEGER NOT NULL
);
`

// Store wraps the SQLite database holding all persistent console state.
type Store struct {
	db    *sql.DB
	clock clockwork.Clock
}

// Open opens (creating if needed) the SQLite database at path and applies the
// schema. Use ":memory:" for tests. The clock stamps created_at columns so
// tests can freeze time.
func Open(path string, clock clockwork.Clock) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("store: path is required")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite doesn't benefit from multiple connections, and a single
	// connection sidesteps table-lock contention entirely.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db, clock: clock}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// rowsAffected translates a zero-row UPDATE/DELETE into wantErr.
func rowsAffected(res sql.Result, wantErr error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return wantErr
	}
	return nil
}

func (s *Store) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.db.ExecContext(ctx, query, args...)
}
