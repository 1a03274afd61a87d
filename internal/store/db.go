// Package store is the persistent store (§4.11): a single embedded
// relational database with connection pooling and versioned schema
// migrations, grounded on the teacher's internal/state/db.go.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// DB wraps the pooled SQLite connection backing every repository.
type DB struct {
	conn *sql.DB
}

// migration is one linear, idempotent schema step. Migrations never change
// after release; new schema needs append a new entry.
type migration struct {
	version int
	sql     string
}

var migrations = []migration{
	{1, migration001Initial},
	{2, migration002Undo},
	{3, migration003Housekeeping},
	{4, migration004Settings},
}

// Open opens or creates the database at path, applies pending migrations,
// and configures it per §4.11: foreign_keys=ON, journal_mode=WAL.
func Open(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// A pool of more than one writer connection serializes on SQLite's
	// single-writer lock anyway; keep it small like the teacher does.
	conn.SetMaxOpenConns(8)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	if _, err := conn.Exec(`PRAGMA foreign_keys = ON;`); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}
	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enabling WAL: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

func (d *DB) migrate() error {
	if _, err := d.conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
	`); err != nil {
		return fmt.Errorf("initializing schema_version: %w", err)
	}

	var current int
	row := d.conn.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_version`)
	if err := row.Scan(&current); err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		tx, err := d.conn.Begin()
		if err != nil {
			return fmt.Errorf("beginning migration %d: %w", m.version, err)
		}
		if _, err := tx.Exec(m.sql); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", m.version, err)
		}
		if _, err := tx.Exec(`INSERT INTO schema_version (version) VALUES (?)`, m.version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", m.version, err)
		}
	}
	return nil
}

// Close closes the underlying connection pool.
func (d *DB) Close() error {
	return d.conn.Close()
}

// Conn exposes the raw *sql.DB for repositories in this package.
func (d *DB) Conn() *sql.DB {
	return d.conn
}

const migration001Initial = `
CREATE TABLE IF NOT EXISTS folders (
	id TEXT PRIMARY KEY,
	path TEXT NOT NULL,
	name TEXT NOT NULL,
	enabled INTEGER NOT NULL DEFAULT 1,
	scan_depth INTEGER NOT NULL DEFAULT 0,
	remove_duplicates INTEGER NOT NULL DEFAULT 0,
	trash_incomplete_downloads INTEGER NOT NULL DEFAULT 0,
	incomplete_timeout_minutes INTEGER NOT NULL DEFAULT 60,
	parent_id TEXT REFERENCES folders(id),
	is_group INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS rules (
	id TEXT PRIMARY KEY,
	folder_id TEXT NOT NULL REFERENCES folders(id) ON DELETE CASCADE,
	name TEXT NOT NULL,
	enabled INTEGER NOT NULL DEFAULT 1,
	stop_processing INTEGER NOT NULL DEFAULT 0,
	conditions TEXT NOT NULL,
	actions TEXT NOT NULL,
	position INTEGER NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_rules_folder ON rules(folder_id, position);

CREATE TABLE IF NOT EXISTS logs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	rule_id TEXT,
	rule_name TEXT,
	file_path TEXT NOT NULL,
	action_type TEXT NOT NULL,
	details TEXT,
	status TEXT NOT NULL,
	error TEXT,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_logs_created ON logs(created_at);
CREATE INDEX IF NOT EXISTS idx_logs_rule ON logs(rule_id);

CREATE TABLE IF NOT EXISTS rule_matches (
	rule_id TEXT NOT NULL,
	file_path TEXT NOT NULL,
	fingerprint TEXT NOT NULL,
	matched_at TEXT NOT NULL,
	PRIMARY KEY (rule_id, file_path)
);
`

const migration002Undo = `
CREATE TABLE IF NOT EXISTS undo_entries (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	log_id INTEGER NOT NULL,
	action_type TEXT NOT NULL,
	original_path TEXT NOT NULL,
	current_path TEXT NOT NULL,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_undo_created ON undo_entries(created_at);
`

const migration003Housekeeping = `
CREATE TABLE IF NOT EXISTS duplicate_removals (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	folder_id TEXT NOT NULL,
	removed_path TEXT NOT NULL,
	content_hash TEXT NOT NULL,
	original_path TEXT NOT NULL,
	removed_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS incomplete_files (
	folder_id TEXT NOT NULL,
	file_path TEXT NOT NULL,
	first_seen TEXT NOT NULL,
	size_bytes INTEGER NOT NULL,
	PRIMARY KEY (folder_id, file_path)
);
`

// migration004Settings backs the §6 "Settings store: single JSON document
// at key 'settings' in an external key-value store" contract with a
// one-row-per-key table rather than a bespoke file format.
const migration004Settings = `
CREATE TABLE IF NOT EXISTS kv_store (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`
