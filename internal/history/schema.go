// Package history keeps finished conversions in SQLite so the last result
// can be reopened after the process that produced it is gone.
package history

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS conversions (
	id            TEXT PRIMARY KEY,
	path          TEXT NOT NULL,
	name          TEXT NOT NULL DEFAULT '',
	title         TEXT NOT NULL DEFAULT '',
	checksum      TEXT NOT NULL DEFAULT '',
	status        TEXT NOT NULL,
	image_service TEXT NOT NULL DEFAULT '',
	content       TEXT NOT NULL DEFAULT '',
	errors        TEXT NOT NULL DEFAULT '[]',
	started_at    DATETIME NOT NULL,
	finished_at   DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_conversions_path ON conversions(path);
CREATE INDEX IF NOT EXISTS idx_conversions_finished ON conversions(finished_at);

CREATE TABLE IF NOT EXISTS link_matches (
	conversion_id TEXT NOT NULL REFERENCES conversions(id) ON DELETE CASCADE,
	seq           INTEGER NOT NULL,
	matched_text  TEXT NOT NULL,
	format        TEXT NOT NULL,
	link_type     TEXT NOT NULL,
	src           TEXT NOT NULL DEFAULT '',
	alt           TEXT NOT NULL DEFAULT '',
	status        TEXT NOT NULL,
	width         INTEGER NOT NULL DEFAULT 0,
	height        INTEGER NOT NULL DEFAULT 0,
	file_path     TEXT NOT NULL DEFAULT '',
	full_path     TEXT NOT NULL DEFAULT '',
	mime_type     TEXT NOT NULL DEFAULT '',
	replaced_text TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (conversion_id, seq)
);
`

// DB wraps a sql.DB with history-specific operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("history: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("history: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("history: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
