// Package store persists translated pages and machine-translated strings
// in SQLite.
package store

import (
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS pages (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	url_hash TEXT NOT NULL UNIQUE,
	url TEXT NOT NULL,
	lang TEXT NOT NULL,
	content TEXT NOT NULL,
	generated_at INTEGER NOT NULL,
	last_accessed INTEGER NOT NULL,
	hits INTEGER NOT NULL DEFAULT 0,
	source_hash TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_pages_lang ON pages(lang);
CREATE INDEX IF NOT EXISTS idx_pages_last_accessed ON pages(last_accessed);

CREATE TABLE IF NOT EXISTS strings (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	lang TEXT NOT NULL,
	text_hash TEXT NOT NULL,
	original TEXT NOT NULL,
	translated TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'machine',
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL,
	UNIQUE(lang, text_hash)
);
`

// Store wraps the SQLite database shared by the page cache and the
// string dictionary.
type Store struct {
	db *sql.DB
	sb sq.StatementBuilderType
}

// Open opens (or creates) the SQLite database at dsn and installs the
// schema. Use ":memory:" for an ephemeral store in tests.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite allows one writer; a single pooled connection also keeps
	// :memory: databases from splitting per connection.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA synchronous = NORMAL;",
		"PRAGMA foreign_keys = ON;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("pragma %q: %w", p, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("install schema: %w", err)
	}

	return &Store{db: db, sb: sq.StatementBuilder}, nil
}

// DB exposes the underlying handle, mainly for tests.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
