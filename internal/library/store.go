// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package library keeps an offline copy of the book catalog in SQLite so
// lookups work without the catalog server. Books are loaded from YAML
// catalog files and searched with the same substring semantics the server
// uses.
package library

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-sqlite3"

	"github.com/pdiddy/bookbrowser/pkg/types"
)

const defaultMaxResults = 20

// driverName is go-sqlite3 with a fold(text) function that upper-cases
// with full Unicode case mapping. SQLite's built-in upper() only maps ASCII.
const driverName = "sqlite3_library"

func init() {
	sql.Register(driverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc("fold", strings.ToUpper, true)
		},
	})
}

// Store manages the library SQLite database.
type Store struct {
	db         *sql.DB
	maxResults int
}

// Open opens or creates the library database at cfg.Path. It creates the
// parent directory and the schema if they do not exist.
func Open(cfg types.LibraryConfig) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("library path is empty")
	}
	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating library directory: %w", err)
		}
	}

	db, err := sql.Open(driverName, cfg.Path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}

	s := &Store{db: db, maxResults: maxResults}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS books (
			id INTEGER PRIMARY KEY,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			release_date TEXT NOT NULL DEFAULT '',
			series_id INTEGER NOT NULL DEFAULT 0,
			series_title TEXT NOT NULL DEFAULT '',
			source TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_books_source ON books(source)`,
		`CREATE TABLE IF NOT EXISTS persons (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			full_name TEXT NOT NULL UNIQUE
		)`,
		`CREATE TABLE IF NOT EXISTS creators (
			book_id INTEGER NOT NULL REFERENCES books(id) ON DELETE CASCADE,
			person_id INTEGER NOT NULL REFERENCES persons(id),
			role TEXT NOT NULL,
			position INTEGER NOT NULL,
			PRIMARY KEY (book_id, person_id, role)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_creators_person ON creators(person_id)`,
		`CREATE TABLE IF NOT EXISTS genres (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE COLLATE NOCASE
		)`,
		`CREATE TABLE IF NOT EXISTS book_genres (
			book_id INTEGER NOT NULL REFERENCES books(id) ON DELETE CASCADE,
			genre_id INTEGER NOT NULL REFERENCES genres(id),
			PRIMARY KEY (book_id, genre_id)
		)`,
		`CREATE TABLE IF NOT EXISTS import_status (
			source TEXT PRIMARY KEY,
			file_mod_time TEXT NOT NULL
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Count returns the number of books in the library.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM books`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting books: %w", err)
	}
	return n, nil
}
