package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// Store handles SQLite storage for the catalog and the token ledger.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the shop database at dbPath and migrates
// the schema.
func NewStore(dbPath string) (*Store, error) {
	// Expand ~ in path
	if strings.HasPrefix(dbPath, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		dbPath = filepath.Join(home, dbPath[1:])
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_fk=1&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// migrate creates the necessary tables
func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS digital_items (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			type TEXT CHECK(type IN ('file', 'key')) NOT NULL,
			file_path TEXT,
			key_value TEXT,
			instruction TEXT,
			created_at DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS issued_tokens (
			token TEXT PRIMARY KEY,
			item_id INTEGER NOT NULL,
			used INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL,
			FOREIGN KEY (item_id) REFERENCES digital_items(id)
		);

		CREATE INDEX IF NOT EXISTS idx_tokens_item ON issued_tokens(item_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// DB exposes the underlying handle so auxiliary stores can share the
// same database file.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}
