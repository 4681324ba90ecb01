package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/franckalain/nutriledger/internal/fault"
)

//go:embed schema.sql
var schemaFS embed.FS

// SQLiteStore implements Store on a local sqlite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (and if needed initializes) the database at
// dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	// Enable foreign keys and WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("error enabling foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		return nil, fmt.Errorf("error enabling WAL mode: %w", err)
	}

	if err := initializeSchema(db); err != nil {
		return nil, fmt.Errorf("error initializing schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func initializeSchema(db *sql.DB) error {
	schemaBytes, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return fmt.Errorf("error reading schema file: %w", err)
	}
	if _, err := db.Exec(string(schemaBytes)); err != nil {
		return fmt.Errorf("error executing schema: %w", err)
	}
	return nil
}

// Get returns the blob stored under key.
func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var blob string
	err := s.db.QueryRowContext(ctx,
		`SELECT blob FROM collections WHERE key = ?`, key,
	).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fault.Storage("get "+key, err)
	}
	return []byte(blob), true, nil
}

// Set replaces the blob stored under key. The blob must be valid JSON:
// a half-written collection must never become unparseable, so invalid
// payloads are rejected before they reach disk.
func (s *SQLiteStore) Set(ctx context.Context, key string, blob []byte) error {
	if !json.Valid(blob) {
		return fault.Validation("blob for %q is not valid JSON", key)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO collections (key, blob, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			blob = excluded.blob,
			updated_at = excluded.updated_at
	`, key, string(blob), time.Now().Format(time.RFC3339))
	if err != nil {
		return fault.Storage("set "+key, err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
