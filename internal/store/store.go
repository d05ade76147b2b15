// Package store persists client preferences and, when enabled, saved quotes
// in a local SQLite database.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/csheth/bookfeed/internal/state"
)

const busyTimeout = 5 * time.Second

const schema = `
CREATE TABLE IF NOT EXISTS prefs (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS saved_quotes (
    id INTEGER PRIMARY KEY,
    quote_id TEXT NOT NULL UNIQUE,
    quote_text TEXT NOT NULL,
    book_title TEXT NOT NULL
);
`

// ErrNotFound is returned by Get when the key has never been written.
var ErrNotFound = errors.New("preference not set")

// Store wraps the SQLite handle.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates the database file and its parent directory if needed and
// applies the schema. Use ":memory:" for a throwaway store.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("store path is required")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db %q: %w", path, err)
	}
	// A single connection keeps ":memory:" databases coherent.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", busyTimeout.Milliseconds())); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Path returns the file the store was opened from.
func (s *Store) Path() string { return s.path }

// Close releases the database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Get reads a preference value.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM prefs WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("read preference %q: %w", key, err)
	}
	return value, nil
}

// Set writes a preference value, replacing any previous one.
func (s *Store) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO prefs (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("write preference %q: %w", key, err)
	}
	return nil
}

// SavedQuotes returns the persisted saved list in save order.
func (s *Store) SavedQuotes(ctx context.Context) ([]state.SavedQuote, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, quote_id, quote_text, book_title
		FROM saved_quotes
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query saved quotes: %w", err)
	}
	defer rows.Close()

	quotes := []state.SavedQuote{}
	for rows.Next() {
		var q state.SavedQuote
		if err := rows.Scan(&q.ID, &q.QuoteID, &q.QuoteText, &q.BookTitle); err != nil {
			return nil, fmt.Errorf("scan saved quote: %w", err)
		}
		quotes = append(quotes, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate saved quotes: %w", err)
	}
	return quotes, nil
}

// ReplaceSavedQuotes overwrites the persisted list with quotes.
func (s *Store) ReplaceSavedQuotes(ctx context.Context, quotes []state.SavedQuote) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin saved quotes tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM saved_quotes`); err != nil {
		return fmt.Errorf("clear saved quotes: %w", err)
	}
	for _, q := range quotes {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO saved_quotes (id, quote_id, quote_text, book_title) VALUES (?, ?, ?, ?)`,
			q.ID, q.QuoteID, q.QuoteText, q.BookTitle,
		); err != nil {
			return fmt.Errorf("insert saved quote %q: %w", q.QuoteID, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit saved quotes: %w", err)
	}
	return nil
}
