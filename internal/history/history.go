// Package history provides a SQLite-backed record of past questions and
// answers. Every successful ask appends one entry; the history command reads
// them back for review. The store is local to the machine and survives
// restarts.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // register "sqlite" driver
)

// Entry is a single recorded question/answer exchange.
type Entry struct {
	// Question is the natural-language question as asked.
	Question string
	// Answer is the generated answer text.
	Answer string
	// Contexts is how many retrieved contexts backed the answer.
	Contexts int
	// TotalSeconds is the end-to-end pipeline latency.
	TotalSeconds float64
	// CreatedAt is when the exchange was persisted.
	CreatedAt time.Time
}

// Store persists and retrieves ask history. Implementations must be safe for
// concurrent use.
type Store interface {
	// Append persists a single exchange.
	Append(ctx context.Context, e Entry) error
	// Recent returns the most recent n entries, ordered oldest-first.
	// If fewer than n entries exist, all are returned.
	Recent(ctx context.Context, n int) ([]Entry, error)
	// Close releases any resources held by the store.
	Close() error
}

// SQLiteStore is a Store backed by a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// DefaultDBPath returns the default path for the history database. It
// resolves to ~/.ragcat/history.db, creating the directory if needed.
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("history: could not determine home directory: %w", err)
	}
	dir := filepath.Join(home, ".ragcat")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("history: could not create %s: %w", dir, err)
	}
	return filepath.Join(dir, "history.db"), nil
}

// Open opens (or creates) a SQLiteStore at the given path and runs the schema
// migration. Use ":memory:" for an in-memory database in tests.
func Open(path string) (*SQLiteStore, error) {
	// WAL mode improves concurrent read performance and is safe for single-host use.
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("history: open %s: %w", path, err)
	}
	// Limit to a single writer connection to avoid SQLITE_BUSY under concurrent writes.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// migrate creates the schema if it does not already exist.
func (s *SQLiteStore) migrate() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS asks (
    id             INTEGER PRIMARY KEY AUTOINCREMENT,
    question       TEXT    NOT NULL,
    answer         TEXT    NOT NULL,
    contexts       INTEGER NOT NULL,
    total_seconds  REAL    NOT NULL,
    created_at     INTEGER NOT NULL  -- Unix timestamp (seconds)
);
CREATE INDEX IF NOT EXISTS idx_asks_created ON asks (created_at);
`
	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("history: migrate: %w", err)
	}
	return nil
}

// Append persists a single exchange.
func (s *SQLiteStore) Append(ctx context.Context, e Entry) error {
	created := e.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	const q = `INSERT INTO asks (question, answer, contexts, total_seconds, created_at) VALUES (?, ?, ?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, q, e.Question, e.Answer, e.Contexts, e.TotalSeconds, created.Unix()); err != nil {
		return fmt.Errorf("history: append: %w", err)
	}
	return nil
}

// Recent returns the most recent n entries, ordered oldest-first. Uses a
// subquery to select the tail then re-order for display.
func (s *SQLiteStore) Recent(ctx context.Context, n int) ([]Entry, error) {
	const q = `
SELECT question, answer, contexts, total_seconds, created_at FROM (
    SELECT id, question, answer, contexts, total_seconds, created_at
    FROM   asks
    ORDER  BY created_at DESC, id DESC
    LIMIT  ?
) ORDER BY created_at ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, q, n)
	if err != nil {
		return nil, fmt.Errorf("history: recent: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var ts int64
		if err := rows.Scan(&e.Question, &e.Answer, &e.Contexts, &e.TotalSeconds, &ts); err != nil {
			return nil, fmt.Errorf("history: recent scan: %w", err)
		}
		e.CreatedAt = time.Unix(ts, 0)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: recent rows: %w", err)
	}
	return entries, nil
}

// Close releases the database connection pool.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("history: close: %w", err)
	}
	return nil
}
