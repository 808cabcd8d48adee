package prefs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SQLiteStore keeps entries in a SQLite table.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore creates the prefs table if needed.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS prefs (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			expires_at INTEGER
		)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create prefs table: %w", err)
	}

	return &SQLiteStore{db: db, now: time.Now}, nil
}

// Get returns the live value for key.
func (s *SQLiteStore) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM prefs WHERE key = ? AND (expires_at IS NULL OR expires_at > ?)",
		key, s.now().UnixMilli(),
	).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("query pref: %w", err)
	}
	return value, true, nil
}

// Set upserts value under key.
func (s *SQLiteStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	var expiresAt sql.NullInt64
	if deadline := expiry(s.now(), ttl); !deadline.IsZero() {
		expiresAt = sql.NullInt64{Int64: deadline.UnixMilli(), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO prefs (key, value, expires_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at
	`, key, value, expiresAt)
	if err != nil {
		return fmt.Errorf("upsert pref: %w", err)
	}
	return nil
}

// Close is a no-op; the connection belongs to the storage layer.
func (s *SQLiteStore) Close() error {
	return nil
}
