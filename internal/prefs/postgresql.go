package prefs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgreSQLStore keeps entries in a PostgreSQL table.
type PostgreSQLStore struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewPostgreSQLStore creates the prefs table if needed.
func NewPostgreSQLStore(ctx context.Context, pool *pgxpool.Pool) (*PostgreSQLStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("connection pool is required")
	}

	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS prefs (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			expires_at TIMESTAMPTZ
		)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create prefs table: %w", err)
	}

	return &PostgreSQLStore{pool: pool, now: time.Now}, nil
}

// Get returns the live value for key.
func (s *PostgreSQLStore) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.pool.QueryRow(ctx,
		"SELECT value FROM prefs WHERE key = $1 AND (expires_at IS NULL OR expires_at > $2)",
		key, s.now().UTC(),
	).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("query pref: %w", err)
	}
	return value, true, nil
}

// Set upserts value under key.
func (s *PostgreSQLStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	var expiresAt *time.Time
	if deadline := expiry(s.now(), ttl); !deadline.IsZero() {
		utc := deadline.UTC()
		expiresAt = &utc
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO prefs (key, value, expires_at) VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at
	`, key, value, expiresAt)
	if err != nil {
		return fmt.Errorf("upsert pref: %w", err)
	}
	return nil
}

// Close is a no-op; the pool belongs to the storage layer.
func (s *PostgreSQLStore) Close() error {
	return nil
}
