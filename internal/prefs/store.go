// Package prefs provides the per-caller preference store: a small persisted
// key/value map with optional per-key expiry. The gateway keeps the caller's
// model selection and cooldown records here.
package prefs

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Store is a key/value map with per-key expiry.
// Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the value for key. ok is false when the key is absent or expired.
	Get(ctx context.Context, key string) (value string, ok bool, err error)

	// Set stores value under key. A ttl <= 0 means the entry never expires.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Close releases any resources held by the store.
	Close() error
}

// MaxCallerIDLength bounds the caller ids accepted by ValidateCallerID.
const MaxCallerIDLength = 128

// ValidateCallerID checks that id can name a scope. ':' separates the caller from
// the key, so an id containing it could read or overwrite another caller's entries.
func ValidateCallerID(id string) error {
	switch {
	case id == "":
		return errors.New("caller id is required")
	case len(id) > MaxCallerIDLength:
		return errors.New("caller id too long")
	case strings.Contains(id, ":"):
		return errors.New("caller id must not contain ':'")
	}
	return nil
}

// Scope returns a view of store whose keys live under callerID. Many callers can
// share one backend without seeing each other's entries. callerID must pass
// ValidateCallerID. Closing the view does not close the underlying store.
func Scope(store Store, callerID string) Store {
	return &scoped{store: store, prefix: callerID + ":"}
}

type scoped struct {
	store  Store
	prefix string
}

func (s *scoped) Get(ctx context.Context, key string) (string, bool, error) {
	return s.store.Get(ctx, s.prefix+key)
}

func (s *scoped) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.store.Set(ctx, s.prefix+key, value, ttl)
}

func (s *scoped) Close() error {
	return nil
}

// expiry converts a ttl into an absolute deadline; zero time means none.
func expiry(now time.Time, ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return now.Add(ttl)
}

func expired(now, expiresAt time.Time) bool {
	return !expiresAt.IsZero() && !now.Before(expiresAt)
}
