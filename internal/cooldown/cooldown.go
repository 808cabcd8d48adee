// Package cooldown records per-model unavailability caused by upstream rate limiting.
//
// A cooldown written for "gemini-2.0-flash-001" also covers its version family
// "gemini-2.0-flash", so a caller who just hit a limit on a pinned release does not
// immediately retry through the unpinned alias. Records live in the caller's
// preference store and are never shared between callers.
package cooldown

import (
	"context"
	"fmt"
	"strings"
	"time"

	"modelgate/internal/prefs"
)

// DefaultDuration is how long a rate-limited model stays unavailable.
const DefaultDuration = time.Hour

const keyPrefix = "cooldown:"

// Store reads and writes cooldown records over a preference store.
type Store struct {
	prefs prefs.Store
	now   func() time.Time
}

// New creates a cooldown store over the given preference store.
func New(store prefs.Store) *Store {
	return NewWithClock(store, time.Now)
}

// NewWithClock creates a cooldown store that reads time from now.
func NewWithClock(store prefs.Store, now func() time.Time) *Store {
	return &Store{prefs: store, now: now}
}

// BaseFamilyID derives the version-family id: a trailing "-latest" is removed,
// then a trailing "-<digits>" release suffix.
//
//	gemini-2.0-flash-001  -> gemini-2.0-flash
//	gemini-flash-latest   -> gemini-flash
//	gemini-1.5-pro-002-latest -> gemini-1.5-pro
func BaseFamilyID(id string) string {
	base := strings.TrimSuffix(id, "-latest")
	if i := strings.LastIndexByte(base, '-'); i >= 0 && i < len(base)-1 && allDigits(base[i+1:]) {
		base = base[:i]
	}
	return base
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// keys returns the exact id followed by its family id when they differ.
func keys(id string) []string {
	base := BaseFamilyID(id)
	if base == id || base == "" {
		return []string{id}
	}
	return []string{id, base}
}

// MarkUnavailable puts id and its family id on cooldown for d and returns the expiry.
// A non-positive d falls back to DefaultDuration.
func (s *Store) MarkUnavailable(ctx context.Context, id string, d time.Duration) (time.Time, error) {
	if d <= 0 {
		d = DefaultDuration
	}
	until := s.now().Add(d).UTC()
	value := until.Format(time.RFC3339Nano)

	for _, key := range keys(id) {
		if err := s.prefs.Set(ctx, keyPrefix+key, value, d); err != nil {
			return time.Time{}, fmt.Errorf("record cooldown for %s: %w", key, err)
		}
	}
	return until, nil
}

// IsUnavailable reports whether id or its family id has an active cooldown.
func (s *Store) IsUnavailable(ctx context.Context, id string) (bool, error) {
	_, active, err := s.AvailableAt(ctx, id)
	return active, err
}

// AvailableAt returns the latest active expiry covering id. active is false when
// neither the exact id nor its family id is on cooldown.
func (s *Store) AvailableAt(ctx context.Context, id string) (until time.Time, active bool, err error) {
	now := s.now()

	for _, key := range keys(id) {
		value, ok, err := s.prefs.Get(ctx, keyPrefix+key)
		if err != nil {
			return time.Time{}, false, fmt.Errorf("read cooldown for %s: %w", key, err)
		}
		if !ok {
			continue
		}

		expiresAt, err := time.Parse(time.RFC3339Nano, value)
		if err != nil {
			// Unreadable record: the store's own ttl still bounds it.
			active = true
			continue
		}
		if !now.Before(expiresAt) {
			continue
		}
		active = true
		if expiresAt.After(until) {
			until = expiresAt
		}
	}
	return until, active, nil
}
