package prefs

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

type fileEntry struct {
	Value     string     `json:"value"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// FileStore persists entries as a single JSON document on local disk.
// This is suitable for single-instance deployments and the CLI.
type FileStore struct {
	mu       sync.Mutex
	filePath string
	now      func() time.Time
}

// NewFileStore creates a store backed by filePath. The file is created on first write.
func NewFileStore(filePath string) *FileStore {
	return &FileStore{filePath: filePath, now: time.Now}
}

// Get returns the live value for key.
func (s *FileStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return "", false, err
	}

	e, ok := entries[key]
	if !ok {
		return "", false, nil
	}
	if e.ExpiresAt != nil && expired(s.now(), *e.ExpiresAt) {
		return "", false, nil
	}
	return e.Value, true, nil
}

// Set stores value under key, dropping expired entries while rewriting the file.
func (s *FileStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return err
	}

	now := s.now()
	for k, e := range entries {
		if e.ExpiresAt != nil && expired(now, *e.ExpiresAt) {
			delete(entries, k)
		}
	}

	e := fileEntry{Value: value}
	if deadline := expiry(now, ttl); !deadline.IsZero() {
		e.ExpiresAt = &deadline
	}
	entries[key] = e

	return s.save(entries)
}

// Close is a no-op for the file store.
func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) load() (map[string]fileEntry, error) {
	entries := make(map[string]fileEntry)

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return entries, nil
		}
		return nil, fmt.Errorf("failed to read prefs file: %w", err)
	}
	if len(data) == 0 {
		return entries, nil
	}

	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse prefs file: %w", err)
	}
	return entries, nil
}

func (s *FileStore) save(entries map[string]fileEntry) error {
	dir := filepath.Dir(s.filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create prefs directory: %w", err)
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal prefs: %w", err)
	}

	// Write atomically using temp file + rename
	tmpFile := s.filePath + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0o600); err != nil {
		return fmt.Errorf("failed to write prefs file: %w", err)
	}
	if err := os.Rename(tmpFile, s.filePath); err != nil {
		_ = os.Remove(tmpFile)
		return fmt.Errorf("failed to rename prefs file: %w", err)
	}
	return nil
}
