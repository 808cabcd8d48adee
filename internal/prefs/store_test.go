package prefs

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modelgate/config"
	"modelgate/internal/storage"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Now().UTC().Truncate(time.Second)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// runStoreContract exercises the behavior every backend must share.
func runStoreContract(t *testing.T, store Store, clock *fakeClock) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := store.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok, "absent key should not be found")

	require.NoError(t, store.Set(ctx, "selected_model", "gemini-2.5-pro", 0))
	v, ok, err := store.Get(ctx, "selected_model")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "gemini-2.5-pro", v)

	require.NoError(t, store.Set(ctx, "selected_model", "gemini-2.0-flash", 0))
	v, _, err = store.Get(ctx, "selected_model")
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.0-flash", v, "set overwrites")

	require.NoError(t, store.Set(ctx, "cooldown:gemini-2.0-flash", "until", time.Hour))
	_, ok, err = store.Get(ctx, "cooldown:gemini-2.0-flash")
	require.NoError(t, err)
	assert.True(t, ok, "entry is live before its ttl")

	if clock == nil {
		return
	}

	clock.Advance(time.Hour)
	_, ok, err = store.Get(ctx, "cooldown:gemini-2.0-flash")
	require.NoError(t, err)
	assert.False(t, ok, "entry must be gone once its ttl elapses")

	_, ok, err = store.Get(ctx, "selected_model")
	require.NoError(t, err)
	assert.True(t, ok, "entries without ttl never expire")

	// expired keys can be written again
	require.NoError(t, store.Set(ctx, "cooldown:gemini-2.0-flash", "again", time.Minute))
	v, ok, err = store.Get(ctx, "cooldown:gemini-2.0-flash")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "again", v)
}

func TestMemoryStore(t *testing.T) {
	clock := newFakeClock()
	runStoreContract(t, NewMemoryStoreWithClock(clock.Now), clock)
}

func TestFileStore(t *testing.T) {
	clock := newFakeClock()
	store := NewFileStore(filepath.Join(t.TempDir(), "nested", "prefs.json"))
	store.now = clock.Now
	runStoreContract(t, store, clock)
}

func TestFileStore_PersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "prefs.json")

	require.NoError(t, NewFileStore(path).Set(ctx, "selected_model", "gemini-1.5-pro", 0))

	v, ok, err := NewFileStore(path).Get(ctx, "selected_model")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "gemini-1.5-pro", v)
}

func TestFileStore_PrunesExpiredOnWrite(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	store := NewFileStore(filepath.Join(t.TempDir(), "prefs.json"))
	store.now = clock.Now

	require.NoError(t, store.Set(ctx, "old", "x", time.Minute))
	clock.Advance(2 * time.Minute)
	require.NoError(t, store.Set(ctx, "new", "y", 0))

	entries, err := store.load()
	require.NoError(t, err)
	assert.NotContains(t, entries, "old")
	assert.Contains(t, entries, "new")
}

func TestSQLiteStore(t *testing.T) {
	st, err := storage.NewSQLite(storage.SQLiteConfig{Path: filepath.Join(t.TempDir(), "prefs.db")})
	require.NoError(t, err)
	defer st.Close()

	store, err := NewSQLiteStore(st.SQLiteDB())
	require.NoError(t, err)

	clock := newFakeClock()
	store.now = clock.Now
	runStoreContract(t, store, clock)
}

func TestNewSQLiteStore_NilDB(t *testing.T) {
	_, err := NewSQLiteStore(nil)
	assert.Error(t, err)
}

func TestScope_IsolatesCallers(t *testing.T) {
	ctx := context.Background()
	shared := NewMemoryStore()

	alice := Scope(shared, "alice")
	bob := Scope(shared, "bob")

	require.NoError(t, alice.Set(ctx, "selected_model", "gemini-2.5-pro", 0))

	_, ok, err := bob.Get(ctx, "selected_model")
	require.NoError(t, err)
	assert.False(t, ok, "bob must not see alice's selection")

	v, ok, err := shared.Get(ctx, "alice:selected_model")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "gemini-2.5-pro", v)

	require.NoError(t, alice.Close())
	require.NoError(t, shared.Set(ctx, "still", "open", 0), "closing a scope leaves the backend usable")
}

func TestValidateCallerID(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		{"plain", "alice", false},
		{"uuid", "0b6f3c1e-8f5a-4e59-9a43-2f1d1c9f2a10", false},
		{"empty", "", true},
		{"separator", "u:cooldown", true},
		{"trailing separator", "alice:", true},
		{"too long", strings.Repeat("x", MaxCallerIDLength+1), true},
		{"at limit", strings.Repeat("x", MaxCallerIDLength), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCallerID(tt.id)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNew_LocalBackends(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	tests := []struct {
		backend string
		want    any
	}{
		{config.PrefsMemory, &MemoryStore{}},
		{config.PrefsFile, &FileStore{}},
		{config.PrefsSQLite, &SQLiteStore{}},
	}

	for _, tt := range tests {
		t.Run(tt.backend, func(t *testing.T) {
			cfg := &config.Config{Prefs: config.PrefsConfig{
				Backend:  tt.backend,
				FilePath: filepath.Join(dir, "prefs.json"),
				SQLite:   config.SQLiteConfig{Path: filepath.Join(dir, "prefs.db")},
			}}

			result, err := New(ctx, cfg)
			require.NoError(t, err)
			defer result.Close()

			assert.IsType(t, tt.want, result.Store)
			require.NoError(t, result.Store.Set(ctx, "k", "v", 0))
		})
	}
}

func TestNew_Errors(t *testing.T) {
	_, err := New(context.Background(), nil)
	assert.Error(t, err)

	_, err = New(context.Background(), &config.Config{Prefs: config.PrefsConfig{Backend: "etcd"}})
	assert.Error(t, err)
}
