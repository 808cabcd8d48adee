package prefs

import (
	"context"
	"errors"
	"fmt"

	"modelgate/config"
	"modelgate/internal/storage"
)

// Result holds the initialized preference store and the storage it owns, if any.
type Result struct {
	Store   Store
	Storage storage.Storage
}

// Close releases resources held by the preference store.
func (r *Result) Close() error {
	var errs []error
	if r.Store != nil {
		if err := r.Store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("store close: %w", err))
		}
	}
	if r.Storage != nil {
		if err := r.Storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage close: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %w", errors.Join(errs...))
	}
	return nil
}

// New creates the preference store named by cfg.Prefs.Backend.
func New(ctx context.Context, cfg *config.Config) (*Result, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	switch cfg.Prefs.Backend {
	case config.PrefsMemory:
		return &Result{Store: NewMemoryStore()}, nil
	case config.PrefsFile, "":
		return &Result{Store: NewFileStore(cfg.Prefs.FilePath)}, nil
	}

	shared, err := storage.New(ctx, buildStorageConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to create storage: %w", err)
	}

	store, err := createStore(ctx, shared, cfg.Prefs.Redis.KeyPrefix)
	if err != nil {
		_ = shared.Close()
		return nil, err
	}

	return &Result{Store: store, Storage: shared}, nil
}

func buildStorageConfig(cfg *config.Config) storage.Config {
	defaults := storage.DefaultConfig()
	storageCfg := storage.Config{
		Type: cfg.Prefs.Backend,
		Redis: storage.RedisConfig{
			URL: cfg.Prefs.Redis.URL,
		},
		SQLite: storage.SQLiteConfig{
			Path: cfg.Prefs.SQLite.Path,
		},
		PostgreSQL: storage.PostgreSQLConfig{
			URL:      cfg.Prefs.PostgreSQL.URL,
			MaxConns: cfg.Prefs.PostgreSQL.MaxConns,
		},
		MongoDB: storage.MongoDBConfig{
			URL:      cfg.Prefs.MongoDB.URL,
			Database: cfg.Prefs.MongoDB.Database,
		},
	}

	if storageCfg.Redis.URL == "" {
		storageCfg.Redis.URL = defaults.Redis.URL
	}
	if storageCfg.SQLite.Path == "" {
		storageCfg.SQLite.Path = defaults.SQLite.Path
	}
	if storageCfg.MongoDB.Database == "" {
		storageCfg.MongoDB.Database = defaults.MongoDB.Database
	}
	return storageCfg
}

func createStore(ctx context.Context, shared storage.Storage, redisPrefix string) (Store, error) {
	switch shared.Type() {
	case storage.TypeRedis:
		return NewRedisStore(shared.RedisClient(), redisPrefix)
	case storage.TypeSQLite:
		return NewSQLiteStore(shared.SQLiteDB())
	case storage.TypePostgreSQL:
		return NewPostgreSQLStore(ctx, shared.PostgreSQLPool())
	case storage.TypeMongoDB:
		return NewMongoDBStore(shared.MongoDatabase())
	default:
		return nil, fmt.Errorf("unknown storage type: %s", shared.Type())
	}
}
