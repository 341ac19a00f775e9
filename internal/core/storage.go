package core

import (
	"communityconnect/internal/blob"
	"communityconnect/internal/infra/persistence/blobstate"
	"communityconnect/internal/infra/persistence/memory"
	"communityconnect/internal/infra/persistence/postgres"
	"communityconnect/internal/infra/persistence/redis"
	"communityconnect/internal/infra/persistence/sqlite"
	"communityconnect/internal/infra/persistence/state"
	"communityconnect/pkg/domain"
	"context"
	"fmt"
)

// StorageDriver identifies a concrete persistent storage implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
	StorageBlob     StorageDriver = "blob"     // one object per bucket in a blob store
	StorageRedis    StorageDriver = "redis"    // one key per bucket in Redis
)

// StorageConfig selects and parameterizes the state backend.
type StorageConfig struct {
	Driver        StorageDriver
	SQLitePath    string
	PostgresDSN   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	BlobPrefix    string
	Blob          blob.Config
}

// fallbackReporter is implemented by stores hydrated through the bucket codec.
type fallbackReporter interface {
	Fallbacks() []state.Fallback
}

// OpenPersistentStore opens the backend named by cfg.Driver (default sqlite)
// and hydrates it, using seed for any bucket storage does not provide.
func OpenPersistentStore(ctx context.Context, cfg StorageConfig, engine *domain.RulesEngine, seed memory.Snapshot) (PersistentStore, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = StorageSQLite
	}
	switch driver {
	case StorageMemory:
		store := memory.NewStore(engine)
		store.ImportState(seed)
		return store, nil
	case StorageSQLite:
		store, err := sqlite.NewStore(cfg.SQLitePath, engine, seed)
		if err != nil {
			return nil, err
		}
		return store, nil
	case StoragePostgres:
		if cfg.PostgresDSN == "" {
			return nil, fmt.Errorf("postgres dsn required")
		}
		store, err := postgres.NewStore(ctx, cfg.PostgresDSN, engine, seed)
		if err != nil {
			return nil, err
		}
		return store, nil
	case StorageBlob:
		blobs, err := blob.Open(ctx, cfg.Blob)
		if err != nil {
			return nil, fmt.Errorf("open state blob store: %w", err)
		}
		store, err := blobstate.NewStore(ctx, blobs, cfg.BlobPrefix, engine, seed)
		if err != nil {
			return nil, err
		}
		return store, nil
	case StorageRedis:
		if cfg.RedisAddr == "" {
			return nil, fmt.Errorf("redis address required")
		}
		store, err := redis.Open(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, engine, seed)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}

// LogFallbacks reports seeded buckets of store, if it tracks them.
func LogFallbacks(logger Logger, store PersistentStore) {
	reporter, ok := store.(fallbackReporter)
	if !ok {
		return
	}
	for _, f := range reporter.Fallbacks() {
		if f.Reason == state.ReasonMalformed {
			logger.Warn("stored bucket unreadable, using seed data", "bucket", f.Bucket, "error", f.Err)
			continue
		}
		logger.Info("stored bucket absent, using seed data", "bucket", f.Bucket)
	}
}
