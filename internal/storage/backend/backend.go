// Package backend opens the storage.Repository named by the configuration.
package backend

import (
	"context"
	"fmt"

	"github.com/yourusername/ludoengine/internal/config"
	"github.com/yourusername/ludoengine/internal/storage"
	"github.com/yourusername/ludoengine/internal/storage/bbolt"
	"github.com/yourusername/ludoengine/internal/storage/memory"
	"github.com/yourusername/ludoengine/internal/storage/redis"
	"github.com/yourusername/ludoengine/internal/storage/sqlite"
)

// Open returns the repository selected by cfg.Storage.
func Open(ctx context.Context, cfg config.Config) (storage.Repository, error) {
	switch cfg.Storage {
	case config.StorageMemory, "":
		return memory.New(), nil
	case config.StorageBolt:
		store, err := bbolt.Open(cfg.StoragePath)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.StorageSQLite:
		store, err := sqlite.Open(cfg.StoragePath)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.StorageRedis:
		store, err := redis.Open(ctx, redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.RedisTTL,
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage)
	}
}
