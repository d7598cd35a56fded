// Package storage provides the durable key-value slots backing the caches.
package storage

import (
	"context"

	"nftcache.app/config"
	"nftcache.app/errors"
)

// Store defines the durable key-value operations the caches persist through.
// Persistence is an optimization: callers must stay correct when Set fails.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// NewStore creates the configured store backend
func NewStore(cfg *config.StoreConfig) (Store, error) {
	switch cfg.Type {
	case "memory":
		return NewMemoryStore(), nil
	case "redis":
		return NewRedisStore(&cfg.Redis)
	case "database":
		return NewDatabaseStore(&cfg.Database)
	default:
		return nil, errors.NewConfigurationError("unknown store type: "+cfg.Type, nil)
	}
}
