package storage

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"
	"nftcache.app/config"
	"nftcache.app/errors"
)

// RedisStore persists entries in Redis. Entries carry no Redis-level TTL;
// expiry is decided by the versioned envelope on load.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(cfg *config.RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  time.Duration(cfg.DialTimeout) * time.Second,
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, errors.NewPersistenceError("failed to connect to redis", err)
	}

	slog.Info("Redis store connected successfully", "addr", cfg.Addr)

	return &RedisStore{client: client}, nil
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, false, nil
		}
		return nil, false, errors.NewPersistenceError("redis get failed", err)
	}
	return val, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, key, value, 0).Err(); err != nil {
		return errors.NewPersistenceError("redis set failed", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return errors.NewPersistenceError("redis delete failed", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
