package storage

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nftcache.app/config"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	t.Run("GetMissing", func(t *testing.T) {
		_, found, err := store.Get(ctx, "missing")
		assert.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("SetAndGet", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "key", []byte("value")))

		value, found, err := store.Get(ctx, "key")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, []byte("value"), value)
	})

	t.Run("GetReturnsCopy", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "copy", []byte("abc")))

		value, _, err := store.Get(ctx, "copy")
		require.NoError(t, err)
		value[0] = 'x'

		again, _, err := store.Get(ctx, "copy")
		require.NoError(t, err)
		assert.Equal(t, []byte("abc"), again)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "gone", []byte("v")))
		require.NoError(t, store.Delete(ctx, "gone"))

		_, found, err := store.Get(ctx, "gone")
		assert.NoError(t, err)
		assert.False(t, found)
	})
}

func setupMockRedis(t *testing.T) *config.RedisConfig {
	t.Helper()

	mockRedis := miniredis.RunT(t)

	return &config.RedisConfig{
		Addr:         mockRedis.Addr(),
		Password:     "",
		DB:           0,
		DialTimeout:  5,
		ReadTimeout:  3,
		WriteTimeout: 3,
	}
}

func TestRedisStore(t *testing.T) {
	ctx := context.Background()

	store, err := NewRedisStore(setupMockRedis(t))
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	t.Run("GetMissing", func(t *testing.T) {
		_, found, err := store.Get(ctx, "missing")
		assert.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("SetAndGet", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "key", []byte(`{"a":1}`)))

		value, found, err := store.Get(ctx, "key")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, []byte(`{"a":1}`), value)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "gone", []byte("v")))
		require.NoError(t, store.Delete(ctx, "gone"))

		_, found, err := store.Get(ctx, "gone")
		assert.NoError(t, err)
		assert.False(t, found)
	})
}

func TestRedisStoreConnectFailure(t *testing.T) {
	_, err := NewRedisStore(&config.RedisConfig{
		Addr:        "localhost:1",
		DialTimeout: 1,
	})
	assert.Error(t, err)
}

func TestNewStore(t *testing.T) {
	t.Run("Memory", func(t *testing.T) {
		store, err := NewStore(&config.StoreConfig{Type: "memory"})
		require.NoError(t, err)
		assert.IsType(t, &MemoryStore{}, store)
	})

	t.Run("Redis", func(t *testing.T) {
		cfg := &config.StoreConfig{Type: "redis", Redis: *setupMockRedis(t)}
		store, err := NewStore(cfg)
		require.NoError(t, err)
		assert.IsType(t, &RedisStore{}, store)
	})

	t.Run("Unknown", func(t *testing.T) {
		_, err := NewStore(&config.StoreConfig{Type: "carrier-pigeon"})
		assert.Error(t, err)
	})
}

func TestDatabaseStoreSQLite(t *testing.T) {
	ctx := context.Background()

	store, err := NewDatabaseStore(&config.DatabaseConfig{
		Driver: "sqlite",
		Path:   t.TempDir() + "/test.db",
	})
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	t.Run("SetGetOverwriteDelete", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "key", []byte("one")))
		require.NoError(t, store.Set(ctx, "key", []byte("two")))

		value, found, err := store.Get(ctx, "key")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, []byte("two"), value)

		require.NoError(t, store.Delete(ctx, "key"))
		_, found, err = store.Get(ctx, "key")
		assert.NoError(t, err)
		assert.False(t, found)
	})
}
