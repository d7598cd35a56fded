// Package cache provides a persisted, schema-versioned snapshot slot with
// staleness-based invalidation. Both the metadata cache and the listing
// snapshot persist through it.
package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"nftcache.app/storage"
)

// envelope is the persisted form: the value wrapped with the schema version
// and write timestamp the invalidation rules are applied against.
type envelope struct {
	SchemaVersion int             `json:"schema_version"`
	StoredAt      time.Time       `json:"stored_at"`
	Value         json.RawMessage `json:"value"`
}

// Versioned is a persisted slot for one snapshot of type T. Load applies two
// invalidation rules transparently: a schema version mismatch and a stored-at
// age beyond maxAge each discard the stored value wholesale. Neither Load nor
// Save ever returns an error; the in-memory copy held by the caller remains
// authoritative when persistence fails.
type Versioned[T any] struct {
	store   storage.Store
	key     string
	version int
	maxAge  time.Duration
}

func NewVersioned[T any](store storage.Store, key string, version int, maxAge time.Duration) *Versioned[T] {
	return &Versioned[T]{
		store:   store,
		key:     key,
		version: version,
		maxAge:  maxAge,
	}
}

// Load returns the stored snapshot, or nil if absent, unreadable, written by
// a different schema version, or older than maxAge. Invalid state is cleared
// so the next load starts from an empty slot.
func (c *Versioned[T]) Load(ctx context.Context) *T {
	data, found, err := c.store.Get(ctx, c.key)
	if err != nil {
		slog.Warn("cache load failed, treating as absent", "key", c.key, "error", err)
		return nil
	}
	if !found {
		return nil
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		slog.Warn("cache entry unreadable, discarding", "key", c.key, "error", err)
		c.Clear(ctx)
		return nil
	}

	if env.SchemaVersion != c.version {
		slog.Info("cache schema version changed, discarding",
			"key", c.key, "stored", env.SchemaVersion, "expected", c.version)
		c.Clear(ctx)
		return nil
	}

	if time.Since(env.StoredAt) > c.maxAge {
		slog.Debug("cache entry stale, discarding", "key", c.key, "stored_at", env.StoredAt)
		c.Clear(ctx)
		return nil
	}

	value := new(T)
	if err := json.Unmarshal(env.Value, value); err != nil {
		slog.Warn("cache value unreadable, discarding", "key", c.key, "error", err)
		c.Clear(ctx)
		return nil
	}

	return value
}

// Save persists the snapshot. On a storage failure the slot is cleared and
// the write retried once with the same payload; a second failure drops the
// write silently.
func (c *Versioned[T]) Save(ctx context.Context, value *T) {
	raw, err := json.Marshal(value)
	if err != nil {
		slog.Warn("cache value not serializable, dropping write", "key", c.key, "error", err)
		return
	}

	data, err := json.Marshal(envelope{
		SchemaVersion: c.version,
		StoredAt:      time.Now(),
		Value:         raw,
	})
	if err != nil {
		slog.Warn("cache envelope not serializable, dropping write", "key", c.key, "error", err)
		return
	}

	if err := c.store.Set(ctx, c.key, data); err == nil {
		return
	}

	c.Clear(ctx)
	if err := c.store.Set(ctx, c.key, data); err != nil {
		slog.Warn("cache write failed after clear, dropping", "key", c.key, "error", err)
	}
}

// Clear removes the stored snapshot.
func (c *Versioned[T]) Clear(ctx context.Context) {
	if err := c.store.Delete(ctx, c.key); err != nil {
		slog.Warn("cache clear failed", "key", c.key, "error", err)
	}
}
