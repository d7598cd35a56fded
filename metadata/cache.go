package metadata

import (
	"context"
	"sync"
	"time"

	"nftcache.app/cache"
	"nftcache.app/models"
	"nftcache.app/storage"
)

// SchemaVersion invalidates persisted metadata entries wholesale when the
// entry layout changes. Bump on any change to entry or document.
const SchemaVersion = 2

const documentKey = "nftcache:metadata"

type entry struct {
	Value     models.Metadata `json:"value"`
	StoredAt  time.Time       `json:"stored_at"`
	ExpiresAt time.Time       `json:"expires_at"`
}

func (e entry) expired(now time.Time) bool {
	return now.After(e.ExpiresAt)
}

// document is the persisted form: all entries in one versioned slot.
type document struct {
	Entries map[string]entry `json:"entries"`
}

// Cache holds resolved metadata per item with a fixed TTL. The in-memory map
// is authoritative; the versioned slot is a write-through mirror so entries
// survive restarts.
type Cache struct {
	persisted *cache.Versioned[document]
	ttl       time.Duration

	mu      sync.Mutex
	entries map[string]entry
}

// NewCache creates the metadata cache and restores any valid persisted
// entries. Expired entries are dropped during restore.
func NewCache(ctx context.Context, store storage.Store, ttl time.Duration) *Cache {
	c := &Cache{
		persisted: cache.NewVersioned[document](store, documentKey, SchemaVersion, ttl),
		ttl:       ttl,
		entries:   make(map[string]entry),
	}

	if doc := c.persisted.Load(ctx); doc != nil {
		now := time.Now()
		for key, e := range doc.Entries {
			if !e.expired(now) {
				c.entries[key] = e
			}
		}
	}

	return c
}

// Get returns the cached metadata for key, removing the entry lazily if it
// has expired.
func (c *Cache) Get(key string) (*models.Metadata, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, exists := c.entries[key]
	if !exists {
		return nil, false
	}

	if e.expired(time.Now()) {
		delete(c.entries, key)
		return nil, false
	}

	value := e.Value
	return &value, true
}

// Put stores metadata under key and mirrors the full document to the
// persistent slot.
func (c *Cache) Put(ctx context.Context, key string, value *models.Metadata) {
	if value == nil {
		return
	}

	now := time.Now()

	c.mu.Lock()
	c.entries[key] = entry{
		Value:     *value,
		StoredAt:  now,
		ExpiresAt: now.Add(c.ttl),
	}
	doc := document{Entries: make(map[string]entry, len(c.entries))}
	for k, e := range c.entries {
		if !e.expired(now) {
			doc.Entries[k] = e
		}
	}
	c.mu.Unlock()

	c.persisted.Save(ctx, &doc)
}

// Len returns the number of live entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Clear drops all entries in memory and in the persistent slot.
func (c *Cache) Clear(ctx context.Context) {
	c.mu.Lock()
	c.entries = make(map[string]entry)
	c.mu.Unlock()

	c.persisted.Clear(ctx)
}
