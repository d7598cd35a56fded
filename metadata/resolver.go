// Package metadata resolves per-token metadata through three tiers: a
// persisted TTL cache, per-key in-flight coalescing, and a short batching
// window that groups near-simultaneous requests into one fetch wave.
package metadata

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"nftcache.app/errors"
	"nftcache.app/metrics"
	"nftcache.app/models"
)

// call is one in-flight resolution; every caller for the same key waits on
// the same call.
type call struct {
	done   chan struct{}
	result *models.Metadata
	err    error
}

type pendingRequest struct {
	key             string
	contractAddress string
	tokenID         string
}

// Resolver deduplicates and batches metadata lookups. At most one remote
// operation is outstanding per key at any instant; requests arriving within
// one batching window are dispatched together, one fetch per unique key.
type Resolver struct {
	fetcher     Fetcher
	cache       *Cache
	metrics     *metrics.CacheMetrics
	batchWindow time.Duration

	mu         sync.Mutex
	inflight   map[string]*call
	queue      []pendingRequest
	timerArmed bool
}

// NewResolver creates a resolver over the given fetcher and cache
func NewResolver(fetcher Fetcher, cache *Cache, m *metrics.CacheMetrics, batchWindow time.Duration) *Resolver {
	return &Resolver{
		fetcher:     fetcher,
		cache:       cache,
		metrics:     m,
		batchWindow: batchWindow,
		inflight:    make(map[string]*call),
	}
}

// Resolve returns the metadata for one token, from cache when possible. A
// failed fetch surfaces only to the callers waiting on that key.
func (r *Resolver) Resolve(ctx context.Context, contractAddress, tokenID string) (*models.Metadata, error) {
	if contractAddress == "" {
		return nil, errors.NewValidationError("contract address cannot be empty")
	}
	if tokenID == "" {
		return nil, errors.NewValidationError("token id cannot be empty")
	}

	key := models.MetadataKey(contractAddress, tokenID)

	if meta, found := r.cache.Get(key); found {
		r.metrics.RecordHit()
		return meta, nil
	}
	r.metrics.RecordMiss()

	c := r.attach(key, contractAddress, tokenID)

	select {
	case <-c.done:
		return c.result, c.err
	case <-ctx.Done():
		// The shared fetch keeps running for the other waiters.
		return nil, errors.NewFetchError("metadata resolution canceled", ctx.Err())
	}
}

// ResolveMany resolves many tokens concurrently, reusing the coalescing and
// batching machinery. One result is returned per request, order preserved.
func (r *Resolver) ResolveMany(ctx context.Context, items []models.MetadataRequest) []Result {
	results := make([]Result, len(items))

	var wg sync.WaitGroup
	for i, item := range items {
		wg.Add(1)
		go func(i int, item models.MetadataRequest) {
			defer wg.Done()
			meta, err := r.Resolve(ctx, item.ContractAddress, item.TokenID)
			results[i] = Result{Request: item, Metadata: meta, Err: err}
		}(i, item)
	}
	wg.Wait()

	return results
}

// Result pairs one batch request with its outcome.
type Result struct {
	Request  models.MetadataRequest
	Metadata *models.Metadata
	Err      error
}

// ResolveInline decodes a self-contained payload, caching the result under
// the inline key namespace so it never collides with remote-fetch entries.
func (r *Resolver) ResolveInline(ctx context.Context, contractAddress, tokenID, payload string) (*models.Metadata, error) {
	if contractAddress == "" {
		return nil, errors.NewValidationError("contract address cannot be empty")
	}
	if tokenID == "" {
		return nil, errors.NewValidationError("token id cannot be empty")
	}

	key := inlineKeyPrefix + models.MetadataKey(contractAddress, tokenID)

	if meta, found := r.cache.Get(key); found {
		r.metrics.RecordHit()
		return meta, nil
	}
	r.metrics.RecordMiss()

	meta, err := DecodeInline(payload)
	if err != nil {
		return nil, err
	}

	r.cache.Put(ctx, key, meta)
	return meta, nil
}

// attach joins an existing in-flight call for key or queues a new request
// and arms the batch timer if needed.
func (r *Resolver) attach(key, contractAddress, tokenID string) *call {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, exists := r.inflight[key]; exists {
		r.metrics.RecordCoalesced()
		return c
	}

	c := &call{done: make(chan struct{})}
	r.inflight[key] = c
	r.queue = append(r.queue, pendingRequest{
		key:             key,
		contractAddress: contractAddress,
		tokenID:         tokenID,
	})

	if !r.timerArmed {
		r.timerArmed = true
		time.AfterFunc(r.batchWindow, r.dispatch)
	}

	return c
}

// dispatch drains the queue when the batch timer fires and issues one
// concurrent fetch per unique key. Requests arriving after the drain start a
// new window.
func (r *Resolver) dispatch() {
	r.mu.Lock()
	drained := r.queue
	r.queue = nil
	r.timerArmed = false

	unique := make(map[string]pendingRequest, len(drained))
	for _, p := range drained {
		if _, seen := unique[p.key]; !seen {
			unique[p.key] = p
		}
	}
	r.mu.Unlock()

	if len(unique) == 0 {
		return
	}

	r.metrics.RecordBatchSize(len(unique))
	slog.Debug("dispatching metadata batch", "queued", len(drained), "unique", len(unique))

	for _, p := range unique {
		go r.fetchOne(p)
	}
}

// fetchOne performs the remote fetch for one key and releases every caller
// waiting on it.
func (r *Resolver) fetchOne(p pendingRequest) {
	ctx := context.Background()

	start := time.Now()
	meta, err := r.fetcher.Fetch(ctx, p.contractAddress, p.tokenID)
	r.metrics.RecordLatency("fetch", time.Since(start).Seconds())

	if err != nil {
		slog.Warn("metadata fetch failed", "key", p.key, "error", err)
		r.metrics.RecordFetch("error")
	} else {
		r.cache.Put(ctx, p.key, meta)
		r.metrics.RecordFetch("success")
	}

	r.mu.Lock()
	c := r.inflight[p.key]
	delete(r.inflight, p.key)
	r.mu.Unlock()

	if c == nil {
		return
	}
	c.result = meta
	c.err = err
	close(c.done)
}
