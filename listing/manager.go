package listing

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"nftcache.app/cache"
	"nftcache.app/metrics"
	"nftcache.app/models"
	"nftcache.app/storage"
)

const snapshotKey = "nftcache:listings"

// Manager owns persistence of the listing snapshot. The scanning
// collaborator reads the last checkpoint through LoadSnapshot and persists
// the updated state through SaveSnapshot after applying new events.
type Manager struct {
	persisted *cache.Versioned[Snapshot]
	metrics   *metrics.CacheMetrics

	mu        sync.Mutex
	lastBlock *models.BigInt
}

// NewManager creates a listing snapshot manager with the given staleness
// bound.
func NewManager(store storage.Store, maxAge time.Duration, m *metrics.CacheMetrics) *Manager {
	return &Manager{
		persisted: cache.NewVersioned[Snapshot](store, snapshotKey, SchemaVersion, maxAge),
		metrics:   m,
	}
}

// InitEmpty creates a fresh snapshot starting at startBlock.
func (m *Manager) InitEmpty(startBlock *models.BigInt) *Snapshot {
	return NewSnapshot(startBlock)
}

// LoadSnapshot returns the persisted snapshot, or nil on any version,
// staleness or parse violation, forcing the collaborator to rescan from its
// start block. Never returns a half-valid snapshot.
func (m *Manager) LoadSnapshot(ctx context.Context) *Snapshot {
	snapshot := m.persisted.Load(ctx)
	if snapshot == nil {
		m.metrics.RecordMiss()
		return nil
	}

	m.metrics.RecordHit()
	m.rememberBlock(snapshot.LastScannedBlock)
	return snapshot
}

// SaveSnapshot persists the snapshot as one atomic document. The checkpoint
// is monotonically non-decreasing across saves; a regressing checkpoint is
// clamped to the highest block seen this session.
func (m *Manager) SaveSnapshot(ctx context.Context, snapshot *Snapshot) {
	if snapshot == nil {
		return
	}

	m.mu.Lock()
	if m.lastBlock != nil && snapshot.LastScannedBlock != nil &&
		snapshot.LastScannedBlock.Cmp(m.lastBlock) < 0 {
		slog.Warn("listing checkpoint regressed, clamping",
			"incoming", snapshot.LastScannedBlock.String(), "kept", m.lastBlock.String())
		snapshot.LastScannedBlock = m.lastBlock.Clone()
	}
	m.mu.Unlock()

	snapshot.UpdatedAt = time.Now()
	m.persisted.Save(ctx, snapshot)
	m.rememberBlock(snapshot.LastScannedBlock)
}

// Clear drops the persisted snapshot.
func (m *Manager) Clear(ctx context.Context) {
	m.persisted.Clear(ctx)
}

// Stats summarizes the persisted snapshot, or returns nil when no valid
// snapshot exists.
func (m *Manager) Stats(ctx context.Context) *models.ListingStats {
	snapshot := m.persisted.Load(ctx)
	if snapshot == nil {
		return nil
	}

	active, sold, canceled := snapshot.Counts()

	var sizeKB float64
	if data, err := json.Marshal(snapshot); err == nil {
		sizeKB = float64(len(data)) / 1024.0
	}

	return &models.ListingStats{
		ActiveCount:    active,
		SoldCount:      sold,
		CanceledCount:  canceled,
		LastBlock:      snapshot.LastScannedBlock.Clone(),
		UpdatedAt:      snapshot.UpdatedAt,
		AgeMs:          time.Since(snapshot.UpdatedAt).Milliseconds(),
		SizeEstimateKB: sizeKB,
	}
}

func (m *Manager) rememberBlock(block *models.BigInt) {
	if block == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lastBlock == nil || block.Cmp(m.lastBlock) > 0 {
		m.lastBlock = block.Clone()
	}
}
