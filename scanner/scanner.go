// Package scanner runs the periodic listing scan loop. Fetching chain logs
// is delegated to an EventSource implementation; this package only
// orchestrates checkpoint load, replay and persist.
package scanner

import (
	"context"
	"log/slog"
	"time"

	"nftcache.app/listing"
	"nftcache.app/models"
)

// EventSource supplies marketplace events observed after fromBlock, in block
// order, together with the new checkpoint.
type EventSource interface {
	FetchEvents(ctx context.Context, fromBlock *models.BigInt) ([]models.ListingEvent, *models.BigInt, error)
}

// Scanner advances the listing snapshot on a fixed interval.
type Scanner struct {
	source     EventSource
	listings   *listing.Manager
	interval   time.Duration
	startBlock *models.BigInt
	stopCh     chan struct{}
}

// NewScanner creates a scan loop over the given event source
func NewScanner(source EventSource, listings *listing.Manager, interval time.Duration, startBlock *models.BigInt) *Scanner {
	return &Scanner{
		source:     source,
		listings:   listings,
		interval:   interval,
		startBlock: startBlock,
		stopCh:     make(chan struct{}),
	}
}

// Start runs the scan loop until Stop is called. The first scan runs
// immediately.
func (s *Scanner) Start() {
	s.scanOnce()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.scanOnce()
		case <-s.stopCh:
			return
		}
	}
}

// Stop terminates the scan loop.
func (s *Scanner) Stop() {
	close(s.stopCh)
}

// scanOnce loads the checkpoint, pulls new events and persists the updated
// snapshot. A snapshot invalidated by version or staleness restarts the scan
// from the configured start block.
func (s *Scanner) scanOnce() {
	ctx := context.Background()

	snapshot := s.listings.LoadSnapshot(ctx)
	if snapshot == nil {
		snapshot = s.listings.InitEmpty(s.startBlock)
	}

	events, checkpoint, err := s.source.FetchEvents(ctx, snapshot.LastScannedBlock)
	if err != nil {
		slog.Warn("listing scan failed, keeping previous snapshot", "error", err,
			"from_block", snapshot.LastScannedBlock.String())
		return
	}

	if err := snapshot.ApplyEvents(events, checkpoint); err != nil {
		slog.Error("listing event replay failed", "error", err)
		return
	}

	s.listings.SaveSnapshot(ctx, snapshot)

	if len(events) > 0 {
		slog.Info("listing snapshot advanced", "events", len(events),
			"checkpoint", snapshot.LastScannedBlock.String())
	}
}
