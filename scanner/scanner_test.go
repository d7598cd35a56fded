package scanner

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nftcache.app/errors"
	"nftcache.app/listing"
	"nftcache.app/metrics"
	"nftcache.app/models"
	"nftcache.app/storage"
)

// fakeEventSource replays scripted event batches, recording the checkpoints
// it was asked to scan from.
type fakeEventSource struct {
	mu         sync.Mutex
	batches    [][]models.ListingEvent
	checkpoint int64
	fromBlocks []string
	err        error
}

func (f *fakeEventSource) FetchEvents(ctx context.Context, fromBlock *models.BigInt) ([]models.ListingEvent, *models.BigInt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.fromBlocks = append(f.fromBlocks, fromBlock.String())

	if f.err != nil {
		return nil, nil, f.err
	}

	if len(f.batches) == 0 {
		return nil, models.NewBigInt(f.checkpoint), nil
	}

	batch := f.batches[0]
	f.batches = f.batches[1:]
	f.checkpoint += 10
	return batch, models.NewBigInt(f.checkpoint), nil
}

func newTestManager(t *testing.T) *listing.Manager {
	t.Helper()
	return listing.NewManager(storage.NewMemoryStore(), 5*time.Minute, metrics.NewCacheMetrics("scanner-test"))
}

func TestScannerAdvancesSnapshot(t *testing.T) {
	manager := newTestManager(t)
	source := &fakeEventSource{
		checkpoint: 100,
		batches: [][]models.ListingEvent{
			{{
				Type: models.EventListed, NFTAddress: "0xNFT", TokenID: "1",
				Price: models.NewBigInt(5), Seller: "0xseller",
				BlockNumber: models.NewBigInt(105), TxHash: "0xtx",
			}},
		},
	}

	s := NewScanner(source, manager, time.Hour, models.NewBigInt(100))
	s.scanOnce()

	snapshot := manager.LoadSnapshot(context.Background())
	require.NotNil(t, snapshot)
	assert.Len(t, snapshot.ActiveListings, 1)
	assert.Equal(t, "110", snapshot.LastScannedBlock.String())

	// The first scan starts from the configured start block.
	assert.Equal(t, []string{"100"}, source.fromBlocks)
}

func TestScannerResumesFromCheckpoint(t *testing.T) {
	manager := newTestManager(t)
	source := &fakeEventSource{checkpoint: 100, batches: [][]models.ListingEvent{{}, {}}}

	s := NewScanner(source, manager, time.Hour, models.NewBigInt(0))
	s.scanOnce()
	s.scanOnce()

	// The second scan picks up where the first one persisted.
	assert.Equal(t, []string{"0", "110"}, source.fromBlocks)
}

func TestScannerKeepsSnapshotOnSourceError(t *testing.T) {
	manager := newTestManager(t)
	ctx := context.Background()

	seeded := manager.InitEmpty(models.NewBigInt(100))
	require.NoError(t, seeded.Apply(models.ListingEvent{
		Type: models.EventListed, NFTAddress: "0xNFT", TokenID: "1",
		Price: models.NewBigInt(5), BlockNumber: models.NewBigInt(105), TxHash: "0xtx",
	}))
	manager.SaveSnapshot(ctx, seeded)

	source := &fakeEventSource{err: errors.NewFetchError("rpc down", nil)}
	s := NewScanner(source, manager, time.Hour, models.NewBigInt(100))
	s.scanOnce()

	snapshot := manager.LoadSnapshot(ctx)
	require.NotNil(t, snapshot)
	assert.Len(t, snapshot.ActiveListings, 1)
}

func TestScannerStartStop(t *testing.T) {
	manager := newTestManager(t)
	source := &fakeEventSource{checkpoint: 100}

	s := NewScanner(source, manager, 10*time.Millisecond, models.NewBigInt(0))

	done := make(chan struct{})
	go func() {
		s.Start()
		close(done)
	}()

	time.Sleep(35 * time.Millisecond)
	s.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scanner did not stop")
	}

	source.mu.Lock()
	scans := len(source.fromBlocks)
	source.mu.Unlock()
	assert.GreaterOrEqual(t, scans, 2)
}
