// Package listing maintains a materialized view of marketplace listing
// state, rebuilt incrementally from chain events so repeat visits never
// rescan from genesis.
package listing

import (
	"encoding/json"
	"sort"
	"time"

	"nftcache.app/errors"
	"nftcache.app/models"
)

// SchemaVersion invalidates persisted snapshots wholesale when the layout
// changes. Bump on any change to Snapshot or its collections.
const SchemaVersion = 3

// StringSet is a set of listing keys serialized as a sorted JSON array.
type StringSet map[string]struct{}

func (s StringSet) Add(key string)    { s[key] = struct{}{} }
func (s StringSet) Remove(key string) { delete(s, key) }

func (s StringSet) Contains(key string) bool {
	_, ok := s[key]
	return ok
}

func (s StringSet) MarshalJSON() ([]byte, error) {
	keys := make([]string, 0, len(s))
	for key := range s {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return json.Marshal(keys)
}

func (s *StringSet) UnmarshalJSON(data []byte) error {
	var keys []string
	if err := json.Unmarshal(data, &keys); err != nil {
		return err
	}
	*s = make(StringSet, len(keys))
	for _, key := range keys {
		(*s)[key] = struct{}{}
	}
	return nil
}

// Snapshot is the persisted listing state. A key appears in at most one of
// ActiveListings, SoldItems and CanceledItems at a time.
type Snapshot struct {
	ActiveListings   map[string]models.CachedListing `json:"active_listings"`
	SoldItems        StringSet                       `json:"sold_items"`
	CanceledItems    StringSet                       `json:"canceled_items"`
	LastScannedBlock *models.BigInt                  `json:"last_scanned_block"`
	UpdatedAt        time.Time                       `json:"updated_at"`
}

// NewSnapshot creates an empty snapshot starting at the given block.
func NewSnapshot(startBlock *models.BigInt) *Snapshot {
	return &Snapshot{
		ActiveListings:   make(map[string]models.CachedListing),
		SoldItems:        make(StringSet),
		CanceledItems:    make(StringSet),
		LastScannedBlock: startBlock.Clone(),
		UpdatedAt:        time.Now(),
	}
}

// Apply incorporates one event. Events are trusted to arrive in block order;
// a Listed event supersedes any prior terminal classification for the key.
func (s *Snapshot) Apply(event models.ListingEvent) error {
	if event.NFTAddress == "" || event.TokenID == "" {
		return errors.NewValidationError("listing event missing nft address or token id")
	}

	key := models.ListingKey(event.NFTAddress, event.TokenID)

	switch event.Type {
	case models.EventListed:
		s.SoldItems.Remove(key)
		s.CanceledItems.Remove(key)
		s.ActiveListings[key] = models.CachedListing{
			NFTAddress:  event.NFTAddress,
			TokenID:     event.TokenID,
			Price:       event.Price.Clone(),
			Seller:      event.Seller,
			BlockNumber: event.BlockNumber.Clone(),
			TxHash:      event.TxHash,
		}
	case models.EventSold:
		delete(s.ActiveListings, key)
		s.CanceledItems.Remove(key)
		s.SoldItems.Add(key)
	case models.EventCanceled:
		delete(s.ActiveListings, key)
		s.SoldItems.Remove(key)
		s.CanceledItems.Add(key)
	default:
		return errors.NewValidationError("unknown listing event type: " + string(event.Type))
	}

	return nil
}

// ApplyEvents incorporates a batch of events and advances the checkpoint.
// The checkpoint never moves backwards.
func (s *Snapshot) ApplyEvents(events []models.ListingEvent, newCheckpoint *models.BigInt) error {
	for _, event := range events {
		if err := s.Apply(event); err != nil {
			return err
		}
	}

	if newCheckpoint != nil && newCheckpoint.Cmp(s.LastScannedBlock) > 0 {
		s.LastScannedBlock = newCheckpoint.Clone()
	}

	return nil
}

// Counts returns the sizes of the three classifications.
func (s *Snapshot) Counts() (active, sold, canceled int) {
	return len(s.ActiveListings), len(s.SoldItems), len(s.CanceledItems)
}
