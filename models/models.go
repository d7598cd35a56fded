// Package models defines data structures used throughout the application
package models

import (
	"fmt"
	"strings"
	"time"
)

// Attribute is one trait of a token, order-preserving within Metadata.
type Attribute struct {
	TraitType string `json:"trait_type"`
	Value     string `json:"value"`
}

// Metadata represents the descriptive data of a single token. Immutable once
// resolved; keyed by (collection address, token id).
type Metadata struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Image       string      `json:"image"`
	Attributes  []Attribute `json:"attributes"`
	Collection  string      `json:"collection"`
	IsHidden    bool        `json:"is_hidden"`
}

// CachedListing represents the most recent known active state of one
// sellable item.
type CachedListing struct {
	NFTAddress  string  `json:"nft_address"`
	TokenID     string  `json:"token_id"`
	Price       *BigInt `json:"price"`
	Seller      string  `json:"seller"`
	BlockNumber *BigInt `json:"block_number"`
	TxHash      string  `json:"tx_hash"`
}

// ListingEventType classifies a marketplace event observed on chain.
type ListingEventType string

const (
	EventListed   ListingEventType = "listed"
	EventSold     ListingEventType = "sold"
	EventCanceled ListingEventType = "canceled"
)

// ListingEvent is one marketplace event supplied by the chain-scan
// collaborator, already in block order.
type ListingEvent struct {
	Type        ListingEventType `json:"type"`
	NFTAddress  string           `json:"nft_address"`
	TokenID     string           `json:"token_id"`
	Price       *BigInt          `json:"price,omitempty"`
	Seller      string           `json:"seller,omitempty"`
	BlockNumber *BigInt          `json:"block_number"`
	TxHash      string           `json:"tx_hash"`
}

// ListingKey builds the canonical cache key for one sellable item.
func ListingKey(nftAddress, tokenID string) string {
	return fmt.Sprintf("%s:%s", strings.ToLower(nftAddress), tokenID)
}

// MetadataKey builds the canonical cache key for one token's metadata.
func MetadataKey(contractAddress, tokenID string) string {
	return fmt.Sprintf("%s:%s", strings.ToLower(contractAddress), tokenID)
}

// MetadataRequest represents data required to resolve one token
type MetadataRequest struct {
	ContractAddress string `json:"contract_address" form:"contract" binding:"required"`
	TokenID         string `json:"token_id" form:"tokenId" binding:"required"`
}

// BatchMetadataRequest represents a batch resolution request
type BatchMetadataRequest struct {
	Items []MetadataRequest `json:"items" binding:"required,min=1,dive"`
}

// ListingStats summarizes the persisted listing snapshot for diagnostics.
type ListingStats struct {
	ActiveCount    int       `json:"active_count"`
	SoldCount      int       `json:"sold_count"`
	CanceledCount  int       `json:"canceled_count"`
	LastBlock      *BigInt   `json:"last_block"`
	UpdatedAt      time.Time `json:"updated_at"`
	AgeMs          int64     `json:"age_ms"`
	SizeEstimateKB float64   `json:"size_estimate_kb"`
}

// ErrorResponse represents an error message structure for API responses
type ErrorResponse struct {
	Error string `json:"error"`
}
