package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-playground/validator/v10"
	"nftcache.app/config"
	"nftcache.app/errors"
	"nftcache.app/models"
)

// Fetcher retrieves metadata for one token from a remote source.
type Fetcher interface {
	Fetch(ctx context.Context, contractAddress, tokenID string) (*models.Metadata, error)
}

// remoteResponse is the strict shape expected from the metadata endpoint.
// Anything not matching is rejected as a fetch failure rather than trusted
// field by field.
type remoteResponse struct {
	Raw struct {
		Metadata struct {
			Name        string             `json:"name" validate:"required"`
			Description string             `json:"description"`
			Image       string             `json:"image"`
			Attributes  []models.Attribute `json:"attributes"`
			Collection  string             `json:"collection"`
			IsHidden    bool               `json:"is_hidden"`
		} `json:"metadata"`
	} `json:"raw"`
	Image struct {
		CachedURL string `json:"cachedUrl" validate:"required,url"`
	} `json:"image"`
}

// HTTPFetcher implements Fetcher against an Alchemy-style getNFTMetadata
// endpoint.
type HTTPFetcher struct {
	baseURL  string
	apiKey   string
	client   *http.Client
	validate *validator.Validate
}

// NewHTTPFetcher creates a fetcher for the configured metadata endpoint
func NewHTTPFetcher(cfg *config.MetadataConfig) *HTTPFetcher {
	return &HTTPFetcher{
		baseURL:  cfg.BaseURL,
		apiKey:   cfg.APIKey,
		client:   &http.Client{Timeout: time.Duration(cfg.FetchTimeoutSeconds) * time.Second},
		validate: validator.New(),
	}
}

// Fetch retrieves metadata for one token. A non-2xx status, a timeout, or a
// body failing schema validation is a fetch error for this token only.
func (f *HTTPFetcher) Fetch(ctx context.Context, contractAddress, tokenID string) (*models.Metadata, error) {
	if contractAddress == "" {
		return nil, errors.NewValidationError("contract address cannot be empty")
	}
	if tokenID == "" {
		return nil, errors.NewValidationError("token id cannot be empty")
	}

	query := url.Values{}
	query.Set("contractAddress", contractAddress)
	query.Set("tokenId", tokenID)
	if f.apiKey != "" {
		query.Set("key", f.apiKey)
	}
	requestURL := fmt.Sprintf("%s/getNFTMetadata?%s", f.baseURL, query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, errors.NewFetchError("failed to build metadata request", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, errors.NewFetchError("failed to get metadata", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			// Ignore close error as it's not critical for the main operation
			_ = closeErr
		}
	}()

	if resp.StatusCode == http.StatusNotFound {
		return nil, errors.NewNotFoundError("token not found")
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, errors.NewFetchError(fmt.Sprintf("metadata API returned status code %d", resp.StatusCode), nil)
	}

	var result remoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, errors.NewFetchError("failed to decode metadata response", err)
	}

	if err := f.validate.Struct(&result); err != nil {
		return nil, errors.NewFetchError("metadata response missing required fields", err)
	}

	raw := result.Raw.Metadata
	return &models.Metadata{
		Name:        raw.Name,
		Description: raw.Description,
		Image:       result.Image.CachedURL,
		Attributes:  raw.Attributes,
		Collection:  raw.Collection,
		IsHidden:    raw.IsHidden,
	}, nil
}
