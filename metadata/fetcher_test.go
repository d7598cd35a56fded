package metadata

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nftcache.app/config"
	apperrors "nftcache.app/errors"
)

func fetcherConfig(baseURL string) *config.MetadataConfig {
	return &config.MetadataConfig{
		BaseURL:             baseURL,
		APIKey:              "test-api-key",
		CacheTTLMinutes:     60,
		BatchWindowMs:       50,
		FetchTimeoutSeconds: 2,
	}
}

func TestHTTPFetcher_Fetch(t *testing.T) {
	t.Run("ValidResponse", func(t *testing.T) {
		mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Contains(t, r.URL.Path, "/getNFTMetadata")
			assert.Equal(t, "0xabc", r.URL.Query().Get("contractAddress"))
			assert.Equal(t, "42", r.URL.Query().Get("tokenId"))
			assert.Equal(t, "test-api-key", r.URL.Query().Get("key"))

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, err := w.Write([]byte(`{
				"raw": {
					"metadata": {
						"name": "Neon Drifter #42",
						"description": "Gen 1 drop",
						"image": "ipfs://QmXyz",
						"attributes": [{"trait_type": "series", "value": "Arcade Surge"}],
						"collection": "Neon Drifters"
					}
				},
				"image": {"cachedUrl": "https://cdn.example.com/42.png"}
			}`))
			require.NoError(t, err)
		}))
		defer mockServer.Close()

		fetcher := NewHTTPFetcher(fetcherConfig(mockServer.URL))
		meta, err := fetcher.Fetch(context.Background(), "0xabc", "42")

		require.NoError(t, err)
		assert.Equal(t, "Neon Drifter #42", meta.Name)
		// The resolved cached URL wins over the raw image pointer.
		assert.Equal(t, "https://cdn.example.com/42.png", meta.Image)
		assert.Equal(t, "Neon Drifters", meta.Collection)
		require.Len(t, meta.Attributes, 1)
		assert.Equal(t, "Arcade Surge", meta.Attributes[0].Value)
	})

	t.Run("EmptyContractAddress", func(t *testing.T) {
		fetcher := NewHTTPFetcher(fetcherConfig("https://api.example.com"))
		meta, err := fetcher.Fetch(context.Background(), "", "42")

		assert.Nil(t, meta)
		assert.True(t, apperrors.IsValidationError(err))
	})

	t.Run("TokenNotFound", func(t *testing.T) {
		mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer mockServer.Close()

		fetcher := NewHTTPFetcher(fetcherConfig(mockServer.URL))
		_, err := fetcher.Fetch(context.Background(), "0xabc", "999")

		assert.True(t, apperrors.IsNotFoundError(err))
	})

	t.Run("ServerError", func(t *testing.T) {
		mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer mockServer.Close()

		fetcher := NewHTTPFetcher(fetcherConfig(mockServer.URL))
		_, err := fetcher.Fetch(context.Background(), "0xabc", "42")

		assert.True(t, apperrors.IsFetchError(err))
	})

	t.Run("InvalidJSONResponse", func(t *testing.T) {
		mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, err := w.Write([]byte(`invalid json`))
			require.NoError(t, err)
		}))
		defer mockServer.Close()

		fetcher := NewHTTPFetcher(fetcherConfig(mockServer.URL))
		_, err := fetcher.Fetch(context.Background(), "0xabc", "42")

		assert.True(t, apperrors.IsFetchError(err))

		var appErr *apperrors.AppError
		assert.True(t, errors.As(err, &appErr))
		assert.Contains(t, appErr.Message, "failed to decode")
	})

	t.Run("MissingRequiredFields", func(t *testing.T) {
		mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, err := w.Write([]byte(`{"raw": {"metadata": {"description": "no name"}}, "image": {}}`))
			require.NoError(t, err)
		}))
		defer mockServer.Close()

		fetcher := NewHTTPFetcher(fetcherConfig(mockServer.URL))
		_, err := fetcher.Fetch(context.Background(), "0xabc", "42")

		assert.True(t, apperrors.IsFetchError(err))

		var appErr *apperrors.AppError
		assert.True(t, errors.As(err, &appErr))
		assert.Contains(t, appErr.Message, "missing required fields")
	})

	t.Run("Unreachable", func(t *testing.T) {
		fetcher := NewHTTPFetcher(fetcherConfig("http://127.0.0.1:1"))
		_, err := fetcher.Fetch(context.Background(), "0xabc", "42")

		assert.True(t, apperrors.IsFetchError(err))
	})
}
