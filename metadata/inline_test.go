package metadata

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "nftcache.app/errors"
)

func TestDecodeInline(t *testing.T) {
	t.Run("Base64Payload", func(t *testing.T) {
		body := `{"name":"Neon Drifter","description":"Gen 1","image":"ipfs://QmXyz","attributes":[{"trait_type":"series","value":"Arcade Surge"}]}`
		payload := base64JSONPrefix + base64.StdEncoding.EncodeToString([]byte(body))

		meta, err := DecodeInline(payload)
		require.NoError(t, err)
		assert.Equal(t, "Neon Drifter", meta.Name)
		assert.Equal(t, "ipfs://QmXyz", meta.Image)
		require.Len(t, meta.Attributes, 1)
		assert.Equal(t, "series", meta.Attributes[0].TraitType)
		assert.Equal(t, "Arcade Surge", meta.Attributes[0].Value)
	})

	t.Run("PlainPayload", func(t *testing.T) {
		payload := plainJSONPrefix + `{"name":"Plain","attributes":[]}`

		meta, err := DecodeInline(payload)
		require.NoError(t, err)
		assert.Equal(t, "Plain", meta.Name)
	})

	t.Run("EmbeddedImagePayload", func(t *testing.T) {
		body := `{"name":"Self Contained","image":"data:image/svg+xml;base64,PHN2Zz48L3N2Zz4=","attributes":[]}`
		payload := base64JSONPrefix + base64.StdEncoding.EncodeToString([]byte(body))

		meta, err := DecodeInline(payload)
		require.NoError(t, err)
		assert.Contains(t, meta.Image, "data:image/svg+xml")
	})

	t.Run("MissingQuoteRepair", func(t *testing.T) {
		// Known upstream defect: closing quote dropped right before `}]}`.
		body := `{"name":"Neon Drifter","attributes":[{"trait_type":"series","value":"Arcade Surge}]}`
		payload := base64JSONPrefix + base64.StdEncoding.EncodeToString([]byte(body))

		meta, err := DecodeInline(payload)
		require.NoError(t, err)
		assert.Equal(t, "Neon Drifter", meta.Name)
		require.Len(t, meta.Attributes, 1)
		assert.Equal(t, "Arcade Surge", meta.Attributes[0].Value)
	})

	t.Run("UnrepairableIsDecodeError", func(t *testing.T) {
		payload := base64JSONPrefix + base64.StdEncoding.EncodeToString([]byte(`{"name": truncated`))

		meta, err := DecodeInline(payload)
		assert.Nil(t, meta)
		assert.True(t, apperrors.IsDecodeError(err))
	})

	t.Run("InvalidBase64", func(t *testing.T) {
		_, err := DecodeInline(base64JSONPrefix + "!!!not-base64!!!")
		assert.True(t, apperrors.IsDecodeError(err))
	})

	t.Run("NotADataURI", func(t *testing.T) {
		_, err := DecodeInline("https://example.com/metadata.json")
		assert.True(t, apperrors.IsDecodeError(err))
	})

	t.Run("Empty", func(t *testing.T) {
		_, err := DecodeInline("")
		assert.True(t, apperrors.IsValidationError(err))
	})
}

func TestRepairMissingQuote(t *testing.T) {
	t.Run("InsertsQuote", func(t *testing.T) {
		assert.Equal(t, `{"a":[{"v":"x"}]}`, repairMissingQuote(`{"a":[{"v":"x}]}`))
	})

	t.Run("WellFormedUntouched", func(t *testing.T) {
		raw := `{"a":[{"v":"x"}]}`
		assert.Equal(t, raw, repairMissingQuote(raw))
	})

	t.Run("NoClosePatternUntouched", func(t *testing.T) {
		raw := `{"a":1}`
		assert.Equal(t, raw, repairMissingQuote(raw))
	})
}
