package metadata

import (
	"encoding/base64"
	"encoding/json"
	"net/url"
	"strings"

	"nftcache.app/errors"
	"nftcache.app/models"
)

// Key namespace for inline-decoded entries, distinct from remote-fetch keys.
const inlineKeyPrefix = "inline:"

const (
	base64JSONPrefix = "data:application/json;base64,"
	plainJSONPrefix  = "data:application/json,"
	utf8JSONPrefix   = "data:application/json;utf8,"
)

// DecodeInline decodes a self-contained data-URI payload into metadata. Some
// upstream payloads ship with a missing closing quote right before the
// attribute array close; decodeInlineJSON applies a targeted repair for that
// one defect before giving up.
func DecodeInline(payload string) (*models.Metadata, error) {
	if payload == "" {
		return nil, errors.NewValidationError("inline payload cannot be empty")
	}

	raw, err := inlineJSONBody(payload)
	if err != nil {
		return nil, err
	}

	meta, err := decodeInlineJSON(raw)
	if err != nil {
		return nil, err
	}

	return meta, nil
}

func inlineJSONBody(payload string) (string, error) {
	switch {
	case strings.HasPrefix(payload, base64JSONPrefix):
		decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(payload, base64JSONPrefix))
		if err != nil {
			return "", errors.NewDecodeError("invalid base64 in inline payload", err)
		}
		return string(decoded), nil
	case strings.HasPrefix(payload, utf8JSONPrefix):
		return strings.TrimPrefix(payload, utf8JSONPrefix), nil
	case strings.HasPrefix(payload, plainJSONPrefix):
		body := strings.TrimPrefix(payload, plainJSONPrefix)
		if unescaped, err := url.QueryUnescape(body); err == nil {
			return unescaped, nil
		}
		return body, nil
	default:
		return "", errors.NewDecodeError("inline payload is not a JSON data URI", nil)
	}
}

func decodeInlineJSON(raw string) (*models.Metadata, error) {
	var meta models.Metadata
	if err := json.Unmarshal([]byte(raw), &meta); err == nil {
		return &meta, nil
	}

	repaired := repairMissingQuote(raw)
	if err := json.Unmarshal([]byte(repaired), &meta); err != nil {
		return nil, errors.NewDecodeError("inline payload is not valid JSON", err)
	}
	return &meta, nil
}

// repairMissingQuote fixes the one malformation pattern observed upstream: a
// string value whose closing quote is dropped immediately before the `}]}`
// that closes the attribute array and the document. The repair is
// deliberately narrow; anything else still fails parsing.
func repairMissingQuote(raw string) string {
	idx := strings.LastIndex(raw, "}]}")
	if idx <= 0 {
		return raw
	}
	if raw[idx-1] == '"' {
		return raw
	}
	return raw[:idx] + `"` + raw[idx:]
}
