package assets

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"

	"estatehub/pkg/models"
)

const defaultContentType = "application/octet-stream"

// EncodeDataURL renders data as data:<mime>;base64,<payload>.
func EncodeDataURL(contentType string, data []byte) string {
	if contentType == "" {
		contentType = defaultContentType
	}
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// DecodeDataURL parses a data URL. Payloads without the ;base64 marker are
// treated as percent-encoded text.
func DecodeDataURL(s string) (string, []byte, error) {
	if !strings.HasPrefix(s, "data:") {
		return "", nil, fmt.Errorf("data url: missing scheme: %w", models.ErrValidation)
	}
	meta, payload, ok := strings.Cut(s[len("data:"):], ",")
	if !ok {
		return "", nil, fmt.Errorf("data url: missing payload: %w", models.ErrValidation)
	}

	isBase64 := false
	if strings.HasSuffix(strings.ToLower(meta), ";base64") {
		isBase64 = true
		meta = meta[:len(meta)-len(";base64")]
	}

	contentType, _, _ := strings.Cut(meta, ";")
	contentType = strings.TrimSpace(contentType)
	if contentType == "" {
		contentType = defaultContentType
	}

	if isBase64 {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return "", nil, fmt.Errorf("data url: decode base64: %w", models.ErrValidation)
		}
		return contentType, data, nil
	}

	text, err := url.PathUnescape(payload)
	if err != nil {
		return "", nil, fmt.Errorf("data url: unescape: %w", models.ErrValidation)
	}
	return contentType, []byte(text), nil
}
