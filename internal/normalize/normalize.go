// Package normalize turns loosely typed listing JSON (imports, seeds, remote
// query results) into canonical models.Listing values.
package normalize

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"estatehub/pkg/models"
)

// Decode parses raw JSON bytes and normalizes them. It only fails when the
// bytes are not JSON at all.
func Decode(data []byte, categories []string) ([]models.Listing, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode listings: %w", models.ErrValidation)
	}
	return Normalize(raw, categories), nil
}

// Normalize accepts a decoded JSON value: either a sequence of listing
// objects or an object carrying one under "items". Any other shape yields an
// empty result. Entries that are not objects are treated as empty objects.
func Normalize(raw any, categories []string) []models.Listing {
	entries := entriesOf(raw)
	out := make([]models.Listing, 0, len(entries))

	defaultType := ""
	if len(categories) > 0 {
		defaultType = categories[0]
	}

	for i, e := range entries {
		m, _ := e.(map[string]any)
		out = append(out, normalizeOne(m, i, defaultType))
	}
	return out
}

func entriesOf(raw any) []any {
	switch v := raw.(type) {
	case []any:
		return v
	case map[string]any:
		if items, ok := v["items"].([]any); ok {
			return items
		}
	}
	return nil
}

func normalizeOne(m map[string]any, i int, defaultType string) models.Listing {
	l := models.Listing{
		Title:           text(m, "title"),
		Description:     text(m, "description", "desc"),
		Type:            text(m, "type", "category"),
		PriceUnit:       text(m, "priceUnit", "price_unit", "unit"),
		FacebookURL:     text(m, "facebookUrl", "facebook_url", "facebook", "fb"),
		ImageReferences: imageRefs(m),
	}

	if id, ok := number(first(m, "id")); ok && id >= 1 && id < math.MaxInt64 {
		l.ID = int64(id)
	} else {
		l.ID = int64(i + 1)
	}

	if l.Type == "" {
		l.Type = defaultType
	}

	if p, ok := number(first(m, "price")); ok && p >= 0 {
		l.Price = &p
	}

	lat, latOK := number(first(m, "latitude", "lat"))
	lng, lngOK := number(first(m, "longitude", "lng", "lon"))
	if latOK && lngOK {
		l.Latitude = &lat
		l.Longitude = &lng
	}

	l.CreatedAt = timestamp(m, "createdAt", "created_at")
	l.UpdatedAt = timestamp(m, "updatedAt", "updated_at")

	return l
}

// timestamp reads RFC 3339 strings or epoch milliseconds. Anything else is
// the zero time.
func timestamp(m map[string]any, keys ...string) time.Time {
	switch v := first(m, keys...).(type) {
	case string:
		if t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(v)); err == nil {
			return t.UTC()
		}
	case float64:
		if v > 0 && !math.IsInf(v, 0) {
			return time.UnixMilli(int64(v)).UTC()
		}
	}
	return time.Time{}
}

// first returns the value of the first present key.
func first(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func text(m map[string]any, keys ...string) string {
	switch v := first(m, keys...).(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

// number coerces JSON numbers and numeric strings ("1,250,000" included).
// Blank, absent and non-finite values report false.
func number(v any) (float64, bool) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(x), ",", "")
		if s == "" {
			return 0, false
		}
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = n
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func imageRefs(m map[string]any) []models.ImageRef {
	refs := []models.ImageRef{}

	switch v := first(m, "imageReferences", "images", "imageKeys").(type) {
	case []any:
		for _, e := range v {
			if ref, ok := imageRef(e); ok {
				refs = append(refs, ref)
			}
		}
	case nil:
		// single-image records from the first storage version
		if key := text(m, "imageKey"); key != "" {
			refs = append(refs, models.ImageRef{ID: key})
		}
	}

	return models.ClampImages(refs)
}

func imageRef(v any) (models.ImageRef, bool) {
	switch x := v.(type) {
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return models.ImageRef{}, false
		}
		return models.ImageRef{ID: s}, true
	case map[string]any:
		ref := models.ImageRef{
			ID:  text(x, "id", "key"),
			URL: text(x, "url"),
		}
		if ref.ID == "" && ref.URL == "" {
			return models.ImageRef{}, false
		}
		return ref, true
	}
	return models.ImageRef{}, false
}

// AssignIDs makes ids positive and unique in encounter order: an id that is
// not positive or already taken is incremented until it is free. The slice is
// modified in place and returned.
func AssignIDs(items []models.Listing) []models.Listing {
	used := make(map[int64]struct{}, len(items))
	for i := range items {
		id := items[i].ID
		if id <= 0 {
			id = 1
		}
		for {
			if _, taken := used[id]; !taken {
				break
			}
			id++
		}
		used[id] = struct{}{}
		items[i].ID = id
	}
	return items
}

// NextID returns the id a new listing gets: one past the largest in use.
func NextID(items []models.Listing) int64 {
	var max int64
	for _, it := range items {
		if it.ID > max {
			max = it.ID
		}
	}
	return max + 1
}
