package listing

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"estatehub/pkg/models"
)

const (
	SortNew       = "new"
	SortOld       = "old"
	SortPriceAsc  = "priceAsc"
	SortPriceDesc = "priceDesc"

	defaultLimit = 24
	maxLimit     = 100
)

// Query is the public list filter. A zero MinPrice or MaxPrice means no bound.
type Query struct {
	Q        string
	Type     string
	MinPrice float64
	MaxPrice float64
	Sort     string
	Limit    int
	Offset   int
}

// ParseQuery reads a Query from URL values. Bad numbers are ErrValidation.
func ParseQuery(get func(string) string) (Query, error) {
	q := Query{
		Q:     strings.TrimSpace(get("q")),
		Type:  strings.TrimSpace(get("type")),
		Sort:  strings.TrimSpace(get("sort")),
		Limit: defaultLimit,
	}

	var err error
	if q.MinPrice, err = floatParam(get, "minPrice"); err != nil {
		return q, err
	}
	if q.MaxPrice, err = floatParam(get, "maxPrice"); err != nil {
		return q, err
	}

	switch q.Sort {
	case "":
		q.Sort = SortNew
	case SortNew, SortOld, SortPriceAsc, SortPriceDesc:
	default:
		return q, fmt.Errorf("unknown sort %q: %w", q.Sort, models.ErrValidation)
	}

	if v := get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return q, fmt.Errorf("invalid limit: %w", models.ErrValidation)
		}
		q.Limit = min(n, maxLimit)
	}
	if v := get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return q, fmt.Errorf("invalid offset: %w", models.ErrValidation)
		}
		q.Offset = n
	}
	return q, nil
}

func floatParam(get func(string) string, key string) (float64, error) {
	v := strings.ReplaceAll(strings.TrimSpace(get(key)), ",", "")
	if v == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 {
		return 0, fmt.Errorf("invalid %s: %w", key, models.ErrValidation)
	}
	return f, nil
}

// Apply filters and sorts items. It does not page. Listings without a price
// fail any active price bound and sort last under both price orders.
func Apply(items []models.Listing, q Query) []models.Listing {
	needle := strings.ToLower(q.Q)
	out := make([]models.Listing, 0, len(items))

	for _, l := range items {
		if needle != "" {
			hay := strings.ToLower(l.Title + " " + l.Description)
			if !strings.Contains(hay, needle) {
				continue
			}
		}
		if q.Type != "" && l.Type != q.Type {
			continue
		}
		if q.MinPrice > 0 && (l.Price == nil || *l.Price < q.MinPrice) {
			continue
		}
		if q.MaxPrice > 0 && (l.Price == nil || *l.Price > q.MaxPrice) {
			continue
		}
		out = append(out, l)
	}

	switch q.Sort {
	case SortOld:
		sort.SliceStable(out, func(i, j int) bool {
			if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
				return out[i].CreatedAt.Before(out[j].CreatedAt)
			}
			return out[i].ID < out[j].ID
		})
	case SortPriceAsc, SortPriceDesc:
		desc := q.Sort == SortPriceDesc
		sort.SliceStable(out, func(i, j int) bool {
			a, b := out[i].Price, out[j].Price
			switch {
			case a == nil || b == nil:
				return a != nil && b == nil
			case *a == *b:
				return out[i].ID > out[j].ID
			case desc:
				return *a > *b
			default:
				return *a < *b
			}
		})
	default:
		sortNewest(out)
	}
	return out
}

// Page cuts one window out of items.
func Page(items []models.Listing, limit, offset int) []models.Listing {
	if offset >= len(items) {
		return []models.Listing{}
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}
