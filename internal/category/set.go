// Package category owns the editable list of listing type labels.
package category

import (
	"strings"
)

// Defaults is used whenever the stored set is empty.
var Defaults = []string{"House", "Land", "Condo", "Townhouse", "Commercial"}

// Normalize trims labels, drops blanks and later duplicates (case-insensitive)
// and keeps first-seen order. An empty result falls back to Defaults.
func Normalize(labels []string) []string {
	out := make([]string, 0, len(labels))
	seen := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		k := strings.ToLower(l)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, l)
	}
	if len(out) == 0 {
		return append([]string(nil), Defaults...)
	}
	return out
}

// Contains reports whether label is in set, ignoring case.
func Contains(set []string, label string) bool {
	label = strings.TrimSpace(label)
	for _, s := range set {
		if strings.EqualFold(s, label) {
			return true
		}
	}
	return false
}
