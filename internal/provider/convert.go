package provider

import (
	"net/url"
	"strings"
	"time"
)

// ParseDate parses a YYYY-MM-DD date, returning nil for empty or bad input.
func ParseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if len(s) > 10 {
		s = s[:10]
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil
	}
	return &t
}

// JoinURL appends path to base and encodes params as the query string.
func JoinURL(base, path string, params url.Values) string {
	u := strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return u
}

// Names collects non-empty, de-duplicated names in order.
func Names[T any](items []T, name func(T) string) []string {
	var out []string
	seen := make(map[string]bool, len(items))
	for _, it := range items {
		n := strings.TrimSpace(name(it))
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

// ClampLimit bounds limit to [1, upper].
func ClampLimit(limit, upper int) int {
	return min(max(limit, 1), upper)
}
