package cache

import (
	"net/url"
	"sort"
	"strings"
)

// Kind selects the TTL class of an entry.
type Kind string

const (
	KindSearch  Kind = "search"
	KindDetails Kind = "details"
)

const keySep = "|"

// NormalizeQuery lowercases, trims and collapses internal whitespace.
func NormalizeQuery(q string) string {
	return strings.Join(strings.Fields(strings.ToLower(q)), " ")
}

// Key builds a deterministic cache key from a kind, a query and option flags.
// Flags are order-insensitive; empty flags are ignored. The query is escaped
// so a separator inside it cannot pose as a flag.
func Key(kind Kind, query string, flags ...string) string {
	fs := make([]string, 0, len(flags))
	for _, f := range flags {
		if f = strings.TrimSpace(f); f != "" {
			fs = append(fs, f)
		}
	}
	sort.Strings(fs)

	parts := append([]string{string(kind), url.QueryEscape(NormalizeQuery(query))}, fs...)
	return strings.Join(parts, keySep)
}

// Flag renders a named boolean option as a key flag, or "" when unset.
func Flag(name string, on bool) string {
	if !on {
		return ""
	}
	return name
}

func kindOf(key string) Kind {
	k, _, _ := strings.Cut(key, keySep)
	return Kind(k)
}
