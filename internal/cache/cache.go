// Package cache is the in-memory result cache with per-kind TTLs and lazy expiry.
package cache

import (
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/ryanm101/gamefuse/internal/metrics"
)

// Default TTLs.
const (
	DefaultSearchTTL  = 10 * time.Minute
	DefaultDetailsTTL = 24 * time.Hour
)

// Config holds per-kind TTLs.
type Config struct {
	SearchTTL  time.Duration
	DetailsTTL time.Duration
}

// DefaultConfig returns the default TTLs.
func DefaultConfig() Config {
	return Config{SearchTTL: DefaultSearchTTL, DetailsTTL: DefaultDetailsTTL}
}

type entry struct {
	value    any
	storedAt time.Time
}

// Cache stores search and details payloads. Expired entries are treated as
// misses but stay resident until overwritten or cleared.
type Cache struct {
	items  *gocache.Cache
	ttls   map[Kind]time.Duration
	now    func() time.Time
	hits   atomic.Int64
	misses atomic.Int64
}

// Option customizes a Cache.
type Option func(*Cache)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New creates a cache. Zero TTLs fall back to the defaults.
func New(cfg Config, opts ...Option) *Cache {
	if cfg.SearchTTL <= 0 {
		cfg.SearchTTL = DefaultSearchTTL
	}
	if cfg.DetailsTTL <= 0 {
		cfg.DetailsTTL = DefaultDetailsTTL
	}

	c := &Cache{
		// No default expiration and no janitor: expiry is checked on read.
		items: gocache.New(gocache.NoExpiration, 0),
		ttls: map[Kind]time.Duration{
			KindSearch:  cfg.SearchTTL,
			KindDetails: cfg.DetailsTTL,
		},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TTL returns the lifetime of entries of kind k.
func (c *Cache) TTL(k Kind) time.Duration {
	if ttl, ok := c.ttls[k]; ok {
		return ttl
	}
	return DefaultSearchTTL
}

// Get returns the value stored under key if it is still fresh.
func (c *Cache) Get(key string) (any, bool) {
	kind := kindOf(key)

	raw, ok := c.items.Get(key)
	if !ok {
		c.miss(kind, "miss")
		return nil, false
	}
	e := raw.(entry)
	if c.now().Sub(e.storedAt) >= c.TTL(kind) {
		c.miss(kind, "expired")
		return nil, false
	}

	c.hits.Add(1)
	metrics.CacheLookups.WithLabelValues(string(kind), "hit").Inc()
	return e.value, true
}

func (c *Cache) miss(kind Kind, result string) {
	c.misses.Add(1)
	metrics.CacheLookups.WithLabelValues(string(kind), result).Inc()
}

// Put stores value under key, superseding any previous entry.
func (c *Cache) Put(key string, value any) {
	c.items.Set(key, entry{value: value, storedAt: c.now()}, gocache.NoExpiration)
	metrics.CacheEntries.Set(float64(c.items.ItemCount()))
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.items.Flush()
	metrics.CacheEntries.Set(0)
}

// Len returns the number of resident entries, expired ones included.
func (c *Cache) Len() int {
	return c.items.ItemCount()
}

// Stats returns lifetime hit and miss counts.
func (c *Cache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}
