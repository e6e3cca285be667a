package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ryanm101/gamefuse/internal/game"
	"github.com/ryanm101/gamefuse/internal/health"
	"github.com/ryanm101/gamefuse/internal/metrics"
)

// ProviderStats summarizes one provider.
type ProviderStats struct {
	Requests       int64         `json:"requests"`
	Successes      int64         `json:"successes"`
	Failures       int64         `json:"failures"`
	RateLimited    int64         `json:"rateLimited"`
	Skipped        int64         `json:"skipped"`
	Status         health.Status `json:"status"`
	NextEligibleAt time.Time     `json:"nextEligibleAt,omitzero"`
	LastError      string        `json:"lastError,omitempty"`
}

// Stats is a point-in-time view of the orchestrator.
type Stats struct {
	TotalRequests      int64                               `json:"totalRequests"`
	SuccessfulRequests int64                               `json:"successfulRequests"`
	FailedRequests     int64                               `json:"failedRequests"`
	CacheHits          int64                               `json:"cacheHits"`
	CacheMisses        int64                               `json:"cacheMisses"`
	CacheEntries       int                                 `json:"cacheEntries"`
	ByProvider         map[game.ProviderName]ProviderStats `json:"byProvider"`
}

// counters holds request and per-provider call counts.
type counters struct {
	mu         sync.Mutex
	total      int64
	successful int64
	failed     int64
	providers  map[game.ProviderName]*ProviderStats
}

func newCounters() *counters {
	return &counters{providers: make(map[game.ProviderName]*ProviderStats)}
}

func (c *counters) provider(p game.ProviderName) *ProviderStats {
	s, ok := c.providers[p]
	if !ok {
		s = &ProviderStats{}
		c.providers[p] = s
	}
	return s
}

func (c *counters) request() {
	c.mu.Lock()
	c.total++
	c.mu.Unlock()
}

func (c *counters) finish(ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ok {
		c.successful++
	} else {
		c.failed++
	}
}

func (c *counters) success(p game.ProviderName) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.provider(p)
	s.Requests++
	s.Successes++
}

func (c *counters) failure(p game.ProviderName) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.provider(p)
	s.Requests++
	s.Failures++
}

func (c *counters) rateLimited(p game.ProviderName) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.provider(p)
	s.Requests++
	s.Failures++
	s.RateLimited++
}

func (c *counters) skipped(p game.ProviderName) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.provider(p).Skipped++
}

// Statistics returns request counters, cache counters and provider health.
func (o *Orchestrator) Statistics() Stats {
	hits, misses := o.cache.Stats()

	o.stats.mu.Lock()
	st := Stats{
		TotalRequests:      o.stats.total,
		SuccessfulRequests: o.stats.successful,
		FailedRequests:     o.stats.failed,
		ByProvider:         make(map[game.ProviderName]ProviderStats, len(o.stats.providers)),
	}
	for p, s := range o.stats.providers {
		st.ByProvider[p] = *s
	}
	o.stats.mu.Unlock()

	st.CacheHits = hits
	st.CacheMisses = misses
	st.CacheEntries = o.cache.Len()

	for _, h := range o.tracker.Snapshot() {
		ps := st.ByProvider[h.Name]
		ps.Status = h.Status
		ps.NextEligibleAt = h.NextEligibleAt
		ps.LastError = h.LastError
		st.ByProvider[h.Name] = ps
	}
	return st
}

// ClearCache drops every cached result and stored description.
func (o *Orchestrator) ClearCache(ctx context.Context) error {
	o.cache.Clear()
	if o.store != nil {
		if err := o.store.Clear(ctx); err != nil {
			return fmt.Errorf("failed to clear description store: %w", err)
		}
	}
	o.log.Info("cache cleared")
	return nil
}

// ResetRateLimits makes every provider except unavailable ones eligible again.
func (o *Orchestrator) ResetRateLimits() {
	o.tracker.Reset()
	for _, h := range o.tracker.Snapshot() {
		metrics.ProviderStatus.WithLabelValues(string(h.Name)).Set(metrics.StatusValue(string(h.Status)))
	}
	o.log.Info("rate limits reset")
}
