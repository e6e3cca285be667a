// Package metrics defines the Prometheus collectors exported by gamefuse.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Provider calls
	ProviderRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gamefuse_provider_requests_total",
		Help: "Provider calls by outcome.",
	}, []string{"provider", "outcome"}) // outcome: success, no_results, rate_limited, network, malformed, skipped

	ProviderLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gamefuse_provider_latency_seconds",
		Help:    "Latency of provider calls in seconds.",
		Buckets: []float64{.05, .1, .25, .5, 1, 1.5, 2.5, 5},
	}, []string{"provider"})

	ProviderStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "gamefuse_provider_status",
		Help: "Provider health: 0 available, 1 error, 2 rate limited, 3 unavailable.",
	}, []string{"provider"})

	// Cache
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gamefuse_cache_lookups_total",
		Help: "Cache lookups by entry kind and result.",
	}, []string{"kind", "result"}) // result: hit, miss, expired

	CacheEntries = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gamefuse_cache_entries",
		Help: "Entries currently held by the result cache, expired included.",
	})

	// Requests
	SearchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gamefuse_search_duration_seconds",
		Help:    "Duration of searches in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})

	DetailsDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "gamefuse_details_duration_seconds",
		Help:    "Duration of details lookups in seconds.",
		Buckets: prometheus.DefBuckets,
	})
)

// StatusValue maps a health status name onto the ProviderStatus gauge value.
func StatusValue(status string) float64 {
	switch status {
	case "error":
		return 1
	case "rate_limited":
		return 2
	case "unavailable":
		return 3
	default:
		return 0
	}
}

// RecordProviderCall records the outcome and latency of one provider call.
func RecordProviderCall(provider, outcome string, start time.Time) {
	ProviderRequests.WithLabelValues(provider, outcome).Inc()
	ProviderLatency.WithLabelValues(provider).Observe(time.Since(start).Seconds())
}

// RecordSearchDuration records the time taken by a search.
func RecordSearchDuration(outcome string, start time.Time) {
	SearchDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
}
