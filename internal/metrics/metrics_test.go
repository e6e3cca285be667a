package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordProviderCall(t *testing.T) {
	before := testutil.ToFloat64(ProviderRequests.WithLabelValues("test-provider", "success"))

	RecordProviderCall("test-provider", "success", time.Now().Add(-200*time.Millisecond))
	RecordProviderCall("test-provider", "success", time.Now())

	after := testutil.ToFloat64(ProviderRequests.WithLabelValues("test-provider", "success"))
	assert.Equal(t, before+2, after)
	assert.GreaterOrEqual(t, testutil.CollectAndCount(ProviderLatency), 1)
}

func TestStatusValue(t *testing.T) {
	assert.Equal(t, float64(0), StatusValue("available"))
	assert.Equal(t, float64(1), StatusValue("error"))
	assert.Equal(t, float64(2), StatusValue("rate_limited"))
	assert.Equal(t, float64(3), StatusValue("unavailable"))
	assert.Equal(t, float64(0), StatusValue("bogus"))
}

func TestCacheLookups_Counter(t *testing.T) {
	CacheLookups.WithLabelValues("search", "hit").Inc()
	CacheLookups.WithLabelValues("search", "miss").Inc()

	assert.GreaterOrEqual(t, testutil.ToFloat64(CacheLookups.WithLabelValues("search", "hit")), float64(1))
	assert.GreaterOrEqual(t, testutil.ToFloat64(CacheLookups.WithLabelValues("search", "miss")), float64(1))
}

func TestGauges(t *testing.T) {
	CacheEntries.Set(7)
	assert.Equal(t, float64(7), testutil.ToFloat64(CacheEntries))

	ProviderStatus.WithLabelValues("rawg").Set(StatusValue("rate_limited"))
	assert.Equal(t, float64(2), testutil.ToFloat64(ProviderStatus.WithLabelValues("rawg")))
}

func TestRecordSearchDuration(t *testing.T) {
	RecordSearchDuration("ok", time.Now().Add(-50*time.Millisecond))
	assert.GreaterOrEqual(t, testutil.CollectAndCount(SearchDuration), 1)
}
