package health

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ryanm101/gamefuse/internal/game"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestNewTracker_AllAvailable(t *testing.T) {
	tr := NewTracker(game.MetadataOrder)

	for _, p := range game.MetadataOrder {
		assert.True(t, tr.IsAvailable(p), "provider %s", p)
		assert.Equal(t, StatusAvailable, tr.Get(p).Status)
	}
	assert.Equal(t, game.MetadataOrder, tr.Providers())
}

func TestTracker_RateLimitedScenario(t *testing.T) {
	clock := newFakeClock()
	tr := NewTracker(game.MetadataOrder, WithClock(clock.Now))

	tr.RecordRateLimited(game.ProviderRAWG, 0)
	st := tr.Get(game.ProviderRAWG)
	assert.Equal(t, StatusRateLimited, st.Status)
	assert.Equal(t, clock.Now().Add(60*time.Second), st.NextEligibleAt)

	clock.Advance(10 * time.Second)
	assert.False(t, tr.IsAvailable(game.ProviderRAWG), "skipped 10s later")
	assert.False(t, tr.Admit(game.ProviderRAWG))

	clock.Advance(60 * time.Second)
	assert.True(t, tr.IsAvailable(game.ProviderRAWG), "included again 70s later")
	assert.True(t, tr.Admit(game.ProviderRAWG))
}

func TestTracker_ProviderSpecificWindows(t *testing.T) {
	clock := newFakeClock()
	tr := NewTracker(append(game.MetadataOrder, game.ExternalOrder...), WithClock(clock.Now))

	tr.RecordRateLimited(game.ProviderGiantBomb, 0)
	tr.RecordRateLimited(game.ProviderCheapShark, 0)

	clock.Advance(2 * time.Second)
	assert.True(t, tr.IsAvailable(game.ProviderCheapShark))
	assert.False(t, tr.IsAvailable(game.ProviderGiantBomb))

	clock.Advance(time.Hour)
	assert.True(t, tr.IsAvailable(game.ProviderGiantBomb))
}

func TestTracker_RetryAfterLongerThanWindow(t *testing.T) {
	clock := newFakeClock()
	tr := NewTracker(game.ExternalOrder, WithClock(clock.Now))

	tr.RecordRateLimited(game.ProviderCheapShark, 30*time.Second)
	clock.Advance(5 * time.Second)
	assert.False(t, tr.IsAvailable(game.ProviderCheapShark))

	clock.Advance(26 * time.Second)
	assert.True(t, tr.IsAvailable(game.ProviderCheapShark))
}

func TestTracker_ErrorIsAdvisory(t *testing.T) {
	tr := NewTracker(game.MetadataOrder)

	tr.RecordError(game.ProviderIGDB, errors.New("connection reset"))
	st := tr.Get(game.ProviderIGDB)
	assert.Equal(t, StatusError, st.Status)
	assert.Equal(t, "connection reset", st.LastError)
	assert.True(t, tr.IsAvailable(game.ProviderIGDB))

	tr.RecordSuccess(game.ProviderIGDB)
	st = tr.Get(game.ProviderIGDB)
	assert.Equal(t, StatusAvailable, st.Status)
	assert.Empty(t, st.LastError)
}

func TestTracker_MarkUnavailable(t *testing.T) {
	tr := NewTracker(game.MetadataOrder)

	tr.MarkUnavailable(game.ProviderGiantBomb, "no api key")
	assert.False(t, tr.IsAvailable(game.ProviderGiantBomb))

	// Success and reset do not revive an administratively disabled provider.
	tr.RecordSuccess(game.ProviderGiantBomb)
	tr.Reset()
	assert.False(t, tr.IsAvailable(game.ProviderGiantBomb))
	assert.Equal(t, "no api key", tr.Get(game.ProviderGiantBomb).LastError)
}

func TestTracker_Reset(t *testing.T) {
	clock := newFakeClock()
	tr := NewTracker(game.MetadataOrder, WithClock(clock.Now))

	tr.RecordRateLimited(game.ProviderRAWG, 0)
	tr.RecordError(game.ProviderIGDB, errors.New("boom"))
	tr.Reset()

	for _, st := range tr.Snapshot() {
		assert.Equal(t, StatusAvailable, st.Status, "provider %s", st.Name)
		assert.True(t, st.NextEligibleAt.IsZero())
		assert.Equal(t, 0, st.Window.RequestCount)
	}
}

func TestTracker_AdmitQuota(t *testing.T) {
	clock := newFakeClock()
	tr := NewTracker([]game.ProviderName{game.ProviderHLTB},
		WithClock(clock.Now),
		WithLimits(map[game.ProviderName]Limit{
			game.ProviderHLTB: {Window: 2 * time.Second, MaxRequests: 2},
		}),
	)

	assert.True(t, tr.Admit(game.ProviderHLTB))
	assert.True(t, tr.Admit(game.ProviderHLTB))
	assert.False(t, tr.Admit(game.ProviderHLTB), "quota exhausted")

	st := tr.Get(game.ProviderHLTB)
	assert.Equal(t, StatusRateLimited, st.Status)
	assert.Equal(t, 2, st.Window.RequestCount)
	assert.Equal(t, st.Window.WindowStart.Add(2*time.Second), st.NextEligibleAt)

	clock.Advance(2 * time.Second)
	assert.True(t, tr.Admit(game.ProviderHLTB), "new window")
	assert.Equal(t, 1, tr.Get(game.ProviderHLTB).Window.RequestCount)
}

func TestTracker_AdmitConcurrent(t *testing.T) {
	tr := NewTracker([]game.ProviderName{game.ProviderRAWG},
		WithLimits(map[game.ProviderName]Limit{
			game.ProviderRAWG: {Window: time.Hour, MaxRequests: 50},
		}),
	)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		admitted int
	)
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if tr.Admit(game.ProviderRAWG) {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, admitted)
	assert.Equal(t, 50, tr.Get(game.ProviderRAWG).Window.RequestCount)
}

func TestTracker_UnknownProviderRegisteredLazily(t *testing.T) {
	tr := NewTracker(nil)

	require.True(t, tr.IsAvailable(game.ProviderMetacritic))
	tr.RecordRateLimited(game.ProviderMetacritic, 0)
	assert.False(t, tr.IsAvailable(game.ProviderMetacritic))
	assert.Equal(t, []game.ProviderName{game.ProviderMetacritic}, tr.Providers())
}

func TestWindow_Take(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	w := newWindow(start, Limit{Window: time.Minute, MaxRequests: 1})

	assert.True(t, w.take(start))
	assert.False(t, w.take(start.Add(30*time.Second)))
	assert.True(t, w.take(start.Add(time.Minute)))
	assert.Equal(t, start.Add(time.Minute), w.WindowStart)

	unlimited := newWindow(start, Limit{Window: time.Minute})
	for i := 0; i < 100; i++ {
		assert.True(t, unlimited.take(start))
	}
	assert.Equal(t, 100, unlimited.RequestCount)
}
