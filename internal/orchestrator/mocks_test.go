package orchestrator

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ryanm101/gamefuse/internal/cache"
	"github.com/ryanm101/gamefuse/internal/game"
	"github.com/ryanm101/gamefuse/internal/health"
	"github.com/ryanm101/gamefuse/internal/provider"
)

// mockProvider is a metadata or external provider double.
type mockProvider struct {
	mock.Mock
	name game.ProviderName
}

func newMock(name game.ProviderName) *mockProvider {
	return &mockProvider{name: name}
}

func (m *mockProvider) Name() game.ProviderName { return m.name }

func (m *mockProvider) Search(ctx context.Context, query string, limit int) ([]game.Record, error) {
	args := m.Called(ctx, query, limit)
	recs, _ := args.Get(0).([]game.Record)
	return recs, args.Error(1)
}

func (m *mockProvider) Details(ctx context.Context, nativeID string) (*game.Record, error) {
	args := m.Called(ctx, nativeID)
	r, _ := args.Get(0).(*game.Record)
	return r, args.Error(1)
}

type mockPricing struct{ mock.Mock }

func (m *mockPricing) Name() game.ProviderName { return game.ProviderCheapShark }

func (m *mockPricing) Price(ctx context.Context, title string, steamAppID *int) (*game.PriceInfo, error) {
	args := m.Called(ctx, title, steamAppID)
	p, _ := args.Get(0).(*game.PriceInfo)
	return p, args.Error(1)
}

type mockPlaytime struct{ mock.Mock }

func (m *mockPlaytime) Name() game.ProviderName { return game.ProviderHLTB }

func (m *mockPlaytime) CompletionTime(ctx context.Context, title string) (*game.Playtime, error) {
	args := m.Called(ctx, title)
	p, _ := args.Get(0).(*game.Playtime)
	return p, args.Error(1)
}

type mockCritic struct{ mock.Mock }

func (m *mockCritic) Name() game.ProviderName { return game.ProviderMetacritic }

func (m *mockCritic) CriticScore(ctx context.Context, title string) (*game.CriticScore, error) {
	args := m.Called(ctx, title)
	c, _ := args.Get(0).(*game.CriticScore)
	return c, args.Error(1)
}

// fakeClock is a settable clock shared by tracker and cache.
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

// complete returns a record that needs no repair.
func complete(p game.ProviderName, nativeID, title string) game.Record {
	return game.Record{
		ID:          game.NewID(p, nativeID),
		Title:       title,
		Description: title + " is a game with a description long enough to count as complete.",
		Image:       "https://img.test/" + nativeID + ".jpg",
		Genres:      []string{"Action"},
		Provenance:  []game.ProviderName{p},
	}
}

// sparse returns a record with only an ID and a title.
func sparse(p game.ProviderName, nativeID, title string) game.Record {
	return game.Record{
		ID:         game.NewID(p, nativeID),
		Title:      title,
		Provenance: []game.ProviderName{p},
	}
}

func rateLimitedErr(p game.ProviderName) error {
	return &provider.Error{Provider: p, Op: "search", Kind: provider.KindRateLimited, StatusCode: 429, Err: provider.ErrRateLimited}
}

func networkErr(p game.ProviderName) error {
	return provider.NewError(p, "search", provider.KindNetwork, context.DeadlineExceeded)
}

type fixture struct {
	clock   *fakeClock
	tracker *health.Tracker
	cache   *cache.Cache
	rawg    *mockProvider
	igdb    *mockProvider
	gb      *mockProvider
}

// newFixture wires the three metadata mocks; adjust cfg before calling build.
func newFixture() *fixture {
	clock := newFakeClock()
	return &fixture{
		clock:   clock,
		tracker: health.NewTracker(game.MetadataOrder, health.WithClock(clock.Now)),
		cache:   cache.New(cache.DefaultConfig(), cache.WithClock(clock.Now)),
		rawg:    newMock(game.ProviderRAWG),
		igdb:    newMock(game.ProviderIGDB),
		gb:      newMock(game.ProviderGiantBomb),
	}
}

func (f *fixture) config() Config {
	return Config{
		Metadata: []provider.MetadataProvider{f.gb, f.rawg, f.igdb},
		Tracker:  f.tracker,
		Cache:    f.cache,
	}
}

func (f *fixture) build(t *testing.T, cfg Config) *Orchestrator {
	t.Helper()
	o, err := New(cfg)
	require.NoError(t, err)
	return o
}

func (f *fixture) assertExpectations(t *testing.T) {
	t.Helper()
	f.rawg.AssertExpectations(t)
	f.igdb.AssertExpectations(t)
	f.gb.AssertExpectations(t)
}

func errorFor(rs game.SearchResultSet, p game.ProviderName) *game.ProviderError {
	for i := range rs.Errors {
		if rs.Errors[i].Provider == p {
			return &rs.Errors[i]
		}
	}
	return nil
}

func titles(recs []game.Record) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.Title
	}
	return out
}

func hasDetailsError(d game.DetailsResult, typ, contains string) bool {
	for _, e := range d.Errors {
		if e.Type == typ && strings.Contains(e.Message, contains) {
			return true
		}
	}
	return false
}
