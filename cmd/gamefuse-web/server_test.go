package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ryanm101/gamefuse/internal/game"
	"github.com/ryanm101/gamefuse/internal/health"
	"github.com/ryanm101/gamefuse/internal/orchestrator"
)

type mockEngine struct{ mock.Mock }

func (m *mockEngine) SearchGamesWithFallback(ctx context.Context, query string, opts orchestrator.SearchOptions) (game.SearchResultSet, error) {
	args := m.Called(query, opts)
	return args.Get(0).(game.SearchResultSet), args.Error(1)
}

func (m *mockEngine) GetGameDetailsWithFallback(ctx context.Context, id string, opts orchestrator.DetailsOptions) (game.DetailsResult, error) {
	args := m.Called(id, opts)
	return args.Get(0).(game.DetailsResult), args.Error(1)
}

func (m *mockEngine) Statistics() orchestrator.Stats {
	return m.Called().Get(0).(orchestrator.Stats)
}

func (m *mockEngine) ClearCache(ctx context.Context) error {
	return m.Called().Error(0)
}

func (m *mockEngine) ResetRateLimits() {
	m.Called()
}

type fakePinger struct{ err error }

func (p fakePinger) PingContext(context.Context) error { return p.err }

func serve(t *testing.T, s *Server, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestSearch(t *testing.T) {
	e := &mockEngine{}
	e.On("SearchGamesWithFallback", "witcher 3", orchestrator.SearchOptions{Limit: 5, IncludeExternal: true}).
		Return(game.SearchResultSet{
			Query:   "witcher 3",
			Results: []game.Record{{ID: "rawg_3328", Title: "The Witcher 3: Wild Hunt", Provenance: []game.ProviderName{game.ProviderRAWG}}},
			Outcome: game.OutcomeOK,
		}, nil).Once()
	s := NewServer(e, nil)

	rec := serve(t, s, http.MethodGet, "/api/search?q=witcher+3&limit=5&external=true")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var rs game.SearchResultSet
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rs))
	assert.Equal(t, "rawg_3328", rs.Results[0].ID)
	assert.Equal(t, game.OutcomeOK, rs.Outcome)
	e.AssertExpectations(t)
}

func TestSearch_BadRequests(t *testing.T) {
	e := &mockEngine{}
	e.On("SearchGamesWithFallback", "", orchestrator.SearchOptions{}).
		Return(game.SearchResultSet{}, orchestrator.ErrInvalidRequest).Once()
	s := NewServer(e, nil)

	for _, target := range []string{"/api/search", "/api/search?q=x&limit=-1", "/api/search?q=x&all=maybe"} {
		rec := serve(t, s, http.MethodGet, target)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
	e.AssertExpectations(t)
}

func TestSearch_MethodNotAllowed(t *testing.T) {
	s := NewServer(&mockEngine{}, nil)
	rec := serve(t, s, http.MethodPost, "/api/search?q=x")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestDetails(t *testing.T) {
	e := &mockEngine{}
	want := orchestrator.DetailsOptions{IncludeExternal: true, IncludePricing: true, IncludeCompletionTime: false, IncludeCriticScore: true, Title: "Hades"}
	e.On("GetGameDetailsWithFallback", "rawg_1", want).Return(game.DetailsResult{
		GameData:     &game.Record{ID: "rawg_1", Title: "Hades", Provenance: []game.ProviderName{game.ProviderRAWG}},
		ExternalData: map[string]any{},
		Sources:      []string{"rawg"},
		Errors:       []game.DetailsError{},
	}, nil).Once()
	s := NewServer(e, nil)

	rec := serve(t, s, http.MethodGet, "/api/details?id=rawg_1&title=Hades&playtime=false")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"gameData":{"id":"rawg_1"`)
	e.AssertExpectations(t)
}

func TestDetails_NotFound(t *testing.T) {
	e := &mockEngine{}
	e.On("GetGameDetailsWithFallback", "igdb_404", mock.Anything).Return(game.DetailsResult{
		Errors: []game.DetailsError{{Type: "metadata", Message: "game not found: igdb_404"}},
	}, nil).Once()
	s := NewServer(e, nil)

	rec := serve(t, s, http.MethodGet, "/api/details?id=igdb_404")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "game not found")
}

func TestStats(t *testing.T) {
	e := &mockEngine{}
	e.On("Statistics").Return(orchestrator.Stats{
		TotalRequests: 3,
		ByProvider:    map[game.ProviderName]orchestrator.ProviderStats{game.ProviderRAWG: {Requests: 3, Status: health.StatusAvailable}},
	})
	s := NewServer(e, nil)

	rec := serve(t, s, http.MethodGet, "/api/stats")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"totalRequests":3`)
	assert.Contains(t, rec.Body.String(), `"rawg":{"requests":3`)
}

func TestCacheClearAndReset(t *testing.T) {
	e := &mockEngine{}
	e.On("ClearCache").Return(nil).Once()
	e.On("ClearCache").Return(errors.New("disk full")).Once()
	e.On("ResetRateLimits").Once()
	s := NewServer(e, nil)

	assert.Equal(t, http.StatusOK, serve(t, s, http.MethodPost, "/api/cache/clear").Code)
	rec := serve(t, s, http.MethodPost, "/api/cache/clear")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "disk full")

	assert.Equal(t, http.StatusOK, serve(t, s, http.MethodPost, "/api/ratelimits/reset").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, serve(t, s, http.MethodGet, "/api/cache/clear").Code)
	e.AssertExpectations(t)
}

func TestHealth(t *testing.T) {
	stats := orchestrator.Stats{ByProvider: map[game.ProviderName]orchestrator.ProviderStats{
		game.ProviderRAWG:      {Status: health.StatusAvailable},
		game.ProviderIGDB:      {Status: health.StatusError},
		game.ProviderGiantBomb: {Status: health.StatusUnavailable},
	}}
	e := &mockEngine{}
	e.On("Statistics").Return(stats)

	rec := serve(t, NewServer(e, fakePinger{}), http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy","store":"ok","availableProviders":2}`, rec.Body.String())

	rec = serve(t, NewServer(e, fakePinger{err: errors.New("database is locked")}), http.MethodGet, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "database is locked")
}

func TestMetrics(t *testing.T) {
	rec := serve(t, NewServer(&mockEngine{}, nil), http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "go_goroutines"))
}
