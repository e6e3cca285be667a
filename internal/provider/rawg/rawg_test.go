package rawg

import (
	"context"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/ryanm101/gamefuse/internal/game"
	"github.com/ryanm101/gamefuse/internal/provider"
)

const testBase = "https://rawg.test/api"

func newTestProvider(t *testing.T) (*Provider, *httpmock.MockTransport) {
	t.Helper()
	transport := httpmock.NewMockTransport()
	p, err := New(Config{
		BaseURL:    testBase,
		APIKey:     "secret",
		HTTPClient: &http.Client{Transport: transport},
		Limiter:    rate.NewLimiter(rate.Inf, 1),
	})
	require.NoError(t, err)
	return p, transport
}

const searchBody = `{
  "count": 2,
  "results": [
    {
      "id": 3328,
      "name": "The Witcher 3: Wild Hunt",
      "released": "2015-05-18",
      "background_image": "https://media.rawg.io/w3.jpg",
      "rating": 4.66,
      "metacritic": 92,
      "genres": [{"name": "Action"}, {"name": "RPG"}],
      "platforms": [{"platform": {"name": "PC"}}, {"platform": {"name": "PlayStation 4"}}],
      "short_screenshots": [{"image": "https://media.rawg.io/s1.jpg"}]
    },
    {"id": 0, "name": "broken"}
  ]
}`

func TestNew_RequiresKey(t *testing.T) {
	_, err := New(Config{})
	assert.ErrorIs(t, err, provider.ErrNoCredentials)
}

func TestSearch(t *testing.T) {
	p, transport := newTestProvider(t)
	transport.RegisterResponderWithQuery("GET", testBase+"/games",
		map[string]string{"key": "secret", "search": "witcher 3", "page_size": "5"},
		httpmock.NewStringResponder(http.StatusOK, searchBody))

	records, err := p.Search(context.Background(), "witcher 3", 5)
	require.NoError(t, err)
	require.Len(t, records, 1)

	r := records[0]
	assert.Equal(t, "rawg_3328", r.ID)
	assert.Equal(t, "The Witcher 3: Wild Hunt", r.Title)
	assert.Equal(t, []string{"Action", "RPG"}, r.Genres)
	assert.Equal(t, []string{"PC", "PlayStation 4"}, r.Platforms)
	assert.Equal(t, []string{"https://media.rawg.io/s1.jpg"}, r.Screenshots)
	require.NotNil(t, r.Rating)
	assert.InDelta(t, 93.2, *r.Rating, 0.001)
	assert.Equal(t, 92, *r.MetacriticScore)
	assert.Equal(t, "2015-05-18", r.ReleaseDate.Format("2006-01-02"))
	assert.Equal(t, []game.ProviderName{game.ProviderRAWG}, r.Provenance)
}

func TestSearch_Empty(t *testing.T) {
	p, transport := newTestProvider(t)
	transport.RegisterResponder("GET", `=~^https://rawg\.test/api/games`,
		httpmock.NewStringResponder(http.StatusOK, `{"count":0,"results":[]}`))

	records, err := p.Search(context.Background(), "zzzz", 10)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestSearch_RateLimited(t *testing.T) {
	p, transport := newTestProvider(t)
	transport.RegisterResponder("GET", `=~^https://rawg\.test/api/games`,
		httpmock.NewStringResponder(http.StatusTooManyRequests, `{"error":"too many requests"}`))

	_, err := p.Search(context.Background(), "halo", 10)
	require.Error(t, err)
	assert.Equal(t, provider.KindRateLimited, provider.Classify(err))
}

func TestDetails(t *testing.T) {
	p, transport := newTestProvider(t)
	transport.RegisterResponder("GET", `=~^https://rawg\.test/api/games/3328`,
		httpmock.NewStringResponder(http.StatusOK, `{
			"id": 3328,
			"name": "The Witcher 3: Wild Hunt",
			"description": "<p>The third game in a series.</p><p>Geralt returns.</p>",
			"developers": [{"name": "CD PROJEKT RED"}],
			"publishers": [{"name": "CD PROJEKT"}],
			"stores": [
				{"url": "https://www.gog.com/game/the_witcher_3", "store": {"slug": "gog"}},
				{"url": "https://store.steampowered.com/app/292030/", "store": {"slug": "steam"}}
			]
		}`))

	r, err := p.Details(context.Background(), "3328")
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, "CD PROJEKT RED", r.Developer)
	assert.Equal(t, "CD PROJEKT", r.Publisher)
	assert.Contains(t, r.Description, "The third game in a series.")
	assert.NotContains(t, r.Description, "<p>")
	require.NotNil(t, r.SteamAppID)
	assert.Equal(t, 292030, *r.SteamAppID)
}

func TestDetails_NotFound(t *testing.T) {
	p, transport := newTestProvider(t)
	transport.RegisterResponder("GET", `=~^https://rawg\.test/api/games/999`,
		httpmock.NewStringResponder(http.StatusNotFound, `{"detail":"Not found."}`))

	r, err := p.Details(context.Background(), "999")
	require.NoError(t, err)
	assert.Nil(t, r)
}

func TestSteamAppID(t *testing.T) {
	assert.Nil(t, steamAppID("https://store.steampowered.com/"))
	assert.Nil(t, steamAppID("https://store.steampowered.com/app/abc/"))
	assert.Equal(t, 10, *steamAppID("https://store.steampowered.com/app/10"))
}
