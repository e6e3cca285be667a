package cheapshark

import (
	"context"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/ryanm101/gamefuse/internal/provider"
)

const testBase = "https://cheapshark.test/api/1.0"

func newTestProvider() (*Provider, *httpmock.MockTransport) {
	transport := httpmock.NewMockTransport()
	p := New(Config{
		BaseURL:    testBase,
		HTTPClient: &http.Client{Transport: transport},
		Limiter:    rate.NewLimiter(rate.Inf, 1),
	})
	return p, transport
}

const listBody = `[
	{"gameID":"612","steamAppID":"292030","cheapest":"7.99","cheapestDealID":"abc","external":"The Witcher 3: Wild Hunt","thumb":"https://cs.test/w3.jpg"},
	{"gameID":"613","steamAppID":null,"cheapest":"4.99","cheapestDealID":"def","external":"The Witcher 3: Wild Hunt - Blood and Wine","thumb":""}
]`

const infoBody = `{
	"info": {"title": "The Witcher 3: Wild Hunt", "steamAppID": "292030"},
	"cheapestPriceEver": {"price": "5.99", "date": 1543},
	"deals": [
		{"storeID":"1","dealID":"d1","price":"9.99","retailPrice":"39.99"},
		{"storeID":"7","dealID":"d2","price":"7.99","retailPrice":"39.99"},
		{"storeID":"8","dealID":"d3","price":"12.50","retailPrice":"49.99"}
	]
}`

func TestSearch(t *testing.T) {
	p, transport := newTestProvider()
	transport.RegisterResponderWithQuery("GET", testBase+"/games",
		map[string]string{"title": "witcher 3", "limit": "5"},
		httpmock.NewStringResponder(http.StatusOK, listBody))

	records, err := p.Search(context.Background(), "witcher 3", 5)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "cheapshark_612", records[0].ID)
	assert.Equal(t, 292030, *records[0].SteamAppID)
	assert.Nil(t, records[1].SteamAppID)
}

func TestPrice_ByTitle(t *testing.T) {
	p, transport := newTestProvider()
	transport.RegisterResponderWithQuery("GET", testBase+"/games",
		map[string]string{"title": "The Witcher 3: Wild Hunt", "limit": "10"},
		httpmock.NewStringResponder(http.StatusOK, listBody))
	transport.RegisterResponderWithQuery("GET", testBase+"/games",
		map[string]string{"id": "612"},
		httpmock.NewStringResponder(http.StatusOK, infoBody))

	info, err := p.Price(context.Background(), "The Witcher 3: Wild Hunt", nil)
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, 7.99, info.CurrentLowest)
	assert.Equal(t, 49.99, info.Retail)
	assert.Equal(t, 5.99, info.HistoricalLow)
	assert.Equal(t, 3, info.DealCount)
	assert.Equal(t, "USD", info.Currency)
	assert.Equal(t, "https://www.cheapshark.com/redirect?dealID=d2", info.StoreURL)
}

func TestPrice_BySteamAppID(t *testing.T) {
	p, transport := newTestProvider()
	transport.RegisterResponderWithQuery("GET", testBase+"/games",
		map[string]string{"steamAppID": "292030"},
		httpmock.NewStringResponder(http.StatusOK,
			`[{"gameID":"612","steamAppID":"292030","cheapest":"7.99","cheapestDealID":"abc","external":"The Witcher 3: Wild Hunt"}]`))
	transport.RegisterResponderWithQuery("GET", testBase+"/games",
		map[string]string{"id": "612"},
		httpmock.NewStringResponder(http.StatusOK, `{"info":{"title":"The Witcher 3: Wild Hunt"},"cheapestPriceEver":{"price":"5.99"},"deals":[]}`))

	appID := 292030
	info, err := p.Price(context.Background(), "Witcher 3", &appID)
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, 7.99, info.CurrentLowest, "falls back to the listing price without deals")
	assert.Equal(t, "https://www.cheapshark.com/redirect?dealID=abc", info.StoreURL)
	assert.Zero(t, info.DealCount)
}

func TestPrice_NoMatch(t *testing.T) {
	p, transport := newTestProvider()
	transport.RegisterResponder("GET", `=~^https://cheapshark\.test/api/1\.0/games`,
		httpmock.NewStringResponder(http.StatusOK, `[]`))

	info, err := p.Price(context.Background(), "zzzz", nil)
	require.NoError(t, err)
	assert.Nil(t, info)
}

func TestPrice_RateLimited(t *testing.T) {
	p, transport := newTestProvider()
	transport.RegisterResponder("GET", `=~^https://cheapshark\.test/api/1\.0/games`,
		httpmock.NewStringResponder(http.StatusTooManyRequests, ``))

	_, err := p.Price(context.Background(), "halo", nil)
	require.Error(t, err)
	assert.Equal(t, provider.KindRateLimited, provider.Classify(err))
}

func TestParsePrice(t *testing.T) {
	assert.Equal(t, 1.5, parsePrice(" 1.50 "))
	assert.Zero(t, parsePrice("n/a"))
	assert.Zero(t, parsePrice("-3"))
}
