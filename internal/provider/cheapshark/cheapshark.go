// Package cheapshark adapts the CheapShark deals API for pricing.
package cheapshark

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/ryanm101/gamefuse/internal/game"
	"github.com/ryanm101/gamefuse/internal/provider"
)

// DefaultBaseURL is the public CheapShark API root.
const DefaultBaseURL = "https://www.cheapshark.com/api/1.0"

const (
	maxLimit    = 60
	currency    = "USD"
	redirectURL = "https://www.cheapshark.com/redirect?dealID="
)

// Config configures the adapter. CheapShark needs no credentials.
type Config struct {
	BaseURL    string
	HTTPClient *http.Client
	Limiter    *rate.Limiter // nil means one request/s
}

// Provider is the CheapShark adapter.
type Provider struct {
	baseURL string
	http    *provider.HTTPClient
}

// New creates the adapter.
func New(cfg Config) *Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Limiter == nil {
		cfg.Limiter = rate.NewLimiter(rate.Every(time.Second), 1)
	}
	return &Provider{
		baseURL: cfg.BaseURL,
		http:    provider.NewHTTPClient(game.ProviderCheapShark, cfg.HTTPClient, cfg.Limiter),
	}
}

func (p *Provider) Name() game.ProviderName {
	return game.ProviderCheapShark
}

// listing is one entry of /games?title=.
type listing struct {
	GameID     string `json:"gameID"`
	SteamAppID string `json:"steamAppID"`
	Cheapest   string `json:"cheapest"`
	DealID     string `json:"cheapestDealID"`
	External   string `json:"external"`
	Thumb      string `json:"thumb"`
}

type deal struct {
	StoreID     string `json:"storeID"`
	DealID      string `json:"dealID"`
	Price       string `json:"price"`
	RetailPrice string `json:"retailPrice"`
}

type gameInfo struct {
	Info struct {
		Title      string `json:"title"`
		SteamAppID string `json:"steamAppID"`
	} `json:"info"`
	CheapestPriceEver struct {
		Price string `json:"price"`
	} `json:"cheapestPriceEver"`
	Deals []deal `json:"deals"`
}

func (p *Provider) list(ctx context.Context, op string, params url.Values) ([]listing, error) {
	var out []listing
	if err := p.http.GetJSON(ctx, op, provider.JoinURL(p.baseURL, "games", params), &out); err != nil {
		if errors.Is(err, provider.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return out, nil
}

// Search lists games by title. Records carry a title, thumbnail and Steam app ID only.
func (p *Provider) Search(ctx context.Context, query string, limit int) ([]game.Record, error) {
	params := url.Values{}
	params.Set("title", query)
	params.Set("limit", strconv.Itoa(provider.ClampLimit(limit, maxLimit)))

	items, err := p.list(ctx, "search", params)
	if err != nil {
		return nil, err
	}

	records := make([]game.Record, 0, len(items))
	for _, it := range items {
		if it.GameID == "" || it.External == "" {
			continue
		}
		records = append(records, game.Record{
			ID:         game.NewID(game.ProviderCheapShark, it.GameID),
			Title:      it.External,
			Image:      it.Thumb,
			SteamAppID: parseAppID(it.SteamAppID),
			Provenance: []game.ProviderName{game.ProviderCheapShark},
		})
	}
	return records, nil
}

// Price finds the game by Steam app ID when known, otherwise by title, and
// summarizes its current deals. It returns nil, nil when nothing matches.
func (p *Provider) Price(ctx context.Context, title string, steamAppID *int) (*game.PriceInfo, error) {
	params := url.Values{}
	if steamAppID != nil && *steamAppID > 0 {
		params.Set("steamAppID", strconv.Itoa(*steamAppID))
	} else {
		params.Set("title", title)
		params.Set("limit", "10")
	}

	items, err := p.list(ctx, "price", params)
	if err != nil {
		return nil, err
	}
	match := bestListing(items, title)
	if match == nil {
		return nil, nil
	}

	params = url.Values{}
	params.Set("id", match.GameID)
	var info gameInfo
	if err := p.http.GetJSON(ctx, "price", provider.JoinURL(p.baseURL, "games", params), &info); err != nil {
		return nil, err
	}

	out := &game.PriceInfo{
		Title:         info.Info.Title,
		Currency:      currency,
		HistoricalLow: parsePrice(info.CheapestPriceEver.Price),
		DealCount:     len(info.Deals),
	}
	if out.Title == "" {
		out.Title = match.External
	}

	cheapestID := ""
	for i, d := range info.Deals {
		price := parsePrice(d.Price)
		if i == 0 || price < out.CurrentLowest {
			out.CurrentLowest = price
			cheapestID = d.DealID
		}
		out.Retail = max(out.Retail, parsePrice(d.RetailPrice))
	}
	if len(info.Deals) == 0 {
		out.CurrentLowest = parsePrice(match.Cheapest)
		cheapestID = match.DealID
	}
	if cheapestID != "" {
		out.StoreURL = redirectURL + url.QueryEscape(cheapestID)
	}
	return out, nil
}

// bestListing prefers a case-insensitive title match, then the first entry.
func bestListing(items []listing, title string) *listing {
	var first *listing
	for i := range items {
		it := &items[i]
		if it.GameID == "" {
			continue
		}
		if first == nil {
			first = it
		}
		if strings.EqualFold(strings.TrimSpace(it.External), strings.TrimSpace(title)) {
			return it
		}
	}
	return first
}

func parsePrice(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}

func parseAppID(s string) *int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return nil
	}
	return &n
}
