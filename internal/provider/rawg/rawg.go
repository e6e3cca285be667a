// Package rawg adapts the RAWG video game database API.
package rawg

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/k3a/html2text"
	"golang.org/x/time/rate"

	"github.com/ryanm101/gamefuse/internal/game"
	"github.com/ryanm101/gamefuse/internal/provider"
)

// DefaultBaseURL is the public RAWG API root.
const DefaultBaseURL = "https://api.rawg.io/api"

const maxPageSize = 40

// Config configures the adapter.
type Config struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Limiter    *rate.Limiter // nil means 5 requests/s
}

// Provider is the RAWG adapter.
type Provider struct {
	baseURL string
	apiKey  string
	http    *provider.HTTPClient
}

// New creates the adapter. An API key is required.
func New(cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, provider.ErrNoCredentials
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Limiter == nil {
		cfg.Limiter = rate.NewLimiter(rate.Limit(5), 1)
	}
	return &Provider{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		http:    provider.NewHTTPClient(game.ProviderRAWG, cfg.HTTPClient, cfg.Limiter),
	}, nil
}

func (p *Provider) Name() game.ProviderName {
	return game.ProviderRAWG
}

type named struct {
	Name string `json:"name"`
}

type platformEntry struct {
	Platform named `json:"platform"`
}

type screenshot struct {
	Image string `json:"image"`
}

type storeEntry struct {
	URL   string `json:"url"`
	Store struct {
		Slug string `json:"slug"`
	} `json:"store"`
}

type gameJSON struct {
	ID               int             `json:"id"`
	Name             string          `json:"name"`
	Released         string          `json:"released"`
	BackgroundImage  string          `json:"background_image"`
	Rating           float64         `json:"rating"`
	Metacritic       int             `json:"metacritic"`
	Description      string          `json:"description"`
	DescriptionRaw   string          `json:"description_raw"`
	Genres           []named         `json:"genres"`
	Platforms        []platformEntry `json:"platforms"`
	Developers       []named         `json:"developers"`
	Publishers       []named         `json:"publishers"`
	ShortScreenshots []screenshot    `json:"short_screenshots"`
	Stores           []storeEntry    `json:"stores"`
}

type searchResponse struct {
	Count   int        `json:"count"`
	Results []gameJSON `json:"results"`
}

// Search queries /games.
func (p *Provider) Search(ctx context.Context, query string, limit int) ([]game.Record, error) {
	params := url.Values{}
	params.Set("key", p.apiKey)
	params.Set("search", query)
	params.Set("page_size", strconv.Itoa(provider.ClampLimit(limit, maxPageSize)))

	var resp searchResponse
	if err := p.http.GetJSON(ctx, "search", provider.JoinURL(p.baseURL, "games", params), &resp); err != nil {
		return nil, err
	}

	records := make([]game.Record, 0, len(resp.Results))
	for _, g := range resp.Results {
		if g.ID == 0 || g.Name == "" {
			continue
		}
		records = append(records, toRecord(g))
	}
	return records, nil
}

// Details fetches /games/{id}.
func (p *Provider) Details(ctx context.Context, nativeID string) (*game.Record, error) {
	params := url.Values{}
	params.Set("key", p.apiKey)

	var g gameJSON
	err := p.http.GetJSON(ctx, "details", provider.JoinURL(p.baseURL, "games/"+url.PathEscape(nativeID), params), &g)
	if errors.Is(err, provider.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if g.ID == 0 {
		return nil, nil
	}
	r := toRecord(g)
	return &r, nil
}

func toRecord(g gameJSON) game.Record {
	r := game.Record{
		ID:          game.NewID(game.ProviderRAWG, strconv.Itoa(g.ID)),
		Title:       g.Name,
		ReleaseDate: provider.ParseDate(g.Released),
		Image:       g.BackgroundImage,
		Genres:      provider.Names(g.Genres, func(n named) string { return n.Name }),
		Platforms:   provider.Names(g.Platforms, func(e platformEntry) string { return e.Platform.Name }),
		Screenshots: provider.Names(g.ShortScreenshots, func(s screenshot) string { return s.Image }),
		Provenance:  []game.ProviderName{game.ProviderRAWG},
	}
	if len(g.Developers) > 0 {
		r.Developer = g.Developers[0].Name
	}
	if len(g.Publishers) > 0 {
		r.Publisher = g.Publishers[0].Name
	}
	if g.Rating > 0 {
		rating := g.Rating * 20 // RAWG rates 0-5
		r.Rating = &rating
	}
	if g.Metacritic > 0 {
		mc := g.Metacritic
		r.MetacriticScore = &mc
	}

	switch {
	case strings.TrimSpace(g.DescriptionRaw) != "":
		r.Description = strings.TrimSpace(g.DescriptionRaw)
	case g.Description != "":
		r.Description = strings.TrimSpace(html2text.HTML2Text(g.Description))
	}

	for _, s := range g.Stores {
		if s.Store.Slug == "steam" {
			r.SteamAppID = steamAppID(s.URL)
			break
		}
	}
	return r
}

// steamAppID extracts the app ID from a store.steampowered.com/app/<id>/ URL.
func steamAppID(storeURL string) *int {
	_, rest, ok := strings.Cut(storeURL, "/app/")
	if !ok {
		return nil
	}
	id, _, _ := strings.Cut(rest, "/")
	n, err := strconv.Atoi(id)
	if err != nil || n <= 0 {
		return nil
	}
	return &n
}
