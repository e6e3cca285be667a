// Package hltb adapts the HowLongToBeat search endpoint for completion times.
package hltb

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/ryanm101/gamefuse/internal/fusion"
	"github.com/ryanm101/gamefuse/internal/game"
	"github.com/ryanm101/gamefuse/internal/provider"
)

// DefaultBaseURL is the HowLongToBeat site root.
const DefaultBaseURL = "https://howlongtobeat.com"

const maxLimit = 20

// Config configures the adapter.
type Config struct {
	BaseURL    string
	HTTPClient *http.Client
	Limiter    *rate.Limiter // nil means one request every 2s
}

// Provider is the HowLongToBeat adapter.
type Provider struct {
	baseURL string
	http    *provider.HTTPClient
	matcher *fusion.Matcher
}

// New creates the adapter.
func New(cfg Config) *Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Limiter == nil {
		cfg.Limiter = rate.NewLimiter(rate.Every(2*time.Second), 1)
	}
	return &Provider{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    provider.NewHTTPClient(game.ProviderHLTB, cfg.HTTPClient, cfg.Limiter),
		matcher: fusion.NewMatcher(),
	}
}

func (p *Provider) Name() game.ProviderName {
	return game.ProviderHLTB
}

type searchRequest struct {
	SearchType  string   `json:"searchType"`
	SearchTerms []string `json:"searchTerms"`
	SearchPage  int      `json:"searchPage"`
	Size        int      `json:"size"`
}

type entry struct {
	GameID       int    `json:"game_id"`
	GameName     string `json:"game_name"`
	GameImage    string `json:"game_image"`
	CompMain     int    `json:"comp_main"` // seconds
	CompPlus     int    `json:"comp_plus"`
	Comp100      int    `json:"comp_100"`
	ReleaseWorld int    `json:"release_world"`
	Platforms    string `json:"profile_platform"`
}

type searchResponse struct {
	Data []entry `json:"data"`
}

func (p *Provider) search(ctx context.Context, op, query string, limit int) ([]entry, error) {
	req := searchRequest{
		SearchType:  "games",
		SearchTerms: strings.Fields(query),
		SearchPage:  1,
		Size:        provider.ClampLimit(limit, maxLimit),
	}
	var resp searchResponse
	if err := p.http.PostJSON(ctx, op, p.baseURL+"/api/search", req, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// Search returns HowLongToBeat entries as sparse records.
func (p *Provider) Search(ctx context.Context, query string, limit int) ([]game.Record, error) {
	entries, err := p.search(ctx, "search", query, limit)
	if err != nil {
		return nil, err
	}

	records := make([]game.Record, 0, len(entries))
	for _, e := range entries {
		if e.GameID == 0 || e.GameName == "" {
			continue
		}
		r := game.Record{
			ID:         game.NewID(game.ProviderHLTB, strconv.Itoa(e.GameID)),
			Title:      e.GameName,
			Platforms:  provider.Names(strings.Split(e.Platforms, ","), strings.TrimSpace),
			Provenance: []game.ProviderName{game.ProviderHLTB},
		}
		if e.GameImage != "" {
			r.Image = p.baseURL + "/games/" + e.GameImage
		}
		if e.ReleaseWorld > 0 {
			t := time.Date(e.ReleaseWorld, time.January, 1, 0, 0, 0, 0, time.UTC)
			r.ReleaseDate = &t
		}
		records = append(records, r)
	}
	return records, nil
}

// CompletionTime returns the estimates of the closest-titled entry, or nil, nil
// when no entry is close enough.
func (p *Provider) CompletionTime(ctx context.Context, title string) (*game.Playtime, error) {
	entries, err := p.search(ctx, "completion_time", title, 5)
	if err != nil {
		return nil, err
	}

	candidates := make([]game.Record, 0, len(entries))
	byTitle := make(map[string]entry, len(entries))
	for _, e := range entries {
		if e.GameName == "" {
			continue
		}
		candidates = append(candidates, game.Record{Title: e.GameName})
		if _, ok := byTitle[e.GameName]; !ok {
			byTitle[e.GameName] = e
		}
	}

	m := p.matcher.Best(title, candidates)
	if m == nil {
		return nil, nil
	}
	e := byTitle[m.Record.Title]
	return &game.Playtime{
		Title:              e.GameName,
		MainHours:          hours(e.CompMain),
		MainExtraHours:     hours(e.CompPlus),
		CompletionistHours: hours(e.Comp100),
	}, nil
}

// hours converts seconds to hours rounded to one decimal.
func hours(seconds int) float64 {
	if seconds <= 0 {
		return 0
	}
	return float64(seconds*10/3600) / 10
}
