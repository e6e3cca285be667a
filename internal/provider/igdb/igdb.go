// Package igdb adapts the IGDB API through a Twitch app access token.
package igdb

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Henry-Sarabia/igdb/v2"
	"golang.org/x/time/rate"

	"github.com/ryanm101/gamefuse/internal/game"
	"github.com/ryanm101/gamefuse/internal/logging"
	"github.com/ryanm101/gamefuse/internal/provider"
)

// DefaultTokenURL is the Twitch OAuth endpoint issuing app tokens.
const DefaultTokenURL = "https://id.twitch.tv/oauth2/token"

const (
	maxLimit    = 50
	coverURLFmt = "https://images.igdb.com/igdb/image/upload/t_cover_big/%s.jpg"
	shotURLFmt  = "https://images.igdb.com/igdb/image/upload/t_screenshot_big/%s.jpg"
)

var gameFields = []string{
	"id", "name", "summary", "storyline", "first_release_date",
	"total_rating", "aggregated_rating", "cover", "genres", "platforms", "screenshots",
}

// Config configures the adapter.
type Config struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
	HTTPClient   *http.Client
	Limiter      *rate.Limiter // nil means 4 requests/s, IGDB's documented cap
}

// api is the subset of the IGDB client the adapter uses.
type api interface {
	SearchGames(query string, limit int) ([]*igdb.Game, error)
	GetGame(id int) (*igdb.Game, error)
	CoverImageIDs(ids []int) (map[int]string, error)
	ScreenshotImageIDs(ids []int) (map[int]string, error)
	GenreNames(ids []int) (map[int]string, error)
	PlatformNames(ids []int) (map[int]string, error)
}

// Provider is the IGDB adapter.
type Provider struct {
	cfg     Config
	http    *provider.HTTPClient
	limiter *rate.Limiter

	mu        sync.Mutex
	client    api
	expiresAt time.Time
	now       func() time.Time

	// newAPI builds the client for a fresh token; replaced in tests.
	newAPI func(clientID, token string, hc *http.Client) api
}

// New creates the adapter. Both client ID and secret are required.
// No network I/O happens until the first call.
func New(cfg Config) (*Provider, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, provider.ErrNoCredentials
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = DefaultTokenURL
	}
	if cfg.Limiter == nil {
		cfg.Limiter = rate.NewLimiter(rate.Limit(4), 1)
	}
	return &Provider{
		cfg:     cfg,
		http:    provider.NewHTTPClient(game.ProviderIGDB, cfg.HTTPClient, nil),
		limiter: cfg.Limiter,
		now:     time.Now,
		newAPI:  newClientAPI,
	}, nil
}

func (p *Provider) Name() game.ProviderName {
	return game.ProviderIGDB
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// authorized returns a client with a valid token, fetching a new one when needed.
func (p *Provider) authorized(ctx context.Context) (api, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client != nil && p.now().Before(p.expiresAt) {
		return p.client, nil
	}

	form := url.Values{}
	form.Set("client_id", p.cfg.ClientID)
	form.Set("client_secret", p.cfg.ClientSecret)
	form.Set("grant_type", "client_credentials")

	var tok tokenResponse
	if err := p.http.PostForm(ctx, "auth", p.cfg.TokenURL, form, &tok); err != nil {
		return nil, err
	}
	if tok.AccessToken == "" {
		return nil, provider.Malformed(game.ProviderIGDB, "auth", errors.New("empty access token"))
	}

	// Refresh a minute early so in-flight calls never carry an expired token.
	p.expiresAt = p.now().Add(time.Duration(tok.ExpiresIn)*time.Second - time.Minute)
	p.client = p.newAPI(p.cfg.ClientID, tok.AccessToken, p.http.Client())
	return p.client, nil
}

// call waits for the limiter, then runs fn classifying its error.
func (p *Provider) call(ctx context.Context, op string, fn func(api) error) error {
	c, err := p.authorized(ctx)
	if err != nil {
		return err
	}
	if err := p.limiter.Wait(ctx); err != nil {
		return provider.NewError(game.ProviderIGDB, op, provider.KindNetwork, err)
	}
	if err := fn(c); err != nil {
		if errors.Is(err, igdb.ErrNoResults) {
			return err
		}
		return provider.NewError(game.ProviderIGDB, op, provider.Classify(err), err)
	}
	return nil
}

// Search runs a full-text game search.
func (p *Provider) Search(ctx context.Context, query string, limit int) ([]game.Record, error) {
	var games []*igdb.Game
	err := p.call(ctx, "search", func(c api) error {
		var err error
		games, err = c.SearchGames(query, provider.ClampLimit(limit, maxLimit))
		return err
	})
	if errors.Is(err, igdb.ErrNoResults) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p.toRecords(ctx, games), nil
}

// Details fetches one game by numeric ID.
func (p *Provider) Details(ctx context.Context, nativeID string) (*game.Record, error) {
	id, err := strconv.Atoi(nativeID)
	if err != nil || id <= 0 {
		return nil, nil
	}

	var g *igdb.Game
	err = p.call(ctx, "details", func(c api) error {
		var err error
		g, err = c.GetGame(id)
		return err
	})
	if errors.Is(err, igdb.ErrNoResults) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, nil
	}

	records := p.toRecords(ctx, []*igdb.Game{g})
	if len(records) == 0 {
		return nil, nil
	}
	return &records[0], nil
}

// toRecords maps games and resolves covers, screenshots, genres and platforms
// in one batched call each. Lookup failures leave those fields empty.
func (p *Provider) toRecords(ctx context.Context, games []*igdb.Game) []game.Record {
	var coverIDs, shotIDs, genreIDs, platformIDs []int
	for _, g := range games {
		if g == nil {
			continue
		}
		if g.Cover > 0 {
			coverIDs = append(coverIDs, g.Cover)
		}
		if len(g.Screenshots) > 0 {
			shotIDs = append(shotIDs, g.Screenshots[0])
		}
		genreIDs = append(genreIDs, g.Genres...)
		platformIDs = append(platformIDs, g.Platforms...)
	}

	covers := p.lookup(ctx, "covers", coverIDs, api.CoverImageIDs)
	shots := p.lookup(ctx, "screenshots", shotIDs, api.ScreenshotImageIDs)
	genres := p.lookup(ctx, "genres", genreIDs, api.GenreNames)
	platforms := p.lookup(ctx, "platforms", platformIDs, api.PlatformNames)

	records := make([]game.Record, 0, len(games))
	for _, g := range games {
		if g == nil || g.ID == 0 || g.Name == "" {
			continue
		}
		r := game.Record{
			ID:          game.NewID(game.ProviderIGDB, strconv.Itoa(g.ID)),
			Title:       g.Name,
			Description: strings.TrimSpace(g.Summary),
			Genres:      pick(genres, g.Genres),
			Platforms:   pick(platforms, g.Platforms),
			Provenance:  []game.ProviderName{game.ProviderIGDB},
		}
		if r.Description == "" {
			r.Description = strings.TrimSpace(g.Storyline)
		}
		if g.FirstReleaseDate > 0 {
			t := time.Unix(int64(g.FirstReleaseDate), 0).UTC()
			r.ReleaseDate = &t
		}
		switch {
		case g.TotalRating > 0:
			v := g.TotalRating
			r.Rating = &v
		case g.AggregatedRating > 0:
			v := g.AggregatedRating
			r.Rating = &v
		}
		if id, ok := covers[g.Cover]; ok {
			r.Image = imageURL(coverURLFmt, id)
		}
		if len(g.Screenshots) > 0 {
			if id, ok := shots[g.Screenshots[0]]; ok {
				r.Screenshots = []string{imageURL(shotURLFmt, id)}
			}
		}
		records = append(records, r)
	}
	return records
}

func (p *Provider) lookup(ctx context.Context, op string, ids []int, fn func(api, []int) (map[int]string, error)) map[int]string {
	if len(ids) == 0 {
		return nil
	}
	var out map[int]string
	err := p.call(ctx, op, func(c api) error {
		var err error
		out, err = fn(c, dedupe(ids))
		return err
	})
	if err != nil && !errors.Is(err, igdb.ErrNoResults) {
		logging.Debug("igdb lookup failed", "op", op, "error", err)
	}
	return out
}

func pick(names map[int]string, ids []int) []string {
	var out []string
	for _, id := range ids {
		if n, ok := names[id]; ok && n != "" {
			out = append(out, n)
		}
	}
	return out
}

func dedupe(ids []int) []int {
	seen := make(map[int]bool, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func imageURL(format, imageID string) string {
	return fmt.Sprintf(format, imageID)
}
