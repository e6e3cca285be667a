// Package metacritic scrapes Metacritic search results for critic scores.
package metacritic

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

	"github.com/gocolly/colly/v2"
	"golang.org/x/time/rate"

	"github.com/ryanm101/gamefuse/internal/fusion"
	"github.com/ryanm101/gamefuse/internal/game"
	"github.com/ryanm101/gamefuse/internal/provider"
)

// DefaultBaseURL is the Metacritic site root.
const DefaultBaseURL = "https://www.metacritic.com"

// gamesCategory restricts site search to games.
const gamesCategory = "13"

// Selectors for the search results page.
const (
	selResult = `a[data-testid="search-result-item"]`
	selTitle  = `[data-testid="product-title"]`
	selScore  = `[data-testid="product-metascore"] span`
	selImage  = `img`
)

// Config configures the adapter.
type Config struct {
	BaseURL   string
	Transport http.RoundTripper // nil means http.DefaultTransport
	Timeout   time.Duration     // per page; 0 means provider.DefaultHTTPTimeout
	Limiter   *rate.Limiter     // nil means one page/s
}

// Provider is the Metacritic scraper.
type Provider struct {
	baseURL   string
	collector *colly.Collector
	limiter   *rate.Limiter
	matcher   *fusion.Matcher
}

// New creates the scraper.
func New(cfg Config) *Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = provider.DefaultHTTPTimeout
	}
	if cfg.Limiter == nil {
		cfg.Limiter = rate.NewLimiter(rate.Every(time.Second), 1)
	}

	c := colly.NewCollector(
		colly.UserAgent(provider.UserAgent),
		colly.AllowURLRevisit(),
	)
	c.SetRequestTimeout(cfg.Timeout)
	if cfg.Transport != nil {
		c.WithTransport(cfg.Transport)
	}

	return &Provider{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		collector: c,
		limiter:   cfg.Limiter,
		matcher:   fusion.NewMatcher(),
	}
}

func (p *Provider) Name() game.ProviderName {
	return game.ProviderMetacritic
}

// result is one scraped search hit.
type result struct {
	Title string
	Slug  string
	URL   string
	Score int
	Image string
}

// scrape loads the search page for query and returns up to limit hits.
func (p *Provider) scrape(ctx context.Context, op, query string, limit int) ([]result, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, provider.NewError(game.ProviderMetacritic, op, provider.KindNetwork, err)
	}

	var (
		mu      sync.Mutex
		results []result
		failure error
	)

	c := p.collector.Clone()
	c.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			r.Abort()
		}
	})
	c.OnHTML(selResult, func(e *colly.HTMLElement) {
		mu.Lock()
		defer mu.Unlock()
		if len(results) >= limit {
			return
		}
		r, ok := p.parseResult(e)
		if ok {
			results = append(results, r)
		}
	})
	c.OnError(func(r *colly.Response, err error) {
		mu.Lock()
		defer mu.Unlock()
		failure = responseError(op, r, err)
	})

	searchURL := fmt.Sprintf("%s/search/%s/?category=%s", p.baseURL, url.PathEscape(query), gamesCategory)
	if err := c.Visit(searchURL); err != nil && failure == nil {
		failure = provider.NewError(game.ProviderMetacritic, op, provider.KindNetwork, err)
	}
	c.Wait()

	if err := ctx.Err(); err != nil {
		return nil, provider.NewError(game.ProviderMetacritic, op, provider.KindNetwork, err)
	}
	if errors.Is(failure, provider.ErrNotFound) {
		return nil, nil
	}
	if failure != nil {
		return nil, failure
	}
	return results, nil
}

func (p *Provider) parseResult(e *colly.HTMLElement) (result, bool) {
	href := e.Attr("href")
	slug := slugFromHref(href)
	title := strings.TrimSpace(e.ChildText(selTitle))
	if slug == "" || title == "" {
		return result{}, false
	}
	r := result{
		Title: title,
		Slug:  slug,
		URL:   e.Request.AbsoluteURL(href),
		Image: e.ChildAttr(selImage, "src"),
	}
	if score, err := strconv.Atoi(strings.TrimSpace(e.ChildText(selScore))); err == nil && score > 0 && score <= 100 {
		r.Score = score
	}
	return r, true
}

// Search returns scraped hits as sparse records carrying the metascore.
func (p *Provider) Search(ctx context.Context, query string, limit int) ([]game.Record, error) {
	results, err := p.scrape(ctx, "search", query, provider.ClampLimit(limit, 50))
	if err != nil {
		return nil, err
	}

	records := make([]game.Record, 0, len(results))
	for _, r := range results {
		rec := game.Record{
			ID:         game.NewID(game.ProviderMetacritic, r.Slug),
			Title:      r.Title,
			Image:      r.Image,
			Provenance: []game.ProviderName{game.ProviderMetacritic},
		}
		if r.Score > 0 {
			score := r.Score
			rec.MetacriticScore = &score
		}
		records = append(records, rec)
	}
	return records, nil
}

// CriticScore returns the metascore of the closest-titled hit, or nil, nil
// when no scored hit matches.
func (p *Provider) CriticScore(ctx context.Context, title string) (*game.CriticScore, error) {
	results, err := p.scrape(ctx, "critic_score", title, 10)
	if err != nil {
		return nil, err
	}

	candidates := make([]game.Record, 0, len(results))
	for i, r := range results {
		if r.Score > 0 {
			candidates = append(candidates, game.Record{ID: strconv.Itoa(i), Title: r.Title})
		}
	}
	m := p.matcher.Best(title, candidates)
	if m == nil {
		return nil, nil
	}
	i, _ := strconv.Atoi(m.Record.ID)
	r := results[i]
	return &game.CriticScore{Title: r.Title, Metascore: r.Score, URL: r.URL}, nil
}

// slugFromHref extracts "<slug>" from "/game/<slug>/".
func slugFromHref(href string) string {
	_, rest, ok := strings.Cut(href, "/game/")
	if !ok {
		return ""
	}
	slug, _, _ := strings.Cut(rest, "/")
	return slug
}

// responseError maps a failed page load onto the provider error taxonomy.
func responseError(op string, r *colly.Response, err error) error {
	if r == nil || r.StatusCode == 0 {
		return provider.NewError(game.ProviderMetacritic, op, provider.KindNetwork, err)
	}
	resp := &http.Response{
		StatusCode: r.StatusCode,
		Status:     fmt.Sprintf("%d %s", r.StatusCode, http.StatusText(r.StatusCode)),
		Header:     http.Header{},
	}
	if r.Headers != nil {
		resp.Header = *r.Headers
	}
	if cerr := provider.CheckResponse(game.ProviderMetacritic, op, resp); cerr != nil {
		return cerr
	}
	return provider.NewError(game.ProviderMetacritic, op, provider.KindNetwork, err)
}
