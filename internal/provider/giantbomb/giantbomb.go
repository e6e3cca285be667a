// Package giantbomb adapts the Giant Bomb wiki API.
//
// Giant Bomb answers every request with HTTP 200 and reports failures in a
// status_code field, and field shapes vary between resources, so responses are
// walked with jason instead of being decoded into fixed structs.
package giantbomb

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/antonholmquist/jason"
	"github.com/k3a/html2text"
	"golang.org/x/time/rate"

	"github.com/ryanm101/gamefuse/internal/game"
	"github.com/ryanm101/gamefuse/internal/provider"
)

// DefaultBaseURL is the public Giant Bomb API root.
const DefaultBaseURL = "https://www.giantbomb.com/api"

const maxLimit = 100

// Status codes carried in the response envelope.
const (
	statusOK          = 1
	statusInvalidKey  = 100
	statusNotFound    = 101
	statusRateLimited = 107
)

// guidResourcePrefix is the resource type prefix of game GUIDs.
const guidResourcePrefix = "3030-"

const (
	searchFields = "guid,id,name,deck,image,original_release_date,platforms"
	detailFields = searchFields + ",description,genres,developers,publishers,images"
)

// Config configures the adapter.
type Config struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Limiter    *rate.Limiter // nil means one request/s
}

// Provider is the Giant Bomb adapter.
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
		cfg.Limiter = rate.NewLimiter(rate.Every(time.Second), 1)
	}
	return &Provider{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		http:    provider.NewHTTPClient(game.ProviderGiantBomb, cfg.HTTPClient, cfg.Limiter),
	}, nil
}

func (p *Provider) Name() game.ProviderName {
	return game.ProviderGiantBomb
}

func (p *Provider) params(fields string) url.Values {
	v := url.Values{}
	v.Set("api_key", p.apiKey)
	v.Set("format", "json")
	v.Set("field_list", fields)
	return v
}

// Search queries /search restricted to game resources.
func (p *Provider) Search(ctx context.Context, query string, limit int) ([]game.Record, error) {
	params := p.params(searchFields)
	params.Set("query", query)
	params.Set("resources", "game")
	params.Set("limit", strconv.Itoa(provider.ClampLimit(limit, maxLimit)))

	root, err := p.get(ctx, "search", provider.JoinURL(p.baseURL, "search/", params))
	if errors.Is(err, provider.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	results, err := root.GetObjectArray("results")
	if err != nil {
		return nil, nil
	}
	records := make([]game.Record, 0, len(results))
	for _, o := range results {
		if r, ok := toRecord(o); ok {
			records = append(records, r)
		}
	}
	return records, nil
}

// Details fetches /game/{guid}/. A bare numeric ID is expanded to a game GUID.
func (p *Provider) Details(ctx context.Context, nativeID string) (*game.Record, error) {
	guid := nativeID
	if !strings.Contains(guid, "-") {
		guid = guidResourcePrefix + guid
	}

	root, err := p.get(ctx, "details", provider.JoinURL(p.baseURL, "game/"+url.PathEscape(guid)+"/", p.params(detailFields)))
	if errors.Is(err, provider.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	o, err := root.GetObject("results")
	if err != nil {
		return nil, nil
	}
	r, ok := toRecord(o)
	if !ok {
		return nil, nil
	}
	return &r, nil
}

// get fetches url and checks the envelope's status_code.
func (p *Provider) get(ctx context.Context, op, u string) (*jason.Object, error) {
	body, err := p.http.GetRaw(ctx, op, u)
	if err != nil {
		return nil, err
	}
	root, err := jason.NewObjectFromBytes(body)
	if err != nil {
		return nil, provider.Malformed(game.ProviderGiantBomb, op, err)
	}

	code, err := root.GetInt64("status_code")
	if err != nil {
		return nil, provider.Malformed(game.ProviderGiantBomb, op, fmt.Errorf("missing status_code: %w", err))
	}
	msg, _ := root.GetString("error")

	switch code {
	case statusOK:
		return root, nil
	case statusRateLimited:
		return nil, &provider.Error{
			Provider: game.ProviderGiantBomb,
			Op:       op,
			Kind:     provider.KindRateLimited,
			Err:      fmt.Errorf("%w: %s", provider.ErrRateLimited, msg),
		}
	case statusNotFound:
		return nil, provider.NewError(game.ProviderGiantBomb, op, provider.KindNoResults, provider.ErrNotFound)
	case statusInvalidKey:
		return nil, provider.NewError(game.ProviderGiantBomb, op, provider.KindUnavailable, fmt.Errorf("%w: %s", provider.ErrNoCredentials, msg))
	default:
		return nil, provider.NewError(game.ProviderGiantBomb, op, provider.KindNetwork, fmt.Errorf("status_code %d: %s", code, msg))
	}
}

func toRecord(o *jason.Object) (game.Record, bool) {
	name, _ := o.GetString("name")
	id := nativeID(o)
	if name == "" || id == "" {
		return game.Record{}, false
	}

	r := game.Record{
		ID:         game.NewID(game.ProviderGiantBomb, id),
		Title:      name,
		Genres:     names(o, "genres"),
		Platforms:  names(o, "platforms"),
		Provenance: []game.ProviderName{game.ProviderGiantBomb},
	}

	if released, err := o.GetString("original_release_date"); err == nil {
		r.ReleaseDate = provider.ParseDate(released)
	}
	if devs := names(o, "developers"); len(devs) > 0 {
		r.Developer = devs[0]
	}
	if pubs := names(o, "publishers"); len(pubs) > 0 {
		r.Publisher = pubs[0]
	}

	// The deck is a one-line summary; the full description is HTML.
	if html, err := o.GetString("description"); err == nil && html != "" {
		r.Description = strings.TrimSpace(html2text.HTML2Text(html))
	}
	if r.Description == "" {
		deck, _ := o.GetString("deck")
		r.Description = strings.TrimSpace(deck)
	}

	for _, key := range []string{"super_url", "original_url", "medium_url"} {
		if img, err := o.GetString("image", key); err == nil && img != "" {
			r.Image = img
			break
		}
	}

	if images, err := o.GetObjectArray("images"); err == nil {
		for _, img := range images {
			if u, err := img.GetString("original"); err == nil && u != "" && u != r.Image {
				r.Screenshots = append(r.Screenshots, u)
			}
			if len(r.Screenshots) >= 5 {
				break
			}
		}
	}
	return r, true
}

// nativeID prefers the resource GUID so details can be fetched directly.
func nativeID(o *jason.Object) string {
	if guid, err := o.GetString("guid"); err == nil && guid != "" {
		return guid
	}
	if id, err := o.GetInt64("id"); err == nil && id > 0 {
		return guidResourcePrefix + strconv.FormatInt(id, 10)
	}
	return ""
}

func names(o *jason.Object, key string) []string {
	items, err := o.GetObjectArray(key)
	if err != nil {
		return nil
	}
	return provider.Names(items, func(item *jason.Object) string {
		n, _ := item.GetString("name")
		return n
	})
}
