// Package app builds a ready orchestrator from configuration. It is shared
// by the CLI and the web server.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/ryanm101/gamefuse/internal/cache"
	"github.com/ryanm101/gamefuse/internal/config"
	"github.com/ryanm101/gamefuse/internal/game"
	"github.com/ryanm101/gamefuse/internal/health"
	"github.com/ryanm101/gamefuse/internal/logging"
	"github.com/ryanm101/gamefuse/internal/orchestrator"
	"github.com/ryanm101/gamefuse/internal/provider"
	"github.com/ryanm101/gamefuse/internal/provider/cheapshark"
	"github.com/ryanm101/gamefuse/internal/provider/giantbomb"
	"github.com/ryanm101/gamefuse/internal/provider/hltb"
	"github.com/ryanm101/gamefuse/internal/provider/igdb"
	"github.com/ryanm101/gamefuse/internal/provider/metacritic"
	"github.com/ryanm101/gamefuse/internal/provider/rawg"
	"github.com/ryanm101/gamefuse/internal/store"
)

var errDisabled = errors.New("disabled in configuration")

// App owns the orchestrator and the resources behind it.
type App struct {
	Orchestrator *orchestrator.Orchestrator
	Tracker      *health.Tracker
	Cache        *cache.Cache
	Store        *store.Store // nil when persistence is off

	// Disabled lists providers that were not constructed, with the reason.
	Disabled map[game.ProviderName]string
}

// Options adjusts Build for callers and tests.
type Options struct {
	// Transport replaces the outbound HTTP transport; it is still wrapped for tracing.
	Transport http.RoundTripper
	// NoStore skips opening the description store.
	NoStore bool
}

// Build constructs every enabled provider and wires the orchestrator.
// Providers that cannot be constructed are recorded in Disabled rather than failing.
func Build(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	log := logging.With("app")

	base := opts.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	transport := otelhttp.NewTransport(base)
	client := &http.Client{Transport: transport, Timeout: provider.DefaultHTTPTimeout}

	a := &App{Disabled: map[game.ProviderName]string{}}
	var ocfg orchestrator.Config

	disable := func(p game.ProviderName, err error) {
		a.Disabled[p] = err.Error()
		log.Warn("provider disabled", "provider", p, "reason", err)
	}
	enabled := func(p game.ProviderName) bool {
		if !cfg.Provider(p).IsEnabled() {
			disable(p, errDisabled)
			return false
		}
		return true
	}

	if pc := cfg.Provider(game.ProviderRAWG); enabled(game.ProviderRAWG) {
		p, err := rawg.New(rawg.Config{BaseURL: pc.BaseURL, APIKey: pc.APIKey, HTTPClient: client})
		if err != nil {
			disable(game.ProviderRAWG, err)
		} else {
			ocfg.Metadata = append(ocfg.Metadata, p)
		}
	}
	if pc := cfg.Provider(game.ProviderIGDB); enabled(game.ProviderIGDB) {
		p, err := igdb.New(igdb.Config{ClientID: pc.ClientID, ClientSecret: pc.ClientSecret, HTTPClient: client})
		if err != nil {
			disable(game.ProviderIGDB, err)
		} else {
			ocfg.Metadata = append(ocfg.Metadata, p)
		}
	}
	if pc := cfg.Provider(game.ProviderGiantBomb); enabled(game.ProviderGiantBomb) {
		p, err := giantbomb.New(giantbomb.Config{BaseURL: pc.BaseURL, APIKey: pc.APIKey, HTTPClient: client})
		if err != nil {
			disable(game.ProviderGiantBomb, err)
		} else {
			ocfg.Metadata = append(ocfg.Metadata, p)
		}
	}

	if pc := cfg.Provider(game.ProviderCheapShark); enabled(game.ProviderCheapShark) {
		p := cheapshark.New(cheapshark.Config{BaseURL: pc.BaseURL, HTTPClient: client})
		ocfg.External = append(ocfg.External, p)
		ocfg.Pricing = p
	}
	if pc := cfg.Provider(game.ProviderHLTB); enabled(game.ProviderHLTB) {
		p := hltb.New(hltb.Config{BaseURL: pc.BaseURL, HTTPClient: client})
		ocfg.External = append(ocfg.External, p)
		ocfg.Playtime = p
	}
	if pc := cfg.Provider(game.ProviderMetacritic); enabled(game.ProviderMetacritic) {
		p := metacritic.New(metacritic.Config{BaseURL: pc.BaseURL, Transport: transport})
		ocfg.External = append(ocfg.External, p)
		ocfg.Critic = p
	}

	a.Tracker = health.NewTracker(slices.Concat(game.MetadataOrder, game.ExternalOrder), health.WithLimits(limits(cfg)))
	a.Cache = cache.New(cache.Config{SearchTTL: cfg.GetSearchTTL(), DetailsTTL: cfg.GetDetailsTTL()})

	if !opts.NoStore {
		st, err := store.Open(ctx, cfg.GetDBPath())
		if err != nil {
			return nil, fmt.Errorf("failed to open description store: %w", err)
		}
		a.Store = st
		ocfg.Store = st
	}

	ocfg.Disabled = a.Disabled
	ocfg.Tracker = a.Tracker
	ocfg.Cache = a.Cache
	ocfg.ProviderTimeout = cfg.GetProviderTimeout()
	ocfg.DefaultLimit = cfg.GetDefaultLimit()
	ocfg.MaxLimit = cfg.GetMaxLimit()
	ocfg.RepairLimit = cfg.GetRepairLimit()

	o, err := orchestrator.New(ocfg)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.Orchestrator = o

	log.Info("orchestrator ready",
		"metadata", o.MetadataProviders(),
		"external", len(ocfg.External),
		"disabled", len(a.Disabled),
		"store", a.Store != nil)
	return a, nil
}

// limits collects per-provider rate windows overridden in configuration.
func limits(cfg *config.Config) map[game.ProviderName]health.Limit {
	out := map[game.ProviderName]health.Limit{}
	for name, pc := range cfg.Providers {
		if pc.RateLimitWindow <= 0 && pc.MaxRequests <= 0 {
			continue
		}
		l := health.Limit{Window: health.DefaultWindows[name], MaxRequests: pc.MaxRequests}
		if pc.RateLimitWindow > 0 {
			l.Window = pc.RateLimitWindow
		}
		out[name] = l
	}
	return out
}

// Close releases the description store.
func (a *App) Close() error {
	if a.Store == nil {
		return nil
	}
	return a.Store.Close()
}
