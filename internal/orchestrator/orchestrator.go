// Package orchestrator coordinates the metadata providers: it walks them in
// fallback order under the health tracker, fuses and repairs their records,
// ranks the result and caches it.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/ryanm101/gamefuse/internal/cache"
	"github.com/ryanm101/gamefuse/internal/fusion"
	"github.com/ryanm101/gamefuse/internal/game"
	"github.com/ryanm101/gamefuse/internal/health"
	"github.com/ryanm101/gamefuse/internal/logging"
	"github.com/ryanm101/gamefuse/internal/provider"
	"github.com/ryanm101/gamefuse/internal/relevance"
	"github.com/ryanm101/gamefuse/internal/store"
)

// Errors returned before any provider is contacted.
var (
	ErrInvalidRequest    = errors.New("invalid request")
	ErrMissingDependency = errors.New("missing dependency")
)

// Defaults applied when Config leaves a field zero.
const (
	DefaultProviderTimeout = 1500 * time.Millisecond
	DefaultLimit           = 10
	DefaultMaxLimit        = 50
	DefaultRepairLimit     = 10
)

// DescriptionStore persists descriptions between runs. *store.Store implements it.
type DescriptionStore interface {
	Get(ctx context.Context, key string) (*store.Description, error)
	Put(ctx context.Context, key string, p game.ProviderName, text string) error
	Clear(ctx context.Context) error
}

// Config wires an Orchestrator. Tracker and Cache are required and must not
// be shared with another orchestrator.
type Config struct {
	Metadata []provider.MetadataProvider
	External []provider.Searcher
	Pricing  provider.PriceLookup
	Playtime provider.PlaytimeLookup
	Critic   provider.CriticLookup

	// Disabled lists providers that could not be constructed, with the reason.
	// They are marked unavailable and reported as skipped.
	Disabled map[game.ProviderName]string

	Tracker *health.Tracker
	Cache   *cache.Cache
	Store   DescriptionStore // optional
	Scorer  *relevance.Scorer
	Matcher *fusion.Matcher

	ProviderTimeout time.Duration
	DefaultLimit    int
	MaxLimit        int
	RepairLimit     int
}

// Orchestrator is safe for concurrent use.
type Orchestrator struct {
	metadata      map[game.ProviderName]provider.MetadataProvider
	metadataOrder []game.ProviderName
	external      []provider.Searcher
	pricing       provider.PriceLookup
	playtime      provider.PlaytimeLookup
	critic        provider.CriticLookup

	tracker *health.Tracker
	cache   *cache.Cache
	store   DescriptionStore
	scorer  *relevance.Scorer
	matcher *fusion.Matcher

	timeout      time.Duration
	defaultLimit int
	maxLimit     int
	repairLimit  int

	log   *slog.Logger
	stats *counters
}

// New validates cfg and builds an orchestrator.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Tracker == nil {
		return nil, fmt.Errorf("%w: health tracker", ErrMissingDependency)
	}
	if cfg.Cache == nil {
		return nil, fmt.Errorf("%w: cache", ErrMissingDependency)
	}
	if cfg.Scorer == nil {
		cfg.Scorer = relevance.New()
	}
	if cfg.Matcher == nil {
		cfg.Matcher = fusion.NewMatcher()
	}
	if cfg.ProviderTimeout <= 0 {
		cfg.ProviderTimeout = DefaultProviderTimeout
	}
	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = DefaultMaxLimit
	}
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = DefaultLimit
	}
	cfg.DefaultLimit = min(cfg.DefaultLimit, cfg.MaxLimit)
	if cfg.RepairLimit <= 0 {
		cfg.RepairLimit = DefaultRepairLimit
	}

	o := &Orchestrator{
		metadata:     make(map[game.ProviderName]provider.MetadataProvider, len(cfg.Metadata)),
		pricing:      cfg.Pricing,
		playtime:     cfg.Playtime,
		critic:       cfg.Critic,
		tracker:      cfg.Tracker,
		cache:        cfg.Cache,
		store:        cfg.Store,
		scorer:       cfg.Scorer,
		matcher:      cfg.Matcher,
		timeout:      cfg.ProviderTimeout,
		defaultLimit: cfg.DefaultLimit,
		maxLimit:     cfg.MaxLimit,
		repairLimit:  cfg.RepairLimit,
		log:          logging.With("orchestrator"),
		stats:        newCounters(),
	}

	for _, p := range cfg.Metadata {
		if p == nil {
			return nil, fmt.Errorf("%w: nil metadata provider", ErrMissingDependency)
		}
		o.metadata[p.Name()] = p
	}
	for _, s := range cfg.External {
		if s == nil {
			return nil, fmt.Errorf("%w: nil external provider", ErrMissingDependency)
		}
		o.external = append(o.external, s)
	}
	slices.SortStableFunc(o.external, func(a, b provider.Searcher) int {
		return rank(game.ExternalOrder, a.Name()) - rank(game.ExternalOrder, b.Name())
	})

	for p, reason := range cfg.Disabled {
		o.tracker.MarkUnavailable(p, reason)
	}

	// Metadata providers are always walked in the fixed fallback order,
	// disabled ones included so their skip is reported.
	for _, p := range game.MetadataOrder {
		if _, ok := o.metadata[p]; ok {
			o.metadataOrder = append(o.metadataOrder, p)
		} else if _, ok := cfg.Disabled[p]; ok {
			o.metadataOrder = append(o.metadataOrder, p)
		}
	}
	for _, p := range cfg.Metadata {
		if !slices.Contains(o.metadataOrder, p.Name()) {
			o.metadataOrder = append(o.metadataOrder, p.Name())
		}
	}
	return o, nil
}

// rank returns p's position in order, or len(order) when absent.
func rank(order []game.ProviderName, p game.ProviderName) int {
	if i := slices.Index(order, p); i >= 0 {
		return i
	}
	return len(order)
}

// MetadataProviders returns the metadata providers in fallback order.
func (o *Orchestrator) MetadataProviders() []game.ProviderName {
	return slices.Clone(o.metadataOrder)
}

// clampLimit applies the default and maximum result limits.
func (o *Orchestrator) clampLimit(limit int) int {
	if limit <= 0 {
		return o.defaultLimit
	}
	return min(limit, o.maxLimit)
}

// run collects per-request provider outcomes. Safe for concurrent use.
type run struct {
	id  string
	log *slog.Logger

	mu       sync.Mutex
	errs     []game.ProviderError
	sources  []game.ProviderName
	answered bool
}

func newRun(id string, log *slog.Logger) *run {
	return &run{id: id, log: log}
}

func (r *run) fail(p game.ProviderName, kind provider.Kind, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := game.ProviderError{Provider: p, Kind: string(kind), Message: msg}
	if !slices.Contains(r.errs, e) {
		r.errs = append(r.errs, e)
	}
}

func (r *run) succeed(p game.ProviderName, contributed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.answered = true
	if contributed && !slices.Contains(r.sources, p) {
		r.sources = append(r.sources, p)
	}
}

func (r *run) snapshot() (errs []game.ProviderError, sources []game.ProviderName, answered bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.errs), slices.Clone(r.sources), r.answered
}
