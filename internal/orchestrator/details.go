package orchestrator

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ryanm101/gamefuse/internal/cache"
	"github.com/ryanm101/gamefuse/internal/fusion"
	"github.com/ryanm101/gamefuse/internal/game"
	"github.com/ryanm101/gamefuse/internal/metrics"
	"github.com/ryanm101/gamefuse/internal/provider"
	"github.com/ryanm101/gamefuse/internal/tracing"
)

// DetailsOptions tunes one details lookup.
type DetailsOptions struct {
	IncludeExternal       bool
	IncludePricing        bool
	IncludeCompletionTime bool
	IncludeCriticScore    bool
	// Title is used to find the game on other providers when the ID's own
	// provider cannot serve it.
	Title string
}

// DefaultDetailsOptions enables every enrichment.
func DefaultDetailsOptions() DetailsOptions {
	return DetailsOptions{
		IncludeExternal:       true,
		IncludePricing:        true,
		IncludeCompletionTime: true,
		IncludeCriticScore:    true,
	}
}

func detailsKey(id string, opts DetailsOptions) string {
	ext := opts.IncludeExternal
	return cache.Key(cache.KindDetails, id,
		cache.Flag("pricing", ext && opts.IncludePricing),
		cache.Flag("playtime", ext && opts.IncludeCompletionTime),
		cache.Flag("critic", ext && opts.IncludeCriticScore))
}

// GetGameDetailsWithFallback loads one game by its "<provider>_<nativeId>" ID,
// falling back to the other metadata providers by title, and enriches it with
// pricing, completion time and critic score. Enrichment failures are reported
// in the result's Errors; the error is non-nil only for an empty ID.
func (o *Orchestrator) GetGameDetailsWithFallback(ctx context.Context, gameID string, opts DetailsOptions) (game.DetailsResult, error) {
	start := time.Now()
	gameID = strings.TrimSpace(gameID)
	if gameID == "" {
		return game.DetailsResult{}, ErrInvalidRequest
	}
	opts.Title = strings.TrimSpace(opts.Title)
	o.stats.request()
	defer func() { metrics.DetailsDuration.Observe(time.Since(start).Seconds()) }()

	ctx, span := tracing.StartSpan(ctx, "orchestrator.details",
		tracing.WithAttributes(tracing.AttrGameID.String(gameID)))
	defer span.End()

	key := detailsKey(gameID, opts)
	if v, ok := o.cache.Get(key); ok {
		if d, ok := v.(game.DetailsResult); ok {
			tracing.AddSpanAttributes(span, tracing.AttrCacheHit.Bool(true))
			o.stats.finish(true)
			return d.Clone(), nil
		}
	}
	tracing.AddSpanAttributes(span, tracing.AttrCacheHit.Bool(false))

	rn := newRun(uuid.NewString(), o.log)
	rn.log = rn.log.With("request_id", rn.id, "game_id", gameID)

	data := o.loadDetails(ctx, rn, gameID, opts.Title)
	if data != nil && data.Incomplete() {
		restored := o.restoreDescriptions(ctx, rn, []game.Record{*data})
		repairer := &fusion.Repairer{Matcher: o.matcher, Lookup: o.repairLookup(rn)}
		r := repairer.Repair(ctx, restored[0], o.metadataOrder)
		data = &r
	}

	result := game.DetailsResult{ExternalData: map[string]any{}}
	if data != nil && opts.IncludeExternal {
		o.enrich(ctx, rn, data, opts, &result)
	}
	if data != nil {
		o.persistDescriptions(ctx, rn, []game.Record{*data})
	}

	errs, sources, _ := rn.snapshot()
	result.GameData = data
	for _, p := range sources {
		result.Sources = append(result.Sources, string(p))
	}
	if result.Sources == nil {
		result.Sources = []string{}
	}
	result.Errors = make([]game.DetailsError, 0, len(errs))
	for _, e := range errs {
		result.Errors = append(result.Errors, game.DetailsError{Type: errorType(e.Provider), Message: string(e.Provider) + ": " + e.Message})
	}
	if data == nil {
		result.Errors = append(result.Errors, game.DetailsError{Type: "metadata", Message: "game not found: " + gameID})
	}
	result.LoadTimeMillis = time.Since(start).Milliseconds()

	// Misses are not cached so a later attempt can still find the game.
	if data != nil {
		o.cache.Put(key, result.Clone())
		tracing.SetSpanOK(span)
	}
	o.stats.finish(data != nil)
	rn.log.Info("details finished", "found", data != nil, "sources", result.Sources, "errors", len(result.Errors), "elapsed_ms", result.LoadTimeMillis)
	return result, nil
}

// errorType names the DetailsResult error category of provider p.
func errorType(p game.ProviderName) string {
	switch p {
	case game.ProviderCheapShark:
		return game.ExternalPricing
	case game.ProviderHLTB:
		return game.ExternalCompletionTime
	case game.ProviderMetacritic:
		return game.ExternalCriticScore
	default:
		return "metadata"
	}
}

// loadDetails tries the provider named by the ID, then the other metadata
// providers in order using the title hint.
func (o *Orchestrator) loadDetails(ctx context.Context, rn *run, gameID, title string) *game.Record {
	owner, nativeID, ok := game.SplitID(gameID)
	if ok {
		if m, found := o.metadata[owner]; found {
			if r := o.detailsFrom(ctx, rn, owner, m, nativeID); r != nil {
				return r
			}
		}
	}

	if title == "" {
		rn.log.Debug("no title hint for fallback", "owner", owner)
		return nil
	}
	for _, p := range o.metadataOrder {
		if p == owner {
			continue
		}
		if ctx.Err() != nil {
			return nil
		}
		if r := o.findByTitle(ctx, rn, p, title); r != nil {
			return r
		}
	}
	return nil
}

// detailsFrom fetches one record from provider p.
func (o *Orchestrator) detailsFrom(ctx context.Context, rn *run, p game.ProviderName, d provider.Detailer, nativeID string) *game.Record {
	r, _ := invoke(ctx, o, rn, p, "details", func(ctx context.Context) (*game.Record, error) {
		r, err := d.Details(ctx, nativeID)
		if errors.Is(err, provider.ErrNotFound) {
			return nil, nil
		}
		if r != nil && (r.ID == "" || len(r.Provenance) == 0) {
			return nil, provider.Malformed(p, "details", errors.New("record without id or provenance"))
		}
		return r, err
	}, func(r *game.Record) bool { return r != nil })
	return r
}

// findByTitle searches p for title and loads the details of the best match.
func (o *Orchestrator) findByTitle(ctx context.Context, rn *run, p game.ProviderName, title string) *game.Record {
	m, ok := o.metadata[p]
	if !ok {
		return nil
	}
	recs, ok := o.searchRecords(ctx, rn, p, m, title, 5)
	if !ok {
		return nil
	}
	best := o.matcher.Best(title, recs)
	if best == nil {
		return nil
	}

	_, nativeID, _ := game.SplitID(best.Record.ID)
	if r := o.detailsFrom(ctx, rn, p, m, nativeID); r != nil {
		merged := fusion.MergeFields(*r, best.Record)
		return &merged
	}
	r := best.Record
	return &r
}

// enrich fans out to the pricing, completion-time and critic-score sources.
// Every branch is best-effort; data is updated after all branches finish.
func (o *Orchestrator) enrich(ctx context.Context, rn *run, data *game.Record, opts DetailsOptions, out *game.DetailsResult) {
	ctx, span := tracing.StartSpan(ctx, "orchestrator.enrich")
	defer span.End()

	title := data.Title
	var (
		price    *game.PriceInfo
		playtime *game.Playtime
		critic   *game.CriticScore
	)

	var g errgroup.Group
	if opts.IncludePricing && o.pricing != nil {
		steamAppID := data.SteamAppID
		g.Go(func() error {
			price, _ = invoke(ctx, o, rn, o.pricing.Name(), "price", func(ctx context.Context) (*game.PriceInfo, error) {
				return o.pricing.Price(ctx, title, steamAppID)
			}, func(p *game.PriceInfo) bool { return p != nil })
			return nil
		})
	}
	if opts.IncludeCompletionTime && o.playtime != nil {
		g.Go(func() error {
			playtime, _ = invoke(ctx, o, rn, o.playtime.Name(), "completion_time", func(ctx context.Context) (*game.Playtime, error) {
				return o.playtime.CompletionTime(ctx, title)
			}, func(p *game.Playtime) bool { return p != nil })
			return nil
		})
	}
	if opts.IncludeCriticScore && o.critic != nil {
		g.Go(func() error {
			critic, _ = invoke(ctx, o, rn, o.critic.Name(), "critic_score", func(ctx context.Context) (*game.CriticScore, error) {
				return o.critic.CriticScore(ctx, title)
			}, func(c *game.CriticScore) bool { return c != nil })
			return nil
		})
	}
	_ = g.Wait()

	if price != nil {
		out.ExternalData[game.ExternalPricing] = *price
	}
	if playtime != nil {
		out.ExternalData[game.ExternalCompletionTime] = *playtime
	}
	if critic != nil {
		out.ExternalData[game.ExternalCriticScore] = *critic
		if data.MetacriticScore == nil && critic.Metascore > 0 {
			*data = fusion.MergeFields(*data, game.Record{
				MetacriticScore: &critic.Metascore,
				Provenance:      []game.ProviderName{o.critic.Name()},
			})
		}
	}
}
