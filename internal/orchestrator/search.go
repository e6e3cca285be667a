package orchestrator

import (
	"context"
	"strconv"
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

// SearchOptions tunes one search. Zero values use the configured defaults.
type SearchOptions struct {
	Limit              int
	IncludeExternal    bool
	SearchAllProviders bool
}

// newSearchRequest validates and normalizes a search.
func (o *Orchestrator) newSearchRequest(query string, opts SearchOptions) (game.SearchRequest, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return game.SearchRequest{}, ErrInvalidRequest
	}
	return game.SearchRequest{
		Query:              q,
		Limit:              o.clampLimit(opts.Limit),
		IncludeExternal:    opts.IncludeExternal,
		SearchAllProviders: opts.SearchAllProviders,
	}, nil
}

func searchKey(req game.SearchRequest) string {
	return cache.Key(cache.KindSearch, req.Query,
		cache.Flag("external", req.IncludeExternal),
		cache.Flag("all", req.SearchAllProviders),
		"limit="+strconv.Itoa(req.Limit))
}

// SearchGamesWithFallback searches the metadata providers in fallback order
// and returns a fused, ranked result set. Provider failures are reported in
// the result's Errors and never returned; the error is non-nil only for an
// empty query.
func (o *Orchestrator) SearchGamesWithFallback(ctx context.Context, query string, opts SearchOptions) (game.SearchResultSet, error) {
	start := time.Now()
	req, err := o.newSearchRequest(query, opts)
	if err != nil {
		return game.SearchResultSet{}, err
	}
	o.stats.request()

	ctx, span := tracing.StartSpan(ctx, "orchestrator.search",
		tracing.WithAttributes(tracing.AttrQuery.String(req.Query)))
	defer span.End()

	key := searchKey(req)
	if v, ok := o.cache.Get(key); ok {
		if rs, ok := v.(game.SearchResultSet); ok {
			tracing.AddSpanAttributes(span, tracing.AttrCacheHit.Bool(true), tracing.AttrResults.Int(len(rs.Results)))
			o.stats.finish(rs.Outcome != game.OutcomeAllFailed)
			metrics.RecordSearchDuration("cache_hit", start)
			return rs.Clone(), nil
		}
	}
	tracing.AddSpanAttributes(span, tracing.AttrCacheHit.Bool(false))

	rn := newRun(uuid.NewString(), o.log)
	rn.log = rn.log.With("request_id", rn.id, "query", req.Query)
	rn.log.Debug("search started", "limit", req.Limit, "external", req.IncludeExternal, "all", req.SearchAllProviders)

	candidates := o.dispatchPrimary(ctx, rn, req)
	if req.IncludeExternal && len(candidates) < req.Limit {
		candidates = append(candidates, o.dispatchExternal(ctx, rn, req)...)
	}

	fused := fusion.DedupeAndMerge(candidates)
	fused = o.restoreDescriptions(ctx, rn, fused)
	repairer := &fusion.Repairer{Matcher: o.matcher, Lookup: o.repairLookup(rn)}
	fused = repairer.RepairAll(ctx, fused, o.metadataOrder, o.repairLimit)

	ranked := o.scorer.Rank(fused, req.Query)
	total := len(ranked)
	if len(ranked) > req.Limit {
		ranked = ranked[:req.Limit]
	}
	o.persistDescriptions(ctx, rn, ranked)

	errs, sources, answered := rn.snapshot()
	rs := game.SearchResultSet{
		Query:         req.Query,
		Results:       ranked,
		SourcesUsed:   sources,
		Errors:        errs,
		TotalResults:  total,
		ElapsedMillis: time.Since(start).Milliseconds(),
		Outcome:       outcome(len(ranked), answered),
	}
	if rs.Results == nil {
		rs.Results = []game.Record{}
	}

	if answered {
		o.cache.Put(key, rs.Clone())
	}

	tracing.AddSpanAttributes(span, tracing.AttrResults.Int(len(rs.Results)))
	if rs.Outcome == game.OutcomeAllFailed {
		rn.log.Warn("search failed on every provider", "errors", len(rs.Errors))
	} else {
		tracing.SetSpanOK(span)
	}
	o.stats.finish(rs.Outcome != game.OutcomeAllFailed)
	metrics.RecordSearchDuration(string(rs.Outcome), start)
	rn.log.Info("search finished", "outcome", rs.Outcome, "results", len(rs.Results), "sources", rs.SourcesUsed, "elapsed_ms", rs.ElapsedMillis)
	return rs, nil
}

func outcome(results int, answered bool) game.Outcome {
	switch {
	case results > 0:
		return game.OutcomeOK
	case answered:
		return game.OutcomeNoResults
	default:
		return game.OutcomeAllFailed
	}
}

// dispatchPrimary walks the metadata providers in order. It stops after the
// first provider whose non-empty batch is entirely complete, unless the
// request asks for every provider.
func (o *Orchestrator) dispatchPrimary(ctx context.Context, rn *run, req game.SearchRequest) []game.Record {
	var candidates []game.Record
	for _, p := range o.metadataOrder {
		if ctx.Err() != nil {
			break
		}
		recs, ok := o.searchRecords(ctx, rn, p, o.metadataSearcher(p), req.Query, req.Limit)
		if !ok {
			continue
		}
		candidates = append(candidates, recs...)
		if !req.SearchAllProviders && len(recs) > 0 && batchComplete(recs) {
			rn.log.Debug("early stop", "provider", p, "results", len(recs))
			break
		}
	}
	return candidates
}

// metadataSearcher returns p's adapter, or nil when p is disabled.
func (o *Orchestrator) metadataSearcher(p game.ProviderName) provider.Searcher {
	if m, ok := o.metadata[p]; ok {
		return m
	}
	return nil
}

func batchComplete(recs []game.Record) bool {
	for _, r := range recs {
		if r.Incomplete() {
			return false
		}
	}
	return true
}

// dispatchExternal queries the external providers concurrently and returns
// their records in provider order. Each branch is best-effort.
func (o *Orchestrator) dispatchExternal(ctx context.Context, rn *run, req game.SearchRequest) []game.Record {
	if len(o.external) == 0 {
		return nil
	}
	ctx, span := tracing.StartSpan(ctx, "orchestrator.external_search")
	defer span.End()

	batches := make([][]game.Record, len(o.external))
	var g errgroup.Group
	for i, s := range o.external {
		g.Go(func() error {
			recs, _ := o.searchRecords(ctx, rn, s.Name(), s, req.Query, req.Limit)
			batches[i] = recs
			return nil
		})
	}
	_ = g.Wait()

	var out []game.Record
	for _, b := range batches {
		out = append(out, b...)
	}
	return out
}

// repairLookup searches one metadata provider by title on behalf of the repair pass.
func (o *Orchestrator) repairLookup(rn *run) fusion.Lookup {
	return func(ctx context.Context, p game.ProviderName, title string) []game.Record {
		recs, _ := o.searchRecords(ctx, rn, p, o.metadataSearcher(p), title, 5)
		return recs
	}
}

// restoreDescriptions fills missing or too-short descriptions from the
// description store. Provenance is left alone: the stored text was not fetched
// in this run, so repair may still ask every other provider.
func (o *Orchestrator) restoreDescriptions(ctx context.Context, rn *run, records []game.Record) []game.Record {
	if o.store == nil {
		return records
	}
	for i, r := range records {
		if !descriptionMissing(r) {
			continue
		}
		d, err := o.store.Get(ctx, fusion.GroupKey(r.Title))
		if err != nil {
			rn.log.Debug("description store read failed", "title", r.Title, "error", err)
			continue
		}
		if d == nil {
			continue
		}
		records[i].Description = d.Text
	}
	return records
}

// persistDescriptions stores complete descriptions for later repairs.
func (o *Orchestrator) persistDescriptions(ctx context.Context, rn *run, records []game.Record) {
	if o.store == nil {
		return
	}
	for _, r := range records {
		if descriptionMissing(r) || len(r.Provenance) == 0 {
			continue
		}
		if err := o.store.Put(ctx, fusion.GroupKey(r.Title), r.Provenance[0], r.Description); err != nil {
			rn.log.Debug("description store write failed", "title", r.Title, "error", err)
		}
	}
}

func descriptionMissing(r game.Record) bool {
	_, desc, _ := r.Missing()
	return desc
}
