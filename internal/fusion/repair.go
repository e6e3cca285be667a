package fusion

import (
	"context"

	"github.com/ryanm101/gamefuse/internal/game"
)

// Lookup runs a single-title search against one provider. Implementations
// record their own failures; a nil slice means nothing usable came back.
type Lookup func(ctx context.Context, p game.ProviderName, title string) []game.Record

// Repairer fills missing image, description and genres from providers that
// have not contributed to a record yet.
type Repairer struct {
	Matcher *Matcher
	Lookup  Lookup
}

// NewRepairer creates a repairer using the default matcher.
func NewRepairer(lookup Lookup) *Repairer {
	return &Repairer{Matcher: NewMatcher(), Lookup: lookup}
}

// Repair queries suppliers in order until r is complete. Suppliers already in
// r's provenance are skipped. The returned record is r when nothing was found.
func (rp *Repairer) Repair(ctx context.Context, r game.Record, suppliers []game.ProviderName) game.Record {
	for _, p := range suppliers {
		if !r.Incomplete() {
			break
		}
		if ctx.Err() != nil {
			break
		}
		if r.HasProvider(p) {
			continue
		}

		candidates := rp.Lookup(ctx, p, r.Title)
		if len(candidates) == 0 {
			continue
		}
		if m := rp.Matcher.Best(r.Title, candidates); m != nil {
			r = MergeFields(r, m.Record)
		}
	}
	return r
}

// RepairAll repairs the first limit incomplete records in place order.
// Complete records are passed through untouched. limit <= 0 means no limit.
func (rp *Repairer) RepairAll(ctx context.Context, records []game.Record, suppliers []game.ProviderName, limit int) []game.Record {
	out := make([]game.Record, len(records))
	copy(out, records)

	repaired := 0
	for i := range out {
		if limit > 0 && repaired >= limit {
			break
		}
		if !out[i].Incomplete() {
			continue
		}
		out[i] = rp.Repair(ctx, out[i], suppliers)
		repaired++
	}
	return out
}
