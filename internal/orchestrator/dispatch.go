package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/ryanm101/gamefuse/internal/game"
	"github.com/ryanm101/gamefuse/internal/health"
	"github.com/ryanm101/gamefuse/internal/metrics"
	"github.com/ryanm101/gamefuse/internal/provider"
	"github.com/ryanm101/gamefuse/internal/tracing"
)

const outcomeSkipped = "skipped"

// invoke runs one provider call under the tracker, a per-call timeout and a
// span. Failures are recorded on the run and never returned: ok is false when
// the provider was skipped or failed.
func invoke[T any](ctx context.Context, o *Orchestrator, rn *run, p game.ProviderName, op string,
	call func(context.Context) (T, error), contributed func(T) bool) (result T, ok bool) {

	if !o.tracker.Admit(p) {
		st := o.tracker.Get(p)
		msg := "provider unavailable"
		if st.Status == health.StatusRateLimited {
			msg = "rate limited until " + st.NextEligibleAt.UTC().Format(time.RFC3339)
		} else if st.LastError != "" {
			msg = st.LastError
		}
		rn.fail(p, provider.KindUnavailable, msg)
		o.stats.skipped(p)
		metrics.ProviderRequests.WithLabelValues(string(p), outcomeSkipped).Inc()
		rn.log.Debug("provider skipped", "provider", p, "op", op, "status", st.Status)
		return result, false
	}

	callCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	callCtx, span := tracing.StartSpan(callCtx, "provider."+op,
		tracing.WithAttributes(tracing.AttrProvider.String(string(p))))
	defer span.End()

	start := time.Now()
	result, err := await(callCtx, call)
	if callCtx.Err() != nil && ctx.Err() == nil {
		// Timed out, whether or not the adapter noticed.
		var zero T
		result, err = zero, provider.NewError(p, op, provider.KindNetwork, callCtx.Err())
	}
	kind := o.observe(p, err)
	metrics.RecordProviderCall(string(p), outcomeLabel(kind), start)

	if err != nil {
		rn.fail(p, kind, err.Error())
		tracing.RecordError(span, err)
		rn.log.Warn("provider call failed", "provider", p, "op", op, "kind", kind, "error", err)
		return result, false
	}

	rn.succeed(p, contributed(result))
	tracing.SetSpanOK(span)
	return result, true
}

type callResult[T any] struct {
	val T
	err error
}

// await runs call in its own goroutine and returns when it finishes or ctx is
// done. Some clients (igdb, colly) ignore ctx once a request is on the wire;
// their goroutine is abandoned and ends with the HTTP client timeout.
func await[T any](ctx context.Context, call func(context.Context) (T, error)) (T, error) {
	done := make(chan callResult[T], 1)
	go func() {
		v, err := call(ctx)
		done <- callResult[T]{v, err}
	}()
	select {
	case r := <-done:
		return r.val, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// observe updates tracker, metrics and counters for one finished call and
// returns the error kind, "" on success.
func (o *Orchestrator) observe(p game.ProviderName, err error) provider.Kind {
	kind := provider.Classify(err)
	switch kind {
	case "", provider.KindNoResults:
		o.tracker.RecordSuccess(p)
		o.stats.success(p)
	case provider.KindRateLimited:
		o.tracker.RecordRateLimited(p, provider.RetryAfter(err))
		o.stats.rateLimited(p)
	case provider.KindUnavailable:
		o.tracker.MarkUnavailable(p, err.Error())
		o.stats.failure(p)
	default:
		o.tracker.RecordError(p, err)
		o.stats.failure(p)
	}
	metrics.ProviderStatus.WithLabelValues(string(p)).Set(metrics.StatusValue(string(o.tracker.Get(p).Status)))
	return kind
}

func outcomeLabel(kind provider.Kind) string {
	if kind == "" {
		return "success"
	}
	return string(kind)
}

// searchRecords searches provider p through s; a not-found error counts as an
// empty answer. A nil s reports p unavailable.
func (o *Orchestrator) searchRecords(ctx context.Context, rn *run, p game.ProviderName, s provider.Searcher, query string, limit int) ([]game.Record, bool) {
	return invoke(ctx, o, rn, p, "search", func(ctx context.Context) ([]game.Record, error) {
		if s == nil {
			return nil, provider.NewError(p, "search", provider.KindUnavailable, provider.ErrNoCredentials)
		}
		recs, err := s.Search(ctx, query, limit)
		if errors.Is(err, provider.ErrNotFound) {
			return nil, nil
		}
		return valid(recs), err
	}, func(recs []game.Record) bool { return len(recs) > 0 })
}

// valid drops records that would break result-set invariants.
func valid(recs []game.Record) []game.Record {
	out := recs[:0:0]
	for _, r := range recs {
		if r.ID == "" || r.Title == "" || len(r.Provenance) == 0 {
			continue
		}
		out = append(out, r)
	}
	return out
}
