package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ryanm101/gamefuse/internal/game"
)

// Sentinel errors for common conditions.
var (
	ErrRateLimited   = errors.New("rate limited")
	ErrNotFound      = errors.New("not found")
	ErrMalformed     = errors.New("malformed response")
	ErrUnsupported   = errors.New("operation not supported")
	ErrNoCredentials = errors.New("missing credentials")
)

// Kind classifies a provider failure.
type Kind string

const (
	KindUnavailable Kind = "unavailable" // skipped before dispatch
	KindRateLimited Kind = "rate_limited"
	KindNetwork     Kind = "network"
	KindMalformed   Kind = "malformed"
	KindNoResults   Kind = "no_results"
)

// Error provides context for a failed provider call.
type Error struct {
	Provider   game.ProviderName
	Op         string // Operation that failed (e.g., "search")
	Kind       Kind
	StatusCode int           // HTTP status if known
	RetryAfter time.Duration // Server hint for rate limits
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: status %d: %v", e.Provider, e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError wraps err with provider context.
func NewError(p game.ProviderName, op string, kind Kind, err error) *Error {
	return &Error{Provider: p, Op: op, Kind: kind, Err: err}
}

// Malformed wraps a decode failure.
func Malformed(p game.ProviderName, op string, err error) *Error {
	return &Error{Provider: p, Op: op, Kind: KindMalformed, Err: fmt.Errorf("%w: %v", ErrMalformed, err)}
}

// Classify maps any error returned by an adapter onto a Kind.
// Typed errors win; otherwise timeouts are network errors and the message is
// inspected for rate-limit patterns.
func Classify(err error) Kind {
	if err == nil {
		return ""
	}

	var pe *Error
	if errors.As(err, &pe) && pe.Kind != "" {
		return pe.Kind
	}
	if errors.Is(err, ErrRateLimited) {
		return KindRateLimited
	}
	if errors.Is(err, ErrMalformed) {
		return KindMalformed
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindNetwork
	}
	if looksRateLimited(err.Error()) {
		return KindRateLimited
	}
	return KindNetwork
}

// RetryAfter returns the server-provided backoff hint, if any.
func RetryAfter(err error) time.Duration {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.RetryAfter
	}
	return 0
}

var rateLimitPatterns = []string{
	"429",
	"too many requests",
	"rate limit",
	"rate-limit",
	"quota exceeded",
}

func looksRateLimited(msg string) bool {
	msg = strings.ToLower(msg)
	for _, p := range rateLimitPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// CheckResponse converts a non-2xx HTTP response into a typed Error.
func CheckResponse(p game.ProviderName, op string, resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	e := &Error{Provider: p, Op: op, StatusCode: resp.StatusCode, Kind: KindNetwork}
	switch resp.StatusCode {
	case http.StatusTooManyRequests:
		e.Kind = KindRateLimited
		e.Err = ErrRateLimited
		e.RetryAfter = parseRetryAfter(resp.Header.Get("Retry-After"), time.Now())
	case http.StatusNotFound:
		e.Err = ErrNotFound
	default:
		e.Err = fmt.Errorf("unexpected status: %s", resp.Status)
	}
	return e
}

// parseRetryAfter accepts both delta-seconds and HTTP-date forms.
func parseRetryAfter(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil && t.After(now) {
		return t.Sub(now)
	}
	return 0
}
