// Package health tracks per-provider availability and rate-limit windows.
package health

import (
	"slices"
	"sync"
	"time"

	"github.com/ryanm101/gamefuse/internal/game"
)

// Status is the availability state of a provider.
type Status string

const (
	StatusAvailable   Status = "available"
	StatusRateLimited Status = "rate_limited"
	StatusError       Status = "error"
	StatusUnavailable Status = "unavailable"
)

// Default rate-limit windows per provider.
var DefaultWindows = map[game.ProviderName]time.Duration{
	game.ProviderRAWG:       60 * time.Second,
	game.ProviderIGDB:       60 * time.Second,
	game.ProviderGiantBomb:  time.Hour,
	game.ProviderCheapShark: time.Second,
	game.ProviderHLTB:       2 * time.Second,
	game.ProviderMetacritic: time.Second,
}

// fallbackWindow applies to providers missing from the configured windows.
const fallbackWindow = 60 * time.Second

// Limit configures the rate window of one provider.
type Limit struct {
	Window      time.Duration // Rate-limit window and rate_limited cool-down
	MaxRequests int           // Requests allowed per window; 0 means unlimited
}

// State is a snapshot of one provider's health.
type State struct {
	Name           game.ProviderName `json:"name"`
	Status         Status            `json:"status"`
	Window         Window            `json:"rateLimitWindow"`
	NextEligibleAt time.Time         `json:"nextEligibleAt,omitzero"`
	LastError      string            `json:"lastError,omitempty"`
}

// Tracker holds health state for a fixed set of providers.
// It is safe for concurrent use.
type Tracker struct {
	mu     sync.Mutex
	states map[game.ProviderName]*State
	order  []game.ProviderName
	limits map[game.ProviderName]Limit
	now    func() time.Time
}

// Option customizes a Tracker.
type Option func(*Tracker)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// WithLimits overrides windows and quotas per provider.
func WithLimits(limits map[game.ProviderName]Limit) Option {
	return func(t *Tracker) {
		for p, l := range limits {
			t.limits[p] = l
		}
	}
}

// NewTracker creates a tracker with every provider initially available.
func NewTracker(providers []game.ProviderName, opts ...Option) *Tracker {
	t := &Tracker{
		states: make(map[game.ProviderName]*State, len(providers)),
		limits: make(map[game.ProviderName]Limit, len(providers)),
		now:    time.Now,
	}
	for p, w := range DefaultWindows {
		t.limits[p] = Limit{Window: w}
	}
	for _, opt := range opts {
		opt(t)
	}

	start := t.now()
	for _, p := range providers {
		if _, ok := t.states[p]; ok {
			continue
		}
		t.order = append(t.order, p)
		t.states[p] = &State{
			Name:   p,
			Status: StatusAvailable,
			Window: newWindow(start, t.limitFor(p)),
		}
	}
	return t
}

func (t *Tracker) limitFor(p game.ProviderName) Limit {
	l, ok := t.limits[p]
	if !ok || l.Window <= 0 {
		l.Window = fallbackWindow
	}
	return l
}

// state returns the state for p, registering unknown providers lazily.
// Caller must hold t.mu.
func (t *Tracker) state(p game.ProviderName) *State {
	s, ok := t.states[p]
	if !ok {
		s = &State{Name: p, Status: StatusAvailable, Window: newWindow(t.now(), t.limitFor(p))}
		t.states[p] = s
		t.order = append(t.order, p)
	}
	return s
}

// availableLocked implements the availability rule. Caller must hold t.mu.
func availableLocked(s *State, now time.Time) bool {
	switch s.Status {
	case StatusAvailable, StatusError:
		return true
	case StatusRateLimited:
		return !now.Before(s.NextEligibleAt)
	default:
		return false
	}
}

// IsAvailable reports whether p may be dispatched to right now.
// Errors are advisory and never block; rate limits block until NextEligibleAt.
func (t *Tracker) IsAvailable(p game.ProviderName) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return availableLocked(t.state(p), t.now())
}

// Admit checks availability and counts the request against the provider's
// window in one step. When the quota is exhausted the provider is marked
// rate_limited until the window ends and the request is refused.
func (t *Tracker) Admit(p game.ProviderName) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	s := t.state(p)
	if !availableLocked(s, now) {
		return false
	}
	if !s.Window.take(now) {
		s.Status = StatusRateLimited
		s.NextEligibleAt = s.Window.resetAt()
		return false
	}
	return true
}

// RecordSuccess marks p available.
func (t *Tracker) RecordSuccess(p game.ProviderName) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.state(p)
	if s.Status == StatusUnavailable {
		return
	}
	s.Status = StatusAvailable
	s.NextEligibleAt = time.Time{}
	s.LastError = ""
}

// RecordError marks p as errored. The provider stays eligible for the next request.
func (t *Tracker) RecordError(p game.ProviderName, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.state(p)
	if s.Status == StatusUnavailable {
		return
	}
	s.Status = StatusError
	if err != nil {
		s.LastError = err.Error()
	}
}

// RecordRateLimited blocks p for its configured window, or for retryAfter
// when the provider asked for longer.
func (t *Tracker) RecordRateLimited(p game.ProviderName, retryAfter time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.state(p)
	if s.Status == StatusUnavailable {
		return
	}
	wait := t.limitFor(p).Window
	if retryAfter > wait {
		wait = retryAfter
	}
	s.Status = StatusRateLimited
	s.NextEligibleAt = t.now().Add(wait)
	s.LastError = "rate limited"
}

// MarkUnavailable disables p until Reset, e.g. when credentials are missing.
func (t *Tracker) MarkUnavailable(p game.ProviderName, reason string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.state(p)
	s.Status = StatusUnavailable
	s.LastError = reason
}

// Reset clears rate limits and errors for every provider and restarts windows.
// Providers marked unavailable stay unavailable.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	for _, p := range t.order {
		s := t.states[p]
		s.Window = newWindow(now, t.limitFor(p))
		s.NextEligibleAt = time.Time{}
		if s.Status != StatusUnavailable {
			s.Status = StatusAvailable
			s.LastError = ""
		}
	}
}

// Get returns a copy of p's state.
func (t *Tracker) Get(p game.ProviderName) State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return *t.state(p)
}

// Snapshot returns copies of all states in registration order.
func (t *Tracker) Snapshot() []State {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]State, 0, len(t.order))
	for _, p := range t.order {
		out = append(out, *t.states[p])
	}
	return out
}

// Providers returns the registered provider names in registration order.
func (t *Tracker) Providers() []game.ProviderName {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.order)
}
