package health

import "time"

// Window is a fixed-window request counter.
type Window struct {
	RequestCount   int           `json:"requestCount"`
	WindowStart    time.Time     `json:"windowStart"`
	WindowDuration time.Duration `json:"windowDuration"`
	MaxRequests    int           `json:"maxRequests,omitempty"` // 0 = unlimited
}

func newWindow(start time.Time, l Limit) Window {
	return Window{WindowStart: start, WindowDuration: l.Window, MaxRequests: l.MaxRequests}
}

// take rolls the window if it elapsed and counts one request.
// It returns false, without counting, when the quota is exhausted.
func (w *Window) take(now time.Time) bool {
	if w.WindowDuration > 0 && now.Sub(w.WindowStart) >= w.WindowDuration {
		w.WindowStart = now
		w.RequestCount = 0
	}
	if w.MaxRequests > 0 && w.RequestCount >= w.MaxRequests {
		return false
	}
	w.RequestCount++
	return true
}

func (w *Window) resetAt() time.Time {
	return w.WindowStart.Add(w.WindowDuration)
}
