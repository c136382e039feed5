package ratelimit

import (
	"fmt"
	"sync"
	"time"
)

// CheckResult is the outcome of a rate limit check.
type CheckResult struct {
	Exceeded bool
	Key      string
	Current  int
	Limit    int
	Reason   string
}

type window struct {
	start time.Time
	count int
}

// Tracker counts events per key in fixed windows. Safe for concurrent use.
type Tracker struct {
	mu      sync.Mutex
	windows map[string]*window
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{windows: make(map[string]*window)}
}

// Allow checks key against limit and, when it passes, counts the event.
// A disabled limit always passes and is not tracked.
func (t *Tracker) Allow(key string, limit *Limit, now time.Time) CheckResult {
	if !limit.Enabled() {
		return CheckResult{Key: key}
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	w := t.current(key, limit, now)
	if w.count >= limit.MaxEvents {
		return CheckResult{
			Exceeded: true,
			Key:      key,
			Current:  w.count,
			Limit:    limit.MaxEvents,
			Reason: fmt.Sprintf("rate limit exceeded: %d/%d events in %s window",
				w.count, limit.MaxEvents, limit.Window),
		}
	}
	w.count++
	return CheckResult{Key: key, Current: w.count, Limit: limit.MaxEvents}
}

// current must be called with mu held.
func (t *Tracker) current(key string, limit *Limit, now time.Time) *window {
	w, ok := t.windows[key]
	if !ok {
		w = &window{start: now}
		t.windows[key] = w
		return w
	}
	if limit.Enabled() && now.Sub(w.start) >= limit.Window {
		w.start = now
		w.count = 0
	}
	return w
}
