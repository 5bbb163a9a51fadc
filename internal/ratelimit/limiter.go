package ratelimit

import (
	"fmt"
	"sync"
	"time"
)

const windowSeconds = 60

// Error is returned when a key exceeds its per-minute quota.
type Error struct {
	Limit      int
	RetryAfter int // seconds until the window resets, always >= 1
}

func (e *Error) Error() string {
	return fmt.Sprintf("rate limit exceeded: %d requests/minute", e.Limit)
}

type window struct {
	count int
	start time.Time
}

// Limiter tracks request counts per key within a fixed one-minute window.
type Limiter struct {
	mu      sync.Mutex
	windows map[string]window

	// now is the clock; overridable in tests.
	now func() time.Time
}

// New returns an empty Limiter.
func New() *Limiter {
	return &Limiter{
		windows: make(map[string]window),
		now:     time.Now,
	}
}

// Check admits or rejects one request for keyID under the given
// per-minute limit. The check-then-increment sequence runs inside a
// single critical section, so two concurrent requests can never both
// take the last slot.
func (l *Limiter) Check(keyID string, limit int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[keyID]
	elapsed := now.Sub(w.start)

	// A fresh key, a completed window, or negative elapsed time from
	// clock skew all start a new window.
	if !ok || elapsed >= windowSeconds*time.Second || elapsed < 0 {
		l.windows[keyID] = window{count: 1, start: now}
		return nil
	}

	if w.count >= limit {
		remaining := windowSeconds - int(elapsed/time.Second)
		if remaining < 1 {
			remaining = 1
		}
		return &Error{Limit: limit, RetryAfter: remaining}
	}

	w.count++
	l.windows[keyID] = w
	return nil
}

// ResetKey clears the counter for a single key.
func (l *Limiter) ResetKey(keyID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.windows, keyID)
}

// ClearAll clears every counter. Intended for tests and admin resets.
func (l *Limiter) ClearAll() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.windows = make(map[string]window)
}
