// Package ratelimit caps how many downloads a user can start per window.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

const maxEntries = 100000

// Limiter is a sliding-window counter keyed by user.
type Limiter struct {
	max    int
	window time.Duration
	now    func() time.Time

	mu    sync.Mutex
	store map[string][]time.Time
}

// New returns a limiter allowing max events per window. max <= 0 disables
// limiting.
func New(max int, window time.Duration) *Limiter {
	return &Limiter{
		max:    max,
		window: window,
		now:    time.Now,
		store:  make(map[string][]time.Time),
	}
}

// Allow records an event for key if it fits in the window. resetIn is how
// long until the oldest event expires when the call is refused.
func (l *Limiter) Allow(key string) (allowed bool, remaining int, resetIn time.Duration) {
	if l.max <= 0 {
		return true, 0, 0
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	filtered := prune(l.store[key], now.Add(-l.window))

	if len(filtered) >= l.max {
		l.store[key] = filtered
		return false, 0, filtered[0].Add(l.window).Sub(now)
	}

	if _, known := l.store[key]; !known && len(l.store) >= maxEntries {
		return false, 0, l.window
	}

	filtered = append(filtered, now)
	l.store[key] = filtered
	return true, l.max - len(filtered), 0
}

// Cleanup drops keys with no events inside the window.
func (l *Limiter) Cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()
	windowStart := l.now().Add(-l.window)
	for key, events := range l.store {
		filtered := prune(events, windowStart)
		if len(filtered) == 0 {
			delete(l.store, key)
		} else {
			l.store[key] = filtered
		}
	}
}

// StartCleanup runs Cleanup once a minute until ctx is done.
func (l *Limiter) StartCleanup(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(60 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				l.Cleanup()
			}
		}
	}()
}

func prune(events []time.Time, windowStart time.Time) []time.Time {
	filtered := events[:0]
	for _, t := range events {
		if t.After(windowStart) {
			filtered = append(filtered, t)
		}
	}
	return filtered
}
