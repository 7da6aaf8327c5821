// Package ratelimit provides a per-key fixed-window counter held in process
// memory. Counts are lost on restart and are not shared between instances.
package ratelimit

import (
	"strings"
	"sync"
	"time"
)

// Limiter decides whether a key may proceed.
type Limiter interface {
	Allow(key string) bool
}

// FixedWindow allows Limit hits per key within each Window.
type FixedWindow struct {
	limit  int
	window time.Duration
	clock  func() time.Time

	mu        sync.Mutex
	store     map[string]entry
	lastSweep time.Time
}

type entry struct {
	count int
	reset time.Time
}

// NewFixedWindow returns nil when limit or window is not positive; a nil
// *FixedWindow allows everything.
func NewFixedWindow(limit int, window time.Duration, clock func() time.Time) *FixedWindow {
	if limit <= 0 || window <= 0 {
		return nil
	}
	if clock == nil {
		clock = time.Now
	}
	return &FixedWindow{
		limit:     limit,
		window:    window,
		clock:     clock,
		store:     make(map[string]entry),
		lastSweep: clock(),
	}
}

// Window returns the configured window length.
func (l *FixedWindow) Window() time.Duration {
	if l == nil {
		return 0
	}
	return l.window
}

// Allow records a hit for key and reports whether it is within the limit.
func (l *FixedWindow) Allow(key string) bool {
	if l == nil {
		return true
	}
	key = strings.TrimSpace(key)
	if key == "" {
		key = "anonymous"
	}
	now := l.clock()

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.store[key]
	if !ok || !now.Before(e.reset) {
		l.store[key] = entry{count: 1, reset: now.Add(l.window)}
		if now.Sub(l.lastSweep) >= l.window {
			l.pruneExpiredLocked(now)
			l.lastSweep = now
		}
		return true
	}

	if e.count >= l.limit {
		return false
	}
	e.count++
	l.store[key] = e
	return true
}

// Len returns the number of tracked keys.
func (l *FixedWindow) Len() int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.store)
}

// pruneExpiredLocked runs at most once per window, so a burst of distinct
// keys costs one sweep rather than one per key.
func (l *FixedWindow) pruneExpiredLocked(now time.Time) {
	for key, e := range l.store {
		if !now.Before(e.reset) {
			delete(l.store, key)
		}
	}
}
