// Package ratelimit provides an in-process sliding-window limiter keyed by
// string. Every key shares the same limit and window.
package ratelimit

import (
	"sync"
	"time"
)

// Result describes the budget after an Allow call.
type Result struct {
	Allowed   bool
	Remaining int
	Limit     int
	ResetAt   time.Time
}

// Limiter admits at most limit events per key in any trailing window.
type Limiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	buckets map[string]*slidingWindow
	now     func() time.Time
}

type slidingWindow struct {
	timestamps []time.Time
}

type Option func(*Limiter)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		if now != nil {
			l.now = now
		}
	}
}

// New returns a limiter allowing limit events per window for each key.
func New(limit int, window time.Duration, opts ...Option) *Limiter {
	l := &Limiter{
		limit:   limit,
		window:  window,
		buckets: make(map[string]*slidingWindow),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow records one event for key if the budget permits it.
func (l *Limiter) Allow(key string) Result {
	return l.AllowN(key, 1)
}

// AllowN records cost events for key if all of them fit in the budget.
// A denied call records nothing.
func (l *Limiter) AllowN(key string, cost int) Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	sw := l.bucket(key)
	sw.cleanup(now, l.window)

	if len(sw.timestamps)+cost > l.limit {
		resetAt := now.Add(l.window)
		if len(sw.timestamps) > 0 {
			resetAt = sw.timestamps[0].Add(l.window)
		}
		return Result{Allowed: false, Remaining: 0, Limit: l.limit, ResetAt: resetAt}
	}

	for range cost {
		sw.timestamps = append(sw.timestamps, now)
	}
	return Result{
		Allowed:   true,
		Remaining: l.limit - len(sw.timestamps),
		Limit:     l.limit,
		ResetAt:   sw.timestamps[0].Add(l.window),
	}
}

// Count returns the events currently inside key's window.
func (l *Limiter) Count(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	sw := l.buckets[key]
	if sw == nil {
		return 0
	}
	sw.cleanup(l.now(), l.window)
	return len(sw.timestamps)
}

// Reset forgets every event recorded for key.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.buckets, key)
}

// cleanup drops timestamps that have left the window.
func (sw *slidingWindow) cleanup(now time.Time, window time.Duration) {
	cutoff := now.Add(-window)
	i := 0
	for ; i < len(sw.timestamps); i++ {
		if sw.timestamps[i].After(cutoff) {
			break
		}
	}
	sw.timestamps = sw.timestamps[i:]
}

// Must be called while holding l.mu.
func (l *Limiter) bucket(key string) *slidingWindow {
	if sw := l.buckets[key]; sw != nil {
		return sw
	}
	sw := &slidingWindow{}
	l.buckets[key] = sw
	return sw
}
