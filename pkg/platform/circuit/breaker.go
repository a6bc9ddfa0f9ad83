// Package circuit implements a consecutive-failure circuit breaker used to
// stop hammering upstream sources that keep failing.
package circuit

import (
	"sync"
	"time"
)

// State is the breaker position.
type State int

const (
	StateClosed State = iota
	StateOpen
)

func (s State) String() string {
	if s == StateOpen {
		return "open"
	}
	return "closed"
}

// Change reports a state transition caused by a Record call.
type Change struct {
	Opened bool
	Closed bool
}

// Breaker opens after failureThreshold consecutive failures and closes
// again after successThreshold consecutive successes. While open, Allow
// lets one probe through per cooldown window.
type Breaker struct {
	name             string
	failureThreshold int
	successThreshold int
	cooldown         time.Duration
	now              func() time.Time

	mu        sync.Mutex
	state     State
	failures  int
	successes int
	openedAt  time.Time
	lastProbe time.Time
}

type Option func(*Breaker)

func WithFailureThreshold(n int) Option {
	return func(b *Breaker) {
		if n > 0 {
			b.failureThreshold = n
		}
	}
}

func WithSuccessThreshold(n int) Option {
	return func(b *Breaker) {
		if n > 0 {
			b.successThreshold = n
		}
	}
}

// WithCooldown sets how long an open breaker rejects calls before letting a
// probe through.
func WithCooldown(d time.Duration) Option {
	return func(b *Breaker) {
		if d >= 0 {
			b.cooldown = d
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(b *Breaker) {
		if now != nil {
			b.now = now
		}
	}
}

func New(name string, opts ...Option) *Breaker {
	b := &Breaker{
		name:             name,
		failureThreshold: 5,
		successThreshold: 1,
		cooldown:         30 * time.Second,
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Breaker) Name() string { return b.name }

func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Breaker) IsOpen() bool {
	return b.State() == StateOpen
}

// Allow reports whether a call should be attempted now.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateClosed {
		return true
	}
	now := b.now()
	since := b.openedAt
	if b.lastProbe.After(since) {
		since = b.lastProbe
	}
	if now.Sub(since) < b.cooldown {
		return false
	}
	b.lastProbe = now
	return true
}

// RecordFailure counts a failed call. It returns true when callers should
// treat the dependency as down.
func (b *Breaker) RecordFailure() (bool, Change) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.successes = 0
	if b.state == StateOpen {
		return true, Change{}
	}
	b.failures++
	if b.failures >= b.failureThreshold {
		b.state = StateOpen
		b.openedAt = b.now()
		b.failures = 0
		return true, Change{Opened: true}
	}
	return false, Change{}
}

// RecordSuccess counts a successful call. It returns true when the breaker
// is closed after the call.
func (b *Breaker) RecordSuccess() (bool, Change) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures = 0
	if b.state == StateClosed {
		return true, Change{}
	}
	b.successes++
	if b.successes >= b.successThreshold {
		b.state = StateClosed
		b.successes = 0
		return true, Change{Closed: true}
	}
	return false, Change{}
}

func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = StateClosed
	b.failures = 0
	b.successes = 0
	b.openedAt = time.Time{}
	b.lastProbe = time.Time{}
}
