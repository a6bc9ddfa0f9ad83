package cache

import (
	"bytes"
	"context"
	"sync"
	"time"

	"screener/internal/screening/models"
	"screener/pkg/platform/sentinel"
)

// sweepEvery is the number of puts between expired-entry sweeps.
const sweepEvery = 256

// InMemory is a process-local Store for tests and single-node runs. Each
// entry is replaced wholesale under the lock, so readers never see a partial
// record. Expired entries are dropped on read and by a sweep every
// sweepEvery puts, so keys that are never read again do not accumulate.
type InMemory struct {
	mu      sync.Mutex
	records map[string]*Record
	puts    int
	now     func() time.Time
}

type MemoryOption func(*InMemory)

// WithMemoryClock overrides the expiry clock.
func WithMemoryClock(now func() time.Time) MemoryOption {
	return func(m *InMemory) {
		if now != nil {
			m.now = now
		}
	}
}

func NewInMemory(opts ...MemoryOption) *InMemory {
	m := &InMemory{
		records: make(map[string]*Record),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *InMemory) Get(_ context.Context, family models.SourceFamily, key string) (*Record, error) {
	k := storageKey(family, key)
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[k]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if rec.ExpiredAt(now) {
		delete(m.records, k)
		return nil, sentinel.ErrNotFound
	}
	rec.Hits++
	out := *rec
	out.Payload = bytes.Clone(rec.Payload)
	return &out, nil
}

func (m *InMemory) Put(_ context.Context, family models.SourceFamily, key string, payload []byte, ttl time.Duration) error {
	now := m.now()
	rec := &Record{
		Family:    family,
		Key:       key,
		Payload:   bytes.Clone(payload),
		StoredAt:  now,
		ExpiresAt: now.Add(ttl),
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[storageKey(family, key)] = rec
	m.puts++
	if m.puts%sweepEvery == 0 {
		m.sweepLocked(now)
	}
	return nil
}

func (m *InMemory) sweepLocked(now time.Time) {
	for k, rec := range m.records {
		if rec.ExpiredAt(now) {
			delete(m.records, k)
		}
	}
}

// Len returns the number of stored entries, including expired ones not yet
// swept.
func (m *InMemory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}
