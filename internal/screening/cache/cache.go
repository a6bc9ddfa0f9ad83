// Package cache is the TTL lookup cache in front of every connector. One
// implementation serves all source families; the family only selects the
// TTL and namespaces the key.
package cache

import (
	"context"
	"time"

	"screener/internal/screening/models"
)

// Record is one cached lookup. Only Hits changes after a Put.
type Record struct {
	Family    models.SourceFamily
	Key       string
	Payload   []byte
	StoredAt  time.Time
	ExpiresAt time.Time
	Hits      int64
}

// ExpiredAt reports whether the record is stale at now. A record is stale
// from its expiry instant onwards.
func (r Record) ExpiredAt(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// Store is the cache contract. Get returns sentinel.ErrNotFound on a miss
// or an expired entry and counts a hit otherwise. Put replaces whatever is
// stored under the key, expired or not. Both are atomic per key.
type Store interface {
	Get(ctx context.Context, family models.SourceFamily, key string) (*Record, error)
	Put(ctx context.Context, family models.SourceFamily, key string, payload []byte, ttl time.Duration) error
}

// TTLPolicy picks a TTL per family, shorter for negative results.
type TTLPolicy struct {
	Positive map[models.SourceFamily]time.Duration
	Negative map[models.SourceFamily]time.Duration
	Fallback time.Duration
}

// DefaultTTLPolicy orders families by volatility: sanctions change fastest,
// registries slower, identifier validity almost never.
func DefaultTTLPolicy() TTLPolicy {
	return TTLPolicy{
		Positive: map[models.SourceFamily]time.Duration{
			models.FamilySanctions:  12 * time.Hour,
			models.FamilyRegistry:   7 * 24 * time.Hour,
			models.FamilyIdentifier: 21 * 24 * time.Hour,
		},
		Negative: map[models.SourceFamily]time.Duration{
			models.FamilySanctions:  time.Hour,
			models.FamilyRegistry:   24 * time.Hour,
			models.FamilyIdentifier: 72 * time.Hour,
		},
		Fallback: time.Hour,
	}
}

// TTL returns the lifetime for a result of family. Negative results never
// outlive positive ones.
func (p TTLPolicy) TTL(family models.SourceFamily, negative bool) time.Duration {
	pos, ok := p.Positive[family]
	if !ok {
		pos = p.Fallback
	}
	if !negative {
		return pos
	}
	neg, ok := p.Negative[family]
	if !ok || neg > pos {
		return pos
	}
	return neg
}

func storageKey(family models.SourceFamily, key string) string {
	return string(family) + "|" + key
}
