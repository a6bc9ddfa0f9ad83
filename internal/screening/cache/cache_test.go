package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"screener/internal/screening/models"
	"screener/pkg/platform/sentinel"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestInMemoryTTLBoundary(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	store := NewInMemory(WithMemoryClock(clock.Now))
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, models.FamilySanctions, "k", []byte("v"), time.Hour))

	clock.Advance(time.Hour - time.Nanosecond)
	rec, err := store.Get(ctx, models.FamilySanctions, "k")
	require.NoError(t, err, "entry is served just before expiry")
	assert.Equal(t, []byte("v"), rec.Payload)

	clock.Advance(time.Nanosecond)
	_, err = store.Get(ctx, models.FamilySanctions, "k")
	assert.True(t, errors.Is(err, sentinel.ErrNotFound), "entry is absent at exactly write time + ttl")
}

func TestInMemorySweepsExpiredEntries(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	store := NewInMemory(WithMemoryClock(clock.Now))
	ctx := context.Background()

	for i := range 10 {
		require.NoError(t, store.Put(ctx, models.FamilySanctions, fmt.Sprintf("stale-%d", i), []byte("v"), time.Hour))
	}
	clock.Advance(2 * time.Hour)
	assert.Equal(t, 10, store.Len(), "expired entries linger until a sweep")

	for i := range sweepEvery - 10 {
		require.NoError(t, store.Put(ctx, models.FamilySanctions, fmt.Sprintf("fresh-%d", i), []byte("v"), time.Hour))
	}
	assert.Equal(t, sweepEvery-10, store.Len(), "unread expired entries are swept")

	_, err := store.Get(ctx, models.FamilySanctions, "fresh-0")
	require.NoError(t, err)
}

func TestInMemoryHitsDoNotTouchPayload(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, models.FamilyRegistry, "k", []byte("payload"), time.Hour))

	first, err := store.Get(ctx, models.FamilyRegistry, "k")
	require.NoError(t, err)
	first.Payload[0] = 'X'

	second, err := store.Get(ctx, models.FamilyRegistry, "k")
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.Hits)
	assert.Equal(t, int64(2), second.Hits)
	assert.Equal(t, []byte("payload"), second.Payload, "callers get copies")
}

func TestInMemoryFamiliesAreSeparate(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, models.FamilyRegistry, "k", []byte("r"), time.Hour))

	_, err := store.Get(ctx, models.FamilySanctions, "k")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestInMemoryOverwriteResetsHits(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	store := NewInMemory(WithMemoryClock(clock.Now))
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, models.FamilySanctions, "k", []byte("old"), time.Minute))
	_, _ = store.Get(ctx, models.FamilySanctions, "k")
	clock.Advance(2 * time.Minute)
	require.NoError(t, store.Put(ctx, models.FamilySanctions, "k", []byte("new"), time.Minute))

	rec, err := store.Get(ctx, models.FamilySanctions, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("new"), rec.Payload)
	assert.Equal(t, int64(1), rec.Hits)
}

func TestInMemoryConcurrentAccess(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()
	payloads := [][]byte{[]byte("aaaaaaaa"), []byte("bbbbbbbb")}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_ = store.Put(ctx, models.FamilySanctions, "shared", payloads[i%2], time.Hour)
		}(i)
		go func() {
			defer wg.Done()
			rec, err := store.Get(ctx, models.FamilySanctions, "shared")
			if err == nil {
				assert.Contains(t, []string{"aaaaaaaa", "bbbbbbbb"}, string(rec.Payload))
			}
		}()
	}
	wg.Wait()
}

func TestTTLPolicy(t *testing.T) {
	p := DefaultTTLPolicy()
	assert.Less(t, p.TTL(models.FamilySanctions, false), p.TTL(models.FamilyRegistry, false))
	assert.Less(t, p.TTL(models.FamilyRegistry, false), p.TTL(models.FamilyIdentifier, false))
	assert.Less(t, p.TTL(models.FamilySanctions, true), p.TTL(models.FamilySanctions, false))
	assert.Equal(t, time.Hour, p.TTL("unknown", false))

	p.Negative[models.FamilyRegistry] = 30 * 24 * time.Hour
	assert.Equal(t, p.TTL(models.FamilyRegistry, false), p.TTL(models.FamilyRegistry, true), "negative never outlives positive")
}
