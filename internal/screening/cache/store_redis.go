package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"screener/internal/screening/models"
	"screener/pkg/platform/sentinel"
)

const redisKeyPrefix = "screener:cache:"

// getAndCount returns the hash and bumps its hit counter in one step, or
// nil when the key is absent or expired at ARGV[1] (unix ms).
var getAndCount = redis.NewScript(`
local exp = redis.call('HGET', KEYS[1], 'expires_at')
if not exp then return false end
if tonumber(exp) <= tonumber(ARGV[1]) then return false end
redis.call('HINCRBY', KEYS[1], 'hits', 1)
return redis.call('HGETALL', KEYS[1])
`)

// RedisStore is a Store shared by every screener instance. Each record is a
// hash replaced inside MULTI/EXEC; Redis expiry is set one second past the
// logical expiry so the read-time check stays authoritative.
type RedisStore struct {
	client *redis.Client
	now    func() time.Time
}

type RedisOption func(*RedisStore)

// WithRedisClock overrides the expiry clock.
func WithRedisClock(now func() time.Time) RedisOption {
	return func(s *RedisStore) {
		if now != nil {
			s.now = now
		}
	}
}

func NewRedisStore(client *redis.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{client: client, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func redisKey(family models.SourceFamily, key string) string {
	return redisKeyPrefix + storageKey(family, key)
}

func (s *RedisStore) Get(ctx context.Context, family models.SourceFamily, key string) (*Record, error) {
	raw, err := getAndCount.Run(ctx, s.client, []string{redisKey(family, key)}, s.now().UnixMilli()).Slice()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("cache get %s: %w", key, err)
	}

	fields := make(map[string]string, len(raw)/2)
	for i := 0; i+1 < len(raw); i += 2 {
		k, _ := raw[i].(string)
		v, _ := raw[i+1].(string)
		fields[k] = v
	}
	storedAt, err1 := strconv.ParseInt(fields["stored_at"], 10, 64)
	expiresAt, err2 := strconv.ParseInt(fields["expires_at"], 10, 64)
	hits, err3 := strconv.ParseInt(fields["hits"], 10, 64)
	if err := errors.Join(err1, err2, err3); err != nil {
		return nil, fmt.Errorf("cache get %s: corrupt record: %w", key, err)
	}
	return &Record{
		Family:    family,
		Key:       key,
		Payload:   []byte(fields["payload"]),
		StoredAt:  time.UnixMilli(storedAt),
		ExpiresAt: time.UnixMilli(expiresAt),
		Hits:      hits,
	}, nil
}

func (s *RedisStore) Put(ctx context.Context, family models.SourceFamily, key string, payload []byte, ttl time.Duration) error {
	now := s.now()
	expiresAt := now.Add(ttl)
	k := redisKey(family, key)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, k)
		pipe.HSet(ctx, k,
			"payload", payload,
			"stored_at", now.UnixMilli(),
			"expires_at", expiresAt.UnixMilli(),
			"hits", 0,
		)
		pipe.PExpireAt(ctx, k, expiresAt.Add(time.Second))
		return nil
	})
	if err != nil {
		return fmt.Errorf("cache put %s: %w", key, err)
	}
	return nil
}
