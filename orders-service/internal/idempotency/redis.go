package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	DefaultTTL        = 24 * time.Hour
	DefaultPendingTTL = time.Minute

	pendingMarker = "pending"
)

// RedisStore remembers which order an Idempotency-Key produced.
// A key is "pending" while its request runs and holds the order id once it succeeds.
type RedisStore struct {
	client     *redis.Client
	ttl        time.Duration
	pendingTTL time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{
		client:     client,
		ttl:        ttl,
		pendingTTL: min(DefaultPendingTTL, ttl),
	}
}

// Claim reserves key for the caller. When the key is already taken it returns
// the stored order id, or "" while the first request is still running.
func (s *RedisStore) Claim(ctx context.Context, key string) (string, bool, error) {
	k := storeKey(key)

	// one retry covers a pending key that expires between SETNX and GET
	for range 2 {
		ok, err := s.client.SetNX(ctx, k, pendingMarker, s.pendingTTL).Result()
		if err != nil {
			return "", false, fmt.Errorf("redis setnx failed: %w", err)
		}
		if ok {
			return "", true, nil
		}

		val, err := s.client.Get(ctx, k).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return "", false, fmt.Errorf("redis get failed: %w", err)
		}
		if val == pendingMarker {
			return "", false, nil
		}
		return val, false, nil
	}
	return "", false, nil
}

func (s *RedisStore) Complete(ctx context.Context, key, orderID string) error {
	if err := s.client.Set(ctx, storeKey(key), orderID, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// Abandon frees key so the client may retry after a failure.
func (s *RedisStore) Abandon(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, storeKey(key)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func storeKey(key string) string {
	return fmt.Sprintf("idempotency:%s", key)
}
