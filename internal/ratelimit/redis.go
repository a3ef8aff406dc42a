package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is a Store backed by Redis, for deployments running more
// than one instance behind a load balancer. The window start is derived
// from the key's remaining TTL so all instances agree on the reset time.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Incr(ctx context.Context, key string, window time.Duration, now time.Time) (int, time.Time, error) {
	redisKey := "ratelimit:" + key

	attempts, err := s.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("failed to increment rate limit key: %w", err)
	}

	if attempts == 1 {
		if err := s.client.Expire(ctx, redisKey, window).Err(); err != nil {
			return 0, time.Time{}, fmt.Errorf("failed to set rate limit expiry: %w", err)
		}
		return int(attempts), now, nil
	}

	ttl, err := s.client.TTL(ctx, redisKey).Result()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("failed to read rate limit ttl: %w", err)
	}
	if ttl < 0 {
		// Key lost its expiry somehow, restore it.
		if err := s.client.Expire(ctx, redisKey, window).Err(); err != nil {
			return 0, time.Time{}, fmt.Errorf("failed to restore rate limit expiry: %w", err)
		}
		ttl = window
	}

	windowStart := now.Add(ttl).Add(-window)
	return int(attempts), windowStart, nil
}
