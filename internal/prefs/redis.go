package prefs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisKeyPrefix namespaces preference keys in a shared Redis.
const DefaultRedisKeyPrefix = "modelgate:prefs:"

// RedisStore keeps entries in Redis and lets Redis enforce expiry.
// This is suitable for multi-instance deployments behind a load balancer.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore wraps an established Redis client.
func NewRedisStore(client *redis.Client, keyPrefix string) (*RedisStore, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if keyPrefix == "" {
		keyPrefix = DefaultRedisKeyPrefix
	}
	return &RedisStore{client: client, prefix: keyPrefix}, nil
}

// Get returns the live value for key.
func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := s.client.Get(ctx, s.prefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to get pref from redis: %w", err)
	}
	return value, true, nil
}

// Set stores value under key. A ttl <= 0 keeps the key forever.
func (s *RedisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := s.client.Set(ctx, s.prefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set pref in redis: %w", err)
	}
	return nil
}

// Close is a no-op; the connection belongs to the storage layer.
func (s *RedisStore) Close() error {
	return nil
}
