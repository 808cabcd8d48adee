package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type redisStorage struct {
	nilHandles
	client *redis.Client
}

// NewRedis connects to Redis and pings it before returning.
func NewRedis(ctx context.Context, cfg RedisConfig) (Storage, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("redis URL is required")
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &redisStorage{client: client}, nil
}

func (s *redisStorage) Type() string {
	return TypeRedis
}

func (s *redisStorage) RedisClient() *redis.Client {
	return s.client
}

func (s *redisStorage) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}
