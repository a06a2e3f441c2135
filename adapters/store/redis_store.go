package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/layer-3/tagdesk/ports"
	"github.com/redis/go-redis/v9"
)

// RedisStore is a Redis implementation of the Store interface
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a new Redis store
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Connect parses redisURL, builds a client and checks it answers.
func Connect(ctx context.Context, redisURL string) (*redis.Client, error) {
	const op = "store.redis.Connect"

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return client, nil
}

// SetCache stores value under key with expiration
func (s *RedisStore) SetCache(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set %q: %w", key, err)
	}
	return nil
}

// GetCache retrieves a value by key
func (s *RedisStore) GetCache(ctx context.Context, key string) (string, bool, error) {
	val, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to get %q: %w", key, err)
	}
	return val, true, nil
}

// GetTTL returns the remaining lifetime of key in seconds.
func (s *RedisStore) GetTTL(ctx context.Context, key string) (int64, error) {
	ttl, err := s.client.TTL(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read ttl of %q: %w", key, err)
	}

	// go-redis passes -1 and -2 through unscaled
	if ttl < 0 {
		return int64(ttl), nil
	}
	return int64(ttl / time.Second), nil
}

// ClearCache deletes key
func (s *RedisStore) ClearCache(ctx context.Context, key string) (int64, error) {
	n, err := s.client.Del(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to delete %q: %w", key, err)
	}
	return n, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

var _ ports.Store = (*RedisStore)(nil)
