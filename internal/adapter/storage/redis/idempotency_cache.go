package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// IdempotencyCache implements ports.IdempotencyCache using Redis. Values are
// encoded idempotency records mapping a scoped key to its payment id.
type IdempotencyCache struct {
	client *goredis.Client
	prefix string
}

// NewIdempotencyCache creates a new Redis-backed idempotency cache.
func NewIdempotencyCache(client *goredis.Client) *IdempotencyCache {
	return &IdempotencyCache{
		client: client,
		prefix: keyPrefix + "idempotency:",
	}
}

// Get returns the entry stored under key, or nil, nil on a miss.
func (c *IdempotencyCache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis idempotency get: %w", err)
	}
	return val, nil
}

// Set stores value under key until ttl elapses.
func (c *IdempotencyCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, c.prefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis idempotency set: %w", err)
	}
	return nil
}
