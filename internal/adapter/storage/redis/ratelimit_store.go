package redis

import (
	"context"
	"fmt"
	"time"

	"settlement-gateway/internal/core/ports"

	goredis "github.com/redis/go-redis/v9"
)

// RateLimitStore implements ports.RateLimitStore with fixed-window counters.
type RateLimitStore struct {
	client *goredis.Client
	prefix string
	now    func() time.Time
}

// NewRateLimitStore creates a new Redis-backed rate limit store.
func NewRateLimitStore(client *goredis.Client) *RateLimitStore {
	return &RateLimitStore{
		client: client,
		prefix: keyPrefix + "ratelimit:",
		now:    time.Now,
	}
}

// Allow counts one request against key in the current window. The counter
// key is scoped by window index so each window starts from zero.
func (s *RateLimitStore) Allow(ctx context.Context, key string, limit int64, window time.Duration) (*ports.RateLimitResult, error) {
	if window <= 0 {
		return nil, fmt.Errorf("redis rate limit: non-positive window %s", window)
	}

	now := s.now()
	windowID := now.UnixNano() / window.Nanoseconds()
	redisKey := fmt.Sprintf("%s%s:%d", s.prefix, key, windowID)

	var incr *goredis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		incr = p.Incr(ctx, redisKey)
		p.PExpire(ctx, redisKey, window+time.Second)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("redis rate limit incr: %w", err)
	}
	count := incr.Val()

	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}

	return &ports.RateLimitResult{
		Allowed:   count <= limit,
		Limit:     limit,
		Remaining: remaining,
		ResetAt:   time.Unix(0, (windowID+1)*window.Nanoseconds()),
	}, nil
}
