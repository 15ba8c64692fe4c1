package memory

import (
	"context"
	"math"
	"sync"
	"time"

	"settlement-gateway/internal/core/ports"

	"golang.org/x/time/rate"
)

// RateLimitStore implements ports.RateLimitStore with a token bucket per key.
// A bucket refills limit tokens per window and bursts up to limit.
type RateLimitStore struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	now      func() time.Time
}

// NewRateLimitStore creates an empty in-process rate limit store.
func NewRateLimitStore() *RateLimitStore {
	return &RateLimitStore{limiters: make(map[string]*rate.Limiter), now: time.Now}
}

// Allow takes one token from key's bucket.
func (s *RateLimitStore) Allow(_ context.Context, key string, limit int64, window time.Duration) (*ports.RateLimitResult, error) {
	now := s.now()
	if limit <= 0 || window <= 0 {
		return &ports.RateLimitResult{Allowed: false, Limit: limit, ResetAt: now.Add(window)}, nil
	}
	every := rate.Every(window / time.Duration(limit))

	s.mu.Lock()
	l, ok := s.limiters[key]
	if !ok || l.Limit() != every || l.Burst() != int(limit) {
		l = rate.NewLimiter(every, int(limit))
		s.limiters[key] = l
	}
	s.mu.Unlock()

	allowed := l.AllowN(now, 1)
	tokens := l.TokensAt(now)
	remaining := int64(math.Floor(tokens))
	if remaining < 0 {
		remaining = 0
	}

	resetAt := now
	if missing := float64(limit) - tokens; missing > 0 {
		resetAt = now.Add(time.Duration(missing * float64(window) / float64(limit)))
	}

	return &ports.RateLimitResult{
		Allowed:   allowed,
		Limit:     limit,
		Remaining: remaining,
		ResetAt:   resetAt,
	}, nil
}
