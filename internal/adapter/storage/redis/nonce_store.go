package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// NonceStore implements ports.NonceStore using Redis SET NX. Consent token
// ids are burned per signer for ttl.
type NonceStore struct {
	client *goredis.Client
	prefix string
}

// NewNonceStore creates a new Redis-backed nonce store.
func NewNonceStore(client *goredis.Client) *NonceStore {
	return &NonceStore{
		client: client,
		prefix: keyPrefix + "nonce:",
	}
}

// CheckAndSet atomically records nonce for signer.
// Returns true if the nonce is new, false if already used.
func (s *NonceStore) CheckAndSet(ctx context.Context, signer string, nonce string, ttl time.Duration) (bool, error) {
	key := s.prefix + signer + ":" + nonce
	result, err := s.client.SetArgs(ctx, key, 1, goredis.SetArgs{
		Mode: "NX",
		TTL:  ttl,
	}).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("redis nonce check: %w", err)
	}
	return result == "OK", nil
}
