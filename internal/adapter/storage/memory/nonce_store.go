package memory

import (
	"context"
	"sync"
	"time"
)

// NonceStore implements ports.NonceStore in process.
type NonceStore struct {
	mu     sync.Mutex
	seen   map[string]time.Time
	now    func() time.Time
	sweeps int
}

// NewNonceStore creates an empty nonce store.
func NewNonceStore() *NonceStore {
	return &NonceStore{seen: make(map[string]time.Time), now: time.Now}
}

// CheckAndSet records nonce for signer. It returns false if the pair was
// already recorded and has not expired.
func (s *NonceStore) CheckAndSet(_ context.Context, signer string, nonce string, ttl time.Duration) (bool, error) {
	key := signer + ":" + nonce
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweeps++
	if s.sweeps%256 == 0 {
		for k, exp := range s.seen {
			if !now.Before(exp) {
				delete(s.seen, k)
			}
		}
	}

	if exp, ok := s.seen[key]; ok && now.Before(exp) {
		return false, nil
	}
	s.seen[key] = now.Add(ttl)
	return true, nil
}
