// Package memory provides in-process implementations of the storage ports.
// A Store runs one unit of work at a time; writes made through a Tx are
// buffered and become visible to other readers only on Commit.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"settlement-gateway/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

var errForeignTx = errors.New("memory: transaction was not started by this store")

type balanceKey struct {
	account domain.Address
	asset   string
}

// Store holds committed state for every repository in this package.
type Store struct {
	sem    chan struct{}
	nextID atomic.Uint64

	mu          sync.RWMutex
	admin       *domain.AdminState
	businesses  map[string]domain.Business
	payments    map[uint64]domain.PaymentRequest
	histories   map[domain.Address]domain.PaymentHistory
	idempotency map[string]domain.IdempotencyRecord
	balances    map[balanceKey]int64
	audit       []domain.AuditLog
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		sem:         make(chan struct{}, 1),
		businesses:  make(map[string]domain.Business),
		payments:    make(map[uint64]domain.PaymentRequest),
		histories:   make(map[domain.Address]domain.PaymentHistory),
		idempotency: make(map[string]domain.IdempotencyRecord),
		balances:    make(map[balanceKey]int64),
	}
}

// Begin starts a unit of work, waiting for any open one to finish.
func (s *Store) Begin(ctx context.Context) (pgx.Tx, error) {
	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("begin: %w", ctx.Err())
	}
	return &Tx{
		store:       s,
		businesses:  make(map[string]domain.Business),
		payments:    make(map[uint64]domain.PaymentRequest),
		histories:   make(map[domain.Address]domain.PaymentHistory),
		idempotency: make(map[string]domain.IdempotencyRecord),
		balances:    make(map[balanceKey]int64),
	}, nil
}

// Ping implements ports.HealthChecker.
func (s *Store) Ping(_ context.Context) error { return nil }

// Name implements ports.HealthChecker.
func (s *Store) Name() string { return "memory" }

// Tx is a buffered unit of work. Only Commit and Rollback are supported from
// the pgx.Tx method set; the embedded interface is nil.
type Tx struct {
	pgx.Tx

	store *Store
	done  bool

	businesses  map[string]domain.Business
	payments    map[uint64]domain.PaymentRequest
	histories   map[domain.Address]domain.PaymentHistory
	idempotency map[string]domain.IdempotencyRecord
	balances    map[balanceKey]int64
}

// Commit publishes the buffered writes and ends the unit of work.
func (t *Tx) Commit(_ context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	s := t.store

	s.mu.Lock()
	for k, v := range t.businesses {
		s.businesses[k] = v
	}
	for k, v := range t.payments {
		s.payments[k] = v
	}
	for k, v := range t.histories {
		s.histories[k] = v
	}
	for k, v := range t.idempotency {
		s.idempotency[k] = v
	}
	for k, v := range t.balances {
		s.balances[k] = v
	}
	s.mu.Unlock()

	t.finish()
	return nil
}

// Rollback discards the buffered writes. It is a no-op error after Commit.
func (t *Tx) Rollback(_ context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.finish()
	return nil
}

func (t *Tx) finish() {
	t.done = true
	<-t.store.sem
}

// unwrap returns tx as a live *Tx belonging to s.
func (s *Store) unwrap(tx pgx.Tx) (*Tx, error) {
	t, ok := tx.(*Tx)
	if !ok || t.store != s {
		return nil, errForeignTx
	}
	if t.done {
		return nil, pgx.ErrTxClosed
	}
	return t, nil
}

// update runs fn inside its own unit of work.
func (s *Store) update(ctx context.Context, fn func(t *Tx) error) error {
	tx, err := s.Begin(ctx)
	if err != nil {
		return err
	}
	t := tx.(*Tx)
	if err := fn(t); err != nil {
		_ = t.Rollback(ctx)
		return err
	}
	return t.Commit(ctx)
}

func clonePayment(p domain.PaymentRequest) *domain.PaymentRequest {
	p.AuthorizedAddresses = append([]domain.Address(nil), p.AuthorizedAddresses...)
	if p.Settlement != nil {
		st := *p.Settlement
		p.Settlement = &st
	}
	if p.CancelledAt != nil {
		at := *p.CancelledAt
		p.CancelledAt = &at
	}
	return &p
}
