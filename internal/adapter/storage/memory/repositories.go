package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"settlement-gateway/internal/core/domain"
	"settlement-gateway/internal/core/ports"

	"github.com/jackc/pgx/v5"
)

// AdminRepository implements ports.AdminRepository.
type AdminRepository struct{ s *Store }

// NewAdminRepository creates an admin repository over s.
func NewAdminRepository(s *Store) *AdminRepository { return &AdminRepository{s: s} }

// Get returns the admin record, or nil if the contract is not initialized.
func (r *AdminRepository) Get(_ context.Context) (*domain.AdminState, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if r.s.admin == nil {
		return nil, nil
	}
	cp := *r.s.admin
	return &cp, nil
}

// Create stores state unless a record exists.
func (r *AdminRepository) Create(ctx context.Context, state *domain.AdminState) (bool, error) {
	created := false
	err := r.s.update(ctx, func(_ *Tx) error {
		r.s.mu.Lock()
		defer r.s.mu.Unlock()
		if r.s.admin != nil {
			return nil
		}
		cp := *state
		r.s.admin = &cp
		created = true
		return nil
	})
	return created, err
}

// BusinessRepository implements ports.BusinessRepository.
type BusinessRepository struct{ s *Store }

// NewBusinessRepository creates a business repository over s.
func NewBusinessRepository(s *Store) *BusinessRepository { return &BusinessRepository{s: s} }

// Upsert replaces the configuration stored under b.Name, keeping its creation time.
func (r *BusinessRepository) Upsert(ctx context.Context, b *domain.Business) error {
	return r.s.update(ctx, func(t *Tx) error {
		cp := *b
		if prev, ok := r.lookup(t, b.Name); ok {
			cp.CreatedAt = prev.CreatedAt
		}
		t.businesses[b.Name] = cp
		return nil
	})
}

// Get returns the committed configuration for name, or nil.
func (r *BusinessRepository) Get(_ context.Context, name string) (*domain.Business, error) {
	b, ok := r.lookup(nil, name)
	if !ok {
		return nil, nil
	}
	return &b, nil
}

// GetForUpdate returns the configuration for name as seen by tx, or nil.
func (r *BusinessRepository) GetForUpdate(_ context.Context, tx pgx.Tx, name string) (*domain.Business, error) {
	t, err := r.s.unwrap(tx)
	if err != nil {
		return nil, err
	}
	b, ok := r.lookup(t, name)
	if !ok {
		return nil, nil
	}
	return &b, nil
}

// Update buffers b in tx.
func (r *BusinessRepository) Update(_ context.Context, tx pgx.Tx, b *domain.Business) error {
	t, err := r.s.unwrap(tx)
	if err != nil {
		return err
	}
	if _, ok := r.lookup(t, b.Name); !ok {
		return fmt.Errorf("business %q not found", b.Name)
	}
	t.businesses[b.Name] = *b
	return nil
}

func (r *BusinessRepository) lookup(t *Tx, name string) (domain.Business, bool) {
	if t != nil {
		if b, ok := t.businesses[name]; ok {
			return b, true
		}
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	b, ok := r.s.businesses[name]
	return b, ok
}

// PaymentRepository implements ports.PaymentRepository.
type PaymentRepository struct{ s *Store }

// NewPaymentRepository creates a payment request repository over s.
func NewPaymentRepository(s *Store) *PaymentRepository { return &PaymentRepository{s: s} }

// NextID allocates a new id. Ids are never handed out twice, even when the
// allocating unit of work rolls back.
func (r *PaymentRepository) NextID(_ context.Context, tx pgx.Tx) (uint64, error) {
	if _, err := r.s.unwrap(tx); err != nil {
		return 0, err
	}
	return r.s.nextID.Add(1), nil
}

// Counter returns the last allocated id.
func (r *PaymentRepository) Counter(context.Context) (uint64, error) {
	return r.s.nextID.Load(), nil
}

// Create buffers a new payment request in tx.
func (r *PaymentRepository) Create(_ context.Context, tx pgx.Tx, p *domain.PaymentRequest) error {
	t, err := r.s.unwrap(tx)
	if err != nil {
		return err
	}
	if _, ok := r.lookup(t, p.ID); ok {
		return fmt.Errorf("payment request %d already exists", p.ID)
	}
	t.payments[p.ID] = *clonePayment(*p)
	return nil
}

// GetByID returns the committed payment request, or nil.
func (r *PaymentRepository) GetByID(_ context.Context, id uint64) (*domain.PaymentRequest, error) {
	p, ok := r.lookup(nil, id)
	if !ok {
		return nil, nil
	}
	return clonePayment(p), nil
}

// GetByIDForUpdate returns the payment request as seen by tx, or nil.
func (r *PaymentRepository) GetByIDForUpdate(_ context.Context, tx pgx.Tx, id uint64) (*domain.PaymentRequest, error) {
	t, err := r.s.unwrap(tx)
	if err != nil {
		return nil, err
	}
	p, ok := r.lookup(t, id)
	if !ok {
		return nil, nil
	}
	return clonePayment(p), nil
}

// MarkSettled records the settlement and moves the request to Completed.
func (r *PaymentRepository) MarkSettled(_ context.Context, tx pgx.Tx, id uint64, st *domain.Settlement) error {
	return r.mutate(tx, id, func(p *domain.PaymentRequest) {
		cp := *st
		p.Status = domain.PaymentStatusCompleted
		p.Settlement = &cp
	})
}

// MarkCancelled moves the request to Cancelled.
func (r *PaymentRepository) MarkCancelled(_ context.Context, tx pgx.Tx, id uint64, at time.Time) error {
	return r.mutate(tx, id, func(p *domain.PaymentRequest) {
		p.Status = domain.PaymentStatusCancelled
		p.CancelledAt = &at
	})
}

// List returns committed requests matching filter, newest first.
func (r *PaymentRepository) List(_ context.Context, filter domain.PaymentFilter) ([]domain.PaymentRequest, int64, error) {
	r.s.mu.RLock()
	matched := make([]domain.PaymentRequest, 0)
	for _, p := range r.s.payments {
		if filter.Match(&p) {
			matched = append(matched, *clonePayment(p))
		}
	}
	r.s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })

	total := int64(len(matched))
	if filter.Offset >= len(matched) {
		return []domain.PaymentRequest{}, total, nil
	}
	matched = matched[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}
	return matched, total, nil
}

func (r *PaymentRepository) mutate(tx pgx.Tx, id uint64, fn func(*domain.PaymentRequest)) error {
	t, err := r.s.unwrap(tx)
	if err != nil {
		return err
	}
	p, ok := r.lookup(t, id)
	if !ok {
		return fmt.Errorf("payment request %d not found", id)
	}
	cp := clonePayment(p)
	fn(cp)
	t.payments[id] = *cp
	return nil
}

func (r *PaymentRepository) lookup(t *Tx, id uint64) (domain.PaymentRequest, bool) {
	if t != nil {
		if p, ok := t.payments[id]; ok {
			return p, true
		}
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.payments[id]
	return p, ok
}

// HistoryRepository implements ports.HistoryRepository.
type HistoryRepository struct{ s *Store }

// NewHistoryRepository creates a payment history repository over s.
func NewHistoryRepository(s *Store) *HistoryRepository { return &HistoryRepository{s: s} }

// Get returns the committed aggregate for payer, or nil.
func (r *HistoryRepository) Get(_ context.Context, payer domain.Address) (*domain.PaymentHistory, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	h, ok := r.s.histories[payer]
	if !ok {
		return nil, nil
	}
	return &h, nil
}

// RecordSettlement folds a settlement into payer's aggregate inside tx.
func (r *HistoryRepository) RecordSettlement(_ context.Context, tx pgx.Tx, payer domain.Address, paymentID uint64, amount int64) error {
	t, err := r.s.unwrap(tx)
	if err != nil {
		return err
	}
	h, ok := t.histories[payer]
	if !ok {
		r.s.mu.RLock()
		h, ok = r.s.histories[payer]
		r.s.mu.RUnlock()
		if !ok {
			h = domain.PaymentHistory{Payer: payer}
		}
	}
	h.Record(paymentID, amount)
	t.histories[payer] = h
	return nil
}

// IdempotencyRepository implements ports.IdempotencyRepository.
type IdempotencyRepository struct{ s *Store }

// NewIdempotencyRepository creates an idempotency repository over s.
func NewIdempotencyRepository(s *Store) *IdempotencyRepository {
	return &IdempotencyRepository{s: s}
}

// Create buffers rec in tx, failing with ports.ErrIdempotencyConflict if the key exists.
func (r *IdempotencyRepository) Create(_ context.Context, tx pgx.Tx, rec *domain.IdempotencyRecord) error {
	t, err := r.s.unwrap(tx)
	if err != nil {
		return err
	}
	if _, ok := t.idempotency[rec.Key]; ok {
		return ports.ErrIdempotencyConflict
	}
	r.s.mu.RLock()
	_, exists := r.s.idempotency[rec.Key]
	r.s.mu.RUnlock()
	if exists {
		return ports.ErrIdempotencyConflict
	}
	t.idempotency[rec.Key] = *rec
	return nil
}

// Get returns the committed record for key, or nil.
func (r *IdempotencyRepository) Get(_ context.Context, key string) (*domain.IdempotencyRecord, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	rec, ok := r.s.idempotency[key]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

// AuditRepository implements ports.AuditRepository.
type AuditRepository struct{ s *Store }

// NewAuditRepository creates an audit log repository over s.
func NewAuditRepository(s *Store) *AuditRepository { return &AuditRepository{s: s} }

// Create appends entry.
func (r *AuditRepository) Create(_ context.Context, entry *domain.AuditLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.audit = append(r.s.audit, *entry)
	return nil
}

// Entries returns a copy of every stored entry in insertion order.
func (r *AuditRepository) Entries() []domain.AuditLog {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return append([]domain.AuditLog(nil), r.s.audit...)
}
