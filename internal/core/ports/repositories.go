package ports

import (
	"context"
	"errors"
	"time"

	"settlement-gateway/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

//go:generate mockgen -source=repositories.go -destination=mocks/mock_repositories.go -package=mocks

// ErrIdempotencyConflict is returned by IdempotencyRepository.Create when the
// key was claimed by a concurrent unit of work.
var ErrIdempotencyConflict = errors.New("idempotency key already claimed")

// AdminRepository persists the singleton contract administration record.
type AdminRepository interface {
	Get(ctx context.Context) (*domain.AdminState, error)
	// Create inserts the record once. It reports false when a record already exists.
	Create(ctx context.Context, state *domain.AdminState) (bool, error)
}

// BusinessRepository defines persistence operations for business configurations.
type BusinessRepository interface {
	// Upsert replaces any existing configuration stored under b.Name.
	Upsert(ctx context.Context, b *domain.Business) error
	Get(ctx context.Context, name string) (*domain.Business, error)
	GetForUpdate(ctx context.Context, tx pgx.Tx, name string) (*domain.Business, error)
	Update(ctx context.Context, tx pgx.Tx, b *domain.Business) error
}

// PaymentRepository defines persistence operations for payment requests.
// Methods accepting pgx.Tx are used inside transaction blocks for pessimistic locking.
type PaymentRepository interface {
	NextID(ctx context.Context, tx pgx.Tx) (uint64, error)
	// Counter returns the highest id allocated so far, 0 before the first.
	Counter(ctx context.Context) (uint64, error)
	Create(ctx context.Context, tx pgx.Tx, p *domain.PaymentRequest) error
	GetByID(ctx context.Context, id uint64) (*domain.PaymentRequest, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uint64) (*domain.PaymentRequest, error)
	MarkSettled(ctx context.Context, tx pgx.Tx, id uint64, s *domain.Settlement) error
	MarkCancelled(ctx context.Context, tx pgx.Tx, id uint64, at time.Time) error
	List(ctx context.Context, filter domain.PaymentFilter) ([]domain.PaymentRequest, int64, error)
}

// HistoryRepository persists per-payer settlement aggregates.
type HistoryRepository interface {
	Get(ctx context.Context, payer domain.Address) (*domain.PaymentHistory, error)
	RecordSettlement(ctx context.Context, tx pgx.Tx, payer domain.Address, paymentID uint64, amount int64) error
}

// IdempotencyRepository defines persistence for idempotency records (DB layer).
type IdempotencyRepository interface {
	Create(ctx context.Context, tx pgx.Tx, rec *domain.IdempotencyRecord) error
	Get(ctx context.Context, key string) (*domain.IdempotencyRecord, error)
}

// AuditRepository persists audit log entries.
type AuditRepository interface {
	Create(ctx context.Context, entry *domain.AuditLog) error
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
