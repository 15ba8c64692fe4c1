package ports

import (
	"context"
	"time"

	"settlement-gateway/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

//go:generate mockgen -source=services.go -destination=mocks/mock_services.go -package=mocks

// IdempotencyCache is the Redis-layer idempotency check (fast path).
type IdempotencyCache interface {
	Get(ctx context.Context, key string) ([]byte, error) // Returns the cached IdempotencyRecord JSON or nil
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// NonceStore manages nonce uniqueness for replay attack prevention.
type NonceStore interface {
	// CheckAndSet atomically checks if nonce exists, sets it if not.
	// Returns true if nonce is new (valid), false if already used.
	CheckAndSet(ctx context.Context, signer string, nonce string, ttl time.Duration) (bool, error)
}

// RateLimitResult holds the outcome of a rate limit check.
type RateLimitResult struct {
	Allowed   bool
	Limit     int64
	Remaining int64
	ResetAt   time.Time
}

// RateLimitStore counts requests per key within a window.
type RateLimitStore interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (*RateLimitResult, error)
}

// SettlementMetrics observes payment engine outcomes. Implementations must be safe
// for concurrent use.
type SettlementMetrics interface {
	ObserveOperation(op string, code string)
	ObserveSettlement(asset string, net, fee int64)
}

// --- Service Ports (Business Logic) ---

// AdminService owns the contract administration record.
type AdminService interface {
	Initialize(ctx context.Context, owner domain.Address, defaultFeeBps uint32) (*domain.AdminState, error)
	// Bootstrap initializes from trusted configuration without consent.
	Bootstrap(ctx context.Context, owner domain.Address, defaultFeeBps uint32) error
	State(ctx context.Context) (*domain.AdminState, error)
	IsOwnerOr(ctx context.Context, caller, other domain.Address) (bool, error)
}

// BusinessService is the business registry.
type BusinessService interface {
	Register(ctx context.Context, req RegisterBusinessRequest) (*domain.Business, error)
	UpdateStatus(ctx context.Context, name string, isActive bool, caller domain.Address) (*domain.Business, error)
	UpdateFee(ctx context.Context, name string, feeBps uint32, caller domain.Address) (*domain.Business, error)
	Get(ctx context.Context, name string) (*domain.Business, error)
}

// RegisterBusinessRequest holds input for business registration.
type RegisterBusinessRequest struct {
	Name         string
	Owner        domain.Address
	FeeRecipient domain.Address
	FeeBps       uint32
	MinAmount    int64 // 0 = no lower bound
	MaxAmount    int64 // 0 = no upper bound
}

// PaymentService defines the payment request engine.
type PaymentService interface {
	Create(ctx context.Context, req CreatePaymentRequest) (*domain.PaymentRequest, error)
	Execute(ctx context.Context, req ExecutePaymentRequest) (*domain.PaymentRequest, error)
	Cancel(ctx context.Context, paymentID uint64, caller domain.Address) (*domain.PaymentRequest, error)
	Get(ctx context.Context, paymentID uint64) (*domain.PaymentRequest, error)
	List(ctx context.Context, filter domain.PaymentFilter) ([]domain.PaymentRequest, int64, error)
	// Counter returns the highest payment id allocated so far, 0 before the first.
	Counter(ctx context.Context) (uint64, error)
}

// CreatePaymentRequest holds input for payment request creation.
type CreatePaymentRequest struct {
	Amount              int64
	BusinessName        string
	Description         string
	Denomination        string
	AuthorizedAddresses []string
	Requester           domain.Address
	CustomFeeBps        *uint32 // nil = business default
	IdempotencyKey      string  // optional, scoped to Requester
}

// ExecutePaymentRequest holds input for settlement.
type ExecutePaymentRequest struct {
	PaymentID uint64
	Payer     domain.Address
	Asset     string // empty = request denomination
}

// HistoryService aggregates per-payer settlement statistics.
type HistoryService interface {
	RecordSettlement(ctx context.Context, tx pgx.Tx, payer domain.Address, paymentID uint64, amount int64) error
	Get(ctx context.Context, payer domain.Address) (*domain.PaymentHistory, error)
}

// AuditService records audited actions.
type AuditService interface {
	Log(ctx context.Context, entry *domain.AuditLog)
}
