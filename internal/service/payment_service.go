package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"settlement-gateway/internal/core/domain"
	"settlement-gateway/internal/core/ports"
	"settlement-gateway/pkg/apperror"

	"github.com/rs/zerolog"
)

const idempotencyTTL = 24 * time.Hour

// Operation labels reported to ports.SettlementMetrics.
const (
	OpCreate  = "create"
	OpExecute = "execute"
	OpCancel  = "cancel"
)

// PaymentServiceDeps groups the collaborators of PaymentServiceImpl.
// IdempCache and Metrics are optional.
type PaymentServiceDeps struct {
	Payments   ports.PaymentRepository
	Businesses ports.BusinessRepository
	IdempRepo  ports.IdempotencyRepository
	IdempCache ports.IdempotencyCache
	Ledger     ports.Ledger
	History    ports.HistoryService
	Admin      ports.AdminService
	Auth       ports.Authorizer
	Transactor ports.DBTransactor
	Metrics    ports.SettlementMetrics
	Logger     zerolog.Logger
}

// PaymentServiceImpl implements ports.PaymentService.
type PaymentServiceImpl struct {
	payments   ports.PaymentRepository
	businesses ports.BusinessRepository
	idempRepo  ports.IdempotencyRepository
	idempCache ports.IdempotencyCache
	ledger     ports.Ledger
	history    ports.HistoryService
	admin      ports.AdminService
	auth       ports.Authorizer
	transactor ports.DBTransactor
	metrics    ports.SettlementMetrics
	log        zerolog.Logger
}

// NewPaymentService creates a new PaymentServiceImpl.
func NewPaymentService(deps PaymentServiceDeps) *PaymentServiceImpl {
	return &PaymentServiceImpl{
		payments:   deps.Payments,
		businesses: deps.Businesses,
		idempRepo:  deps.IdempRepo,
		idempCache: deps.IdempCache,
		ledger:     deps.Ledger,
		history:    deps.History,
		admin:      deps.Admin,
		auth:       deps.Auth,
		transactor: deps.Transactor,
		metrics:    deps.Metrics,
		log:        deps.Logger,
	}
}

// Create validates and persists a new Pending payment request. A repeated call
// with the same requester and idempotency key returns the original request.
func (s *PaymentServiceImpl) Create(ctx context.Context, req ports.CreatePaymentRequest) (p *domain.PaymentRequest, err error) {
	defer func() { s.observe(OpCreate, err) }()

	if err := s.auth.RequireConsent(ctx, req.Requester); err != nil {
		return nil, err
	}
	if req.Amount <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}
	authorized, err := domain.ParseAddressSet(req.AuthorizedAddresses)
	if err != nil {
		return nil, apperror.ErrInvalidAddress()
	}
	if req.Denomination == "" {
		return nil, apperror.Validation("denomination is required")
	}

	var idempKey string
	if req.IdempotencyKey != "" {
		idempKey = domain.BuildIdempotencyKey(req.Requester, req.IdempotencyKey)
		existing, err := s.lookupIdempotent(ctx, idempKey)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return existing, nil
		}
	}

	biz, err := s.businesses.Get(ctx, domain.NormalizeBusinessName(req.BusinessName))
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get business: %w", err))
	}
	if biz == nil {
		return nil, apperror.ErrBusinessNotFound()
	}
	if !biz.IsActive {
		return nil, apperror.ErrBusinessNotActive()
	}
	if !biz.AmountInRange(req.Amount) {
		return nil, apperror.ErrAmountOutOfRange()
	}

	feeBps := biz.ResolveFee(req.CustomFeeBps)
	if !domain.ValidFeeBps(feeBps) {
		return nil, apperror.ErrInvalidFeePercentage()
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	id, err := s.payments.NextID(ctx, dbTx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("allocate payment id: %w", err))
	}

	now := time.Now().UTC()
	p = &domain.PaymentRequest{
		ID:                  id,
		Amount:              req.Amount,
		BusinessName:        biz.Name,
		Description:         req.Description,
		Denomination:        req.Denomination,
		AuthorizedAddresses: authorized,
		Requester:           req.Requester,
		FeeBps:              feeBps,
		Status:              domain.PaymentStatusPending,
		CreatedAt:           now,
	}
	if err := s.payments.Create(ctx, dbTx, p); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create payment request: %w", err))
	}

	var rec *domain.IdempotencyRecord
	if idempKey != "" {
		rec = &domain.IdempotencyRecord{Key: idempKey, PaymentID: id, CreatedAt: now}
		if err := s.idempRepo.Create(ctx, dbTx, rec); err != nil {
			if errors.Is(err, ports.ErrIdempotencyConflict) {
				// A concurrent create with the same key won; hand back its request.
				_ = dbTx.Rollback(ctx)
				winner, err := s.lookupIdempotent(ctx, idempKey)
				if err == nil && winner == nil {
					err = apperror.InternalError(fmt.Errorf("idempotency key %q claimed but not readable", idempKey))
				}
				return winner, err
			}
			return nil, apperror.InternalError(fmt.Errorf("save idempotency record: %w", err))
		}
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	if rec != nil {
		s.cacheIdempotent(ctx, rec)
	}

	s.log.Info().
		Uint64("payment_id", id).
		Str("business", biz.Name).
		Str("requester", req.Requester.String()).
		Int64("amount", req.Amount).
		Uint32("fee_bps", feeBps).
		Int("authorized", len(authorized)).
		Msg("payment request created")

	return p, nil
}

// Execute settles a Pending request on behalf of one of its authorized
// addresses. The status check, both ledger legs, the status write and the
// history update commit together; the row lock makes concurrent attempts
// on the same request serialize, so at most one of them settles it.
func (s *PaymentServiceImpl) Execute(ctx context.Context, req ports.ExecutePaymentRequest) (p *domain.PaymentRequest, err error) {
	defer func() { s.observe(OpExecute, err) }()

	if err := s.auth.RequireConsent(ctx, req.Payer); err != nil {
		return nil, err
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	p, err = s.payments.GetByIDForUpdate(ctx, dbTx, req.PaymentID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock payment request: %w", err))
	}
	if p == nil {
		return nil, apperror.ErrPaymentNotFound()
	}
	if err := checkPending(p); err != nil {
		return nil, err
	}
	if !p.IsAuthorized(req.Payer) {
		return nil, apperror.ErrNotAuthorized()
	}

	// Fee recipient is read at settlement time; the fee rate was fixed at creation.
	biz, err := s.businesses.Get(ctx, p.BusinessName)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get business: %w", err))
	}
	if biz == nil {
		return nil, apperror.ErrBusinessNotFound()
	}

	asset := req.Asset
	if asset == "" {
		asset = p.Denomination
	}
	split := domain.SplitFee(p.Amount, p.FeeBps)

	balance, err := s.ledger.BalanceOf(ctx, dbTx, req.Payer, asset)
	if err != nil {
		return nil, apperror.ErrLedgerFailure(fmt.Errorf("balance of payer: %w", err))
	}
	if balance < p.Amount {
		return nil, apperror.ErrInsufficientBalance()
	}

	if split.Net > 0 {
		if err := s.ledger.Transfer(ctx, dbTx, req.Payer, p.Requester, asset, split.Net); err != nil {
			return nil, ledgerError("net transfer", err)
		}
	}
	if split.Fee > 0 {
		if err := s.ledger.Transfer(ctx, dbTx, req.Payer, biz.FeeRecipient, asset, split.Fee); err != nil {
			return nil, ledgerError("fee transfer", err)
		}
	}

	settlement := &domain.Settlement{
		Payer:     req.Payer,
		Asset:     asset,
		FeeAmount: split.Fee,
		NetAmount: split.Net,
		SettledAt: time.Now().UTC(),
	}
	if err := s.payments.MarkSettled(ctx, dbTx, p.ID, settlement); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("mark settled: %w", err))
	}
	if err := s.history.RecordSettlement(ctx, dbTx, req.Payer, p.ID, p.Amount); err != nil {
		return nil, apperror.InternalError(err)
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	p.Status = domain.PaymentStatusCompleted
	p.Settlement = settlement

	if s.metrics != nil {
		s.metrics.ObserveSettlement(asset, split.Net, split.Fee)
	}

	s.log.Info().
		Uint64("payment_id", p.ID).
		Str("payer", req.Payer.String()).
		Str("asset", asset).
		Int64("amount", p.Amount).
		Int64("fee_amount", split.Fee).
		Int64("net_amount", split.Net).
		Msg("payment settled")

	return p, nil
}

// Cancel moves a Pending request to Cancelled. Only the requester or the
// contract owner may cancel.
func (s *PaymentServiceImpl) Cancel(ctx context.Context, paymentID uint64, caller domain.Address) (p *domain.PaymentRequest, err error) {
	defer func() { s.observe(OpCancel, err) }()

	if err := s.auth.RequireConsent(ctx, caller); err != nil {
		return nil, err
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	p, err = s.payments.GetByIDForUpdate(ctx, dbTx, paymentID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock payment request: %w", err))
	}
	if p == nil {
		return nil, apperror.ErrPaymentNotFound()
	}

	allowed, err := s.admin.IsOwnerOr(ctx, caller, p.Requester)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, apperror.ErrNotAuthorized()
	}
	if err := checkPending(p); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err := s.payments.MarkCancelled(ctx, dbTx, p.ID, now); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("mark cancelled: %w", err))
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	p.Status = domain.PaymentStatusCancelled
	p.CancelledAt = &now

	s.log.Info().
		Uint64("payment_id", p.ID).
		Str("caller", caller.String()).
		Msg("payment request cancelled")

	return p, nil
}

// Get returns a payment request by id.
func (s *PaymentServiceImpl) Get(ctx context.Context, paymentID uint64) (*domain.PaymentRequest, error) {
	p, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get payment request: %w", err))
	}
	if p == nil {
		return nil, apperror.ErrPaymentNotFound()
	}
	return p, nil
}

// List returns one page of payment requests matching filter and the total match count.
func (s *PaymentServiceImpl) List(ctx context.Context, filter domain.PaymentFilter) ([]domain.PaymentRequest, int64, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, apperror.Validation("unknown payment status")
	}
	items, total, err := s.payments.List(ctx, filter)
	if err != nil {
		return nil, 0, apperror.InternalError(fmt.Errorf("list payment requests: %w", err))
	}
	return items, total, nil
}

// Counter returns the number of payment ids allocated so far.
func (s *PaymentServiceImpl) Counter(ctx context.Context) (uint64, error) {
	n, err := s.payments.Counter(ctx)
	if err != nil {
		return 0, apperror.InternalError(fmt.Errorf("read payment counter: %w", err))
	}
	return n, nil
}

// checkPending maps a non-Pending status to the error the caller should see.
func checkPending(p *domain.PaymentRequest) error {
	switch p.Status {
	case domain.PaymentStatusPending:
		return nil
	case domain.PaymentStatusCompleted:
		return apperror.ErrPaymentAlreadyCompleted()
	default:
		return apperror.ErrPaymentNotActionable()
	}
}

func ledgerError(leg string, err error) error {
	if errors.Is(err, ports.ErrInsufficientFunds) {
		return apperror.ErrInsufficientBalance()
	}
	return apperror.ErrLedgerFailure(fmt.Errorf("%s: %w", leg, err))
}

// lookupIdempotent resolves key to a payment id through the Redis layer, then
// the DB layer, and always returns the current row for that id.
func (s *PaymentServiceImpl) lookupIdempotent(ctx context.Context, key string) (*domain.PaymentRequest, error) {
	rec := s.cachedIdempotent(ctx, key)
	if rec == nil {
		var err error
		rec, err = s.idempRepo.Get(ctx, key)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("db idempotency check: %w", err))
		}
		if rec == nil {
			return nil, nil
		}
		s.cacheIdempotent(ctx, rec)
	}

	p, err := s.payments.GetByID(ctx, rec.PaymentID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get idempotent payment request: %w", err))
	}
	if p == nil {
		return nil, apperror.InternalError(fmt.Errorf("idempotency key %q references missing request %d", key, rec.PaymentID))
	}
	return p, nil
}

// cachedIdempotent returns the record cached under key, or nil on a miss or
// any Redis failure.
func (s *PaymentServiceImpl) cachedIdempotent(ctx context.Context, key string) *domain.IdempotencyRecord {
	if s.idempCache == nil {
		return nil
	}
	cached, err := s.idempCache.Get(ctx, key)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("redis idempotency check failed, falling through to DB")
		return nil
	}
	if cached == nil {
		return nil
	}
	rec := &domain.IdempotencyRecord{}
	if err := json.Unmarshal(cached, rec); err != nil || rec.PaymentID == 0 {
		s.log.Warn().Str("key", key).Msg("discarding undecodable idempotency cache entry")
		return nil
	}
	return rec
}

// cacheIdempotent stores the key to id mapping in the Redis layer (best-effort).
// The request itself is never cached since its status changes after creation.
func (s *PaymentServiceImpl) cacheIdempotent(ctx context.Context, rec *domain.IdempotencyRecord) {
	if s.idempCache == nil {
		return
	}
	data, err := json.Marshal(rec)
	if err != nil {
		s.log.Warn().Err(err).Str("key", rec.Key).Msg("failed to encode idempotency entry")
		return
	}
	if err := s.idempCache.Set(ctx, rec.Key, data, idempotencyTTL); err != nil {
		s.log.Warn().Err(err).Str("key", rec.Key).Msg("failed to cache idempotency in redis")
	}
}

func (s *PaymentServiceImpl) observe(op string, err error) {
	if s.metrics == nil {
		return
	}
	code := "OK"
	if err != nil {
		code = apperror.CodeOf(err)
		if code == "" {
			code = "UNKNOWN"
		}
	}
	s.metrics.ObserveOperation(op, code)
}
