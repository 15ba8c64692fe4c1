package service

import (
	"context"
	"fmt"
	"time"

	"settlement-gateway/internal/core/domain"
	"settlement-gateway/internal/core/ports"
	"settlement-gateway/pkg/apperror"

	"github.com/rs/zerolog"
)

const maxBusinessNameLength = 64

// businessService implements ports.BusinessService.
type businessService struct {
	repo       ports.BusinessRepository
	admin      ports.AdminService
	auth       ports.Authorizer
	transactor ports.DBTransactor
	log        zerolog.Logger
}

// NewBusinessService creates a new business registry service.
func NewBusinessService(
	repo ports.BusinessRepository,
	admin ports.AdminService,
	auth ports.Authorizer,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) ports.BusinessService {
	return &businessService{
		repo:       repo,
		admin:      admin,
		auth:       auth,
		transactor: transactor,
		log:        log,
	}
}

// Register stores the configuration for req.Name, replacing any previous one.
func (s *businessService) Register(ctx context.Context, req ports.RegisterBusinessRequest) (*domain.Business, error) {
	if err := s.auth.RequireConsent(ctx, req.Owner); err != nil {
		return nil, err
	}
	if !domain.ValidFeeBps(req.FeeBps) {
		return nil, apperror.ErrInvalidFeePercentage()
	}
	if !domain.ValidAmountBounds(req.MinAmount, req.MaxAmount) {
		return nil, apperror.ErrInvalidAmount()
	}
	name := domain.NormalizeBusinessName(req.Name)
	if name == "" || len(name) > maxBusinessNameLength {
		return nil, apperror.Validation("business name must be 1-64 characters")
	}
	if !req.FeeRecipient.Valid() {
		return nil, apperror.ErrInvalidAddress()
	}

	now := time.Now().UTC()
	b := &domain.Business{
		Name:          name,
		Owner:         req.Owner,
		FeeRecipient:  req.FeeRecipient,
		DefaultFeeBps: req.FeeBps,
		MinAmount:     req.MinAmount,
		MaxAmount:     req.MaxAmount,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.Upsert(ctx, b); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("upsert business: %w", err))
	}

	s.log.Info().
		Str("business", name).
		Str("owner", req.Owner.String()).
		Uint32("fee_bps", req.FeeBps).
		Msg("business registered")

	return b, nil
}

// UpdateStatus activates or deactivates a business.
func (s *businessService) UpdateStatus(ctx context.Context, name string, isActive bool, caller domain.Address) (*domain.Business, error) {
	if err := s.auth.RequireConsent(ctx, caller); err != nil {
		return nil, err
	}
	return s.mutate(ctx, name, caller, func(b *domain.Business) {
		b.IsActive = isActive
	})
}

// UpdateFee changes the default fee applied to future payment requests.
func (s *businessService) UpdateFee(ctx context.Context, name string, feeBps uint32, caller domain.Address) (*domain.Business, error) {
	if err := s.auth.RequireConsent(ctx, caller); err != nil {
		return nil, err
	}
	if !domain.ValidFeeBps(feeBps) {
		return nil, apperror.ErrInvalidFeePercentage()
	}
	return s.mutate(ctx, name, caller, func(b *domain.Business) {
		b.DefaultFeeBps = feeBps
	})
}

// Get returns the configuration registered under name.
func (s *businessService) Get(ctx context.Context, name string) (*domain.Business, error) {
	b, err := s.repo.Get(ctx, domain.NormalizeBusinessName(name))
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get business: %w", err))
	}
	if b == nil {
		return nil, apperror.ErrBusinessNotFound()
	}
	return b, nil
}

// mutate applies fn to the locked business row if caller is its owner or the contract owner.
func (s *businessService) mutate(ctx context.Context, name string, caller domain.Address, fn func(*domain.Business)) (*domain.Business, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	b, err := s.repo.GetForUpdate(ctx, dbTx, domain.NormalizeBusinessName(name))
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock business: %w", err))
	}
	if b == nil {
		return nil, apperror.ErrBusinessNotFound()
	}

	allowed, err := s.admin.IsOwnerOr(ctx, caller, b.Owner)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, apperror.ErrNotAuthorized()
	}

	fn(b)
	b.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, dbTx, b); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update business: %w", err))
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("business", b.Name).
		Bool("is_active", b.IsActive).
		Uint32("fee_bps", b.DefaultFeeBps).
		Str("caller", caller.String()).
		Msg("business updated")

	return b, nil
}
