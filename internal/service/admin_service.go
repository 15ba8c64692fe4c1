package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"settlement-gateway/internal/core/domain"
	"settlement-gateway/internal/core/ports"
	"settlement-gateway/pkg/apperror"

	"github.com/rs/zerolog"
)

// adminService implements ports.AdminService. The record is written once, so
// it is cached after the first successful load.
type adminService struct {
	repo ports.AdminRepository
	auth ports.Authorizer
	log  zerolog.Logger

	mu    sync.RWMutex
	state *domain.AdminState
}

// NewAdminService creates a new admin service.
func NewAdminService(repo ports.AdminRepository, auth ports.Authorizer, log zerolog.Logger) ports.AdminService {
	return &adminService{repo: repo, auth: auth, log: log}
}

// Initialize creates the admin record. It requires consent from owner and
// fails with ErrAlreadyInitialized on a second call.
func (s *adminService) Initialize(ctx context.Context, owner domain.Address, defaultFeeBps uint32) (*domain.AdminState, error) {
	if !domain.ValidFeeBps(defaultFeeBps) {
		return nil, apperror.ErrInvalidFeePercentage()
	}
	if err := s.auth.RequireConsent(ctx, owner); err != nil {
		return nil, err
	}
	return s.create(ctx, owner, defaultFeeBps)
}

// Bootstrap initializes from configuration. Restarting with the same values is a no-op.
func (s *adminService) Bootstrap(ctx context.Context, owner domain.Address, defaultFeeBps uint32) error {
	if !owner.Valid() {
		return apperror.ErrInvalidAddress()
	}
	if !domain.ValidFeeBps(defaultFeeBps) {
		return apperror.ErrInvalidFeePercentage()
	}

	current, err := s.load(ctx)
	if err != nil {
		return err
	}
	if current != nil {
		if current.Owner == owner && current.DefaultFeeBps == defaultFeeBps {
			return nil
		}
		return apperror.ErrAlreadyInitialized()
	}

	_, err = s.create(ctx, owner, defaultFeeBps)
	return err
}

// State returns the admin record or ErrContractNotInitialized.
func (s *adminService) State(ctx context.Context) (*domain.AdminState, error) {
	state, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	if state == nil {
		return nil, apperror.ErrContractNotInitialized()
	}
	cp := *state
	return &cp, nil
}

// IsOwnerOr reports whether caller is other or the contract owner. The contract
// must be initialized even when caller == other.
func (s *adminService) IsOwnerOr(ctx context.Context, caller, other domain.Address) (bool, error) {
	state, err := s.State(ctx)
	if err != nil {
		return false, err
	}
	return state.IsOwnerOr(caller, other), nil
}

func (s *adminService) create(ctx context.Context, owner domain.Address, defaultFeeBps uint32) (*domain.AdminState, error) {
	state := &domain.AdminState{
		Owner:         owner,
		DefaultFeeBps: defaultFeeBps,
		InitializedAt: time.Now().UTC(),
	}

	created, err := s.repo.Create(ctx, state)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create admin state: %w", err))
	}
	if !created {
		return nil, apperror.ErrAlreadyInitialized()
	}

	s.mu.Lock()
	s.state = state
	s.mu.Unlock()

	s.log.Info().
		Str("owner", owner.String()).
		Uint32("default_fee_bps", defaultFeeBps).
		Msg("contract initialized")

	cp := *state
	return &cp, nil
}

func (s *adminService) load(ctx context.Context) (*domain.AdminState, error) {
	s.mu.RLock()
	cached := s.state
	s.mu.RUnlock()
	if cached != nil {
		return cached, nil
	}

	state, err := s.repo.Get(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("load admin state: %w", err))
	}
	if state == nil {
		return nil, nil
	}

	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
	return state, nil
}
