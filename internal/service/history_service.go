package service

import (
	"context"
	"fmt"

	"settlement-gateway/internal/core/domain"
	"settlement-gateway/internal/core/ports"
	"settlement-gateway/pkg/apperror"

	"github.com/jackc/pgx/v5"
)

// historyService implements ports.HistoryService.
type historyService struct {
	repo ports.HistoryRepository
}

// NewHistoryService creates a new history aggregator.
func NewHistoryService(repo ports.HistoryRepository) ports.HistoryService {
	return &historyService{repo: repo}
}

// RecordSettlement folds a settlement into the payer's aggregate inside tx.
func (s *historyService) RecordSettlement(ctx context.Context, tx pgx.Tx, payer domain.Address, paymentID uint64, amount int64) error {
	if err := s.repo.RecordSettlement(ctx, tx, payer, paymentID, amount); err != nil {
		return fmt.Errorf("record settlement: %w", err)
	}
	return nil
}

// Get returns the payer's aggregate, zeroed if the payer never settled.
func (s *historyService) Get(ctx context.Context, payer domain.Address) (*domain.PaymentHistory, error) {
	if !payer.Valid() {
		return nil, apperror.ErrInvalidAddress()
	}
	h, err := s.repo.Get(ctx, payer)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get history: %w", err))
	}
	if h == nil {
		return &domain.PaymentHistory{Payer: payer}, nil
	}
	return h, nil
}
