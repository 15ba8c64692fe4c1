package service

import (
	"context"
	"errors"
	"testing"

	"settlement-gateway/internal/core/domain"
	"settlement-gateway/internal/core/ports/mocks"
	"settlement-gateway/pkg/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestHistoryService_Get(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockHistoryRepository(ctrl)
	svc := NewHistoryService(repo)
	ctx := context.Background()
	payer, newcomer := newAddr(t), newAddr(t)

	repo.EXPECT().Get(ctx, payer).Return(&domain.PaymentHistory{Payer: payer, TotalPayments: 2, TotalAmount: 300, LastPaymentID: 9}, nil)
	repo.EXPECT().Get(ctx, newcomer).Return(nil, nil)

	h, err := svc.Get(ctx, payer)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), h.TotalPayments)

	h, err = svc.Get(ctx, newcomer)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentHistory{Payer: newcomer}, *h)

	_, err = svc.Get(ctx, "bad")
	assert.ErrorIs(t, err, apperror.ErrInvalidAddress())
}

func TestHistoryService_RecordSettlement(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockHistoryRepository(ctrl)
	svc := NewHistoryService(repo)
	ctx := context.Background()
	tx := &mockTx{}
	payer := newAddr(t)

	repo.EXPECT().RecordSettlement(ctx, tx, payer, uint64(1), int64(500)).Return(nil)
	require.NoError(t, svc.RecordSettlement(ctx, tx, payer, 1, 500))

	boom := errors.New("boom")
	repo.EXPECT().RecordSettlement(ctx, tx, payer, uint64(2), int64(5)).Return(boom)
	assert.ErrorIs(t, svc.RecordSettlement(ctx, tx, payer, 2, 5), boom)
}
