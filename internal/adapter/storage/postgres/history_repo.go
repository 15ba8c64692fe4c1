package postgres

import (
	"context"
	"errors"
	"fmt"

	"settlement-gateway/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// HistoryRepo implements ports.HistoryRepository.
type HistoryRepo struct {
	pool Pool
}

// NewHistoryRepo creates a new HistoryRepo.
func NewHistoryRepo(pool Pool) *HistoryRepo {
	return &HistoryRepo{pool: pool}
}

// Get fetches the aggregate for payer, or nil if the payer never settled.
func (r *HistoryRepo) Get(ctx context.Context, payer domain.Address) (*domain.PaymentHistory, error) {
	query := `SELECT total_payments, total_amount, last_payment_id FROM payment_histories WHERE payer = $1`

	var count, total, last int64
	err := r.pool.QueryRow(ctx, query, string(payer)).Scan(&count, &total, &last)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get payment history: %w", err)
	}
	return &domain.PaymentHistory{
		Payer:         payer,
		TotalPayments: uint64(count),
		TotalAmount:   total,
		LastPaymentID: uint64(last),
	}, nil
}

// RecordSettlement folds one settlement into payer's aggregate inside tx.
// total_amount saturates at the BIGINT maximum so the upsert cannot overflow.
func (r *HistoryRepo) RecordSettlement(ctx context.Context, tx pgx.Tx, payer domain.Address, paymentID uint64, amount int64) error {
	query := `INSERT INTO payment_histories (payer, total_payments, total_amount, last_payment_id)
		VALUES ($1, 1, $2, $3)
		ON CONFLICT (payer) DO UPDATE SET
			total_payments = payment_histories.total_payments + 1,
			total_amount = CASE
				WHEN payment_histories.total_amount > 9223372036854775807 - EXCLUDED.total_amount
				THEN 9223372036854775807
				ELSE payment_histories.total_amount + EXCLUDED.total_amount
			END,
			last_payment_id = EXCLUDED.last_payment_id`

	if _, err := tx.Exec(ctx, query, string(payer), amount, int64(paymentID)); err != nil {
		return fmt.Errorf("record settlement history: %w", err)
	}
	return nil
}
