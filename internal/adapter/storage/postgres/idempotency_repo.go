package postgres

import (
	"context"
	"errors"
	"fmt"

	"settlement-gateway/internal/core/domain"
	"settlement-gateway/internal/core/ports"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

// IdempotencyRepo implements ports.IdempotencyRepository.
type IdempotencyRepo struct {
	pool Pool
}

// NewIdempotencyRepo creates a new IdempotencyRepo.
func NewIdempotencyRepo(pool Pool) *IdempotencyRepo {
	return &IdempotencyRepo{pool: pool}
}

// Create inserts an idempotency record within a database transaction.
// A duplicate key surfaces as ports.ErrIdempotencyConflict.
func (r *IdempotencyRepo) Create(ctx context.Context, tx pgx.Tx, rec *domain.IdempotencyRecord) error {
	query := `INSERT INTO idempotency_records (key, payment_id, created_at) VALUES ($1, $2, $3)`

	_, err := tx.Exec(ctx, query, rec.Key, int64(rec.PaymentID), rec.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ports.ErrIdempotencyConflict
		}
		return fmt.Errorf("insert idempotency record: %w", err)
	}
	return nil
}

// Get fetches an idempotency record by key.
func (r *IdempotencyRepo) Get(ctx context.Context, key string) (*domain.IdempotencyRecord, error) {
	query := `SELECT key, payment_id, created_at FROM idempotency_records WHERE key = $1`

	var (
		rec domain.IdempotencyRecord
		id  int64
	)
	err := r.pool.QueryRow(ctx, query, key).Scan(&rec.Key, &id, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get idempotency record: %w", err)
	}
	rec.PaymentID = uint64(id)
	return &rec, nil
}
