package postgres

import (
	"context"
	"errors"
	"fmt"

	"settlement-gateway/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

const businessColumns = `name, owner, fee_recipient, default_fee_bps, is_active, created_at, updated_at, min_amount, max_amount`

// BusinessRepo implements ports.BusinessRepository.
type BusinessRepo struct {
	pool Pool
}

// NewBusinessRepo creates a new BusinessRepo.
func NewBusinessRepo(pool Pool) *BusinessRepo {
	return &BusinessRepo{pool: pool}
}

// Upsert replaces the configuration stored under b.Name. The original
// created_at survives re-registration.
func (r *BusinessRepo) Upsert(ctx context.Context, b *domain.Business) error {
	query := `INSERT INTO businesses (` + businessColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (name) DO UPDATE SET
			owner = EXCLUDED.owner,
			fee_recipient = EXCLUDED.fee_recipient,
			default_fee_bps = EXCLUDED.default_fee_bps,
			is_active = EXCLUDED.is_active,
			updated_at = EXCLUDED.updated_at,
			min_amount = EXCLUDED.min_amount,
			max_amount = EXCLUDED.max_amount`

	_, err := r.pool.Exec(ctx, query,
		b.Name, string(b.Owner), string(b.FeeRecipient), int32(b.DefaultFeeBps),
		b.IsActive, b.CreatedAt, b.UpdatedAt, b.MinAmount, b.MaxAmount,
	)
	if err != nil {
		return fmt.Errorf("upsert business: %w", err)
	}
	return nil
}

// Get fetches a business by name (non-locking read).
func (r *BusinessRepo) Get(ctx context.Context, name string) (*domain.Business, error) {
	query := `SELECT ` + businessColumns + ` FROM businesses WHERE name = $1`
	b, err := scanBusiness(r.pool.QueryRow(ctx, query, name))
	if err != nil {
		return nil, fmt.Errorf("get business: %w", err)
	}
	return b, nil
}

// GetForUpdate fetches a business with a row lock. Must run inside tx.
func (r *BusinessRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, name string) (*domain.Business, error) {
	query := `SELECT ` + businessColumns + ` FROM businesses WHERE name = $1 FOR UPDATE`
	b, err := scanBusiness(tx.QueryRow(ctx, query, name))
	if err != nil {
		return nil, fmt.Errorf("get business for update: %w", err)
	}
	return b, nil
}

// Update writes the mutable fields of b.
func (r *BusinessRepo) Update(ctx context.Context, tx pgx.Tx, b *domain.Business) error {
	query := `UPDATE businesses SET is_active = $2, default_fee_bps = $3, updated_at = $4 WHERE name = $1`

	tag, err := tx.Exec(ctx, query, b.Name, b.IsActive, int32(b.DefaultFeeBps), b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update business: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update business: %q not found", b.Name)
	}
	return nil
}

// scanBusiness returns nil, nil when the row does not exist.
func scanBusiness(row pgx.Row) (*domain.Business, error) {
	var (
		b                   domain.Business
		owner, feeRecipient string
		fee                 int32
	)
	err := row.Scan(&b.Name, &owner, &feeRecipient, &fee, &b.IsActive, &b.CreatedAt, &b.UpdatedAt, &b.MinAmount, &b.MaxAmount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	b.Owner = domain.Address(owner)
	b.FeeRecipient = domain.Address(feeRecipient)
	b.DefaultFeeBps = uint32(fee)
	return &b, nil
}
