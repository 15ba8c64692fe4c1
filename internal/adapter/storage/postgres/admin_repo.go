package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"settlement-gateway/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// AdminRepo implements ports.AdminRepository over the single-row admin_state table.
type AdminRepo struct {
	pool Pool
}

// NewAdminRepo creates a new AdminRepo.
func NewAdminRepo(pool Pool) *AdminRepo {
	return &AdminRepo{pool: pool}
}

// Get fetches the admin record, or nil when the contract is not initialized.
func (r *AdminRepo) Get(ctx context.Context) (*domain.AdminState, error) {
	query := `SELECT owner, default_fee_bps, initialized_at FROM admin_state WHERE id = 1`

	var (
		owner string
		fee   int32
		at    time.Time
	)
	err := r.pool.QueryRow(ctx, query).Scan(&owner, &fee, &at)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get admin state: %w", err)
	}
	return &domain.AdminState{
		Owner:         domain.Address(owner),
		DefaultFeeBps: uint32(fee),
		InitializedAt: at,
	}, nil
}

// Create inserts the admin record. It reports false when one already exists.
func (r *AdminRepo) Create(ctx context.Context, state *domain.AdminState) (bool, error) {
	query := `INSERT INTO admin_state (id, owner, default_fee_bps, initialized_at)
		VALUES (1, $1, $2, $3) ON CONFLICT (id) DO NOTHING`

	tag, err := r.pool.Exec(ctx, query, string(state.Owner), int32(state.DefaultFeeBps), state.InitializedAt)
	if err != nil {
		return false, fmt.Errorf("insert admin state: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
