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

const numericOutOfRange = "22003"

// Ledger implements ports.Ledger over the ledger_balances table. The
// balance >= 0 check constraint backs the explicit debit guard.
type Ledger struct {
	pool Pool
}

// NewLedger creates a new Ledger.
func NewLedger(pool Pool) *Ledger {
	return &Ledger{pool: pool}
}

// BalanceOf returns the balance of account in asset. Inside tx the row is
// locked until commit; a nil tx reads committed state.
func (l *Ledger) BalanceOf(ctx context.Context, tx pgx.Tx, account domain.Address, asset string) (int64, error) {
	query := `SELECT balance FROM ledger_balances WHERE account = $1 AND asset = $2`

	var row pgx.Row
	if tx != nil {
		row = tx.QueryRow(ctx, query+` FOR UPDATE`, string(account), asset)
	} else {
		row = l.pool.QueryRow(ctx, query, string(account), asset)
	}

	var bal int64
	if err := row.Scan(&bal); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("get ledger balance: %w", err)
	}
	return bal, nil
}

// Transfer debits from and credits to inside tx.
func (l *Ledger) Transfer(ctx context.Context, tx pgx.Tx, from, to domain.Address, asset string, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("%w: non-positive amount %d", ports.ErrTransferRejected, amount)
	}
	if !from.Valid() || !to.Valid() {
		return fmt.Errorf("%w: invalid account", ports.ErrTransferRejected)
	}

	debit := `UPDATE ledger_balances SET balance = balance - $3
		WHERE account = $1 AND asset = $2 AND balance >= $3`
	tag, err := tx.Exec(ctx, debit, string(from), asset, amount)
	if err != nil {
		return fmt.Errorf("debit ledger: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ports.ErrInsufficientFunds
	}

	credit := `INSERT INTO ledger_balances (account, asset, balance) VALUES ($1, $2, $3)
		ON CONFLICT (account, asset) DO UPDATE SET balance = ledger_balances.balance + EXCLUDED.balance`
	if _, err := tx.Exec(ctx, credit, string(to), asset, amount); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == numericOutOfRange {
			return fmt.Errorf("%w: balance overflow", ports.ErrTransferRejected)
		}
		return fmt.Errorf("credit ledger: %w", err)
	}
	return nil
}
