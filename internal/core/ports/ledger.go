package ports

import (
	"context"
	"errors"

	"settlement-gateway/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

//go:generate mockgen -source=ledger.go -destination=mocks/mock_ledger.go -package=mocks

var (
	// ErrInsufficientFunds is returned by Transfer when from cannot cover amount.
	ErrInsufficientFunds = errors.New("ledger: insufficient funds")
	// ErrTransferRejected is returned for any other refused transfer.
	ErrTransferRejected = errors.New("ledger: transfer rejected")
)

// Ledger moves value between accounts. Both calls join the caller's unit of
// work so a failed leg rolls back every earlier one.
type Ledger interface {
	BalanceOf(ctx context.Context, tx pgx.Tx, account domain.Address, asset string) (int64, error)
	Transfer(ctx context.Context, tx pgx.Tx, from, to domain.Address, asset string, amount int64) error
}
