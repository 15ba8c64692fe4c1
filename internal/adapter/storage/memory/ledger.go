package memory

import (
	"context"
	"fmt"

	"settlement-gateway/internal/core/domain"
	"settlement-gateway/internal/core/ports"

	"github.com/jackc/pgx/v5"
)

// Ledger implements ports.Ledger over the store's balance table.
type Ledger struct{ s *Store }

// NewLedger creates a ledger over s.
func NewLedger(s *Store) *Ledger { return &Ledger{s: s} }

// BalanceOf returns the balance of account in asset as seen by tx.
// A nil tx reads committed state.
func (l *Ledger) BalanceOf(_ context.Context, tx pgx.Tx, account domain.Address, asset string) (int64, error) {
	var t *Tx
	if tx != nil {
		var err error
		if t, err = l.s.unwrap(tx); err != nil {
			return 0, err
		}
	}
	return l.balance(t, balanceKey{account, asset}), nil
}

// Transfer moves amount of asset from one account to another inside tx.
func (l *Ledger) Transfer(_ context.Context, tx pgx.Tx, from, to domain.Address, asset string, amount int64) error {
	t, err := l.s.unwrap(tx)
	if err != nil {
		return err
	}
	if amount <= 0 {
		return fmt.Errorf("%w: non-positive amount %d", ports.ErrTransferRejected, amount)
	}
	if !from.Valid() || !to.Valid() {
		return fmt.Errorf("%w: invalid account", ports.ErrTransferRejected)
	}

	fromKey := balanceKey{from, asset}
	toKey := balanceKey{to, asset}

	fromBal := l.balance(t, fromKey)
	if fromBal < amount {
		return ports.ErrInsufficientFunds
	}
	t.balances[fromKey] = fromBal - amount

	toBal := l.balance(t, toKey)
	if toBal > maxInt64-amount {
		return fmt.Errorf("%w: balance overflow", ports.ErrTransferRejected)
	}
	t.balances[toKey] = toBal + amount
	return nil
}

// Credit adds amount to account in its own unit of work. Used to seed balances.
func (l *Ledger) Credit(ctx context.Context, account domain.Address, asset string, amount int64) error {
	if amount < 0 {
		return fmt.Errorf("%w: negative credit %d", ports.ErrTransferRejected, amount)
	}
	return l.s.update(ctx, func(t *Tx) error {
		k := balanceKey{account, asset}
		bal := l.balance(t, k)
		if bal > maxInt64-amount {
			return fmt.Errorf("%w: balance overflow", ports.ErrTransferRejected)
		}
		t.balances[k] = bal + amount
		return nil
	})
}

const maxInt64 = int64(^uint64(0) >> 1)

func (l *Ledger) balance(t *Tx, k balanceKey) int64 {
	if t != nil {
		if v, ok := t.balances[k]; ok {
			return v
		}
	}
	l.s.mu.RLock()
	defer l.s.mu.RUnlock()
	return l.s.balances[k]
}
