package postgres

import (
	"context"
	"math"
	"testing"
	"time"

	"settlement-gateway/internal/core/domain"
	"settlement-gateway/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedger_BalanceOf(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	ledger := NewLedger(mock)

	mock.ExpectQuery("FROM ledger_balances WHERE account").
		WithArgs(string(payerAddr), "USD").
		WillReturnRows(pgxmock.NewRows([]string{"balance"}).AddRow(int64(500)))
	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").
		WithArgs(string(ownerAddr), "USD").
		WillReturnRows(pgxmock.NewRows([]string{"balance"}))

	bal, err := ledger.BalanceOf(context.Background(), nil, payerAddr, "USD")
	require.NoError(t, err)
	assert.Equal(t, int64(500), bal)

	dbTx, err := mock.Begin(context.Background())
	require.NoError(t, err)
	bal, err = ledger.BalanceOf(context.Background(), dbTx, ownerAddr, "USD")
	require.NoError(t, err)
	assert.Zero(t, bal, "missing row reads as zero")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedger_Transfer(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	ledger := NewLedger(mock)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE ledger_balances SET balance = balance -").
		WithArgs(string(payerAddr), "USD", int64(975)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("INSERT INTO ledger_balances").
		WithArgs(string(recipientAddr), "USD", int64(975)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	dbTx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	require.NoError(t, ledger.Transfer(context.Background(), dbTx, payerAddr, recipientAddr, "USD", 975))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedger_Transfer_Insufficient(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	ledger := NewLedger(mock)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE ledger_balances").
		WithArgs(string(payerAddr), "USD", int64(10_000)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	dbTx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = ledger.Transfer(context.Background(), dbTx, payerAddr, recipientAddr, "USD", 10_000)
	assert.ErrorIs(t, err, ports.ErrInsufficientFunds)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedger_Transfer_Overflow(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	ledger := NewLedger(mock)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE ledger_balances").
		WithArgs(string(payerAddr), "USD", int64(1)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("INSERT INTO ledger_balances").
		WithArgs(string(recipientAddr), "USD", int64(1)).
		WillReturnError(&pgconn.PgError{Code: "22003"})

	dbTx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = ledger.Transfer(context.Background(), dbTx, payerAddr, recipientAddr, "USD", 1)
	assert.ErrorIs(t, err, ports.ErrTransferRejected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedger_Transfer_RejectsBadInput(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	ledger := NewLedger(mock)
	mock.ExpectBegin()
	dbTx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	assert.ErrorIs(t, ledger.Transfer(context.Background(), dbTx, payerAddr, recipientAddr, "USD", 0), ports.ErrTransferRejected)
	assert.ErrorIs(t, ledger.Transfer(context.Background(), dbTx, "bogus", recipientAddr, "USD", 5), ports.ErrTransferRejected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHistoryRepo(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewHistoryRepo(mock)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO payment_histories").
		WithArgs(string(payerAddr), int64(1000), int64(4)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery("FROM payment_histories WHERE payer").
		WithArgs(string(payerAddr)).
		WillReturnRows(pgxmock.NewRows([]string{"total_payments", "total_amount", "last_payment_id"}).
			AddRow(int64(3), int64(4200), int64(4)))
	mock.ExpectQuery("FROM payment_histories WHERE payer").
		WithArgs(string(ownerAddr)).
		WillReturnRows(pgxmock.NewRows([]string{"total_payments", "total_amount", "last_payment_id"}))

	dbTx, err := mock.Begin(context.Background())
	require.NoError(t, err)
	require.NoError(t, repo.RecordSettlement(context.Background(), dbTx, payerAddr, 4, 1000))

	h, err := repo.Get(context.Background(), payerAddr)
	require.NoError(t, err)
	assert.Equal(t, &domain.PaymentHistory{Payer: payerAddr, TotalPayments: 3, TotalAmount: 4200, LastPaymentID: 4}, h)

	h, err = repo.Get(context.Background(), ownerAddr)
	require.NoError(t, err)
	assert.Nil(t, h)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHistoryRepo_RecordSettlementSaturates(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewHistoryRepo(mock)

	mock.ExpectBegin()
	mock.ExpectExec(`WHEN payment_histories\.total_amount > 9223372036854775807 - EXCLUDED\.total_amount\s+THEN 9223372036854775807`).
		WithArgs(string(payerAddr), int64(math.MaxInt64), int64(9)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	dbTx, err := mock.Begin(context.Background())
	require.NoError(t, err)
	require.NoError(t, repo.RecordSettlement(context.Background(), dbTx, payerAddr, 9, math.MaxInt64))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAuditRepo(mock)
	entry := &domain.AuditLog{
		ID:           uuid.New(),
		Action:       domain.AuditActionInitialize,
		ResourceType: "contract",
		IPAddress:    "10.0.0.1",
		StatusCode:   201,
		CreatedAt:    time.Now().UTC(),
	}

	mock.ExpectExec("INSERT INTO audit_logs").
		WithArgs(entry.ID, (*string)(nil), "INITIALIZE", "contract", (*string)(nil), (*string)(nil),
			"10.0.0.1", 201, entry.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.Create(context.Background(), entry))
	assert.NoError(t, mock.ExpectationsWereMet())
}
