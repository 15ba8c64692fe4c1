package memory

import (
	"context"
	"crypto/ed25519"
	"testing"
	"time"

	"settlement-gateway/internal/core/domain"
	"settlement-gateway/internal/core/ports"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAddr(t *testing.T) domain.Address {
	t.Helper()
	pub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	return domain.AddressFromPublicKey(pub)
}

func TestTx_CommitPublishesWrites(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	repo := NewPaymentRepository(s)

	tx, err := s.Begin(ctx)
	require.NoError(t, err)

	id, err := repo.NextID(ctx, tx)
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, tx, &domain.PaymentRequest{ID: id, Amount: 10, Status: domain.PaymentStatusPending}))

	// Not visible outside the unit of work yet.
	got, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, got)

	// Visible inside it.
	got, err = repo.GetByIDForUpdate(ctx, tx, id)
	require.NoError(t, err)
	require.NotNil(t, got)

	require.NoError(t, tx.Commit(ctx))
	assert.ErrorIs(t, tx.Rollback(ctx), pgx.ErrTxClosed)

	got, err = repo.GetByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(10), got.Amount)
}

func TestPaymentRepository_CounterTracksAllocations(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	repo := NewPaymentRepository(s)

	n, err := repo.Counter(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), n)

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	_, err = repo.NextID(ctx, tx)
	require.NoError(t, err)
	id, err := repo.NextID(ctx, tx)
	require.NoError(t, err)
	require.NoError(t, tx.Rollback(ctx))

	// Rolled-back allocations still count; ids are never reused.
	n, err = repo.Counter(ctx)
	require.NoError(t, err)
	assert.Equal(t, id, n)
	assert.Equal(t, uint64(2), n)
}

func TestTx_RollbackDiscardsWrites(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	repo := NewPaymentRepository(s)

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	id, err := repo.NextID(ctx, tx)
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, tx, &domain.PaymentRequest{ID: id, Amount: 10}))
	require.NoError(t, tx.Rollback(ctx))

	got, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = repo.GetByIDForUpdate(ctx, tx, id)
	assert.ErrorIs(t, err, pgx.ErrTxClosed)
}

func TestStore_BeginWaitsForOpenTx(t *testing.T) {
	s := NewStore()

	tx, err := s.Begin(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = s.Begin(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, tx.Rollback(context.Background()))

	tx2, err := s.Begin(context.Background())
	require.NoError(t, err)
	require.NoError(t, tx2.Commit(context.Background()))
}

func TestStore_RejectsForeignTx(t *testing.T) {
	ctx := context.Background()
	a, b := NewStore(), NewStore()

	tx, err := a.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx) //nolint:errcheck

	_, err = NewPaymentRepository(b).NextID(ctx, tx)
	assert.ErrorIs(t, err, errForeignTx)
}

func TestPaymentRepository_NextIDNeverRepeats(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	repo := NewPaymentRepository(s)

	seen := map[uint64]bool{}
	for i := 0; i < 5; i++ {
		tx, err := s.Begin(ctx)
		require.NoError(t, err)
		id, err := repo.NextID(ctx, tx)
		require.NoError(t, err)
		assert.False(t, seen[id])
		seen[id] = true
		// Rolled back ids are not handed out again.
		require.NoError(t, tx.Rollback(ctx))
	}
	assert.True(t, seen[1])
}

func TestPaymentRepository_MarkSettledAndList(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	repo := NewPaymentRepository(s)
	requester, payer := newAddr(t), newAddr(t)

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		id, err := repo.NextID(ctx, tx)
		require.NoError(t, err)
		require.NoError(t, repo.Create(ctx, tx, &domain.PaymentRequest{
			ID: id, Amount: 100, BusinessName: "Store", Requester: requester,
			AuthorizedAddresses: []domain.Address{payer}, Status: domain.PaymentStatusPending,
		}))
	}
	require.NoError(t, repo.MarkSettled(ctx, tx, 2, &domain.Settlement{Payer: payer, FeeAmount: 3, NetAmount: 97}))
	require.NoError(t, repo.MarkCancelled(ctx, tx, 3, time.Now()))
	require.NoError(t, tx.Commit(ctx))

	p, err := repo.GetByID(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusCompleted, p.Status)
	require.NotNil(t, p.Settlement)
	assert.Equal(t, int64(97), p.Settlement.NetAmount)

	all, total, err := repo.List(ctx, domain.PaymentFilter{Requester: requester})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, all, 3)
	assert.Equal(t, uint64(3), all[0].ID)

	page, total, err := repo.List(ctx, domain.PaymentFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, page, 1)
	assert.Equal(t, uint64(2), page[0].ID)

	pending, total, err := repo.List(ctx, domain.PaymentFilter{Status: domain.PaymentStatusPending})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, uint64(1), pending[0].ID)

	empty, _, err := repo.List(ctx, domain.PaymentFilter{Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestPaymentRepository_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	repo := NewPaymentRepository(s)
	a := newAddr(t)

	tx, _ := s.Begin(ctx)
	require.NoError(t, repo.Create(ctx, tx, &domain.PaymentRequest{ID: 1, AuthorizedAddresses: []domain.Address{a}}))
	require.NoError(t, tx.Commit(ctx))

	p, _ := repo.GetByID(ctx, 1)
	p.AuthorizedAddresses[0] = "tampered"
	p.Status = domain.PaymentStatusCompleted

	again, _ := repo.GetByID(ctx, 1)
	assert.Equal(t, a, again.AuthorizedAddresses[0])
	assert.Empty(t, again.Status)
}

func TestAdminRepository_CreateOnce(t *testing.T) {
	ctx := context.Background()
	repo := NewAdminRepository(NewStore())
	owner := newAddr(t)

	got, err := repo.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)

	created, err := repo.Create(ctx, &domain.AdminState{Owner: owner, DefaultFeeBps: 250})
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repo.Create(ctx, &domain.AdminState{Owner: newAddr(t), DefaultFeeBps: 1})
	require.NoError(t, err)
	assert.False(t, created)

	got, err = repo.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, owner, got.Owner)
	assert.Equal(t, uint32(250), got.DefaultFeeBps)
}

func TestBusinessRepository_UpsertKeepsCreatedAt(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	repo := NewBusinessRepository(s)
	first := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Upsert(ctx, &domain.Business{Name: "Store", DefaultFeeBps: 300, IsActive: true, CreatedAt: first}))
	require.NoError(t, repo.Upsert(ctx, &domain.Business{Name: "Store", DefaultFeeBps: 100, IsActive: true, CreatedAt: first.Add(time.Hour)}))

	b, err := repo.Get(ctx, "Store")
	require.NoError(t, err)
	assert.Equal(t, uint32(100), b.DefaultFeeBps)
	assert.Equal(t, first, b.CreatedAt)

	tx, _ := s.Begin(ctx)
	locked, err := repo.GetForUpdate(ctx, tx, "Store")
	require.NoError(t, err)
	locked.IsActive = false
	require.NoError(t, repo.Update(ctx, tx, locked))
	assert.Error(t, repo.Update(ctx, tx, &domain.Business{Name: "Missing"}))
	require.NoError(t, tx.Commit(ctx))

	b, _ = repo.Get(ctx, "Store")
	assert.False(t, b.IsActive)

	missing, err := repo.Get(ctx, "Missing")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestHistoryRepository_RecordSettlement(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	repo := NewHistoryRepository(s)
	payer := newAddr(t)

	tx, _ := s.Begin(ctx)
	require.NoError(t, repo.RecordSettlement(ctx, tx, payer, 1, 100))
	require.NoError(t, repo.RecordSettlement(ctx, tx, payer, 2, 50))
	require.NoError(t, tx.Commit(ctx))

	tx, _ = s.Begin(ctx)
	require.NoError(t, repo.RecordSettlement(ctx, tx, payer, 7, 25))
	require.NoError(t, tx.Commit(ctx))

	h, err := repo.Get(ctx, payer)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentHistory{Payer: payer, TotalPayments: 3, TotalAmount: 175, LastPaymentID: 7}, *h)

	none, err := repo.Get(ctx, newAddr(t))
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestIdempotencyRepository_Conflict(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	repo := NewIdempotencyRepository(s)

	tx, _ := s.Begin(ctx)
	require.NoError(t, repo.Create(ctx, tx, &domain.IdempotencyRecord{Key: "k", PaymentID: 1}))
	assert.ErrorIs(t, repo.Create(ctx, tx, &domain.IdempotencyRecord{Key: "k", PaymentID: 2}), ports.ErrIdempotencyConflict)
	require.NoError(t, tx.Commit(ctx))

	tx, _ = s.Begin(ctx)
	assert.ErrorIs(t, repo.Create(ctx, tx, &domain.IdempotencyRecord{Key: "k", PaymentID: 3}), ports.ErrIdempotencyConflict)
	require.NoError(t, tx.Rollback(ctx))

	rec, err := repo.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), rec.PaymentID)
}

func TestAuditRepository_Entries(t *testing.T) {
	repo := NewAuditRepository(NewStore())
	require.NoError(t, repo.Create(context.Background(), &domain.AuditLog{Action: domain.AuditActionExecute}))

	entries := repo.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, domain.AuditActionExecute, entries[0].Action)
}

func TestStore_Health(t *testing.T) {
	s := NewStore()
	assert.NoError(t, s.Ping(context.Background()))
	assert.Equal(t, "memory", s.Name())
}
