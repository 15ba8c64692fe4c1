package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"settlement-gateway/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

const paymentColumns = `id, amount, business_name, description, denomination, authorized_addresses,
	requester, fee_bps, status, created_at, payer, asset, fee_amount, net_amount, settled_at, cancelled_at`

// PaymentRepo implements ports.PaymentRepository.
type PaymentRepo struct {
	pool Pool
}

// NewPaymentRepo creates a new PaymentRepo.
func NewPaymentRepo(pool Pool) *PaymentRepo {
	return &PaymentRepo{pool: pool}
}

// NextID draws the next identifier from the sequence. Sequence values are
// never handed out twice, even when tx rolls back.
func (r *PaymentRepo) NextID(ctx context.Context, tx pgx.Tx) (uint64, error) {
	var id int64
	if err := tx.QueryRow(ctx, `SELECT nextval('payment_request_id_seq')`).Scan(&id); err != nil {
		return 0, fmt.Errorf("next payment id: %w", err)
	}
	return uint64(id), nil
}

// Counter reports the last value drawn from the id sequence, or 0 when
// nextval has never been called.
func (r *PaymentRepo) Counter(ctx context.Context) (uint64, error) {
	var n int64
	query := `SELECT CASE WHEN is_called THEN last_value ELSE 0 END FROM payment_request_id_seq`
	if err := r.pool.QueryRow(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("read payment counter: %w", err)
	}
	return uint64(n), nil
}

// Create inserts a new payment request inside tx.
func (r *PaymentRepo) Create(ctx context.Context, tx pgx.Tx, p *domain.PaymentRequest) error {
	query := `INSERT INTO payment_requests (id, amount, business_name, description, denomination,
		authorized_addresses, requester, fee_bps, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := tx.Exec(ctx, query,
		int64(p.ID), p.Amount, p.BusinessName, p.Description, p.Denomination,
		addressStrings(p.AuthorizedAddresses), string(p.Requester), int32(p.FeeBps),
		string(p.Status), p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert payment request: %w", err)
	}
	return nil
}

// GetByID fetches a payment request (non-locking read).
func (r *PaymentRepo) GetByID(ctx context.Context, id uint64) (*domain.PaymentRequest, error) {
	query := `SELECT ` + paymentColumns + ` FROM payment_requests WHERE id = $1`
	p, err := scanPayment(r.pool.QueryRow(ctx, query, int64(id)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get payment request: %w", err)
	}
	return p, nil
}

// GetByIDForUpdate fetches a payment request with a row lock.
// This MUST be called within a transaction.
func (r *PaymentRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uint64) (*domain.PaymentRequest, error) {
	query := `SELECT ` + paymentColumns + ` FROM payment_requests WHERE id = $1 FOR UPDATE`
	p, err := scanPayment(tx.QueryRow(ctx, query, int64(id)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get payment request for update: %w", err)
	}
	return p, nil
}

// MarkSettled moves a request to COMPLETED and stores its settlement.
func (r *PaymentRepo) MarkSettled(ctx context.Context, tx pgx.Tx, id uint64, s *domain.Settlement) error {
	query := `UPDATE payment_requests
		SET status = $2, payer = $3, asset = $4, fee_amount = $5, net_amount = $6, settled_at = $7
		WHERE id = $1`

	tag, err := tx.Exec(ctx, query,
		int64(id), string(domain.PaymentStatusCompleted), string(s.Payer), s.Asset,
		s.FeeAmount, s.NetAmount, s.SettledAt,
	)
	if err != nil {
		return fmt.Errorf("mark payment settled: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("mark payment settled: request %d not found", id)
	}
	return nil
}

// MarkCancelled moves a request to CANCELLED.
func (r *PaymentRepo) MarkCancelled(ctx context.Context, tx pgx.Tx, id uint64, at time.Time) error {
	query := `UPDATE payment_requests SET status = $2, cancelled_at = $3 WHERE id = $1`

	tag, err := tx.Exec(ctx, query, int64(id), string(domain.PaymentStatusCancelled), at)
	if err != nil {
		return fmt.Errorf("mark payment cancelled: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("mark payment cancelled: request %d not found", id)
	}
	return nil
}

// List returns matching requests newest first along with the total match count.
func (r *PaymentRepo) List(ctx context.Context, filter domain.PaymentFilter) ([]domain.PaymentRequest, int64, error) {
	where, args := buildPaymentFilter(filter)

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM payment_requests`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count payment requests: %w", err)
	}

	query := `SELECT ` + paymentColumns + ` FROM payment_requests` + where + ` ORDER BY id DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	args = append(args, filter.Offset)
	query += fmt.Sprintf(" OFFSET $%d", len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list payment requests: %w", err)
	}
	defer rows.Close()

	out := make([]domain.PaymentRequest, 0)
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan payment request: %w", err)
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate payment requests: %w", err)
	}
	return out, total, nil
}

func buildPaymentFilter(f domain.PaymentFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.Requester != "" {
		args = append(args, string(f.Requester))
		conds = append(conds, fmt.Sprintf("requester = $%d", len(args)))
	}
	if f.BusinessName != "" {
		args = append(args, f.BusinessName)
		conds = append(conds, fmt.Sprintf("business_name = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func scanPayment(row pgx.Row) (*domain.PaymentRequest, error) {
	var (
		p                 domain.PaymentRequest
		id                int64
		addrs             []string
		requester, status string
		fee               int32
		payer, asset      *string
		feeAmt, netAmt    *int64
		settledAt         *time.Time
	)
	err := row.Scan(
		&id, &p.Amount, &p.BusinessName, &p.Description, &p.Denomination, &addrs,
		&requester, &fee, &status, &p.CreatedAt,
		&payer, &asset, &feeAmt, &netAmt, &settledAt, &p.CancelledAt,
	)
	if err != nil {
		return nil, err
	}

	p.ID = uint64(id)
	p.Requester = domain.Address(requester)
	p.FeeBps = uint32(fee)
	p.Status = domain.PaymentStatus(status)
	p.AuthorizedAddresses = make([]domain.Address, len(addrs))
	for i, a := range addrs {
		p.AuthorizedAddresses[i] = domain.Address(a)
	}
	if payer != nil && settledAt != nil {
		p.Settlement = &domain.Settlement{
			Payer:     domain.Address(*payer),
			Asset:     deref(asset),
			FeeAmount: derefInt(feeAmt),
			NetAmount: derefInt(netAmt),
			SettledAt: *settledAt,
		}
	}
	return &p, nil
}

func addressStrings(addrs []domain.Address) []string {
	out := make([]string, len(addrs))
	for i, a := range addrs {
		out[i] = string(a)
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefInt(n *int64) int64 {
	if n == nil {
		return 0
	}
	return *n
}
