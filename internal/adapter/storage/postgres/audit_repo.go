package postgres

import (
	"context"
	"fmt"

	"settlement-gateway/internal/core/domain"
)

// AuditRepo implements ports.AuditRepository.
type AuditRepo struct {
	pool Pool
}

// NewAuditRepo creates a PostgreSQL-backed audit repository.
func NewAuditRepo(pool Pool) *AuditRepo {
	return &AuditRepo{pool: pool}
}

func (r *AuditRepo) Create(ctx context.Context, entry *domain.AuditLog) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO audit_logs (id, actor, action, resource_type, resource_id, details, ip_address, status_code, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		entry.ID, nullable(string(entry.Actor)), string(entry.Action), entry.ResourceType,
		nullable(entry.ResourceID), nullable(entry.Details), entry.IPAddress, entry.StatusCode, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
