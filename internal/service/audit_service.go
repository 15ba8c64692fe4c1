package service

import (
	"context"

	"settlement-gateway/internal/core/domain"
	"settlement-gateway/internal/core/ports"

	"github.com/rs/zerolog"
)

type auditService struct {
	repo ports.AuditRepository
	log  zerolog.Logger
}

// NewAuditService creates a new audit service.
// If repo is nil, audit logs are only written to the logger.
func NewAuditService(repo ports.AuditRepository, log zerolog.Logger) ports.AuditService {
	return &auditService{repo: repo, log: log}
}

// Log records an audit entry asynchronously.
func (s *auditService) Log(_ context.Context, entry *domain.AuditLog) {
	go func() {
		s.log.Info().
			Str("action", string(entry.Action)).
			Str("actor", entry.Actor.String()).
			Str("resource_type", entry.ResourceType).
			Str("resource_id", entry.ResourceID).
			Int("status", entry.StatusCode).
			Str("ip", entry.IPAddress).
			Msg("audit")

		if s.repo != nil {
			if err := s.repo.Create(context.Background(), entry); err != nil {
				s.log.Warn().Err(err).Str("action", string(entry.Action)).Msg("failed to persist audit log")
			}
		}
	}()
}
