package services

import (
	"context"
	"encoding/json"

	"github.com/sjperalta/roimob-api/internal/models"
	"github.com/sjperalta/roimob-api/internal/repository"
	"github.com/sjperalta/roimob-api/pkg/logger"
)

// AuditService records who changed what
type AuditService struct {
	repo repository.AuditRepository
}

func NewAuditService(repo repository.AuditRepository) *AuditService {
	return &AuditService{repo: repo}
}

// RequestMeta carries the caller details stored with audit entries
type RequestMeta struct {
	UserID    uint
	IsAdmin   bool
	IP        string
	UserAgent string
	Locale    string
}

// Log records an audit entry. Failures are logged and never fail the caller's operation.
func (s *AuditService) Log(ctx context.Context, meta RequestMeta, action, entity string, entityID uint, details any) {
	var text string
	switch d := details.(type) {
	case nil:
	case string:
		text = d
	default:
		if b, err := json.Marshal(d); err == nil {
			text = string(b)
		}
	}

	entry := &models.AuditLog{
		UserID:    meta.UserID,
		Action:    action,
		Entity:    entity,
		EntityID:  entityID,
		Details:   text,
		IPAddress: meta.IP,
		UserAgent: meta.UserAgent,
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		logger.Warn("audit log failed", "action", action, "entity", entity, "entity_id", entityID, "error", err)
	}
}

// List retrieves audit logs with filters
func (s *AuditService) List(ctx context.Context, query *repository.ListQuery) ([]models.AuditLog, int64, error) {
	return s.repo.List(ctx, query)
}
