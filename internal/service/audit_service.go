package service

import (
	"context"
	"encoding/json"

	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-routine-api/internal/models"
	appErrors "github.com/noah-isme/sma-routine-api/pkg/errors"
)

type auditRepository interface {
	Create(ctx context.Context, log *models.AuditLog) error
	ListByResource(ctx context.Context, resource, resourceID string) ([]models.AuditLog, error)
}

// AuditService records before/after snapshots of scheduling changes.
type AuditService struct {
	repo   auditRepository
	logger *zap.Logger
}

// NewAuditService constructs an AuditService.
func NewAuditService(repo auditRepository, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{repo: repo, logger: logger}
}

// Record stores an audit entry. Failures are logged and never surface to the caller.
func (s *AuditService) Record(ctx context.Context, actor, action, resource, resourceID string, before, after interface{}) {
	if s == nil || s.repo == nil {
		return
	}
	entry := &models.AuditLog{
		Action:    action,
		Resource:  resource,
		OldValues: snapshot(before),
		NewValues: snapshot(after),
	}
	if actor != "" {
		entry.UserID = &actor
	}
	if resourceID != "" {
		entry.ResourceID = &resourceID
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		s.logger.Warn("failed to record audit log",
			zap.String("action", action),
			zap.String("resource", resource),
			zap.String("resource_id", resourceID),
			zap.Error(err),
		)
	}
}

// History returns the audit trail of a resource.
func (s *AuditService) History(ctx context.Context, resource, resourceID string) ([]models.AuditLog, error) {
	logs, err := s.repo.ListByResource(ctx, resource, resourceID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load audit history")
	}
	return logs, nil
}

func snapshot(value interface{}) types.JSONText {
	if value == nil {
		return types.JSONText(`{}`)
	}
	payload, err := json.Marshal(value)
	if err != nil || string(payload) == "null" {
		return types.JSONText(`{}`)
	}
	return types.JSONText(payload)
}
