package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-routine-api/internal/models"
	appErrors "github.com/noah-isme/sma-routine-api/pkg/errors"
	"github.com/noah-isme/sma-routine-api/pkg/jobs"
)

// NotificationJobType is the queue job type used for notification delivery.
const NotificationJobType = "notification.deliver"

type notificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	MarkDelivery(ctx context.Context, id string, status models.DeliveryStatus, deliveredAt *time.Time) error
	ListRecent(ctx context.Context, limit int) ([]models.Notification, error)
	ListUnread(ctx context.Context) ([]models.Notification, error)
	CountUnread(ctx context.Context) (int, error)
	MarkRead(ctx context.Context, id string, readAt time.Time) error
	Delete(ctx context.Context, id string) error
}

type notificationDispatcher interface {
	Enqueue(job jobs.Job) error
}

// NotificationService persists scheduling events and hands them to the delivery queue.
type NotificationService struct {
	repo   notificationRepository
	queue  notificationDispatcher
	logger *zap.Logger
}

// NewNotificationService constructs a NotificationService. Attach a queue before dispatching.
func NewNotificationService(repo notificationRepository, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{repo: repo, logger: logger}
}

// AttachQueue wires the delivery queue.
func (s *NotificationService) AttachQueue(queue notificationDispatcher) {
	s.queue = queue
}

// ConflictsDetected reports a rejected scheduling attempt.
func (s *NotificationService) ConflictsDetected(ctx context.Context, routineID string, conflicts []models.Conflict) {
	if s == nil || len(conflicts) == 0 {
		return
	}
	lines := make([]string, 0, len(conflicts))
	for _, conflict := range conflicts {
		lines = append(lines, fmt.Sprintf("[%s] %s", conflict.Severity, conflict.Description))
	}
	s.publish(ctx, &models.Notification{
		Type:         models.NotificationConflictDetected,
		Title:        fmt.Sprintf("%d scheduling conflict(s) detected", len(conflicts)),
		Message:      strings.Join(lines, "\n"),
		ResourceType: models.AuditResourceRoutine,
		ResourceID:   routineID,
	})
}

// SubstituteAssigned reports a new substitution.
func (s *NotificationService) SubstituteAssigned(ctx context.Context, substitution *models.Substitution) {
	if s == nil || substitution == nil {
		return
	}
	s.publish(ctx, &models.Notification{
		Type:  models.NotificationSubstituteAssigned,
		Title: "Substitute teacher assigned",
		Message: fmt.Sprintf("Teacher %s substitutes %s on %s for routine %s",
			substitution.SubstituteTeacherID,
			substitution.OriginalTeacherID,
			substitution.SubstituteDate.Format(dateLayout),
			substitution.RoutineID,
		),
		ResourceType: models.AuditResourceSubstitution,
		ResourceID:   substitution.ID,
	})
}

// Recent lists the latest notifications.
func (s *NotificationService) Recent(ctx context.Context, limit int) ([]models.Notification, error) {
	notifications, err := s.repo.ListRecent(ctx, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notifications")
	}
	return notifications, nil
}

// Unread lists notifications not yet marked read.
func (s *NotificationService) Unread(ctx context.Context) ([]models.Notification, error) {
	notifications, err := s.repo.ListUnread(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list unread notifications")
	}
	return notifications, nil
}

// CountUnread counts notifications not yet marked read.
func (s *NotificationService) CountUnread(ctx context.Context) (int, error) {
	total, err := s.repo.CountUnread(ctx)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count unread notifications")
	}
	return total, nil
}

// MarkRead acknowledges a notification. Marking it again is a no-op.
func (s *NotificationService) MarkRead(ctx context.Context, id string) error {
	if err := s.repo.MarkRead(ctx, id, time.Now().UTC()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "notification not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark notification read")
	}
	return nil
}

// Delete removes a notification from the feed.
func (s *NotificationService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "notification not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete notification")
	}
	return nil
}

// Deliver is the queue handler. Delivery is a structured log line; the row is then marked SENT.
func (s *NotificationService) Deliver(ctx context.Context, job jobs.Job) error {
	notification, ok := job.Payload.(models.Notification)
	if !ok {
		return fmt.Errorf("unexpected notification payload %T", job.Payload)
	}
	s.logger.Info("notification delivered",
		zap.String("notification_id", notification.ID),
		zap.String("type", string(notification.Type)),
		zap.String("resource_type", notification.ResourceType),
		zap.String("resource_id", notification.ResourceID),
		zap.String("title", notification.Title),
		zap.Int("attempt", job.Attempt),
	)
	now := time.Now().UTC()
	if err := s.repo.MarkDelivery(ctx, notification.ID, models.DeliverySent, &now); err != nil {
		return fmt.Errorf("mark notification sent: %w", err)
	}
	return nil
}

// DeadLetter marks notifications that exhausted their retries as FAILED.
func (s *NotificationService) DeadLetter(ctx context.Context, job jobs.Job, cause error) {
	notification, ok := job.Payload.(models.Notification)
	if !ok {
		return
	}
	if err := s.repo.MarkDelivery(ctx, notification.ID, models.DeliveryFailed, nil); err != nil {
		s.logger.Warn("failed to mark notification failed", zap.String("notification_id", notification.ID), zap.Error(err))
	}
}

func (s *NotificationService) publish(ctx context.Context, notification *models.Notification) {
	if s.repo == nil {
		return
	}
	if err := s.repo.Create(ctx, notification); err != nil {
		s.logger.Warn("failed to persist notification", zap.String("type", string(notification.Type)), zap.Error(err))
		return
	}
	if s.queue == nil {
		s.logger.Warn("notification queue not attached", zap.String("notification_id", notification.ID))
		return
	}
	if err := s.queue.Enqueue(jobs.Job{ID: notification.ID, Type: NotificationJobType, Payload: *notification}); err != nil {
		s.logger.Warn("failed to enqueue notification", zap.String("notification_id", notification.ID), zap.Error(err))
	}
}
