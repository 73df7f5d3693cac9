package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-routine-api/internal/models"
)

const notificationColumns = `id, notification_type, title, message, resource_type, resource_id, delivery_status, created_at, delivered_at, read_at`

// NotificationRepository persists outgoing notifications.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository constructs a NotificationRepository.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create stores a pending notification.
func (r *NotificationRepository) Create(ctx context.Context, notification *models.Notification) error {
	if notification.ID == "" {
		notification.ID = uuid.NewString()
	}
	if notification.DeliveryStatus == "" {
		notification.DeliveryStatus = models.DeliveryPending
	}
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO notifications (id, notification_type, title, message, resource_type, resource_id, delivery_status, created_at, delivered_at)
		VALUES (:id, :notification_type, :title, :message, :resource_type, :resource_id, :delivery_status, :created_at, :delivered_at)`
	if _, err := r.db.NamedExecContext(ctx, query, notification); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

// MarkDelivery records the outcome of a delivery attempt.
func (r *NotificationRepository) MarkDelivery(ctx context.Context, id string, status models.DeliveryStatus, deliveredAt *time.Time) error {
	result, err := r.db.ExecContext(ctx, `UPDATE notifications SET delivery_status = $1, delivered_at = $2 WHERE id = $3`, status, deliveredAt, id)
	if err != nil {
		return fmt.Errorf("mark notification delivery: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("notification rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListRecent returns the latest notifications.
func (r *NotificationRepository) ListRecent(ctx context.Context, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	query := fmt.Sprintf(`SELECT %s FROM notifications ORDER BY created_at DESC LIMIT %d`, notificationColumns, limit)
	var notifications []models.Notification
	if err := r.db.SelectContext(ctx, &notifications, query); err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return notifications, nil
}

// ListUnread returns notifications nobody has marked read, newest first.
func (r *NotificationRepository) ListUnread(ctx context.Context) ([]models.Notification, error) {
	query := fmt.Sprintf(`SELECT %s FROM notifications WHERE read_at IS NULL ORDER BY created_at DESC`, notificationColumns)
	var notifications []models.Notification
	if err := r.db.SelectContext(ctx, &notifications, query); err != nil {
		return nil, fmt.Errorf("list unread notifications: %w", err)
	}
	return notifications, nil
}

// CountUnread counts notifications without a read stamp.
func (r *NotificationRepository) CountUnread(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM notifications WHERE read_at IS NULL`); err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return total, nil
}

// MarkRead stamps the notification as read. Already read rows keep their first stamp.
func (r *NotificationRepository) MarkRead(ctx context.Context, id string, readAt time.Time) error {
	result, err := r.db.ExecContext(ctx, `UPDATE notifications SET read_at = COALESCE(read_at, $1) WHERE id = $2`, readAt, id)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("notification rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a notification.
func (r *NotificationRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM notifications WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("notification rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
