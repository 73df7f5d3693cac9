package models

import "time"

// NotificationType identifies the event a notification reports.
type NotificationType string

const (
	NotificationConflictDetected   NotificationType = "CONFLICT_DETECTED"
	NotificationSubstituteAssigned NotificationType = "SUBSTITUTE_ASSIGNED"
)

// DeliveryStatus tracks hand-off to the delivery channel.
type DeliveryStatus string

const (
	DeliveryPending DeliveryStatus = "PENDING"
	DeliverySent    DeliveryStatus = "SENT"
	DeliveryFailed  DeliveryStatus = "FAILED"
)

// Notification is an event with a human readable summary queued for delivery.
type Notification struct {
	ID             string           `db:"id" json:"id"`
	Type           NotificationType `db:"notification_type" json:"notification_type"`
	Title          string           `db:"title" json:"title"`
	Message        string           `db:"message" json:"message"`
	ResourceType   string           `db:"resource_type" json:"resource_type"`
	ResourceID     string           `db:"resource_id" json:"resource_id"`
	DeliveryStatus DeliveryStatus   `db:"delivery_status" json:"delivery_status"`
	CreatedAt      time.Time        `db:"created_at" json:"created_at"`
	DeliveredAt    *time.Time       `db:"delivered_at" json:"delivered_at,omitempty"`
	ReadAt         *time.Time       `db:"read_at" json:"read_at,omitempty"`
}

// Read reports whether the notification has been acknowledged by a reader.
func (n Notification) Read() bool {
	return n.ReadAt != nil
}
