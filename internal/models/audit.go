package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// AuditAction constants represent actions to be logged.
const (
	AuditActionCreate = "CREATE"
	AuditActionUpdate = "UPDATE"
	AuditActionDelete = "DELETE"
)

// Audit resources.
const (
	AuditResourceRoutine      = "ROUTINE"
	AuditResourceTimeSlot     = "TIME_SLOT"
	AuditResourceSubstitution = "SUBSTITUTION"
	AuditResourceConflict     = "CONFLICT"
	AuditResourceHoliday      = "HOLIDAY"
	AuditResourceExamPeriod   = "EXAM_PERIOD"
)

// AuditLog represents an audit trail record with before/after snapshots.
type AuditLog struct {
	ID         string         `db:"id" json:"id"`
	UserID     *string        `db:"user_id" json:"user_id,omitempty"`
	Action     string         `db:"action" json:"action"`
	Resource   string         `db:"resource" json:"resource"`
	ResourceID *string        `db:"resource_id" json:"resource_id,omitempty"`
	OldValues  types.JSONText `db:"old_values" json:"old_values,omitempty"`
	NewValues  types.JSONText `db:"new_values" json:"new_values,omitempty"`
	CreatedAt  time.Time      `db:"created_at" json:"created_at"`
}
