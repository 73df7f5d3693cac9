package models

import (
	"errors"
	"time"
)

// ConflictType names the invariant a conflict violates.
type ConflictType string

const (
	ConflictTeacherDoubleBooking      ConflictType = "TEACHER_DOUBLE_BOOKING"
	ConflictClassroomDoubleBooking    ConflictType = "CLASSROOM_DOUBLE_BOOKING"
	ConflictClassDoubleBooking        ConflictType = "CLASS_DOUBLE_BOOKING"
	ConflictTimeSlotOverlap           ConflictType = "TIME_SLOT_OVERLAP"
	ConflictTeacherUnavailable        ConflictType = "TEACHER_UNAVAILABLE"
	ConflictClassroomCapacityExceeded ConflictType = "CLASSROOM_CAPACITY_EXCEEDED"
)

// ConflictSeverity ranks conflicts for triage.
type ConflictSeverity string

const (
	SeverityLow      ConflictSeverity = "LOW"
	SeverityMedium   ConflictSeverity = "MEDIUM"
	SeverityHigh     ConflictSeverity = "HIGH"
	SeverityCritical ConflictSeverity = "CRITICAL"
)

// ConflictStatus is the resolution state of a ledger entry.
type ConflictStatus string

const (
	ConflictStatusDetected     ConflictStatus = "DETECTED"
	ConflictStatusAcknowledged ConflictStatus = "ACKNOWLEDGED"
	ConflictStatusResolved     ConflictStatus = "RESOLVED"
	ConflictStatusIgnored      ConflictStatus = "IGNORED"
)

// Open reports whether the conflict still awaits a decision.
func (s ConflictStatus) Open() bool {
	return s == ConflictStatusDetected || s == ConflictStatusAcknowledged
}

// Conflict is a ledger entry recording one detected double booking.
// RoutineID is the routine that was being validated; ConflictingRoutineID is the
// existing active routine it collided with.
type Conflict struct {
	ID                   string           `db:"id" json:"id"`
	RoutineID            string           `db:"routine_id" json:"routine_id"`
	ConflictingRoutineID *string          `db:"conflicting_routine_id" json:"conflicting_routine_id,omitempty"`
	Type                 ConflictType     `db:"conflict_type" json:"conflict_type"`
	Severity             ConflictSeverity `db:"severity" json:"severity"`
	Status               ConflictStatus   `db:"status" json:"status"`
	Description          string           `db:"description" json:"description"`
	SuggestedResolution  string           `db:"suggested_resolution" json:"suggested_resolution"`
	ResolvedBy           *string          `db:"resolved_by" json:"resolved_by,omitempty"`
	ResolvedAt           *time.Time       `db:"resolved_at" json:"resolved_at,omitempty"`
	CreatedAt            time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time        `db:"updated_at" json:"updated_at"`
}

// ConflictError is returned when an operation is aborted because it would break a
// double-booking invariant. ConcurrencyViolation is set when the storage layer
// rejected the write even though the pre-check came back clean.
type ConflictError struct {
	Message              string     `json:"message"`
	Conflicts            []Conflict `json:"conflicts"`
	ConcurrencyViolation bool       `json:"concurrency_violation"`
}

// Error implements the error interface for conflict errors.
func (e *ConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}

// AsConflictError extracts a ConflictError from an error chain.
func AsConflictError(err error) (*ConflictError, bool) {
	var conflictErr *ConflictError
	if errors.As(err, &conflictErr) {
		return conflictErr, true
	}
	return nil, false
}
