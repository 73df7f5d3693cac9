package models

import "time"

// SubstitutionStatus tracks a substitution overlay.
type SubstitutionStatus string

const (
	SubstitutionStatusActive    SubstitutionStatus = "ACTIVE"
	SubstitutionStatusCompleted SubstitutionStatus = "COMPLETED"
	SubstitutionStatusCancelled SubstitutionStatus = "CANCELLED"
)

// Substitution swaps the teacher of one routine occurrence on a concrete date.
// The routine itself is never modified.
type Substitution struct {
	ID                  string             `db:"id" json:"id"`
	RoutineID           string             `db:"routine_id" json:"routine_id"`
	TimeSlotID          string             `db:"time_slot_id" json:"time_slot_id"`
	OriginalTeacherID   string             `db:"original_teacher_id" json:"original_teacher_id"`
	SubstituteTeacherID string             `db:"substitute_teacher_id" json:"substitute_teacher_id"`
	SubstituteDate      time.Time          `db:"substitute_date" json:"substitute_date"`
	Reason              *string            `db:"reason" json:"reason,omitempty"`
	Status              SubstitutionStatus `db:"status" json:"status"`
	CreatedBy           string             `db:"created_by" json:"created_by"`
	CreatedAt           time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time          `db:"updated_at" json:"updated_at"`
}
