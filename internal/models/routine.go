package models

import "time"

// RoutineType classifies why a session was scheduled.
type RoutineType string

const (
	RoutineTypeRegular    RoutineType = "REGULAR"
	RoutineTypeAdditional RoutineType = "ADDITIONAL"
	RoutineTypeRemedial   RoutineType = "REMEDIAL"
)

// RoutineStatus tracks the lifecycle of a routine. Only ACTIVE routines take part in conflict checks.
type RoutineStatus string

const (
	RoutineStatusActive    RoutineStatus = "ACTIVE"
	RoutineStatusInactive  RoutineStatus = "INACTIVE"
	RoutineStatusCancelled RoutineStatus = "CANCELLED"
)

// Routine binds a class, teacher, subject, lesson, room and time slot into one weekly session.
type Routine struct {
	ID         string        `db:"id" json:"id"`
	ClassID    string        `db:"class_id" json:"class_id"`
	TeacherID  string        `db:"teacher_id" json:"teacher_id"`
	SubjectID  string        `db:"subject_id" json:"subject_id"`
	LessonID   string        `db:"lesson_id" json:"lesson_id"`
	TimeSlotID string        `db:"time_slot_id" json:"time_slot_id"`
	RoomID     string        `db:"room_id" json:"room_id"`
	Type       RoutineType   `db:"routine_type" json:"routine_type"`
	Status     RoutineStatus `db:"status" json:"status"`
	CreatedBy  string        `db:"created_by" json:"created_by"`
	CreatedAt  time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time     `db:"updated_at" json:"updated_at"`
}

// IsActive reports whether the routine participates in conflict checks.
func (r Routine) IsActive() bool {
	return r.Status == RoutineStatusActive
}

// RoutineFilter describes query params for listing routines.
type RoutineFilter struct {
	ClassID    string
	TeacherID  string
	RoomID     string
	TimeSlotID string
	Status     RoutineStatus
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}
