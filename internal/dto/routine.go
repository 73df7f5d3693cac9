package dto

import "github.com/noah-isme/sma-routine-api/internal/models"

// CreateRoutineRequest schedules a new weekly session.
type CreateRoutineRequest struct {
	ClassID    string               `json:"classId" validate:"required"`
	TeacherID  string               `json:"teacherId" validate:"required"`
	SubjectID  string               `json:"subjectId" validate:"required"`
	LessonID   string               `json:"lessonId" validate:"required"`
	TimeSlotID string               `json:"timeSlotId" validate:"required"`
	RoomID     string               `json:"roomId" validate:"required"`
	Type       models.RoutineType   `json:"routineType" validate:"omitempty,oneof=REGULAR ADDITIONAL REMEDIAL"`
	Status     models.RoutineStatus `json:"status" validate:"omitempty,oneof=ACTIVE INACTIVE CANCELLED"`
}

// UpdateRoutineRequest replaces the mutable fields of a routine. The class is fixed at creation.
// Empty type or status keeps the stored value.
type UpdateRoutineRequest struct {
	TeacherID  string               `json:"teacherId" validate:"required"`
	SubjectID  string               `json:"subjectId" validate:"required"`
	LessonID   string               `json:"lessonId" validate:"required"`
	TimeSlotID string               `json:"timeSlotId" validate:"required"`
	RoomID     string               `json:"roomId" validate:"required"`
	Type       models.RoutineType   `json:"routineType" validate:"omitempty,oneof=REGULAR ADDITIONAL REMEDIAL"`
	Status     models.RoutineStatus `json:"status" validate:"omitempty,oneof=ACTIVE INACTIVE CANCELLED"`
}

// RoutineListQuery captures list filters from the query string.
type RoutineListQuery struct {
	ClassID    string `form:"class_id"`
	TeacherID  string `form:"teacher_id"`
	RoomID     string `form:"room_id"`
	TimeSlotID string `form:"time_slot_id"`
	Status     string `form:"status" validate:"omitempty,oneof=ACTIVE INACTIVE CANCELLED"`
	Page       int    `form:"page"`
	PageSize   int    `form:"page_size"`
	SortBy     string `form:"sort_by"`
	SortOrder  string `form:"sort_order"`
}

// RoutineResponse wraps a routine write. Conflicts is non-empty only when the write was rejected.
type RoutineResponse struct {
	Routine   *models.Routine   `json:"routine,omitempty"`
	Conflicts []models.Conflict `json:"conflicts,omitempty"`
}
