package dto

import "github.com/noah-isme/sma-routine-api/internal/models"

// AllocateSubstituteRequest assigns a substitute teacher to one routine occurrence.
type AllocateSubstituteRequest struct {
	RoutineID           string  `json:"routineId" validate:"required"`
	SubstituteTeacherID string  `json:"substituteTeacherId" validate:"required"`
	Date                string  `json:"date" validate:"required,datetime=2006-01-02"`
	Reason              *string `json:"reason" validate:"omitempty,max=500"`
}

// UpdateSubstitutionStatusRequest closes a substitution.
type UpdateSubstitutionStatusRequest struct {
	Status models.SubstitutionStatus `json:"status" validate:"required,oneof=COMPLETED CANCELLED"`
}
