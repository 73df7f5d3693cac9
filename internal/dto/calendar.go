package dto

import "github.com/noah-isme/sma-routine-api/internal/models"

// HolidayRequest creates or replaces a holiday. Dates are YYYY-MM-DD.
type HolidayRequest struct {
	Name        string             `json:"name" validate:"required,max=200"`
	Date        string             `json:"date" validate:"required,datetime=2006-01-02"`
	Description *string            `json:"description" validate:"omitempty,max=500"`
	Type        models.HolidayType `json:"type" validate:"omitempty,oneof=PUBLIC INSTITUTIONAL RELIGIOUS EMERGENCY"`
}

// ExamPeriodRequest creates or replaces an exam period. Both bounds are inclusive.
type ExamPeriodRequest struct {
	Name        string          `json:"name" validate:"required,max=200"`
	StartDate   string          `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate     string          `json:"endDate" validate:"required,datetime=2006-01-02"`
	Description *string         `json:"description" validate:"omitempty,max=500"`
	Type        models.ExamType `json:"type" validate:"omitempty,oneof=MIDTERM FINAL SUPPLEMENTARY PRACTICAL"`
}

// CalendarRangeQuery bounds holiday and exam period listings.
type CalendarRangeQuery struct {
	From string `form:"from" validate:"omitempty,datetime=2006-01-02"`
	To   string `form:"to" validate:"omitempty,datetime=2006-01-02"`
}
