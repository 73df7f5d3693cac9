package models

import "time"

// HolidayType classifies a day without classes.
type HolidayType string

const (
	HolidayPublic        HolidayType = "PUBLIC"
	HolidayInstitutional HolidayType = "INSTITUTIONAL"
	HolidayReligious     HolidayType = "RELIGIOUS"
	HolidayEmergency     HolidayType = "EMERGENCY"
)

// ExamType classifies an exam period.
type ExamType string

const (
	ExamMidterm       ExamType = "MIDTERM"
	ExamFinal         ExamType = "FINAL"
	ExamSupplementary ExamType = "SUPPLEMENTARY"
	ExamPractical     ExamType = "PRACTICAL"
)

// Holiday is a calendar date on which no routine occurrence takes place.
type Holiday struct {
	ID          string      `db:"id" json:"id"`
	Name        string      `db:"name" json:"name"`
	Date        time.Time   `db:"holiday_date" json:"date"`
	Description *string     `db:"description" json:"description,omitempty"`
	Type        HolidayType `db:"holiday_type" json:"type"`
	CreatedBy   string      `db:"created_by" json:"created_by"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at" json:"updated_at"`
}

// ExamPeriod is an inclusive date range during which regular classes are suspended.
type ExamPeriod struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	StartDate   time.Time `db:"start_date" json:"start_date"`
	EndDate     time.Time `db:"end_date" json:"end_date"`
	Description *string   `db:"description" json:"description,omitempty"`
	Type        ExamType  `db:"exam_type" json:"type"`
	CreatedBy   string    `db:"created_by" json:"created_by"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Covers reports whether day falls inside the period, bounds included.
func (p ExamPeriod) Covers(day time.Time) bool {
	return !day.Before(p.StartDate) && !day.After(p.EndDate)
}

// CalendarDay summarises what the calendar says about a single date.
type CalendarDay struct {
	Date        string       `json:"date"`
	IsHoliday   bool         `json:"is_holiday"`
	IsExam      bool         `json:"is_exam_period"`
	Holidays    []Holiday    `json:"holidays"`
	ExamPeriods []ExamPeriod `json:"exam_periods"`
}

// CalendarRange bounds calendar listings. Nil bounds are open.
type CalendarRange struct {
	From *time.Time
	To   *time.Time
}
