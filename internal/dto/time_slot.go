package dto

// TimeSlotRequest creates or replaces a catalog slot. Times are HH:MM.
type TimeSlotRequest struct {
	DayOfWeek string  `json:"dayOfWeek" validate:"required"`
	StartTime string  `json:"startTime" validate:"required"`
	EndTime   string  `json:"endTime" validate:"required"`
	Label     *string `json:"label" validate:"omitempty,max=64"`
}
