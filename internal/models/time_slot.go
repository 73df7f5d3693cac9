package models

import (
	"strings"
	"time"
)

// DayOfWeek is the weekday a time slot repeats on.
type DayOfWeek string

const (
	Monday    DayOfWeek = "MONDAY"
	Tuesday   DayOfWeek = "TUESDAY"
	Wednesday DayOfWeek = "WEDNESDAY"
	Thursday  DayOfWeek = "THURSDAY"
	Friday    DayOfWeek = "FRIDAY"
	Saturday  DayOfWeek = "SATURDAY"
	Sunday    DayOfWeek = "SUNDAY"
)

var weekdays = map[DayOfWeek]time.Weekday{
	Monday:    time.Monday,
	Tuesday:   time.Tuesday,
	Wednesday: time.Wednesday,
	Thursday:  time.Thursday,
	Friday:    time.Friday,
	Saturday:  time.Saturday,
	Sunday:    time.Sunday,
}

// ParseDayOfWeek normalises user input such as "monday" into a DayOfWeek.
func ParseDayOfWeek(raw string) (DayOfWeek, bool) {
	day := DayOfWeek(strings.ToUpper(strings.TrimSpace(raw)))
	_, ok := weekdays[day]
	return day, ok
}

// Weekday converts the day into its time.Weekday counterpart.
func (d DayOfWeek) Weekday() (time.Weekday, bool) {
	wd, ok := weekdays[d]
	return wd, ok
}

// TimeSlot is a reusable weekly interval, e.g. Monday 09:00-10:00.
// StartTime and EndTime are HH:MM clock values; the interval is half-open.
type TimeSlot struct {
	ID        string    `db:"id" json:"id"`
	DayOfWeek DayOfWeek `db:"day_of_week" json:"day_of_week"`
	StartTime string    `db:"start_time" json:"start_time"`
	EndTime   string    `db:"end_time" json:"end_time"`
	Label     *string   `db:"label" json:"label,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
