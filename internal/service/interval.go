package service

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/noah-isme/sma-routine-api/internal/models"
)

// Interval is a half-open [Start, End) range in minutes since midnight.
type Interval struct {
	Start int
	End   int
}

// ParseClock converts an HH:MM clock value into minutes since midnight.
func ParseClock(value string) (int, error) {
	parts := strings.Split(strings.TrimSpace(value), ":")
	if len(parts) != 2 || len(parts[0]) != 2 || len(parts[1]) != 2 {
		return 0, fmt.Errorf("invalid clock %q, expected HH:MM", value)
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil || hours < 0 || hours > 23 {
		return 0, fmt.Errorf("invalid hour in %q", value)
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil || minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("invalid minute in %q", value)
	}
	return hours*60 + minutes, nil
}

// NewInterval builds an interval from HH:MM values, requiring start < end.
func NewInterval(start, end string) (Interval, error) {
	s, err := ParseClock(start)
	if err != nil {
		return Interval{}, err
	}
	e, err := ParseClock(end)
	if err != nil {
		return Interval{}, err
	}
	if s >= e {
		return Interval{}, fmt.Errorf("start time %s must be before end time %s", start, end)
	}
	return Interval{Start: s, End: e}, nil
}

// Overlaps reports whether two half-open intervals share any instant. Touching endpoints do not overlap.
func Overlaps(a, b Interval) bool {
	return a.Start < b.End && b.Start < a.End
}

// FindOverlapping returns the slots on day whose interval overlaps [start, end).
// Slots with unparsable times are skipped.
func FindOverlapping(day models.DayOfWeek, candidate Interval, existing []models.TimeSlot) []models.TimeSlot {
	var overlapping []models.TimeSlot
	for _, slot := range existing {
		if slot.DayOfWeek != day {
			continue
		}
		interval, err := NewInterval(slot.StartTime, slot.EndTime)
		if err != nil {
			continue
		}
		if Overlaps(candidate, interval) {
			overlapping = append(overlapping, slot)
		}
	}
	return overlapping
}
