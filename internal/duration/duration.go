package duration

import (
	"time"

	"github.com/kakunuriMahesh/activity-tracker-backend/internal/apperr"
)

// Recognized duration units. The challenge API stores the unit as a free-form
// string, but create/edit reject anything outside this set.
const (
	Day   = "Day"
	Week  = "Week"
	Month = "Month"
	Year  = "Year"
)

// IsValid reports whether unit is one of the four recognized duration units.
func IsValid(unit string) bool {
	switch unit {
	case Day, Week, Month, Year:
		return true
	}
	return false
}

// ResolveEnd computes a challenge end date from its start date and duration
// unit. Month and Year additions are calendar-aware: the day of month is
// clamped to the last day of the target month, so Jan 31 + Month lands on
// Feb 28/29 instead of rolling over into March.
func ResolveEnd(start time.Time, unit string) (time.Time, error) {
	switch unit {
	case Day:
		return start.AddDate(0, 0, 1), nil
	case Week:
		return start.AddDate(0, 0, 7), nil
	case Month:
		return addMonths(start, 1), nil
	case Year:
		return addMonths(start, 12), nil
	default:
		return time.Time{}, apperr.InvalidArgument("invalid duration")
	}
}

func addMonths(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	hour, min, sec := t.Clock()

	// Anchor at the first of the month so AddDate cannot overflow, then
	// clamp the day to the target month's length.
	anchor := time.Date(year, month, 1, hour, min, sec, t.Nanosecond(), t.Location())
	target := anchor.AddDate(0, months, 0)

	if last := daysIn(target.Year(), target.Month()); day > last {
		day = last
	}
	return time.Date(target.Year(), target.Month(), day, hour, min, sec, t.Nanosecond(), t.Location())
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
