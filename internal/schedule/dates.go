package schedule

import (
	"errors"
	"strings"
	"time"

	"github.com/dukerupert/flatrota/internal/model"
)

// Day truncates t to midnight UTC. All period boundaries live on this grid.
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDay parses a calendar date or an RFC 3339 timestamp to its UTC day.
func ParseDay(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, errors.New("date must be YYYY-MM-DD or RFC 3339")
	}
	return Day(t), nil
}

// MaxPeriodDays bounds the length of a single period. Months count as 31
// days.
const MaxPeriodDays = 3660

// MaxPeriods bounds the number of periods in one generated schedule.
const MaxPeriods = 3660

// periodTooLong reports whether value units exceed MaxPeriodDays.
func periodTooLong(unit model.PeriodUnit, value int) bool {
	if value > MaxPeriodDays {
		return true
	}
	switch unit {
	case model.UnitWeek:
		return 7*value > MaxPeriodDays
	case model.UnitMonth:
		return 31*value > MaxPeriodDays
	default:
		return false
	}
}

// advance returns anchor moved forward by steps periods of value units.
// Months are counted from the anchor and clamped to the last day of the
// target month, so Jan 31 + 1 month is Feb 28 (or 29) and + 2 months is
// Mar 31 rather than Mar 28.
func advance(anchor time.Time, unit model.PeriodUnit, value, steps int) time.Time {
	switch unit {
	case model.UnitWeek:
		return anchor.AddDate(0, 0, 7*value*steps)
	case model.UnitMonth:
		return addMonths(anchor, value*steps)
	default:
		return anchor.AddDate(0, 0, value*steps)
	}
}

func addMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	if last := daysInMonth(first.Year(), first.Month()); d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, 0, 0, 0, 0, time.UTC)
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func later(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}
