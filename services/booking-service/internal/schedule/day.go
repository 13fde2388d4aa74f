package schedule

import "time"

// DayStatus classifies a calendar date for the booking calendar.
type DayStatus int

const (
	DayOpen DayStatus = iota
	DayPast
	DayFull
)

func (s DayStatus) String() string {
	switch s {
	case DayPast:
		return "past"
	case DayFull:
		return "full"
	default:
		return "open"
	}
}

// ClassifyDay decides whether target is Past, Full, or Open. Comparison is
// whole-day only: a date equal to today is never Past, whatever the
// wall-clock time. today is injected so the rule is deterministic in tests.
func ClassifyDay(target, today time.Time, busyCount, capacity int) DayStatus {
	if DateOnly(target).Before(DateOnly(today)) {
		return DayPast
	}
	if capacity > 0 && busyCount >= capacity {
		return DayFull
	}
	return DayOpen
}

// DateOnly drops the time-of-day portion, keeping the location.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
