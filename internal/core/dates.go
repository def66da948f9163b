package core

import "time"

// StartOfDay normalizes t to local midnight.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// ParseInputDate parses a day-only date string (YYYY-MM-DD) into a local
// start-of-day value. Empty input yields the zero time and no error.
func ParseInputDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation("2006-01-02", value, time.Local)
	if err != nil {
		return time.Time{}, err
	}
	return StartOfDay(t), nil
}

// DaysInMonth returns the number of days in the month containing t.
func DaysInMonth(t time.Time) int {
	y, m, _ := t.Date()
	return time.Date(y, m+1, 0, 0, 0, 0, 0, t.Location()).Day()
}

// ClampDayOfMonth resolves the effective target day for a monthly recurrence:
// the configured day, clamped to the actual length of the candidate month.
func ClampDayOfMonth(day int, month time.Time) int {
	if n := DaysInMonth(month); day > n {
		return n
	}
	return day
}

// NextMidnight returns the first local midnight strictly after now.
func NextMidnight(now time.Time) time.Time {
	return StartOfDay(now).AddDate(0, 0, 1)
}

// SameDay reports whether a and b fall on the same calendar day.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// DayKey formats t as the YYYY-MM-DD key used by per-day storage entries.
func DayKey(t time.Time) string {
	return t.Format("2006-01-02")
}
