package core

import (
	"errors"
	"time"
)

// ErrSchedulingExhausted is returned when no valid next occurrence exists
// within the search horizon. It indicates a malformed recurrence
// configuration and must not be papered over by rescheduling for today.
var ErrSchedulingExhausted = errors.New("no next occurrence within search horizon")

// nextOccurrenceHorizonDays bounds the forward scan for the next occurrence
// of a repeating list.
const nextOccurrenceHorizonDays = 365

// IsAvailableToday reports whether the list is active on the given day.
// A completed repeating list counts as available again once its next
// scheduled cycle date has arrived; a completed one-off never does.
func IsAvailableToday(l *List, today time.Time) bool {
	today = StartOfDay(today)
	avail := StartOfDay(l.AvailableOn)

	if l.Completed {
		if l.Repeat == RepeatOnce || avail.After(today) {
			return false
		}
	}

	if avail.After(today) {
		return false
	}

	switch l.Repeat {
	case RepeatWeekly:
		if len(l.RepeatDays) > 0 && !containsWeekday(l.RepeatDays, today.Weekday()) {
			return false
		}
		return true
	case RepeatMonthly:
		if l.RepeatDay > 0 {
			return today.Day() == ClampDayOfMonth(l.RepeatDay, today)
		}
		return true
	default: // once, daily
		return true
	}
}

// NextOccurrence computes the next date the list becomes active.
//
// For one-off lists it returns availableOn when that is strictly in the
// future and (zero, nil) otherwise: a past or current one-off has no next
// cycle, which is not an error.
//
// For repeating lists it scans forward up to a year from today for the first
// candidate on or after availableOn that satisfies the repeat predicate, and
// returns ErrSchedulingExhausted when the scan finds nothing.
func NextOccurrence(l *List, today time.Time) (time.Time, error) {
	today = StartOfDay(today)
	avail := StartOfDay(l.AvailableOn)

	if l.Repeat == RepeatOnce {
		if avail.After(today) {
			return avail, nil
		}
		return time.Time{}, nil
	}

	for i := 1; i <= nextOccurrenceHorizonDays; i++ {
		cand := today.AddDate(0, 0, i)
		if cand.Before(avail) {
			continue
		}
		switch l.Repeat {
		case RepeatDaily:
			return cand, nil
		case RepeatWeekly:
			if len(l.RepeatDays) == 0 || containsWeekday(l.RepeatDays, cand.Weekday()) {
				return cand, nil
			}
		case RepeatMonthly:
			day := l.RepeatDay
			if day <= 0 {
				day = StartOfDay(l.AvailableOn).Day()
			}
			if cand.Day() == ClampDayOfMonth(day, cand) {
				return cand, nil
			}
		}
	}
	return time.Time{}, ErrSchedulingExhausted
}

// IsPlannedFuture reports whether the list's next active date is strictly
// after today. A completed repeating list with a future availableOn is
// planned even though it also appears in the completed view; that dual
// visibility is deliberate.
func IsPlannedFuture(l *List, today time.Time) bool {
	today = StartOfDay(today)
	avail := StartOfDay(l.AvailableOn)

	if l.Repeat == RepeatOnce {
		return avail.After(today)
	}

	if IsAvailableToday(l, today) {
		return false
	}
	if avail.After(today) {
		return true
	}
	if next, err := NextOccurrence(l, today); err == nil && !next.IsZero() && next.After(today) {
		return true
	}
	return false
}

// IsOverdue reports whether the list's availability date has passed with at
// least one current-cycle task still undone.
func IsOverdue(l *List, today time.Time) bool {
	today = StartOfDay(today)
	if l.Completed || !StartOfDay(l.AvailableOn).Before(today) {
		return false
	}
	for _, t := range l.CurrentCycleTasks() {
		if !t.Done {
			return true
		}
	}
	return false
}

// VisibleIn reports whether the list belongs to the given view mode on the
// given day. The completed view includes lists carrying history records, so a
// rescheduled repeating list shows under both "completed" and "planned".
func VisibleIn(l *List, mode ViewMode, today time.Time) bool {
	switch mode {
	case ViewCompleted:
		return l.Completed || len(l.HistoryTasks()) > 0
	case ViewPlanned:
		return IsPlannedFuture(l, today)
	default:
		return IsAvailableToday(l, today)
	}
}

func containsWeekday(days []int, wd time.Weekday) bool {
	for _, d := range days {
		if d == int(wd) {
			return true
		}
	}
	return false
}
