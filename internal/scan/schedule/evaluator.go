// Package schedule evaluates time-window constraints against a timestamp.
// The timestamp arrives already resolved into the request's local
// representation; no timezone conversion happens here.
package schedule

import (
	"fmt"
	"time"

	"qrflow/internal/qrcode/models"
)

// IsWithinSchedule reports whether ts satisfies every configured constraint
// of the schedule. An unconfigured constraint imposes no restriction; a nil
// schedule always passes. A malformed schedule returns an error and leaves
// the fail-open/fail-closed decision to the caller.
func IsWithinSchedule(sched *models.Schedule, ts time.Time) (bool, error) {
	if sched == nil {
		return true, nil
	}

	if sched.Daily != nil {
		ok, err := withinDailyWindow(*sched.Daily, ts)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}

	if len(sched.DaysOfWeek) > 0 {
		if !withinDays(sched.DaysOfWeek, ts.Weekday()) {
			return false, nil
		}
	}

	if sched.StartDate != nil && ts.Before(*sched.StartDate) {
		return false, nil
	}
	if sched.EndDate != nil && ts.After(*sched.EndDate) {
		return false, nil
	}

	return true, nil
}

// withinDailyWindow compares minutes-since-midnight, bounds inclusive.
func withinDailyWindow(w models.DailyWindow, ts time.Time) (bool, error) {
	if err := w.Validate(); err != nil {
		return false, fmt.Errorf("malformed daily window: %w", err)
	}
	minute := ts.Hour()*60 + ts.Minute()
	start, end := w.StartMinutes(), w.EndMinutes()
	if start > end {
		// Overnight window, e.g. 22:00-06:00.
		return minute >= start || minute <= end, nil
	}
	return minute >= start && minute <= end, nil
}

func withinDays(days []time.Weekday, d time.Weekday) bool {
	for _, allowed := range days {
		if allowed == d {
			return true
		}
	}
	return false
}

// WithinWindow evaluates a bare time predicate window (used by time rules
// and redirect conditions) against ts. Nil window passes.
func WithinWindow(w *models.DailyWindow, ts time.Time) (bool, error) {
	if w == nil {
		return true, nil
	}
	return withinDailyWindow(*w, ts)
}

// WithinDaySet reports membership of ts's weekday; an empty set passes.
func WithinDaySet(days []time.Weekday, ts time.Time) bool {
	if len(days) == 0 {
		return true
	}
	return withinDays(days, ts.Weekday())
}
