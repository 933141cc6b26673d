// Package happyhour holds the time-gated booking rules and the daily
// happy-hour reminder.
package happyhour

import (
	"time"

	"kanban/internal/model"
)

// Happy hours start at 18:50 local time.
const (
	startHour   = 18
	startMinute = 50
)

// Highlight reports whether a booking is shown with happy-hour emphasis.
func Highlight(b model.Booking, now time.Time) bool {
	if !b.IsHappyHours {
		return false
	}
	h, m := now.Hour(), now.Minute()
	return h > startHour || (h == startHour && m >= startMinute)
}

// Blink reports whether a booking is in the urgent 18:50-18:59 window.
func Blink(b model.Booking, now time.Time) bool {
	if !b.IsHappyHours {
		return false
	}
	return now.Hour() == startHour && now.Minute() >= startMinute && now.Minute() <= 59
}

// ReminderDue reports whether the daily alert should fire at now for branch.
// Only the exact minute 18:50 matches.
func ReminderDue(now time.Time, bookings []model.Booking, branch model.Branch) bool {
	if now.Hour() != startHour || now.Minute() != startMinute {
		return false
	}
	for _, b := range bookings {
		if b.Branch == branch && b.IsHappyHours {
			return true
		}
	}
	return false
}

// ReminderKey is the per-day dedup marker for the alert.
func ReminderKey(now time.Time) string {
	return "hh_alerted_" + now.Format("2006-01-02")
}
