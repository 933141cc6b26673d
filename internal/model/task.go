package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// isoLayout matches the millisecond ISO form the backend stores.
const isoLayout = "2006-01-02T15:04:05.000Z07:00"

// TimeOfDay is a wall-clock time without a date.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses "HH:MM".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("invalid time of day %q: expected HH:MM", s)
	}
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}, nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// On returns the instant at this time of day on the date of day, in day's location.
func (t TimeOfDay) On(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour, t.Minute, 0, 0, day.Location())
}

// Before reports whether t is earlier in the day than o.
func (t TimeOfDay) Before(o TimeOfDay) bool {
	if t.Hour != o.Hour {
		return t.Hour < o.Hour
	}
	return t.Minute < o.Minute
}

// Schedule is when a task is sent: either once at an instant, or daily at a
// time of day. The zero value is an unscheduled one-shot.
type Schedule struct {
	recurring bool
	at        time.Time
	daily     TimeOfDay
}

// OneShot schedules a single send at an instant.
func OneShot(at time.Time) Schedule {
	return Schedule{at: at}
}

// Recurring schedules a daily send at a time of day.
func Recurring(t TimeOfDay) Schedule {
	return Schedule{recurring: true, daily: t}
}

// IsRecurring reports whether the schedule repeats daily.
func (s Schedule) IsRecurring() bool { return s.recurring }

// At returns the instant of a one-shot schedule.
func (s Schedule) At() (time.Time, bool) {
	if s.recurring {
		return time.Time{}, false
	}
	return s.at, true
}

// Daily returns the time of day of a recurring schedule.
func (s Schedule) Daily() (TimeOfDay, bool) {
	if !s.recurring {
		return TimeOfDay{}, false
	}
	return s.daily, true
}

// Wire renders the schedule as the backend's scheduledTime string: an ISO
// instant for one-shot tasks, bare HH:MM for recurring ones.
func (s Schedule) Wire() string {
	if s.recurring {
		return s.daily.String()
	}
	if s.at.IsZero() {
		return ""
	}
	return s.at.UTC().Format(isoLayout)
}

// ParseSchedule interprets a wire scheduledTime according to isRecurring.
func ParseSchedule(wire string, recurring bool) (Schedule, error) {
	wire = strings.TrimSpace(wire)
	if recurring {
		tod, err := ParseTimeOfDay(wire)
		if err != nil {
			return Schedule{}, err
		}
		return Recurring(tod), nil
	}
	if wire == "" {
		return Schedule{}, nil
	}
	at, err := parseInstant(wire)
	if err != nil {
		return Schedule{}, err
	}
	return OneShot(at), nil
}

func parseInstant(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("2006-01-02T15:04:05", s, time.Local); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("2006-01-02T15:04", s, time.Local); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid instant %q", s)
}

// Task is an admin-authored outbound Telegram message. Sending is owned by
// the backend; the board only manages the records.
type Task struct {
	ID           string
	Title        string
	Message      string
	Schedule     Schedule
	Branch       Branch
	IsSent       bool
	LastSentDate string
	CreatedAt    time.Time
}

type taskWire struct {
	ID            json.RawMessage `json:"id,omitempty"`
	Title         string          `json:"title"`
	Message       string          `json:"message"`
	ScheduledTime string          `json:"scheduledTime"`
	Branch        Branch          `json:"branch"`
	IsRecurring   bool            `json:"isRecurring"`
	IsSent        bool            `json:"isSent"`
	LastSentDate  string          `json:"lastSentDate,omitempty"`
	CreatedAt     string          `json:"createdAt,omitempty"`
}

// MarshalJSON writes the dual-shape scheduledTime.
func (t Task) MarshalJSON() ([]byte, error) {
	w := taskWire{
		Title:         t.Title,
		Message:       t.Message,
		ScheduledTime: t.Schedule.Wire(),
		Branch:        t.Branch,
		IsRecurring:   t.Schedule.IsRecurring(),
		IsSent:        t.IsSent,
		LastSentDate:  t.LastSentDate,
	}
	if t.ID != "" {
		id, err := json.Marshal(t.ID)
		if err != nil {
			return nil, err
		}
		w.ID = id
	}
	if !t.CreatedAt.IsZero() {
		w.CreatedAt = t.CreatedAt.UTC().Format(isoLayout)
	}
	return json.Marshal(w)
}

// UnmarshalJSON reads scheduledTime according to isRecurring.
func (t *Task) UnmarshalJSON(data []byte) error {
	var w taskWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	id, err := ParseOpaqueID(w.ID)
	if err != nil {
		return fmt.Errorf("task id: %w", err)
	}
	sched, err := ParseSchedule(w.ScheduledTime, w.IsRecurring)
	if err != nil {
		return fmt.Errorf("task %s: %w", id, err)
	}
	*t = Task{
		ID:           id,
		Title:        w.Title,
		Message:      w.Message,
		Schedule:     sched,
		Branch:       w.Branch,
		IsSent:       w.IsSent,
		LastSentDate: w.LastSentDate,
	}
	if w.CreatedAt != "" {
		if created, err := parseInstant(w.CreatedAt); err == nil {
			t.CreatedAt = created
		}
	}
	return nil
}
