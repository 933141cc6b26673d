package happyhour

import (
	"context"
	"errors"
	"testing"
	"time"

	"kanban/internal/clock"
	"kanban/internal/model"
	"kanban/internal/notify"
	"kanban/internal/session"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(h, m int) time.Time {
	return time.Date(2024, 1, 1, h, m, 0, 0, time.Local)
}

func TestHighlightAndBlink(t *testing.T) {
	hh := model.Booking{IsHappyHours: true}
	plain := model.Booking{}

	for h := 0; h < 24; h++ {
		for m := 0; m < 60; m++ {
			now := at(h, m)
			wantHighlight := h > 18 || (h == 18 && m >= 50)
			wantBlink := h == 18 && m >= 50

			assert.Equal(t, wantHighlight, Highlight(hh, now), "highlight %02d:%02d", h, m)
			assert.Equal(t, wantBlink, Blink(hh, now), "blink %02d:%02d", h, m)
			assert.False(t, Highlight(plain, now))
			assert.False(t, Blink(plain, now))
			if Blink(hh, now) {
				assert.True(t, Highlight(hh, now))
			}
		}
	}
}

func TestReminderDue(t *testing.T) {
	bookings := []model.Booking{
		{ID: "1", Branch: model.BranchMSK, IsHappyHours: true},
		{ID: "2", Branch: model.BranchPolevaya},
	}

	assert.True(t, ReminderDue(at(18, 50), bookings, model.BranchMSK))
	assert.False(t, ReminderDue(at(18, 51), bookings, model.BranchMSK))
	assert.False(t, ReminderDue(at(18, 49), bookings, model.BranchMSK))
	assert.False(t, ReminderDue(at(18, 50), bookings, model.BranchPolevaya))
	assert.False(t, ReminderDue(at(18, 50), nil, model.BranchMSK))
}

func TestReminderKey(t *testing.T) {
	assert.Equal(t, "hh_alerted_2024-01-01", ReminderKey(at(18, 50)))
}

type staticBookings []model.Booking

func (s staticBookings) Bookings(branch model.Branch) []model.Booking {
	return model.BookingsOf(s, branch)
}

type failingAlerter struct{}

func (failingAlerter) Alert(context.Context, string) error { return errors.New("telegram down") }

func newSession(t *testing.T) *session.Context {
	t.Helper()
	sc := session.NewContext(session.NewMemoryStore(), session.Defaults{Branch: model.BranchMSK})
	require.NoError(t, sc.Load(context.Background()))
	return sc
}

func TestReminderFiresOncePerDay(t *testing.T) {
	ctx := context.Background()
	sc := newSession(t)
	bookings := staticBookings{{ID: "1", Branch: model.BranchMSK, IsHappyHours: true}}
	rec := notify.NewRecorder(4)
	r := NewReminder(Config{Message: "Напоминание: Счастливые часы!"}, sc, bookings,
		clock.NewSession(sc, clock.Real{}), rec, zerolog.Nop())

	require.NoError(t, sc.SetTimeOverride(ctx, time.Date(2024, 1, 1, 18, 50, 0, 0, time.Local)))
	fired, err := r.Check(ctx)
	require.NoError(t, err)
	assert.True(t, fired)
	assert.Equal(t, "Напоминание: Счастливые часы!", <-rec.Alerts())

	fired, err = r.Check(ctx)
	require.NoError(t, err)
	assert.False(t, fired)

	require.NoError(t, sc.SetTimeOverride(ctx, time.Date(2024, 1, 2, 18, 50, 0, 0, time.Local)))
	fired, err = r.Check(ctx)
	require.NoError(t, err)
	assert.True(t, fired)
	assert.Len(t, rec.Alerts(), 1)
}

func TestReminderLeavesMarkerWhenAlerterFails(t *testing.T) {
	ctx := context.Background()
	sc := newSession(t)
	bookings := staticBookings{{ID: "1", Branch: model.BranchMSK, IsHappyHours: true}}
	now := clock.Fixed(time.Date(2024, 1, 1, 18, 50, 0, 0, time.Local))

	r := NewReminder(Config{}, sc, bookings, now, failingAlerter{}, zerolog.Nop())
	fired, err := r.Check(ctx)
	assert.Error(t, err)
	assert.False(t, fired)

	marked, err := sc.Marked(ctx, "hh_alerted_2024-01-01")
	require.NoError(t, err)
	assert.False(t, marked)
}

func TestReminderTestModeUsesSeparateMarker(t *testing.T) {
	ctx := context.Background()
	sc := newSession(t)
	require.NoError(t, sc.Mark(ctx, "hh_alerted_2024-01-01"))
	require.NoError(t, sc.SetTestMode(ctx, true))

	bookings := staticBookings{{ID: "1", Branch: model.BranchMSK, IsHappyHours: true}}
	rec := notify.NewRecorder(1)
	now := clock.Fixed(time.Date(2024, 1, 1, 18, 50, 0, 0, time.Local))
	r := NewReminder(Config{Message: "hh"}, sc, bookings, now, rec, zerolog.Nop())

	fired, err := r.Check(ctx)
	require.NoError(t, err)
	assert.True(t, fired)
	assert.Equal(t, "[ТЕСТ] hh", <-rec.Alerts())
}

func TestReminderStartStop(t *testing.T) {
	sc := newSession(t)
	r := NewReminder(Config{CheckInterval: time.Millisecond}, sc, staticBookings{}, clock.Real{}, notify.NewRecorder(1), zerolog.Nop())
	r.Start(context.Background())
	r.Start(context.Background())
	time.Sleep(5 * time.Millisecond)
	r.Stop()
	r.Stop()
}

func TestReminderFiresOnceWhenTelegramFails(t *testing.T) {
	ctx := context.Background()
	sc := newSession(t)
	bookings := staticBookings{{ID: "1", Branch: model.BranchMSK, IsHappyHours: true}}
	now := clock.Fixed(time.Date(2024, 1, 1, 18, 50, 0, 0, time.Local))
	rec := notify.NewRecorder(8)
	alerters := notify.Fanout{
		notify.NewLogAlerter(zerolog.Nop()),
		rec,
		notify.NewBestEffort(failingAlerter{}, zerolog.Nop()),
	}
	r := NewReminder(Config{Message: "hh"}, sc, bookings, now, alerters, zerolog.Nop())

	fired, err := r.Check(ctx)
	require.NoError(t, err)
	assert.True(t, fired)
	for i := 0; i < 4; i++ {
		fired, err = r.Check(ctx)
		require.NoError(t, err)
		assert.False(t, fired)
	}

	assert.Len(t, rec.Alerts(), 1)
	marked, err := sc.Marked(ctx, "hh_alerted_2024-01-01")
	require.NoError(t, err)
	assert.True(t, marked)
}

func (r *Reminder) isRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

func TestReminderRestartsAfterContextCancel(t *testing.T) {
	sc := newSession(t)
	r := NewReminder(Config{CheckInterval: time.Millisecond}, sc, staticBookings{}, clock.Real{}, notify.NewRecorder(1), zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	r.Start(ctx)
	require.True(t, r.isRunning())
	cancel()
	require.Eventually(t, func() bool { return !r.isRunning() }, time.Second, time.Millisecond)

	r.Start(context.Background())
	assert.True(t, r.isRunning())
	r.Stop()
	assert.False(t, r.isRunning())
}
