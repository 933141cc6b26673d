package remote

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"kanban/internal/model"
	"kanban/internal/remote/remotetest"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*Client, *remotetest.Server) {
	t.Helper()
	srv := remotetest.NewServer()
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "test-key", 2*time.Second, zerolog.Nop()), srv
}

func TestBookingRoundTrip(t *testing.T) {
	client, srv := newTestClient(t)
	srv.StringIDs = true
	ctx := context.Background()

	zoneID := srv.SeedZone(model.Zone{Name: "Зона 1", Capacity: 4, Branch: model.BranchMSK})
	in := model.Booking{
		Name:         "Иван",
		Time:         "19:30",
		Guests:       3,
		Phone:        "+7 900 000-00-00",
		Source:       model.SourcePhone,
		TableID:      zoneID,
		Branch:       model.BranchMSK,
		Comment:      "у окна",
		HasShisha:    true,
		IsHappyHours: true,
	}

	created, err := client.CreateBooking(ctx, in)
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	list, err := client.ListBookings(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	got := list[0]
	assert.Equal(t, created.ID, got.ID)
	got.ID = ""
	assert.Equal(t, in, got)
}

func TestZoneCRUD(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	z, err := client.CreateZone(ctx, model.Zone{Name: "Зона 3", Capacity: 6, Branch: model.BranchPolevaya})
	require.NoError(t, err)
	assert.NotZero(t, z.ID)

	name := "Зона 33"
	updated, err := client.UpdateZone(ctx, z.ID, ZonePatch{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Зона 33", updated.Name)
	assert.Equal(t, 6, updated.Capacity)

	fetched, err := client.GetZone(ctx, z.ID)
	require.NoError(t, err)
	assert.Equal(t, updated, fetched)

	require.NoError(t, client.DeleteZone(ctx, z.ID))
	_, err = client.GetZone(ctx, z.ID)
	assert.True(t, IsNotFound(err))
}

func TestStatusErrorCarriesServerMessage(t *testing.T) {
	client, srv := newTestClient(t)
	srv.Fail("GET /api/bookings", http.StatusInternalServerError)

	_, err := client.ListBookings(context.Background())
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusInternalServerError, se.Code)
	assert.Equal(t, "injected failure", se.Message)
	assert.False(t, errors.Is(err, ErrTransport))
}

func TestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := NewClient(url, "", time.Second, zerolog.Nop())
	_, err := client.ListZones(context.Background())
	assert.ErrorIs(t, err, ErrTransport)
}

func TestMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"not": "a list"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "", time.Second, zerolog.Nop())
	_, err := client.ListZones(context.Background())
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestHeaders(t *testing.T) {
	var gotKey, gotRequestID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-api-key")
		gotRequestID = r.Header.Get("X-Request-ID")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "secret", time.Second, zerolog.Nop())
	_, err := client.ListStaff(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "secret", gotKey)
	assert.Len(t, gotRequestID, 36)
}

func TestNotificationEndpoints(t *testing.T) {
	client, srv := newTestClient(t)
	ctx := context.Background()
	thread := int64(7)
	target := Target{ChatID: "-100", ThreadID: &thread}

	require.NoError(t, client.CreateTableCall(ctx, TableCall{Branch: model.BranchMSK, TableID: 4, CallType: CallHookah}))
	require.NoError(t, client.NotifyDirtyZone(ctx, DirtyZoneNotice{Branch: model.BranchMSK, ZoneName: "Зона 4", Target: target}))
	require.NoError(t, client.NotifyStaffOnShift(ctx, ShiftNotice{
		Branch: model.BranchPolevaya,
		Staff:  []ShiftMember{{Name: "Анна", TelegramID: "123"}},
		Target: target,
	}))
	require.NoError(t, client.SendMessage(ctx, Message{Message: "Привет", Target: Target{ChatID: "-100"}}))

	calls := srv.Calls()
	require.Len(t, calls, 4)
	assert.Equal(t, "/api/table-calls", calls[0].Path)
	assert.Equal(t, float64(4), calls[0].Body["tableId"])
	assert.Equal(t, "hookah", calls[0].Body["callType"])
	assert.Equal(t, "Зона 4", calls[1].Body["zoneName"])
	assert.Equal(t, float64(7), calls[1].Body["threadId"])
	assert.Len(t, calls[2].Body["staff"], 1)
	assert.Nil(t, calls[3].Body["threadId"])
}

func TestTaskCRUDKeepsScheduleShape(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	created, err := client.CreateTask(ctx, model.Task{
		Title:    "Смена",
		Message:  "Начало смены",
		Schedule: model.Recurring(model.TimeOfDay{Hour: 10}),
		Branch:   model.BranchMSK,
	})
	require.NoError(t, err)
	assert.True(t, created.Schedule.IsRecurring())
	assert.False(t, created.CreatedAt.IsZero())

	created.Schedule = model.OneShot(time.Date(2024, 3, 6, 9, 0, 0, 0, time.UTC))
	updated, err := client.UpdateTask(ctx, created.ID, created)
	require.NoError(t, err)
	at, ok := updated.Schedule.At()
	require.True(t, ok)
	assert.Equal(t, 6, at.Day())

	tasks, err := client.ListTasks(ctx)
	require.NoError(t, err)
	assert.Len(t, tasks, 1)

	require.NoError(t, client.DeleteTask(ctx, created.ID))
	assert.True(t, IsNotFound(client.DeleteTask(ctx, created.ID)))
}

func TestListTasksSkipsUnreadableRecord(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[
			{"id": "t1", "title": "Смена", "message": "Начало смены", "scheduledTime": "10:00", "branch": "МСК", "isRecurring": true},
			{"id": "t2", "title": "Старая", "message": "Скидка", "scheduledTime": "2024-03-05T09:00:00.000Z", "branch": "МСК", "isRecurring": true}
		]`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "", time.Second, zerolog.Nop())
	tasks, err := client.ListTasks(context.Background())
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "t1", tasks[0].ID)
}
