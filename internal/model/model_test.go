package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZoneNumberAndSort(t *testing.T) {
	assert.Equal(t, 12, ZoneNumber("Зона 12"))
	assert.Equal(t, 0, ZoneNumber("VIP"))
	assert.Equal(t, 101, ZoneNumber("Зона 10-1"))

	zones := []Zone{
		{ID: 3, Name: "Зона 10", Branch: BranchMSK},
		{ID: 1, Name: "Зона 2", Branch: BranchMSK},
		{ID: 9, Name: "Зона 1", Branch: BranchPolevaya},
		{ID: 4, Name: "Бар", Branch: BranchMSK},
	}
	msk := ZonesOf(zones, BranchMSK)
	require.Len(t, msk, 3)
	assert.Equal(t, []int64{4, 1, 3}, []int64{msk[0].ID, msk[1].ID, msk[2].ID})
}

func TestZoneNeedsCleaning(t *testing.T) {
	yes, no := true, false
	assert.False(t, Zone{}.NeedsCleaning())
	assert.False(t, Zone{IsNotCleaned: &no}.NeedsCleaning())
	assert.True(t, Zone{IsNotCleaned: &yes}.NeedsCleaning())
}

func TestCountBranch(t *testing.T) {
	zones := []Zone{{ID: 1, Branch: BranchMSK}, {ID: 2, Branch: BranchMSK}, {ID: 3, Branch: BranchPolevaya}}
	bookings := []Booking{
		{ID: "a", TableID: 1, Branch: BranchMSK, IsActive: true},
		{ID: "b", TableID: 2, Branch: BranchMSK},
		{ID: "c", TableID: 2, Branch: BranchMSK},
		{ID: "d", TableID: 3, Branch: BranchPolevaya, IsActive: true},
	}
	assert.Equal(t, BranchCounts{Active: 1, Waiting: 2, Zones: 2}, CountBranch(zones, bookings, BranchMSK))
	assert.True(t, HasActiveGuests(bookings, 1))
	assert.False(t, HasActiveGuests(bookings, 2))
	assert.Len(t, BookingsAt(bookings, 2), 2)
}

func TestStaffNotifiable(t *testing.T) {
	assert.True(t, Staff{TelegramID: "123456"}.Notifiable())
	assert.True(t, Staff{TelegramID: "-100200"}.Notifiable())
	assert.False(t, Staff{TelegramID: ""}.Notifiable())
	assert.False(t, Staff{TelegramID: "@user"}.Notifiable())
}

func TestParseNumericID(t *testing.T) {
	tests := []struct {
		raw     string
		want    int64
		wantErr bool
	}{
		{raw: `12`, want: 12},
		{raw: `"12"`, want: 12},
		{raw: `" 7 "`, want: 7},
		{raw: `12.0`, want: 12},
		{raw: `null`, want: 0},
		{raw: `""`, want: 0},
		{raw: `12.5`, wantErr: true},
		{raw: `"abc"`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseNumericID(json.RawMessage(tt.raw))
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidID)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeBookingsNormalizesTableID(t *testing.T) {
	body := []byte(`[
		{"id": 5, "name": "Иван", "time": "19:00", "guests": "3", "tableId": "12", "branch": "МСК", "isActive": true},
		{"id": "abc", "name": "Олег", "time": "20:00", "guests": 2, "tableId": 12, "branch": "МСК", "isHappyHours": true}
	]`)

	bookings, err := DecodeBookings(body)
	require.NoError(t, err)
	require.Len(t, bookings, 2)

	assert.Equal(t, "5", bookings[0].ID)
	assert.Equal(t, int64(12), bookings[0].TableID)
	assert.Equal(t, 3, bookings[0].Guests)
	assert.Equal(t, bookings[0].TableID, bookings[1].TableID)
	assert.True(t, bookings[1].IsHappyHours)
}

func TestDecodeZonesKeepsMissingCleanFlag(t *testing.T) {
	zones, err := DecodeZones([]byte(`[{"id":"4","name":"Зона 4","capacity":4,"branch":"Полевая"}]`))
	require.NoError(t, err)
	require.Len(t, zones, 1)
	assert.Equal(t, int64(4), zones[0].ID)
	assert.Nil(t, zones[0].IsNotCleaned)

	_, err = DecodeZones([]byte(`[{"id":"x"}]`))
	assert.ErrorIs(t, err, ErrInvalidID)
}

func TestDecodeStaff(t *testing.T) {
	staff, err := DecodeStaffList([]byte(`[{"id":1,"name":"Анна","telegramId":123}]`))
	require.NoError(t, err)
	require.Len(t, staff, 1)
	assert.Equal(t, "123", staff[0].TelegramID)
	assert.True(t, staff[0].Notifiable())
}

func TestScheduleWireShapes(t *testing.T) {
	at := time.Date(2024, 3, 6, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, "2024-03-06T09:00:00.000Z", OneShot(at).Wire())
	assert.Equal(t, "09:05", Recurring(TimeOfDay{Hour: 9, Minute: 5}).Wire())

	s, err := ParseSchedule("21:30", true)
	require.NoError(t, err)
	tod, ok := s.Daily()
	require.True(t, ok)
	assert.Equal(t, TimeOfDay{Hour: 21, Minute: 30}, tod)

	s, err = ParseSchedule("2024-03-06T09:00:00.000Z", false)
	require.NoError(t, err)
	got, ok := s.At()
	require.True(t, ok)
	assert.True(t, got.Equal(at))

	_, err = ParseSchedule("2024-03-06T09:00:00.000Z", true)
	assert.Error(t, err)
}

func TestTaskJSONKeepsDualRepresentation(t *testing.T) {
	body := []byte(`[
		{"id": 1, "title": "Открытие", "message": "Доброе утро", "scheduledTime": "10:00", "branch": "МСК", "isRecurring": true, "lastSentDate": "2024-03-05"},
		{"id": "2", "title": "Акция", "message": "Скидка", "scheduledTime": "2024-03-06T09:00:00.000Z", "branch": "Полевая", "isRecurring": false, "isSent": true}
	]`)

	tasks, skipped, err := DecodeTasks(body)
	require.NoError(t, err)
	assert.Empty(t, skipped)
	require.Len(t, tasks, 2)

	assert.Equal(t, "1", tasks[0].ID)
	assert.True(t, tasks[0].Schedule.IsRecurring())
	assert.Equal(t, "2024-03-05", tasks[0].LastSentDate)
	assert.False(t, tasks[1].Schedule.IsRecurring())
	assert.True(t, tasks[1].IsSent)

	out, err := json.Marshal(tasks[0])
	require.NoError(t, err)
	var wire map[string]any
	require.NoError(t, json.Unmarshal(out, &wire))
	assert.Equal(t, "10:00", wire["scheduledTime"])
	assert.Equal(t, true, wire["isRecurring"])

	out, err = json.Marshal(tasks[1])
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(out, &wire))
	assert.Equal(t, "2024-03-06T09:00:00.000Z", wire["scheduledTime"])
	assert.Equal(t, false, wire["isRecurring"])
}

func TestDecodeTasksSkipsUnreadableRecord(t *testing.T) {
	body := []byte(`[
		{"id": 1, "title": "Открытие", "message": "Доброе утро", "scheduledTime": "10:00", "branch": "МСК", "isRecurring": true},
		{"id": 2, "title": "Старая", "message": "Скидка", "scheduledTime": "2024-03-05T09:00:00.000Z", "branch": "МСК", "isRecurring": true}
	]`)

	tasks, skipped, err := DecodeTasks(body)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "1", tasks[0].ID)
	require.Len(t, skipped, 1)
	assert.Contains(t, skipped[0].Error(), "task 2")

	_, _, err = DecodeTasks([]byte(`{"id": 1}`))
	assert.Error(t, err)
}
