package admin

import (
	"context"
	"testing"
	"time"

	"kanban/internal/board"
	"kanban/internal/clock"
	"kanban/internal/model"
	"kanban/internal/remote"
	"kanban/internal/remote/remotetest"
	"kanban/internal/session"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const password = "95859585"

type fixture struct {
	svc     *Service
	srv     *remotetest.Server
	board   *board.Board
	session *session.Context
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	srv := remotetest.NewServer()
	t.Cleanup(srv.Close)
	client := remote.NewClient(srv.URL, "", 2*time.Second, zerolog.Nop())
	b := board.New(client, board.Options{Clock: clock.Fixed(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))}, zerolog.Nop())

	sc := session.NewContext(session.NewMemoryStore(), session.Defaults{
		Branch:           model.BranchMSK,
		TelegramChatID:   "-1002686555288",
		TelegramThreadID: "7",
	})
	require.NoError(t, sc.Load(context.Background()))

	return fixture{
		svc:     NewService(client, b, sc, string(hash), zerolog.Nop()),
		srv:     srv,
		board:   b,
		session: sc,
	}
}

func (f fixture) login(t *testing.T) {
	t.Helper()
	require.NoError(t, f.svc.Login(context.Background(), password))
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.svc.Login(ctx, "wrong")
	assert.True(t, IsAccessDenied(err))
	assert.EqualError(t, err, "Неверный пароль")
	assert.False(t, f.session.Authenticated())

	require.NoError(t, f.svc.Login(ctx, password))
	assert.True(t, f.session.Authenticated())

	require.NoError(t, f.svc.Logout(ctx))
	assert.False(t, f.session.Authenticated())
}

func TestLoginWithoutConfiguredHash(t *testing.T) {
	f := newFixture(t)
	f.svc.passwordHash = nil
	assert.True(t, IsAccessDenied(f.svc.Login(context.Background(), "")))
}

func TestOperationsRequireLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.ListStaff(ctx)
	assert.True(t, IsAccessDenied(err))
	assert.True(t, IsAccessDenied(f.svc.SendMessage(ctx, "hi")))
	_, err = f.svc.AddZone(ctx, "VIP", 6)
	assert.True(t, IsAccessDenied(err))
	_, err = f.svc.SetTimeOverride(ctx, "2024-01-01T18:50")
	assert.True(t, IsAccessDenied(err))
	assert.Empty(t, f.srv.Calls())
}

func TestStaffCRUD(t *testing.T) {
	f := newFixture(t)
	f.login(t)
	ctx := context.Background()

	created, err := f.svc.AddStaff(ctx, "  Анна Петрова ", "123456")
	require.NoError(t, err)
	assert.Equal(t, "Анна Петрова", created.Name)

	_, err = f.svc.AddStaff(ctx, "Борис", "@boris")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.svc.AddStaff(ctx, " ", "")
	assert.ErrorIs(t, err, ErrInvalidInput)

	edited, err := f.svc.EditStaff(ctx, created.ID, "Анна Петрова", "")
	require.NoError(t, err)
	assert.Empty(t, edited.TelegramID)

	list, err := f.svc.ListStaff(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, f.svc.DeleteStaff(ctx, created.ID))
	list, err = f.svc.ListStaff(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestNotifyDirtyZone(t *testing.T) {
	f := newFixture(t)
	f.login(t)

	zone := model.Zone{ID: 3, Name: "Зона 3", Branch: model.BranchPolevaya}
	require.NoError(t, f.svc.NotifyDirtyZone(context.Background(), zone))

	calls := f.srv.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "/api/telegram/notify-dirty-zone", calls[0].Path)
	assert.Equal(t, map[string]any{
		"branch":   "Полевая",
		"zoneName": "Зона 3",
		"chatId":   "-1002686555288",
		"threadId": float64(7),
	}, calls[0].Body)
}

func TestSendMessageWithoutThread(t *testing.T) {
	f := newFixture(t)
	f.login(t)
	ctx := context.Background()
	require.NoError(t, f.svc.SetTelegramTarget(ctx, "-100", "general"))

	require.NoError(t, f.svc.SendMessage(ctx, "Всем привет"))
	assert.ErrorIs(t, f.svc.SendMessage(ctx, "  "), ErrInvalidInput)

	calls := f.srv.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, map[string]any{"message": "Всем привет", "chatId": "-100", "threadId": nil}, calls[0].Body)

	require.NoError(t, f.svc.SetTelegramTarget(ctx, "", ""))
	assert.ErrorIs(t, f.svc.SendMessage(ctx, "x"), ErrNoChat)
}

func TestNotifyStaffOnShiftSkipsStaffWithoutTelegram(t *testing.T) {
	f := newFixture(t)
	f.login(t)
	ctx := context.Background()

	n, err := f.svc.NotifyStaffOnShift(ctx, []model.Staff{
		{Name: "Анна", TelegramID: "111"},
		{Name: "Борис"},
		{Name: "Вера", TelegramID: "@vera"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	calls := f.srv.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "/api/telegram/notify-staff-on-shift", calls[0].Path)
	assert.Equal(t, []any{map[string]any{"name": "Анна", "telegramId": "111"}}, calls[0].Body["staff"])

	_, err = f.svc.NotifyStaffOnShift(ctx, []model.Staff{{Name: "Борис"}})
	assert.ErrorIs(t, err, ErrNoRecipients)
}

func TestZonesUseAdminBranch(t *testing.T) {
	f := newFixture(t)
	f.login(t)
	ctx := context.Background()
	require.NoError(t, f.svc.SelectBranch(ctx, model.BranchPolevaya))

	z, err := f.svc.AddZone(ctx, "Терраса", 8)
	require.NoError(t, err)
	assert.Equal(t, model.BranchPolevaya, z.Branch)

	_, err = f.svc.EditZone(ctx, z.ID, "Терраса", 21)
	assert.Error(t, err)

	require.NoError(t, f.svc.DeleteZone(ctx, z.ID))
	assert.Empty(t, f.srv.Zones())
}

func TestTimeOverride(t *testing.T) {
	f := newFixture(t)
	f.login(t)
	ctx := context.Background()

	_, err := f.svc.SetTimeOverride(ctx, "вчера")
	assert.ErrorIs(t, err, ErrInvalidInput)

	at, err := f.svc.SetTimeOverride(ctx, "2024-01-01T18:50")
	require.NoError(t, err)
	got, ok := f.session.TimeOverride()
	require.True(t, ok)
	assert.True(t, got.Equal(at))
	assert.Equal(t, 18, at.Hour())

	require.NoError(t, f.svc.ResetTimeOverride(ctx))
	_, ok = f.session.TimeOverride()
	assert.False(t, ok)

	require.NoError(t, f.svc.SetReminderTestMode(ctx, true))
	assert.True(t, f.session.TestMode())
}
