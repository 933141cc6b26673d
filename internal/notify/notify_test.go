package notify

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockTelegram struct {
	mock.Mock
}

func (m *mockTelegram) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	args := m.Called(c)
	return tgbotapi.Message{}, args.Error(0)
}

func (m *mockTelegram) MakeRequest(endpoint string, params tgbotapi.Params) (*tgbotapi.APIResponse, error) {
	args := m.Called(endpoint, params)
	return &tgbotapi.APIResponse{Ok: args.Error(0) == nil}, args.Error(0)
}

type staticTarget struct {
	chat, thread string
}

func (s staticTarget) TelegramTarget() (string, string) { return s.chat, s.thread }

func fastSender() *Sender {
	return NewSender(1000, RetryConfig{MaxRetries: 2, RetryDelays: []time.Duration{time.Millisecond}}, zerolog.Nop())
}

func TestTelegramAlerterWithoutThread(t *testing.T) {
	tg := new(mockTelegram)
	tg.On("Send", mock.MatchedBy(func(c tgbotapi.Chattable) bool {
		msg, ok := c.(tgbotapi.MessageConfig)
		return ok && msg.ChatID == -100 && msg.Text == "Напоминание: Счастливые часы!"
	})).Return(nil).Once()

	a := NewTelegramAlerterWithClient(tg, staticTarget{chat: "-100"}, fastSender(), zerolog.New(io.Discard))
	require.NoError(t, a.Alert(context.Background(), "Напоминание: Счастливые часы!"))
	tg.AssertExpectations(t)
}

func TestTelegramAlerterPostsIntoThread(t *testing.T) {
	tg := new(mockTelegram)
	tg.On("MakeRequest", "sendMessage", tgbotapi.Params{
		"chat_id":           "-100",
		"message_thread_id": "7",
		"text":              "hello",
	}).Return(nil).Once()

	a := NewTelegramAlerterWithClient(tg, staticTarget{chat: "-100", thread: "7"}, fastSender(), zerolog.New(io.Discard))
	require.NoError(t, a.Alert(context.Background(), "hello"))
	tg.AssertExpectations(t)
}

func TestTelegramAlerterInvalidChat(t *testing.T) {
	a := NewTelegramAlerterWithClient(new(mockTelegram), staticTarget{chat: "@staff"}, fastSender(), zerolog.Nop())
	err := a.Alert(context.Background(), "x")
	tgErr, ok := IsTelegramError(err)
	require.True(t, ok)
	assert.Equal(t, 400, tgErr.Code)
}

func TestSenderRetriesTransientErrors(t *testing.T) {
	calls := 0
	err := fastSender().Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("connection reset")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestSenderGivesUp(t *testing.T) {
	calls := 0
	err := fastSender().Do(context.Background(), func() error {
		calls++
		return errors.New("down")
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestSenderStopsOnForbidden(t *testing.T) {
	calls := 0
	err := fastSender().Do(context.Background(), func() error {
		calls++
		return &tgbotapi.Error{Code: 403, Message: "bot was blocked by the user"}
	})
	assert.ErrorIs(t, err, ErrPermanent)
	assert.Equal(t, 1, calls)
}

func TestSenderHonoursRetryAfter(t *testing.T) {
	s := NewSender(1000, RetryConfig{MaxRetries: 1, RetryDelays: []time.Duration{time.Hour}}, zerolog.Nop())
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := s.Do(ctx, func() error {
		return &TelegramError{Code: 429, Message: "Too Many Requests", RetryAfter: 3600}
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFanoutAndRecorder(t *testing.T) {
	rec := NewRecorder(1)
	f := Fanout{NewLogAlerter(zerolog.Nop()), rec}
	require.NoError(t, f.Alert(context.Background(), "ping"))
	assert.Equal(t, "ping", <-rec.Alerts())
}

type brokenAlerter struct{}

func (brokenAlerter) Alert(context.Context, string) error { return errors.New("chat not found") }

func TestBestEffortLogsAndSwallowsErrors(t *testing.T) {
	var buf bytes.Buffer
	rec := NewRecorder(1)
	f := Fanout{rec, NewBestEffort(brokenAlerter{}, zerolog.New(&buf))}

	require.NoError(t, f.Alert(context.Background(), "ping"))
	assert.Equal(t, "ping", <-rec.Alerts())
	assert.Contains(t, buf.String(), "chat not found")
	assert.Contains(t, buf.String(), "alert delivery failed")
}
