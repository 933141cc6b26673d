package notify

import (
	"context"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

type telegramClient interface {
	Send(tgbotapi.Chattable) (tgbotapi.Message, error)
	MakeRequest(endpoint string, params tgbotapi.Params) (*tgbotapi.APIResponse, error)
}

// TargetSource returns the chat and thread alerts go to. The session
// context satisfies it, so admin changes apply without a restart.
type TargetSource interface {
	TelegramTarget() (chatID, threadID string)
}

// TelegramAlerter posts alerts to a Telegram chat, inside a forum thread
// when one is set.
type TelegramAlerter struct {
	tg     telegramClient
	target TargetSource
	sender *Sender
	logger zerolog.Logger
}

// NewTelegramAlerter connects to the Bot API with token.
func NewTelegramAlerter(token string, debug bool, target TargetSource, sender *Sender, logger zerolog.Logger) (*TelegramAlerter, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	api.Debug = debug
	return NewTelegramAlerterWithClient(api, target, sender, logger), nil
}

// NewTelegramAlerterWithClient allows injecting a mocked Telegram client for tests.
func NewTelegramAlerterWithClient(tg telegramClient, target TargetSource, sender *Sender, logger zerolog.Logger) *TelegramAlerter {
	l := logger.With().Str("component", "telegram").Logger()
	if sender == nil {
		sender = NewSender(0, DefaultRetryConfig(), l)
	}
	return &TelegramAlerter{tg: tg, target: target, sender: sender, logger: l}
}

func (a *TelegramAlerter) Alert(ctx context.Context, text string) error {
	chat, thread := a.target.TelegramTarget()
	chatID, err := strconv.ParseInt(chat, 10, 64)
	if err != nil {
		return &TelegramError{Code: 400, Message: "invalid chat id " + strconv.Quote(chat)}
	}
	threadID, _ := strconv.ParseInt(thread, 10, 64)

	err = a.sender.Do(ctx, func() error {
		if threadID == 0 {
			_, err := a.tg.Send(tgbotapi.NewMessage(chatID, text))
			return err
		}
		_, err := a.tg.MakeRequest("sendMessage", tgbotapi.Params{
			"chat_id":           strconv.FormatInt(chatID, 10),
			"message_thread_id": strconv.FormatInt(threadID, 10),
			"text":              text,
		})
		return err
	})
	if err != nil {
		return err
	}
	a.logger.Info().Int64("chat_id", chatID).Int64("thread_id", threadID).Msg("alert sent")
	return nil
}
