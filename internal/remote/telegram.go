package remote

import (
	"context"

	"kanban/internal/model"
)

// CallType is what a guest asks for from the table page.
type CallType string

const (
	CallWaiter     CallType = "waiter"
	CallHookah     CallType = "hookah"
	CallGameMaster CallType = "gamemaster"
)

// TableCall is the body of POST /api/table-calls.
type TableCall struct {
	Branch   model.Branch `json:"branch"`
	TableID  int64        `json:"tableId"`
	CallType CallType     `json:"callType"`
	Comment  string       `json:"comment,omitempty"`
}

func (c *Client) CreateTableCall(ctx context.Context, call TableCall) error {
	_, err := c.doPost(ctx, "/api/table-calls", call)
	return err
}

// Target addresses a Telegram chat and optional forum thread.
type Target struct {
	ChatID   string `json:"chatId"`
	ThreadID *int64 `json:"threadId"`
}

type DirtyZoneNotice struct {
	Branch   model.Branch `json:"branch"`
	ZoneName string       `json:"zoneName"`
	Target
}

func (c *Client) NotifyDirtyZone(ctx context.Context, n DirtyZoneNotice) error {
	_, err := c.doPost(ctx, "/api/telegram/notify-dirty-zone", n)
	return err
}

type ShiftMember struct {
	Name       string `json:"name"`
	TelegramID string `json:"telegramId"`
}

type ShiftNotice struct {
	Branch model.Branch  `json:"branch"`
	Staff  []ShiftMember `json:"staff"`
	Target
}

func (c *Client) NotifyStaffOnShift(ctx context.Context, n ShiftNotice) error {
	_, err := c.doPost(ctx, "/api/telegram/notify-staff-on-shift", n)
	return err
}

type Message struct {
	Message string `json:"message"`
	Target
}

func (c *Client) SendMessage(ctx context.Context, m Message) error {
	_, err := c.doPost(ctx, "/api/telegram/send-message", m)
	return err
}
