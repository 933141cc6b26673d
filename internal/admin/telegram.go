package admin

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"kanban/internal/model"
	"kanban/internal/remote"
)

// overrideLayout is the datetime-local form input.
const overrideLayout = "2006-01-02T15:04"

// target builds the Telegram address from the session. A thread id that is
// not a number is sent as null.
func (s *Service) target() (remote.Target, error) {
	chat, thread := s.session.TelegramTarget()
	chat = strings.TrimSpace(chat)
	if chat == "" {
		return remote.Target{}, ErrNoChat
	}
	t := remote.Target{ChatID: chat}
	if id, err := strconv.ParseInt(strings.TrimSpace(thread), 10, 64); err == nil {
		t.ThreadID = &id
	}
	return t, nil
}

// SetTelegramTarget stores the default chat and thread.
func (s *Service) SetTelegramTarget(ctx context.Context, chatID, threadID string) error {
	if err := s.requireLogin(); err != nil {
		return err
	}
	if err := s.session.SetTelegramChatID(ctx, strings.TrimSpace(chatID)); err != nil {
		return err
	}
	return s.session.SetTelegramThreadID(ctx, strings.TrimSpace(threadID))
}

// NotifyDirtyZone tells staff that a zone has not been cleaned.
func (s *Service) NotifyDirtyZone(ctx context.Context, zone model.Zone) error {
	if err := s.requireLogin(); err != nil {
		return err
	}
	t, err := s.target()
	if err != nil {
		return err
	}
	if err := s.store.NotifyDirtyZone(ctx, remote.DirtyZoneNotice{Branch: zone.Branch, ZoneName: zone.Name, Target: t}); err != nil {
		return fmt.Errorf("notify dirty zone %d: %w", zone.ID, err)
	}
	s.logger.Info().Int64("zone_id", zone.ID).Str("branch", string(zone.Branch)).Msg("dirty zone notice sent")
	return nil
}

// NotifyDirtyZoneByID looks the zone up in the board mirror.
func (s *Service) NotifyDirtyZoneByID(ctx context.Context, id int64) error {
	zone, ok := s.zones.Zone(id)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownZone, id)
	}
	return s.NotifyDirtyZone(ctx, zone)
}

// NotifyStaffOnShift messages the given staff of the admin branch. Staff
// without a numeric Telegram id are skipped.
func (s *Service) NotifyStaffOnShift(ctx context.Context, staff []model.Staff) (int, error) {
	if err := s.requireLogin(); err != nil {
		return 0, err
	}
	t, err := s.target()
	if err != nil {
		return 0, err
	}
	members := make([]remote.ShiftMember, 0, len(staff))
	for _, st := range staff {
		if st.Notifiable() {
			members = append(members, remote.ShiftMember{Name: st.Name, TelegramID: strings.TrimSpace(st.TelegramID)})
		}
	}
	if len(members) == 0 {
		return 0, ErrNoRecipients
	}
	branch := s.session.AdminBranch()
	if err := s.store.NotifyStaffOnShift(ctx, remote.ShiftNotice{Branch: branch, Staff: members, Target: t}); err != nil {
		return 0, fmt.Errorf("notify staff on shift: %w", err)
	}
	s.logger.Info().Str("branch", string(branch)).Int("recipients", len(members)).Msg("shift notice sent")
	return len(members), nil
}

// SendMessage posts free text to the default chat.
func (s *Service) SendMessage(ctx context.Context, text string) error {
	if err := s.requireLogin(); err != nil {
		return err
	}
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: message is empty", ErrInvalidInput)
	}
	t, err := s.target()
	if err != nil {
		return err
	}
	if err := s.store.SendMessage(ctx, remote.Message{Message: text, Target: t}); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

// SetTimeOverride parses a local "YYYY-MM-DDTHH:MM" value and makes it the
// board's "now".
func (s *Service) SetTimeOverride(ctx context.Context, value string) (time.Time, error) {
	if err := s.requireLogin(); err != nil {
		return time.Time{}, err
	}
	at, err := time.ParseInLocation(overrideLayout, strings.TrimSpace(value), time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: Некорректная дата/время", ErrInvalidInput)
	}
	if err := s.session.SetTimeOverride(ctx, at); err != nil {
		return time.Time{}, err
	}
	s.logger.Info().Time("override", at).Msg("test time set")
	return at, nil
}

func (s *Service) ResetTimeOverride(ctx context.Context) error {
	if err := s.requireLogin(); err != nil {
		return err
	}
	return s.session.ResetTimeOverride(ctx)
}

// SetReminderTestMode switches the happy-hour reminder to its test marker.
func (s *Service) SetReminderTestMode(ctx context.Context, on bool) error {
	if err := s.requireLogin(); err != nil {
		return err
	}
	return s.session.SetTestMode(ctx, on)
}
