package admin

import (
	"context"
	"fmt"
	"strings"

	"kanban/internal/metrics"
	"kanban/internal/model"
)

type staffPatch struct {
	Name       string `json:"name"`
	TelegramID string `json:"telegramId"`
}

func validStaff(name, telegramID string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: staff name is required", ErrInvalidInput)
	}
	if id := strings.TrimSpace(telegramID); id != "" && !(model.Staff{TelegramID: id}).Notifiable() {
		return fmt.Errorf("%w: telegram id must be numeric", ErrInvalidInput)
	}
	return nil
}

func (s *Service) ListStaff(ctx context.Context) ([]model.Staff, error) {
	if err := s.requireLogin(); err != nil {
		return nil, err
	}
	list, err := s.store.ListStaff(ctx)
	if err != nil {
		return nil, fmt.Errorf("list staff: %w", err)
	}
	return list, nil
}

// AddStaff creates a roster entry. The name must match the external
// attendance roster spelling; it is only trimmed.
func (s *Service) AddStaff(ctx context.Context, name, telegramID string) (model.Staff, error) {
	if err := s.requireLogin(); err != nil {
		return model.Staff{}, err
	}
	if err := validStaff(name, telegramID); err != nil {
		return model.Staff{}, err
	}
	created, err := s.store.CreateStaff(ctx, model.Staff{
		Name:       strings.TrimSpace(name),
		TelegramID: strings.TrimSpace(telegramID),
	})
	metrics.ObserveMutation("staff_create", err)
	if err != nil {
		return model.Staff{}, fmt.Errorf("create staff: %w", err)
	}
	s.logger.Info().Str("staff_id", created.ID).Msg("staff added")
	return created, nil
}

func (s *Service) EditStaff(ctx context.Context, id, name, telegramID string) (model.Staff, error) {
	if err := s.requireLogin(); err != nil {
		return model.Staff{}, err
	}
	if err := validStaff(name, telegramID); err != nil {
		return model.Staff{}, err
	}
	updated, err := s.store.UpdateStaff(ctx, id, staffPatch{
		Name:       strings.TrimSpace(name),
		TelegramID: strings.TrimSpace(telegramID),
	})
	metrics.ObserveMutation("staff_edit", err)
	if err != nil {
		return model.Staff{}, fmt.Errorf("update staff %s: %w", id, err)
	}
	return updated, nil
}

func (s *Service) DeleteStaff(ctx context.Context, id string) error {
	if err := s.requireLogin(); err != nil {
		return err
	}
	err := s.store.DeleteStaff(ctx, id)
	metrics.ObserveMutation("staff_delete", err)
	if err != nil {
		return fmt.Errorf("delete staff %s: %w", id, err)
	}
	return nil
}
