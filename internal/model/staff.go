package model

import "strings"

// Staff is a roster entry. Name must match the external roster spelling.
type Staff struct {
	ID         string `json:"id,omitempty"`
	Name       string `json:"name"`
	TelegramID string `json:"telegramId,omitempty"`
}

// Notifiable reports whether the staff member can receive Telegram messages.
func (s Staff) Notifiable() bool {
	id := strings.TrimSpace(s.TelegramID)
	if id == "" {
		return false
	}
	for _, r := range id {
		if (r < '0' || r > '9') && r != '-' {
			return false
		}
	}
	return true
}
