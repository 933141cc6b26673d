package admin

import (
	"errors"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNoChat       = errors.New("telegram chat id is not configured")
	ErrNoRecipients = errors.New("no staff with a telegram id")
	ErrUnknownZone  = errors.New("unknown zone")
)

// AccessDeniedError is returned when an admin operation runs without login.
type AccessDeniedError struct {
	Reason string
}

func (e *AccessDeniedError) Error() string {
	return e.Reason
}

// IsAccessDenied checks if error is access denied.
func IsAccessDenied(err error) bool {
	var denied *AccessDeniedError
	return errors.As(err, &denied)
}
