package remote

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrTransport marks failures to reach the store at all.
	ErrTransport = errors.New("remote store unreachable")
	// ErrMalformed marks a success response whose body is not what was expected.
	ErrMalformed = errors.New("malformed response")
)

// StatusError is a non-success HTTP status from a reachable store.
type StatusError struct {
	Method  string
	Path    string
	Code    int
	Message string // server "error" field, if any
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: http %d: %s", e.Method, e.Path, e.Code, e.Message)
	}
	return fmt.Sprintf("%s %s: http %d", e.Method, e.Path, e.Code)
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}

// IsNotFound reports whether err is a 404 from the store.
func IsNotFound(err error) bool {
	return IsStatus(err, http.StatusNotFound)
}
