package api

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failed API call by origin.
type Kind int

const (
	// KindTransport covers network failures, timeouts and unreadable responses.
	KindTransport Kind = iota
	// KindValidation means the server declined the payload (400, 409, 422).
	KindValidation
	// KindUnauthorized means the credential was missing, expired or rejected (401, 403).
	KindUnauthorized
	// KindNotFound means the addressed resource does not exist (404).
	KindNotFound
	// KindServer covers 5xx and any other unexpected status.
	KindServer
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindValidation:
		return "validation"
	case KindUnauthorized:
		return "unauthorized"
	case KindNotFound:
		return "not found"
	case KindServer:
		return "server"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Sentinels matched by *Error through errors.Is.
var (
	ErrTransport    = errors.New("transport failure")
	ErrValidation   = errors.New("validation rejected")
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrServer       = errors.New("server fault")
)

// Error is returned by every Client method on failure.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Details map[string]any
	Err     error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("api %s error (%d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("api %s error: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	switch target {
	case ErrTransport:
		return e.Kind == KindTransport
	case ErrValidation:
		return e.Kind == KindValidation
	case ErrUnauthorized:
		return e.Kind == KindUnauthorized
	case ErrNotFound:
		return e.Kind == KindNotFound
	case ErrServer:
		return e.Kind == KindServer
	}
	return false
}

// KindOf returns the Kind of err, or KindTransport when err is not an *Error.
func KindOf(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindTransport
}

func kindForStatus(status int) Kind {
	switch status {
	case http.StatusBadRequest, http.StatusConflict, http.StatusUnprocessableEntity:
		return KindValidation
	case http.StatusUnauthorized, http.StatusForbidden:
		return KindUnauthorized
	case http.StatusNotFound:
		return KindNotFound
	}
	return KindServer
}

func defaultMessage(status int) string {
	switch status {
	case http.StatusForbidden:
		return "access denied"
	case http.StatusNotFound:
		return "resource not found"
	case http.StatusConflict:
		return "conflict occurred"
	case http.StatusUnauthorized:
		return "authentication required"
	}
	if status >= 500 {
		return "server error, please try again later"
	}
	return http.StatusText(status)
}

func statusError(status int, message string, details map[string]any) *Error {
	if message == "" {
		message = defaultMessage(status)
	}
	return &Error{
		Kind:    kindForStatus(status),
		Status:  status,
		Message: message,
		Details: details,
	}
}

func transportError(message string, err error) *Error {
	return &Error{Kind: KindTransport, Message: message, Err: err}
}
