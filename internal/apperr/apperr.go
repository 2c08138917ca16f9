// Package apperr defines the error kinds the application distinguishes
// when translating failures into HTTP responses.
package apperr

import (
	"errors"
	"net/http"
)

// Kind classifies an application error.
type Kind int

const (
	KindUnhandled Kind = iota
	KindValidation
	KindAuthentication
	KindNotFound
	KindRateLimited
)

// Error is an error of a known kind carrying a client-safe message.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// Sentinels to be used with errors.Is.
var (
	ErrValidation     = &Error{Kind: KindValidation}
	ErrAuthentication = &Error{Kind: KindAuthentication}
	ErrNotFound       = &Error{Kind: KindNotFound}
	ErrRateLimited    = &Error{Kind: KindRateLimited}
)

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}

	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}

	return t.Kind == e.Kind
}

func Validation(message string) error {
	return &Error{Kind: KindValidation, Message: message}
}

func Authentication(message string) error {
	return &Error{Kind: KindAuthentication, Message: message}
}

func NotFound(message string) error {
	return &Error{Kind: KindNotFound, Message: message}
}

func RateLimited(message string) error {
	return &Error{Kind: KindRateLimited, Message: message}
}

// Wrap attaches a cause to a kind error without changing its client message.
func Wrap(kindErr error, cause error) error {
	var e *Error
	if !errors.As(kindErr, &e) {
		return kindErr
	}

	return &Error{Kind: e.Kind, Message: e.Message, Err: cause}
}

// StatusCode maps err to the HTTP status code of its kind.
// Errors of unknown kind map to 500.
func StatusCode(err error) int {
	var e *Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError
	}

	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindRateLimited:
		return http.StatusTooManyRequests
	}

	return http.StatusInternalServerError
}

// Message returns the client-safe message of err.
// Errors of unknown kind never leak their text.
func Message(err error) string {
	var e *Error
	if !errors.As(err, &e) || e.Kind == KindUnhandled {
		return "Internal server error"
	}

	return e.Message
}
