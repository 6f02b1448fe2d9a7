package domain

import (
	"errors"
	"fmt"
)

// Error kinds returned by the store and the use cases. Classify with errors.Is.
var (
	ErrValidation   = errors.New("validation error")
	ErrDuplicateKey = errors.New("duplicate key")
	ErrConflict     = errors.New("conflict")
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidState = errors.New("invalid state")
)

// Error is a classified error carrying a message fit for API clients.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

// Errorf returns an *Error of the given kind.
func Errorf(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Message returns the client-facing message of err: the message of the
// outermost *Error in the chain, or the bare kind text.
func Message(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	for _, kind := range []error{ErrValidation, ErrDuplicateKey, ErrConflict, ErrNotFound, ErrUnauthorized, ErrForbidden, ErrInvalidState} {
		if errors.Is(err, kind) {
			return kind.Error()
		}
	}
	return err.Error()
}
