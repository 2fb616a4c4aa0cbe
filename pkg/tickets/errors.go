package tickets

import (
	"errors"
	"fmt"
)

// Kind classifies the errors that are reported back to the user.
type Kind int

const (
	// KindValidation is bad or missing input, or a command used in the wrong place.
	KindValidation Kind = iota + 1

	// KindAuthorization is an actor without the required role or ownership.
	KindAuthorization

	// KindConflict is a ticket that is not in the state the action needs.
	KindConflict

	// KindConfiguration is a guild that is missing configuration the action needs.
	KindConfiguration
)

// String returns the name of the kind.
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthorization:
		return "authorization"
	case KindConflict:
		return "conflict"
	case KindConfiguration:
		return "configuration"
	default:
		return "unknown"
	}
}

// Error is an error that is safe to show to the user. Nothing has been changed when one is returned.
// Any other error returned by the lifecycle is an infrastructure failure.
type Error struct {
	Kind    Kind
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func newError(kind Kind, format string, args ...any) *Error {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	return &Error{
		Kind:    kind,
		Message: msg,
	}
}

// KindOf returns the kind of the error if it is a user facing error.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// UserMessage returns the message to show the user if the error is user facing.
func UserMessage(err error) (string, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Message, true
	}
	return "", false
}
