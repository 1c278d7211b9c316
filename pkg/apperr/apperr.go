package apperr

import (
	"errors"
	"fmt"
)

// Code is the short machine-readable error code surfaced to callers.
type Code string

const (
	InvalidArgument Code = "invalid-argument"
	NotFound        Code = "not-found"
	Unavailable     Code = "unavailable"
	Internal        Code = "internal"
)

// GenericMessage is shown when an unclassified error reaches the boundary.
const GenericMessage = "An unexpected error occurred during content generation."

// Error carries a code and a human-readable message alongside the underlying cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Wrap(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// From returns the first *Error in err's chain, or an Internal error wrapping err.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Code: Internal, Message: GenericMessage, Err: err}
}

// CodeOf reports the code of err, Internal when unclassified.
func CodeOf(err error) Code {
	return From(err).Code
}

// MessageOf reports the user-facing message of err.
func MessageOf(err error) string {
	return From(err).Message
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}
