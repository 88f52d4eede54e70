// Package apperr defines the error kinds shared by every bandavail component.
//
// Components return errors that carry a Kind. Only the outer boundaries (HTTP
// handlers, MCP tools, CLI commands) translate a Kind into a status code or a
// user-facing message.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for the boundary layers.
type Kind string

const (
	KindNotAuthenticated Kind = "not_authenticated"
	KindMemberNotFound   Kind = "member_not_found"
	KindEmptySheet       Kind = "empty_sheet"
	KindNoSheetsFound    Kind = "no_sheets_found"
	KindParse            Kind = "parse_error"
	KindInvalidInput     Kind = "invalid_input"
	KindRateLimited      Kind = "rate_limited"
	KindInternal         Kind = "internal"
)

// ErrNotAuthenticated is returned when no usable Google credential is held.
var ErrNotAuthenticated = New(KindNotAuthenticated, "not authenticated")

// Error is an error tagged with a Kind.
type Error struct {
	Code    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Kind reports the error kind.
func (e *Error) Kind() Kind {
	return e.Code
}

// New creates an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Code: kind, Message: message}
}

// Newf creates an error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Code: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap tags cause with kind. It returns nil when cause is nil.
func Wrap(kind Kind, cause error, message string) error {
	if cause == nil {
		return nil
	}
	return &Error{Code: kind, Message: message, Cause: cause}
}

// kinded is implemented by every error type that carries a Kind.
type kinded interface {
	Kind() Kind
}

// KindOf returns the Kind of the first error in err's chain that carries one.
// Errors without a kind are KindInternal; a nil error has no kind.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var k kinded
	if errors.As(err, &k) {
		return k.Kind()
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
