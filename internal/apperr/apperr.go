// Package apperr defines the typed error kinds used at every component
// boundary, and the HTTP status mapping applied at the edge. Components
// never swallow an Upstream error silently: they retry locally or wrap
// it with Kind and let it propagate.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is an error classification, not a Go type — callers compare it
// with errors.As against *Error, then switch on .Kind.
type Kind string

const (
	BadInput Kind = "bad_input"
	NotFound Kind = "not_found"
	Conflict Kind = "conflict"
	Upstream Kind = "upstream"
	Timeout  Kind = "timeout"
	Internal Kind = "internal"
)

// Error is a typed application error carrying a Kind for the HTTP
// boundary translator plus a wrapped cause for logging.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds an *Error with no wrapped cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an *Error around an existing error.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Is reports whether the first *Error in err's chain carries the given
// Kind; an *Error wrapped deeper inside that one is not consulted.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf extracts the Kind of err, defaulting to Internal when err does
// not carry one.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// HTTPStatus maps a Kind to the status code the API layer should return.
func HTTPStatus(kind Kind) int {
	switch kind {
	case BadInput:
		return http.StatusBadRequest
	case NotFound:
		return http.StatusNotFound
	case Conflict:
		return http.StatusConflict
	case Upstream:
		return http.StatusBadGateway
	case Timeout:
		return http.StatusGatewayTimeout
	case Internal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// ErrNotFound is the sentinel repositories return when a lookup misses;
// wrap it with apperr.Wrap(apperr.NotFound, ..., ErrNotFound) at the
// boundary where it becomes a typed error.
var ErrNotFound = errors.New("not found")
