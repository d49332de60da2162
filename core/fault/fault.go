// Package fault defines the structured errors the interpretation engine
// reports. Every refusal is a typed error with a kind; nothing in the
// engine panics on bad definitions or bad input.
package fault

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies an engine error.
type Kind string

const (
	// KindValidation marks a definition that failed schema validation.
	KindValidation Kind = "validation_error"

	// KindNotFound marks a missing module, screen, record, or route.
	KindNotFound Kind = "not_found"

	// KindForbidden marks a caller lacking a required permission.
	KindForbidden Kind = "forbidden"

	// KindNoSuchTransition marks a transition absent from the current
	// workflow state.
	KindNoSuchTransition Kind = "no_such_transition"

	// KindTransitionDisabled marks a transition whose disabled_if guard
	// held against the record.
	KindTransitionDisabled Kind = "transition_disabled"

	// KindMissingRecordID marks an api action whose endpoint needs {id}
	// but was invoked without one.
	KindMissingRecordID Kind = "missing_record_id"

	// KindActionFailed marks an external call that returned a failure.
	KindActionFailed Kind = "action_failed"

	// KindNotImplemented marks a custom or batch action with no
	// registered handler.
	KindNotImplemented Kind = "not_implemented"
)

// Error is a typed engine error.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an error of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to an underlying cause.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// NotFound reports a missing resource, optionally with its id.
func NotFound(resource, id string) *Error {
	if id == "" {
		return New(KindNotFound, "%s not found", resource)
	}
	return New(KindNotFound, "%s %q not found", resource, id)
}

// Forbidden reports that the caller holds none of the required
// permissions.
func Forbidden(permissions ...string) *Error {
	return New(KindForbidden, "requires one of: %s", strings.Join(permissions, ", "))
}

// KindOf returns the kind of err, or "" when err carries none.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// HTTPStatus maps a kind to its HTTP response status.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindValidation:
		return http.StatusUnprocessableEntity
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindNoSuchTransition, KindTransitionDisabled:
		return http.StatusConflict
	case KindMissingRecordID:
		return http.StatusBadRequest
	case KindActionFailed:
		return http.StatusBadGateway
	case KindNotImplemented:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}
