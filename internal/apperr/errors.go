// Package apperr defines the error kinds surfaced by the workflow services.
// Services return *Error values; handlers map them onto HTTP responses.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindValidation   Kind = "validation"
	KindNotFound     Kind = "not_found"
	KindForbidden    Kind = "forbidden"
	KindInvalidState Kind = "invalid_state"
	KindConflict     Kind = "conflict"
	KindApply        Kind = "apply"
	KindPersistence  Kind = "persistence"
	KindInternal     Kind = "internal"
)

// Sentinels let callers use errors.Is without caring about the message.
var (
	ErrValidation   = errors.New("validation error")
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidState = errors.New("invalid state")
	ErrConflict     = errors.New("conflict")
	ErrApply        = errors.New("apply failed")
	ErrPersistence  = errors.New("persistence error")
	ErrInternal     = errors.New("internal error")
)

var sentinels = map[Kind]error{
	KindValidation:   ErrValidation,
	KindNotFound:     ErrNotFound,
	KindForbidden:    ErrForbidden,
	KindInvalidState: ErrInvalidState,
	KindConflict:     ErrConflict,
	KindApply:        ErrApply,
	KindPersistence:  ErrPersistence,
	KindInternal:     ErrInternal,
}

type Error struct {
	Kind    Kind
	Message string
	// Field names the offending input field, when there is one.
	Field string
	// CurrentStatus is set on invalid_state errors so the caller can refresh.
	CurrentStatus string
	Err           error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Field != "" {
		msg = fmt.Sprintf("%s: %s", e.Field, msg)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	return sentinels[e.Kind] == target
}

func Validation(field, msg string) *Error {
	return &Error{Kind: KindValidation, Field: field, Message: msg}
}

func NotFound(what string) *Error {
	return &Error{Kind: KindNotFound, Message: what + " not found"}
}

func Forbidden(msg string) *Error {
	return &Error{Kind: KindForbidden, Message: msg}
}

func InvalidState(current string) *Error {
	return &Error{
		Kind:          KindInvalidState,
		Message:       fmt.Sprintf("pending update is already %s", current),
		CurrentStatus: current,
	}
}

func Conflict(field, msg string) *Error {
	return &Error{Kind: KindConflict, Field: field, Message: msg}
}

func Apply(err error) *Error {
	return &Error{Kind: KindApply, Message: "failed to apply change to live record", Err: err}
}

func Persistence(op string, err error) *Error {
	return &Error{Kind: KindPersistence, Message: op, Err: err}
}

func Internal(op string, err error) *Error {
	return &Error{Kind: KindInternal, Message: op, Err: err}
}

// KindOf reports the kind of err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// As is a shorthand for errors.As into *Error.
func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindInvalidState, KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
