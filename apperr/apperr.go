package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error by what the caller can do about it.
type Kind string

const (
	Validation Kind = "validation"
	NotFound   Kind = "not_found"
	Conflict   Kind = "conflict"
	Transport  Kind = "transport"
	Internal   Kind = "internal"
)

// Error is the application error carried across package boundaries.
// Message is safe to show to a storefront user; Err is for logs.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an Error of the given kind.
func New(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func ValidationError(message string) *Error {
	return New(Validation, message, nil)
}

func NotFoundError(message string, err error) *Error {
	return New(NotFound, message, err)
}

func ConflictError(message string, err error) *Error {
	return New(Conflict, message, err)
}

func TransportError(message string, err error) *Error {
	return New(Transport, message, err)
}

func InternalError(message string, err error) *Error {
	return New(Internal, message, err)
}

// KindOf reports the kind of err. Errors that are not *Error are internal.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return Internal
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	if err == nil {
		return false
	}
	return KindOf(err) == kind
}

// MessageOf returns the user-facing message of err, or fallback when err
// carries none.
func MessageOf(err error, fallback string) string {
	var appErr *Error
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return fallback
}

// HTTPStatus maps a kind to the status code the API answers with.
func HTTPStatus(kind Kind) int {
	switch kind {
	case Validation:
		return http.StatusBadRequest
	case NotFound:
		return http.StatusNotFound
	case Conflict:
		return http.StatusConflict
	case Transport:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
