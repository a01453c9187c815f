package utils

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrKind classifies engine failures. Controllers map kinds to HTTP status
// and app codes; services never touch HTTP concepts.
type ErrKind int

const (
	KindValidation ErrKind = iota + 1
	KindNotFound
	KindForbidden
	KindConflict
	KindLocked
	KindInternal
)

// AppError carries a stable kind, a user-facing message and an internal
// detail error for diagnostics. The detail is never exposed to callers.
type AppError struct {
	Kind    ErrKind
	Message string
	Detail  error
}

func (e *AppError) Error() string {
	if e.Detail != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Detail)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Detail }

// Status maps the kind to an HTTP status. Locked writes are a Forbidden
// variant with a distinct app code, so they also map to 403.
func (e *AppError) Status() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden, KindLocked:
		return http.StatusForbidden
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Code maps the kind to the app code carried in the response envelope.
func (e *AppError) Code() int {
	switch e.Kind {
	case KindValidation:
		return 40001
	case KindNotFound:
		return 40401
	case KindForbidden:
		return 40301
	case KindLocked:
		return 42301
	case KindConflict:
		return 40901
	default:
		return 50001
	}
}

func Invalid(message string) *AppError {
	return &AppError{Kind: KindValidation, Message: message}
}

func NotFound(message string) *AppError {
	return &AppError{Kind: KindNotFound, Message: message}
}

func Forbidden(message string) *AppError {
	return &AppError{Kind: KindForbidden, Message: message}
}

func Conflict(message string) *AppError {
	return &AppError{Kind: KindConflict, Message: message}
}

func Locked(message string) *AppError {
	return &AppError{Kind: KindLocked, Message: message}
}

func Internal(message string, detail error) *AppError {
	return &AppError{Kind: KindInternal, Message: message, Detail: detail}
}

// KindOf extracts the kind from err, or KindInternal for unknown errors.
func KindOf(err error) ErrKind {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}
