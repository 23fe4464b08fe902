package utils

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// ErrorKind classifies failures so transports can tell "retry later" from
// "never allowed" from "bad target".
type ErrorKind string

const (
	KindAuthentication ErrorKind = "AUTHENTICATION"
	KindAuthorization  ErrorKind = "AUTHORIZATION"
	KindNotFound       ErrorKind = "NOT_FOUND"
	KindInvalidState   ErrorKind = "INVALID_STATE"
	KindValidation     ErrorKind = "VALIDATION"
	KindConflict       ErrorKind = "CONFLICT"
	KindCapacity       ErrorKind = "CAPACITY"
	KindInternal       ErrorKind = "INTERNAL"
)

// AppError is the typed failure surfaced to HTTP and realtime callers.
type AppError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AppError) Unwrap() error { return e.Err }

// Is matches any AppError of the same kind, so errors.Is(err, ErrNotFound)
// works regardless of message.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrUnauthenticated = &AppError{Kind: KindAuthentication}
	ErrForbidden       = &AppError{Kind: KindAuthorization}
	ErrNotFound        = &AppError{Kind: KindNotFound}
	ErrInvalidState    = &AppError{Kind: KindInvalidState}
	ErrValidation      = &AppError{Kind: KindValidation}
	ErrConflict        = &AppError{Kind: KindConflict}
	ErrCapacity        = &AppError{Kind: KindCapacity}
)

func Unauthenticated(msg string) *AppError {
	return &AppError{Kind: KindAuthentication, Message: msg}
}

func Forbidden(msg string) *AppError {
	return &AppError{Kind: KindAuthorization, Message: msg}
}

func NotFound(msg string) *AppError {
	return &AppError{Kind: KindNotFound, Message: msg}
}

func InvalidState(msg string) *AppError {
	return &AppError{Kind: KindInvalidState, Message: msg}
}

func Validation(msg string) *AppError {
	return &AppError{Kind: KindValidation, Message: msg}
}

func Conflict(msg string) *AppError {
	return &AppError{Kind: KindConflict, Message: msg}
}

func CapacityExceeded(msg string) *AppError {
	return &AppError{Kind: KindCapacity, Message: msg}
}

// Internal wraps an unexpected failure. The message is safe to show.
func Internal(msg string, err error) *AppError {
	return &AppError{Kind: KindInternal, Message: msg, Err: err}
}

// KindOf returns the kind of err, INTERNAL for anything untyped.
func KindOf(err error) ErrorKind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// PublicMessage returns the caller-visible message for err.
func PublicMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return "internal server error"
}

// HTTPStatus maps a kind onto the HTTP status code.
func (k ErrorKind) HTTPStatus() int {
	switch k {
	case KindAuthentication:
		return fiber.StatusUnauthorized
	case KindAuthorization:
		return fiber.StatusForbidden
	case KindNotFound:
		return fiber.StatusNotFound
	case KindInvalidState, KindConflict:
		return fiber.StatusConflict
	case KindValidation:
		return fiber.StatusBadRequest
	case KindCapacity:
		return fiber.StatusUnprocessableEntity
	default:
		return fiber.StatusInternalServerError
	}
}

// Category is the realtime error category sent in error frames.
func (k ErrorKind) Category() string {
	switch k {
	case KindAuthentication:
		return "NOT_AUTHENTICATED"
	case KindAuthorization:
		return "NOT_AUTHORIZED"
	case KindNotFound:
		return "NOT_FOUND"
	case KindInvalidState, KindConflict:
		return "INVALID_STATE"
	case KindValidation, KindCapacity:
		return "VALIDATION"
	default:
		return "INTERNAL"
	}
}
