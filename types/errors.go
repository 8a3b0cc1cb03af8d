package types

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Error kinds surfaced to API callers
var (
	ErrValidation       = errors.New("validation error")
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("conflict")
	ErrPermissionDenied = errors.New("permission denied")
	ErrIntegrityGuard   = errors.New("integrity guard")
	ErrUnknownField     = errors.New("unknown field")
	ErrInvalidValue     = errors.New("invalid value")
)

// AppError carries one of the kinds above plus a caller-facing message.
type AppError struct {
	Kind    error
	Message string
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Kind
}

// NewError builds an AppError of the given kind.
func NewError(kind error, format string, args ...interface{}) *AppError {
	return &AppError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...interface{}) *AppError {
	return NewError(ErrValidation, format, args...)
}

func NotFound(format string, args ...interface{}) *AppError {
	return NewError(ErrNotFound, format, args...)
}

func Conflict(format string, args ...interface{}) *AppError {
	return NewError(ErrConflict, format, args...)
}

func PermissionDenied(format string, args ...interface{}) *AppError {
	return NewError(ErrPermissionDenied, format, args...)
}

func IntegrityGuard(format string, args ...interface{}) *AppError {
	return NewError(ErrIntegrityGuard, format, args...)
}

// StatusOf maps an error to the HTTP status returned to the caller.
// Anything that is not an AppError kind is a 500.
func StatusOf(err error) int {
	switch {
	case errors.Is(err, ErrValidation), errors.Is(err, ErrUnknownField), errors.Is(err, ErrInvalidValue):
		return fiber.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, ErrPermissionDenied):
		return fiber.StatusForbidden
	case errors.Is(err, ErrConflict), errors.Is(err, ErrIntegrityGuard):
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

// MessageOf returns the message shown to the caller. Internal errors are not leaked.
func MessageOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "Internal server error"
}
