// Package apperr holds the error taxonomy shared by the ledger, the transfer
// coordinator and the low-stock monitor. Callers branch with errors.Is.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrValidation          = errors.New("validation error")
	ErrNotFound            = errors.New("not found")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrInvalidOperation    = errors.New("invalid operation")
	ErrInvalidState        = errors.New("invalid state")
	ErrConcurrencyConflict = errors.New("concurrency conflict")
)

func Validation(format string, args ...any) error {
	return wrap(ErrValidation, format, args...)
}

func NotFound(format string, args ...any) error {
	return wrap(ErrNotFound, format, args...)
}

func InsufficientStock(format string, args ...any) error {
	return wrap(ErrInsufficientStock, format, args...)
}

func InvalidOperation(format string, args ...any) error {
	return wrap(ErrInvalidOperation, format, args...)
}

func InvalidState(format string, args ...any) error {
	return wrap(ErrInvalidState, format, args...)
}

func Conflict(format string, args ...any) error {
	return wrap(ErrConcurrencyConflict, format, args...)
}

func wrap(kind error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...))
}

// Code returns a stable machine-readable code for err, or "internal".
func Code(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "validation_error"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, ErrInvalidOperation):
		return "invalid_operation"
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, ErrConcurrencyConflict):
		return "concurrency_conflict"
	default:
		return "internal"
	}
}
