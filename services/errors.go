package services

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by this package matches exactly one of
// these through errors.Is.
var (
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInternal          = errors.New("internal error")
)

// OrderError carries a message meant for the caller alongside its kind.
type OrderError struct {
	Kind    error
	Message string
	cause   error
}

func (e *OrderError) Error() string {
	return e.Message
}

func (e *OrderError) Unwrap() []error {
	if e.cause != nil {
		return []error{e.Kind, e.cause}
	}
	return []error{e.Kind}
}

func newError(kind error, format string, args ...interface{}) *OrderError {
	return &OrderError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// internalError wraps an unexpected persistence failure. The message is
// safe to show; the cause is kept for logs.
func internalError(op string, err error) *OrderError {
	return &OrderError{
		Kind:    ErrInternal,
		Message: fmt.Sprintf("%s: %v", op, err),
		cause:   err,
	}
}

// KindOf returns the kind sentinel of err, ErrInternal for foreign errors.
func KindOf(err error) error {
	for _, kind := range []error{ErrInvalidArgument, ErrNotFound, ErrInsufficientStock, ErrInvalidTransition} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return ErrInternal
}

// KindName is a short label for logs and metrics.
func KindName(err error) string {
	switch KindOf(err) {
	case ErrInvalidArgument:
		return "invalid_argument"
	case ErrNotFound:
		return "not_found"
	case ErrInsufficientStock:
		return "insufficient_stock"
	case ErrInvalidTransition:
		return "invalid_transition"
	default:
		return "internal"
	}
}
