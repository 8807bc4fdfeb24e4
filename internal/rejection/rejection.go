// Package rejection defines the closed set of reasons a booking-related
// operation can be refused for. Every refusal surfaced to a caller is an
// *Error carrying one of these reasons.
package rejection

import (
	"context"
	"errors"
	"fmt"
)

// Reason is a stable, machine-readable rejection code.
type Reason string

const (
	Unauthenticated     Reason = "UNAUTHENTICATED"
	Unauthorized        Reason = "UNAUTHORIZED"
	RestaurantNotFound  Reason = "RESTAURANT_NOT_FOUND"
	InvalidWindow       Reason = "INVALID_WINDOW"
	CapacityExceeded    Reason = "CAPACITY_EXCEEDED"
	StorageFailure      Reason = "STORAGE_FAILURE"
	ReservationNotFound Reason = "RESERVATION_NOT_FOUND"
	EmailTaken          Reason = "EMAIL_TAKEN"
	InvalidInput        Reason = "INVALID_INPUT"

	// Timeout and Cancelled report that the caller's deadline or
	// cancellation ended the operation before it could decide.
	Timeout   Reason = "TIMEOUT"
	Cancelled Reason = "CANCELLED"
)

// Error is a rejection with an optional human-readable detail and cause.
type Error struct {
	Reason Reason
	Detail string
	Err    error
}

func (e *Error) Error() string {
	msg := string(e.Reason)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is a rejection with the same reason, so that
// errors.Is(err, ErrCapacityExceeded) matches any capacity rejection.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Reason == e.Reason
}

// Sentinels for errors.Is checks.
var (
	ErrUnauthenticated     = &Error{Reason: Unauthenticated}
	ErrUnauthorized        = &Error{Reason: Unauthorized}
	ErrRestaurantNotFound  = &Error{Reason: RestaurantNotFound}
	ErrInvalidWindow       = &Error{Reason: InvalidWindow}
	ErrCapacityExceeded    = &Error{Reason: CapacityExceeded}
	ErrStorageFailure      = &Error{Reason: StorageFailure}
	ErrReservationNotFound = &Error{Reason: ReservationNotFound}
	ErrEmailTaken          = &Error{Reason: EmailTaken}
	ErrInvalidInput        = &Error{Reason: InvalidInput}
	ErrTimeout             = &Error{Reason: Timeout}
	ErrCancelled           = &Error{Reason: Cancelled}
)

// New builds a rejection with a formatted detail.
func New(reason Reason, format string, args ...any) *Error {
	return &Error{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

// Wrap builds a rejection around an underlying cause.
func Wrap(reason Reason, err error, detail string) *Error {
	return &Error{Reason: reason, Detail: detail, Err: err}
}

// FromContext classifies a context error as Timeout or Cancelled. Any other
// error is returned unchanged.
func FromContext(err error, detail string) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return Wrap(Timeout, err, detail)
	case errors.Is(err, context.Canceled):
		return Wrap(Cancelled, err, detail)
	default:
		return err
	}
}

// ReasonOf extracts the rejection reason from err, if any.
func ReasonOf(err error) (Reason, bool) {
	var rej *Error
	if errors.As(err, &rej) {
		return rej.Reason, true
	}
	return "", false
}
