package booking

import (
	"errors"
	"fmt"
	"time"

	"studiobooking/internal/domain"
)

var (
	ErrValidation              = errors.New("validation error")
	ErrConflict                = errors.New("booking conflict")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
	ErrPolicyDenied            = errors.New("cancellation not allowed")
	ErrBusy                    = errors.New("room busy")
	ErrNotFound                = errors.New("booking not found")
	ErrRoomNotFound            = errors.New("room not found")
	ErrForbidden               = errors.New("forbidden")
)

// ValidationError is returned for malformed input or a violated ledger rule.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation error: " + e.Message
	}
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func newValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// ConflictError is returned when a window overlaps an active booking of the same room.
type ConflictError struct {
	RoomID        int64
	Start         time.Time
	End           time.Time
	ConflictingID string
}

func (e *ConflictError) Error() string {
	msg := fmt.Sprintf("room %d is already booked between %s and %s",
		e.RoomID, e.Start.Format(time.RFC3339), e.End.Format(time.RFC3339))
	if e.ConflictingID != "" {
		msg += " (booking " + e.ConflictingID + ")"
	}
	return msg
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// InvalidTransitionError names the state and the event that was rejected.
type InvalidTransitionError struct {
	From   domain.BookingStatus
	Event  Event
	Reason string
}

func (e *InvalidTransitionError) Error() string {
	msg := fmt.Sprintf("cannot %s booking in status %s", e.Event, e.From)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *InvalidTransitionError) Unwrap() error { return ErrInvalidStatusTransition }

// PolicyDeniedError is returned when the cancellation window has closed.
type PolicyDeniedError struct {
	Start       time.Time
	WindowHours int
}

func (e *PolicyDeniedError) Error() string {
	return fmt.Sprintf("cancellation must happen at least %dh before %s",
		e.WindowHours, e.Start.Format(time.RFC3339))
}

func (e *PolicyDeniedError) Unwrap() error { return ErrPolicyDenied }

// LockTimeoutError is returned when the room guard could not be acquired in time.
// The operation may be retried.
type LockTimeoutError struct {
	RoomID int64
	Waited time.Duration
}

func (e *LockTimeoutError) Error() string {
	return fmt.Sprintf("room %d busy: lock not acquired within %s", e.RoomID, e.Waited)
}

func (e *LockTimeoutError) Unwrap() error { return ErrBusy }
