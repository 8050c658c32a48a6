package booking

import (
	"strings"
	"time"
	"unicode/utf8"

	"studiobooking/internal/domain"
	"studiobooking/internal/pkg/timewindow"
)

type Event string

const (
	EventCreate        Event = "create"
	EventConfirm       Event = "confirm"
	EventCancel        Event = "cancel"
	EventComplete      Event = "complete"
	EventAdjustDeposit Event = "adjust_deposit"
)

// MinCancellationReasonLength is counted in characters after trimming.
const MinCancellationReasonLength = 10

type edge struct {
	from  domain.BookingStatus
	event Event
}

var transitions = map[edge]domain.BookingStatus{
	{domain.BookingPending, EventConfirm}:         domain.BookingConfirmed,
	{domain.BookingPending, EventCancel}:          domain.BookingCancelled,
	{domain.BookingConfirmed, EventCancel}:        domain.BookingCancelled,
	{domain.BookingConfirmed, EventComplete}:      domain.BookingCompleted,
	{domain.BookingPending, EventAdjustDeposit}:   domain.BookingPending,
	{domain.BookingConfirmed, EventAdjustDeposit}: domain.BookingConfirmed,
}

// CanFire reports whether event has an edge out of status. Guards are not evaluated.
func CanFire(status domain.BookingStatus, event Event) bool {
	_, ok := transitions[edge{status, event}]
	return ok
}

// TransitionInput carries what the guards of an event need.
type TransitionInput struct {
	Now         time.Time
	WindowHours int
	Reason      string
	Deposit     int64
}

// NewPending validates a draft and returns it as a fresh pending booking.
// Room overlap is not checked here.
func NewPending(draft domain.Booking, now time.Time) (domain.Booking, error) {
	if !draft.StartTime.Before(draft.EndTime) {
		return domain.Booking{}, newValidationError("end_time", "must be after start_time")
	}
	if err := ValidateDeposit(draft.TotalPrice, draft.DepositAmount); err != nil {
		return domain.Booking{}, err
	}

	b := draft
	b.Status = domain.BookingPending
	b.CancellationReason = ""
	b.CancelledAt = nil
	b.CreatedAt = now
	b.UpdatedAt = now
	return b, nil
}

// Fire applies event to b and returns the resulting booking.
// b itself is never modified, so a rejected event leaves the caller's copy intact.
func Fire(b domain.Booking, event Event, in TransitionInput) (domain.Booking, error) {
	to, ok := transitions[edge{b.Status, event}]
	if !ok {
		return b, &InvalidTransitionError{From: b.Status, Event: event}
	}

	next := b
	switch event {
	case EventConfirm:
		// no guard

	case EventCancel:
		reason := strings.TrimSpace(in.Reason)
		if utf8.RuneCountInString(reason) < MinCancellationReasonLength {
			return b, newValidationError("reason", "must be at least %d characters", MinCancellationReasonLength)
		}
		if !CancellationAllowed(b, in.Now, in.WindowHours) {
			return b, &PolicyDeniedError{Start: b.StartTime, WindowHours: in.WindowHours}
		}
		cancelledAt := in.Now
		next.CancellationReason = reason
		next.CancelledAt = &cancelledAt

	case EventComplete:
		if !timewindow.ReachedOrPassed(in.Now, b.EndTime) {
			return b, &InvalidTransitionError{From: b.Status, Event: event, Reason: "booking has not ended yet"}
		}

	case EventAdjustDeposit:
		if err := ValidateDeposit(b.TotalPrice, in.Deposit); err != nil {
			return b, err
		}
		next.DepositAmount = in.Deposit
	}

	next.Status = to
	next.UpdatedAt = in.Now
	return next, nil
}
