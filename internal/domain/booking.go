package domain

import "time"

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
	BookingCompleted BookingStatus = "completed"
)

// IsActive reports whether a booking in this status occupies its room.
func (s BookingStatus) IsActive() bool {
	return s == BookingPending || s == BookingConfirmed
}

func (s BookingStatus) IsTerminal() bool {
	return s == BookingCancelled || s == BookingCompleted
}

func (s BookingStatus) Valid() bool {
	switch s {
	case BookingPending, BookingConfirmed, BookingCancelled, BookingCompleted:
		return true
	}
	return false
}

// ActiveBookingStatuses are the statuses that block a room's calendar.
var ActiveBookingStatuses = []BookingStatus{BookingPending, BookingConfirmed}

// Booking is a reservation of one room for [StartTime, EndTime).
// Money amounts are whole currency units.
type Booking struct {
	ID            string        `json:"id"`
	RoomID        int64         `json:"room_id"`
	StudioID      int64         `json:"studio_id"`
	ClientID      int64         `json:"user_id"`
	StartTime     time.Time     `json:"start_time"`
	EndTime       time.Time     `json:"end_time"`
	TotalPrice    int64         `json:"total_price"`
	DepositAmount int64         `json:"deposit_amount"`
	Status        BookingStatus `json:"status"`
	Notes         string        `json:"notes,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
	CancelledAt   *time.Time    `json:"cancelled_at,omitempty"`

	// Set only together with the cancelled status.
	CancellationReason string `json:"cancellation_reason,omitempty"`
}

// Balance is the amount still owed. It is derived, never stored.
func (b Booking) Balance() int64 {
	return b.TotalPrice - b.DepositAmount
}

func (b Booking) IsActive() bool {
	return b.Status.IsActive()
}
