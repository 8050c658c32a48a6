// Package events carries booking lifecycle events to other systems
// (RabbitMQ consumers, live calendar subscribers). Publishing happens after
// a booking change is committed; failures are logged and never undo it.
package events

import (
	"context"
	"errors"
	"time"

	"studiobooking/internal/domain"
	"studiobooking/internal/pkg/logger"
)

type Type string

const (
	BookingCreated        Type = "booking.created"
	BookingConfirmed      Type = "booking.confirmed"
	BookingCompleted      Type = "booking.completed"
	BookingCancelled      Type = "booking.cancelled"
	BookingDepositUpdated Type = "booking.deposit_updated"
)

type BookingEvent struct {
	Type       Type      `json:"type"`
	BookingID  string    `json:"booking_id"`
	RoomID     int64     `json:"room_id"`
	StudioID   int64     `json:"studio_id"`
	ClientID   int64     `json:"user_id"`
	Status     string    `json:"status"`
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
	TotalPrice int64     `json:"total_price"`
	Deposit    int64     `json:"deposit_amount"`
	Balance    int64     `json:"balance"`
	Reason     string    `json:"reason,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

func NewBookingEvent(t Type, b domain.Booking, at time.Time) BookingEvent {
	return BookingEvent{
		Type:       t,
		BookingID:  b.ID,
		RoomID:     b.RoomID,
		StudioID:   b.StudioID,
		ClientID:   b.ClientID,
		Status:     string(b.Status),
		StartTime:  b.StartTime,
		EndTime:    b.EndTime,
		TotalPrice: b.TotalPrice,
		Deposit:    b.DepositAmount,
		Balance:    b.Balance(),
		Reason:     b.CancellationReason,
		OccurredAt: at,
	}
}

// PublicBookingEvent is what a room's calendar may show to anyone: which
// slot changed and how, without the client or the money.
type PublicBookingEvent struct {
	Type       Type      `json:"type"`
	BookingID  string    `json:"booking_id"`
	RoomID     int64     `json:"room_id"`
	Status     string    `json:"status"`
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
	OccurredAt time.Time `json:"occurred_at"`
}

func (e BookingEvent) Public() PublicBookingEvent {
	return PublicBookingEvent{
		Type:       e.Type,
		BookingID:  e.BookingID,
		RoomID:     e.RoomID,
		Status:     e.Status,
		StartTime:  e.StartTime,
		EndTime:    e.EndTime,
		OccurredAt: e.OccurredAt,
	}
}

type Publisher interface {
	Publish(ctx context.Context, e BookingEvent) error
}

// LogPublisher only logs events. Used when no broker is configured.
type LogPublisher struct{}

func (LogPublisher) Publish(ctx context.Context, e BookingEvent) error {
	logger.LogInfo(ctx, "Booking event", "type", e.Type, "booking_id", e.BookingID, "room_id", e.RoomID)
	return nil
}

// Fanout delivers every event to all publishers and joins their errors.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, e BookingEvent) error {
	var errs []error
	for _, p := range f {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
