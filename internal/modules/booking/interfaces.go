package booking

import (
	"context"
	"time"

	"studiobooking/internal/domain"
	"studiobooking/internal/events"
)

// BookingRepository persists bookings. GetByID returns ErrNotFound for unknown
// ids; Save inserts or overwrites the whole record.
type BookingRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Booking, error)
	Save(ctx context.Context, b *domain.Booking) error
	ListActiveOverlapping(ctx context.Context, roomID int64, from, to time.Time) ([]domain.Booking, error)
	ActiveRoomIDs(ctx context.Context) ([]int64, error)
	ListByClient(ctx context.Context, clientID int64, limit, offset int) ([]domain.Booking, error)
	ListByStudio(ctx context.Context, studioID int64, limit, offset int) ([]domain.Booking, error)
	ListConfirmedEndedBefore(ctx context.Context, before time.Time, limit int) ([]domain.Booking, error)
}

type RoomInfo struct {
	ID         int64
	StudioID   int64
	HourlyRate int64
}

// RoomCatalog resolves a room's owning studio and hourly rate.
// Unknown or inactive rooms yield ErrRoomNotFound.
type RoomCatalog interface {
	GetRoom(ctx context.Context, roomID int64) (*RoomInfo, error)
	// StudioOwner returns the user running studioID, 0 for unknown studios.
	StudioOwner(ctx context.Context, studioID int64) (int64, error)
}

type SettingsProvider interface {
	CancellationWindowHours() int
}

type EventPublisher interface {
	Publish(ctx context.Context, e events.BookingEvent) error
}

// WorkingHoursProvider returns a studio's schedule for one weekday. Studios
// without a schedule get domain.DefaultWorkingDay.
type WorkingHoursProvider interface {
	WorkingDay(ctx context.Context, studioID int64, day time.Weekday) (domain.WorkingDay, error)
}
