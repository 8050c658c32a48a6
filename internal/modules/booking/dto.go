package booking

import (
	"time"

	"studiobooking/internal/domain"
	"studiobooking/internal/pkg/timewindow"
)

type CreateBookingRequest struct {
	RoomID        int64     `json:"room_id" binding:"required" validate:"required,gt=0"`
	ClientID      int64     `json:"-" validate:"required,gt=0"`
	StartTime     time.Time `json:"start_time" binding:"required" validate:"required"`
	EndTime       time.Time `json:"end_time" binding:"required" validate:"required"`
	DepositAmount int64     `json:"deposit_amount" validate:"gte=0"`
	Notes         string    `json:"notes" validate:"max=2000"`
}

type CancelBookingRequest struct {
	Reason string `json:"reason" binding:"required"`
}

type UpdateDepositRequest struct {
	DepositAmount *int64 `json:"deposit_amount" binding:"required"`
}

type BookingResponse struct {
	ID                 string     `json:"id"`
	RoomID             int64      `json:"room_id"`
	StudioID           int64      `json:"studio_id"`
	UserID             int64      `json:"user_id"`
	StartTime          time.Time  `json:"start_time"`
	EndTime            time.Time  `json:"end_time"`
	Status             string     `json:"status"`
	TotalPrice         int64      `json:"total_price"`
	DepositAmount      int64      `json:"deposit_amount"`
	Balance            int64      `json:"balance"`
	Notes              string     `json:"notes,omitempty"`
	CancellationReason string     `json:"cancellation_reason,omitempty"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

func toBookingResponse(b *domain.Booking) BookingResponse {
	return BookingResponse{
		ID:                 b.ID,
		RoomID:             b.RoomID,
		StudioID:           b.StudioID,
		UserID:             b.ClientID,
		StartTime:          b.StartTime,
		EndTime:            b.EndTime,
		Status:             string(b.Status),
		TotalPrice:         b.TotalPrice,
		DepositAmount:      b.DepositAmount,
		Balance:            b.Balance(),
		Notes:              b.Notes,
		CancellationReason: b.CancellationReason,
		CancelledAt:        b.CancelledAt,
		CreatedAt:          b.CreatedAt,
		UpdatedAt:          b.UpdatedAt,
	}
}

func toBookingResponses(list []domain.Booking) []BookingResponse {
	out := make([]BookingResponse, 0, len(list))
	for i := range list {
		out = append(out, toBookingResponse(&list[i]))
	}
	return out
}

type WorkingHours struct {
	Open  string `json:"open"`
	Close string `json:"close"`
}

type AvailabilityResponse struct {
	RoomID       int64               `json:"room_id"`
	Date         string              `json:"date"`
	Closed       bool                `json:"closed"`
	WorkingHours WorkingHours        `json:"working_hours"`
	BookedSlots  []Interval          `json:"booked_slots"`
	FreeSlots    []timewindow.Window `json:"free_slots"`
}
