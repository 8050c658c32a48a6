package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"studiobooking/internal/domain"
	"studiobooking/internal/modules/booking"
)

// postgres SQLSTATE for exclusion_violation
const pgExclusionViolation = "23P01"

type BookingRepository struct {
	db *gorm.DB
}

func NewBookingRepository(db *gorm.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

type bookingModel struct {
	ID                 string     `gorm:"column:id;primaryKey;type:varchar(36)"`
	RoomID             int64      `gorm:"column:room_id;not null;index:idx_bookings_room_start,priority:1"`
	StudioID           int64      `gorm:"column:studio_id;not null;index"`
	UserID             int64      `gorm:"column:user_id;not null;index"`
	StartTime          time.Time  `gorm:"column:start_time;not null;index:idx_bookings_room_start,priority:2"`
	EndTime            time.Time  `gorm:"column:end_time;not null"`
	TotalPrice         int64      `gorm:"column:total_price;not null"`
	DepositAmount      int64      `gorm:"column:deposit_amount;not null;check:deposit_amount >= 0 AND deposit_amount <= total_price"`
	Status             string     `gorm:"column:status;type:varchar(20);not null;index"`
	Notes              *string    `gorm:"column:notes;type:text"`
	CancellationReason *string    `gorm:"column:cancellation_reason;type:text"`
	CancelledAt        *time.Time `gorm:"column:cancelled_at"`
	CreatedAt          time.Time  `gorm:"column:created_at;autoCreateTime:false"`
	UpdatedAt          time.Time  `gorm:"column:updated_at;autoUpdateTime:false"`
}

func (bookingModel) TableName() string { return "bookings" }

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func toDomainBooking(m bookingModel) *domain.Booking {
	b := &domain.Booking{
		ID:                 m.ID,
		RoomID:             m.RoomID,
		StudioID:           m.StudioID,
		ClientID:           m.UserID,
		StartTime:          m.StartTime.UTC(),
		EndTime:            m.EndTime.UTC(),
		TotalPrice:         m.TotalPrice,
		DepositAmount:      m.DepositAmount,
		Status:             domain.BookingStatus(m.Status),
		Notes:              deref(m.Notes),
		CancellationReason: deref(m.CancellationReason),
		CreatedAt:          m.CreatedAt.UTC(),
		UpdatedAt:          m.UpdatedAt.UTC(),
	}
	if m.CancelledAt != nil {
		t := m.CancelledAt.UTC()
		b.CancelledAt = &t
	}
	return b
}

func toBookingModel(b *domain.Booking) bookingModel {
	return bookingModel{
		ID:                 b.ID,
		RoomID:             b.RoomID,
		StudioID:           b.StudioID,
		UserID:             b.ClientID,
		StartTime:          b.StartTime.UTC(),
		EndTime:            b.EndTime.UTC(),
		TotalPrice:         b.TotalPrice,
		DepositAmount:      b.DepositAmount,
		Status:             string(b.Status),
		Notes:              optional(b.Notes),
		CancellationReason: optional(b.CancellationReason),
		CancelledAt:        b.CancelledAt,
		CreatedAt:          b.CreatedAt.UTC(),
		UpdatedAt:          b.UpdatedAt.UTC(),
	}
}

func toDomainBookings(rows []bookingModel) []domain.Booking {
	out := make([]domain.Booking, 0, len(rows))
	for _, m := range rows {
		out = append(out, *toDomainBooking(m))
	}
	return out
}

func activeStatuses() []string {
	out := make([]string, 0, len(domain.ActiveBookingStatuses))
	for _, s := range domain.ActiveBookingStatuses {
		out = append(out, string(s))
	}
	return out
}

func (r *BookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	var m bookingModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, booking.ErrNotFound
		}
		return nil, err
	}
	return toDomainBooking(m), nil
}

// Save inserts the booking or overwrites every column of an existing row.
func (r *BookingRepository) Save(ctx context.Context, b *domain.Booking) error {
	m := toBookingModel(b)
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(&m).Error
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgExclusionViolation {
			return &booking.ConflictError{RoomID: b.RoomID, Start: b.StartTime, End: b.EndTime}
		}
		return err
	}
	return nil
}

// ListActiveOverlapping returns pending/confirmed bookings of a room that
// overlap [from, to), ordered by start.
func (r *BookingRepository) ListActiveOverlapping(ctx context.Context, roomID int64, from, to time.Time) ([]domain.Booking, error) {
	var rows []bookingModel
	err := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Where("status IN ?", activeStatuses()).
		Where("start_time < ? AND end_time > ?", to.UTC(), from.UTC()).
		Order("start_time").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return toDomainBookings(rows), nil
}

func (r *BookingRepository) ActiveRoomIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).
		Model(&bookingModel{}).
		Where("status IN ?", activeStatuses()).
		Distinct().
		Order("room_id").
		Pluck("room_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *BookingRepository) ListByClient(ctx context.Context, clientID int64, limit, offset int) ([]domain.Booking, error) {
	var rows []bookingModel
	err := r.db.WithContext(ctx).
		Where("user_id = ?", clientID).
		Order("start_time DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return toDomainBookings(rows), nil
}

func (r *BookingRepository) ListByStudio(ctx context.Context, studioID int64, limit, offset int) ([]domain.Booking, error) {
	var rows []bookingModel
	err := r.db.WithContext(ctx).
		Where("studio_id = ?", studioID).
		Order("start_time").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return toDomainBookings(rows), nil
}

func (r *BookingRepository) ListConfirmedEndedBefore(ctx context.Context, before time.Time, limit int) ([]domain.Booking, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []bookingModel
	err := r.db.WithContext(ctx).
		Where("status = ?", string(domain.BookingConfirmed)).
		Where("end_time <= ?", before.UTC()).
		Order("end_time").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return toDomainBookings(rows), nil
}
