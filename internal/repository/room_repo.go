package repository

import (
	"context"
	"errors"
	"math"
	"time"

	"gorm.io/gorm"

	"studiobooking/internal/domain"
	"studiobooking/internal/modules/booking"
)

// RoomRepository reads the catalog's rooms table.
type RoomRepository struct {
	db *gorm.DB
}

func NewRoomRepository(db *gorm.DB) *RoomRepository {
	return &RoomRepository{db: db}
}

type roomModel struct {
	ID              int64     `gorm:"column:id;primaryKey"`
	StudioID        int64     `gorm:"column:studio_id;not null;index"`
	Name            string    `gorm:"column:name;not null"`
	PricePerHourMin float64   `gorm:"column:price_per_hour_min;not null"`
	IsActive        bool      `gorm:"column:is_active;not null"`
	CreatedAt       time.Time `gorm:"column:created_at"`
	UpdatedAt       time.Time `gorm:"column:updated_at"`
}

func (roomModel) TableName() string { return "rooms" }

type studioModel struct {
	ID        int64     `gorm:"column:id;primaryKey"`
	OwnerID   int64     `gorm:"column:owner_id;not null;index"`
	Name      string    `gorm:"column:name;not null"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (studioModel) TableName() string { return "studios" }

// GetRoom implements booking.RoomCatalog. Rates are rounded to whole units.
func (r *RoomRepository) GetRoom(ctx context.Context, roomID int64) (*booking.RoomInfo, error) {
	var m roomModel
	err := r.db.WithContext(ctx).
		Where("id = ? AND is_active = ?", roomID, true).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, booking.ErrRoomNotFound
		}
		return nil, err
	}
	return &booking.RoomInfo{
		ID:         m.ID,
		StudioID:   m.StudioID,
		HourlyRate: int64(math.Round(m.PricePerHourMin)),
	}, nil
}

// StudioOwner implements booking.RoomCatalog.
func (r *RoomRepository) StudioOwner(ctx context.Context, studioID int64) (int64, error) {
	var m studioModel
	err := r.db.WithContext(ctx).
		Select("id", "owner_id").
		Where("id = ?", studioID).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return m.OwnerID, nil
}

// CreateStudio is used by the seed tool and tests.
func (r *RoomRepository) CreateStudio(ctx context.Context, studio *domain.Studio) error {
	m := studioModel{ID: studio.ID, OwnerID: studio.OwnerID, Name: studio.Name}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return err
	}
	studio.ID = m.ID
	studio.CreatedAt = m.CreatedAt
	studio.UpdatedAt = m.UpdatedAt
	return nil
}

// Create is used by the seed tool; catalog management lives elsewhere.
func (r *RoomRepository) Create(ctx context.Context, room *domain.Room) error {
	m := roomModel{
		ID:              room.ID,
		StudioID:        room.StudioID,
		Name:            room.Name,
		PricePerHourMin: room.PricePerHourMin,
		IsActive:        room.IsActive,
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return err
	}
	room.ID = m.ID
	room.CreatedAt = m.CreatedAt
	room.UpdatedAt = m.UpdatedAt
	return nil
}
