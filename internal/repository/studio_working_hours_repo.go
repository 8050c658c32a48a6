package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"studiobooking/internal/domain"
)

type studioWorkingHoursModel struct {
	ID       int64               `gorm:"column:id;primaryKey"`
	StudioID int64               `gorm:"column:studio_id;uniqueIndex;not null"`
	Hours    []domain.WorkingDay `gorm:"column:hours;serializer:json"`
}

func (studioWorkingHoursModel) TableName() string { return "studio_working_hours" }

// StudioWorkingHoursRepository stores one weekly schedule per studio.
type StudioWorkingHoursRepository struct {
	db *gorm.DB
}

func NewStudioWorkingHoursRepository(db *gorm.DB) *StudioWorkingHoursRepository {
	return &StudioWorkingHoursRepository{db: db}
}

// WorkingDay implements booking.WorkingHoursProvider.
func (r *StudioWorkingHoursRepository) WorkingDay(ctx context.Context, studioID int64, day time.Weekday) (domain.WorkingDay, error) {
	var m studioWorkingHoursModel
	err := r.db.WithContext(ctx).Where("studio_id = ?", studioID).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.DefaultWorkingDay(int(day)), nil
		}
		return domain.WorkingDay{}, err
	}

	for _, h := range m.Hours {
		if h.DayOfWeek == int(day) {
			return h, nil
		}
	}
	// a stored schedule without this day means the studio is closed
	return domain.WorkingDay{DayOfWeek: int(day), IsClosed: true}, nil
}

// Save replaces the studio's schedule.
func (r *StudioWorkingHoursRepository) Save(ctx context.Context, studioID int64, hours []domain.WorkingDay) error {
	m := studioWorkingHoursModel{StudioID: studioID, Hours: hours}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "studio_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"hours"}),
		}).
		Create(&m).Error
}
