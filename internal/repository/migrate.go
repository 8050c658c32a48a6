package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// Migrate creates the tables this service owns. On PostgreSQL it also adds an
// exclusion constraint so two active bookings of one room can never overlap,
// even if a writer bypasses the service.
func Migrate(ctx context.Context, db *gorm.DB) error {
	db = db.WithContext(ctx)
	if err := db.AutoMigrate(&studioModel{}, &roomModel{}, &bookingModel{}, &studioWorkingHoursModel{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	if db.Dialector.Name() != "postgres" {
		return nil
	}

	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS btree_gist`,
		`DO $$ BEGIN
			IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'bookings_no_overlap') THEN
				ALTER TABLE bookings ADD CONSTRAINT bookings_no_overlap
					EXCLUDE USING gist (room_id WITH =, tstzrange(start_time, end_time, '[)') WITH &&)
					WHERE (status IN ('pending', 'confirmed'));
			END IF;
		END $$`,
	}
	for _, s := range stmts {
		if err := db.Exec(s).Error; err != nil {
			return fmt.Errorf("postgres constraint: %w", err)
		}
	}
	return nil
}
