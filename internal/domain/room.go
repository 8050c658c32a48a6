package domain

import "time"

// Studio is the catalog's owner record. OwnerID is the user running it.
type Studio struct {
	ID        int64     `json:"id"`
	OwnerID   int64     `json:"owner_id"`
	Name      string    `json:"name" validate:"required"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Room is the catalog's read model as seen by the booking engine.
// Catalog management lives elsewhere; this repo only reads rates from it.
type Room struct {
	ID              int64     `json:"id"`
	StudioID        int64     `json:"studio_id"`
	Name            string    `json:"name" validate:"required"`
	PricePerHourMin float64   `json:"price_per_hour_min" validate:"gte=0"`
	IsActive        bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
