package domain

import (
	"time"
)

// Geofence represents a named circular region. Only the stored numeric
// fields are modeled; containment math is out of scope.
type Geofence struct {
	ID          string     `json:"id" db:"id"`
	Name        string     `json:"name" db:"name"`
	Description string     `json:"description" db:"description"`
	OwnerID     string     `json:"owner_id" db:"owner_id"`
	Latitude    float64    `json:"latitude" db:"latitude"`
	Longitude   float64    `json:"longitude" db:"longitude"`
	RadiusM     float64    `json:"radius_m" db:"radius_m"`
	// HysteresisM is the width of the enter/exit hysteresis band in
	// meters. Stored and served only.
	HysteresisM float64    `json:"hysteresis_m" db:"hysteresis_m"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

const maxFenceNameLength = 128

// Validate checks the geofence invariants at the write boundary.
func (g *Geofence) Validate() error {
	if g.Name == "" {
		return ErrFenceNameRequired
	}
	if len(g.Name) > maxFenceNameLength {
		return ErrFenceNameTooLong
	}
	if g.RadiusM <= 0 {
		return ErrInvalidRadius
	}
	if g.HysteresisM < 0 || g.HysteresisM >= g.RadiusM {
		return ErrInvalidHysteresis
	}
	if g.Latitude < -90 || g.Latitude > 90 {
		return ErrInvalidLatitude
	}
	if g.Longitude < -180 || g.Longitude > 180 {
		return ErrInvalidLongitude
	}
	return nil
}

// Deleted reports whether the fence is soft-deleted.
func (g *Geofence) Deleted() bool {
	return g.DeletedAt != nil
}
