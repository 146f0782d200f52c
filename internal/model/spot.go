package model

import (
	"time"

	"gopkg.in/guregu/null.v4"
)

// Spot represents a physical parking spot (backend table).
type Spot struct {
	ID         int64     `gorm:"primaryKey"` // Upstream sensor ID
	Name       string    `gorm:"uniqueIndex;size:128;not null"`
	Zone       string    `gorm:"size:64;index"`
	Latitude   float64   `gorm:"not null"`
	Longitude  float64   `gorm:"not null"`
	Occupied   null.Bool `gorm:"type:boolean"`
	StateSince null.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ToParkingSpot converts the table row into the client-facing snapshot.
func (s Spot) ToParkingSpot() ParkingSpot {
	return ParkingSpot{
		ID:        s.ID,
		Name:      s.Name,
		Latitude:  s.Latitude,
		Longitude: s.Longitude,
		Occupied:  s.Occupied,
		UpdatedAt: s.UpdatedAt,
	}
}

// ParkingSpot is an immutable snapshot of a spot delivered by the backend.
type ParkingSpot struct {
	ID        int64     `json:"parkingSpotId"`
	Name      string    `json:"name"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Occupied  null.Bool `json:"occupied"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Occupancy returns the tri-state of the spot.
func (p ParkingSpot) Occupancy() Occupancy {
	return OccupancyOf(p.Occupied)
}

// Coordinate returns the position of the spot.
func (p ParkingSpot) Coordinate() Coordinate {
	return Coordinate{Latitude: p.Latitude, Longitude: p.Longitude}
}

// AllSpots is the response envelope of the spot list.
type AllSpots struct {
	Data      []ParkingSpot `json:"data"`
	UpdatedAt null.Time     `json:"updatedAt"`
}

// ParkingSpotDetail is the per-user detail of a spot.
type ParkingSpotDetail struct {
	Occupied              null.Bool           `json:"occupied"`
	StateSince            null.Time           `json:"stateSince"`
	IsFavourite           bool                `json:"isFavourite"`
	IsNotificationEnabled bool                `json:"isNotificationEnabled"`
	History               []SpotHistoryRecord `json:"history,omitempty"`
}

// Coordinate is a WGS84 position.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}
