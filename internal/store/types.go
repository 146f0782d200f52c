package store

import (
	"errors"

	"gopkg.in/guregu/null.v4"
)

// ErrNotFound is returned when a looked up row does not exist.
var ErrNotFound = errors.New("record not found")

// GatewayItem is a single sensor record from the occupancy gateway.
type GatewayItem struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
	// State is nil when the sensor did not report.
	State *int `json:"state"`
}

// SpotStateType is the classified state of a raw sensor value.
type SpotStateType string

const (
	StateTypeFree     SpotStateType = "free"
	StateTypeOccupied SpotStateType = "occupied"
	StateTypeUnknown  SpotStateType = "unknown"
)

// Occupied converts the state type into the nullable wire form.
func (t SpotStateType) Occupied() null.Bool {
	switch t {
	case StateTypeFree:
		return null.BoolFrom(false)
	case StateTypeOccupied:
		return null.BoolFrom(true)
	default:
		return null.Bool{}
	}
}

// Classifier maps a raw sensor state to a SpotStateType.
type Classifier func(state *int) SpotStateType

// Changes is the outcome of an occupancy update.
type Changes struct {
	// Changed lists every spot whose occupancy moved.
	Changed []int64
	// Freed lists the spots that went from occupied to free.
	Freed []int64
}

// Empty reports whether nothing changed.
func (c Changes) Empty() bool {
	return len(c.Changed) == 0
}
