package model

import (
	"time"

	"gopkg.in/guregu/null.v4"
)

// Occupancy is the tri-state of a parking spot. On the wire it travels as a
// nullable boolean: true occupied, false free, null unknown.
type Occupancy int

const (
	OccupancyUnknown Occupancy = iota
	OccupancyFree
	OccupancyOccupied
)

// OccupancyOf converts the wire representation into an Occupancy.
func OccupancyOf(b null.Bool) Occupancy {
	if !b.Valid {
		return OccupancyUnknown
	}
	if b.Bool {
		return OccupancyOccupied
	}
	return OccupancyFree
}

// Null converts the occupancy back into its wire representation.
func (o Occupancy) Null() null.Bool {
	switch o {
	case OccupancyOccupied:
		return null.BoolFrom(true)
	case OccupancyFree:
		return null.BoolFrom(false)
	default:
		return null.Bool{}
	}
}

func (o Occupancy) String() string {
	switch o {
	case OccupancyOccupied:
		return "occupied"
	case OccupancyFree:
		return "free"
	default:
		return "unknown"
	}
}

// OccupancyHistory is one archived occupancy observation of a spot.
type OccupancyHistory struct {
	ID         int64     `gorm:"primaryKey;autoIncrement"`
	SpotID     int64     `gorm:"not null;index"`
	Occupied   null.Bool `gorm:"type:boolean"`
	ObservedAt time.Time `gorm:"not null;index"`
}

// SpotHistoryRecord is a history entry as delivered to clients.
type SpotHistoryRecord struct {
	Occupied  null.Bool `json:"occupied"`
	Timestamp time.Time `json:"timestamp"`
}

// Occupancy returns the tri-state of the record.
func (r SpotHistoryRecord) Occupancy() Occupancy {
	return OccupancyOf(r.Occupied)
}
