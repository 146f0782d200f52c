package mapscreen

import (
	"fmt"
	"strings"

	"gopkg.in/guregu/null.v4"

	"parking-locator/internal/model"
	"parking-locator/internal/status"
)

// RollbackPolicy decides what happens to an optimistically flipped toggle
// when the backend call behind it fails.
type RollbackPolicy int

const (
	// RevertOnFailure restores the previous flag value.
	RevertOnFailure RollbackPolicy = iota
	// KeepOptimistic leaves the flipped value in place even though the
	// backend may disagree.
	KeepOptimistic
)

func (p RollbackPolicy) String() string {
	if p == KeepOptimistic {
		return "keep"
	}
	return "revert"
}

// ParseRollbackPolicy parses "revert" or "keep".
func ParseRollbackPolicy(s string) (RollbackPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "revert":
		return RevertOnFailure, nil
	case "keep":
		return KeepOptimistic, nil
	default:
		return RevertOnFailure, fmt.Errorf("unknown rollback policy %q", s)
	}
}

// Region is a map viewport.
type Region struct {
	Latitude       float64
	Longitude      float64
	LatitudeDelta  float64
	LongitudeDelta float64
}

// Viewport is the map view the controller re-centres.
type Viewport interface {
	AnimateTo(r Region)
}

// SheetContent is what the detail sheet shows.
type SheetContent struct {
	SpotID   int64
	SpotName string
	Occupied null.Bool
	Detail   model.ParkingSpotDetail
}

// Occupancy returns the tri-state shown in the sheet header.
func (s SheetContent) Occupancy() model.Occupancy {
	return model.OccupancyOf(s.Occupied)
}

// HistoryContent is what the history view shows.
type HistoryContent struct {
	SpotID   int64
	SpotName string
	History  []model.SpotHistoryRecord
}

// State is a snapshot of everything the map screen renders.
type State struct {
	Focused   bool
	Busy      bool
	Spots     []model.ParkingSpot
	UpdatedAt string
	Closest   *model.ParkingSpot

	SheetOpen bool
	Sheet     *SheetContent

	HistoryOpen bool
	History     *HistoryContent

	IsFavourite          bool
	NotificationsEnabled bool

	Status        status.Message
	StatusVisible bool
	ThemeDark     bool
	SignedIn      bool
}
