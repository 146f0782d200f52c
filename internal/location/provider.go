// Package location provides device position and distance helpers.
package location

import (
	"context"
	"errors"

	"parking-locator/internal/model"
)

// ErrPositionUnavailable is returned when no position can be determined.
var ErrPositionUnavailable = errors.New("position unavailable")

// Provider is the device location service.
type Provider interface {
	RequestPermission(ctx context.Context) (bool, error)
	CurrentPosition(ctx context.Context) (model.Coordinate, error)
}

// Static is a Provider with a fixed position, used by the terminal client
// where the "device" position comes from configuration.
type Static struct {
	Granted  bool
	Position *model.Coordinate
}

// RequestPermission reports the configured grant.
func (s *Static) RequestPermission(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return s.Granted, nil
}

// CurrentPosition returns the configured position.
func (s *Static) CurrentPosition(ctx context.Context) (model.Coordinate, error) {
	if err := ctx.Err(); err != nil {
		return model.Coordinate{}, err
	}
	if s.Position == nil {
		return model.Coordinate{}, ErrPositionUnavailable
	}
	return *s.Position, nil
}
