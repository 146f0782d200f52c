package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"parking-locator/internal/model"
)

// FetchAllSpots returns every spot and the time the data was current.
func (c *Client) FetchAllSpots(ctx context.Context) (model.AllSpots, error) {
	var out model.AllSpots
	if err := c.do(ctx, http.MethodGet, "/api/spots", nil, nil, &out); err != nil {
		return model.AllSpots{}, fmt.Errorf("fetch all spots: %w", notFoundAsError(err))
	}
	return out, nil
}

// FetchClosestFreeSpot returns the free spot nearest to the given point,
// or nil when there is none.
func (c *Client) FetchClosestFreeSpot(ctx context.Context, lat, lng float64) (*model.ParkingSpot, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lng", strconv.FormatFloat(lng, 'f', -1, 64))

	var out model.ParkingSpot
	err := c.do(ctx, http.MethodGet, "/api/spots/closest-free", q, nil, &out)
	if errors.Is(err, errNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetch closest free spot: %w", err)
	}
	return &out, nil
}

// FetchSpotDetail returns the detail of spotID as seen by userID.
func (c *Client) FetchSpotDetail(ctx context.Context, userID, spotID int64) (model.ParkingSpotDetail, error) {
	q := url.Values{}
	q.Set("userId", strconv.FormatInt(userID, 10))

	var out model.ParkingSpotDetail
	path := fmt.Sprintf("/api/spots/%d/detail", spotID)
	if err := c.do(ctx, http.MethodGet, path, q, nil, &out); err != nil {
		return model.ParkingSpotDetail{}, fmt.Errorf("fetch spot %d detail: %w", spotID, notFoundAsError(err))
	}
	return out, nil
}

// FetchSpotHistory returns the occupancy history of spotID, newest first.
func (c *Client) FetchSpotHistory(ctx context.Context, spotID int64) ([]model.SpotHistoryRecord, error) {
	var out []model.SpotHistoryRecord
	path := fmt.Sprintf("/api/spots/%d/history", spotID)
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, fmt.Errorf("fetch spot %d history: %w", spotID, notFoundAsError(err))
	}
	return out, nil
}

// notFoundAsError turns the internal sentinel into a StatusError for calls
// where a 404 is a real failure.
func notFoundAsError(err error) error {
	if errors.Is(err, errNotFound) {
		return &StatusError{StatusCode: http.StatusNotFound}
	}
	return err
}
