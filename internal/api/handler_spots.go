package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gopkg.in/guregu/null.v4"

	"parking-locator/internal/location"
	"parking-locator/internal/model"
)

const (
	defaultHistoryLimit = 100
	maxHistoryLimit     = 1000
)

func toParkingSpots(spots []model.Spot) []model.ParkingSpot {
	out := make([]model.ParkingSpot, len(spots))
	for i, s := range spots {
		out[i] = s.ToParkingSpot()
	}
	return out
}

// ListSpots handles GET /api/spots. updatedAt is the newest spot update,
// null when there are no spots.
func (h *Handler) ListSpots(c *gin.Context) {
	spots, err := h.store.ListSpots(c.Request.Context())
	if err != nil {
		h.fail(c, err, "")
		return
	}

	var updatedAt null.Time
	for _, s := range spots {
		if !updatedAt.Valid || s.UpdatedAt.After(updatedAt.Time) {
			updatedAt = null.TimeFrom(s.UpdatedAt)
		}
	}

	c.JSON(http.StatusOK, model.AllSpots{Data: toParkingSpots(spots), UpdatedAt: updatedAt})
}

// ClosestFreeSpot handles GET /api/spots/closest-free?lat=&lng=.
func (h *Handler) ClosestFreeSpot(c *gin.Context) {
	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	lng, errLng := strconv.ParseFloat(c.Query("lng"), 64)
	if errLat != nil || errLng != nil || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "lat and lng are required coordinates"})
		return
	}

	spots, err := h.store.ListSpots(c.Request.Context())
	if err != nil {
		h.fail(c, err, "")
		return
	}

	closest, ok := location.NearestFree(model.Coordinate{Latitude: lat, Longitude: lng}, toParkingSpots(spots))
	if !ok {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "no free spot"})
		return
	}
	c.JSON(http.StatusOK, closest)
}

// SpotDetail handles GET /api/spots/:id/detail?userId=. userId 0 or
// absent is an anonymous caller whose flags are all false. history=true
// embeds the recent history.
func (h *Handler) SpotDetail(c *gin.Context) {
	spotID, ok := idParam(c, "id", "spot ID")
	if !ok {
		return
	}
	var userID int64
	if raw := c.Query("userId"); raw != "" {
		var err error
		userID, err = strconv.ParseInt(raw, 10, 64)
		if err != nil || userID < 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
			return
		}
	}
	if userID != 0 && !h.auth.Allows(c, userID) {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}

	ctx := c.Request.Context()
	spot, err := h.store.GetSpot(ctx, spotID)
	if err != nil {
		h.fail(c, err, "spot not found")
		return
	}

	detail := model.ParkingSpotDetail{
		Occupied:   spot.Occupied,
		StateSince: spot.StateSince,
	}
	if userID != 0 {
		fav, err := h.store.FavouriteSpot(ctx, userID)
		if err != nil {
			h.fail(c, err, "")
			return
		}
		detail.IsFavourite = fav != nil && fav.ID == spotID

		detail.IsNotificationEnabled, err = h.store.IsSubscribed(ctx, userID, spotID)
		if err != nil {
			h.fail(c, err, "")
			return
		}
	}
	if c.Query("history") == "true" {
		history, err := h.store.SpotHistory(ctx, spotID, defaultHistoryLimit)
		if err != nil {
			h.fail(c, err, "")
			return
		}
		detail.History = toHistoryRecords(history)
	}

	c.JSON(http.StatusOK, detail)
}

func toHistoryRecords(history []model.OccupancyHistory) []model.SpotHistoryRecord {
	out := make([]model.SpotHistoryRecord, len(history))
	for i, rec := range history {
		out[i] = model.SpotHistoryRecord{Occupied: rec.Occupied, Timestamp: rec.ObservedAt}
	}
	return out
}

// SpotHistory handles GET /api/spots/:id/history?limit=, newest first.
func (h *Handler) SpotHistory(c *gin.Context) {
	spotID, ok := idParam(c, "id", "spot ID")
	if !ok {
		return
	}
	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	ctx := c.Request.Context()
	if _, err := h.store.GetSpot(ctx, spotID); err != nil {
		h.fail(c, err, "spot not found")
		return
	}
	history, err := h.store.SpotHistory(ctx, spotID, limit)
	if err != nil {
		h.fail(c, err, "")
		return
	}
	c.JSON(http.StatusOK, toHistoryRecords(history))
}
