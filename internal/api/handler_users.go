package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gopkg.in/guregu/null.v4"

	"parking-locator/internal/model"
	"parking-locator/internal/store"
)

// GetFavouriteSpot handles GET /api/users/:id/favourite-spot.
func (h *Handler) GetFavouriteSpot(c *gin.Context) {
	userID, ok := idParam(c, "id", "user ID")
	if !ok {
		return
	}

	spot, err := h.store.FavouriteSpot(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, err, "")
		return
	}
	if spot == nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "no favourite spot"})
		return
	}
	c.JSON(http.StatusOK, spot.ToParkingSpot())
}

type putFavouriteRequest struct {
	SpotID null.Int `json:"spotId"`
}

// PutFavouriteSpot handles PUT /api/users/:id/favourite-spot. A null
// spotId clears the favourite. An unknown spot is reported in the result,
// not as an HTTP error.
func (h *Handler) PutFavouriteSpot(c *gin.Context) {
	userID, ok := idParam(c, "id", "user ID")
	if !ok {
		return
	}
	var req putFavouriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	err := h.store.SetFavouriteSpot(c.Request.Context(), userID, req.SpotID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusOK, model.FavouriteResult{Success: false, Message: h.t(c, "favourite.notFound")})
	case err != nil:
		h.fail(c, err, "")
	case req.SpotID.Valid:
		c.JSON(http.StatusOK, model.FavouriteResult{Success: true, Message: h.t(c, "favourite.set")})
	default:
		c.JSON(http.StatusOK, model.FavouriteResult{Success: true, Message: h.t(c, "favourite.cleared")})
	}
}

// ListNotifications handles GET /api/users/:id/notifications.
func (h *Handler) ListNotifications(c *gin.Context) {
	userID, ok := idParam(c, "id", "user ID")
	if !ok {
		return
	}

	subs, err := h.store.UserSubscriptions(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, err, "")
		return
	}

	out := make([]model.SpotNotification, len(subs))
	for i, sub := range subs {
		out[i] = model.SpotNotification{ID: sub.ID, SpotName: sub.Spot.Name}
	}
	c.JSON(http.StatusOK, out)
}
