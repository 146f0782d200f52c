package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"parking-locator/internal/store"
)

type subscribeRequest struct {
	SpotID int64 `json:"spotId" binding:"required,gt=0"`
	UserID int64 `json:"userId" binding:"required,gt=0"`
}

// Subscribe handles POST /api/notifications.
func (h *Handler) Subscribe(c *gin.Context) {
	var req subscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if !h.auth.Allows(c, req.UserID) {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}

	sub, err := h.store.Subscribe(c.Request.Context(), req.UserID, req.SpotID)
	if err != nil {
		h.fail(c, err, "spot not found")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"notificationId": sub.ID})
}

// UnsubscribeByUserAndSpot handles DELETE
// /api/users/:id/notifications/spots/:spotId. Removing a subscription
// that does not exist succeeds.
func (h *Handler) UnsubscribeByUserAndSpot(c *gin.Context) {
	userID, ok := idParam(c, "id", "user ID")
	if !ok {
		return
	}
	spotID, ok := idParam(c, "spotId", "spot ID")
	if !ok {
		return
	}

	err := h.store.UnsubscribeByUserAndSpot(c.Request.Context(), userID, spotID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		h.fail(c, err, "")
		return
	}
	c.Status(http.StatusNoContent)
}

// DeleteNotification handles DELETE /api/notifications/:id. Only the
// owner may remove a subscription.
func (h *Handler) DeleteNotification(c *gin.Context) {
	id, ok := idParam(c, "id", "notification ID")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	sub, err := h.store.GetSubscription(ctx, id)
	if err != nil {
		h.fail(c, err, "notification not found")
		return
	}
	if !h.auth.Allows(c, sub.UserID) {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}

	if err := h.store.DeleteSubscription(ctx, id); err != nil {
		h.fail(c, err, "notification not found")
		return
	}
	c.Status(http.StatusNoContent)
}
