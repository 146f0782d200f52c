package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"parking-locator/internal/model"
)

type putPushSubscriptionRequest struct {
	Endpoint string `json:"endpoint" binding:"required,url"`
	P256DH   string `json:"p256dh" binding:"required"`
	Auth     string `json:"auth" binding:"required"`
}

// PutPushSubscription handles PUT /api/users/:id/push-subscription, the
// browser endpoint "spot is free" pushes are delivered to.
func (h *Handler) PutPushSubscription(c *gin.Context) {
	userID, ok := idParam(c, "id", "user ID")
	if !ok {
		return
	}
	var req putPushSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	ctx := c.Request.Context()
	if _, err := h.store.EnsureUser(ctx, userID); err != nil {
		h.fail(c, err, "")
		return
	}
	err := h.store.SavePushSubscription(ctx, model.PushSubscription{
		Endpoint:  req.Endpoint,
		UserID:    userID,
		P256DH:    req.P256DH,
		Auth:      req.Auth,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		h.fail(c, err, "")
		return
	}
	c.Status(http.StatusCreated)
}

// GetVAPIDPublicKey returns the VAPID public key to the client.
func (h *Handler) GetVAPIDPublicKey(c *gin.Context) {
	if h.webpush == nil || h.webpush.VAPIDPublicKey == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "vapid keys are not configured"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"public_key": h.webpush.VAPIDPublicKey})
}
