package backend

import (
	"context"
	"fmt"
	"net/http"

	"parking-locator/internal/model"
)

// FetchUserNotifications lists the user's active spot subscriptions.
func (c *Client) FetchUserNotifications(ctx context.Context, userID int64) ([]model.SpotNotification, error) {
	var out []model.SpotNotification
	path := fmt.Sprintf("/api/users/%d/notifications", userID)
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, fmt.Errorf("fetch notifications of user %d: %w", userID, notFoundAsError(err))
	}
	return out, nil
}

type subscribeRequest struct {
	SpotID int64 `json:"spotId"`
	UserID int64 `json:"userId"`
}

// SubscribeToNotification subscribes userID to "spot is free" notifications for spotID.
func (c *Client) SubscribeToNotification(ctx context.Context, spotID, userID int64) error {
	if err := c.do(ctx, http.MethodPost, "/api/notifications", nil, subscribeRequest{SpotID: spotID, UserID: userID}, nil); err != nil {
		return fmt.Errorf("subscribe user %d to spot %d: %w", userID, spotID, notFoundAsError(err))
	}
	return nil
}

// UnsubscribeByUserAndSpot removes the user's subscription for spotID.
func (c *Client) UnsubscribeByUserAndSpot(ctx context.Context, userID, spotID int64) error {
	path := fmt.Sprintf("/api/users/%d/notifications/spots/%d", userID, spotID)
	if err := c.do(ctx, http.MethodDelete, path, nil, nil, nil); err != nil {
		return fmt.Errorf("unsubscribe user %d from spot %d: %w", userID, spotID, notFoundAsError(err))
	}
	return nil
}

// UnsubscribeByNotificationID removes a subscription by its id.
func (c *Client) UnsubscribeByNotificationID(ctx context.Context, notificationID int64) error {
	path := fmt.Sprintf("/api/notifications/%d", notificationID)
	if err := c.do(ctx, http.MethodDelete, path, nil, nil, nil); err != nil {
		return fmt.Errorf("unsubscribe notification %d: %w", notificationID, notFoundAsError(err))
	}
	return nil
}
