package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"gopkg.in/guregu/null.v4"

	"parking-locator/internal/model"
)

// FetchUserFavouriteSpot returns the user's favourite spot, or nil when
// none is configured.
func (c *Client) FetchUserFavouriteSpot(ctx context.Context, userID int64) (*model.ParkingSpot, error) {
	var out model.ParkingSpot
	path := fmt.Sprintf("/api/users/%d/favourite-spot", userID)
	err := c.do(ctx, http.MethodGet, path, nil, nil, &out)
	if errors.Is(err, errNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetch favourite spot of user %d: %w", userID, err)
	}
	return &out, nil
}

type updateFavouriteRequest struct {
	SpotID null.Int `json:"spotId"`
}

// UpdateFavouriteSpot sets the user's favourite spot. An invalid spotID
// clears it.
func (c *Client) UpdateFavouriteSpot(ctx context.Context, userID int64, spotID null.Int) (model.FavouriteResult, error) {
	var out model.FavouriteResult
	path := fmt.Sprintf("/api/users/%d/favourite-spot", userID)
	if err := c.do(ctx, http.MethodPut, path, nil, updateFavouriteRequest{SpotID: spotID}, &out); err != nil {
		return model.FavouriteResult{}, fmt.Errorf("update favourite spot of user %d: %w", userID, notFoundAsError(err))
	}
	return out, nil
}

type resendPasswordRequest struct {
	Email string `json:"email"`
}

// ResendPassword asks the backend to send a new password to email.
func (c *Client) ResendPassword(ctx context.Context, email string) error {
	if err := c.do(ctx, http.MethodPost, "/api/auth/resend-password", nil, resendPasswordRequest{Email: email}, nil); err != nil {
		return fmt.Errorf("resend password: %w", notFoundAsError(err))
	}
	return nil
}

type tokenRequest struct {
	UserID int64 `json:"userId"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

// RequestToken obtains a bearer token for userID.
func (c *Client) RequestToken(ctx context.Context, userID int64) (string, error) {
	var out tokenResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/token", nil, tokenRequest{UserID: userID}, &out); err != nil {
		return "", fmt.Errorf("request token for user %d: %w", userID, notFoundAsError(err))
	}
	return out.Token, nil
}
