package store

import (
	"context"
	"errors"
	"fmt"

	"gopkg.in/guregu/null.v4"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"parking-locator/internal/model"
)

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// ListSpots returns every spot ordered by name.
func (s *gormStore) ListSpots(ctx context.Context) ([]model.Spot, error) {
	var spots []model.Spot
	if err := s.db.WithContext(ctx).Order("name").Find(&spots).Error; err != nil {
		return nil, fmt.Errorf("failed to list spots: %w", err)
	}
	return spots, nil
}

// GetSpot returns the spot with id or ErrNotFound.
func (s *gormStore) GetSpot(ctx context.Context, id int64) (model.Spot, error) {
	var spot model.Spot
	if err := s.db.WithContext(ctx).First(&spot, id).Error; err != nil {
		return model.Spot{}, notFound(err)
	}
	return spot, nil
}

// SpotHistory returns the newest limit transitions of a spot, newest first.
func (s *gormStore) SpotHistory(ctx context.Context, spotID int64, limit int) ([]model.OccupancyHistory, error) {
	var history []model.OccupancyHistory
	q := s.db.WithContext(ctx).Where("spot_id = ?", spotID).Order("observed_at DESC").Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&history).Error; err != nil {
		return nil, fmt.Errorf("failed to load history of spot %d: %w", spotID, err)
	}
	return history, nil
}

// EnsureUser returns the user with id, creating it on first use.
func (s *gormStore) EnsureUser(ctx context.Context, id int64) (model.User, error) {
	user := model.User{ID: id}
	if err := s.db.WithContext(ctx).Where(model.User{ID: id}).FirstOrCreate(&user).Error; err != nil {
		return model.User{}, fmt.Errorf("failed to load user %d: %w", id, err)
	}
	return user, nil
}

// FavouriteSpot returns the user's favourite spot or nil when none is set.
func (s *gormStore) FavouriteSpot(ctx context.Context, userID int64) (*model.Spot, error) {
	var user model.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load user %d: %w", userID, err)
	}
	if !user.FavouriteSpotID.Valid {
		return nil, nil
	}

	spot, err := s.GetSpot(ctx, user.FavouriteSpotID.Int64)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &spot, nil
}

// SetFavouriteSpot sets or, with an invalid spotID, clears the user's
// favourite. Setting a spot that does not exist returns ErrNotFound.
func (s *gormStore) SetFavouriteSpot(ctx context.Context, userID int64, spotID null.Int) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if spotID.Valid {
			var count int64
			if err := tx.Model(&model.Spot{}).Where("id = ?", spotID.Int64).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return ErrNotFound
			}
		}

		user := model.User{ID: userID}
		if err := tx.Where(model.User{ID: userID}).FirstOrCreate(&user).Error; err != nil {
			return err
		}
		return tx.Model(&user).Update("favourite_spot_id", spotID).Error
	})
}

// IsSubscribed reports whether the user has notifications on for the spot.
func (s *gormStore) IsSubscribed(ctx context.Context, userID, spotID int64) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&model.Subscription{}).
		Where("user_id = ? AND spot_id = ?", userID, spotID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check subscription: %w", err)
	}
	return count > 0, nil
}

// Subscribe turns notifications on for the spot. Subscribing twice is not
// an error. An unknown spot returns ErrNotFound.
func (s *gormStore) Subscribe(ctx context.Context, userID, spotID int64) (model.Subscription, error) {
	if _, err := s.GetSpot(ctx, spotID); err != nil {
		return model.Subscription{}, err
	}

	sub := model.Subscription{UserID: userID, SpotID: spotID}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where(model.User{ID: userID}).FirstOrCreate(&model.User{ID: userID}).Error; err != nil {
			return err
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Omit("Spot").Create(&sub).Error; err != nil {
			return err
		}
		return tx.Where("user_id = ? AND spot_id = ?", userID, spotID).First(&sub).Error
	})
	if err != nil {
		return model.Subscription{}, fmt.Errorf("failed to subscribe user %d to spot %d: %w", userID, spotID, err)
	}
	return sub, nil
}

// UnsubscribeByUserAndSpot turns notifications off for the spot.
func (s *gormStore) UnsubscribeByUserAndSpot(ctx context.Context, userID, spotID int64) error {
	res := s.db.WithContext(ctx).Where("user_id = ? AND spot_id = ?", userID, spotID).Delete(&model.Subscription{})
	if res.Error != nil {
		return fmt.Errorf("failed to unsubscribe user %d from spot %d: %w", userID, spotID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetSubscription returns the subscription with id or ErrNotFound.
func (s *gormStore) GetSubscription(ctx context.Context, id int64) (model.Subscription, error) {
	var sub model.Subscription
	if err := s.db.WithContext(ctx).First(&sub, id).Error; err != nil {
		return model.Subscription{}, notFound(err)
	}
	return sub, nil
}

// DeleteSubscription removes the subscription with id.
func (s *gormStore) DeleteSubscription(ctx context.Context, id int64) error {
	res := s.db.WithContext(ctx).Delete(&model.Subscription{}, id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete subscription %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// UserSubscriptions lists the user's subscriptions with their spots.
func (s *gormStore) UserSubscriptions(ctx context.Context, userID int64) ([]model.Subscription, error) {
	var subs []model.Subscription
	if err := s.db.WithContext(ctx).Preload("Spot").Where("user_id = ?", userID).Order("id").Find(&subs).Error; err != nil {
		return nil, fmt.Errorf("failed to list subscriptions of user %d: %w", userID, err)
	}
	return subs, nil
}

// SavePushSubscription stores or re-keys a browser push endpoint.
func (s *gormStore) SavePushSubscription(ctx context.Context, sub model.PushSubscription) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{"user_id", "p256dh", "auth"}),
	}).Create(&sub).Error
}

// PushSubscriptionsForSpot returns the push endpoints of every user
// subscribed to the spot.
func (s *gormStore) PushSubscriptionsForSpot(ctx context.Context, spotID int64) ([]model.PushSubscription, error) {
	var subs []model.PushSubscription
	err := s.db.WithContext(ctx).
		Joins("JOIN subscriptions ON subscriptions.user_id = push_subscriptions.user_id").
		Where("subscriptions.spot_id = ?", spotID).
		Find(&subs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch push subscriptions for spot %d: %w", spotID, err)
	}
	return subs, nil
}

// DeletePushSubscription removes an expired push endpoint.
func (s *gormStore) DeletePushSubscription(ctx context.Context, endpoint string) error {
	return s.db.WithContext(ctx).Delete(&model.PushSubscription{Endpoint: endpoint}).Error
}
