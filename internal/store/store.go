package store

import (
	"context"
	"fmt"
	"time"

	"gopkg.in/guregu/null.v4"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"parking-locator/internal/logger"
	"parking-locator/internal/model"
	"parking-locator/internal/parse"
)

// Store defines the interface for all database operations.
type Store interface {
	// Sensor ingest
	UpsertSpots(ctx context.Context, now time.Time, items []GatewayItem) error
	UpdateOccupancy(ctx context.Context, now time.Time, items []GatewayItem, classify Classifier) (Changes, error)

	// Spots
	ListSpots(ctx context.Context) ([]model.Spot, error)
	GetSpot(ctx context.Context, id int64) (model.Spot, error)
	SpotHistory(ctx context.Context, spotID int64, limit int) ([]model.OccupancyHistory, error)

	// Users
	EnsureUser(ctx context.Context, id int64) (model.User, error)
	FavouriteSpot(ctx context.Context, userID int64) (*model.Spot, error)
	SetFavouriteSpot(ctx context.Context, userID int64, spotID null.Int) error

	// Notification subscriptions
	IsSubscribed(ctx context.Context, userID, spotID int64) (bool, error)
	Subscribe(ctx context.Context, userID, spotID int64) (model.Subscription, error)
	UnsubscribeByUserAndSpot(ctx context.Context, userID, spotID int64) error
	GetSubscription(ctx context.Context, id int64) (model.Subscription, error)
	DeleteSubscription(ctx context.Context, id int64) error
	UserSubscriptions(ctx context.Context, userID int64) ([]model.Subscription, error)

	// Push endpoints
	SavePushSubscription(ctx context.Context, sub model.PushSubscription) error
	PushSubscriptionsForSpot(ctx context.Context, spotID int64) ([]model.PushSubscription, error)
	DeletePushSubscription(ctx context.Context, endpoint string) error
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db  *gorm.DB
	log *logger.Logger
}

// NewGormStore creates a new GORM-backed store. log may be nil.
func NewGormStore(db *gorm.DB, log *logger.Logger) Store {
	if log == nil {
		log = logger.Nop()
	}
	return &gormStore{db: db, log: log}
}

// UpsertSpots creates or refreshes the metadata of every reported spot and
// stamps it as seen at now. Occupancy is left to UpdateOccupancy.
func (s *gormStore) UpsertSpots(ctx context.Context, now time.Time, items []GatewayItem) error {
	spots := make([]model.Spot, 0, len(items))
	for _, item := range items {
		name, err := parse.ParseSpotName(item.Name)
		if err != nil {
			s.log.Warn("skipping spot with unparsable name", map[string]interface{}{"spot_id": item.ID, "name": item.Name, "error": err.Error()})
			continue
		}
		spots = append(spots, model.Spot{
			ID:        item.ID,
			Name:      item.Name,
			Zone:      name.Zone,
			Latitude:  item.Latitude,
			Longitude: item.Longitude,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}

	if len(spots) == 0 {
		return nil
	}

	s.log.Debug("batch upserting spots", map[string]interface{}{"count": len(spots)})
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "zone", "latitude", "longitude", "updated_at"}),
		}).Create(&spots).Error
	})
}

// UpdateOccupancy applies the reported states, records every transition
// in the history table and reports which spots changed. Known spots
// missing from the feed become unknown.
func (s *gormStore) UpdateOccupancy(ctx context.Context, now time.Time, items []GatewayItem, classify Classifier) (Changes, error) {
	current, err := s.fetchAllSpots(ctx)
	if err != nil {
		return Changes{}, fmt.Errorf("failed to fetch spots: %w", err)
	}

	var changes Changes
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seen := make(map[int64]bool, len(items))
		for _, item := range items {
			spot, ok := current[item.ID]
			if !ok {
				continue
			}
			seen[item.ID] = true

			next := classify(item.State).Occupied()
			if sameOccupancy(spot.Occupied, next) {
				continue
			}
			if err := transition(tx, spot.ID, next, now); err != nil {
				return err
			}
			changes.Changed = append(changes.Changed, spot.ID)
			if model.OccupancyOf(spot.Occupied) == model.OccupancyOccupied && model.OccupancyOf(next) == model.OccupancyFree {
				changes.Freed = append(changes.Freed, spot.ID)
			}
		}

		for id, spot := range current {
			if seen[id] || !spot.Occupied.Valid {
				continue
			}
			if err := transition(tx, id, null.Bool{}, now); err != nil {
				return err
			}
			changes.Changed = append(changes.Changed, id)
		}
		return nil
	})
	if err != nil {
		return Changes{}, err
	}
	return changes, nil
}

func sameOccupancy(a, b null.Bool) bool {
	return model.OccupancyOf(a) == model.OccupancyOf(b)
}

// transition records the new state of a spot and moves its state_since.
func transition(tx *gorm.DB, spotID int64, occupied null.Bool, now time.Time) error {
	history := model.OccupancyHistory{
		SpotID:     spotID,
		Occupied:   occupied,
		ObservedAt: now,
	}
	if err := tx.Create(&history).Error; err != nil {
		return fmt.Errorf("failed to archive occupancy of spot %d: %w", spotID, err)
	}

	if err := tx.Model(&model.Spot{}).Where("id = ?", spotID).Updates(map[string]interface{}{
		"occupied":    occupied,
		"state_since": now,
		"updated_at":  now,
	}).Error; err != nil {
		return fmt.Errorf("failed to update occupancy of spot %d: %w", spotID, err)
	}
	return nil
}

func (s *gormStore) fetchAllSpots(ctx context.Context) (map[int64]model.Spot, error) {
	var spots []model.Spot
	if err := s.db.WithContext(ctx).Find(&spots).Error; err != nil {
		return nil, err
	}
	spotMap := make(map[int64]model.Spot, len(spots))
	for _, sp := range spots {
		spotMap[sp.ID] = sp
	}
	return spotMap, nil
}
