package store

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/guregu/null.v4"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"parking-locator/internal/db"
	"parking-locator/internal/model"
)

// A helper function to create a mock database connection.
func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: sqlDB,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

func newSQLiteStore(t *testing.T) (Store, *gorm.DB) {
	t.Helper()
	gormDB, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.Migrate(gormDB))
	return NewGormStore(gormDB, nil), gormDB
}

func state(v int) *int { return &v }

func classify(s *int) SpotStateType {
	if s == nil {
		return StateTypeUnknown
	}
	switch *s {
	case 0:
		return StateTypeFree
	case 1:
		return StateTypeOccupied
	default:
		return StateTypeUnknown
	}
}

func TestListSpots_QueryError(t *testing.T) {
	gormDB, mock := newMockDB(t)
	s := NewGormStore(gormDB, nil)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "spots" ORDER BY name`)).
		WillReturnError(errors.New("connection reset"))

	_, err := s.ListSpots(context.Background())

	assert.ErrorContains(t, err, "connection reset")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetSpot_NotFound(t *testing.T) {
	gormDB, mock := newMockDB(t)
	s := NewGormStore(gormDB, nil)

	mock.ExpectQuery(`SELECT \* FROM "spots" WHERE "spots"."id" = \$1 ORDER BY "spots"."id" LIMIT \$[0-9]+`).
		WithArgs(int64(42), 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}))

	_, err := s.GetSpot(context.Background(), 42)

	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertSpots(t *testing.T) {
	s, gormDB := newSQLiteStore(t)
	ctx := context.Background()
	first := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

	err := s.UpsertSpots(ctx, first, []GatewayItem{
		{ID: 1, Name: "A-1", Latitude: 49.2, Longitude: 18.75},
		{ID: 2, Name: "zaliv-3", Latitude: 49.3, Longitude: 18.76},
		{ID: 3, Name: "   ", Latitude: 49.3, Longitude: 18.76},
	})
	require.NoError(t, err)

	var spots []model.Spot
	require.NoError(t, gormDB.Order("id").Find(&spots).Error)
	require.Len(t, spots, 2)
	assert.Equal(t, "A", spots[0].Zone)
	assert.Equal(t, "zaliv", spots[1].Zone)
	assert.False(t, spots[0].Occupied.Valid)

	second := first.Add(time.Minute)
	require.NoError(t, s.UpsertSpots(ctx, second, []GatewayItem{{ID: 1, Name: "A-1", Latitude: 49.25, Longitude: 18.75}}))

	spot, err := s.GetSpot(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 49.25, spot.Latitude)
	assert.True(t, spot.UpdatedAt.Equal(second))
}

func TestUpdateOccupancy(t *testing.T) {
	s, gormDB := newSQLiteStore(t)
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

	items := []GatewayItem{
		{ID: 1, Name: "A-1", State: state(1)},
		{ID: 2, Name: "A-2", State: state(0)},
		{ID: 3, Name: "A-3", State: state(1)},
	}
	require.NoError(t, s.UpsertSpots(ctx, now, items))

	changes, err := s.UpdateOccupancy(ctx, now, items, classify)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{1, 2, 3}, changes.Changed)
	assert.Empty(t, changes.Freed, "unknown to known is not a release")

	later := now.Add(10 * time.Minute)
	changes, err = s.UpdateOccupancy(ctx, later, []GatewayItem{
		{ID: 1, State: state(0)},
		{ID: 2, State: state(0)},
		{ID: 99, State: state(0)},
	}, classify)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{1, 3}, changes.Changed)
	assert.ElementsMatch(t, []int64{1}, changes.Freed)

	spot1, err := s.GetSpot(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, model.OccupancyFree, model.OccupancyOf(spot1.Occupied))
	assert.True(t, spot1.StateSince.Time.Equal(later))

	spot2, err := s.GetSpot(ctx, 2)
	require.NoError(t, err)
	assert.True(t, spot2.StateSince.Time.Equal(now), "unchanged spot keeps its state_since")

	spot3, err := s.GetSpot(ctx, 3)
	require.NoError(t, err)
	assert.False(t, spot3.Occupied.Valid, "spot missing from the feed becomes unknown")

	history, err := s.SpotHistory(ctx, 1, 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, null.BoolFrom(false), history[0].Occupied)
	assert.Equal(t, null.BoolFrom(true), history[1].Occupied)

	var total int64
	gormDB.Model(&model.OccupancyHistory{}).Count(&total)
	assert.Equal(t, int64(5), total)
}

func TestSpotHistory_Limit(t *testing.T) {
	s, gormDB := newSQLiteStore(t)
	base := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, gormDB.Create(&model.OccupancyHistory{
			SpotID:     7,
			Occupied:   null.BoolFrom(i%2 == 0),
			ObservedAt: base.Add(time.Duration(i) * time.Minute),
		}).Error)
	}

	history, err := s.SpotHistory(context.Background(), 7, 3)

	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.True(t, history[0].ObservedAt.Equal(base.Add(4*time.Minute)))
	assert.True(t, history[2].ObservedAt.Equal(base.Add(2*time.Minute)))
}

func TestFavouriteSpot(t *testing.T) {
	s, _ := newSQLiteStore(t)
	ctx := context.Background()
	require.NoError(t, s.UpsertSpots(ctx, time.Now(), []GatewayItem{{ID: 1, Name: "A-1"}}))

	fav, err := s.FavouriteSpot(ctx, 5)
	require.NoError(t, err)
	assert.Nil(t, fav, "unknown user has no favourite")

	require.NoError(t, s.SetFavouriteSpot(ctx, 5, null.IntFrom(1)))
	fav, err = s.FavouriteSpot(ctx, 5)
	require.NoError(t, err)
	require.NotNil(t, fav)
	assert.Equal(t, int64(1), fav.ID)

	assert.ErrorIs(t, s.SetFavouriteSpot(ctx, 5, null.IntFrom(404)), ErrNotFound)

	require.NoError(t, s.SetFavouriteSpot(ctx, 5, null.Int{}))
	fav, err = s.FavouriteSpot(ctx, 5)
	require.NoError(t, err)
	assert.Nil(t, fav)
}

func TestSubscriptions(t *testing.T) {
	s, _ := newSQLiteStore(t)
	ctx := context.Background()
	require.NoError(t, s.UpsertSpots(ctx, time.Now(), []GatewayItem{{ID: 1, Name: "A-1"}, {ID: 2, Name: "A-2"}}))

	_, err := s.Subscribe(ctx, 5, 404)
	assert.ErrorIs(t, err, ErrNotFound)

	sub, err := s.Subscribe(ctx, 5, 1)
	require.NoError(t, err)
	again, err := s.Subscribe(ctx, 5, 1)
	require.NoError(t, err)
	assert.Equal(t, sub.ID, again.ID)

	_, err = s.Subscribe(ctx, 5, 2)
	require.NoError(t, err)

	on, err := s.IsSubscribed(ctx, 5, 1)
	require.NoError(t, err)
	assert.True(t, on)

	subs, err := s.UserSubscriptions(ctx, 5)
	require.NoError(t, err)
	require.Len(t, subs, 2)
	assert.Equal(t, "A-1", subs[0].Spot.Name)

	require.NoError(t, s.UnsubscribeByUserAndSpot(ctx, 5, 1))
	assert.ErrorIs(t, s.UnsubscribeByUserAndSpot(ctx, 5, 1), ErrNotFound)

	got, err := s.GetSubscription(ctx, subs[1].ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.SpotID)

	require.NoError(t, s.DeleteSubscription(ctx, subs[1].ID))
	assert.ErrorIs(t, s.DeleteSubscription(ctx, subs[1].ID), ErrNotFound)

	subs, err = s.UserSubscriptions(ctx, 5)
	require.NoError(t, err)
	assert.Empty(t, subs)
}

func TestPushSubscriptionsForSpot(t *testing.T) {
	s, _ := newSQLiteStore(t)
	ctx := context.Background()
	require.NoError(t, s.UpsertSpots(ctx, time.Now(), []GatewayItem{{ID: 1, Name: "A-1"}}))

	require.NoError(t, s.SavePushSubscription(ctx, model.PushSubscription{Endpoint: "https://push/a", UserID: 5, P256DH: "k", Auth: "a", CreatedAt: time.Now()}))
	require.NoError(t, s.SavePushSubscription(ctx, model.PushSubscription{Endpoint: "https://push/b", UserID: 6, P256DH: "k", Auth: "a", CreatedAt: time.Now()}))
	_, err := s.Subscribe(ctx, 5, 1)
	require.NoError(t, err)

	subs, err := s.PushSubscriptionsForSpot(ctx, 1)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "https://push/a", subs[0].Endpoint)

	require.NoError(t, s.DeletePushSubscription(ctx, "https://push/a"))
	subs, err = s.PushSubscriptionsForSpot(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, subs)
}
