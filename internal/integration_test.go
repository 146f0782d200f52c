package internal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"parking-locator/config"
	"parking-locator/internal/api"
	"parking-locator/internal/auth"
	"parking-locator/internal/backend"
	"parking-locator/internal/db"
	"parking-locator/internal/i18n"
	"parking-locator/internal/live"
	"parking-locator/internal/location"
	"parking-locator/internal/mapscreen"
	"parking-locator/internal/model"
	"parking-locator/internal/mw"
	"parking-locator/internal/sensor"
	"parking-locator/internal/session"
	"parking-locator/internal/status"
	"parking-locator/internal/store"
	"parking-locator/internal/subscriptions"
)

// gateway serves whatever readings the test sets.
type gateway struct {
	mu    sync.Mutex
	items []store.GatewayItem
}

func (g *gateway) set(items ...store.GatewayItem) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.items = items
}

func (g *gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.mu.Lock()
	defer g.mu.Unlock()
	resp := sensor.GatewayResponse{}
	resp.Data.Total = len(g.items)
	resp.Data.Items = g.items
	json.NewEncoder(w).Encode(resp)
}

type freedRecorder struct {
	mu  sync.Mutex
	ids []int64
}

func (f *freedRecorder) Dispatch(spotID int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ids = append(f.ids, spotID)
}

func (f *freedRecorder) freed() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.ids...)
}

func reading(id int64, name string, lat, lng float64, state int) store.GatewayItem {
	return store.GatewayItem{ID: id, Name: name, Latitude: lat, Longitude: lng, State: &state}
}

// TestSpotLifecycle drives the whole system: gateway readings flow through
// the ingest into the store, the API serves them to the HTTP client, and the
// map screen reacts to a spot becoming free through the live feed.
func TestSpotLifecycle(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Backend side.
	gormDB, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	defer sqlDB.Close()
	require.NoError(t, db.Migrate(gormDB))
	appStore := store.NewGormStore(gormDB, nil)

	gw := &gateway{}
	gwServer := httptest.NewServer(gw)
	defer gwServer.Close()

	catalog := i18n.MustLoad("en")
	authService := auth.NewService("integration-secret", time.Hour)
	hub := live.NewHub(nil)
	go hub.Run(ctx)
	cache := mw.NewResponseCache(time.Minute)

	handler := api.NewHandler(appStore, nil, authService, catalog, nil, nil)
	apiServer := httptest.NewServer(api.NewRouter(handler, api.RouterOptions{Cache: cache, Hub: hub}))
	defer apiServer.Close()

	sensorCfg := config.SensorConfig{
		Enabled:             true,
		Interval:            time.Hour,
		StateFreeValues:     []int{0},
		StateOccupiedValues: []int{1},
		Request:             config.SensorRequest{URL: gwServer.URL, PageSize: 50},
	}
	freed := &freedRecorder{}
	ingest := sensor.NewService(sensorCfg, appStore, sensor.NewHTTPSource(sensorCfg, nil), nil,
		sensor.WithDispatcher(freed), sensor.WithPublisher(hub), sensor.WithCache(cache))

	// Client side.
	const userID = 5
	client := backend.New(apiServer.URL, 5*time.Second)
	token, err := client.RequestToken(ctx, userID)
	require.NoError(t, err)
	client = backend.New(apiServer.URL, 5*time.Second, backend.WithTokenSource(func() string { return token }))

	prefs := session.New(&session.User{ID: userID, Token: token}, false)
	banner := status.New(catalog, time.Minute)
	here := model.Coordinate{Latitude: 49.2000, Longitude: 18.7500}
	mapCtrl := mapscreen.New(prefs, client, &location.Static{Granted: true, Position: &here}, banner, catalog,
		mapscreen.WithTimeLocation(time.UTC))
	subsCtrl := subscriptions.New(prefs, client, banner, nil)

	// 1. First readings: A-1 occupied next to us, A-2 free further away.
	gw.set(
		reading(1, "A-1", 49.2001, 18.7501, 1),
		reading(2, "A-2", 49.2100, 18.7600, 0),
	)
	ingest.IngestOnce(ctx)

	mapCtrl.Focus(ctx)
	st := mapCtrl.State()
	require.Len(t, st.Spots, 2)
	assert.Equal(t, model.OccupancyOccupied, st.Spots[0].Occupancy())

	mapCtrl.LocateClosestFreeSpot(ctx)
	st = mapCtrl.State()
	require.NotNil(t, st.Closest)
	assert.Equal(t, "A-2", st.Closest.Name)

	// 2. Ask to be told when A-1 frees up, and make A-2 the favourite.
	mapCtrl.OpenSpotDetail(ctx, 1)
	mapCtrl.ToggleNotification(ctx, userID, 1)
	mapCtrl.OpenSpotDetail(ctx, 2)
	mapCtrl.ToggleFavourite(ctx, userID, 2)

	mapCtrl.OpenSpotDetail(ctx, 1)
	st = mapCtrl.State()
	require.NotNil(t, st.Sheet)
	assert.True(t, st.NotificationsEnabled)
	assert.False(t, st.IsFavourite)

	subsCtrl.Load(ctx)
	require.Len(t, subsCtrl.State().Notifications, 1)
	assert.Equal(t, "A-1", subsCtrl.State().Notifications[0].SpotName)

	// 3. Follow the live feed the way the terminal client does.
	endpoint, err := live.EndpointFor(apiServer.URL)
	require.NoError(t, err)
	go live.NewWatcher(endpoint, nil).Watch(ctx, func(live.Event) { mapCtrl.HandleLiveUpdate(ctx) })
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	// 4. A-1 frees up.
	gw.set(
		reading(1, "A-1", 49.2001, 18.7501, 0),
		reading(2, "A-2", 49.2100, 18.7600, 0),
	)
	changes := ingest.IngestOnce(ctx)
	assert.Equal(t, []int64{1}, changes.Freed)
	assert.Equal(t, []int64{1}, freed.freed())

	assert.Eventually(t, func() bool {
		spots := mapCtrl.State().Spots
		return len(spots) == 2 && spots[0].Occupancy() == model.OccupancyFree
	}, 2*time.Second, 20*time.Millisecond, "live update refreshes the map")

	// 5. Near the favourite the closest free spot is the favourite itself,
	// and the history of A-1 shows both states.
	mapCtrl.LocateClosestFreeSpotNearFavourite(ctx)
	st = mapCtrl.State()
	require.NotNil(t, st.Closest)
	assert.Equal(t, "A-2", st.Closest.Name)

	mapCtrl.OpenSpotHistory(ctx, 1)
	st = mapCtrl.State()
	require.NotNil(t, st.History)
	require.Len(t, st.History.History, 2)
	assert.Equal(t, model.OccupancyFree, st.History.History[0].Occupancy())

	// 6. Unsubscribe from the notifications screen.
	subsCtrl.RequestUnsubscribe(subsCtrl.State().Notifications[0].ID)
	subsCtrl.Confirm(ctx)
	assert.Empty(t, subsCtrl.State().Notifications)

	cancel()
}
