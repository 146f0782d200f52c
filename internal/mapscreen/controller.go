// Package mapscreen is the view-model of the parking map screen. It owns the
// screen state and mediates every call to the backend the screen makes.
package mapscreen

import (
	"context"
	"sync"
	"time"

	"gopkg.in/guregu/null.v4"

	"parking-locator/internal/i18n"
	"parking-locator/internal/location"
	"parking-locator/internal/logger"
	"parking-locator/internal/model"
	"parking-locator/internal/session"
	"parking-locator/internal/status"
)

// closestSpotZoom is the region delta used when centring on the closest spot.
const closestSpotZoom = 0.001

// updatedAtLayout formats the as-of time of the spot list.
const updatedAtLayout = "15:04:05"

// Backend is the set of backend calls the map screen depends on.
type Backend interface {
	FetchAllSpots(ctx context.Context) (model.AllSpots, error)
	FetchClosestFreeSpot(ctx context.Context, lat, lng float64) (*model.ParkingSpot, error)
	FetchUserFavouriteSpot(ctx context.Context, userID int64) (*model.ParkingSpot, error)
	FetchSpotDetail(ctx context.Context, userID, spotID int64) (model.ParkingSpotDetail, error)
	FetchSpotHistory(ctx context.Context, spotID int64) ([]model.SpotHistoryRecord, error)
	SubscribeToNotification(ctx context.Context, spotID, userID int64) error
	UnsubscribeByUserAndSpot(ctx context.Context, userID, spotID int64) error
	UpdateFavouriteSpot(ctx context.Context, userID int64, spotID null.Int) (model.FavouriteResult, error)
}

// Option configures a Controller.
type Option func(*Controller)

// WithRollbackPolicy sets how failed toggles are handled.
func WithRollbackPolicy(p RollbackPolicy) Option {
	return func(c *Controller) { c.policy = p }
}

// WithLogger sets the controller's logger.
func WithLogger(l *logger.Logger) Option {
	return func(c *Controller) { c.log = l }
}

// WithViewport sets the map view re-centred on the closest spot.
func WithViewport(v Viewport) Option {
	return func(c *Controller) { c.viewport = v }
}

// WithTimeLocation sets the zone the as-of time is displayed in.
func WithTimeLocation(loc *time.Location) Option {
	return func(c *Controller) { c.tz = loc }
}

// Controller is the map screen view-model. All operations are safe to call
// concurrently; none of them returns an error, every outcome is reported
// through the status banner.
//
// Overlapping operations are resolved per slot: refresh and locate carry a
// generation number and a response from a superseded call is dropped, and
// the detail sheet and history view share one so at most one of them opens.
// The busy indicator counts in-flight operations.
type Controller struct {
	prefs    *session.Preferences
	backend  Backend
	locator  location.Provider
	banner   *status.Banner
	catalog  *i18n.Catalog
	viewport Viewport
	log      *logger.Logger
	policy   RollbackPolicy
	tz       *time.Location

	mu                   sync.Mutex
	focused              bool
	busy                 int
	spots                []model.ParkingSpot
	updatedAt            string
	closest              *model.ParkingSpot
	sheet                *SheetContent
	sheetOpen            bool
	history              *HistoryContent
	historyOpen          bool
	isFavourite          bool
	notificationsEnabled bool

	refreshGen uint64
	locateGen  uint64
	surfaceGen uint64
}

// New creates a map screen controller.
func New(prefs *session.Preferences, backend Backend, locator location.Provider, banner *status.Banner, catalog *i18n.Catalog, opts ...Option) *Controller {
	c := &Controller{
		prefs:    prefs,
		backend:  backend,
		locator:  locator,
		banner:   banner,
		catalog:  catalog,
		viewport: noopViewport{},
		log:      logger.Nop(),
		policy:   RevertOnFailure,
		tz:       time.Local,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.updatedAt = catalog.T("base.unknown")
	return c
}

type noopViewport struct{}

func (noopViewport) AnimateTo(Region) {}

// State returns a snapshot of the screen state.
func (c *Controller) State() State {
	msg, visible := c.banner.Current()
	_, signedIn := c.prefs.User()

	c.mu.Lock()
	defer c.mu.Unlock()

	st := State{
		Focused:              c.focused,
		Busy:                 c.busy > 0,
		Spots:                append([]model.ParkingSpot(nil), c.spots...),
		UpdatedAt:            c.updatedAt,
		SheetOpen:            c.sheetOpen,
		HistoryOpen:          c.historyOpen,
		IsFavourite:          c.isFavourite,
		NotificationsEnabled: c.notificationsEnabled,
		Status:               msg,
		StatusVisible:        visible,
		ThemeDark:            c.prefs.ThemeDark(),
		SignedIn:             signedIn,
	}
	if c.closest != nil {
		spot := *c.closest
		st.Closest = &spot
	}
	if c.sheet != nil {
		sheet := *c.sheet
		st.Sheet = &sheet
	}
	if c.history != nil {
		h := *c.history
		h.History = append([]model.SpotHistoryRecord(nil), c.history.History...)
		st.History = &h
	}
	return st
}

func (c *Controller) acquire() {
	c.mu.Lock()
	c.busy++
	c.mu.Unlock()
}

func (c *Controller) release() {
	c.mu.Lock()
	if c.busy > 0 {
		c.busy--
	}
	c.mu.Unlock()
}

// Focus marks the screen visible. The transition from not visible to
// visible refreshes the spot list.
func (c *Controller) Focus(ctx context.Context) {
	c.mu.Lock()
	wasFocused := c.focused
	c.focused = true
	c.mu.Unlock()

	if !wasFocused {
		c.Refresh(ctx)
	}
}

// Blur marks the screen hidden. The detail sheet and history view are
// closed and any response still in flight for them is dropped.
func (c *Controller) Blur() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.focused = false
	c.closest = nil
	c.closeSurfacesLocked()
	c.surfaceGen++
}

// HandleLiveUpdate reacts to an occupancy change pushed by the backend by
// refreshing the list while the screen is visible.
func (c *Controller) HandleLiveUpdate(ctx context.Context) {
	c.mu.Lock()
	focused := c.focused
	c.mu.Unlock()

	if focused {
		c.Refresh(ctx)
	}
}

// Refresh replaces the spot list with the backend's.
func (c *Controller) Refresh(ctx context.Context) {
	c.mu.Lock()
	c.refreshGen++
	gen := c.refreshGen
	c.busy++
	c.closest = nil
	c.mu.Unlock()
	defer c.release()

	all, err := c.backend.FetchAllSpots(ctx)

	c.mu.Lock()
	if gen != c.refreshGen {
		c.mu.Unlock()
		c.log.Debug("dropping superseded refresh", map[string]interface{}{"generation": gen})
		return
	}
	if err != nil {
		c.mu.Unlock()
		c.log.Warn("failed to load spots", map[string]interface{}{"error": err.Error()})
		c.banner.Show("base.loadFailed", status.KindFailure)
		return
	}

	c.spots = append([]model.ParkingSpot(nil), all.Data...)
	if all.UpdatedAt.Valid {
		c.updatedAt = all.UpdatedAt.Time.In(c.tz).Format(updatedAtLayout)
	} else {
		c.updatedAt = c.catalog.T("base.unknown")
	}
	count := len(c.spots)
	c.mu.Unlock()

	c.log.Info("spots loaded", map[string]interface{}{"count": count})
	c.banner.Show("base.loadSuccess", status.KindSuccess)
}

func (c *Controller) nextLocateGen() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.locateGen++
	return c.locateGen
}

// LocateClosestFreeSpot finds the free spot nearest to the device.
func (c *Controller) LocateClosestFreeSpot(ctx context.Context) {
	granted, err := c.locator.RequestPermission(ctx)
	if err != nil || !granted {
		if err != nil {
			c.log.Warn("location permission request failed", map[string]interface{}{"error": err.Error()})
		}
		c.banner.Show("base.locationPermissionDenied", status.KindFailure)
		return
	}

	gen := c.nextLocateGen()
	c.acquire()
	defer c.release()

	origin, err := c.locator.CurrentPosition(ctx)
	if err != nil {
		c.log.Warn("failed to read device position", map[string]interface{}{"error": err.Error()})
		c.banner.Show("parkingMap.closestSpotFindError", status.KindFailure)
		return
	}

	c.locateFrom(ctx, gen, origin)
}

// LocateClosestFreeSpotNearFavourite finds the free spot nearest to the
// signed-in user's favourite spot. It does nothing while signed out.
func (c *Controller) LocateClosestFreeSpotNearFavourite(ctx context.Context) {
	user, ok := c.prefs.User()
	if !ok {
		return
	}

	gen := c.nextLocateGen()
	c.acquire()
	defer c.release()

	favourite, err := c.backend.FetchUserFavouriteSpot(ctx, user.ID)
	if err != nil {
		c.log.Warn("failed to load favourite spot", map[string]interface{}{"error": err.Error(), "user_id": user.ID})
		c.banner.Show("parkingMap.closestSpotFindError", status.KindFailure)
		return
	}
	if favourite == nil {
		c.banner.Show("parkingMap.noFavSpot", status.KindFailure)
		return
	}

	c.locateFrom(ctx, gen, favourite.Coordinate())
}

func (c *Controller) locateFrom(ctx context.Context, gen uint64, origin model.Coordinate) {
	spot, err := c.backend.FetchClosestFreeSpot(ctx, origin.Latitude, origin.Longitude)

	c.mu.Lock()
	if gen != c.locateGen {
		c.mu.Unlock()
		c.log.Debug("dropping superseded locate", map[string]interface{}{"generation": gen})
		return
	}
	if err != nil {
		c.mu.Unlock()
		c.log.Warn("failed to find closest free spot", map[string]interface{}{"error": err.Error()})
		c.banner.Show("parkingMap.closestSpotFindError", status.KindFailure)
		return
	}
	if spot == nil {
		c.mu.Unlock()
		c.banner.Show("parkingMap.noSpotFound", status.KindFailure)
		return
	}
	found := *spot
	c.closest = &found
	c.mu.Unlock()

	c.viewport.AnimateTo(Region{
		Latitude:       found.Latitude,
		Longitude:      found.Longitude,
		LatitudeDelta:  closestSpotZoom,
		LongitudeDelta: closestSpotZoom,
	})
	c.banner.Show("parkingMap.closestSpotFound", status.KindSuccess)
}

func (c *Controller) closeSurfacesLocked() {
	c.sheetOpen = false
	c.sheet = nil
	c.historyOpen = false
	c.history = nil
}

func (c *Controller) spotLocked(spotID int64) (model.ParkingSpot, bool) {
	for _, s := range c.spots {
		if s.ID == spotID {
			return s, true
		}
	}
	return model.ParkingSpot{}, false
}

// OpenSpotDetail fetches the detail of spotID and opens the detail sheet.
// Any open sheet or history view is closed first.
func (c *Controller) OpenSpotDetail(ctx context.Context, spotID int64) {
	c.mu.Lock()
	c.closeSurfacesLocked()
	c.surfaceGen++
	gen := c.surfaceGen
	c.busy++
	c.mu.Unlock()
	defer c.release()

	detail, err := c.backend.FetchSpotDetail(ctx, c.prefs.UserID(), spotID)

	c.mu.Lock()
	if gen != c.surfaceGen {
		c.mu.Unlock()
		return
	}
	if err != nil {
		c.mu.Unlock()
		c.log.Warn("failed to load spot detail", map[string]interface{}{"error": err.Error(), "spot_id": spotID})
		c.banner.Show("base.loadFailed", status.KindFailure)
		return
	}

	sheet := &SheetContent{SpotID: spotID, Occupied: detail.Occupied, Detail: detail}
	if spot, ok := c.spotLocked(spotID); ok {
		sheet.SpotName = spot.Name
		sheet.Occupied = spot.Occupied
	}
	c.sheet = sheet
	c.sheetOpen = true
	c.isFavourite = detail.IsFavourite
	c.notificationsEnabled = detail.IsNotificationEnabled
	c.mu.Unlock()
}

// OpenSpotHistory fetches the history of spotID and opens the history
// view. The detail sheet is closed first.
func (c *Controller) OpenSpotHistory(ctx context.Context, spotID int64) {
	c.mu.Lock()
	name := ""
	if c.sheet != nil && c.sheet.SpotID == spotID {
		name = c.sheet.SpotName
	} else if spot, ok := c.spotLocked(spotID); ok {
		name = spot.Name
	}
	c.sheetOpen = false
	c.historyOpen = false
	c.history = nil
	c.surfaceGen++
	gen := c.surfaceGen
	c.busy++
	c.mu.Unlock()
	defer c.release()

	history, err := c.backend.FetchSpotHistory(ctx, spotID)

	c.mu.Lock()
	if gen != c.surfaceGen {
		c.mu.Unlock()
		return
	}
	if err != nil {
		c.mu.Unlock()
		c.log.Warn("failed to load spot history", map[string]interface{}{"error": err.Error(), "spot_id": spotID})
		c.banner.Show("base.loadFailed", status.KindFailure)
		return
	}
	c.history = &HistoryContent{
		SpotID:   spotID,
		SpotName: name,
		History:  append([]model.SpotHistoryRecord(nil), history...),
	}
	c.historyOpen = true
	c.mu.Unlock()

	c.banner.Show("base.loadSuccess", status.KindSuccess)
}

// CloseDetail closes the detail sheet.
func (c *Controller) CloseDetail() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sheetOpen = false
}

// CloseHistory closes the history view.
func (c *Controller) CloseHistory() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.historyOpen = false
}

// DismissStatus hides the status banner.
func (c *Controller) DismissStatus() {
	c.banner.Dismiss()
}

// ToggleNotification flips the notification flag immediately and then
// subscribes or unsubscribes according to the new value.
func (c *Controller) ToggleNotification(ctx context.Context, userID, spotID int64) {
	c.mu.Lock()
	previous := c.notificationsEnabled
	enabled := !previous
	c.notificationsEnabled = enabled
	gen := c.surfaceGen
	c.busy++
	c.mu.Unlock()
	defer c.release()

	var err error
	if enabled {
		err = c.backend.SubscribeToNotification(ctx, spotID, userID)
	} else {
		err = c.backend.UnsubscribeByUserAndSpot(ctx, userID, spotID)
	}

	if err != nil {
		c.log.Warn("failed to toggle notification", map[string]interface{}{
			"error": err.Error(), "spot_id": spotID, "user_id": userID, "enabled": enabled,
		})
		c.rollback(gen, func() {
			if c.notificationsEnabled == enabled {
				c.notificationsEnabled = previous
			}
		})
		c.banner.Show("base.error", status.KindFailure)
		return
	}

	if enabled {
		c.banner.Show("notifications.subscribe", status.KindSuccess)
	} else {
		c.banner.Show("notifications.unsubscribe", status.KindSuccess)
	}
}

// ToggleFavourite flips the favourite flag immediately and then sets or
// clears the user's favourite spot.
func (c *Controller) ToggleFavourite(ctx context.Context, userID, spotID int64) {
	c.mu.Lock()
	previous := c.isFavourite
	favourite := !previous
	c.isFavourite = favourite
	gen := c.surfaceGen
	c.busy++
	c.mu.Unlock()
	defer c.release()

	target := null.Int{}
	if favourite {
		target = null.IntFrom(spotID)
	}

	revert := func() {
		c.rollback(gen, func() {
			if c.isFavourite == favourite {
				c.isFavourite = previous
			}
		})
	}

	result, err := c.backend.UpdateFavouriteSpot(ctx, userID, target)
	if err != nil {
		c.log.Warn("failed to update favourite spot", map[string]interface{}{
			"error": err.Error(), "spot_id": spotID, "user_id": userID,
		})
		revert()
		c.banner.Show("base.error", status.KindFailure)
		return
	}

	if !result.Success {
		revert()
		if result.Message == "" {
			c.banner.Show("base.error", status.KindFailure)
		} else {
			c.banner.ShowText(result.Message, status.KindFailure)
		}
		return
	}

	switch {
	case result.Message != "":
		c.banner.ShowText(result.Message, status.KindSuccess)
	case favourite:
		c.banner.Show("favourite.set", status.KindSuccess)
	default:
		c.banner.Show("favourite.cleared", status.KindSuccess)
	}
}

// rollback runs undo under the lock unless the policy keeps optimistic
// values or the sheet the toggle started on has since been replaced.
func (c *Controller) rollback(gen uint64, undo func()) {
	if c.policy != RevertOnFailure {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.surfaceGen {
		c.log.Debug("dropping rollback for a replaced sheet", map[string]interface{}{"generation": gen})
		return
	}
	undo()
}
