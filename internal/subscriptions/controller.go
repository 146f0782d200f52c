// Package subscriptions is the view-model of the "my notifications" screen:
// the list of spots the signed-in user wants to hear about once they free up.
package subscriptions

import (
	"context"
	"sync"

	"parking-locator/internal/logger"
	"parking-locator/internal/model"
	"parking-locator/internal/session"
	"parking-locator/internal/status"
)

// Backend is the set of backend calls the screen depends on.
type Backend interface {
	FetchUserNotifications(ctx context.Context, userID int64) ([]model.SpotNotification, error)
	UnsubscribeByNotificationID(ctx context.Context, notificationID int64) error
}

// State is a snapshot of the screen.
type State struct {
	Busy          bool
	Notifications []model.SpotNotification
	ConfirmOpen   bool
	PendingID     int64
	Status        status.Message
	StatusVisible bool
	ThemeDark     bool
}

// Controller drives the notifications screen.
type Controller struct {
	prefs   *session.Preferences
	backend Backend
	banner  *status.Banner
	log     *logger.Logger

	mu            sync.Mutex
	busy          int
	notifications []model.SpotNotification
	confirmOpen   bool
	pendingID     int64
	loadGen       uint64
}

// New creates a controller. log may be nil.
func New(prefs *session.Preferences, backend Backend, banner *status.Banner, log *logger.Logger) *Controller {
	if log == nil {
		log = logger.Nop()
	}
	return &Controller{prefs: prefs, backend: backend, banner: banner, log: log}
}

// State returns a snapshot of the screen.
func (c *Controller) State() State {
	msg, visible := c.banner.Current()

	c.mu.Lock()
	defer c.mu.Unlock()
	return State{
		Busy:          c.busy > 0,
		Notifications: append([]model.SpotNotification(nil), c.notifications...),
		ConfirmOpen:   c.confirmOpen,
		PendingID:     c.pendingID,
		Status:        msg,
		StatusVisible: visible,
		ThemeDark:     c.prefs.ThemeDark(),
	}
}

func (c *Controller) done() {
	c.mu.Lock()
	c.busy--
	c.mu.Unlock()
}

// Load replaces the list with the signed-in user's subscriptions. A signed
// out session has none.
func (c *Controller) Load(ctx context.Context) {
	user, ok := c.prefs.User()
	if !ok {
		c.mu.Lock()
		c.loadGen++
		c.notifications = nil
		c.mu.Unlock()
		return
	}

	c.mu.Lock()
	c.loadGen++
	gen := c.loadGen
	c.busy++
	c.mu.Unlock()
	defer c.done()

	list, err := c.backend.FetchUserNotifications(ctx, user.ID)

	c.mu.Lock()
	if gen != c.loadGen {
		c.mu.Unlock()
		return
	}
	if err != nil {
		c.mu.Unlock()
		c.log.Warn("failed to load notifications", map[string]interface{}{"error": err.Error(), "user_id": user.ID})
		c.banner.Show("base.loadFailed", status.KindFailure)
		return
	}
	c.notifications = append([]model.SpotNotification(nil), list...)
	c.mu.Unlock()

	c.banner.Show("base.loadSuccess", status.KindSuccess)
}

// RequestUnsubscribe opens the confirmation dialog for notificationID.
func (c *Controller) RequestUnsubscribe(notificationID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pendingID = notificationID
	c.confirmOpen = true
}

// Cancel closes the confirmation dialog without unsubscribing.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.confirmOpen = false
	c.pendingID = 0
}

// Confirm unsubscribes the pending notification. It is removed from the
// list only once the backend accepted the request.
func (c *Controller) Confirm(ctx context.Context) {
	c.mu.Lock()
	if !c.confirmOpen {
		c.mu.Unlock()
		return
	}
	id := c.pendingID
	c.confirmOpen = false
	c.pendingID = 0
	c.busy++
	c.mu.Unlock()
	defer c.done()

	if err := c.backend.UnsubscribeByNotificationID(ctx, id); err != nil {
		c.log.Warn("failed to unsubscribe", map[string]interface{}{"error": err.Error(), "notification_id": id})
		c.banner.Show("base.error", status.KindFailure)
		return
	}

	c.mu.Lock()
	kept := c.notifications[:0:0]
	for _, n := range c.notifications {
		if n.ID != id {
			kept = append(kept, n)
		}
	}
	c.notifications = kept
	c.mu.Unlock()

	c.banner.Show("notifications.unsubscribe", status.KindSuccess)
}

// DismissStatus hides the status banner.
func (c *Controller) DismissStatus() {
	c.banner.Dismiss()
}
