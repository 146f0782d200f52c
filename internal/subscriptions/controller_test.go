package subscriptions

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parking-locator/internal/i18n"
	"parking-locator/internal/model"
	"parking-locator/internal/session"
	"parking-locator/internal/status"
)

type mockBackend struct {
	FetchUserNotificationsFunc      func(ctx context.Context, userID int64) ([]model.SpotNotification, error)
	UnsubscribeByNotificationIDFunc func(ctx context.Context, notificationID int64) error
	unsubscribed                    []int64
}

func (m *mockBackend) FetchUserNotifications(ctx context.Context, userID int64) ([]model.SpotNotification, error) {
	return m.FetchUserNotificationsFunc(ctx, userID)
}

func (m *mockBackend) UnsubscribeByNotificationID(ctx context.Context, notificationID int64) error {
	m.unsubscribed = append(m.unsubscribed, notificationID)
	if m.UnsubscribeByNotificationIDFunc == nil {
		return nil
	}
	return m.UnsubscribeByNotificationIDFunc(ctx, notificationID)
}

func newController(user *session.User, backend Backend) *Controller {
	catalog := i18n.MustLoad("en")
	return New(session.New(user, false), backend, status.New(catalog, 0), nil)
}

func twoNotifications() []model.SpotNotification {
	return []model.SpotNotification{{ID: 10, SpotName: "A-1"}, {ID: 11, SpotName: "zaliv-2"}}
}

func TestLoad(t *testing.T) {
	var gotUser int64
	backend := &mockBackend{
		FetchUserNotificationsFunc: func(ctx context.Context, userID int64) ([]model.SpotNotification, error) {
			gotUser = userID
			return twoNotifications(), nil
		},
	}
	c := newController(&session.User{ID: 5}, backend)

	c.Load(context.Background())

	st := c.State()
	assert.Equal(t, int64(5), gotUser)
	assert.Equal(t, twoNotifications(), st.Notifications)
	assert.Equal(t, "base.loadSuccess", st.Status.Key)
	assert.False(t, st.Busy)
}

func TestLoad_Failure(t *testing.T) {
	backend := &mockBackend{
		FetchUserNotificationsFunc: func(ctx context.Context, userID int64) ([]model.SpotNotification, error) {
			return nil, errors.New("boom")
		},
	}
	c := newController(&session.User{ID: 5}, backend)

	c.Load(context.Background())

	st := c.State()
	assert.Empty(t, st.Notifications)
	assert.Equal(t, "base.loadFailed", st.Status.Key)
	assert.Equal(t, status.KindFailure, st.Status.Kind)
}

func TestLoad_SignedOut(t *testing.T) {
	backend := &mockBackend{
		FetchUserNotificationsFunc: func(ctx context.Context, userID int64) ([]model.SpotNotification, error) {
			t.Fatal("must not fetch while signed out")
			return nil, nil
		},
	}
	c := newController(nil, backend)

	c.Load(context.Background())

	assert.Empty(t, c.State().Notifications)
}

func TestLoad_SignOutDropsLoadInFlight(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	backend := &mockBackend{
		FetchUserNotificationsFunc: func(ctx context.Context, userID int64) ([]model.SpotNotification, error) {
			close(started)
			<-release
			return twoNotifications(), nil
		},
	}
	prefs := session.New(&session.User{ID: 5}, false)
	catalog := i18n.MustLoad("en")
	c := New(prefs, backend, status.New(catalog, 0), nil)

	done := make(chan struct{})
	go func() {
		c.Load(context.Background())
		close(done)
	}()
	<-started

	prefs.SignOut()
	c.Load(context.Background())
	close(release)
	<-done

	st := c.State()
	assert.Empty(t, st.Notifications)
	assert.False(t, st.Busy)
}

func TestConfirm_RemovesOnSuccess(t *testing.T) {
	backend := &mockBackend{
		FetchUserNotificationsFunc: func(ctx context.Context, userID int64) ([]model.SpotNotification, error) {
			return twoNotifications(), nil
		},
	}
	c := newController(&session.User{ID: 5}, backend)
	c.Load(context.Background())

	c.RequestUnsubscribe(10)
	st := c.State()
	require.True(t, st.ConfirmOpen)
	assert.Equal(t, int64(10), st.PendingID)

	c.Confirm(context.Background())

	st = c.State()
	assert.False(t, st.ConfirmOpen)
	assert.Equal(t, []model.SpotNotification{{ID: 11, SpotName: "zaliv-2"}}, st.Notifications)
	assert.Equal(t, "notifications.unsubscribe", st.Status.Key)
	assert.Equal(t, []int64{10}, backend.unsubscribed)
}

func TestConfirm_KeepsOnFailure(t *testing.T) {
	backend := &mockBackend{
		FetchUserNotificationsFunc: func(ctx context.Context, userID int64) ([]model.SpotNotification, error) {
			return twoNotifications(), nil
		},
		UnsubscribeByNotificationIDFunc: func(ctx context.Context, notificationID int64) error {
			return errors.New("boom")
		},
	}
	c := newController(&session.User{ID: 5}, backend)
	c.Load(context.Background())

	c.RequestUnsubscribe(10)
	c.Confirm(context.Background())

	st := c.State()
	assert.Equal(t, twoNotifications(), st.Notifications)
	assert.Equal(t, "base.error", st.Status.Key)
	assert.False(t, st.Busy)
}

func TestCancel(t *testing.T) {
	backend := &mockBackend{}
	c := newController(&session.User{ID: 5}, backend)

	c.RequestUnsubscribe(10)
	c.Cancel()
	c.Confirm(context.Background())

	assert.False(t, c.State().ConfirmOpen)
	assert.Empty(t, backend.unsubscribed)
}
