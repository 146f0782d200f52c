package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"

	"parking-locator/internal/i18n"
	"parking-locator/internal/logger"
	"parking-locator/internal/model"
)

// NotificationSender defines the interface for sending a web push notification.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of NotificationSender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// Store is the part of the store the workers read and prune.
type Store interface {
	GetSpot(ctx context.Context, id int64) (model.Spot, error)
	PushSubscriptionsForSpot(ctx context.Context, spotID int64) ([]model.PushSubscription, error)
	DeletePushSubscription(ctx context.Context, endpoint string) error
}

// Payload is the JSON body delivered to the browser.
type Payload struct {
	Title  string `json:"title"`
	Body   string `json:"body"`
	SpotID int64  `json:"spotId"`
}

// WorkerPool manages a pool of workers for sending "spot is free"
// notifications.
type WorkerPool struct {
	size    int
	jobs    chan int64
	store   Store
	webpush *webpush.Options
	sender  NotificationSender
	catalog *i18n.Catalog
	log     *logger.Logger
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(size int, store Store, webpushOptions *webpush.Options, catalog *i18n.Catalog, log *logger.Logger) *WorkerPool {
	if log == nil {
		log = logger.Nop()
	}
	return &WorkerPool{
		size:    size,
		jobs:    make(chan int64, size),
		store:   store,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
		catalog: catalog,
		log:     log,
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	wp.log.Debug("notification worker started", map[string]interface{}{"worker": id})
	for {
		select {
		case spotID := <-wp.jobs:
			wp.sendNotificationsForSpot(ctx, spotID)
		case <-ctx.Done():
			wp.log.Debug("notification worker shutting down", map[string]interface{}{"worker": id})
			return
		}
	}
}

// Dispatch queues a freed spot. It blocks while the queue is full.
func (wp *WorkerPool) Dispatch(spotID int64) {
	wp.jobs <- spotID
}

// Jobs returns the jobs channel for testing.
func (wp *WorkerPool) Jobs() chan int64 {
	return wp.jobs
}

func (wp *WorkerPool) sendNotificationsForSpot(ctx context.Context, spotID int64) {
	subscriptions, err := wp.store.PushSubscriptionsForSpot(ctx, spotID)
	if err != nil {
		wp.log.Error("failed to fetch push subscriptions", err, map[string]interface{}{"spot_id": spotID})
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	label := fmt.Sprintf("%d", spotID)
	if spot, err := wp.store.GetSpot(ctx, spotID); err != nil {
		wp.log.Warn("failed to fetch spot name", map[string]interface{}{"spot_id": spotID, "error": err.Error()})
	} else if spot.Name != "" {
		label = spot.Name
	}

	payload, err := json.Marshal(Payload{
		Title:  wp.catalog.T("notifications.spotFreeTitle"),
		Body:   fmt.Sprintf(wp.catalog.T("notifications.spotFreeBody"), label),
		SpotID: spotID,
	})
	if err != nil {
		wp.log.Error("failed to encode push payload", err, nil)
		return
	}

	wp.log.Info("sending spot free notifications", map[string]interface{}{"spot_id": spotID, "count": len(subscriptions)})
	for _, sub := range subscriptions {
		wp.sendNotification(ctx, sub, payload)
	}
}

func (wp *WorkerPool) sendNotification(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		wp.log.Error("failed to send notification", err, map[string]interface{}{"endpoint": sub.Endpoint})
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone {
		wp.log.Info("push subscription expired, deleting", map[string]interface{}{"endpoint": sub.Endpoint})
		if err := wp.store.DeletePushSubscription(ctx, sub.Endpoint); err != nil {
			wp.log.Error("failed to delete expired push subscription", err, map[string]interface{}{"endpoint": sub.Endpoint})
		}
	}
}
