// Package sensor ingests spot occupancy from the campus sensor gateway,
// either by polling its paginated HTTP API or by listening on MQTT.
package sensor

import (
	"context"
	"errors"
	"time"

	"parking-locator/config"
	"parking-locator/internal/live"
	"parking-locator/internal/logger"
	"parking-locator/internal/store"
)

// ErrNoData is returned by a Source that has nothing to report yet.
var ErrNoData = errors.New("no sensor data yet")

// Source yields the current reading of every sensor.
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]store.GatewayItem, error)
}

// notifier is implemented by sources that know when new data arrived.
type notifier interface {
	Updates() <-chan struct{}
}

// Store is the part of the store the ingest writes to.
type Store interface {
	UpsertSpots(ctx context.Context, now time.Time, items []store.GatewayItem) error
	UpdateOccupancy(ctx context.Context, now time.Time, items []store.GatewayItem, classify store.Classifier) (store.Changes, error)
}

// Dispatcher queues "spot is free" notifications.
type Dispatcher interface {
	Dispatch(spotID int64)
}

// Publisher announces occupancy changes to live clients.
type Publisher interface {
	Publish(ev live.Event)
}

// Invalidator drops cached responses under a path prefix.
type Invalidator interface {
	Invalidate(prefix string) int
}

// Service orchestrates the ingest cycle.
type Service struct {
	cfg        config.SensorConfig
	store      Store
	source     Source
	dispatcher Dispatcher
	publisher  Publisher
	cache      Invalidator
	log        *logger.Logger
	now        func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithDispatcher sets where freed spots are sent for push notifications.
func WithDispatcher(d Dispatcher) Option {
	return func(s *Service) { s.dispatcher = d }
}

// WithPublisher sets where change events are broadcast.
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithCache sets the response cache flushed after changes.
func WithCache(c Invalidator) Option {
	return func(s *Service) { s.cache = c }
}

// NewService creates and initializes a new ingest service.
func NewService(cfg config.SensorConfig, st Store, source Source, log *logger.Logger, opts ...Option) *Service {
	if log == nil {
		log = logger.Nop()
	}
	s := &Service{
		cfg:    cfg,
		store:  st,
		source: source,
		log:    log,
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewSource builds the source selected by cfg.Source.
func NewSource(ctx context.Context, cfg config.SensorConfig, log *logger.Logger) (Source, func(), error) {
	if cfg.Source == "mqtt" {
		src := NewMQTTSource(cfg.MQTT, log)
		if err := src.Connect(ctx); err != nil {
			return nil, nil, err
		}
		return src, src.Close, nil
	}
	return NewHTTPSource(cfg, log), func() {}, nil
}

// Classify maps a raw sensor state to a spot state using the configured
// value lists. A missing state is unknown.
func (s *Service) Classify(state *int) store.SpotStateType {
	if state == nil {
		return store.StateTypeUnknown
	}
	for _, v := range s.cfg.StateFreeValues {
		if *state == v {
			return store.StateTypeFree
		}
	}
	for _, v := range s.cfg.StateOccupiedValues {
		if *state == v {
			return store.StateTypeOccupied
		}
	}
	return store.StateTypeUnknown
}

// Run ingests once, then on every interval tick and every source update,
// until ctx is cancelled.
func (s *Service) Run(ctx context.Context) {
	if !s.cfg.Enabled {
		s.log.Info("sensor ingest is disabled", nil)
		return
	}
	s.log.Info("starting sensor ingest", map[string]interface{}{"source": s.source.Name(), "interval": s.cfg.Interval.String()})

	var updates <-chan struct{}
	if n, ok := s.source.(notifier); ok {
		updates = n.Updates()
	}

	s.IngestOnce(ctx)

	timer := time.NewTimer(s.cfg.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("sensor ingest shutting down", nil)
			return
		case <-timer.C:
			s.IngestOnce(ctx)
			timer.Reset(s.cfg.Interval)
		case <-updates:
			s.IngestOnce(ctx)
		}
	}
}

// IngestOnce performs a single ingest cycle and returns what changed.
func (s *Service) IngestOnce(ctx context.Context) store.Changes {
	now := s.now()

	items, err := s.source.Fetch(ctx)
	if errors.Is(err, ErrNoData) {
		return store.Changes{}
	}
	if err != nil {
		if len(items) == 0 {
			// Without any item every spot would turn unknown.
			s.log.Error("ingest aborted, no sensor data retrieved", err, nil)
			return store.Changes{}
		}
		s.log.Warn("partial sensor data", map[string]interface{}{"error": err.Error(), "items": len(items)})
	}

	if err := s.store.UpsertSpots(ctx, now, items); err != nil {
		s.log.Error("failed to upsert spots", err, nil)
		return store.Changes{}
	}

	changes, err := s.store.UpdateOccupancy(ctx, now, items, s.Classify)
	if err != nil {
		s.log.Error("failed to update occupancy", err, nil)
		return store.Changes{}
	}
	if changes.Empty() {
		s.log.Debug("ingest finished without changes", map[string]interface{}{"items": len(items)})
		return changes
	}

	if s.cache != nil {
		s.cache.Invalidate("/api/spots")
	}
	if s.publisher != nil {
		s.publisher.Publish(live.Event{
			Type:    live.EventSpotsChanged,
			Changed: changes.Changed,
			Freed:   changes.Freed,
			At:      now,
		})
	}
	if s.dispatcher != nil {
		for _, spotID := range changes.Freed {
			s.dispatcher.Dispatch(spotID)
		}
	}

	s.log.Info("ingest finished", map[string]interface{}{"items": len(items), "changed": len(changes.Changed), "freed": len(changes.Freed)})
	return changes
}
