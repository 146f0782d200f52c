package sensor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"parking-locator/config"
	"parking-locator/internal/logger"
	"parking-locator/internal/store"
)

const connectTimeout = 10 * time.Second

// MQTTSource keeps the latest reading of every sensor published on a
// topic. Each message is one item or an array of items.
type MQTTSource struct {
	cfg config.MQTTConfig
	log *logger.Logger

	mu       sync.Mutex
	latest   map[int64]store.GatewayItem
	received bool

	updates chan struct{}
	client  mqtt.Client
}

// NewMQTTSource creates an MQTTSource. Connect must be called before
// readings arrive.
func NewMQTTSource(cfg config.MQTTConfig, log *logger.Logger) *MQTTSource {
	if log == nil {
		log = logger.Nop()
	}
	return &MQTTSource{
		cfg:     cfg,
		log:     log,
		latest:  make(map[int64]store.GatewayItem),
		updates: make(chan struct{}, 1),
	}
}

// Name implements Source.
func (s *MQTTSource) Name() string { return "mqtt" }

// Connect dials the broker and subscribes. The subscription is renewed on
// every reconnect.
func (s *MQTTSource) Connect(ctx context.Context) error {
	opts := mqtt.NewClientOptions().
		AddBroker(s.cfg.Broker).
		SetClientID(s.cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(connectTimeout)
	if s.cfg.Username != "" {
		opts.SetUsername(s.cfg.Username)
		opts.SetPassword(s.cfg.Password)
	}
	opts.SetOnConnectHandler(func(c mqtt.Client) {
		token := c.Subscribe(s.cfg.Topic, s.cfg.QoS, func(_ mqtt.Client, m mqtt.Message) {
			if err := s.handleMessage(m.Payload()); err != nil {
				s.log.Warn("ignoring malformed sensor message", map[string]interface{}{"topic": m.Topic(), "error": err.Error()})
			}
		})
		if !token.WaitTimeout(connectTimeout) {
			s.log.Warn("timed out subscribing to sensor topic", map[string]interface{}{"topic": s.cfg.Topic})
			return
		}
		if err := token.Error(); err != nil {
			s.log.Error("failed to subscribe to sensor topic", err, map[string]interface{}{"topic": s.cfg.Topic})
			return
		}
		s.log.Info("subscribed to sensor topic", map[string]interface{}{"broker": s.cfg.Broker, "topic": s.cfg.Topic})
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		s.log.Warn("mqtt connection lost", map[string]interface{}{"error": err.Error()})
	})

	s.client = mqtt.NewClient(opts)
	token := s.client.Connect()
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("connect to mqtt broker %s: %w", s.cfg.Broker, err)
	}
	return nil
}

// Close disconnects from the broker.
func (s *MQTTSource) Close() {
	if s.client != nil {
		s.client.Disconnect(250)
	}
}

// handleMessage merges a payload into the latest readings.
func (s *MQTTSource) handleMessage(payload []byte) error {
	payload = bytes.TrimSpace(payload)
	var items []store.GatewayItem
	if len(payload) > 0 && payload[0] == '[' {
		if err := json.Unmarshal(payload, &items); err != nil {
			return err
		}
	} else {
		var item store.GatewayItem
		if err := json.Unmarshal(payload, &item); err != nil {
			return err
		}
		items = []store.GatewayItem{item}
	}

	s.mu.Lock()
	for _, item := range items {
		if item.ID == 0 {
			continue
		}
		if prev, ok := s.latest[item.ID]; ok {
			// Readings may carry only the state.
			if item.Name == "" {
				item.Name = prev.Name
			}
			if item.Latitude == 0 && item.Longitude == 0 {
				item.Latitude, item.Longitude = prev.Latitude, prev.Longitude
			}
		}
		s.latest[item.ID] = item
	}
	s.received = true
	s.mu.Unlock()

	select {
	case s.updates <- struct{}{}:
	default:
	}
	return nil
}

// Fetch returns the latest reading of every sensor seen so far. Before the
// first message it returns ErrNoData so the store is not wiped.
func (s *MQTTSource) Fetch(ctx context.Context) ([]store.GatewayItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.received {
		return nil, ErrNoData
	}
	items := make([]store.GatewayItem, 0, len(s.latest))
	for _, item := range s.latest {
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

// Updates signals that new readings arrived.
func (s *MQTTSource) Updates() <-chan struct{} {
	return s.updates
}
