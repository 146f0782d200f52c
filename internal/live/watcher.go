package live

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"

	"parking-locator/internal/logger"
)

// Path is where the backend serves the live feed.
const Path = "/api/ws"

// EndpointFor turns a backend base URL into the websocket URL of the feed.
func EndpointFor(baseURL string) (string, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return "", fmt.Errorf("invalid base url %q: %w", baseURL, err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path += Path
	return u.String(), nil
}

// Watcher follows the live feed and reconnects with exponential backoff
// when the connection drops.
type Watcher struct {
	endpoint string
	dialer   *websocket.Dialer
	log      *logger.Logger

	// newBackOff is replaced in tests.
	newBackOff func() backoff.BackOff
}

// NewWatcher creates a Watcher for the websocket endpoint.
func NewWatcher(endpoint string, log *logger.Logger) *Watcher {
	if log == nil {
		log = logger.Nop()
	}
	return &Watcher{
		endpoint: endpoint,
		dialer:   websocket.DefaultDialer,
		log:      log,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			b.MaxInterval = 30 * time.Second
			b.MaxElapsedTime = 0
			return b
		},
	}
}

// Watch calls onEvent for every event until ctx is cancelled. It only
// returns ctx's error.
func (w *Watcher) Watch(ctx context.Context, onEvent func(Event)) error {
	b := backoff.WithContext(w.newBackOff(), ctx)
	op := func() error {
		err := w.session(ctx, b, onEvent)
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		return err
	}
	notify := func(err error, next time.Duration) {
		w.log.Warn("live feed disconnected, retrying", map[string]interface{}{"error": err.Error(), "retry_in": next.String()})
	}
	return backoff.RetryNotify(op, b, notify)
}

// session runs one connection until it fails.
func (w *Watcher) session(ctx context.Context, b backoff.BackOff, onEvent func(Event)) error {
	conn, _, err := w.dialer.DialContext(ctx, w.endpoint, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", w.endpoint, err)
	}
	defer conn.Close()
	b.Reset()
	w.log.Debug("live feed connected", map[string]interface{}{"endpoint": w.endpoint})

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stop:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			w.log.Warn("ignoring malformed live event", map[string]interface{}{"error": err.Error()})
			continue
		}
		onEvent(ev)
	}
}
