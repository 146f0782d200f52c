package sensor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"

	"parking-locator/config"
	"parking-locator/internal/logger"
	"parking-locator/internal/store"
)

// GatewayResponse models the top-level structure of the gateway's response.
type GatewayResponse struct {
	Code int `json:"code"`
	Data struct {
		Page     int                 `json:"page"`
		PageSize int                 `json:"pageSize"`
		Total    int                 `json:"total"`
		Items    []store.GatewayItem `json:"items"`
	} `json:"data"`
}

// HTTPSource pages through the occupancy gateway with POST requests.
type HTTPSource struct {
	req      config.SensorRequest
	client   *http.Client
	attempts int
	log      *logger.Logger

	// newBackOff is replaced in tests.
	newBackOff func() backoff.BackOff
}

// NewHTTPSource creates an HTTPSource. A failing page is retried up to
// cfg.RetryAttempts times with exponential backoff.
func NewHTTPSource(cfg config.SensorConfig, log *logger.Logger) *HTTPSource {
	if log == nil {
		log = logger.Nop()
	}
	var transport http.RoundTripper = &http.Transport{}
	if cfg.HTTPProxy != "" {
		proxyURL, err := url.Parse(cfg.HTTPProxy)
		if err != nil {
			log.Warn("invalid proxy URL, gateway requests will not use a proxy", map[string]interface{}{"proxy": cfg.HTTPProxy, "error": err.Error()})
		} else {
			transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
		}
	}

	return &HTTPSource{
		req:      cfg.Request,
		client:   &http.Client{Transport: transport, Timeout: 30 * time.Second},
		attempts: cfg.RetryAttempts,
		log:      log,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = time.Second
			b.MaxInterval = 10 * time.Second
			return b
		},
	}
}

// Name implements Source.
func (s *HTTPSource) Name() string { return "http" }

// Fetch returns every item the gateway reports. A failure after some pages
// were read returns the partial list together with the error.
func (s *HTTPSource) Fetch(ctx context.Context) ([]store.GatewayItem, error) {
	var all []store.GatewayItem
	total := 1
	pageSize := s.req.PageSize
	for page := 1; (page-1)*pageSize < total; page++ {
		resp, err := s.fetchPageWithRetry(ctx, page)
		if err != nil {
			return all, fmt.Errorf("fetch page %d: %w", page, err)
		}
		if resp.Data.Total == 0 || len(resp.Data.Items) == 0 {
			break
		}
		total = resp.Data.Total
		all = append(all, resp.Data.Items...)
		s.log.Debug("fetched gateway page", map[string]interface{}{"page": page, "total": total, "items": len(all)})
	}
	return all, nil
}

func (s *HTTPSource) fetchPageWithRetry(ctx context.Context, page int) (*GatewayResponse, error) {
	var resp *GatewayResponse
	op := func() error {
		var err error
		resp, err = s.fetchPage(ctx, page)
		return err
	}
	b := backoff.WithContext(backoff.WithMaxRetries(s.newBackOff(), uint64(s.attempts)), ctx)
	notify := func(err error, next time.Duration) {
		s.log.Warn("gateway request failed, retrying", map[string]interface{}{"page": page, "error": err.Error(), "retry_in": next.String()})
	}
	if err := backoff.RetryNotify(op, b, notify); err != nil {
		return nil, err
	}
	return resp, nil
}

// fetchPage fetches a single page. Answers that retrying cannot fix are
// returned as permanent errors.
func (s *HTTPSource) fetchPage(ctx context.Context, page int) (*GatewayResponse, error) {
	payload := make(map[string]any, len(s.req.Payload)+2)
	for k, v := range s.req.Payload {
		payload[k] = v
	}
	payload["page"] = page
	payload["pageSize"] = s.req.PageSize

	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to marshal request payload: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.req.URL, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	for key, value := range s.req.Headers {
		req.Header.Set(key, value)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("received status code: %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, backoff.Permanent(fmt.Errorf("received non-200 status code: %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var gwResp GatewayResponse
	if err := json.Unmarshal(body, &gwResp); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to unmarshal gateway response: %w", err))
	}
	if gwResp.Code != 0 {
		return nil, backoff.Permanent(fmt.Errorf("gateway returned non-zero application code: %d", gwResp.Code))
	}
	return &gwResp, nil
}
