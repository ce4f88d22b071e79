// Package clients provides the HTTP implementation of core.Transport.
package clients

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/http2"
	"golang.org/x/time/rate"

	"github.com/ajitpratap0/nebula-crm/pkg/config"
	"github.com/ajitpratap0/nebula-crm/pkg/connector/core"
	"github.com/ajitpratap0/nebula-crm/pkg/errors"
	jsonpool "github.com/ajitpratap0/nebula-crm/pkg/json"
	"github.com/ajitpratap0/nebula-crm/pkg/metrics"
)

const (
	defaultUserAgent = "Nebula-CRM/1.0"
	maxErrorMessage  = 512
)

var _ core.Transport = (*HTTPClient)(nil)

// HTTPClient sends JSON requests and returns parsed JSON bodies. It performs
// exactly one attempt per call; failures surface to the caller.
type HTTPClient struct {
	config      *HTTPConfig
	logger      *zap.Logger
	httpClient  *http.Client
	transport   *http.Transport
	rateLimiter *rate.Limiter
	metrics     *HTTPMetrics
}

// HTTPConfig configures the HTTP client
type HTTPConfig struct {
	MaxIdleConns          int           `json:"max_idle_conns"`
	MaxIdleConnsPerHost   int           `json:"max_idle_conns_per_host"`
	IdleConnTimeout       time.Duration `json:"idle_conn_timeout"`
	EnableHTTP2           bool          `json:"enable_http2"`
	DialTimeout           time.Duration `json:"dial_timeout"`
	TLSHandshakeTimeout   time.Duration `json:"tls_handshake_timeout"`
	ResponseHeaderTimeout time.Duration `json:"response_header_timeout"`
	RequestTimeout        time.Duration `json:"request_timeout"`
	KeepAlive             time.Duration `json:"keep_alive"`
	InsecureSkipVerify    bool          `json:"insecure_skip_verify"`
	// RateLimit is requests per second; 0 disables limiting
	RateLimit float64 `json:"rate_limit"`
	RateBurst int     `json:"rate_burst"`
	// Headers are added to every request unless the caller sets them
	Headers   map[string]string `json:"headers"`
	UserAgent string            `json:"user_agent"`
}

// DefaultHTTPConfig returns default configuration
func DefaultHTTPConfig() *HTTPConfig {
	return &HTTPConfig{
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		EnableHTTP2:           true,
		DialTimeout:           10 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		RequestTimeout:        30 * time.Second,
		KeepAlive:             30 * time.Second,
		UserAgent:             defaultUserAgent,
	}
}

// HTTPConfigFromBase maps connector configuration onto client settings.
func HTTPConfigFromBase(cfg *config.BaseConfig) *HTTPConfig {
	hc := DefaultHTTPConfig()
	if cfg == nil {
		return hc
	}
	if cfg.Timeouts.Request > 0 {
		hc.RequestTimeout = cfg.Timeouts.Request
		hc.ResponseHeaderTimeout = cfg.Timeouts.Request
	}
	if cfg.Timeouts.Connection > 0 {
		hc.DialTimeout = cfg.Timeouts.Connection
		hc.TLSHandshakeTimeout = cfg.Timeouts.Connection
	}
	if cfg.Timeouts.Idle > 0 {
		hc.IdleConnTimeout = cfg.Timeouts.Idle
	}
	if cfg.Timeouts.KeepAlive > 0 {
		hc.KeepAlive = cfg.Timeouts.KeepAlive
	}
	hc.InsecureSkipVerify = cfg.Security.TLSSkipVerify
	hc.RateLimit = cfg.Reliability.RateLimitPerSec
	hc.Headers = cfg.Endpoint.Headers
	return hc
}

// NewHTTPClient creates a new HTTP client
func NewHTTPClient(cfg *HTTPConfig, logger *zap.Logger) *HTTPClient {
	if cfg == nil {
		cfg = DefaultHTTPConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client := &HTTPClient{
		config:  cfg,
		logger:  logger.With(zap.String("component", "http_client")),
		metrics: NewHTTPMetrics(),
	}

	client.transport = &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.DialTimeout,
			KeepAlive: cfg.KeepAlive,
		}).DialContext,
		MaxIdleConns:          cfg.MaxIdleConns,
		MaxIdleConnsPerHost:   cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:       cfg.IdleConnTimeout,
		TLSHandshakeTimeout:   cfg.TLSHandshakeTimeout,
		ResponseHeaderTimeout: cfg.ResponseHeaderTimeout,
		ExpectContinueTimeout: 1 * time.Second,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: cfg.InsecureSkipVerify, //nolint:gosec // operator opt-in
			MinVersion:         tls.VersionTLS12,
		},
	}

	if cfg.EnableHTTP2 {
		if err := http2.ConfigureTransport(client.transport); err != nil {
			client.logger.Warn("failed to configure HTTP/2", zap.Error(err))
		}
	}

	client.httpClient = &http.Client{
		Transport: client.transport,
		Timeout:   cfg.RequestTimeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return fmt.Errorf("too many redirects")
			}
			return nil
		},
	}

	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		client.rateLimiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	return client
}

// Get performs an HTTP GET request
func (c *HTTPClient) Get(ctx context.Context, url string, headers map[string]string) (interface{}, error) {
	return c.Do(ctx, http.MethodGet, url, nil, headers)
}

// Post performs an HTTP POST request with a JSON body
func (c *HTTPClient) Post(ctx context.Context, url string, body interface{}, headers map[string]string) (interface{}, error) {
	return c.Do(ctx, http.MethodPost, url, body, headers)
}

// Patch performs an HTTP PATCH request with a JSON body
func (c *HTTPClient) Patch(ctx context.Context, url string, body interface{}, headers map[string]string) (interface{}, error) {
	return c.Do(ctx, http.MethodPatch, url, body, headers)
}

// Do performs one request. Non-2xx statuses return *errors.RemoteError;
// network failures return a connection error. An empty success body
// yields a nil result.
func (c *HTTPClient) Do(ctx context.Context, method, url string, body interface{}, headers map[string]string) (interface{}, error) {
	if c.rateLimiter != nil {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConnection, "rate limiter wait cancelled")
		}
	}

	req, err := c.newRequest(ctx, method, url, body, headers)
	if err != nil {
		return nil, err
	}

	metrics.InFlightRequests.Inc()
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.InFlightRequests.Dec()
	if err != nil {
		c.metrics.RecordRequest(method, 0, time.Since(start))
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "request failed").
			WithDetail("method", method).
			WithDetail("url", url)
	}
	defer resp.Body.Close()

	data, readErr := io.ReadAll(resp.Body)
	latency := time.Since(start)
	c.metrics.RecordRequest(method, resp.StatusCode, latency)

	c.logger.Debug("remote call",
		zap.String("method", method),
		zap.String("url", url),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", latency))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &errors.RemoteError{
			StatusCode: resp.StatusCode,
			Message:    errorMessage(data),
			URL:        url,
		}
	}
	if readErr != nil {
		return nil, errors.Wrap(readErr, errors.ErrorTypeConnection, "failed to read response body").
			WithDetail("url", url)
	}

	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}
	var out interface{}
	if err := jsonpool.Unmarshal(data, &out); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "invalid JSON response").
			WithDetail("url", url)
	}
	return out, nil
}

func (c *HTTPClient) newRequest(ctx context.Context, method, url string, body interface{}, headers map[string]string) (*http.Request, error) {
	var reader io.Reader = http.NoBody
	if body != nil {
		payload, err := jsonpool.Marshal(body)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeInternal, "failed to encode request body")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to create request").
			WithDetail("url", url)
	}

	for key, value := range c.config.Headers {
		req.Header.Set(key, value)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
	if body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if req.Header.Get("User-Agent") == "" {
		ua := c.config.UserAgent
		if ua == "" {
			ua = defaultUserAgent
		}
		req.Header.Set("User-Agent", ua)
	}
	return req, nil
}

// Stats returns current client statistics
func (c *HTTPClient) Stats() HTTPStats {
	return c.metrics.Snapshot()
}

// Close releases idle connections
func (c *HTTPClient) Close() error {
	c.transport.CloseIdleConnections()
	return nil
}

// errorMessage pulls a human-readable message out of an error body. It
// understands {"message"}, {"error":"..."}, {"error":{"message"}} and the
// OData {"error":{"message":{"value"}}} shape, falling back to the raw text.
func errorMessage(body []byte) string {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return ""
	}

	var doc map[string]interface{}
	if err := jsonpool.Unmarshal(body, &doc); err == nil {
		if msg := messageFrom(doc); msg != "" {
			return msg
		}
	}

	text := strings.TrimSpace(string(body))
	if len(text) > maxErrorMessage {
		text = text[:maxErrorMessage] + "..."
	}
	return text
}

func messageFrom(doc map[string]interface{}) string {
	if msg, ok := doc["message"].(string); ok && msg != "" {
		return msg
	}
	switch e := doc["error"].(type) {
	case string:
		return e
	case map[string]interface{}:
		switch m := e["message"].(type) {
		case string:
			return m
		case map[string]interface{}:
			if v, ok := m["value"].(string); ok {
				return v
			}
		}
	}
	return ""
}
