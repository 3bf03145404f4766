// Package nerdgraph is a minimal client for the New Relic NerdGraph
// (GraphQL) API covering the dashboard query and update operations.
package nerdgraph

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/AD7six/chart-refresh-updater/internal/config"
	"github.com/AD7six/chart-refresh-updater/internal/logging"
)

const (
	defaultHTTPTimeout = 30 * time.Second
	defaultMaxBodySize = 10 * 1024 * 1024 // 10MB
	userAgent          = "chart-refresh-updater"
)

// ErrNotFound is wrapped by the RemoteError returned when a GUID does not
// resolve to a dashboard.
var ErrNotFound = errors.New("dashboard not found")

// RemoteError is returned for every failed request: transport errors and
// timeouts, non-2xx statuses, GraphQL error payloads and malformed responses.
type RemoteError struct {
	Op         string // "fetch" or "persist"
	GUID       string
	StatusCode int // 0 when no HTTP response was received
	Err        error
}

func (e *RemoteError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s dashboard %s: HTTP %d: %v", e.Op, e.GUID, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s dashboard %s: %v", e.Op, e.GUID, e.Err)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// Client talks to one NerdGraph endpoint with one API key. Requests are never
// retried. Client is safe for concurrent use.
type Client struct {
	Endpoint string
	APIKey   string

	httpClient  *http.Client
	limiter     *rate.Limiter
	maxBodySize int64
	logger      *slog.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client, including its timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRateLimit paces requests to rps per second across all callers.
// Zero or less disables pacing.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// WithMaxBodySize bounds how much of a response body is read.
func WithMaxBodySize(n int64) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxBodySize = n
		}
	}
}

// WithLogger sets the logger used for request debugging.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New returns a client for endpoint. A timeout of zero or less uses the
// default of 30 seconds.
func New(endpoint, apiKey string, timeout time.Duration, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("an API key is required to authenticate against NerdGraph")
	}
	if endpoint == "" {
		return nil, fmt.Errorf("a NerdGraph endpoint is required")
	}
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}

	c := &Client{
		Endpoint:    endpoint,
		APIKey:      apiKey,
		httpClient:  &http.Client{Timeout: timeout},
		limiter:     rate.NewLimiter(rate.Inf, 1),
		maxBodySize: defaultMaxBodySize,
		logger:      logging.Logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// NewFromSettings builds a client for the settings' region, timeout, body
// size limit and request rate.
func NewFromSettings(s config.Settings, opts ...Option) (*Client, error) {
	base := []Option{
		WithRateLimit(s.RequestsPerSecond),
		WithMaxBodySize(s.HTTPMaxBodySize),
	}
	return New(s.Region.Endpoint(), s.APIKey, s.HTTPTimeout, append(base, opts...)...)
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLError struct {
	Message string `json:"message"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors"`
}

// do posts one GraphQL request and decodes its data member into out.
func (c *Client) do(ctx context.Context, op, guid string, req graphQLRequest, out any) error {
	fail := func(status int, err error) error {
		return &RemoteError{Op: op, GUID: guid, StatusCode: status, Err: err}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return fail(0, fmt.Errorf("waiting for rate limiter: %w", err))
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return fail(0, fmt.Errorf("failed to encode request: %w", err))
	}
	c.logger.Debug("nerdgraph request", "op", op, "guid", guid, "payload", string(payload))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return fail(0, fmt.Errorf("could not create request: %w", err))
	}
	httpReq.Header.Set("API-Key", c.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fail(0, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodySize+1))
	if err != nil {
		return fail(resp.StatusCode, fmt.Errorf("failed to read response body: %w", err))
	}
	if int64(len(body)) > c.maxBodySize {
		return fail(resp.StatusCode, fmt.Errorf("response body exceeds %d bytes", c.maxBodySize))
	}
	c.logger.Debug("nerdgraph response", "op", op, "guid", guid, "status", resp.StatusCode, "body", string(body))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fail(resp.StatusCode, fmt.Errorf("API error: %s: %s", resp.Status, snippet(body)))
	}

	var envelope graphQLResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fail(resp.StatusCode, fmt.Errorf("failed to decode response: %w", err))
	}
	if len(envelope.Errors) > 0 {
		msgs := make([]string, len(envelope.Errors))
		for i, e := range envelope.Errors {
			msgs[i] = e.Message
		}
		return fail(resp.StatusCode, fmt.Errorf("GraphQL error: %s", strings.Join(msgs, ", ")))
	}
	if isNull(envelope.Data) {
		return fail(resp.StatusCode, fmt.Errorf("malformed response: missing data"))
	}

	dec := json.NewDecoder(bytes.NewReader(envelope.Data))
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return fail(resp.StatusCode, fmt.Errorf("malformed response data: %w", err))
	}
	return nil
}

func isNull(raw json.RawMessage) bool {
	s := strings.TrimSpace(string(raw))
	return s == "" || s == "null"
}

// snippet trims a response body for use in an error message.
func snippet(body []byte) string {
	const max = 512
	s := strings.TrimSpace(string(body))
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
