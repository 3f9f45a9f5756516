// Package ingest is the client side of the telemetry ingestion API.
package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultTimeout bounds a submit request.
	DefaultTimeout = 10 * time.Second
	// QueryTimeout bounds probes and auxiliary queries.
	QueryTimeout = 5 * time.Second

	maxErrorBody = 512
)

// ErrTransport wraps failures below HTTP: refused connections, timeouts,
// DNS errors and undecodable responses.
var ErrTransport = errors.New("transport failure")

// HTTPError is returned when the API answers with an unexpected status.
type HTTPError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: server returned %d", e.Method, e.Path, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: server returned %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// GetStatusCode returns the HTTP status code.
func (e *HTTPError) GetStatusCode() int {
	return e.StatusCode
}

// Client talks to one ingestion API. It is safe for concurrent use and is
// meant to be reused for the life of the process.
type Client struct {
	baseURL    string
	token      string
	userAgent  string
	timeout    time.Duration
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithToken sends "Authorization: Bearer <token>" on every request.
func WithToken(token string) Option { return func(c *Client) { c.token = token } }

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option { return func(c *Client) { c.userAgent = ua } }

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.httpClient = hc } }

// NewClient creates a client for baseURL. timeout bounds submit requests;
// zero means DefaultTimeout.
func NewClient(baseURL string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  "pi-telemetry-agent",
		timeout:    timeout,
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DoRequest performs one request. payload, when non-nil, is sent as JSON.
// The response must carry exactly the expected status; its body is decoded
// into out when out is non-nil.
func (c *Client) DoRequest(ctx context.Context, method, path string, timeout time.Duration, payload, out any, expected int) error {
	var body io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal payload: %w", err)
		}
		body = bytes.NewReader(jsonData)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", uuid.NewString())
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", ErrTransport, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != expected {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &HTTPError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(bodyBytes)),
		}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decoding %s %s: %w", ErrTransport, method, path, err)
	}
	return nil
}

// Submit posts a sample and succeeds only on 201 Created.
func (c *Client) Submit(ctx context.Context, path string, payload any) error {
	return c.DoRequest(ctx, http.MethodPost, path, c.timeout, payload, nil, http.StatusCreated)
}

// Probe checks that a health path answers 200.
func (c *Client) Probe(ctx context.Context, path string) error {
	return c.DoRequest(ctx, http.MethodGet, path, QueryTimeout, nil, nil, http.StatusOK)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.DoRequest(ctx, http.MethodGet, path, QueryTimeout, nil, out, http.StatusOK)
}
