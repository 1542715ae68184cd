// Package api is the HTTP client layer for the remote fleet backend: one
// file per resource, plain request/response, no retry and no caching.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"car-rental/pkg/jwt"
	"car-rental/pkg/logger"
	"car-rental/pkg/metrics"
)

var (
	// ErrNotFound matches any *Error with status 404 via errors.Is.
	ErrNotFound = errors.New("not found")
	// ErrUnreachable wraps transport failures: the backend never answered.
	ErrUnreachable = errors.New("backend unreachable")
)

// Error is a non-2xx backend response.
type Error struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *Error) Error() string {
	return fmt.Sprintf("backend %s %s (status %d): %s", e.Method, e.Path, e.Status, e.Body)
}

func (e *Error) Is(target error) bool {
	return target == ErrNotFound && e.Status == http.StatusNotFound
}

// Client talks to the fleet backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        logger.Logger
}

// NewClient returns a backend client rooted at baseURL.
func NewClient(baseURL string, timeout time.Duration, log logger.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: log,
	}
}

// do sends in as JSON (when non-nil) and decodes the response into out (when
// non-nil). resource labels the call in metrics and logs.
func (c *Client) do(ctx context.Context, method, resource, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal %s request: %w", resource, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := jwt.TokenFrom(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.BackendDuration.WithLabelValues(method, resource).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.BackendRequests.WithLabelValues(method, resource, "error").Inc()
		return fmt.Errorf("%w: failed to execute %s request: %w", ErrUnreachable, resource, err)
	}
	defer resp.Body.Close()
	metrics.BackendRequests.WithLabelValues(method, resource, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.log.Warn("backend call failed",
			logger.String("method", method),
			logger.String("path", path),
			logger.Int("status", resp.StatusCode))
		return &Error{Method: method, Path: path, Status: resp.StatusCode, Body: string(bytes.TrimSpace(raw))}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to decode %s response: %w", resource, err)
	}
	return nil
}
