// Package feed downloads and parses USGS GeoJSON earthquake feeds.
package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/dandantas/disloc/internal/model"
)

// maxBodySize limits downloaded documents to 1MB
const maxBodySize = 1024 * 1024

// ErrCircuitOpen is returned while the circuit breaker rejects requests
var ErrCircuitOpen = errors.New("circuit breaker is open")

// Client fetches remote documents
type Client struct {
	httpClient *http.Client
	retry      *RetryStrategy
	breaker    *CircuitBreaker
}

// ClientOption customizes a Client
type ClientOption func(*Client)

// WithRetry overrides the retry configuration
func WithRetry(config RetryConfig) ClientOption {
	return func(c *Client) { c.retry = NewRetryStrategy(config) }
}

// WithCircuitBreaker overrides the circuit breaker
func WithCircuitBreaker(cb *CircuitBreaker) ClientOption {
	return func(c *Client) { c.breaker = cb }
}

// NewClient creates a feed client on top of httpClient
func NewClient(httpClient *http.Client, opts ...ClientOption) *Client {
	c := &Client{
		httpClient: httpClient,
		retry:      NewRetryStrategy(RetryConfig{}),
		breaker:    NewCircuitBreaker(5, 2, 60*time.Second),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch downloads url and returns its body. Non-2xx responses are errors;
// network errors, 5xx and 429 are retried with exponential backoff.
func (c *Client) Fetch(ctx context.Context, url string) ([]byte, error) {
	if !c.breaker.CanAttempt() {
		slog.Warn("Circuit breaker is open, skipping feed request",
			"url", url,
			"circuit_state", c.breaker.State().String(),
		)
		return nil, ErrCircuitOpen
	}

	for attempt := 1; ; attempt++ {
		body, statusCode, err := c.fetchOnce(ctx, url)
		if err == nil {
			c.breaker.RecordSuccess()
			return body, nil
		}

		if ctx.Err() != nil || !c.retry.ShouldRetry(attempt, statusCode, err) {
			// Client errors say nothing about the feed's health
			if statusCode < 400 || statusCode >= 500 || statusCode == http.StatusTooManyRequests {
				c.breaker.RecordFailure()
			}
			return nil, err
		}

		delay := c.retry.CalculateDelay(attempt)
		slog.Warn("Feed request failed, retrying",
			"url", url,
			"attempt", attempt,
			"next_retry_ms", delay.Milliseconds(),
			"error", err.Error(),
		)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// fetchOnce performs a single request
func (c *Client) fetchOnce(ctx context.Context, url string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}

	slog.Debug("Feed request completed",
		"url", url,
		"status_code", resp.StatusCode,
		"body_length", len(body),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, resp.StatusCode, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}

	return body, resp.StatusCode, nil
}

// FetchEvent downloads and parses one event detail document
func (c *Client) FetchEvent(ctx context.Context, url string) (*model.Event, error) {
	body, err := c.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	return ParseEvent(body)
}

// FetchSummary downloads a summary feed and returns events at or above minMag
func (c *Client) FetchSummary(ctx context.Context, url string, minMag float64) ([]model.EventSummary, error) {
	body, err := c.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	return ParseSummary(body, minMag)
}
