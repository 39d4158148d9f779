// Package safesearch checks media attached to service requests against an
// external image moderation endpoint.
package safesearch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"

	"github.com/samirrijal/civic311/internal/pkg/metrics"
)

// HTTPClient is the subset of *http.Client used here.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config controls the classifier client.
type Config struct {
	URL         string
	Timeout     time.Duration
	MaxFailures int
	MaxRetries  int
	OpenFor     time.Duration
}

// Client implements ports.MediaClassifier. Each check is retried with
// exponential backoff; repeated failures open the circuit breaker.
type Client struct {
	url        string
	http       HTTPClient
	cb         *gobreaker.CircuitBreaker
	maxRetries uint64
}

// rejectedError marks a check the classifier refused as a client error. It
// says nothing about the classifier's health.
type rejectedError struct{ err error }

func (e *rejectedError) Error() string { return e.err.Error() }
func (e *rejectedError) Unwrap() error { return e.err }

// breakerNeutral reports errors that must not count against the breaker:
// rejected checks and callers that gave up.
func breakerNeutral(err error) bool {
	var rejected *rejectedError
	return err == nil || errors.As(err, &rejected) || errors.Is(err, context.Canceled)
}

type checkRequest struct {
	URL string `json:"url"`
}

type checkResponse struct {
	Safe bool `json:"safe"`
}

// New creates a Client using a standard HTTP client with cfg.Timeout.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return NewWithHTTPClient(cfg, &http.Client{Timeout: timeout})
}

// NewWithHTTPClient creates a Client with a custom HTTP client.
func NewWithHTTPClient(cfg Config, client HTTPClient) *Client {
	maxFailures := cfg.MaxFailures
	if maxFailures <= 0 {
		maxFailures = 5
	}
	openFor := cfg.OpenFor
	if openFor <= 0 {
		openFor = 30 * time.Second
	}
	retries := cfg.MaxRetries
	if retries < 0 {
		retries = 0
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:     "safesearch",
		Interval: time.Minute,
		Timeout:  openFor,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= uint32(maxFailures)
		},
		IsSuccessful: breakerNeutral,
	})

	return &Client{url: cfg.URL, http: client, cb: cb, maxRetries: uint64(retries)}
}

// IsSafe reports whether the media at mediaURL may be published.
func (c *Client) IsSafe(ctx context.Context, mediaURL string) (bool, error) {
	res, err := c.cb.Execute(func() (interface{}, error) {
		var safe bool
		op := func() error {
			var err error
			safe, err = c.check(ctx, mediaURL)
			return err
		}
		bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.maxRetries), ctx)
		if err := backoff.Retry(op, bo); err != nil {
			return nil, err
		}
		return safe, nil
	})
	if err != nil {
		metrics.SafeSearchChecks.WithLabelValues("error").Inc()
		return false, fmt.Errorf("safesearch: %w", err)
	}

	safe := res.(bool)
	if safe {
		metrics.SafeSearchChecks.WithLabelValues("safe").Inc()
	} else {
		metrics.SafeSearchChecks.WithLabelValues("unsafe").Inc()
	}
	return safe, nil
}

// State returns the breaker state, reported by the readiness probe.
func (c *Client) State() string {
	return c.cb.State().String()
}

func (c *Client) check(ctx context.Context, mediaURL string) (bool, error) {
	body, err := json.Marshal(checkRequest{URL: mediaURL})
	if err != nil {
		return false, backoff.Permanent(&rejectedError{err})
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return false, backoff.Permanent(&rejectedError{err})
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return false, fmt.Errorf("classifier returned %s", resp.Status)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return false, backoff.Permanent(&rejectedError{fmt.Errorf("classifier returned %s", resp.Status)})
	}

	var out checkResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return false, backoff.Permanent(fmt.Errorf("decode classifier response: %w", err))
	}
	return out.Safe, nil
}
