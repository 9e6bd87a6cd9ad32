// Package httpclient provides HTTP client functionality for API operations
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
)

const (
	// DefaultTimeout is the default timeout for HTTP requests
	DefaultTimeout = 30 * time.Second

	// DefaultMaxRetries is the default number of attempts for retryable failures
	DefaultMaxRetries = 3

	// MaxResponseSize is the maximum allowed response size (10MB)
	MaxResponseSize = 10 * 1024 * 1024

	// UserAgent is the user agent string for HTTP requests
	UserAgent = "customer-sync/1.0"
)

// Client is an interface for HTTP operations against JSON APIs
type Client interface {
	// Get performs an HTTP GET request and returns the response body
	Get(ctx context.Context, url string) ([]byte, error)

	// PostJSON performs an HTTP POST request with a JSON body and
	// returns the response body
	PostJSON(ctx context.Context, url string, payload any) ([]byte, error)
}

// Option configures a DefaultClient
type Option func(*DefaultClient)

// WithBearerToken sets a bearer token sent with every request
func WithBearerToken(token string) Option {
	return func(c *DefaultClient) {
		c.token = token
	}
}

// WithTimeout sets the per-request timeout
func WithTimeout(timeout time.Duration) Option {
	return func(c *DefaultClient) {
		if timeout > 0 {
			c.client.Timeout = timeout
		}
	}
}

// WithMaxRetries sets the maximum number of attempts for retryable failures
func WithMaxRetries(maxRetries int) Option {
	return func(c *DefaultClient) {
		if maxRetries > 0 {
			c.maxRetries = maxRetries
		}
	}
}

// DefaultClient is the default HTTP client implementation
type DefaultClient struct {
	client     *http.Client
	token      string
	maxRetries int
}

// NewDefaultClient creates a new default HTTP client
func NewDefaultClient(opts ...Option) Client {
	c := &DefaultClient{
		client: &http.Client{
			Timeout: DefaultTimeout,
		},
		maxRetries: DefaultMaxRetries,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get performs an HTTP GET request
func (c *DefaultClient) Get(ctx context.Context, url string) ([]byte, error) {
	return c.doWithRetry(ctx, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	})
}

// PostJSON performs an HTTP POST request with a JSON-encoded body
func (c *DefaultClient) PostJSON(ctx context.Context, url string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request body: %w", err)
	}

	return c.doWithRetry(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
}

// doWithRetry executes a request, retrying transient failures with
// exponential backoff. 4xx responses other than 429 are permanent.
func (c *DefaultClient) doWithRetry(ctx context.Context, newRequest func() (*http.Request, error)) ([]byte, error) {
	op := func() ([]byte, error) {
		req, err := newRequest()
		if err != nil {
			return nil, backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
		}
		return c.do(req)
	}

	return backoff.Retry(ctx, op,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(uint(c.maxRetries)),
	)
}

func (c *DefaultClient) do(req *http.Request) ([]byte, error) {
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		httpErr := NewHTTPError(resp.StatusCode, req.URL.String(), resp.Status)
		if isRetryable(resp.StatusCode) {
			return nil, httpErr
		}
		return nil, backoff.Permanent(httpErr)
	}

	if resp.ContentLength > MaxResponseSize {
		return nil, backoff.Permanent(fmt.Errorf("response size %d bytes exceeds maximum allowed size of %d bytes",
			resp.ContentLength, MaxResponseSize))
	}

	// Use LimitReader to prevent reading more than MaxResponseSize
	limitedReader := io.LimitReader(resp.Body, MaxResponseSize+1) // +1 to detect if limit exceeded
	body, err := io.ReadAll(limitedReader)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if int64(len(body)) > MaxResponseSize {
		return nil, backoff.Permanent(fmt.Errorf("response size exceeds maximum allowed size of %d bytes",
			MaxResponseSize))
	}

	return body, nil
}

func isRetryable(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests || statusCode >= http.StatusInternalServerError
}

// IsNotFound reports whether err is an HTTPError with status 404
func IsNotFound(err error) bool {
	var httpErr *HTTPError
	return errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusNotFound
}
