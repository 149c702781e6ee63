// Package bitrise provides a retrying client for the Bitrise v0.1 REST API.
package bitrise

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/narvanalabs/redbutton/internal/metrics"
)

// DefaultBaseURL is the provider's base endpoint and base path.
const DefaultBaseURL = "https://api.bitrise.io/v0.1"

// Client issues calls to the CI provider. Safe and idempotent requests are
// retried with exponential backoff; the client holds no per-call state and
// may be shared across goroutines.
type Client struct {
	baseURL string
	token   string
	http    *retryablehttp.Client
	logger  *slog.Logger
}

type settings struct {
	baseURL    string
	retryMax   int
	waitMin    time.Duration
	waitMax    time.Duration
	timeout    time.Duration
	httpClient *http.Client
	logger     *slog.Logger
}

// Option is a functional option for configuring the Client.
type Option func(*settings)

// WithBaseURL overrides the base endpoint, e.g. for tests.
func WithBaseURL(baseURL string) Option {
	return func(s *settings) {
		s.baseURL = baseURL
	}
}

// WithRetryMax sets how many times a failed idempotent request is retried.
func WithRetryMax(n int) Option {
	return func(s *settings) {
		s.retryMax = n
	}
}

// WithRetryWait sets the backoff bounds.
func WithRetryWait(min, max time.Duration) Option {
	return func(s *settings) {
		s.waitMin = min
		s.waitMax = max
	}
}

// WithTimeout sets the transport timeout of a single attempt.
func WithTimeout(d time.Duration) Option {
	return func(s *settings) {
		s.timeout = d
	}
}

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(s *settings) {
		s.httpClient = c
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

// NewClient creates a client authenticated with the given access token.
func NewClient(token string, opts ...Option) (*Client, error) {
	if token == "" {
		return nil, errors.New("an access token is required")
	}

	s := &settings{
		baseURL:  DefaultBaseURL,
		retryMax: 3,
		waitMin:  100 * time.Millisecond,
		waitMax:  5 * time.Second,
		timeout:  30 * time.Second,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	httpClient := s.httpClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: s.timeout}
	}

	rc := retryablehttp.NewClient()
	rc.HTTPClient = httpClient
	rc.Logger = s.logger
	rc.RetryMax = s.retryMax
	rc.RetryWaitMin = s.waitMin
	rc.RetryWaitMax = s.waitMax
	rc.Backoff = retryablehttp.DefaultBackoff
	rc.CheckRetry = retryIdempotent
	// Hand the last response back instead of a generic "giving up" error so
	// the status code can be mapped.
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &Client{
		baseURL: strings.TrimRight(s.baseURL, "/"),
		token:   token,
		http:    rc,
		logger:  s.logger,
	}, nil
}

type idempotentKey struct{}

// retryIdempotent applies the default policy (transport errors, 429, 5xx)
// to idempotent requests only. Non-idempotent requests are attempted once.
func retryIdempotent(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ok, _ := ctx.Value(idempotentKey{}).(bool); !ok {
		return false, nil
	}
	return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
}

func isIdempotent(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodPut, http.MethodDelete:
		return true
	default:
		return false
	}
}

// Ping checks that the provider is reachable and the token is accepted.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, "ping", http.MethodGet, "/me", nil, nil)
}

// do performs the request and decodes a JSON response into result when non-nil.
func (c *Client) do(ctx context.Context, operation, method, path string, body, result any) (err error) {
	start := time.Now()
	defer func() { metrics.ObserveProviderCall(operation, start, err) }()

	var rawBody any
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		rawBody = data
	}

	ctx = context.WithValue(ctx, idempotentKey{}, isIdempotent(method))
	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.baseURL+path, rawBody)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "token "+c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrUpstreamUnavailable, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return newError(resp.StatusCode, data)
	}

	if result == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
