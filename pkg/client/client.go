// Package client provides the content API HTTP client with rate limiting,
// retries and failure categorization for paged list endpoints.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/listpager/pkg/apierror"
	"github.com/Sternrassler/listpager/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for client operations.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "listpager_client_requests_total",
		Help: "Total API requests by endpoint and status",
	}, []string{"endpoint", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "listpager_client_request_duration_seconds",
		Help:    "API request duration in seconds by endpoint",
		Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "listpager_client_errors_total",
		Help: "Total API errors by class",
	}, []string{"class"})
)

// MessageRateLimited is shown when the local rate limiter refuses a request.
const MessageRateLimited = "Too many requests, please try again shortly"

// TokenSource supplies the bearer credential for each request.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenSource returning a fixed token.
type StaticToken string

// Token implements TokenSource.
func (s StaticToken) Token(context.Context) (string, error) {
	return string(s), nil
}

// Config holds the client configuration.
type Config struct {
	// BaseURL of the content API, e.g. "https://api.example.com".
	BaseURL string

	// User-Agent header (REQUIRED).
	// Format: "AppName/Version (contact@example.com)"
	UserAgent string

	// Token supplies the Authorization bearer token (optional).
	Token TokenSource

	// Redis shares rate limit state across processes (optional).
	Redis redis.UniversalClient

	// HTTPTimeout bounds a single HTTP attempt.
	HTTPTimeout time.Duration

	// Retry
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	// SessionInvalidatedCodes are envelope codes meaning the credential was
	// invalidated elsewhere.
	SessionInvalidatedCodes []int

	// SuccessCode is the envelope code of a successful response.
	SuccessCode int
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(baseURL, userAgent string) Config {
	retry := DefaultRetryConfig()
	return Config{
		BaseURL:                 baseURL,
		UserAgent:               userAgent,
		HTTPTimeout:             15 * time.Second,
		MaxRetries:              retry.MaxAttempts - 1,
		InitialBackoff:          retry.InitialBackoff,
		MaxBackoff:              retry.MaxBackoff,
		SessionInvalidatedCodes: []int{40101},
		SuccessCode:             0,
	}
}

// Client is the content API client.
type Client struct {
	httpClient  *http.Client
	baseURL     *url.URL
	rateLimiter *ratelimit.Tracker
	retry       RetryConfig
	config      Config
	logger      zerolog.Logger
}

// New creates a new client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base url must be http or https (got %q)", cfg.BaseURL)
	}

	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}

	if cfg.MaxRetries < 0 {
		return nil, fmt.Errorf("max_retries must be >= 0 (got %d)", cfg.MaxRetries)
	}

	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 15 * time.Second
	}

	logger := log.With().Str("component", "content-client").Logger()

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.HTTPTimeout,
		},
		baseURL:     base,
		rateLimiter: ratelimit.NewTracker(cfg.Redis, logger),
		retry: RetryConfig{
			MaxAttempts:       cfg.MaxRetries + 1,
			InitialBackoff:    cfg.InitialBackoff,
			MaxBackoff:        cfg.MaxBackoff,
			BackoffMultiplier: 2.0,
		},
		config: cfg,
		logger: logger,
	}, nil
}

// Do performs an HTTP request with rate limiting, headers and retries.
// Retryable failures (network, 5xx, 429) that persist are returned as an
// error wrapping ErrRetryExhausted; other 4xx responses are returned to the
// caller unchanged.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	endpoint := req.URL.Path

	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	allowed, err := c.rateLimiter.ShouldAllowRequest(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %w", ErrContextCancelled, ctx.Err())
		}
		c.logger.Error().Err(err).Msg("Rate limit check failed")
		return nil, fmt.Errorf("rate limit check: %w", err)
	}
	if !allowed {
		c.logger.Warn().
			Str("endpoint", endpoint).
			Msg("Request blocked by rate limiter")
		requestsTotal.WithLabelValues(endpoint, "rate_limited").Inc()
		return nil, ratelimit.ErrBlocked
	}

	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")
	if c.config.Token != nil {
		token, err := c.config.Token.Token(ctx)
		if err != nil {
			return nil, fmt.Errorf("get token: %w", err)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	c.logger.Debug().
		Str("endpoint", endpoint).
		Str("method", req.Method).
		Msg("Executing API request")

	var resp *http.Response
	var errClass ErrorClass

	retryErr := retryWithBackoff(ctx, c.retry, func() error {
		var reqErr error
		resp, reqErr = c.httpClient.Do(req)
		if reqErr != nil {
			errClass = ErrorClassNetwork
			errorsTotal.WithLabelValues(string(errClass)).Inc()
			requestsTotal.WithLabelValues(endpoint, "network_error").Inc()
			c.logger.Debug().Err(reqErr).Str("endpoint", endpoint).Msg("HTTP request failed")
			return reqErr
		}

		if err := c.rateLimiter.UpdateFromHeaders(ctx, resp.Header); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to update rate limit from headers")
		}

		requestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

		errClass = classifyStatus(resp.StatusCode)
		if errClass == "" {
			return nil
		}

		errorsTotal.WithLabelValues(string(errClass)).Inc()
		c.logger.Debug().
			Str("endpoint", endpoint).
			Int("status", resp.StatusCode).
			Str("error_class", string(errClass)).
			Msg("API request error")

		if !shouldRetry(errClass) {
			// Final 4xx: let the caller read the body.
			return nil
		}

		// Drain so the connection can be reused by the next attempt.
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		return &HTTPError{
			StatusCode: resp.StatusCode,
			ErrorClass: errClass,
			Message:    resp.Status,
		}
	}, func(error) ErrorClass {
		return errClass
	})

	if retryErr != nil {
		return nil, retryErr
	}

	return resp, nil
}

// Get performs a GET request to an endpoint relative to BaseURL.
func (c *Client) Get(ctx context.Context, endpoint string, query url.Values) (*http.Response, error) {
	u := c.baseURL.JoinPath(endpoint)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	return c.Do(req)
}

// GetPage fetches one page of a list endpoint. Failures are returned as
// apierror types so list screens can classify them.
func (c *Client) GetPage(ctx context.Context, endpoint string, page, pageSize int, query url.Values) (*PageResponse, error) {
	q := url.Values{}
	for k, v := range query {
		q[k] = slices.Clone(v)
	}
	q.Set("page", strconv.Itoa(page))
	if pageSize > 0 {
		q.Set("pageSize", strconv.Itoa(pageSize))
	}

	resp, err := c.Get(ctx, endpoint, q)
	if err != nil {
		return nil, c.mapDoError(ctx, endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &apierror.TransportError{Op: "read " + endpoint, Err: err}
	}

	var env Envelope
	decodeErr := json.Unmarshal(body, &env)

	if resp.StatusCode >= 400 {
		return nil, c.statusError(resp.StatusCode, env, decodeErr == nil)
	}

	if decodeErr != nil {
		return nil, &apierror.UnexpectedError{Message: "undecodable response body", Err: decodeErr}
	}
	if c.isSessionCode(env.Code) {
		return nil, &apierror.SessionError{Code: env.Code, Message: env.Msg}
	}
	if env.Code != c.config.SuccessCode {
		return nil, &apierror.BusinessError{Code: env.Code, Message: env.Msg}
	}
	if !env.hasData() {
		return nil, &apierror.UnexpectedError{Message: "response has no data"}
	}

	var data PageData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, &apierror.UnexpectedError{Message: "undecodable page data", Err: err}
	}
	if data.Page == 0 {
		data.Page = page
	}

	return &PageResponse{
		PageData:   data,
		TotalPages: parsePagesHeader(resp.Header.Get(HeaderPages)),
	}, nil
}

// mapDoError categorizes a failure returned by Do.
func (c *Client) mapDoError(ctx context.Context, endpoint string, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	if errors.Is(err, ratelimit.ErrBlocked) {
		return &apierror.BusinessError{Code: http.StatusTooManyRequests, Message: MessageRateLimited}
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return c.statusError(httpErr.StatusCode, Envelope{}, false)
	}

	return &apierror.TransportError{Op: "GET " + endpoint, Err: err}
}

// statusError categorizes a non-2xx response, preferring the envelope's
// code and message when the body carried one.
func (c *Client) statusError(status int, env Envelope, decoded bool) error {
	if decoded && c.isSessionCode(env.Code) {
		return &apierror.SessionError{Code: env.Code, Message: env.Msg}
	}
	if status == http.StatusUnauthorized {
		msg := env.Msg
		if msg == "" {
			msg = apierror.MessageSession
		}
		return &apierror.SessionError{Code: status, Message: msg}
	}

	code := status
	msg := strings.TrimSpace(http.StatusText(status))
	if decoded && env.Code != 0 {
		code = env.Code
	}
	if decoded && env.Msg != "" {
		msg = env.Msg
	}
	if status == http.StatusTooManyRequests && (!decoded || env.Msg == "") {
		msg = MessageRateLimited
	}
	return &apierror.BusinessError{Code: code, Message: msg}
}

func (c *Client) isSessionCode(code int) bool {
	return slices.Contains(c.config.SessionInvalidatedCodes, code)
}

// RateLimiter returns the tracker gating this client's requests.
func (c *Client) RateLimiter() *ratelimit.Tracker {
	return c.rateLimiter
}

// Close closes the client and releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
