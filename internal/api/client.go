// Package api is the console's client for the cooperative platform REST
// backend. Every response goes through package normalize before it leaves
// this package, so callers only ever see canonical entities.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"coopconsole/internal/normalize"
	"coopconsole/internal/platform/config"
	"coopconsole/internal/platform/metrics"
	"coopconsole/internal/platform/tracer"
	dErrors "coopconsole/pkg/domain-errors"
	"coopconsole/pkg/platform/circuit"
)

// HeaderRequestID carries the per-call correlation id.
const HeaderRequestID = "X-Request-ID"

const maxBodyBytes = 4 << 20

// TokenSource supplies the bearer credential. *session.Store satisfies it.
type TokenSource interface {
	Token() string
}

// Client calls the backend. It is safe for concurrent use.
type Client struct {
	base           *url.URL
	http           *http.Client
	tokens         TokenSource
	limiter        *rate.Limiter
	breaker        *circuit.Breaker
	tracer         tracer.Tracer
	metrics        *metrics.Metrics
	logger         *slog.Logger
	onUnauthorized func(token string)
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithRateLimit limits outbound calls to rps with the given burst. A
// non-positive rps disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithBreaker replaces the default circuit breaker.
func WithBreaker(b *circuit.Breaker) Option {
	return func(c *Client) {
		if b != nil {
			c.breaker = b
		}
	}
}

// WithTracer sets the tracer used for per-call spans.
func WithTracer(t tracer.Tracer) Option {
	return func(c *Client) {
		if t != nil {
			c.tracer = t
		}
	}
}

// WithMetrics records latency and failures.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// OnUnauthorized registers fn to run when the backend rejects the bearer
// credential on an authenticated call. fn receives the token the request
// carried, which may no longer be the session's by the time the response
// lands.
func OnUnauthorized(fn func(token string)) Option {
	return func(c *Client) {
		c.onUnauthorized = fn
	}
}

// New builds a client for baseURL.
func New(baseURL string, tokens TokenSource, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("invalid api base url %q", baseURL))
	}
	c := &Client{
		base:    base,
		http:    &http.Client{Timeout: config.DefaultAPITimeout},
		tokens:  tokens,
		breaker: circuit.New("backend"),
		tracer:  tracer.NewNoop(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// FromConfig builds a client from the api section of the console config.
func FromConfig(cfg config.API, tokens TokenSource, opts ...Option) (*Client, error) {
	base := []Option{
		WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
		WithRateLimit(cfg.RequestsPerSecond, cfg.Burst),
		WithBreaker(circuit.New("backend", circuit.WithFailureThreshold(cfg.BreakerThreshold))),
	}
	return New(cfg.BaseURL, tokens, append(base, opts...)...)
}

// call describes one backend request.
type call struct {
	endpoint string // metrics/span label
	method   string
	path     string
	body     any
	auth     bool
}

func (c *Client) do(ctx context.Context, in call) (normalize.Raw, error) {
	requestID := uuid.NewString()
	start := time.Now()

	ctx, span := c.tracer.Start(ctx, tracer.SpanBackendCall,
		tracer.String(tracer.AttrEndpoint, in.endpoint),
		tracer.String(tracer.AttrRequestID, requestID),
	)
	raw, status, err := c.send(ctx, in, requestID)
	span.SetAttributes(
		tracer.Int(tracer.AttrStatusCode, status),
		tracer.Bool(tracer.AttrBreaker, c.breaker.IsOpen()),
	)
	span.End(err)

	c.metrics.ObserveBackend(in.endpoint, time.Since(start).Seconds())
	if err != nil {
		code := dErrors.CodeOf(err)
		c.metrics.IncFetchFailure(in.endpoint, string(code))
		c.logger.WarnContext(ctx, "backend call failed",
			"endpoint", in.endpoint,
			"status", status,
			"code", code,
			"request_id", requestID,
			"error", err,
		)
		return normalize.Raw{}, err
	}
	c.logger.DebugContext(ctx, "backend call",
		"endpoint", in.endpoint,
		"status", status,
		"request_id", requestID,
		"duration", time.Since(start),
	)
	return raw, nil
}

func (c *Client) send(ctx context.Context, in call, requestID string) (normalize.Raw, int, error) {
	token := ""
	if in.auth {
		if c.tokens != nil {
			token = c.tokens.Token()
		}
		if token == "" {
			return normalize.Raw{}, 0, dErrors.New(dErrors.CodeUnauthorized, "not signed in")
		}
	}

	req, err := c.newRequest(ctx, in, requestID, token)
	if err != nil {
		return normalize.Raw{}, 0, err
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return normalize.Raw{}, 0, transportError(err)
		}
	}

	if !c.breaker.Allow() {
		return normalize.Raw{}, 0, dErrors.New(dErrors.CodeUnavailable, "backend unavailable, retry shortly")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.recordFailure()
		return normalize.Raw{}, 0, transportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		c.recordFailure()
		return normalize.Raw{}, resp.StatusCode, transportError(err)
	}

	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		c.recordFailure()
	} else {
		c.recordSuccess()
	}

	if resp.StatusCode >= 300 {
		if in.auth && resp.StatusCode == http.StatusUnauthorized && c.onUnauthorized != nil {
			c.onUnauthorized(token)
		}
		return normalize.Raw{}, resp.StatusCode, statusError(resp.StatusCode, body)
	}
	return normalize.Parse(body), resp.StatusCode, nil
}

func (c *Client) newRequest(ctx context.Context, in call, requestID, token string) (*http.Request, error) {
	var body io.Reader
	if in.body != nil {
		buf, err := json.Marshal(in.body)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "encoding request body")
		}
		body = bytes.NewReader(buf)
	}
	target := c.base.JoinPath(in.path)
	req, err := http.NewRequestWithContext(ctx, in.method, target.String(), body)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "building request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(HeaderRequestID, requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

// BreakerState reports the backend circuit state for diagnostics.
func (c *Client) BreakerState() circuit.State {
	return c.breaker.State()
}

func (c *Client) recordFailure() {
	if change := c.breaker.RecordFailure(); change.Opened {
		c.logger.Warn("backend circuit opened", "breaker", c.breaker.Name())
	}
	c.metrics.SetBreakerOpen(c.breaker.IsOpen())
}

func (c *Client) recordSuccess() {
	if change := c.breaker.RecordSuccess(); change.Closed {
		c.logger.Info("backend circuit closed", "breaker", c.breaker.Name())
	}
	c.metrics.SetBreakerOpen(false)
}

// transportError classifies failures that happened before a status code.
func transportError(err error) error {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		return dErrors.Wrap(err, dErrors.CodeTimeout, "backend did not respond in time")
	case errors.Is(err, context.Canceled):
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "request cancelled")
	default:
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "backend unreachable")
	}
}
