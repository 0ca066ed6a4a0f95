// Package httpclient wraps net/http with the rate limiting, circuit
// breaking, and bounded retry policy spec.md §4.D/§4.E and §6 require of
// every call to the central booking service. The middleware shape follows
// the teacher's internal/net/client.Wrapper (rate limit -> circuit-wrapped
// execute); the breaker settings follow
// internal/infrastructure/providers.CircuitBreakerManager.
package httpclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/edgegate/ticketgate/internal/config"
)

// Client is a rate-limited, circuit-breaker-protected, retrying HTTP client
// for one logical upstream (the central booking service).
type Client struct {
	http    *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	cfg     config.API
	log     zerolog.Logger
}

// New builds a Client from cfg. name identifies the breaker for logging
// (e.g. "fetch", "push") so the two cadence-independent call sites don't
// trip each other's breaker.
func New(cfg config.API, name string, logger zerolog.Logger) *Client {
	limit := rate.Limit(cfg.RateLimitRPS)
	if cfg.RateLimitRPS <= 0 {
		limit = rate.Inf
	}

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(bname string, from, to gobreaker.State) {
			logger.Warn().Str("breaker", bname).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
		},
	}

	return &Client{
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(limit, 1),
		breaker: gobreaker.NewCircuitBreaker(settings),
		cfg:     cfg,
		log:     logger,
	}
}

// StatusError is returned when the upstream responds with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream returned HTTP %d: %s", e.StatusCode, e.Body)
}

// IsRetryable reports whether e should be retried: 429 and any 5xx.
func (e *StatusError) IsRetryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Do executes method/url with body (nil for GET), applying rate limiting,
// the circuit breaker, and cfg.RetryAttempts bounded retries with a fixed
// cfg.RetryDelay backoff between attempts, per spec.md §6's "bounded retry
// with fixed delay" policy. It returns the response body on a 2xx result.
// body is taken as a byte slice rather than an io.Reader so a retried
// attempt can rebuild an unconsumed reader instead of resending a drained
// one.
func (c *Client) Do(ctx context.Context, method, url string, body []byte) ([]byte, error) {
	correlationID := uuid.NewString()
	log := c.log.With().Str("correlation_id", correlationID).Logger()

	var lastErr error
	attempts := c.cfg.RetryAttempts + 1
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}

		result, err := c.breaker.Execute(func() (interface{}, error) {
			return c.doOnce(ctx, method, url, body, correlationID)
		})

		if err == nil {
			return result.([]byte), nil
		}
		lastErr = err

		if !isRetryable(err) {
			log.Error().Err(err).Int("attempt", attempt).Msg("non-retryable request failure")
			return nil, err
		}
		log.Warn().Err(err).Int("attempt", attempt).Int("max_attempts", attempts).Msg("retryable request failure")

		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.cfg.RetryDelay):
		}
	}
	return nil, fmt.Errorf("request failed after %d attempts: %w", attempts, lastErr)
}

func (c *Client) doOnce(ctx context.Context, method, url string, body []byte, correlationID string) ([]byte, error) {
	var reqBody io.Reader
	if body != nil {
		reqBody = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("X-Correlation-ID", correlationID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transport: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(data)}
	}
	return data, nil
}

func isRetryable(err error) bool {
	var statusErr *StatusError
	if ok := asStatusError(err, &statusErr); ok {
		return statusErr.IsRetryable()
	}
	if err == context.DeadlineExceeded || err == context.Canceled {
		return false
	}
	// Anything else is retried: transport-level errors (connection refused,
	// DNS failure, timeout), and also the breaker's own open-state rejection
	// and request-build or body-read failures.
	return true
}

func asStatusError(err error, target **StatusError) bool {
	se, ok := err.(*StatusError)
	if ok {
		*target = se
	}
	return ok
}
