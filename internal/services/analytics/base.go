package analytics

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	xhttp "FinSignal/pkg/http"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// ErrUnavailable is returned while the circuit breaker is open.
var ErrUnavailable = errors.New("analytics: service unavailable")

// HTTPServiceBase is the shared transport for analytics HTTP clients:
// a token bucket in front of a circuit breaker in front of retries.
type HTTPServiceBase struct {
	baseURL string
	client  *xhttp.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	retries int
	backoff time.Duration
}

type BaseConfig struct {
	Name            string
	URL             string
	Timeout         time.Duration
	RatePerSecond   float64
	Burst           int
	BreakerFailures uint32
	BreakerTimeout  time.Duration
	Retries         int
	// Backoff is the first retry delay; it doubles per attempt.
	Backoff time.Duration
}

func NewHTTPServiceBase(cfg BaseConfig, opts ...xhttp.ClientOption) *HTTPServiceBase {
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = 5
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = 5
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 100 * time.Millisecond
	}
	failures := cfg.BreakerFailures
	st := gobreaker.Settings{
		Name:    cfg.Name,
		Timeout: cfg.BreakerTimeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= failures
		},
		// 4xx answers mean the service is up; only transport errors and
		// 5xx/429 count against it.
		IsSuccessful: func(err error) bool {
			return err == nil || !xhttp.IsTemporary(err)
		},
	}
	return &HTTPServiceBase{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		client:  xhttp.NewClient(append([]xhttp.ClientOption{xhttp.WithTimeout(cfg.Timeout)}, opts...)...),
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.Burst),
		breaker: gobreaker.NewCircuitBreaker(st),
		retries: cfg.Retries,
		backoff: cfg.Backoff,
	}
}

// State exposes the breaker state for health reporting.
func (b *HTTPServiceBase) State() string { return b.breaker.State().String() }

// GetJSON performs GET baseURL+path with query and decodes into dest,
// retrying temporary failures.
func (b *HTTPServiceBase) GetJSON(ctx context.Context, path string, query map[string][]string, dest interface{}) error {
	if b.baseURL == "" {
		return fmt.Errorf("analytics http client not configured")
	}
	opts := &xhttp.RequestOptions{URL: b.baseURL + path, QueryParams: query}

	var err error
	for attempt := 0; attempt <= b.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(b.backoff << (attempt - 1)):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if err = b.limiter.Wait(ctx); err != nil {
			return err
		}
		_, err = b.breaker.Execute(func() (interface{}, error) {
			return nil, b.client.SendAndParse(ctx, opts, dest)
		})
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		if err == nil || !xhttp.IsTemporary(err) || ctx.Err() != nil {
			break
		}
	}
	if err != nil {
		return fmt.Errorf("get %s: %w", path, err)
	}
	return nil
}
