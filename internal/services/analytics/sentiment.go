package analytics

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	domrepo "FinSignal/internal/domain/repository"
	"FinSignal/pkg/cache"
	xhttp "FinSignal/pkg/http"
)

// SentimentConfig configures HTTPSentimentClient.
type SentimentConfig struct {
	URL             string
	Timeout         time.Duration
	RatePerSecond   float64
	Burst           int
	BreakerFailures uint32
	BreakerTimeout  time.Duration
	Retries         int
	CacheTTL        time.Duration
}

// scoreResponse is the collaborator's answer for both endpoints.
type scoreResponse struct {
	Symbol    string   `json:"symbol"`
	Score     *float64 `json:"score"`
	Available *bool    `json:"available"`
}

type cachedScore struct {
	Score float64 `json:"score"`
	OK    bool    `json:"ok"`
}

// HTTPSentimentClient fetches sentiment and news scores from an HTTP
// service:
//
//	GET {url}/v1/sentiment?symbol=AAPL&at=2024-05-01T00:00:00Z
//	GET {url}/v1/news?symbol=AAPL&at=...
//
// A 404 or "available": false means no data. Scores are clamped to [-1,1].
type HTTPSentimentClient struct {
	base  *HTTPServiceBase
	cache cache.Service
	ttl   time.Duration
}

func NewHTTPSentimentClient(cfg SentimentConfig, store cache.Service, opts ...xhttp.ClientOption) *HTTPSentimentClient {
	return &HTTPSentimentClient{
		base: NewHTTPServiceBase(BaseConfig{
			Name:            "sentiment",
			URL:             cfg.URL,
			Timeout:         cfg.Timeout,
			RatePerSecond:   cfg.RatePerSecond,
			Burst:           cfg.Burst,
			BreakerFailures: cfg.BreakerFailures,
			BreakerTimeout:  cfg.BreakerTimeout,
			Retries:         cfg.Retries,
		}, opts...),
		cache: store,
		ttl:   cfg.CacheTTL,
	}
}

func (c *HTTPSentimentClient) Sentiment(ctx context.Context, symbol string, at time.Time) (float64, bool, error) {
	return c.score(ctx, "sentiment", symbol, at)
}

func (c *HTTPSentimentClient) News(ctx context.Context, symbol string, at time.Time) (float64, bool, error) {
	return c.score(ctx, "news", symbol, at)
}

// BreakerState reports the circuit breaker state ("closed", "open", "half-open").
func (c *HTTPSentimentClient) BreakerState() string { return c.base.State() }

func (c *HTTPSentimentClient) score(ctx context.Context, kind, symbol string, at time.Time) (float64, bool, error) {
	at = at.UTC()
	key := cache.GenerateKeyWithParams("sent", kind, strings.ToUpper(symbol), at.Unix())
	if c.cache != nil {
		var hit cachedScore
		if err := c.cache.Get(ctx, key, &hit); err == nil {
			return hit.Score, hit.OK, nil
		}
	}

	var resp scoreResponse
	err := c.base.GetJSON(ctx, "/v1/"+kind, map[string][]string{
		"symbol": {symbol},
		"at":     {at.Format(time.RFC3339)},
	}, &resp)

	var out cachedScore
	var se *xhttp.StatusError
	switch {
	case errors.As(err, &se) && se.Status == http.StatusNotFound:
	case err != nil:
		return 0, false, fmt.Errorf("%s %s: %w", kind, symbol, err)
	case resp.Available != nil && !*resp.Available, resp.Score == nil:
	default:
		if math.IsNaN(*resp.Score) || math.IsInf(*resp.Score, 0) {
			return 0, false, fmt.Errorf("%s %s: non-finite score", kind, symbol)
		}
		out = cachedScore{Score: math.Max(-1, math.Min(1, *resp.Score)), OK: true}
	}

	if c.cache != nil && c.ttl > 0 {
		_ = c.cache.Set(ctx, key, out, c.ttl)
	}
	return out.Score, out.OK, nil
}

// NoopSentiment reports no data for every symbol; sentiment and news then
// score neutral.
type NoopSentiment struct{}

func (NoopSentiment) Sentiment(context.Context, string, time.Time) (float64, bool, error) {
	return 0, false, nil
}

func (NoopSentiment) News(context.Context, string, time.Time) (float64, bool, error) {
	return 0, false, nil
}

var (
	_ domrepo.SentimentSource = (*HTTPSentimentClient)(nil)
	_ domrepo.SentimentSource = NoopSentiment{}
)
