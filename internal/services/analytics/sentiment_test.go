package analytics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"FinSignal/pkg/cache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var at = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func testConfig(url string) SentimentConfig {
	return SentimentConfig{
		URL:             url,
		Timeout:         time.Second,
		RatePerSecond:   1000,
		Burst:           100,
		BreakerFailures: 3,
		BreakerTimeout:  time.Minute,
		Retries:         2,
	}
}

func TestSentiment_ScoreClampedAndCached(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "/v1/sentiment", r.URL.Path)
		assert.Equal(t, "AAPL", r.URL.Query().Get("symbol"))
		assert.Equal(t, "2024-05-01T12:00:00Z", r.URL.Query().Get("at"))
		_, _ = w.Write([]byte(`{"symbol":"AAPL","score":1.7}`))
	}))
	defer srv.Close()

	mem := cache.NewMemoryCache()
	defer mem.Close()
	cfg := testConfig(srv.URL)
	cfg.CacheTTL = time.Minute
	c := NewHTTPSentimentClient(cfg, mem)

	for i := 0; i < 2; i++ {
		score, ok, err := c.Sentiment(context.Background(), "AAPL", at)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, 1.0, score)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestSentiment_NoData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/news" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"symbol":"AAPL","score":0.2,"available":false}`))
	}))
	defer srv.Close()

	c := NewHTTPSentimentClient(testConfig(srv.URL), nil)

	_, ok, err := c.Sentiment(context.Background(), "AAPL", at)
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = c.News(context.Background(), "AAPL", at)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSentiment_RetriesTemporaryFailures(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"score":-0.25}`))
	}))
	defer srv.Close()

	c := NewHTTPSentimentClient(testConfig(srv.URL), nil)
	c.base.backoff = time.Millisecond

	score, ok, err := c.News(context.Background(), "MSFT", at)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, -0.25, score)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestSentiment_BreakerOpens(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.Retries = 0
	c := NewHTTPSentimentClient(cfg, nil)

	for i := 0; i < 3; i++ {
		_, _, err := c.Sentiment(context.Background(), "AAPL", at)
		require.Error(t, err)
	}
	assert.Equal(t, "open", c.BreakerState())

	_, _, err := c.Sentiment(context.Background(), "AAPL", at)
	assert.True(t, errors.Is(err, ErrUnavailable))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestSentiment_ClientErrorsDoNotTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.BreakerFailures = 1
	c := NewHTTPSentimentClient(cfg, nil)

	for i := 0; i < 3; i++ {
		_, _, err := c.Sentiment(context.Background(), "AAPL", at)
		require.Error(t, err)
		assert.False(t, errors.Is(err, ErrUnavailable))
	}
	assert.Equal(t, "closed", c.BreakerState())
}

func TestNoopSentiment(t *testing.T) {
	_, ok, err := NoopSentiment{}.Sentiment(context.Background(), "X", at)
	assert.NoError(t, err)
	assert.False(t, ok)
}
