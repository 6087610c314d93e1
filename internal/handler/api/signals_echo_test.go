package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"FinSignal/internal/domain/models"
	"FinSignal/internal/services/analytics"
	"FinSignal/internal/services/backtest"
	"FinSignal/internal/services/dedup"
	"FinSignal/internal/services/entry"
	"FinSignal/internal/services/indicators"
	"FinSignal/internal/services/regime"
	"FinSignal/internal/services/scoring"
	"FinSignal/internal/services/structure"
	"FinSignal/internal/usecase"
	"FinSignal/pkg/cache"
	xhttp "FinSignal/pkg/http"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flatMarket returns constant-price bars for every requested window, or
// only the last `limit` of them when limit > 0.
type flatMarket struct {
	limit int
}

func (m flatMarket) GetBars(_ context.Context, symbol string, tf models.Timeframe, from, to time.Time) (models.BarSeries, error) {
	var bars []models.Bar
	for ts := from.Truncate(tf.Duration()); !ts.After(to); ts = ts.Add(tf.Duration()) {
		if ts.Before(from) {
			continue
		}
		bars = append(bars, models.Bar{
			Symbol: symbol, Timeframe: tf, Timestamp: ts,
			Open: 100, High: 100.1, Low: 99.9, Close: 100, Volume: 10,
		})
	}
	if m.limit > 0 && len(bars) > m.limit {
		bars = bars[len(bars)-m.limit:]
	}
	return models.NewBarSeries(symbol, tf, bars)
}

func newTestServer(t *testing.T, market flatMarket) (*xhttp.Server, *SignalsEchoHandler) {
	t.Helper()
	mem := cache.NewMemoryCache()
	t.Cleanup(func() { _ = mem.Close() })

	ind := indicators.NewCache(indicators.NewEngine(indicators.DefaultConfig()), mem, time.Minute, nil)
	classifier := regime.NewClassifier(regime.DefaultConfig())
	scorer, err := scoring.NewScorer(scoring.DefaultConfig())
	require.NoError(t, err)
	filter := dedup.NewFilter(dedup.DefaultConfig())

	pipeline := usecase.NewSymbolPipeline(market, analytics.NoopSentiment{}, ind,
		structure.NewDetector(structure.DefaultConfig()), classifier,
		entry.NewValidator(entry.DefaultConfig()), scorer)
	gen := usecase.NewSignalGenerator(pipeline, filter, nil, nil)
	runner := usecase.NewBacktestRunner(gen, market, backtest.NewSimulator(backtest.DefaultConfig()), filter, nil, nil)
	bars := usecase.NewBarsUseCase(market, ind, classifier)

	h := NewSignalsEchoHandler(nil, gen, runner, bars, []string{"AAPL", "MSFT"})
	return xhttp.NewServer(h, xhttp.WithMetricsPath("")), h
}

func call(t *testing.T, s *xhttp.Server, method, path, body string) (*httptest.ResponseRecorder, xhttp.APIResponse) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	var out xhttp.APIResponse
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func TestHealth(t *testing.T) {
	s, h := newTestServer(t, flatMarket{})

	rec, out := call(t, s, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, http.StatusOK, out.Status)

	h.AddHealthCheck("clickhouse", func(context.Context) error { return errors.New("connection refused") })
	rec, out = call(t, s, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "connection refused", out.Data.(map[string]interface{})["clickhouse"])
}

func TestGenerate_RejectsBadSymbols(t *testing.T) {
	s, _ := newTestServer(t, flatMarket{})

	rec, out := call(t, s, http.MethodPost, "/api/signals/generate", `{"symbols":["AAPL","not a symbol"]}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	details, ok := out.Data.([]interface{})
	require.True(t, ok)
	require.Len(t, details, 1)
}

func TestGenerate_FlatMarketYieldsNoSignals(t *testing.T) {
	s, _ := newTestServer(t, flatMarket{})

	rec, out := call(t, s, http.MethodPost, "/api/signals/generate", `{"at":"2024-06-03T12:00:00Z"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	data := out.Data.(map[string]interface{})
	assert.Equal(t, float64(0), data["candidates"])
	assert.Empty(t, data["signals"])
	assert.Equal(t, "2024-06-03T12:00:00Z", data["at"])

	// Every configured symbol is accounted for as a skip or a failure.
	var seen int
	if skips, ok := data["skips"].([]interface{}); ok {
		seen += len(skips)
	}
	if fails, ok := data["failures"].([]interface{}); ok {
		seen += len(fails)
	}
	assert.Equal(t, 2, seen)
}

func TestBacktest_Validation(t *testing.T) {
	s, _ := newTestServer(t, flatMarket{})

	rec, _ := call(t, s, http.MethodPost, "/api/backtest",
		`{"symbols":["AAPL"],"from":"2024-06-03T00:00:00Z","to":"2024-06-01T00:00:00Z"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, out := call(t, s, http.MethodPost, "/api/backtest",
		`{"symbols":["AAPL"],"from":"2024-06-01T00:00:00Z","to":"2024-06-02T00:00:00Z","step":"soon"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, http.StatusBadRequest, out.Status)

	rec, _ = call(t, s, http.MethodPost, "/api/backtest",
		`{"symbols":["AAPL"],"from":"2024-06-01T00:00:00Z","to":"2024-06-02T00:00:00Z","mode":"random"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBacktest_EmptyRun(t *testing.T) {
	s, _ := newTestServer(t, flatMarket{})

	body := `{"symbols":["AAPL"],"from":"2024-06-01T00:00:00Z","to":"2024-06-02T00:00:00Z","step":"12h"}`
	rec, out := call(t, s, http.MethodPost, "/api/backtest", body)
	require.Equal(t, http.StatusOK, rec.Code)
	data := out.Data.(map[string]interface{})
	assert.Equal(t, "pattern", data["mode"])
	assert.Empty(t, data["outcomes"])

	rec, _ = call(t, s, http.MethodPost, "/api/backtest?format=csv", body)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	assert.Len(t, lines, 1, "header only")
}

func TestBars(t *testing.T) {
	s, _ := newTestServer(t, flatMarket{})

	rec, _ := call(t, s, http.MethodGet, "/api/bars?symbol=AAPL", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code, "from is required")

	rec, _ = call(t, s, http.MethodGet, "/api/bars?symbol=AAPL&from=yesterday", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = call(t, s, http.MethodGet, "/api/bars?symbol=AAPL&from=2024-06-03&to=2024-06-02", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, out := call(t, s, http.MethodGet, "/api/bars?symbol=AAPL&tf=1h&from=2024-06-03T00:00:00Z&to=2024-06-03T09:00:00Z&limit=4", "")
	require.Equal(t, http.StatusOK, rec.Code)
	data := out.Data.(map[string]interface{})
	assert.Equal(t, float64(4), data["count"])
	assert.Len(t, data["bars"], 4)
}

func TestRegime_InvalidTimeframe(t *testing.T) {
	s, _ := newTestServer(t, flatMarket{})

	rec, _ := call(t, s, http.MethodGet, "/api/regime?symbol=AAPL&tf=2h", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, out := call(t, s, http.MethodGet, "/api/regime?symbol=AAPL&tf=1d&n=60", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotNil(t, out.Data)
}

func TestIndicators_InsufficientDataIs422(t *testing.T) {
	s, _ := newTestServer(t, flatMarket{limit: 5})

	rec, out := call(t, s, http.MethodGet, "/api/indicators?symbol=AAPL&tf=1h&n=5", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, http.StatusUnprocessableEntity, out.Status)
}
