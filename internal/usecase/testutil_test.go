package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"FinSignal/internal/domain/models"
	"FinSignal/internal/services/dedup"
	"FinSignal/internal/services/entry"
	"FinSignal/internal/services/scoring"

	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)

type barsFunc func(symbol string, tf models.Timeframe, from, to time.Time) (models.BarSeries, error)

type fakeMarket struct {
	mu    sync.Mutex
	fn    barsFunc
	calls int
}

func (m *fakeMarket) GetBars(_ context.Context, symbol string, tf models.Timeframe, from, to time.Time) (models.BarSeries, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	return m.fn(symbol, tf, from, to)
}

// hourlyBars returns bars every tf from `from` up to and including `to`,
// closing at price unless override supplies a bar for that offset.
func hourlyBars(symbol string, tf models.Timeframe, from, to time.Time, price float64, override map[time.Duration]models.Bar) models.BarSeries {
	var bars []models.Bar
	for ts := from; !ts.After(to); ts = ts.Add(tf.Duration()) {
		b := models.Bar{
			Symbol: symbol, Timeframe: tf, Timestamp: ts,
			Open: price, High: price * 1.001, Low: price * 0.999, Close: price, Volume: 10,
		}
		if o, ok := override[ts.Sub(from)]; ok {
			o.Symbol, o.Timeframe, o.Timestamp = symbol, tf, ts
			b = o
		}
		bars = append(bars, b)
	}
	s, err := models.NewBarSeries(symbol, tf, bars)
	if err != nil {
		panic(err)
	}
	return s
}

type fakeRunner struct {
	mu    sync.Mutex
	fn    func(ctx context.Context, symbol string, at time.Time) SymbolResult
	calls []string
}

func (r *fakeRunner) Run(ctx context.Context, symbol string, at time.Time) SymbolResult {
	r.mu.Lock()
	r.calls = append(r.calls, symbol)
	r.mu.Unlock()
	return r.fn(ctx, symbol, at)
}

type recordingSink struct {
	mu       sync.Mutex
	signals  [][]models.RankedSignal
	outcomes [][]models.BacktestOutcome
	err      error
}

func (s *recordingSink) SaveSignals(_ context.Context, sig []models.RankedSignal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.signals = append(s.signals, sig)
	return s.err
}

func (s *recordingSink) SaveOutcomes(_ context.Context, o []models.BacktestOutcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outcomes = append(s.outcomes, o)
	return s.err
}

func candidate(t *testing.T, symbol string, conf float64, createdAt time.Time) *models.SignalCandidate {
	t.Helper()
	c, err := models.NewSignalCandidate(models.CandidateParams{
		Symbol:         symbol,
		Direction:      models.DirectionLong,
		TimeframeChain: []models.Timeframe{models.TF1d, models.TF4h, models.TF1h, models.TF15m},
		Entry:          100,
		Stop:           95,
		Target:         120,
		Confidence:     conf,
		Regime:         models.RegimeBull,
		CreatedAt:      createdAt,
	})
	require.NoError(t, err)
	return &c
}

func noSignal(symbol string) SymbolResult {
	return SymbolResult{Symbol: symbol, NoSignal: &entry.NoSignal{Stage: entry.StageStructure, Reason: entry.ReasonNoCHoCH}}
}

func newTestGenerator(t *testing.T, runner symbolRunner, cfg scoring.Config, opts ...GeneratorOption) *SignalGenerator {
	t.Helper()
	scorer, err := scoring.NewScorer(cfg)
	require.NoError(t, err)
	pipeline := NewSymbolPipeline(nil, nil, nil, nil, nil, nil, scorer)
	g := NewSignalGenerator(pipeline, dedup.NewFilter(dedup.DefaultConfig()), nil, nil, opts...)
	g.pipeline = runner
	return g
}
