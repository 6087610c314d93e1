package repository

import (
	"context"
	"time"

	"FinSignal/internal/domain/models"
)

// MarketData provides ordered bar windows. Missing bars are reported in
// BarSeries.Gaps, never silently interpolated.
type MarketData interface {
	GetBars(ctx context.Context, symbol string, tf models.Timeframe, from, to time.Time) (models.BarSeries, error)
}

// BarStore persists ingested bars.
type BarStore interface {
	MarketData
	StoreBars(ctx context.Context, bars []models.Bar) error
	Health(ctx context.Context) error
}

// SentimentSource returns scores in [-1,1]. ok=false means no data for the
// symbol at that instant, which is not an error.
type SentimentSource interface {
	Sentiment(ctx context.Context, symbol string, at time.Time) (score float64, ok bool, err error)
	News(ctx context.Context, symbol string, at time.Time) (score float64, ok bool, err error)
}

// SignalSink receives the ranked list of a generation cycle.
type SignalSink interface {
	SaveSignals(ctx context.Context, signals []models.RankedSignal) error
}

// OutcomeSink receives backtest outcomes.
type OutcomeSink interface {
	SaveOutcomes(ctx context.Context, outcomes []models.BacktestOutcome) error
}

type Metrics interface {
	RecordCycle(symbols int, seconds float64)
	RecordSymbolResult(result string)
	RecordRejection(stage string)
	RecordSignalsEmitted(sink string, n int)
	RecordOutcome(status string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}

// NopMetrics discards every observation.
type NopMetrics struct{}

func (NopMetrics) RecordCycle(int, float64)         {}
func (NopMetrics) RecordSymbolResult(string)        {}
func (NopMetrics) RecordRejection(string)           {}
func (NopMetrics) RecordSignalsEmitted(string, int) {}
func (NopMetrics) RecordOutcome(string)             {}
func (NopMetrics) RecordError(string)               {}
func (NopMetrics) RecordLatency(string, float64)    {}
