package usecase

import (
	"context"
	"fmt"
	"time"

	"FinSignal/internal/domain/models"
	domrepo "FinSignal/internal/domain/repository"
	"FinSignal/internal/services/indicators"
	"FinSignal/internal/services/regime"
)

// BarsUseCase serves bar windows and the per-series views built on them.
type BarsUseCase struct {
	market     domrepo.MarketData
	indicators *indicators.Cache
	classifier *regime.Classifier
	now        func() time.Time
}

func NewBarsUseCase(market domrepo.MarketData, ind *indicators.Cache, classifier *regime.Classifier) *BarsUseCase {
	return &BarsUseCase{market: market, indicators: ind, classifier: classifier, now: time.Now}
}

type GetBarsParams struct {
	Symbol    string
	Timeframe models.Timeframe
	From      time.Time
	To        time.Time
	Limit     int
}

type GetBarsResult struct {
	Symbol    string           `json:"symbol"`
	Timeframe models.Timeframe `json:"timeframe"`
	From      time.Time        `json:"from"`
	To        time.Time        `json:"to"`
	Count     int              `json:"count"`
	Gaps      []models.Gap     `json:"gaps,omitempty"`
	Bars      []models.Bar     `json:"bars"`
}

func (uc *BarsUseCase) GetBars(ctx context.Context, p GetBarsParams) (*GetBarsResult, error) {
	if p.Symbol == "" {
		return nil, models.ErrEmptySymbol
	}
	if !p.Timeframe.IsValid() {
		return nil, fmt.Errorf("%w: unsupported timeframe %q", ErrInvalidParams, p.Timeframe)
	}
	if p.From.After(p.To) {
		return nil, fmt.Errorf("%w: from must be <= to", ErrInvalidParams)
	}
	if p.Limit <= 0 {
		p.Limit = 10000
	}
	if p.Limit > 50000 {
		p.Limit = 50000
	}

	series, err := uc.market.GetBars(ctx, p.Symbol, p.Timeframe, p.From, p.To)
	if err != nil {
		return nil, fmt.Errorf("get bars: %w", err)
	}
	bars := series.Bars
	if len(bars) > p.Limit {
		bars = bars[len(bars)-p.Limit:]
	}

	return &GetBarsResult{
		Symbol:    p.Symbol,
		Timeframe: p.Timeframe,
		From:      p.From,
		To:        p.To,
		Count:     len(bars),
		Gaps:      series.Gaps,
		Bars:      bars,
	}, nil
}

// latest returns roughly the last n bars closed at or before at.
func (uc *BarsUseCase) latest(ctx context.Context, symbol string, tf models.Timeframe, n int, at time.Time) (models.BarSeries, error) {
	if symbol == "" {
		return models.BarSeries{}, models.ErrEmptySymbol
	}
	if at.IsZero() {
		at = uc.now()
	}
	at = at.UTC()
	series, err := uc.market.GetBars(ctx, symbol, tf, at.Add(-time.Duration(n)*tf.Duration()), at)
	if err != nil {
		return models.BarSeries{}, fmt.Errorf("get bars: %w", err)
	}
	return series.Tail(n), nil
}

// Regime classifies the latest n bars of the timeframe.
func (uc *BarsUseCase) Regime(ctx context.Context, symbol string, tf models.Timeframe, n int, at time.Time) (models.RegimeResult, error) {
	series, err := uc.latest(ctx, symbol, tf, n, at)
	if err != nil {
		return models.RegimeResult{}, err
	}
	return uc.classifier.Classify(series), nil
}

// Indicators computes (or fetches cached) indicators for the latest n bars.
func (uc *BarsUseCase) Indicators(ctx context.Context, symbol string, tf models.Timeframe, n int, at time.Time) (*models.IndicatorSet, error) {
	series, err := uc.latest(ctx, symbol, tf, n, at)
	if err != nil {
		return nil, err
	}
	return uc.indicators.Get(ctx, series)
}
