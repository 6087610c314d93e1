package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"FinSignal/internal/domain/models"
	"FinSignal/internal/services/indicators"
	"FinSignal/internal/services/regime"
	"FinSignal/pkg/cache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBarsUseCase(t *testing.T, market *fakeMarket) *BarsUseCase {
	t.Helper()
	mem := cache.NewMemoryCache()
	t.Cleanup(func() { _ = mem.Close() })
	ind := indicators.NewCache(indicators.NewEngine(indicators.DefaultConfig()), mem, time.Minute, nil)
	return NewBarsUseCase(market, ind, regime.NewClassifier(regime.DefaultConfig()))
}

func TestBarsUseCase_GetBarsKeepsTail(t *testing.T) {
	market := &fakeMarket{fn: func(symbol string, tf models.Timeframe, from, to time.Time) (models.BarSeries, error) {
		return hourlyBars(symbol, tf, from, to, 50, nil), nil
	}}
	uc := newBarsUseCase(t, market)

	res, err := uc.GetBars(context.Background(), GetBarsParams{
		Symbol: "AAPL", Timeframe: models.TF1h, From: t0, To: t0.Add(9 * time.Hour), Limit: 3,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Count)
	require.Len(t, res.Bars, 3)
	assert.Equal(t, t0.Add(9*time.Hour), res.Bars[2].Timestamp)
	assert.Equal(t, t0.Add(7*time.Hour), res.Bars[0].Timestamp)
}

func TestBarsUseCase_InvalidParams(t *testing.T) {
	uc := newBarsUseCase(t, &fakeMarket{})

	_, err := uc.GetBars(context.Background(), GetBarsParams{Symbol: "AAPL", Timeframe: "2h", From: t0, To: t0})
	assert.True(t, errors.Is(err, ErrInvalidParams))

	_, err = uc.GetBars(context.Background(), GetBarsParams{Symbol: "AAPL", Timeframe: models.TF1h, From: t0.Add(time.Hour), To: t0})
	assert.True(t, errors.Is(err, ErrInvalidParams))

	_, err = uc.GetBars(context.Background(), GetBarsParams{Timeframe: models.TF1h})
	assert.ErrorIs(t, err, models.ErrEmptySymbol)
}

func TestBarsUseCase_RegimeShortWindowIsLowConfidence(t *testing.T) {
	market := &fakeMarket{fn: func(symbol string, tf models.Timeframe, _, to time.Time) (models.BarSeries, error) {
		return hourlyBars(symbol, tf, to.Add(-19*tf.Duration()), to, 100, nil), nil
	}}
	uc := newBarsUseCase(t, market)

	res, err := uc.Regime(context.Background(), "AAPL", models.TF1d, 20, t0)
	require.NoError(t, err)
	assert.Equal(t, models.RegimeSideways, res.Regime)
	assert.True(t, res.LowConfidence)
	assert.Equal(t, t0, res.At)
}

func TestBarsUseCase_IndicatorsInsufficientData(t *testing.T) {
	market := &fakeMarket{fn: func(symbol string, tf models.Timeframe, _, to time.Time) (models.BarSeries, error) {
		return hourlyBars(symbol, tf, to.Add(-9*tf.Duration()), to, 100, nil), nil
	}}
	uc := newBarsUseCase(t, market)

	_, err := uc.Indicators(context.Background(), "AAPL", models.TF1h, 10, t0)
	assert.ErrorIs(t, err, indicators.ErrInsufficientData)
}

func TestBarsUseCase_IndicatorsComputed(t *testing.T) {
	market := &fakeMarket{fn: func(symbol string, tf models.Timeframe, from, to time.Time) (models.BarSeries, error) {
		return hourlyBars(symbol, tf, from, to, 100, nil), nil
	}}
	uc := newBarsUseCase(t, market)

	set, err := uc.Indicators(context.Background(), "AAPL", models.TF1h, 100, t0)
	require.NoError(t, err)
	assert.Equal(t, 100, set.Len)
	assert.Equal(t, t0, set.LastTimestamp)
}
