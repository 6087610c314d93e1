package structure

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinSignal/internal/domain/models"
	"FinSignal/internal/services/indicators"
)

var t0 = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

func bar(i int, open, high, low, close, vol float64) models.Bar {
	return models.Bar{
		Symbol: "ETHUSDT", Timeframe: models.TF1h,
		Timestamp: t0.Add(time.Duration(i) * time.Hour),
		Open:      open, High: high, Low: low, Close: close, Volume: vol,
	}
}

func flatBars(n int) []models.Bar {
	out := make([]models.Bar, n)
	for i := range out {
		out[i] = bar(i, 99.9, 100, 99.8, 99.9, 100)
	}
	return out
}

func TestDetectBOS_BullishBreakOnVolume(t *testing.T) {
	bars := append(flatBars(20), bar(20, 99.9, 100.2, 99.9, 100.1, 150))

	events := DetectBOS(bars, DefaultConfig())
	require.Len(t, events, 1)
	e := events[0]
	assert.Equal(t, models.StructureBOS, e.Type)
	assert.Equal(t, models.BiasBullish, e.Bias)
	assert.Equal(t, 20, e.TriggerIndex)
	assert.InDelta(t, 100, e.ReferenceLevel, 1e-9)
	assert.InDelta(t, 1.5, e.VolumeRatio, 1e-9)
	assert.Greater(t, e.Confidence, 0.0)
	assert.LessOrEqual(t, e.Confidence, 0.95)
}

func TestDetectBOS_RejectsSmallBreakOrLowVolume(t *testing.T) {
	small := append(flatBars(20), bar(20, 99.9, 100.05, 99.9, 100.0, 150))
	assert.Empty(t, DetectBOS(small, DefaultConfig()))

	quiet := append(flatBars(20), bar(20, 99.9, 100.2, 99.9, 100.1, 110))
	assert.Empty(t, DetectBOS(quiet, DefaultConfig()))
}

func TestDetectBOS_Bearish(t *testing.T) {
	bars := append(flatBars(20), bar(20, 99.9, 99.9, 99.6, 99.65, 200))
	events := DetectBOS(bars, DefaultConfig())
	require.Len(t, events, 1)
	assert.Equal(t, models.BiasBearish, events[0].Bias)
	assert.InDelta(t, 99.8, events[0].ReferenceLevel, 1e-9)
}

func TestDetectCHoCH_BullishReversal(t *testing.T) {
	var closes []float64
	var vols []float64
	for i := 0; i < 40; i++ {
		closes = append(closes, 120-0.5*float64(i))
		vols = append(vols, 100)
	}
	for k := 0; k < 15; k++ {
		closes = append(closes, 100.5+float64(k+1))
		vols = append(vols, 200)
	}
	bars := make([]models.Bar, len(closes))
	for i, c := range closes {
		bars[i] = bar(i, c, c*1.001, c*0.999, c, vols[i])
	}
	set := &models.IndicatorSet{
		SMAFast: indicators.SMA(closes, 5),
		SMASlow: indicators.SMA(closes, 10),
	}

	events := DetectCHoCH(bars, set, DefaultConfig())
	require.Len(t, events, 1)
	e := events[0]
	assert.Equal(t, models.StructureCHoCH, e.Type)
	assert.Equal(t, models.BiasBullish, e.Bias)
	assert.Equal(t, 43, e.TriggerIndex)
	assert.Greater(t, e.BreakSize, 0.002)
}

func TestDetectCHoCH_NilIndicators(t *testing.T) {
	assert.Nil(t, DetectCHoCH(flatBars(30), nil, DefaultConfig()))
}

func TestDetectOrderBlock(t *testing.T) {
	bars := make([]models.Bar, 0, 14)
	for i := 0; i < 10; i++ {
		bars = append(bars, bar(i, 100, 100.25, 99.75, 100, 100))
	}
	bars = append(bars, bar(10, 100, 102.6, 99.9, 102.5, 200))
	for i := 11; i < 14; i++ {
		bars = append(bars, bar(i, 102.4, 102.8, 102.2, 102.5, 100))
	}

	obs := DetectOrderBlocks(bars, DefaultConfig())
	require.Len(t, obs, 1)
	ob := obs[0]
	assert.Equal(t, models.PatternOrderBlock, ob.Type)
	assert.Equal(t, models.BiasBullish, ob.Bias)
	assert.Equal(t, 10, ob.Index)
	assert.InDelta(t, 102.2, ob.Low, 1e-9)
	assert.InDelta(t, 102.8, ob.High, 1e-9)
}

func TestDetectOrderBlock_NeedsConsolidation(t *testing.T) {
	bars := make([]models.Bar, 0, 14)
	for i := 0; i < 10; i++ {
		bars = append(bars, bar(i, 100, 100.25, 99.75, 100, 100))
	}
	bars = append(bars, bar(10, 100, 102.6, 99.9, 102.5, 200))
	bars = append(bars, bar(11, 102.4, 102.8, 102.2, 102.5, 100))
	bars = append(bars, bar(12, 102.4, 102.8, 102.2, 102.5, 100))
	bars = append(bars, bar(13, 102.5, 105.5, 102.4, 105, 100))

	assert.Empty(t, DetectOrderBlocks(bars, DefaultConfig()))
}

func TestDetectFVG_Bullish(t *testing.T) {
	bars := make([]models.Bar, 0, 13)
	for i := 0; i < 11; i++ {
		bars = append(bars, bar(i, 99.5, 100, 99, 99.5, 100))
	}
	bars = append(bars, bar(11, 100, 101.1, 99.9, 101, 200))
	bars = append(bars, bar(12, 101, 101.5, 100.2, 101.3, 100))

	gaps := DetectFVGs(bars, DefaultConfig())
	require.Len(t, gaps, 1)
	g := gaps[0]
	assert.Equal(t, models.BiasBullish, g.Bias)
	assert.Equal(t, 11, g.Index)
	assert.InDelta(t, 100, g.Low, 1e-9)
	assert.InDelta(t, 100.2, g.High, 1e-9)
}

func TestDetectFVG_RequiresVolume(t *testing.T) {
	bars := make([]models.Bar, 0, 13)
	for i := 0; i < 11; i++ {
		bars = append(bars, bar(i, 99.5, 100, 99, 99.5, 100))
	}
	bars = append(bars, bar(11, 100, 101.1, 99.9, 101, 105))
	bars = append(bars, bar(12, 101, 101.5, 100.2, 101.3, 100))
	assert.Empty(t, DetectFVGs(bars, DefaultConfig()))
}

func sweepBars(last models.Bar, next ...models.Bar) []models.Bar {
	lows := []float64{100, 99.5, 99, 98, 99, 99.5, 100}
	bars := make([]models.Bar, 0, len(lows)+2)
	for i, l := range lows {
		bars = append(bars, bar(i, l+0.5, l+1, l, l+0.5, 100))
	}
	bars = append(bars, last)
	return append(bars, next...)
}

func TestDetectSweep_BullishCloseBack(t *testing.T) {
	bars := sweepBars(bar(7, 98.2, 99, 97.9, 98.5, 300))
	sweeps := DetectSweeps(bars, DefaultConfig())
	require.Len(t, sweeps, 1)
	s := sweeps[0]
	assert.Equal(t, models.PatternLiquiditySweep, s.Type)
	assert.Equal(t, models.BiasBullish, s.Bias)
	assert.Equal(t, 7, s.Index)
	assert.InDelta(t, 97.9, s.Low, 1e-9)
	assert.InDelta(t, 98, s.High, 1e-9)
}

func TestDetectSweep_CloseBackOnNextBar(t *testing.T) {
	bars := sweepBars(bar(7, 98.2, 98.4, 97.9, 97.95, 300), bar(8, 97.95, 98.6, 97.95, 98.4, 100))
	sweeps := DetectSweeps(bars, DefaultConfig())
	require.Len(t, sweeps, 1)
	assert.Equal(t, 7, sweeps[0].Index)
}

func TestDetectSweep_ShallowPierceKeepsSwingLive(t *testing.T) {
	bars := sweepBars(
		bar(7, 98.2, 99, 97.98, 98.5, 300),
		bar(8, 98.3, 99, 97.9, 98.5, 300),
	)
	sweeps := DetectSweeps(bars, DefaultConfig())
	require.Len(t, sweeps, 1)
	assert.Equal(t, 8, sweeps[0].Index)
	assert.InDelta(t, 97.9, sweeps[0].Low, 1e-9)
}

func TestDetectSweep_BreakIsNotSweep(t *testing.T) {
	bars := sweepBars(bar(7, 98.2, 98.4, 97.9, 97.95, 300), bar(8, 97.95, 97.97, 97.5, 97.6, 100))
	assert.Empty(t, DetectSweeps(bars, DefaultConfig()))

	quiet := sweepBars(bar(7, 98.2, 99, 97.9, 98.5, 150))
	assert.Empty(t, DetectSweeps(quiet, DefaultConfig()))
}

func TestConfidence_MonotonicAndCapped(t *testing.T) {
	prev := 0.0
	for _, m := range []float64{0.001, 0.002, 0.004, 0.01, 1} {
		c := confidence(m, 0.001, 1.5, 1.2, 0.95)
		assert.GreaterOrEqual(t, c, prev)
		prev = c
	}
	prev = 0.0
	for _, v := range []float64{1.2, 1.5, 2, 3, 100} {
		c := confidence(0.002, 0.001, v, 1.2, 0.95)
		assert.GreaterOrEqual(t, c, prev)
		prev = c
	}
	assert.Equal(t, 0.95, confidence(100, 0.001, 100, 1.2, 0.95))
}

func TestDetectCandle(t *testing.T) {
	prev := bar(0, 101, 101.2, 99.8, 100, 100)
	engulf := bar(1, 99.9, 102, 99.7, 101.5, 100)
	assert.Equal(t, CandleBullishEngulfing, DetectCandle(prev, engulf, models.BiasBullish))
	assert.Equal(t, CandleNone, DetectCandle(prev, engulf, models.BiasBearish))

	hammer := bar(1, 100.8, 101, 98, 100.9, 100)
	assert.Equal(t, CandleHammer, DetectCandle(bar(0, 100, 100.5, 99.5, 100.2, 100), hammer, models.BiasBullish))

	star := bar(1, 100.1, 103, 99.9, 100, 100)
	assert.Equal(t, CandleShootingStar, DetectCandle(bar(0, 100, 100.5, 99.5, 100.2, 100), star, models.BiasBearish))
	assert.Equal(t, models.BiasBearish, CandleShootingStar.Bias())
}

func TestDetector_AnalyzeIsPure(t *testing.T) {
	bars := append(flatBars(20), bar(20, 99.9, 100.2, 99.9, 100.1, 150))
	series, err := models.NewBarSeries("ETHUSDT", models.TF1h, bars)
	require.NoError(t, err)

	d := NewDetector(DefaultConfig())
	a1 := d.Analyze(series, nil)
	a2 := d.Analyze(series, nil)
	assert.Equal(t, a1.Events, a2.Events)
	assert.Len(t, a1.EventsOf(models.StructureBOS, models.BiasBullish), 1)
	assert.False(t, a1.LowConfidence())
}
