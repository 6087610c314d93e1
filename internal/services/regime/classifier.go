package regime

import (
	"math"

	"FinSignal/internal/domain/models"
	"FinSignal/internal/services/features"
)

// Config holds regime thresholds.
type Config struct {
	Window         int     // bars for volatility and slope
	VolUpper       float64 // annualized; above -> VOLATILE
	VolLower       float64 // annualized; below -> LOW_VOL
	TrendThreshold float64 // |normalized slope| per bar; above -> BULL/BEAR
}

func DefaultConfig() Config {
	return Config{
		Window:         50,
		VolUpper:       0.80,
		VolLower:       0.20,
		TrendThreshold: 0.002,
	}
}

// Classifier labels a bar window. It keeps no state between calls; the
// result is passed explicitly to the scorer.
type Classifier struct {
	cfg Config
}

func NewClassifier(cfg Config) *Classifier {
	return &Classifier{cfg: cfg}
}

// Classify applies: VOLATILE if vol > upper, else BULL/BEAR if |slope| > trend,
// else LOW_VOL if vol < lower, else SIDEWAYS. Windows that cannot be measured
// fall back to SIDEWAYS with LowConfidence.
func (c *Classifier) Classify(series models.BarSeries) models.RegimeResult {
	res := models.RegimeResult{
		Symbol:    series.Symbol,
		Timeframe: series.Timeframe,
		Regime:    models.RegimeSideways,
	}
	if last, ok := series.Last(); ok {
		res.At = last.Timestamp
	}
	if series.Len() < c.cfg.Window+1 {
		res.LowConfidence = true
		res.Confidence = 0.3
		return res
	}

	returns := features.ComputeLogReturns(series.Bars)
	vol := features.RealizedVolatility(returns, c.cfg.Window, series.Timeframe.BarsPerYear())
	slope := features.NormalizedSlope(series.Bars, c.cfg.Window)
	if !finite(vol) || !finite(slope) {
		res.LowConfidence = true
		res.Confidence = 0.3
		return res
	}
	res.AnnualizedVol = vol
	res.Slope = slope
	res.LowConfidence = series.LowConfidence()

	switch {
	case vol > c.cfg.VolUpper:
		res.Regime = models.RegimeVolatile
		res.Confidence = strength(vol-c.cfg.VolUpper, c.cfg.VolUpper)
	case math.Abs(slope) > c.cfg.TrendThreshold:
		res.Regime = models.RegimeBull
		if slope < 0 {
			res.Regime = models.RegimeBear
		}
		res.Confidence = strength(math.Abs(slope)-c.cfg.TrendThreshold, c.cfg.TrendThreshold)
	case vol < c.cfg.VolLower:
		res.Regime = models.RegimeLowVol
		res.Confidence = strength(c.cfg.VolLower-vol, c.cfg.VolLower)
	default:
		res.Confidence = 0.5
	}
	return res
}

// strength maps the distance past a threshold to [0.5, 1].
func strength(excess, ref float64) float64 {
	if ref <= 0 {
		return 0.5
	}
	return 0.5 + 0.5*math.Min(1, math.Max(0, excess/ref))
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
