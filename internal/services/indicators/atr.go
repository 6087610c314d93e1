package indicators

import (
	"math"

	"FinSignal/internal/domain/models"
)

// TrueRange returns the per-bar true range. Index 0 uses high-low.
func TrueRange(bars []models.Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		if i == 0 {
			out[i] = b.High - b.Low
			continue
		}
		prev := bars[i-1].Close
		out[i] = math.Max(b.High-b.Low, math.Max(math.Abs(b.High-prev), math.Abs(b.Low-prev)))
	}
	return out
}

// ATR computes the Average True Range with Wilder smoothing.
// The first value is at index period.
func ATR(bars []models.Bar, period int) []float64 {
	out := make([]float64, len(bars))
	if period <= 0 || len(bars) < period+1 {
		return out
	}
	tr := TrueRange(bars)
	sum := 0.0
	for i := 1; i <= period; i++ {
		sum += tr[i]
	}
	out[period] = sum / float64(period)
	p := float64(period)
	for i := period + 1; i < len(bars); i++ {
		out[i] = (out[i-1]*(p-1) + tr[i]) / p
	}
	return out
}
