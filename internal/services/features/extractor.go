package features

import (
	"math"

	"FinSignal/internal/domain/models"
)

// ComputeLogReturns computes log returns r_t = ln(C_t / C_{t-1}).
// It returns a slice of length len(bars)-1, or nil if insufficient data.
func ComputeLogReturns(bars []models.Bar) []float64 {
	if len(bars) < 2 {
		return nil
	}
	out := make([]float64, 0, len(bars)-1)
	for i := 1; i < len(bars); i++ {
		prev := bars[i-1].Close
		cur := bars[i].Close
		if prev <= 0 || cur <= 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, math.Log(cur/prev))
	}
	return out
}

// RealizedVolatility computes annualized realized volatility over the last
// window returns using the provided number of bars per year.
func RealizedVolatility(logReturns []float64, window int, barsPerYear float64) float64 {
	if window <= 1 || len(logReturns) < window {
		return 0
	}
	sum := 0.0
	sum2 := 0.0
	for i := len(logReturns) - window; i < len(logReturns); i++ {
		r := logReturns[i]
		sum += r
		sum2 += r * r
	}
	n := float64(window)
	mean := sum / n
	variance := (sum2 - n*mean*mean) / (n - 1)
	if variance < 0 {
		variance = 0
	}
	return math.Sqrt(variance * barsPerYear)
}

// RegressionSlope fits y = a + b*x over x = 0..n-1 by least squares and returns b.
func RegressionSlope(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	var sumX, sumY, sumXY, sumXX float64
	for i, y := range values {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	fn := float64(n)
	den := fn*sumXX - sumX*sumX
	if den == 0 {
		return 0
	}
	return (fn*sumXY - sumX*sumY) / den
}

// NormalizedSlope is the regression slope of the last window closes divided by
// their mean, i.e. fractional price change per bar.
func NormalizedSlope(bars []models.Bar, window int) float64 {
	if window < 2 || len(bars) < window {
		return 0
	}
	closes := make([]float64, window)
	mean := 0.0
	for i, b := range bars[len(bars)-window:] {
		closes[i] = b.Close
		mean += b.Close
	}
	mean /= float64(window)
	if mean == 0 {
		return 0
	}
	return RegressionSlope(closes) / mean
}

// AverageVolume returns the mean volume of bars[from:to].
func AverageVolume(bars []models.Bar, from, to int) float64 {
	if from < 0 {
		from = 0
	}
	if to > len(bars) {
		to = len(bars)
	}
	if to <= from {
		return 0
	}
	sum := 0.0
	for _, b := range bars[from:to] {
		sum += b.Volume
	}
	return sum / float64(to-from)
}

// VolumeRatio returns bars[i].Volume over the mean of the window bars before i.
// Zero when no baseline exists.
func VolumeRatio(bars []models.Bar, i, window int) float64 {
	if i <= 0 || i >= len(bars) {
		return 0
	}
	avg := AverageVolume(bars, i-window, i)
	if avg <= 0 {
		return 0
	}
	return bars[i].Volume / avg
}
