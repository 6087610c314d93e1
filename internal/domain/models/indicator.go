package models

import "time"

// PivotLevels are classic floor pivots derived from the prior completed bar.
type PivotLevels struct {
	P  float64 `json:"p"`
	R1 float64 `json:"r1"`
	S1 float64 `json:"s1"`
	R2 float64 `json:"r2"`
	S2 float64 `json:"s2"`
}

// IndicatorSet holds per-bar indicator series aligned with the source bars.
// Indices before an indicator's warm-up are zero.
type IndicatorSet struct {
	Symbol        string        `json:"symbol"`
	Timeframe     Timeframe     `json:"timeframe"`
	LastTimestamp time.Time     `json:"last_timestamp"`
	Len           int           `json:"len"`
	RSI           []float64     `json:"rsi"`
	MACD          []float64     `json:"macd"`
	MACDSignal    []float64     `json:"macd_signal"`
	MACDHist      []float64     `json:"macd_hist"`
	SMAFast       []float64     `json:"sma_fast"`
	SMASlow       []float64     `json:"sma_slow"`
	EMAFast       []float64     `json:"ema_fast"`
	EMASlow       []float64     `json:"ema_slow"`
	ATR           []float64     `json:"atr"`
	Pivots        []PivotLevels `json:"pivots"`
	LowConfidence bool          `json:"low_confidence"`
	GapCount      int           `json:"gap_count"`
}

// At returns the value of series at index i or 0 when out of range.
func At(series []float64, i int) float64 {
	if i < 0 || i >= len(series) {
		return 0
	}
	return series[i]
}

// Last returns the last value of series or 0.
func Last(series []float64) float64 {
	return At(series, len(series)-1)
}
