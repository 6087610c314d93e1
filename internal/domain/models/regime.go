package models

import "time"

// Regime is the market state label used for weight adjustment.
type Regime string

const (
	RegimeBull     Regime = "BULL"
	RegimeBear     Regime = "BEAR"
	RegimeSideways Regime = "SIDEWAYS"
	RegimeVolatile Regime = "VOLATILE"
	RegimeLowVol   Regime = "LOW_VOL"
)

// IsValid returns true for known regimes.
func (r Regime) IsValid() bool {
	switch r {
	case RegimeBull, RegimeBear, RegimeSideways, RegimeVolatile, RegimeLowVol:
		return true
	default:
		return false
	}
}

// RegimeResult is the classifier output for one symbol/timeframe window.
type RegimeResult struct {
	Symbol        string    `json:"symbol"`
	Timeframe     Timeframe `json:"timeframe"`
	At            time.Time `json:"at"`
	Regime        Regime    `json:"regime"`
	AnnualizedVol float64   `json:"annualized_vol"`
	Slope         float64   `json:"slope"`
	Confidence    float64   `json:"confidence"`
	LowConfidence bool      `json:"low_confidence"`
}
