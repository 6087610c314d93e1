package structure

import "FinSignal/internal/domain/models"

type CandlePattern string

const (
	CandleNone             CandlePattern = ""
	CandleBullishEngulfing CandlePattern = "bullish_engulfing"
	CandleBearishEngulfing CandlePattern = "bearish_engulfing"
	CandleHammer           CandlePattern = "hammer"
	CandleShootingStar     CandlePattern = "shooting_star"
)

// Bias returns the direction a candlestick pattern confirms.
func (p CandlePattern) Bias() models.Bias {
	switch p {
	case CandleBearishEngulfing, CandleShootingStar:
		return models.BiasBearish
	default:
		return models.BiasBullish
	}
}

// DetectCandle classifies cur (with prev for two-bar patterns) for the given bias.
func DetectCandle(prev, cur models.Bar, bias models.Bias) CandlePattern {
	if bias == models.BiasBullish {
		if isBullishEngulfing(prev, cur) {
			return CandleBullishEngulfing
		}
		if isHammer(cur) {
			return CandleHammer
		}
		return CandleNone
	}
	if isBearishEngulfing(prev, cur) {
		return CandleBearishEngulfing
	}
	if isShootingStar(cur) {
		return CandleShootingStar
	}
	return CandleNone
}

func isBullishEngulfing(prev, cur models.Bar) bool {
	return prev.Bearish() && cur.Bullish() &&
		cur.Open <= prev.Close && cur.Close >= prev.Open &&
		cur.Body() > prev.Body()
}

func isBearishEngulfing(prev, cur models.Bar) bool {
	return prev.Bullish() && cur.Bearish() &&
		cur.Open >= prev.Close && cur.Close <= prev.Open &&
		cur.Body() > prev.Body()
}

// isHammer: small body in the upper part of the range with a long lower wick.
func isHammer(b models.Bar) bool {
	rng := b.Range()
	if rng <= 0 {
		return false
	}
	upper := b.High - max(b.Open, b.Close)
	lower := min(b.Open, b.Close) - b.Low
	return b.Body() < rng*0.3 && lower > rng*0.5 && upper < rng*0.2
}

// isShootingStar: small body at the bottom with a long upper wick.
func isShootingStar(b models.Bar) bool {
	rng := b.Range()
	if rng <= 0 {
		return false
	}
	upper := b.High - max(b.Open, b.Close)
	lower := min(b.Open, b.Close) - b.Low
	return b.Body() < rng*0.3 && upper > rng*0.5 && lower < rng*0.2
}
