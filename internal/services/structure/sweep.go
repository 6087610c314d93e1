package structure

import (
	"FinSignal/internal/domain/models"
	"FinSignal/internal/services/features"
	"FinSignal/internal/services/indicators"
)

// DetectSweeps finds bars that run a confirmed swing extreme by at least
// SweepMinExceed and close back inside on the same or the next bar. A swept
// low is bullish, a swept high bearish. A pierce shallower than
// SweepMinExceed that closes back inside leaves the swing live; the first
// bar that pierces deep enough, or closes beyond the level, settles it.
func DetectSweeps(bars []models.Bar, cfg Config) []models.Pattern {
	k := cfg.SweepSwingBars
	var out []models.Pattern

	for _, s := range indicators.FindSwingLows(bars, k, k) {
		level := s.Price
		for j := s.Index + k + 1; j < len(bars); j++ {
			if bars[j].Low >= level {
				continue
			}
			exceed := (level - bars[j].Low) / level
			if exceed < cfg.SweepMinExceed && bars[j].Close >= level {
				continue
			}
			closedBack := bars[j].Close > level || (j+1 < len(bars) && bars[j+1].Close > level)
			if p, ok := sweepPattern(bars, j, models.BiasBullish, bars[j].Low, level, exceed, closedBack, cfg); ok {
				out = append(out, p)
			}
			break
		}
	}

	for _, s := range indicators.FindSwingHighs(bars, k, k) {
		level := s.Price
		for j := s.Index + k + 1; j < len(bars); j++ {
			if bars[j].High <= level {
				continue
			}
			exceed := (bars[j].High - level) / level
			if exceed < cfg.SweepMinExceed && bars[j].Close <= level {
				continue
			}
			closedBack := bars[j].Close < level || (j+1 < len(bars) && bars[j+1].Close < level)
			if p, ok := sweepPattern(bars, j, models.BiasBearish, level, bars[j].High, exceed, closedBack, cfg); ok {
				out = append(out, p)
			}
			break
		}
	}
	return out
}

func sweepPattern(bars []models.Bar, j int, bias models.Bias, lo, hi, exceed float64, closedBack bool, cfg Config) (models.Pattern, bool) {
	if !closedBack || exceed < cfg.SweepMinExceed {
		return models.Pattern{}, false
	}
	vr := features.VolumeRatio(bars, j, cfg.VolumeWindow)
	if vr < cfg.SweepVolumeMult {
		return models.Pattern{}, false
	}
	return models.Pattern{
		Type:        models.PatternLiquiditySweep,
		Bias:        bias,
		Timeframe:   bars[j].Timeframe,
		Index:       j,
		At:          bars[j].Timestamp,
		Low:         lo,
		High:        hi,
		VolumeRatio: vr,
		Confidence:  confidence(exceed, cfg.SweepMinExceed, vr, cfg.SweepVolumeMult, cfg.ConfidenceCap),
	}, true
}
