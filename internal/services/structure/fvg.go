package structure

import (
	"FinSignal/internal/domain/models"
	"FinSignal/internal/services/features"
)

// DetectFVGs finds three-bar imbalances where the outer bars do not overlap.
func DetectFVGs(bars []models.Bar, cfg Config) []models.Pattern {
	var out []models.Pattern
	for i := 1; i+1 < len(bars); i++ {
		prev, mid, next := bars[i-1], bars[i], bars[i+1]
		if mid.Close <= 0 {
			continue
		}
		var bias models.Bias
		var lo, hi float64
		switch {
		case prev.High < next.Low:
			bias, lo, hi = models.BiasBullish, prev.High, next.Low
		case prev.Low > next.High:
			bias, lo, hi = models.BiasBearish, next.High, prev.Low
		default:
			continue
		}
		gap := (hi - lo) / mid.Close
		if gap < cfg.FVGMinGap {
			continue
		}
		vr := features.VolumeRatio(bars, i, cfg.VolumeWindow)
		if vr < cfg.FVGVolumeMult {
			continue
		}
		out = append(out, models.Pattern{
			Type:        models.PatternFVG,
			Bias:        bias,
			Timeframe:   mid.Timeframe,
			Index:       i,
			At:          mid.Timestamp,
			Low:         lo,
			High:        hi,
			VolumeRatio: vr,
			Confidence:  confidence(gap, cfg.FVGMinGap, vr, cfg.FVGVolumeMult, cfg.ConfidenceCap),
		})
	}
	return out
}
