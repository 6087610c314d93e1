package structure

import (
	"FinSignal/internal/domain/models"
	"FinSignal/internal/services/features"
)

// DetectOrderBlocks finds large-bodied candles on elevated volume followed by
// at least OBMinConsolidation tight bars. The zone is the consolidation range.
func DetectOrderBlocks(bars []models.Bar, cfg Config) []models.Pattern {
	var out []models.Pattern
	for i := 1; i+cfg.OBMinConsolidation < len(bars); i++ {
		b := bars[i]
		if b.Open <= 0 {
			continue
		}
		body := b.Body() / b.Open
		if body < cfg.OBMinBody {
			continue
		}
		vr := features.VolumeRatio(bars, i, cfg.VolumeWindow)
		if vr < cfg.OBVolumeMult {
			continue
		}

		lo, hi := 0.0, 0.0
		n := 0
		for j := i + 1; j < len(bars); j++ {
			c := bars[j]
			if c.Close <= 0 || c.Range()/c.Close >= cfg.OBMaxRange {
				break
			}
			if n == 0 {
				lo, hi = c.Low, c.High
			} else {
				lo, hi = min(lo, c.Low), max(hi, c.High)
			}
			n++
		}
		if n < cfg.OBMinConsolidation {
			continue
		}

		bias := models.BiasBullish
		if b.Bearish() {
			bias = models.BiasBearish
		}
		out = append(out, models.Pattern{
			Type:        models.PatternOrderBlock,
			Bias:        bias,
			Timeframe:   b.Timeframe,
			Index:       i,
			At:          b.Timestamp,
			Low:         lo,
			High:        hi,
			VolumeRatio: vr,
			Confidence:  confidence(body, cfg.OBMinBody, vr, cfg.OBVolumeMult, cfg.ConfidenceCap),
		})
	}
	return out
}
