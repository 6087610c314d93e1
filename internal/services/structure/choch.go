package structure

import (
	"FinSignal/internal/domain/models"
	"FinSignal/internal/services/features"
	"FinSignal/internal/services/indicators"
)

// DetectCHoCH finds fast/slow SMA crossovers that come with a reversal of at
// least CHoCHMinReversal from the lookback extreme. Volume is confirmed by
// the strongest bar among the last CHoCHConfirmBars up to the crossover.
func DetectCHoCH(bars []models.Bar, set *models.IndicatorSet, cfg Config) []models.StructureEvent {
	if set == nil || len(set.SMAFast) != len(bars) || len(set.SMASlow) != len(bars) {
		return nil
	}
	var out []models.StructureEvent
	for i := 1; i < len(bars); i++ {
		if set.SMASlow[i-1] == 0 || set.SMAFast[i-1] == 0 {
			continue
		}
		var bias models.Bias
		switch {
		case indicators.CrossedAbove(set.SMAFast, set.SMASlow, i):
			bias = models.BiasBullish
		case indicators.CrossedBelow(set.SMAFast, set.SMASlow, i):
			bias = models.BiasBearish
		default:
			continue
		}

		vr := 0.0
		for j := max(1, i-cfg.CHoCHConfirmBars+1); j <= i; j++ {
			vr = max(vr, features.VolumeRatio(bars, j, cfg.VolumeWindow))
		}
		if vr < cfg.CHoCHVolumeMult {
			continue
		}

		from := max(0, i-cfg.CHoCHLookback)
		var ref, rev float64
		if bias == models.BiasBullish {
			ref = bars[from].Low
			for _, b := range bars[from : i+1] {
				ref = min(ref, b.Low)
			}
			if ref > 0 {
				rev = (bars[i].Close - ref) / ref
			}
		} else {
			ref = bars[from].High
			for _, b := range bars[from : i+1] {
				ref = max(ref, b.High)
			}
			if ref > 0 {
				rev = (ref - bars[i].Close) / ref
			}
		}
		if rev < cfg.CHoCHMinReversal {
			continue
		}
		out = append(out, event(models.StructureCHoCH, bias, bars, i, ref, rev, vr,
			confidence(rev, cfg.CHoCHMinReversal, vr, cfg.CHoCHVolumeMult, cfg.ConfidenceCap)))
	}
	return out
}
