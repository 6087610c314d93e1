package structure

import (
	"FinSignal/internal/domain/models"
	"FinSignal/internal/services/features"
)

// DetectBOS finds bars whose extreme breaks the rolling lookback high (or low)
// by more than BOSMinBreak on volume of at least BOSVolumeMult times average.
func DetectBOS(bars []models.Bar, cfg Config) []models.StructureEvent {
	var out []models.StructureEvent
	for i := cfg.BOSLookback; i < len(bars); i++ {
		vr := features.VolumeRatio(bars, i, cfg.VolumeWindow)
		if vr < cfg.BOSVolumeMult {
			continue
		}
		hi, lo := bars[i-cfg.BOSLookback].High, bars[i-cfg.BOSLookback].Low
		for _, b := range bars[i-cfg.BOSLookback+1 : i] {
			hi = max(hi, b.High)
			lo = min(lo, b.Low)
		}

		if hi > 0 && bars[i].High > hi*(1+cfg.BOSMinBreak) {
			brk := (bars[i].High - hi) / hi
			out = append(out, event(models.StructureBOS, models.BiasBullish, bars, i, hi, brk, vr,
				confidence(brk, cfg.BOSMinBreak, vr, cfg.BOSVolumeMult, cfg.ConfidenceCap)))
		}
		if lo > 0 && bars[i].Low < lo*(1-cfg.BOSMinBreak) {
			brk := (lo - bars[i].Low) / lo
			out = append(out, event(models.StructureBOS, models.BiasBearish, bars, i, lo, brk, vr,
				confidence(brk, cfg.BOSMinBreak, vr, cfg.BOSVolumeMult, cfg.ConfidenceCap)))
		}
	}
	return out
}

func event(typ models.StructureType, bias models.Bias, bars []models.Bar, i int, ref, brk, vr, conf float64) models.StructureEvent {
	return models.StructureEvent{
		Type:           typ,
		Bias:           bias,
		Timeframe:      bars[i].Timeframe,
		TriggerIndex:   i,
		TriggerAt:      bars[i].Timestamp,
		ReferenceLevel: ref,
		BreakSize:      brk,
		VolumeRatio:    vr,
		Confidence:     conf,
	}
}
