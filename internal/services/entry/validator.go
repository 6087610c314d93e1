package entry

import (
	"math"

	"FinSignal/internal/domain/models"
	"FinSignal/internal/services/features"
	"FinSignal/internal/services/indicators"
	"FinSignal/internal/services/structure"
)

// Config holds the gate thresholds of each stage.
type Config struct {
	ContextWindow   int
	ContextMinSlope float64
	CHoCHLookback   int
	TriggerLookback int
	LongRSIMin      float64
	LongRSIMax      float64
	ShortRSIMin     float64
	ShortRSIMax     float64
	VolumeWindow    int
	PatternLookback int

	StopLookback      int
	StopATRBuffer     float64
	TargetATRMultiple float64
}

func DefaultConfig() Config {
	return Config{
		ContextWindow:   20,
		ContextMinSlope: 0.001,
		CHoCHLookback:   30,
		TriggerLookback: 3,
		LongRSIMin:      20,
		LongRSIMax:      50,
		ShortRSIMin:     50,
		ShortRSIMax:     80,
		VolumeWindow:    10,
		PatternLookback: 30,

		StopLookback:      5,
		StopATRBuffer:     0.5,
		TargetATRMultiple: 3.0,
	}
}

var chain = []models.Timeframe{models.TF1d, models.TF4h, models.TF1h, models.TF15m}

// Validator is a four-stage short-circuit gate: 1D context, 4H CHoCH,
// 1H BOS, 15M trigger. Partial alignment never yields a setup.
type Validator struct {
	cfg Config
}

func NewValidator(cfg Config) *Validator {
	return &Validator{cfg: cfg}
}

func (v *Validator) Validate(symbol string, in map[models.Timeframe]structure.Analysis) Result {
	daily, ok := in[models.TF1d]
	if !ok || daily.Series.Len() < v.cfg.ContextWindow {
		return reject(StageContext, ReasonInsufficientData, "need %d daily bars", v.cfg.ContextWindow)
	}
	slope := features.NormalizedSlope(daily.Series.Bars, v.cfg.ContextWindow)
	if math.Abs(slope) < v.cfg.ContextMinSlope {
		return reject(StageContext, ReasonFlatContext, "slope %.5f", slope)
	}
	dir := models.DirectionLong
	if slope < 0 {
		dir = models.DirectionShort
	}
	bias := dir.Bias()

	h4 := in[models.TF4h]
	choch, ok := latest(h4.EventsOf(models.StructureCHoCH, bias), h4.Series.Len()-v.cfg.CHoCHLookback)
	if !ok {
		return reject(StageStructure, ReasonNoCHoCH, "%s within %d bars", bias, v.cfg.CHoCHLookback)
	}

	h1 := in[models.TF1h]
	var bos models.StructureEvent
	found := false
	for _, e := range h1.EventsOf(models.StructureBOS, bias) {
		if !e.TriggerAt.Before(choch.TriggerAt) {
			bos, found = e, true
		}
	}
	if !found {
		return reject(StageConfirmation, ReasonNoBOS, "%s after %s", bias, choch.TriggerAt.Format("2006-01-02T15:04"))
	}

	m15 := in[models.TF15m]
	set := m15.Indicators
	bars := m15.Series.Bars
	if set == nil || len(bars) < 2 || len(set.RSI) != len(bars) {
		return reject(StageTrigger, ReasonInsufficientData, "no 15m indicators")
	}

	k, candle := -1, structure.CandleNone
	for i := len(bars) - 1; i >= max(1, len(bars)-v.cfg.TriggerLookback); i-- {
		if bars[i].Timestamp.Before(bos.TriggerAt) {
			break
		}
		if c := structure.DetectCandle(bars[i-1], bars[i], bias); c != structure.CandleNone {
			k, candle = i, c
			break
		}
	}
	if k < 0 {
		return reject(StageTrigger, ReasonNoCandle, "%s in last %d bars", bias, v.cfg.TriggerLookback)
	}

	rsi := set.RSI[k]
	lo, hi := v.cfg.LongRSIMin, v.cfg.LongRSIMax
	if dir == models.DirectionShort {
		lo, hi = v.cfg.ShortRSIMin, v.cfg.ShortRSIMax
	}
	if rsi < lo || rsi > hi {
		return reject(StageTrigger, ReasonRSIOutOfBand, "rsi %.1f outside [%.0f,%.0f]", rsi, lo, hi)
	}

	if !v.macdCrossed(set, k, dir) {
		return reject(StageTrigger, ReasonNoMACDCross, "%s", dir)
	}

	atr15 := models.At(set.ATR, k)
	atr4h := 0.0
	if h4.Indicators != nil {
		atr4h = models.Last(h4.Indicators.ATR)
	}
	if atr15 <= 0 || atr4h <= 0 {
		return reject(StageTrigger, ReasonInsufficientData, "atr not warmed up")
	}

	entryPrice := bars[k].Close
	stop, target := v.levels(bars, k, dir, entryPrice, atr15, atr4h)

	setup := Setup{
		Symbol:         symbol,
		Direction:      dir,
		TimeframeChain: append([]models.Timeframe(nil), chain...),
		Entry:          entryPrice,
		Stop:           stop,
		Target:         target,
		TriggerAt:      bars[k].Timestamp,
		ContextSlope:   slope,
		CHoCH:          choch,
		BOS:            bos,
		Candle:         candle,
		TriggerRSI:     rsi,
		VolumeRatios: []float64{
			choch.VolumeRatio,
			bos.VolumeRatio,
			features.VolumeRatio(bars, k, v.cfg.VolumeWindow),
		},
		LowConfidence: daily.LowConfidence() || h4.LowConfidence() || h1.LowConfidence() || m15.LowConfidence(),
	}
	for _, a := range []structure.Analysis{h4, h1, m15} {
		setup.Patterns = append(setup.Patterns, supporting(a, bias, v.cfg.PatternLookback)...)
	}
	setup.TechnicalStrength = v.technicalStrength(setup, set, k, h1)
	return accept(setup)
}

// latest returns the newest event with TriggerIndex >= from.
func latest(events []models.StructureEvent, from int) (models.StructureEvent, bool) {
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].TriggerIndex >= from {
			return events[i], true
		}
	}
	return models.StructureEvent{}, false
}

func (v *Validator) macdCrossed(set *models.IndicatorSet, k int, dir models.Direction) bool {
	for j := k; j >= max(1, k-v.cfg.TriggerLookback+1); j-- {
		if set.MACDSignal[j-1] == 0 {
			continue
		}
		if dir == models.DirectionLong && indicators.CrossedAbove(set.MACD, set.MACDSignal, j) {
			return true
		}
		if dir == models.DirectionShort && indicators.CrossedBelow(set.MACD, set.MACDSignal, j) {
			return true
		}
	}
	return false
}

// levels puts the stop beyond the recent 15M extreme plus an ATR buffer and
// the target a multiple of 4H ATR away from entry.
func (v *Validator) levels(bars []models.Bar, k int, dir models.Direction, entry, atr15, atr4h float64) (stop, target float64) {
	from := max(0, k-v.cfg.StopLookback+1)
	if dir == models.DirectionLong {
		low := bars[from].Low
		for _, b := range bars[from : k+1] {
			low = min(low, b.Low)
		}
		return low - v.cfg.StopATRBuffer*atr15, entry + v.cfg.TargetATRMultiple*atr4h
	}
	high := bars[from].High
	for _, b := range bars[from : k+1] {
		high = max(high, b.High)
	}
	return high + v.cfg.StopATRBuffer*atr15, entry - v.cfg.TargetATRMultiple*atr4h
}

func supporting(a structure.Analysis, bias models.Bias, lookback int) []models.Pattern {
	from := a.Series.Len() - lookback
	var out []models.Pattern
	for _, p := range a.Patterns {
		if p.Bias == bias && p.Index >= from {
			out = append(out, p)
		}
	}
	return out
}

// technicalStrength averages context slope strength, pullback depth, MACD
// histogram alignment, 1H trend alignment and structure confidence.
func (v *Validator) technicalStrength(s Setup, set *models.IndicatorSet, k int, h1 structure.Analysis) float64 {
	ctx := clamp01(math.Abs(s.ContextSlope) / (3 * v.cfg.ContextMinSlope))

	var depth float64
	if s.Direction == models.DirectionLong {
		depth = (v.cfg.LongRSIMax - s.TriggerRSI) / (v.cfg.LongRSIMax - v.cfg.LongRSIMin)
	} else {
		depth = (s.TriggerRSI - v.cfg.ShortRSIMin) / (v.cfg.ShortRSIMax - v.cfg.ShortRSIMin)
	}
	depth = clamp01(depth)

	hist := 0.5
	if models.At(set.MACDHist, k)*s.Direction.Sign() > 0 {
		hist = 1
	}

	trend := 0.5
	if h1.Indicators != nil {
		if last, ok := h1.Series.Last(); ok {
			ema := models.Last(h1.Indicators.EMASlow)
			if ema > 0 && (last.Close-ema)*s.Direction.Sign() > 0 {
				trend = 1
			} else if ema > 0 {
				trend = 0
			}
		}
	}

	structural := clamp01((s.CHoCH.Confidence + s.BOS.Confidence) / (2 * 0.95))

	return (ctx + depth + hist + trend + structural) / 5
}

func clamp01(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}
