package entry

import (
	"fmt"
	"time"

	"FinSignal/internal/domain/models"
	"FinSignal/internal/services/structure"
)

type Stage string

const (
	StageData         Stage = "data"
	StageContext      Stage = "1d_context"
	StageStructure    Stage = "4h_choch"
	StageConfirmation Stage = "1h_bos"
	StageTrigger      Stage = "15m_trigger"
	StageScoring      Stage = "scoring"
)

type Reason string

const (
	ReasonInsufficientData Reason = "insufficient_data"
	ReasonFlatContext      Reason = "flat_context"
	ReasonNoCHoCH          Reason = "no_choch"
	ReasonNoBOS            Reason = "no_bos"
	ReasonNoCandle         Reason = "no_candle_pattern"
	ReasonRSIOutOfBand     Reason = "rsi_out_of_band"
	ReasonNoMACDCross      Reason = "no_macd_cross"
	ReasonInvalidGeometry  Reason = "invalid_geometry"
	ReasonBelowGate        Reason = "below_gate"
)

// NoSignal explains why a symbol produced no setup this cycle.
type NoSignal struct {
	Stage  Stage  `json:"stage"`
	Reason Reason `json:"reason"`
	Detail string `json:"detail,omitempty"`
}

func (n NoSignal) String() string {
	if n.Detail == "" {
		return fmt.Sprintf("%s: %s", n.Stage, n.Reason)
	}
	return fmt.Sprintf("%s: %s (%s)", n.Stage, n.Reason, n.Detail)
}

// Setup is a fully aligned four-timeframe entry.
type Setup struct {
	Symbol         string
	Direction      models.Direction
	TimeframeChain []models.Timeframe
	Entry          float64
	Stop           float64
	Target         float64
	// TriggerAt is the close time of the 15M trigger bar.
	TriggerAt    time.Time
	ContextSlope float64
	CHoCH        models.StructureEvent
	BOS          models.StructureEvent
	Candle       structure.CandlePattern
	TriggerRSI   float64
	Patterns     []models.Pattern
	// VolumeRatios are collected from the CHoCH, the BOS and the trigger bar.
	VolumeRatios      []float64
	TechnicalStrength float64
	LowConfidence     bool
}

// Result is exactly one of Setup or NoSignal.
type Result struct {
	Setup    *Setup
	NoSignal *NoSignal
}

func (r Result) OK() bool { return r.Setup != nil }

func accept(s Setup) Result { return Result{Setup: &s} }

func reject(stage Stage, reason Reason, format string, args ...interface{}) Result {
	return Result{NoSignal: &NoSignal{Stage: stage, Reason: reason, Detail: fmt.Sprintf(format, args...)}}
}
