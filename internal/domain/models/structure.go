package models

import "time"

// Bias is the direction implied by a structure event or pattern.
type Bias string

const (
	BiasBullish Bias = "bullish"
	BiasBearish Bias = "bearish"
)

// Direction maps a bias onto a trade direction.
func (b Bias) Direction() Direction {
	if b == BiasBearish {
		return DirectionShort
	}
	return DirectionLong
}

type StructureType string

const (
	StructureBOS   StructureType = "BOS"
	StructureCHoCH StructureType = "CHOCH"
)

// StructureEvent is a break of structure or change of character at one bar.
type StructureEvent struct {
	Type           StructureType `json:"type"`
	Bias           Bias          `json:"direction"`
	Timeframe      Timeframe     `json:"timeframe"`
	TriggerIndex   int           `json:"trigger_index"`
	TriggerAt      time.Time     `json:"trigger_at"`
	ReferenceLevel float64       `json:"reference_level"`
	BreakSize      float64       `json:"break_size"`
	VolumeRatio    float64       `json:"volume_ratio"`
	Confidence     float64       `json:"confidence"`
}

type PatternType string

const (
	PatternOrderBlock     PatternType = "ORDER_BLOCK"
	PatternFVG            PatternType = "FVG"
	PatternLiquiditySweep PatternType = "LIQUIDITY_SWEEP"
)

// Pattern is a detected price zone. Values are never mutated after detection.
type Pattern struct {
	Type        PatternType `json:"type"`
	Bias        Bias        `json:"direction"`
	Timeframe   Timeframe   `json:"timeframe"`
	Index       int         `json:"index"`
	At          time.Time   `json:"at"`
	Low         float64     `json:"low"`
	High        float64     `json:"high"`
	VolumeRatio float64     `json:"volume_ratio"`
	Confidence  float64     `json:"confidence"`
}
