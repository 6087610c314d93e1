package models

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

type Direction string

const (
	DirectionLong  Direction = "long"
	DirectionShort Direction = "short"
)

// Sign returns +1 for long and -1 for short.
func (d Direction) Sign() float64 {
	if d == DirectionShort {
		return -1
	}
	return 1
}

// Bias maps a trade direction onto the structure bias that supports it.
func (d Direction) Bias() Bias {
	if d == DirectionShort {
		return BiasBearish
	}
	return BiasBullish
}

func (d Direction) IsValid() bool { return d == DirectionLong || d == DirectionShort }

// ComponentScores are the per-factor inputs to the confidence score, each in [0,1].
type ComponentScores struct {
	Technical float64 `json:"technical"`
	Sentiment float64 `json:"sentiment"`
	News      float64 `json:"news"`
	Volume    float64 `json:"volume"`
	Pattern   float64 `json:"pattern"`
}

// SignalCandidate is a validated multi-timeframe setup with its score.
// Build it with NewSignalCandidate.
type SignalCandidate struct {
	ID             string          `json:"id"`
	Symbol         string          `json:"symbol"`
	Direction      Direction       `json:"direction"`
	TimeframeChain []Timeframe     `json:"timeframe_chain"`
	EntryPrice     float64         `json:"entry_price"`
	StopPrice      float64         `json:"stop_price"`
	TargetPrice    float64         `json:"target_price"`
	Components     ComponentScores `json:"component_scores"`
	Confidence     float64         `json:"confidence"`
	RiskReward     float64         `json:"risk_reward_ratio"`
	Regime         Regime          `json:"regime"`
	LowConfidence  bool            `json:"low_confidence"`
	CreatedAt      time.Time       `json:"created_at"`
}

// CandidateParams are the raw inputs of NewSignalCandidate.
type CandidateParams struct {
	Symbol         string
	Direction      Direction
	TimeframeChain []Timeframe
	Entry          float64
	Stop           float64
	Target         float64
	Components     ComponentScores
	Confidence     float64
	Regime         Regime
	LowConfidence  bool
	// CreatedAt is the timestamp of the bar that triggered the setup.
	CreatedAt time.Time
}

// NewSignalCandidate enforces price geometry and a historical UTC creation time.
func NewSignalCandidate(p CandidateParams) (SignalCandidate, error) {
	if p.Symbol == "" {
		return SignalCandidate{}, ErrEmptySymbol
	}
	if p.CreatedAt.IsZero() {
		return SignalCandidate{}, ErrMissingTimestamp
	}
	if !p.Direction.IsValid() {
		return SignalCandidate{}, fmt.Errorf("unknown direction %q", p.Direction)
	}
	if err := checkGeometry(p.Direction, p.Entry, p.Stop, p.Target); err != nil {
		return SignalCandidate{}, err
	}
	chain := make([]Timeframe, len(p.TimeframeChain))
	copy(chain, p.TimeframeChain)
	return SignalCandidate{
		ID:             uuid.NewString(),
		Symbol:         p.Symbol,
		Direction:      p.Direction,
		TimeframeChain: chain,
		EntryPrice:     p.Entry,
		StopPrice:      p.Stop,
		TargetPrice:    p.Target,
		Components:     p.Components,
		Confidence:     p.Confidence,
		RiskReward:     RiskReward(p.Entry, p.Stop, p.Target),
		Regime:         p.Regime,
		LowConfidence:  p.LowConfidence,
		CreatedAt:      p.CreatedAt.UTC(),
	}, nil
}

func checkGeometry(d Direction, entry, stop, target float64) error {
	if entry <= 0 || math.IsNaN(entry) || math.IsNaN(stop) || math.IsNaN(target) {
		return fmt.Errorf("%w: entry=%v stop=%v target=%v", ErrInvalidGeometry, entry, stop, target)
	}
	switch d {
	case DirectionLong:
		if stop < entry && entry < target {
			return nil
		}
	case DirectionShort:
		if target < entry && entry < stop {
			return nil
		}
	}
	return fmt.Errorf("%w: %s entry=%v stop=%v target=%v", ErrInvalidGeometry, d, entry, stop, target)
}

// RiskReward returns |target-entry| / |entry-stop|, or 0 when risk is zero.
func RiskReward(entry, stop, target float64) float64 {
	risk := math.Abs(entry - stop)
	if risk == 0 {
		return 0
	}
	return math.Abs(target-entry) / risk
}

// Outranks orders candidates by confidence desc, then risk/reward desc,
// then the more recent creation time. Ties fall back to ID for determinism.
func (c SignalCandidate) Outranks(o SignalCandidate) bool {
	if c.Confidence != o.Confidence {
		return c.Confidence > o.Confidence
	}
	if c.RiskReward != o.RiskReward {
		return c.RiskReward > o.RiskReward
	}
	if !c.CreatedAt.Equal(o.CreatedAt) {
		return c.CreatedAt.After(o.CreatedAt)
	}
	return c.ID < o.ID
}

// RankedSignal is a candidate that survived the gate, dedup and top-K selection.
type RankedSignal struct {
	SignalCandidate
	Rank int `json:"rank"`
}
