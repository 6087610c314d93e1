package backtest

import (
	"fmt"
	"time"

	"FinSignal/internal/domain/models"
)

type TieBreak string

const (
	// TieConservative resolves a bar touching both levels as STOP_HIT.
	TieConservative TieBreak = "conservative"
	// TieOptimistic resolves it as TARGET_HIT.
	TieOptimistic TieBreak = "optimistic"
)

type Config struct {
	Mode     models.BacktestMode
	Expiry   time.Duration
	TieBreak TieBreak
	// Fixed-percentage levels, as fractions of entry.
	FixedTargetPct float64
	FixedStopPct   float64
}

func DefaultConfig() Config {
	return Config{
		Mode:           models.ModePattern,
		Expiry:         7 * 24 * time.Hour,
		TieBreak:       TieConservative,
		FixedTargetPct: 0.60,
		FixedStopPct:   0.40,
	}
}

func (c Config) Validate() error {
	switch c.Mode {
	case models.ModePattern, models.ModeFixedPercentage:
	default:
		return fmt.Errorf("unknown backtest mode %q", c.Mode)
	}
	switch c.TieBreak {
	case TieConservative, TieOptimistic:
	default:
		return fmt.Errorf("unknown tie break %q", c.TieBreak)
	}
	if c.Expiry <= 0 {
		return fmt.Errorf("expiry must be positive")
	}
	if c.FixedTargetPct <= 0 || c.FixedStopPct <= 0 || c.FixedStopPct >= 1 {
		return fmt.Errorf("fixed percentages out of range")
	}
	return nil
}

type Simulator struct {
	cfg Config
}

func NewSimulator(cfg Config) *Simulator {
	return &Simulator{cfg: cfg}
}

func (s *Simulator) Config() Config { return s.cfg }

// Levels returns the target and stop used for sig under the configured mode.
func (s *Simulator) Levels(sig models.SignalCandidate) (target, stop float64) {
	if s.cfg.Mode != models.ModeFixedPercentage {
		return sig.TargetPrice, sig.StopPrice
	}
	e := sig.EntryPrice
	if sig.Direction == models.DirectionShort {
		return e * (1 - s.cfg.FixedTargetPct), e * (1 + s.cfg.FixedStopPct)
	}
	return e * (1 + s.cfg.FixedTargetPct), e * (1 - s.cfg.FixedStopPct)
}

// Replay walks bars strictly after the signal's creation and up to the expiry
// window end. horizon is the last instant the data source has covered; a zero
// horizon means the last bar supplied. Bars need not be pre-filtered but must
// be ascending.
func (s *Simulator) Replay(sig models.SignalCandidate, bars []models.Bar, horizon time.Time) models.BacktestOutcome {
	target, stop := s.Levels(sig)
	out := models.BacktestOutcome{
		SignalID:        sig.ID,
		Symbol:          sig.Symbol,
		Direction:       sig.Direction,
		Mode:            s.cfg.Mode,
		SignalCreatedAt: sig.CreatedAt,
		EntryPrice:      sig.EntryPrice,
		TargetPrice:     target,
		StopPrice:       stop,
	}
	windowEnd := sig.CreatedAt.Add(s.cfg.Expiry)
	if horizon.IsZero() && len(bars) > 0 {
		horizon = bars[len(bars)-1].Timestamp
	}

	for _, b := range bars {
		if !b.Timestamp.After(sig.CreatedAt) {
			continue
		}
		if b.Timestamp.After(windowEnd) {
			break
		}
		hitTarget, hitStop := touches(sig.Direction, b, target, stop)
		if !hitTarget && !hitStop {
			continue
		}
		if hitStop && (!hitTarget || s.cfg.TieBreak == TieConservative) {
			return resolve(out, models.StatusStopHit, stop, b.Timestamp)
		}
		return resolve(out, models.StatusTargetHit, target, b.Timestamp)
	}

	if horizon.Before(windowEnd) {
		out.Status = models.StatusPending
		return out
	}
	out.Status = models.StatusExpired
	out.HoldingDuration = s.cfg.Expiry
	return out
}

func touches(dir models.Direction, b models.Bar, target, stop float64) (hitTarget, hitStop bool) {
	if dir == models.DirectionShort {
		return b.Low <= target, b.High >= stop
	}
	return b.High >= target, b.Low <= stop
}

func resolve(o models.BacktestOutcome, status models.OutcomeStatus, price float64, at time.Time) models.BacktestOutcome {
	o.Status = status
	o.ExecutionPrice = &price
	o.ExecutionTime = &at
	o.HoldingDuration = at.Sub(o.SignalCreatedAt)
	if o.EntryPrice > 0 {
		o.ReturnPct = (price - o.EntryPrice) / o.EntryPrice * o.Direction.Sign() * 100
	}
	return o
}
