package models

import "time"

type OutcomeStatus string

const (
	StatusTargetHit OutcomeStatus = "TARGET_HIT"
	StatusStopHit   OutcomeStatus = "STOP_HIT"
	StatusExpired   OutcomeStatus = "EXPIRED"
	StatusPending   OutcomeStatus = "PENDING"
)

// AllStatuses in report order.
var AllStatuses = []OutcomeStatus{StatusTargetHit, StatusStopHit, StatusExpired, StatusPending}

type BacktestMode string

const (
	ModePattern         BacktestMode = "pattern"
	ModeFixedPercentage BacktestMode = "fixed_percentage"
)

// BacktestOutcome is the result of replaying one signal. A replay always
// builds a new value; outcomes are never updated in place.
type BacktestOutcome struct {
	SignalID        string        `json:"signal_id"`
	Symbol          string        `json:"symbol"`
	Direction       Direction     `json:"direction"`
	Mode            BacktestMode  `json:"mode"`
	Status          OutcomeStatus `json:"status"`
	SignalCreatedAt time.Time     `json:"signal_created_at"`
	EntryPrice      float64       `json:"entry_price"`
	TargetPrice     float64       `json:"target_price"`
	StopPrice       float64       `json:"stop_price"`
	ExecutionPrice  *float64      `json:"execution_price,omitempty"`
	ExecutionTime   *time.Time    `json:"execution_time,omitempty"`
	HoldingDuration time.Duration `json:"holding_duration"`
	ReturnPct       float64       `json:"return_pct"`
}

// Resolved reports whether the outcome represents a closed trade.
func (o BacktestOutcome) Resolved() bool {
	return o.Status == StatusTargetHit || o.Status == StatusStopHit
}

// BacktestStats are aggregate figures over a set of outcomes.
type BacktestStats struct {
	Total         int                   `json:"total"`
	CountByStatus map[OutcomeStatus]int `json:"count_by_status"`
	WinRate       float64               `json:"win_rate"`
	// ProfitFactor is nil when there are no losing trades.
	ProfitFactor *float64      `json:"profit_factor"`
	AvgReturnPct float64       `json:"avg_return_pct"`
	AvgHolding   time.Duration `json:"avg_holding"`
}

// BacktestReport bundles outcomes and their statistics.
type BacktestReport struct {
	From     time.Time         `json:"from"`
	To       time.Time         `json:"to"`
	Mode     BacktestMode      `json:"mode"`
	Signals  []RankedSignal    `json:"signals"`
	Outcomes []BacktestOutcome `json:"outcomes"`
	Stats    BacktestStats     `json:"stats"`
}
