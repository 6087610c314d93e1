package backtest

import (
	"math"
	"time"

	"FinSignal/internal/domain/models"
)

// Aggregate computes win rate over resolved trades (EXPIRED and PENDING are
// excluded) and profit factor as the sum of winning percentage moves over the
// sum of losing ones.
func Aggregate(outcomes []models.BacktestOutcome) models.BacktestStats {
	st := models.BacktestStats{
		Total:         len(outcomes),
		CountByStatus: make(map[models.OutcomeStatus]int, len(models.AllStatuses)),
	}
	for _, s := range models.AllStatuses {
		st.CountByStatus[s] = 0
	}

	var wins, losses int
	var grossWin, grossLoss, sumReturn float64
	var holding time.Duration
	for _, o := range outcomes {
		st.CountByStatus[o.Status]++
		if !o.Resolved() {
			continue
		}
		sumReturn += o.ReturnPct
		holding += o.HoldingDuration
		if o.Status == models.StatusTargetHit {
			wins++
			grossWin += math.Abs(o.ReturnPct)
		} else {
			losses++
			grossLoss += math.Abs(o.ReturnPct)
		}
	}

	resolved := wins + losses
	if resolved > 0 {
		st.WinRate = float64(wins) / float64(resolved)
		st.AvgReturnPct = sumReturn / float64(resolved)
		st.AvgHolding = holding / time.Duration(resolved)
	}
	if grossLoss > 0 {
		pf := grossWin / grossLoss
		st.ProfitFactor = &pf
	}
	return st
}
