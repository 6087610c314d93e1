package backtest

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"FinSignal/internal/domain/models"
)

var csvHeader = []string{
	"signal_id", "symbol", "direction", "mode", "status", "created_at",
	"entry_price", "target_price", "stop_price", "execution_price", "execution_time",
	"holding_hours", "return_pct",
}

// WriteCSV exports outcomes one row per signal.
func WriteCSV(w io.Writer, outcomes []models.BacktestOutcome) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, o := range outcomes {
		exec, execAt := "", ""
		if o.ExecutionPrice != nil {
			exec = formatFloat(*o.ExecutionPrice)
		}
		if o.ExecutionTime != nil {
			execAt = o.ExecutionTime.UTC().Format(time.RFC3339)
		}
		row := []string{
			o.SignalID, o.Symbol, string(o.Direction), string(o.Mode), string(o.Status),
			o.SignalCreatedAt.UTC().Format(time.RFC3339),
			formatFloat(o.EntryPrice), formatFloat(o.TargetPrice), formatFloat(o.StopPrice),
			exec, execAt,
			strconv.FormatFloat(o.HoldingDuration.Hours(), 'f', 2, 64),
			strconv.FormatFloat(o.ReturnPct, 'f', 4, 64),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
