package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"FinSignal/internal/domain/models"
	"FinSignal/internal/services/backtest"
	"FinSignal/internal/usecase"
	"FinSignal/pkg/util"
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Replay historical generation cycles and resolve their outcomes",
	Long: `Step through [--from, --to] every --step, collect the signals each cycle
would have emitted and replay them against later bars.

Examples:
  finsignal backtest --symbols AAPL --from 2024-01-01 --to 2024-03-01
  finsignal backtest --symbols AAPL,MSFT --from 2024-01-01 --to 2024-03-01 --mode fixed_percentage --out outcomes.csv`,
	RunE: runBacktest,
}

var (
	backtestSymbols string
	backtestFrom    string
	backtestTo      string
	backtestStep    time.Duration
	backtestMode    string
	backtestOut     string
)

func init() {
	rootCmd.AddCommand(backtestCmd)

	backtestCmd.Flags().StringVar(&backtestSymbols, "symbols", "", "comma separated symbols (default: config symbols)")
	backtestCmd.Flags().StringVar(&backtestFrom, "from", "", "first generation instant")
	backtestCmd.Flags().StringVar(&backtestTo, "to", "", "last generation instant")
	backtestCmd.Flags().DurationVar(&backtestStep, "step", 4*time.Hour, "distance between generation instants")
	backtestCmd.Flags().StringVar(&backtestMode, "mode", "", "pattern or fixed_percentage (default: config)")
	backtestCmd.Flags().StringVar(&backtestOut, "out", "", "write outcomes as CSV to this file instead of JSON to stdout")

	_ = backtestCmd.MarkFlagRequired("from")
	_ = backtestCmd.MarkFlagRequired("to")
}

func runBacktest(cmd *cobra.Command, _ []string) error {
	from, ok := util.ParseTime(backtestFrom)
	if !ok {
		return fmt.Errorf("invalid --from %q", backtestFrom)
	}
	to, ok := util.ParseTime(backtestTo)
	if !ok {
		return fmt.Errorf("invalid --to %q", backtestTo)
	}
	mode := models.BacktestMode(strings.ToLower(backtestMode))
	switch mode {
	case "", models.ModePattern, models.ModeFixedPercentage:
	default:
		return fmt.Errorf("invalid --mode %q", backtestMode)
	}

	app, cleanup, err := bootstrap()
	if err != nil {
		return err
	}
	defer cleanup()

	symbols := app.Config().Symbols
	if backtestSymbols != "" {
		symbols = util.UpperAll(util.SplitList(backtestSymbols))
	}

	rep, err := app.Backtests().Run(cmd.Context(), usecase.BacktestParams{
		Symbols: symbols,
		From:    from,
		To:      to,
		Step:    backtestStep,
		Mode:    mode,
	})
	if err != nil {
		return err
	}

	if backtestOut == "" {
		return writeJSON(os.Stdout, rep)
	}
	f, err := os.Create(backtestOut)
	if err != nil {
		return fmt.Errorf("create %s: %w", backtestOut, err)
	}
	defer f.Close()
	if err := backtest.WriteCSV(f, rep.Outcomes); err != nil {
		return err
	}
	return writeJSON(os.Stdout, rep.Stats)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
