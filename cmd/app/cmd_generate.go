package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"FinSignal/internal/usecase"
	"FinSignal/pkg/util"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Run one generation cycle and print the ranked signals",
	Long: `Run one generation cycle over the configured (or given) symbols and print
the report as JSON. Only bars closed at or before --at are used.

Examples:
  finsignal generate
  finsignal generate --symbols AAPL,MSFT --at 2024-05-01T00:00:00Z
  finsignal generate --emit`,
	RunE: runGenerate,
}

var (
	generateSymbols string
	generateAt      string
	generateEmit    bool
)

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().StringVar(&generateSymbols, "symbols", "", "comma separated symbols (default: config symbols)")
	generateCmd.Flags().StringVar(&generateAt, "at", "", "evaluation instant, RFC3339 or unix seconds (default: now)")
	generateCmd.Flags().BoolVar(&generateEmit, "emit", false, "publish the ranked list to the configured sinks")
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	var at time.Time
	if generateAt != "" {
		t, ok := util.ParseTime(generateAt)
		if !ok {
			return fmt.Errorf("invalid --at %q", generateAt)
		}
		at = t
	}

	app, cleanup, err := bootstrap()
	if err != nil {
		return err
	}
	defer cleanup()

	symbols := app.Config().Symbols
	if generateSymbols != "" {
		symbols = util.UpperAll(util.SplitList(generateSymbols))
	}

	var rep *usecase.CycleReport
	if generateEmit {
		rep, err = app.Generator().RunCycle(cmd.Context(), symbols, at)
	} else {
		rep = app.Generator().Generate(cmd.Context(), symbols, at)
	}

	if encErr := writeJSON(os.Stdout, rep); encErr != nil {
		return encErr
	}
	return err
}
