package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"FinSignal/internal/di"
	"FinSignal/pkg/config"
	"FinSignal/pkg/server"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "finsignal",
	Short: "Multi-timeframe market-structure signal generator",
	Long: `FinSignal scores long/short entry setups from 1D/4H/1H/15M bar structure,
ranks them by a weighted confidence and replays them against history.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config/config.yaml", "config file path")
}

// bootstrap loads configuration and wires the full dependency graph.
func bootstrap() (*server.App, func(), error) {
	cfg, err := config.LoadWithEnv(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("config load failed: %w", err)
	}
	app, cleanup, err := di.InitializeApp(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("app initialization failed: %w", err)
	}
	return app, cleanup, nil
}

func main() {
	// An interrupt cancels a generate or backtest run between symbols.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
