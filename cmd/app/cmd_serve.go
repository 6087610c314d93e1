package main

import (
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, the generation schedule and bar ingest",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, cleanup, err := bootstrap()
		if err != nil {
			return err
		}
		defer cleanup()
		return app.Run(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
