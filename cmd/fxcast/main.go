package main

import (
	"context"
	"fmt"
	"os"

	"FxCast/pkg/config"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "fxcast",
	Short: "USD/EUR scenario forecasting dashboard",
	Long: `fxcast fetches macro series from FRED, trains a random-forest model of
the USD/EUR rate, and serves scenario predictions next to the
decomposition forecast band.

Commands:
  serve    - run the dashboard HTTP API
  train    - fetch series, train the model, write the evaluation table
  simulate - print scenario predictions for the latest evaluation row`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config/config.yaml", "config file path")
	rootCmd.AddCommand(serveCmd, trainCmd, simulateCmd)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadWithEnv(configPath)
	if err != nil {
		return nil, fmt.Errorf("config load failed: %w", err)
	}
	return cfg, nil
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
