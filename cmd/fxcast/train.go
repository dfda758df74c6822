package main

import (
	"encoding/json"
	"fmt"

	"FxCast/internal/di"
	xutil "FxCast/pkg/util"

	"github.com/spf13/cobra"
)

var trainStart string

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Fetch series, train the model, write the evaluation table",
	Long: `Fetches every indicator (or reads them from ClickHouse when
model.source is clickhouse), builds the lagged feature table, trains the
forest on the first 80% of rows and scores the rest. The artifact and the
held-out table are written to model.artifact_path and
files.evaluation_table.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if trainStart != "" {
			if _, ok := xutil.ParseDate(trainStart); !ok {
				return fmt.Errorf("--start: invalid date %q", trainStart)
			}
			cfg.FRED.ObservationStart = trainStart
		}
		trainer, cleanup, err := di.InitializeTrainer(cfg)
		if err != nil {
			return fmt.Errorf("trainer initialization failed: %w", err)
		}
		defer cleanup()

		out, err := trainer.UseCase.Run(cmd.Context(), trainer.Start.Date)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

func init() {
	trainCmd.Flags().StringVar(&trainStart, "start", "", "first observation date (overrides fred.observation_start)")
}
