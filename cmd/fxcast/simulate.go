package main

import (
	"fmt"

	"FxCast/internal/di"
	"FxCast/internal/domain/models"
	xutil "FxCast/pkg/util"

	"github.com/spf13/cobra"
)

var (
	simulateVariation float64
	simulateRows      int
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Print scenario predictions for the latest evaluation rows",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if !cmd.Flags().Changed("variation") {
			simulateVariation = cfg.Scenario.Variation
		}
		uc, cleanup, err := di.InitializeDashboard(cfg)
		if err != nil {
			return fmt.Errorf("dashboard initialization failed: %w", err)
		}
		defer cleanup()

		preds, err := uc.Scenarios(cmd.Context(), simulateVariation, simulateRows)
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "%-10s", "date")
		for _, s := range models.Scenarios {
			fmt.Fprintf(w, " %12s", s)
		}
		fmt.Fprintln(w)
		for _, p := range preds {
			fmt.Fprintf(w, "%-10s", xutil.FormatDate(p.Date))
			for _, v := range p.Values() {
				fmt.Fprintf(w, " %12.4f", v)
			}
			fmt.Fprintln(w)
		}
		return nil
	},
}

func init() {
	simulateCmd.Flags().Float64Var(&simulateVariation, "variation", models.DefaultVariation, "relative driver shift")
	simulateCmd.Flags().IntVar(&simulateRows, "rows", 1, "number of trailing evaluation rows")
}
