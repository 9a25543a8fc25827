package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"hpp-sizer/internal/analysis"
	"hpp-sizer/internal/model"
)

func evaluateCmd() *cobra.Command {
	var (
		cfgPath      string
		plant        model.Configuration
		outPath      string
		cashFlowPath string
		asJSON       bool
	)
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Dispatch and price one plant",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cfgPath, "")
			if err != nil {
				return err
			}
			obj, _, err := buildObjective(cmd, cfg)
			if err != nil {
				return err
			}
			ev, err := obj.Evaluate(plant)
			if err != nil {
				return err
			}
			if err := writeOutputs(ev.Dispatch, ev.NPC, outPath, cashFlowPath); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			summary := analysis.Summarize(ev.Dispatch)
			if asJSON {
				return writeJSON(out, map[string]any{"evaluation": ev, "summary": summary})
			}
			fmt.Fprintf(out, "Plant: %s feasible=%v score=%.2f\n", ev.Config, ev.Feasible, ev.Score)
			fmt.Fprintf(out, "Shortage=%.4f (max %.4f) Unmet=%.1f kWh Curtailed=%.1f kWh\n",
				summary.ShortageFraction, cfg.MaxShortageValue(), summary.UnmetKWh, summary.CurtailedKWh)
			fmt.Fprintf(out, "NPC=$%.2f\n", ev.NPC.NPC)
			printAssets(out, ev.NPC.Assets)
			return nil
		},
	}
	cmd.Flags().StringVar(&cfgPath, "config", "", "Path to YAML config (required)")
	addConfigurationFlags(cmd, &plant)
	cmd.Flags().StringVar(&outPath, "out", "", "Optional path to write the dispatch ledger CSV")
	cmd.Flags().StringVar(&cashFlowPath, "cashflow", "", "Optional path to write the cash-flow CSV")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full evaluation as JSON")
	_ = cmd.MarkFlagRequired("config")
	return cmd
}
