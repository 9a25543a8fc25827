package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"hpp-sizer/internal/model"
)

func npcCmd() *cobra.Command {
	var (
		cfgPath      string
		plant        model.Configuration
		cashFlowPath string
	)
	cmd := &cobra.Command{
		Use:   "npc",
		Short: "Compute the net present cost of one plant",
		Long:  `Price a plant from the config's asset costs and economics. No site data is read.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cfgPath, "")
			if err != nil {
				return err
			}
			fm, err := model.NewFinancialModel(cfg.EconomicParams())
			if err != nil {
				return err
			}
			res, err := fm.ComputeNPC(plant, cfg.PlantSpecs().Costs())
			if err != nil {
				return err
			}
			if cashFlowPath != "" {
				if err := writeOutputs(nil, res, "", cashFlowPath); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Plant: %s real discount rate=%.4f lifetime=%d years\n",
				plant, fm.Params().RealDiscountRate(), fm.Params().ProjectLifetimeYears)
			fmt.Fprintf(out, "NPC=$%.2f\n", res.NPC)
			printAssets(out, res.Assets)
			return nil
		},
	}
	cmd.Flags().StringVar(&cfgPath, "config", "", "Path to YAML config (required)")
	addConfigurationFlags(cmd, &plant)
	cmd.Flags().StringVar(&cashFlowPath, "cashflow", "", "Optional path to write the cash-flow CSV")
	_ = cmd.MarkFlagRequired("config")
	return cmd
}
