package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"hpp-sizer/internal/analysis"
	"hpp-sizer/internal/config"
	"hpp-sizer/internal/data"
	"hpp-sizer/internal/dispatch"
	"hpp-sizer/internal/model"
	"hpp-sizer/internal/objective"
	"hpp-sizer/internal/search"
)

func optimizeCmd() *cobra.Command {
	var (
		cfgPath      string
		strategyName string
		seed         uint64
		outPath      string
		cashFlowPath string
		top          int
		asJSON       bool
	)
	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Search for the cheapest feasible plant",
		Long: `Load the site data named in the config, run the configured search
strategy and report the best plant with its dispatch summary and NPC.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cfgPath, strategyName)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("seed") {
				if cfg.Strategy.Params == nil {
					cfg.Strategy.Params = map[string]any{}
				}
				cfg.Strategy.Params["seed"] = float64(seed)
			}
			obj, site, err := buildObjective(cmd, cfg)
			if err != nil {
				return err
			}
			strategy, err := cfg.BuildStrategy(slog.Default())
			if err != nil {
				return err
			}
			if es, ok := strategy.(*search.ExhaustiveSearch); ok && top > 0 {
				es.KeepFeasible = true
			}

			res, err := strategy.Optimize(cfg.SearchSpace(), obj)
			if err != nil {
				return err
			}
			if err := writeOutputs(res.Dispatch, res.NPC, outPath, cashFlowPath); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			summary := analysis.Summarize(res.Dispatch)
			if asJSON {
				return writeJSON(out, map[string]any{"result": res, "summary": summary})
			}
			printOptimize(out, cfg, site, res, summary)
			if top > 0 {
				printRanking(out, analysis.RankFeasible(res.FeasiblePoints, top))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&cfgPath, "config", "", "Path to YAML config (required)")
	cmd.Flags().StringVar(&strategyName, "strategy", "", "Override strategy: exhaustive or differential_evolution")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "Override the differential evolution seed")
	cmd.Flags().StringVar(&outPath, "out", "", "Optional path to write the dispatch ledger CSV")
	cmd.Flags().StringVar(&cashFlowPath, "cashflow", "", "Optional path to write the cash-flow CSV")
	cmd.Flags().IntVar(&top, "top", 0, "Print the N cheapest feasible grid points (exhaustive only)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full result as JSON")
	_ = cmd.MarkFlagRequired("config")
	return cmd
}

func loadConfig(path, strategyName string) (*config.Config, error) {
	cfg, err := config.LoadUnchecked(path)
	if err != nil {
		return nil, err
	}
	if strategyName != "" {
		cfg.Strategy.Name = strategyName
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func buildObjective(cmd *cobra.Command, cfg *config.Config) (*objective.Function, *data.Site, error) {
	site, err := data.LoadSite(cmd.Context(), cfg.Data)
	if err != nil {
		return nil, nil, err
	}
	obj, err := objective.New(cfg.Problem(site), cfg.ObjectiveOptions(slog.Default())...)
	if err != nil {
		return nil, nil, err
	}
	return obj, site, nil
}

func writeOutputs(res *dispatch.Result, npc model.NPCResult, ledgerPath, cashFlowPath string) error {
	if ledgerPath != "" {
		if err := os.MkdirAll(filepath.Dir(ledgerPath), 0o755); err != nil {
			return err
		}
		if err := dispatch.WriteLedgerCSV(ledgerPath, res.Ledger); err != nil {
			return err
		}
	}
	if cashFlowPath != "" {
		if err := os.MkdirAll(filepath.Dir(cashFlowPath), 0o755); err != nil {
			return err
		}
		if err := model.WriteCashFlowCSV(cashFlowPath, npc); err != nil {
			return err
		}
	}
	return nil
}

func printOptimize(w io.Writer, cfg *config.Config, site *data.Site, res *search.Result, s analysis.DispatchSummary) {
	status := "INFEASIBLE"
	if res.Feasible {
		status = "FEASIBLE"
	}
	econ := cfg.EconomicParams()
	horizon := float64(site.Load.Len()) * site.Load.StepHours

	fmt.Fprintf(w, "Strategy: %s (%d evaluations, %s)\n", res.Strategy, res.Evaluations, res.Elapsed.Round(time.Millisecond))
	if res.Continuous != nil {
		fmt.Fprintf(w, "Continuous optimum: %s (generations=%d converged=%v)\n", res.Continuous, res.Iterations, res.Converged)
	}
	fmt.Fprintf(w, "Best plant: %s [%s]\n", res.Best, status)
	fmt.Fprintf(w, "NPC=$%.2f LCOE=$%.4f/kWh\n", res.NPC.NPC,
		analysis.LevelizedCost(res.NPC.NPC, econ.RealDiscountRate(), econ.ProjectLifetimeYears, res.Dispatch.ServedKWh, horizon))
	fmt.Fprintf(w, "Shortage=%.4f (max %.4f) Curtailment=%.4f Solar share=%.3f\n",
		s.ShortageFraction, cfg.MaxShortageValue(), s.CurtailmentFraction, s.SolarShare)
	fmt.Fprintf(w, "Load=%.1f kWh Served=%.1f kWh Unmet=%.1f kWh Curtailed=%.1f kWh\n",
		s.LoadKWh, s.ServedKWh, s.UnmetKWh, s.CurtailedKWh)
	if res.Dispatch.CapacityKWh > 0 {
		fmt.Fprintf(w, "SOC min/mean/max=%.3f/%.3f/%.3f Equivalent cycles=%.1f\n", s.MinSOC, s.MeanSOC, s.MaxSOC, s.EquivalentCycles)
	}
	printAssets(w, res.NPC.Assets)
}

func printAssets(w io.Writer, assets []model.AssetNPC) {
	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	fmt.Fprintln(tw, "ASSET\tCOUNT\tCAPITAL\tREPLACEMENT\tO&M\tSALVAGE\tTOTAL")
	for _, a := range assets {
		fmt.Fprintf(tw, "%s\t%g\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\n", a.Asset, a.Count, a.Capital, a.Replacement, a.OM, a.Salvage, a.Total)
	}
	tw.Flush()
}

func printRanking(w io.Writer, ranked []analysis.RankedDesign) {
	if len(ranked) == 0 {
		fmt.Fprintln(w, "No feasible grid points.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	fmt.Fprintln(tw, "RANK\tSOLAR\tWIND\tSTORAGE\tNPC\tABOVE BEST")
	for _, r := range ranked {
		fmt.Fprintf(tw, "%d\t%g\t%g\t%g\t%.2f\t%.2f\n", r.Rank, r.Config.Solar, r.Config.Wind, r.Config.Storage, r.Score, r.AboveBest)
	}
	tw.Flush()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
