package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"hpp-sizer/internal/model"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var logLevel string
	cmd := &cobra.Command{
		Use:   "hpp",
		Short: "Size hybrid solar, wind and storage plants",
		Long: `hpp finds the cheapest mix of solar modules, wind turbines and storage
units that serves a load profile within a tolerated shortage.

Quick start:
  hpp optimize --config examples/config.yaml --out results/dispatch.csv
  hpp evaluate --config examples/config.yaml --solar 40 --wind 3 --storage 20
  hpp npc --config examples/config.yaml --wind 2
  hpp catalog list`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := parseLevel(logLevel)
			if err != nil {
				return err
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level: debug, info, warn, error")

	cmd.AddCommand(optimizeCmd())
	cmd.AddCommand(evaluateCmd())
	cmd.AddCommand(npcCmd())
	cmd.AddCommand(catalogCmd())
	return cmd
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return 0, fmt.Errorf("invalid --log-level %q", s)
	}
	return level, nil
}

// addConfigurationFlags registers --solar, --wind and --storage unit counts.
func addConfigurationFlags(cmd *cobra.Command, cfg *model.Configuration) {
	cmd.Flags().Float64Var(&cfg.Solar, "solar", 0, "Number of solar modules")
	cmd.Flags().Float64Var(&cfg.Wind, "wind", 0, "Number of wind turbines")
	cmd.Flags().Float64Var(&cfg.Storage, "storage", 0, "Number of storage units")
}
