package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/crazynala/axisprod/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "axisprod",
	Short: "Production stage aggregation and material coverage engine",
	Long:  "Aggregates per-variant production activity into gated stage tables, evaluates raw-material coverage against stock and supply reservations, and surfaces procurement risk for apparel assemblies.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
