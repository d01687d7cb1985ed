package main

import (
	"encoding/json"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/crazynala/axisprod/internal/coverage"
	"github.com/crazynala/axisprod/internal/export"
	"github.com/crazynala/axisprod/internal/ingest"
	"github.com/crazynala/axisprod/internal/model"
)

var (
	runFileJSON bool
	runFileOut  string
)

var runFileCmd = &cobra.Command{
	Use:   "run-file <scenario.yaml>",
	Short: "Evaluate assemblies from a scenario file without a database",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sc, err := ingest.ReadScenario(args[0])
		if err != nil {
			return err
		}

		results := runScenario(sc, time.Now())

		if runFileOut != "" {
			report := export.Report{GeneratedAt: time.Now()}
			for _, result := range results {
				report.Sections = append(report.Sections, export.AssemblySection{
					Assembly: result.Assembly,
					Rows:     result.Rows,
					Coverage: result.Coverage,
					Signals:  result.Signals,
				})
			}
			if err := export.WriteReport(runFileOut, report); err != nil {
				return err
			}
			zap.L().Info("report written", zap.String("path", runFileOut))
			return nil
		}

		if runFileJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(results)
		}

		for _, result := range results {
			printStageTable(result)
		}
		return nil
	},
}

func init() {
	runFileCmd.Flags().BoolVar(&runFileJSON, "json", false, "emit the full results as JSON")
	runFileCmd.Flags().StringVar(&runFileOut, "out", "", "write an xlsx report instead of printing")
	rootCmd.AddCommand(runFileCmd)
}

// runScenario evaluates every assembly of a scenario in memory.
func runScenario(sc *ingest.Scenario, today time.Time) []*assemblyResult {
	evaluator := coverage.New(coverage.Config{
		Defaults:    model.ToleranceDefaults{Global: sc.Tolerance},
		DueSoonDays: coverageDueSoonDays(),
	})
	builder := newRiskBuilder()
	stock := sc.StockMap()

	var results []*assemblyResult
	for _, snap := range sc.Snapshots() {
		agg := aggregateSnapshot(snap)
		results = append(results, evaluateSnapshot(snap, agg, stock, evaluator, builder, today))
	}
	return results
}

// coverageDueSoonDays reads the configured window, tolerating a nil
// config for in-memory callers.
func coverageDueSoonDays() int {
	if cfg == nil {
		return coverage.DefaultDueSoonDays
	}
	return cfg.Coverage.DueSoonDays
}
