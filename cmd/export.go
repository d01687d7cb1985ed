package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/crazynala/axisprod/internal/export"
	"github.com/crazynala/axisprod/internal/store"
)

var (
	exportOut   string
	exportJobID string
	exportLimit int
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Evaluate assemblies and write an xlsx report",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("export"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		evaluator, err := newEvaluator(ctx, st)
		if err != nil {
			return err
		}
		builder := newRiskBuilder()

		assemblies, err := st.ListAssemblies(ctx, store.AssemblyFilter{JobID: exportJobID, Limit: exportLimit})
		if err != nil {
			return eris.Wrap(err, "export: list assemblies")
		}

		today := time.Now()
		results, failed := processAssemblies(ctx, assemblies, cfg.Batch.MaxConcurrentAssemblies, func(ctx context.Context, assemblyID string) (*assemblyResult, error) {
			return evaluateAssembly(ctx, st, evaluator, builder, assemblyID, today)
		})

		report := export.Report{GeneratedAt: today}
		for _, result := range results {
			report.Sections = append(report.Sections, export.AssemblySection{
				Assembly: result.Assembly,
				Rows:     result.Rows,
				Coverage: result.Coverage,
				Signals:  result.Signals,
			})
		}

		if err := export.WriteReport(exportOut, report); err != nil {
			return err
		}

		zap.L().Info("report written",
			zap.String("path", exportOut),
			zap.String("contents", export.SheetSummary(report)),
			zap.Int64("failed", failed),
		)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportOut, "out", "report.xlsx", "output workbook path")
	exportCmd.Flags().StringVar(&exportJobID, "job", "", "only export assemblies of this job")
	exportCmd.Flags().IntVar(&exportLimit, "limit", 0, "max number of assemblies (0 = all)")
	rootCmd.AddCommand(exportCmd)
}
