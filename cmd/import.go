package main

import (
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/crazynala/axisprod/internal/ingest"
)

var importSheet string

var importDemandCmd = &cobra.Command{
	Use:   "import-demand <file.xlsx>",
	Short: "Import planner material-demand rows from a spreadsheet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("evaluate"); err != nil {
			return err
		}

		rows, err := ingest.ReadDemandXLSX(args[0], ingest.XLSXOptions{SheetName: importSheet})
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			zap.L().Warn("no demand rows found", zap.String("file", args[0]))
			return nil
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		n, err := ingest.UpsertDemand(ctx, st.Pool(), rows)
		if err != nil {
			return eris.Wrapf(err, "import: upsert demand from %s", args[0])
		}

		zap.L().Info("demand imported",
			zap.String("file", args[0]),
			zap.Int("parsed", len(rows)),
			zap.Int64("written", n),
		)
		return nil
	},
}

func init() {
	importDemandCmd.Flags().StringVar(&importSheet, "sheet", "", "worksheet name (default: first sheet)")
	rootCmd.AddCommand(importDemandCmd)
}
