package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/crazynala/axisprod/internal/stage"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status <assembly-id>",
	Short: "Show the gated stage table for one assembly",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("evaluate"); err != nil {
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

		result, err := evaluateAssembly(ctx, st, evaluator, newRiskBuilder(), args[0], time.Now())
		if err != nil {
			return eris.Wrapf(err, "status: evaluate assembly %s", args[0])
		}

		if statusJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		}

		printStageTable(result)
		return nil
	},
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "emit the full result as JSON")
	rootCmd.AddCommand(statusCmd)
}

func printStageTable(result *assemblyResult) {
	fmt.Printf("Assembly %s", result.Assembly.ID)
	if result.Assembly.Name != "" {
		fmt.Printf("  (%s)", result.Assembly.Name)
	}
	fmt.Println()

	for _, row := range result.Rows {
		line := fmt.Sprintf("  %-18s %8.0f", row.Label, row.Total)
		if len(row.Arr) > 0 {
			line += fmt.Sprintf("  %v", []float64(row.Arr))
		}
		if row.GateSource != "" {
			line += fmt.Sprintf("  [gate: %s]", row.GateSource)
		}
		if row.Vendor != "" {
			line += fmt.Sprintf("  vendor=%s", row.Vendor)
		}
		if row.ETA != nil {
			line += fmt.Sprintf("  eta=%s", row.ETA.Format("2006-01-02"))
		}
		fmt.Println(line)
	}

	capArr, capTotal := stage.FinishInputCap(result.Aggregation)
	fmt.Printf("  finish input cap: %.0f %v\n", capTotal, []float64(capArr))
}
