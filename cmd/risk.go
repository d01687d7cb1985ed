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
)

var riskJSON bool

var riskCmd = &cobra.Command{
	Use:   "risk <assembly-id>",
	Short: "Show hold and next-action signals for one assembly",
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
			return eris.Wrapf(err, "risk: evaluate assembly %s", args[0])
		}

		if riskJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(result.Signals)
		}

		sig := result.Signals
		fmt.Printf("Assembly %s\n", sig.AssemblyID)
		if sig.POHold {
			fmt.Printf("  PO HOLD: %s\n", sig.POHoldReason)
		}
		if sig.HasExternalLate {
			fmt.Println("  external step overdue at vendor")
		}
		if sig.ExternalDueSoon {
			fmt.Println("  external step due soon")
		}
		for _, step := range sig.Steps {
			line := fmt.Sprintf("  step %-16s %-12s sent=%.0f received=%.0f", step.StepType, step.State, step.SentTotal, step.ReceivedTotal)
			if step.ETA != nil {
				line += fmt.Sprintf(" eta=%s", step.ETA.Format("2006-01-02"))
			}
			if step.Late {
				line += " LATE"
			}
			fmt.Println(line)
		}
		for _, action := range sig.NextActions {
			fmt.Printf("  -> %s: %s\n", action.Kind, action.Message)
		}
		if len(sig.NextActions) == 0 && !sig.POHold {
			fmt.Println("  no action needed")
		}
		return nil
	},
}

func init() {
	riskCmd.Flags().BoolVar(&riskJSON, "json", false, "emit the risk signals as JSON")
	rootCmd.AddCommand(riskCmd)
}
