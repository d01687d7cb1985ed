package main

import (
	"context"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/crazynala/axisprod/internal/coverage"
	"github.com/crazynala/axisprod/internal/model"
	"github.com/crazynala/axisprod/internal/risk"
	"github.com/crazynala/axisprod/internal/store"
)

var (
	evaluateLimit  int
	evaluateJobID  string
	evaluateDryRun bool
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Evaluate all assemblies and persist coverage and risk results",
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
		builder := newRiskBuilder()

		assemblies, err := st.ListAssemblies(ctx, store.AssemblyFilter{JobID: evaluateJobID, Limit: evaluateLimit})
		if err != nil {
			return eris.Wrap(err, "evaluate: list assemblies")
		}

		today := time.Now()
		results, failed := processAssemblies(ctx, assemblies, cfg.Batch.MaxConcurrentAssemblies, func(ctx context.Context, assemblyID string) (*assemblyResult, error) {
			return evaluateAssembly(ctx, st, evaluator, builder, assemblyID, today)
		})

		held := 0
		for _, result := range results {
			if result.Coverage.Held {
				held++
			}
		}

		zap.L().Info("evaluation complete",
			zap.Int("assemblies", len(results)),
			zap.Int("held", held),
			zap.Int64("failed", failed),
		)

		if evaluateDryRun {
			return nil
		}
		return persistResults(ctx, st, results, held)
	},
}

func init() {
	evaluateCmd.Flags().IntVar(&evaluateLimit, "limit", 0, "max number of assemblies to evaluate (0 = all)")
	evaluateCmd.Flags().StringVar(&evaluateJobID, "job", "", "only evaluate assemblies of this job")
	evaluateCmd.Flags().BoolVar(&evaluateDryRun, "dry-run", false, "evaluate without persisting results")
	rootCmd.AddCommand(evaluateCmd)
}

// evalFunc is the callback signature for evaluating one assembly.
type evalFunc func(ctx context.Context, assemblyID string) (*assemblyResult, error)

// processAssemblies evaluates assemblies concurrently. One assembly's
// failure never aborts the batch; the result list keeps the input order.
func processAssemblies(ctx context.Context, assemblies []model.Assembly, concurrency int, eval evalFunc) ([]*assemblyResult, int64) {
	if len(assemblies) == 0 {
		zap.L().Info("no assemblies to evaluate")
		return nil, 0
	}
	if concurrency < 1 {
		concurrency = 1
	}

	zap.L().Info("processing batch",
		zap.Int("assemblies", len(assemblies)),
		zap.Int("concurrency", concurrency),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	var failed atomic.Int64
	var mu sync.Mutex
	byID := make(map[string]*assemblyResult, len(assemblies))

	for _, assembly := range assemblies {
		g.Go(func() error {
			log := zap.L().With(zap.String("assembly", assembly.ID))

			result, err := eval(gctx, assembly.ID)
			if err != nil {
				failed.Add(1)
				log.Error("evaluation failed", zap.Error(err))
				return nil // don't abort batch on individual failure
			}

			mu.Lock()
			byID[assembly.ID] = result
			mu.Unlock()

			log.Debug("evaluation complete",
				zap.Bool("held", result.Coverage.Held),
				zap.Int("next_actions", len(result.Signals.NextActions)),
			)
			return nil
		})
	}
	_ = g.Wait()

	results := make([]*assemblyResult, 0, len(byID))
	for _, assembly := range assemblies {
		if result, ok := byID[assembly.ID]; ok {
			results = append(results, result)
		}
	}
	return results, failed.Load()
}

// persistResults writes one evaluation run with its coverage and risk rows.
func persistResults(ctx context.Context, st store.Store, results []*assemblyResult, held int) error {
	run, err := st.CreateRun(ctx)
	if err != nil {
		return eris.Wrap(err, "evaluate: create run")
	}

	covs := make([]coverage.AssemblyCoverage, 0, len(results))
	sigs := make([]risk.Signals, 0, len(results))
	for _, result := range results {
		covs = append(covs, result.Coverage)
		sigs = append(sigs, result.Signals)
	}

	if err := st.SaveCoverage(ctx, run.ID, covs); err != nil {
		return eris.Wrap(err, "evaluate: save coverage")
	}
	if err := st.SaveSignals(ctx, run.ID, sigs); err != nil {
		return eris.Wrap(err, "evaluate: save signals")
	}
	if err := st.FinishRun(ctx, run.ID, len(results), held); err != nil {
		return eris.Wrap(err, "evaluate: finish run")
	}

	zap.L().Info("results persisted", zap.String("run_id", run.ID))
	return nil
}
