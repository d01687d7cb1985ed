package main

import (
	"context"
	"time"

	"github.com/crazynala/axisprod/internal/coverage"
	"github.com/crazynala/axisprod/internal/model"
	"github.com/crazynala/axisprod/internal/risk"
	"github.com/crazynala/axisprod/internal/stage"
	"github.com/crazynala/axisprod/internal/store"
)

// initStore connects to Postgres with the configured pool sizing.
func initStore(ctx context.Context) (*store.PostgresStore, error) {
	return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
		MaxConns: cfg.Store.MaxConns,
		MinConns: cfg.Store.MinConns,
	})
}

// newEvaluator builds the coverage evaluator: tolerance overrides from the
// store layered over the configured global tolerance.
func newEvaluator(ctx context.Context, st store.Store) (*coverage.Evaluator, error) {
	defaults, err := st.LoadToleranceDefaults(ctx, cfg.Coverage.GlobalTolerance())
	if err != nil {
		return nil, err
	}
	return coverage.New(coverage.Config{
		Defaults:    defaults,
		DueSoonDays: cfg.Coverage.DueSoonDays,
	}), nil
}

func newRiskBuilder() *risk.Builder {
	if cfg == nil {
		return risk.NewBuilder(0)
	}
	return risk.NewBuilder(cfg.Coverage.DueSoonDays)
}

// assemblyResult is the full evaluated picture of one assembly.
type assemblyResult struct {
	Assembly    model.Assembly            `json:"assembly"`
	Aggregation stage.Aggregation         `json:"aggregation"`
	Rows        []stage.Row               `json:"rows"`
	Coverage    coverage.AssemblyCoverage `json:"coverage"`
	Signals     risk.Signals              `json:"signals"`
}

// evaluateAssembly runs the full pipeline for one assembly: load the
// snapshot, aggregate stages, evaluate material coverage, derive risk
// signals.
func evaluateAssembly(ctx context.Context, st store.Store, evaluator *coverage.Evaluator, builder *risk.Builder, assemblyID string, today time.Time) (*assemblyResult, error) {
	snap, err := st.LoadSnapshot(ctx, assemblyID)
	if err != nil {
		return nil, err
	}

	agg := aggregateSnapshot(snap)
	stock, err := loadStockFor(ctx, st, snap, productionUnits(agg))
	if err != nil {
		return nil, err
	}
	return evaluateSnapshot(snap, agg, stock, evaluator, builder, today), nil
}

// evaluateSnapshot runs the store-free part of the pipeline, shared by the
// database commands and the file-driven run.
func evaluateSnapshot(snap *model.AssemblySnapshot, agg stage.Aggregation, stock map[string]model.StockSnapshot, evaluator *coverage.Evaluator, builder *risk.Builder, today time.Time) *assemblyResult {
	rows := stage.BuildRows(agg, snap.Steps)

	cov := evaluator.EvaluateOne(coverage.AssemblyInput{
		Assembly:     snap.Assembly,
		Demand:       snap.Demand,
		Reservations: snap.Reservations,
		BOM:          snap.BOM,
		Units:        productionUnits(agg),
	}, stock, today)

	sig := builder.Build(agg, snap.Steps, &cov, snap.Reservations, snap.Assembly.NeededBy(), today)

	return &assemblyResult{
		Assembly:    snap.Assembly,
		Aggregation: agg,
		Rows:        rows,
		Coverage:    cov,
		Signals:     sig,
	}
}

func aggregateSnapshot(snap *model.AssemblySnapshot) stage.Aggregation {
	return stage.Aggregate(stage.Inputs{
		AssemblyID:         snap.Assembly.ID,
		Ordered:            snap.Assembly.Ordered,
		FallbackBreakdowns: snap.FallbackBreakdowns,
		FallbackTotals:     snap.FallbackTotals,
		Pack:               snap.Pack,
		Activities:         snap.Activities,
	})
}

// productionUnits picks the material multiplier: cut output once cutting
// has started, else the effective ordered quantity.
func productionUnits(agg stage.Aggregation) float64 {
	cut := agg.Stats[model.StageCut]
	if cut.HasActivity && cut.ProcessedTotal > 0 {
		return cut.ProcessedTotal
	}
	return agg.EffectiveTotal
}

// loadStockFor fetches stock snapshots for every product the assembly's
// demand (or its BOM fallback) references.
func loadStockFor(ctx context.Context, st store.Store, snap *model.AssemblySnapshot, units float64) (map[string]model.StockSnapshot, error) {
	demand := snap.Demand
	if len(demand) == 0 {
		demand = coverage.DeriveDemand(snap.Assembly.ID, snap.BOM, units)
	}

	seen := make(map[string]bool, len(demand))
	var productIDs []string
	for _, row := range demand {
		if !seen[row.ProductID] {
			seen[row.ProductID] = true
			productIDs = append(productIDs, row.ProductID)
		}
	}
	return st.LoadStock(ctx, productIDs)
}
