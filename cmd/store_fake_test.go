package main

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/crazynala/axisprod/internal/coverage"
	"github.com/crazynala/axisprod/internal/model"
	"github.com/crazynala/axisprod/internal/risk"
	"github.com/crazynala/axisprod/internal/store"
)

// fakeStore is an in-memory Store for command-level tests.
type fakeStore struct {
	assemblies []model.Assembly
	snapshots  map[string]*model.AssemblySnapshot
	stock      map[string]model.StockSnapshot
	defaults   model.ToleranceDefaults

	savedCoverage []coverage.AssemblyCoverage
	savedSignals  []risk.Signals
	runsCreated   int
	runsFinished  int
}

var _ store.Store = (*fakeStore)(nil)

func (f *fakeStore) GetAssembly(_ context.Context, id string) (*model.Assembly, error) {
	for _, a := range f.assemblies {
		if a.ID == id {
			return &a, nil
		}
	}
	return nil, eris.Wrapf(pgx.ErrNoRows, "fake: get assembly %s", id)
}

func (f *fakeStore) ListAssemblies(_ context.Context, filter store.AssemblyFilter) ([]model.Assembly, error) {
	var out []model.Assembly
	for _, a := range f.assemblies {
		if filter.JobID != "" && a.JobID != filter.JobID {
			continue
		}
		out = append(out, a)
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (f *fakeStore) LoadSnapshot(ctx context.Context, assemblyID string) (*model.AssemblySnapshot, error) {
	if snap, ok := f.snapshots[assemblyID]; ok {
		return snap, nil
	}
	assembly, err := f.GetAssembly(ctx, assemblyID)
	if err != nil {
		return nil, err
	}
	return &model.AssemblySnapshot{Assembly: *assembly}, nil
}

func (f *fakeStore) LoadStock(_ context.Context, productIDs []string) (map[string]model.StockSnapshot, error) {
	out := make(map[string]model.StockSnapshot)
	for _, id := range productIDs {
		if snap, ok := f.stock[id]; ok {
			out[id] = snap
		}
	}
	return out, nil
}

func (f *fakeStore) LoadToleranceDefaults(_ context.Context, global model.Tolerance) (model.ToleranceDefaults, error) {
	defaults := f.defaults
	defaults.Global = global
	return defaults, nil
}

func (f *fakeStore) CreateRun(context.Context) (*store.EvaluationRun, error) {
	f.runsCreated++
	return &store.EvaluationRun{ID: "run-test", StartedAt: time.Now()}, nil
}

func (f *fakeStore) FinishRun(_ context.Context, _ string, _, _ int) error {
	f.runsFinished++
	return nil
}

func (f *fakeStore) SaveCoverage(_ context.Context, _ string, results []coverage.AssemblyCoverage) error {
	f.savedCoverage = append(f.savedCoverage, results...)
	return nil
}

func (f *fakeStore) SaveSignals(_ context.Context, _ string, signals []risk.Signals) error {
	f.savedSignals = append(f.savedSignals, signals...)
	return nil
}

func (f *fakeStore) Migrate(context.Context) error { return nil }
func (f *fakeStore) Ping(context.Context) error    { return nil }
func (f *fakeStore) Close() error                  { return nil }
