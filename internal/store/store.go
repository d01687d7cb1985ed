package store

import (
	"context"
	"time"

	"github.com/crazynala/axisprod/internal/coverage"
	"github.com/crazynala/axisprod/internal/model"
	"github.com/crazynala/axisprod/internal/risk"
)

// AssemblyFilter specifies criteria for listing assemblies.
type AssemblyFilter struct {
	JobID  string `json:"job_id,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

// EvaluationRun records one batch evaluation pass.
type EvaluationRun struct {
	ID         string     `json:"id"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Assemblies int        `json:"assemblies"`
	Held       int        `json:"held"`
}

// Store defines the persistence interface for the production engine.
type Store interface {
	// Assemblies
	GetAssembly(ctx context.Context, id string) (*model.Assembly, error)
	ListAssemblies(ctx context.Context, filter AssemblyFilter) ([]model.Assembly, error)
	LoadSnapshot(ctx context.Context, assemblyID string) (*model.AssemblySnapshot, error)

	// Supply side
	LoadStock(ctx context.Context, productIDs []string) (map[string]model.StockSnapshot, error)
	LoadToleranceDefaults(ctx context.Context, global model.Tolerance) (model.ToleranceDefaults, error)

	// Evaluation results
	CreateRun(ctx context.Context) (*EvaluationRun, error)
	FinishRun(ctx context.Context, runID string, assemblies, held int) error
	SaveCoverage(ctx context.Context, runID string, results []coverage.AssemblyCoverage) error
	SaveSignals(ctx context.Context, runID string, signals []risk.Signals) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
