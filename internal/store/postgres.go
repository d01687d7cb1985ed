package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/crazynala/axisprod/internal/breakdown"
	"github.com/crazynala/axisprod/internal/coverage"
	"github.com/crazynala/axisprod/internal/db"
	"github.com/crazynala/axisprod/internal/model"
	"github.com/crazynala/axisprod/internal/risk"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"get_assembly":   `SELECT id, COALESCE(job_id, ''), COALESCE(name, ''), ordered, target_date, drop_dead_date FROM assemblies WHERE id = $1`,
	"get_activities": `SELECT id, assembly_id, stage, kind, COALESCE(action, ''), COALESCE(qty, 0), breakdown, COALESCE(external_step_type, ''), COALESCE(vendor, ''), activity_date FROM production_activities WHERE assembly_id = $1 ORDER BY activity_date, id`,
	"insert_run":     `INSERT INTO evaluation_runs (id, started_at) VALUES ($1, $2)`,
	"finish_run":     `UPDATE evaluation_runs SET finished_at = $1, assemblies = $2, held = $3 WHERE id = $4`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// Apply pool sizing from config with sensible defaults.
	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// Pool returns the underlying database pool for use by subsystems that
// need direct query access.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS assemblies (
	id             TEXT PRIMARY KEY,
	job_id         TEXT,
	name           TEXT,
	ordered        JSONB NOT NULL DEFAULT '[]',
	target_date    TIMESTAMPTZ,
	drop_dead_date TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS production_activities (
	id                 TEXT PRIMARY KEY,
	assembly_id        TEXT NOT NULL REFERENCES assemblies(id),
	stage              TEXT NOT NULL,
	kind               TEXT NOT NULL DEFAULT 'normal',
	action             TEXT,
	qty                DOUBLE PRECISION NOT NULL DEFAULT 0,
	breakdown          JSONB,
	external_step_type TEXT,
	vendor             TEXT,
	activity_date      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS pack_snapshots (
	assembly_id TEXT PRIMARY KEY REFERENCES assemblies(id),
	breakdown   JSONB NOT NULL DEFAULT '[]',
	total       DOUBLE PRECISION NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS stage_fallbacks (
	assembly_id TEXT NOT NULL REFERENCES assemblies(id),
	stage       TEXT NOT NULL,
	breakdown   JSONB,
	total       DOUBLE PRECISION NOT NULL DEFAULT 0,
	PRIMARY KEY (assembly_id, stage)
);

CREATE TABLE IF NOT EXISTS external_steps (
	assembly_id TEXT NOT NULL REFERENCES assemblies(id),
	step_type   TEXT NOT NULL,
	vendor      TEXT,
	eta         TIMESTAMPTZ,
	PRIMARY KEY (assembly_id, step_type)
);

CREATE TABLE IF NOT EXISTS material_demand (
	assembly_id  TEXT NOT NULL REFERENCES assemblies(id),
	product_id   TEXT NOT NULL,
	product_name TEXT,
	product_type TEXT,
	qty          DOUBLE PRECISION NOT NULL DEFAULT 0,
	costing_id   TEXT,
	source       TEXT,
	PRIMARY KEY (assembly_id, product_id)
);

CREATE TABLE IF NOT EXISTS po_lines (
	id           TEXT PRIMARY KEY,
	eta          TIMESTAMPTZ,
	ordered_qty  DOUBLE PRECISION NOT NULL DEFAULT 0,
	expected_qty DOUBLE PRECISION NOT NULL DEFAULT 0,
	received_qty DOUBLE PRECISION NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS supply_reservations (
	id          TEXT PRIMARY KEY,
	assembly_id TEXT NOT NULL REFERENCES assemblies(id),
	product_id  TEXT NOT NULL,
	qty         DOUBLE PRECISION NOT NULL DEFAULT 0,
	settled_at  TIMESTAMPTZ,
	po_line_id  TEXT REFERENCES po_lines(id),
	batch_id    TEXT
);

CREATE TABLE IF NOT EXISTS bom_lines (
	assembly_id  TEXT NOT NULL REFERENCES assemblies(id),
	product_id   TEXT NOT NULL,
	product_name TEXT,
	product_type TEXT,
	qty_per_unit DOUBLE PRECISION NOT NULL DEFAULT 0,
	costing_id   TEXT,
	PRIMARY KEY (assembly_id, product_id)
);

CREATE TABLE IF NOT EXISTS stock_snapshots (
	product_id   TEXT PRIMARY KEY,
	location_qty DOUBLE PRECISION NOT NULL DEFAULT 0,
	total_qty    DOUBLE PRECISION NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS tolerance_overrides (
	scope   TEXT NOT NULL,
	key     TEXT NOT NULL,
	abs_qty DOUBLE PRECISION NOT NULL DEFAULT 0,
	pct     DOUBLE PRECISION NOT NULL DEFAULT 0,
	PRIMARY KEY (scope, key)
);

CREATE TABLE IF NOT EXISTS evaluation_runs (
	id          TEXT PRIMARY KEY,
	started_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	finished_at TIMESTAMPTZ,
	assemblies  INTEGER NOT NULL DEFAULT 0,
	held        INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS coverage_results (
	run_id                    TEXT NOT NULL REFERENCES evaluation_runs(id),
	assembly_id               TEXT NOT NULL,
	product_id                TEXT NOT NULL,
	status                    TEXT NOT NULL,
	required                  DOUBLE PRECISION NOT NULL DEFAULT 0,
	uncovered                 DOUBLE PRECISION NOT NULL DEFAULT 0,
	uncovered_after_tolerance DOUBLE PRECISION NOT NULL DEFAULT 0,
	tolerance_qty             DOUBLE PRECISION NOT NULL DEFAULT 0,
	held                      BOOLEAN NOT NULL DEFAULT false,
	payload                   JSONB,
	PRIMARY KEY (run_id, assembly_id, product_id)
);

CREATE TABLE IF NOT EXISTS risk_results (
	run_id            TEXT NOT NULL REFERENCES evaluation_runs(id),
	assembly_id       TEXT NOT NULL,
	po_hold           BOOLEAN NOT NULL DEFAULT false,
	has_external_late BOOLEAN NOT NULL DEFAULT false,
	external_due_soon BOOLEAN NOT NULL DEFAULT false,
	payload           JSONB,
	PRIMARY KEY (run_id, assembly_id)
);

CREATE INDEX IF NOT EXISTS idx_activities_assembly ON production_activities(assembly_id);
CREATE INDEX IF NOT EXISTS idx_activities_stage ON production_activities(assembly_id, stage);
CREATE INDEX IF NOT EXISTS idx_reservations_assembly ON supply_reservations(assembly_id);
CREATE INDEX IF NOT EXISTS idx_reservations_product ON supply_reservations(product_id);
CREATE INDEX IF NOT EXISTS idx_demand_assembly ON material_demand(assembly_id);
CREATE INDEX IF NOT EXISTS idx_coverage_results_run ON coverage_results(run_id);
CREATE INDEX IF NOT EXISTS idx_coverage_results_status ON coverage_results(run_id, status);
CREATE INDEX IF NOT EXISTS idx_risk_results_run ON risk_results(run_id);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) GetAssembly(ctx context.Context, id string) (*model.Assembly, error) {
	var a model.Assembly
	var orderedJSON []byte

	err := s.pool.QueryRow(ctx,
		`SELECT id, COALESCE(job_id, ''), COALESCE(name, ''), ordered, target_date, drop_dead_date FROM assemblies WHERE id = $1`,
		id,
	).Scan(&a.ID, &a.JobID, &a.Name, &orderedJSON, &a.TargetDate, &a.DropDeadDate)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get assembly %s", id)
	}

	if len(orderedJSON) > 0 {
		if err := json.Unmarshal(orderedJSON, &a.Ordered); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal ordered breakdown")
		}
	}
	return &a, nil
}

func (s *PostgresStore) ListAssemblies(ctx context.Context, filter AssemblyFilter) ([]model.Assembly, error) {
	query := `SELECT id, COALESCE(job_id, ''), COALESCE(name, ''), ordered, target_date, drop_dead_date FROM assemblies WHERE true`
	args := []any{}
	argIdx := 1

	if filter.JobID != "" {
		query += fmt.Sprintf(` AND job_id = $%d`, argIdx)
		args = append(args, filter.JobID)
		argIdx++
	}
	query += ` ORDER BY id`

	limit := filter.Limit
	if limit <= 0 {
		limit = 500
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
		argIdx++
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list assemblies")
	}
	defer rows.Close()

	var assemblies []model.Assembly
	for rows.Next() {
		var a model.Assembly
		var orderedJSON []byte
		if err := rows.Scan(&a.ID, &a.JobID, &a.Name, &orderedJSON, &a.TargetDate, &a.DropDeadDate); err != nil {
			return nil, eris.Wrap(err, "postgres: scan assembly")
		}
		if len(orderedJSON) > 0 {
			if err := json.Unmarshal(orderedJSON, &a.Ordered); err != nil {
				return nil, eris.Wrap(err, "postgres: unmarshal ordered breakdown")
			}
		}
		assemblies = append(assemblies, a)
	}
	return assemblies, eris.Wrap(rows.Err(), "postgres: list assemblies rows")
}

// LoadSnapshot gathers every per-assembly input the engine needs in one
// call so a batch evaluation sees a consistent view of the assembly.
func (s *PostgresStore) LoadSnapshot(ctx context.Context, assemblyID string) (*model.AssemblySnapshot, error) {
	assembly, err := s.GetAssembly(ctx, assemblyID)
	if err != nil {
		return nil, err
	}
	snap := &model.AssemblySnapshot{Assembly: *assembly}

	if snap.Activities, err = s.loadActivities(ctx, assemblyID); err != nil {
		return nil, err
	}
	if snap.Pack, err = s.loadPackSnapshot(ctx, assemblyID); err != nil {
		return nil, err
	}
	if snap.FallbackBreakdowns, snap.FallbackTotals, err = s.loadFallbacks(ctx, assemblyID); err != nil {
		return nil, err
	}
	if snap.Steps, err = s.loadExternalSteps(ctx, assemblyID); err != nil {
		return nil, err
	}
	if snap.Demand, err = s.loadDemand(ctx, assemblyID); err != nil {
		return nil, err
	}
	if snap.Reservations, err = s.loadReservations(ctx, assemblyID); err != nil {
		return nil, err
	}
	if snap.BOM, err = s.loadBOM(ctx, assemblyID); err != nil {
		return nil, err
	}
	return snap, nil
}

func (s *PostgresStore) loadActivities(ctx context.Context, assemblyID string) ([]model.Activity, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, assembly_id, stage, kind, COALESCE(action, ''), COALESCE(qty, 0), breakdown, COALESCE(external_step_type, ''), COALESCE(vendor, ''), activity_date FROM production_activities WHERE assembly_id = $1 ORDER BY activity_date, id`,
		assemblyID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: load activities %s", assemblyID)
	}
	defer rows.Close()

	var activities []model.Activity
	for rows.Next() {
		var act model.Activity
		var bdJSON []byte
		if err := rows.Scan(&act.ID, &act.AssemblyID, &act.Stage, &act.Kind, &act.Action, &act.Quantity, &bdJSON, &act.ExternalStepType, &act.Vendor, &act.Date); err != nil {
			return nil, eris.Wrap(err, "postgres: scan activity")
		}
		if len(bdJSON) > 0 {
			if err := json.Unmarshal(bdJSON, &act.Breakdown); err != nil {
				return nil, eris.Wrap(err, "postgres: unmarshal activity breakdown")
			}
		}
		activities = append(activities, act)
	}
	return activities, eris.Wrap(rows.Err(), "postgres: activities rows")
}

func (s *PostgresStore) loadPackSnapshot(ctx context.Context, assemblyID string) (model.PackSnapshot, error) {
	var snap model.PackSnapshot
	var bdJSON []byte

	err := s.pool.QueryRow(ctx,
		`SELECT breakdown, COALESCE(total, 0) FROM pack_snapshots WHERE assembly_id = $1`,
		assemblyID,
	).Scan(&bdJSON, &snap.Total)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.PackSnapshot{}, nil
	}
	if err != nil {
		return model.PackSnapshot{}, eris.Wrapf(err, "postgres: load pack snapshot %s", assemblyID)
	}

	if len(bdJSON) > 0 {
		if err := json.Unmarshal(bdJSON, &snap.Breakdown); err != nil {
			return model.PackSnapshot{}, eris.Wrap(err, "postgres: unmarshal pack breakdown")
		}
	}
	return snap, nil
}

func (s *PostgresStore) loadFallbacks(ctx context.Context, assemblyID string) (map[model.Stage]breakdown.Breakdown, map[model.Stage]float64, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT stage, breakdown, COALESCE(total, 0) FROM stage_fallbacks WHERE assembly_id = $1`,
		assemblyID,
	)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "postgres: load fallbacks %s", assemblyID)
	}
	defer rows.Close()

	breakdowns := make(map[model.Stage]breakdown.Breakdown)
	totals := make(map[model.Stage]float64)
	for rows.Next() {
		var stg model.Stage
		var bdJSON []byte
		var total float64
		if err := rows.Scan(&stg, &bdJSON, &total); err != nil {
			return nil, nil, eris.Wrap(err, "postgres: scan fallback")
		}
		if len(bdJSON) > 0 {
			var bd breakdown.Breakdown
			if err := json.Unmarshal(bdJSON, &bd); err != nil {
				return nil, nil, eris.Wrap(err, "postgres: unmarshal fallback breakdown")
			}
			breakdowns[stg] = bd
		}
		totals[stg] = total
	}
	return breakdowns, totals, eris.Wrap(rows.Err(), "postgres: fallbacks rows")
}

func (s *PostgresStore) loadExternalSteps(ctx context.Context, assemblyID string) ([]model.ExternalStepInfo, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT step_type, COALESCE(vendor, ''), eta FROM external_steps WHERE assembly_id = $1 ORDER BY step_type`,
		assemblyID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: load external steps %s", assemblyID)
	}
	defer rows.Close()

	var steps []model.ExternalStepInfo
	for rows.Next() {
		var step model.ExternalStepInfo
		if err := rows.Scan(&step.StepType, &step.Vendor, &step.ETA); err != nil {
			return nil, eris.Wrap(err, "postgres: scan external step")
		}
		steps = append(steps, step)
	}
	return steps, eris.Wrap(rows.Err(), "postgres: external steps rows")
}

func (s *PostgresStore) loadDemand(ctx context.Context, assemblyID string) ([]model.MaterialDemandRow, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT assembly_id, product_id, COALESCE(product_name, ''), COALESCE(product_type, ''), COALESCE(qty, 0), COALESCE(costing_id, ''), COALESCE(source, '') FROM material_demand WHERE assembly_id = $1 ORDER BY product_id`,
		assemblyID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: load demand %s", assemblyID)
	}
	defer rows.Close()

	var demand []model.MaterialDemandRow
	for rows.Next() {
		var row model.MaterialDemandRow
		if err := rows.Scan(&row.AssemblyID, &row.ProductID, &row.ProductName, &row.ProductType, &row.Qty, &row.CostingID, &row.Source); err != nil {
			return nil, eris.Wrap(err, "postgres: scan demand row")
		}
		demand = append(demand, row)
	}
	return demand, eris.Wrap(rows.Err(), "postgres: demand rows")
}

func (s *PostgresStore) loadReservations(ctx context.Context, assemblyID string) ([]model.SupplyReservation, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT r.id, r.assembly_id, r.product_id, COALESCE(r.qty, 0), r.settled_at, COALESCE(r.batch_id, ''), l.id, l.eta, COALESCE(l.ordered_qty, 0), COALESCE(l.expected_qty, 0), COALESCE(l.received_qty, 0) FROM supply_reservations r LEFT JOIN po_lines l ON l.id = r.po_line_id WHERE r.assembly_id = $1 ORDER BY r.id`,
		assemblyID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: load reservations %s", assemblyID)
	}
	defer rows.Close()

	var reservations []model.SupplyReservation
	for rows.Next() {
		var res model.SupplyReservation
		var lineID *string
		var lineETA *time.Time
		var ordered, expected, received float64
		if err := rows.Scan(&res.ID, &res.AssemblyID, &res.ProductID, &res.Qty, &res.SettledAt, &res.BatchID, &lineID, &lineETA, &ordered, &expected, &received); err != nil {
			return nil, eris.Wrap(err, "postgres: scan reservation")
		}
		if lineID != nil {
			res.POLine = &model.POLine{
				ID:          *lineID,
				ETA:         lineETA,
				OrderedQty:  ordered,
				ExpectedQty: expected,
				ReceivedQty: received,
			}
		}
		reservations = append(reservations, res)
	}
	return reservations, eris.Wrap(rows.Err(), "postgres: reservations rows")
}

func (s *PostgresStore) loadBOM(ctx context.Context, assemblyID string) ([]model.BOMLine, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT assembly_id, product_id, COALESCE(product_name, ''), COALESCE(product_type, ''), COALESCE(qty_per_unit, 0), COALESCE(costing_id, '') FROM bom_lines WHERE assembly_id = $1 ORDER BY product_id`,
		assemblyID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: load bom %s", assemblyID)
	}
	defer rows.Close()

	var bom []model.BOMLine
	for rows.Next() {
		var line model.BOMLine
		if err := rows.Scan(&line.AssemblyID, &line.ProductID, &line.ProductName, &line.ProductType, &line.QtyPerUnit, &line.CostingID); err != nil {
			return nil, eris.Wrap(err, "postgres: scan bom line")
		}
		bom = append(bom, line)
	}
	return bom, eris.Wrap(rows.Err(), "postgres: bom rows")
}

func (s *PostgresStore) LoadStock(ctx context.Context, productIDs []string) (map[string]model.StockSnapshot, error) {
	if len(productIDs) == 0 {
		return map[string]model.StockSnapshot{}, nil
	}

	rows, err := s.pool.Query(ctx,
		`SELECT product_id, COALESCE(location_qty, 0), COALESCE(total_qty, 0) FROM stock_snapshots WHERE product_id = ANY($1)`,
		productIDs,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: load stock")
	}
	defer rows.Close()

	stock := make(map[string]model.StockSnapshot)
	for rows.Next() {
		var snap model.StockSnapshot
		if err := rows.Scan(&snap.ProductID, &snap.LocationQty, &snap.TotalQty); err != nil {
			return nil, eris.Wrap(err, "postgres: scan stock snapshot")
		}
		stock[snap.ProductID] = snap
	}
	return stock, eris.Wrap(rows.Err(), "postgres: stock rows")
}

// LoadToleranceDefaults reads assembly and product-type tolerance
// overrides and combines them with the configured global tolerance.
func (s *PostgresStore) LoadToleranceDefaults(ctx context.Context, global model.Tolerance) (model.ToleranceDefaults, error) {
	defaults := model.ToleranceDefaults{
		Global:        global,
		ByProductType: make(map[string]model.Tolerance),
		ByAssembly:    make(map[string]model.Tolerance),
	}

	rows, err := s.pool.Query(ctx,
		`SELECT scope, key, COALESCE(abs_qty, 0), COALESCE(pct, 0) FROM tolerance_overrides`,
	)
	if err != nil {
		return defaults, eris.Wrap(err, "postgres: load tolerance overrides")
	}
	defer rows.Close()

	for rows.Next() {
		var scope, key string
		var tol model.Tolerance
		if err := rows.Scan(&scope, &key, &tol.Abs, &tol.Pct); err != nil {
			return defaults, eris.Wrap(err, "postgres: scan tolerance override")
		}
		switch scope {
		case "assembly":
			defaults.ByAssembly[key] = tol
		case "product_type":
			defaults.ByProductType[key] = tol
		}
	}
	return defaults, eris.Wrap(rows.Err(), "postgres: tolerance rows")
}

func (s *PostgresStore) CreateRun(ctx context.Context) (*EvaluationRun, error) {
	run := &EvaluationRun{
		ID:        uuid.New().String(),
		StartedAt: time.Now().UTC(),
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO evaluation_runs (id, started_at) VALUES ($1, $2)`,
		run.ID, run.StartedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}
	return run, nil
}

func (s *PostgresStore) FinishRun(ctx context.Context, runID string, assemblies, held int) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE evaluation_runs SET finished_at = $1, assemblies = $2, held = $3 WHERE id = $4`,
		time.Now().UTC(), assemblies, held, runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: finish run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

// SaveCoverage bulk-upserts one row per evaluated material, with the full
// item payload as JSONB for the dashboard to render.
func (s *PostgresStore) SaveCoverage(ctx context.Context, runID string, results []coverage.AssemblyCoverage) error {
	var rows [][]any
	for _, cov := range results {
		for _, item := range cov.Items {
			payload, err := json.Marshal(item)
			if err != nil {
				return eris.Wrap(err, "postgres: marshal coverage item")
			}
			rows = append(rows, []any{
				runID, cov.AssemblyID, item.ProductID, string(item.Status),
				item.Required, item.Uncovered, item.UncoveredAfterTolerance, item.ToleranceQty,
				cov.Held, payload,
			})
		}
	}

	_, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "coverage_results",
		Columns:      []string{"run_id", "assembly_id", "product_id", "status", "required", "uncovered", "uncovered_after_tolerance", "tolerance_qty", "held", "payload"},
		ConflictKeys: []string{"run_id", "assembly_id", "product_id"},
	}, rows)
	return eris.Wrap(err, "postgres: save coverage")
}

// SaveSignals bulk-upserts one row per assembly's risk summary.
func (s *PostgresStore) SaveSignals(ctx context.Context, runID string, signals []risk.Signals) error {
	var rows [][]any
	for _, sig := range signals {
		payload, err := json.Marshal(sig)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal risk signals")
		}
		rows = append(rows, []any{
			runID, sig.AssemblyID, sig.POHold, sig.HasExternalLate, sig.ExternalDueSoon, payload,
		})
	}

	_, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "risk_results",
		Columns:      []string{"run_id", "assembly_id", "po_hold", "has_external_late", "external_due_soon", "payload"},
		ConflictKeys: []string{"run_id", "assembly_id"},
	}, rows)
	return eris.Wrap(err, "postgres: save signals")
}
