package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crazynala/axisprod/internal/breakdown"
	"github.com/crazynala/axisprod/internal/coverage"
	"github.com/crazynala/axisprod/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func assemblyColumns() []string {
	return []string{"id", "job_id", "name", "ordered", "target_date", "drop_dead_date"}
}

func TestPostgresStore_GetAssembly_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, COALESCE\(job_id, ''\), COALESCE\(name, ''\), ordered, target_date, drop_dead_date FROM assemblies WHERE id = \$1`).
		WithArgs("missing-asm").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetAssembly(context.Background(), "missing-asm")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "get assembly")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetAssembly_Success(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	target := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`FROM assemblies WHERE id = \$1`).
		WithArgs("asm-1").
		WillReturnRows(mock.NewRows(assemblyColumns()).
			AddRow("asm-1", "job-9", "Jacket run", []byte(`[5,3,2]`), &target, nil))

	a, err := s.GetAssembly(context.Background(), "asm-1")
	require.NoError(t, err)
	assert.Equal(t, "asm-1", a.ID)
	assert.Equal(t, "job-9", a.JobID)
	assert.Equal(t, breakdown.Breakdown{5, 3, 2}, a.Ordered)
	require.NotNil(t, a.TargetDate)
	assert.Equal(t, target, *a.TargetDate)
	assert.Nil(t, a.DropDeadDate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListAssemblies_JobFilter(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM assemblies WHERE true AND job_id = \$1 ORDER BY id LIMIT \$2`).
		WithArgs("job-9", 500).
		WillReturnRows(mock.NewRows(assemblyColumns()).
			AddRow("asm-1", "job-9", "", []byte(`[5]`), nil, nil).
			AddRow("asm-2", "job-9", "", []byte(`[3]`), nil, nil))

	assemblies, err := s.ListAssemblies(context.Background(), AssemblyFilter{JobID: "job-9"})
	require.NoError(t, err)
	require.Len(t, assemblies, 2)
	assert.Equal(t, "asm-1", assemblies[0].ID)
	assert.Equal(t, "asm-2", assemblies[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_LoadPackSnapshot_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM pack_snapshots WHERE assembly_id = \$1`).
		WithArgs("asm-1").
		WillReturnError(pgx.ErrNoRows)

	snap, err := s.loadPackSnapshot(context.Background(), "asm-1")
	require.NoError(t, err)
	assert.Empty(t, snap.Breakdown)
	assert.Zero(t, snap.Total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_LoadReservations_POLineJoin(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	eta := time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC)
	lineID := "pol-1"
	cols := []string{"id", "assembly_id", "product_id", "qty", "settled_at", "batch_id", "line_id", "eta", "ordered_qty", "expected_qty", "received_qty"}
	mock.ExpectQuery(`FROM supply_reservations r LEFT JOIN po_lines l`).
		WithArgs("asm-1").
		WillReturnRows(mock.NewRows(cols).
			AddRow("res-1", "asm-1", "fabric", 40.0, nil, "", &lineID, &eta, 50.0, 50.0, 10.0).
			AddRow("res-2", "asm-1", "fabric", 5.0, nil, "batch-7", nil, nil, 0.0, 0.0, 0.0))

	reservations, err := s.loadReservations(context.Background(), "asm-1")
	require.NoError(t, err)
	require.Len(t, reservations, 2)

	require.NotNil(t, reservations[0].POLine)
	assert.Equal(t, "pol-1", reservations[0].POLine.ID)
	assert.InDelta(t, 40, reservations[0].POLine.Unreceived(), 0.001)
	assert.Nil(t, reservations[1].POLine)
	assert.Equal(t, "batch-7", reservations[1].BatchID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_LoadStock_EmptyIDs(t *testing.T) {
	s, _ := newMockPostgresStore(t)

	stock, err := s.LoadStock(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, stock)
}

func TestPostgresStore_LoadToleranceDefaults(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM tolerance_overrides`).
		WillReturnRows(mock.NewRows([]string{"scope", "key", "abs_qty", "pct"}).
			AddRow("assembly", "asm-1", 2.0, 0.0).
			AddRow("product_type", "fabric", 0.0, 0.05))

	defaults, err := s.LoadToleranceDefaults(context.Background(), model.Tolerance{Abs: 1})
	require.NoError(t, err)
	assert.InDelta(t, 1, defaults.Global.Abs, 0.001)
	assert.InDelta(t, 2, defaults.ByAssembly["asm-1"].Abs, 0.001)
	assert.InDelta(t, 0.05, defaults.ByProductType["fabric"].Pct, 0.001)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO evaluation_runs`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	run, err := s.CreateRun(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.False(t, run.StartedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FinishRun_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE evaluation_runs SET finished_at`).
		WithArgs(pgxmock.AnyArg(), 3, 1, "missing-run").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.FinishRun(context.Background(), "missing-run", 3, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveCoverage_Empty(t *testing.T) {
	s, _ := newMockPostgresStore(t)

	// No items means no database round trip.
	err := s.SaveCoverage(context.Background(), "run-1", nil)
	require.NoError(t, err)
}

func TestPostgresStore_SaveCoverage_Upsert(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE`).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_coverage_results"},
		[]string{"run_id", "assembly_id", "product_id", "status", "required", "uncovered", "uncovered_after_tolerance", "tolerance_qty", "held", "payload"}).
		WillReturnResult(1)
	mock.ExpectExec(`INSERT INTO "coverage_results"`).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	results := []coverage.AssemblyCoverage{
		{
			AssemblyID: "asm-1",
			Held:       true,
			Items: []coverage.Item{
				{ProductID: "fabric", Status: model.CoveragePOHold, Required: 100, Uncovered: 30},
			},
		},
	}
	err := s.SaveCoverage(context.Background(), "run-1", results)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
