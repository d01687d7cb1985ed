package stage

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/crazynala/axisprod/internal/breakdown"
	"github.com/crazynala/axisprod/internal/model"
)

func act(st model.Stage, kind model.ActivityKind, action model.ActivityAction, qty float64, arr ...float64) model.Activity {
	return model.Activity{
		Stage:     st,
		Kind:      kind,
		Action:    action,
		Quantity:  qty,
		Breakdown: breakdown.Breakdown(arr),
	}
}

func TestComputeStats_GoodAndDefect(t *testing.T) {
	t.Parallel()

	s := ComputeStats([]model.Activity{
		act(model.StageCut, model.KindNormal, model.ActionRecorded, 0, 3, 2),
		act(model.StageCut, model.KindNormal, model.ActionRecorded, 0, 1, 0),
		act(model.StageCut, model.KindDefect, model.ActionDefectLogged, 0, 0, 1),
	}, StatsOptions{})

	assert.True(t, s.HasActivity)
	assert.Equal(t, breakdown.Breakdown{4, 2}, s.Good)
	assert.Equal(t, breakdown.Breakdown{0, 1}, s.Defect)
	assert.Equal(t, breakdown.Breakdown{4, 3}, s.Processed)
	assert.Equal(t, breakdown.Breakdown{4, 2}, s.Usable)
	assert.Equal(t, s.Processed, s.Attempts)
	assert.Equal(t, 6.0, s.GoodTotal)
	assert.Equal(t, 1.0, s.DefectTotal)
	assert.Equal(t, 7.0, s.ProcessedTotal)
	assert.Equal(t, 1.0, s.DefectLoggedTotal)
	assert.Equal(t, 0.0, s.DefectReconciledTotal)
}

func TestComputeStats_DefectActionSplit(t *testing.T) {
	t.Parallel()

	s := ComputeStats([]model.Activity{
		act(model.StageFinish, model.KindDefect, model.ActionDefectLogged, 0, 2),
		act(model.StageFinish, model.KindDefect, model.ActionLossReconciled, 0, 1),
		act(model.StageFinish, model.KindDefect, model.ActionNone, 0, 1),
	}, StatsOptions{})

	assert.Equal(t, 4.0, s.DefectTotal)
	assert.Equal(t, 3.0, s.DefectLoggedTotal)
	assert.Equal(t, 1.0, s.DefectReconciledTotal)
	// The reconciled vector carries only the reconciled units, not every
	// defect.
	assert.Equal(t, breakdown.Breakdown{4}, s.Defect)
	assert.Equal(t, breakdown.Breakdown{1}, s.DefectReconciled)
	assert.Equal(t, 0.0, s.GoodTotal)
}

func TestComputeStats_ScalarFallbackPerActivity(t *testing.T) {
	t.Parallel()

	// Quantity without per-variant detail lands in a single slot.
	s := ComputeStats([]model.Activity{
		act(model.StageSew, model.KindNormal, model.ActionRecorded, 5),
	}, StatsOptions{})

	assert.Equal(t, breakdown.Breakdown{5}, s.Good)
	assert.Equal(t, 5.0, s.GoodTotal)
}

func TestComputeStats_NoActivityUsesFallback(t *testing.T) {
	t.Parallel()

	s := ComputeStats(nil, StatsOptions{Fallback: breakdown.Breakdown{2, 3}})

	assert.False(t, s.HasActivity)
	assert.Equal(t, breakdown.Breakdown{2, 3}, s.Good)
	assert.Equal(t, breakdown.Breakdown{2, 3}, s.Processed)
	assert.Equal(t, breakdown.Breakdown{2, 3}, s.Usable)
	assert.Equal(t, breakdown.Breakdown{}, s.Defect)
	assert.Equal(t, 5.0, s.ProcessedTotal)
	assert.Equal(t, 0.0, s.DefectTotal)
}

func TestComputeStats_NoActivityScalarFallback(t *testing.T) {
	t.Parallel()

	s := ComputeStats(nil, StatsOptions{FallbackTotal: 7})

	assert.Equal(t, breakdown.Breakdown{7}, s.Good)
	assert.Equal(t, 7.0, s.UsableTotal)
}

func TestComputeStats_NoActivityNoFallback(t *testing.T) {
	t.Parallel()

	s := ComputeStats(nil, StatsOptions{})

	assert.Equal(t, breakdown.Breakdown{}, s.Good)
	assert.Equal(t, 0.0, s.ProcessedTotal)
}

func TestComputeStats_PackDefectOnlySubstitution(t *testing.T) {
	t.Parallel()

	// A pack recorded purely as shortfall takes the snapshot as its good
	// array instead of reading as zero packed.
	s := ComputeStats([]model.Activity{
		act(model.StagePack, model.KindDefect, model.ActionDefectLogged, 0, 1),
	}, StatsOptions{
		Fallback:              breakdown.Breakdown{4, 4},
		UseFallbackIfNoNormal: true,
	})

	assert.Equal(t, breakdown.Breakdown{4, 4}, s.Good)
	assert.Equal(t, 8.0, s.GoodTotal)
	assert.Equal(t, 1.0, s.DefectTotal)
	assert.Equal(t, breakdown.Breakdown{5, 4}, s.Processed)
}

func TestComputeStats_SubstitutionNeedsDefectOnly(t *testing.T) {
	t.Parallel()

	// Any good activity disables the substitution.
	s := ComputeStats([]model.Activity{
		act(model.StagePack, model.KindNormal, model.ActionRecorded, 0, 2),
		act(model.StagePack, model.KindDefect, model.ActionDefectLogged, 0, 1),
	}, StatsOptions{
		Fallback:              breakdown.Breakdown{9},
		UseFallbackIfNoNormal: true,
	})

	assert.Equal(t, breakdown.Breakdown{2}, s.Good)
}

func TestFilterStage(t *testing.T) {
	t.Parallel()

	external := act(model.StageSew, model.KindNormal, model.ActionSentOut, 0, 1)
	external.ExternalStepType = "embroidery"

	acts := []model.Activity{
		act(model.StageCut, model.KindNormal, model.ActionRecorded, 0, 1),
		act(model.StageSew, model.KindNormal, model.ActionRecorded, 0, 2),
		external,
	}

	sewOnly := filterStage(acts, model.StageSew)
	assert.Len(t, sewOnly, 1)
	assert.Equal(t, breakdown.Breakdown{2}, sewOnly[0].Breakdown)
}
