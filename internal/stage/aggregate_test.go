package stage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crazynala/axisprod/internal/breakdown"
	"github.com/crazynala/axisprod/internal/model"
)

func TestAggregate_OrderedAndCancellation(t *testing.T) {
	t.Parallel()

	agg := Aggregate(Inputs{
		AssemblyID: "asm-1",
		Ordered:    breakdown.Breakdown{10, 8},
		Activities: []model.Activity{
			act(model.StageCancel, model.KindNormal, model.ActionAdjustment, 0, 2, 0),
			act(model.StageCancel, model.KindNormal, model.ActionAdjustment, 0, 0, 12),
		},
	})

	assert.Equal(t, breakdown.Breakdown{10, 8}, agg.Ordered)
	assert.Equal(t, breakdown.Breakdown{2, 12}, agg.Canceled)
	// Cancellation never drives effective ordered negative.
	assert.Equal(t, breakdown.Breakdown{8, 0}, agg.EffectiveOrdered)
	assert.Equal(t, 18.0, agg.OrderedTotal)
	assert.Equal(t, 8.0, agg.EffectiveTotal)
}

func TestAggregate_ForwardGating(t *testing.T) {
	t.Parallel()

	agg := Aggregate(Inputs{
		AssemblyID: "asm-2",
		Ordered:    breakdown.Breakdown{10},
		Activities: []model.Activity{
			act(model.StageCut, model.KindNormal, model.ActionRecorded, 0, 8),
			act(model.StageSew, model.KindNormal, model.ActionRecorded, 0, 9),
			act(model.StageFinish, model.KindNormal, model.ActionRecorded, 0, 5),
		},
	})

	// Sew is capped by cut even though 9 were recorded; the finish
	// shortfall then caps the sew display one level back.
	assert.Equal(t, breakdown.Breakdown{9}, agg.Stats[model.StageSew].Usable)
	assert.Equal(t, breakdown.Breakdown{5}, agg.DisplaySew)
	assert.Equal(t, 5.0, agg.FinishTotal)
	assert.Equal(t, breakdown.Breakdown{5}, agg.DisplayFinish)
	// Cut is reverse-capped by sew (8), not by finish.
	assert.Equal(t, breakdown.Breakdown{8}, agg.DisplayCut)
}

func TestAggregate_MonotonicDisplayTotals(t *testing.T) {
	t.Parallel()

	agg := Aggregate(Inputs{
		AssemblyID: "asm-3",
		Ordered:    breakdown.Breakdown{10},
		Activities: []model.Activity{
			act(model.StageCut, model.KindNormal, model.ActionRecorded, 0, 8),
			act(model.StageSew, model.KindNormal, model.ActionRecorded, 0, 6),
			act(model.StageFinish, model.KindNormal, model.ActionRecorded, 0, 4),
			act(model.StagePack, model.KindNormal, model.ActionRecorded, 0, 3),
		},
	})

	assert.LessOrEqual(t, agg.PackTotal, agg.FinishTotal)
	assert.LessOrEqual(t, agg.FinishTotal, agg.SewTotal)
	assert.LessOrEqual(t, agg.SewTotal, agg.CutTotal)
	assert.LessOrEqual(t, agg.CutTotal, agg.EffectiveTotal)

	// Reverse capping: cut displays only what survived downstream.
	assert.Equal(t, breakdown.Breakdown{6}, agg.DisplayCut)
	assert.Equal(t, breakdown.Breakdown{4}, agg.DisplaySew)
	assert.Equal(t, breakdown.Breakdown{4}, agg.DisplayFinish)
	assert.Equal(t, breakdown.Breakdown{3}, agg.DisplayPack)
}

func TestAggregate_NoDownstreamDataPassesThrough(t *testing.T) {
	t.Parallel()

	agg := Aggregate(Inputs{
		AssemblyID: "asm-4",
		Ordered:    breakdown.Breakdown{10},
		Activities: []model.Activity{
			act(model.StageCut, model.KindNormal, model.ActionRecorded, 0, 8),
		},
	})

	// No sew or finish data: cut is not retroactively capped.
	assert.Equal(t, breakdown.Breakdown{8}, agg.DisplayCut)
	assert.Equal(t, 8.0, agg.CutTotal)
	// Un-started pack displays zero, not finish's value.
	assert.Equal(t, 0.0, agg.PackTotal)
}

func TestAggregate_OverRecordedCutCappedByOrder(t *testing.T) {
	t.Parallel()

	agg := Aggregate(Inputs{
		AssemblyID: "asm-10",
		Ordered:    breakdown.Breakdown{4},
		Activities: []model.Activity{
			act(model.StageCut, model.KindNormal, model.ActionRecorded, 0, 6),
		},
	})

	// Cut entered beyond the order never displays more than was ordered.
	assert.Equal(t, breakdown.Breakdown{4}, agg.DisplayCut)
	assert.Equal(t, 4.0, agg.CutTotal)
	assert.LessOrEqual(t, agg.CutTotal, agg.EffectiveTotal)
}

func TestAggregate_NoOrderRecordPassesCutThrough(t *testing.T) {
	t.Parallel()

	agg := Aggregate(Inputs{
		AssemblyID: "asm-11",
		Activities: []model.Activity{
			act(model.StageCut, model.KindNormal, model.ActionRecorded, 0, 3),
		},
	})

	// With no order on record the cap does not zero the recorded work.
	assert.Equal(t, breakdown.Breakdown{3}, agg.DisplayCut)
	assert.Equal(t, 3.0, agg.CutTotal)
}

func TestAggregate_PackSnapshotFallback(t *testing.T) {
	t.Parallel()

	agg := Aggregate(Inputs{
		AssemblyID: "asm-5",
		Ordered:    breakdown.Breakdown{6, 6},
		Pack:       model.PackSnapshot{Breakdown: breakdown.Breakdown{2, 2}, Total: 4},
		Activities: []model.Activity{
			act(model.StageCut, model.KindNormal, model.ActionRecorded, 0, 6, 6),
			act(model.StageSew, model.KindNormal, model.ActionRecorded, 0, 5, 5),
			act(model.StageFinish, model.KindNormal, model.ActionRecorded, 0, 4, 4),
		},
	})

	// Box lines stand in for the pack stage when no pack activity exists.
	assert.Equal(t, breakdown.Breakdown{2, 2}, agg.DisplayPack)
	assert.Equal(t, 4.0, agg.PackTotal)
}

func TestAggregate_LegacyFallbackTotals(t *testing.T) {
	t.Parallel()

	agg := Aggregate(Inputs{
		AssemblyID: "asm-6",
		Ordered:    breakdown.Breakdown{5},
		FallbackBreakdowns: map[model.Stage]breakdown.Breakdown{
			model.StageCut: {5},
			model.StageSew: {3},
		},
	})

	// No activities at all: persisted legacy totals flow through.
	assert.Equal(t, 3.0, agg.SewTotal)
	assert.Equal(t, breakdown.Breakdown{3}, agg.DisplaySew)
	// Sew fallback exists, so cut is reverse-capped by it.
	assert.Equal(t, breakdown.Breakdown{3}, agg.DisplayCut)
}

func TestAggregate_Idempotent(t *testing.T) {
	t.Parallel()

	in := Inputs{
		AssemblyID: "asm-7",
		Ordered:    breakdown.Breakdown{4, 4},
		Activities: []model.Activity{
			act(model.StageCut, model.KindNormal, model.ActionRecorded, 0, 4, 3),
			act(model.StageSew, model.KindDefect, model.ActionDefectLogged, 0, 1, 0),
			extAct("dye", model.ActionSentOut, 3, 3),
		},
	}

	first := Aggregate(in)
	second := Aggregate(in)
	assert.Equal(t, first, second)
}

func TestAggregate_MalformedInputDegradesToZero(t *testing.T) {
	t.Parallel()

	agg := Aggregate(Inputs{
		AssemblyID: "asm-8",
		Ordered:    breakdown.Breakdown{-3, 5},
		Activities: []model.Activity{
			act(model.StageCut, model.KindNormal, model.ActionRecorded, -2),
		},
	})

	assert.Equal(t, breakdown.Breakdown{0, 5}, agg.Ordered)
	assert.Equal(t, 0.0, agg.CutTotal)

	for _, st := range model.ProductionStages {
		s := agg.Stats[st]
		assert.GreaterOrEqual(t, s.GoodTotal, 0.0)
		assert.GreaterOrEqual(t, s.DefectTotal, 0.0)
		assert.GreaterOrEqual(t, s.UsableTotal, 0.0)
	}
	require.NotNil(t, agg.External)
}

func TestAggregate_ExternalAggregatesIncluded(t *testing.T) {
	t.Parallel()

	agg := Aggregate(Inputs{
		AssemblyID: "asm-9",
		Ordered:    breakdown.Breakdown{3},
		Activities: []model.Activity{
			act(model.StageCut, model.KindNormal, model.ActionRecorded, 0, 3),
			extAct("embroidery", model.ActionSentOut, 3),
			extAct("embroidery", model.ActionReceivedIn, 1),
		},
	})

	require.Contains(t, agg.External, "embroidery")
	assert.Equal(t, 3.0, agg.External["embroidery"].SentTotal)
	assert.Equal(t, 1.0, agg.External["embroidery"].ReceivedTotal)
}
