package stage

import (
	"github.com/crazynala/axisprod/internal/breakdown"
	"github.com/crazynala/axisprod/internal/model"
)

// Aggregation is the full stage-quantity picture for one assembly: the
// single source of truth handed to the row builder, the coverage
// evaluator, and the risk signal builder.
type Aggregation struct {
	AssemblyID string `json:"assembly_id"`

	Ordered          breakdown.Breakdown `json:"ordered"`
	Canceled         breakdown.Breakdown `json:"canceled"`
	EffectiveOrdered breakdown.Breakdown `json:"effective_ordered"`
	OrderedTotal     float64             `json:"ordered_total"`
	CanceledTotal    float64             `json:"canceled_total"`
	EffectiveTotal   float64             `json:"effective_total"`

	Stats map[model.Stage]Stats `json:"stats"`

	DisplayCut    breakdown.Breakdown `json:"display_cut"`
	DisplaySew    breakdown.Breakdown `json:"display_sew"`
	DisplayFinish breakdown.Breakdown `json:"display_finish"`
	DisplayPack   breakdown.Breakdown `json:"display_pack"`
	DisplayQC     breakdown.Breakdown `json:"display_qc"`

	CutTotal    float64 `json:"cut_total"`
	SewTotal    float64 `json:"sew_total"`
	FinishTotal float64 `json:"finish_total"`
	PackTotal   float64 `json:"pack_total"`
	QCTotal     float64 `json:"qc_total"`

	External map[string]ExternalAggregate `json:"external"`
}

// Inputs bundles everything Aggregate needs for one assembly.
type Inputs struct {
	AssemblyID         string
	Ordered            breakdown.Breakdown
	FallbackBreakdowns map[model.Stage]breakdown.Breakdown
	FallbackTotals     map[model.Stage]float64
	Pack               model.PackSnapshot
	Activities         []model.Activity
}

// Aggregate converts an assembly's activity list into per-stage display
// arrays and totals, applying the monotonic gating rules. Pure: identical
// inputs always produce identical output, and malformed data degrades to
// zero instead of failing.
func Aggregate(in Inputs) Aggregation {
	agg := Aggregation{
		AssemblyID: in.AssemblyID,
		Stats:      make(map[model.Stage]Stats, len(model.ProductionStages)),
	}

	agg.Ordered = breakdown.Normalize(in.Ordered, 0, false)

	var canceled breakdown.Breakdown
	for _, act := range in.Activities {
		if act.Stage != model.StageCancel {
			continue
		}
		canceled = breakdown.AddInto(canceled, breakdown.Normalize(act.Breakdown, act.Quantity, true))
	}
	if canceled == nil {
		canceled = breakdown.Breakdown{}
	}
	agg.Canceled = canceled
	agg.EffectiveOrdered = breakdown.SubClamped(agg.Ordered, agg.Canceled)
	agg.OrderedTotal = breakdown.Sum(agg.Ordered)
	agg.CanceledTotal = breakdown.Sum(agg.Canceled)
	agg.EffectiveTotal = breakdown.Sum(agg.EffectiveOrdered)

	for _, st := range model.ProductionStages {
		opts := StatsOptions{
			Fallback:      in.FallbackBreakdowns[st],
			FallbackTotal: in.FallbackTotals[st],
		}
		switch st {
		case model.StagePack:
			opts.Fallback = in.Pack.Breakdown
			opts.FallbackTotal = in.Pack.Total
			opts.UseFallbackIfNoNormal = true
		case model.StageQC:
			opts = StatsOptions{}
		}
		agg.Stats[st] = ComputeStats(filterStage(in.Activities, st), opts)
	}

	cut := agg.Stats[model.StageCut]
	sew := agg.Stats[model.StageSew]
	finish := agg.Stats[model.StageFinish]
	pack := agg.Stats[model.StagePack]
	qc := agg.Stats[model.StageQC]

	hasSewData := sew.HasActivity || breakdown.Sum(in.FallbackBreakdowns[model.StageSew]) > 0 || in.FallbackTotals[model.StageSew] > 0
	hasFinishData := finish.HasActivity || breakdown.Sum(in.FallbackBreakdowns[model.StageFinish]) > 0 || in.FallbackTotals[model.StageFinish] > 0
	hasPackData := pack.HasActivity || breakdown.Sum(in.Pack.Breakdown) > 0 || in.Pack.Total > 0

	// Forward gating: a stage is capped by what upstream delivered, but
	// only once the stage has data of its own. Before that the upstream
	// value passes through so an un-started stage never blocks falsely.
	// Over-recorded cut is capped at the effective order; with no order on
	// record the recorded quantities pass through.
	usableCut := cut.Usable
	if agg.EffectiveTotal > 0 {
		usableCut = breakdown.Min(cut.Usable, agg.EffectiveOrdered)
	}
	usableSew := sew.Usable
	if hasSewData {
		usableSew = breakdown.Min(sew.Usable, usableCut)
	}
	sewCeiling := usableCut
	if hasSewData {
		sewCeiling = usableSew
	}
	usableFinish := finish.Usable
	if hasFinishData {
		usableFinish = breakdown.Min(finish.Usable, sewCeiling)
	}
	var usablePack breakdown.Breakdown
	if hasPackData {
		usablePack = breakdown.Min(pack.Usable, usableFinish)
	} else {
		usablePack = breakdown.Zeros(len(usableFinish))
	}

	// Reverse direction: a downstream shortfall retroactively caps how much
	// of the upstream stage counts as fully progressed.
	agg.DisplayCut = usableCut
	if hasSewData {
		agg.DisplayCut = breakdown.Min(usableCut, usableSew)
	}
	agg.DisplaySew = usableSew
	if hasFinishData {
		agg.DisplaySew = breakdown.Min(usableSew, usableFinish)
	}
	agg.DisplayFinish = usableFinish
	agg.DisplayPack = usablePack
	agg.DisplayQC = qc.Usable

	agg.CutTotal = breakdown.Sum(agg.DisplayCut)
	agg.SewTotal = breakdown.Sum(agg.DisplaySew)
	agg.FinishTotal = breakdown.Sum(agg.DisplayFinish)
	agg.PackTotal = breakdown.Sum(agg.DisplayPack)
	agg.QCTotal = breakdown.Sum(agg.DisplayQC)

	agg.External = AggregateExternal(in.Activities)

	return agg
}
