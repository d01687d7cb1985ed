// Package stage implements the production stage-aggregation and gating
// engine: per-stage quantity statistics, external vendor-step aggregation,
// sew-gate and finish-cap computation, and the per-assembly aggregate that
// dashboards and the coverage evaluator consume.
package stage

import (
	"github.com/crazynala/axisprod/internal/breakdown"
	"github.com/crazynala/axisprod/internal/model"
)

// Stats holds the derived quantity vectors for one stage. Recomputed fresh
// on every aggregation; never persisted.
type Stats struct {
	Good             breakdown.Breakdown `json:"good"`
	Defect           breakdown.Breakdown `json:"defect"`
	DefectReconciled breakdown.Breakdown `json:"defect_reconciled"`
	Processed        breakdown.Breakdown `json:"processed"`
	Usable           breakdown.Breakdown `json:"usable"`
	Attempts         breakdown.Breakdown `json:"attempts"`

	GoodTotal      float64 `json:"good_total"`
	DefectTotal    float64 `json:"defect_total"`
	ProcessedTotal float64 `json:"processed_total"`
	UsableTotal    float64 `json:"usable_total"`
	AttemptsTotal  float64 `json:"attempts_total"`

	// Defect sub-totals split by action.
	DefectLoggedTotal     float64 `json:"defect_logged_total"`
	DefectReconciledTotal float64 `json:"defect_reconciled_total"`

	// HasActivity is true when at least one activity was recorded for the
	// stage. False means the fallback path supplied the numbers.
	HasActivity bool `json:"has_activity"`
}

// StatsOptions configures the fallback path for a stage with no recorded
// activity (legacy persisted totals, or the pack snapshot for pack).
type StatsOptions struct {
	Fallback      breakdown.Breakdown
	FallbackTotal float64

	// UseFallbackIfNoNormal substitutes the fallback as the good array when
	// every recorded activity is a defect. Pack lines are sometimes entered
	// purely as shortfall; without this the stage would read as zero good.
	UseFallbackIfNoNormal bool
}

// ComputeStats folds the activities of one stage into quantity statistics.
// With no activities at all, the fallback breakdown is returned verbatim as
// good/processed/usable with zero defect.
func ComputeStats(activities []model.Activity, opts StatsOptions) Stats {
	var s Stats

	for _, act := range activities {
		arr := breakdown.Normalize(act.Breakdown, act.Quantity, true)
		if act.Kind == model.KindDefect {
			s.Defect = breakdown.AddInto(s.Defect, arr)
			switch act.Action {
			case model.ActionLossReconciled:
				s.DefectReconciled = breakdown.AddInto(s.DefectReconciled, arr)
				s.DefectReconciledTotal += breakdown.Sum(arr)
			default:
				s.DefectLoggedTotal += breakdown.Sum(arr)
			}
		} else {
			s.Good = breakdown.AddInto(s.Good, arr)
		}
		s.HasActivity = true
	}

	if !s.HasActivity {
		fb := breakdown.Normalize(opts.Fallback, opts.FallbackTotal, true)
		total := breakdown.Sum(fb)
		return Stats{
			Good:             fb,
			Defect:           breakdown.Breakdown{},
			DefectReconciled: breakdown.Breakdown{},
			Processed:        breakdown.Clone(fb),
			Usable:           breakdown.Clone(fb),
			Attempts:         breakdown.Clone(fb),
			GoodTotal:        total,
			ProcessedTotal:   total,
			UsableTotal:      total,
			AttemptsTotal:    total,
		}
	}

	if opts.UseFallbackIfNoNormal && breakdown.Sum(s.Good) == 0 && breakdown.Sum(s.Defect) > 0 {
		if fb := breakdown.Normalize(opts.Fallback, opts.FallbackTotal, true); breakdown.Sum(fb) > 0 {
			s.Good = fb
		}
	}

	if s.Good == nil {
		s.Good = breakdown.Breakdown{}
	}
	if s.Defect == nil {
		s.Defect = breakdown.Breakdown{}
	}
	if s.DefectReconciled == nil {
		s.DefectReconciled = breakdown.Breakdown{}
	}

	s.Processed = breakdown.AddInto(breakdown.Clone(s.Good), s.Defect)
	s.Usable = breakdown.Clone(s.Good)
	s.Attempts = breakdown.Clone(s.Processed)

	s.GoodTotal = breakdown.Sum(s.Good)
	s.DefectTotal = breakdown.Sum(s.Defect)
	s.ProcessedTotal = breakdown.Sum(s.Processed)
	s.UsableTotal = breakdown.Sum(s.Usable)
	s.AttemptsTotal = breakdown.Sum(s.Attempts)

	return s
}

// filterStage returns the activities recorded against one stage, excluding
// external-step round trips (those belong to the external aggregator).
func filterStage(activities []model.Activity, st model.Stage) []model.Activity {
	var out []model.Activity
	for _, act := range activities {
		if act.Stage != st {
			continue
		}
		if act.ExternalStepType != "" {
			continue
		}
		out = append(out, act)
	}
	return out
}
