package stage

import (
	"github.com/crazynala/axisprod/internal/breakdown"
)

// GateSource names the signal a sew gate was derived from.
type GateSource string

const (
	GateExternalReceived GateSource = "external_received"
	GateExternalSent     GateSource = "external_sent"
	GateFinish           GateSource = "finish"
	GateSew              GateSource = "sew"
	GateFallbackCut      GateSource = "fallback_cut"
	GateNone             GateSource = "none"
)

// SewGate is the ceiling on how many units may be credited as sewn, given
// vendor confirmation or internal records.
type SewGate struct {
	Arr    breakdown.Breakdown `json:"arr"`
	Total  float64             `json:"total"`
	Source GateSource          `json:"source"`
}

// ComputeSewGate derives the sew gate. Priority: vendor-received vectors,
// then vendor-sent, then internal sew/finish attempts (finish implicitly
// confirms sew), then optionally the cut quantity. The cut fallback is
// disabled for display rows so an un-sewn assembly never shows invented
// sew progress, and enabled for default-quantity suggestions.
func ComputeSewGate(externals map[string]ExternalAggregate, sew, finish, cut Stats, allowCutFallback bool) SewGate {
	if gate, ok := minAcrossSteps(externals, func(a ExternalAggregate) (breakdown.Breakdown, bool) {
		return a.Received, a.ReceivedTotal > 0
	}); ok {
		return SewGate{Arr: gate, Total: breakdown.Sum(gate), Source: GateExternalReceived}
	}

	if gate, ok := minAcrossSteps(externals, func(a ExternalAggregate) (breakdown.Breakdown, bool) {
		return a.Sent, a.SentTotal > 0
	}); ok {
		return SewGate{Arr: gate, Total: breakdown.Sum(gate), Source: GateExternalSent}
	}

	if sew.AttemptsTotal > 0 || finish.AttemptsTotal > 0 {
		gate := breakdown.Max(sew.Processed, finish.Processed)
		source := GateSew
		if finish.ProcessedTotal > sew.ProcessedTotal {
			source = GateFinish
		}
		return SewGate{Arr: gate, Total: breakdown.Sum(gate), Source: source}
	}

	if allowCutFallback && cut.ProcessedTotal > 0 {
		gate := breakdown.Clone(cut.Processed)
		return SewGate{Arr: gate, Total: breakdown.Sum(gate), Source: GateFallbackCut}
	}

	return SewGate{Arr: breakdown.Breakdown{}, Source: GateNone}
}

// minAcrossSteps folds the element-wise minimum over every step vector the
// selector accepts. Returns false when no step qualified.
func minAcrossSteps(externals map[string]ExternalAggregate, pick func(ExternalAggregate) (breakdown.Breakdown, bool)) (breakdown.Breakdown, bool) {
	var gate breakdown.Breakdown
	found := false
	for _, key := range StepTypes(externals) {
		arr, ok := pick(externals[key])
		if !ok {
			continue
		}
		if !found {
			gate = breakdown.Clone(arr)
			found = true
			continue
		}
		gate = breakdown.Min(gate, arr)
	}
	return gate, found
}

// FinishCapInputs feeds the finish-cap computation.
type FinishCapInputs struct {
	ExternalGate         breakdown.Breakdown // sew gate when externally sourced; empty otherwise
	SewRecorded          breakdown.Breakdown
	HasSewRecords        bool
	CutRecorded          breakdown.Breakdown
	FinishRecorded       breakdown.Breakdown
	FinishLossReconciled breakdown.Breakdown
}

// ComputeFinishCap returns the ceiling on finish quantity: the confirmed
// upstream supply (external gate, else sew when recorded, else cut) minus
// what finish has already consumed, with reconciled losses returned to the
// pool. Clamped at zero.
func ComputeFinishCap(in FinishCapInputs) breakdown.Breakdown {
	confirmed := in.ExternalGate
	if breakdown.Sum(confirmed) == 0 {
		if in.HasSewRecords {
			confirmed = in.SewRecorded
		} else {
			confirmed = in.CutRecorded
		}
	}

	consumed := breakdown.SubClamped(in.FinishRecorded, in.FinishLossReconciled)
	return breakdown.SubClamped(confirmed, consumed)
}

// SuggestedFinishQty is the default quantity offered for a new finish
// entry: the remaining headroom under the cap after what is already done.
func SuggestedFinishQty(inputCap, done breakdown.Breakdown) (breakdown.Breakdown, float64) {
	arr := breakdown.SubClamped(inputCap, done)
	return arr, breakdown.Sum(arr)
}
