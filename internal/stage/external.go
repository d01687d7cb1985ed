package stage

import (
	"sort"

	"github.com/crazynala/axisprod/internal/breakdown"
	"github.com/crazynala/axisprod/internal/model"
)

// ExternalAggregate is the sent/received position of one vendor round-trip
// step type. Net is what the vendor has confirmed back; Loss is what went
// out and never came back.
type ExternalAggregate struct {
	StepType string              `json:"step_type"`
	Sent     breakdown.Breakdown `json:"sent"`
	Received breakdown.Breakdown `json:"received"`
	Net      breakdown.Breakdown `json:"net"`
	Loss     breakdown.Breakdown `json:"loss"`

	SentTotal     float64 `json:"sent_total"`
	ReceivedTotal float64 `json:"received_total"`
	NetTotal      float64 `json:"net_total"`
	LossTotal     float64 `json:"loss_total"`
}

// State derives the lifecycle of the step from its aggregate.
func (a ExternalAggregate) State() model.StepState {
	switch {
	case a.SentTotal == 0:
		return model.StepNotStarted
	case a.ReceivedTotal >= a.SentTotal:
		return model.StepDone
	default:
		return model.StepInProgress
	}
}

// AggregateExternal groups vendor round-trip activities by step type and
// accumulates sent/received vectors. Activities without a recognized
// action or a usable breakdown are excluded, not errors.
func AggregateExternal(activities []model.Activity) map[string]ExternalAggregate {
	out := make(map[string]ExternalAggregate)

	for _, act := range activities {
		if act.ExternalStepType == "" {
			continue
		}
		arr := breakdown.Normalize(act.Breakdown, act.Quantity, true)
		if len(arr) == 0 {
			continue
		}

		agg, ok := out[act.ExternalStepType]
		if !ok {
			agg = ExternalAggregate{StepType: act.ExternalStepType}
		}

		switch act.Action {
		case model.ActionSentOut:
			agg.Sent = breakdown.AddInto(agg.Sent, arr)
		case model.ActionReceivedIn:
			agg.Received = breakdown.AddInto(agg.Received, arr)
		default:
			continue
		}
		out[act.ExternalStepType] = agg
	}

	for key, agg := range out {
		agg.Net = breakdown.Min(agg.Sent, agg.Received)
		agg.Loss = breakdown.SubClamped(agg.Sent, agg.Received)
		agg.SentTotal = breakdown.Sum(agg.Sent)
		agg.ReceivedTotal = breakdown.Sum(agg.Received)
		agg.NetTotal = breakdown.Sum(agg.Net)
		agg.LossTotal = breakdown.Sum(agg.Loss)
		out[key] = agg
	}

	return out
}

// StepTypes returns the step types of a map of aggregates in stable order.
func StepTypes(aggs map[string]ExternalAggregate) []string {
	keys := make([]string, 0, len(aggs))
	for k := range aggs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
