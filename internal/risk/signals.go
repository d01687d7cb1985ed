// Package risk combines stage totals, external-step lateness, and material
// coverage into assembly-level hold and next-action signals for dashboards.
package risk

import (
	"fmt"
	"time"

	"github.com/crazynala/axisprod/internal/coverage"
	"github.com/crazynala/axisprod/internal/model"
	"github.com/crazynala/axisprod/internal/stage"
)

// Action kinds surfaced to planners.
const (
	ActionSendOut        = "send_out"
	ActionFollowUpVendor = "follow_up_vendor"
	ActionResolvePO      = "resolve_po"
)

// NextAction is one suggested intervention for an assembly.
type NextAction struct {
	Kind      string `json:"kind"`
	StepType  string `json:"step_type,omitempty"`
	ProductID string `json:"product_id,omitempty"`
	Message   string `json:"message"`
}

// StepSummary is the per-vendor-step view carried on the risk signals.
type StepSummary struct {
	StepType      string          `json:"step_type"`
	Vendor        string          `json:"vendor,omitempty"`
	ETA           *time.Time      `json:"eta,omitempty"`
	State         model.StepState `json:"state"`
	Late          bool            `json:"late"`
	SentTotal     float64         `json:"sent_total"`
	ReceivedTotal float64         `json:"received_total"`
}

// Signals is the assembly-level risk summary.
type Signals struct {
	AssemblyID      string        `json:"assembly_id"`
	HasExternalLate bool          `json:"has_external_late"`
	ExternalDueSoon bool          `json:"external_due_soon"`
	NearestOpenETA  *time.Time    `json:"nearest_open_eta,omitempty"`
	POHold          bool          `json:"po_hold"`
	POHoldReason    string        `json:"po_hold_reason,omitempty"`
	BlockingETA     *time.Time    `json:"blocking_eta,omitempty"`
	NextActions     []NextAction  `json:"next_actions,omitempty"`
	Steps           []StepSummary `json:"steps,omitempty"`
}

// Builder derives risk signals. DueSoonDays is the look-ahead window for
// external ETAs.
type Builder struct {
	DueSoonDays int
}

// NewBuilder creates a Builder with the standard 7-day window when days
// is not positive.
func NewBuilder(days int) *Builder {
	if days <= 0 {
		days = coverage.DefaultDueSoonDays
	}
	return &Builder{DueSoonDays: days}
}

// Build computes the risk signals for one assembly. cov may be nil, in
// which case PO risk falls back to a line-only evaluation over the raw
// reservations (no tolerance applied).
func (b *Builder) Build(agg stage.Aggregation, steps []model.ExternalStepInfo, cov *coverage.AssemblyCoverage, reservations []model.SupplyReservation, needBy *time.Time, today time.Time) Signals {
	sig := Signals{AssemblyID: agg.AssemblyID}

	infoByType := make(map[string]model.ExternalStepInfo, len(steps))
	for _, s := range steps {
		infoByType[s.StepType] = s
	}

	known := knownStepTypes(agg, steps)
	for _, stepType := range known {
		ext := agg.External[stepType]
		meta := infoByType[stepType]

		summary := StepSummary{
			StepType:      stepType,
			Vendor:        meta.Vendor,
			ETA:           meta.ETA,
			State:         ext.State(),
			SentTotal:     ext.SentTotal,
			ReceivedTotal: ext.ReceivedTotal,
		}
		if summary.State != model.StepDone && meta.ETA != nil && meta.ETA.Before(startOfDay(today)) {
			summary.Late = true
			sig.HasExternalLate = true
		}
		sig.Steps = append(sig.Steps, summary)

		open := summary.State != model.StepDone
		if open && meta.ETA != nil {
			if sig.NearestOpenETA == nil || meta.ETA.Before(*sig.NearestOpenETA) {
				sig.NearestOpenETA = meta.ETA
			}
		}

		switch {
		case summary.State == model.StepNotStarted && agg.CutTotal > 0:
			sig.NextActions = append(sig.NextActions, NextAction{
				Kind:     ActionSendOut,
				StepType: stepType,
				Message:  fmt.Sprintf("cut output ready; send out for %s", stepType),
			})
		case summary.State == model.StepInProgress && summary.Late:
			sig.NextActions = append(sig.NextActions, NextAction{
				Kind:     ActionFollowUpVendor,
				StepType: stepType,
				Message:  fmt.Sprintf("%s overdue at vendor %s", stepType, meta.Vendor),
			})
		}
	}

	if sig.NearestOpenETA != nil && !sig.HasExternalLate {
		window := time.Duration(b.DueSoonDays) * 24 * time.Hour
		if sig.NearestOpenETA.Sub(startOfDay(today)) <= window {
			sig.ExternalDueSoon = true
		}
	}

	if cov != nil {
		b.applyCoverage(&sig, cov)
	} else {
		b.applyLineFallback(&sig, reservations, needBy, today)
	}

	return sig
}

// applyCoverage translates an evaluated coverage result into PO-hold
// signals and resolve actions.
func (b *Builder) applyCoverage(sig *Signals, cov *coverage.AssemblyCoverage) {
	if !cov.Held {
		return
	}
	sig.POHold = true
	for _, reason := range cov.HoldReasons {
		if reason.Status != model.CoveragePOHold {
			continue
		}
		if sig.POHoldReason == "" {
			sig.POHoldReason = reason.Message
		}
		if reason.EarliestBlockedETA != nil && (sig.BlockingETA == nil || reason.EarliestBlockedETA.Before(*sig.BlockingETA)) {
			sig.BlockingETA = reason.EarliestBlockedETA
		}
		sig.NextActions = append(sig.NextActions, NextAction{
			Kind:      ActionResolvePO,
			ProductID: reason.ProductID,
			Message:   reason.Message,
		})
	}
}

// applyLineFallback is the simpler PO-line-only check used when no
// coverage result was supplied: ETA missing, past due, or after the
// needed date on any line with unreceived quantity raises the hold.
func (b *Builder) applyLineFallback(sig *Signals, reservations []model.SupplyReservation, needBy *time.Time, today time.Time) {
	for _, res := range reservations {
		if !res.POBacked() || res.Settled() || res.POLine.Unreceived() <= 0 {
			continue
		}
		line := res.POLine

		var reason string
		switch {
		case line.ETA == nil:
			reason = fmt.Sprintf("po line %s has no eta", line.ID)
		case line.ETA.Before(startOfDay(today)):
			reason = fmt.Sprintf("po line %s past due", line.ID)
		case needBy != nil && line.ETA.After(*needBy):
			reason = fmt.Sprintf("po line %s arrives after needed date", line.ID)
		default:
			continue
		}

		sig.POHold = true
		if sig.POHoldReason == "" {
			sig.POHoldReason = reason
		}
		if line.ETA != nil && (sig.BlockingETA == nil || line.ETA.Before(*sig.BlockingETA)) {
			sig.BlockingETA = line.ETA
		}
		sig.NextActions = append(sig.NextActions, NextAction{
			Kind:      ActionResolvePO,
			ProductID: res.ProductID,
			Message:   reason,
		})
	}
}

// knownStepTypes merges the steps seen in activity data with the steps the
// data layer knows about, so a planned-but-unstarted step still surfaces.
func knownStepTypes(agg stage.Aggregation, steps []model.ExternalStepInfo) []string {
	seen := make(map[string]bool)
	var out []string
	for _, stepType := range stage.StepTypes(agg.External) {
		if !seen[stepType] {
			seen[stepType] = true
			out = append(out, stepType)
		}
	}
	for _, s := range steps {
		if !seen[s.StepType] {
			seen[s.StepType] = true
			out = append(out, s.StepType)
		}
	}
	return out
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
