package model

import (
	"time"

	"github.com/crazynala/axisprod/internal/breakdown"
)

// Stage identifies a step in the production pipeline, or one of the
// non-production markers (cancel, other).
type Stage string

const (
	StageCut    Stage = "cut"
	StageSew    Stage = "sew"
	StageFinish Stage = "finish"
	StagePack   Stage = "pack"
	StageQC     Stage = "qc"
	StageCancel Stage = "cancel"
	StageOther  Stage = "other"
)

// ProductionStages lists the stages that carry quantity statistics, in
// pipeline order.
var ProductionStages = []Stage{StageCut, StageSew, StageFinish, StagePack, StageQC}

// ActivityKind separates good output from defect accounting.
type ActivityKind string

const (
	KindNormal ActivityKind = "normal"
	KindDefect ActivityKind = "defect"
)

// ActivityAction qualifies how an activity was recorded.
type ActivityAction string

const (
	ActionRecorded       ActivityAction = "recorded"
	ActionSentOut        ActivityAction = "sent_out"
	ActionReceivedIn     ActivityAction = "received_in"
	ActionDefectLogged   ActivityAction = "defect_logged"
	ActionLossReconciled ActivityAction = "loss_reconciled"
	ActionAdjustment     ActivityAction = "adjustment"
	ActionNone           ActivityAction = ""
)

// Activity is one immutable production event against an assembly. The
// engine only reads activities; it never mutates them.
type Activity struct {
	ID               string              `json:"id"`
	AssemblyID       string              `json:"assembly_id"`
	Stage            Stage               `json:"stage"`
	Kind             ActivityKind        `json:"kind"`
	Action           ActivityAction      `json:"action,omitempty"`
	Quantity         float64             `json:"quantity"`
	Breakdown        breakdown.Breakdown `json:"breakdown,omitempty"`
	ExternalStepType string              `json:"external_step_type,omitempty"`
	Vendor           string              `json:"vendor,omitempty"`
	Date             time.Time           `json:"date"`
}

// StepState describes the lifecycle of an external vendor step, derived
// from its sent/received aggregate.
type StepState string

const (
	StepNotStarted StepState = "not_started"
	StepInProgress StepState = "in_progress"
	StepDone       StepState = "done"
)

// ExternalStepInfo carries vendor and timing metadata for one external
// step, supplied by the data layer alongside the activity list.
type ExternalStepInfo struct {
	StepType string     `json:"step_type"`
	Vendor   string     `json:"vendor,omitempty"`
	ETA      *time.Time `json:"eta,omitempty"`
}
