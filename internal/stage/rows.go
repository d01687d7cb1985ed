package stage

import (
	"time"

	"github.com/crazynala/axisprod/internal/breakdown"
	"github.com/crazynala/axisprod/internal/model"
)

// Row is one presentation row of the stage table. External-step rows carry
// the sent/received detail and vendor metadata; the sew row carries its
// gate source.
type Row struct {
	Key   string              `json:"key"`
	Label string              `json:"label"`
	Arr   breakdown.Breakdown `json:"arr"`
	Total float64             `json:"total"`

	GateSource GateSource `json:"gate_source,omitempty"`

	// External-step detail.
	StepType string              `json:"step_type,omitempty"`
	Vendor   string              `json:"vendor,omitempty"`
	ETA      *time.Time          `json:"eta,omitempty"`
	State    model.StepState     `json:"state,omitempty"`
	Sent     breakdown.Breakdown `json:"sent,omitempty"`
	Received breakdown.Breakdown `json:"received,omitempty"`
	Loss     breakdown.Breakdown `json:"loss,omitempty"`
}

// BuildRows projects an aggregation into the ordered stage-row list:
// order, cut, sew, one row per external step, finish, pack, qc. Pure
// projection; no new state is introduced.
func BuildRows(agg Aggregation, steps []model.ExternalStepInfo) []Row {
	rows := make([]Row, 0, 6+len(agg.External))

	rows = append(rows, Row{
		Key:   "order",
		Label: "Ordered",
		Arr:   agg.EffectiveOrdered,
		Total: agg.EffectiveTotal,
	})
	rows = append(rows, Row{
		Key:   "cut",
		Label: "Cut",
		Arr:   agg.DisplayCut,
		Total: agg.CutTotal,
	})

	// Sew uses the gate, never the cut fallback: an assembly with nothing
	// sewn must not display invented sew progress.
	gate := ComputeSewGate(agg.External,
		agg.Stats[model.StageSew], agg.Stats[model.StageFinish], agg.Stats[model.StageCut], false)
	rows = append(rows, Row{
		Key:        "sew",
		Label:      "Sew",
		Arr:        gate.Arr,
		Total:      gate.Total,
		GateSource: gate.Source,
	})

	info := stepInfoByType(steps)
	for _, stepType := range StepTypes(agg.External) {
		ext := agg.External[stepType]
		row := Row{
			Key:      "external:" + stepType,
			Label:    stepType,
			Arr:      ext.Net,
			Total:    ext.NetTotal,
			StepType: stepType,
			State:    ext.State(),
			Sent:     ext.Sent,
			Received: ext.Received,
			Loss:     ext.Loss,
		}
		if meta, ok := info[stepType]; ok {
			row.Vendor = meta.Vendor
			row.ETA = meta.ETA
		}
		rows = append(rows, row)
	}

	rows = append(rows, Row{
		Key:   "finish",
		Label: "Finish",
		Arr:   agg.DisplayFinish,
		Total: agg.FinishTotal,
	})
	rows = append(rows, Row{
		Key:   "pack",
		Label: "Pack",
		Arr:   agg.DisplayPack,
		Total: agg.PackTotal,
	})
	rows = append(rows, Row{
		Key:   "qc",
		Label: "QC",
		Arr:   agg.DisplayQC,
		Total: agg.QCTotal,
	})

	return rows
}

// FinishInputCap computes the ceiling used by upstream UIs to cap manual
// finish entry for this assembly.
func FinishInputCap(agg Aggregation) (breakdown.Breakdown, float64) {
	sew := agg.Stats[model.StageSew]
	cut := agg.Stats[model.StageCut]
	finish := agg.Stats[model.StageFinish]

	var externalGate breakdown.Breakdown
	gate := ComputeSewGate(agg.External, sew, finish, cut, false)
	if gate.Source == GateExternalReceived || gate.Source == GateExternalSent {
		externalGate = gate.Arr
	}

	// Only reconciled losses return capacity to the pool; logged defects
	// still occupy their units until someone reconciles them.
	capArr := ComputeFinishCap(FinishCapInputs{
		ExternalGate:         externalGate,
		SewRecorded:          sew.Processed,
		HasSewRecords:        sew.HasActivity,
		CutRecorded:          cut.Processed,
		FinishRecorded:       finish.Processed,
		FinishLossReconciled: finish.DefectReconciled,
	})
	return capArr, breakdown.Sum(capArr)
}

func stepInfoByType(steps []model.ExternalStepInfo) map[string]model.ExternalStepInfo {
	out := make(map[string]model.ExternalStepInfo, len(steps))
	for _, s := range steps {
		out[s.StepType] = s
	}
	return out
}
