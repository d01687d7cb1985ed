package model

import (
	"time"

	"github.com/crazynala/axisprod/internal/breakdown"
)

// Assembly is one production unit (work order), broken into per-variant
// quantities.
type Assembly struct {
	ID           string              `json:"id"`
	JobID        string              `json:"job_id,omitempty"`
	Name         string              `json:"name,omitempty"`
	Ordered      breakdown.Breakdown `json:"ordered"`
	TargetDate   *time.Time          `json:"target_date,omitempty"`
	DropDeadDate *time.Time          `json:"drop_dead_date,omitempty"`
}

// NeededBy returns the date material must be available: the target date
// when set, else the drop-dead date, else nil.
func (a Assembly) NeededBy() *time.Time {
	if a.TargetDate != nil {
		return a.TargetDate
	}
	return a.DropDeadDate
}

// PackSnapshot is the merged view of an assembly's box lines: summed
// breakdown plus total. Used as the pack stage's fallback.
type PackSnapshot struct {
	Breakdown breakdown.Breakdown `json:"breakdown"`
	Total     float64             `json:"total"`
}

// AssemblySnapshot bundles every input the engine needs for one assembly,
// loaded atomically by the data layer for one batch.
type AssemblySnapshot struct {
	Assembly           Assembly
	Activities         []Activity
	Pack               PackSnapshot
	FallbackBreakdowns map[Stage]breakdown.Breakdown
	FallbackTotals     map[Stage]float64
	Steps              []ExternalStepInfo
	Demand             []MaterialDemandRow
	Reservations       []SupplyReservation
	BOM                []BOMLine
}
