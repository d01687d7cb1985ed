package coverage

import (
	"github.com/crazynala/axisprod/internal/breakdown"
	"github.com/crazynala/axisprod/internal/model"
)

// DeriveDemand builds demand rows from BOM lines when the planner has
// supplied none: each line's per-unit quantity times the assembly's
// production units (cut quantity once cutting has started, else the
// effective ordered quantity).
func DeriveDemand(assemblyID string, bom []model.BOMLine, units float64) []model.MaterialDemandRow {
	units = breakdown.Coerce(units)
	if units == 0 || len(bom) == 0 {
		return nil
	}

	rows := make([]model.MaterialDemandRow, 0, len(bom))
	for _, line := range bom {
		qtyPer := breakdown.Coerce(line.QtyPerUnit)
		if qtyPer == 0 {
			continue
		}
		rows = append(rows, model.MaterialDemandRow{
			AssemblyID:  assemblyID,
			ProductID:   line.ProductID,
			ProductName: line.ProductName,
			ProductType: line.ProductType,
			Qty:         qtyPer * units,
			CostingID:   line.CostingID,
			Source:      "bom",
		})
	}
	return rows
}
