package model

import "time"

// MaterialDemandRow is the required quantity of one product for one
// assembly, as supplied by the planner. When no rows are loaded for an
// assembly, demand is derived from the BOM instead.
type MaterialDemandRow struct {
	AssemblyID  string  `json:"assembly_id"`
	ProductID   string  `json:"product_id"`
	ProductName string  `json:"product_name,omitempty"`
	ProductType string  `json:"product_type,omitempty"`
	Qty         float64 `json:"qty"`
	CostingID   string  `json:"costing_id,omitempty"`
	Source      string  `json:"source,omitempty"`
}

// POLine carries the timing fields of the purchase-order line a
// reservation is claimed against.
type POLine struct {
	ID          string     `json:"id"`
	ETA         *time.Time `json:"eta,omitempty"`
	OrderedQty  float64    `json:"ordered_qty"`
	ExpectedQty float64    `json:"expected_qty"`
	ReceivedQty float64    `json:"received_qty"`
}

// Unreceived returns the expected quantity not yet received, floored at 0.
func (l POLine) Unreceived() float64 {
	if d := l.ExpectedQty - l.ReceivedQty; d > 0 {
		return d
	}
	return 0
}

// SupplyReservation claims a purchase-order line or an inventory batch
// against an assembly's material need. Settled reservations are excluded
// from active coverage.
type SupplyReservation struct {
	ID         string     `json:"id"`
	AssemblyID string     `json:"assembly_id"`
	ProductID  string     `json:"product_id"`
	Qty        float64    `json:"qty"`
	SettledAt  *time.Time `json:"settled_at,omitempty"`
	POLine     *POLine    `json:"po_line,omitempty"`
	BatchID    string     `json:"batch_id,omitempty"`
}

// Settled reports whether the reservation has been settled.
func (r SupplyReservation) Settled() bool { return r.SettledAt != nil }

// POBacked reports whether the reservation is claimed against a PO line.
func (r SupplyReservation) POBacked() bool { return r.POLine != nil }

// StockSnapshot is the point-in-time stock position of one product.
type StockSnapshot struct {
	ProductID   string  `json:"product_id"`
	LocationQty float64 `json:"location_qty"`
	TotalQty    float64 `json:"total_qty"`
}

// BOMLine is one bill-of-materials requirement, used to derive demand when
// no planner rows exist for an assembly.
type BOMLine struct {
	AssemblyID  string  `json:"assembly_id"`
	ProductID   string  `json:"product_id"`
	ProductName string  `json:"product_name,omitempty"`
	ProductType string  `json:"product_type,omitempty"`
	QtyPerUnit  float64 `json:"qty_per_unit"`
	CostingID   string  `json:"costing_id,omitempty"`
}

// Tolerance is an allowed slack before an uncovered material quantity is
// treated as a real shortfall: absolute units plus a percentage of the
// required quantity.
type Tolerance struct {
	Abs float64 `json:"abs" yaml:"abs" mapstructure:"abs"`
	Pct float64 `json:"pct" yaml:"pct" mapstructure:"pct"`
}

// Qty resolves the tolerance to units for a given required quantity.
func (t Tolerance) Qty(required float64) float64 {
	q := t.Abs + t.Pct*required
	if q < 0 {
		return 0
	}
	return q
}

// ToleranceDefaults holds the tolerance fallback chain: assembly override,
// then product-type default, then the global default.
type ToleranceDefaults struct {
	Global        Tolerance            `json:"global"`
	ByProductType map[string]Tolerance `json:"by_product_type,omitempty"`
	ByAssembly    map[string]Tolerance `json:"by_assembly,omitempty"`
}

// Resolve picks the tolerance for one (assembly, product-type) pair:
// assembly override first, then product-type default, then global.
func (d ToleranceDefaults) Resolve(assemblyID, productType string) Tolerance {
	if t, ok := d.ByAssembly[assemblyID]; ok {
		return t
	}
	if t, ok := d.ByProductType[productType]; ok {
		return t
	}
	return d.Global
}

// CoverageStatus classifies one material's coverage position.
type CoverageStatus string

const (
	CoverageOK                CoverageStatus = "ok"
	CoveragePOHold            CoverageStatus = "po_hold"
	CoveragePotentialUndercut CoverageStatus = "potential_undercut"
	CoverageDueSoon           CoverageStatus = "due_soon"
)
