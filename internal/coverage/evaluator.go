// Package coverage implements the material-coverage and procurement-risk
// evaluator: per assembly, it compares required raw-material quantities
// against on-hand stock and outstanding supply reservations, applies
// tolerance rules, and classifies each material's coverage status.
package coverage

import (
	"fmt"
	"sort"
	"time"

	"github.com/crazynala/axisprod/internal/breakdown"
	"github.com/crazynala/axisprod/internal/model"
)

// Item is the coverage position of one (assembly, product) pair.
// Ephemeral: recomputed on every evaluation call.
type Item struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name,omitempty"`
	ProductType string `json:"product_type,omitempty"`

	Required        float64 `json:"required"`
	ReservedToPO    float64 `json:"reserved_to_po"`
	ReservedToBatch float64 `json:"reserved_to_batch"`
	OnHand          float64 `json:"on_hand"`
	TotalStock      float64 `json:"total_stock"`

	CoveredByOnHand         float64 `json:"covered_by_on_hand"`
	RemainingAfterOnHand    float64 `json:"remaining_after_on_hand"`
	CoveredByReservations   float64 `json:"covered_by_reservations"`
	Uncovered               float64 `json:"uncovered"`
	ToleranceQty            float64 `json:"tolerance_qty"`
	UncoveredAfterTolerance float64 `json:"uncovered_after_tolerance"`

	Status             model.CoverageStatus `json:"status"`
	StatusReason       string               `json:"status_reason,omitempty"`
	DueSoon            bool                 `json:"due_soon"`
	EarliestBlockedETA *time.Time           `json:"earliest_blocked_eta,omitempty"`
}

// HoldReason explains one material hold or undercut on an assembly.
type HoldReason struct {
	ProductID               string               `json:"product_id"`
	Status                  model.CoverageStatus `json:"status"`
	Uncovered               float64              `json:"uncovered"`
	UncoveredAfterTolerance float64              `json:"uncovered_after_tolerance"`
	ToleranceQty            float64              `json:"tolerance_qty"`
	EarliestBlockedETA      *time.Time           `json:"earliest_blocked_eta,omitempty"`
	Message                 string               `json:"message"`
}

// AssemblyCoverage is the evaluated material position of one assembly.
type AssemblyCoverage struct {
	AssemblyID  string       `json:"assembly_id"`
	Held        bool         `json:"held"`
	Items       []Item       `json:"items"`
	HoldReasons []HoldReason `json:"hold_reasons,omitempty"`
}

// Config tunes the evaluator. DueSoonDays is the window ahead of the
// needed date within which an unblocked reservation counts as due soon.
type Config struct {
	Defaults    model.ToleranceDefaults
	DueSoonDays int
}

// DefaultDueSoonDays is the standard due-soon window.
const DefaultDueSoonDays = 7

// Evaluator classifies material coverage for batches of assemblies. Pure
// over its inputs; safe to share across goroutines.
type Evaluator struct {
	cfg Config
}

// New creates an Evaluator. A zero DueSoonDays falls back to the default.
func New(cfg Config) *Evaluator {
	if cfg.DueSoonDays <= 0 {
		cfg.DueSoonDays = DefaultDueSoonDays
	}
	return &Evaluator{cfg: cfg}
}

// AssemblyInput bundles one assembly's demand-side inputs. Units feeds the
// BOM fallback when no demand rows are loaded: production units to
// multiply each BOM line by.
type AssemblyInput struct {
	Assembly     model.Assembly
	Demand       []model.MaterialDemandRow
	Reservations []model.SupplyReservation
	BOM          []model.BOMLine
	Units        float64
}

// Evaluate computes coverage for each assembly independently. One
// assembly's bad data never blocks the others; malformed quantities are
// coerced, not rejected.
func (e *Evaluator) Evaluate(inputs []AssemblyInput, stock map[string]model.StockSnapshot, today time.Time) map[string]AssemblyCoverage {
	out := make(map[string]AssemblyCoverage, len(inputs))
	for _, in := range inputs {
		out[in.Assembly.ID] = e.EvaluateOne(in, stock, today)
	}
	return out
}

// EvaluateOne computes coverage for a single assembly.
func (e *Evaluator) EvaluateOne(in AssemblyInput, stock map[string]model.StockSnapshot, today time.Time) AssemblyCoverage {
	cov := AssemblyCoverage{AssemblyID: in.Assembly.ID}

	demand := in.Demand
	if len(demand) == 0 {
		demand = DeriveDemand(in.Assembly.ID, in.BOM, in.Units)
	}

	needBy := in.Assembly.NeededBy()
	resByProduct := groupReservations(in.Reservations)

	for _, row := range mergeDemand(demand) {
		item := e.evaluateItem(row, resByProduct[row.ProductID], stock[row.ProductID], needBy, today)
		cov.Items = append(cov.Items, item)

		switch item.Status {
		case model.CoveragePOHold:
			cov.Held = true
			cov.HoldReasons = append(cov.HoldReasons, holdReason(item))
		case model.CoveragePotentialUndercut:
			cov.HoldReasons = append(cov.HoldReasons, holdReason(item))
		}
	}

	return cov
}

// evaluateItem classifies one material. First matching rule wins.
func (e *Evaluator) evaluateItem(row model.MaterialDemandRow, reservations []model.SupplyReservation, stk model.StockSnapshot, needBy *time.Time, today time.Time) Item {
	required := breakdown.Coerce(row.Qty)
	onHand := breakdown.Coerce(stk.LocationQty)

	item := Item{
		ProductID:   row.ProductID,
		ProductName: row.ProductName,
		ProductType: row.ProductType,
		Required:    required,
		OnHand:      onHand,
		TotalStock:  breakdown.Coerce(stk.TotalQty),
	}

	var anyUnblocked, anyDueSoon bool
	active := 0
	for _, res := range reservations {
		if res.Settled() {
			continue
		}
		active++
		qty := breakdown.Coerce(res.Qty)
		if res.POBacked() {
			item.ReservedToPO += qty
		} else {
			item.ReservedToBatch += qty
		}

		if blocked, eta := e.blockedReservation(res, needBy, today); blocked {
			if eta != nil && (item.EarliestBlockedETA == nil || eta.Before(*item.EarliestBlockedETA)) {
				item.EarliestBlockedETA = eta
			}
			continue
		}
		anyUnblocked = true
		if e.dueSoonReservation(res, needBy, today) {
			anyDueSoon = true
		}
	}

	item.CoveredByOnHand = min64(required, onHand)
	item.RemainingAfterOnHand = max64(required-item.CoveredByOnHand, 0)
	totalReserved := item.ReservedToPO + item.ReservedToBatch
	item.CoveredByReservations = min64(item.RemainingAfterOnHand, totalReserved)
	item.Uncovered = max64(item.RemainingAfterOnHand-totalReserved, 0)

	tol := e.cfg.Defaults.Resolve(row.AssemblyID, row.ProductType)
	item.ToleranceQty = tol.Qty(required)
	item.UncoveredAfterTolerance = max64(item.Uncovered-item.ToleranceQty, 0)

	switch {
	case required <= 0:
		item.Status = model.CoverageOK
	case item.Uncovered > 0:
		if item.UncoveredAfterTolerance > 0 {
			item.Status = model.CoveragePOHold
			item.StatusReason = "uncovered beyond tolerance"
		} else {
			item.Status = model.CoveragePotentialUndercut
			item.StatusReason = "uncovered within tolerance"
		}
	case item.RemainingAfterOnHand > 0 && active > 0 && !anyUnblocked:
		item.Status = model.CoveragePOHold
		item.StatusReason = "timing blocks all reservations"
	case anyDueSoon:
		item.Status = model.CoverageDueSoon
		item.DueSoon = true
	default:
		item.Status = model.CoverageOK
	}

	return item
}

// blockedReservation reports whether a PO-backed reservation cannot be
// counted on: no ETA, ETA already past, or ETA after the assembly's
// needed date, while the line still has unreceived expected quantity.
// Returns the blocking ETA when one exists.
func (e *Evaluator) blockedReservation(res model.SupplyReservation, needBy *time.Time, today time.Time) (bool, *time.Time) {
	if !res.POBacked() || res.Settled() {
		return false, nil
	}
	line := res.POLine
	if line.Unreceived() <= 0 {
		return false, nil
	}
	if line.ETA == nil {
		return true, nil
	}
	if line.ETA.Before(startOfDay(today)) {
		return true, line.ETA
	}
	if needBy != nil && line.ETA.After(*needBy) {
		return true, line.ETA
	}
	return false, nil
}

// dueSoonReservation reports whether an unblocked PO-backed reservation's
// ETA falls within the due-soon window of the needed date (or of today
// when no needed date is set).
func (e *Evaluator) dueSoonReservation(res model.SupplyReservation, needBy *time.Time, today time.Time) bool {
	if !res.POBacked() || res.POLine.ETA == nil {
		return false
	}
	anchor := startOfDay(today)
	if needBy != nil {
		anchor = *needBy
	}
	window := time.Duration(e.cfg.DueSoonDays) * 24 * time.Hour
	diff := anchor.Sub(*res.POLine.ETA)
	if diff < 0 {
		diff = -diff
	}
	return diff <= window
}

func holdReason(item Item) HoldReason {
	msg := fmt.Sprintf("material %s: %s", item.ProductID, item.StatusReason)
	return HoldReason{
		ProductID:               item.ProductID,
		Status:                  item.Status,
		Uncovered:               item.Uncovered,
		UncoveredAfterTolerance: item.UncoveredAfterTolerance,
		ToleranceQty:            item.ToleranceQty,
		EarliestBlockedETA:      item.EarliestBlockedETA,
		Message:                 msg,
	}
}

// mergeDemand sums duplicate product rows so each product is evaluated
// once, in stable product order.
func mergeDemand(rows []model.MaterialDemandRow) []model.MaterialDemandRow {
	byProduct := make(map[string]model.MaterialDemandRow)
	for _, row := range rows {
		merged, ok := byProduct[row.ProductID]
		if !ok {
			merged = row
			merged.Qty = 0
		}
		merged.Qty += breakdown.Coerce(row.Qty)
		byProduct[row.ProductID] = merged
	}

	out := make([]model.MaterialDemandRow, 0, len(byProduct))
	for _, row := range byProduct {
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out
}

func groupReservations(reservations []model.SupplyReservation) map[string][]model.SupplyReservation {
	out := make(map[string][]model.SupplyReservation)
	for _, res := range reservations {
		out[res.ProductID] = append(out[res.ProductID], res)
	}
	return out
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func min64(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func max64(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
