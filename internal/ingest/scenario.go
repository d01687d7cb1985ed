package ingest

import (
	"os"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/crazynala/axisprod/internal/breakdown"
	"github.com/crazynala/axisprod/internal/model"
)

// Scenario is a file-defined evaluation input set: assemblies with their
// activity history, stock positions, and tolerance defaults. Used to run
// the engine against a flat file instead of a database.
type Scenario struct {
	Assemblies []ScenarioAssembly `yaml:"assemblies"`
	Stock      []ScenarioStock    `yaml:"stock"`
	Tolerance  model.Tolerance    `yaml:"tolerance"`
}

type ScenarioAssembly struct {
	ID           string                `yaml:"id"`
	JobID        string                `yaml:"job_id"`
	Name         string                `yaml:"name"`
	Ordered      []float64             `yaml:"ordered"`
	TargetDate   *time.Time            `yaml:"target_date"`
	DropDeadDate *time.Time            `yaml:"drop_dead_date"`
	Activities   []ScenarioActivity    `yaml:"activities"`
	Pack         ScenarioPack          `yaml:"pack"`
	Steps        []ScenarioStep        `yaml:"steps"`
	Demand       []ScenarioDemand      `yaml:"demand"`
	Reservations []ScenarioReservation `yaml:"reservations"`
	BOM          []ScenarioBOMLine     `yaml:"bom"`
}

type ScenarioActivity struct {
	ID       string     `yaml:"id"`
	Stage    string     `yaml:"stage"`
	Kind     string     `yaml:"kind"`
	Action   string     `yaml:"action"`
	Qty      float64    `yaml:"qty"`
	Arr      []float64  `yaml:"arr"`
	StepType string     `yaml:"step_type"`
	Vendor   string     `yaml:"vendor"`
	Date     *time.Time `yaml:"date"`
}

type ScenarioPack struct {
	Arr   []float64 `yaml:"arr"`
	Total float64   `yaml:"total"`
}

type ScenarioStep struct {
	StepType string     `yaml:"step_type"`
	Vendor   string     `yaml:"vendor"`
	ETA      *time.Time `yaml:"eta"`
}

type ScenarioDemand struct {
	ProductID   string  `yaml:"product_id"`
	ProductName string  `yaml:"product_name"`
	ProductType string  `yaml:"product_type"`
	Qty         float64 `yaml:"qty"`
}

type ScenarioReservation struct {
	ID        string          `yaml:"id"`
	ProductID string          `yaml:"product_id"`
	Qty       float64         `yaml:"qty"`
	SettledAt *time.Time      `yaml:"settled_at"`
	BatchID   string          `yaml:"batch_id"`
	POLine    *ScenarioPOLine `yaml:"po_line"`
}

type ScenarioBOMLine struct {
	ProductID   string  `yaml:"product_id"`
	ProductName string  `yaml:"product_name"`
	ProductType string  `yaml:"product_type"`
	Qty         float64 `yaml:"qty_per_unit"`
}

type ScenarioPOLine struct {
	ID          string     `yaml:"id"`
	ETA         *time.Time `yaml:"eta"`
	OrderedQty  float64    `yaml:"ordered_qty"`
	ExpectedQty float64    `yaml:"expected_qty"`
	ReceivedQty float64    `yaml:"received_qty"`
}

type ScenarioStock struct {
	ProductID   string  `yaml:"product_id"`
	LocationQty float64 `yaml:"location_qty"`
	TotalQty    float64 `yaml:"total_qty"`
}

// ReadScenario parses a scenario YAML file.
func ReadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: read scenario %s", path)
	}

	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, eris.Wrapf(err, "ingest: parse scenario %s", path)
	}
	if len(sc.Assemblies) == 0 {
		return nil, eris.Errorf("ingest: scenario %s has no assemblies", path)
	}
	return &sc, nil
}

// Snapshots converts the scenario assemblies into engine snapshots.
func (sc *Scenario) Snapshots() []*model.AssemblySnapshot {
	snaps := make([]*model.AssemblySnapshot, 0, len(sc.Assemblies))
	for _, a := range sc.Assemblies {
		snap := &model.AssemblySnapshot{
			Assembly: model.Assembly{
				ID:           a.ID,
				JobID:        a.JobID,
				Name:         a.Name,
				Ordered:      breakdown.Breakdown(a.Ordered),
				TargetDate:   a.TargetDate,
				DropDeadDate: a.DropDeadDate,
			},
			Pack: model.PackSnapshot{
				Breakdown: breakdown.Breakdown(a.Pack.Arr),
				Total:     a.Pack.Total,
			},
		}

		for _, act := range a.Activities {
			converted := model.Activity{
				ID:               act.ID,
				AssemblyID:       a.ID,
				Stage:            model.Stage(act.Stage),
				Kind:             model.ActivityKind(act.Kind),
				Action:           model.ActivityAction(act.Action),
				Quantity:         act.Qty,
				Breakdown:        breakdown.Breakdown(act.Arr),
				ExternalStepType: act.StepType,
				Vendor:           act.Vendor,
			}
			if converted.Kind == "" {
				converted.Kind = model.KindNormal
			}
			if act.Date != nil {
				converted.Date = *act.Date
			}
			snap.Activities = append(snap.Activities, converted)
		}

		for _, step := range a.Steps {
			snap.Steps = append(snap.Steps, model.ExternalStepInfo{
				StepType: step.StepType,
				Vendor:   step.Vendor,
				ETA:      step.ETA,
			})
		}

		for _, d := range a.Demand {
			snap.Demand = append(snap.Demand, model.MaterialDemandRow{
				AssemblyID:  a.ID,
				ProductID:   d.ProductID,
				ProductName: d.ProductName,
				ProductType: d.ProductType,
				Qty:         d.Qty,
				Source:      "scenario",
			})
		}

		for _, res := range a.Reservations {
			converted := model.SupplyReservation{
				ID:         res.ID,
				AssemblyID: a.ID,
				ProductID:  res.ProductID,
				Qty:        res.Qty,
				SettledAt:  res.SettledAt,
				BatchID:    res.BatchID,
			}
			if res.POLine != nil {
				converted.POLine = &model.POLine{
					ID:          res.POLine.ID,
					ETA:         res.POLine.ETA,
					OrderedQty:  res.POLine.OrderedQty,
					ExpectedQty: res.POLine.ExpectedQty,
					ReceivedQty: res.POLine.ReceivedQty,
				}
			}
			snap.Reservations = append(snap.Reservations, converted)
		}

		for _, line := range a.BOM {
			snap.BOM = append(snap.BOM, model.BOMLine{
				AssemblyID:  a.ID,
				ProductID:   line.ProductID,
				ProductName: line.ProductName,
				ProductType: line.ProductType,
				QtyPerUnit:  line.Qty,
			})
		}

		snaps = append(snaps, snap)
	}
	return snaps
}

// StockMap returns the scenario stock keyed by product.
func (sc *Scenario) StockMap() map[string]model.StockSnapshot {
	out := make(map[string]model.StockSnapshot, len(sc.Stock))
	for _, s := range sc.Stock {
		out[s.ProductID] = model.StockSnapshot{
			ProductID:   s.ProductID,
			LocationQty: s.LocationQty,
			TotalQty:    s.TotalQty,
		}
	}
	return out
}
