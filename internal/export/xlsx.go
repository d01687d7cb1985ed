// Package export renders evaluation results into spreadsheet reports for
// planners who live in Excel.
package export

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/crazynala/axisprod/internal/breakdown"
	"github.com/crazynala/axisprod/internal/coverage"
	"github.com/crazynala/axisprod/internal/model"
	"github.com/crazynala/axisprod/internal/risk"
	"github.com/crazynala/axisprod/internal/stage"
)

// AssemblySection bundles one assembly's evaluated outputs for the report.
type AssemblySection struct {
	Assembly model.Assembly
	Rows     []stage.Row
	Coverage coverage.AssemblyCoverage
	Signals  risk.Signals
}

// Report is the full input of one workbook.
type Report struct {
	GeneratedAt time.Time
	Sections    []AssemblySection
}

// WriteReport writes the evaluation workbook: a Stages sheet with one row
// per stage table row, a Coverage sheet with one row per material, and a
// Holds sheet listing every hold reason and next action.
func WriteReport(path string, report Report) error {
	f := xlsx.NewFile()

	if err := writeStagesSheet(f, report); err != nil {
		return err
	}
	if err := writeCoverageSheet(f, report); err != nil {
		return err
	}
	if err := writeHoldsSheet(f, report); err != nil {
		return err
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "export: save workbook %s", path)
	}
	return nil
}

func writeStagesSheet(f *xlsx.File, report Report) error {
	sheet, err := f.AddSheet("Stages")
	if err != nil {
		return eris.Wrap(err, "export: add stages sheet")
	}

	addHeader(sheet, []string{"Assembly", "Job", "Row", "Label", "Total", "Breakdown", "Gate", "Vendor", "ETA", "State"})
	for _, section := range report.Sections {
		for _, row := range section.Rows {
			r := sheet.AddRow()
			addString(r, section.Assembly.ID)
			addString(r, section.Assembly.JobID)
			addString(r, row.Key)
			addString(r, row.Label)
			addFloat(r, row.Total)
			addString(r, formatBreakdown(row.Arr))
			addString(r, string(row.GateSource))
			addString(r, row.Vendor)
			addString(r, formatDate(row.ETA))
			addString(r, string(row.State))
		}
	}
	return nil
}

func writeCoverageSheet(f *xlsx.File, report Report) error {
	sheet, err := f.AddSheet("Coverage")
	if err != nil {
		return eris.Wrap(err, "export: add coverage sheet")
	}

	addHeader(sheet, []string{"Assembly", "Product", "Type", "Status", "Required", "On Hand", "Reserved PO", "Reserved Batch", "Uncovered", "Tolerance", "After Tolerance", "Blocked ETA"})
	for _, section := range report.Sections {
		for _, item := range section.Coverage.Items {
			r := sheet.AddRow()
			addString(r, section.Assembly.ID)
			addString(r, item.ProductID)
			addString(r, item.ProductType)
			addString(r, string(item.Status))
			addFloat(r, item.Required)
			addFloat(r, item.OnHand)
			addFloat(r, item.ReservedToPO)
			addFloat(r, item.ReservedToBatch)
			addFloat(r, item.Uncovered)
			addFloat(r, item.ToleranceQty)
			addFloat(r, item.UncoveredAfterTolerance)
			addString(r, formatDate(item.EarliestBlockedETA))
		}
	}
	return nil
}

func writeHoldsSheet(f *xlsx.File, report Report) error {
	sheet, err := f.AddSheet("Holds")
	if err != nil {
		return eris.Wrap(err, "export: add holds sheet")
	}

	addHeader(sheet, []string{"Assembly", "Kind", "Product", "Step", "Message", "ETA"})
	for _, section := range report.Sections {
		for _, reason := range section.Coverage.HoldReasons {
			r := sheet.AddRow()
			addString(r, section.Assembly.ID)
			addString(r, string(reason.Status))
			addString(r, reason.ProductID)
			addString(r, "")
			addString(r, reason.Message)
			addString(r, formatDate(reason.EarliestBlockedETA))
		}
		for _, action := range section.Signals.NextActions {
			r := sheet.AddRow()
			addString(r, section.Assembly.ID)
			addString(r, action.Kind)
			addString(r, action.ProductID)
			addString(r, action.StepType)
			addString(r, action.Message)
			addString(r, "")
		}
	}
	return nil
}

func addHeader(sheet *xlsx.Sheet, columns []string) {
	row := sheet.AddRow()
	for _, col := range columns {
		addString(row, col)
	}
}

func addString(row *xlsx.Row, value string) {
	row.AddCell().SetString(value)
}

func addFloat(row *xlsx.Row, value float64) {
	row.AddCell().SetFloat(value)
}

// formatBreakdown renders a per-variant array as "5/3/2" for compact
// display in one cell.
func formatBreakdown(bd breakdown.Breakdown) string {
	if len(bd) == 0 {
		return ""
	}
	parts := make([]string, len(bd))
	for i, v := range bd {
		parts[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return strings.Join(parts, "/")
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}

// SheetSummary returns a one-line description of the workbook contents
// for logging after a successful export.
func SheetSummary(report Report) string {
	var stages, items, holds int
	for _, section := range report.Sections {
		stages += len(section.Rows)
		items += len(section.Coverage.Items)
		holds += len(section.Coverage.HoldReasons) + len(section.Signals.NextActions)
	}
	return fmt.Sprintf("%d assemblies, %d stage rows, %d materials, %d holds", len(report.Sections), stages, items, holds)
}
