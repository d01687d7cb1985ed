// Package ingest loads planner-maintained spreadsheets into the store.
package ingest

import (
	"context"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/crazynala/axisprod/internal/breakdown"
	"github.com/crazynala/axisprod/internal/db"
	"github.com/crazynala/axisprod/internal/model"
)

// XLSXOptions configures the demand sheet parser.
type XLSXOptions struct {
	SheetIndex int    // default 0
	SheetName  string // if set, overrides SheetIndex
}

// demand sheet header names, matched case-insensitively.
var demandColumns = map[string]string{
	"assembly":     "assembly_id",
	"assembly_id":  "assembly_id",
	"product":      "product_id",
	"product_id":   "product_id",
	"product_name": "product_name",
	"name":         "product_name",
	"product_type": "product_type",
	"type":         "product_type",
	"qty":          "qty",
	"quantity":     "qty",
	"costing":      "costing_id",
	"costing_id":   "costing_id",
}

// ReadDemandXLSX parses a planner demand worksheet into demand rows. The
// first row must be a header naming at least the assembly, product, and
// qty columns. Rows missing an assembly or product are skipped;
// unparseable quantities are coerced to 0.
func ReadDemandXLSX(path string, opts XLSXOptions) ([]model.MaterialDemandRow, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "ingest: open file")
	}

	sheet, err := getSheet(f, opts)
	if err != nil {
		return nil, err
	}
	if len(sheet.Rows) == 0 {
		return nil, eris.New("ingest: empty sheet")
	}

	fields, err := mapHeader(rowToStrings(sheet.Rows[0]))
	if err != nil {
		return nil, err
	}

	var rows []model.MaterialDemandRow
	for _, raw := range sheet.Rows[1:] {
		cells := rowToStrings(raw)
		get := func(field string) string {
			idx, ok := fields[field]
			if !ok || idx >= len(cells) {
				return ""
			}
			return strings.TrimSpace(cells[idx])
		}

		row := model.MaterialDemandRow{
			AssemblyID:  get("assembly_id"),
			ProductID:   get("product_id"),
			ProductName: get("product_name"),
			ProductType: get("product_type"),
			CostingID:   get("costing_id"),
			Source:      "planner",
		}
		if row.AssemblyID == "" || row.ProductID == "" {
			continue
		}

		qty, _ := strconv.ParseFloat(get("qty"), 64)
		row.Qty = breakdown.Coerce(qty)
		rows = append(rows, row)
	}
	return rows, nil
}

// UpsertDemand bulk-upserts demand rows into the store, keyed by
// (assembly, product). Returns the number of rows written.
func UpsertDemand(ctx context.Context, pool db.Pool, rows []model.MaterialDemandRow) (int64, error) {
	data := make([][]any, 0, len(rows))
	for _, row := range rows {
		data = append(data, []any{
			row.AssemblyID, row.ProductID, row.ProductName, row.ProductType, row.Qty, row.CostingID, row.Source,
		})
	}

	n, err := db.BulkUpsert(ctx, pool, db.UpsertConfig{
		Table:        "material_demand",
		Columns:      []string{"assembly_id", "product_id", "product_name", "product_type", "qty", "costing_id", "source"},
		ConflictKeys: []string{"assembly_id", "product_id"},
	}, data)
	return n, eris.Wrap(err, "ingest: upsert demand")
}

// mapHeader resolves column positions from the header row.
func mapHeader(header []string) (map[string]int, error) {
	fields := make(map[string]int)
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(name))
		if field, ok := demandColumns[key]; ok {
			if _, dup := fields[field]; !dup {
				fields[field] = i
			}
		}
	}
	for _, required := range []string{"assembly_id", "product_id", "qty"} {
		if _, ok := fields[required]; !ok {
			return nil, eris.Errorf("ingest: header missing %s column", required)
		}
	}
	return fields, nil
}

func getSheet(f *xlsx.File, opts XLSXOptions) (*xlsx.Sheet, error) {
	if opts.SheetName != "" {
		sheet, ok := f.Sheet[opts.SheetName]
		if !ok {
			return nil, eris.Errorf("ingest: sheet %q not found", opts.SheetName)
		}
		return sheet, nil
	}

	if opts.SheetIndex >= len(f.Sheets) {
		return nil, eris.Errorf("ingest: sheet index %d out of range (file has %d sheets)", opts.SheetIndex, len(f.Sheets))
	}

	return f.Sheets[opts.SheetIndex], nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}
