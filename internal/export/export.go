// Package export writes a filtered view of a results table back out as CSV
// or as an Excel workbook.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"

	"deview/domain/results"

	"github.com/xuri/excelize/v2"
)

// SheetName is the worksheet written by WriteXLSX.
const SheetName = "results"

// Header returns the exported column names: the core columns in canonical
// naming followed by the table's auxiliary headers in file order.
func Header(table *results.Table) []string {
	header := make([]string, 0, len(results.CoreColumns)+len(table.ExtraHeaders()))
	for _, c := range results.CoreColumns {
		header = append(header, string(c))
	}
	return append(header, table.ExtraHeaders()...)
}

func record(row results.Row, extras []string) []string {
	rec := []string{
		row.GeneID,
		formatFloat(row.LogFC),
		formatFloat(row.PValue),
		formatFloat(row.AdjPValue),
	}
	for _, h := range extras {
		rec = append(rec, row.Extra[h])
	}
	return rec
}

// formatFloat keeps full precision and writes NaN the way R does.
func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return "NA"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func rows(table *results.Table, view *results.View) []results.Row {
	if view == nil {
		return table.Rows
	}
	return view.Rows(table)
}

// WriteCSV writes the rows of view (all rows when nil) as comma separated
// values with a header line.
func WriteCSV(w io.Writer, table *results.Table, view *results.View) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header(table)); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	extras := table.ExtraHeaders()
	for _, row := range rows(table, view) {
		if err := cw.Write(record(row, extras)); err != nil {
			return fmt.Errorf("failed to write row %s: %w", row.GeneID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes the same records as WriteCSV into a single-sheet
// workbook. Numeric core cells are stored as numbers, NaN as empty cells.
func WriteXLSX(w io.Writer, table *results.Table, view *results.View) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	header := Header(table)
	cells := make([]interface{}, len(header))
	for i, h := range header {
		cells[i] = h
	}
	if err := f.SetSheetRow(SheetName, "A1", &cells); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	extras := table.ExtraHeaders()
	for i, row := range rows(table, view) {
		values := make([]interface{}, 0, len(header))
		values = append(values, row.GeneID)
		for _, v := range []float64{row.LogFC, row.PValue, row.AdjPValue} {
			if math.IsNaN(v) {
				values = append(values, nil)
			} else {
				values = append(values, v)
			}
		}
		for _, h := range extras {
			values = append(values, row.Extra[h])
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
