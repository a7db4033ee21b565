package exporter

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/xuri/excelize/v2"

	"PriceScope/internal/model"
)

const (
	dataSheet    = "Data"
	summarySheet = "Summary"
)

// WriteXLSX writes a workbook with a Data sheet of the table and a Summary
// sheet of the scalar results.
func WriteXLSX(w io.Writer, a *model.Analysis) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", dataSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	header := make([]interface{}, 0, len(Header()))
	for _, h := range Header() {
		header = append(header, h)
	}
	if err := f.SetSheetRow(dataSheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	cols := derived(a)
	for i, b := range a.Series.Bars {
		row := []interface{}{b.Date.Format(dateLayout), cell(b.Open), cell(b.High), cell(b.Low), cell(b.Close), cell(b.Volume)}
		for _, col := range cols {
			row = append(row, cell(at(col, i)))
		}
		addr, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(dataSheet, addr, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}

	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("add summary sheet: %w", err)
	}
	summary := [][]interface{}{
		{"symbol", a.Series.Symbol},
		{"span", a.Label},
		{"start", a.Summary.Start.Format(dateLayout)},
		{"end", a.Summary.End.Format(dateLayout)},
		{"average_price", cell(a.Summary.AveragePrice)},
		{"std_deviation", cell(a.StdDeviation)},
		{"fluctuation_pct", cell(a.FluctuationPct)},
		{"fluctuation_alert", a.Alert != nil},
		{"skipped_columns", strings.Join(a.Skipped, ",")},
	}
	for i, row := range summary {
		addr, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(summarySheet, addr, &row); err != nil {
			return fmt.Errorf("write summary: %w", err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

// cell leaves undefined values blank.
func cell(v float64) interface{} {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}
