// Package exporter writes an analysis table to CSV or XLSX files.
package exporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"PriceScope/internal/model"
)

const dateLayout = "2006-01-02"

// Supported formats.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// Result describes a written file.
type Result struct {
	Path      string
	Overwrote bool
}

// FileName builds the export file name, e.g. AAPL_1mo_stock_data.csv.
func FileName(symbol, label, format string) string {
	return fmt.Sprintf("%s_%s_stock_data.%s", strings.ToUpper(symbol), label, format)
}

// Header returns the column names of the exported table.
func Header() []string {
	return append([]string{"date", "open", "high", "low", "close", "volume"}, model.DerivedColumns()...)
}

// Export writes the analysis into dir using the given format. An existing
// file is replaced and reported through Result.Overwrote. The table is
// written to a temporary file in dir and renamed into place, so readers and
// concurrent exports of the same span never see a partial file.
func Export(a *model.Analysis, dir, format string) (Result, error) {
	if a == nil || a.Series == nil {
		return Result{}, fmt.Errorf("export: nothing to export")
	}
	var write func(io.Writer, *model.Analysis) error
	switch format {
	case FormatCSV:
		write = WriteCSV
	case FormatXLSX:
		write = WriteXLSX
	default:
		return Result{}, fmt.Errorf("export: unsupported format %q", format)
	}
	name := FileName(a.Series.Symbol, a.Label, format)
	if strings.ContainsAny(name, `/\`) || name != filepath.Base(name) {
		return Result{}, fmt.Errorf("export: unsafe file name %q", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Result{}, fmt.Errorf("create export dir: %w", err)
	}

	path := filepath.Join(dir, name)
	_, statErr := os.Stat(path)
	if err := writeFileAtomic(path, func(w io.Writer) error { return write(w, a) }); err != nil {
		return Result{}, err
	}
	return Result{Path: path, Overwrote: statErr == nil}, nil
}

func writeFileAtomic(path string, write func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod export: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

// WriteCSV writes the table with one row per bar. Undefined values are empty cells.
func WriteCSV(w io.Writer, a *model.Analysis) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header()); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	cols := derived(a)
	for i, b := range a.Series.Bars {
		row := []string{
			b.Date.Format(dateLayout),
			formatFloat(b.Open), formatFloat(b.High), formatFloat(b.Low),
			formatFloat(b.Close), formatFloat(b.Volume),
		}
		for _, col := range cols {
			row = append(row, formatFloat(at(col, i)))
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func derived(a *model.Analysis) [][]float64 {
	names := model.DerivedColumns()
	cols := make([][]float64, len(names))
	for i, name := range names {
		cols[i] = a.Column(name)
	}
	return cols
}

// at returns NaN for columns that were not computed.
func at(col []float64, i int) float64 {
	if i >= len(col) {
		return math.NaN()
	}
	return col[i]
}

func formatFloat(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
