package exporter

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/keyaloding/nasa-space-apps/internal/timeseries"
)

// DefaultSheet is the worksheet holding the series.
const DefaultSheet = "Series"

// ExcelWriter renders series as xlsx workbooks.
type ExcelWriter struct {
	sheet string
}

// NewExcelWriter returns a writer using DefaultSheet.
func NewExcelWriter() *ExcelWriter {
	return &ExcelWriter{sheet: DefaultSheet}
}

// WriteSeries saves points as a workbook at path.
func (w *ExcelWriter) WriteSeries(path string, points []timeseries.Point) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	f, err := w.build(points)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

// Encode streams the workbook to out.
func (w *ExcelWriter) Encode(out io.Writer, points []timeseries.Point) error {
	f, err := w.build(points)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteTo(out); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func (w *ExcelWriter) build(points []timeseries.Point) (*excelize.File, error) {
	f := excelize.NewFile()

	// NewFile starts with "Sheet1"; rename it rather than add a second sheet.
	if err := f.SetSheetName(f.GetSheetName(0), w.sheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	sw, err := f.NewStreamWriter(w.sheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to open stream writer: %w", err)
	}

	header := make([]interface{}, len(SeriesHeaders))
	for i, h := range SeriesHeaders {
		header[i] = h
	}
	if err := sw.SetRow("A1", header); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write header row: %w", err)
	}

	for i, p := range points {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			f.Close()
			return nil, err
		}
		if err := sw.SetRow(cell, []interface{}{p.Date, p.Value}); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := sw.Flush(); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to flush sheet: %w", err)
	}
	return f, nil
}
