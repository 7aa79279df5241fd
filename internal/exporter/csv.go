package exporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/keyaloding/nasa-space-apps/internal/timeseries"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// SeriesHeaders is the CSV header row.
var SeriesHeaders = []string{"date", "value"}

// CSVWriter provides CSV export functionality
type CSVWriter struct {
	dir string
}

// NewCSVWriter creates a CSV writer; relative paths resolve under dir.
func NewCSVWriter(dir string) *CSVWriter {
	return &CSVWriter{dir: dir}
}

// WriteSeries writes points to filePath, replacing any existing file.
func (w *CSVWriter) WriteSeries(filePath string, points []timeseries.Point) error {
	fullPath := w.resolvePath(filePath)

	slog.Info("Writing CSV file",
		slog.String("file_path", filePath),
		slog.String("full_path", fullPath),
		slog.Int("record_count", len(points)))

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	if err := w.Encode(file, points); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// Encode writes the BOM, header and one row per point.
func (w *CSVWriter) Encode(out io.Writer, points []timeseries.Point) error {
	if _, err := out.Write(utf8BOM); err != nil {
		return fmt.Errorf("failed to write BOM: %w", err)
	}

	writer := csv.NewWriter(out)
	if err := writer.Write(SeriesHeaders); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}
	for i, p := range points {
		if err := writer.Write([]string{p.Date, formatFloat(p.Value)}); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

func (w *CSVWriter) resolvePath(filePath string) string {
	if filepath.IsAbs(filePath) || w.dir == "" {
		return filePath
	}
	return filepath.Join(w.dir, filePath)
}
