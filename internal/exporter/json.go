package exporter

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/keyaloding/nasa-space-apps/internal/timeseries"
)

// JSONWriter writes series as JSON arrays.
type JSONWriter struct {
	dir string
}

// NewJSONWriter returns a writer rooted at dir. An empty dir means the
// working directory.
func NewJSONWriter(dir string) *JSONWriter {
	return &JSONWriter{dir: dir}
}

// SideFileName is the name of the JSON file kept for an input path:
// the input's base name with ".json" appended.
func SideFileName(inputPath string) string {
	return filepath.Base(filepath.ToSlash(inputPath)) + ".json"
}

// WriteSideFile writes points to SideFileName(inputPath) under the writer's
// directory and returns the path written.
func (w *JSONWriter) WriteSideFile(inputPath string, points []timeseries.Point) (string, error) {
	out := filepath.Join(w.dir, SideFileName(inputPath))
	if w.dir != "" {
		if err := os.MkdirAll(w.dir, 0755); err != nil {
			return "", fmt.Errorf("failed to create directory: %w", err)
		}
	}

	file, err := os.Create(out)
	if err != nil {
		return "", fmt.Errorf("failed to create side file: %w", err)
	}
	if err := w.Encode(file, points); err != nil {
		file.Close()
		return "", err
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("failed to close side file: %w", err)
	}

	slog.Debug("Wrote JSON side file",
		slog.String("input", inputPath),
		slog.String("output", out),
		slog.Int("points", len(points)))
	return out, nil
}

// Encode writes points as a JSON array. A nil slice encodes as [].
func (w *JSONWriter) Encode(out io.Writer, points []timeseries.Point) error {
	if points == nil {
		points = []timeseries.Point{}
	}
	b, err := json.Marshal(points)
	if err != nil {
		return fmt.Errorf("failed to encode series: %w", err)
	}
	if _, err := out.Write(b); err != nil {
		return fmt.Errorf("failed to write series: %w", err)
	}
	return nil
}
