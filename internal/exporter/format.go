package exporter

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/keyaloding/nasa-space-apps/internal/timeseries"
)

// Format is an export encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat accepts a format name, defaulting to JSON when s is empty.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatJSON, nil
	case FormatJSON, FormatCSV, FormatXLSX:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", s)
	}
}

// ContentType is the MIME type served for the format.
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "application/json"
	}
}

// Extension returns the file extension including the dot.
func (f Format) Extension() string {
	return "." + string(f)
}

// Export encodes points to w in the given format.
func Export(w io.Writer, f Format, points []timeseries.Point) error {
	switch f {
	case FormatJSON:
		return NewJSONWriter("").Encode(w, points)
	case FormatCSV:
		return NewCSVWriter("").Encode(w, points)
	case FormatXLSX:
		return NewExcelWriter().Encode(w, points)
	default:
		return fmt.Errorf("unsupported export format %q", f)
	}
}

// formatFloat always renders two decimals, so 13.4 becomes 13.40.
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}
