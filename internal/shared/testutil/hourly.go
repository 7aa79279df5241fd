package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// HourlyHeader is the column row used by HourlyFile.
const HourlyHeader = "year month day hour value qcflag"

// HourlyFile renders an input file with a two-line header and the given data
// rows, each terminated by a newline.
func HourlyFile(rows ...string) string {
	var b strings.Builder
	b.WriteString("number_of_header_lines: 2\n")
	b.WriteString(HourlyHeader + "\n")
	for _, r := range rows {
		b.WriteString(r + "\n")
	}
	return b.String()
}

// WriteHourlyFile writes HourlyFile(rows...) to dir/name and returns the path.
func WriteHourlyFile(t testing.TB, dir, name string, rows ...string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(HourlyFile(rows...)), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
