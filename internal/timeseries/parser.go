package timeseries

import (
	"fmt"
	"strconv"
	"strings"
)

// Column names every input file must declare.
const (
	ColumnYear   = "year"
	ColumnMonth  = "month"
	ColumnDay    = "day"
	ColumnValue  = "value"
	ColumnQCFlag = "qcflag"
)

// RequiredColumns are checked against the discovered schema before any row is read.
var RequiredColumns = []string{ColumnYear, ColumnMonth, ColumnDay, ColumnValue, ColumnQCFlag}

// Schema is the ordered column list read from the column-name row.
type Schema struct {
	columns []string
	index   map[string]int
}

// NewSchema builds a schema from column names, rejecting empty and duplicate names.
func NewSchema(columns []string) (Schema, error) {
	if len(columns) == 0 {
		return Schema{}, fmt.Errorf("no column names")
	}
	index := make(map[string]int, len(columns))
	for i, name := range columns {
		if _, dup := index[name]; dup {
			return Schema{}, fmt.Errorf("duplicate column %q", name)
		}
		index[name] = i
	}
	return Schema{columns: append([]string(nil), columns...), index: index}, nil
}

// Columns returns a copy of the column names in file order.
func (s Schema) Columns() []string {
	return append([]string(nil), s.columns...)
}

// Len returns the number of declared columns.
func (s Schema) Len() int {
	return len(s.columns)
}

// Index returns the position of a column.
func (s Schema) Index(name string) (int, bool) {
	i, ok := s.index[name]
	return i, ok
}

// Missing returns the names in required that the schema does not declare.
func (s Schema) Missing(required []string) []string {
	var missing []string
	for _, name := range required {
		if _, ok := s.index[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

// Row is one data line split into fields aligned with the schema.
type Row struct {
	Line   int
	Fields []string
}

// Get returns the field for a column, or "" if the schema lacks it.
func (r Row) Get(s Schema, column string) string {
	i, ok := s.Index(column)
	if !ok || i >= len(r.Fields) {
		return ""
	}
	return r.Fields[i]
}

// Table is the parsed body of an observation file.
type Table struct {
	Schema      Schema
	HeaderLines int
	Rows        []Row
}

// ParseHeaderCount reads H, the integer after the last ':' on the first line.
func ParseHeaderCount(line string) (int, error) {
	raw := line
	if i := strings.LastIndex(line, ":"); i >= 0 {
		raw = line[i+1:]
	}
	raw = strings.TrimSpace(raw)
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &Error{Kind: KindHeaderMalformed, Line: 1, Token: raw, Detail: "header line count is not an integer"}
	}
	if n < 1 {
		return 0, &Error{Kind: KindHeaderMalformed, Line: 1, Token: raw, Detail: "header line count must be at least 1"}
	}
	return n, nil
}

// ParseTable splits file content into schema and data rows.
//
// Line H holds the column names and rows run from H+1 to the second-to-last
// line. The last line is always discarded: source files end with a newline,
// so the final element after splitting is the empty trailer. A file without
// that trailing newline loses its last data row.
func ParseTable(content string) (*Table, error) {
	lines := strings.Split(content, "\n")

	h, err := ParseHeaderCount(lines[0])
	if err != nil {
		return nil, err
	}

	last := len(lines) - 1 // index of the discarded trailer
	if h-1 >= last {
		return nil, newError(KindHeaderMalformed, 1, strconv.Itoa(h),
			fmt.Sprintf("column row %d is past the end of data (%d lines)", h, last))
	}

	schema, err := NewSchema(strings.Fields(lines[h-1]))
	if err != nil {
		return nil, newError(KindHeaderMalformed, h, "", err.Error())
	}
	if missing := schema.Missing(RequiredColumns); len(missing) > 0 {
		return nil, newError(KindMissingColumn, h, strings.Join(missing, ","), "required column not declared")
	}

	table := &Table{
		Schema:      schema,
		HeaderLines: h,
		Rows:        make([]Row, 0, last-h),
	}
	for i := h; i < last; i++ {
		fields := strings.Fields(lines[i])
		if len(fields) != schema.Len() {
			return nil, newError(KindColumnMismatch, i+1, "",
				fmt.Sprintf("row has %d fields, header declares %d", len(fields), schema.Len()))
		}
		table.Rows = append(table.Rows, Row{Line: i + 1, Fields: fields})
	}
	return table, nil
}
