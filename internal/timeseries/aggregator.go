package timeseries

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"sort"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Filtering constants. They are properties of the source data format and
// are not configurable.
const (
	// GoodQCFlag is the only flag value meaning "no quality concern".
	GoodQCFlag = "..."
	// MissingValue marks a reading the instrument could not take.
	MissingValue = -999.0
)

// DateLayout is the timestamp layout of Point.Date.
const DateLayout = "2006-01-02T15:04:05Z"

const tracerName = "github.com/keyaloding/nasa-space-apps/internal/timeseries"

// Stats describes one aggregation run.
type Stats struct {
	RowsRead int
	RowsKept int
	Points   int
}

// Aggregator turns hourly observation files into daily or monthly means.
// It holds no state between calls and is safe for concurrent use.
type Aggregator struct {
	logger *slog.Logger
	tracer trace.Tracer
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithLogger sets the logger used for debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Aggregator) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithTracer sets the tracer used for the aggregation span.
func WithTracer(tracer trace.Tracer) Option {
	return func(a *Aggregator) {
		if tracer != nil {
			a.tracer = tracer
		}
	}
}

// New creates an Aggregator. Without options it logs through slog.Default
// and traces through the global OpenTelemetry provider.
func New(opts ...Option) *Aggregator {
	a := &Aggregator{
		logger: slog.Default(),
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.With(slog.String("component", "aggregator"))
	return a
}

// Aggregate reads the file at path and returns one point per calendar period.
func (a *Aggregator) Aggregate(ctx context.Context, path string, g Granularity) ([]Point, error) {
	content, err := ReadInput(path)
	if err != nil {
		return nil, err
	}
	points, _, err := a.AggregateContent(ctx, path, content, g)
	return points, err
}

// AggregateContent aggregates already-loaded file content. name is used only
// for error context and tracing.
func (a *Aggregator) AggregateContent(ctx context.Context, name string, content []byte, g Granularity) ([]Point, Stats, error) {
	ctx, span := a.tracer.Start(ctx, "timeseries.Aggregate",
		trace.WithAttributes(
			attribute.String("timeseries.source", name),
			attribute.String("timeseries.granularity", g.String()),
			attribute.Int("timeseries.bytes", len(content)),
		))
	defer span.End()

	points, stats, err := aggregate(string(content), g)
	span.SetAttributes(
		attribute.Int("timeseries.rows_read", stats.RowsRead),
		attribute.Int("timeseries.rows_kept", stats.RowsKept),
		attribute.Int("timeseries.points", stats.Points),
	)
	if err != nil {
		var e *Error
		if errors.As(err, &e) && e.Path == "" {
			e.Path = name
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, KindOf(err).String())
		a.logger.DebugContext(ctx, "aggregation failed",
			slog.String("source", name),
			slog.String("granularity", g.String()),
			slog.String("kind", KindOf(err).String()),
			slog.String("error", err.Error()))
		return nil, stats, err
	}

	a.logger.DebugContext(ctx, "aggregation complete",
		slog.String("source", name),
		slog.String("granularity", g.String()),
		slog.Int("rows_read", stats.RowsRead),
		slog.Int("rows_kept", stats.RowsKept),
		slog.Int("points", stats.Points))
	return points, stats, nil
}

// ReadInput loads an input file, mapping a missing path to KindNotFound.
func ReadInput(path string) ([]byte, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &Error{Kind: KindNotFound, Path: path, Err: err}
		}
		return nil, &Error{Kind: KindReadFailed, Path: path, Err: err}
	}
	return content, nil
}

// Keep reports whether a reading passes quality control.
func Keep(qcflag string, value float64) bool {
	return qcflag == GoodQCFlag && value != 0 && value != MissingValue
}

// Round2 rounds half away from zero to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func aggregate(content string, g Granularity) ([]Point, Stats, error) {
	var stats Stats
	if !g.Valid() {
		return nil, stats, fmt.Errorf("unsupported granularity %q", g)
	}

	table, err := ParseTable(content)
	if err != nil {
		return nil, stats, err
	}
	stats.RowsRead = len(table.Rows)

	// Every value is coerced before filtering, so a bad token in a flagged
	// row still fails the file.
	values := make([]float64, len(table.Rows))
	for i, row := range table.Rows {
		raw := row.Get(table.Schema, ColumnValue)
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, stats, newError(KindNonNumericValue, row.Line, raw, "value is not a finite number")
		}
		values[i] = v
	}

	groups := make(map[groupKey][]float64)
	for i, row := range table.Rows {
		if !Keep(row.Get(table.Schema, ColumnQCFlag), values[i]) {
			continue
		}
		key, err := rowKey(table.Schema, row, g)
		if err != nil {
			return nil, stats, err
		}
		groups[key] = append(groups[key], values[i])
		stats.RowsKept++
	}

	if len(groups) == 0 {
		return nil, stats, newError(KindEmptyResult, 0, "",
			fmt.Sprintf("no readings left after filtering %d rows", stats.RowsRead))
	}

	type dated struct {
		at    int64
		point Point
	}
	out := make([]dated, 0, len(groups))
	for key, vals := range groups {
		t, _ := key.date()
		out = append(out, dated{
			at:    t.Unix(),
			point: Point{Date: t.Format(DateLayout), Value: Round2(mean(vals))},
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].at < out[j].at })

	points := make([]Point, len(out))
	for i, d := range out {
		points[i] = d.point
	}
	stats.Points = len(points)
	return points, stats, nil
}

func rowKey(s Schema, row Row, g Granularity) (groupKey, error) {
	var parts [3]int
	for i, col := range []string{ColumnYear, ColumnMonth, ColumnDay} {
		if g == Monthly && col == ColumnDay {
			continue
		}
		raw := row.Get(s, col)
		n, err := strconv.Atoi(raw)
		if err != nil {
			return groupKey{}, newError(KindInvalidDate, row.Line, raw, col+" is not an integer")
		}
		parts[i] = n
	}
	key := g.key(parts[0], parts[1], parts[2])
	if _, ok := key.date(); !ok {
		return groupKey{}, newError(KindInvalidDate, row.Line,
			fmt.Sprintf("%d-%d-%d", key.year, key.month, key.day), "not a calendar date")
	}
	return key, nil
}

// mean sorts before summing so the result does not depend on row order.
func mean(vals []float64) float64 {
	sort.Float64s(vals)
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}
