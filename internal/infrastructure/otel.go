package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/keyaloding/nasa-space-apps/internal/config"
	"github.com/keyaloding/nasa-space-apps/pkg/contracts"
)

// MeterName is the instrumentation scope for every tracer and meter we create.
const MeterName = "github.com/keyaloding/nasa-space-apps"

// OTelProviders holds the OpenTelemetry providers
type OTelProviders struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Tracer         trace.Tracer
	Meter          metric.Meter
	PrometheusHTTP http.Handler
	Logger         *slog.Logger
}

// InitializeOTel sets up tracing and metrics per cfg and installs them as
// the global providers.
func InitializeOTel(cfg config.ObservabilityConfig, logger *slog.Logger) (*OTelProviders, error) {
	ctx := context.Background()

	logger.InfoContext(ctx, "Initializing OpenTelemetry",
		slog.String("service", cfg.ServiceName),
		slog.String("environment", cfg.Environment),
		slog.String("trace_exporter", cfg.TraceExporter),
		slog.String("metric_exporter", cfg.MetricExporter))

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(contracts.Version),
		semconv.DeploymentEnvironmentName(cfg.Environment),
		attribute.String("service.instance.id", generateInstanceID()),
	)

	providers := &OTelProviders{
		Logger: logger,
		Tracer: noop.NewTracerProvider().Tracer(MeterName),
	}

	if err := initializeTracing(cfg, res, providers); err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	if err := initializeMetrics(cfg, res, providers); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return providers, nil
}

func initializeTracing(cfg config.ObservabilityConfig, res *resource.Resource, providers *OTelProviders) error {
	var exporter sdktrace.SpanExporter
	switch cfg.TraceExporter {
	case "stdout":
		exp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return fmt.Errorf("failed to create trace exporter: %w", err)
		}
		exporter = exp
	case "none", "":
		return nil
	default:
		return fmt.Errorf("unsupported trace exporter: %s", cfg.TraceExporter)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.SampleRatio)),
	)
	providers.TracerProvider = tp
	providers.Tracer = tp.Tracer(MeterName, trace.WithInstrumentationVersion(contracts.Version))
	otel.SetTracerProvider(tp)
	return nil
}

func initializeMetrics(cfg config.ObservabilityConfig, res *resource.Resource, providers *OTelProviders) error {
	switch cfg.MetricExporter {
	case "prometheus":
		// A private registry keeps repeated initialisation (tests, restarts) from
		// colliding in the global one.
		registry := promclient.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)

		exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
		if err != nil {
			return fmt.Errorf("failed to create prometheus exporter: %w", err)
		}
		mp := sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(exporter),
		)
		providers.MeterProvider = mp
		providers.Meter = mp.Meter(MeterName, metric.WithInstrumentationVersion(contracts.Version))
		providers.PrometheusHTTP = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
		otel.SetMeterProvider(mp)
	case "none", "":
		providers.Meter = otel.GetMeterProvider().Meter(MeterName)
	default:
		return fmt.Errorf("unsupported metric exporter: %s", cfg.MetricExporter)
	}
	return nil
}

// Shutdown flushes and stops the providers.
func (p *OTelProviders) Shutdown(ctx context.Context) error {
	var errs []error
	if p.TracerProvider != nil {
		if err := p.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider shutdown: %w", err))
		}
	}
	if p.MeterProvider != nil {
		if err := p.MeterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider shutdown: %w", err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}
	p.Logger.InfoContext(ctx, "OpenTelemetry shutdown complete")
	return nil
}

func generateInstanceID() string {
	hostname, _ := os.Hostname()
	return fmt.Sprintf("%s-%d", hostname, time.Now().Unix())
}

// SeriesMetrics are the business metrics of the aggregation service.
// A nil *SeriesMetrics records nothing.
type SeriesMetrics struct {
	aggregations        metric.Int64Counter
	aggregationErrors   metric.Int64Counter
	aggregationDuration metric.Float64Histogram
	rowsRead            metric.Int64Counter
	rowsKept            metric.Int64Counter
	cacheHits           metric.Int64Counter
	cacheMisses         metric.Int64Counter
	watchEvents         metric.Int64Counter
	httpRequests        metric.Int64Counter
	httpDuration        metric.Float64Histogram
}

// NewSeriesMetrics creates the instruments on meter.
func NewSeriesMetrics(meter metric.Meter) (*SeriesMetrics, error) {
	m := &SeriesMetrics{}
	var err error

	if m.aggregations, err = meter.Int64Counter("aggregations_total",
		metric.WithDescription("Total number of aggregation runs")); err != nil {
		return nil, err
	}
	if m.aggregationErrors, err = meter.Int64Counter("aggregation_errors_total",
		metric.WithDescription("Failed aggregation runs by error kind")); err != nil {
		return nil, err
	}
	if m.aggregationDuration, err = meter.Float64Histogram("aggregation_duration_seconds",
		metric.WithDescription("Aggregation run duration in seconds"),
		metric.WithUnit("s")); err != nil {
		return nil, err
	}
	if m.rowsRead, err = meter.Int64Counter("aggregation_rows_read_total",
		metric.WithDescription("Observation rows parsed")); err != nil {
		return nil, err
	}
	if m.rowsKept, err = meter.Int64Counter("aggregation_rows_kept_total",
		metric.WithDescription("Observation rows that passed quality control")); err != nil {
		return nil, err
	}
	if m.cacheHits, err = meter.Int64Counter("series_cache_hits_total",
		metric.WithDescription("Aggregations served from the result cache")); err != nil {
		return nil, err
	}
	if m.cacheMisses, err = meter.Int64Counter("series_cache_misses_total",
		metric.WithDescription("Aggregations that had to parse the input")); err != nil {
		return nil, err
	}
	if m.watchEvents, err = meter.Int64Counter("watch_events_total",
		metric.WithDescription("Input file change events handled by the watcher")); err != nil {
		return nil, err
	}
	if m.httpRequests, err = meter.Int64Counter("http_requests_total",
		metric.WithDescription("Total number of HTTP requests")); err != nil {
		return nil, err
	}
	if m.httpDuration, err = meter.Float64Histogram("http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s")); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordAggregation records one aggregation run. errKind is empty on success.
func (m *SeriesMetrics) RecordAggregation(ctx context.Context, granularity string, rowsRead, rowsKept int, d time.Duration, errKind string) {
	if m == nil {
		return
	}
	outcome := "success"
	if errKind != "" {
		outcome = "error"
		m.aggregationErrors.Add(ctx, 1, metric.WithAttributes(
			attribute.String("granularity", granularity),
			attribute.String("kind", errKind)))
	}
	attrs := metric.WithAttributes(
		attribute.String("granularity", granularity),
		attribute.String("outcome", outcome))
	m.aggregations.Add(ctx, 1, attrs)
	m.aggregationDuration.Record(ctx, d.Seconds(), attrs)
	m.rowsRead.Add(ctx, int64(rowsRead))
	m.rowsKept.Add(ctx, int64(rowsKept))
}

// RecordCache counts a cache lookup.
func (m *SeriesMetrics) RecordCache(ctx context.Context, hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheHits.Add(ctx, 1)
		return
	}
	m.cacheMisses.Add(ctx, 1)
}

// RecordWatchEvent counts a watcher-triggered refresh.
func (m *SeriesMetrics) RecordWatchEvent(ctx context.Context, op string) {
	if m == nil {
		return
	}
	m.watchEvents.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
}

// RecordHTTP records one served request.
func (m *SeriesMetrics) RecordHTTP(ctx context.Context, method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("route", route),
		attribute.Int("status", status))
	m.httpRequests.Add(ctx, 1, attrs)
	m.httpDuration.Record(ctx, d.Seconds(), attrs)
}
