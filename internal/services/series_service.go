package services

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/keyaloding/nasa-space-apps/internal/exporter"
	"github.com/keyaloding/nasa-space-apps/internal/files"
	"github.com/keyaloding/nasa-space-apps/internal/infrastructure"
	"github.com/keyaloding/nasa-space-apps/internal/store"
	"github.com/keyaloding/nasa-space-apps/internal/timeseries"
)

// SeriesStore is the persistence the service needs.
type SeriesStore interface {
	SaveSeries(ctx context.Context, name string, g timeseries.Granularity, digest string, points []timeseries.Point) (store.Summary, error)
	GetSeries(ctx context.Context, name string, g timeseries.Granularity) (*store.Series, error)
	ListSeries(ctx context.Context) ([]store.Summary, error)
	Ping(ctx context.Context) error
}

// Source says where a series came from.
type Source string

const (
	SourceAggregated Source = "aggregated"
	SourceCache      Source = "cache"
	SourceStore      Source = "store"
)

// SeriesResult is an aggregated series for one input file.
type SeriesResult struct {
	Name        string                 `json:"name"`
	Granularity timeseries.Granularity `json:"granularity"`
	Digest      string                 `json:"digest,omitempty"`
	Source      Source                 `json:"source"`
	Points      []timeseries.Point     `json:"points"`
}

// BatchItem is the outcome for one file of a batch. Err is per file.
type BatchItem struct {
	Name   string
	Result *SeriesResult
	Err    error
}

// SeriesOptions tunes a SeriesService.
type SeriesOptions struct {
	CacheEntries     int
	BatchConcurrency int
	MaxBatchFiles    int
	// OutputDir receives JSON side files written by Refresh. Empty disables them.
	OutputDir string
}

// SeriesService aggregates input files and serves the stored results.
type SeriesService struct {
	aggregator *timeseries.Aggregator
	discovery  *files.Discovery
	store      SeriesStore
	metrics    *infrastructure.SeriesMetrics
	cache      *resultCache
	flight     singleflight.Group
	opts       SeriesOptions
	logger     *slog.Logger
}

// NewSeriesService wires a service. metrics may be nil.
func NewSeriesService(agg *timeseries.Aggregator, discovery *files.Discovery, st SeriesStore,
	metrics *infrastructure.SeriesMetrics, opts SeriesOptions, logger *slog.Logger) *SeriesService {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.BatchConcurrency < 1 {
		opts.BatchConcurrency = 1
	}

	logger.Info("SeriesService initialized",
		slog.String("input_dir", discovery.BasePath()),
		slog.String("output_dir", opts.OutputDir),
		slog.Int("cache_entries", opts.CacheEntries),
		slog.Int("batch_concurrency", opts.BatchConcurrency))

	return &SeriesService{
		aggregator: agg,
		discovery:  discovery,
		store:      st,
		metrics:    metrics,
		cache:      newResultCache(opts.CacheEntries),
		opts:       opts,
		logger:     logger.With(slog.String("component", "series_service")),
	}
}

// Aggregate aggregates the input file called name at granularity g and
// stores the result.
func (s *SeriesService) Aggregate(ctx context.Context, name string, g timeseries.Granularity) (*SeriesResult, error) {
	if !g.Valid() {
		return nil, fmt.Errorf("%w: unsupported granularity %q", ErrInvalidInput, g)
	}
	path, err := s.discovery.Resolve(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	content, err := timeseries.ReadInput(path)
	if err != nil {
		var te *timeseries.Error
		if errors.As(err, &te) {
			te.Path = name
		}
		s.metrics.RecordAggregation(ctx, string(g), 0, 0, 0, timeseries.KindOf(err).String())
		return nil, err
	}

	digest := Digest(content)
	key := cacheKey(digest, g)
	if points, ok := s.cache.get(key); ok {
		s.metrics.RecordCache(ctx, true)
		s.syncStored(ctx, name, g, digest, points)
		return &SeriesResult{Name: name, Granularity: g, Digest: digest, Source: SourceCache, Points: points}, nil
	}
	s.metrics.RecordCache(ctx, false)

	v, err, shared := s.flight.Do(key, func() (interface{}, error) {
		start := time.Now()
		points, stats, err := s.aggregator.AggregateContent(ctx, name, content, g)
		kind := ""
		if err != nil {
			kind = timeseries.KindOf(err).String()
		}
		s.metrics.RecordAggregation(ctx, string(g), stats.RowsRead, stats.RowsKept, time.Since(start), kind)
		if err != nil {
			return nil, err
		}

		s.cache.set(key, points)
		return points, nil
	})
	if err != nil {
		return nil, err
	}
	// Shared flights may have been started for another file with the same
	// content, so every caller saves under its own name.
	points := clonePoints(v.([]timeseries.Point))
	s.persist(ctx, name, g, digest, points)

	s.logger.DebugContext(ctx, "series aggregated",
		slog.String("name", name),
		slog.String("granularity", g.String()),
		slog.Bool("shared", shared))
	return &SeriesResult{
		Name:        name,
		Granularity: g,
		Digest:      digest,
		Source:      SourceAggregated,
		Points:      points,
	}, nil
}

// syncStored saves a cached result unless the store already holds the
// series for this exact content.
func (s *SeriesService) syncStored(ctx context.Context, name string, g timeseries.Granularity, digest string, points []timeseries.Point) {
	if stored, err := s.store.GetSeries(ctx, name, g); err == nil && stored.SourceDigest == digest {
		return
	}
	s.persist(ctx, name, g, digest, points)
}

func (s *SeriesService) persist(ctx context.Context, name string, g timeseries.Granularity, digest string, points []timeseries.Point) {
	if _, err := s.store.SaveSeries(ctx, name, g, digest, points); err != nil {
		s.logger.WarnContext(ctx, "failed to persist series",
			slog.String("name", name),
			slog.String("granularity", g.String()),
			slog.String("error", err.Error()))
	}
}

// AggregateBatch aggregates many files with bounded concurrency. A failing
// file does not stop the others; only cancellation of ctx fails the batch.
func (s *SeriesService) AggregateBatch(ctx context.Context, names []string, g timeseries.Granularity) ([]BatchItem, error) {
	if s.opts.MaxBatchFiles > 0 && len(names) > s.opts.MaxBatchFiles {
		return nil, fmt.Errorf("%w: %d files, limit %d", ErrTooManyFiles, len(names), s.opts.MaxBatchFiles)
	}

	items := make([]BatchItem, len(names))
	var eg errgroup.Group
	eg.SetLimit(s.opts.BatchConcurrency)

	for i, name := range names {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := s.Aggregate(ctx, name, g)
			items[i] = BatchItem{Name: name, Result: res, Err: err}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	failed := 0
	for _, it := range items {
		if it.Err != nil {
			failed++
		}
	}
	s.logger.InfoContext(ctx, "batch aggregation complete",
		slog.String("granularity", g.String()),
		slog.Int("files", len(names)),
		slog.Int("failed", failed))
	return items, nil
}

// Get returns the stored series. The file is aggregated again when nothing
// is stored yet or its content no longer matches the stored digest. A stored
// series whose input has disappeared is still served.
func (s *SeriesService) Get(ctx context.Context, name string, g timeseries.Granularity) (*SeriesResult, error) {
	stored, err := s.store.GetSeries(ctx, name, g)
	switch {
	case err == nil:
		if digest, ok := s.currentDigest(name); ok && digest != stored.SourceDigest {
			return s.Aggregate(ctx, name, g)
		}
		return &SeriesResult{
			Name:        stored.Name,
			Granularity: stored.Granularity,
			Digest:      stored.SourceDigest,
			Source:      SourceStore,
			Points:      stored.Points,
		}, nil
	case errors.Is(err, store.ErrSeriesNotFound):
		return s.Aggregate(ctx, name, g)
	default:
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
}

// currentDigest digests the input file called name, reporting false when
// it cannot be read.
func (s *SeriesService) currentDigest(name string) (string, bool) {
	path, err := s.discovery.Resolve(name)
	if err != nil {
		return "", false
	}
	content, err := timeseries.ReadInput(path)
	if err != nil {
		return "", false
	}
	return Digest(content), true
}

// List returns summaries of every stored series.
func (s *SeriesService) List(ctx context.Context) ([]store.Summary, error) {
	list, err := s.store.ListSeries(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return list, nil
}

// Files lists the input files available for aggregation.
func (s *SeriesService) Files(ctx context.Context) ([]files.FileInfo, error) {
	list, err := s.discovery.FindInputFiles("")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if list == nil {
		list = []files.FileInfo{}
	}
	return list, nil
}

// Export writes the series for name in the requested format.
func (s *SeriesService) Export(ctx context.Context, w io.Writer, name string, g timeseries.Granularity, f exporter.Format) error {
	res, err := s.Get(ctx, name, g)
	if err != nil {
		return err
	}
	return exporter.Export(w, f, res.Points)
}

// Refresh re-aggregates the file at path for every granularity. It is the
// watcher's callback.
func (s *SeriesService) Refresh(ctx context.Context, path string) error {
	name := filepath.Base(path)
	var errs []error
	for _, g := range timeseries.Granularities {
		res, err := s.Aggregate(ctx, name, g)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s %s: %w", name, g, err))
			continue
		}
		if s.opts.OutputDir == "" {
			continue
		}
		out, err := exporter.NewJSONWriter(filepath.Join(s.opts.OutputDir, string(g))).WriteSideFile(name, res.Points)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s %s: %w", name, g, err))
			continue
		}
		s.logger.InfoContext(ctx, "series refreshed",
			slog.String("name", name),
			slog.String("granularity", g.String()),
			slog.String("output", out),
			slog.Int("points", len(res.Points)))
	}
	return errors.Join(errs...)
}

// CacheStats reports result cache counters.
func (s *SeriesService) CacheStats() CacheStats {
	return s.cache.stats()
}

// Digest is the hex BLAKE2b-256 of content.
func Digest(content []byte) string {
	sum := blake2b.Sum256(content)
	return hex.EncodeToString(sum[:])
}
