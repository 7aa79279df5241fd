package http

import (
	"context"
	"io"

	"github.com/keyaloding/nasa-space-apps/internal/exporter"
	"github.com/keyaloding/nasa-space-apps/internal/files"
	"github.com/keyaloding/nasa-space-apps/internal/services"
	"github.com/keyaloding/nasa-space-apps/internal/store"
	"github.com/keyaloding/nasa-space-apps/internal/timeseries"
)

// SeriesServiceInterface is the part of services.SeriesService the HTTP layer uses.
type SeriesServiceInterface interface {
	Aggregate(ctx context.Context, name string, g timeseries.Granularity) (*services.SeriesResult, error)
	AggregateBatch(ctx context.Context, names []string, g timeseries.Granularity) ([]services.BatchItem, error)
	Get(ctx context.Context, name string, g timeseries.Granularity) (*services.SeriesResult, error)
	List(ctx context.Context) ([]store.Summary, error)
	Files(ctx context.Context) ([]files.FileInfo, error)
	Export(ctx context.Context, w io.Writer, name string, g timeseries.Granularity, f exporter.Format) error
}

var _ SeriesServiceInterface = (*services.SeriesService)(nil)
