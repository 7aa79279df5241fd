package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apierrors "github.com/keyaloding/nasa-space-apps/internal/errors"
	"github.com/keyaloding/nasa-space-apps/internal/exporter"
	"github.com/keyaloding/nasa-space-apps/internal/files"
	custommw "github.com/keyaloding/nasa-space-apps/internal/middleware"
	"github.com/keyaloding/nasa-space-apps/internal/services"
	"github.com/keyaloding/nasa-space-apps/internal/store"
	"github.com/keyaloding/nasa-space-apps/internal/timeseries"
)

// MockSeriesService is a mock implementation of SeriesServiceInterface
type MockSeriesService struct {
	mock.Mock
}

func (m *MockSeriesService) Aggregate(ctx context.Context, name string, g timeseries.Granularity) (*services.SeriesResult, error) {
	args := m.Called(name, g)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.SeriesResult), args.Error(1)
}

func (m *MockSeriesService) AggregateBatch(ctx context.Context, names []string, g timeseries.Granularity) ([]services.BatchItem, error) {
	args := m.Called(names, g)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]services.BatchItem), args.Error(1)
}

func (m *MockSeriesService) Get(ctx context.Context, name string, g timeseries.Granularity) (*services.SeriesResult, error) {
	args := m.Called(name, g)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.SeriesResult), args.Error(1)
}

func (m *MockSeriesService) List(ctx context.Context) ([]store.Summary, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]store.Summary), args.Error(1)
}

func (m *MockSeriesService) Files(ctx context.Context) ([]files.FileInfo, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]files.FileInfo), args.Error(1)
}

func (m *MockSeriesService) Export(ctx context.Context, w io.Writer, name string, g timeseries.Granularity, f exporter.Format) error {
	args := m.Called(name, g, f)
	if err := args.Error(0); err != nil {
		return err
	}
	return exporter.Export(w, f, samplePoints)
}

var samplePoints = []timeseries.Point{
	{Date: "2023-01-01", Value: 419.5},
	{Date: "2023-01-02", Value: 420.25},
}

func newTestRouter(svc SeriesServiceInterface) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	eh := apierrors.NewErrorHandler(logger, false)
	h := NewSeriesHandler(svc, custommw.NewValidator(), logger, eh)

	r := chi.NewRouter()
	r.Use(custommw.RequestID)
	r.Mount("/api/series", h.Routes())
	return r
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestSeriesHandler_Aggregate(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		setupMock  func(*MockSeriesService)
		wantStatus int
		checkBody  func(*testing.T, map[string]interface{})
	}{
		{
			name: "success",
			body: `{"file":"co2.txt","granularity":"daily"}`,
			setupMock: func(m *MockSeriesService) {
				m.On("Aggregate", "co2.txt", timeseries.Daily).Return(&services.SeriesResult{
					Name: "co2.txt", Granularity: timeseries.Daily, Source: services.SourceAggregated, Points: samplePoints,
				}, nil)
			},
			wantStatus: http.StatusOK,
			checkBody: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, "success", body["status"])
				assert.EqualValues(t, 2, body["count"])
				data := body["data"].(map[string]interface{})
				assert.Equal(t, "aggregated", data["source"])
				assert.Len(t, data["points"], 2)
			},
		},
		{
			name:       "invalid granularity",
			body:       `{"file":"co2.txt","granularity":"hourly"}`,
			setupMock:  func(*MockSeriesService) {},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "file not found",
			body: `{"file":"missing.txt","granularity":"monthly"}`,
			setupMock: func(m *MockSeriesService) {
				m.On("Aggregate", "missing.txt", timeseries.Monthly).
					Return(nil, &timeseries.Error{Kind: timeseries.KindNotFound, Path: "missing.txt"})
			},
			wantStatus: http.StatusNotFound,
			checkBody: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, timeseries.NotFoundMessage, body["title"])
			},
		},
		{
			name: "processing failure",
			body: `{"file":"bad.txt","granularity":"daily"}`,
			setupMock: func(m *MockSeriesService) {
				m.On("Aggregate", "bad.txt", timeseries.Daily).
					Return(nil, &timeseries.Error{Kind: timeseries.KindColumnMismatch, Path: "bad.txt", Line: 7})
			},
			wantStatus: http.StatusUnprocessableEntity,
			checkBody: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, "column_mismatch", body["kind"])
				assert.EqualValues(t, 7, body["line"])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockSeriesService)
			tt.setupMock(svc)

			rec := do(t, newTestRouter(svc), http.MethodPost, "/api/series/aggregate", tt.body)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.checkBody != nil {
				tt.checkBody(t, decode(t, rec))
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestSeriesHandler_AggregateBatch(t *testing.T) {
	svc := new(MockSeriesService)
	svc.On("AggregateBatch", []string{"a.txt", "b.txt", "c.txt"}, timeseries.Monthly).Return([]services.BatchItem{
		{Name: "a.txt", Result: &services.SeriesResult{Name: "a.txt", Points: samplePoints}},
		{Name: "b.txt", Err: &timeseries.Error{Kind: timeseries.KindNotFound, Path: "b.txt"}},
		{Name: "c.txt", Err: &timeseries.Error{Kind: timeseries.KindEmptyResult, Path: "c.txt"}},
	}, nil)

	rec := do(t, newTestRouter(svc), http.MethodPost, "/api/series/batch",
		`{"files":["a.txt","b.txt","c.txt"],"granularity":"monthly"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	data := body["data"].(map[string]interface{})
	assert.EqualValues(t, 1, data["succeeded"])
	assert.EqualValues(t, 2, data["failed"])

	items := data["items"].([]interface{})
	require.Len(t, items, 3)
	notFound := items[1].(map[string]interface{})["error"].(map[string]interface{})
	assert.Equal(t, "not_found", notFound["kind"])
	assert.Equal(t, timeseries.NotFoundMessage, notFound["message"])
	empty := items[2].(map[string]interface{})["error"].(map[string]interface{})
	assert.Equal(t, "empty_result", empty["kind"])
	svc.AssertExpectations(t)
}

func TestSeriesHandler_AggregateBatch_TooMany(t *testing.T) {
	svc := new(MockSeriesService)
	svc.On("AggregateBatch", mock.Anything, timeseries.Daily).
		Return(nil, fmt.Errorf("%w: 2 files, limit 1", services.ErrTooManyFiles))

	rec := do(t, newTestRouter(svc), http.MethodPost, "/api/series/batch",
		`{"files":["a.txt","b.txt"],"granularity":"daily"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSeriesHandler_GetSeries(t *testing.T) {
	t.Run("json envelope", func(t *testing.T) {
		svc := new(MockSeriesService)
		svc.On("Get", "co2.txt", timeseries.Monthly).Return(&services.SeriesResult{
			Name: "co2.txt", Granularity: timeseries.Monthly, Source: services.SourceStore, Points: samplePoints,
		}, nil)

		rec := do(t, newTestRouter(svc), http.MethodGet, "/api/series/monthly/co2.txt", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "store", decode(t, rec)["data"].(map[string]interface{})["source"])
	})

	t.Run("csv download", func(t *testing.T) {
		svc := new(MockSeriesService)
		svc.On("Export", "co2.txt", timeseries.Daily, exporter.FormatCSV).Return(nil)

		rec := do(t, newTestRouter(svc), http.MethodGet, "/api/series/daily/co2.txt?format=csv", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
		assert.Contains(t, rec.Header().Get("Content-Disposition"), `co2.daily.csv`)
		assert.Contains(t, rec.Body.String(), "2023-01-02,420.25")
	})

	t.Run("export failure becomes a problem", func(t *testing.T) {
		svc := new(MockSeriesService)
		svc.On("Export", "co2.txt", timeseries.Daily, exporter.FormatXLSX).
			Return(fmt.Errorf("%w: disk", services.ErrUnavailable))

		rec := do(t, newTestRouter(svc), http.MethodGet, "/api/series/daily/co2.txt?format=xlsx", "")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("bad granularity", func(t *testing.T) {
		rec := do(t, newTestRouter(new(MockSeriesService)), http.MethodGet, "/api/series/weekly/co2.txt", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("bad format", func(t *testing.T) {
		rec := do(t, newTestRouter(new(MockSeriesService)), http.MethodGet, "/api/series/daily/co2.txt?format=pdf", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestSeriesHandler_Lists(t *testing.T) {
	svc := new(MockSeriesService)
	svc.On("List").Return([]store.Summary{{Name: "co2.txt", Granularity: timeseries.Daily, PointCount: 31}}, nil)
	svc.On("Files").Return(nil, errors.Join(services.ErrUnavailable, errors.New("permission denied")))

	h := newTestRouter(svc)

	rec := do(t, h, http.MethodGet, "/api/series", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decode(t, rec)["count"])

	rec = do(t, h, http.MethodGet, "/api/series/files", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	svc.AssertExpectations(t)
}
