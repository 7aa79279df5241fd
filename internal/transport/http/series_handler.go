package http

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	apierrors "github.com/keyaloding/nasa-space-apps/internal/errors"
	"github.com/keyaloding/nasa-space-apps/internal/exporter"
	custommw "github.com/keyaloding/nasa-space-apps/internal/middleware"
	"github.com/keyaloding/nasa-space-apps/internal/services"
	"github.com/keyaloding/nasa-space-apps/internal/timeseries"
	api "github.com/keyaloding/nasa-space-apps/pkg/contracts/api/v1"
)

// SeriesHandler serves aggregated series over HTTP.
type SeriesHandler struct {
	service      SeriesServiceInterface
	validator    *custommw.Validator
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewSeriesHandler creates a series handler
func NewSeriesHandler(service SeriesServiceInterface, validator *custommw.Validator,
	logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *SeriesHandler {
	return &SeriesHandler{
		service:      service,
		validator:    validator,
		logger:       logger.With(slog.String("component", "series_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the series routes
func (h *SeriesHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ListSeries)
	r.Get("/files", h.ListFiles)
	r.Post("/aggregate", h.Aggregate)
	r.Post("/batch", h.AggregateBatch)
	r.Get("/{granularity}/{file}", h.GetSeries)

	return r
}

// ListSeries handles GET /api/series
func (h *SeriesHandler) ListSeries(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, api.List(list, len(list)))
}

// ListFiles handles GET /api/series/files
func (h *SeriesHandler) ListFiles(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.Files(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, api.List(list, len(list)))
}

// Aggregate handles POST /api/series/aggregate
func (h *SeriesHandler) Aggregate(w http.ResponseWriter, r *http.Request) {
	var req api.AggregateRequest
	if err := h.validator.DecodeJSON(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	g, _ := timeseries.ParseGranularity(req.Granularity)
	h.logger.InfoContext(r.Context(), "aggregate requested",
		slog.String("file", req.File),
		slog.String("granularity", g.String()),
		slog.String("request_id", middleware.GetReqID(r.Context())))

	res, err := h.service.Aggregate(r.Context(), req.File, g)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, api.List(res, len(res.Points)))
}

// AggregateBatch handles POST /api/series/batch
func (h *SeriesHandler) AggregateBatch(w http.ResponseWriter, r *http.Request) {
	var req api.BatchRequest
	if err := h.validator.DecodeJSON(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	g, _ := timeseries.ParseGranularity(req.Granularity)
	items, err := h.service.AggregateBatch(r.Context(), req.Files, g)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	resp := api.BatchResponse{
		Granularity: g.String(),
		Items:       make([]api.BatchItemResponse, 0, len(items)),
	}
	for _, it := range items {
		item := api.BatchItemResponse{File: it.Name}
		if it.Err != nil {
			resp.Failed++
			item.Error = batchItemError(it.Err)
		} else {
			resp.Succeeded++
			item.Series = it.Result
		}
		resp.Items = append(resp.Items, item)
	}
	render.JSON(w, r, api.List(resp, len(resp.Items)))
}

// batchItemError names the failure of one batch entry the same way the
// problem documents do.
func batchItemError(err error) *api.ItemError {
	kind := "internal"
	switch {
	case timeseries.KindOf(err) != 0:
		kind = timeseries.KindOf(err).String()
	case errors.Is(err, services.ErrInvalidInput):
		kind = "invalid_input"
	case errors.Is(err, services.ErrUnavailable):
		kind = "unavailable"
	}

	msg := err.Error()
	if timeseries.IsNotFound(err) {
		msg = timeseries.NotFoundMessage
	}
	return &api.ItemError{Kind: kind, Message: msg}
}

// GetSeries handles GET /api/series/{granularity}/{file}. Without a format
// query it answers with the JSON envelope; with one it streams a download.
func (h *SeriesHandler) GetSeries(w http.ResponseWriter, r *http.Request) {
	g, err := timeseries.ParseGranularity(chi.URLParam(r, "granularity"))
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidParameter("granularity", err))
		return
	}
	name := chi.URLParam(r, "file")

	query := api.SeriesQuery{Format: strings.ToLower(r.URL.Query().Get("format"))}
	if err := h.validator.ValidateStruct(&query); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	if query.Format == "" {
		res, err := h.service.Get(r.Context(), name, g)
		if err != nil {
			h.errorHandler.HandleError(w, r, err)
			return
		}
		render.JSON(w, r, api.List(res, len(res.Points)))
		return
	}

	format, err := exporter.ParseFormat(query.Format)
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidParameter("format", err))
		return
	}

	// Buffer so a failure can still become a problem document.
	var buf bytes.Buffer
	if err := h.service.Export(r.Context(), &buf, name, g, format); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	download := fmt.Sprintf("%s.%s%s", strings.TrimSuffix(name, ".txt"), g, format.Extension())
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, download))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.WarnContext(r.Context(), "download interrupted",
			slog.String("file", name),
			slog.String("error", err.Error()))
	}
}
