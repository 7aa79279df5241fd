package app

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keyaloding/nasa-space-apps/internal/config"
	"github.com/keyaloding/nasa-space-apps/internal/shared/testutil"
)

var hourlyRows = []string{
	"2020 01 01 00 1.0 ...",
	"2020 01 01 01 3.0 ...",
	"2020 01 02 00 -999 ...",
	"2020 01 02 01 4.0 ...",
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	cfg := config.Default()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.ShutdownTimeout = 5 * time.Second
	cfg.Data.InputDir = filepath.Join(root, "hourly")
	cfg.Data.OutputDir = filepath.Join(root, "series")
	cfg.Data.StorePath = filepath.Join(root, "series.db")
	cfg.Observability.Environment = "test"
	require.NoError(t, os.MkdirAll(cfg.Data.InputDir, 0755))
	testutil.WriteHourlyFile(t, cfg.Data.InputDir, "co2.txt", hourlyRows...)
	return cfg
}

func newTestApp(t *testing.T, cfg *config.Config) *Application {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	a, err := New(context.Background(), cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() { a.close(context.Background()) })
	return a
}

func serve(a *Application, method, target, body string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	rec := httptest.NewRecorder()
	a.Router.ServeHTTP(rec, httptest.NewRequest(method, target, rd))
	return rec
}

func TestApplication_Routes(t *testing.T) {
	a := newTestApp(t, testConfig(t))

	tests := []struct {
		name       string
		method     string
		target     string
		body       string
		wantStatus int
		contains   string
	}{
		{name: "health", method: http.MethodGet, target: "/api/health", wantStatus: http.StatusOK, contains: `"ok"`},
		{name: "ready", method: http.MethodGet, target: "/api/health/ready", wantStatus: http.StatusOK, contains: `"ready"`},
		{name: "version", method: http.MethodGet, target: "/api/version", wantStatus: http.StatusOK, contains: `"api_version":"v1"`},
		{name: "files", method: http.MethodGet, target: "/api/series/files", wantStatus: http.StatusOK, contains: `"co2.txt"`},
		{name: "aggregate", method: http.MethodPost, target: "/api/series/aggregate",
			body: `{"file":"co2.txt","granularity":"daily"}`, wantStatus: http.StatusOK,
			contains: `"date":"2020-01-02T00:00:00Z","value":4`},
		{name: "missing file", method: http.MethodPost, target: "/api/series/aggregate",
			body: `{"file":"nope.txt","granularity":"daily"}`, wantStatus: http.StatusNotFound, contains: "File not found"},
		{name: "download", method: http.MethodGet, target: "/api/series/monthly/co2.txt?format=csv",
			wantStatus: http.StatusOK, contains: "2020-01-01T00:00:00Z,2.67"},
		{name: "unknown route", method: http.MethodGet, target: "/api/nope", wantStatus: http.StatusNotFound},
		{name: "metrics", method: http.MethodGet, target: "/metrics", wantStatus: http.StatusOK, contains: "go_goroutines"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(a, tt.method, tt.target, tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.contains != "" {
				assert.Contains(t, rec.Body.String(), tt.contains)
			}
			assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
		})
	}
}

func TestApplication_StoredAfterAggregate(t *testing.T) {
	a := newTestApp(t, testConfig(t))

	rec := serve(a, http.MethodPost, "/api/series/aggregate", `{"file":"co2.txt","granularity":"monthly"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = serve(a, http.MethodGet, "/api/series", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Count int `json:"count"`
		Data  []struct {
			Name        string `json:"name"`
			Granularity string `json:"granularity"`
			PointCount  int    `json:"point_count"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, 1, body.Count)
	assert.Equal(t, "co2.txt", body.Data[0].Name)
	assert.Equal(t, "monthly", body.Data[0].Granularity)
	assert.Equal(t, 1, body.Data[0].PointCount)
}

func TestApplication_RateLimit(t *testing.T) {
	cfg := testConfig(t)
	cfg.RateLimit.RPS = 0.001
	cfg.RateLimit.Burst = 1
	a := newTestApp(t, cfg)

	assert.Equal(t, http.StatusOK, serve(a, http.MethodGet, "/api/series/files", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(a, http.MethodGet, "/api/series/files", "").Code)
	assert.Equal(t, http.StatusOK, serve(a, http.MethodGet, "/api/health", "").Code, "probes are not limited")
}

func TestApplication_StartStopWithWatcher(t *testing.T) {
	cfg := testConfig(t)
	cfg.Watch.Enabled = true
	cfg.Watch.Debounce = 50 * time.Millisecond
	a := newTestApp(t, cfg)
	a.Server.Addr = "127.0.0.1:0"

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, a.Start(ctx, cancel))

	testutil.WriteHourlyFile(t, cfg.Data.InputDir, "ch4.txt", hourlyRows...)

	sideFile := filepath.Join(cfg.Data.OutputDir, "daily", "ch4.txt.json")
	assert.Eventually(t, func() bool {
		_, err := os.Stat(sideFile)
		return err == nil
	}, 5*time.Second, 20*time.Millisecond)

	require.NoError(t, a.Stop(context.Background()))
	a.OTelProviders = nil
	a.Store = nil
}
