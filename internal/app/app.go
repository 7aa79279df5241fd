package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"github.com/keyaloding/nasa-space-apps/internal/config"
	apierrors "github.com/keyaloding/nasa-space-apps/internal/errors"
	"github.com/keyaloding/nasa-space-apps/internal/files"
	"github.com/keyaloding/nasa-space-apps/internal/infrastructure"
	custommw "github.com/keyaloding/nasa-space-apps/internal/middleware"
	"github.com/keyaloding/nasa-space-apps/internal/services"
	"github.com/keyaloding/nasa-space-apps/internal/store"
	"github.com/keyaloding/nasa-space-apps/internal/timeseries"
	handlers "github.com/keyaloding/nasa-space-apps/internal/transport/http"
	"github.com/keyaloding/nasa-space-apps/internal/watcher"
	"github.com/keyaloding/nasa-space-apps/pkg/contracts"
)

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Router        *chi.Mux
	Server        *http.Server
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Metrics       *infrastructure.SeriesMetrics
	Store         *store.Store
	SeriesService *services.SeriesService
	HealthService *services.HealthService
	Watcher       *watcher.Watcher

	errorHandler *apierrors.ErrorHandler
}

// NewApplication loads configuration and the global logger, then wires the
// application.
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return New(context.Background(), cfg, logger)
}

// New wires an application from an explicit configuration.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Application, error) {
	logger.InfoContext(ctx, "Application starting",
		slog.String("name", config.AppName),
		slog.String("version", contracts.Version))

	otelProviders, err := infrastructure.InitializeOTel(cfg.Observability, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	metrics, err := infrastructure.NewSeriesMetrics(otelProviders.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: otelProviders,
		Metrics:       metrics,
		errorHandler:  apierrors.NewErrorHandler(logger, cfg.Observability.Environment == "development"),
	}

	if err := app.initializeServices(ctx); err != nil {
		app.close(ctx)
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.setupRouter()
	app.createServer()
	return app, nil
}

// initializeServices opens the store and builds the services and the watcher.
func (a *Application) initializeServices(ctx context.Context) error {
	st, err := store.Open(ctx, a.Config.Data.StorePath)
	if err != nil {
		return fmt.Errorf("failed to open series store: %w", err)
	}
	a.Store = st

	aggregator := timeseries.New(
		timeseries.WithLogger(a.Logger),
		timeseries.WithTracer(a.OTelProviders.Tracer),
	)
	discovery := files.NewDiscovery(a.Config.Data.InputDir, config.InputFileExt)

	a.SeriesService = services.NewSeriesService(aggregator, discovery, st, a.Metrics, services.SeriesOptions{
		CacheEntries:     a.Config.Data.CacheEntries,
		BatchConcurrency: a.Config.Data.BatchConcurrency,
		MaxBatchFiles:    a.Config.Data.MaxBatchFiles,
		OutputDir:        a.Config.Data.OutputDir,
	}, a.Logger)
	a.HealthService = services.NewHealthService(st, a.Config.Data.InputDir, a.Logger)

	if a.Config.Watch.Enabled {
		w, err := watcher.New(a.Config.Data.InputDir, config.InputFileExt, a.Config.Watch.Debounce,
			a.SeriesService, a.Metrics, a.Logger)
		if err != nil {
			return fmt.Errorf("failed to create watcher: %w", err)
		}
		a.Watcher = w
	}
	return nil
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	// Order: RequestID, RealIP, OTel, Logger, Recoverer, then the rest.
	r.Use(custommw.RequestID)
	r.Use(middleware.RealIP)
	r.Use(custommw.OTel(a.OTelProviders.Tracer, a.Metrics))
	r.Use(custommw.StructuredLogger(a.Logger))
	r.Use(custommw.Recoverer(a.errorHandler))
	r.Use(custommw.SecurityHeaders)
	r.Use(custommw.CORS(custommw.CORSConfig{AllowedOrigins: a.Config.Server.AllowedOrigins}))

	r.NotFound(a.errorHandler.NotFound)
	r.MethodNotAllowed(a.errorHandler.MethodNotAllowed)

	a.setupAPIRoutes(r)

	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	a.Router = r
}

// setupAPIRoutes configures API endpoints
func (a *Application) setupAPIRoutes(r chi.Router) {
	healthHandler := handlers.NewHealthHandler(a.HealthService, a.Logger)
	seriesHandler := handlers.NewSeriesHandler(a.SeriesService, custommw.NewValidator(), a.Logger, a.errorHandler)

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))

		// Probes stay outside rate limiting.
		r.Get("/health", healthHandler.HealthCheck)
		r.Get("/health/ready", healthHandler.ReadinessCheck)
		r.Get("/health/live", healthHandler.LivenessCheck)
		r.Get("/version", healthHandler.Version)

		r.Group(func(r chi.Router) {
			if a.Config.RateLimit.Enabled {
				r.Use(custommw.NewRateLimiter(
					a.Config.RateLimit.RPS,
					a.Config.RateLimit.Burst,
					a.errorHandler,
					a.Logger,
				).Handler)
			}
			r.Use(custommw.Timeout(a.Config.Server.RequestTimeout))
			r.Mount("/series", seriesHandler.Routes())
		})
	})
}

func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:         a.Config.Server.Addr(),
		Handler:      a.Router,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
		IdleTimeout:  a.Config.Server.IdleTimeout,
	}
}

// Start starts the watcher and the HTTP server. A listener error after
// startup calls cancel so Run can shut down.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "Starting application",
		slog.String("address", a.Server.Addr),
		slog.String("input_dir", a.Config.Data.InputDir),
		slog.String("store", a.Config.Data.StorePath),
		slog.Bool("watch", a.Watcher != nil))

	if a.Watcher != nil {
		if err := a.Watcher.Start(ctx); err != nil {
			return fmt.Errorf("failed to start watcher: %w", err)
		}
	}

	ln, err := net.Listen("tcp", a.Server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.Server.Addr, err)
	}

	go func() {
		if err := a.Server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	a.performStartupHealthCheck(ctx)
	a.Logger.InfoContext(ctx, "Application started successfully",
		slog.String("address", ln.Addr().String()))
	return nil
}

// performStartupHealthCheck logs dependencies that are not ready yet. The
// server keeps running; readiness probes report the same state.
func (a *Application) performStartupHealthCheck(ctx context.Context) {
	status := a.HealthService.ReadinessCheck(ctx)
	if status.Status == "ready" {
		return
	}
	for name, svc := range status.Services {
		if svc.Status != "healthy" {
			a.Logger.WarnContext(ctx, "Startup health check warning",
				slog.String("service", name),
				slog.String("message", svc.Message))
		}
	}
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
	}
	if err := a.close(shutdownCtx); err != nil {
		errs = append(errs, err)
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return errors.Join(errs...)
}

// close releases everything but the HTTP server.
func (a *Application) close(ctx context.Context) error {
	var errs []error
	if a.Watcher != nil {
		a.Watcher.Stop()
	}
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("store close error: %w", err))
		}
	}
	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("opentelemetry shutdown error: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Run runs the application until interrupted
func (a *Application) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Start(ctx, stop); err != nil {
		a.close(context.Background())
		return err
	}

	<-ctx.Done()
	a.Logger.Info("Received shutdown signal")

	return a.Stop(context.Background())
}
