package services

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/keyaloding/nasa-space-apps/pkg/contracts"
)

// Pinger is anything whose reachability can be checked.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthService provides health check functionality
type HealthService struct {
	store     Pinger
	inputDir  string
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                   `json:"status"`
	Timestamp time.Time                `json:"timestamp"`
	Version   string                   `json:"version"`
	Runtime   map[string]interface{}   `json:"runtime,omitempty"`
	Services  map[string]ServiceHealth `json:"services,omitempty"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// NewHealthService creates a health service checking the store and input directory.
func NewHealthService(st Pinger, inputDir string, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthService{
		store:     st,
		inputDir:  inputDir,
		startTime: time.Now(),
		logger:    logger.With(slog.String("component", "health_service")),
	}
}

// HealthCheck returns overall health status
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   contracts.Version,
		Runtime: map[string]interface{}{
			"uptime_seconds": time.Since(hs.startTime).Seconds(),
			"goroutines":     runtime.NumGoroutine(),
			"go_version":     runtime.Version(),
		},
	}
}

// ReadinessCheck reports "ready" only when the store answers and the input
// directory exists.
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ready",
		Timestamp: time.Now(),
		Version:   contracts.Version,
		Services:  map[string]ServiceHealth{},
	}

	storeHealth := ServiceHealth{Status: "healthy"}
	if hs.store == nil {
		storeHealth = ServiceHealth{Status: "unhealthy", Message: "store not configured"}
	} else if err := hs.store.Ping(ctx); err != nil {
		storeHealth = ServiceHealth{Status: "unhealthy", Message: err.Error()}
	}
	status.Services["store"] = storeHealth

	inputHealth := ServiceHealth{Status: "healthy"}
	if info, err := os.Stat(hs.inputDir); err != nil {
		inputHealth = ServiceHealth{Status: "unhealthy", Message: err.Error()}
	} else if !info.IsDir() {
		inputHealth = ServiceHealth{Status: "unhealthy", Message: "not a directory"}
	}
	status.Services["input_dir"] = inputHealth

	for name, svc := range status.Services {
		if svc.Status != "healthy" {
			status.Status = "not_ready"
			hs.logger.WarnContext(ctx, "readiness check failed",
				slog.String("service", name),
				slog.String("message", svc.Message))
		}
	}
	return status
}

// LivenessCheck returns liveness status
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "alive",
		Timestamp: time.Now(),
		Version:   contracts.Version,
	}
}

// Version returns build information.
func (hs *HealthService) Version() contracts.VersionInfo {
	return contracts.GetVersionInfo()
}
