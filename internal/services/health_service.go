package services

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"labanalyzer/pkg/contracts"
)

// Pinger checks that a backing store answers
type Pinger interface {
	Ping(ctx context.Context) error
}

// ClientCounter reports connected event stream clients
type ClientCounter interface {
	ClientCount() int
}

// SessionCounter reports open analysis sessions
type SessionCounter interface {
	SessionCount() int
}

// HealthService provides health check functionality
type HealthService struct {
	version   contracts.VersionInfo
	database  Pinger
	hub       ClientCounter
	sessions  SessionCounter
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

// NewHealthService creates a health service. Any dependency may be nil and
// is then reported as disabled.
func NewHealthService(database Pinger, hub ClientCounter, sessions SessionCounter, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	version := contracts.GetVersionInfo()

	logger.Info("HealthService initialized",
		slog.String("version", version.Version),
		slog.String("build_time", version.BuildTime))

	return &HealthService{
		version:   version,
		database:  database,
		hub:       hub,
		sessions:  sessions,
		startTime: time.Now(),
		logger:    logger.With(slog.String("component", "health_service")),
	}
}

// HealthCheck reports liveness and the state of each dependency. The
// overall status is "degraded" when the database does not answer.
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
		Version:   hs.version.Version,
		Runtime: map[string]interface{}{
			"uptime_seconds": time.Since(hs.startTime).Seconds(),
			"go_version":     runtime.Version(),
			"goroutines":     runtime.NumGoroutine(),
		},
		Services: map[string]ServiceHealth{
			"database":  hs.checkDatabase(ctx),
			"websocket": hs.checkWebSocket(),
			"sessions":  hs.checkSessions(),
		},
	}

	if status.Services["database"].Status == "error" {
		status.Status = "degraded"
		hs.logger.WarnContext(ctx, "health check degraded",
			slog.String("database", status.Services["database"].Message))
	}
	return status
}

// Version returns version information
func (hs *HealthService) Version() contracts.VersionInfo {
	return hs.version
}

func (hs *HealthService) checkDatabase(ctx context.Context) ServiceHealth {
	if hs.database == nil {
		return ServiceHealth{Status: "disabled"}
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := hs.database.Ping(ctx); err != nil {
		return ServiceHealth{Status: "error", Message: err.Error()}
	}
	return ServiceHealth{Status: "ok"}
}

func (hs *HealthService) checkWebSocket() ServiceHealth {
	if hs.hub == nil {
		return ServiceHealth{Status: "disabled"}
	}
	return ServiceHealth{Status: "ok", Message: fmt.Sprintf("%d clients", hs.hub.ClientCount())}
}

func (hs *HealthService) checkSessions() ServiceHealth {
	if hs.sessions == nil {
		return ServiceHealth{Status: "disabled"}
	}
	return ServiceHealth{Status: "ok", Message: fmt.Sprintf("%d open", hs.sessions.SessionCount())}
}
