package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	apierrors "labanalyzer/internal/errors"
	"labanalyzer/internal/infrastructure"
	"labanalyzer/internal/middleware"
)

// RouterConfig holds everything the router mounts. Nil handlers leave their
// routes unmounted.
type RouterConfig struct {
	Analysis AnalysisService
	Health   HealthChecker

	// WebSocket serves /ws; Metrics serves /metrics
	WebSocket http.Handler
	Metrics   http.Handler

	HTTPMetrics    *infrastructure.AnalysisMetrics
	AllowedOrigins []string
	APIKeys        map[string]string
	RateLimitRPS   float64 // zero disables rate limiting
	RateLimitBurst int
	RequestTimeout time.Duration

	Logger       *slog.Logger
	ErrorHandler *apierrors.ErrorHandler
}

// NewRouter builds the HTTP API
func NewRouter(cfg RouterConfig) chi.Router {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	errorHandler := cfg.ErrorHandler
	if errorHandler == nil {
		errorHandler = apierrors.NewErrorHandler(logger, false)
	}

	r := chi.NewRouter()

	// Request ID first so every later middleware logs it
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.NewOTelMiddleware(nil, cfg.HTTPMetrics, logger).Handler)
	r.Use(middleware.StructuredLogger(logger))
	r.Use(apierrors.RecoveryMiddleware(errorHandler))
	r.Use(middleware.StripSlashes)
	r.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedHeaders: []string{"Accept", "Content-Type", middleware.RequestIDHeader, middleware.APIKeyHeader},
		Logger:         logger,
	}))
	r.Use(middleware.SecurityHeaders)

	r.NotFound(errorHandler.NotFound)
	r.MethodNotAllowed(errorHandler.MethodNotAllowed)

	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics)
	}
	if cfg.WebSocket != nil {
		r.With(middleware.WebSocketTraceMiddleware(logger)).Handle("/ws", cfg.WebSocket)
	}

	validator := middleware.NewValidator(logger)

	r.Route("/api", func(r chi.Router) {
		if cfg.RateLimitRPS > 0 {
			r.Use(middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, logger, errorHandler).Handler)
		}
		if cfg.RequestTimeout > 0 {
			r.Use(middleware.Timeout(cfg.RequestTimeout, logger, errorHandler))
		}
		r.Use(middleware.APIKeyAuth(logger, errorHandler, cfg.APIKeys))
		r.Use(middleware.AuditLog(logger))
		r.Use(middleware.ContentTypeValidator(errorHandler, "application/json"))
		r.Use(middleware.Compress(5))

		if cfg.Health != nil {
			health := NewHealthHandler(cfg.Health, logger)
			r.Get("/health", health.HealthCheck)
			r.Get("/version", health.Version)
		}

		r.Post("/logs", NewClientLogHandler(validator, logger, errorHandler).Handle)

		if cfg.Analysis != nil {
			r.Mount("/experiments", NewExperimentHandler(cfg.Analysis, logger, errorHandler).Routes())
			r.Mount("/sessions", NewSessionHandler(cfg.Analysis, validator, logger, errorHandler).Routes())
		}
	})

	return r
}
