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
	"sync"
	"syscall"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"labanalyzer/internal/analysis"
	"labanalyzer/internal/config"
	apierrors "labanalyzer/internal/errors"
	"labanalyzer/internal/exporter"
	"labanalyzer/internal/infrastructure"
	"labanalyzer/internal/repository"
	"labanalyzer/internal/services"
	handlers "labanalyzer/internal/transport/http"
	ws "labanalyzer/internal/websocket"
	"labanalyzer/pkg/contracts"
)

const (
	// How often expired sessions are swept
	janitorInterval = time.Minute

	// How often runtime gauges are sampled
	systemMetricsInterval = 15 * time.Second
)

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Paths         *config.Paths
	Logger        *slog.Logger
	Store         *repository.Store
	Analysis      *services.AnalysisService
	Health        *services.HealthService
	WebSocketHub  *ws.Hub
	Router        http.Handler
	Server        *http.Server
	OTelProviders *infrastructure.OTelProviders

	systemMetrics *infrastructure.SystemMetrics
	started       time.Time
	stopOnce      sync.Once
}

// NewApplication wires every component from cfg. The database is opened
// here; call Stop to release it. On error everything opened so far is
// released.
func NewApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *Application, err error) {
	if logger == nil {
		logger = slog.Default()
	}

	paths, err := config.GetPaths(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to get paths: %w", err)
	}
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}
	paths.LogPathResolution(logger)

	a := &Application{
		Config:  cfg,
		Paths:   paths,
		Logger:  logger,
		started: time.Now(),
	}

	// A private registry keeps /metrics limited to this application's collectors
	otelCfg := infrastructure.DefaultOTelConfig()
	otelCfg.Registry = prom.NewRegistry()
	a.OTelProviders, err = infrastructure.InitializeOTel(otelCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}
	defer func() {
		if err == nil {
			return
		}
		if shutdownErr := a.OTelProviders.Shutdown(context.WithoutCancel(ctx)); shutdownErr != nil {
			logger.Warn("failed to shut down OpenTelemetry after startup error",
				slog.String("error", shutdownErr.Error()))
		}
	}()

	analysisMetrics, err := infrastructure.CreateAnalysisMetrics(a.OTelProviders.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create analysis metrics: %w", err)
	}
	wsMetrics, err := ws.NewMetrics(a.OTelProviders.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create websocket metrics: %w", err)
	}
	a.systemMetrics, err = infrastructure.NewSystemMetrics(a.OTelProviders.Meter, a.started)
	if err != nil {
		return nil, fmt.Errorf("failed to create system metrics: %w", err)
	}

	dbPath := paths.DatabaseFile
	if cfg.Database.File == repository.MemoryPath {
		dbPath = repository.MemoryPath
	}
	a.Store, err = repository.Open(ctx, dbPath, repository.Options{
		BusyRetries:  cfg.Database.BusyRetries,
		RetryBackoff: cfg.Database.RetryBackoff,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open experiment database: %w", err)
	}

	a.WebSocketHub = ws.NewHub(logger, wsMetrics)

	a.Analysis, err = services.NewAnalysisService(a.Store, a.WebSocketHub, analysisMetrics,
		exporter.NewCSVWriter(paths, logger),
		services.Options{
			Session: analysis.SessionConfig{
				ControlMarker: cfg.Analysis.ControlMarker,
				StartTime:     cfg.Analysis.StartTime,
				EndTime:       cfg.Analysis.EndTime,
			},
			SessionTTL: cfg.Analysis.SessionTTL,
		}, logger)
	if err != nil {
		a.Store.Close()
		return nil, fmt.Errorf("failed to create analysis service: %w", err)
	}

	a.Health = services.NewHealthService(a.Store, a.WebSocketHub, a.Analysis, logger)

	rateRPS := 0.0
	if cfg.Security.RateLimit.Enabled {
		rateRPS = cfg.Security.RateLimit.RPS
	}
	a.Router = handlers.NewRouter(handlers.RouterConfig{
		Analysis: a.Analysis,
		Health:   a.Health,
		WebSocket: ws.NewHandler(a.WebSocketHub, ws.HandlerConfig{
			AllowedOrigins:  cfg.Security.AllowedOrigins,
			ReadBufferSize:  cfg.WebSocket.ReadBufferSize,
			WriteBufferSize: cfg.WebSocket.WriteBufferSize,
			PingPeriod:      cfg.WebSocket.PingPeriod,
			PongWait:        cfg.WebSocket.PongWait,
		}, logger),
		Metrics:        a.OTelProviders.PrometheusHTTP,
		HTTPMetrics:    analysisMetrics,
		AllowedOrigins: cfg.Security.AllowedOrigins,
		APIKeys:        cfg.Security.APIKeys,
		RateLimitRPS:   rateRPS,
		RateLimitBurst: cfg.Security.RateLimit.Burst,
		RequestTimeout: cfg.Server.RequestTimeout,
		Logger:         logger,
		ErrorHandler:   apierrors.NewErrorHandler(logger, false),
	})

	a.Server = &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        a.Router,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	return a, nil
}

// Serve runs the HTTP server on ln and the background workers until ctx is
// done or the server fails, then shuts everything down
func (a *Application) Serve(ctx context.Context, ln net.Listener) error {
	a.Logger.InfoContext(ctx, "Starting application",
		slog.String("version", contracts.Version),
		slog.String("address", ln.Addr().String()),
		slog.String("database", a.Paths.DatabaseFile))

	a.WebSocketHub.Start()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := a.Server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		a.Analysis.RunJanitor(gctx, janitorInterval)
		return nil
	})
	g.Go(func() error {
		a.collectSystemMetrics(gctx)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
		defer cancel()
		return a.Stop(shutdownCtx)
	})

	if err := a.startupCheck(ctx); err != nil {
		a.Logger.WarnContext(ctx, "Startup health check warnings", slog.String("warnings", err.Error()))
	}

	return g.Wait()
}

// Run listens on the configured port and serves until SIGINT or SIGTERM
func (a *Application) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", a.Server.Addr)
	if err != nil {
		a.Store.Close()
		return fmt.Errorf("failed to listen on %s: %w", a.Server.Addr, err)
	}
	return a.Serve(ctx, ln)
}

// Stop gracefully stops the application. It is safe to call more than once.
func (a *Application) Stop(ctx context.Context) error {
	var errs []error
	a.stopOnce.Do(func() {
		a.Logger.InfoContext(ctx, "Shutting down application")

		if err := a.Server.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("server shutdown: %w", err))
		}
		a.WebSocketHub.Stop()

		if err := a.Store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
		if err := a.OTelProviders.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}

		a.Logger.InfoContext(ctx, "Application shutdown complete",
			slog.Duration("uptime", time.Since(a.started)))
	})
	return errors.Join(errs...)
}

func (a *Application) collectSystemMetrics(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		a.systemMetrics.Collect(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// startupCheck verifies the export directory is writable and the database answers
func (a *Application) startupCheck(ctx context.Context) error {
	var warnings []error

	tmp, err := os.CreateTemp(a.Paths.ExportsDir, ".write_test")
	if err != nil {
		warnings = append(warnings, fmt.Errorf("exports directory not writable: %s", a.Paths.ExportsDir))
	} else {
		tmp.Close()
		os.Remove(tmp.Name())
	}

	if err := a.Store.Ping(ctx); err != nil {
		warnings = append(warnings, fmt.Errorf("database ping: %w", err))
	}

	if len(warnings) > 0 {
		return errors.Join(warnings...)
	}
	a.Logger.InfoContext(ctx, "Startup health check passed")
	return nil
}
