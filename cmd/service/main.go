// Package main is the entry point for the service.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jsamuelsen/request-scope-service/internal/adapters/http"
	"github.com/jsamuelsen/request-scope-service/internal/adapters/http/handlers"
	"github.com/jsamuelsen/request-scope-service/internal/app"
	"github.com/jsamuelsen/request-scope-service/internal/platform/config"
	"github.com/jsamuelsen/request-scope-service/internal/platform/logging"
	"github.com/jsamuelsen/request-scope-service/internal/platform/telemetry"
	"github.com/jsamuelsen/request-scope-service/internal/ports"
	"github.com/jsamuelsen/request-scope-service/internal/scope"
)

// Build-time variables, injected via ldflags.
// Example: go build -ldflags "-X main.Version=1.0.0 -X main.Commit=$(git rev-parse HEAD) -X main.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
var (
	// Version is the semantic version of the service.
	Version = "dev"

	// Commit is the git commit SHA.
	Commit = "unknown"

	// BuildTime is the timestamp when the binary was built.
	BuildTime = "unknown"
)

// healthCheckTimeout bounds each readiness check.
const healthCheckTimeout = 2 * time.Second

// newLogger builds the service logger and installs it as the fallback for
// contexts that carry none.
func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	logger := logging.NewWithWriter(&logging.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Service: cfg.App.Name,
		Version: cfg.App.Version,
		File: logging.FileConfig{
			Enabled:    cfg.Log.File.Enabled,
			Path:       cfg.Log.File.Path,
			MaxSizeMB:  cfg.Log.File.MaxSizeMB,
			MaxBackups: cfg.Log.File.MaxBackups,
			MaxAgeDays: cfg.Log.File.MaxAgeDays,
			Compress:   cfg.Log.File.Compress,
		},
	}, w)
	logging.SetDefault(logger)

	return logger
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	// 1. Determine profile from environment
	profile := os.Getenv("APP_ENVIRONMENT")
	if profile == "" {
		profile = "local"
	}

	// 2. Load and validate configuration (fail fast)
	cfg, err := config.Load(profile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// 3. Initialize logging
	logger := newLogger(cfg, os.Stdout)

	logger.Info("starting service",
		slog.String("version", Version),
		slog.String("commit", Commit),
		slog.String("environment", cfg.App.Environment),
	)

	// 4. Initialize telemetry (noop if disabled)
	telProvider, err := telemetry.New(ctx, &telemetry.Config{
		Enabled:      cfg.Telemetry.Enabled,
		Endpoint:     cfg.Telemetry.Endpoint,
		ServiceName:  cfg.Telemetry.ServiceName,
		Version:      cfg.App.Version,
		Environment:  cfg.App.Environment,
		SamplingRate: cfg.Telemetry.SamplingRate,
		Insecure:     cfg.Telemetry.Insecure,
	})
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}

	defer func() {
		if shutdownErr := telProvider.Shutdown(ctx); shutdownErr != nil {
			logger.Error("telemetry shutdown error", slog.Any("error", shutdownErr))
		}
	}()

	// 5. Create the unit-of-work dispatcher
	counters, err := scope.NewCounterSource(cfg.Scope.CounterStrategy)
	if err != nil {
		return fmt.Errorf("creating counter source: %w", err)
	}

	dispatcher := app.NewDispatcher(app.DispatcherConfig{
		Counters:    counters,
		Observer:    scope.NewPrometheusObserver(prometheus.DefaultRegisterer),
		WorkerLocal: cfg.Scope.WorkerLocal,
		Tracer:      telProvider.Tracer("github.com/jsamuelsen/request-scope-service/internal/app"),
		Logger:      logger,
	})

	// 6. Create the background worker pool
	pool, err := app.NewWorkerPool(app.WorkerPoolConfig{
		Size:       cfg.WorkerPool.Size,
		QueueSize:  cfg.WorkerPool.QueueSize,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("creating worker pool: %w", err)
	}

	defer func() {
		if closeErr := pool.Close(); closeErr != nil {
			logger.Error("worker pool shutdown error", slog.Any("error", closeErr))
		}
	}()

	// 7. Create health registry
	healthRegistry := ports.NewHealthRegistry(healthCheckTimeout)

	for _, checker := range []ports.HealthChecker{pool, dispatcher} {
		if err := healthRegistry.Register(checker); err != nil {
			return fmt.Errorf("registering health check: %w", err)
		}
	}

	// 8. Create application services
	orderService := app.NewOrderService(app.OrderServiceConfig{Logger: logger})
	userService := app.NewUserService(app.UserServiceConfig{Logger: logger})
	orderJobs := app.NewOrderJobs(app.OrderJobsConfig{
		Pool:   pool,
		Orders: orderService,
		Logger: logger,
	})

	// 9. Create handlers
	buildInfo := handlers.NewBuildInfo(Version, Commit, BuildTime)
	healthHandler := handlers.NewHealthHandler(healthRegistry, buildInfo, prometheus.DefaultGatherer)

	// 10. Create HTTP server
	server := http.New(&cfg.Server, logger)

	// 11. Setup router with all middleware and routes
	routerCfg := http.NewDefaultRouterConfig(logger, cfg, dispatcher, healthHandler)
	routerCfg.OrderHandler = handlers.NewOrderHandler(orderService, orderJobs)
	routerCfg.UserHandler = handlers.NewUserHandler(userService)
	http.SetupRouter(server.Engine(), routerCfg)

	// 12. Start server (non-blocking)
	serverErr, err := server.Start()
	if err != nil {
		return fmt.Errorf("starting server: %w", err)
	}

	// 13. Wait for shutdown signal
	return waitForShutdown(ctx, logger, server, serverErr, cfg.Server.ShutdownTimeout)
}

// waitForShutdown blocks until a shutdown signal is received or server error occurs.
// It then performs graceful shutdown of the HTTP server.
func waitForShutdown(
	ctx context.Context,
	logger *slog.Logger,
	server *http.Server,
	serverErr <-chan error,
	shutdownTimeout time.Duration,
) error {
	// Listen for OS signals
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		// Server error during startup or runtime
		return fmt.Errorf("server error: %w", err)

	case sig := <-quit:
		logger.Info("received shutdown signal", slog.String("signal", sig.String()))
	}

	// Create shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	// Graceful shutdown sequence
	logger.Info("initiating graceful shutdown",
		slog.Duration("timeout", shutdownTimeout),
	)

	// Stop accepting new requests, drain in-flight units of work.
	// The worker pool is closed by run once this returns.
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("shutdown complete")

	return nil
}
