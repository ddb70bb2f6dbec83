//go:build integration

package integration

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/jsamuelsen/request-scope-service/internal/adapters/http"
	"github.com/jsamuelsen/request-scope-service/internal/adapters/http/handlers"
	"github.com/jsamuelsen/request-scope-service/internal/app"
	"github.com/jsamuelsen/request-scope-service/internal/platform/config"
	"github.com/jsamuelsen/request-scope-service/internal/ports"
	"github.com/jsamuelsen/request-scope-service/internal/scope"
)

// startService wires the service the same way cmd/service does and serves it
// on a random local port. It returns the base URL.
func startService(t *testing.T, cfg *config.Config) string {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := prometheus.NewRegistry()

	counters, err := scope.NewCounterSource(cfg.Scope.CounterStrategy)
	require.NoError(t, err)

	dispatcher := app.NewDispatcher(app.DispatcherConfig{
		Counters:    counters,
		Observer:    scope.NewPrometheusObserver(reg),
		WorkerLocal: cfg.Scope.WorkerLocal,
		Logger:      logger,
	})

	pool, err := app.NewWorkerPool(app.WorkerPoolConfig{
		Size:       cfg.WorkerPool.Size,
		QueueSize:  cfg.WorkerPool.QueueSize,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pool.Close() })

	registry := ports.NewHealthRegistry(0)
	require.NoError(t, registry.Register(pool))
	require.NoError(t, registry.Register(dispatcher))

	orders := app.NewOrderService(app.OrderServiceConfig{Logger: logger})
	users := app.NewUserService(app.UserServiceConfig{Logger: logger})
	jobs := app.NewOrderJobs(app.OrderJobsConfig{Pool: pool, Orders: orders, Logger: logger})

	serverCfg := cfg.Server
	serverCfg.Host = "127.0.0.1"
	serverCfg.Port = 0

	server := httpadapter.New(&serverCfg, logger)

	routerCfg := httpadapter.NewDefaultRouterConfig(logger, cfg, dispatcher,
		handlers.NewHealthHandler(registry, handlers.NewBuildInfo("test", "none", "unknown"), reg))
	routerCfg.OrderHandler = handlers.NewOrderHandler(orders, jobs)
	routerCfg.UserHandler = handlers.NewUserHandler(users)
	httpadapter.SetupRouter(server.Engine(), routerCfg)

	_, err = server.Start()
	require.NoError(t, err)
	t.Cleanup(func() { _ = server.Shutdown(context.Background()) })

	return "http://" + server.Addr()
}

// loadConfig loads the test profile from defaults and APP_ variables.
func loadConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg, err := config.Load("test")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	return cfg
}
