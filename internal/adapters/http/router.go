package http

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/request-scope-service/internal/adapters/http/dto"
	"github.com/jsamuelsen/request-scope-service/internal/adapters/http/handlers"
	"github.com/jsamuelsen/request-scope-service/internal/adapters/http/middleware"
	"github.com/jsamuelsen/request-scope-service/internal/app"
	"github.com/jsamuelsen/request-scope-service/internal/platform/config"
	"github.com/jsamuelsen/request-scope-service/internal/platform/telemetry"
)

// DefaultRequestTimeout is the default timeout for API requests.
const DefaultRequestTimeout = 30 * time.Second

// RouterConfig contains configuration for setting up the router.
type RouterConfig struct {
	// Logger is the base request logger.
	Logger *slog.Logger

	// AppConfig contains application configuration.
	AppConfig *config.AppConfig

	// ScopeConfig names the identity headers read by the scope middleware.
	ScopeConfig *config.ScopeConfig

	// Dispatcher opens one unit of work per API request.
	Dispatcher *app.Dispatcher

	// HealthHandler handles the operational endpoints.
	HealthHandler *handlers.HealthHandler

	// OrderHandler and UserHandler serve the API. Nil handlers are skipped.
	OrderHandler *handlers.OrderHandler
	UserHandler  *handlers.UserHandler

	// Timeout is the API request deadline. Zero disables it.
	Timeout time.Duration
}

// SetupRouter configures all routes and middleware on the Gin engine.
// Global middleware, first to last:
//  1. Recovery - catch panics, seed the context logger
//  2. Request ID and Correlation ID
//  3. OpenTelemetry - tracing, trace id propagation and metrics
//  4. Logging - request logging (skips /-/ endpoints)
//
// Route groups:
//   - /-/ (internal): health, build info and metrics
//   - /api/v1/: business endpoints, each request run as one unit of work
//     after the timeout is applied
func SetupRouter(engine *gin.Engine, cfg RouterConfig) {
	engine.Use(
		middleware.Recovery(cfg.Logger),
		middleware.RequestID(),
		middleware.CorrelationID(),
		telemetry.TracingMiddleware(cfg.AppConfig.Name),
		telemetry.Middleware(),
		middleware.Logging(),
	)

	engine.NoRoute(func(c *gin.Context) {
		dto.AbortWithErrorCode(c, dto.ErrorCodeNotFound, "route not found")
	})

	if cfg.HealthHandler != nil {
		cfg.HealthHandler.RegisterHealthRoutesOnEngine(engine)
	}

	apiV1 := engine.Group("/api/v1")
	if cfg.Timeout > 0 {
		apiV1.Use(middleware.Timeout(cfg.Timeout))
	}

	apiV1.Use(middleware.Scope(cfg.ScopeConfig, cfg.Dispatcher))

	setupAPIRoutes(apiV1, cfg)
}

// setupAPIRoutes registers business API routes.
func setupAPIRoutes(rg *gin.RouterGroup, cfg RouterConfig) {
	if cfg.OrderHandler != nil {
		cfg.OrderHandler.RegisterOrderRoutes(rg)
	}

	if cfg.UserHandler != nil {
		cfg.UserHandler.RegisterUserRoutes(rg)
	}
}

// NewDefaultRouterConfig creates a RouterConfig with the default timeout.
func NewDefaultRouterConfig(
	logger *slog.Logger,
	cfg *config.Config,
	dispatcher *app.Dispatcher,
	healthHandler *handlers.HealthHandler,
) RouterConfig {
	return RouterConfig{
		Logger:        logger,
		AppConfig:     &cfg.App,
		ScopeConfig:   &cfg.Scope,
		Dispatcher:    dispatcher,
		HealthHandler: healthHandler,
		Timeout:       DefaultRequestTimeout,
	}
}
