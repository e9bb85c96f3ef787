package router // package router defines how HTTP routes are registered for the API

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/facts-api/internal/config"
	"github.com/iliyamo/facts-api/internal/handler"
	"github.com/iliyamo/facts-api/internal/middleware"
)

// Deps carries everything the routes need.  Redis may be nil, which turns
// rate limiting and response caching into pass-through.
type Deps struct {
	Facts     *handler.FactHandler
	Health    *handler.HealthHandler
	Redis     *redis.Client
	RateLimit config.RateLimitConfig
	Cache     config.CacheConfig
	Logger    *zap.Logger
}

// UseDefaults installs the process-wide error boundary and the middleware
// shared by every route.
func UseDefaults(e *echo.Echo, logger *zap.Logger, corsOrigins []string) {
	e.HTTPErrorHandler = handler.ErrorHandler(logger)

	// Slashless API paths redirect: /api/facts -> 301 /api/facts/.
	e.Pre(echomw.AddTrailingSlashWithConfig(echomw.TrailingSlashConfig{
		RedirectCode: http.StatusMovedPermanently,
		Skipper: func(c echo.Context) bool {
			return !strings.HasPrefix(c.Request().URL.Path, "/api/")
		},
	}))

	e.Use(middleware.RequestLogger(logger))
	e.Use(echomw.RecoverWithConfig(echomw.RecoverConfig{
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			logger.Error("panic recovered", zap.Error(err), zap.ByteString("stack", stack))
			return err
		},
	}))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: corsOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodHead, http.MethodOptions},
	}))
}

// RegisterRoutes maps the public API.  Only the facts route is cached: the
// health check must probe the database on every call.
func RegisterRoutes(e *echo.Echo, d Deps) {
	// Liveness only; /api/health/ is the dependency-aware check.
	e.GET("/healthz", handler.Liveness)

	limit := middleware.NewTokenBucket(d.RateLimit, d.Redis, d.Logger)

	// Route-level middleware keeps unknown /api paths a plain 404.
	api := e.Group("/api")
	api.GET("/facts/", d.Facts.List, limit, middleware.NewRedisCache(d.Cache, d.Redis, d.Logger))
	api.GET("/health/", d.Health.Health, limit)
}
