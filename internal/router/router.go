// Package router assembles the gin engine and the HTTP server around it.
package router

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"dev.httpmq.broker/internal/broker"
	"dev.httpmq.broker/internal/config"
	"dev.httpmq.broker/internal/handlers"
	"dev.httpmq.broker/internal/middleware"
	"dev.httpmq.broker/internal/observability"
	"dev.httpmq.broker/internal/observability/metrics"
)

// Dependencies carries the shared components the routes are built from.
type Dependencies struct {
	Broker    *broker.Broker
	Collector *metrics.Collector
	Limiter   *middleware.RateLimiter
	Logger    *logrus.Logger
}

// SetupRouter creates and configures the main HTTP router.
func SetupRouter(cfg *config.Config, deps Dependencies) *gin.Engine {
	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}

	r := gin.New()

	// Middleware
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	if cfg.Tracing.Exporter != "none" {
		r.Use(middleware.RequestTracing(observability.GetTracer()))
	}
	if cfg.Monitoring.Enabled && deps.Collector != nil {
		r.Use(middleware.RequestMetrics(deps.Collector))
	}

	// Message queue API
	api := r.Group("/api")
	if cfg.RateLimit.Enabled && deps.Limiter != nil {
		api.Use(deps.Limiter.Middleware())
	}
	handlers.RegisterSessionRoutes(api, handlers.NewSessionHandler(deps.Broker, deps.Collector, deps.Logger))
	handlers.RegisterMessageRoutes(api, handlers.NewMessageHandler(deps.Broker, cfg.Broker, deps.Collector, deps.Logger))

	// Admin routes sit behind the shared key
	admin := api.Group("/admin")
	admin.Use(middleware.AdminAuth(cfg.Admin.AuthKey))
	handlers.RegisterAdminRoutes(admin, handlers.NewAdminHandler(deps.Broker, deps.Logger))

	// Health check
	handlers.RegisterHealthRoutes(r, handlers.NewHealthHandler(deps.Broker))

	// Metrics endpoint
	if cfg.Monitoring.Enabled && deps.Collector != nil {
		r.GET(cfg.Monitoring.MetricsPath, gin.WrapH(deps.Collector.Handler()))
	}

	return r
}
