// Package middleware provides HTTP middleware for the broker's Gin-based API.
//
// # Admin Authentication
//
// Admin endpoints are guarded by a single shared key:
//
//	admin := api.Group("/admin")
//	admin.Use(middleware.AdminAuth(cfg.Admin.AuthKey))
//
// The key is accepted as the "key" query parameter, the Authorization
// header or the Auth-Key header. An empty configured key locks the admin
// surface entirely.
//
// # Rate Limiting
//
// Optional per-client token bucket limiting:
//
//	limiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
//	    RequestsPerMinute: 600,
//	    Burst:             50,
//	})
//	defer limiter.Close()
//
//	router.Use(limiter.Middleware())
//
// # Observability
//
// Request metrics and tracing hook into the shared collector and tracer:
//
//	router.Use(middleware.RequestMetrics(collector))
//	router.Use(middleware.RequestTracing(tracer))
package middleware
