package middleware

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"

	"dev.httpmq.broker/internal/observability"
)

// RequestTracing opens a span per request and threads the span context into
// the request, so handlers below can attach broker attributes to it.
func RequestTracing(tracer *observability.BrokerTracer) gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}

		ctx, span := tracer.StartOperation(c.Request.Context(),
			c.Request.Method+" "+route,
			attribute.String("http.method", c.Request.Method),
			attribute.String("http.route", route),
		)
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		span.SetAttributes(attribute.Int("http.status_code", c.Writer.Status()))
		var err error
		if len(c.Errors) > 0 {
			err = c.Errors.Last()
		}
		tracer.EndOperation(ctx, span, err)
	}
}
