package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"dev.httpmq.broker/internal/observability/metrics"
)

// RequestMetrics records the duration of every request into the collector,
// labelled by method, matched route and status code.
func RequestMetrics(collector *metrics.Collector) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			// Unrouted requests share one label to keep cardinality flat.
			endpoint = "unmatched"
		}
		collector.RequestDuration.WithLabelValues(
			c.Request.Method,
			endpoint,
			strconv.Itoa(c.Writer.Status()),
		).Observe(time.Since(start).Seconds())
	}
}
