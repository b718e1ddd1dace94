package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/orthoatlas/orthoatlas/internal/infrastructure/monitoring/prometheus"
)

// Metrics records request count, latency, response size and in-flight
// gauge per route.  The route label uses the gin route pattern
// (e.g. /api/v1/orthologues/:gene) so path parameters do not explode
// label cardinality.
func Metrics(m *prometheus.AppMetrics) gin.HandlerFunc {
	if m == nil {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		method := c.Request.Method
		m.HTTPActiveRequests.WithLabelValues(method).Inc()
		start := time.Now()

		c.Next()

		m.HTTPActiveRequests.WithLabelValues(method).Dec()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		size := int64(c.Writer.Size())
		if size < 0 {
			size = 0
		}
		prometheus.RecordHTTPRequest(m, method, route, c.Writer.Status(), time.Since(start), size)
	}
}
