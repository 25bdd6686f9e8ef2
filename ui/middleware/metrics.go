package middleware

import (
	"time"

	"deview/internal/metrics"

	"github.com/gin-gonic/gin"
)

// RequestMetrics records the status and latency of every request by route
// template. Unmatched paths are reported as "unmatched".
func RequestMetrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.ObserveRequest(route, c.Writer.Status(), time.Since(start))
	}
}
