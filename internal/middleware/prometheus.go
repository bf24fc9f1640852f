package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/qmsworks/qms/internal/metrics"
)

// PrometheusMiddleware records HTTP request duration and count per route
// pattern. Routes listed in skip are not observed; long-lived streams would
// otherwise dominate the duration histogram.
func PrometheusMiddleware(skip ...string) gin.HandlerFunc {
	skipped := make(map[string]struct{}, len(skip))
	for _, p := range skip {
		skipped[p] = struct{}{}
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath() // route pattern, not actual path
		if path == "" {
			path = "unmatched"
		}

		if _, ok := skipped[path]; ok {
			return
		}

		status := strconv.Itoa(c.Writer.Status())
		metrics.RequestDuration.WithLabelValues(c.Request.Method, path, status).Observe(time.Since(start).Seconds())
		metrics.RequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
	}
}
