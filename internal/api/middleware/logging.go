package middleware

import (
	"time"

	"github.com/bhandras/zkdash/internal/metrics"
	"github.com/bhandras/zkdash/pkg/logger"
	"github.com/gin-gonic/gin"
)

// LoggingMiddleware logs HTTP requests and records them in m. m may be nil.
func LoggingMiddleware(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		// Route templates keep the label set bounded.
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.RecordHTTPRequest(c.Request.Method, route, status, latency)

		if raw != "" {
			path = path + "?" + raw
		}
		logger.Debugf("[%s] %s - %d (%v)", c.Request.Method, path, status, latency)
	}
}
