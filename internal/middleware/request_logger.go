package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/irfndi/electricity-price-prediction/internal/logging"
	"github.com/irfndi/electricity-price-prediction/internal/metrics"
)

// RequestLogger writes one access log line per request and feeds the HTTP
// metrics. Either argument may be nil.
func RequestLogger(logger *logging.StandardLogger, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start)
		status := c.Writer.Status()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.ObserveHTTPRequest(c.Request.Method, route, strconv.Itoa(status), duration)

		if logger != nil {
			logger.LogAPIRequest(c.Request.Method, c.Request.URL.Path, status, duration.Milliseconds(), GetRequestID(c))
		}
	}
}
