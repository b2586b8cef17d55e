package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/library-catalog-api/internal/service"
)

// unmatchedRoute labels requests that hit no route so probes cannot inflate label cardinality.
const unmatchedRoute = "unmatched"

// Metrics records method, route template, status and latency for every request.
func Metrics(metrics *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metrics == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		metrics.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
