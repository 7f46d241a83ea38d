package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/acadops-api/internal/service"
)

const unmatchedRoute = "unmatched"

// opsRoutes are polled by orchestrators and scrapers and would drown the latency histograms.
var opsRoutes = map[string]struct{}{
	"/health":  {},
	"/ready":   {},
	"/metrics": {},
}

// Metrics records request latency per route template. Requests that matched no route share one
// label so arbitrary URLs cannot grow the series count.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if _, skip := opsRoutes[route]; skip {
			return
		}
		if route == "" {
			route = unmatchedRoute
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
