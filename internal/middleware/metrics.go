package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/capdev-portal-api/internal/service"
)

// unmatchedRoute labels 404s so scanners cannot explode label cardinality.
const unmatchedRoute = "unmatched"

// Metrics records one observation per request, labelled by route template.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
