package middleware

import (
	"github.com/gin-gonic/gin"

	"spec-registry-service/internal/metrics"
)

// Metrics counts requests by route template, not raw path, to keep label
// cardinality bounded.
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.ObserveRequest(c.Request.Method, path, c.Writer.Status())
	}
}
