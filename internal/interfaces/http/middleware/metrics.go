package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/MedRecord-NER/internal/infrastructure/monitoring/prometheus"
)

// Metrics records request count, latency and in-flight requests.  Paths are
// labelled by route template so that label cardinality stays bounded.
func Metrics(m *prometheus.AppMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		method := c.Request.Method
		active := m.HTTPActiveRequests.WithLabelValues(method)
		active.Inc()
		defer active.Dec()

		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		prometheus.RecordHTTPRequest(m, method, route, c.Writer.Status(), time.Since(start))
	}
}

//Personal.AI order the ending
