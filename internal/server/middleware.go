package server

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hookbill/hookbill/internal/observability/metrics"
	"go.uber.org/zap"
)

// AccessLogMiddleware logs one structured line per request.
func AccessLogMiddleware(log *zap.Logger) gin.HandlerFunc {
	accessLog := log.Named("http.access")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if lastErr := c.Errors.Last(); lastErr != nil {
			fields = append(fields, zap.Error(lastErr.Err))
		}

		if c.Writer.Status() >= 500 {
			accessLog.Error("request", fields...)
			return
		}
		accessLog.Info("request", fields...)
	}
}

// MetricsMiddleware counts served requests by route and status.
func MetricsMiddleware(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		m.RecordHTTPRequest(route, strconv.Itoa(c.Writer.Status()))
	}
}
