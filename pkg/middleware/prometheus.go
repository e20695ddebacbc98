// Package middleware 提供 HTTP 中间件：日志、追踪、监控、限流、熔断与依赖注入.
package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/docvault/pkg/metrics"
)

// PrometheusMiddleware Prometheus监控中间件，endpoint 使用路由模板避免标签爆炸.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method

		metrics.ActiveConnections.Inc()
		defer metrics.ActiveConnections.Dec()

		c.Next()

		path := routeOf(c)

		metrics.RequestCounter.WithLabelValues(method, path, strconv.Itoa(c.Writer.Status())).Inc()
		metrics.RequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}
