package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/docvault/pkg/internal/handle"
)

// RegisterHealthCheckRoute 注册健康检查路由.
func RegisterHealthCheckRoute(g gin.IRoutes) {
	g.GET("/health", handle.Health)
	g.GET("/health/db", handle.HealthDB)
	g.GET("/health/storage", handle.HealthStorage)
}
