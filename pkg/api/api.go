// Package api 汇总 HTTP 接口，将各组路由挂载到 gin 引擎.
package api

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/docvault/pkg/internal/handle"
	"github.com/yeisme/docvault/pkg/internal/router"
)

// RegisterGroup 注册全部路由：健康检查挂在根路径，业务接口挂在 basePath 下.
func RegisterGroup(e *gin.Engine, basePath string) *gin.Engine {
	router.RegisterHealthCheckRoute(e)
	router.RegisterSwaggerRoute(e, gin.IsDebugging())

	g := e.Group(basePath)
	router.RegisterItemRoutes(g)
	router.RegisterUploadRoutes(g)
	router.RegisterSchedulerRoutes(g)

	e.NoRoute(handle.NoRoute)

	return e
}
