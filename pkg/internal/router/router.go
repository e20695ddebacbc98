// Package router 管理路由配置，将路径与 handle 包中的处理器绑定到 gin 引擎.
package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/yeisme/docvault/docs"
	"github.com/yeisme/docvault/pkg/configs"
	"github.com/yeisme/docvault/pkg/internal/handle"
)

// RegisterItemRoutes 注册条目路由.
//
//	GET    /items            -> ListItems
//	GET    /items/:id        -> GetItem
//	POST   /items/folders    -> CreateFolder
//	POST   /items/documents  -> CreateDocument
//	DELETE /items/:id        -> DeleteItem
func RegisterItemRoutes(g *gin.RouterGroup) {
	items := g.Group("/items")
	{
		items.GET("", handle.ListItems)
		items.GET("/:id", handle.GetItem)
		items.POST("/folders", handle.CreateFolder)
		items.POST("/documents", handle.CreateDocument)
		items.DELETE("/:id", handle.DeleteItem)
	}
}

// RegisterUploadRoutes 注册上传与下载路由.
func RegisterUploadRoutes(g *gin.RouterGroup) {
	upload := g.Group("/upload")
	{
		upload.POST("", handle.UploadDocument)
		upload.GET("/:id/download", handle.DownloadDocument)
	}
}

// RegisterSchedulerRoutes 注册定时任务的查看与手动触发.
func RegisterSchedulerRoutes(g *gin.RouterGroup) {
	jobs := g.Group("/scheduler/jobs")
	{
		jobs.GET("", handle.SchedulerJobs)
		jobs.POST("/:name/run", handle.SchedulerRunJob)
	}
}

// RegisterSwaggerRoute 仅在调试模式下提供 /swagger 文档页，Host 留空由浏览器当前地址决定.
func RegisterSwaggerRoute(r gin.IRoutes, debug bool) {
	if !debug {
		return
	}

	docs.SwaggerInfo.Version = configs.AppVersion

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.DocExpansion("list")))
}
