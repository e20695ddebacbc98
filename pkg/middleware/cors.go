package middleware

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/yeisme/docvault/pkg/configs"
)

// CORSMiddleware 只允许配置中的前端来源，并允许携带凭据.
// 调试模式下放开全部来源.
func CORSMiddleware(cfg configs.ServerConfig) gin.HandlerFunc {
	config := cors.DefaultConfig()
	config.AllowOrigins = cfg.CORSOrigins
	config.AllowCredentials = true
	config.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Content-Length", "Accept"}
	config.ExposeHeaders = []string{"Content-Disposition", "Content-Length"}
	config.MaxAge = 12 * time.Hour

	if cfg.Debug || len(cfg.CORSOrigins) == 0 {
		// AllowAllOrigins 与 AllowCredentials 同时开启时由 AllowOriginFunc 回显来源
		config.AllowOrigins = nil
		config.AllowOriginFunc = func(string) bool { return true }
	}

	return cors.New(config)
}
