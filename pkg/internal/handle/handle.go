// Package handle 提供 HTTP 请求处理器的实现.
package handle

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/docvault/pkg/configs"
	"github.com/yeisme/docvault/pkg/internal/apperr"
	"github.com/yeisme/docvault/pkg/internal/types"
	"github.com/yeisme/docvault/pkg/log"
	"github.com/yeisme/docvault/pkg/rule"
)

// Fail 将错误写为统一的 {code, message, details} 响应.
// 非业务错误按 INTERNAL_ERROR 处理，调试模式之外不暴露内部错误信息.
func Fail(c *gin.Context, err error) {
	e, ok := apperr.As(err)
	if !ok {
		e = apperr.Internal(err)
	}

	resp := types.ErrorResponse{
		Code:    string(e.Kind),
		Message: e.Message,
		Details: e.Details,
	}

	l := log.Logger()

	if e.Kind == apperr.KindInternal {
		l.Error().Err(err).Str("method", c.Request.Method).Str("path", c.FullPath()).Msg("request failed")

		if configs.GetConfig().Server.Debug && e.Err != nil {
			resp.Message = e.Err.Error()
		}
	} else {
		l.Debug().Err(err).Str("path", c.FullPath()).Msg("request rejected")
	}

	_ = c.Error(err)
	c.AbortWithStatusJSON(e.StatusCode(), resp)
}

// bindError 将参数绑定错误转换为 VALIDATION_ERROR.
func bindError(err error) error {
	if details := rule.Errors(err); details != nil {
		return apperr.Validation("Request validation failed", details)
	}

	return apperr.Wrap(apperr.KindValidation, "Request validation failed", err)
}

// NoRoute 未匹配路由.
func NoRoute(c *gin.Context) {
	Fail(c, apperr.New(apperr.KindNotFound, "Route not found"))
}

// Recovery 将 panic 转换为 INTERNAL_ERROR 响应.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		err, ok := recovered.(error)
		if !ok {
			err = errors.New("panic recovered")
		}

		log.Logger().Error().Interface("panic", recovered).Str("path", c.Request.URL.Path).Msg("panic recovered")

		if c.Writer.Written() {
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}

		Fail(c, apperr.Internal(err))
	})
}
