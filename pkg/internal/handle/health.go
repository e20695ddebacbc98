package handle

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	ctxPkg "github.com/yeisme/docvault/pkg/context"
	"github.com/yeisme/docvault/pkg/internal/storage/blob"
	"github.com/yeisme/docvault/pkg/internal/types"
)

const timeout = 2 * time.Second

// Health 存活检查.
//
//	@Summary	存活检查
//	@Tags		健康检查
//	@Produce	json
//	@Success	200	{object}	types.HealthResponse
//	@Router		/health [get]
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, types.HealthResponse{Status: "ok", Timestamp: time.Now().UTC()})
}

// HealthDB 数据库健康检查.
//
//	@Summary	数据库健康检查
//	@Tags		健康检查
//	@Produce	json
//	@Success	200	{object}	types.HealthResponse
//	@Failure	503	{object}	types.HealthResponse
//	@Router		/health/db [get]
func HealthDB(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
	defer cancel()

	var err error
	if dbc := ctxPkg.GetDBClient(ctx); dbc == nil || dbc.DB == nil {
		err = errors.New("db client not initialized")
	} else {
		err = dbc.Ping(ctx)
	}

	writeHealth(c, err)
}

// HealthStorage 文档存储与登记表健康检查.
//
//	@Summary	存储健康检查
//	@Tags		健康检查
//	@Produce	json
//	@Success	200	{object}	types.HealthResponse
//	@Failure	503	{object}	types.HealthResponse
//	@Router		/health/storage [get]
func HealthStorage(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
	defer cancel()

	err := blob.Check(ctx, ctxPkg.GetBlobStore(ctx))
	if err == nil {
		if reg := ctxPkg.GetRegistry(ctx); reg == nil {
			err = errors.New("file registry not initialized")
		} else {
			_, err = reg.IDs(ctx)
		}
	}

	writeHealth(c, err)
}

func writeHealth(c *gin.Context, err error) {
	resp := types.HealthResponse{Status: "ok", Timestamp: time.Now().UTC()}
	if err != nil {
		resp.Status = "unhealthy"
		resp.Error = err.Error()
		c.JSON(http.StatusServiceUnavailable, resp)

		return
	}

	c.JSON(http.StatusOK, resp)
}
