package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	ctxPkg "github.com/yeisme/docvault/pkg/context"
	"github.com/yeisme/docvault/pkg/internal/storage"
	"github.com/yeisme/docvault/pkg/scheduler"
)

type schedulerKey struct{}

// StorageMiddleware 把存储管理器放进请求上下文，service 层通过 ctxPkg 取用.
func StorageMiddleware(manager *storage.Manager) gin.HandlerFunc {
	return inject(func(ctx context.Context) context.Context {
		return ctxPkg.WithStorageManager(ctx, manager)
	})
}

// SchedulerMiddleware 把调度器放进请求上下文.
func SchedulerMiddleware(sched *scheduler.Scheduler) gin.HandlerFunc {
	return inject(func(ctx context.Context) context.Context {
		return context.WithValue(ctx, schedulerKey{}, sched)
	})
}

// GetScheduler 取请求上下文中的调度器，未注入时返回 nil.
func GetScheduler(c *gin.Context) *scheduler.Scheduler {
	sched, _ := c.Request.Context().Value(schedulerKey{}).(*scheduler.Scheduler)
	return sched
}

func inject(with func(context.Context) context.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request = c.Request.WithContext(with(c.Request.Context()))
		c.Next()
	}
}
