// Package context 拓展上下文功能，将存储、日志等集成到上下文中，方便在应用程序各处传递和使用.
package context

import (
	"context"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"github.com/yeisme/docvault/pkg/cache"
	"github.com/yeisme/docvault/pkg/internal/storage"
	"github.com/yeisme/docvault/pkg/internal/storage/blob"
	dbc "github.com/yeisme/docvault/pkg/internal/storage/db"
	kvc "github.com/yeisme/docvault/pkg/internal/storage/kv"
	mqc "github.com/yeisme/docvault/pkg/internal/storage/mq"
	"github.com/yeisme/docvault/pkg/internal/storage/registry"
)

type ContextKey string

const (
	StorageManagerKey ContextKey = "storageManager"
)

// WithStorageManager 将 Manager 存储到 context 中.
func WithStorageManager(ctx context.Context, mgr *storage.Manager) context.Context {
	return context.WithValue(ctx, StorageManagerKey, mgr)
}

// GetManager 从 context 中获取 Manager.
func GetManager(ctx context.Context) *storage.Manager {
	if mgr, ok := ctx.Value(StorageManagerKey).(*storage.Manager); ok {
		return mgr
	}

	return nil
}

// GetDBClient 从 context 中获取 DB 客户端.
func GetDBClient(ctx context.Context) *dbc.Client {
	if mgr := GetManager(ctx); mgr != nil {
		return mgr.GetDBClient()
	}

	return nil
}

// GetBlobStore 从 context 中获取文档内容存储.
func GetBlobStore(ctx context.Context) blob.Store {
	if mgr := GetManager(ctx); mgr != nil {
		return mgr.GetBlobStore()
	}

	return nil
}

// GetRegistry 从 context 中获取文件登记表.
func GetRegistry(ctx context.Context) *registry.Registry {
	if mgr := GetManager(ctx); mgr != nil {
		return mgr.GetRegistry()
	}

	return nil
}

// GetMQClient 从 context 中获取 MQ 客户端.
func GetMQClient(ctx context.Context) *mqc.Client {
	if mgr := GetManager(ctx); mgr != nil {
		return mgr.GetMQClient()
	}

	return nil
}

// GetKVClient 从 context 中获取 KV 客户端.
func GetKVClient(ctx context.Context) *kvc.Client {
	if mgr := GetManager(ctx); mgr != nil {
		return mgr.GetKVClient()
	}

	return nil
}

// GetCache 从 context 中获取条目缓存.
func GetCache(ctx context.Context) *cache.Cache {
	if mgr := GetManager(ctx); mgr != nil {
		return mgr.GetCache()
	}

	return nil
}

// WithTraceContext 创建带有追踪上下文的logger.
func WithTraceContext(ctx context.Context, logger zerolog.Logger) zerolog.Logger {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		return logger.With().
			Str("trace_id", span.SpanContext().TraceID().String()).
			Str("span_id", span.SpanContext().SpanID().String()).
			Logger()
	}

	return logger
}

// TraceID 返回当前 span 的 TraceID，没有时为空串.
func TraceID(ctx context.Context) string {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if !sc.IsValid() {
		return ""
	}

	return sc.TraceID().String()
}
