// Package metrics 提供监控指标功能.
// 支持Prometheus标准，收集 HTTP、条目与登记表相关指标.
//
// Example:
//
//	import "github.com/yeisme/docvault/pkg/metrics"
//
//	err := metrics.InitMetrics(config.Metrics)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// 记录指标
//	metrics.ItemsCreated.WithLabelValues("FOLDER").Inc()
package metrics

import (
	"net/http"
	_ "net/http/pprof" // 自动注册pprof端点
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yeisme/docvault/pkg/configs"
)

const namespace = configs.AppName

// 全局指标变量.
var (
	// RequestCounter HTTP请求计数器.
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// RequestDuration HTTP请求持续时间.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// ActiveConnections 活跃连接数.
	ActiveConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_connections",
			Help:      "Number of active connections",
		},
	)

	// ItemsCreated 创建的条目数.
	ItemsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_created_total",
			Help:      "Number of items created, by type",
		},
		[]string{"type"},
	)

	// ItemsDeleted 删除的条目数，包含级联删除的后代.
	ItemsDeleted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_deleted_total",
			Help:      "Number of items deleted, by type",
		},
		[]string{"type"},
	)

	// UploadBytes 上传文件大小分布.
	UploadBytes = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upload_bytes",
			Help:      "Size of uploaded documents in bytes",
			Buckets:   prometheus.ExponentialBuckets(1024, 4, 10),
		},
	)

	// UploadsRejected 被拒绝的上传，按错误码.
	UploadsRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_rejected_total",
			Help:      "Number of rejected uploads, by error code",
		},
		[]string{"code"},
	)

	// ReconcileRemoved 对账清理的数量，kind 为 entry 或 file.
	ReconcileRemoved = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconcile_removed_total",
			Help:      "Registry entries and orphan files removed by reconciliation",
		},
		[]string{"kind"},
	)

	// registry Prometheus注册表.
	registry = prometheus.NewRegistry()

	initOnce sync.Once
)

// InitMetrics 初始化Metrics，重复调用只注册一次.
func InitMetrics(config configs.MetricsConfig) error {
	if !config.Enabled {
		return nil
	}

	initOnce.Do(func() {
		if config.RuntimeMetrics {
			registry.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
		}

		// 常量标签只作用于应用指标
		reg := prometheus.WrapRegistererWith(prometheus.Labels(config.Labels), registry)
		reg.MustRegister(
			RequestCounter, RequestDuration, ActiveConnections,
			ItemsCreated, ItemsDeleted, UploadBytes, UploadsRejected, ReconcileRemoved,
		)
	})

	return nil
}

// Handler 返回合并了本包注册表与默认注册表（GORM 插件使用）的 HTTP handler.
func Handler() http.Handler {
	gatherers := prometheus.Gatherers{registry, prometheus.DefaultGatherer}
	return promhttp.HandlerFor(gatherers, promhttp.HandlerOpts{})
}

// StartMetricsServer 在给定引擎上挂载 Metrics 与 pprof 路由.
func StartMetricsServer(config configs.MetricsConfig, engine *gin.Engine) error {
	if !config.Enabled {
		return nil
	}

	path := config.Path
	if path == "" {
		path = "/metrics"
	}

	engine.GET(path, gin.WrapH(Handler()))

	// 如果启用pprof，注册pprof端点
	if config.Pprof {
		engine.GET("/debug/pprof/*any", gin.WrapH(http.DefaultServeMux))
	}

	return nil
}

// GetRegistry 获取Prometheus注册表.
func GetRegistry() *prometheus.Registry {
	return registry
}
