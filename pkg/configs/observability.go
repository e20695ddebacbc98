package configs

import (
	"time"

	"github.com/spf13/viper"
)

// 追踪导出的批量参数默认值.
const (
	DefaultTraceBatchTimeout = 5 * time.Second
	DefaultTraceMaxBatchSize = 512
	DefaultTraceMaxQueueSize = 2048
)

// MetricsConfig Prometheus 指标，挂载在主服务的 Path 上.
type MetricsConfig struct {
	Enabled        bool              `mapstructure:"enabled"`
	Path           string            `mapstructure:"path"            rule:"omitempty,startswith=/"`
	RuntimeMetrics bool              `mapstructure:"runtime_metrics"` // Go 运行时与进程指标
	Pprof          bool              `mapstructure:"pprof"`           // 暴露 /debug/pprof
	Labels         map[string]string `mapstructure:"labels"`          // 附加到所有应用指标的常量标签
}

// TracingConfig OpenTelemetry 追踪.
type TracingConfig struct {
	Enabled        bool              `mapstructure:"enabled"`
	ServiceName    string            `mapstructure:"service_name"`
	ServiceVersion string            `mapstructure:"service_version"`
	ExporterType   string            `mapstructure:"exporter_type"   rule:"oneof=otlp-http otlp-grpc zipkin"`
	Endpoint       string            `mapstructure:"endpoint"`
	SampleRate     float64           `mapstructure:"sample_rate"     rule:"min=0,max=1"`
	BatchTimeout   time.Duration     `mapstructure:"batch_timeout"   rule:"gte=0"`
	MaxBatchSize   int               `mapstructure:"max_batch_size"  rule:"gte=0"`
	MaxQueueSize   int               `mapstructure:"max_queue_size"  rule:"gte=0"`
	ResourceLabels map[string]string `mapstructure:"resource_labels"` // 额外的资源属性
}

func (c *MetricsConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("metrics.runtime_metrics", true)
	v.SetDefault("metrics.pprof", false)
	v.SetDefault("metrics.labels", map[string]string{})
}

func (c *TracingConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", AppName)
	v.SetDefault("tracing.service_version", AppVersion)
	v.SetDefault("tracing.exporter_type", "otlp-http")
	v.SetDefault("tracing.endpoint", "http://localhost:4318")
	v.SetDefault("tracing.sample_rate", 1.0)
	v.SetDefault("tracing.batch_timeout", DefaultTraceBatchTimeout)
	v.SetDefault("tracing.max_batch_size", DefaultTraceMaxBatchSize)
	v.SetDefault("tracing.max_queue_size", DefaultTraceMaxQueueSize)
	v.SetDefault("tracing.resource_labels", map[string]string{})
}
