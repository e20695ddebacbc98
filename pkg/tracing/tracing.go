// Package tracing 基于 OpenTelemetry 的链路追踪，导出到 OTLP(HTTP/gRPC) 或 Zipkin.
//
//	if err := tracing.InitTracer(cfg.Tracing); err != nil { ... }
//	defer tracing.ShutdownTracer(ctx)
//
//	ctx, span := tracing.StartSpan(ctx, "item.create")
//	defer span.End()
package tracing

import (
	"context"
	"fmt"
	"sort"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/zipkin"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/yeisme/docvault/pkg/configs"
)

var provider *sdktrace.TracerProvider

// InitTracer 按配置安装全局 TracerProvider 与 W3C 传播器，未启用时什么也不做.
func InitTracer(cfg configs.TracingConfig) error {
	if !cfg.Enabled {
		return nil
	}

	ctx := context.Background()

	exporter, err := newExporter(ctx, cfg)
	if err != nil {
		return err
	}

	res, err := resource.New(ctx, resource.WithAttributes(resourceAttributes(cfg)...))
	if err != nil {
		return fmt.Errorf("tracing resource: %w", err)
	}

	var batch []sdktrace.BatchSpanProcessorOption
	if cfg.BatchTimeout > 0 {
		batch = append(batch, sdktrace.WithBatchTimeout(cfg.BatchTimeout))
	}

	if cfg.MaxBatchSize > 0 {
		batch = append(batch, sdktrace.WithMaxExportBatchSize(cfg.MaxBatchSize))
	}

	if cfg.MaxQueueSize > 0 {
		batch = append(batch, sdktrace.WithMaxQueueSize(cfg.MaxQueueSize))
	}

	provider = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter, batch...),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRate))),
	)

	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	return nil
}

func newExporter(ctx context.Context, cfg configs.TracingConfig) (sdktrace.SpanExporter, error) {
	var (
		exp sdktrace.SpanExporter
		err error
	)

	switch cfg.ExporterType {
	case "otlp-http":
		exp, err = otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(cfg.Endpoint))
	case "otlp-grpc":
		exp, err = otlptracegrpc.New(ctx, otlptracegrpc.WithEndpoint(cfg.Endpoint), otlptracegrpc.WithInsecure())
	case "zipkin":
		exp, err = zipkin.New(cfg.Endpoint)
	default:
		return nil, fmt.Errorf("unsupported exporter type: %q", cfg.ExporterType)
	}

	if err != nil {
		return nil, fmt.Errorf("%s exporter: %w", cfg.ExporterType, err)
	}

	return exp, nil
}

// resourceAttributes 服务名与版本优先，其余标签按键排序追加.
func resourceAttributes(cfg configs.TracingConfig) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
	}

	keys := make([]string, 0, len(cfg.ResourceLabels))
	for k := range cfg.ResourceLabels {
		if k == string(semconv.ServiceNameKey) || k == string(semconv.ServiceVersionKey) {
			continue
		}

		keys = append(keys, k)
	}

	sort.Strings(keys)

	for _, k := range keys {
		attrs = append(attrs, attribute.String(k, cfg.ResourceLabels[k]))
	}

	return attrs
}

// ShutdownTracer 刷新并关闭导出器.
func ShutdownTracer(ctx context.Context) error {
	if provider == nil {
		return nil
	}

	return provider.Shutdown(ctx)
}

// StartSpan 在应用 tracer 下开启 span，调用方负责 span.End().
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return otel.Tracer(configs.AppName).Start(ctx, name, opts...)
}
