package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/docvault/pkg/configs"
)

func TestInitTracerDisabledIsNoop(t *testing.T) {
	require.NoError(t, InitTracer(configs.TracingConfig{Enabled: false}))
	assert.NoError(t, ShutdownTracer(context.Background()))

	ctx, span := StartSpan(context.Background(), "noop")
	defer span.End()

	assert.NotNil(t, ctx)
}

func TestInitTracerRejectsUnknownExporter(t *testing.T) {
	err := InitTracer(configs.TracingConfig{Enabled: true, ExporterType: "jaeger"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jaeger")
}

func TestResourceAttributesOrder(t *testing.T) {
	attrs := resourceAttributes(configs.TracingConfig{
		ServiceName:    "docvault",
		ServiceVersion: "1.2.3",
		ResourceLabels: map[string]string{
			"service.name": "ignored",
			"zone":         "b",
			"env":          "test",
		},
	})

	require.Len(t, attrs, 4)
	assert.Equal(t, "docvault", attrs[0].Value.AsString())
	assert.Equal(t, "1.2.3", attrs[1].Value.AsString())
	assert.Equal(t, "env", string(attrs[2].Key))
	assert.Equal(t, "zone", string(attrs[3].Key))
}
