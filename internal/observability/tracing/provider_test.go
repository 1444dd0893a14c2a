package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/smallbiznis/pricewise/pkg/telemetry/correlation"
)

func TestCorrelationSpanProcessor(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(&correlationSpanProcessor{}),
		sdktrace.WithSpanProcessor(recorder),
	)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	ctx := correlation.ContextWithCorrelationID(context.Background(), "01JTESTCORRELATION")
	_, span := tp.Tracer("test").Start(ctx, "matching.resolve")
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Contains(t, spans[0].Attributes(), attribute.String("correlation_id", "01JTESTCORRELATION"))
}

func TestNewExporterRejectsUnknownProtocol(t *testing.T) {
	_, err := newExporter("carrier-pigeon", "")
	assert.Error(t, err)
}

func TestNewProviderWithoutExport(t *testing.T) {
	tp, err := NewProvider(nil, Config{ServiceName: "pricewise", SamplingRatio: 1}, nil)
	require.NoError(t, err)
	assert.NoError(t, tp.Shutdown(context.Background()))
}
