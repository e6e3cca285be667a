package tracing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// record routes spans to an in-memory recorder for the duration of the test.
func record(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	setTracer(tp.Tracer(serviceName))
	t.Cleanup(func() {
		setTracer(nil)
		_ = tp.Shutdown(context.Background())
	})
	return rec
}

func attrs(s sdktrace.ReadOnlySpan) map[attribute.Key]attribute.Value {
	m := make(map[attribute.Key]attribute.Value)
	for _, kv := range s.Attributes() {
		m[kv.Key] = kv.Value
	}
	return m
}

func TestDefaultConfig(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	cfg := DefaultConfig()
	assert.False(t, cfg.Enabled)
	assert.True(t, cfg.Insecure)

	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "collector:4317")
	cfg = DefaultConfig()
	assert.True(t, cfg.Enabled)
	assert.Equal(t, "collector:4317", cfg.Endpoint)
}

func TestSetup_NoopWhenDisabledOrNoEndpoint(t *testing.T) {
	for _, cfg := range []Config{{Enabled: false, Endpoint: "collector:4317"}, {Enabled: true}} {
		shutdown, err := Setup(context.Background(), cfg)
		require.NoError(t, err)
		assert.NoError(t, shutdown(context.Background()))
		assert.NotNil(t, Tracer())
	}
}

func TestSetup_InsecureExporter(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		setTracer(nil)
	})

	shutdown, err := Setup(context.Background(), Config{Enabled: true, Endpoint: "localhost:4317", Insecure: true})
	require.NoError(t, err)
	_, ok := otel.GetTracerProvider().(*sdktrace.TracerProvider)
	assert.True(t, ok, "sdk provider installed globally")

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_ = shutdown(ctx)
}

func TestSearchSpan(t *testing.T) {
	rec := record(t)

	ctx, span := StartSpan(context.Background(), "orchestrator.search",
		WithAttributes(AttrQuery.String("hades")))
	AddSpanAttributes(span, AttrCacheHit.Bool(false), AttrResults.Int(2))
	SetSpanOK(span)
	span.End()

	require.NotNil(t, ctx)
	spans := rec.Ended()
	require.Len(t, spans, 1)
	s := spans[0]
	assert.Equal(t, "orchestrator.search", s.Name())
	assert.Equal(t, codes.Ok, s.Status().Code)

	a := attrs(s)
	assert.Equal(t, "hades", a[AttrQuery].AsString())
	assert.False(t, a[AttrCacheHit].AsBool())
	assert.Equal(t, int64(2), a[AttrResults].AsInt64())
}

func TestProviderSpanIsChildOfSearch(t *testing.T) {
	rec := record(t)

	ctx, parent := StartSpan(context.Background(), "orchestrator.search")
	_, child := StartSpan(ctx, "provider.search", WithAttributes(AttrProvider.String("rawg")))
	child.End()
	parent.End()

	spans := rec.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "provider.search", spans[0].Name())
	assert.Equal(t, spans[1].SpanContext().SpanID(), spans[0].Parent().SpanID())
	assert.Equal(t, "rawg", attrs(spans[0])[AttrProvider].AsString())
}

func TestRecordError(t *testing.T) {
	rec := record(t)

	_, span := StartSpan(context.Background(), "provider.details", WithAttributes(AttrGameID.String("igdb_1942")))
	RecordError(span, errors.New("igdb details: status 503"))
	RecordError(span, nil)
	RecordError(nil, errors.New("ignored"))
	span.End()

	s := rec.Ended()[0]
	assert.Equal(t, codes.Error, s.Status().Code)
	assert.Equal(t, "igdb details: status 503", s.Status().Description)
	require.Len(t, s.Events(), 1)
	assert.Equal(t, "exception", s.Events()[0].Name)
	assert.Equal(t, "igdb_1942", attrs(s)[AttrGameID].AsString())
}
