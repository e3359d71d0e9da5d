package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

func TestInitReturnsProvider(t *testing.T) {
	ctx := context.Background()
	// Nothing listens on the endpoint; exports fail later but init must not.
	p, err := Init(ctx, Options{ServiceName: "test-service", Endpoint: "http://localhost:4318/", Environment: "test"})
	require.NoError(t, err)
	assert.NotNil(t, p.Tracer)
	assert.NotNil(t, p.Meter)

	require.NoError(t, p.Shutdown(ctx))
}

func TestResourceDescribesAgent(t *testing.T) {
	ctx := context.Background()
	p, err := Init(ctx, Options{
		ServiceName:   "storefront-agent",
		Environment:   "staging",
		LLMProvider:   "anthropic",
		LLMModel:      "claude-haiku-4-5-20251001",
		MemoryBackend: "redis",
		StoreTimezone: "Asia/Kolkata",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Shutdown(ctx) })

	attrs := map[attribute.Key]string{}
	for _, kv := range p.Resource.Attributes() {
		attrs[kv.Key] = kv.Value.Emit()
	}
	assert.Equal(t, "storefront-agent", attrs["service.name"])
	assert.Equal(t, "storefront", attrs["service.namespace"])
	assert.Equal(t, "staging", attrs["deployment.environment.name"])
	assert.Equal(t, "anthropic", attrs["agent.llm.provider"])
	assert.Equal(t, "claude-haiku-4-5-20251001", attrs["agent.llm.model"])
	assert.Equal(t, "redis", attrs["agent.memory.backend"])
	assert.Equal(t, "Asia/Kolkata", attrs["agent.store.timezone"])
}

func TestEmptyOptionalAttributesOmitted(t *testing.T) {
	ctx := context.Background()
	p, err := Init(ctx, Options{ServiceName: "storefront-agent"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Shutdown(ctx) })

	_, ok := p.Resource.Set().Value("agent.llm.model")
	assert.False(t, ok)
}

func TestResourceAttributesFromEnvironment(t *testing.T) {
	t.Setenv("OTEL_RESOURCE_ATTRIBUTES", "agent.store.id=cycle-harmony")
	ctx := context.Background()
	p, err := Init(ctx, Options{ServiceName: "storefront-agent"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Shutdown(ctx) })

	v, ok := p.Resource.Set().Value("agent.store.id")
	require.True(t, ok)
	assert.Equal(t, "cycle-harmony", v.AsString())
}

func TestSamplerHonoursParentAndRatio(t *testing.T) {
	tests := []struct {
		name  string
		ratio float64
		want  sdktrace.SamplingDecision
	}{
		{"unset samples all", 0, sdktrace.RecordAndSample},
		{"full ratio samples all", 1, sdktrace.RecordAndSample},
		{"tiny ratio drops root", 1e-12, sdktrace.Drop},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := sampler(tt.ratio).ShouldSample(sdktrace.SamplingParameters{
				ParentContext: context.Background(),
				TraceID:       trace.TraceID{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff},
				Name:          "agent_stage oracle",
			})
			assert.Equal(t, tt.want, res.Decision)
		})
	}

	parent := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{1},
		SpanID:     trace.SpanID{1},
		TraceFlags: trace.FlagsSampled,
		Remote:     true,
	}))
	res := sampler(1e-12).ShouldSample(sdktrace.SamplingParameters{
		ParentContext: parent,
		TraceID:       trace.TraceID{1},
		Name:          "agent_stage oracle",
	})
	assert.Equal(t, sdktrace.RecordAndSample, res.Decision)
}

func TestMetricsRecordActions(t *testing.T) {
	ctx := context.Background()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	metrics, err := NewMetrics(mp.Meter("test"))
	require.NoError(t, err)

	metrics.ActionCount.Add(ctx, 1, WithAction("update_status", true))
	metrics.ActionCount.Add(ctx, 1, WithAction("update_status", false))
	metrics.RecordGenAIMetrics(ctx, RecordParams{Provider: "google", Model: "gemini-2.0-flash", InputTokens: 10, OutputTokens: 4})

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	require.Len(t, rm.ScopeMetrics, 1)

	names := map[string]bool{}
	for _, m := range rm.ScopeMetrics[0].Metrics {
		names[m.Name] = true
		if m.Name == "agent.action.count" {
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			assert.Len(t, sum.DataPoints, 2)
		}
	}
	assert.True(t, names["agent.action.count"])
	assert.True(t, names["gen_ai.client.token.usage"])
}
