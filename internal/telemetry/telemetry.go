package telemetry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.27.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	serviceVersion   = "0.3.0"
	serviceNamespace = "storefront"

	defaultExportInterval = 10 * time.Second
)

// Options describes the agent process being instrumented.
type Options struct {
	ServiceName string
	Environment string
	// Endpoint is the OTLP/HTTP base URL. Empty keeps spans and metrics in
	// process without exporting them.
	Endpoint string
	// SampleRatio applies to root spans; zero or anything from 1 up samples everything.
	SampleRatio    float64
	ExportInterval time.Duration

	// The wiring that shapes every answer, stamped on the resource.
	LLMProvider   string
	LLMModel      string
	MemoryBackend string
	StoreTimezone string
}

type Provider struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Tracer         trace.Tracer
	Meter          metric.Meter
	Resource       *resource.Resource
}

// Init builds the tracer and meter providers and installs them globally.
func Init(ctx context.Context, o Options) (*Provider, error) {
	res, err := newResource(ctx, o)
	if err != nil {
		return nil, err
	}

	traceOpts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler(o.SampleRatio)),
	}
	meterOpts := []sdkmetric.Option{sdkmetric.WithResource(res)}

	if endpoint := strings.TrimRight(o.Endpoint, "/"); endpoint != "" {
		traceExp, err := otlptracehttp.New(ctx,
			otlptracehttp.WithEndpointURL(endpoint+"/v1/traces"),
			otlptracehttp.WithInsecure(),
		)
		if err != nil {
			return nil, fmt.Errorf("trace exporter: %w", err)
		}
		metricExp, err := otlpmetrichttp.New(ctx,
			otlpmetrichttp.WithEndpointURL(endpoint+"/v1/metrics"),
			otlpmetrichttp.WithInsecure(),
		)
		if err != nil {
			return nil, fmt.Errorf("metric exporter: %w", err)
		}

		interval := o.ExportInterval
		if interval <= 0 {
			interval = defaultExportInterval
		}
		traceOpts = append(traceOpts, sdktrace.WithBatcher(traceExp))
		meterOpts = append(meterOpts, sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(metricExp, sdkmetric.WithInterval(interval)),
		))
	}

	tp := sdktrace.NewTracerProvider(traceOpts...)
	mp := sdkmetric.NewMeterProvider(meterOpts...)

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &Provider{
		TracerProvider: tp,
		MeterProvider:  mp,
		Tracer:         tp.Tracer(o.ServiceName),
		Meter:          mp.Meter(o.ServiceName),
		Resource:       res,
	}, nil
}

func newResource(ctx context.Context, o Options) (*resource.Resource, error) {
	attrs := []attribute.KeyValue{
		semconv.ServiceName(o.ServiceName),
		semconv.ServiceVersion(serviceVersion),
		semconv.ServiceNamespace(serviceNamespace),
		semconv.DeploymentEnvironmentName(o.Environment),
	}
	for key, v := range map[string]string{
		"agent.llm.provider":   o.LLMProvider,
		"agent.llm.model":      o.LLMModel,
		"agent.memory.backend": o.MemoryBackend,
		"agent.store.timezone": o.StoreTimezone,
	} {
		if v != "" {
			attrs = append(attrs, attribute.String(key, v))
		}
	}

	// OTEL_RESOURCE_ATTRIBUTES is applied last so operators can override.
	res, err := resource.New(ctx,
		resource.WithAttributes(attrs...),
		resource.WithHost(),
		resource.WithProcessRuntimeVersion(),
		resource.WithFromEnv(),
	)
	if errors.Is(err, resource.ErrPartialResource) {
		return res, nil
	}
	if err != nil {
		return nil, fmt.Errorf("telemetry resource: %w", err)
	}
	return res, nil
}

func sampler(ratio float64) sdktrace.Sampler {
	if ratio <= 0 || ratio >= 1 {
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	}
	return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
}

func (p *Provider) Shutdown(ctx context.Context) error {
	return errors.Join(
		p.TracerProvider.Shutdown(ctx),
		p.MeterProvider.Shutdown(ctx),
	)
}
