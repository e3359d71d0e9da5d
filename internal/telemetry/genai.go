package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the gen_ai client instruments and the agent's own counters.
type Metrics struct {
	TokenUsage        metric.Float64Histogram
	OperationDuration metric.Float64Histogram
	Cost              metric.Float64Counter
	ErrorCount        metric.Int64Counter

	TurnDuration    metric.Float64Histogram
	ActionCount     metric.Int64Counter
	ViewErrors      metric.Int64Counter
	PollErrors      metric.Int64Counter
	OracleFallbacks metric.Int64Counter
	EmailsEnqueued  metric.Int64Counter
}

func NewMetrics(m metric.Meter) (*Metrics, error) {
	tokenUsage, err := m.Float64Histogram("gen_ai.client.token.usage",
		metric.WithUnit("{token}"),
		metric.WithDescription("Number of tokens used per LLM call"),
	)
	if err != nil {
		return nil, err
	}

	operationDuration, err := m.Float64Histogram("gen_ai.client.operation.duration",
		metric.WithUnit("s"),
		metric.WithDescription("Wall-clock duration of LLM API call"),
	)
	if err != nil {
		return nil, err
	}

	cost, err := m.Float64Counter("gen_ai.client.cost",
		metric.WithUnit("usd"),
		metric.WithDescription("Cumulative cost of LLM calls in USD"),
	)
	if err != nil {
		return nil, err
	}

	errorCount, err := m.Int64Counter("gen_ai.client.error.count",
		metric.WithUnit("{error}"),
		metric.WithDescription("Number of LLM call errors"),
	)
	if err != nil {
		return nil, err
	}

	turnDuration, err := m.Float64Histogram("agent.turn.duration",
		metric.WithUnit("s"),
		metric.WithDescription("Message-to-reply duration of one agent turn"),
	)
	if err != nil {
		return nil, err
	}

	actionCount, err := m.Int64Counter("agent.action.count",
		metric.WithUnit("{action}"),
		metric.WithDescription("Executed action blocks by type and outcome"),
	)
	if err != nil {
		return nil, err
	}

	viewErrors, err := m.Int64Counter("agent.context.view_errors",
		metric.WithUnit("{error}"),
		metric.WithDescription("Context views that failed to load"),
	)
	if err != nil {
		return nil, err
	}

	pollErrors, err := m.Int64Counter("agent.poll.errors",
		metric.WithUnit("{error}"),
		metric.WithDescription("Failed chat platform polls"),
	)
	if err != nil {
		return nil, err
	}

	oracleFallbacks, err := m.Int64Counter("agent.oracle.fallbacks",
		metric.WithUnit("{reply}"),
		metric.WithDescription("Oracle failures answered with a fallback reply"),
	)
	if err != nil {
		return nil, err
	}

	emailsEnqueued, err := m.Int64Counter("agent.email.enqueued",
		metric.WithUnit("{email}"),
		metric.WithDescription("Order emails handed to the job queue"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		TokenUsage:        tokenUsage,
		OperationDuration: operationDuration,
		Cost:              cost,
		ErrorCount:        errorCount,
		TurnDuration:      turnDuration,
		ActionCount:       actionCount,
		ViewErrors:        viewErrors,
		PollErrors:        pollErrors,
		OracleFallbacks:   oracleFallbacks,
		EmailsEnqueued:    emailsEnqueued,
	}, nil
}

type RecordParams struct {
	Provider     string
	Model        string
	InputTokens  int
	OutputTokens int
	DurationSec  float64
	CostUSD      float64
}

func (g *Metrics) RecordGenAIMetrics(ctx context.Context, p RecordParams) {
	attrs := metric.WithAttributes(
		attribute.String("gen_ai.operation.name", "chat"),
		attribute.String("gen_ai.provider.name", p.Provider),
		attribute.String("gen_ai.request.model", p.Model),
	)

	g.TokenUsage.Record(ctx, float64(p.InputTokens),
		attrs,
		metric.WithAttributes(attribute.String("gen_ai.token.type", "input")),
	)
	g.TokenUsage.Record(ctx, float64(p.OutputTokens),
		attrs,
		metric.WithAttributes(attribute.String("gen_ai.token.type", "output")),
	)
	g.OperationDuration.Record(ctx, p.DurationSec, attrs)
	g.Cost.Add(ctx, p.CostUSD, attrs)
}

func WithProviderModel(provider, model string) metric.MeasurementOption {
	return metric.WithAttributes(
		attribute.String("gen_ai.provider.name", provider),
		attribute.String("gen_ai.request.model", model),
	)
}

func WithAction(actionType string, success bool) metric.MeasurementOption {
	return metric.WithAttributes(
		attribute.String("agent.action.type", actionType),
		attribute.Bool("agent.action.success", success),
	)
}

func WithView(view string) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("agent.context.view", view))
}

func WithCategory(category string) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("agent.oracle.failure", category))
}
