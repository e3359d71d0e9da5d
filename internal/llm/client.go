package llm

import (
	"context"
	"fmt"
	"sync"
	"time"

	"storefront-agent/internal/telemetry"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role
	Content string
}

// SessionConfig is fixed for the lifetime of a chat session.
type SessionConfig struct {
	Model       string
	System      string
	Temperature float64
	MaxTokens   int
	// MaxTurns bounds the transcript a session replays; oldest exchanges go first.
	MaxTurns int
}

type ChatResponse struct {
	Content      string
	Model        string
	InputTokens  int
	OutputTokens int
	CostUSD      float64
	FinishReason string
}

// Session is one persistent chat with the model. Implementations are not safe for concurrent use.
type Session interface {
	Send(ctx context.Context, prompt string) (*ChatResponse, error)
}

type Provider interface {
	NewSession(ctx context.Context, cfg SessionConfig) (Session, error)
	Name() string
}

type sessionEntry struct {
	mu      sync.Mutex
	session Session
}

// Client keeps one Session per conversation and instruments every exchange.
type Client struct {
	Provider     Provider
	ProviderName string
	Tracer       trace.Tracer
	Metrics      *telemetry.Metrics
	Config       SessionConfig

	mu       sync.Mutex
	sessions map[string]*sessionEntry
}

func (c *Client) entry(conversationID string) *sessionEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sessions == nil {
		c.sessions = make(map[string]*sessionEntry)
	}
	e, ok := c.sessions[conversationID]
	if !ok {
		e = &sessionEntry{}
		c.sessions[conversationID] = e
	}
	return e
}

// Reset drops the conversation's session; the next Send starts a fresh chat.
func (c *Client) Reset(conversationID string) {
	c.mu.Lock()
	delete(c.sessions, conversationID)
	c.mu.Unlock()
}

// Send submits prompt on the conversation's session. It makes exactly one attempt.
func (c *Client) Send(ctx context.Context, conversationID, prompt string) (*ChatResponse, error) {
	e := c.entry(conversationID)
	e.mu.Lock()
	defer e.mu.Unlock()

	model := c.Config.Model
	start := time.Now()

	ctx, span := c.Tracer.Start(ctx, "gen_ai.chat "+model)
	defer span.End()

	span.SetAttributes(
		attribute.String("gen_ai.operation.name", "chat"),
		attribute.String("gen_ai.provider.name", c.ProviderName),
		attribute.String("gen_ai.request.model", model),
		attribute.String("gen_ai.conversation.id", conversationID),
		attribute.String("server.address", ProviderServers[c.ProviderName]),
		attribute.Int("server.port", ProviderPorts[c.ProviderName]),
		attribute.Float64("gen_ai.request.temperature", c.Config.Temperature),
		attribute.Int("gen_ai.request.max_tokens", c.Config.MaxTokens),
	)
	span.AddEvent("gen_ai.user.message", trace.WithAttributes(
		attribute.String("gen_ai.prompt", truncate(prompt, 1000)),
	))

	resp, err := c.send(ctx, e, prompt)
	duration := time.Since(start).Seconds()

	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(
			attribute.String("error.type", fmt.Sprintf("%T", err)),
			attribute.String("agent.oracle.failure", string(Classify(err))),
		)
		if c.Metrics != nil {
			c.Metrics.ErrorCount.Add(ctx, 1,
				telemetry.WithProviderModel(c.ProviderName, model),
			)
		}
		return nil, err
	}

	if resp.Model == "" {
		resp.Model = model
	}
	resp.CostUSD = CalculateCost(resp.Model, resp.InputTokens, resp.OutputTokens)

	span.SetAttributes(
		attribute.String("gen_ai.response.model", resp.Model),
		attribute.Int("gen_ai.usage.input_tokens", resp.InputTokens),
		attribute.Int("gen_ai.usage.output_tokens", resp.OutputTokens),
		attribute.Float64("gen_ai.usage.cost_usd", resp.CostUSD),
	)
	if resp.FinishReason != "" {
		span.SetAttributes(attribute.String("gen_ai.response.finish_reasons", resp.FinishReason))
	}
	span.AddEvent("gen_ai.assistant.message", trace.WithAttributes(
		attribute.String("gen_ai.completion", truncate(resp.Content, 2000)),
	))

	if c.Metrics != nil {
		c.Metrics.RecordGenAIMetrics(ctx, telemetry.RecordParams{
			Provider:     c.ProviderName,
			Model:        resp.Model,
			InputTokens:  resp.InputTokens,
			OutputTokens: resp.OutputTokens,
			DurationSec:  duration,
			CostUSD:      resp.CostUSD,
		})
	}

	return resp, nil
}

func (c *Client) send(ctx context.Context, e *sessionEntry, prompt string) (*ChatResponse, error) {
	if e.session == nil {
		s, err := c.Provider.NewSession(ctx, c.Config)
		if err != nil {
			return nil, fmt.Errorf("start %s session: %w", c.ProviderName, err)
		}
		e.session = s
	}
	return e.session.Send(ctx, prompt)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
