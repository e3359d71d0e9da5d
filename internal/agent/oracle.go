package agent

import (
	"context"
	"errors"
	"time"

	"storefront-agent/internal/llm"
	"storefront-agent/internal/logging"
	"storefront-agent/internal/telemetry"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	ReplyAuthError   = "❌ AI config error: Invalid API key"
	ReplySafety      = "⚠️ Cannot answer due to safety filters."
	ReplyRateLimited = "⏳ Rate limit reached. Please wait."
	ReplyTimeout     = "⌛ The AI took too long to answer. Please try again."
	ReplyEmpty       = "🤔 I couldn't put together an answer. Please try rephrasing."
	replyErrorPrefix = "❌ Error: "
)

// Chatter is a per-conversation chat with the model, satisfied by *llm.Client.
type Chatter interface {
	Send(ctx context.Context, conversationID, prompt string) (*llm.ChatResponse, error)
	Reset(conversationID string)
}

// Oracle turns a prompt input into reply text. It always returns a non-empty string.
type Oracle struct {
	Chat    Chatter
	Timeout time.Duration
	Tracer  trace.Tracer
	Metrics *telemetry.Metrics
}

func (o *Oracle) Converse(ctx context.Context, conversationID string, in PromptInput) string {
	ctx, span := tracerOrNoop(o.Tracer).Start(ctx, "agent_stage oracle")
	defer span.End()

	prompt, err := BuildPrompt(in)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return o.fallback(ctx, span, err)
	}
	span.SetAttributes(attribute.Int("agent.prompt.length", len(prompt)))

	if o.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.Timeout)
		defer cancel()
	}

	resp, err := o.Chat.Send(ctx, conversationID, prompt)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return o.fallback(ctx, span, err)
	}
	if resp.Content == "" {
		span.SetAttributes(attribute.Bool("agent.oracle.empty", true))
		return ReplyEmpty
	}
	return resp.Content
}

func (o *Oracle) Reset(conversationID string) {
	o.Chat.Reset(conversationID)
}

func (o *Oracle) fallback(ctx context.Context, span trace.Span, err error) string {
	category := string(llm.Classify(err))
	reply := FallbackReply(err)
	if errors.Is(err, context.DeadlineExceeded) {
		category = "timeout"
	}

	span.SetAttributes(attribute.String("agent.oracle.failure", category))
	// ctx may be past its deadline here; the log and metric only need its span
	logging.Error(ctx).Err(err).Str("category", category).Msg("oracle call failed")
	if o.Metrics != nil {
		o.Metrics.OracleFallbacks.Add(context.WithoutCancel(ctx), 1, telemetry.WithCategory(category))
	}
	return reply
}

// FallbackReply maps an oracle failure to the message shown in chat.
func FallbackReply(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return ReplyTimeout
	}
	switch llm.Classify(err) {
	case llm.CategoryAuth:
		return ReplyAuthError
	case llm.CategorySafety:
		return ReplySafety
	case llm.CategoryRateLimit:
		return ReplyRateLimited
	}
	msg := err.Error()
	if msg == "" {
		msg = "unknown failure"
	}
	return replyErrorPrefix + msg
}
