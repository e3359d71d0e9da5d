// Package agent runs one admin chat turn: gather context, ask the oracle, and apply any action it requests.
package agent

import (
	"context"
	"sync"
	"time"

	"storefront-agent/internal/actionblock"
	"storefront-agent/internal/logging"
	"storefront-agent/internal/memory"
	"storefront-agent/internal/telemetry"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	FooterSuccess       = "\n\n✅ _Action executed successfully in database!_"
	footerFailurePrefix = "\n\n❌ *Action Failed:* "
)

// Converser is the oracle as the agent sees it.
type Converser interface {
	Converse(ctx context.Context, conversationID string, in PromptInput) string
	Reset(conversationID string)
}

type Agent struct {
	Memory   memory.Store
	Context  *ContextResolver
	Oracle   Converser
	Executor *Executor
	Location *time.Location
	Now      func() time.Time
	Tracer   trace.Tracer
	Metrics  *telemetry.Metrics

	locksMu sync.Mutex
	locks   map[string]*turnLock
}

// turnLock serializes the turns of one conversation. It is dropped once no turn holds or waits on it.
type turnLock struct {
	mu   sync.Mutex
	refs int
}

func (a *Agent) lock(conversationID string) (unlock func()) {
	a.locksMu.Lock()
	if a.locks == nil {
		a.locks = make(map[string]*turnLock)
	}
	l, ok := a.locks[conversationID]
	if !ok {
		l = &turnLock{}
		a.locks[conversationID] = l
	}
	l.refs++
	a.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		a.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(a.locks, conversationID)
		}
		a.locksMu.Unlock()
	}
}

func (a *Agent) now() time.Time {
	now := time.Now
	if a.Now != nil {
		now = a.Now
	}
	if a.Location != nil {
		return now().In(a.Location)
	}
	return now()
}

// Converse records the user turn, answers it, and records the visible reply.
// Turns of the same conversation run one at a time, whichever transport they arrive on.
func (a *Agent) Converse(ctx context.Context, conversationID, text string) string {
	unlock := a.lock(conversationID)
	defer unlock()

	recorded := true
	if err := a.Memory.Append(ctx, conversationID, memory.RoleUser, text); err != nil {
		logging.Warn(ctx).Err(err).Str("conversation", conversationID).Msg("failed to record user turn")
		recorded = false
	}

	reply := a.reply(ctx, conversationID, text, recorded)

	if err := a.Memory.Append(ctx, conversationID, memory.RoleAssistant, reply); err != nil {
		logging.Warn(ctx).Err(err).Str("conversation", conversationID).Msg("failed to record assistant turn")
	}
	return reply
}

// Reply produces the visible reply for query without recording anything.
// The caller is expected to have appended query as the latest user turn.
func (a *Agent) Reply(ctx context.Context, conversationID, query string) string {
	return a.reply(ctx, conversationID, query, true)
}

func (a *Agent) reply(ctx context.Context, conversationID, query string, recorded bool) string {
	start := time.Now()
	ctx, span := tracerOrNoop(a.Tracer).Start(ctx, "agent turn")
	defer span.End()
	span.SetAttributes(attribute.String("agent.conversation.id", conversationID))

	history, err := a.Memory.Get(ctx, conversationID)
	if err != nil {
		logging.Warn(ctx).Err(err).Str("conversation", conversationID).Msg("history unavailable, answering without it")
		history = nil
	}
	history = priorTurns(history, query, recorded)

	bundle := a.Context.Resolve(ctx, query)
	raw := a.Oracle.Converse(ctx, conversationID, PromptInput{
		Now:     a.now(),
		History: history,
		Bundle:  bundle,
		Query:   query,
	})

	visible := raw
	if d, ok := actionblock.Parse(raw); ok {
		action := Decode(d)
		span.SetAttributes(attribute.String("agent.action.type", action.actionType()))

		res := a.Executor.Execute(ctx, action)
		visible = actionblock.Strip(raw)
		if res.Success {
			visible += FooterSuccess
		} else {
			visible += footerFailurePrefix + res.Error
			span.SetStatus(codes.Error, res.Error)
		}
	}

	if a.Metrics != nil {
		a.Metrics.TurnDuration.Record(ctx, time.Since(start).Seconds())
	}
	return visible
}

// Reset forgets the conversation in memory and drops its oracle session.
func (a *Agent) Reset(ctx context.Context, conversationID string) error {
	unlock := a.lock(conversationID)
	defer unlock()

	a.Oracle.Reset(conversationID)
	return a.Memory.Clear(ctx, conversationID)
}

// History returns the recorded turns of a conversation, oldest first.
func (a *Agent) History(ctx context.Context, conversationID string) ([]memory.Turn, error) {
	return a.Memory.Get(ctx, conversationID)
}

// priorTurns removes the current query from history when it was recorded as the latest user turn.
func priorTurns(history []memory.Turn, query string, recorded bool) []memory.Turn {
	if !recorded || len(history) == 0 {
		return history
	}
	last := history[len(history)-1]
	if last.Role == memory.RoleUser && last.Content == query {
		return history[:len(history)-1]
	}
	return history
}
