package telegram

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"storefront-agent/internal/logging"
	"storefront-agent/internal/telemetry"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const (
	DefaultWaitSeconds = 30
	DefaultRetryDelay  = 5 * time.Second
)

// Agent is the conversational core as the transport sees it.
type Agent interface {
	Converse(ctx context.Context, conversationID, text string) string
	Reset(ctx context.Context, conversationID string) error
}

// Poller long-polls the chat platform and hands each text update to Agent.
// Run may be called again after it returns; the cursor survives so seen updates are not redelivered.
type Poller struct {
	Client  ChatClient
	Agent   Agent
	Allowed []int64

	WaitSeconds int
	RetryDelay  time.Duration

	Tracer  trace.Tracer
	Metrics *telemetry.Metrics

	cursor   atomic.Int64
	dispatch *dispatcher
	once     sync.Once
}

func (p *Poller) init() {
	p.once.Do(func() { p.dispatch = newDispatcher(p.handle) })
}

// Cursor is the highest update id seen so far.
func (p *Poller) Cursor() int64 {
	return p.cursor.Load()
}

// advance moves the cursor forward only.
func (p *Poller) advance(id int64) {
	for {
		cur := p.cursor.Load()
		if id <= cur || p.cursor.CompareAndSwap(cur, id) {
			return
		}
	}
}

// Run polls until ctx is cancelled. Poll failures are retried after RetryDelay and never end the loop.
func (p *Poller) Run(ctx context.Context) error {
	p.init()
	wait := p.WaitSeconds
	if wait <= 0 {
		wait = DefaultWaitSeconds
	}
	delay := p.RetryDelay
	if delay <= 0 {
		delay = DefaultRetryDelay
	}

	logging.Info(ctx).Int64("cursor", p.Cursor()).Int("wait_seconds", wait).Msg("telegram polling started")

	for ctx.Err() == nil {
		updates, err := backoff.Retry(ctx, func() ([]Update, error) {
			updates, err := p.Client.GetUpdates(ctx, int(p.Cursor())+1, wait)
			if err != nil && ctx.Err() != nil {
				return nil, backoff.Permanent(err)
			}
			return updates, err
		},
			backoff.WithBackOff(backoff.NewConstantBackOff(delay)),
			backoff.WithMaxElapsedTime(0),
			backoff.WithNotify(func(err error, next time.Duration) {
				logging.Error(ctx).Err(err).Dur("retry_in", next).Msg("telegram poll failed")
				if p.Metrics != nil {
					p.Metrics.PollErrors.Add(ctx, 1)
				}
			}),
		)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			logging.Error(ctx).Err(err).Msg("telegram poll gave up")
			continue
		}

		for _, u := range updates {
			p.advance(int64(u.ID))
			if u.Text == "" {
				continue
			}
			p.dispatch.submit(ctx, u)
		}
	}

	logging.Info(context.WithoutCancel(ctx)).Int64("cursor", p.Cursor()).Msg("telegram polling stopped")
	if errors.Is(ctx.Err(), context.Canceled) {
		return nil
	}
	return ctx.Err()
}

// Wait blocks until every in-flight turn has finished.
func (p *Poller) Wait() {
	p.init()
	p.dispatch.wait()
}

func (p *Poller) tracer() trace.Tracer {
	if p.Tracer == nil {
		return noop.NewTracerProvider().Tracer("telegram")
	}
	return p.Tracer
}

func conversationID(chatID int64) string {
	return "telegram:" + strconv.FormatInt(chatID, 10)
}

func chatAttr(chatID int64) attribute.KeyValue {
	return attribute.Int64("telegram.chat.id", chatID)
}
