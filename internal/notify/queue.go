package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"storefront-agent/internal/logging"
	"storefront-agent/internal/telemetry"

	"github.com/hibiken/asynq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
)

const (
	TypeOrderEmail = "email:order_update"
	EmailQueue     = "email"
)

var tracer = otel.Tracer("storefront-agent/notify")

type emailPayload struct {
	Message      Message           `json:"message"`
	TraceContext map[string]string `json:"trace_context"`
}

type enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	Close() error
}

// Queue is a Mailer that hands messages to the asynq worker instead of sending inline.
type Queue struct {
	templates
	client  enqueuer
	Metrics *telemetry.Metrics
}

func NewQueue(redisAddr string) *Queue {
	return &Queue{client: asynq.NewClient(asynq.RedisClientOpt{Addr: redisAddr})}
}

func (q *Queue) Close() error {
	return q.client.Close()
}

func (q *Queue) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return ErrNoRecipient
	}

	ctx, span := tracer.Start(ctx, "job.enqueue.email")
	defer span.End()
	span.SetAttributes(attribute.String("job.type", TypeOrderEmail))

	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)

	payload, err := json.Marshal(emailPayload{Message: msg, TraceContext: carrier})
	if err != nil {
		return err
	}

	task := asynq.NewTask(TypeOrderEmail, payload)
	info, err := q.client.EnqueueContext(ctx, task,
		asynq.Queue(EmailQueue),
		asynq.MaxRetry(5),
		asynq.Timeout(time.Minute),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("enqueue email: %w", err)
	}

	if q.Metrics != nil {
		q.Metrics.EmailsEnqueued.Add(ctx, 1, metric.WithAttributes(
			attribute.String("job.type", TypeOrderEmail),
		))
	}
	span.SetAttributes(
		attribute.String("job.id", info.ID),
		attribute.String("job.queue", info.Queue),
	)

	logging.Info(ctx).
		Str("job_id", info.ID).
		Str("job_type", TypeOrderEmail).
		Str("to", msg.To).
		Msg("email enqueued")
	return nil
}

// HandleEmailTask returns the asynq handler that delivers queued messages through sender.
func HandleEmailTask(sender Sender) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var payload emailPayload
		if err := json.Unmarshal(task.Payload(), &payload); err != nil {
			return fmt.Errorf("decode email task: %v: %w", err, asynq.SkipRetry)
		}

		parentCtx := otel.GetTextMapPropagator().Extract(ctx, propagation.MapCarrier(payload.TraceContext))
		ctx, span := tracer.Start(parentCtx, "job.email")
		defer span.End()
		span.SetAttributes(attribute.String("job.type", TypeOrderEmail))

		if err := sender.Send(ctx, payload.Message); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return err
		}

		span.SetStatus(codes.Ok, "email delivered")
		return nil
	}
}

// Worker runs the asynq server that drains the email queue.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
}

func NewWorker(redisAddr string, concurrency int, sender Sender) *Worker {
	server := asynq.NewServer(
		asynq.RedisClientOpt{Addr: redisAddr},
		asynq.Config{
			Concurrency: concurrency,
			Queues: map[string]int{
				EmailQueue: 10,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logging.Error(ctx).
					Err(err).
					Str("task_type", task.Type()).
					Msg("task failed")
			}),
		},
	)

	mux := asynq.NewServeMux()
	mux.Handle(TypeOrderEmail, HandleEmailTask(sender))

	return &Worker{server: server, mux: mux}
}

func (w *Worker) Start() error {
	logging.Logger().Info().Msg("starting email worker")
	return w.server.Start(w.mux)
}

func (w *Worker) Shutdown() {
	logging.Logger().Info().Msg("shutting down email worker")
	w.server.Shutdown()
}
