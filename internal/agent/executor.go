package agent

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"storefront-agent/internal/db"
	"storefront-agent/internal/logging"
	"storefront-agent/internal/notify"
	"storefront-agent/internal/telemetry"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	ErrMsgNoActionType       = "No action type"
	ErrMsgNoEmail            = "No email for this order"
	ErrMsgEmailUnavailable   = "Email service unavailable"
	ErrMsgProductNotFound    = "Product not found"
	errMsgOrderNotFoundFmt   = "Order not found for: %s"
	errMsgUnknownActionFmt   = "Unknown action type: %s"
	errMsgInvalidStockFmt    = "Invalid stock value: %q (expected a whole number, 0 or more)"
	errMsgInvalidStatusStart = "Invalid status. Valid: "
)

// Result is the uniform outcome of one executed action.
type Result struct {
	Success bool        `json:"success"`
	Error   string      `json:"error,omitempty"`
	Order   *db.Order   `json:"order,omitempty"`
	Product *db.Product `json:"product,omitempty"`
	Email   string      `json:"email,omitempty"`
}

func failure(format string, args ...any) Result {
	return Result{Error: fmt.Sprintf(format, args...)}
}

// Executor validates and applies actions. It never returns an error; failures come back in the Result.
type Executor struct {
	Store    OrderStore
	Resolver *OrderResolver
	Mailer   notify.Mailer
	Tracer   trace.Tracer
	Metrics  *telemetry.Metrics
}

func (e *Executor) Execute(ctx context.Context, a Action) Result {
	ctx, span := tracerOrNoop(e.Tracer).Start(ctx, "agent_stage execute")
	defer span.End()
	span.SetAttributes(attribute.String("agent.action.type", a.actionType()))

	var res Result
	switch act := a.(type) {
	case UpdateStatus:
		res = e.updateStatus(ctx, act)
	case AssignDelivery:
		res = e.assignDelivery(ctx, act)
	case SendEmail:
		res = e.sendEmail(ctx, act)
	case UpdateStock:
		res = e.updateStock(ctx, act)
	case CancelOrder:
		res = e.cancelOrder(ctx, act)
	case UnknownAction:
		if act.Type == "" {
			res = failure(ErrMsgNoActionType)
		} else {
			res = failure(errMsgUnknownActionFmt, act.Type)
		}
	default:
		res = failure(errMsgUnknownActionFmt, a.actionType())
	}

	span.SetAttributes(attribute.Bool("agent.action.success", res.Success))
	if !res.Success {
		span.SetStatus(codes.Error, res.Error)
		logging.Warn(ctx).Str("action", a.actionType()).Str("error", res.Error).Msg("action failed")
	}
	if e.Metrics != nil {
		e.Metrics.ActionCount.Add(ctx, 1, telemetry.WithAction(a.actionType(), res.Success))
	}
	return res
}

func (e *Executor) resolve(ctx context.Context, identifier string) (*db.Order, *Result) {
	order, err := e.Resolver.ResolveOrder(ctx, identifier)
	if err != nil {
		r := Result{Error: err.Error()}
		return nil, &r
	}
	if order == nil {
		r := failure(errMsgOrderNotFoundFmt, identifier)
		return nil, &r
	}
	return order, nil
}

// save persists a copy so a failed write leaves the caller's order untouched.
func (e *Executor) save(ctx context.Context, order *db.Order, mutate func(o *db.Order)) (*db.Order, error) {
	updated := *order
	mutate(&updated)
	if err := e.Store.UpdateOrder(ctx, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (e *Executor) updateStatus(ctx context.Context, a UpdateStatus) Result {
	status, ok := db.ParseOrderStatus(a.NewStatus)
	if !ok {
		names := make([]string, len(db.OrderStatuses))
		for i, s := range db.OrderStatuses {
			names[i] = string(s)
		}
		return Result{Error: errMsgInvalidStatusStart + strings.Join(names, ", ")}
	}

	order, fail := e.resolve(ctx, a.Order)
	if fail != nil {
		return *fail
	}
	previous := order.OrderStatus
	updated, err := e.save(ctx, order, func(o *db.Order) { o.OrderStatus = status })
	if err != nil {
		return Result{Error: err.Error()}
	}

	logging.Info(ctx).
		Str("order", updated.DisplayID()).
		Str("customer", updated.FullName).
		Str("from", string(previous)).
		Str("to", string(status)).
		Msg("order status updated")
	return Result{Success: true, Order: updated}
}

func (e *Executor) assignDelivery(ctx context.Context, a AssignDelivery) Result {
	order, fail := e.resolve(ctx, a.Order)
	if fail != nil {
		return *fail
	}
	updated, err := e.save(ctx, order, func(o *db.Order) {
		o.DeliveryBoy = a.DeliveryBoy
		if a.DeliveryPhone != "" {
			o.DeliveryBoyPhone = a.DeliveryPhone
		}
	})
	if err != nil {
		return Result{Error: err.Error()}
	}

	logging.Info(ctx).
		Str("order", updated.DisplayID()).
		Str("customer", updated.FullName).
		Str("delivery_boy", updated.DeliveryBoy).
		Msg("delivery boy assigned")
	return Result{Success: true, Order: updated}
}

func (e *Executor) sendEmail(ctx context.Context, a SendEmail) Result {
	order, fail := e.resolve(ctx, a.Order)
	if fail != nil {
		return *fail
	}
	if order.Email == "" {
		return Result{Error: ErrMsgNoEmail}
	}
	if e.Mailer == nil {
		return Result{Error: ErrMsgEmailUnavailable}
	}

	msg, err := e.Mailer.Template(order, notify.KindUpdate)
	if err == nil {
		err = e.Mailer.Send(ctx, msg)
	}
	if err != nil {
		logging.Error(ctx).Err(err).Str("order", order.DisplayID()).Msg("order email failed")
		return Result{Error: ErrMsgEmailUnavailable}
	}

	logging.Info(ctx).Str("order", order.DisplayID()).Str("to", order.Email).Msg("order email dispatched")
	return Result{Success: true, Order: order, Email: order.Email}
}

// parseStock accepts only a base-10 integer of zero or more.
func parseStock(v string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func (e *Executor) updateStock(ctx context.Context, a UpdateStock) Result {
	stock, ok := parseStock(a.NewValue)
	if !ok {
		return failure(errMsgInvalidStockFmt, a.NewValue)
	}

	ref := NormalizeIdentifier(a.Product)
	if ref == "" {
		return Result{Error: ErrMsgProductNotFound}
	}

	var product *db.Product
	var err error
	if db.IsInternalID(ref) {
		product, err = e.Store.ProductByID(ctx, ref)
	} else {
		product, err = e.Store.ProductByName(ctx, ref)
	}
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return Result{Error: ErrMsgProductNotFound}
		}
		return Result{Error: err.Error()}
	}

	updated, err := e.Store.SetProductStock(ctx, product.ID, stock)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return Result{Error: ErrMsgProductNotFound}
		}
		return Result{Error: err.Error()}
	}

	logging.Info(ctx).
		Str("product", updated.Name).
		Int("from", product.Stock).
		Int("to", updated.Stock).
		Msg("product stock updated")
	return Result{Success: true, Product: updated}
}

func (e *Executor) cancelOrder(ctx context.Context, a CancelOrder) Result {
	order, fail := e.resolve(ctx, a.Order)
	if fail != nil {
		return *fail
	}
	updated, err := e.save(ctx, order, func(o *db.Order) { o.OrderStatus = db.StatusCancelled })
	if err != nil {
		return Result{Error: err.Error()}
	}

	logging.Info(ctx).
		Str("order", updated.DisplayID()).
		Str("customer", updated.FullName).
		Msg("order cancelled")
	return Result{Success: true, Order: updated}
}
