package agent

import (
	"context"
	"errors"
	"strings"

	"storefront-agent/internal/db"
	"storefront-agent/internal/logging"
)

// OrderResolver maps a loose order reference to one order.
type OrderResolver struct {
	Store OrderStore
}

type lookupStep struct {
	name  string
	apply func(identifier string) bool
	find  func(ctx context.Context, s OrderStore, identifier string) (*db.Order, error)
}

var lookupSteps = []lookupStep{
	{
		name:  "internal_id",
		apply: db.IsInternalID,
		find:  func(ctx context.Context, s OrderStore, id string) (*db.Order, error) { return s.OrderByID(ctx, id) },
	},
	{
		name:  "display_id",
		apply: always,
		find:  func(ctx context.Context, s OrderStore, id string) (*db.Order, error) { return s.OrderByDisplayID(ctx, id) },
	},
	{
		name:  "customer_name",
		apply: always,
		find:  func(ctx context.Context, s OrderStore, id string) (*db.Order, error) { return s.LatestOrderByName(ctx, id) },
	},
}

func always(string) bool { return true }

// NormalizeIdentifier trims the reference and drops one leading '#'.
func NormalizeIdentifier(identifier string) string {
	return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(identifier), "#"))
}

// ResolveOrder tries the internal id, then the display id (exact, any case), then the newest order
// whose customer name contains the reference. A nil order with a nil error means nothing matched.
// A store error is returned only when every attempted step failed with one.
func (r *OrderResolver) ResolveOrder(ctx context.Context, identifier string) (*db.Order, error) {
	id := NormalizeIdentifier(identifier)
	if id == "" {
		return nil, nil
	}

	var lastErr error
	attempted, failed := 0, 0
	for _, step := range lookupSteps {
		if !step.apply(id) {
			continue
		}
		attempted++
		order, err := step.find(ctx, r.Store, id)
		switch {
		case err == nil && order != nil:
			logging.Debug(ctx).Str("identifier", id).Str("step", step.name).Str("order", order.DisplayID()).Msg("order resolved")
			return order, nil
		case err != nil && !errors.Is(err, db.ErrNotFound):
			logging.Warn(ctx).Err(err).Str("identifier", id).Str("step", step.name).Msg("order lookup failed")
			lastErr = err
			failed++
		}
	}

	if attempted > 0 && failed == attempted {
		return nil, lastErr
	}
	return nil, nil
}
