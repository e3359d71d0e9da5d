package agent

import (
	"context"
	"regexp"
	"strings"
	"time"
	"unicode"

	"storefront-agent/internal/logging"
	"storefront-agent/internal/telemetry"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Bundle maps view names to the data fetched for them, or to a ViewError.
type Bundle map[string]any

// ViewError stands in for a view whose fetch failed.
type ViewError struct {
	Error string `json:"error"`
}

const (
	ViewBusinessStats   = "business_stats"
	ViewMatchingOrders  = "matching_orders"
	ViewTodaysCustomers = "todays_customers"
	ViewCustomers       = "customers"
	ViewTodaysOrders    = "todays_orders"
	ViewYesterdayOrders = "yesterday_orders"
	ViewOrders          = "orders"
	ViewRecentOrders    = "recent_orders"
	ViewInventory       = "inventory"
	ViewDeliveryBoys    = "delivery_boys"
)

var (
	actionKeywords    = []string{"change", "update", "assign", "cancel", "send email", "deliver", "status", "set"}
	customerKeywords  = []string{"customer", "who", "find", "recent"}
	orderKeywords     = []string{"order", "status", "track"}
	inventoryKeywords = []string{"stock", "inventory", "much", "product", "laddu", "phase"}
	deliveryKeywords  = []string{"delivery", "deliver", "boy", "driver"}
	todayKeywords     = []string{"today", "todays", "today's"}
	yesterdayKeywords = []string{"yesterday"}
)

// actionStopWords are the action verbs, prepositions, statuses and possessives skipped by nameCandidates.
var actionStopWords = map[string]bool{
	"change": true, "update": true, "assign": true, "cancel": true, "send": true, "email": true,
	"status": true, "set": true, "the": true, "for": true, "to": true, "order": true, "orders": true,
	"delivery": true, "boy": true, "of": true, "pending": true, "confirmed": true, "processing": true,
	"shipped": true, "delivered": true, "cancelled": true, "his": true, "her": true, "their": true,
	"'s": true, "a": true, "an": true,
}

// nameSkipWords are capitalized words that start commands rather than name people.
var nameSkipWords = map[string]bool{
	"customer": true, "customers": true, "who": true, "find": true, "recent": true, "show": true,
	"list": true, "get": true, "give": true, "tell": true, "what": true, "which": true, "how": true,
	"the": true, "all": true, "any": true, "please": true, "search": true, "look": true, "is": true,
	"are": true, "me": true, "i": true, "order": true, "orders": true,
}

var (
	phonePattern        = regexp.MustCompile(`\d{10}`)
	capitalizedWordExpr = regexp.MustCompile(`[A-Z][a-z]+`)
)

const (
	customerSearchLimit = 5
	recentOrdersLimit   = 5
	orderHistoryLimit   = 10
	matchingOrdersLimit = 5
)

type query struct {
	raw   string
	lower string
}

func (q query) has(keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(q.lower, k) {
			return true
		}
	}
	return false
}

type contextRule struct {
	name    string
	matches func(q query) bool
	fetch   func(ctx context.Context, r *ContextResolver, q query, b Bundle)
}

// ContextResolver picks the data views relevant to a query with an ordered keyword rule table.
type ContextResolver struct {
	Store    ContextStore
	Location *time.Location
	Now      func() time.Time
	Tracer   trace.Tracer
	Metrics  *telemetry.Metrics
}

var contextRules = []contextRule{
	{
		name:    ViewBusinessStats,
		matches: func(query) bool { return true },
		fetch: func(ctx context.Context, r *ContextResolver, _ query, b Bundle) {
			r.put(ctx, b, ViewBusinessStats, func() (any, error) { return r.Store.BusinessStats(ctx) })
		},
	},
	{
		name:    ViewMatchingOrders,
		matches: func(q query) bool { return q.has(actionKeywords) },
		fetch: func(ctx context.Context, r *ContextResolver, q query, b Bundle) {
			r.matchOrdersByName(ctx, q, b)
		},
	},
	{
		name:    "customers",
		matches: func(q query) bool { return q.has(customerKeywords) },
		fetch: func(ctx context.Context, r *ContextResolver, q query, b Bundle) {
			if q.has(todayKeywords) {
				start, _ := r.today()
				r.put(ctx, b, ViewTodaysCustomers, func() (any, error) { return r.Store.CustomersSince(ctx, start) })
				return
			}
			term := customerSearchTerm(q.raw)
			r.put(ctx, b, ViewCustomers, func() (any, error) { return r.Store.SearchCustomers(ctx, term, customerSearchLimit) })
		},
	},
	{
		name:    "orders",
		matches: func(q query) bool { return q.has(orderKeywords) },
		fetch: func(ctx context.Context, r *ContextResolver, q query, b Bundle) {
			switch {
			case q.has(todayKeywords):
				start, _ := r.today()
				r.put(ctx, b, ViewTodaysOrders, func() (any, error) { return r.Store.OrdersBetween(ctx, start, time.Time{}) })
			case q.has(yesterdayKeywords):
				start, end := r.yesterday()
				r.put(ctx, b, ViewYesterdayOrders, func() (any, error) { return r.Store.OrdersBetween(ctx, start, end) })
			default:
				if phone := phonePattern.FindString(q.raw); phone != "" {
					r.put(ctx, b, ViewOrders, func() (any, error) { return r.Store.OrderHistory(ctx, phone, orderHistoryLimit) })
					return
				}
				r.put(ctx, b, ViewRecentOrders, func() (any, error) { return r.Store.RecentOrders(ctx, recentOrdersLimit) })
			}
		},
	},
	{
		name:    ViewInventory,
		matches: func(q query) bool { return q.has(inventoryKeywords) },
		fetch: func(ctx context.Context, r *ContextResolver, _ query, b Bundle) {
			r.put(ctx, b, ViewInventory, func() (any, error) { return r.Store.Inventory(ctx) })
		},
	},
	{
		name:    ViewDeliveryBoys,
		matches: func(q query) bool { return q.has(deliveryKeywords) },
		fetch: func(ctx context.Context, r *ContextResolver, _ query, b Bundle) {
			r.put(ctx, b, ViewDeliveryBoys, func() (any, error) { return r.Store.DeliveryPartners(ctx) })
		},
	},
}

// overview fills a bundle that matched nothing beyond the business stats.
func (r *ContextResolver) overview(ctx context.Context, b Bundle) {
	r.put(ctx, b, ViewRecentOrders, func() (any, error) { return r.Store.RecentOrders(ctx, recentOrdersLimit) })
	r.put(ctx, b, ViewInventory, func() (any, error) { return r.Store.Inventory(ctx) })
	r.put(ctx, b, ViewCustomers, func() (any, error) { return r.Store.SearchCustomers(ctx, "", customerSearchLimit) })
}

// Resolve never fails: a view that cannot be fetched is recorded as a ViewError under its own key.
func (r *ContextResolver) Resolve(ctx context.Context, text string) Bundle {
	ctx, span := tracerOrNoop(r.Tracer).Start(ctx, "agent_stage context")
	defer span.End()

	q := query{raw: text, lower: strings.ToLower(text)}
	b := Bundle{}

	matched := []string{}
	for _, rule := range contextRules {
		if rule.matches(q) {
			matched = append(matched, rule.name)
			rule.fetch(ctx, r, q, b)
		}
	}
	if len(b) <= 1 {
		matched = append(matched, "overview")
		r.overview(ctx, b)
	}

	views := make([]string, 0, len(b))
	for k := range b {
		views = append(views, k)
	}
	span.SetAttributes(
		attribute.StringSlice("agent.context.rules", matched),
		attribute.StringSlice("agent.context.views", views),
	)
	return b
}

func (r *ContextResolver) put(ctx context.Context, b Bundle, view string, fetch func() (any, error)) {
	v, err := fetch()
	if err != nil {
		logging.Warn(ctx).Err(err).Str("view", view).Msg("context view failed")
		if r.Metrics != nil {
			r.Metrics.ViewErrors.Add(ctx, 1, telemetry.WithView(view))
		}
		b[view] = ViewError{Error: err.Error()}
		return
	}
	b[view] = v
}

// matchOrdersByName tries each non-vocabulary word as a customer name and keeps the first hit.
func (r *ContextResolver) matchOrdersByName(ctx context.Context, q query, b Bundle) {
	for _, token := range nameCandidates(q.raw) {
		orders, err := r.Store.FindOrdersByCustomerName(ctx, token, matchingOrdersLimit)
		if err != nil {
			logging.Warn(ctx).Err(err).Str("token", token).Msg("matching orders lookup failed")
			if r.Metrics != nil {
				r.Metrics.ViewErrors.Add(ctx, 1, telemetry.WithView(ViewMatchingOrders))
			}
			continue
		}
		if len(orders) > 0 {
			b[ViewMatchingOrders] = orders
			return
		}
	}
}

func nameCandidates(text string) []string {
	var tokens []string
	for _, word := range strings.Fields(text) {
		clean := strings.Map(func(r rune) rune {
			if r < unicode.MaxASCII && unicode.IsLetter(r) {
				return r
			}
			return -1
		}, word)
		if len(clean) > 2 && !actionStopWords[strings.ToLower(clean)] {
			tokens = append(tokens, clean)
		}
	}
	return tokens
}

// customerSearchTerm prefers a 10-digit phone number, then a capitalized name-like word.
func customerSearchTerm(text string) string {
	if phone := phonePattern.FindString(text); phone != "" {
		return phone
	}
	for _, w := range capitalizedWordExpr.FindAllString(text, -1) {
		if !nameSkipWords[strings.ToLower(w)] {
			return w
		}
	}
	return ""
}

func (r *ContextResolver) now() time.Time {
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	loc := r.Location
	if loc == nil {
		loc = time.Local
	}
	return now().In(loc)
}

// today returns local midnight and the following midnight.
func (r *ContextResolver) today() (time.Time, time.Time) {
	n := r.now()
	start := time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, n.Location())
	return start, start.AddDate(0, 0, 1)
}

func (r *ContextResolver) yesterday() (time.Time, time.Time) {
	start, _ := r.today()
	return start.AddDate(0, 0, -1), start
}
