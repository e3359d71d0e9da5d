package agent

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"storefront-agent/internal/db"
	"storefront-agent/internal/llm"
	"storefront-agent/internal/notify"
)

// fakeStore keeps orders, products, and customers in slices and records every lookup.
type fakeStore struct {
	mu        sync.Mutex
	orders    []db.Order
	products  []db.Product
	customers []db.Customer
	stats     db.BusinessStats
	errs      map[string]error
	calls     []string
	updates   int
}

func (f *fakeStore) record(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
	return f.errs[name]
}

func (f *fakeStore) called(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.calls {
		if c == name {
			return true
		}
	}
	return false
}

func byNewest(orders []db.Order) []db.Order {
	sort.SliceStable(orders, func(i, j int) bool { return orders[i].CreatedAt.After(orders[j].CreatedAt) })
	return orders
}

func limited[T any](items []T, limit int) []T {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}

func (f *fakeStore) BusinessStats(context.Context) (*db.BusinessStats, error) {
	if err := f.record("BusinessStats"); err != nil {
		return nil, err
	}
	s := f.stats
	return &s, nil
}

func (f *fakeStore) RecentOrders(_ context.Context, limit int) ([]db.Order, error) {
	if err := f.record("RecentOrders"); err != nil {
		return nil, err
	}
	return limited(byNewest(append([]db.Order{}, f.orders...)), limit), nil
}

func (f *fakeStore) OrdersBetween(_ context.Context, from, to time.Time) ([]db.Order, error) {
	if err := f.record("OrdersBetween"); err != nil {
		return nil, err
	}
	var out []db.Order
	for _, o := range f.orders {
		if !o.CreatedAt.Before(from) && (to.IsZero() || o.CreatedAt.Before(to)) {
			out = append(out, o)
		}
	}
	return byNewest(out), nil
}

func (f *fakeStore) OrderHistory(_ context.Context, phoneOrEmail string, limit int) ([]db.Order, error) {
	if err := f.record("OrderHistory"); err != nil {
		return nil, err
	}
	var out []db.Order
	for _, o := range f.orders {
		if o.Phone == phoneOrEmail || o.Email == phoneOrEmail {
			out = append(out, o)
		}
	}
	return limited(byNewest(out), limit), nil
}

func (f *fakeStore) FindOrdersByCustomerName(_ context.Context, name string, limit int) ([]db.Order, error) {
	if err := f.record("FindOrdersByCustomerName"); err != nil {
		return nil, err
	}
	var out []db.Order
	for _, o := range f.orders {
		if strings.Contains(strings.ToLower(o.FullName), strings.ToLower(name)) {
			out = append(out, o)
		}
	}
	return limited(byNewest(out), limit), nil
}

func (f *fakeStore) DeliveryPartners(context.Context) ([]db.DeliveryPartner, error) {
	if err := f.record("DeliveryPartners"); err != nil {
		return nil, err
	}
	return []db.DeliveryPartner{}, nil
}

func (f *fakeStore) SearchCustomers(_ context.Context, term string, limit int) ([]db.Customer, error) {
	if err := f.record("SearchCustomers:" + term); err != nil {
		return nil, err
	}
	if err := f.errs["SearchCustomers"]; err != nil {
		return nil, err
	}
	var out []db.Customer
	for _, c := range f.customers {
		if term == "" || strings.Contains(c.Phone, term) || strings.Contains(strings.ToLower(c.Name), strings.ToLower(term)) {
			out = append(out, c)
		}
	}
	return limited(out, limit), nil
}

func (f *fakeStore) CustomersSince(_ context.Context, since time.Time) ([]db.Customer, error) {
	if err := f.record("CustomersSince"); err != nil {
		return nil, err
	}
	var out []db.Customer
	for _, c := range f.customers {
		if !c.CreatedAt.Before(since) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeStore) Inventory(context.Context) ([]db.Product, error) {
	if err := f.record("Inventory"); err != nil {
		return nil, err
	}
	return append([]db.Product{}, f.products...), nil
}

func (f *fakeStore) OrderByID(_ context.Context, id string) (*db.Order, error) {
	if err := f.record("OrderByID"); err != nil {
		return nil, err
	}
	for _, o := range f.orders {
		if o.ID == id {
			o := o
			return &o, nil
		}
	}
	return nil, db.ErrNotFound
}

func (f *fakeStore) OrderByDisplayID(_ context.Context, orderID string) (*db.Order, error) {
	if err := f.record("OrderByDisplayID"); err != nil {
		return nil, err
	}
	for _, o := range f.orders {
		if o.OrderID != "" && strings.EqualFold(o.OrderID, orderID) {
			o := o
			return &o, nil
		}
	}
	return nil, db.ErrNotFound
}

func (f *fakeStore) LatestOrderByName(_ context.Context, name string) (*db.Order, error) {
	if err := f.record("LatestOrderByName"); err != nil {
		return nil, err
	}
	var best *db.Order
	for _, o := range f.orders {
		if strings.Contains(strings.ToLower(o.FullName), strings.ToLower(name)) {
			if best == nil || o.CreatedAt.After(best.CreatedAt) {
				o := o
				best = &o
			}
		}
	}
	if best == nil {
		return nil, db.ErrNotFound
	}
	return best, nil
}

func (f *fakeStore) UpdateOrder(_ context.Context, o *db.Order) error {
	if err := f.record("UpdateOrder"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.orders {
		if f.orders[i].ID == o.ID {
			f.orders[i] = *o
			f.updates++
			return nil
		}
	}
	return db.ErrNotFound
}

func (f *fakeStore) ProductByID(_ context.Context, id string) (*db.Product, error) {
	if err := f.record("ProductByID"); err != nil {
		return nil, err
	}
	for _, p := range f.products {
		if p.ID == id {
			p := p
			return &p, nil
		}
	}
	return nil, db.ErrNotFound
}

func (f *fakeStore) ProductByName(_ context.Context, name string) (*db.Product, error) {
	if err := f.record("ProductByName"); err != nil {
		return nil, err
	}
	for _, p := range f.products {
		if strings.EqualFold(p.Name, name) {
			p := p
			return &p, nil
		}
	}
	return nil, db.ErrNotFound
}

func (f *fakeStore) SetProductStock(_ context.Context, id string, stock int) (*db.Product, error) {
	if err := f.record("SetProductStock"); err != nil {
		return nil, err
	}
	for i := range f.products {
		if f.products[i].ID == id {
			f.products[i].Stock = stock
			p := f.products[i]
			return &p, nil
		}
	}
	return nil, db.ErrNotFound
}

func (f *fakeStore) order(id string) db.Order {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.orders {
		if o.ID == id {
			return o
		}
	}
	return db.Order{}
}

const (
	anuID  = "11111111-2222-4333-8444-555555555555"
	ramuID = "66666666-7777-4888-9999-aaaaaaaaaaaa"
	laddu1 = "bbbbbbbb-cccc-4ddd-8eee-ffffffffffff"
)

var ist = time.FixedZone("IST", 5*3600+1800)

func newFakeStore() *fakeStore {
	return &fakeStore{
		orders: []db.Order{
			{ID: anuID, OrderID: "A005A01", FullName: "Anu Sharma", Phone: "9876543210", Email: "anu@example.com",
				Phase: "Phase 1", TotalQuantity: 30, TotalPrice: 1499, OrderStatus: db.StatusProcessing,
				CreatedAt: time.Date(2026, 3, 10, 9, 0, 0, 0, ist)},
			{ID: ramuID, OrderID: "A006A01", FullName: "Ramu K", Phone: "9123456780",
				Phase: "Phase 2", TotalQuantity: 15, TotalPrice: 799, OrderStatus: db.StatusPending,
				CreatedAt: time.Date(2026, 3, 9, 18, 0, 0, 0, ist)},
		},
		products: []db.Product{
			{ID: laddu1, Name: "Phase 1 Laddu", Stock: 12, Price: 499},
		},
		customers: []db.Customer{
			{ID: "c1", CustomerID: "C001", Phone: "9876543210", Name: "Anu Sharma", CreatedAt: time.Date(2026, 3, 10, 8, 0, 0, 0, ist)},
		},
		stats: db.BusinessStats{TotalCustomers: 1, TotalOrders: 2, TotalRevenue: 2298},
		errs:  map[string]error{},
	}
}

type fakeChat struct {
	mu      sync.Mutex
	replies []string
	err     error
	prompts []string
	resets  []string
}

func (c *fakeChat) Send(_ context.Context, _ string, prompt string) (*llm.ChatResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prompts = append(c.prompts, prompt)
	if c.err != nil {
		return nil, c.err
	}
	reply := ""
	if len(c.replies) > 0 {
		reply, c.replies = c.replies[0], c.replies[1:]
	}
	return &llm.ChatResponse{Content: reply}, nil
}

func (c *fakeChat) Reset(conversationID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resets = append(c.resets, conversationID)
}

type fakeMailer struct {
	sent []notify.Message
	err  error
}

func (m *fakeMailer) Template(o *db.Order, kind notify.Kind) (notify.Message, error) {
	return notify.Render(o, kind)
}

func (m *fakeMailer) Send(_ context.Context, msg notify.Message) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}
