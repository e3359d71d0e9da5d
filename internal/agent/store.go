package agent

import (
	"context"
	"time"

	"storefront-agent/internal/db"
)

// ContextStore is the read side the context resolver draws views from.
type ContextStore interface {
	BusinessStats(ctx context.Context) (*db.BusinessStats, error)
	RecentOrders(ctx context.Context, limit int) ([]db.Order, error)
	OrdersBetween(ctx context.Context, from, to time.Time) ([]db.Order, error)
	OrderHistory(ctx context.Context, phoneOrEmail string, limit int) ([]db.Order, error)
	FindOrdersByCustomerName(ctx context.Context, name string, limit int) ([]db.Order, error)
	DeliveryPartners(ctx context.Context) ([]db.DeliveryPartner, error)
	SearchCustomers(ctx context.Context, term string, limit int) ([]db.Customer, error)
	CustomersSince(ctx context.Context, since time.Time) ([]db.Customer, error)
	Inventory(ctx context.Context) ([]db.Product, error)
}

// OrderStore is what entity resolution and action execution need.
type OrderStore interface {
	OrderByID(ctx context.Context, id string) (*db.Order, error)
	OrderByDisplayID(ctx context.Context, orderID string) (*db.Order, error)
	LatestOrderByName(ctx context.Context, name string) (*db.Order, error)
	UpdateOrder(ctx context.Context, o *db.Order) error
	ProductByID(ctx context.Context, id string) (*db.Product, error)
	ProductByName(ctx context.Context, name string) (*db.Product, error)
	SetProductStock(ctx context.Context, id string, stock int) (*db.Product, error)
}

type Store interface {
	ContextStore
	OrderStore
}

var _ Store = (*db.Store)(nil)
