package db

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store binds the query functions to one Querier, usually the pool.
type Store struct {
	q Querier
}

func NewStore(q Querier) *Store {
	return &Store{q: q}
}

// IsInternalID reports whether s has the canonical 36-character UUID shape the store assigns.
func IsInternalID(s string) bool {
	if len(s) != 36 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}

func (s *Store) BusinessStats(ctx context.Context) (*BusinessStats, error) {
	return GetBusinessStats(ctx, s.q)
}

func (s *Store) RecentOrders(ctx context.Context, limit int) ([]Order, error) {
	return ListRecentOrders(ctx, s.q, limit)
}

func (s *Store) OrdersBetween(ctx context.Context, from, to time.Time) ([]Order, error) {
	return ListOrdersBetween(ctx, s.q, from, to)
}

func (s *Store) OrderHistory(ctx context.Context, phoneOrEmail string, limit int) ([]Order, error) {
	return ListOrderHistory(ctx, s.q, phoneOrEmail, limit)
}

func (s *Store) FindOrdersByCustomerName(ctx context.Context, name string, limit int) ([]Order, error) {
	return FindOrdersByName(ctx, s.q, name, limit)
}

func (s *Store) OrderByID(ctx context.Context, id string) (*Order, error) {
	return GetOrderByID(ctx, s.q, id)
}

func (s *Store) OrderByDisplayID(ctx context.Context, orderID string) (*Order, error) {
	return GetOrderByDisplayID(ctx, s.q, orderID)
}

func (s *Store) LatestOrderByName(ctx context.Context, name string) (*Order, error) {
	return GetLatestOrderByName(ctx, s.q, name)
}

func (s *Store) UpdateOrder(ctx context.Context, o *Order) error {
	return UpdateOrder(ctx, s.q, o)
}

func (s *Store) DeliveryPartners(ctx context.Context) ([]DeliveryPartner, error) {
	return ListDeliveryPartners(ctx, s.q)
}

func (s *Store) SearchCustomers(ctx context.Context, term string, limit int) ([]Customer, error) {
	return SearchCustomers(ctx, s.q, term, limit)
}

func (s *Store) CustomersSince(ctx context.Context, since time.Time) ([]Customer, error) {
	return ListCustomersSince(ctx, s.q, since)
}

func (s *Store) Inventory(ctx context.Context) ([]Product, error) {
	return ListProducts(ctx, s.q)
}

func (s *Store) ProductByID(ctx context.Context, id string) (*Product, error) {
	return GetProductByID(ctx, s.q, id)
}

func (s *Store) ProductByName(ctx context.Context, name string) (*Product, error) {
	return GetProductByName(ctx, s.q, name)
}

func (s *Store) SetProductStock(ctx context.Context, id string, stock int) (*Product, error) {
	return SetProductStock(ctx, s.q, id, stock)
}
