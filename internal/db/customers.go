package db

import (
	"context"
	"encoding/json"
	"time"
)

type Address struct {
	House    string `json:"house"`
	Area     string `json:"area"`
	Pincode  string `json:"pincode"`
	Landmark string `json:"landmark,omitempty"`
	MapLink  string `json:"mapLink,omitempty"`
	Label    string `json:"label"`
}

type Customer struct {
	ID         string    `json:"id"`
	CustomerID string    `json:"customerId"`
	Phone      string    `json:"phone"`
	Email      string    `json:"email,omitempty"`
	Name       string    `json:"name"`
	Age        int       `json:"age"`
	Addresses  []Address `json:"addresses"`
	CreatedAt  time.Time `json:"createdAt"`
}

const customerColumns = `id::text, COALESCE(customer_id, ''), phone, COALESCE(email, ''), name, age, addresses, created_at`

func queryCustomers(ctx context.Context, q Querier, sql string, args ...any) ([]Customer, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	customers := []Customer{}
	for rows.Next() {
		var c Customer
		var addresses []byte
		if err := rows.Scan(&c.ID, &c.CustomerID, &c.Phone, &c.Email, &c.Name, &c.Age, &addresses, &c.CreatedAt); err != nil {
			return nil, err
		}
		if len(addresses) > 0 {
			if err := json.Unmarshal(addresses, &c.Addresses); err != nil {
				return nil, err
			}
		}
		if c.Addresses == nil {
			c.Addresses = []Address{}
		}
		customers = append(customers, c)
	}
	return customers, rows.Err()
}

// SearchCustomers matches term against phone, name, and email. An empty term lists the newest customers.
func SearchCustomers(ctx context.Context, q Querier, term string, limit int) ([]Customer, error) {
	if term == "" {
		return queryCustomers(ctx, q,
			"SELECT "+customerColumns+" FROM customers ORDER BY created_at DESC LIMIT $1", limit)
	}
	return queryCustomers(ctx, q, `
		SELECT `+customerColumns+` FROM customers
		WHERE phone ILIKE $1 OR name ILIKE $1 OR email ILIKE $1
		ORDER BY created_at DESC
		LIMIT $2`, likePattern(term), limit)
}

func ListCustomersSince(ctx context.Context, q Querier, since time.Time) ([]Customer, error) {
	return queryCustomers(ctx, q,
		"SELECT "+customerColumns+" FROM customers WHERE created_at >= $1 ORDER BY created_at DESC", since)
}

type BusinessStats struct {
	TotalCustomers int     `json:"totalCustomers"`
	TotalOrders    int     `json:"totalOrders"`
	TotalRevenue   float64 `json:"totalRevenue"`
}

// GetBusinessStats counts customers and orders; revenue excludes cancelled orders.
func GetBusinessStats(ctx context.Context, q Querier) (*BusinessStats, error) {
	var s BusinessStats
	err := q.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM customers),
			(SELECT COUNT(*) FROM orders),
			(SELECT COALESCE(SUM(total_price), 0)::float8 FROM orders WHERE order_status <> 'Cancelled')`,
	).Scan(&s.TotalCustomers, &s.TotalOrders, &s.TotalRevenue)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
