package db

import (
	"context"
	"strings"
	"time"
)

type OrderStatus string

const (
	StatusPending    OrderStatus = "Pending"
	StatusConfirmed  OrderStatus = "Confirmed"
	StatusProcessing OrderStatus = "Processing"
	StatusShipped    OrderStatus = "Shipped"
	StatusDelivered  OrderStatus = "Delivered"
	StatusCancelled  OrderStatus = "Cancelled"
)

// OrderStatuses lists every accepted status in lifecycle order.
var OrderStatuses = []OrderStatus{
	StatusPending, StatusConfirmed, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled,
}

// ParseOrderStatus accepts only the exact enumerated spellings.
func ParseOrderStatus(s string) (OrderStatus, bool) {
	for _, st := range OrderStatuses {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}

func (s OrderStatus) Valid() bool {
	_, ok := ParseOrderStatus(string(s))
	return ok
}

type Order struct {
	ID               string      `json:"id"`
	OrderID          string      `json:"orderId,omitempty"`
	FullName         string      `json:"fullName"`
	Phone            string      `json:"phone"`
	Email            string      `json:"email,omitempty"`
	Phase            string      `json:"phase"`
	TotalQuantity    int         `json:"totalQuantity"`
	TotalWeight      float64     `json:"totalWeight"`
	TotalPrice       float64     `json:"totalPrice"`
	OrderStatus      OrderStatus `json:"orderStatus"`
	DeliveryBoy      string      `json:"deliveryBoy,omitempty"`
	DeliveryBoyPhone string      `json:"deliveryBoyPhone,omitempty"`
	CreatedAt        time.Time   `json:"createdAt"`
}

// DisplayID is the id shown to people: the display order id, or the tail of the internal id on legacy rows.
func (o *Order) DisplayID() string {
	if o.OrderID != "" {
		return o.OrderID
	}
	if len(o.ID) <= 6 {
		return strings.ToUpper(o.ID)
	}
	return strings.ToUpper(o.ID[len(o.ID)-6:])
}

const orderColumns = `id::text, COALESCE(order_id, ''), full_name, phone, COALESCE(email, ''), phase,
	total_quantity, total_weight::float8, total_price::float8, order_status,
	COALESCE(delivery_boy, ''), COALESCE(delivery_boy_phone, ''), created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanOrder(row scanner) (*Order, error) {
	var o Order
	var status string
	if err := row.Scan(&o.ID, &o.OrderID, &o.FullName, &o.Phone, &o.Email, &o.Phase,
		&o.TotalQuantity, &o.TotalWeight, &o.TotalPrice, &status,
		&o.DeliveryBoy, &o.DeliveryBoyPhone, &o.CreatedAt); err != nil {
		return nil, err
	}
	o.OrderStatus = OrderStatus(status)
	return &o, nil
}

func queryOrders(ctx context.Context, q Querier, sql string, args ...any) ([]Order, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := []Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	return orders, rows.Err()
}

func GetOrderByID(ctx context.Context, q Querier, id string) (*Order, error) {
	o, err := scanOrder(q.QueryRow(ctx, "SELECT "+orderColumns+" FROM orders WHERE id = $1::uuid", id))
	return o, notFound(err)
}

// GetOrderByDisplayID matches order_id case-insensitively and exactly.
func GetOrderByDisplayID(ctx context.Context, q Querier, orderID string) (*Order, error) {
	o, err := scanOrder(q.QueryRow(ctx,
		"SELECT "+orderColumns+" FROM orders WHERE LOWER(order_id) = LOWER($1) LIMIT 1", orderID))
	return o, notFound(err)
}

// GetLatestOrderByName returns the newest order whose full name contains name, ignoring case.
func GetLatestOrderByName(ctx context.Context, q Querier, name string) (*Order, error) {
	o, err := scanOrder(q.QueryRow(ctx,
		"SELECT "+orderColumns+" FROM orders WHERE full_name ILIKE $1 ORDER BY created_at DESC LIMIT 1",
		likePattern(name)))
	return o, notFound(err)
}

func FindOrdersByName(ctx context.Context, q Querier, name string, limit int) ([]Order, error) {
	return queryOrders(ctx, q,
		"SELECT "+orderColumns+" FROM orders WHERE full_name ILIKE $1 ORDER BY created_at DESC LIMIT $2",
		likePattern(name), limit)
}

// ListOrderHistory returns orders placed with the given phone number or email.
func ListOrderHistory(ctx context.Context, q Querier, phoneOrEmail string, limit int) ([]Order, error) {
	return queryOrders(ctx, q,
		"SELECT "+orderColumns+" FROM orders WHERE phone = $1 OR email = $1 ORDER BY created_at DESC LIMIT $2",
		phoneOrEmail, limit)
}

func ListRecentOrders(ctx context.Context, q Querier, limit int) ([]Order, error) {
	return queryOrders(ctx, q,
		"SELECT "+orderColumns+" FROM orders ORDER BY created_at DESC LIMIT $1", limit)
}

// ListOrdersBetween returns orders created in [from, to). A zero to leaves the window open.
func ListOrdersBetween(ctx context.Context, q Querier, from, to time.Time) ([]Order, error) {
	if to.IsZero() {
		return queryOrders(ctx, q,
			"SELECT "+orderColumns+" FROM orders WHERE created_at >= $1 ORDER BY created_at DESC", from)
	}
	return queryOrders(ctx, q,
		"SELECT "+orderColumns+" FROM orders WHERE created_at >= $1 AND created_at < $2 ORDER BY created_at DESC",
		from, to)
}

func UpdateOrder(ctx context.Context, q Querier, o *Order) error {
	tag, err := q.Exec(ctx, `
		UPDATE orders
		SET order_status = $2, delivery_boy = NULLIF($3, ''), delivery_boy_phone = NULLIF($4, '')
		WHERE id = $1::uuid`,
		o.ID, string(o.OrderStatus), o.DeliveryBoy, o.DeliveryBoyPhone)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

type DeliveryPartner struct {
	Name                string `json:"name"`
	Phone               string `json:"phone"`
	TotalDeliveries     int    `json:"totalDeliveries"`
	ActiveDeliveries    int    `json:"activeDeliveries"`
	CompletedDeliveries int    `json:"completedDeliveries"`
}

// ListDeliveryPartners groups assigned orders by delivery boy, busiest first.
func ListDeliveryPartners(ctx context.Context, q Querier) ([]DeliveryPartner, error) {
	rows, err := q.Query(ctx, `
		SELECT delivery_boy,
			COALESCE(NULLIF((ARRAY_AGG(delivery_boy_phone ORDER BY created_at))[1], ''), 'Not provided'),
			COUNT(*),
			COUNT(*) FILTER (WHERE order_status = 'Shipped'),
			COUNT(*) FILTER (WHERE order_status = 'Delivered')
		FROM orders
		WHERE delivery_boy IS NOT NULL AND delivery_boy <> ''
		GROUP BY delivery_boy
		ORDER BY COUNT(*) DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	partners := []DeliveryPartner{}
	for rows.Next() {
		var d DeliveryPartner
		if err := rows.Scan(&d.Name, &d.Phone, &d.TotalDeliveries, &d.ActiveDeliveries, &d.CompletedDeliveries); err != nil {
			return nil, err
		}
		partners = append(partners, d)
	}
	return partners, rows.Err()
}
