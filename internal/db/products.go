package db

import (
	"context"
)

type Product struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Stock int     `json:"stock"`
	Price float64 `json:"price"`
}

func scanProduct(row scanner) (*Product, error) {
	var p Product
	if err := row.Scan(&p.ID, &p.Name, &p.Stock, &p.Price); err != nil {
		return nil, err
	}
	return &p, nil
}

func ListProducts(ctx context.Context, q Querier) ([]Product, error) {
	rows, err := q.Query(ctx, "SELECT id::text, name, stock, price::float8 FROM products ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := []Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

func GetProductByID(ctx context.Context, q Querier, id string) (*Product, error) {
	p, err := scanProduct(q.QueryRow(ctx,
		"SELECT id::text, name, stock, price::float8 FROM products WHERE id = $1::uuid", id))
	return p, notFound(err)
}

func GetProductByName(ctx context.Context, q Querier, name string) (*Product, error) {
	p, err := scanProduct(q.QueryRow(ctx,
		"SELECT id::text, name, stock, price::float8 FROM products WHERE LOWER(name) = LOWER($1) LIMIT 1", name))
	return p, notFound(err)
}

func SetProductStock(ctx context.Context, q Querier, id string, stock int) (*Product, error) {
	p, err := scanProduct(q.QueryRow(ctx, `
		UPDATE products SET stock = $2 WHERE id = $1::uuid
		RETURNING id::text, name, stock, price::float8`, id, stock))
	return p, notFound(err)
}
