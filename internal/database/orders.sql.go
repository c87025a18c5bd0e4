package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `id, tenant_id, order_number, customer_name, customer_phone, customer_email,
    customer_address, items, total, special_instructions, status, idempotency_key,
    created_at, updated_at`

func scanOrder(row scanner) (Order, error) {
	var o Order
	err := row.Scan(
		&o.ID,
		&o.TenantID,
		&o.OrderNumber,
		&o.CustomerName,
		&o.CustomerPhone,
		&o.CustomerEmail,
		&o.CustomerAddress,
		&o.Items,
		&o.Total,
		&o.SpecialInstructions,
		&o.Status,
		&o.IdempotencyKey,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	return o, err
}

func collectOrders(rows pgx.Rows) ([]Order, error) {
	defer rows.Close()
	items := []Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createOrder = `INSERT INTO orders (
    tenant_id, order_number, customer_name, customer_phone, customer_email,
    customer_address, items, total, special_instructions, status, idempotency_key
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
RETURNING ` + orderColumns

type CreateOrderParams struct {
	TenantID            string
	OrderNumber         string
	CustomerName        string
	CustomerPhone       string
	CustomerEmail       pgtype.Text
	CustomerAddress     pgtype.Text
	Items               []OrderLine
	Total               pgtype.Numeric
	SpecialInstructions pgtype.Text
	Status              string
	IdempotencyKey      pgtype.Text
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, createOrder,
		arg.TenantID,
		arg.OrderNumber,
		arg.CustomerName,
		arg.CustomerPhone,
		arg.CustomerEmail,
		arg.CustomerAddress,
		arg.Items,
		arg.Total,
		arg.SpecialInstructions,
		arg.Status,
		arg.IdempotencyKey,
	))
}

const getOrder = `SELECT ` + orderColumns + `
FROM orders
WHERE id = $1 AND tenant_id = $2`

type GetOrderParams struct {
	ID       uuid.UUID
	TenantID string
}

func (q *Queries) GetOrder(ctx context.Context, arg GetOrderParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrder, arg.ID, arg.TenantID))
}

const getOrderByIdempotencyKey = `SELECT ` + orderColumns + `
FROM orders
WHERE tenant_id = $1 AND idempotency_key = $2`

type GetOrderByIdempotencyKeyParams struct {
	TenantID       string
	IdempotencyKey string
}

func (q *Queries) GetOrderByIdempotencyKey(ctx context.Context, arg GetOrderByIdempotencyKeyParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrderByIdempotencyKey, arg.TenantID, arg.IdempotencyKey))
}

const listOrders = `SELECT ` + orderColumns + `
FROM orders
WHERE tenant_id = $1
  AND ($2::text IS NULL OR status = $2)
ORDER BY created_at DESC
LIMIT $3`

type ListOrdersParams struct {
	TenantID string
	Status   pgtype.Text
	Limit    int32
}

func (q *Queries) ListOrders(ctx context.Context, arg ListOrdersParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrders, arg.TenantID, arg.Status, arg.Limit)
	if err != nil {
		return nil, err
	}
	return collectOrders(rows)
}

const listOrdersSince = `SELECT ` + orderColumns + `
FROM orders
WHERE tenant_id = $1 AND created_at >= $2
ORDER BY created_at ASC, id ASC`

type ListOrdersSinceParams struct {
	TenantID string
	Since    time.Time
}

func (q *Queries) ListOrdersSince(ctx context.Context, arg ListOrdersSinceParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrdersSince, arg.TenantID, arg.Since)
	if err != nil {
		return nil, err
	}
	return collectOrders(rows)
}

const updateOrderStatus = `UPDATE orders
SET status = $3, updated_at = now()
WHERE id = $1 AND tenant_id = $2
RETURNING ` + orderColumns

type UpdateOrderStatusParams struct {
	ID       uuid.UUID
	TenantID string
	Status   string
}

func (q *Queries) UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, updateOrderStatus, arg.ID, arg.TenantID, arg.Status))
}
