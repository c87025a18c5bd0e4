package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const customerColumns = `id, tenant_id, phone, name, email, address, created_at, updated_at`

func scanCustomer(row scanner) (Customer, error) {
	var c Customer
	err := row.Scan(
		&c.ID,
		&c.TenantID,
		&c.Phone,
		&c.Name,
		&c.Email,
		&c.Address,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	return c, err
}

const getCustomerByPhone = `SELECT ` + customerColumns + `
FROM customers
WHERE tenant_id = $1 AND phone = $2
LIMIT 1`

type GetCustomerByPhoneParams struct {
	TenantID string
	Phone    string
}

func (q *Queries) GetCustomerByPhone(ctx context.Context, arg GetCustomerByPhoneParams) (Customer, error) {
	return scanCustomer(q.db.QueryRow(ctx, getCustomerByPhone, arg.TenantID, arg.Phone))
}

// Optional contact fields are only overwritten when the new order carries them.
const upsertCustomer = `INSERT INTO customers (tenant_id, phone, name, email, address)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (tenant_id, phone) DO UPDATE SET
    name       = EXCLUDED.name,
    email      = COALESCE(EXCLUDED.email, customers.email),
    address    = COALESCE(EXCLUDED.address, customers.address),
    updated_at = now()
RETURNING ` + customerColumns

type UpsertCustomerParams struct {
	TenantID string
	Phone    string
	Name     string
	Email    pgtype.Text
	Address  pgtype.Text
}

func (q *Queries) UpsertCustomer(ctx context.Context, arg UpsertCustomerParams) (Customer, error) {
	return scanCustomer(q.db.QueryRow(ctx, upsertCustomer,
		arg.TenantID,
		arg.Phone,
		arg.Name,
		arg.Email,
		arg.Address,
	))
}
