package database

import (
	"context"

	"github.com/google/uuid"
)

const userColumns = `id, tenant_id, email, hashed_password, full_name, role, is_active, created_at, updated_at`

func scanUser(row scanner) (User, error) {
	var u User
	err := row.Scan(
		&u.ID,
		&u.TenantID,
		&u.Email,
		&u.HashedPassword,
		&u.FullName,
		&u.Role,
		&u.IsActive,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	return u, err
}

const getUserByEmail = `SELECT ` + userColumns + `
FROM users
WHERE email = $1 AND is_active = true`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return scanUser(q.db.QueryRow(ctx, getUserByEmail, email))
}

const getUserByID = `SELECT ` + userColumns + `
FROM users
WHERE id = $1 AND is_active = true`

func (q *Queries) GetUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	return scanUser(q.db.QueryRow(ctx, getUserByID, id))
}

const createUser = `INSERT INTO users (tenant_id, email, hashed_password, full_name, role)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (email) DO NOTHING
RETURNING ` + userColumns

type CreateUserParams struct {
	TenantID       string
	Email          string
	HashedPassword string
	FullName       string
	Role           string
}

// CreateUser returns pgx.ErrNoRows when the email is already taken.
func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	return scanUser(q.db.QueryRow(ctx, createUser,
		arg.TenantID,
		arg.Email,
		arg.HashedPassword,
		arg.FullName,
		arg.Role,
	))
}

const listUsersByTenant = `SELECT ` + userColumns + `
FROM users
WHERE tenant_id = $1 AND is_active = true
ORDER BY created_at`

func (q *Queries) ListUsersByTenant(ctx context.Context, tenantID string) ([]User, error) {
	rows, err := q.db.Query(ctx, listUsersByTenant, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const updateUser = `UPDATE users
SET email = $1, full_name = $2, role = $3, updated_at = now()
WHERE id = $4 AND tenant_id = $5 AND is_active = true
RETURNING ` + userColumns

type UpdateUserParams struct {
	Email    string
	FullName string
	Role     string
	ID       uuid.UUID
	TenantID string
}

func (q *Queries) UpdateUser(ctx context.Context, arg UpdateUserParams) (User, error) {
	return scanUser(q.db.QueryRow(ctx, updateUser,
		arg.Email,
		arg.FullName,
		arg.Role,
		arg.ID,
		arg.TenantID,
	))
}

const deactivateUser = `UPDATE users
SET is_active = false, updated_at = now()
WHERE id = $1 AND tenant_id = $2 AND is_active = true
RETURNING id`

type DeactivateUserParams struct {
	ID       uuid.UUID
	TenantID string
}

func (q *Queries) DeactivateUser(ctx context.Context, arg DeactivateUserParams) (uuid.UUID, error) {
	var id uuid.UUID
	err := q.db.QueryRow(ctx, deactivateUser, arg.ID, arg.TenantID).Scan(&id)
	return id, err
}
