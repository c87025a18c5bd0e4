package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const categoryColumns = `id, tenant_id, name, icon, color, display_order, is_active, created_at, updated_at`

func scanCategory(row scanner) (Category, error) {
	var c Category
	err := row.Scan(
		&c.ID,
		&c.TenantID,
		&c.Name,
		&c.Icon,
		&c.Color,
		&c.DisplayOrder,
		&c.IsActive,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	return c, err
}

const listCategories = `SELECT ` + categoryColumns + `
FROM categories
WHERE tenant_id = $1
ORDER BY display_order, name`

func (q *Queries) ListCategories(ctx context.Context, tenantID string) ([]Category, error) {
	rows, err := q.db.Query(ctx, listCategories, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getCategory = `SELECT ` + categoryColumns + `
FROM categories
WHERE id = $1 AND tenant_id = $2`

type GetCategoryParams struct {
	ID       uuid.UUID
	TenantID string
}

func (q *Queries) GetCategory(ctx context.Context, arg GetCategoryParams) (Category, error) {
	return scanCategory(q.db.QueryRow(ctx, getCategory, arg.ID, arg.TenantID))
}

const nextCategoryOrder = `SELECT (COALESCE(MAX(display_order), 0) + 1)::int
FROM categories
WHERE tenant_id = $1`

func (q *Queries) NextCategoryOrder(ctx context.Context, tenantID string) (int32, error) {
	var next int32
	err := q.db.QueryRow(ctx, nextCategoryOrder, tenantID).Scan(&next)
	return next, err
}

const createCategory = `INSERT INTO categories (tenant_id, name, icon, color, display_order, is_active)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + categoryColumns

type CreateCategoryParams struct {
	TenantID     string
	Name         string
	Icon         string
	Color        string
	DisplayOrder int32
	IsActive     bool
}

func (q *Queries) CreateCategory(ctx context.Context, arg CreateCategoryParams) (Category, error) {
	return scanCategory(q.db.QueryRow(ctx, createCategory,
		arg.TenantID,
		arg.Name,
		arg.Icon,
		arg.Color,
		arg.DisplayOrder,
		arg.IsActive,
	))
}

// Null fields keep their stored value.
const updateCategory = `UPDATE categories SET
    name          = COALESCE($3, name),
    icon          = COALESCE($4, icon),
    color         = COALESCE($5, color),
    display_order = COALESCE($6, display_order),
    is_active     = COALESCE($7, is_active),
    updated_at    = now()
WHERE id = $1 AND tenant_id = $2
RETURNING ` + categoryColumns

type UpdateCategoryParams struct {
	ID           uuid.UUID
	TenantID     string
	Name         pgtype.Text
	Icon         pgtype.Text
	Color        pgtype.Text
	DisplayOrder pgtype.Int4
	IsActive     pgtype.Bool
}

func (q *Queries) UpdateCategory(ctx context.Context, arg UpdateCategoryParams) (Category, error) {
	return scanCategory(q.db.QueryRow(ctx, updateCategory,
		arg.ID,
		arg.TenantID,
		arg.Name,
		arg.Icon,
		arg.Color,
		arg.DisplayOrder,
		arg.IsActive,
	))
}

const deleteCategory = `DELETE FROM categories
WHERE id = $1 AND tenant_id = $2
RETURNING id`

type DeleteCategoryParams struct {
	ID       uuid.UUID
	TenantID string
}

func (q *Queries) DeleteCategory(ctx context.Context, arg DeleteCategoryParams) (uuid.UUID, error) {
	var id uuid.UUID
	err := q.db.QueryRow(ctx, deleteCategory, arg.ID, arg.TenantID).Scan(&id)
	return id, err
}

const countMenuItemsByCategory = `SELECT count(*)
FROM menu_items
WHERE tenant_id = $1 AND category_id = $2`

type CountMenuItemsByCategoryParams struct {
	TenantID   string
	CategoryID uuid.UUID
}

func (q *Queries) CountMenuItemsByCategory(ctx context.Context, arg CountMenuItemsByCategoryParams) (int64, error) {
	var count int64
	err := q.db.QueryRow(ctx, countMenuItemsByCategory, arg.TenantID, arg.CategoryID).Scan(&count)
	return count, err
}
