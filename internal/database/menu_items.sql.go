package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const menuItemColumns = `id, tenant_id, category_id, name, description, price, is_vegetarian, is_spicy,
    in_stock, image_url, allergens, created_at, updated_at`

func scanMenuItem(row scanner) (MenuItem, error) {
	var m MenuItem
	err := row.Scan(
		&m.ID,
		&m.TenantID,
		&m.CategoryID,
		&m.Name,
		&m.Description,
		&m.Price,
		&m.IsVegetarian,
		&m.IsSpicy,
		&m.InStock,
		&m.ImageUrl,
		&m.Allergens,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if m.Allergens == nil {
		m.Allergens = []string{}
	}
	return m, err
}

const listMenuItems = `SELECT ` + menuItemColumns + `
FROM menu_items
WHERE tenant_id = $1
  AND ($2::uuid IS NULL OR category_id = $2)
ORDER BY name`

type ListMenuItemsParams struct {
	TenantID   string
	CategoryID pgtype.UUID
}

func (q *Queries) ListMenuItems(ctx context.Context, arg ListMenuItemsParams) ([]MenuItem, error) {
	rows, err := q.db.Query(ctx, listMenuItems, arg.TenantID, arg.CategoryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []MenuItem{}
	for rows.Next() {
		m, err := scanMenuItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getMenuItem = `SELECT ` + menuItemColumns + `
FROM menu_items
WHERE id = $1 AND tenant_id = $2`

type GetMenuItemParams struct {
	ID       uuid.UUID
	TenantID string
}

func (q *Queries) GetMenuItem(ctx context.Context, arg GetMenuItemParams) (MenuItem, error) {
	return scanMenuItem(q.db.QueryRow(ctx, getMenuItem, arg.ID, arg.TenantID))
}

const createMenuItem = `INSERT INTO menu_items (
    tenant_id, category_id, name, description, price,
    is_vegetarian, is_spicy, in_stock, image_url, allergens
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING ` + menuItemColumns

type CreateMenuItemParams struct {
	TenantID     string
	CategoryID   uuid.UUID
	Name         string
	Description  string
	Price        pgtype.Numeric
	IsVegetarian bool
	IsSpicy      bool
	InStock      bool
	ImageUrl     pgtype.Text
	Allergens    []string
}

func (q *Queries) CreateMenuItem(ctx context.Context, arg CreateMenuItemParams) (MenuItem, error) {
	return scanMenuItem(q.db.QueryRow(ctx, createMenuItem,
		arg.TenantID,
		arg.CategoryID,
		arg.Name,
		arg.Description,
		arg.Price,
		arg.IsVegetarian,
		arg.IsSpicy,
		arg.InStock,
		arg.ImageUrl,
		arg.Allergens,
	))
}

// Null fields keep their stored value. image_url and allergens are nullable
// or empty-able, so they carry explicit Set flags instead.
const updateMenuItem = `UPDATE menu_items SET
    category_id   = COALESCE($3, category_id),
    name          = COALESCE($4, name),
    description   = COALESCE($5, description),
    price         = COALESCE($6, price),
    is_vegetarian = COALESCE($7, is_vegetarian),
    is_spicy      = COALESCE($8, is_spicy),
    in_stock      = COALESCE($9, in_stock),
    image_url     = CASE WHEN $10::bool THEN $11 ELSE image_url END,
    allergens     = CASE WHEN $12::bool THEN $13::text[] ELSE allergens END,
    updated_at    = now()
WHERE id = $1 AND tenant_id = $2
RETURNING ` + menuItemColumns

type UpdateMenuItemParams struct {
	ID           uuid.UUID
	TenantID     string
	CategoryID   pgtype.UUID
	Name         pgtype.Text
	Description  pgtype.Text
	Price        pgtype.Numeric
	IsVegetarian pgtype.Bool
	IsSpicy      pgtype.Bool
	InStock      pgtype.Bool
	SetImageUrl  bool
	ImageUrl     pgtype.Text
	SetAllergens bool
	Allergens    []string
}

func (q *Queries) UpdateMenuItem(ctx context.Context, arg UpdateMenuItemParams) (MenuItem, error) {
	return scanMenuItem(q.db.QueryRow(ctx, updateMenuItem,
		arg.ID,
		arg.TenantID,
		arg.CategoryID,
		arg.Name,
		arg.Description,
		arg.Price,
		arg.IsVegetarian,
		arg.IsSpicy,
		arg.InStock,
		arg.SetImageUrl,
		arg.ImageUrl,
		arg.SetAllergens,
		arg.Allergens,
	))
}

const deleteMenuItem = `DELETE FROM menu_items
WHERE id = $1 AND tenant_id = $2
RETURNING id`

type DeleteMenuItemParams struct {
	ID       uuid.UUID
	TenantID string
}

func (q *Queries) DeleteMenuItem(ctx context.Context, arg DeleteMenuItemParams) (uuid.UUID, error) {
	var id uuid.UUID
	err := q.db.QueryRow(ctx, deleteMenuItem, arg.ID, arg.TenantID).Scan(&id)
	return id, err
}
