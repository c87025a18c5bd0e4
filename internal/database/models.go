package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

type Category struct {
	ID           uuid.UUID `json:"id"`
	TenantID     string    `json:"tenant_id"`
	Name         string    `json:"name"`
	Icon         string    `json:"icon"`
	Color        string    `json:"color"`
	DisplayOrder int32     `json:"display_order"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type MenuItem struct {
	ID           uuid.UUID      `json:"id"`
	TenantID     string         `json:"tenant_id"`
	CategoryID   uuid.UUID      `json:"category_id"`
	Name         string         `json:"name"`
	Description  string         `json:"description"`
	Price        pgtype.Numeric `json:"price"`
	IsVegetarian bool           `json:"is_vegetarian"`
	IsSpicy      bool           `json:"is_spicy"`
	InStock      bool           `json:"in_stock"`
	ImageUrl     pgtype.Text    `json:"image_url"`
	Allergens    []string       `json:"allergens"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// OrderLine is the per-item snapshot stored in orders.items (JSONB).
// Prices are copied at order time and never re-read from menu_items.
type OrderLine struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int32           `json:"quantity"`
}

type Order struct {
	ID                  uuid.UUID      `json:"id"`
	TenantID            string         `json:"tenant_id"`
	OrderNumber         string         `json:"order_number"`
	CustomerName        string         `json:"customer_name"`
	CustomerPhone       string         `json:"customer_phone"`
	CustomerEmail       pgtype.Text    `json:"customer_email"`
	CustomerAddress     pgtype.Text    `json:"customer_address"`
	Items               []OrderLine    `json:"items"`
	Total               pgtype.Numeric `json:"total"`
	SpecialInstructions pgtype.Text    `json:"special_instructions"`
	Status              string         `json:"status"`
	IdempotencyKey      pgtype.Text    `json:"idempotency_key"`
	CreatedAt           time.Time      `json:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at"`
}

type Customer struct {
	ID        uuid.UUID   `json:"id"`
	TenantID  string      `json:"tenant_id"`
	Phone     string      `json:"phone"`
	Name      string      `json:"name"`
	Email     pgtype.Text `json:"email"`
	Address   pgtype.Text `json:"address"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

type Setting struct {
	TenantID  string    `json:"tenant_id"`
	Data      []byte    `json:"data"`
	UpdatedAt time.Time `json:"updated_at"`
}

type User struct {
	ID             uuid.UUID `json:"id"`
	TenantID       string    `json:"tenant_id"`
	Email          string    `json:"email"`
	HashedPassword string    `json:"hashed_password"`
	FullName       string    `json:"full_name"`
	Role           string    `json:"role"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
