package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/menucraft/api/internal/database"
	"github.com/menucraft/api/internal/enum"
	"github.com/shopspring/decimal"
)

const (
	maxOrderNumberRetries = 3

	DefaultOrderLimit = 50
	MaxOrderLimit     = 200

	// MaxItemQuantity caps the units of one item in an order.
	MaxItemQuantity = 999

	orderNumberConstraint    = "orders_tenant_id_order_number_key"
	idempotencyKeyConstraint = "orders_tenant_id_idempotency_key_key"
)

// totalTolerance is how far a client-computed total may drift from the
// server total before the order is rejected.
var totalTolerance = decimal.RequireFromString("0.005")

// MaxAmount is the largest price or total a NUMERIC(10,2) column holds.
var MaxAmount = decimal.RequireFromString("99999999.99")

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Pool is a connection pool that can also start transactions.
// Satisfied by *pgxpool.Pool.
type Pool interface {
	database.DBTX
	TxBeginner
}

// OrderStore defines the DB methods needed for orders and customers.
// Satisfied by *database.Queries (and its WithTx variant).
type OrderStore interface {
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	GetOrder(ctx context.Context, arg database.GetOrderParams) (database.Order, error)
	GetOrderByIdempotencyKey(ctx context.Context, arg database.GetOrderByIdempotencyKeyParams) (database.Order, error)
	ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error)
	UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
	UpsertCustomer(ctx context.Context, arg database.UpsertCustomerParams) (database.Customer, error)
	GetCustomerByPhone(ctx context.Context, arg database.GetCustomerByPhoneParams) (database.Customer, error)
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx).
// This allows the service to create store instances from transactions.
type NewOrderStore func(db database.DBTX) OrderStore

// OrderNotifier is told about committed order changes. Implementations must
// not block; failures are theirs to log.
type OrderNotifier interface {
	OrderCreated(ctx context.Context, order database.Order)
	OrderStatusChanged(ctx context.Context, order database.Order)
}

// CustomerInfo is the contact block of an order.
type CustomerInfo struct {
	Name    string
	Phone   string
	Email   string
	Address string
}

// OrderItemInput is one cart line as submitted by the client.
type OrderItemInput struct {
	ID       string
	Name     string
	Price    decimal.Decimal
	Quantity int32
}

// OrderInput is what both checkout variants submit. Customer is nil when the
// client sent no customer block at all. Total, when present, is checked
// against the server-side sum. A non-empty IdempotencyKey makes resubmission
// return the original order.
type OrderInput struct {
	Customer            *CustomerInfo
	Items               []OrderItemInput
	Total               *decimal.Decimal
	SpecialInstructions string
	IdempotencyKey      string
}

// ListOrdersFilter selects orders for the admin list. Zero Limit means the default.
type ListOrdersFilter struct {
	Status string
	Limit  int
}

// OrderService handles order business logic.
type OrderService struct {
	db       Pool
	newStore NewOrderStore
	notifier OrderNotifier

	// nextNumber generates order numbers; replaced in tests.
	nextNumber func() string
}

// NewOrderService creates a new OrderService. notifier may be nil.
func NewOrderService(db Pool, newStore NewOrderStore, notifier OrderNotifier) *OrderService {
	return &OrderService{
		db:         db,
		newStore:   newStore,
		notifier:   notifier,
		nextNumber: func() string { return GenerateOrderNumber(time.Now()) },
	}
}

// GenerateOrderNumber formats "ORD-" + the last six digits of the unix
// millisecond clock + a random three digit suffix.
func GenerateOrderNumber(now time.Time) string {
	return fmt.Sprintf("ORD-%06d%03d", now.UnixMilli()%1_000_000, rand.IntN(1000))
}

// CreateOrder validates the input, recomputes the total, and stores the order
// with status pending together with the customer record. Retries up to
// maxOrderNumberRetries times on order_number collisions.
func (s *OrderService) CreateOrder(ctx context.Context, tenantID string, in OrderInput) (database.Order, error) {
	params, customer, err := buildOrder(tenantID, in)
	if err != nil {
		return database.Order{}, err
	}

	if params.IdempotencyKey.Valid {
		existing, found, err := s.findByIdempotencyKey(ctx, tenantID, params.IdempotencyKey.String)
		if err != nil {
			return database.Order{}, err
		}
		if found {
			return existing, nil
		}
	}

	var lastErr error
	for attempt := 0; attempt < maxOrderNumberRetries; attempt++ {
		params.OrderNumber = s.nextNumber()
		order, err := s.createOrderTx(ctx, params, customer)
		if err == nil {
			if s.notifier != nil {
				s.notifier.OrderCreated(ctx, order)
			}
			return order, nil
		}
		if isUniqueViolation(err, orderNumberConstraint) {
			lastErr = err
			continue
		}
		if isUniqueViolation(err, idempotencyKeyConstraint) {
			// A concurrent submission with the same key won the race.
			existing, found, ferr := s.findByIdempotencyKey(ctx, tenantID, params.IdempotencyKey.String)
			if ferr != nil {
				return database.Order{}, ferr
			}
			if found {
				return existing, nil
			}
		}
		return database.Order{}, backend("create order", err)
	}
	return database.Order{}, backend("create order", lastErr)
}

// createOrderTx inserts the order and upserts the customer in one transaction.
func (s *OrderService) createOrderTx(ctx context.Context, params database.CreateOrderParams, customer database.UpsertCustomerParams) (database.Order, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return database.Order{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.CreateOrder(ctx, params)
	if err != nil {
		return database.Order{}, fmt.Errorf("insert order: %w", err)
	}

	if _, err := store.UpsertCustomer(ctx, customer); err != nil {
		return database.Order{}, fmt.Errorf("upsert customer: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return database.Order{}, fmt.Errorf("commit tx: %w", err)
	}
	return order, nil
}

func (s *OrderService) findByIdempotencyKey(ctx context.Context, tenantID, key string) (database.Order, bool, error) {
	order, err := s.newStore(s.db).GetOrderByIdempotencyKey(ctx, database.GetOrderByIdempotencyKeyParams{
		TenantID:       tenantID,
		IdempotencyKey: key,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, false, nil
		}
		return database.Order{}, false, backend("create order", err)
	}
	return order, true, nil
}

// ListOrders returns the newest orders first, optionally filtered by status.
func (s *OrderService) ListOrders(ctx context.Context, tenantID string, f ListOrdersFilter) ([]database.Order, error) {
	params := database.ListOrdersParams{TenantID: tenantID, Limit: int32(clampLimit(f.Limit))}
	if f.Status != "" {
		if !enum.IsOrderStatus(f.Status) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, f.Status)
		}
		params.Status = pgtype.Text{String: f.Status, Valid: true}
	}

	orders, err := s.newStore(s.db).ListOrders(ctx, params)
	if err != nil {
		return nil, backend("load orders", err)
	}
	return orders, nil
}

func (s *OrderService) GetOrder(ctx context.Context, tenantID string, id uuid.UUID) (database.Order, error) {
	order, err := s.newStore(s.db).GetOrder(ctx, database.GetOrderParams{ID: id, TenantID: tenantID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, notFound("order")
		}
		return database.Order{}, backend("load order", err)
	}
	return order, nil
}

// UpdateOrderStatus sets any of the six statuses regardless of the current one.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, tenantID string, id uuid.UUID, status string) (database.Order, error) {
	if !enum.IsOrderStatus(status) {
		return database.Order{}, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	order, err := s.newStore(s.db).UpdateOrderStatus(ctx, database.UpdateOrderStatusParams{
		ID:       id,
		TenantID: tenantID,
		Status:   status,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, notFound("order")
		}
		return database.Order{}, backend("update order status", err)
	}

	if s.notifier != nil {
		s.notifier.OrderStatusChanged(ctx, order)
	}
	return order, nil
}

// LookupCustomer returns the stored customer for phone, or nil when there is none.
func (s *OrderService) LookupCustomer(ctx context.Context, tenantID, phone string) (*database.Customer, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return nil, invalid("phone", "phone is required")
	}
	c, err := s.newStore(s.db).GetCustomerByPhone(ctx, database.GetCustomerByPhoneParams{
		TenantID: tenantID,
		Phone:    phone,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, backend("look up customer", err)
	}
	return &c, nil
}

// --- Helpers ---

// OrderTotal is the sum of price x quantity over all lines, rounded to cents.
func OrderTotal(lines []database.OrderLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Price.Mul(decimal.NewFromInt32(l.Quantity)))
	}
	return total.Round(2)
}

// buildOrder validates and normalizes an order submission.
func buildOrder(tenantID string, in OrderInput) (database.CreateOrderParams, database.UpsertCustomerParams, error) {
	var (
		params   database.CreateOrderParams
		customer database.UpsertCustomerParams
	)

	if in.Customer == nil {
		return params, customer, invalid("customer", "customer info is required")
	}
	name := strings.TrimSpace(in.Customer.Name)
	phone := strings.TrimSpace(in.Customer.Phone)
	if name == "" {
		return params, customer, invalid("customer.name", "name is required")
	}
	if phone == "" {
		return params, customer, invalid("customer.phone", "phone is required")
	}
	if len(in.Items) == 0 {
		return params, customer, invalid("items", "order must contain at least one item")
	}

	lines := make([]database.OrderLine, len(in.Items))
	for i, item := range in.Items {
		field := fmt.Sprintf("items[%d]", i)
		id := strings.TrimSpace(item.ID)
		itemName := strings.TrimSpace(item.Name)
		switch {
		case id == "":
			return params, customer, invalid(field+".id", "id is required")
		case itemName == "":
			return params, customer, invalid(field+".name", "name is required")
		case item.Price.IsNegative():
			return params, customer, invalid(field+".price", "price must be >= 0")
		case item.Price.Round(2).GreaterThan(MaxAmount):
			return params, customer, invalid(field+".price", "price must be <= "+MaxAmount.StringFixed(2))
		case item.Quantity < 1:
			return params, customer, invalid(field+".quantity", "quantity must be >= 1")
		case item.Quantity > MaxItemQuantity:
			return params, customer, invalid(field+".quantity", fmt.Sprintf("quantity must be <= %d", MaxItemQuantity))
		}
		lines[i] = database.OrderLine{
			ID:       id,
			Name:     itemName,
			Price:    item.Price.Round(2),
			Quantity: item.Quantity,
		}
	}

	total := OrderTotal(lines)
	if total.GreaterThan(MaxAmount) {
		return params, customer, invalid("total", "total must be <= "+MaxAmount.StringFixed(2))
	}
	if in.Total != nil && in.Total.Sub(total).Abs().GreaterThan(totalTolerance) {
		return params, customer, invalid("total", fmt.Sprintf("total %s does not match items (%s)", in.Total.StringFixed(2), total.StringFixed(2)))
	}

	email := optionalText(in.Customer.Email)
	address := optionalText(in.Customer.Address)

	params = database.CreateOrderParams{
		TenantID:            tenantID,
		CustomerName:        name,
		CustomerPhone:       phone,
		CustomerEmail:       email,
		CustomerAddress:     address,
		Items:               lines,
		Total:               database.DecimalToNumeric(total),
		SpecialInstructions: optionalText(in.SpecialInstructions),
		Status:              enum.OrderStatusPending,
		IdempotencyKey:      optionalText(in.IdempotencyKey),
	}
	customer = database.UpsertCustomerParams{
		TenantID: tenantID,
		Phone:    phone,
		Name:     name,
		Email:    email,
		Address:  address,
	}
	return params, customer, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultOrderLimit
	}
	if limit > MaxOrderLimit {
		return MaxOrderLimit
	}
	return limit
}
