package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/menucraft/api/internal/database"
	"github.com/menucraft/api/internal/service"
	"github.com/shopspring/decimal"
)

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	CreateOrder(ctx context.Context, tenantID string, in service.OrderInput) (database.Order, error)
	ListOrders(ctx context.Context, tenantID string, f service.ListOrdersFilter) ([]database.Order, error)
	GetOrder(ctx context.Context, tenantID string, id uuid.UUID) (database.Order, error)
	UpdateOrderStatus(ctx context.Context, tenantID string, id uuid.UUID, status string) (database.Order, error)
}

// OrderHandler handles customer order placement and the admin order board.
type OrderHandler struct {
	svc OrderServicer
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(svc OrderServicer) *OrderHandler {
	return &OrderHandler{svc: svc}
}

// RegisterPublicRoutes registers the customer endpoint.
// Expected to be mounted at /tenants/{tenant}/orders.
func (h *OrderHandler) RegisterPublicRoutes(r chi.Router) {
	r.Post("/", h.Create)
}

// RegisterRoutes registers admin order endpoints.
// Expected to be mounted at /tenants/{tenant}/admin/orders.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Patch("/{id}/status", h.UpdateStatus)
}

// --- Request / Response types ---

type createOrderRequest struct {
	Customer            *orderCustomerRequest    `json:"customer"`
	Items               []createOrderItemRequest `json:"items"`
	Total               *decimal.Decimal         `json:"total"`
	SpecialInstructions string                   `json:"special_instructions"`
}

type orderCustomerRequest struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Address string `json:"address"`
}

type createOrderItemRequest struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int32           `json:"quantity"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

type orderResponse struct {
	ID                  uuid.UUID             `json:"id"`
	TenantID            string                `json:"tenant_id"`
	OrderNumber         string                `json:"order_number"`
	Customer            orderCustomerResponse `json:"customer"`
	Items               []orderLineResponse   `json:"items"`
	Total               string                `json:"total"`
	SpecialInstructions *string               `json:"special_instructions"`
	Status              string                `json:"status"`
	CreatedAt           time.Time             `json:"created_at"`
	UpdatedAt           time.Time             `json:"updated_at"`
}

type orderCustomerResponse struct {
	Name    string  `json:"name"`
	Phone   string  `json:"phone"`
	Email   *string `json:"email"`
	Address *string `json:"address"`
}

type orderLineResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Price    string `json:"price"`
	Quantity int32  `json:"quantity"`
	Subtotal string `json:"subtotal"`
}

func toOrderResponse(o database.Order) orderResponse {
	lines := make([]orderLineResponse, len(o.Items))
	for i, l := range o.Items {
		lines[i] = orderLineResponse{
			ID:       l.ID,
			Name:     l.Name,
			Price:    l.Price.StringFixed(2),
			Quantity: l.Quantity,
			Subtotal: l.Price.Mul(decimal.NewFromInt32(l.Quantity)).StringFixed(2),
		}
	}
	return orderResponse{
		ID:          o.ID,
		TenantID:    o.TenantID,
		OrderNumber: o.OrderNumber,
		Customer: orderCustomerResponse{
			Name:    o.CustomerName,
			Phone:   o.CustomerPhone,
			Email:   textPtr(o.CustomerEmail),
			Address: textPtr(o.CustomerAddress),
		},
		Items:               lines,
		Total:               numericToString(o.Total),
		SpecialInstructions: textPtr(o.SpecialInstructions),
		Status:              o.Status,
		CreatedAt:           o.CreatedAt,
		UpdatedAt:           o.UpdatedAt,
	}
}

// --- Handlers ---

// Create places a single-step order. An Idempotency-Key header makes a
// retried request return the original order instead of a duplicate.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenant")

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	in := service.OrderInput{
		Items:               make([]service.OrderItemInput, len(req.Items)),
		Total:               req.Total,
		SpecialInstructions: req.SpecialInstructions,
		IdempotencyKey:      strings.TrimSpace(r.Header.Get("Idempotency-Key")),
	}
	if req.Customer != nil {
		in.Customer = &service.CustomerInfo{
			Name:    req.Customer.Name,
			Phone:   req.Customer.Phone,
			Email:   req.Customer.Email,
			Address: req.Customer.Address,
		}
	}
	for i, it := range req.Items {
		in.Items[i] = service.OrderItemInput{
			ID:       it.ID,
			Name:     it.Name,
			Price:    it.Price,
			Quantity: it.Quantity,
		}
	}

	order, err := h.svc.CreateOrder(r.Context(), tenantID, in)
	if err != nil {
		writeServiceError(w, "create order", err)
		return
	}

	writeJSON(w, http.StatusCreated, toOrderResponse(order))
}

// List returns the newest orders first. Supports ?status= and ?limit=.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var filter service.ListOrdersFilter
	filter.Status = q.Get("status")
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit"})
			return
		}
		filter.Limit = n
	}

	orders, err := h.svc.ListOrders(r.Context(), chi.URLParam(r, "tenant"), filter)
	if err != nil {
		writeServiceError(w, "list orders", err)
		return
	}

	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		resp[i] = toOrderResponse(o)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get returns a single order.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	order, err := h.svc.GetOrder(r.Context(), chi.URLParam(r, "tenant"), orderID)
	if err != nil {
		writeServiceError(w, "get order", err)
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

// UpdateStatus sets the order status. Any of the six statuses is accepted
// from any other.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	order, err := h.svc.UpdateOrderStatus(r.Context(), chi.URLParam(r, "tenant"), orderID, req.Status)
	if err != nil {
		writeServiceError(w, "update order status", err)
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(order))
}
