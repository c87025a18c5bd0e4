package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/menucraft/api/internal/database"
)

// CustomerLookup defines the service method needed by the customer handler.
// Satisfied by *service.OrderService.
type CustomerLookup interface {
	LookupCustomer(ctx context.Context, tenantID, phone string) (*database.Customer, error)
}

// CustomerHandler handles the admin customer lookup.
type CustomerHandler struct {
	customers CustomerLookup
}

// NewCustomerHandler creates a new CustomerHandler.
func NewCustomerHandler(customers CustomerLookup) *CustomerHandler {
	return &CustomerHandler{customers: customers}
}

// RegisterRoutes registers customer endpoints on the given Chi router.
// Expected to be mounted at /tenants/{tenant}/admin/customers.
func (h *CustomerHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.Lookup)
}

type customerResponse struct {
	ID        uuid.UUID `json:"id"`
	Phone     string    `json:"phone"`
	Name      string    `json:"name"`
	Email     *string   `json:"email"`
	Address   *string   `json:"address"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toCustomerResponse(c database.Customer) customerResponse {
	return customerResponse{
		ID:        c.ID,
		Phone:     c.Phone,
		Name:      c.Name,
		Email:     textPtr(c.Email),
		Address:   textPtr(c.Address),
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

// Lookup finds a customer by ?phone=.
func (h *CustomerHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	customer, err := h.customers.LookupCustomer(r.Context(), chi.URLParam(r, "tenant"), r.URL.Query().Get("phone"))
	if err != nil {
		writeServiceError(w, "look up customer", err)
		return
	}
	if customer == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "customer not found"})
		return
	}

	writeJSON(w, http.StatusOK, toCustomerResponse(*customer))
}
