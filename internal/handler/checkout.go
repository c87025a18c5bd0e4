package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/menucraft/api/internal/checkout"
)

// CheckoutFlow defines the flow methods needed by checkout handlers.
// Satisfied by *checkout.Flow.
type CheckoutFlow interface {
	Start(tenantID string, entries []checkout.CartEntry) (checkout.View, error)
	Get(tenantID, sessionID string) (checkout.View, error)
	SendCode(ctx context.Context, tenantID, sessionID, phone string) (checkout.View, error)
	Verify(ctx context.Context, tenantID, sessionID, code string) (checkout.View, error)
	Back(tenantID, sessionID string) (checkout.View, error)
	Submit(ctx context.Context, tenantID, sessionID string, d checkout.CustomerDetails) (checkout.View, error)
}

// CheckoutHandler drives the phone-verified two-step checkout.
type CheckoutHandler struct {
	flow CheckoutFlow
}

// NewCheckoutHandler creates a new CheckoutHandler.
func NewCheckoutHandler(flow CheckoutFlow) *CheckoutHandler {
	return &CheckoutHandler{flow: flow}
}

// RegisterRoutes registers checkout endpoints on the given Chi router.
// Expected to be mounted at /tenants/{tenant}/checkout.
func (h *CheckoutHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Start)
	r.Get("/{sid}", h.Get)
	r.Post("/{sid}/phone", h.SendCode)
	r.Post("/{sid}/verify", h.Verify)
	r.Post("/{sid}/back", h.Back)
	r.Post("/{sid}/submit", h.Submit)
}

// --- Request / Response types ---

type startCheckoutRequest struct {
	Items []checkout.CartEntry `json:"items"`
}

type sendCodeRequest struct {
	Phone string `json:"phone"`
}

type verifyCodeRequest struct {
	Code string `json:"code"`
}

type submitCheckoutRequest struct {
	Name                string `json:"name"`
	Email               string `json:"email"`
	Address             string `json:"address"`
	SpecialInstructions string `json:"special_instructions"`
}

type checkoutResponse struct {
	ID            string            `json:"id"`
	State         string            `json:"state"`
	Phone         string            `json:"phone,omitempty"`
	VerifiedPhone string            `json:"verified_phone,omitempty"`
	Prefill       *customerResponse `json:"prefill"`
	LastError     string            `json:"last_error,omitempty"`
	Summary       summaryResponse   `json:"summary"`
	Order         *orderResponse    `json:"order"`
}

type summaryResponse struct {
	Lines     []checkout.CartEntry `json:"lines"`
	ItemCount int                  `json:"item_count"`
	Total     string               `json:"total"`
}

func toCheckoutResponse(v checkout.View) checkoutResponse {
	resp := checkoutResponse{
		ID:            v.ID,
		State:         v.State,
		Phone:         v.Phone,
		VerifiedPhone: v.VerifiedPhone,
		LastError:     v.LastError,
		Summary: summaryResponse{
			Lines:     v.Summary.Lines,
			ItemCount: v.Summary.ItemCount,
			Total:     v.Summary.Total.StringFixed(2),
		},
	}
	if v.Prefill != nil {
		c := toCustomerResponse(*v.Prefill)
		resp.Prefill = &c
	}
	if v.Order != nil {
		o := toOrderResponse(*v.Order)
		resp.Order = &o
	}
	return resp
}

// --- Handlers ---

// Start opens a checkout session for the posted cart.
func (h *CheckoutHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req startCheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	v, err := h.flow.Start(chi.URLParam(r, "tenant"), req.Items)
	if err != nil {
		writeServiceError(w, "start checkout", err)
		return
	}

	writeJSON(w, http.StatusCreated, toCheckoutResponse(v))
}

// Get returns the session's current step and cart summary.
func (h *CheckoutHandler) Get(w http.ResponseWriter, r *http.Request) {
	v, err := h.flow.Get(chi.URLParam(r, "tenant"), chi.URLParam(r, "sid"))
	if err != nil {
		writeServiceError(w, "get checkout", err)
		return
	}

	writeJSON(w, http.StatusOK, toCheckoutResponse(v))
}

// SendCode sends (or resends) the verification code to the posted phone.
func (h *CheckoutHandler) SendCode(w http.ResponseWriter, r *http.Request) {
	var req sendCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	v, err := h.flow.SendCode(r.Context(), chi.URLParam(r, "tenant"), chi.URLParam(r, "sid"), req.Phone)
	if err != nil {
		writeServiceError(w, "send verification code", err)
		return
	}

	writeJSON(w, http.StatusOK, toCheckoutResponse(v))
}

// Verify checks the code and, on success, returns any saved customer details.
func (h *CheckoutHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req verifyCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	v, err := h.flow.Verify(r.Context(), chi.URLParam(r, "tenant"), chi.URLParam(r, "sid"), req.Code)
	if err != nil {
		writeServiceError(w, "verify code", err)
		return
	}

	writeJSON(w, http.StatusOK, toCheckoutResponse(v))
}

// Back returns to phone entry.
func (h *CheckoutHandler) Back(w http.ResponseWriter, r *http.Request) {
	v, err := h.flow.Back(chi.URLParam(r, "tenant"), chi.URLParam(r, "sid"))
	if err != nil {
		writeServiceError(w, "checkout back", err)
		return
	}

	writeJSON(w, http.StatusOK, toCheckoutResponse(v))
}

// Submit places the order for the verified phone. Repeating it returns the
// same order.
func (h *CheckoutHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req submitCheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	v, err := h.flow.Submit(r.Context(), chi.URLParam(r, "tenant"), chi.URLParam(r, "sid"), checkout.CustomerDetails{
		Name:                req.Name,
		Email:               req.Email,
		Address:             req.Address,
		SpecialInstructions: req.SpecialInstructions,
	})
	if err != nil {
		writeServiceError(w, "submit checkout", err)
		return
	}

	writeJSON(w, http.StatusOK, toCheckoutResponse(v))
}
