package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/menucraft/api/internal/catalog"
	"github.com/menucraft/api/internal/database"
	"github.com/menucraft/api/internal/service"
	"github.com/shopspring/decimal"
)

// MenuItemServicer defines the service methods needed by menu item handlers.
// Satisfied by *service.CatalogService; narrow interface for testability.
type MenuItemServicer interface {
	ListMenuItems(ctx context.Context, tenantID string, categoryID *uuid.UUID) ([]database.MenuItem, error)
	AddMenuItem(ctx context.Context, tenantID string, in service.MenuItemInput) (database.MenuItem, error)
	UpdateMenuItem(ctx context.Context, tenantID string, id uuid.UUID, p service.MenuItemPatch) (database.MenuItem, error)
	SetMenuItemStock(ctx context.Context, tenantID string, id uuid.UUID, inStock bool) (database.MenuItem, error)
	DeleteMenuItem(ctx context.Context, tenantID string, id uuid.UUID) error
}

// MenuItemHandler handles admin menu item endpoints.
type MenuItemHandler struct {
	svc     MenuItemServicer
	catalog CatalogRefresher
}

// NewMenuItemHandler creates a new MenuItemHandler.
func NewMenuItemHandler(svc MenuItemServicer, catalog CatalogRefresher) *MenuItemHandler {
	return &MenuItemHandler{svc: svc, catalog: catalog}
}

// RegisterRoutes registers menu item endpoints on the given Chi router.
// Expected to be mounted inside a tenant-scoped subrouter: /tenants/{tenant}/admin/menu-items
func (h *MenuItemHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Patch("/{id}", h.Update)
	r.Patch("/{id}/stock", h.SetStock)
	r.Delete("/{id}", h.Delete)
}

// --- Request / Response types ---

type createMenuItemRequest struct {
	CategoryID   string           `json:"category_id"`
	Name         string           `json:"name"`
	Description  string           `json:"description"`
	Price        *decimal.Decimal `json:"price"`
	IsVegetarian bool             `json:"is_vegetarian"`
	IsSpicy      bool             `json:"is_spicy"`
	InStock      *bool            `json:"in_stock"`
	ImageURL     string           `json:"image_url"`
	Allergens    []string         `json:"allergens"`
}

type updateMenuItemRequest struct {
	CategoryID   *string          `json:"category_id"`
	Name         *string          `json:"name"`
	Description  *string          `json:"description"`
	Price        *decimal.Decimal `json:"price"`
	IsVegetarian *bool            `json:"is_vegetarian"`
	IsSpicy      *bool            `json:"is_spicy"`
	InStock      *bool            `json:"in_stock"`
	ImageURL     *string          `json:"image_url"`
	Allergens    []string         `json:"allergens"`
}

type setStockRequest struct {
	InStock *bool `json:"in_stock"`
}

type menuItemResponse struct {
	ID           uuid.UUID `json:"id"`
	CategoryID   uuid.UUID `json:"category_id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	Price        string    `json:"price"`
	IsVegetarian bool      `json:"is_vegetarian"`
	IsSpicy      bool      `json:"is_spicy"`
	InStock      bool      `json:"in_stock"`
	ImageURL     *string   `json:"image_url"`
	Allergens    []string  `json:"allergens"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func toMenuItemResponse(m database.MenuItem) menuItemResponse {
	allergens := m.Allergens
	if allergens == nil {
		allergens = []string{}
	}
	return menuItemResponse{
		ID:           m.ID,
		CategoryID:   m.CategoryID,
		Name:         m.Name,
		Description:  m.Description,
		Price:        numericToString(m.Price),
		IsVegetarian: m.IsVegetarian,
		IsSpicy:      m.IsSpicy,
		InStock:      m.InStock,
		ImageURL:     textPtr(m.ImageUrl),
		Allergens:    allergens,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func toMenuItemResponses(items []database.MenuItem) []menuItemResponse {
	resp := make([]menuItemResponse, len(items))
	for i, m := range items {
		resp[i] = toMenuItemResponse(m)
	}
	return resp
}

// --- Handlers ---

// List returns the tenant's menu items, optionally filtered by ?category=.
// "all" or an empty category returns everything.
func (h *MenuItemHandler) List(w http.ResponseWriter, r *http.Request) {
	var categoryID *uuid.UUID
	if c := r.URL.Query().Get("category"); c != "" && c != catalog.AllItemsID {
		id, err := uuid.Parse(c)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid category ID"})
			return
		}
		categoryID = &id
	}

	items, err := h.svc.ListMenuItems(r.Context(), chi.URLParam(r, "tenant"), categoryID)
	if err != nil {
		writeServiceError(w, "list menu items", err)
		return
	}

	writeJSON(w, http.StatusOK, toMenuItemResponses(items))
}

// Create adds a menu item.
func (h *MenuItemHandler) Create(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenant")

	var req createMenuItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	// A missing category is left to the service, which reports it as a field error.
	var categoryID uuid.UUID
	if req.CategoryID != "" {
		id, err := uuid.Parse(req.CategoryID)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid category_id"})
			return
		}
		categoryID = id
	}

	var item database.MenuItem
	err := h.catalog.Mutate(r.Context(), tenantID, func(ctx context.Context) error {
		var err error
		item, err = h.svc.AddMenuItem(ctx, tenantID, service.MenuItemInput{
			CategoryID:   categoryID,
			Name:         req.Name,
			Description:  req.Description,
			Price:        req.Price,
			IsVegetarian: req.IsVegetarian,
			IsSpicy:      req.IsSpicy,
			InStock:      req.InStock,
			ImageURL:     req.ImageURL,
			Allergens:    req.Allergens,
		})
		return err
	})
	if err != nil {
		writeServiceError(w, "create menu item", err)
		return
	}

	writeJSON(w, http.StatusCreated, toMenuItemResponse(item))
}

// Update applies a partial update. An empty image_url clears the image.
func (h *MenuItemHandler) Update(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenant")

	itemID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid menu item ID"})
		return
	}

	var req updateMenuItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	patch := service.MenuItemPatch{
		Name:         req.Name,
		Description:  req.Description,
		Price:        req.Price,
		IsVegetarian: req.IsVegetarian,
		IsSpicy:      req.IsSpicy,
		InStock:      req.InStock,
		ImageURL:     req.ImageURL,
		Allergens:    req.Allergens,
	}
	if req.CategoryID != nil {
		id, err := uuid.Parse(*req.CategoryID)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid category_id"})
			return
		}
		patch.CategoryID = &id
	}

	var item database.MenuItem
	err = h.catalog.Mutate(r.Context(), tenantID, func(ctx context.Context) error {
		var err error
		item, err = h.svc.UpdateMenuItem(ctx, tenantID, itemID, patch)
		return err
	})
	if err != nil {
		writeServiceError(w, "update menu item", err)
		return
	}

	writeJSON(w, http.StatusOK, toMenuItemResponse(item))
}

// SetStock toggles availability.
func (h *MenuItemHandler) SetStock(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenant")

	itemID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid menu item ID"})
		return
	}

	var req setStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.InStock == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "in_stock is required"})
		return
	}

	var item database.MenuItem
	err = h.catalog.Mutate(r.Context(), tenantID, func(ctx context.Context) error {
		var err error
		item, err = h.svc.SetMenuItemStock(ctx, tenantID, itemID, *req.InStock)
		return err
	})
	if err != nil {
		writeServiceError(w, "set menu item stock", err)
		return
	}

	writeJSON(w, http.StatusOK, toMenuItemResponse(item))
}

// Delete removes a menu item.
func (h *MenuItemHandler) Delete(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenant")

	itemID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid menu item ID"})
		return
	}

	err = h.catalog.Mutate(r.Context(), tenantID, func(ctx context.Context) error {
		return h.svc.DeleteMenuItem(ctx, tenantID, itemID)
	})
	if err != nil {
		writeServiceError(w, "delete menu item", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
