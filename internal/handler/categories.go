package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/menucraft/api/internal/database"
	"github.com/menucraft/api/internal/service"
)

// CategoryServicer defines the service methods needed by category handlers.
// Satisfied by *service.CatalogService; narrow interface for testability.
type CategoryServicer interface {
	ListCategories(ctx context.Context, tenantID string) ([]database.Category, error)
	AddCategory(ctx context.Context, tenantID string, in service.CategoryInput) (database.Category, error)
	UpdateCategory(ctx context.Context, tenantID string, id uuid.UUID, p service.CategoryPatch) (database.Category, error)
	SetCategoryActive(ctx context.Context, tenantID string, id uuid.UUID, active bool) (database.Category, error)
	DeleteCategory(ctx context.Context, tenantID string, id uuid.UUID) error
}

// CatalogRefresher runs a catalog change and republishes the tenant's menu.
// Satisfied by *catalog.View.
type CatalogRefresher interface {
	Mutate(ctx context.Context, tenantID string, fn func(ctx context.Context) error) error
}

// CategoryHandler handles admin category endpoints.
type CategoryHandler struct {
	svc     CategoryServicer
	catalog CatalogRefresher
}

// NewCategoryHandler creates a new CategoryHandler.
func NewCategoryHandler(svc CategoryServicer, catalog CatalogRefresher) *CategoryHandler {
	return &CategoryHandler{svc: svc, catalog: catalog}
}

// RegisterRoutes registers category endpoints on the given Chi router.
// Expected to be mounted inside a tenant-scoped subrouter: /tenants/{tenant}/admin/categories
func (h *CategoryHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Patch("/{id}", h.Update)
	r.Patch("/{id}/active", h.SetActive)
	r.Delete("/{id}", h.Delete)
}

// --- Request / Response types ---

type createCategoryRequest struct {
	Name         string `json:"name"`
	Icon         string `json:"icon"`
	Color        string `json:"color"`
	DisplayOrder *int32 `json:"display_order"`
	IsActive     *bool  `json:"is_active"`
}

type updateCategoryRequest struct {
	Name         *string `json:"name"`
	Icon         *string `json:"icon"`
	Color        *string `json:"color"`
	DisplayOrder *int32  `json:"display_order"`
	IsActive     *bool   `json:"is_active"`
}

type setActiveRequest struct {
	IsActive *bool `json:"is_active"`
}

type categoryResponse struct {
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

func toCategoryResponse(c database.Category) categoryResponse {
	return categoryResponse{
		ID:           c.ID,
		TenantID:     c.TenantID,
		Name:         c.Name,
		Icon:         c.Icon,
		Color:        c.Color,
		DisplayOrder: c.DisplayOrder,
		IsActive:     c.IsActive,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}

// --- Handlers ---

// List returns every category of the tenant, inactive ones included.
func (h *CategoryHandler) List(w http.ResponseWriter, r *http.Request) {
	categories, err := h.svc.ListCategories(r.Context(), chi.URLParam(r, "tenant"))
	if err != nil {
		writeServiceError(w, "list categories", err)
		return
	}

	resp := make([]categoryResponse, len(categories))
	for i, c := range categories {
		resp[i] = toCategoryResponse(c)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Create adds a category. Display order defaults to the end of the list.
func (h *CategoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenant")

	var req createCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	var category database.Category
	err := h.catalog.Mutate(r.Context(), tenantID, func(ctx context.Context) error {
		var err error
		category, err = h.svc.AddCategory(ctx, tenantID, service.CategoryInput{
			Name:         req.Name,
			Icon:         req.Icon,
			Color:        req.Color,
			DisplayOrder: req.DisplayOrder,
			IsActive:     req.IsActive,
		})
		return err
	})
	if err != nil {
		writeServiceError(w, "create category", err)
		return
	}

	writeJSON(w, http.StatusCreated, toCategoryResponse(category))
}

// Update applies a partial update to a category.
func (h *CategoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenant")

	catID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid category ID"})
		return
	}

	var req updateCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	var category database.Category
	err = h.catalog.Mutate(r.Context(), tenantID, func(ctx context.Context) error {
		var err error
		category, err = h.svc.UpdateCategory(ctx, tenantID, catID, service.CategoryPatch{
			Name:         req.Name,
			Icon:         req.Icon,
			Color:        req.Color,
			DisplayOrder: req.DisplayOrder,
			IsActive:     req.IsActive,
		})
		return err
	})
	if err != nil {
		writeServiceError(w, "update category", err)
		return
	}

	writeJSON(w, http.StatusOK, toCategoryResponse(category))
}

// SetActive shows or hides a category on the customer menu.
func (h *CategoryHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenant")

	catID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid category ID"})
		return
	}

	var req setActiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.IsActive == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "is_active is required"})
		return
	}

	var category database.Category
	err = h.catalog.Mutate(r.Context(), tenantID, func(ctx context.Context) error {
		var err error
		category, err = h.svc.SetCategoryActive(ctx, tenantID, catID, *req.IsActive)
		return err
	})
	if err != nil {
		writeServiceError(w, "set category active", err)
		return
	}

	writeJSON(w, http.StatusOK, toCategoryResponse(category))
}

// Delete removes a category. Categories still holding menu items are refused with 409.
func (h *CategoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenant")

	catID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid category ID"})
		return
	}

	err = h.catalog.Mutate(r.Context(), tenantID, func(ctx context.Context) error {
		return h.svc.DeleteCategory(ctx, tenantID, catID)
	})
	if err != nil {
		writeServiceError(w, "delete category", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
