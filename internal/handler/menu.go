package handler

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/menucraft/api/internal/catalog"
)

// MenuSource serves the cached catalog. Satisfied by *catalog.View.
type MenuSource interface {
	Current(ctx context.Context, tenantID string) (*catalog.Snapshot, error)
}

// MenuHandler serves the public customer menu.
type MenuHandler struct {
	menus MenuSource
}

// NewMenuHandler creates a new MenuHandler.
func NewMenuHandler(menus MenuSource) *MenuHandler {
	return &MenuHandler{menus: menus}
}

// RegisterRoutes registers public menu endpoints on the given Chi router.
// Expected to be mounted inside /tenants/{tenant}.
func (h *MenuHandler) RegisterRoutes(r chi.Router) {
	r.Get("/menu", h.Menu)
	r.Get("/categories", h.Categories)
}

// --- Response types ---

type menuResponse struct {
	Version    uint64                 `json:"version"`
	LoadedAt   time.Time              `json:"loaded_at"`
	Category   string                 `json:"category"`
	Categories []catalog.MenuCategory `json:"categories"`
	Items      []menuItemResponse     `json:"items"`
}

// --- Handlers ---

// Menu returns active categories and the items of ?category= (default all).
// When a refresh fails the last good snapshot is served; with none, 503.
func (h *MenuHandler) Menu(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenant")

	snap, err := h.menus.Current(r.Context(), tenantID)
	if err != nil {
		log.Printf("ERROR: load menu for %s: %v", tenantID, err)
	}
	if snap == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"error":     "menu is temporarily unavailable, please try again",
			"retryable": true,
		})
		return
	}

	category := r.URL.Query().Get("category")
	if category == "" {
		category = catalog.AllItemsID
	}

	menu := snap.ForCustomers()
	visible := &catalog.Snapshot{Items: menu.Items}

	writeJSON(w, http.StatusOK, menuResponse{
		Version:    snap.Version,
		LoadedAt:   snap.LoadedAt,
		Category:   category,
		Categories: menu.Categories,
		Items:      toMenuItemResponses(visible.Filter(category)),
	})
}

// Categories returns the customer category bar. It never fails: without a
// catalog it falls back to the "All Items" entry alone.
func (h *MenuHandler) Categories(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenant")

	snap, err := h.menus.Current(r.Context(), tenantID)
	if err != nil {
		log.Printf("ERROR: load categories for %s: %v", tenantID, err)
	}
	if snap == nil {
		writeJSON(w, http.StatusOK, catalog.FallbackCategories())
		return
	}

	writeJSON(w, http.StatusOK, snap.ForCustomers().Categories)
}
