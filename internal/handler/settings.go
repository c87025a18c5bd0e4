package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/menucraft/api/internal/service"
)

// SettingsServicer defines the service methods needed by settings handlers.
// Satisfied by *service.SettingsService.
type SettingsServicer interface {
	GetSettings(ctx context.Context, tenantID string) (service.Settings, error)
	UpdateSettings(ctx context.Context, tenantID string, patch service.SettingsPatch) (service.Settings, error)
}

// SettingsHandler serves the restaurant profile.
type SettingsHandler struct {
	svc SettingsServicer
}

// NewSettingsHandler creates a new SettingsHandler.
func NewSettingsHandler(svc SettingsServicer) *SettingsHandler {
	return &SettingsHandler{svc: svc}
}

// RegisterPublicRoutes registers the read endpoint at /tenants/{tenant}/settings.
func (h *SettingsHandler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/", h.Get)
}

// RegisterRoutes registers the admin write endpoint at /tenants/{tenant}/admin/settings.
func (h *SettingsHandler) RegisterRoutes(r chi.Router) {
	r.Put("/", h.Update)
}

// --- Request types ---

// updateSettingsRequest mirrors service.Settings with every field optional.
type updateSettingsRequest struct {
	Name        *string             `json:"name"`
	Description *string             `json:"description"`
	Address     *string             `json:"address"`
	Phone       *string             `json:"phone"`
	Email       *string             `json:"email"`
	Logo        *string             `json:"logo"`
	Theme       *updateThemeRequest `json:"theme"`
	Currency    *string             `json:"currency"`
	Timezone    *string             `json:"timezone"`
	IsActive    *bool               `json:"is_active"`
}

type updateThemeRequest struct {
	PrimaryColor *string `json:"primary_color"`
	AccentColor  *string `json:"accent_color"`
}

// --- Handlers ---

// Get returns the tenant's settings, or the defaults when none are stored.
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	settings, err := h.svc.GetSettings(r.Context(), chi.URLParam(r, "tenant"))
	if err != nil {
		writeServiceError(w, "get settings", err)
		return
	}

	writeJSON(w, http.StatusOK, settings)
}

// Update merges the request onto the stored settings. Omitted fields are kept.
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	patch := service.SettingsPatch{
		Name:        req.Name,
		Description: req.Description,
		Address:     req.Address,
		Phone:       req.Phone,
		Email:       req.Email,
		Logo:        req.Logo,
		Currency:    req.Currency,
		Timezone:    req.Timezone,
		IsActive:    req.IsActive,
	}
	if req.Theme != nil {
		patch.Theme = &service.ThemePatch{
			PrimaryColor: req.Theme.PrimaryColor,
			AccentColor:  req.Theme.AccentColor,
		}
	}

	settings, err := h.svc.UpdateSettings(r.Context(), chi.URLParam(r, "tenant"), patch)
	if err != nil {
		writeServiceError(w, "update settings", err)
		return
	}

	writeJSON(w, http.StatusOK, settings)
}
