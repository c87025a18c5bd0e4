package handler

import (
	"context"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/menucraft/api/internal/service"
)

// AnalyticsServicer defines the service methods needed by the analytics handler.
// Satisfied by *service.AnalyticsService.
type AnalyticsServicer interface {
	GetAnalytics(ctx context.Context, tenantID string, days int) (service.Analytics, error)
	EmptyAnalytics(ctx context.Context, tenantID string, days int) service.Analytics
}

// AnalyticsHandler serves the admin dashboard numbers.
type AnalyticsHandler struct {
	svc AnalyticsServicer
}

// NewAnalyticsHandler creates a new AnalyticsHandler.
func NewAnalyticsHandler(svc AnalyticsServicer) *AnalyticsHandler {
	return &AnalyticsHandler{svc: svc}
}

// RegisterRoutes registers analytics endpoints on the given Chi router.
// Expected to be mounted at /tenants/{tenant}/admin/analytics.
func (h *AnalyticsHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.Get)
}

// --- Response types ---

type analyticsResponse struct {
	Days              int                    `json:"days"`
	TotalOrders       int                    `json:"total_orders"`
	TotalRevenue      string                 `json:"total_revenue"`
	AverageOrderValue string                 `json:"average_order_value"`
	TopItems          []topItemResponse      `json:"top_items"`
	OrdersByStatus    map[string]int         `json:"orders_by_status"`
	DailyRevenue      []dailyRevenueResponse `json:"daily_revenue"`
	Degraded          bool                   `json:"degraded,omitempty"`
}

type topItemResponse struct {
	Name     string `json:"name"`
	Quantity int64  `json:"quantity"`
	Revenue  string `json:"revenue"`
}

type dailyRevenueResponse struct {
	Date    string `json:"date"`
	Revenue string `json:"revenue"`
}

func toAnalyticsResponse(a service.Analytics) analyticsResponse {
	resp := analyticsResponse{
		Days:              a.Days,
		TotalOrders:       a.TotalOrders,
		TotalRevenue:      a.TotalRevenue.StringFixed(2),
		AverageOrderValue: a.AverageOrderValue.StringFixed(2),
		TopItems:          make([]topItemResponse, len(a.TopItems)),
		OrdersByStatus:    a.OrdersByStatus,
		DailyRevenue:      make([]dailyRevenueResponse, len(a.DailyRevenue)),
	}
	for i, t := range a.TopItems {
		resp.TopItems[i] = topItemResponse{Name: t.Name, Quantity: t.Quantity, Revenue: t.Revenue.StringFixed(2)}
	}
	for i, d := range a.DailyRevenue {
		resp.DailyRevenue[i] = dailyRevenueResponse{Date: d.Date, Revenue: d.Revenue.StringFixed(2)}
	}
	return resp
}

// --- Handlers ---

// Get returns analytics for the last ?days= days (default 30). A failed
// computation degrades to an all-zero document instead of an error.
func (h *AnalyticsHandler) Get(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenant")

	days := 0
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid days"})
			return
		}
		days = n
	}

	a, err := h.svc.GetAnalytics(r.Context(), tenantID, days)
	if err != nil {
		log.Printf("ERROR: analytics for %s: %v", tenantID, err)
		resp := toAnalyticsResponse(h.svc.EmptyAnalytics(r.Context(), tenantID, days))
		resp.Degraded = true
		writeJSON(w, http.StatusOK, resp)
		return
	}

	writeJSON(w, http.StatusOK, toAnalyticsResponse(a))
}
