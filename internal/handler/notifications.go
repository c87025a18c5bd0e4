package handler

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/menucraft/api/internal/enum"
	"github.com/menucraft/api/internal/notify"
	"github.com/menucraft/api/internal/ws"
)

const maxPushPayload = 64 << 10

// WindowDirectory lists and messages a tenant's open admin windows.
// Satisfied by *ws.Hub.
type WindowDirectory interface {
	Clients(tenantID string) []ws.ClientInfo
	SendTo(tenantID, clientID string, event ws.Event) bool
}

// NotificationDispatcher fans a notification out to every channel.
// Satisfied by *notify.Dispatcher.
type NotificationDispatcher interface {
	Dispatch(ctx context.Context, tenantID string, n notify.Notification)
}

// NotificationHandler handles admin push notifications and their clicks.
type NotificationHandler struct {
	windows    WindowDirectory
	dispatcher NotificationDispatcher
	now        func() time.Time
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(windows WindowDirectory, dispatcher NotificationDispatcher) *NotificationHandler {
	return &NotificationHandler{windows: windows, dispatcher: dispatcher, now: time.Now}
}

// RegisterPublicRoutes registers the click endpoint.
// Expected to be mounted at /tenants/{tenant}/notifications.
func (h *NotificationHandler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/click", h.Click)
}

// RegisterRoutes registers the push endpoint.
// Expected to be mounted at /tenants/{tenant}/admin/notifications.
func (h *NotificationHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Push)
}

// Push builds a notification from the raw body and dispatches it. A JSON
// body may override title, body and data; anything else becomes the body text.
func (h *NotificationHandler) Push(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxPushPayload))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	n := notify.Build(raw, h.now())
	h.dispatcher.Dispatch(r.Context(), chi.URLParam(r, "tenant"), n)

	writeJSON(w, http.StatusAccepted, n)
}

// Click routes a notification click (?action=) to an open admin window,
// which is told to focus over the live feed. With no admin window open the
// caller is told to open the orders page.
func (h *NotificationHandler) Click(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenant")

	clients := h.windows.Clients(tenantID)
	windows := make([]notify.Window, len(clients))
	for i, c := range clients {
		windows[i] = notify.Window{ID: c.ID, URL: c.URL}
	}

	result := notify.RouteClick(r.URL.Query().Get("action"), windows)
	if result.Kind == notify.ClickFocus {
		payload, err := json.Marshal(map[string]string{"url": result.URL})
		if err != nil {
			log.Printf("ERROR: encode focus event: %v", err)
		}
		if err != nil || !h.windows.SendTo(tenantID, result.WindowID, ws.Event{Type: enum.EventFocus, Payload: payload}) {
			// The window went away between listing and sending.
			result = notify.ClickResult{Kind: notify.ClickOpen, URL: notify.OrdersURL}
		}
	}

	writeJSON(w, http.StatusOK, result)
}
