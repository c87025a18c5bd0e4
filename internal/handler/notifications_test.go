package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/menucraft/api/internal/enum"
	"github.com/menucraft/api/internal/handler"
	"github.com/menucraft/api/internal/notify"
	"github.com/menucraft/api/internal/ws"
)

type fakeWindows struct {
	clients map[string][]ws.ClientInfo
	gone    map[string]bool // client ids that disappear before SendTo
	sent    []ws.Event
}

func (f *fakeWindows) Clients(tenantID string) []ws.ClientInfo {
	return f.clients[tenantID]
}

func (f *fakeWindows) SendTo(tenantID, clientID string, event ws.Event) bool {
	if f.gone[clientID] {
		return false
	}
	f.sent = append(f.sent, event)
	return true
}

type recordingDispatcher struct {
	mu      sync.Mutex
	tenants []string
	sent    []notify.Notification
}

func (d *recordingDispatcher) Dispatch(_ context.Context, tenantID string, n notify.Notification) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tenants = append(d.tenants, tenantID)
	d.sent = append(d.sent, n)
}

func setupNotificationRouter(windows *fakeWindows, dispatcher *recordingDispatcher) *chi.Mux {
	h := handler.NewNotificationHandler(windows, dispatcher)
	r := chi.NewRouter()
	r.Route("/tenants/{tenant}", func(r chi.Router) {
		r.Route("/notifications", h.RegisterPublicRoutes)
		r.Route("/admin/notifications", h.RegisterRoutes)
	})
	return r
}

func TestNotificationClick(t *testing.T) {
	windows := &fakeWindows{
		clients: map[string][]ws.ClientInfo{
			"pameer": {
				{ID: "c1", URL: "https://menu.example.com/index.html"},
				{ID: "c2", URL: "https://menu.example.com/admin.html#menu"},
			},
			"gone": {
				{ID: "c9", URL: "https://menu.example.com/admin.html"},
			},
		},
		gone: map[string]bool{"c9": true},
	}
	router := setupNotificationRouter(windows, &recordingDispatcher{})

	tests := []struct {
		name       string
		path       string
		wantKind   string
		wantWindow string
		wantURL    string
	}{
		{"body click focuses admin window", "/tenants/pameer/notifications/click", notify.ClickFocus, "c2", "https://menu.example.com/admin.html#menu"},
		{"view action focuses admin window", "/tenants/pameer/notifications/click?action=view", notify.ClickFocus, "c2", "https://menu.example.com/admin.html#menu"},
		{"dismiss does nothing", "/tenants/pameer/notifications/click?action=dismiss", notify.ClickNone, "", ""},
		{"no admin window opens orders", "/tenants/empty/notifications/click", notify.ClickOpen, "", notify.OrdersURL},
		{"window closed before focus", "/tenants/gone/notifications/click", notify.ClickOpen, "", notify.OrdersURL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doRequest(t, router, "GET", tt.path, nil)
			if rr.Code != http.StatusOK {
				t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
			}
			resp := decodeResponse(t, rr)
			if resp["kind"] != tt.wantKind {
				t.Errorf("kind: got %v, want %s", resp["kind"], tt.wantKind)
			}
			if tt.wantWindow != "" && resp["window_id"] != tt.wantWindow {
				t.Errorf("window_id: got %v, want %s", resp["window_id"], tt.wantWindow)
			}
			if tt.wantURL != "" && resp["url"] != tt.wantURL {
				t.Errorf("url: got %v, want %s", resp["url"], tt.wantURL)
			}
		})
	}

	if len(windows.sent) != 2 {
		t.Fatalf("focus events: got %d, want 2", len(windows.sent))
	}
	ev := windows.sent[0]
	if ev.Type != enum.EventFocus {
		t.Errorf("event type: got %s", ev.Type)
	}
	var payload map[string]string
	if err := json.Unmarshal(ev.Payload, &payload); err != nil || payload["url"] != "https://menu.example.com/admin.html#menu" {
		t.Errorf("payload: got %s (%v)", ev.Payload, err)
	}
}

func TestNotificationPush_PlainText(t *testing.T) {
	dispatcher := &recordingDispatcher{}
	router := setupNotificationRouter(&fakeWindows{}, dispatcher)

	req := httptest.NewRequest("POST", "/tenants/pameer/admin/notifications", strings.NewReader("Table 4 needs water"))
	rr := serve(router, req)

	if rr.Code != http.StatusAccepted {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusAccepted)
	}
	resp := decodeResponse(t, rr)
	if resp["body"] != "Table 4 needs water" || resp["tag"] != "new-order" {
		t.Errorf("got %v", resp)
	}
	if len(dispatcher.sent) != 1 || dispatcher.tenants[0] != "pameer" {
		t.Fatalf("dispatched: %v", dispatcher.tenants)
	}
	if dispatcher.sent[0].URL() != notify.OrdersURL {
		t.Errorf("url: got %s", dispatcher.sent[0].URL())
	}
}

func TestNotificationPush_JSONOverrides(t *testing.T) {
	dispatcher := &recordingDispatcher{}
	router := setupNotificationRouter(&fakeWindows{}, dispatcher)

	rr := doRequest(t, router, "POST", "/tenants/pameer/admin/notifications", map[string]interface{}{
		"title": "Order ORD-1",
		"data":  map[string]string{"url": "/admin.html#orders/ORD-1"},
	})

	if rr.Code != http.StatusAccepted {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusAccepted)
	}
	n := dispatcher.sent[0]
	if n.Title != "Order ORD-1" || n.Body != "A new order has been received." {
		t.Errorf("title/body: got %q / %q", n.Title, n.Body)
	}
	if n.URL() != "/admin.html#orders/ORD-1" {
		t.Errorf("url: got %s", n.URL())
	}
	if _, ok := n.Data["timestamp"]; !ok {
		t.Error("default timestamp should be kept")
	}
}
