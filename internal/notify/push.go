package notify

import (
	"encoding/json"
	"maps"
	"time"
)

const (
	AdminPath = "/admin.html"
	OrdersURL = "/admin.html#orders"

	ActionView    = "view"
	ActionDismiss = "dismiss"

	// DefaultIcon is an orange receipt glyph, inlined so notifications render offline.
	DefaultIcon = "data:image/svg+xml;base64,PHN2ZyB3aWR0aD0iNDgiIGhlaWdodD0iNDgiIHZpZXdCb3g9IjAgMCA0OCA0OCIgZmlsbD0ibm9uZSIgeG1sbnM9Imh0dHA6Ly93d3cudzMub3JnLzIwMDAvc3ZnIj4KPHJlY3Qgd2lkdGg9IjQ4IiBoZWlnaHQ9IjQ4IiByeD0iOCIgZmlsbD0iI2Y5NzMxNiIvPgo8cGF0aCBkPSJNMTIgMTZWMzJIMzZWMTZIMTJaTTMyIDE4SDE2VjMwSDMyVjE4WiIgZmlsbD0id2hpdGUiLz4KPHBhdGggZD0iTTE4IDIySDMwVjI2SDE4VjIyWiIgZmlsbD0id2hpdGUiLz4KPC9zdmc+"
)

type Action struct {
	Action string `json:"action"`
	Title  string `json:"title"`
	Icon   string `json:"icon,omitempty"`
}

// Notification mirrors the browser Notification options, so field names
// are camelCase on the wire.
type Notification struct {
	Title              string         `json:"title"`
	Body               string         `json:"body"`
	Icon               string         `json:"icon"`
	Badge              string         `json:"badge"`
	Vibrate            []int          `json:"vibrate"`
	RequireInteraction bool           `json:"requireInteraction"`
	Silent             bool           `json:"silent"`
	Tag                string         `json:"tag"`
	Actions            []Action       `json:"actions"`
	Data               map[string]any `json:"data"`
}

// Default is the "new order" notification shown when a push carries nothing else.
func Default(now time.Time) Notification {
	return Notification{
		Title:              "🔔 MenuCraft - New Order!",
		Body:               "A new order has been received.",
		Icon:               DefaultIcon,
		Badge:              DefaultIcon,
		Vibrate:            []int{200, 100, 200, 100, 200},
		RequireInteraction: true,
		Tag:                "new-order",
		Actions: []Action{
			{Action: ActionView, Title: "👁️ View Order", Icon: DefaultIcon},
			{Action: ActionDismiss, Title: "✕ Dismiss"},
		},
		Data: map[string]any{
			"url":       OrdersURL,
			"timestamp": now.UnixMilli(),
		},
	}
}

// Build turns a push payload into a notification. A JSON payload may set
// title and body and add to data; anything else becomes the body text.
func Build(raw []byte, now time.Time) Notification {
	n := Default(now)
	if len(raw) == 0 {
		return n
	}
	if !json.Valid(raw) {
		n.Body = string(raw)
		return n
	}

	var p struct {
		Title string         `json:"title"`
		Body  string         `json:"body"`
		Data  map[string]any `json:"data"`
	}
	// Valid JSON of another shape (an array, a number) leaves the defaults.
	_ = json.Unmarshal(raw, &p)

	if p.Title != "" {
		n.Title = p.Title
	}
	if p.Body != "" {
		n.Body = p.Body
	}
	maps.Copy(n.Data, p.Data)
	return n
}

// URL is the page the notification points at.
func (n Notification) URL() string {
	if u, ok := n.Data["url"].(string); ok && u != "" {
		return u
	}
	return OrdersURL
}
