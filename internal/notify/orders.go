package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/menucraft/api/internal/database"
	"github.com/menucraft/api/internal/enum"
	"github.com/menucraft/api/internal/ws"
)

// OrderEvent is the live-feed payload for order events.
type OrderEvent struct {
	ID           string    `json:"id"`
	OrderNumber  string    `json:"order_number"`
	CustomerName string    `json:"customer_name"`
	Total        string    `json:"total"`
	Status       string    `json:"status"`
	ItemCount    int       `json:"item_count"`
	CreatedAt    time.Time `json:"created_at"`
}

func orderEvent(o database.Order) OrderEvent {
	count := 0
	for _, l := range o.Items {
		count += int(l.Quantity)
	}
	return OrderEvent{
		ID:           o.ID.String(),
		OrderNumber:  o.OrderNumber,
		CustomerName: o.CustomerName,
		Total:        database.NumericToDecimal(o.Total).StringFixed(2),
		Status:       o.Status,
		ItemCount:    count,
		CreatedAt:    o.CreatedAt,
	}
}

// OrderNotifier forwards order changes to the live feed and, for new
// orders, to the notification dispatcher.
type OrderNotifier struct {
	hub        Broadcaster
	dispatcher *Dispatcher
	now        func() time.Time
}

// NewOrderNotifier creates an OrderNotifier. dispatcher may be nil.
func NewOrderNotifier(hub Broadcaster, dispatcher *Dispatcher) *OrderNotifier {
	return &OrderNotifier{hub: hub, dispatcher: dispatcher, now: time.Now}
}

func (n *OrderNotifier) OrderCreated(ctx context.Context, o database.Order) {
	ev := orderEvent(o)
	broadcast(n.hub, o.TenantID, enum.EventOrderCreated, ev)

	if n.dispatcher == nil {
		return
	}
	push, err := json.Marshal(map[string]any{
		"title": fmt.Sprintf("🔔 New order %s", o.OrderNumber),
		"body":  fmt.Sprintf("%s, %d items, total %s", o.CustomerName, ev.ItemCount, ev.Total),
		"data": map[string]any{
			"order_id":     ev.ID,
			"order_number": o.OrderNumber,
		},
	})
	if err != nil {
		log.Printf("ERROR: build order notification: %v", err)
		return
	}
	n.dispatcher.Dispatch(ctx, o.TenantID, Build(push, n.now()))
}

func (n *OrderNotifier) OrderStatusChanged(ctx context.Context, o database.Order) {
	broadcast(n.hub, o.TenantID, enum.EventOrderStatusChanged, orderEvent(o))
}

func broadcast(hub Broadcaster, tenantID, eventType string, v any) {
	if hub == nil {
		return
	}
	payload, err := json.Marshal(v)
	if err != nil {
		log.Printf("ERROR: marshal %s event: %v", eventType, err)
		return
	}
	hub.BroadcastToTenant(tenantID, ws.Event{Type: eventType, Payload: payload})
}
