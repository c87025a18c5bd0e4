package ws

import (
	"encoding/json"
	"sort"
	"sync"
)

// Event represents a WebSocket message to be broadcast
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// tenantEvent routes an event to one tenant's room. A non-empty ClientID
// narrows delivery to that single client.
type tenantEvent struct {
	TenantID string
	ClientID string
	Event    Event
}

// ClientInfo describes a connected admin window.
type ClientInfo struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Hub maintains the set of active clients and broadcasts messages to them
type Hub struct {
	// Registered clients by tenant ID
	rooms map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client

	// Outbound messages to broadcast
	broadcast chan *tenantEvent

	mu sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *tenantEvent, 256),
	}
}

// Run starts the hub's main loop
// This should be called as a goroutine: go hub.Run()
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.rooms[client.tenantID] == nil {
				h.rooms[client.tenantID] = make(map[*Client]bool)
			}
			h.rooms[client.tenantID][client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			h.remove(client)
			h.mu.Unlock()

		case event := <-h.broadcast:
			message, err := json.Marshal(event.Event)
			if err != nil {
				continue
			}

			h.mu.Lock()
			for client := range h.rooms[event.TenantID] {
				if event.ClientID != "" && client.id != event.ClientID {
					continue
				}
				select {
				case client.send <- message:
				default:
					// Client's send buffer is full, drop it
					h.remove(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// remove drops client from its room and closes its send channel.
// Caller must hold h.mu.
func (h *Hub) remove(client *Client) {
	clients, ok := h.rooms[client.tenantID]
	if !ok {
		return
	}
	if _, exists := clients[client]; !exists {
		return
	}
	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.rooms, client.tenantID)
	}
}

// BroadcastToTenant sends an event to every client subscribed to a tenant.
func (h *Hub) BroadcastToTenant(tenantID string, event Event) {
	h.broadcast <- &tenantEvent{TenantID: tenantID, Event: event}
}

// SendTo delivers an event to a single client of a tenant. It reports
// whether that client was connected when the call was made.
func (h *Hub) SendTo(tenantID, clientID string, event Event) bool {
	h.mu.RLock()
	found := false
	for client := range h.rooms[tenantID] {
		if client.id == clientID {
			found = true
			break
		}
	}
	h.mu.RUnlock()
	if !found {
		return false
	}

	h.broadcast <- &tenantEvent{TenantID: tenantID, ClientID: clientID, Event: event}
	return true
}

// setURL records the page a window moved to.
func (h *Hub) setURL(client *Client, url string) {
	h.mu.Lock()
	client.url = url
	h.mu.Unlock()
}

// Clients lists the tenant's connected windows, ordered by ID.
func (h *Hub) Clients(tenantID string) []ClientInfo {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]ClientInfo, 0, len(h.rooms[tenantID]))
	for client := range h.rooms[tenantID] {
		out = append(out, ClientInfo{ID: client.id, URL: client.url})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
