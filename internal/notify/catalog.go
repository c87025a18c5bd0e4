package notify

import (
	"time"

	"github.com/menucraft/api/internal/catalog"
	"github.com/menucraft/api/internal/enum"
)

// CatalogEvent is the live-feed payload sent after every catalog refresh.
type CatalogEvent struct {
	Version    uint64    `json:"version"`
	Categories int       `json:"categories"`
	Items      int       `json:"items"`
	LoadedAt   time.Time `json:"loaded_at"`
}

// CatalogPublisher forwards refreshed catalogs to the tenant's admin windows,
// so every open admin page reloads after an edit made in another one.
func CatalogPublisher(hub Broadcaster) catalog.Publisher {
	return catalog.PublisherFunc(func(s *catalog.Snapshot) {
		broadcast(hub, s.TenantID, enum.EventCatalogUpdated, CatalogEvent{
			Version:    s.Version,
			Categories: len(s.Categories),
			Items:      len(s.Items),
			LoadedAt:   s.LoadedAt,
		})
	})
}
