package catalog

import (
	"sort"
	"time"

	"github.com/menucraft/api/internal/database"
)

// AllItemsID is the pseudo-category that disables filtering.
const AllItemsID = "all"

// MenuCategory is a category as the customer menu shows it.
type MenuCategory struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Icon         string `json:"icon"`
	Color        string `json:"color"`
	DisplayOrder int32  `json:"display_order"`
}

// AllItems is always the first category on the customer menu.
var AllItems = MenuCategory{
	ID:           AllItemsID,
	Name:         "All Items",
	Icon:         "🍽️",
	Color:        "#f97316",
	DisplayOrder: -1,
}

// FallbackCategories is shown when categories cannot be loaded.
func FallbackCategories() []MenuCategory {
	return []MenuCategory{AllItems}
}

// Snapshot is one consistent read of a tenant's catalog.
type Snapshot struct {
	TenantID   string
	Version    uint64
	Categories []database.Category
	Items      []database.MenuItem
	LoadedAt   time.Time
}

// CustomerMenu is the public view of a snapshot.
type CustomerMenu struct {
	Categories []MenuCategory
	Items      []database.MenuItem
}

// Filter returns the items of one category. An empty id or "all" returns
// every item.
func (s *Snapshot) Filter(categoryID string) []database.MenuItem {
	if categoryID == "" || categoryID == AllItemsID {
		return s.Items
	}
	out := make([]database.MenuItem, 0)
	for _, it := range s.Items {
		if it.CategoryID.String() == categoryID {
			out = append(out, it)
		}
	}
	return out
}

// ForCustomers hides inactive categories and their items, orders categories
// by display order then name, and puts AllItems first.
func (s *Snapshot) ForCustomers() CustomerMenu {
	active := make(map[string]bool, len(s.Categories))
	cats := make([]MenuCategory, 0, len(s.Categories)+1)
	for _, c := range s.Categories {
		if !c.IsActive {
			continue
		}
		id := c.ID.String()
		active[id] = true
		cats = append(cats, MenuCategory{
			ID:           id,
			Name:         c.Name,
			Icon:         c.Icon,
			Color:        c.Color,
			DisplayOrder: c.DisplayOrder,
		})
	}
	sort.SliceStable(cats, func(i, j int) bool {
		if cats[i].DisplayOrder != cats[j].DisplayOrder {
			return cats[i].DisplayOrder < cats[j].DisplayOrder
		}
		return cats[i].Name < cats[j].Name
	})

	items := make([]database.MenuItem, 0, len(s.Items))
	for _, it := range s.Items {
		if active[it.CategoryID.String()] {
			items = append(items, it)
		}
	}

	return CustomerMenu{
		Categories: append([]MenuCategory{AllItems}, cats...),
		Items:      items,
	}
}
