package checkout

import (
	"errors"
	"fmt"
	"strings"

	"github.com/menucraft/api/internal/service"
	"github.com/shopspring/decimal"
)

// CartEntry is one line of the cart. Price is the unit price the customer saw.
type CartEntry struct {
	ItemID   string          `json:"item_id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int32           `json:"quantity"`
}

// Cart keeps lines in the order they were first added.
type Cart struct {
	lines []CartEntry
}

// NewCart builds a cart from entries, merging repeated items.
func NewCart(entries []CartEntry) (*Cart, error) {
	c := &Cart{}
	for i, e := range entries {
		if err := c.Add(e); err != nil {
			var ve *service.ValidationError
			if errors.As(err, &ve) {
				ve.Field = fmt.Sprintf("items[%d].%s", i, ve.Field)
			}
			return nil, err
		}
	}
	return c, nil
}

// Add appends an entry, or adds to the quantity of the same item.
func (c *Cart) Add(e CartEntry) error {
	e.ItemID = strings.TrimSpace(e.ItemID)
	e.Name = strings.TrimSpace(e.Name)
	switch {
	case e.ItemID == "":
		return &service.ValidationError{Field: "item_id", Message: "item id is required"}
	case e.Name == "":
		return &service.ValidationError{Field: "name", Message: "name is required"}
	case e.Price.IsNegative():
		return &service.ValidationError{Field: "price", Message: "price must be >= 0"}
	case e.Quantity < 1:
		return &service.ValidationError{Field: "quantity", Message: "quantity must be >= 1"}
	case e.Quantity > service.MaxItemQuantity:
		return tooMany()
	}

	for i := range c.lines {
		if c.lines[i].ItemID == e.ItemID {
			if int64(c.lines[i].Quantity)+int64(e.Quantity) > service.MaxItemQuantity {
				return tooMany()
			}
			c.lines[i].Quantity += e.Quantity
			return nil
		}
	}
	c.lines = append(c.lines, e)
	return nil
}

// SetQuantity changes an item's quantity. Zero or less removes it; the
// quantity is capped at service.MaxItemQuantity.
func (c *Cart) SetQuantity(itemID string, quantity int32) {
	if quantity <= 0 {
		c.Remove(itemID)
		return
	}
	if quantity > service.MaxItemQuantity {
		quantity = service.MaxItemQuantity
	}
	for i := range c.lines {
		if c.lines[i].ItemID == itemID {
			c.lines[i].Quantity = quantity
			return
		}
	}
}

func tooMany() error {
	return &service.ValidationError{
		Field:   "quantity",
		Message: fmt.Sprintf("quantity must be <= %d", service.MaxItemQuantity),
	}
}

func (c *Cart) Remove(itemID string) {
	for i := range c.lines {
		if c.lines[i].ItemID == itemID {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
			return
		}
	}
}

// Lines returns a copy of the cart lines.
func (c *Cart) Lines() []CartEntry {
	return append([]CartEntry(nil), c.lines...)
}

func (c *Cart) IsEmpty() bool { return len(c.lines) == 0 }

// Count is the number of units across all lines.
func (c *Cart) Count() int {
	n := 0
	for _, l := range c.lines {
		n += int(l.Quantity)
	}
	return n
}

func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.lines {
		total = total.Add(l.Price.Mul(decimal.NewFromInt32(l.Quantity)))
	}
	return total.Round(2)
}

// OrderItems snapshots the cart for order submission.
func (c *Cart) OrderItems() []service.OrderItemInput {
	out := make([]service.OrderItemInput, len(c.lines))
	for i, l := range c.lines {
		out[i] = service.OrderItemInput{
			ID:       l.ItemID,
			Name:     l.Name,
			Price:    l.Price,
			Quantity: l.Quantity,
		}
	}
	return out
}
