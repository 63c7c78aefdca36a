// Package cart holds the shopper's cart: one entry per product, quantities
// bounded by live stock.
package cart

import (
	"sync"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/catalog"
)

const (
	// FallbackStockCeiling bounds quantities of products no longer in view.
	FallbackStockCeiling = 99
	Shipping             = 0.0
)

// Item is the product as it was when first added, plus a quantity.
type Item struct {
	catalog.Product
	Quantity int `json:"quantity"`
}

func (i Item) LineTotal() float64 {
	return i.Price * float64(i.Quantity)
}

func (i Item) Clone() Item {
	i.Product = i.Product.Clone()
	return i
}

// StockLookup reports the live stock of a product still in view.
type StockLookup func(productID string) (stock int, ok bool)

// Cart is safe for concurrent use.
type Cart struct {
	mu    sync.Mutex
	items []Item
}

func New() *Cart {
	return &Cart{}
}

func (c *Cart) indexLocked(id string) int {
	for i, it := range c.items {
		if it.ID == id {
			return i
		}
	}
	return -1
}

// Add merges p into the cart. An existing entry grows by one unless that
// would exceed p.Stock, in which case nothing changes. A new entry always
// starts at one. Add reports whether the cart changed.
func (c *Cart) Add(p catalog.Product) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if i := c.indexLocked(p.ID); i >= 0 {
		if c.items[i].Quantity+1 > p.Stock {
			return false
		}
		c.items[i].Quantity++
		return true
	}
	c.items = append(c.items, Item{Product: p.Clone(), Quantity: 1})
	return true
}

func (c *Cart) Remove(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexLocked(id)
	if i < 0 {
		return false
	}
	c.items = append(c.items[:i], c.items[i+1:]...)
	return true
}

// UpdateQuantity moves an entry's quantity by delta, clamped to
// [1, live stock], or [1, FallbackStockCeiling] when lookup no longer knows
// the product. It returns the resulting quantity and whether the entry exists.
func (c *Cart) UpdateQuantity(id string, delta int, lookup StockLookup) (int, bool) {
	ceiling := FallbackStockCeiling
	if lookup != nil {
		if stock, ok := lookup(id); ok {
			ceiling = stock
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexLocked(id)
	if i < 0 {
		return 0, false
	}
	q := c.items[i].Quantity + delta
	if q > ceiling {
		q = ceiling
	}
	if q < 1 {
		q = 1
	}
	c.items[i].Quantity = q
	return q, true
}

func (c *Cart) Clear() {
	c.mu.Lock()
	c.items = nil
	c.mu.Unlock()
}

// Items returns a copy of the entries in insertion order.
func (c *Cart) Items() []Item {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Item, 0, len(c.items))
	for _, it := range c.items {
		out = append(out, it.Clone())
	}
	return out
}

func (c *Cart) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Count is the number of units across all entries.
func (c *Cart) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, it := range c.items {
		n += it.Quantity
	}
	return n
}

func (c *Cart) Subtotal() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Subtotal(c.items)
}

func (c *Cart) Total() float64 {
	return c.Subtotal() + Shipping
}

// Subtotal sums price times quantity over items.
func Subtotal(items []Item) float64 {
	var sum float64
	for _, it := range items {
		sum += it.LineTotal()
	}
	return sum
}
