// Package optimistic routes catalog and order mutations to the remote store
// and, when the store rejects them, applies the same change to the local
// mirrors instead.
package optimistic

import (
	"context"
	"io"
	"log"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/docstore"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/mirror"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/order"
)

// Result tells whether a mutation reached the store or only the local view.
type Result int

const (
	Persisted Result = iota
	LocalOnly
)

func (r Result) String() string {
	if r == LocalOnly {
		return "local-only"
	}
	return "persisted"
}

func (r Result) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// StockChange is the outcome of one checkout line's stock decrement.
type StockChange struct {
	ProductID string `json:"productId"`
	Stock     int    `json:"stock"`
	Result    Result `json:"result"`
}

type Coordinator struct {
	store    docstore.Store
	products *mirror.Mirror[catalog.Product]
	orders   *mirror.Mirror[order.Order]
	logger   *log.Logger
}

func New(store docstore.Store, products *mirror.Mirror[catalog.Product], orders *mirror.Mirror[order.Order], logger *log.Logger) *Coordinator {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Coordinator{store: store, products: products, orders: orders, logger: logger}
}

func (c *Coordinator) fallback(op, id string, err error) Result {
	c.logger.Printf("optimistic: %s id=%s saved locally only: %v", op, id, err)
	return LocalOnly
}

// AddProduct writes p with stock and price floored at zero.
func (c *Coordinator) AddProduct(ctx context.Context, p catalog.Product) Result {
	p = p.Clamped()
	if err := c.store.Write(ctx, docstore.CollectionProducts, p.ID, p); err != nil {
		c.products.Upsert(p)
		return c.fallback("add product", p.ID, err)
	}
	return Persisted
}

func (c *Coordinator) RemoveProduct(ctx context.Context, id string) Result {
	if err := c.store.Delete(ctx, docstore.CollectionProducts, id); err != nil {
		c.products.Delete(id)
		return c.fallback("remove product", id, err)
	}
	return Persisted
}

func (c *Coordinator) UpdateStock(ctx context.Context, id string, stock int) Result {
	stock = catalog.ClampStock(stock)
	if err := c.store.Update(ctx, docstore.CollectionProducts, id, map[string]any{"stock": stock}); err != nil {
		c.products.Patch(id, func(p catalog.Product) catalog.Product {
			p.Stock = stock
			return p
		})
		return c.fallback("update stock", id, err)
	}
	return Persisted
}

func (c *Coordinator) UpdatePrice(ctx context.Context, id string, price float64) Result {
	price = catalog.ClampPrice(price)
	if err := c.store.Update(ctx, docstore.CollectionProducts, id, map[string]any{"price": price}); err != nil {
		c.products.Patch(id, func(p catalog.Product) catalog.Product {
			p.Price = price
			return p
		})
		return c.fallback("update price", id, err)
	}
	return Persisted
}

func (c *Coordinator) SaveOrder(ctx context.Context, o order.Order) Result {
	if err := c.store.Write(ctx, docstore.CollectionOrders, o.ID, o); err != nil {
		c.orders.Upsert(o.Clone())
		return c.fallback("save order", o.ID, err)
	}
	return Persisted
}

// DecrementStock lowers each line's product stock by the line quantity, one
// line at a time. Products no longer in view are skipped.
func (c *Coordinator) DecrementStock(ctx context.Context, items []cart.Item) []StockChange {
	changes := make([]StockChange, 0, len(items))
	for _, it := range items {
		p, ok := c.products.Get(it.ID)
		if !ok {
			continue
		}
		stock := catalog.ClampStock(p.Stock - it.Quantity)
		changes = append(changes, StockChange{
			ProductID: it.ID,
			Stock:     stock,
			Result:    c.UpdateStock(ctx, it.ID, stock),
		})
	}
	return changes
}
