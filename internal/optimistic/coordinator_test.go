package optimistic

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/docstore"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/mirror"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/order"
)

var errRejected = errors.New("rejected")

type fixture struct {
	store    *docstore.Memory
	products *mirror.Mirror[catalog.Product]
	orders   *mirror.Mirror[order.Order]
	c        *Coordinator
}

func newFixture(seed ...catalog.Product) fixture {
	store := docstore.NewMemory()
	products := mirror.New(func(p catalog.Product) string { return p.ID }, nil)
	products.Replace(seed)
	orders := mirror.New(order.Key, order.NewestFirst)
	for _, p := range seed {
		_ = store.Write(context.Background(), docstore.CollectionProducts, p.ID, p)
	}
	return fixture{store: store, products: products, orders: orders, c: New(store, products, orders, nil)}
}

func failAll(op docstore.Op, collection, id string) error { return errRejected }

func bike(id string, stock int) catalog.Product {
	return catalog.Product{
		ID: id, Name: "Bike " + id, Price: 500, Category: catalog.CategoryCity,
		Image: "img", Stock: stock, Description: "d", Specs: []string{"s1", "s2"},
		Weight: "12 kg", FrameSize: "M",
	}
}

func TestAddProduct_FallbackPreservesFields(t *testing.T) {
	f := newFixture()
	f.store.SetFault(failAll)

	p := bike("42", 3)
	require.Equal(t, LocalOnly, f.c.AddProduct(context.Background(), p))

	got, ok := f.products.Get("42")
	require.True(t, ok)
	require.Equal(t, p, got)
}

func TestAddProduct_SuccessLeavesMirrorAlone(t *testing.T) {
	f := newFixture()
	p := bike("42", -5)
	p.Price = -1

	require.Equal(t, Persisted, f.c.AddProduct(context.Background(), p))
	_, ok := f.products.Get("42")
	require.False(t, ok)

	docs, err := f.store.ReadAll(context.Background(), docstore.CollectionProducts)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	var stored catalog.Product
	require.NoError(t, docs[0].Decode(&stored))
	require.Equal(t, 0, stored.Stock)
	require.Equal(t, 0.0, stored.Price)
}

func TestRemoveProduct(t *testing.T) {
	f := newFixture(bike("1", 1), bike("2", 1))
	f.store.SetFault(failAll)

	require.Equal(t, LocalOnly, f.c.RemoveProduct(context.Background(), "1"))
	view := f.products.View()
	require.Len(t, view, 1)
	require.Equal(t, "2", view[0].ID)
}

func TestUpdateStockAndPrice_ClampOnFallback(t *testing.T) {
	f := newFixture(bike("1", 4))
	f.store.SetFault(failAll)

	require.Equal(t, LocalOnly, f.c.UpdateStock(context.Background(), "1", -3))
	require.Equal(t, LocalOnly, f.c.UpdatePrice(context.Background(), "1", -10))

	got, _ := f.products.Get("1")
	require.Equal(t, 0, got.Stock)
	require.Equal(t, 0.0, got.Price)
}

func TestUpdateStock_PersistsClampedValue(t *testing.T) {
	f := newFixture(bike("1", 4))

	require.Equal(t, Persisted, f.c.UpdateStock(context.Background(), "1", -3))
	docs, err := f.store.ReadAll(context.Background(), docstore.CollectionProducts)
	require.NoError(t, err)
	var stored catalog.Product
	require.NoError(t, docs[0].Decode(&stored))
	require.Equal(t, 0, stored.Stock)

	got, _ := f.products.Get("1")
	require.Equal(t, 4, got.Stock)
}

func TestSaveOrder_FallbackPrepends(t *testing.T) {
	f := newFixture()
	f.orders.Replace([]order.Order{{ID: "100"}})
	f.store.SetFault(failAll)

	o := order.New("200", time.Now(), "A", "B", "", nil)
	require.Equal(t, LocalOnly, f.c.SaveOrder(context.Background(), o))

	view := f.orders.View()
	require.Len(t, view, 2)
	require.Equal(t, "200", view[0].ID)
}

func TestDecrementStock_PerLineFallback(t *testing.T) {
	f := newFixture(bike("A", 5), bike("B", 5))
	f.store.SetFault(func(op docstore.Op, collection, id string) error {
		if op == docstore.OpUpdate && id == "A" {
			return errRejected
		}
		return nil
	})

	changes := f.c.DecrementStock(context.Background(), []cart.Item{
		{Product: bike("A", 5), Quantity: 2},
		{Product: bike("B", 5), Quantity: 3},
		{Product: bike("gone", 5), Quantity: 1},
	})

	require.Equal(t, []StockChange{
		{ProductID: "A", Stock: 3, Result: LocalOnly},
		{ProductID: "B", Stock: 2, Result: Persisted},
	}, changes)

	a, _ := f.products.Get("A")
	require.Equal(t, 3, a.Stock)
	b, _ := f.products.Get("B")
	require.Equal(t, 5, b.Stock)
}

func TestDecrementStock_FloorsAtZero(t *testing.T) {
	f := newFixture(bike("A", 1))
	f.store.SetFault(failAll)

	changes := f.c.DecrementStock(context.Background(), []cart.Item{{Product: bike("A", 1), Quantity: 4}})
	require.Equal(t, 0, changes[0].Stock)
	a, _ := f.products.Get("A")
	require.Equal(t, 0, a.Stock)
}
