package storefront

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/checkout"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/docstore"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/filestore"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/identity"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/optimistic"
)

type fakeFiles struct {
	err   error
	names []string
}

func (f *fakeFiles) Upload(ctx context.Context, name string, data []byte) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.names = append(f.names, name)
	return "http://files/" + name, nil
}

type fixture struct {
	memory *docstore.Memory
	auth   *identity.Service
	files  *fakeFiles
	app    *App
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	memory := docstore.NewMemory()
	auth := identity.NewService(identity.NewMemoryUserStore(), identity.Options{BcryptCost: bcrypt.MinCost})
	files := &fakeFiles{}
	app, err := New(Deps{
		Store:          memory,
		Auth:           auth,
		Files:          files,
		LoadingTimeout: time.Hour,
		Rand:           rand.New(rand.NewSource(1)),
	})
	require.NoError(t, err)
	t.Cleanup(app.Close)
	return fixture{memory: memory, auth: auth, files: files, app: app}
}

func (f fixture) signIn(t *testing.T) {
	t.Helper()
	_, err := f.app.Register(context.Background(), "seller@example.com", "secret1")
	require.NoError(t, err)
}

func TestSeed_RequiresIdentity(t *testing.T) {
	f := newFixture(t)
	f.app.Start(context.Background())

	n, err := f.app.Seed(context.Background())
	require.ErrorIs(t, err, ErrSeedFailed)
	require.True(t, docstore.IsPermissionDenied(err))
	require.Equal(t, 0, n)
	require.Equal(t, "Failed to seed database.", SeedMessage(n, err))
	require.Empty(t, f.app.Products())
}

func TestSeedAndBrowse(t *testing.T) {
	f := newFixture(t)
	f.app.Start(context.Background())
	f.signIn(t)

	n, err := f.app.Seed(context.Background())
	require.NoError(t, err)
	require.Equal(t, 12, n)
	require.Equal(t, "Successfully seeded 12 products.", SeedMessage(n, err))

	require.Len(t, f.app.Products(), 12)
	page := f.app.Browse(catalog.AllCategories, 2)
	require.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Items, 4)
	require.Len(t, f.app.Featured(), FeaturedCount)
	require.Len(t, f.app.Sales(), 7)
}

func TestShoppingAndCheckout(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.signIn(t)
	require.NoError(t, f.memory.Write(ctx, docstore.CollectionProducts, "1", catalog.Product{ID: "1", Name: "A", Price: 1850, Stock: 5}))
	require.NoError(t, f.memory.Write(ctx, docstore.CollectionProducts, "2", catalog.Product{ID: "2", Name: "B", Price: 899, Stock: 2}))
	f.app.Start(ctx)

	_, err := f.app.AddToCart("missing")
	require.ErrorIs(t, err, ErrProductNotFound)

	added, err := f.app.AddToCart("1")
	require.NoError(t, err)
	require.True(t, added)
	for i := 0; i < 3; i++ {
		_, err = f.app.AddToCart("2")
		require.NoError(t, err)
	}
	view := f.app.Cart()
	require.Equal(t, 3, view.Count)
	require.Equal(t, 3648.0, view.Total)

	q, ok := f.app.UpdateQuantity("2", 10)
	require.True(t, ok)
	require.Equal(t, 2, q)

	receipt, err := f.app.Checkout(ctx, checkout.CustomerDetails{FirstName: "Jo", LastName: "Doe", Email: "jo@doe.co"})
	require.NoError(t, err)
	require.Equal(t, optimistic.Persisted, receipt.Saved)
	require.Equal(t, 3648.0, receipt.Order.Total)
	require.Equal(t, 0, f.app.Cart().Count)

	p1, err := f.app.Product("1")
	require.NoError(t, err)
	require.Equal(t, 4, p1.Stock)
	p2, err := f.app.Product("2")
	require.NoError(t, err)
	require.Equal(t, 0, p2.Stock)

	orders := f.app.Orders()
	require.Len(t, orders, 1)
	require.Equal(t, receipt.Order.ID, orders[0].ID)
}

func TestCheckout_AsGuestFallsBackLocally(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.memory.Write(ctx, docstore.CollectionProducts, "1", catalog.Product{ID: "1", Price: 10, Stock: 5}))
	f.app.Start(ctx)

	_, err := f.app.AddToCart("1")
	require.NoError(t, err)
	receipt, err := f.app.Checkout(ctx, checkout.CustomerDetails{FirstName: "a", LastName: "b"})
	require.NoError(t, err)
	require.Equal(t, optimistic.LocalOnly, receipt.Saved)
	require.Equal(t, optimistic.LocalOnly, receipt.Stock[0].Result)

	p, err := f.app.Product("1")
	require.NoError(t, err)
	require.Equal(t, 4, p.Stock)
	require.Len(t, f.app.Orders(), 1)
	require.Equal(t, 2, f.app.Status().PendingProducts+f.app.Status().PendingOrders)
}

func TestSubmitProduct(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.app.Start(ctx)
	f.app.now = func() time.Time { return time.UnixMilli(1234) }

	draft := catalog.Draft{Name: "Trail", Price: 999, Category: catalog.CategoryMountain, Stock: 2, Specs: "a, b"}

	_, _, err := f.app.SubmitProduct(ctx, draft, nil)
	require.ErrorIs(t, err, ErrLoginRequired)

	f.signIn(t)
	_, _, err = f.app.SubmitProduct(ctx, catalog.Draft{Name: "x"}, nil)
	require.ErrorIs(t, err, catalog.ErrInvalidDraft)

	f.files.err = filestore.ErrStoragePermissionDenied
	_, _, err = f.app.SubmitProduct(ctx, draft, &Upload{Name: "bike.png", Data: []byte{1}})
	require.ErrorIs(t, err, filestore.ErrStoragePermissionDenied)
	require.Empty(t, f.app.Products())

	f.files.err = nil
	p, res, err := f.app.SubmitProduct(ctx, draft, &Upload{Name: "bike.png", Data: []byte{1}})
	require.NoError(t, err)
	require.Equal(t, optimistic.Persisted, res)
	require.Equal(t, "1234", p.ID)
	require.Equal(t, "http://files/bike.png", p.Image)
	require.Equal(t, []string{"a", "b"}, p.Specs)

	got, err := f.app.Product("1234")
	require.NoError(t, err)
	require.Equal(t, p, got)
}

func TestSellerMutations_FallBackWhenRejected(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.signIn(t)
	require.NoError(t, f.memory.Write(ctx, docstore.CollectionProducts, "1", catalog.Product{ID: "1", Price: 10, Stock: 5}))
	f.app.Start(ctx)

	f.memory.SetFault(func(op docstore.Op, collection, id string) error {
		if op == docstore.OpUpdate || op == docstore.OpDelete {
			return errors.New("offline")
		}
		return nil
	})

	require.Equal(t, optimistic.LocalOnly, f.app.UpdateStock(ctx, "1", 9))
	require.Equal(t, optimistic.LocalOnly, f.app.UpdatePrice(ctx, "1", 12.5))
	p, err := f.app.Product("1")
	require.NoError(t, err)
	require.Equal(t, 9, p.Stock)
	require.Equal(t, 12.5, p.Price)

	require.Equal(t, optimistic.LocalOnly, f.app.RemoveProduct(ctx, "1"))
	_, err = f.app.Product("1")
	require.ErrorIs(t, err, ErrProductNotFound)

	require.NoError(t, f.app.Refresh(ctx))
	p, err = f.app.Product("1")
	require.NoError(t, err)
	require.Equal(t, 5, p.Stock)
}
