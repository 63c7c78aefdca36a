package integration

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/checkout"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/db"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/docstore"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/events"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/identity"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/optimistic"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/sequence"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/storefront"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/testutil"
)

const (
	sellerEmail    = "seller@example.com"
	sellerPassword = "secret1"
)

// Two storefront processes share one database and one broker. Changes made
// through either must reach the other's live view.
func TestStorefrontsShareLiveCatalog(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test needs docker")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	dsn := testutil.StartPostgres(t)
	conn := testutil.StartRabbitMQ(t)
	logger := log.New(io.Discard, "", log.LstdFlags)

	pool, err := db.NewPool(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	sqlDB, err := db.Open(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	users := identity.NewPostgresUserStore(sqlDB)

	newApp := func() *storefront.App {
		feed, err := events.NewRabbitFeed(conn, sequence.NewCounter(pool), logger)
		require.NoError(t, err)
		t.Cleanup(func() { _ = feed.Close() })

		app, err := storefront.New(storefront.Deps{
			Store:          docstore.NewPostgres(pool, feed, logger),
			Auth:           identity.NewService(users, identity.Options{BcryptCost: bcrypt.MinCost}),
			Logger:         logger,
			LoadingTimeout: 10 * time.Second,
		})
		require.NoError(t, err)
		app.Start(ctx)
		t.Cleanup(app.Close)
		return app
	}

	seller := newApp()
	shopper := newApp()

	require.Eventually(t, func() bool {
		return !seller.Status().Loading && !shopper.Status().Loading
	}, 15*time.Second, 50*time.Millisecond)
	require.Empty(t, shopper.Products())

	// Guests may read but not seed.
	_, err = shopper.Seed(ctx)
	require.True(t, docstore.IsPermissionDenied(err))

	_, err = seller.Register(ctx, sellerEmail, sellerPassword)
	require.NoError(t, err)

	n, err := seller.Seed(ctx)
	require.NoError(t, err)
	require.Equal(t, 12, n)

	require.Eventually(t, func() bool {
		return len(shopper.Products()) == n
	}, 20*time.Second, 100*time.Millisecond)

	require.Equal(t, optimistic.Persisted, seller.UpdateStock(ctx, "1", 2))
	require.Eventually(t, func() bool {
		p, err := shopper.Product("1")
		return err == nil && p.Stock == 2
	}, 20*time.Second, 100*time.Millisecond)

	// The account lives in the shared database, so it works from either process.
	_, err = shopper.SignIn(ctx, sellerEmail, sellerPassword)
	require.NoError(t, err)

	added, err := shopper.AddToCart("1")
	require.NoError(t, err)
	require.True(t, added)

	receipt, err := shopper.Checkout(ctx, checkout.CustomerDetails{FirstName: "Ada", LastName: "Lovelace"})
	require.NoError(t, err)
	require.Equal(t, optimistic.Persisted, receipt.Saved)
	require.Len(t, receipt.Stock, 1)
	require.Equal(t, 1, receipt.Stock[0].Stock)

	require.Eventually(t, func() bool {
		orders := seller.Orders()
		p, err := seller.Product("1")
		return len(orders) == 1 && orders[0].ID == receipt.Order.ID && err == nil && p.Stock == 1
	}, 20*time.Second, 100*time.Millisecond)
}

func TestRegisterRejectsDuplicateAcrossStores(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test needs docker")
	}

	ctx := context.Background()
	dsn := testutil.StartPostgres(t)

	sqlDB, err := db.Open(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	first := identity.NewService(identity.NewPostgresUserStore(sqlDB), identity.Options{BcryptCost: bcrypt.MinCost})
	second := identity.NewService(identity.NewPostgresUserStore(sqlDB), identity.Options{BcryptCost: bcrypt.MinCost})

	_, err = first.Register(ctx, sellerEmail, sellerPassword)
	require.NoError(t, err)

	_, err = second.Register(ctx, sellerEmail, sellerPassword)
	require.ErrorIs(t, err, identity.ErrEmailInUse)

	id, err := second.SignInWithCredentials(ctx, sellerEmail, sellerPassword)
	require.NoError(t, err)
	require.Equal(t, sellerEmail, id.Email)
}

func TestMigrationsRollBackAndReapply(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test needs docker")
	}

	dsn := testutil.StartPostgres(t)
	logger := log.New(io.Discard, "", 0)

	require.NoError(t, db.RollbackMigrations(dsn, 3, logger))
	require.NoError(t, db.RunMigrations(dsn, logger))
	require.NoError(t, db.RunMigrations(dsn, logger), "up is idempotent")
	require.Error(t, db.RollbackMigrations(dsn, 0, logger))
}
