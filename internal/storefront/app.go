// Package storefront is the application state container. It owns every
// long-lived piece of state and the subscriptions that feed it, and releases
// them together on Close.
package storefront

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/checkout"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/docstore"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/filestore"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/identity"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/optimistic"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/order"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/syncengine"
)

const FeaturedCount = 3

var (
	ErrProductNotFound   = errors.New("product not found")
	ErrLoginRequired     = errors.New("please log in to add products")
	ErrUploadUnavailable = errors.New("file uploads are not configured")
	ErrSeedFailed        = errors.New("failed to seed database")
)

type Deps struct {
	// Store is the unguarded document store; the app wraps it with Rules.
	Store          docstore.Store
	Rules          docstore.Rules
	Auth           identity.Provider
	Files          filestore.Store
	Logger         *log.Logger
	LoadingTimeout time.Duration
	Rand           *rand.Rand
}

// Upload is an image attached to an add-product submission.
type Upload struct {
	Name string
	Data []byte
}

type App struct {
	store    docstore.Store
	auth     identity.Provider
	files    filestore.Store
	logger   *log.Logger
	engine   *syncengine.Engine
	writes   *optimistic.Coordinator
	cart     *cart.Cart
	checkout *checkout.Assembler
	seed     catalog.Seed
	now      func() time.Time

	rngMu sync.Mutex
	rng   *rand.Rand
}

func New(deps Deps) (*App, error) {
	if deps.Store == nil || deps.Auth == nil {
		return nil, errors.New("storefront: store and auth are required")
	}
	if deps.Logger == nil {
		deps.Logger = log.New(io.Discard, "", 0)
	}
	if deps.Rules == nil {
		deps.Rules = docstore.DefaultRules()
	}
	if deps.Rand == nil {
		deps.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	seed, err := catalog.LoadSeed()
	if err != nil {
		return nil, err
	}

	authenticated := func() bool {
		_, ok := deps.Auth.Current()
		return ok
	}
	store := docstore.NewGuard(deps.Store, deps.Rules, authenticated, deps.Logger)
	engine := syncengine.New(store, deps.Auth, syncengine.Options{
		LoadingTimeout: deps.LoadingTimeout,
		Logger:         deps.Logger,
	})
	writes := optimistic.New(store, engine.ProductMirror(), engine.OrderMirror(), deps.Logger)
	c := cart.New()

	return &App{
		store:    store,
		auth:     deps.Auth,
		files:    deps.Files,
		logger:   deps.Logger,
		engine:   engine,
		writes:   writes,
		cart:     c,
		checkout: checkout.NewAssembler(c, writes, deps.Logger),
		seed:     seed,
		now:      time.Now,
		rng:      deps.Rand,
	}, nil
}

func (a *App) Start(ctx context.Context) { a.engine.Start(ctx) }
func (a *App) Close()                    { a.engine.Close() }

func (a *App) Status() syncengine.Status { return a.engine.Status() }

// Reload restarts the streams after the store rules were fixed.
func (a *App) Reload() { a.engine.Reload() }

// Refresh reads the product collection once and installs it as a snapshot.
func (a *App) Refresh(ctx context.Context) error { return a.engine.Refresh(ctx) }

func (a *App) Products() []catalog.Product { return a.engine.Products() }

func (a *App) Product(id string) (catalog.Product, error) {
	p, ok := a.engine.Product(id)
	if !ok {
		return catalog.Product{}, ErrProductNotFound
	}
	return p, nil
}

// Browse filters by category ("All" for everything) and returns one page.
func (a *App) Browse(category string, page int) catalog.Page {
	return catalog.Paginate(catalog.Filter(a.engine.Products(), category), page)
}

func (a *App) Featured() []catalog.Product {
	a.rngMu.Lock()
	defer a.rngMu.Unlock()
	return catalog.Featured(a.engine.Products(), FeaturedCount, a.rng)
}

func (a *App) Orders() []order.Order { return a.engine.Orders() }

func (a *App) Sales() []catalog.SalesPoint {
	return append([]catalog.SalesPoint(nil), a.seed.Sales...)
}

type CartView struct {
	Items []cart.Item `json:"items"`
	Count int         `json:"count"`
	checkout.Summary
}

func (a *App) Cart() CartView {
	items := a.cart.Items()
	n := 0
	for _, it := range items {
		n += it.Quantity
	}
	return CartView{Items: items, Count: n, Summary: checkout.Summarize(items)}
}

// AddToCart adds the live product. It reports false when stock blocked it.
func (a *App) AddToCart(id string) (bool, error) {
	p, ok := a.engine.Product(id)
	if !ok {
		return false, ErrProductNotFound
	}
	return a.cart.Add(p), nil
}

func (a *App) RemoveFromCart(id string) bool { return a.cart.Remove(id) }

func (a *App) UpdateQuantity(id string, delta int) (int, bool) {
	return a.cart.UpdateQuantity(id, delta, a.engine.Stock)
}

func (a *App) ClearCart() { a.cart.Clear() }

func (a *App) Checkout(ctx context.Context, d checkout.CustomerDetails) (checkout.Receipt, error) {
	return a.checkout.ProcessOrder(ctx, d)
}

// SubmitProduct runs the seller's add-product form. A failed image upload
// aborts the submission; the product write itself falls back locally.
func (a *App) SubmitProduct(ctx context.Context, draft catalog.Draft, upload *Upload) (catalog.Product, optimistic.Result, error) {
	if _, ok := a.auth.Current(); !ok {
		return catalog.Product{}, optimistic.LocalOnly, ErrLoginRequired
	}
	if err := draft.Validate(); err != nil {
		return catalog.Product{}, optimistic.LocalOnly, err
	}

	var imageURL string
	if upload != nil && len(upload.Data) > 0 {
		if a.files == nil {
			return catalog.Product{}, optimistic.LocalOnly, ErrUploadUnavailable
		}
		url, err := a.files.Upload(ctx, upload.Name, upload.Data)
		if err != nil {
			a.logger.Printf("storefront: image upload failed name=%s: %v", upload.Name, err)
			return catalog.Product{}, optimistic.LocalOnly, fmt.Errorf("upload image: %w", err)
		}
		imageURL = url
	}

	p := draft.Build(strconv.FormatInt(a.now().UnixMilli(), 10), imageURL)
	res := a.writes.AddProduct(ctx, p)
	return p.Clamped(), res, nil
}

func (a *App) RemoveProduct(ctx context.Context, id string) optimistic.Result {
	return a.writes.RemoveProduct(ctx, id)
}

func (a *App) UpdateStock(ctx context.Context, id string, stock int) optimistic.Result {
	return a.writes.UpdateStock(ctx, id, stock)
}

func (a *App) UpdatePrice(ctx context.Context, id string, price float64) optimistic.Result {
	return a.writes.UpdatePrice(ctx, id, price)
}

// Seed writes the demo catalog. It is not optimistic: a rejected write stops
// the run and nothing is patched locally.
func (a *App) Seed(ctx context.Context) (int, error) {
	return SeedStore(ctx, a.store, a.seed.Products, a.logger)
}

// SeedStore writes products to store, stopping at the first failure.
func SeedStore(ctx context.Context, store docstore.Store, products []catalog.Product, logger *log.Logger) (int, error) {
	for i, p := range products {
		p = p.Clamped()
		if err := store.Write(ctx, docstore.CollectionProducts, p.ID, p); err != nil {
			logger.Printf("storefront: seeding stopped at product id=%s: %v", p.ID, err)
			return i, fmt.Errorf("%w: %w", ErrSeedFailed, err)
		}
	}
	logger.Printf("storefront: seeded %d products", len(products))
	return len(products), nil
}

// SeedMessage is the seller-facing outcome of a seed run.
func SeedMessage(n int, err error) string {
	if err != nil {
		return "Failed to seed database."
	}
	return fmt.Sprintf("Successfully seeded %d products.", n)
}

func (a *App) Identity() (identity.Identity, bool) { return a.auth.Current() }

func (a *App) SignIn(ctx context.Context, email, password string) (identity.Identity, error) {
	return a.auth.SignInWithCredentials(ctx, email, password)
}

func (a *App) Register(ctx context.Context, email, password string) (identity.Identity, error) {
	return a.auth.Register(ctx, email, password)
}

func (a *App) SignOut(ctx context.Context) error { return a.auth.SignOut(ctx) }
