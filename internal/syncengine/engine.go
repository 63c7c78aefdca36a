// Package syncengine keeps the local product and order mirrors in step with
// the remote store and with the current identity.
package syncengine

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/docstore"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/identity"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/mirror"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/order"
)

const DefaultLoadingTimeout = 5 * time.Second

type Options struct {
	LoadingTimeout time.Duration
	Logger         *log.Logger
}

// Status is what the UI needs to decide whether to block.
type Status struct {
	Loading          bool               `json:"loading"`
	PermissionDenied bool               `json:"permissionDenied"`
	Identity         *identity.Identity `json:"identity,omitempty"`
	PendingProducts  int                `json:"pendingProducts"`
	PendingOrders    int                `json:"pendingOrders"`
}

// Blocking reports whether normal interaction must wait.
func (s Status) Blocking() bool {
	return s.Loading || s.PermissionDenied
}

type Engine struct {
	store          docstore.Store
	auth           identity.Provider
	logger         *log.Logger
	loadingTimeout time.Duration

	products *mirror.Mirror[catalog.Product]
	orders   *mirror.Mirror[order.Order]

	mu               sync.Mutex
	loading          bool
	permissionDenied bool

	// Snapshot callbacks may run while subMu is held, so they only consult
	// the atomics below.
	subMu       sync.Mutex
	started     bool
	productSub  docstore.Subscription
	orderSub    docstore.Subscription
	unsubscribe func()
	timer       *time.Timer
	cancel      context.CancelFunc

	closed     atomic.Bool
	productGen atomic.Uint64
	orderGen   atomic.Uint64

	wg sync.WaitGroup
}

func New(store docstore.Store, auth identity.Provider, opts Options) *Engine {
	if opts.LoadingTimeout <= 0 {
		opts.LoadingTimeout = DefaultLoadingTimeout
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard, "", 0)
	}
	return &Engine{
		store:          store,
		auth:           auth,
		logger:         opts.Logger,
		loadingTimeout: opts.LoadingTimeout,
		products:       mirror.New(func(p catalog.Product) string { return p.ID }, nil),
		orders:         mirror.New(order.Key, order.NewestFirst),
		loading:        true,
	}
}

func (e *Engine) ProductMirror() *mirror.Mirror[catalog.Product] { return e.products }
func (e *Engine) OrderMirror() *mirror.Mirror[order.Order]       { return e.orders }

// Start opens the streams, listens for identity changes and arms the loading
// timer. Without an identity it tries an anonymous sign-in in the background.
func (e *Engine) Start(ctx context.Context) {
	e.subMu.Lock()
	if e.started || e.closed.Load() {
		e.subMu.Unlock()
		return
	}
	e.started = true
	ctx, e.cancel = context.WithCancel(ctx)
	e.unsubscribe = e.auth.OnChange(e.handleIdentity)
	e.armTimerLocked()
	e.subMu.Unlock()

	e.StartProductStream()

	if _, ok := e.auth.Current(); ok {
		e.StartOrderStream()
		return
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.signInAnonymously(ctx)
	}()
}

func (e *Engine) signInAnonymously(ctx context.Context) {
	_, err := e.auth.SignInAnonymously(ctx)
	switch {
	case err == nil:
	case errors.Is(err, identity.ErrInvalidCredential), errors.Is(err, identity.ErrOperationNotAllowed):
		// Browsing as a guest still works.
	case errors.Is(err, context.Canceled):
	default:
		e.logger.Printf("syncengine: anonymous sign-in failed: %v", err)
	}
}

func (e *Engine) armTimerLocked() {
	if e.timer != nil {
		e.timer.Stop()
	}
	e.timer = time.AfterFunc(e.loadingTimeout, func() {
		if e.closed.Load() {
			return
		}
		e.mu.Lock()
		wasLoading := e.loading
		e.loading = false
		e.mu.Unlock()
		if wasLoading {
			e.logger.Printf("syncengine: no product data after %s, ending loading state", e.loadingTimeout)
		}
	})
}

// StartProductStream replaces any live product subscription with a new one.
func (e *Engine) StartProductStream() {
	e.subMu.Lock()
	defer e.subMu.Unlock()
	if e.closed.Load() {
		return
	}
	if e.productSub != nil {
		e.productSub.Close()
		e.productSub = nil
	}
	gen := e.productGen.Add(1)
	e.productSub = e.store.Subscribe(docstore.CollectionProducts,
		func(docs []docstore.Document) { e.onProducts(gen, docs) },
		func(err error) { e.onProductError(gen, err) },
	)
}

// StartOrderStream replaces any live order subscription. It does nothing
// while no identity is present.
func (e *Engine) StartOrderStream() {
	if _, ok := e.auth.Current(); !ok {
		return
	}
	e.subMu.Lock()
	defer e.subMu.Unlock()
	if e.closed.Load() {
		return
	}
	if e.orderSub != nil {
		e.orderSub.Close()
		e.orderSub = nil
	}
	gen := e.orderGen.Add(1)
	e.orderSub = e.store.Subscribe(docstore.CollectionOrders,
		func(docs []docstore.Document) { e.onOrders(gen, docs) },
		func(err error) { e.onOrderError(gen, err) },
	)
}

func (e *Engine) StopOrderStream() {
	e.subMu.Lock()
	defer e.subMu.Unlock()
	e.orderGen.Add(1)
	if e.orderSub != nil {
		e.orderSub.Close()
		e.orderSub = nil
	}
}

func (e *Engine) handleIdentity(id identity.Identity, ok bool) {
	if e.closed.Load() {
		return
	}
	if ok {
		e.logger.Printf("syncengine: identity uid=%s anonymous=%t, resubscribing", id.UID, id.Anonymous)
		e.StartProductStream()
		e.StartOrderStream()
		return
	}
	e.logger.Printf("syncengine: identity cleared, browsing as guest")
	e.StopOrderStream()
	e.orders.Reset()
	e.StartProductStream()
}

func (e *Engine) current(gen *atomic.Uint64, want uint64) bool {
	return !e.closed.Load() && gen.Load() == want
}

func (e *Engine) onProducts(gen uint64, docs []docstore.Document) {
	if !e.current(&e.productGen, gen) {
		return
	}
	e.applyProducts(docs)
}

func (e *Engine) applyProducts(docs []docstore.Document) {
	products := make([]catalog.Product, 0, len(docs))
	for _, d := range docs {
		var p catalog.Product
		if err := d.Decode(&p); err != nil {
			e.logger.Printf("syncengine: skipping product id=%s: %v", d.ID, err)
			continue
		}
		if p.ID == "" {
			p.ID = d.ID
		}
		products = append(products, p)
	}
	e.products.Replace(products)

	e.mu.Lock()
	e.permissionDenied = false
	e.loading = false
	e.mu.Unlock()
}

func (e *Engine) onProductError(gen uint64, err error) {
	if !e.current(&e.productGen, gen) {
		return
	}
	e.mu.Lock()
	if docstore.IsPermissionDenied(err) {
		e.permissionDenied = true
	}
	e.loading = false
	e.mu.Unlock()
	e.logger.Printf("syncengine: product stream error: %v", err)
}

func (e *Engine) onOrders(gen uint64, docs []docstore.Document) {
	if !e.current(&e.orderGen, gen) {
		return
	}
	orders := make([]order.Order, 0, len(docs))
	for _, d := range docs {
		var o order.Order
		if err := d.Decode(&o); err != nil {
			e.logger.Printf("syncengine: skipping order id=%s: %v", d.ID, err)
			continue
		}
		if o.ID == "" {
			o.ID = d.ID
		}
		orders = append(orders, o)
	}
	e.orders.Replace(orders)
}

func (e *Engine) onOrderError(gen uint64, err error) {
	if !e.current(&e.orderGen, gen) {
		return
	}
	if docstore.IsPermissionDenied(err) {
		e.orders.Reset()
		return
	}
	e.logger.Printf("syncengine: order stream error: %v", err)
}

// Refresh reads the product collection once and applies it as a snapshot.
func (e *Engine) Refresh(ctx context.Context) error {
	docs, err := e.store.ReadAll(ctx, docstore.CollectionProducts)
	if err != nil {
		return err
	}
	e.applyProducts(docs)
	return nil
}

// Reload puts the engine back into its loading state and reopens the streams,
// as a fresh start would.
func (e *Engine) Reload() {
	e.mu.Lock()
	e.loading = true
	e.permissionDenied = false
	e.mu.Unlock()

	e.subMu.Lock()
	if e.closed.Load() {
		e.subMu.Unlock()
		return
	}
	e.armTimerLocked()
	e.subMu.Unlock()

	e.StartProductStream()
	e.StartOrderStream()
}

// Close releases the subscriptions, the identity listener and the timer
// together. Later callbacks are ignored.
func (e *Engine) Close() {
	e.subMu.Lock()
	if e.closed.Swap(true) {
		e.subMu.Unlock()
		return
	}
	if e.productSub != nil {
		e.productSub.Close()
		e.productSub = nil
	}
	if e.orderSub != nil {
		e.orderSub.Close()
		e.orderSub = nil
	}
	if e.unsubscribe != nil {
		e.unsubscribe()
	}
	if e.timer != nil {
		e.timer.Stop()
	}
	if e.cancel != nil {
		e.cancel()
	}
	e.subMu.Unlock()

	e.wg.Wait()
}

func (e *Engine) Status() Status {
	e.mu.Lock()
	s := Status{Loading: e.loading, PermissionDenied: e.permissionDenied}
	e.mu.Unlock()

	if id, ok := e.auth.Current(); ok {
		s.Identity = &id
	}
	s.PendingProducts = e.products.Pending()
	s.PendingOrders = e.orders.Pending()
	return s
}

func (e *Engine) Products() []catalog.Product {
	view := e.products.View()
	for i := range view {
		view[i] = view[i].Clone()
	}
	return view
}

func (e *Engine) Product(id string) (catalog.Product, bool) {
	p, ok := e.products.Get(id)
	return p.Clone(), ok
}

// Stock is a cart.StockLookup over the product view.
func (e *Engine) Stock(id string) (int, bool) {
	p, ok := e.products.Get(id)
	return p.Stock, ok
}

func (e *Engine) Orders() []order.Order {
	view := e.orders.View()
	for i := range view {
		view[i] = view[i].Clone()
	}
	return view
}
