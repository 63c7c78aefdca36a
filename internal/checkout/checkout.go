// Package checkout turns the cart into an order: it saves the order, lowers
// stock for every line and empties the cart.
package checkout

import (
	"context"
	"errors"
	"io"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/optimistic"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/order"
)

var (
	ErrEmptyCart   = errors.New("cart is empty")
	ErrMissingName = errors.New("please fill in your name details")
)

type CustomerDetails struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Address   string `json:"address,omitempty"`
	City      string `json:"city,omitempty"`
	Zip       string `json:"zip,omitempty"`
}

// Validate is the form-level check run before ProcessOrder.
func (d CustomerDetails) Validate() error {
	if strings.TrimSpace(d.FirstName) == "" || strings.TrimSpace(d.LastName) == "" {
		return ErrMissingName
	}
	return nil
}

// Summary is the checkout page's price breakdown.
type Summary struct {
	Subtotal float64 `json:"subtotal"`
	Shipping float64 `json:"shipping"`
	Total    float64 `json:"total"`
}

func Summarize(items []cart.Item) Summary {
	sub := cart.Subtotal(items)
	return Summary{Subtotal: sub, Shipping: cart.Shipping, Total: sub + cart.Shipping}
}

type Receipt struct {
	Order order.Order              `json:"order"`
	Saved optimistic.Result        `json:"saved"`
	Stock []optimistic.StockChange `json:"stock"`
}

type Writer interface {
	SaveOrder(ctx context.Context, o order.Order) optimistic.Result
	DecrementStock(ctx context.Context, items []cart.Item) []optimistic.StockChange
}

type Assembler struct {
	cart   *cart.Cart
	writes Writer
	logger *log.Logger
	now    func() time.Time

	mu     sync.Mutex
	lastID int64
}

func NewAssembler(c *cart.Cart, writes Writer, logger *log.Logger) *Assembler {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Assembler{cart: c, writes: writes, logger: logger, now: time.Now}
}

// nextID is the current unix millisecond, bumped when two orders land in the
// same millisecond.
func (a *Assembler) nextID(now time.Time) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	id := now.UnixMilli()
	if id <= a.lastID {
		id = a.lastID + 1
	}
	a.lastID = id
	return strconv.FormatInt(id, 10)
}

// ProcessOrder builds the order from the current cart, saves it, lowers stock
// line by line and clears the cart. Save and stock failures are independent
// and never abort the checkout.
func (a *Assembler) ProcessOrder(ctx context.Context, d CustomerDetails) (Receipt, error) {
	items := a.cart.Items()
	if len(items) == 0 {
		return Receipt{}, ErrEmptyCart
	}

	now := a.now()
	o := order.New(a.nextID(now), now, d.FirstName, d.LastName, d.Email, items)

	saved := a.writes.SaveOrder(ctx, o)
	stock := a.writes.DecrementStock(ctx, o.Items)
	a.cart.Clear()

	a.logger.Printf("checkout: order id=%s lines=%d total=%.2f saved=%s", o.ID, len(o.Items), o.Total, saved)
	return Receipt{Order: o, Saved: saved, Stock: stock}, nil
}
