// Package order defines the record produced at checkout. Orders are never
// changed after they are built.
package order

import (
	"strconv"
	"strings"
	"time"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/cart"
)

const (
	EmailPlaceholder = "No email provided"
	DateLayout       = "1/2/2006"
)

type Order struct {
	ID           string      `json:"id"`
	CustomerName string      `json:"customerName"`
	Email        string      `json:"email"`
	Date         string      `json:"date"`
	Items        []cart.Item `json:"items"`
	Total        float64     `json:"total"`
}

// New snapshots items into an order placed at now. The total is fixed here.
func New(id string, now time.Time, firstName, lastName, email string, items []cart.Item) Order {
	if strings.TrimSpace(email) == "" {
		email = EmailPlaceholder
	}
	snapshot := make([]cart.Item, 0, len(items))
	for _, it := range items {
		snapshot = append(snapshot, it.Clone())
	}
	return Order{
		ID:           id,
		CustomerName: firstName + " " + lastName,
		Email:        email,
		Date:         now.Format(DateLayout),
		Items:        snapshot,
		Total:        cart.Subtotal(snapshot),
	}
}

// IDAt derives an order id from the unix millisecond timestamp.
func IDAt(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}

func (o Order) Clone() Order {
	items := make([]cart.Item, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, it.Clone())
	}
	o.Items = items
	return o
}

func Key(o Order) string { return o.ID }

// NewestFirst orders by numeric id, largest first. Non-numeric ids sort last.
func NewestFirst(a, b Order) bool {
	x, errA := strconv.ParseInt(a.ID, 10, 64)
	y, errB := strconv.ParseInt(b.ID, 10, 64)
	switch {
	case errA != nil && errB != nil:
		return a.ID > b.ID
	case errA != nil:
		return false
	case errB != nil:
		return true
	}
	return x > y
}
