// Package docstore is the client side of the remote document store: live
// collection subscriptions plus write/update/delete/read operations that fail
// with categorized errors.
package docstore

import (
	"context"
	"encoding/json"
	"sync"
)

const (
	CollectionProducts = "products"
	CollectionOrders   = "orders"
)

type Op string

const (
	OpSubscribe Op = "subscribe"
	OpRead      Op = "read"
	OpWrite     Op = "write"
	OpUpdate    Op = "update"
	OpDelete    Op = "delete"
)

type Document struct {
	ID   string          `json:"id"`
	Data json.RawMessage `json:"data"`
}

func (d Document) Decode(v any) error {
	return json.Unmarshal(d.Data, v)
}

// Store is the remote document store. Snapshot and error callbacks may run on
// any goroutine; every snapshot carries the full collection.
type Store interface {
	Subscribe(collection string, onSnapshot func([]Document), onError func(error)) Subscription
	Write(ctx context.Context, collection, id string, data any) error
	Update(ctx context.Context, collection, id string, fields map[string]any) error
	Delete(ctx context.Context, collection, id string) error
	ReadAll(ctx context.Context, collection string) ([]Document, error)
}

// Subscription is a live listener handle. Close is idempotent.
type Subscription interface {
	Close()
}

type subscriptionFunc struct {
	once sync.Once
	fn   func()
}

func (s *subscriptionFunc) Close() {
	s.once.Do(s.fn)
}

// NewSubscription wraps fn so that it runs at most once.
func NewSubscription(fn func()) Subscription {
	if fn == nil {
		fn = func() {}
	}
	return &subscriptionFunc{fn: fn}
}

// encode marshals a document body. Nil pointers and omitempty fields vanish,
// which is what the store expects for optional attributes.
func encode(op Op, collection, id string, data any) (json.RawMessage, error) {
	body, err := json.Marshal(data)
	if err != nil {
		return nil, newError(op, collection, id, CodeInvalidArgument, err)
	}
	if len(body) == 0 || body[0] != '{' {
		return nil, newError(op, collection, id, CodeInvalidArgument, ErrInvalidArgument)
	}
	return body, nil
}
