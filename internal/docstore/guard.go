package docstore

import (
	"context"
	"io"
	"log"
)

// Guard enforces Rules in front of another Store, using the caller's identity
// at the moment of each call.
type Guard struct {
	next          Store
	rules         Rules
	authenticated func() bool
	logger        *log.Logger
}

func NewGuard(next Store, rules Rules, authenticated func() bool, logger *log.Logger) *Guard {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Guard{next: next, rules: rules, authenticated: authenticated, logger: logger}
}

func (g *Guard) allowed(access Access) bool {
	switch access {
	case AccessPublic:
		return true
	case AccessAuthenticated:
		return g.authenticated != nil && g.authenticated()
	default:
		return false
	}
}

func (g *Guard) canRead(collection string) bool {
	return g.allowed(g.rules[collection].Read)
}

func (g *Guard) canWrite(collection string) bool {
	return g.allowed(g.rules[collection].Write)
}

func (g *Guard) deny(op Op, collection, id string) error {
	logPermissionError(g.logger, op, collection)
	return newError(op, collection, id, CodePermissionDenied, ErrPermissionDenied)
}

func (g *Guard) Subscribe(collection string, onSnapshot func([]Document), onError func(error)) Subscription {
	if !g.canRead(collection) {
		onError(g.deny(OpSubscribe, collection, ""))
		return NewSubscription(nil)
	}
	return g.next.Subscribe(collection, onSnapshot, onError)
}

func (g *Guard) Write(ctx context.Context, collection, id string, data any) error {
	if !g.canWrite(collection) {
		return g.deny(OpWrite, collection, id)
	}
	return g.next.Write(ctx, collection, id, data)
}

func (g *Guard) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	if !g.canWrite(collection) {
		return g.deny(OpUpdate, collection, id)
	}
	return g.next.Update(ctx, collection, id, fields)
}

func (g *Guard) Delete(ctx context.Context, collection, id string) error {
	if !g.canWrite(collection) {
		return g.deny(OpDelete, collection, id)
	}
	return g.next.Delete(ctx, collection, id)
}

func (g *Guard) ReadAll(ctx context.Context, collection string) ([]Document, error) {
	if !g.canRead(collection) {
		return nil, g.deny(OpRead, collection, "")
	}
	return g.next.ReadAll(ctx, collection)
}
