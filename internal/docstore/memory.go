package docstore

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
)

// Fault lets tests reject individual operations. Returning nil lets the
// operation through.
type Fault func(op Op, collection, id string) error

// Memory is an in-process Store. Snapshots are delivered synchronously on the
// goroutine that caused them, after the store lock is released.
type Memory struct {
	mu          sync.Mutex
	collections map[string]map[string]json.RawMessage
	subs        map[string]map[int]*memorySub
	nextSubID   int
	fault       Fault
}

type memorySub struct {
	onSnapshot func([]Document)
	onError    func(error)
}

func NewMemory() *Memory {
	return &Memory{
		collections: make(map[string]map[string]json.RawMessage),
		subs:        make(map[string]map[int]*memorySub),
	}
}

func (m *Memory) SetFault(f Fault) {
	m.mu.Lock()
	m.fault = f
	m.mu.Unlock()
}

func (m *Memory) check(op Op, collection, id string) error {
	m.mu.Lock()
	f := m.fault
	m.mu.Unlock()
	if f == nil {
		return nil
	}
	if err := f(op, collection, id); err != nil {
		if _, ok := err.(*Error); ok {
			return err
		}
		return newError(op, collection, id, CodeOf(err), err)
	}
	return nil
}

// docsLocked returns the collection ordered by document id.
func (m *Memory) docsLocked(collection string) []Document {
	docs := make([]Document, 0, len(m.collections[collection]))
	for id, data := range m.collections[collection] {
		docs = append(docs, Document{ID: id, Data: append(json.RawMessage(nil), data...)})
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs
}

func (m *Memory) subscribersLocked(collection string) []*memorySub {
	out := make([]*memorySub, 0, len(m.subs[collection]))
	ids := make([]int, 0, len(m.subs[collection]))
	for id := range m.subs[collection] {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		out = append(out, m.subs[collection][id])
	}
	return out
}

func (m *Memory) publish(collection string) {
	m.mu.Lock()
	subs := m.subscribersLocked(collection)
	m.mu.Unlock()

	for _, s := range subs {
		m.mu.Lock()
		docs := m.docsLocked(collection)
		m.mu.Unlock()
		s.onSnapshot(docs)
	}
}

func (m *Memory) Subscribe(collection string, onSnapshot func([]Document), onError func(error)) Subscription {
	if err := m.check(OpSubscribe, collection, ""); err != nil {
		onError(err)
		return NewSubscription(nil)
	}

	sub := &memorySub{onSnapshot: onSnapshot, onError: onError}

	m.mu.Lock()
	id := m.nextSubID
	m.nextSubID++
	if m.subs[collection] == nil {
		m.subs[collection] = make(map[int]*memorySub)
	}
	m.subs[collection][id] = sub
	docs := m.docsLocked(collection)
	m.mu.Unlock()

	onSnapshot(docs)

	return NewSubscription(func() {
		m.mu.Lock()
		delete(m.subs[collection], id)
		m.mu.Unlock()
	})
}

// Fail delivers err to every active subscriber of collection.
func (m *Memory) Fail(collection string, err error) {
	m.mu.Lock()
	subs := m.subscribersLocked(collection)
	m.mu.Unlock()

	for _, s := range subs {
		s.onError(err)
	}
}

// Subscribers reports how many live listeners collection has.
func (m *Memory) Subscribers(collection string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs[collection])
}

func (m *Memory) Write(ctx context.Context, collection, id string, data any) error {
	if err := m.check(OpWrite, collection, id); err != nil {
		return err
	}
	body, err := encode(OpWrite, collection, id, data)
	if err != nil {
		return err
	}

	m.mu.Lock()
	if m.collections[collection] == nil {
		m.collections[collection] = make(map[string]json.RawMessage)
	}
	m.collections[collection][id] = body
	m.mu.Unlock()

	m.publish(collection)
	return nil
}

func (m *Memory) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	if err := m.check(OpUpdate, collection, id); err != nil {
		return err
	}

	m.mu.Lock()
	current, ok := m.collections[collection][id]
	if !ok {
		m.mu.Unlock()
		return newError(OpUpdate, collection, id, CodeNotFound, ErrNotFound)
	}
	merged, err := mergeFields(current, fields)
	if err != nil {
		m.mu.Unlock()
		return newError(OpUpdate, collection, id, CodeInvalidArgument, err)
	}
	m.collections[collection][id] = merged
	m.mu.Unlock()

	m.publish(collection)
	return nil
}

func (m *Memory) Delete(ctx context.Context, collection, id string) error {
	if err := m.check(OpDelete, collection, id); err != nil {
		return err
	}

	m.mu.Lock()
	delete(m.collections[collection], id)
	m.mu.Unlock()

	m.publish(collection)
	return nil
}

func (m *Memory) ReadAll(ctx context.Context, collection string) ([]Document, error) {
	if err := m.check(OpRead, collection, ""); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.docsLocked(collection), nil
}

// mergeFields overlays top-level fields onto an encoded document.
func mergeFields(doc json.RawMessage, fields map[string]any) (json.RawMessage, error) {
	obj := map[string]json.RawMessage{}
	if err := json.Unmarshal(doc, &obj); err != nil {
		return nil, err
	}
	for k, v := range fields {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		obj[k] = b
	}
	return json.Marshal(obj)
}
