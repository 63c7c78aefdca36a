package docstore

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Change announces that a document in a collection was written or removed.
// Watchers re-read the collection rather than applying the change directly.
type Change struct {
	Collection string    `json:"collection"`
	DocumentID string    `json:"documentId"`
	Op         Op        `json:"op"`
	Sequence   int64     `json:"sequence"`
	OccurredAt time.Time `json:"occurredAt"`
}

// ChangeFeed fans document changes out to listeners, possibly across processes.
type ChangeFeed interface {
	Publish(ctx context.Context, change Change) error
	Watch(ctx context.Context, collection string, fn func(Change)) (stop func(), err error)
}

// LocalFeed is a ChangeFeed confined to the current process.
type LocalFeed struct {
	mu       sync.Mutex
	seq      map[string]int64
	watchers map[string]map[int]func(Change)
	nextID   int
}

func NewLocalFeed() *LocalFeed {
	return &LocalFeed{
		seq:      make(map[string]int64),
		watchers: make(map[string]map[int]func(Change)),
	}
}

func (f *LocalFeed) Publish(ctx context.Context, change Change) error {
	f.mu.Lock()
	f.seq[change.Collection]++
	change.Sequence = f.seq[change.Collection]
	if change.OccurredAt.IsZero() {
		change.OccurredAt = time.Now().UTC()
	}
	ids := make([]int, 0, len(f.watchers[change.Collection]))
	for id := range f.watchers[change.Collection] {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(Change), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, f.watchers[change.Collection][id])
	}
	f.mu.Unlock()

	for _, fn := range fns {
		fn(change)
	}
	return nil
}

func (f *LocalFeed) Watch(ctx context.Context, collection string, fn func(Change)) (func(), error) {
	f.mu.Lock()
	id := f.nextID
	f.nextID++
	if f.watchers[collection] == nil {
		f.watchers[collection] = make(map[int]func(Change))
	}
	f.watchers[collection][id] = fn
	f.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.watchers[collection], id)
			f.mu.Unlock()
		})
	}, nil
}
