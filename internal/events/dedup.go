package events

import (
	"sync"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/docstore"
)

// checkpoint tracks the last sequence a watcher handled per partition and
// drops redelivered or stale changes. Unsequenced changes always pass.
type checkpoint struct {
	mu   sync.Mutex
	last map[string]int64
}

func newCheckpoint() *checkpoint {
	return &checkpoint{last: make(map[string]int64)}
}

// advance reports whether change is new, recording its sequence if so.
func (c *checkpoint) advance(change docstore.Change) bool {
	if change.Sequence <= 0 {
		return true
	}
	key := partitionKey(change.Collection)

	c.mu.Lock()
	defer c.mu.Unlock()
	if change.Sequence <= c.last[key] {
		return false
	}
	c.last[key] = change.Sequence
	return true
}
