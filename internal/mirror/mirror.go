// Package mirror holds a locally cached copy of a remote collection in two
// tiers: the last authoritative snapshot and local overrides applied since.
// A new snapshot discards every override.
package mirror

import (
	"sort"
	"sync"
)

// Override is a local-only change to one entity. Deleted marks a tombstone.
type Override[T any] struct {
	Value   T
	Deleted bool
}

type Mirror[T any] struct {
	key  func(T) string
	less func(a, b T) bool

	mu            sync.RWMutex
	authoritative []T
	overrides     map[string]Override[T]
	order         []string
}

// New returns an empty mirror. less, when set, orders View.
func New[T any](key func(T) string, less func(a, b T) bool) *Mirror[T] {
	return &Mirror[T]{
		key:       key,
		less:      less,
		overrides: make(map[string]Override[T]),
	}
}

// Replace installs a fresh authoritative snapshot and drops all overrides.
func (m *Mirror[T]) Replace(items []T) {
	snapshot := append([]T(nil), items...)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.authoritative = snapshot
	m.overrides = make(map[string]Override[T])
	m.order = nil
}

// Reset empties both tiers.
func (m *Mirror[T]) Reset() {
	m.Replace(nil)
}

func (m *Mirror[T]) setLocked(id string, o Override[T]) {
	if _, ok := m.overrides[id]; !ok {
		m.order = append(m.order, id)
	}
	m.overrides[id] = o
}

// Upsert records a local-only insert or replacement.
func (m *Mirror[T]) Upsert(item T) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setLocked(m.key(item), Override[T]{Value: item})
}

// Delete records a local-only removal.
func (m *Mirror[T]) Delete(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var zero T
	m.setLocked(id, Override[T]{Value: zero, Deleted: true})
}

// Patch applies fn to the current view of id as a local override. It reports
// false, changing nothing, when id is not in view.
func (m *Mirror[T]) Patch(id string, fn func(T) T) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.getLocked(id)
	if !ok {
		return false
	}
	m.setLocked(id, Override[T]{Value: fn(current)})
	return true
}

func (m *Mirror[T]) getLocked(id string) (T, bool) {
	if o, ok := m.overrides[id]; ok {
		return o.Value, !o.Deleted
	}
	for _, item := range m.authoritative {
		if m.key(item) == id {
			return item, true
		}
	}
	var zero T
	return zero, false
}

func (m *Mirror[T]) Get(id string) (T, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getLocked(id)
}

// View is the merged collection as the UI should see it.
func (m *Mirror[T]) View() []T {
	m.mu.RLock()
	out := Merge(m.authoritative, m.overrides, m.order, m.key)
	m.mu.RUnlock()

	if m.less != nil {
		sort.SliceStable(out, func(i, j int) bool { return m.less(out[i], out[j]) })
	}
	return out
}

// Pending reports how many local overrides are waiting on the next snapshot.
func (m *Mirror[T]) Pending() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.overrides)
}

// Merge applies overrides to an authoritative snapshot. Overridden entities
// keep their snapshot position, tombstones are skipped, and entities only known
// locally follow in the order they were first overridden.
func Merge[T any](authoritative []T, overrides map[string]Override[T], order []string, key func(T) string) []T {
	out := make([]T, 0, len(authoritative)+len(order))
	seen := make(map[string]struct{}, len(authoritative))

	for _, item := range authoritative {
		id := key(item)
		seen[id] = struct{}{}
		if o, ok := overrides[id]; ok {
			if !o.Deleted {
				out = append(out, o.Value)
			}
			continue
		}
		out = append(out, item)
	}

	for _, id := range order {
		if _, ok := seen[id]; ok {
			continue
		}
		o, ok := overrides[id]
		if !ok || o.Deleted {
			continue
		}
		out = append(out, o.Value)
	}
	return out
}
