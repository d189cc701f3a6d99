package generic

import (
	"fmt"
	"sync"
)

// MemoKey identifies one derived report: the data version it was computed
// from, the year and a free-form filter description.
type MemoKey struct {
	Version uint64
	Kind    string
	Year    int
	Filters string
}

func (k MemoKey) String() string {
	return fmt.Sprintf("%s/%d/%d/%s", k.Kind, k.Version, k.Year, k.Filters)
}

// Memo caches derived values by MemoKey. Entries computed from an older
// version are dropped on the first access at a newer version.
type Memo[V any] struct {
	mu      sync.Mutex
	version uint64
	entries map[MemoKey]V
}

func NewMemo[V any]() *Memo[V] {
	return &Memo[V]{entries: make(map[MemoKey]V)}
}

// Get returns the cached value for key, computing it with fn on a miss.
// fn runs outside the lock; concurrent misses on the same key may both
// compute, and the results are equal because calculators are pure.
func (m *Memo[V]) Get(key MemoKey, fn func() V) (v V, hit bool) {
	v, hit, _ = m.Load(key, func() (V, error) { return fn(), nil })
	return v, hit
}

// Load is Get for computations that can fail. Failed results are not cached.
func (m *Memo[V]) Load(key MemoKey, fn func() (V, error)) (v V, hit bool, err error) {
	m.mu.Lock()
	if key.Version > m.version {
		m.version = key.Version
		m.entries = make(map[MemoKey]V)
	}
	if v, ok := m.entries[key]; ok {
		m.mu.Unlock()
		return v, true, nil
	}
	m.mu.Unlock()

	v, err = fn()
	if err != nil {
		return v, false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if key.Version == m.version {
		m.entries[key] = v
	}
	return v, false, nil
}

// Len returns the number of cached entries.
func (m *Memo[V]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
