// Package blackboard provides a concurrency-safe key/value payload for
// entities that do not need a dedicated Go type as their tree Context data.
package blackboard

import (
	"maps"
	"slices"
	"sync"
)

// Board holds the facts an entity's tree reads and writes.
// Safe for concurrent use.
type Board struct {
	mu   sync.RWMutex
	data map[string]any
}

// New creates a board seeded with a copy of initial.
func New(initial map[string]any) *Board {
	b := &Board{data: make(map[string]any, len(initial))}
	maps.Copy(b.data, initial)
	return b
}

// Get returns the value stored under key.
func (b *Board) Get(key string) (any, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.data[key]
	return v, ok
}

// Set stores v under key.
func (b *Board) Set(key string, v any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data[key] = v
}

// Has reports whether key is present.
func (b *Board) Has(key string) bool {
	_, ok := b.Get(key)
	return ok
}

// Delete removes key.
func (b *Board) Delete(key string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.data, key)
}

// Len returns the number of keys.
func (b *Board) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.data)
}

// Keys returns the keys in sorted order.
func (b *Board) Keys() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return slices.Sorted(maps.Keys(b.data))
}

// Snapshot returns a shallow copy of the board contents.
// It is the environment handed to expression conditions.
func (b *Board) Snapshot() map[string]any {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return maps.Clone(b.data)
}

// Update runs fn with exclusive access to the underlying map.
func (b *Board) Update(fn func(data map[string]any)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fn(b.data)
}

// Int returns the value under key as an int, accepting the numeric types
// produced by YAML and JSON decoding.
func (b *Board) Int(key string) (int, bool) {
	v, ok := b.Get(key)
	if !ok {
		return 0, false
	}
	return toInt(v)
}

// Incr adds delta to the integer under key, treating a missing key as zero,
// and returns the new value.
func (b *Board) Incr(key string, delta int) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	cur, _ := toInt(b.data[key])
	cur += delta
	b.data[key] = cur
	return cur
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case uint64:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}
