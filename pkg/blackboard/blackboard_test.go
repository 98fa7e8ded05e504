package blackboard_test

import (
	"sync"
	"testing"

	"github.com/aretw0/canopy/pkg/blackboard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoard_Basics(t *testing.T) {
	seed := map[string]any{"hp": 10}
	b := blackboard.New(seed)
	seed["hp"] = 0
	v, ok := b.Get("hp")
	require.True(t, ok)
	assert.Equal(t, 10, v, "the seed map is copied")

	b.Set("name", "orc")
	assert.True(t, b.Has("name"))
	assert.Equal(t, []string{"hp", "name"}, b.Keys())
	assert.Equal(t, 2, b.Len())

	snap := b.Snapshot()
	snap["hp"] = 99
	hp, _ := b.Int("hp")
	assert.Equal(t, 10, hp, "snapshots are detached")

	b.Delete("name")
	assert.False(t, b.Has("name"))
}

func TestBoard_Int(t *testing.T) {
	b := blackboard.New(map[string]any{"a": 3, "b": float64(4), "c": uint64(5), "s": "x"})
	for key, want := range map[string]int{"a": 3, "b": 4, "c": 5} {
		got, ok := b.Int(key)
		assert.True(t, ok, key)
		assert.Equal(t, want, got, key)
	}
	_, ok := b.Int("s")
	assert.False(t, ok)
	_, ok = b.Int("missing")
	assert.False(t, ok)
}

func TestBoard_ConcurrentIncr(t *testing.T) {
	b := blackboard.New(nil)
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				b.Incr("n", 1)
			}
		}()
	}
	wg.Wait()
	n, _ := b.Int("n")
	assert.Equal(t, 800, n)
}
