package bt

import (
	"math/rand/v2"
	"slices"
	"time"

	"github.com/aretw0/canopy/pkg/blob"
	"github.com/aretw0/canopy/pkg/domain"
)

// Context is passed by pointer through one Tick call.
// Callers own Seq and Delta; reusing one Context per entity across ticks
// keeps the scheduling scratch space warm.
type Context[T any] struct {
	// Seq identifies the tick; it must change between ticks for priorities to refresh.
	Seq uint64
	// Delta is the time elapsed since the previous tick.
	Delta time.Duration
	// Data is the per-entity payload, such as a blackboard.
	Data T
	// Rand overrides the tree's random source for this call when set.
	Rand *rand.Rand

	tb      blob.TreeBlob
	env     *env
	node    *Node[T]
	scratch []uint
}

// Now returns the current time according to the tree clock.
func (c *Context[T]) Now() time.Time {
	return c.env.clock()
}

// NodeID returns the id of the node currently being ticked.
func (c *Context[T]) NodeID() domain.NodeID {
	if c.node == nil {
		return 0
	}
	return c.node.id
}

func (c *Context[T]) nanos() int64 {
	return c.env.clock().UnixNano()
}

func (c *Context[T]) random() *rand.Rand {
	if c.Rand != nil {
		return c.Rand
	}
	return c.env.rand
}

// alloc carves k entries off the scratch stack. Callers release them by
// truncating back to the length they observed before.
func (c *Context[T]) alloc(k int) []uint {
	start := len(c.scratch)
	if cap(c.scratch)-start < k {
		c.scratch = slices.Grow(c.scratch, k)
	}
	c.scratch = c.scratch[:start+k]
	return c.scratch[start : start+k : start+k]
}

func (c *Context[T]) release(mark int) {
	c.scratch = c.scratch[:mark]
}
