package bt

import (
	"fmt"

	"github.com/aretw0/canopy/pkg/blob"
	"github.com/aretw0/canopy/pkg/domain"
)

type compositeMode uint8

const (
	modeSequence compositeMode = iota
	modeSelector
	modeParallel
	modeRandom
)

var modeNames = [...]string{"Sequence", "Selector", "Parallel", "RandomSelector"}

type skipBlob struct {
	blob.NodeBlob
	skip skipSet
}

// composite implements every multi-child node. The mode picks the visiting
// rule; stateful composites remember which children already finished this
// round and leave them out until the round ends.
type composite[T any] struct {
	base[T]
	mode     compositeMode
	stateful bool
	order    []uint
}

func newComposite[T any](mode compositeMode, stateful bool, children []*Node[T]) *Node[T] {
	name := modeNames[mode]
	access := accessOf[blob.NodeBlob]()
	if stateful {
		name = "Stateful" + name
		access = accessOf[skipBlob]()
	}
	return newNode(name, domain.KindComposite, &composite[T]{mode: mode, stateful: stateful}, access, children...)
}

// Sequence ticks children in order until one is RUNNING or FAILURE.
func Sequence[T any](children ...*Node[T]) *Node[T] {
	return newComposite(modeSequence, false, children)
}

// Selector ticks children in order until one is RUNNING or SUCCESS.
func Selector[T any](children ...*Node[T]) *Node[T] {
	return newComposite(modeSelector, false, children)
}

// Parallel ticks every child each tick. It succeeds when all succeed and
// fails as soon as one fails.
func Parallel[T any](children ...*Node[T]) *Node[T] {
	return newComposite(modeParallel, false, children)
}

// RandomSelector picks children at random, weighted by priority, until one
// does not fail.
func RandomSelector[T any](children ...*Node[T]) *Node[T] {
	return newComposite(modeRandom, false, children)
}

// StatefulSequence is a Sequence that resumes at the first child that has
// not succeeded yet in the current round.
func StatefulSequence[T any](children ...*Node[T]) *Node[T] {
	return newComposite(modeSequence, true, children)
}

// StatefulSelector is a Selector that skips children that already failed in
// the current round.
func StatefulSelector[T any](children ...*Node[T]) *Node[T] {
	return newComposite(modeSelector, true, children)
}

// StatefulParallel is a Parallel that stops ticking children that already
// succeeded in the current round.
func StatefulParallel[T any](children ...*Node[T]) *Node[T] {
	return newComposite(modeParallel, true, children)
}

// StatefulRandomSelector is a RandomSelector that never redraws a child that
// already failed in the current round.
func StatefulRandomSelector[T any](children ...*Node[T]) *Node[T] {
	return newComposite(modeRandom, true, children)
}

// Switch runs the first case whose condition holds. Cases are built with Case.
func Switch[T any](cases ...*Node[T]) *Node[T] {
	n := Selector(cases...)
	n.name = "Switch"
	return n
}

// StatefulSwitch is a Switch that does not re-evaluate cases that already
// failed in the current round.
func StatefulSwitch[T any](cases ...*Node[T]) *Node[T] {
	n := StatefulSelector(cases...)
	n.name = "StatefulSwitch"
	return n
}

func (c *composite[T]) build(n *Node[T]) error {
	if len(n.children) == 0 {
		return fmt.Errorf("%w: composite %q has no children", domain.ErrInvalidTree, n.name)
	}
	if c.stateful && len(n.children) > maxStatefulChildren {
		return fmt.Errorf("%w: stateful composite %q has %d children, limit is %d",
			domain.ErrInvalidTree, n.name, len(n.children), maxStatefulChildren)
	}
	c.order = make([]uint, len(n.children))
	for i := range c.order {
		c.order[i] = uint(i)
	}
	return nil
}

// scratch reserves room for the priorities and the queue.
func (c *composite[T]) scratch(n *Node[T]) int {
	return 2 * len(n.children)
}

func (c *composite[T]) skips(ctx *Context[T], n *Node[T]) *skipSet {
	if !c.stateful {
		return nil
	}
	return &blob.Make[skipBlob](ctx.tb, n.id, nil, ctx.env.numNodes).skip
}

func (c *composite[T]) terminate(ctx *Context[T], n *Node[T], _ domain.Status) {
	if skip := c.skips(ctx, n); skip != nil {
		skip.reset()
	}
}

func (c *composite[T]) priority(ctx *Context[T], n *Node[T]) uint {
	skip := c.skips(ctx, n)
	var best uint
	for i, child := range n.children {
		if skip != nil && skip.has(i) {
			continue
		}
		best = max(best, child.Priority(ctx))
	}
	return max(best, 1)
}

func (c *composite[T]) update(ctx *Context[T], n *Node[T]) domain.Status {
	mark := len(ctx.scratch)
	skip := c.skips(ctx, n)
	prio, considered, equal := c.refresh(ctx, n, skip)

	var s domain.Status
	if c.mode == modeRandom {
		s = c.updateRandom(ctx, n, prio, skip)
	} else {
		q := c.enqueue(ctx, prio, considered, equal, skip)
		switch c.mode {
		case modeSequence:
			s = c.updateSequence(ctx, n, &q, skip)
		case modeSelector:
			s = c.updateSelector(ctx, n, &q, skip)
		default:
			s = c.updateParallel(ctx, n, &q, skip)
		}
	}

	ctx.release(mark)
	return s
}

// refresh loads the priority of every considerable child into scratch and
// reports how many were considered and whether they all weigh the same.
// Skipped children get priority 0.
func (c *composite[T]) refresh(ctx *Context[T], n *Node[T], skip *skipSet) (prio []uint, considered int, equal bool) {
	prio = ctx.alloc(len(n.children))
	equal = true
	var first uint
	for i, child := range n.children {
		if skip != nil && skip.has(i) {
			prio[i] = 0
			continue
		}
		p := child.Priority(ctx)
		prio[i] = p
		if considered == 0 {
			first = p
		} else if p != first {
			equal = false
		}
		considered++
	}
	return prio, considered, equal
}

func (c *composite[T]) enqueue(ctx *Context[T], prio []uint, considered int, equal bool, skip *skipSet) childQueue {
	if considered == len(prio) && equal {
		return childQueue{items: c.order}
	}
	items := ctx.alloc(considered)
	k := 0
	for i := range prio {
		if skip == nil || !skip.has(i) {
			items[k] = uint(i)
			k++
		}
	}
	q := childQueue{items: items, prio: prio, heap: !equal}
	if q.heap {
		q.init()
	}
	return q
}

func (c *composite[T]) updateSequence(ctx *Context[T], n *Node[T], q *childQueue, skip *skipSet) domain.Status {
	for i, ok := q.pop(); ok; i, ok = q.pop() {
		s := n.children[i].Tick(ctx)
		if s == domain.Success {
			if skip != nil {
				skip.set(i)
			}
			continue
		}
		return s
	}
	return domain.Success
}

func (c *composite[T]) updateSelector(ctx *Context[T], n *Node[T], q *childQueue, skip *skipSet) domain.Status {
	for i, ok := q.pop(); ok; i, ok = q.pop() {
		s := n.children[i].Tick(ctx)
		if s == domain.Failure {
			if skip != nil {
				skip.set(i)
			}
			continue
		}
		return s
	}
	return domain.Failure
}

func (c *composite[T]) updateParallel(ctx *Context[T], n *Node[T], q *childQueue, skip *skipSet) domain.Status {
	var total, succeeded int
	failed := false
	for i, ok := q.pop(); ok; i, ok = q.pop() {
		total++
		switch n.children[i].Tick(ctx) {
		case domain.Success:
			succeeded++
			if skip != nil {
				skip.set(i)
			}
		case domain.Failure:
			failed = true
		}
	}
	switch {
	case succeeded == total:
		return domain.Success
	case failed:
		return domain.Failure
	}
	return domain.Running
}

// updateRandom samples children without replacement, weighted by priority.
func (c *composite[T]) updateRandom(ctx *Context[T], n *Node[T], prio []uint, skip *skipSet) domain.Status {
	var total uint
	for _, p := range prio {
		total += p
	}
	r := ctx.random()
	for total > 0 {
		v := uint(r.Uint64N(uint64(total))) + 1
		i := pick(prio, v)
		s := n.children[i].Tick(ctx)
		if s != domain.Failure {
			return s
		}
		if skip != nil {
			skip.set(i)
		}
		total -= prio[i]
		prio[i] = 0
	}
	return domain.Failure
}

// pick maps v in [1, sum(prio)] to a child through the cumulative sum.
func pick(prio []uint, v uint) int {
	var sum uint
	for i, p := range prio {
		sum += p
		if v <= sum {
			return i
		}
	}
	return len(prio) - 1
}
