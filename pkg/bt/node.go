package bt

import (
	"fmt"
	"reflect"
	"slices"
	"unsafe"

	"github.com/aretw0/canopy/pkg/blob"
	"github.com/aretw0/canopy/pkg/domain"
)

// Node is one immutable vertex of a tree.
type Node[T any] struct {
	id       domain.NodeID
	name     string
	kind     domain.NodeKind
	impl     behavior[T]
	children []*Node[T]
	access   blobAccess
	size     int
	// movable is set on a Subtree root until an enclosing tree is built.
	movable bool
}

// behavior is the kind-specific logic plugged into the tick protocol.
type behavior[T any] interface {
	update(ctx *Context[T], n *Node[T]) domain.Status
	enter(ctx *Context[T], n *Node[T])
	terminate(ctx *Context[T], n *Node[T], s domain.Status)
	priority(ctx *Context[T], n *Node[T]) uint
	build(n *Node[T]) error
	scratch(n *Node[T]) int
}

// base provides the default hooks: no-op enter/terminate, priority 1.
type base[T any] struct{}

func (base[T]) enter(*Context[T], *Node[T])                    {}
func (base[T]) terminate(*Context[T], *Node[T], domain.Status) {}
func (base[T]) priority(*Context[T], *Node[T]) uint            { return 1 }
func (base[T]) build(*Node[T]) error                           { return nil }
func (base[T]) scratch(*Node[T]) int                           { return 0 }

type blobAccess struct {
	size   int
	rtype  reflect.Type
	make   func(tb blob.TreeBlob, id domain.NodeID, reserve int) *blob.NodeBlob
	lookup func(tb blob.TreeBlob, id domain.NodeID) (*blob.NodeBlob, bool)
}

func accessOf[B any, PB interface {
	*B
	blob.Blob
}]() blobAccess {
	return blobAccess{
		size:  blob.SizeOf[B](),
		rtype: reflect.TypeFor[B](),
		make: func(tb blob.TreeBlob, id domain.NodeID, reserve int) *blob.NodeBlob {
			return blob.Make[B, PB](tb, id, nil, reserve).Base()
		},
		lookup: func(tb blob.TreeBlob, id domain.NodeID) (*blob.NodeBlob, bool) {
			b, ok := blob.Lookup[B, PB](tb, id)
			if !ok {
				return nil, false
			}
			return b.Base(), true
		},
	}
}

func newNode[T any](name string, kind domain.NodeKind, impl behavior[T], access blobAccess, children ...*Node[T]) *Node[T] {
	n := &Node[T]{
		name:     name,
		kind:     kind,
		impl:     impl,
		children: slices.Clone(children),
		access:   access,
	}
	n.size = int(unsafe.Sizeof(*n)) + int(reflect.TypeOf(impl).Elem().Size())
	return n
}

// Named renames the node and returns it. It must be called before the tree is built.
func (n *Node[T]) Named(name string) *Node[T] {
	n.name = name
	return n
}

// ID returns the node id, or 0 before the node is part of a built tree.
func (n *Node[T]) ID() domain.NodeID { return n.id }

// Name returns the human readable node name.
func (n *Node[T]) Name() string { return n.name }

// Kind returns the node category.
func (n *Node[T]) Kind() domain.NodeKind { return n.kind }

// Children returns the node's children. The slice must not be modified.
func (n *Node[T]) Children() []*Node[T] { return n.children }

// Size returns the in-memory size of the node in bytes.
func (n *Node[T]) Size() int { return n.size }

// BlobSize returns the size in bytes of the node's per-entity blob.
func (n *Node[T]) BlobSize() int { return n.access.size }

// Tick runs one step of the node's state machine against the store bound to ctx.
func (n *Node[T]) Tick(ctx *Context[T]) domain.Status {
	prev := ctx.node
	ctx.node = n

	b := n.access.make(ctx.tb, n.id, ctx.env.numNodes)
	if !b.Running {
		n.impl.enter(ctx, n)
		b.Running = true
		if h := ctx.env.hooks.OnNodeEnter; h != nil {
			h(n.event(ctx, domain.Undefined))
		}
	}

	s := n.impl.update(ctx, n)
	b.LastStatus = s
	b.LastSeq = ctx.Seq

	if s.IsTerminal() {
		n.impl.terminate(ctx, n, s)
		b.Running = false
		if h := ctx.env.hooks.OnNodeTerminate; h != nil {
			h(n.event(ctx, s))
		}
	}

	ctx.node = prev
	return s
}

// Priority returns the node's scheduling weight for the current tick.
// The value is computed at most once per (entity, Seq).
func (n *Node[T]) Priority(ctx *Context[T]) uint {
	b := n.access.make(ctx.tb, n.id, ctx.env.numNodes)
	if p, ok := b.CachedPriority(ctx.Seq); ok {
		return p
	}
	prev := ctx.node
	ctx.node = n
	p := n.impl.priority(ctx, n)
	ctx.node = prev
	b.CachePriority(ctx.Seq, p)
	return p
}

// update runs the node's Update without the enter/terminate bookkeeping.
func (n *Node[T]) update(ctx *Context[T]) domain.Status {
	prev := ctx.node
	ctx.node = n
	s := n.impl.update(ctx, n)
	ctx.node = prev
	return s
}

// State reports the node's blob in tb, if the node was ever ticked there.
func (n *Node[T]) State(tb blob.TreeBlob) (domain.NodeState, bool) {
	st := domain.NodeState{ID: n.id, Name: n.name, Kind: n.kind}
	b, ok := n.access.lookup(tb, n.id)
	if !ok {
		return st, false
	}
	st.Running = b.Running
	st.LastStatus = b.LastStatus
	st.LastSeq = b.LastSeq
	return st, true
}

func (n *Node[T]) event(ctx *Context[T], s domain.Status) domain.NodeEvent {
	return domain.NodeEvent{NodeID: n.id, Name: n.name, Kind: n.kind, Seq: ctx.Seq, Status: s}
}

func (n *Node[T]) String() string {
	return fmt.Sprintf("%s#%d", n.name, n.id)
}

// BlobOf returns the blob of type B belonging to the node being ticked.
// It is meant for actions created with NewStatefulAction.
func BlobOf[B any, T any, PB interface {
	*B
	blob.Blob
}](ctx *Context[T]) PB {
	n := ctx.node
	if n == nil {
		panic("bt: BlobOf called outside of a tick")
	}
	if want := reflect.TypeFor[B](); n.access.rtype != want {
		panic(fmt.Sprintf("bt: node %s stores %s, not %s", n, n.access.rtype, want))
	}
	return blob.Make[B, PB](ctx.tb, n.id, nil, ctx.env.numNodes)
}
