package bt

import (
	"github.com/aretw0/canopy/pkg/blob"
	"github.com/aretw0/canopy/pkg/domain"
)

// Action is a user task ticked as a leaf.
// Implementations may also satisfy Enterer, Terminator, Prioritizer and BuildHook.
type Action[T any] interface {
	Update(ctx *Context[T]) domain.Status
}

// ActionFunc adapts a plain function to Action.
type ActionFunc[T any] func(ctx *Context[T]) domain.Status

// Update calls f.
func (f ActionFunc[T]) Update(ctx *Context[T]) domain.Status { return f(ctx) }

// Enterer is called when a node starts a new round.
type Enterer[T any] interface {
	OnEnter(ctx *Context[T])
}

// Terminator is called when a node finishes a round.
type Terminator[T any] interface {
	OnTerminate(ctx *Context[T], s domain.Status)
}

// Prioritizer supplies a dynamic scheduling weight. Zero means "never pick"
// for random selectors and "last" for ordered composites.
type Prioritizer[T any] interface {
	Priority(ctx *Context[T]) uint
}

// BuildHook is called once per node after the tree is assembled.
type BuildHook interface {
	OnBuild() error
}

// Condition is a pure test of the context. It never returns RUNNING.
type Condition[T any] interface {
	Check(ctx *Context[T]) bool
}

// ConditionFunc adapts a plain function to Condition.
type ConditionFunc[T any] func(ctx *Context[T]) bool

// Check calls f.
func (f ConditionFunc[T]) Check(ctx *Context[T]) bool { return f(ctx) }

type notCondition[T any] struct {
	c Condition[T]
}

func (n notCondition[T]) Check(ctx *Context[T]) bool { return !n.c.Check(ctx) }

// Not inverts a condition.
func Not[T any](c Condition[T]) Condition[T] {
	return notCondition[T]{c: c}
}

type actionBehavior[T any] struct {
	base[T]
	action      Action[T]
	enterer     Enterer[T]
	terminator  Terminator[T]
	prioritizer Prioritizer[T]
	hook        BuildHook
}

func newActionBehavior[T any](a Action[T]) *actionBehavior[T] {
	ab := &actionBehavior[T]{action: a}
	ab.enterer, _ = a.(Enterer[T])
	ab.terminator, _ = a.(Terminator[T])
	ab.prioritizer, _ = a.(Prioritizer[T])
	ab.hook, _ = a.(BuildHook)
	return ab
}

func (a *actionBehavior[T]) update(ctx *Context[T], _ *Node[T]) domain.Status {
	return a.action.Update(ctx)
}

func (a *actionBehavior[T]) enter(ctx *Context[T], _ *Node[T]) {
	if a.enterer != nil {
		a.enterer.OnEnter(ctx)
	}
}

func (a *actionBehavior[T]) terminate(ctx *Context[T], _ *Node[T], s domain.Status) {
	if a.terminator != nil {
		a.terminator.OnTerminate(ctx, s)
	}
}

func (a *actionBehavior[T]) priority(ctx *Context[T], _ *Node[T]) uint {
	if a.prioritizer != nil {
		return a.prioritizer.Priority(ctx)
	}
	return 1
}

func (a *actionBehavior[T]) build(*Node[T]) error {
	if a.hook != nil {
		return a.hook.OnBuild()
	}
	return nil
}

// NewAction wraps a user task in a leaf node.
func NewAction[T any](name string, a Action[T]) *Node[T] {
	if name == "" {
		name = "Action"
	}
	return newNode[T](name, domain.KindAction, newActionBehavior(a), accessOf[blob.NodeBlob]())
}

// NewStatefulAction wraps a user task that keeps per-entity state of type B.
// The action reaches its blob through BlobOf[B].
func NewStatefulAction[B any, T any, PB interface {
	*B
	blob.Blob
}](name string, a Action[T]) *Node[T] {
	if name == "" {
		name = "Action"
	}
	return newNode[T](name, domain.KindAction, newActionBehavior(a), accessOf[B, PB]())
}

// Do wraps a function in an action node.
func Do[T any](name string, fn func(ctx *Context[T]) domain.Status) *Node[T] {
	return NewAction[T](name, ActionFunc[T](fn))
}

type conditionBehavior[T any] struct {
	base[T]
	cond Condition[T]
}

func (c *conditionBehavior[T]) update(ctx *Context[T], _ *Node[T]) domain.Status {
	if c.cond.Check(ctx) {
		return domain.Success
	}
	return domain.Failure
}

func (c *conditionBehavior[T]) build(*Node[T]) error {
	if h, ok := c.cond.(BuildHook); ok {
		return h.OnBuild()
	}
	return nil
}

// NewCondition wraps a condition in a leaf node.
func NewCondition[T any](name string, c Condition[T]) *Node[T] {
	if name == "" {
		name = "Condition"
	}
	return newNode[T](name, domain.KindCondition, &conditionBehavior[T]{cond: c}, accessOf[blob.NodeBlob]())
}

// Check wraps a predicate in a condition node.
func Check[T any](name string, fn func(ctx *Context[T]) bool) *Node[T] {
	return NewCondition[T](name, ConditionFunc[T](fn))
}

// True is a condition that always holds.
func True[T any]() Condition[T] {
	return ConditionFunc[T](func(*Context[T]) bool { return true })
}

// False is a condition that never holds.
func False[T any]() Condition[T] {
	return ConditionFunc[T](func(*Context[T]) bool { return false })
}
