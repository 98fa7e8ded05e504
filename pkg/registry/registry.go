package registry

import (
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/aretw0/canopy/pkg/bt"
	"github.com/aretw0/canopy/pkg/domain"
)

// NodeFactory builds a leaf node from the parameters of a definition.
// Factories run once per occurrence in a tree, so each call must return a
// new node.
type NodeFactory[T any] func(name string, params map[string]any) (*bt.Node[T], error)

// ConditionFactory builds a condition from the parameters of a definition.
type ConditionFactory[T any] func(params map[string]any) (bt.Condition[T], error)

// Registry maps names used in tree definitions to Go behavior.
// Safe for concurrent use.
type Registry[T any] struct {
	mu         sync.RWMutex
	actions    map[string]NodeFactory[T]
	conditions map[string]ConditionFactory[T]
}

// New creates a new empty registry.
func New[T any]() *Registry[T] {
	return &Registry[T]{
		actions:    make(map[string]NodeFactory[T]),
		conditions: make(map[string]ConditionFactory[T]),
	}
}

// Register adds an action factory. An existing entry with the same name is
// overwritten.
func (r *Registry[T]) Register(name string, factory NodeFactory[T]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions[name] = factory
}

// RegisterAction adds an action that ignores parameters. The action value
// is shared by every node built from it, so it must keep per-entity state in
// blobs or in the context data.
func (r *Registry[T]) RegisterAction(name string, a bt.Action[T]) {
	r.Register(name, func(node string, _ map[string]any) (*bt.Node[T], error) {
		return bt.NewAction(node, a), nil
	})
}

// RegisterFunc adds an action backed by a plain function.
func (r *Registry[T]) RegisterFunc(name string, fn func(ctx *bt.Context[T]) domain.Status) {
	r.RegisterAction(name, bt.ActionFunc[T](fn))
}

// RegisterCondition adds a condition factory.
func (r *Registry[T]) RegisterCondition(name string, factory ConditionFactory[T]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conditions[name] = factory
}

// RegisterCheck adds a condition backed by a plain predicate.
func (r *Registry[T]) RegisterCheck(name string, fn func(ctx *bt.Context[T]) bool) {
	r.RegisterCondition(name, func(map[string]any) (bt.Condition[T], error) {
		return bt.ConditionFunc[T](fn), nil
	})
}

// Action builds the node registered under action, naming it node.
func (r *Registry[T]) Action(action, node string, params map[string]any) (*bt.Node[T], error) {
	r.mu.RLock()
	factory, ok := r.actions[action]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: action %q", domain.ErrUnknownNode, action)
	}
	n, err := factory(node, params)
	if err != nil {
		return nil, fmt.Errorf("action %q: %w", action, err)
	}
	return n, nil
}

// Condition builds the condition registered under name.
func (r *Registry[T]) Condition(name string, params map[string]any) (bt.Condition[T], error) {
	r.mu.RLock()
	factory, ok := r.conditions[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: condition %q", domain.ErrUnknownNode, name)
	}
	c, err := factory(params)
	if err != nil {
		return nil, fmt.Errorf("condition %q: %w", name, err)
	}
	return c, nil
}

// Actions returns the registered action names in sorted order.
func (r *Registry[T]) Actions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.actions))
}

// Conditions returns the registered condition names in sorted order.
func (r *Registry[T]) Conditions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.conditions))
}
