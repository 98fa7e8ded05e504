package dsl

import (
	"fmt"
	"strings"
	"time"

	"github.com/aretw0/canopy/pkg/bt"
	"github.com/aretw0/canopy/pkg/domain"
	"github.com/aretw0/canopy/pkg/registry"
)

// Compiler turns definitions into trees.
type Compiler[T any] struct {
	// Registry resolves action and condition names.
	Registry *registry.Registry[T]
	// Env builds the variables of inline expressions. Defaults to DefaultEnv.
	Env func(ctx *bt.Context[T]) map[string]any
	// Options are passed to bt.NewTree.
	Options []bt.Option
}

// Compile builds a tree from def using the actions and conditions of reg.
func Compile[T any](def *Definition, reg *registry.Registry[T], opts ...bt.Option) (*bt.Tree[T], error) {
	c := &Compiler[T]{Registry: reg, Options: opts}
	return c.Compile(def)
}

// Compile builds a tree from def.
func (c *Compiler[T]) Compile(def *Definition) (*bt.Tree[T], error) {
	if c.Registry == nil {
		c.Registry = registry.New[T]()
	}
	if c.Env == nil {
		c.Env = DefaultEnv[T]
	}
	root, err := c.node(&def.Root, "root")
	if err != nil {
		return nil, err
	}
	tree, err := bt.NewTree(def.Name, root, c.Options...)
	if err != nil {
		return nil, fmt.Errorf("definition %q: %w", def.Name, err)
	}
	return tree, nil
}

type compositeCtor[T any] func(children ...*bt.Node[T]) *bt.Node[T]

func (c *Compiler[T]) composites() map[string]compositeCtor[T] {
	return map[string]compositeCtor[T]{
		"sequence":                 bt.Sequence[T],
		"selector":                 bt.Selector[T],
		"parallel":                 bt.Parallel[T],
		"random_selector":          bt.RandomSelector[T],
		"stateful_sequence":        bt.StatefulSequence[T],
		"stateful_selector":        bt.StatefulSelector[T],
		"stateful_parallel":        bt.StatefulParallel[T],
		"stateful_random_selector": bt.StatefulRandomSelector[T],
		"switch":                   bt.Switch[T],
		"stateful_switch":          bt.StatefulSwitch[T],
	}
}

func (c *Compiler[T]) node(def *NodeDef, path string) (*bt.Node[T], error) {
	kind := strings.ToLower(strings.TrimSpace(def.Type))

	if ctor, ok := c.composites()[kind]; ok {
		if len(def.Children) == 0 {
			return nil, fmt.Errorf("%s: %w: %s needs children", path, domain.ErrInvalidTree, kind)
		}
		children := make([]*bt.Node[T], len(def.Children))
		for i := range def.Children {
			child, err := c.node(&def.Children[i], fmt.Sprintf("%s.children[%d]", path, i))
			if err != nil {
				return nil, err
			}
			children[i] = child
		}
		return named(ctor(children...), def.Name), nil
	}

	switch kind {
	case "action":
		if def.Action == "" {
			return nil, fmt.Errorf("%s: %w: action leaf without action", path, domain.ErrInvalidTree)
		}
		n, err := c.Registry.Action(def.Action, firstNonEmpty(def.Name, def.Action), def.Params)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return n, nil
	case "condition":
		cond, name, err := c.condition(def)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return bt.NewCondition(firstNonEmpty(def.Name, name), cond), nil
	case "succeed", "fail", "running":
		return c.constant(kind, def.Name), nil
	case "if", "if_not", "case":
		return c.guarded(kind, def, path)
	}
	return c.decorator(kind, def, path)
}

func (c *Compiler[T]) constant(kind, name string) *bt.Node[T] {
	s := map[string]domain.Status{"succeed": domain.Success, "fail": domain.Failure, "running": domain.Running}[kind]
	return bt.Do(firstNonEmpty(name, strings.ToUpper(kind[:1])+kind[1:]), func(*bt.Context[T]) domain.Status {
		return s
	})
}

func (c *Compiler[T]) condition(def *NodeDef) (bt.Condition[T], string, error) {
	var (
		cond bt.Condition[T]
		name string
	)
	switch {
	case def.Expr != "" && def.Condition != "":
		return nil, "", fmt.Errorf("%w: condition has both expr and condition", domain.ErrInvalidTree)
	case def.Expr != "":
		e, err := compileExpr(def.Expr, c.Env)
		if err != nil {
			return nil, "", err
		}
		cond, name = e, "Expr"
	case def.Condition != "":
		r, err := c.Registry.Condition(def.Condition, def.Params)
		if err != nil {
			return nil, "", err
		}
		cond, name = r, def.Condition
	default:
		return nil, "", fmt.Errorf("%w: condition needs expr or condition", domain.ErrInvalidTree)
	}
	if def.Not {
		cond, name = bt.Not(cond), "Not "+name
	}
	return cond, name, nil
}

func (c *Compiler[T]) child(def *NodeDef, path string) (*bt.Node[T], error) {
	if def.Child == nil {
		return nil, fmt.Errorf("%s: %w: %s needs a child", path, domain.ErrInvalidTree, def.Type)
	}
	return c.node(def.Child, path+".child")
}

func (c *Compiler[T]) guarded(kind string, def *NodeDef, path string) (*bt.Node[T], error) {
	if def.When == nil {
		return nil, fmt.Errorf("%s: %w: %s needs a when guard", path, domain.ErrInvalidTree, kind)
	}
	cond, name, err := c.condition(def.When)
	if err != nil {
		return nil, fmt.Errorf("%s.when: %w", path, err)
	}
	child, err := c.child(def, path)
	if err != nil {
		return nil, err
	}
	var n *bt.Node[T]
	switch kind {
	case "if":
		n = bt.If(bt.NewCondition(firstNonEmpty(def.When.Name, name), cond), child)
	case "if_not":
		guard := bt.NewCondition(firstNonEmpty(def.When.Name, "Not "+name), bt.Not(cond))
		n = bt.If(guard, child).Named("IfNot")
	default:
		n = bt.Case(bt.NewCondition(firstNonEmpty(def.When.Name, name), cond), child)
	}
	return named(n, def.Name), nil
}

type repeatParams struct {
	Times int `mapstructure:"times"`
}

type durationParams struct {
	Duration time.Duration `mapstructure:"duration"`
}

type retryParams struct {
	Limit    *int          `mapstructure:"limit"`
	Interval time.Duration `mapstructure:"interval"`
}

func (c *Compiler[T]) decorator(kind string, def *NodeDef, path string) (*bt.Node[T], error) {
	var build func(child *bt.Node[T]) (*bt.Node[T], error)

	switch kind {
	case "invert":
		build = func(child *bt.Node[T]) (*bt.Node[T], error) { return bt.Invert(child), nil }
	case "force_success":
		build = func(child *bt.Node[T]) (*bt.Node[T], error) { return bt.ForceSuccess(child), nil }
	case "force_failure":
		build = func(child *bt.Node[T]) (*bt.Node[T], error) { return bt.ForceFailure(child), nil }
	case "repeat", "loop":
		p := repeatParams{Times: -1}
		build = func(child *bt.Node[T]) (*bt.Node[T], error) {
			if err := registry.Decode(def.Params, &p); err != nil {
				return nil, err
			}
			return bt.Repeat(p.Times, child), nil
		}
	case "timeout", "delay":
		var p durationParams
		build = func(child *bt.Node[T]) (*bt.Node[T], error) {
			if err := registry.Decode(def.Params, &p); err != nil {
				return nil, err
			}
			if kind == "timeout" {
				return bt.Timeout(p.Duration, child), nil
			}
			return bt.Delay(p.Duration, child), nil
		}
	case "retry", "retry_forever":
		var p retryParams
		build = func(child *bt.Node[T]) (*bt.Node[T], error) {
			if err := registry.Decode(def.Params, &p); err != nil {
				return nil, err
			}
			if kind == "retry_forever" {
				if p.Limit != nil {
					return nil, fmt.Errorf("%w: retry_forever takes no limit", domain.ErrInvalidTree)
				}
				return bt.RetryForever(p.Interval, child), nil
			}
			if p.Limit == nil {
				return nil, fmt.Errorf("%w: retry needs a limit (-1 retries forever)", domain.ErrInvalidTree)
			}
			return bt.Retry(*p.Limit, p.Interval, child), nil
		}
	default:
		return nil, fmt.Errorf("%s: %w: type %q", path, domain.ErrUnknownNode, def.Type)
	}

	child, err := c.child(def, path)
	if err != nil {
		return nil, err
	}
	n, err := build(child)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return named(n, def.Name), nil
}

func named[T any](n *bt.Node[T], name string) *bt.Node[T] {
	if name != "" {
		n.Named(name)
	}
	return n
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
