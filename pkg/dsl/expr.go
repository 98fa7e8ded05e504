package dsl

import (
	"fmt"

	"github.com/aretw0/canopy/pkg/bt"
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// DefaultEnv exposes the entity data to expressions. Data with a
// Snapshot() map[string]any method (such as a blackboard) and plain maps are
// used directly; anything else is reachable as "data".
func DefaultEnv[T any](ctx *bt.Context[T]) map[string]any {
	switch d := any(ctx.Data).(type) {
	case interface{ Snapshot() map[string]any }:
		return d.Snapshot()
	case map[string]any:
		return d
	}
	return map[string]any{"data": ctx.Data}
}

// exprCondition evaluates a compiled expression against the entity data.
// Evaluation errors and non-boolean results count as false.
type exprCondition[T any] struct {
	source  string
	program *vm.Program
	env     func(ctx *bt.Context[T]) map[string]any
}

func compileExpr[T any](source string, env func(ctx *bt.Context[T]) map[string]any) (*exprCondition[T], error) {
	program, err := expr.Compile(source,
		expr.Env(map[string]any{}),
		expr.AsBool(),
		expr.AllowUndefinedVariables(),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid expression %q: %w", source, err)
	}
	return &exprCondition[T]{source: source, program: program, env: env}, nil
}

func (c *exprCondition[T]) Check(ctx *bt.Context[T]) bool {
	out, err := expr.Run(c.program, c.env(ctx))
	if err != nil {
		return false
	}
	b, ok := out.(bool)
	return ok && b
}

func (c *exprCondition[T]) String() string { return c.source }
