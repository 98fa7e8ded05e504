package bt

import (
	"fmt"
	"time"

	"github.com/aretw0/canopy/pkg/blob"
	"github.com/aretw0/canopy/pkg/domain"
)

// single is the base of nodes wrapping exactly one child.
type single[T any] struct {
	base[T]
}

func (single[T]) priority(ctx *Context[T], n *Node[T]) uint {
	return n.children[0].Priority(ctx)
}

func (single[T]) build(n *Node[T]) error {
	if len(n.children) != 1 || n.children[0] == nil {
		return fmt.Errorf("%w: decorator %q requires exactly one child", domain.ErrInvalidTree, n.name)
	}
	return nil
}

func newDecorator[T any](name string, impl behavior[T], access blobAccess, child *Node[T]) *Node[T] {
	return newNode(name, domain.KindDecorator, impl, access, child)
}

type invert[T any] struct{ single[T] }

func (invert[T]) update(ctx *Context[T], n *Node[T]) domain.Status {
	switch s := n.children[0].Tick(ctx); s {
	case domain.Success:
		return domain.Failure
	case domain.Failure:
		return domain.Success
	default:
		return s
	}
}

// Invert swaps SUCCESS and FAILURE of its child.
func Invert[T any](child *Node[T]) *Node[T] {
	return newDecorator("Invert", &invert[T]{}, accessOf[blob.NodeBlob](), child)
}

// conditionalRun holds its condition as the first child and the guarded
// node as the second.
type conditionalRun[T any] struct{ base[T] }

func (conditionalRun[T]) priority(ctx *Context[T], n *Node[T]) uint {
	return n.children[1].Priority(ctx)
}

func (conditionalRun[T]) build(n *Node[T]) error {
	if len(n.children) != 2 || n.children[0] == nil || n.children[1] == nil {
		return fmt.Errorf("%w: decorator %q requires a condition and exactly one child", domain.ErrInvalidTree, n.name)
	}
	if n.children[0].kind != domain.KindCondition {
		return fmt.Errorf("%w: decorator %q guard %q is not a condition", domain.ErrInvalidTree, n.name, n.children[0].name)
	}
	return nil
}

func (conditionalRun[T]) update(ctx *Context[T], n *Node[T]) domain.Status {
	if n.children[0].Tick(ctx) == domain.Success {
		return n.children[1].Tick(ctx)
	}
	return domain.Failure
}

// If ticks child only on ticks where cond succeeds, and fails otherwise.
// cond must be a condition node.
func If[T any](cond, child *Node[T]) *Node[T] {
	return newNode("If", domain.KindDecorator, &conditionalRun[T]{}, accessOf[blob.NodeBlob](), cond, child)
}

// IfNot ticks child only on ticks where cond fails.
func IfNot[T any](cond Condition[T], child *Node[T]) *Node[T] {
	n := If(NewCondition("Not", Not(cond)), child)
	n.name = "IfNot"
	return n
}

// Case is an If meant to be placed inside a Switch.
func Case[T any](cond, child *Node[T]) *Node[T] {
	n := If(cond, child)
	n.name = "Case"
	return n
}

type repeatBlob struct {
	blob.NodeBlob
	count int
}

type repeat[T any] struct {
	single[T]
	n int
}

func (r *repeat[T]) enter(ctx *Context[T], n *Node[T]) {
	blob.Make[repeatBlob](ctx.tb, n.id, nil, ctx.env.numNodes).count = 0
}

func (r *repeat[T]) terminate(ctx *Context[T], n *Node[T], _ domain.Status) {
	blob.Make[repeatBlob](ctx.tb, n.id, nil, ctx.env.numNodes).count = 0
}

func (r *repeat[T]) update(ctx *Context[T], n *Node[T]) domain.Status {
	if r.n == 0 {
		return domain.Success
	}
	s := n.children[0].Tick(ctx)
	if s != domain.Success {
		return s
	}
	b := blob.Make[repeatBlob](ctx.tb, n.id, nil, ctx.env.numNodes)
	b.count++
	if r.n > 0 && b.count >= r.n {
		return domain.Success
	}
	return domain.Running
}

// Repeat re-runs child until it has succeeded times rounds, returning RUNNING
// in between. A child failure fails the repeat. times 0 succeeds at once and
// a negative times repeats forever.
func Repeat[T any](times int, child *Node[T]) *Node[T] {
	return newDecorator(fmt.Sprintf("Repeat<%d>", times), &repeat[T]{n: times}, accessOf[repeatBlob](), child)
}

// Loop is an alias of Repeat.
func Loop[T any](times int, child *Node[T]) *Node[T] {
	return Repeat(times, child)
}

type timeoutBlob struct {
	blob.NodeBlob
	startAt int64
}

type timeout[T any] struct {
	single[T]
	d time.Duration
}

func (t *timeout[T]) enter(ctx *Context[T], n *Node[T]) {
	blob.Make[timeoutBlob](ctx.tb, n.id, nil, ctx.env.numNodes).startAt = ctx.nanos()
}

func (t *timeout[T]) update(ctx *Context[T], n *Node[T]) domain.Status {
	b := blob.Make[timeoutBlob](ctx.tb, n.id, nil, ctx.env.numNodes)
	if ctx.nanos() > b.startAt+int64(t.d) {
		return domain.Failure
	}
	return n.children[0].Tick(ctx)
}

// Timeout fails without ticking child once d has elapsed since the round began.
func Timeout[T any](d time.Duration, child *Node[T]) *Node[T] {
	return newDecorator(fmt.Sprintf("Timeout<%s>", d), &timeout[T]{d: d}, accessOf[timeoutBlob](), child)
}

type delayBlob struct {
	blob.NodeBlob
	firstRunAt int64
}

type delay[T any] struct {
	single[T]
	d time.Duration
}

func (d *delay[T]) enter(ctx *Context[T], n *Node[T]) {
	blob.Make[delayBlob](ctx.tb, n.id, nil, ctx.env.numNodes).firstRunAt = ctx.nanos()
}

func (d *delay[T]) terminate(ctx *Context[T], n *Node[T], _ domain.Status) {
	blob.Make[delayBlob](ctx.tb, n.id, nil, ctx.env.numNodes).firstRunAt = 0
}

func (d *delay[T]) update(ctx *Context[T], n *Node[T]) domain.Status {
	b := blob.Make[delayBlob](ctx.tb, n.id, nil, ctx.env.numNodes)
	if ctx.nanos() < b.firstRunAt+int64(d.d) {
		return domain.Running
	}
	return n.children[0].Tick(ctx)
}

// Delay returns RUNNING for d after the round began, then delegates to child.
func Delay[T any](d time.Duration, child *Node[T]) *Node[T] {
	return newDecorator(fmt.Sprintf("Delay<%s>", d), &delay[T]{d: d}, accessOf[delayBlob](), child)
}

type retryBlob struct {
	blob.NodeBlob
	count       int
	lastRetryAt int64
}

type retry[T any] struct {
	single[T]
	limit    int
	interval time.Duration
}

func (r *retry[T]) enter(ctx *Context[T], n *Node[T]) {
	b := blob.Make[retryBlob](ctx.tb, n.id, nil, ctx.env.numNodes)
	b.count = 0
	b.lastRetryAt = 0
}

func (r *retry[T]) terminate(ctx *Context[T], n *Node[T], _ domain.Status) {
	b := blob.Make[retryBlob](ctx.tb, n.id, nil, ctx.env.numNodes)
	b.count = 0
	b.lastRetryAt = 0
}

func (r *retry[T]) exhausted(count int) bool {
	return r.limit >= 0 && count > r.limit
}

func (r *retry[T]) update(ctx *Context[T], n *Node[T]) domain.Status {
	b := blob.Make[retryBlob](ctx.tb, n.id, nil, ctx.env.numNodes)
	if r.exhausted(b.count) {
		return domain.Failure
	}
	now := ctx.nanos()
	if b.count > 0 && now < b.lastRetryAt+int64(r.interval) {
		return domain.Running
	}
	s := n.children[0].Tick(ctx)
	if s != domain.Failure {
		return s
	}
	b.count++
	b.lastRetryAt = now
	if r.exhausted(b.count) {
		return domain.Failure
	}
	return domain.Running
}

// Retry re-runs a failing child up to limit more times, waiting at least
// interval between attempts. A negative limit retries forever.
func Retry[T any](limit int, interval time.Duration, child *Node[T]) *Node[T] {
	return newDecorator(fmt.Sprintf("Retry<%d,%s>", limit, interval), &retry[T]{limit: limit, interval: interval}, accessOf[retryBlob](), child)
}

// RetryForever re-runs a failing child until it succeeds.
func RetryForever[T any](interval time.Duration, child *Node[T]) *Node[T] {
	n := Retry(-1, interval, child)
	n.name = fmt.Sprintf("RetryForever<%s>", interval)
	return n
}

// force coerces the terminal status of its child.
//
// It calls the child's update directly, so the child's OnEnter, OnTerminate
// and LastStatus bookkeeping never run. Wrap the child in a Sequence first
// when those hooks matter.
type force[T any] struct {
	single[T]
	to domain.Status
}

func (f *force[T]) update(ctx *Context[T], n *Node[T]) domain.Status {
	if n.children[0].update(ctx) == domain.Running {
		return domain.Running
	}
	return f.to
}

// ForceSuccess turns any terminal status of child into SUCCESS.
func ForceSuccess[T any](child *Node[T]) *Node[T] {
	return newDecorator("ForceSuccess", &force[T]{to: domain.Success}, accessOf[blob.NodeBlob](), child)
}

// ForceFailure turns any terminal status of child into FAILURE.
func ForceFailure[T any](child *Node[T]) *Node[T] {
	return newDecorator("ForceFailure", &force[T]{to: domain.Failure}, accessOf[blob.NodeBlob](), child)
}

// DecoratorFunc is the update of a custom decorator. It decides when and
// whether to tick child.
type DecoratorFunc[T any] func(ctx *Context[T], child *Node[T]) domain.Status

type custom[T any] struct {
	single[T]
	fn DecoratorFunc[T]
}

func (c *custom[T]) update(ctx *Context[T], n *Node[T]) domain.Status {
	return c.fn(ctx, n.children[0])
}

// Decorate builds a decorator from a function.
func Decorate[T any](name string, child *Node[T], fn DecoratorFunc[T]) *Node[T] {
	if name == "" {
		name = "Decorator"
	}
	return newDecorator(name, &custom[T]{fn: fn}, accessOf[blob.NodeBlob](), child)
}
