package canopy

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/aretw0/canopy/pkg/blackboard"
	"github.com/aretw0/canopy/pkg/bt"
	"github.com/aretw0/canopy/pkg/domain"
	"github.com/aretw0/canopy/pkg/dsl"
	"github.com/aretw0/canopy/pkg/observability"
	"github.com/aretw0/canopy/pkg/registry"
	"github.com/aretw0/canopy/pkg/runner"
)

// Board is the entity payload used by the Engine.
type Board = *blackboard.Board

// Registry resolves the actions and conditions named in definitions.
type Registry = registry.Registry[Board]

// NewRegistry returns an empty registry for blackboard trees.
func NewRegistry() *Registry {
	return registry.New[Board]()
}

// BoardCodec carries blackboards through entity snapshots.
var BoardCodec = runner.NewCodec(
	func(b Board) (map[string]any, error) { return b.Snapshot(), nil },
	func(m map[string]any) (Board, error) { return blackboard.New(m), nil },
)

// Engine is the high-level entry point for the canopy library.
// It compiles a definition into a tree and drives blackboard entities
// through it.
type Engine struct {
	Name string

	tree     *bt.Tree[Board]
	runner   *runner.Runner[Board]
	registry *Registry
	metrics  *observability.Metrics
	hooks    domain.LifecycleHooks
	logger   *slog.Logger

	treeOpts   []bt.Option
	runnerOpts []runner.Option

	mu        sync.RWMutex
	listeners []func(id string, seq uint64, s domain.Status)
	passHooks []func(pass uint64)
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithRegistry sets the actions and conditions available to the definition.
func WithRegistry(reg *Registry) Option {
	return func(e *Engine) {
		e.registry = reg
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks on every node.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = e.hooks.Merge(hooks)
	}
}

// WithMetrics records node, tick and pass metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithTreeOptions passes options to bt.NewTree.
func WithTreeOptions(opts ...bt.Option) Option {
	return func(e *Engine) {
		e.treeOpts = append(e.treeOpts, opts...)
	}
}

// WithRunnerOptions passes options to runner.New.
func WithRunnerOptions(opts ...runner.Option) Option {
	return func(e *Engine) {
		e.runnerOpts = append(e.runnerOpts, opts...)
	}
}

// New loads the definition at path (YAML or JSON) and builds an engine for it.
func New(path string, opts ...Option) (*Engine, error) {
	def, err := dsl.LoadFile(path)
	if err != nil {
		return nil, err
	}
	return NewFromDefinition(def, opts...)
}

// NewFromDefinition builds an engine for an already parsed definition.
func NewFromDefinition(def *dsl.Definition, opts ...Option) (*Engine, error) {
	eng := &Engine{Name: def.Name}
	for _, opt := range opts {
		opt(eng)
	}
	if eng.registry == nil {
		eng.registry = NewRegistry()
	}
	if eng.logger == nil {
		eng.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	hooks := eng.hooks
	if eng.metrics != nil {
		hooks = hooks.Merge(eng.metrics.Hooks(def.Name))
	}
	treeOpts := append([]bt.Option{
		bt.WithLogger(eng.logger),
		bt.WithLifecycleHooks(hooks),
	}, eng.treeOpts...)

	tree, err := dsl.Compile(def, eng.registry, treeOpts...)
	if err != nil {
		return nil, err
	}
	eng.tree = tree
	eng.Name = tree.Name()

	runnerOpts := []runner.Option{
		runner.WithLogger(eng.logger),
		runner.WithCodec(BoardCodec),
		runner.WithAfterTick(eng.notify),
		runner.WithAfterPass(eng.notifyPass),
	}
	if eng.metrics != nil {
		runnerOpts = append(runnerOpts, runner.WithMetrics(eng.metrics))
	}
	eng.runner = runner.New(tree, append(runnerOpts, eng.runnerOpts...)...)

	eng.logger.Info("engine ready", "tree", eng.Name, "nodes", tree.NumNodes(), "max_blob_size", tree.MaxBlobSize())
	return eng, nil
}

// Tree returns the compiled tree.
func (e *Engine) Tree() *bt.Tree[Board] { return e.tree }

// Runner returns the runner that drives the entities.
func (e *Engine) Runner() *runner.Runner[Board] { return e.runner }

// Structure returns the nodes of the tree with no entity state.
func (e *Engine) Structure() []domain.NodeState {
	return e.tree.Inspect(e.tree.NewDynamicBlob())
}

// Spawn adds an entity whose blackboard starts with initial.
func (e *Engine) Spawn(id string, initial map[string]any) (string, error) {
	return e.runner.Add(id, blackboard.New(initial))
}

// Board returns the blackboard of an entity.
func (e *Engine) Board(id string) (Board, error) {
	return e.runner.Data(id)
}

// Entities lists the entities in tick order.
func (e *Engine) Entities() []runner.EntityInfo {
	return e.runner.Entities()
}

// Entity returns the summary of one entity.
func (e *Engine) Entity(id string) (runner.EntityInfo, error) {
	return e.runner.Entity(id)
}

// Inspect returns the node states of an entity.
func (e *Engine) Inspect(id string) ([]domain.NodeState, error) {
	return e.runner.Inspect(id)
}

// Step ticks every entity once.
func (e *Engine) Step() {
	e.runner.Step()
}

// Run ticks every entity until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	return e.runner.Run(ctx)
}

// OnTick registers fn to be called after every entity tick.
// fn runs while the runner is locked and must not call back into the engine.
func (e *Engine) OnTick(fn func(id string, seq uint64, s domain.Status)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = append(e.listeners, fn)
}

func (e *Engine) notify(id string, seq uint64, s domain.Status) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, fn := range e.listeners {
		fn(id, seq, s)
	}
}

// OnPass registers fn to be called after every pass. fn may use the engine.
func (e *Engine) OnPass(fn func(pass uint64)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.passHooks = append(e.passHooks, fn)
}

func (e *Engine) notifyPass(pass uint64) {
	e.mu.RLock()
	hooks := e.passHooks
	e.mu.RUnlock()
	for _, fn := range hooks {
		fn(pass)
	}
}

// String describes the engine for logs.
func (e *Engine) String() string {
	return fmt.Sprintf("canopy.Engine(%s, %d nodes)", e.Name, e.tree.NumNodes())
}
