package bt

import (
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/aretw0/canopy/pkg/blob"
	"github.com/aretw0/canopy/pkg/domain"
)

// env is the read-only tree data every tick needs.
type env struct {
	clock    func() time.Time
	rand     *rand.Rand
	hooks    domain.LifecycleHooks
	numNodes int
}

type config struct {
	logger *slog.Logger
	clock  func() time.Time
	rand   *rand.Rand
	hooks  domain.LifecycleHooks
}

// Option configures a Tree.
type Option func(*config)

// WithLogger sets a custom structured logger for the tree.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithClock replaces time.Now as the source of time for Timeout, Delay and Retry.
func WithClock(clock func() time.Time) Option {
	return func(c *config) {
		c.clock = clock
	}
}

// WithRand sets the random source used by random selectors.
// The source is shared by every entity unless Context.Rand is set, and the
// tree serializes its use. r must not be used elsewhere while the tree ticks.
func WithRand(r *rand.Rand) Option {
	return func(c *config) {
		c.rand = r
	}
}

// WithLifecycleHooks registers observability hooks. Repeated calls accumulate.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(c *config) {
		c.hooks = c.hooks.Merge(hooks)
	}
}

// lockedSource lets entities ticked from different goroutines share one source.
type lockedSource struct {
	mu  sync.Mutex
	src rand.Source
}

func (s *lockedSource) Uint64() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src.Uint64()
}

type rootBehavior[T any] struct{ single[T] }

func (rootBehavior[T]) update(ctx *Context[T], n *Node[T]) domain.Status {
	return n.children[0].Tick(ctx)
}

// Tree is a validated, immutable behavior tree.
//
// The tree holds no entity state. A store is bound with BindTreeBlob before
// ticking an entity; with nothing bound the tree uses a private Dynamic store.
// Binding is not synchronized: use TickBlob to tick different entities from
// different goroutines, each with its own Context. Context.Rand, when set,
// must not be shared between goroutines.
type Tree[T any] struct {
	name     string
	root     *Node[T]
	nodes    []*Node[T]
	env      env
	scratch  int
	detached bool

	treeSize    int
	maxNodeSize int
	maxBlobSize int

	def    blob.TreeBlob
	bound  blob.TreeBlob
	logger *slog.Logger
}

// NewTree wraps child in a root node, assigns ids and validates the result.
// Each node's build hooks run once, children before parents.
func NewTree[T any](name string, child *Node[T], opts ...Option) (*Tree[T], error) {
	cfg := config{clock: time.Now}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if cfg.rand == nil {
		cfg.rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if name == "" {
		name = "Root"
	}

	t := &Tree[T]{
		name:   name,
		root:   newNode(name, domain.KindRoot, &rootBehavior[T]{}, accessOf[blob.NodeBlob](), child),
		logger: cfg.logger.With("tree", name),
	}
	if err := t.assign(t.root, make(map[*Node[T]]struct{}), false); err != nil {
		t.release()
		return nil, err
	}
	if err := build(t.root); err != nil {
		t.release()
		return nil, err
	}
	for _, n := range t.nodes {
		n.movable = false
	}
	t.scratch = scratchNeed(t.root)
	t.env = env{
		clock:    cfg.clock,
		rand:     rand.New(&lockedSource{src: cfg.rand}),
		hooks:    cfg.hooks,
		numNodes: len(t.nodes),
	}
	t.def = blob.NewDynamic()

	t.logger.Debug("tree built",
		"nodes", len(t.nodes),
		"tree_size", t.treeSize,
		"max_blob_size", t.maxBlobSize,
	)
	return t, nil
}

// assign numbers n and its descendants in pre-order. Nodes that already
// belong to a tree are only accepted below a root detached with Subtree.
func (t *Tree[T]) assign(n *Node[T], seen map[*Node[T]]struct{}, movable bool) error {
	if _, dup := seen[n]; dup {
		return fmt.Errorf("%w: node %q is used more than once", domain.ErrInvalidTree, n.name)
	}
	movable = movable || n.movable
	if n.id != 0 && !movable {
		return fmt.Errorf("%w: node %s already belongs to another tree", domain.ErrInvalidTree, n)
	}
	seen[n] = struct{}{}

	t.nodes = append(t.nodes, n)
	n.id = domain.NodeID(len(t.nodes))
	t.treeSize += n.size
	t.maxNodeSize = max(t.maxNodeSize, n.size)
	t.maxBlobSize = max(t.maxBlobSize, n.access.size)

	for _, c := range n.children {
		if c == nil {
			return fmt.Errorf("%w: %q has a nil child", domain.ErrInvalidTree, n.name)
		}
		if err := t.assign(c, seen, movable); err != nil {
			return err
		}
	}
	return nil
}

// release gives the nodes of a failed build back to their callers.
func (t *Tree[T]) release() {
	for _, n := range t.nodes {
		n.id = 0
	}
}

func build[T any](n *Node[T]) error {
	for _, c := range n.children {
		if err := build(c); err != nil {
			return err
		}
	}
	if err := n.impl.build(n); err != nil {
		return fmt.Errorf("build %s: %w", n, err)
	}
	return nil
}

func scratchNeed[T any](n *Node[T]) int {
	deepest := 0
	for _, c := range n.children {
		deepest = max(deepest, scratchNeed(c))
	}
	return n.impl.scratch(n) + deepest
}

// Subtree detaches the root of t so it can be placed inside another tree.
// Its nodes are renumbered when the enclosing tree is built; t itself can no
// longer be ticked. The returned node can be attached to one tree only.
func Subtree[T any](t *Tree[T]) *Node[T] {
	t.detached = true
	t.root.movable = true
	t.root.kind = domain.KindSubtree
	return t.root
}

// Name returns the tree name.
func (t *Tree[T]) Name() string { return t.name }

// Root returns the root node.
func (t *Tree[T]) Root() *Node[T] { return t.root }

// Node returns the node with the given id.
func (t *Tree[T]) Node(id domain.NodeID) (*Node[T], bool) {
	if id == 0 || int(id) > len(t.nodes) {
		return nil, false
	}
	return t.nodes[id.Index()], true
}

// NumNodes returns the number of nodes, root included.
func (t *Tree[T]) NumNodes() int { return len(t.nodes) }

// TreeSize returns the summed in-memory size of all nodes in bytes.
func (t *Tree[T]) TreeSize() int { return t.treeSize }

// MaxNodeSize returns the size of the largest node in bytes.
func (t *Tree[T]) MaxNodeSize() int { return t.maxNodeSize }

// MaxBlobSize returns the size of the largest blob in bytes.
func (t *Tree[T]) MaxBlobSize() int { return t.maxBlobSize }

// NewFixedBlob returns a fixed store sized for this tree.
func (t *Tree[T]) NewFixedBlob() *blob.Fixed {
	return blob.NewFixed(t.NumNodes(), t.MaxBlobSize())
}

// NewDynamicBlob returns an empty dynamic store.
func (t *Tree[T]) NewDynamicBlob() *blob.Dynamic {
	return blob.NewDynamic()
}

// BindTreeBlob makes tb the store used by Tick until UnbindTreeBlob.
func (t *Tree[T]) BindTreeBlob(tb blob.TreeBlob) {
	t.bound = tb
}

// UnbindTreeBlob reverts Tick to the tree's private store.
func (t *Tree[T]) UnbindTreeBlob() {
	t.bound = nil
}

// TreeBlob returns the store Tick currently uses.
func (t *Tree[T]) TreeBlob() blob.TreeBlob {
	if t.bound != nil {
		return t.bound
	}
	return t.def
}

// Tick runs the tree once against the bound store.
func (t *Tree[T]) Tick(ctx *Context[T]) domain.Status {
	return t.TickBlob(t.TreeBlob(), ctx)
}

// TickBlob runs the tree once against tb, ignoring the bound store.
func (t *Tree[T]) TickBlob(tb blob.TreeBlob, ctx *Context[T]) domain.Status {
	if t.detached {
		panic(fmt.Sprintf("bt: tree %q was attached as a subtree", t.name))
	}
	ctx.tb = tb
	ctx.env = &t.env
	ctx.node = nil
	if cap(ctx.scratch) < t.scratch {
		ctx.scratch = make([]uint, 0, t.scratch)
	}
	ctx.scratch = ctx.scratch[:0]

	s := t.root.Tick(ctx)

	ctx.tb = nil
	return s
}

// LastStatus returns the root status recorded in the bound store.
func (t *Tree[T]) LastStatus() domain.Status {
	st, _ := t.root.State(t.TreeBlob())
	return st.LastStatus
}

// Walk visits every node in id order with its depth below the root.
func (t *Tree[T]) Walk(fn func(n *Node[T], depth int)) {
	var visit func(n *Node[T], depth int)
	visit = func(n *Node[T], depth int) {
		fn(n, depth)
		for _, c := range n.children {
			visit(c, depth+1)
		}
	}
	visit(t.root, 0)
}

// Inspect returns the state of every node in tb, in id order.
// Nodes never ticked in tb report UNDEFINED.
func (t *Tree[T]) Inspect(tb blob.TreeBlob) []domain.NodeState {
	states := make([]domain.NodeState, 0, len(t.nodes))
	t.Walk(func(n *Node[T], depth int) {
		st, _ := n.State(tb)
		st.Depth = depth
		states = append(states, st)
	})
	return states
}
