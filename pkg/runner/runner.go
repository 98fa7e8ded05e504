package runner

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/aretw0/canopy/pkg/blob"
	"github.com/aretw0/canopy/pkg/bt"
	"github.com/aretw0/canopy/pkg/domain"
	"github.com/google/uuid"
)

// EntityInfo summarizes one entity.
type EntityInfo struct {
	ID     string        `json:"id"`
	Seq    uint64        `json:"seq"`
	Status domain.Status `json:"status"`
	Fixed  bool          `json:"fixed"`
	Blobs  int           `json:"blobs"`
}

type entity[T any] struct {
	id       string
	tb       blob.TreeBlob
	ctx      bt.Context[T]
	status   domain.Status
	lastTick time.Time
}

// Runner ticks every registered entity through one tree.
// Safe for concurrent use; passes and entity management are serialized.
type Runner[T any] struct {
	tree  *bt.Tree[T]
	cfg   config
	codec Codec[T]

	mu       sync.Mutex
	entities map[string]*entity[T]
	order    []string
	passes   uint64
}

// New creates a runner for tree.
func New[T any](tree *bt.Tree[T], opts ...Option) *Runner[T] {
	cfg := config{
		interval: DefaultInterval,
		lockTTL:  DefaultLockTTL,
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	cfg.logger = cfg.logger.With("tree", tree.Name())
	if cfg.interval <= 0 {
		cfg.logger.Warn("invalid interval, using default", "interval", cfg.interval, "default", DefaultInterval)
		cfg.interval = DefaultInterval
	}

	r := &Runner[T]{
		tree:     tree,
		cfg:      cfg,
		codec:    StructCodec[T]{},
		entities: make(map[string]*entity[T]),
	}
	if cfg.codec != nil {
		c, ok := cfg.codec.(Codec[T])
		if !ok {
			panic(fmt.Sprintf("runner: codec %T does not encode %T", cfg.codec, *new(T)))
		}
		r.codec = c
	}
	return r
}

// Tree returns the tree the runner drives.
func (r *Runner[T]) Tree() *bt.Tree[T] { return r.tree }

// Add registers a new entity with its data. An empty id gets a random UUID.
// The id is returned.
func (r *Runner[T]) Add(id string, data T) (string, error) {
	if id == "" {
		id = uuid.NewString()
	}
	var tb blob.TreeBlob
	if r.cfg.dynamic {
		tb = r.tree.NewDynamicBlob()
	} else {
		tb = r.tree.NewFixedBlob()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.insert(id, tb, data, 0); err != nil {
		return "", err
	}
	r.cfg.logger.Debug("entity added", "entity", id)
	return id, nil
}

func (r *Runner[T]) insert(id string, tb blob.TreeBlob, data T, seq uint64) error {
	if _, dup := r.entities[id]; dup {
		return fmt.Errorf("%w: %s", domain.ErrEntityExists, id)
	}
	e := &entity[T]{id: id, tb: tb}
	e.ctx.Data = data
	e.ctx.Seq = seq
	r.entities[id] = e
	r.order = append(r.order, id)
	r.reportEntities()
	return nil
}

// Remove unregisters an entity and drops its state.
func (r *Runner[T]) Remove(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entities[id]; !ok {
		return fmt.Errorf("%w: %s", domain.ErrEntityNotFound, id)
	}
	delete(r.entities, id)
	r.order = without(r.order, id)
	r.reportEntities()
	r.cfg.logger.Debug("entity removed", "entity", id)
	return nil
}

func without(order []string, id string) []string {
	return slices.DeleteFunc(order, func(other string) bool { return other == id })
}

func (r *Runner[T]) reportEntities() {
	if r.cfg.metrics != nil {
		r.cfg.metrics.SetEntities(r.tree.Name(), len(r.entities))
	}
}

// Len returns the number of entities.
func (r *Runner[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entities)
}

// Passes returns the number of completed passes.
func (r *Runner[T]) Passes() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.passes
}

// Entities lists the entities in tick order.
func (r *Runner[T]) Entities() []EntityInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EntityInfo, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.info(r.entities[id]))
	}
	return out
}

// Entity returns the summary of one entity.
func (r *Runner[T]) Entity(id string) (EntityInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entities[id]
	if !ok {
		return EntityInfo{}, fmt.Errorf("%w: %s", domain.ErrEntityNotFound, id)
	}
	return r.info(e), nil
}

func (r *Runner[T]) info(e *entity[T]) EntityInfo {
	_, fixed := e.tb.(*blob.Fixed)
	return EntityInfo{ID: e.id, Seq: e.ctx.Seq, Status: e.status, Fixed: fixed, Blobs: e.tb.Len()}
}

// Data returns the payload of an entity.
func (r *Runner[T]) Data(id string) (T, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entities[id]
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: %s", domain.ErrEntityNotFound, id)
	}
	return e.ctx.Data, nil
}

// Inspect returns the node states of an entity in id order.
func (r *Runner[T]) Inspect(id string) ([]domain.NodeState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entities[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrEntityNotFound, id)
	}
	return r.tree.Inspect(e.tb), nil
}

// Step ticks every entity once.
func (r *Runner[T]) Step() {
	pass := r.step()
	if r.cfg.afterPass != nil {
		r.cfg.afterPass(pass)
	}
}

func (r *Runner[T]) step() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	start := r.cfg.clock()
	for _, id := range r.order {
		r.tick(r.entities[id], start)
	}
	r.passes++
	if r.cfg.metrics != nil {
		r.cfg.metrics.ObservePass(r.tree.Name(), r.cfg.clock().Sub(start))
	}
	return r.passes
}

func (r *Runner[T]) tick(e *entity[T], now time.Time) {
	e.ctx.Seq++
	if !e.lastTick.IsZero() {
		e.ctx.Delta = now.Sub(e.lastTick)
	}
	e.lastTick = now

	r.tree.BindTreeBlob(e.tb)
	e.status = r.tree.Tick(&e.ctx)
	r.tree.UnbindTreeBlob()

	if r.cfg.metrics != nil {
		r.cfg.metrics.ObserveTick(r.tree.Name(), e.status)
	}
	if r.cfg.afterTick != nil {
		r.cfg.afterTick(e.id, e.ctx.Seq, e.status)
	}
}

// Run performs a pass every interval until ctx is cancelled or the
// configured number of passes is reached. Cancellation is not an error.
func (r *Runner[T]) Run(ctx context.Context) error {
	r.cfg.logger.Info("runner started", "interval", r.cfg.interval, "entities", r.Len())

	ticker := time.NewTicker(r.cfg.interval)
	defer ticker.Stop()

	for done := 0; ; {
		if ctx.Err() != nil {
			break
		}
		r.Step()
		done++
		if r.cfg.maxPasses > 0 && done >= r.cfg.maxPasses {
			r.cfg.logger.Info("runner finished", "passes", done)
			return nil
		}
		select {
		case <-ctx.Done():
		case <-ticker.C:
		}
	}
	r.cfg.logger.Info("runner stopped", "passes", r.Passes(), "reason", ctx.Err())
	return nil
}
