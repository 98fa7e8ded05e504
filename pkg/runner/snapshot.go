package runner

import (
	"context"
	"errors"
	"fmt"

	"github.com/aretw0/canopy/pkg/blob"
	"github.com/aretw0/canopy/pkg/domain"
)

// ErrNoStore is returned by Export and Import when no SnapshotStore is configured.
var ErrNoStore = errors.New("runner has no snapshot store")

func (r *Runner[T]) lock(ctx context.Context, id string) (func(), error) {
	if r.cfg.locker == nil {
		return func() {}, nil
	}
	unlock, err := r.cfg.locker.Lock(ctx, r.tree.Name()+"/"+id, r.cfg.lockTTL)
	if err != nil {
		return nil, fmt.Errorf("lock entity %s: %w", id, err)
	}
	return func() {
		if err := unlock(context.WithoutCancel(ctx)); err != nil {
			r.cfg.logger.Warn("failed to release entity lock", "entity", id, "err", err)
		}
	}, nil
}

// Export saves the entity's fixed store and data to the snapshot store.
// The entity keeps running locally; use Release to hand it off.
func (r *Runner[T]) Export(ctx context.Context, id string) error {
	if r.cfg.store == nil {
		return ErrNoStore
	}
	unlock, err := r.lock(ctx, id)
	if err != nil {
		return err
	}
	defer unlock()

	snap, err := r.snapshot(id)
	if err != nil {
		return err
	}
	if err := r.cfg.store.Save(ctx, snap); err != nil {
		return fmt.Errorf("save snapshot %s: %w", id, err)
	}
	r.cfg.logger.Info("entity exported", "entity", id, "seq", snap.Seq)
	return nil
}

func (r *Runner[T]) snapshot(id string) (*domain.Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entities[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrEntityNotFound, id)
	}
	fixed, ok := e.tb.(*blob.Fixed)
	if !ok {
		return nil, fmt.Errorf("%w: entity %s uses a dynamic store", domain.ErrSnapshotLayout, id)
	}
	raw, err := fixed.MarshalBinary()
	if err != nil {
		return nil, err
	}
	data, err := r.codec.Encode(e.ctx.Data)
	if err != nil {
		return nil, err
	}
	return &domain.Snapshot{
		EntityID:    id,
		Tree:        r.tree.Name(),
		NumNodes:    fixed.NumNodes(),
		MaxBlobSize: fixed.MaxBlobSize(),
		Seq:         e.ctx.Seq,
		Blob:        raw,
		Data:        data,
		SavedAt:     r.cfg.clock().UTC(),
	}, nil
}

// Release exports the entity and removes it from this runner.
func (r *Runner[T]) Release(ctx context.Context, id string) error {
	if err := r.Export(ctx, id); err != nil {
		return err
	}
	return r.Remove(id)
}

// Import loads an entity from the snapshot store and registers it, resuming
// at the stored sequence number. A local entity with the same id is replaced.
func (r *Runner[T]) Import(ctx context.Context, id string) error {
	if r.cfg.store == nil {
		return ErrNoStore
	}
	unlock, err := r.lock(ctx, id)
	if err != nil {
		return err
	}
	defer unlock()

	snap, err := r.cfg.store.Load(ctx, id)
	if err != nil {
		return fmt.Errorf("load snapshot %s: %w", id, err)
	}
	if err := snap.CheckLayout(r.tree.Name(), r.tree.NumNodes(), r.tree.MaxBlobSize()); err != nil {
		return err
	}
	fixed := r.tree.NewFixedBlob()
	if err := fixed.UnmarshalBinary(snap.Blob); err != nil {
		return err
	}
	data, err := r.codec.Decode(snap.Data)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entities[id]; ok {
		delete(r.entities, id)
		r.order = without(r.order, id)
	}
	if err := r.insert(id, fixed, data, snap.Seq); err != nil {
		return err
	}
	r.cfg.logger.Info("entity imported", "entity", id, "seq", snap.Seq)
	return nil
}

// ImportAll imports every entity listed by the snapshot store and returns
// how many were loaded.
func (r *Runner[T]) ImportAll(ctx context.Context) (int, error) {
	if r.cfg.store == nil {
		return 0, ErrNoStore
	}
	ids, err := r.cfg.store.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list snapshots: %w", err)
	}
	n := 0
	for _, id := range ids {
		if err := r.Import(ctx, id); err != nil {
			if errors.Is(err, domain.ErrSnapshotNotFound) {
				continue
			}
			return n, err
		}
		n++
	}
	return n, nil
}
