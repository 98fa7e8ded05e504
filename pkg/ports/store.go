package ports

import (
	"context"

	"github.com/aretw0/canopy/pkg/domain"
)

// SnapshotStore exchanges entity snapshots between runner instances.
// Implementations keep snapshots in memory or a shared cache; they never
// write blob state to disk.
type SnapshotStore interface {
	// Save stores the snapshot under snap.EntityID, replacing any previous one.
	Save(ctx context.Context, snap *domain.Snapshot) error

	// Load retrieves the snapshot of an entity.
	// Returns domain.ErrSnapshotNotFound if there is none.
	Load(ctx context.Context, entityID string) (*domain.Snapshot, error)

	// Delete removes the snapshot of an entity. Deleting a missing entity is not an error.
	Delete(ctx context.Context, entityID string) error

	// List returns the IDs of all stored entities.
	List(ctx context.Context) ([]string, error)
}
