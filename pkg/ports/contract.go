package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/canopy/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunSnapshotStoreContract runs a suite of tests to verify that a SnapshotStore
// implementation adheres to the interface contract.
func RunSnapshotStoreContract(t *testing.T, store SnapshotStore) {
	ctx := context.Background()
	entityID := "contract-test-entity-" + time.Now().Format("20060102150405")

	newSnapshot := func(id string) *domain.Snapshot {
		return &domain.Snapshot{
			EntityID:    id,
			Tree:        "contract",
			NumNodes:    2,
			MaxBlobSize: 3,
			Seq:         7,
			Blob:        []byte{1, 2, 3, 4, 0, 0, 0, 0},
			Data:        map[string]any{"foo": "bar"},
			SavedAt:     time.Now().UTC().Truncate(time.Second),
		}
	}

	t.Run("Save and Load", func(t *testing.T) {
		snap := newSnapshot(entityID)
		require.NoError(t, store.Save(ctx, snap), "Save should not return error")

		loaded, err := store.Load(ctx, entityID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, snap.Tree, loaded.Tree)
		assert.Equal(t, snap.NumNodes, loaded.NumNodes)
		assert.Equal(t, snap.MaxBlobSize, loaded.MaxBlobSize)
		assert.Equal(t, snap.Seq, loaded.Seq)
		assert.Equal(t, snap.Blob, loaded.Blob, "the blob layout must survive byte for byte")
		assert.Equal(t, "bar", loaded.Data["foo"])
		assert.True(t, snap.SavedAt.Equal(loaded.SavedAt))
	})

	t.Run("Isolation", func(t *testing.T) {
		snap := newSnapshot(entityID)
		require.NoError(t, store.Save(ctx, snap))
		snap.Blob[0] = 9

		loaded, err := store.Load(ctx, entityID)
		require.NoError(t, err)
		assert.Equal(t, byte(1), loaded.Blob[0], "stored snapshots must not alias the caller's memory")
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+entityID)
		assert.ErrorIs(t, err, domain.ErrSnapshotNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, newSnapshot(entityID)))
		require.NoError(t, store.Delete(ctx, entityID), "Delete should not return error")

		_, err := store.Load(ctx, entityID)
		assert.ErrorIs(t, err, domain.ErrSnapshotNotFound, "Load after Delete should return ErrSnapshotNotFound")
		assert.NoError(t, store.Delete(ctx, entityID), "Delete is idempotent")
	})

	t.Run("List", func(t *testing.T) {
		id1 := entityID + "-1"
		id2 := entityID + "-2"
		require.NoError(t, store.Save(ctx, newSnapshot(id1)))
		require.NoError(t, store.Save(ctx, newSnapshot(id2)))
		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, id1)
		assert.Contains(t, ids, id2)
	})
}
