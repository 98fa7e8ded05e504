package domain

import (
	"fmt"
	"maps"
	"slices"
	"time"
)

// Snapshot is the exported state of one entity: its fixed blob store in the
// persisted layout plus the payload the tree reads.
type Snapshot struct {
	EntityID    string         `json:"entity_id"`
	Tree        string         `json:"tree"`
	NumNodes    int            `json:"num_nodes"`
	MaxBlobSize int            `json:"max_blob_size"`
	Seq         uint64         `json:"seq"`
	Blob        []byte         `json:"blob"`
	Data        map[string]any `json:"data,omitempty"`
	SavedAt     time.Time      `json:"saved_at"`
}

// Clone returns a copy that shares no memory with s.
func (s *Snapshot) Clone() *Snapshot {
	c := *s
	c.Blob = slices.Clone(s.Blob)
	c.Data = maps.Clone(s.Data)
	return &c
}

// CheckLayout reports whether the snapshot fits a tree with the given shape.
func (s *Snapshot) CheckLayout(tree string, numNodes, maxBlobSize int) error {
	if s.Tree != tree || s.NumNodes != numNodes || s.MaxBlobSize != maxBlobSize {
		return fmt.Errorf("%w: snapshot of %q is %s/%dx%d, tree is %s/%dx%d", ErrSnapshotLayout,
			s.EntityID, s.Tree, s.NumNodes, s.MaxBlobSize, tree, numNodes, maxBlobSize)
	}
	if want := numNodes * (1 + maxBlobSize); len(s.Blob) != want {
		return fmt.Errorf("%w: snapshot of %q has %d bytes, want %d", ErrSnapshotLayout, s.EntityID, len(s.Blob), want)
	}
	return nil
}
