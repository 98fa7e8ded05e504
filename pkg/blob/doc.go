/*
Package blob implements the per-entity state store of a behavior tree.

A tree's nodes are immutable and shared; everything a node remembers between
ticks for one entity (running flag, last status, counters, timestamps) lives
in a blob addressed by the node id inside a TreeBlob owned by that entity.

# Backends

  - Dynamic: one heap block per node, grows on demand, no capacity limit.
  - Fixed: a single preallocated buffer of NumNodes slots of MaxBlobSize bytes.
    It never allocates after construction and panics on sizing defects.

Blob types are plain structs that embed NodeBlob. Blobs stored in a Fixed
backend must not contain Go pointers (no strings, slices, maps or pointers).

	type counterBlob struct {
		blob.NodeBlob
		count int
	}

	b := blob.Make[counterBlob](store, id, nil, 0)
	b.count++
*/
package blob
