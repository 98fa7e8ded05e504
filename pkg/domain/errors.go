package domain

import "errors"

// ErrBlobCapacity is raised when a fixed blob store is too small for the tree.
// It signals a sizing defect and is delivered through a panic, never a Status.
var ErrBlobCapacity = errors.New("blob capacity exceeded")

// ErrBlobLayout is raised when a blob type cannot live in a flat buffer.
var ErrBlobLayout = errors.New("blob type not storable in fixed buffer")

// ErrInvalidTree is returned when a tree fails build-time validation.
var ErrInvalidTree = errors.New("invalid tree")

// ErrUnknownNode is returned when a definition references an unregistered action or condition.
var ErrUnknownNode = errors.New("unknown node type")

// ErrSnapshotNotFound is returned when an entity snapshot cannot be found in the store.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// ErrSnapshotLayout is returned when a snapshot does not match the blob layout of the tree.
var ErrSnapshotLayout = errors.New("snapshot layout mismatch")

// ErrEntityNotFound is returned when the runner has no entity with the given ID.
var ErrEntityNotFound = errors.New("entity not found")

// ErrEntityExists is returned when adding an entity whose ID is already registered.
var ErrEntityExists = errors.New("entity already exists")
