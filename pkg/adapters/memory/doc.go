// Package memory provides an in-process SnapshotStore, useful for tests and
// for handing entities between runners that share one process.
package memory
