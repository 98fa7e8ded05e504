/*
Package ports defines the driven ports (interfaces) for Canopy hosts.

The behavior tree core never performs I/O. These interfaces let a runner move
entity snapshots between processes without knowing the backend.

# Key Interfaces

  - SnapshotStore: Saves and loads entity snapshots (fixed blob layout plus payload).
  - DistributedLocker: Serializes snapshot hand-off of one entity across instances.
*/
package ports
