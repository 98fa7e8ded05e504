/*
Package domain contains the core types shared by every Canopy package.

It defines the tick outcome (Status), stable node identifiers, lifecycle hook
signatures and the sentinel errors returned or raised by the engine. This
package is kept pure and free of external dependencies like I/O or
persistence, following Hexagonal Architecture principles.

# Key Entities

  - Status: The outcome of one tick (Undefined, Running, Success, Failure).
  - NodeID: The 1-based, contiguous identifier assigned to a node at build time.
  - NodeEvent: The payload delivered to LifecycleHooks on enter and terminate.
*/
package domain
