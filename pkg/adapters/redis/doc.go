/*
Package redis provides Redis-backed adapters for sharing entities between
runner instances.

Store keeps one JSON snapshot per entity with an optional TTL, and a sorted
set index scored by expiry so List can prune stale entries. Locker serializes
snapshot hand-off with SET NX and a token-checked release.
*/
package redis
