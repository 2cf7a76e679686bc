// Package memory provides an in-memory implementation of the identity,
// namespace and sharing storage interfaces. It is the reference semantics
// for the postgres store and the default backend in tests.
//
// All maps are guarded by a single mutex. The lock is only ever held for
// map operations; blob and network I/O always happen outside the store, so
// the coarse granularity does not serialize uploads across users.
package memory
