// Package memcache implements an asynchronous memcached client core: a
// Ketama-consistent-hashing node locator, a per-node connection state
// machine, a single-goroutine I/O reactor, and an operation/future
// lifecycle, speaking the classic memcached ASCII protocol.
//
// Transcoding, high-level synchronous convenience wrappers, and log-sink
// wiring are left to callers — this package only exposes the core and the
// contracts (Transcoder, Observer) those collaborators implement against.
package memcache
