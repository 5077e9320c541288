package memcache

import (
	"errors"

	"github.com/hlagg/memcache/ascii"
)

// Sentinel errors for the error kinds named in the error handling design.
// Application code should use errors.Is/errors.As against these rather than
// string-matching.
var (
	// ErrInvalidKey is returned synchronously, before an operation ever
	// reaches the reactor.
	ErrInvalidKey = errors.New("memcache: invalid key")

	// ErrQueueFull is returned when a node's input queue is at capacity.
	// Callers should retry or shed load.
	ErrQueueFull = errors.New("memcache: operation queue full")

	// ErrCancelled is delivered to a future when its operation was
	// cancelled before or during processing.
	ErrCancelled = errors.New("memcache: operation cancelled")

	// ErrConnectionLost is surfaced for queued (never written) operations
	// when their node's connection breaks under FailureModeCancel, under
	// FailureModeRedistribute when no other live node takes them, and for
	// operations on a node removed by Rebuild. Under FailureModeRetry queued
	// operations are replayed instead. Operations already written complete
	// with ErrCancelled.
	ErrConnectionLost = errors.New("memcache: connection lost")

	// ErrShutdown is returned for operations submitted after the client
	// has begun shutting down.
	ErrShutdown = errors.New("memcache: client shut down")

	// ErrTimeout is returned when a future or latch wait ends because the
	// caller's context is done. The underlying operation is not cancelled
	// and may still complete later.
	ErrTimeout = errors.New("memcache: operation timeout")

	// ErrNoServersAvailable is returned when the node locator has no node
	// at all to route a key to, or when no servers are configured.
	ErrNoServersAvailable = errors.New("memcache: no servers available")

	// ErrBinaryProtocolUnsupported is returned by NewClient when
	// Config.Protocol requests the binary protocol, which this core does
	// not implement.
	ErrBinaryProtocolUnsupported = errors.New("memcache: binary protocol is not implemented")
)

// ProtocolError, ServerError and ClientError are defined in the ascii
// package (which owns wire parsing) and re-exported here so callers never
// need to import ascii directly just to use errors.As against them.
type (
	ProtocolError = ascii.ParseError
	ServerError   = ascii.ServerError
	ClientError   = ascii.ClientError
)
