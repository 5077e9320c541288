package memcache

import (
	"net"
	"time"

	"github.com/hlagg/memcache/internal/ketama"
)

// LocatorKind selects how keys are mapped to nodes.
type LocatorKind int

const (
	// LocatorKetama places each node at many ring points (MD5-derived)
	// for minimal reassignment under membership changes. This is the
	// default.
	LocatorKetama LocatorKind = iota
	// LocatorArray maps nodes[hash(key) % N] directly, with no ring and
	// no minimal-reassignment guarantee.
	LocatorArray
)

// HashAlgorithmKind selects the hash function backing LocatorArray (and
// any fast-hash use outside the Ketama ring, which always uses MD5).
type HashAlgorithmKind int

const (
	HashNative HashAlgorithmKind = iota // xxh3
	HashFNV1_32
	HashFNV1A_32
	HashCRC
)

func (k HashAlgorithmKind) fn() ketama.HashAlgorithm {
	switch k {
	case HashFNV1_32:
		return ketama.FNV1_32
	case HashFNV1A_32:
		return ketama.FNV1A_32
	case HashCRC:
		return ketama.CRC
	default:
		return ketama.Native
	}
}

// FailureMode governs what happens to operations bound to a node whose
// connection is down.
type FailureMode int

const (
	// FailureModeRetry (default) replays WRITE_QUEUED operations verbatim
	// once the node reconnects.
	FailureModeRetry FailureMode = iota
	// FailureModeCancel fails the WRITE_QUEUED operations of a node whose
	// connection breaks with ErrConnectionLost instead of replaying them.
	// Operations submitted while the node is down wait in its queue until
	// it reconnects; they are not failed.
	FailureModeCancel
	// FailureModeRedistribute routes operations to the next live node in
	// the locator's Sequence for their key.
	FailureModeRedistribute
)

// ProtocolKind selects the wire protocol. Only ProtocolASCII is
// implemented by this core; ProtocolBinary is accepted as a configuration
// value (so config round-trips) but rejected by NewClient.
type ProtocolKind int

const (
	ProtocolASCII ProtocolKind = iota
	ProtocolBinary
)

// Config configures a Client. Unset fields are resolved to defaults by
// withDefaults; Servers must hold at least one address.
type Config struct {
	// Servers lists the initial "host:port" addresses of the node pool.
	// Required: at least one.
	Servers []string

	// OperationTimeout is stored with the configuration, but no method
	// applies it: Future.Get and the Client methods wait only as long as
	// the caller's context allows.
	OperationTimeout time.Duration

	// Daemon is stored with the configuration only; the reactor goroutine
	// and Client.Close behave the same whatever its value.
	Daemon bool

	// ReadBufSize / WriteBufSize size each node's bufio Reader/Writer.
	ReadBufSize  int
	WriteBufSize int

	// OpQueueMax bounds each node's input queue. A full queue fails
	// submission fast with ErrQueueFull.
	OpQueueMax int

	Locator       LocatorKind
	HashAlgorithm HashAlgorithmKind
	FailureMode   FailureMode
	Protocol      ProtocolKind

	// DefaultTranscoder is stored with the configuration only; no Client
	// method calls it (Get and Set take and return CachedData). This module
	// never implements one itself.
	DefaultTranscoder Transcoder

	// Observers are notified of connectionEstablished/connectionLost
	// transitions for every node.
	Observers []Observer

	// Dialer is used to open node connections. Defaults to a net.Dialer
	// with a 5s Timeout.
	Dialer *net.Dialer

	// ReconnectBackoffMin/Max bound the exponential backoff schedule
	// described in spec.md §4.5 ("1, 2, 4, ..., capped at a ceiling").
	ReconnectBackoffMin time.Duration
	ReconnectBackoffMax time.Duration
}

const (
	defaultReadBufSize   = 16 * 1024
	defaultWriteBufSize  = 16 * 1024
	defaultOpQueueMax    = 4096
	defaultBackoffMin    = time.Second
	defaultBackoffMax    = 30 * time.Second
	defaultDialTimeout   = 5 * time.Second
)

// withDefaults returns a copy of c with every unset field resolved to its
// default.
func (c Config) withDefaults() Config {
	if c.ReadBufSize <= 0 {
		c.ReadBufSize = defaultReadBufSize
	}
	if c.WriteBufSize <= 0 {
		c.WriteBufSize = defaultWriteBufSize
	}
	if c.OpQueueMax <= 0 {
		c.OpQueueMax = defaultOpQueueMax
	}
	if c.ReconnectBackoffMin <= 0 {
		c.ReconnectBackoffMin = defaultBackoffMin
	}
	if c.ReconnectBackoffMax <= 0 {
		c.ReconnectBackoffMax = defaultBackoffMax
	}
	if c.Dialer == nil {
		c.Dialer = &net.Dialer{Timeout: defaultDialTimeout}
	}
	return c
}

// hashFn resolves the configured HashAlgorithmKind to a ketama.HashAlgorithm.
func (c Config) hashFn() ketama.HashAlgorithm {
	return c.HashAlgorithm.fn()
}
