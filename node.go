package memcache

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/edwingeng/deque/v2"
	"github.com/sony/gobreaker/v2"

	"github.com/hlagg/memcache/internal/coarsetime"
)

// nodeEventKind tags the events a node's dedicated reader goroutine raises
// to the reactor. The reader goroutine never touches writeQueue directly —
// it only ever reports what it observed — preserving the single-actor
// ownership of node state spec.md's Design Notes call for.
type nodeEventKind int

const (
	evReadError nodeEventKind = iota
	evConnected
)

type nodeEvent struct {
	kind nodeEventKind
	node *MemcachedNode
	gen  uint64
	err  error
}

// MemcachedNode owns one persistent connection to one server address. Its
// mutable queue state (writeQueue, parseCh) is only ever mutated by the
// reactor goroutine in connection.go; the dedicated per-connection reader
// goroutine started by connect only reads frames and reports events —
// it never reaches into writeQueue. Grounded on
// jsp-lqk-metapipe-memcached's BaseTCPClient (dial, bufio.ReadWriter,
// dedicated listen() goroutine, reconnect-on-read-error), adapted from a
// single mutex-guarded deque to the channel handoff described above so
// ownership stays with one goroutine rather than being shared under a lock.
type MemcachedNode struct {
	addr   string
	dialer *net.Dialer

	readBufSize  int
	writeBufSize int
	opQueueMax   int

	minBackoff time.Duration
	maxBackoff time.Duration

	observers observerList
	breaker   *gobreaker.CircuitBreaker[bool]
	stats     *nodeStats

	// inputQueue is where Connection.Submit deposits new operations.
	// Capacity opQueueMax is the queue-full backpressure point.
	inputQueue chan *Operation

	// writeQueue holds operations accepted from inputQueue but not yet
	// written to the socket — WRITE_QUEUED state. Only the reactor touches
	// this deque.
	writeQueue *deque.Deque[*Operation]

	// parseCh hands an operation to the reader goroutine the instant its
	// request has been fully written — READING state. The channel itself
	// is the FIFO: the reactor sends in write order, the reader goroutine
	// receives and parses in the same order, so per-node response ordering
	// (Testable Property #4) falls out of "a channel preserves send order"
	// rather than needing an explicitly locked inflight queue.
	parseCh chan *Operation

	// events is the reactor's shared event bus, supplied at construction —
	// every node reports onto the same channel so the reactor can multiplex
	// with a single select case instead of fanning in N per-node channels.
	events chan nodeEvent

	mu       sync.Mutex
	conn     net.Conn
	writer   *bufio.Writer
	reader   *bufio.Reader
	gen      uint64 // bumped on every (re)connect; lets a stale reader goroutine recognize it's been superseded
	connected bool

	reconnectCount int
	backoff        time.Duration
	nextDialAt     time.Time

	closed atomic.Bool
}

type nodeConfig struct {
	addr         string
	dialer       *net.Dialer
	readBufSize  int
	writeBufSize int
	opQueueMax   int
	minBackoff   time.Duration
	maxBackoff   time.Duration
	observers    observerList
	events       chan nodeEvent
	stats        *nodeStats
}

func newMemcachedNode(cfg nodeConfig) *MemcachedNode {
	n := &MemcachedNode{
		addr:         cfg.addr,
		dialer:       cfg.dialer,
		readBufSize:  cfg.readBufSize,
		writeBufSize: cfg.writeBufSize,
		opQueueMax:   cfg.opQueueMax,
		minBackoff:   cfg.minBackoff,
		maxBackoff:   cfg.maxBackoff,
		observers:    cfg.observers,
		stats:        cfg.stats,
		inputQueue:   make(chan *Operation, cfg.opQueueMax),
		writeQueue:   deque.NewDeque[*Operation](),
		parseCh:      make(chan *Operation, cfg.opQueueMax),
		events:       cfg.events,
		backoff:      cfg.minBackoff,
	}
	breakerSettings := gobreaker.Settings{
		Name:        cfg.addr,
		MaxRequests: 1,
		Interval:    0,
		Timeout:     cfg.maxBackoff,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	}
	n.breaker = gobreaker.NewCircuitBreaker[bool](breakerSettings)
	return n
}

// Submit enqueues op for this node, failing fast with ErrQueueFull instead
// of blocking the caller when the queue is saturated, and with ErrShutdown
// once the node has been shut down.
func (n *MemcachedNode) Submit(op *Operation) error {
	if n.closed.Load() {
		return ErrShutdown
	}
	select {
	case n.inputQueue <- op:
		return nil
	default:
		return ErrQueueFull
	}
}

// isConnected reports the current connection state.
func (n *MemcachedNode) isConnected() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.connected
}

// readyToDial reports whether backoff has elapsed since the last failed
// attempt.
func (n *MemcachedNode) readyToDial() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return !n.connected && !coarsetime.Now().Before(n.nextDialAt)
}

// connect dials addr through the circuit breaker, wraps the connection in
// buffered reader/writer, and starts a fresh reader goroutine tagged with
// the new generation. It is only ever called from the reactor goroutine.
func (n *MemcachedNode) connect(ctx context.Context) error {
	_, err := n.breaker.Execute(func() (bool, error) {
		conn, dialErr := n.dialer.DialContext(ctx, "tcp", n.addr)
		if dialErr != nil {
			return false, dialErr
		}

		n.mu.Lock()
		n.conn = conn
		n.reader = bufio.NewReaderSize(conn, n.readBufSize)
		n.writer = bufio.NewWriterSize(conn, n.writeBufSize)
		n.gen++
		gen := n.gen
		n.connected = true
		wasReconnect := n.reconnectCount
		n.reconnectCount++
		n.backoff = n.minBackoff
		n.mu.Unlock()

		go n.readLoop(gen, n.reader)

		n.observers.connectionEstablished(n.addr, wasReconnect)
		return true, nil
	})
	if err != nil {
		n.mu.Lock()
		n.backoff = nextBackoff(n.backoff, n.maxBackoff)
		n.nextDialAt = coarsetime.Now().Add(n.backoff)
		n.mu.Unlock()
		return err
	}
	return nil
}

func nextBackoff(cur, ceiling time.Duration) time.Duration {
	next := cur * 2
	if next > ceiling || next <= 0 {
		return ceiling
	}
	return next
}

// disconnect tears down the current connection, if any, and marks the node
// unconnected. It does not touch writeQueue/parseCh — the reactor drains
// those separately once it observes the disconnect, so it can apply
// Config.FailureMode.
func (n *MemcachedNode) disconnect() {
	n.mu.Lock()
	conn := n.conn
	n.conn = nil
	n.connected = false
	n.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
	n.observers.connectionLost(n.addr)
}

// readLoop is the per-connection reader goroutine. It blocks on parseCh for
// the next operation expected to answer, then blocks on the socket parsing
// that operation's response. A parse/read error ends the loop and reports
// evReadError with this generation so the reactor can tell a stale error
// from an already-superseded connection apart from the current one.
func (n *MemcachedNode) readLoop(gen uint64, r *bufio.Reader) {
	for {
		op, ok := <-n.parseCh
		if !ok {
			return
		}
		if op.IsCancelled() {
			// Its request was already written, so its response is still
			// read (and discarded) below to keep later responses aligned.
			op.deliverCancelled()
		} else {
			op.setState(StateReading)
		}
		if err := op.consumeResponse(r); err != nil {
			n.stats.failed.Add(1)
			op.failWith(fmt.Errorf("%w: %w", ErrCancelled, err))
			select {
			case n.events <- nodeEvent{kind: evReadError, node: n, gen: gen, err: err}:
			default:
			}
			return
		}
		n.stats.completed.Add(1)
	}
}

// writeNext pops the front of writeQueue (if non-empty and connected),
// writes and flushes it, and hands it to the reader goroutine via parseCh.
// Called only from the reactor. A write error fails op and is returned, so
// the reactor disconnects the node and applies FailureMode to the rest of
// writeQueue.
func (n *MemcachedNode) writeNext() (wrote bool, err error) {
	if n.writeQueue.Len() == 0 {
		return false, nil
	}
	n.mu.Lock()
	writer, connected := n.writer, n.connected
	n.mu.Unlock()
	if !connected {
		return false, nil
	}

	op := n.writeQueue.PopFront()
	if op.IsCancelled() {
		op.deliverCancelled()
		return true, nil
	}

	op.setState(StateWriting)
	if _, werr := writer.Write(op.payload); werr != nil {
		n.stats.failed.Add(1)
		op.failWith(werr)
		return true, werr
	}
	if werr := writer.Flush(); werr != nil {
		n.stats.failed.Add(1)
		op.failWith(werr)
		return true, werr
	}

	select {
	case n.parseCh <- op:
	default:
		// parseCh is sized opQueueMax, same as writeQueue's effective
		// ceiling, so this only triggers if the reader goroutine has
		// stalled; treat it like a write failure rather than deadlocking.
		err := fmt.Errorf("memcache: node %s: parse handoff congested", n.addr)
		op.failWith(err)
		return true, err
	}
	return true, nil
}

// enqueueWrite appends op to writeQueue. Called only from the reactor.
func (n *MemcachedNode) enqueueWrite(op *Operation) {
	op.bindNode(n)
	n.writeQueue.PushBack(op)
}

// drainWriteQueue removes and returns every WRITE_QUEUED operation,
// leaving the queue empty — used when a connection is lost and
// FailureMode needs to decide their fate.
func (n *MemcachedNode) drainWriteQueue() []*Operation {
	ops := make([]*Operation, 0, n.writeQueue.Len())
	for n.writeQueue.Len() > 0 {
		ops = append(ops, n.writeQueue.PopFront())
	}
	return ops
}

// drainInFlight removes and returns every operation the reader goroutine
// has not yet answered — used on disconnect and shutdown to fail requests
// that were already written when the connection dropped. It also returns
// once parseCh has been closed by shutdown.
func (n *MemcachedNode) drainInFlight() []*Operation {
	var ops []*Operation
	for {
		select {
		case op, ok := <-n.parseCh:
			if !ok {
				return ops
			}
			ops = append(ops, op)
		default:
			return ops
		}
	}
}

// shutdown closes the node permanently: no more dials, no more reads.
func (n *MemcachedNode) shutdown() {
	if !n.closed.CompareAndSwap(false, true) {
		return
	}
	n.disconnect()
	close(n.parseCh)
}
