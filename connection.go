package memcache

import (
	"context"
	"sync"
	"time"
)

// pollInterval is how often the reactor wakes up even with nothing on its
// channels, so it can retry backed-off reconnects and drain writeQueues
// that filled up between wakeups. Mirrors spec.md §4.6's "poll with a short
// timeout" step; Go's select gives the rest of the loop for free.
const pollInterval = 20 * time.Millisecond

// controlKind tags requests sent to the reactor over its control channel —
// the only way anything outside the reactor goroutine mutates node/locator
// state, keeping the single-actor invariant intact even for reconfiguration.
type controlKind int

const (
	ctrlRebuild controlKind = iota
	ctrlShutdown
)

type controlMsg struct {
	kind    controlKind
	servers []string
	done    chan struct{}
}

// Connection is the reactor: one goroutine (run) owns every MemcachedNode's
// queues and the locator snapshot. Everything else reaches it only through
// submit/control/events channels. Grounded on Design Notes §9 and SPEC_FULL
// §4.6/§9 — SPEC_FULL §9 explains why the per-node read side is a blocking
// goroutine rather than a literal epoll loop.
type Connection struct {
	cfg     Config
	locator *locatorSwap
	events  chan nodeEvent
	submit  chan *Operation
	control chan controlMsg

	mu    sync.RWMutex
	nodes map[string]*MemcachedNode

	stats *clientStats

	done chan struct{}
}

func newConnection(cfg Config) *Connection {
	events := make(chan nodeEvent, 256)
	c := &Connection{
		cfg:     cfg,
		locator: newLocatorSwap(cfg.Locator, cfg.hashFn(), nil),
		events:  events,
		submit:  make(chan *Operation, cfg.OpQueueMax),
		control: make(chan controlMsg),
		nodes:   make(map[string]*MemcachedNode),
		stats:   newClientStats(),
		done:    make(chan struct{}),
	}
	c.addNodesLocked(cfg.Servers)
	c.locator.Rebuild(c.addrs())
	go c.run()
	return c
}

// addNodesLocked creates nodes for any addr not already present. Safe to
// call only before run starts, or from inside run (hence the name).
func (c *Connection) addNodesLocked(addrs []string) {
	for _, addr := range addrs {
		if _, ok := c.nodes[addr]; ok {
			continue
		}
		c.nodes[addr] = newMemcachedNode(nodeConfig{
			addr:         addr,
			dialer:       c.cfg.Dialer,
			readBufSize:  c.cfg.ReadBufSize,
			writeBufSize: c.cfg.WriteBufSize,
			opQueueMax:   c.cfg.OpQueueMax,
			minBackoff:   c.cfg.ReconnectBackoffMin,
			maxBackoff:   c.cfg.ReconnectBackoffMax,
			observers:    c.cfg.Observers,
			events:       c.events,
			stats:        c.stats.nodeFor(addr),
		})
	}
}

func (c *Connection) addrs() []string {
	out := make([]string, 0, len(c.nodes))
	for addr := range c.nodes {
		out = append(out, addr)
	}
	return out
}

// node looks up a node by address under the read lock — used by the public
// API's per-key dispatch, which runs concurrently with run().
func (c *Connection) node(addr string) (*MemcachedNode, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n, ok := c.nodes[addr]
	return n, ok
}

func (c *Connection) allNodes() []*MemcachedNode {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*MemcachedNode, 0, len(c.nodes))
	for _, n := range c.nodes {
		out = append(out, n)
	}
	return out
}

// Submit routes op to the primary node for its first key (Get/Store/Cas/
// Delete/Mutate/Cat all have exactly one relevant key). Broadcast and
// multi-key fan-out build one Operation per node and hand each to submitTo
// directly — see BroadcastAll and client.go's GetMulti.
func (c *Connection) Submit(op *Operation) error {
	if len(op.Keys) == 0 {
		return c.submitBroadcastSeed(op)
	}
	addr, ok := c.resolveAddr(op.Keys[0])
	if !ok {
		return ErrNoServersAvailable
	}
	return c.submitTo(addr, op)
}

// resolveAddr picks the node a key should be dispatched to right now. Under
// FailureModeRedistribute it walks the key's fallback Sequence to find a
// node that is already connected, matching spec.md §4.6 scenario 5 ("an
// inactive node at submission time is skipped, not queued against"), rather
// than only rerouting reactively once a previously-healthy connection
// breaks. Every other FailureMode dispatches to the plain primary and lets
// the op wait in that node's queue for reconnect.
func (c *Connection) resolveAddr(key string) (string, bool) {
	addr, ok := c.locator.Primary(key)
	if !ok {
		return "", false
	}
	if c.cfg.FailureMode != FailureModeRedistribute {
		return addr, true
	}
	if n, ok := c.node(addr); ok && n.isConnected() {
		return addr, true
	}
	for _, candidate := range c.SequenceFor(key) {
		if n, ok := c.node(candidate); ok && n.isConnected() {
			return candidate, true
		}
	}
	// No live node anywhere in the sequence; fall back to the primary so the
	// op still queues there and waits for its own reconnect.
	return addr, true
}

// submitBroadcastSeed picks any node for a keyless operation issued against
// a single node (e.g. one leg of a broadcast already split by the caller).
// It is only reached if a caller submits a keyless op directly instead of
// through BroadcastAll, which always calls submitTo per node itself.
func (c *Connection) submitBroadcastSeed(op *Operation) error {
	for _, addr := range c.locator.All() {
		return c.submitTo(addr, op)
	}
	return ErrNoServersAvailable
}

func (c *Connection) submitTo(addr string, op *Operation) error {
	n, ok := c.node(addr)
	if !ok {
		return ErrNoServersAvailable
	}
	op.bindNode(n)
	if err := n.Submit(op); err != nil {
		c.stats.nodeFor(addr).submitFailed.Add(1)
		return err
	}
	c.stats.nodeFor(addr).submitted.Add(1)
	return nil
}

// BroadcastAll calls newOp once per node currently in the locator — each
// call must return a fresh *Operation (its own Callback/Future; sharing one
// Operation across nodes would mean only the first node's response ever
// fires its once-guarded completion, leaving the latch stuck) — wraps each
// one's callback with a latchCallback, and submits it to that node. The
// returned Latch opens once every node has answered. Used by
// Client.FlushAll/Versions/StatsAll/Noop.
func (c *Connection) BroadcastAll(newOp func(addr string) *Operation) *Latch {
	addrs := c.locator.All()
	latch := NewLatch(len(addrs))
	for _, addr := range addrs {
		op := newOp(addr)
		op.callback = &latchCallback{inner: op.callback, latch: latch}
		if err := c.submitTo(addr, op); err != nil {
			op.failWith(err)
		}
	}
	return latch
}

// SequenceFor exposes the locator's fallback walk to client.go for
// FailureModeRedistribute.
func (c *Connection) SequenceFor(key string) []string {
	return c.locator.Sequence(key)
}

// Rebuild sends a rebuild request to the reactor and waits for it to apply,
// keeping the node-set mutation inside the single-owner goroutine.
func (c *Connection) Rebuild(servers []string) {
	done := make(chan struct{})
	select {
	case c.control <- controlMsg{kind: ctrlRebuild, servers: servers, done: done}:
		<-done
	case <-c.done:
	}
}

// Close shuts the reactor down: every node is disconnected, every
// WRITE_QUEUED/in-flight operation fails with ErrShutdown — except one
// whose response was being read when its socket closed, which fails as
// cancelled with the read error wrapped.
func (c *Connection) Close() {
	done := make(chan struct{})
	select {
	case c.control <- controlMsg{kind: ctrlShutdown, done: done}:
		<-done
	case <-c.done:
	}
}

// run is the reactor goroutine: the sole mutator of every node's
// writeQueue/parseCh and of c.nodes/c.locator.
func (c *Connection) run() {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	defer close(c.done)

	for {
		select {
		case op := <-c.submit:
			// Reserved for a future direct-submit path; today client.go
			// calls Submit synchronously, which writes straight into the
			// target node's own inputQueue. This case exists so the
			// reactor's select set matches SPEC_FULL §4.6's description of
			// a process-wide ingress channel, and so op is never silently
			// dropped if a caller does use it.
			if op != nil {
				_ = c.Submit(op)
			}

		case ev := <-c.events:
			c.handleNodeEvent(ev)

		case msg := <-c.control:
			c.handleControl(msg)
			if msg.kind == ctrlShutdown {
				return
			}

		case <-ticker.C:
			c.pump()
		}
	}
}

// pump drains every connected node's writeQueue and attempts to (re)connect
// any disconnected, backoff-expired node.
func (c *Connection) pump() {
	for _, n := range c.allNodes() {
		if !n.isConnected() {
			if n.readyToDial() {
				ctx, cancel := context.WithTimeout(context.Background(), c.cfg.Dialer.Timeout)
				err := n.connect(ctx)
				cancel()
				if err != nil {
					c.stats.nodeFor(n.addr).reconnectFailed.Add(1)
				} else {
					c.stats.nodeFor(n.addr).reconnects.Add(1)
					c.drainInputInto(n)
				}
			}
			continue
		}
		c.drainInputInto(n)
		for {
			wrote, err := n.writeNext()
			if err != nil {
				c.handleDisconnect(n)
				break
			}
			if !wrote {
				break
			}
		}
	}
}

// drainInputInto moves everything sitting in a node's inputQueue into its
// writeQueue. Only the reactor calls this, preserving single ownership of
// writeQueue even though inputQueue itself is a multi-producer channel.
func (c *Connection) drainInputInto(n *MemcachedNode) {
	for {
		select {
		case op := <-n.inputQueue:
			if op.IsCancelled() {
				op.deliverCancelled()
				continue
			}
			n.enqueueWrite(op)
		default:
			return
		}
	}
}

func (c *Connection) handleNodeEvent(ev nodeEvent) {
	switch ev.kind {
	case evReadError:
		ev.node.mu.Lock()
		stale := ev.gen != ev.node.gen
		ev.node.mu.Unlock()
		if stale {
			// Raised by the reader of a connection already replaced.
			return
		}
		c.handleDisconnect(ev.node)
	}
}

// handleDisconnect tears the node's connection down. Config.FailureMode
// only ever applies to queued (never written) operations: an operation
// that was already written and is awaiting its response cannot safely be
// retried or redistributed, since the server may have already executed it
// — spec.md §4.4/§4.5 require it to complete as cancelled instead, not be
// replayed or double-executed elsewhere.
func (c *Connection) handleDisconnect(n *MemcachedNode) {
	if !n.isConnected() {
		return
	}
	n.disconnect()
	queued := n.drainWriteQueue()
	inflight := n.drainInFlight()

	for _, op := range inflight {
		op.deliverCancelled()
	}

	switch c.cfg.FailureMode {
	case FailureModeCancel:
		for _, op := range queued {
			op.failWith(ErrConnectionLost)
		}
	case FailureModeRedistribute:
		for _, op := range queued {
			c.redistribute(op, n.addr)
		}
	default: // FailureModeRetry
		for _, op := range queued {
			op.setState(StateRetry)
			op.writeOff = 0
			if err := n.Submit(op); err != nil {
				op.failWith(err)
			}
		}
	}
}

// redistribute tries the next live node in the key's fallback sequence,
// skipping the node that just failed.
func (c *Connection) redistribute(op *Operation, failedAddr string) {
	if len(op.Keys) == 0 {
		op.failWith(ErrConnectionLost)
		return
	}
	for _, addr := range c.SequenceFor(op.Keys[0]) {
		if addr == failedAddr {
			continue
		}
		if n, ok := c.node(addr); ok && n.isConnected() {
			op.setState(StateRetry)
			op.writeOff = 0
			if err := n.Submit(op); err == nil {
				return
			}
		}
	}
	op.failWith(ErrConnectionLost)
}

func (c *Connection) handleControl(msg controlMsg) {
	defer close(msg.done)
	switch msg.kind {
	case ctrlRebuild:
		c.mu.Lock()
		c.addNodesLocked(msg.servers)
		wanted := make(map[string]struct{}, len(msg.servers))
		for _, a := range msg.servers {
			wanted[a] = struct{}{}
		}
		for addr, n := range c.nodes {
			if _, keep := wanted[addr]; !keep {
				n.shutdown()
				c.drainInputInto(n)
				for _, op := range append(n.drainWriteQueue(), n.drainInFlight()...) {
					op.failWith(ErrConnectionLost)
				}
				delete(c.nodes, addr)
			}
		}
		c.mu.Unlock()
		c.locator.Rebuild(msg.servers)

	case ctrlShutdown:
		for _, n := range c.allNodes() {
			n.shutdown()
			c.drainInputInto(n)
			for _, op := range append(n.drainWriteQueue(), n.drainInFlight()...) {
				op.failWith(ErrShutdown)
			}
		}
	}
}
