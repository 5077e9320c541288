package memcache

import (
	"sync"
	"sync/atomic"
)

// nodeStats tracks one node's lifetime counters. Field order favors the
// cache-line packing the teacher's PoolStats/ClientStats use, though with
// atomics every field is its own word regardless.
type nodeStats struct {
	submitted       atomic.Int64
	submitFailed    atomic.Int64
	completed       atomic.Int64
	failed          atomic.Int64
	reconnects      atomic.Int64
	reconnectFailed atomic.Int64
}

// NodeSnapshot is a point-in-time copy of a node's counters, safe to read
// after the atomics have moved on.
type NodeSnapshot struct {
	Addr            string
	Submitted       int64
	SubmitFailed    int64
	Completed       int64
	Failed          int64
	Reconnects      int64
	ReconnectFailed int64
}

// clientStats fans per-node counters out by address, created lazily so a
// node added via Rebuild gets its own slot without the constructor needing
// to know the final node set up front.
type clientStats struct {
	mu    sync.RWMutex
	nodes map[string]*nodeStats
}

func newClientStats() *clientStats {
	return &clientStats{nodes: make(map[string]*nodeStats)}
}

func (s *clientStats) nodeFor(addr string) *nodeStats {
	s.mu.RLock()
	n, ok := s.nodes[addr]
	s.mu.RUnlock()
	if ok {
		return n
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if n, ok := s.nodes[addr]; ok {
		return n
	}
	n = &nodeStats{}
	s.nodes[addr] = n
	return n
}

// Snapshot returns a copy of every node's counters, sorted by insertion
// order isn't guaranteed — callers that need stable ordering should sort by
// Addr themselves.
func (s *clientStats) Snapshot() []NodeSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]NodeSnapshot, 0, len(s.nodes))
	for addr, n := range s.nodes {
		out = append(out, NodeSnapshot{
			Addr:            addr,
			Submitted:       n.submitted.Load(),
			SubmitFailed:    n.submitFailed.Load(),
			Completed:       n.completed.Load(),
			Failed:          n.failed.Load(),
			Reconnects:      n.reconnects.Load(),
			ReconnectFailed: n.reconnectFailed.Load(),
		})
	}
	return out
}
