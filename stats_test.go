package memcache

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClientStatsNodeForCreatesLazily(t *testing.T) {
	s := newClientStats()
	require.Empty(t, s.Snapshot())

	n := s.nodeFor("a:1")
	n.submitted.Add(3)
	n.completed.Add(2)

	// A second call for the same address returns the same counters, not a
	// fresh zeroed set.
	again := s.nodeFor("a:1")
	require.Same(t, n, again)

	snap := s.Snapshot()
	require.Len(t, snap, 1)
	require.Equal(t, "a:1", snap[0].Addr)
	require.Equal(t, int64(3), snap[0].Submitted)
	require.Equal(t, int64(2), snap[0].Completed)
}

func TestClientStatsSnapshotCoversEveryNode(t *testing.T) {
	s := newClientStats()
	s.nodeFor("a:1").submitted.Add(1)
	s.nodeFor("b:1").submitted.Add(2)

	snap := s.Snapshot()
	require.Len(t, snap, 2)

	byAddr := make(map[string]int64, 2)
	for _, n := range snap {
		byAddr[n.Addr] = n.Submitted
	}
	require.Equal(t, int64(1), byAddr["a:1"])
	require.Equal(t, int64(2), byAddr["b:1"])
}
