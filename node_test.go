package memcache

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hlagg/memcache/internal/testutils"
)

func newTestNode(t *testing.T, addr string) *MemcachedNode {
	t.Helper()
	n := newMemcachedNode(nodeConfig{
		addr:         addr,
		dialer:       &net.Dialer{Timeout: time.Second},
		readBufSize:  4096,
		writeBufSize: 4096,
		opQueueMax:   64,
		minBackoff:   10 * time.Millisecond,
		maxBackoff:   100 * time.Millisecond,
		events:       make(chan nodeEvent, 16),
		stats:        &nodeStats{},
	})
	return n
}

func TestMemcachedNodeConnectAndRoundTrip(t *testing.T) {
	srv, err := testutils.NewFakeServer()
	require.NoError(t, err)
	defer srv.Close()
	srv.Seed("foo", 0, []byte("bar"))

	n := newTestNode(t, srv.Addr())
	require.False(t, n.isConnected())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, n.connect(ctx))
	require.True(t, n.isConnected())

	op, f := newGetOp([]string{"foo"}, false)
	op.bindNode(n)
	n.enqueueWrite(op)

	wrote, err := n.writeNext()
	require.NoError(t, err)
	require.True(t, wrote)

	items, err := f.Get(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, []byte("bar"), items[0].Value.Bytes)
}

func TestMemcachedNodeSubmitQueueFull(t *testing.T) {
	n := newTestNode(t, "127.0.0.1:1") // never dialed in this test
	n.inputQueue = make(chan *Operation, 1)

	op1, _ := newDeleteOp("a")
	op2, _ := newDeleteOp("b")
	require.NoError(t, n.Submit(op1))
	require.ErrorIs(t, n.Submit(op2), ErrQueueFull)
}

func TestMemcachedNodeDisconnectDoesNotTouchQueues(t *testing.T) {
	srv, err := testutils.NewFakeServer()
	require.NoError(t, err)
	defer srv.Close()

	n := newTestNode(t, srv.Addr())
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, n.connect(ctx))

	op, _ := newDeleteOp("a")
	n.enqueueWrite(op)
	n.disconnect()

	require.False(t, n.isConnected())
	drained := n.drainWriteQueue()
	require.Len(t, drained, 1)
}

func TestMemcachedNodeReadErrorReportsEvent(t *testing.T) {
	srv, err := testutils.NewFakeServer()
	require.NoError(t, err)
	defer srv.Close()

	n := newTestNode(t, srv.Addr())
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, n.connect(ctx))

	// Hand an operation straight to the reader goroutine without writing
	// its request, then close the socket out from under it: readLoop is
	// blocked on the socket read, which returns an error immediately.
	op, f := newGetOp([]string{"missing"}, false)
	op.bindNode(n)
	n.parseCh <- op

	n.mu.Lock()
	conn := n.conn
	n.mu.Unlock()
	conn.Close()

	select {
	case ev := <-n.events:
		require.Equal(t, evReadError, ev.kind)
	case <-time.After(time.Second):
		t.Fatal("expected a read error event")
	}

	_, err = f.Get(context.Background())
	require.Error(t, err)
}

func TestNextBackoffDoublesAndCaps(t *testing.T) {
	require.Equal(t, 20*time.Millisecond, nextBackoff(10*time.Millisecond, time.Second))
	require.Equal(t, time.Second, nextBackoff(time.Second, time.Second))
	require.Equal(t, time.Second, nextBackoff(600*time.Millisecond, time.Second))
}
