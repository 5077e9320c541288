package memcache

import (
	"bufio"
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hlagg/memcache/internal/testutils"
)

// These tests exercise the wire encoding/decoding of one Operation in
// isolation, without a live listener: ConnectionMock supplies a canned
// response and captures the exact bytes the operation would have written,
// the way pior-memcache's own tests use it for request/response shape
// assertions rather than full round trips.
func TestOperationWireEncodingSet(t *testing.T) {
	op, f := newStoreOp(StoreSet, "foo", 7, 0, []byte("bar"))
	conn := testutils.NewConnectionMock("STORED\r\n")
	w := bufio.NewWriter(conn)

	_, err := w.Write(op.payload)
	require.NoError(t, err)
	require.NoError(t, w.Flush())
	require.Equal(t, "set foo 7 0 3\r\nbar\r\n", conn.GetWrittenRequest())

	r := bufio.NewReader(conn)
	require.NoError(t, op.consumeResponse(r))
	status, err := f.Get(context.Background())
	require.NoError(t, err)
	require.True(t, status.Success)
}

func TestOperationWireEncodingDelete(t *testing.T) {
	op, f := newDeleteOp("foo")
	conn := testutils.NewConnectionMock("DELETED\r\n")

	require.Equal(t, "delete foo\r\n", string(op.payload))

	r := bufio.NewReader(conn)
	require.NoError(t, op.consumeResponse(r))
	found, err := f.Get(context.Background())
	require.NoError(t, err)
	require.True(t, found)
}

func TestOperationWireEncodingGetCacheMiss(t *testing.T) {
	op, f := newGetOp([]string{"missing"}, false)
	require.Equal(t, "get missing\r\n", string(op.payload))

	conn := testutils.NewConnectionMock("END\r\n")
	r := bufio.NewReader(conn)
	require.NoError(t, op.consumeResponse(r))

	items, err := f.Get(context.Background())
	require.NoError(t, err)
	require.Empty(t, items)
}
