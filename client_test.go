package memcache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hlagg/memcache/internal/testutils"
)

func newTestClient(t *testing.T, addrs ...string) *Client {
	t.Helper()
	client, err := NewClient(testConfig(addrs...))
	require.NoError(t, err)
	t.Cleanup(client.Close)
	return client
}

func ctxWithTimeout(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestClientSetGetRoundTrip(t *testing.T) {
	srv, err := testutils.NewFakeServer()
	require.NoError(t, err)
	defer srv.Close()

	client := newTestClient(t, srv.Addr())
	ctx := ctxWithTimeout(t)

	require.NoError(t, client.Set(ctx, "greeting", CachedData{Bytes: []byte("hello")}, 0))

	item, err := client.Get(ctx, "greeting")
	require.NoError(t, err)
	require.True(t, item.Found)
	require.Equal(t, []byte("hello"), item.Value.Bytes)
}

func TestClientGetMissingKey(t *testing.T) {
	srv, err := testutils.NewFakeServer()
	require.NoError(t, err)
	defer srv.Close()

	client := newTestClient(t, srv.Addr())
	ctx := ctxWithTimeout(t)

	item, err := client.Get(ctx, "nope")
	require.NoError(t, err)
	require.False(t, item.Found)
}

func TestClientAddFailsWhenKeyExists(t *testing.T) {
	srv, err := testutils.NewFakeServer()
	require.NoError(t, err)
	defer srv.Close()
	srv.Seed("k", 0, []byte("v"))

	client := newTestClient(t, srv.Addr())
	ctx := ctxWithTimeout(t)

	err = client.Add(ctx, "k", CachedData{Bytes: []byte("v2")}, 0)
	require.Error(t, err)
}

func TestClientReplaceRequiresExisting(t *testing.T) {
	srv, err := testutils.NewFakeServer()
	require.NoError(t, err)
	defer srv.Close()

	client := newTestClient(t, srv.Addr())
	ctx := ctxWithTimeout(t)

	require.Error(t, client.Replace(ctx, "absent", CachedData{Bytes: []byte("v")}, 0))
}

func TestClientAppendPrepend(t *testing.T) {
	srv, err := testutils.NewFakeServer()
	require.NoError(t, err)
	defer srv.Close()

	client := newTestClient(t, srv.Addr())
	ctx := ctxWithTimeout(t)

	require.NoError(t, client.Set(ctx, "s", CachedData{Bytes: []byte("mid")}, 0))
	require.NoError(t, client.Append(ctx, "s", []byte("-end")))
	require.NoError(t, client.Prepend(ctx, "s", []byte("start-")))

	item, err := client.Get(ctx, "s")
	require.NoError(t, err)
	require.Equal(t, "start-mid-end", string(item.Value.Bytes))
}

func TestClientCasRoundTrip(t *testing.T) {
	srv, err := testutils.NewFakeServer()
	require.NoError(t, err)
	defer srv.Close()

	client := newTestClient(t, srv.Addr())
	ctx := ctxWithTimeout(t)

	require.NoError(t, client.Set(ctx, "cas-key", CachedData{Bytes: []byte("v1")}, 0))
	gv, err := client.Gets(ctx, "cas-key")
	require.NoError(t, err)
	require.NotZero(t, gv.CAS)

	result, err := client.Cas(ctx, "cas-key", CachedData{Bytes: []byte("v2")}, 0, gv.CAS)
	require.NoError(t, err)
	require.Equal(t, CASOK, result)

	// A stale CAS token (the one from before the update above) must now
	// be rejected.
	result, err = client.Cas(ctx, "cas-key", CachedData{Bytes: []byte("v3")}, 0, gv.CAS)
	require.NoError(t, err)
	require.Equal(t, CASExists, result)

	result, err = client.Cas(ctx, "missing-cas-key", CachedData{Bytes: []byte("v2")}, 0, 1)
	require.NoError(t, err)
	require.Equal(t, CASNotFound, result)
}

func TestClientDeleteReportsNotFound(t *testing.T) {
	srv, err := testutils.NewFakeServer()
	require.NoError(t, err)
	defer srv.Close()

	client := newTestClient(t, srv.Addr())
	ctx := ctxWithTimeout(t)

	found, err := client.Delete(ctx, "never-set")
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, client.Set(ctx, "to-delete", CachedData{Bytes: []byte("x")}, 0))
	found, err = client.Delete(ctx, "to-delete")
	require.NoError(t, err)
	require.True(t, found)
}

func TestClientIncrDecr(t *testing.T) {
	srv, err := testutils.NewFakeServer()
	require.NoError(t, err)
	defer srv.Close()

	client := newTestClient(t, srv.Addr())
	ctx := ctxWithTimeout(t)

	require.NoError(t, client.Set(ctx, "counter", CachedData{Bytes: []byte("10")}, 0))

	n, err := client.Incr(ctx, "counter", 5)
	require.NoError(t, err)
	require.Equal(t, int64(15), n)

	n, err = client.Decr(ctx, "counter", 3)
	require.NoError(t, err)
	require.Equal(t, int64(12), n)

	n, err = client.Incr(ctx, "no-such-counter", 1)
	require.NoError(t, err)
	require.Equal(t, int64(-1), n)
}

func TestClientIncrWithDefault(t *testing.T) {
	srv, err := testutils.NewFakeServer()
	require.NoError(t, err)
	defer srv.Close()

	client := newTestClient(t, srv.Addr())
	ctx := ctxWithTimeout(t)

	n, err := client.IncrWithDefault(ctx, "fresh-counter", 1, 100, 0)
	require.NoError(t, err)
	require.Equal(t, int64(100), n)

	n, err = client.IncrWithDefault(ctx, "fresh-counter", 1, 100, 0)
	require.NoError(t, err)
	require.Equal(t, int64(101), n)
}

func TestClientGetMultiAcrossNodes(t *testing.T) {
	srv1, err := testutils.NewFakeServer()
	require.NoError(t, err)
	defer srv1.Close()
	srv2, err := testutils.NewFakeServer()
	require.NoError(t, err)
	defer srv2.Close()

	client := newTestClient(t, srv1.Addr(), srv2.Addr())
	ctx := ctxWithTimeout(t)

	keys := []string{"alpha", "beta", "gamma", "delta", "epsilon"}
	for _, k := range keys {
		require.NoError(t, client.Set(ctx, k, CachedData{Bytes: []byte(k + "-value")}, 0))
	}

	items, err := client.GetMulti(ctx, keys)
	require.NoError(t, err)
	require.Len(t, items, len(keys))
}

func TestClientFlushAllVersionsStatsAllNoop(t *testing.T) {
	srv1, err := testutils.NewFakeServer()
	require.NoError(t, err)
	defer srv1.Close()
	srv2, err := testutils.NewFakeServer()
	require.NoError(t, err)
	defer srv2.Close()

	client := newTestClient(t, srv1.Addr(), srv2.Addr())
	ctx := ctxWithTimeout(t)

	require.NoError(t, client.Set(ctx, "k", CachedData{Bytes: []byte("v")}, 0))
	require.NoError(t, client.FlushAll(ctx, -1))

	item, err := client.Get(ctx, "k")
	require.NoError(t, err)
	require.False(t, item.Found)

	versions, err := client.Versions(ctx)
	require.NoError(t, err)
	require.Len(t, versions, 2)

	statsAll, err := client.StatsAll(ctx, "")
	require.NoError(t, err)
	require.Len(t, statsAll, 2)

	require.NoError(t, client.Noop(ctx))
}

func TestNewClientRejectsEmptyServers(t *testing.T) {
	_, err := NewClient(Config{})
	require.ErrorIs(t, err, ErrNoServersAvailable)
}

func TestNewClientRejectsBinaryProtocol(t *testing.T) {
	_, err := NewClient(Config{Servers: []string{"localhost:11211"}, Protocol: ProtocolBinary})
	require.ErrorIs(t, err, ErrBinaryProtocolUnsupported)
}

func TestClientRejectsInvalidKey(t *testing.T) {
	srv, err := testutils.NewFakeServer()
	require.NoError(t, err)
	defer srv.Close()

	client := newTestClient(t, srv.Addr())
	ctx := ctxWithTimeout(t)

	_, err = client.Get(ctx, string(make([]byte, 300)))
	require.ErrorIs(t, err, ErrInvalidKey)
}
