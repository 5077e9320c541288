package memcache

import (
	"context"
	"fmt"
	"sync"

	"github.com/hlagg/memcache/ascii"
)

// Client is the public façade: every method validates its key(s)
// synchronously, builds an Operation/Future pair via operation_factory.go,
// and submits it to the reactor. Grounded on pior-memcache/commands.go's
// Commands struct (pre-deletion — see DESIGN.md), rewired against
// Operation/Connection instead of meta.Request/Executor.
type Client struct {
	conn *Connection
	cfg  Config
}

// NewClient builds a Client and starts its reactor goroutine. The returned
// error is non-nil only for configuration problems caught before any I/O —
// Config.Servers being empty, or Config.Protocol asking for the
// unimplemented binary protocol.
func NewClient(cfg Config) (*Client, error) {
	cfg = cfg.withDefaults()
	if len(cfg.Servers) == 0 {
		return nil, fmt.Errorf("memcache: %w: no servers configured", ErrNoServersAvailable)
	}
	if cfg.Protocol == ProtocolBinary {
		return nil, ErrBinaryProtocolUnsupported
	}
	return &Client{conn: newConnection(cfg), cfg: cfg}, nil
}

// Close shuts the client down: every node disconnects and every
// outstanding operation resolves with ErrShutdown — except one whose
// response was being read when its socket closed, which resolves as
// cancelled.
func (c *Client) Close() {
	c.conn.Close()
}

// Rebuild replaces the server list, adding nodes for new addresses and
// gracefully draining/removing nodes no longer present.
func (c *Client) Rebuild(servers []string) {
	c.conn.Rebuild(servers)
}

// Stats returns a snapshot of every node's lifetime counters.
func (c *Client) Stats() []NodeSnapshot {
	return c.conn.stats.Snapshot()
}

func (c *Client) checkKey(key string) error {
	if !ascii.ValidateKey(key) {
		return ErrInvalidKey
	}
	return nil
}

func (c *Client) checkKeys(keys []string) error {
	for _, k := range keys {
		if err := c.checkKey(k); err != nil {
			return err
		}
	}
	return nil
}

// submitAndWait is the common "validate already happened, build op, submit,
// wait" tail shared by every single-node method.
func submitAndWait[T any](ctx context.Context, c *Client, op *Operation, f *Future[T]) (T, error) {
	if err := c.conn.Submit(op); err != nil {
		var zero T
		return zero, err
	}
	return f.Get(ctx)
}

// --- retrieval ----------------------------------------------------------

// Get fetches a single key. Item.Found is false on a cache miss; no error
// is returned for a miss, only for a transport/protocol failure.
func (c *Client) Get(ctx context.Context, key string) (Item, error) {
	if err := c.checkKey(key); err != nil {
		return Item{}, err
	}
	items, err := c.GetMulti(ctx, []string{key})
	if err != nil {
		return Item{}, err
	}
	if len(items) == 0 {
		return Item{Key: key}, nil
	}
	return items[0], nil
}

// Gets fetches a single key along with its CAS token.
func (c *Client) Gets(ctx context.Context, key string) (CASValue, error) {
	if err := c.checkKey(key); err != nil {
		return CASValue{}, err
	}
	op, f := newGetOp([]string{key}, true)
	items, err := submitAndWait(ctx, c, op, f)
	if err != nil {
		return CASValue{}, err
	}
	if len(items) == 0 {
		return CASValue{}, nil
	}
	return CASValue{CAS: items[0].Cas, Value: items[0].Value}, nil
}

// GetMulti fetches every key, sent in one request per node according to
// the locator. A node whose submission is rejected, or whose request
// fails, contributes no items; the call returns an error only when no
// items came back at all and some request failed. Unless
// FailureModeRedistribute reroutes it, a key whose node is down waits in
// that node's queue like any other operation.
func (c *Client) GetMulti(ctx context.Context, keys []string) ([]Item, error) {
	if err := c.checkKeys(keys); err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, nil
	}

	byNode := make(map[string][]string)
	for _, k := range keys {
		addr, ok := c.conn.resolveAddr(k)
		if !ok {
			return nil, ErrNoServersAvailable
		}
		byNode[addr] = append(byNode[addr], k)
	}

	type pending struct {
		future *Future[[]Item]
	}
	var waits []pending
	for addr, nodeKeys := range byNode {
		op, f := newGetOp(nodeKeys, false)
		if err := c.conn.submitTo(addr, op); err != nil {
			continue
		}
		waits = append(waits, pending{future: f})
	}

	var all []Item
	var firstErr error
	for _, p := range waits {
		items, err := p.future.Get(ctx)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		all = append(all, items...)
	}
	if len(all) == 0 && firstErr != nil {
		return nil, firstErr
	}
	return all, nil
}

// --- storage --------------------------------------------------------

func (c *Client) store(ctx context.Context, mode StoreMode, key string, data CachedData, exptime int64) (OpStatus, error) {
	if err := c.checkKey(key); err != nil {
		return OpStatus{}, err
	}
	op, f := newStoreOp(mode, key, data.Flags, exptime, data.Bytes)
	return submitAndWait(ctx, c, op, f)
}

// Set unconditionally stores key.
func (c *Client) Set(ctx context.Context, key string, data CachedData, exptime int64) error {
	status, err := c.store(ctx, StoreSet, key, data, exptime)
	return storeErr(status, err)
}

// Add stores key only if it does not already exist.
func (c *Client) Add(ctx context.Context, key string, data CachedData, exptime int64) error {
	status, err := c.store(ctx, StoreAdd, key, data, exptime)
	return storeErr(status, err)
}

// Replace stores key only if it already exists.
func (c *Client) Replace(ctx context.Context, key string, data CachedData, exptime int64) error {
	status, err := c.store(ctx, StoreReplace, key, data, exptime)
	return storeErr(status, err)
}

// Append appends data to an existing value without touching its flags.
func (c *Client) Append(ctx context.Context, key string, data []byte) error {
	if err := c.checkKey(key); err != nil {
		return err
	}
	op, f := newCatOp(CatAppend, key, data)
	status, err := submitAndWait(ctx, c, op, f)
	return storeErr(status, err)
}

// Prepend prepends data to an existing value without touching its flags.
func (c *Client) Prepend(ctx context.Context, key string, data []byte) error {
	if err := c.checkKey(key); err != nil {
		return err
	}
	op, f := newCatOp(CatPrepend, key, data)
	status, err := submitAndWait(ctx, c, op, f)
	return storeErr(status, err)
}

// storeErr turns a non-success OpStatus into a typed error. STORED/OK map
// to nil; NOT_STORED/EXISTS/NOT_FOUND are legitimate protocol outcomes, not
// transport failures, so they become ClientError rather than a generic err.
func storeErr(status OpStatus, err error) error {
	if err != nil {
		return err
	}
	if status.Success {
		return nil
	}
	return &ascii.ClientError{Message: status.Message}
}

// Cas performs a compare-and-swap store using a CAS token from a prior Gets.
func (c *Client) Cas(ctx context.Context, key string, data CachedData, exptime int64, cas uint64) (CASResponse, error) {
	if err := c.checkKey(key); err != nil {
		return CASObserveError, err
	}
	op, f := newCasOp(key, data.Flags, exptime, data.Bytes, cas)
	return submitAndWait(ctx, c, op, f)
}

// --- delete / mutate --------------------------------------------------

// Delete removes key, returning false (not an error) if it was absent.
func (c *Client) Delete(ctx context.Context, key string) (bool, error) {
	if err := c.checkKey(key); err != nil {
		return false, err
	}
	op, f := newDeleteOp(key)
	return submitAndWait(ctx, c, op, f)
}

// Incr adds delta to key's numeric value. It returns -1 (not an error) if
// the key was not found — the resolved reading of spec.md's mutate Open
// Question; see DESIGN.md.
func (c *Client) Incr(ctx context.Context, key string, delta uint64) (int64, error) {
	return c.mutate(ctx, MutateIncr, key, delta)
}

// Decr subtracts delta from key's numeric value, floored at zero by the
// server. Returns -1 if the key was not found.
func (c *Client) Decr(ctx context.Context, key string, delta uint64) (int64, error) {
	return c.mutate(ctx, MutateDecr, key, delta)
}

func (c *Client) mutate(ctx context.Context, mode MutateMode, key string, delta uint64) (int64, error) {
	if err := c.checkKey(key); err != nil {
		return -1, err
	}
	op, f := newMutateOp(mode, key, delta)
	return submitAndWait(ctx, c, op, f)
}

// IncrWithDefault implements spec.md §4.7 scenario 3: increment key,
// falling back to Add-ing initial (and returning initial) if the key did
// not exist yet, tolerating the add-then-someone-else-added race by
// retrying the increment once.
func (c *Client) IncrWithDefault(ctx context.Context, key string, delta, initial uint64, exptime int64) (int64, error) {
	n, err := c.Incr(ctx, key, delta)
	if err != nil {
		return -1, err
	}
	if n >= 0 {
		return n, nil
	}

	addErr := c.Add(ctx, key, CachedData{Bytes: []byte(fmt.Sprintf("%d", initial))}, exptime)
	if addErr == nil {
		return int64(initial), nil
	}
	// Someone else raced us to Add; the key now exists, so increment again.
	return c.Incr(ctx, key, delta)
}

// --- broadcast: flush_all / version / stats / noop -------------------

// FlushAll invalidates every item on every node. delay < 0 sends flush_all
// with no delay argument (immediate).
func (c *Client) FlushAll(ctx context.Context, delay int) error {
	latch := c.conn.BroadcastAll(func(string) *Operation {
		op, _ := newFlushOp(delay)
		return op
	})
	return latch.Wait(ctx)
}

// Noop pings every node (implemented as a version round-trip — see
// operation_factory.go's newNoopOp, which has no dedicated wire verb to
// reuse) and waits for all of them to answer.
func (c *Client) Noop(ctx context.Context) error {
	latch := c.conn.BroadcastAll(func(string) *Operation {
		op, _ := newNoopOp()
		return op
	})
	return latch.Wait(ctx)
}

// Versions returns each node's version string, keyed by address.
func (c *Client) Versions(ctx context.Context) (map[string]string, error) {
	futures := make(map[string]*Future[string])
	var mu sync.Mutex
	latch := c.conn.BroadcastAll(func(addr string) *Operation {
		op, f := newVersionOp()
		mu.Lock()
		futures[addr] = f
		mu.Unlock()
		return op
	})
	if err := latch.Wait(ctx); err != nil {
		return nil, err
	}

	out := make(map[string]string, len(futures))
	for addr, f := range futures {
		if v, err := f.Get(ctx); err == nil {
			out[addr] = v
		}
	}
	return out, nil
}

// StatsAll fans stats out to every node and returns each node's STAT lines
// keyed by address, waiting for all of them via a countdown latch.
func (c *Client) StatsAll(ctx context.Context, arg string) (map[string]map[string]string, error) {
	futures := make(map[string]*Future[map[string]string])
	var mu sync.Mutex
	latch := c.conn.BroadcastAll(func(addr string) *Operation {
		op, f := newStatsOp(arg)
		mu.Lock()
		futures[addr] = f
		mu.Unlock()
		return op
	})
	if err := latch.Wait(ctx); err != nil {
		return nil, err
	}

	out := make(map[string]map[string]string, len(futures))
	for addr, f := range futures {
		if stats, err := f.Get(ctx); err == nil {
			out[addr] = stats
		}
	}
	return out, nil
}
