package memcache

import (
	"strconv"
	"sync"

	"github.com/hlagg/memcache/ascii"
)

func parseDecimal(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}

// The callback types in this file are the concrete Callback implementations
// that adapt the tagged ReceivedStatus/GotData/GotStat/Complete events onto
// a Future[T] of the shape each public Client method promises its caller.
// Grounded on the teacher's Command type, which plays the same role for a
// single Response shape; here it is split per operation kind because this
// module's operations produce several different result shapes.

// failWith runs the terminal sequence for a transport/protocol-level
// failure exactly once — the counterpart to deliverStatus/deliverCancelled
// for errors surfaced by consumeResponse rather than a clean status line.
func (op *Operation) failWith(err error) {
	op.finish(func() {
		op.setState(StateComplete)
		op.callback.ReceivedStatus(OpStatus{Success: false, Err: err})
		op.callback.Complete()
	})
}

// --- get / gets -------------------------------------------------------

type getCallback struct {
	mu     sync.Mutex
	items  []Item
	status OpStatus
	future *Future[[]Item]
}

func (c *getCallback) ReceivedStatus(s OpStatus) {
	c.mu.Lock()
	c.status = s
	c.mu.Unlock()
}

func (c *getCallback) GotData(key string, flags uint32, cas uint64, hasCas bool, data []byte) {
	c.mu.Lock()
	c.items = append(c.items, Item{
		Key:    key,
		Value:  CachedData{Flags: flags, Bytes: data},
		Found:  true,
		Cas:    cas,
		HasCas: hasCas,
	})
	c.mu.Unlock()
}

func (c *getCallback) GotStat(string, string) {}

func (c *getCallback) Complete() {
	c.mu.Lock()
	items, err := c.items, c.status.Err
	c.mu.Unlock()
	c.future.complete(items, err)
}

func newGetOp(keys []string, withCas bool) (*Operation, *Future[[]Item]) {
	verb := ascii.CmdGet
	if withCas {
		verb = ascii.CmdGets
	}
	cb := &getCallback{}
	op := newOperation(kindForGet(withCas), keys, ascii.EncodeGet(verb, keys), cb)
	op.withCas = withCas
	f := newFuture[[]Item](op)
	cb.future = f
	return op, f
}

func kindForGet(withCas bool) OperationKind {
	if withCas {
		return KindGets
	}
	return KindGet
}

// --- set / add / replace / append / prepend / cas ---------------------

type statusCallback struct {
	mu     sync.Mutex
	status OpStatus
	future *Future[OpStatus]
}

func (c *statusCallback) ReceivedStatus(s OpStatus) {
	c.mu.Lock()
	c.status = s
	c.mu.Unlock()
}
func (c *statusCallback) GotData(string, uint32, uint64, bool, []byte) {}
func (c *statusCallback) GotStat(string, string)                       {}
func (c *statusCallback) Complete() {
	c.mu.Lock()
	status := c.status
	c.mu.Unlock()
	c.future.complete(status, status.Err)
}

func verbForStoreMode(m StoreMode) string {
	switch m {
	case StoreAdd:
		return ascii.CmdAdd
	case StoreReplace:
		return ascii.CmdReplace
	default:
		return ascii.CmdSet
	}
}

func verbForCatMode(m CatMode) string {
	if m == CatPrepend {
		return ascii.CmdPrepend
	}
	return ascii.CmdAppend
}

func newStoreOp(mode StoreMode, key string, flags uint32, exptime int64, data []byte) (*Operation, *Future[OpStatus]) {
	cb := &statusCallback{}
	payload := ascii.EncodeStorage(verbForStoreMode(mode), key, flags, exptime, data, false)
	op := newOperation(KindStore, []string{key}, payload, cb)
	f := newFuture[OpStatus](op)
	cb.future = f
	return op, f
}

func newCatOp(mode CatMode, key string, data []byte) (*Operation, *Future[OpStatus]) {
	cb := &statusCallback{}
	// append/prepend ignore flags and exptime server-side but the wire
	// format still carries the fields; zero them.
	payload := ascii.EncodeStorage(verbForCatMode(mode), key, 0, 0, data, false)
	op := newOperation(KindCat, []string{key}, payload, cb)
	f := newFuture[OpStatus](op)
	cb.future = f
	return op, f
}

// --- cas ----------------------------------------------------------------

type casCallback struct {
	mu     sync.Mutex
	status OpStatus
	future *Future[CASResponse]
}

func (c *casCallback) ReceivedStatus(s OpStatus) {
	c.mu.Lock()
	c.status = s
	c.mu.Unlock()
}
func (c *casCallback) GotData(string, uint32, uint64, bool, []byte) {}
func (c *casCallback) GotStat(string, string)                       {}
func (c *casCallback) Complete() {
	c.mu.Lock()
	status := c.status
	c.mu.Unlock()
	if status.Err != nil {
		c.future.complete(CASObserveError, status.Err)
		return
	}
	switch ascii.Status(status.Message) {
	case ascii.StatusStored:
		c.future.complete(CASOK, nil)
	case ascii.StatusNotFound:
		c.future.complete(CASNotFound, nil)
	case ascii.StatusExists:
		c.future.complete(CASExists, nil)
	default:
		c.future.complete(CASObserveError, nil)
	}
}

func newCasOp(key string, flags uint32, exptime int64, data []byte, cas uint64) (*Operation, *Future[CASResponse]) {
	cb := &casCallback{}
	payload := ascii.EncodeCas(key, flags, exptime, data, cas, false)
	op := newOperation(KindCAS, []string{key}, payload, cb)
	f := newFuture[CASResponse](op)
	cb.future = f
	return op, f
}

// --- delete -------------------------------------------------------------

// deleteCallback resolves true for DELETED, false for NOT_FOUND; a
// transport/protocol error surfaces via err instead of either bool value.
type deleteCallback struct {
	mu     sync.Mutex
	status OpStatus
	future *Future[bool]
}

func (c *deleteCallback) ReceivedStatus(s OpStatus) {
	c.mu.Lock()
	c.status = s
	c.mu.Unlock()
}
func (c *deleteCallback) GotData(string, uint32, uint64, bool, []byte) {}
func (c *deleteCallback) GotStat(string, string)                       {}
func (c *deleteCallback) Complete() {
	c.mu.Lock()
	status := c.status
	c.mu.Unlock()
	if status.Err != nil {
		c.future.complete(false, status.Err)
		return
	}
	c.future.complete(ascii.Status(status.Message) == ascii.StatusDeleted, nil)
}

func newDeleteOp(key string) (*Operation, *Future[bool]) {
	cb := &deleteCallback{}
	payload := ascii.EncodeDelete(key, false)
	op := newOperation(KindDelete, []string{key}, payload, cb)
	f := newFuture[bool](op)
	cb.future = f
	return op, f
}

// --- incr / decr ------------------------------------------------------

type mutateCallback struct {
	mu     sync.Mutex
	status OpStatus
	value  string
	future *Future[int64]
}

func (c *mutateCallback) ReceivedStatus(s OpStatus) {
	c.mu.Lock()
	c.status = s
	c.mu.Unlock()
}
func (c *mutateCallback) GotData(string, uint32, uint64, bool, []byte) {}
func (c *mutateCallback) GotStat(name, value string) {
	c.mu.Lock()
	if name == "value" {
		c.value = value
	}
	c.mu.Unlock()
}
func (c *mutateCallback) Complete() {
	c.mu.Lock()
	status, value := c.status, c.value
	c.mu.Unlock()
	if status.Err != nil {
		c.future.complete(-1, status.Err)
		return
	}
	if !status.Success && value == "" {
		// NOT_FOUND: resolved Open Question — report -1, not an error.
		c.future.complete(-1, nil)
		return
	}
	n, err := parseDecimal(value)
	if err != nil {
		c.future.complete(-1, err)
		return
	}
	c.future.complete(n, nil)
}

func verbForMutateMode(m MutateMode) string {
	if m == MutateDecr {
		return ascii.CmdDecr
	}
	return ascii.CmdIncr
}

func newMutateOp(mode MutateMode, key string, delta uint64) (*Operation, *Future[int64]) {
	cb := &mutateCallback{}
	payload := ascii.EncodeMutate(verbForMutateMode(mode), key, delta, false)
	op := newOperation(KindMutate, []string{key}, payload, cb)
	f := newFuture[int64](op)
	cb.future = f
	return op, f
}

// --- flush_all / version / stats / noop (broadcast-capable) ---------

type versionCallback struct {
	mu      sync.Mutex
	version string
	status  OpStatus
	future  *Future[string]
}

func (c *versionCallback) ReceivedStatus(s OpStatus) {
	c.mu.Lock()
	c.status = s
	c.mu.Unlock()
}
func (c *versionCallback) GotData(string, uint32, uint64, bool, []byte) {}
func (c *versionCallback) GotStat(name, value string) {
	c.mu.Lock()
	if name == "version" {
		c.version = value
	}
	c.mu.Unlock()
}
func (c *versionCallback) Complete() {
	c.mu.Lock()
	version, status := c.version, c.status
	c.mu.Unlock()
	c.future.complete(version, status.Err)
}

func newVersionOp() (*Operation, *Future[string]) {
	cb := &versionCallback{}
	op := newOperation(KindVersion, nil, ascii.EncodeVersion(), cb)
	f := newFuture[string](op)
	cb.future = f
	return op, f
}

// newNoopOp pings aliveness. The classic ASCII protocol has no dedicated
// no-op verb; version serves that role here since it round-trips with no
// server-side side effects, matching what a broadcast health check needs.
func newNoopOp() (*Operation, *Future[string]) {
	op, f := newVersionOp()
	op.Kind = KindNoop
	return op, f
}

func newFlushOp(delay int) (*Operation, *Future[OpStatus]) {
	cb := &statusCallback{}
	payload := ascii.EncodeFlushAll(delay)
	op := newOperation(KindFlush, nil, payload, cb)
	f := newFuture[OpStatus](op)
	cb.future = f
	return op, f
}

type statsCallback struct {
	mu     sync.Mutex
	stats  map[string]string
	status OpStatus
	future *Future[map[string]string]
}

func (c *statsCallback) ReceivedStatus(s OpStatus) {
	c.mu.Lock()
	c.status = s
	c.mu.Unlock()
}
func (c *statsCallback) GotData(string, uint32, uint64, bool, []byte) {}
func (c *statsCallback) GotStat(name, value string) {
	c.mu.Lock()
	if c.stats == nil {
		c.stats = make(map[string]string)
	}
	c.stats[name] = value
	c.mu.Unlock()
}
func (c *statsCallback) Complete() {
	c.mu.Lock()
	stats, status := c.stats, c.status
	c.mu.Unlock()
	c.future.complete(stats, status.Err)
}

func newStatsOp(arg string) (*Operation, *Future[map[string]string]) {
	cb := &statsCallback{}
	op := newOperation(KindStats, nil, ascii.EncodeStats(arg), cb)
	f := newFuture[map[string]string](op)
	cb.future = f
	return op, f
}

// latchCallback wraps another Callback so a broadcast call's countdown
// latch advances exactly when the wrapped operation's Complete fires,
// regardless of which node it ran against.
type latchCallback struct {
	inner Callback
	latch *Latch
}

func (c *latchCallback) ReceivedStatus(s OpStatus) { c.inner.ReceivedStatus(s) }
func (c *latchCallback) GotData(key string, flags uint32, cas uint64, hasCas bool, data []byte) {
	c.inner.GotData(key, flags, cas, hasCas, data)
}
func (c *latchCallback) GotStat(name, value string) { c.inner.GotStat(name, value) }
func (c *latchCallback) Complete() {
	c.inner.Complete()
	c.latch.CountDown()
}
