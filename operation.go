package memcache

import (
	"bufio"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/hlagg/memcache/ascii"
)

// OperationKind identifies the wire command family an Operation encodes.
type OperationKind int

const (
	KindGet OperationKind = iota
	KindGets
	KindStore // Set, Add, or Replace — see StoreMode
	KindCat   // Append or Prepend — see CatMode
	KindCAS
	KindDelete
	KindMutate // Incr or Decr — see MutateMode
	KindFlush
	KindVersion
	KindStats
	KindNoop
)

// StoreMode distinguishes the three storage verbs that share KindStore.
type StoreMode int

const (
	StoreSet StoreMode = iota
	StoreAdd
	StoreReplace
)

// CatMode distinguishes append/prepend, which share KindCat.
type CatMode int

const (
	CatAppend CatMode = iota
	CatPrepend
)

// MutateMode distinguishes incr/decr, which share KindMutate.
type MutateMode int

const (
	MutateIncr MutateMode = iota
	MutateDecr
)

// State is an Operation's position in the lifecycle spec.md §4.4 defines:
//
//	WRITE_QUEUED -> WRITING -> READING -> COMPLETE
//	any non-terminal -> CANCELLED
//	WRITE_QUEUED -> RETRY -> (replayed on reconnect) -> WRITING
//
// RETRY is only set on queued, never-written operations when their
// connection is lost; an operation already WRITING/READING at that point
// becomes CANCELLED instead.
type State int

const (
	StateWriteQueued State = iota
	StateWriting
	StateReading
	StateComplete
	StateCancelled
	StateRetry
)

func (s State) String() string {
	switch s {
	case StateWriteQueued:
		return "WRITE_QUEUED"
	case StateWriting:
		return "WRITING"
	case StateReading:
		return "READING"
	case StateComplete:
		return "COMPLETE"
	case StateCancelled:
		return "CANCELLED"
	case StateRetry:
		return "RETRY"
	default:
		return "UNKNOWN"
	}
}

// OpStatus is the single terminal status delivered to a Callback before
// Complete(), or in place of it for a cancelled operation.
type OpStatus struct {
	Success bool
	// Message carries the server's status token (STORED, EXISTS, ...), a
	// protocol error's verbatim text, or — for mutate — the decimal result
	// already rendered as a string for convenience logging. Parsed results
	// are for the caller to use, not this field.
	Message string
	Err     error
}

// Callback is the tagged-event sink an Operation's creator supplies. It
// receives zero or more data/stat events, then exactly one ReceivedStatus,
// then exactly one Complete — except a cancelled operation gets
// ReceivedStatus(Cancelled) followed immediately by Complete(), with no
// data events. This mirrors Design Notes §9: callbacks as tagged variants
// dispatched by the operation, not a polymorphic hierarchy of callback
// subtypes.
type Callback interface {
	ReceivedStatus(status OpStatus)
	GotData(key string, flags uint32, cas uint64, hasCas bool, data []byte)
	GotStat(name, value string)
	Complete()
}

// Operation is one request/response unit bound to a single node connection.
type Operation struct {
	Kind OperationKind
	Keys []string

	// payload is the fully pre-serialized command, built by the factory
	// functions in operation_factory.go so the reactor's write path never
	// branches on Kind.
	payload []byte
	// writeOff is reset to 0 when the operation is replayed. writeNext
	// writes the whole payload in one buffered call and does not advance it.
	writeOff int

	// withCas distinguishes gets-with-CAS parsing for KindGet/KindGets at
	// the ascii layer.
	withCas bool

	callback Callback

	mu          sync.Mutex
	state       State
	nodeBinding *MemcachedNode

	cancelled atomic.Bool
	completed sync.Once
}

func newOperation(kind OperationKind, keys []string, payload []byte, cb Callback) *Operation {
	return &Operation{
		Kind:     kind,
		Keys:     keys,
		payload:  payload,
		callback: cb,
		state:    StateWriteQueued,
	}
}

// State returns the operation's current state.
func (op *Operation) State() State {
	op.mu.Lock()
	defer op.mu.Unlock()
	return op.state
}

func (op *Operation) setState(s State) {
	op.mu.Lock()
	op.state = s
	op.mu.Unlock()
}

// Cancel marks the operation cancelled. It is cooperative: the reactor
// checks IsCancelled before starting a write and before dispatching a
// parsed response, so a cancellation that lands before writing starts
// prevents any bytes being sent, while one landing during/after writing
// only suppresses local delivery — the server may still execute the
// command. Cancel returns true the first time it actually flips the flag.
func (op *Operation) Cancel() bool {
	return op.cancelled.CompareAndSwap(false, true)
}

// IsCancelled reports whether Cancel has been called.
func (op *Operation) IsCancelled() bool {
	return op.cancelled.Load()
}

// bindNode records which node this operation was last dispatched to.
func (op *Operation) bindNode(n *MemcachedNode) {
	op.mu.Lock()
	op.nodeBinding = n
	op.mu.Unlock()
}

// boundNode returns the node this operation was last dispatched to, or nil.
func (op *Operation) boundNode() *MemcachedNode {
	op.mu.Lock()
	defer op.mu.Unlock()
	return op.nodeBinding
}

// finish runs fn at most once for this operation's lifetime, guaranteeing
// the "exactly one ReceivedStatus, exactly one Complete" contract even if
// both the reactor and a cancellation race to terminate the same op.
func (op *Operation) finish(fn func()) {
	op.completed.Do(fn)
}

// deliverCancelled sends the Cancelled status/complete pair exactly once.
// Safe to call from any state; a terminal state is a no-op via the
// once-guard inside finish.
func (op *Operation) deliverCancelled() {
	op.finish(func() {
		op.setState(StateCancelled)
		op.callback.ReceivedStatus(OpStatus{Success: false, Err: ErrCancelled})
		op.callback.Complete()
	})
}

// deliverStatus runs the normal terminal sequence (status then complete)
// exactly once.
func (op *Operation) deliverStatus(status OpStatus) {
	op.finish(func() {
		op.setState(StateComplete)
		op.callback.ReceivedStatus(status)
		op.callback.Complete()
	})
}

// statusOutcome maps a one-line server status to the OpStatus the caller
// sees. Only STORED/DELETED/TOUCHED/OK count as success; the rest are
// legitimate protocol outcomes (not transport errors) that the caller
// distinguishes via Message.
func statusOutcome(s ascii.Status) OpStatus {
	switch s {
	case ascii.StatusStored, ascii.StatusDeleted, ascii.StatusTouched, ascii.StatusOK:
		return OpStatus{Success: true, Message: string(s)}
	default:
		return OpStatus{Success: false, Message: string(s)}
	}
}

// consumeResponse reads exactly the response shape op.Kind dictates from r,
// dispatching data/stat events to the callback as it goes, and delivers the
// terminal status on success. A non-nil return is a transport or protocol
// read error — the reactor decides retry vs. cancellation from that, never
// Operation itself, since only the reactor knows the connection's state.
func (op *Operation) consumeResponse(r *bufio.Reader) error {
	switch op.Kind {
	case KindGet, KindGets:
		blocks, err := ascii.ReadGetResponse(r, op.withCas)
		if err != nil {
			return err
		}
		for _, b := range blocks {
			op.callback.GotData(b.Key, b.Flags, b.Cas, b.HasCas, b.Data)
		}
		op.deliverStatus(OpStatus{Success: true})
		return nil

	case KindStore, KindCat, KindCAS, KindDelete, KindFlush:
		status, err := ascii.ReadStatusLine(r)
		if err != nil {
			return err
		}
		op.deliverStatus(statusOutcome(status))
		return nil

	case KindMutate:
		value, found, err := ascii.ReadMutateResponse(r)
		if err != nil {
			return err
		}
		if !found {
			op.deliverStatus(OpStatus{Success: false, Message: string(ascii.StatusNotFound)})
			return nil
		}
		op.callback.GotStat("value", strconv.FormatInt(value, 10))
		op.deliverStatus(OpStatus{Success: true, Message: strconv.FormatInt(value, 10)})
		return nil

	case KindVersion, KindNoop:
		v, err := ascii.ReadVersion(r)
		if err != nil {
			return err
		}
		op.callback.GotStat("version", v)
		op.deliverStatus(OpStatus{Success: true})
		return nil

	case KindStats:
		lines, err := ascii.ReadStatsResponse(r)
		if err != nil {
			return err
		}
		for _, l := range lines {
			op.callback.GotStat(l.Name, l.Value)
		}
		op.deliverStatus(OpStatus{Success: true})
		return nil

	default:
		return &ascii.ParseError{Line: ""}
	}
}
