package memcache

// CachedData is the opaque value produced and consumed by an external
// transcoder: this module never inspects Bytes, it only carries them and
// the flags word over the wire.
type CachedData struct {
	Flags uint32
	Bytes []byte
}

// CASValue pairs a value with the CAS token a prior Gets observed for it.
type CASValue struct {
	CAS   uint64
	Value CachedData
}

// Item is the result of a Get: Found is false when the key was a cache
// miss, in which case Value is the zero CachedData. Cas is only populated
// when the item was parsed from a gets response (Client.Gets uses one
// internally; Get and GetMulti leave it zero); HasCas reports whether Cas
// is meaningful rather than relying on a zero value.
type Item struct {
	Key    string
	Value  CachedData
	Found  bool
	Cas    uint64
	HasCas bool
}

// Transcoder is the external collaborator that converts application values
// to and from CachedData. This module only declares the contract (per
// spec.md §1's non-goals) — callers supply an implementation via
// Config.DefaultTranscoder.
type Transcoder interface {
	Encode(v any) (CachedData, error)
	Decode(data CachedData, out any) error
}

// CASResponse is the outcome of a CAS operation.
type CASResponse int

const (
	CASOK CASResponse = iota
	CASNotFound
	CASExists
	CASObserveError
)

func (r CASResponse) String() string {
	switch r {
	case CASOK:
		return "OK"
	case CASNotFound:
		return "NOT_FOUND"
	case CASExists:
		return "EXISTS"
	case CASObserveError:
		return "OBSERVE_ERROR"
	default:
		return "UNKNOWN"
	}
}
