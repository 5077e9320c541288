package memcache

import (
	"sync/atomic"

	"github.com/hlagg/memcache/internal/ketama"
)

// nodeLocator is the common shape of ketama.Ring and ketama.ArrayLocator —
// the Client only ever talks to this interface, never to a concrete
// locator, so Config.Locator can pick either without the rest of the
// module caring.
type nodeLocator interface {
	Primary(key string) (string, bool)
	Sequence(key string) []string
	All() []string
}

// locatorSwap holds the current node set's locator behind an atomic
// pointer so Rebuild (triggered by adding/removing servers) never blocks a
// concurrent Primary/Sequence lookup. This is the generalization of the
// teacher's server-selector-swap-on-reconfigure pattern to a structure that
// also needs consistent-hash rebalancing, not just a new array.
type locatorSwap struct {
	kind LocatorKind
	hash ketama.HashAlgorithm
	ptr  atomic.Pointer[nodeLocator]
}

func newLocatorSwap(kind LocatorKind, hash ketama.HashAlgorithm, nodeKeys []string) *locatorSwap {
	ls := &locatorSwap{kind: kind, hash: hash}
	ls.Rebuild(nodeKeys)
	return ls
}

// Rebuild replaces the active locator with one built fresh over nodeKeys.
// Ketama's minimal-reassignment property means most keys keep the same
// primary across a Rebuild that adds or removes a small fraction of nodes;
// ArrayLocator has no such guarantee and reassigns broadly.
func (ls *locatorSwap) Rebuild(nodeKeys []string) {
	var nl nodeLocator
	if ls.kind == LocatorArray {
		nl = ketama.NewArrayLocator(nodeKeys, ls.hash)
	} else {
		nl = ketama.NewRing(nodeKeys)
	}
	ls.ptr.Store(&nl)
}

func (ls *locatorSwap) current() nodeLocator {
	return *ls.ptr.Load()
}

func (ls *locatorSwap) Primary(key string) (string, bool) {
	return ls.current().Primary(key)
}

func (ls *locatorSwap) Sequence(key string) []string {
	return ls.current().Sequence(key)
}

func (ls *locatorSwap) All() []string {
	return ls.current().All()
}
