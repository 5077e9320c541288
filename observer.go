package memcache

// Observer receives node connection lifecycle notifications. A Client may
// have several (e.g. a metrics sink and a log sink); Config.Observers is a
// slice rather than a single callback for exactly that reason.
type Observer interface {
	// ConnectionEstablished is called after a node's socket connects
	// (including on the very first connect). reconnectCount is the number
	// of prior connection losses for this node.
	ConnectionEstablished(addr string, reconnectCount int)

	// ConnectionLost is called when a node's socket is closed, whether by
	// a read/write error or deliberate shutdown.
	ConnectionLost(addr string)
}

// observerList fans a single notification out to every registered
// Observer, silently tolerating a nil/empty list.
type observerList []Observer

func (l observerList) connectionEstablished(addr string, reconnectCount int) {
	for _, o := range l {
		o.ConnectionEstablished(addr, reconnectCount)
	}
}

func (l observerList) connectionLost(addr string) {
	for _, o := range l {
		o.ConnectionLost(addr)
	}
}
