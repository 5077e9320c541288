package memcache

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type recordingObserver struct {
	established []string
	lost        []string
}

func (o *recordingObserver) ConnectionEstablished(addr string, reconnectCount int) {
	o.established = append(o.established, addr)
}

func (o *recordingObserver) ConnectionLost(addr string) {
	o.lost = append(o.lost, addr)
}

func TestObserverListFansOutToEveryObserver(t *testing.T) {
	a, b := &recordingObserver{}, &recordingObserver{}
	list := observerList{a, b}

	list.connectionEstablished("10.0.0.1:11211", 0)
	list.connectionLost("10.0.0.1:11211")

	require.Equal(t, []string{"10.0.0.1:11211"}, a.established)
	require.Equal(t, []string{"10.0.0.1:11211"}, b.established)
	require.Equal(t, []string{"10.0.0.1:11211"}, a.lost)
	require.Equal(t, []string{"10.0.0.1:11211"}, b.lost)
}

func TestObserverListToleratesEmpty(t *testing.T) {
	var list observerList
	list.connectionEstablished("addr", 1)
	list.connectionLost("addr")
}
