package ketama

import (
	"sort"
	"strconv"
)

// pointsPerIteration is how many ring points one "<nodeKey>-<i>" MD5 digest
// contributes (the 4-way decomposition of KetamaPoints).
const pointsPerIteration = 4

// iterationsPerNode times pointsPerIteration gives 160 points per node, the
// density classic Ketama clients use.
const iterationsPerNode = 40

type ringPoint struct {
	hash uint32
	node string
}

// Ring is an immutable Ketama ring snapshot: a sorted set of points, each
// owned by one node key (typically "host:port"). Construction is the only
// expensive operation; lookups are a binary search.
type Ring struct {
	points []ringPoint
	nodes  []string
}

// NewRing builds a Ketama ring over nodeKeys. An empty nodeKeys yields an
// empty, always-miss ring rather than an error — callers decide whether
// zero nodes is fatal.
func NewRing(nodeKeys []string) *Ring {
	points := make([]ringPoint, 0, len(nodeKeys)*iterationsPerNode*pointsPerIteration)
	for _, key := range nodeKeys {
		for i := 0; i < iterationsPerNode; i++ {
			digest := MD5Digest(key + "-" + strconv.Itoa(i))
			for _, h := range KetamaPoints(digest) {
				points = append(points, ringPoint{hash: h, node: key})
			}
		}
	}
	sort.Slice(points, func(i, j int) bool { return points[i].hash < points[j].hash })

	nodes := make([]string, len(nodeKeys))
	copy(nodes, nodeKeys)
	return &Ring{points: points, nodes: nodes}
}

// Primary returns the node key owning the first ring point at or after
// hash(key), wrapping around to the first point if hash(key) is past the
// last one. ok is false only when the ring has no nodes.
func (r *Ring) Primary(key string) (node string, ok bool) {
	if len(r.points) == 0 {
		return "", false
	}
	h := KetamaHash(key)
	idx := r.search(h)
	return r.points[idx].node, true
}

// Sequence returns the primary node for key followed by every other
// distinct node, in the order they're encountered walking clockwise around
// the ring from the primary's point. It is used to find a live fallback
// when the primary is down (FailureModeRedistribute).
func (r *Ring) Sequence(key string) []string {
	if len(r.points) == 0 {
		return nil
	}
	h := KetamaHash(key)
	start := r.search(h)

	seen := make(map[string]struct{}, len(r.nodes))
	seq := make([]string, 0, len(r.nodes))
	for i := 0; i < len(r.points) && len(seq) < len(r.nodes); i++ {
		p := r.points[(start+i)%len(r.points)]
		if _, dup := seen[p.node]; dup {
			continue
		}
		seen[p.node] = struct{}{}
		seq = append(seq, p.node)
	}
	return seq
}

// All returns every node key present in the ring, in construction order.
func (r *Ring) All() []string {
	out := make([]string, len(r.nodes))
	copy(out, r.nodes)
	return out
}

func (r *Ring) search(h uint32) int {
	idx := sort.Search(len(r.points), func(i int) bool { return r.points[i].hash >= h })
	if idx == len(r.points) {
		idx = 0
	}
	return idx
}

// ArrayLocator is the non-Ketama "simple" locator: nodes[hash(key) % N],
// no ring, no minimal-reassignment guarantee. Grounded on the teacher's
// CRC32-based server selector, generalized to any HashAlgorithm.
type ArrayLocator struct {
	nodes []string
	hash  HashAlgorithm
}

// NewArrayLocator builds an ArrayLocator over nodeKeys using the given hash
// algorithm (defaulting to Native if nil).
func NewArrayLocator(nodeKeys []string, algo HashAlgorithm) *ArrayLocator {
	if algo == nil {
		algo = Native
	}
	nodes := make([]string, len(nodeKeys))
	copy(nodes, nodeKeys)
	return &ArrayLocator{nodes: nodes, hash: algo}
}

// Primary returns nodes[hash(key) % len(nodes)].
func (a *ArrayLocator) Primary(key string) (string, bool) {
	if len(a.nodes) == 0 {
		return "", false
	}
	idx := a.hash(key) % uint32(len(a.nodes))
	return a.nodes[idx], true
}

// Sequence returns the primary followed by the remaining nodes in ring
// order starting just after it, giving ArrayLocator the same fallback
// contract as Ring even though it has no ring structure.
func (a *ArrayLocator) Sequence(key string) []string {
	if len(a.nodes) == 0 {
		return nil
	}
	start := int(a.hash(key) % uint32(len(a.nodes)))
	seq := make([]string, len(a.nodes))
	for i := range a.nodes {
		seq[i] = a.nodes[(start+i)%len(a.nodes)]
	}
	return seq
}

// All returns every node key, in construction order.
func (a *ArrayLocator) All() []string {
	out := make([]string, len(a.nodes))
	copy(out, a.nodes)
	return out
}
