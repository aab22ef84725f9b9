package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/latticecalc/engine/internal/store"
)

// fakeGraph is a minimal in-memory adjacency list satisfying the Graph
// interface, used so this package's tests don't need a real depgraph.Graph.
type fakeGraph struct {
	out      map[store.VertexId][]store.VertexId
	in       map[store.VertexId][]store.VertexId
	ranges   map[store.VertexId][]store.VertexId
	dirty    map[store.VertexId]bool
	volatile map[store.VertexId]bool
	formula  map[store.VertexId]bool
}

func newFakeGraph() *fakeGraph {
	return &fakeGraph{
		out:      make(map[store.VertexId][]store.VertexId),
		in:       make(map[store.VertexId][]store.VertexId),
		ranges:   make(map[store.VertexId][]store.VertexId),
		dirty:    make(map[store.VertexId]bool),
		volatile: make(map[store.VertexId]bool),
		formula:  make(map[store.VertexId]bool),
	}
}

func (f *fakeGraph) edge(u, v store.VertexId) {
	f.out[u] = append(f.out[u], v)
	f.in[v] = append(f.in[v], u)
}

// rangeEdge records a compressed-range producer dependency (v produces a
// value u's formula reads through a range) without an OutEdges entry,
// mirroring the stripe-only dependency depgraph.Graph.RangeProducers
// exposes for a real graph.
func (f *fakeGraph) rangeEdge(u, v store.VertexId) {
	f.ranges[u] = append(f.ranges[u], v)
}

func (f *fakeGraph) OutEdges(id store.VertexId) []store.VertexId { return f.out[id] }
func (f *fakeGraph) InEdges(id store.VertexId) []store.VertexId  { return f.in[id] }
func (f *fakeGraph) IsDirty(id store.VertexId) bool               { return f.dirty[id] }
func (f *fakeGraph) IsVolatile(id store.VertexId) bool            { return f.volatile[id] }
func (f *fakeGraph) IsFormula(id store.VertexId) bool             { return f.formula[id] }
func (f *fakeGraph) RangeProducers(id store.VertexId) []store.VertexId {
	return f.ranges[id]
}

func TestBuildLinearChainLayersInOrder(t *testing.T) {
	g := newFakeGraph()
	// C depends on B depends on A; all dirty formulas except A (a plain cell).
	a, b, c := store.VertexId(1), store.VertexId(2), store.VertexId(3)
	g.edge(b, a)
	g.edge(c, b)
	g.formula[b], g.dirty[b] = true, true
	g.formula[c], g.dirty[c] = true, true

	sched := Build(g, []store.VertexId{a, b, c})

	require.Empty(t, sched.Cycles)
	require.Len(t, sched.Layers, 3)
	assert.Equal(t, []store.VertexId{a}, sched.Layers[0].Vertices)
	assert.Equal(t, []store.VertexId{b}, sched.Layers[1].Vertices)
	assert.Equal(t, []store.VertexId{c}, sched.Layers[2].Vertices)
}

func TestBuildDetectsCycle(t *testing.T) {
	g := newFakeGraph()
	a, b := store.VertexId(1), store.VertexId(2)
	g.edge(a, b)
	g.edge(b, a)
	g.formula[a], g.dirty[a] = true, true
	g.formula[b], g.dirty[b] = true, true

	sched := Build(g, []store.VertexId{a, b})

	require.Len(t, sched.Cycles, 1)
	assert.ElementsMatch(t, []store.VertexId{a, b}, sched.Cycles[0])
}

func TestBuildDetectsSelfLoop(t *testing.T) {
	g := newFakeGraph()
	a := store.VertexId(1)
	g.edge(a, a)
	g.formula[a], g.dirty[a] = true, true

	sched := Build(g, []store.VertexId{a})

	require.Len(t, sched.Cycles, 1)
	assert.Equal(t, []store.VertexId{a}, sched.Cycles[0])
}

func TestBuildSkipsCleanFormulaSeed(t *testing.T) {
	g := newFakeGraph()
	a := store.VertexId(1)
	g.formula[a] = true // not dirty, not volatile

	sched := Build(g, []store.VertexId{a})

	assert.Empty(t, sched.Cycles)
	assert.Empty(t, sched.Layers)
}

func TestBuildOrdersCompressedRangeProducersBeforeConsumer(t *testing.T) {
	// D7 = SUMIF(S:S, D3, P:P); P2 and S2 are formulas whose only link to
	// D7 is the stripe index (no OutEdges entry), per spec §8 E6.
	g := newFakeGraph()
	d7, p2, s2 := store.VertexId(7), store.VertexId(16), store.VertexId(19)
	g.formula[d7], g.dirty[d7] = true, true
	g.formula[p2], g.dirty[p2] = true, true
	g.formula[s2], g.dirty[s2] = true, true
	g.rangeEdge(d7, p2)
	g.rangeEdge(d7, s2)

	sched := Build(g, []store.VertexId{d7})

	require.Empty(t, sched.Cycles)
	layerOf := func(id store.VertexId) int {
		for i, l := range sched.Layers {
			for _, v := range l.Vertices {
				if v == id {
					return i
				}
			}
		}
		return -1
	}
	p2Layer, s2Layer, d7Layer := layerOf(p2), layerOf(s2), layerOf(d7)
	require.NotEqual(t, -1, p2Layer)
	require.NotEqual(t, -1, s2Layer)
	require.NotEqual(t, -1, d7Layer)
	assert.Less(t, p2Layer, d7Layer)
	assert.Less(t, s2Layer, d7Layer)
}

func TestBuildOrdersRecursiveCompressedRangeProducers(t *testing.T) {
	// P2 = SUM(Q:Q) itself reads a compressed range, so Q2 must be ordered
	// before P2, which must in turn be ordered before D7 (spec §8 E6's
	// recursive-producer case).
	g := newFakeGraph()
	d7, p2, q2 := store.VertexId(7), store.VertexId(16), store.VertexId(17)
	g.formula[d7], g.dirty[d7] = true, true
	g.formula[p2], g.dirty[p2] = true, true
	g.formula[q2], g.dirty[q2] = true, true
	g.rangeEdge(d7, p2)
	g.rangeEdge(p2, q2)

	sched := Build(g, []store.VertexId{d7})

	require.Empty(t, sched.Cycles)
	layerOf := func(id store.VertexId) int {
		for i, l := range sched.Layers {
			for _, v := range l.Vertices {
				if v == id {
					return i
				}
			}
		}
		return -1
	}
	q2Layer, p2Layer, d7Layer := layerOf(q2), layerOf(p2), layerOf(d7)
	require.NotEqual(t, -1, q2Layer)
	require.NotEqual(t, -1, p2Layer)
	require.NotEqual(t, -1, d7Layer)
	assert.Less(t, q2Layer, p2Layer)
	assert.Less(t, p2Layer, d7Layer)
}

func TestBuildDiamondSharesLayerWhereIndependent(t *testing.T) {
	g := newFakeGraph()
	a, b, c, d := store.VertexId(1), store.VertexId(2), store.VertexId(3), store.VertexId(4)
	g.edge(b, a)
	g.edge(c, a)
	g.edge(d, b)
	g.edge(d, c)
	for _, id := range []store.VertexId{b, c, d} {
		g.formula[id], g.dirty[id] = true, true
	}

	sched := Build(g, []store.VertexId{a, b, c, d})

	require.Len(t, sched.Layers, 3)
	assert.ElementsMatch(t, []store.VertexId{a}, sched.Layers[0].Vertices)
	assert.ElementsMatch(t, []store.VertexId{b, c}, sched.Layers[1].Vertices)
	assert.ElementsMatch(t, []store.VertexId{d}, sched.Layers[2].Vertices)
}
