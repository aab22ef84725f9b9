// Package graphedge implements C2 of the spec: forward/reverse cell-to-cell
// edges plus the stripe index for compressed range dependencies.
//
// The teacher (graph.go) stores one *DependencyNode per cell with
// CellPrecedents/CellDependents maps-of-pointers — correct, but it means
// every dependency edit touches two hash maps per endpoint and the whole
// graph is pointer-chased. Spec §4.2 asks for a CSR-style adjacency with a
// delta slab so batch mutation (structural edits touching thousands of
// formulas) doesn't rebuild the full index per edge; EdgeStore below keeps
// the teacher's "maintain both directions eagerly" approach but over dense
// VertexId adjacency lists instead of node graphs, and defers reverse-index
// rebuilds to end_batch as spec'd.
package graphedge

import "github.com/latticecalc/engine/internal/store"

type delta struct {
	added   []store.VertexId
	removed map[store.VertexId]struct{}
}

// EdgeStore holds the base CSR (as per-vertex slices, rebuilt lazily) and a
// delta slab of edits since the last rebuild.
type EdgeStore struct {
	outBase map[store.VertexId][]store.VertexId
	inBase  map[store.VertexId][]store.VertexId

	outDelta map[store.VertexId]*delta
	inDelta  map[store.VertexId]*delta

	batchDepth int
	dirty      bool // true if a rebuild is owed
}

// NewEdgeStore creates an empty edge store.
func NewEdgeStore() *EdgeStore {
	return &EdgeStore{
		outBase:  make(map[store.VertexId][]store.VertexId),
		inBase:   make(map[store.VertexId][]store.VertexId),
		outDelta: make(map[store.VertexId]*delta),
		inDelta:  make(map[store.VertexId]*delta),
	}
}

// BeginBatch marks the start of a batch of mutations; rebuilds are
// suppressed until the matching EndBatch (spec §4.2 begin_batch/end_batch).
func (es *EdgeStore) BeginBatch() { es.batchDepth++ }

// EndBatch closes a batch; once the outermost batch ends, deltas are
// folded into the base CSR.
func (es *EdgeStore) EndBatch() {
	if es.batchDepth == 0 {
		return
	}
	es.batchDepth--
	if es.batchDepth == 0 {
		es.rebuild()
	}
}

func getOrNewDelta(m map[store.VertexId]*delta, id store.VertexId) *delta {
	d, ok := m[id]
	if !ok {
		d = &delta{removed: make(map[store.VertexId]struct{})}
		m[id] = d
	}
	return d
}

// AddEdge records that u depends on v (u -> v in spec §3's convention).
func (es *EdgeStore) AddEdge(u, v store.VertexId) {
	od := getOrNewDelta(es.outDelta, u)
	delete(od.removed, v)
	od.added = append(od.added, v)

	id := getOrNewDelta(es.inDelta, v)
	delete(id.removed, u)
	id.added = append(id.added, u)

	if es.batchDepth == 0 {
		es.rebuild()
	}
}

// RemoveEdge removes the u -> v dependency, if present.
func (es *EdgeStore) RemoveEdge(u, v store.VertexId) {
	od := getOrNewDelta(es.outDelta, u)
	od.removed[v] = struct{}{}

	id := getOrNewDelta(es.inDelta, v)
	id.removed[u] = struct{}{}

	if es.batchDepth == 0 {
		es.rebuild()
	}
}

// OutEdges returns the vertices u depends on, merging base and delta.
func (es *EdgeStore) OutEdges(u store.VertexId) []store.VertexId {
	return merge(es.outBase[u], es.outDelta[u])
}

// InEdges returns the vertices that depend on v, merging base and delta.
func (es *EdgeStore) InEdges(v store.VertexId) []store.VertexId {
	return merge(es.inBase[v], es.inDelta[v])
}

func merge(base []store.VertexId, d *delta) []store.VertexId {
	if d == nil {
		return base
	}
	seen := make(map[store.VertexId]struct{}, len(base)+len(d.added))
	out := make([]store.VertexId, 0, len(base)+len(d.added))
	for _, id := range base {
		if _, removed := d.removed[id]; removed {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	for _, id := range d.added {
		if _, removed := d.removed[id]; removed {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// rebuild folds every pending delta into the base adjacency and clears the
// delta slab. Called automatically outside a batch, or at end_batch / a
// query-time threshold (spec §4.2).
func (es *EdgeStore) rebuild() {
	for u, d := range es.outDelta {
		es.outBase[u] = merge(es.outBase[u], d)
		if len(es.outBase[u]) == 0 {
			delete(es.outBase, u)
		}
	}
	for v, d := range es.inDelta {
		es.inBase[v] = merge(es.inBase[v], d)
		if len(es.inBase[v]) == 0 {
			delete(es.inBase, v)
		}
	}
	es.outDelta = make(map[store.VertexId]*delta)
	es.inDelta = make(map[store.VertexId]*delta)
	es.dirty = false
}
