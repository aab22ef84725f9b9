package schedule

import "github.com/latticecalc/engine/internal/store"

// tarjan runs Tarjan's strongly-connected-components algorithm over the
// working subgraph's forward edges (OutEdges), restricted to members of
// working. Components are returned in reverse topological order (a
// component's dependencies all appear before it), which is Tarjan's
// natural output order and exactly what the layering pass wants.
func tarjan(g Graph, working map[store.VertexId]struct{}) [][]store.VertexId {
	t := &tarjanState{
		g:       g,
		working: working,
		index:   make(map[store.VertexId]int),
		lowlink: make(map[store.VertexId]int),
		onStack: make(map[store.VertexId]bool),
	}
	for id := range working {
		if _, visited := t.index[id]; !visited {
			t.strongconnect(id)
		}
	}
	return t.result
}

type tarjanState struct {
	g       Graph
	working map[store.VertexId]struct{}

	counter int
	index   map[store.VertexId]int
	lowlink map[store.VertexId]int
	onStack map[store.VertexId]bool
	stack   []store.VertexId

	result [][]store.VertexId
}

// strongconnect is the standard iterative-by-recursion Tarjan visit. The
// subgraphs this engine schedules over are bounded by range_expansion_limit
// and realistic sheet sizes, so plain recursion (matching the teacher's own
// recursive dependency walk in graph.go) is preferred over an explicit
// work-stack encoding for readability.
func (t *tarjanState) strongconnect(v store.VertexId) {
	t.index[v] = t.counter
	t.lowlink[v] = t.counter
	t.counter++
	t.stack = append(t.stack, v)
	t.onStack[v] = true

	for _, w := range dependenciesOf(t.g, v) {
		if _, ok := t.working[w]; !ok {
			continue
		}
		if _, visited := t.index[w]; !visited {
			t.strongconnect(w)
			if t.lowlink[w] < t.lowlink[v] {
				t.lowlink[v] = t.lowlink[w]
			}
		} else if t.onStack[w] {
			if t.index[w] < t.lowlink[v] {
				t.lowlink[v] = t.index[w]
			}
		}
	}

	if t.lowlink[v] == t.index[v] {
		var component []store.VertexId
		for {
			n := len(t.stack) - 1
			w := t.stack[n]
			t.stack = t.stack[:n]
			t.onStack[w] = false
			component = append(component, w)
			if w == v {
				break
			}
		}
		t.result = append(t.result, component)
	}
}
