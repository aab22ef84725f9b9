// Package schedule implements C4 of the spec: it takes a demand set of
// vertex ids, traces the working subgraph reachable through their
// dependencies, detects cycles with Tarjan's SCC algorithm, and condenses
// the result into dependency-respecting layers a worker pool can execute
// in order.
//
// The teacher has no scheduler at all — EvaluateAll (sheet.go) walks
// GetAffectedCells and recomputes in whatever order a map range gives it,
// re-running a naive per-cell DFS each time and relying on a visited-set
// to avoid infinite loops on a cycle rather than detecting one up front.
// This package is new work, grounded on the teacher's dependency-walking
// style (same "reverse traverse, mark visited" shape as its
// GetAffectedCells) but replacing the ad hoc walk with Tarjan + a proper
// topological layering.
package schedule

import (
	"github.com/latticecalc/engine/internal/store"
)

// Graph is the minimal read-only view the Scheduler needs. depgraph.Graph
// satisfies it without this package importing depgraph (which would create
// an import cycle, since depgraph.Graph's operations are the thing that
// produces the demand set in the first place).
type Graph interface {
	OutEdges(id store.VertexId) []store.VertexId
	InEdges(id store.VertexId) []store.VertexId
	IsDirty(id store.VertexId) bool
	IsVolatile(id store.VertexId) bool
	IsFormula(id store.VertexId) bool

	// RangeProducers returns the formula vertices that feed id through a
	// compressed (stripe-indexed) range dependency rather than a direct
	// OutEdges entry. The scheduler folds these in everywhere it walks
	// OutEdges, so a formula's range producers are traced, ordered, and
	// layered exactly like its direct dependencies.
	RangeProducers(id store.VertexId) []store.VertexId
}

// dependenciesOf returns everything id's formula reads: its direct
// OutEdges plus any producer formulas it reaches only through a
// compressed range. Every traversal in this package (reachability, SCC,
// layering) goes through this instead of g.OutEdges directly, so a
// compressed-range producer is never visible to one pass and invisible to
// another.
func dependenciesOf(g Graph, id store.VertexId) []store.VertexId {
	direct := g.OutEdges(id)
	producers := g.RangeProducers(id)
	if len(producers) == 0 {
		return direct
	}
	out := make([]store.VertexId, 0, len(direct)+len(producers))
	out = append(out, direct...)
	out = append(out, producers...)
	return out
}

// Layer is a set of vertices that may be evaluated in any order (and in
// parallel) relative to each other, because none depends on another within
// the same layer.
type Layer struct {
	Vertices    []store.VertexId
	SampleCells []store.VertexId // small diagnostic sample, per spec §4.4
}

// Schedule is the Scheduler's output: cycle members (pre-marked #CIRC!
// before any layer runs) and the layered topological order for everything
// else.
type Schedule struct {
	Cycles [][]store.VertexId
	Layers []Layer
}

const sampleSize = 8

// Build runs the full C4 algorithm over seeds: reverse-reachability to find
// the working subgraph, Tarjan SCC to find cycles, and longest-path
// layering over the condensed DAG.
func Build(g Graph, seeds []store.VertexId) Schedule {
	working := workingSubgraph(g, seeds)
	sccs := tarjan(g, working)

	cycles := make([][]store.VertexId, 0)
	nodeToComponent := make(map[store.VertexId]int, len(working))
	var components [][]store.VertexId
	var isCycleComponent []bool

	for _, scc := range sccs {
		isCycle := len(scc) > 1 || (len(scc) == 1 && hasSelfEdge(g, scc[0]))
		if isCycle {
			cycles = append(cycles, scc)
		}
		idx := len(components)
		components = append(components, scc)
		isCycleComponent = append(isCycleComponent, isCycle)
		for _, id := range scc {
			nodeToComponent[id] = idx
		}
	}

	// Every component (cycle or not) needs a layer number, since a clean
	// formula may depend on a cycle's output; only non-cycle components are
	// emitted as executable layers, though — cycle members are written
	// #CIRC! up front rather than scheduled.
	layerOf := layerComponents(g, components, nodeToComponent)

	maxLayer := 0
	for idx, l := range layerOf {
		if isCycleComponent[idx] {
			continue
		}
		if l > maxLayer {
			maxLayer = l
		}
	}
	layers := make([]Layer, 0)
	if hasNonCycleComponent(isCycleComponent) {
		layers = make([]Layer, maxLayer+1)
		for idx, comp := range components {
			if isCycleComponent[idx] {
				continue
			}
			l := layerOf[idx]
			layers[l].Vertices = append(layers[l].Vertices, comp...)
		}
	}
	for i := range layers {
		if len(layers[i].Vertices) > sampleSize {
			layers[i].SampleCells = append([]store.VertexId{}, layers[i].Vertices[:sampleSize]...)
		} else {
			layers[i].SampleCells = append([]store.VertexId{}, layers[i].Vertices...)
		}
	}

	return Schedule{Cycles: cycles, Layers: layers}
}

func hasNonCycleComponent(isCycleComponent []bool) bool {
	for _, c := range isCycleComponent {
		if !c {
			return true
		}
	}
	return false
}

func hasSelfEdge(g Graph, id store.VertexId) bool {
	for _, dep := range g.OutEdges(id) {
		if dep == id {
			return true
		}
	}
	return false
}

// workingSubgraph implements step 1 of §4.4: reverse-traverse from the
// demand set, keeping dirty-or-volatile formulas plus any cell vertex
// needed as an input.
func workingSubgraph(g Graph, seeds []store.VertexId) map[store.VertexId]struct{} {
	working := make(map[store.VertexId]struct{}, len(seeds)*2)
	var stack []store.VertexId
	for _, s := range seeds {
		if g.IsFormula(s) && !(g.IsDirty(s) || g.IsVolatile(s)) {
			continue
		}
		stack = append(stack, s)
	}

	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, ok := working[id]; ok {
			continue
		}
		working[id] = struct{}{}
		for _, dep := range dependenciesOf(g, id) {
			if _, ok := working[dep]; !ok {
				stack = append(stack, dep)
			}
		}
	}
	return working
}
