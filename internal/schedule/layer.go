package schedule

import "github.com/latticecalc/engine/internal/store"

// layerComponents implements step 3 of §4.4: condense each SCC to a single
// node, then compute layer(v) = 1 + max(layer(deps)) by longest path from
// the leaves (components with no further dependencies). components is
// already in an order where every component's dependencies were emitted
// earlier (Tarjan's natural output order), so a single forward pass
// suffices — no separate topological sort is needed.
func layerComponents(g Graph, components [][]store.VertexId, nodeToComponent map[store.VertexId]int) []int {
	layerOf := make([]int, len(components))

	for idx, comp := range components {
		inComponent := make(map[store.VertexId]struct{}, len(comp))
		for _, id := range comp {
			inComponent[id] = struct{}{}
		}

		maxDepLayer := -1
		for _, id := range comp {
			for _, dep := range dependenciesOf(g, id) {
				if _, internal := inComponent[dep]; internal {
					continue
				}
				depIdx, ok := nodeToComponent[dep]
				if !ok {
					continue
				}
				if layerOf[depIdx] > maxDepLayer {
					maxDepLayer = layerOf[depIdx]
				}
			}
		}
		layerOf[idx] = maxDepLayer + 1
	}
	return layerOf
}
