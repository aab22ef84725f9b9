// Package depgraph implements C3 of the spec: the mutation front door that
// fronts the columnar VertexStore (C1), the EdgeStore/stripe index (C2),
// the sheet and name tables, and dirty-set bookkeeping.
//
// The teacher's DependencyGraph (graph.go) plays the same "front door"
// role but over its own pointer-graph of DependencyNodes; this version
// keeps its public operations (set_cell_value/set_cell_formula/
// clear_cell/dirty propagation by DFS through reverse edges) but backs
// them with the dense VertexId storage spec §4.1-4.3 ask for.
package depgraph

import (
	"github.com/latticecalc/engine/internal/ast"
	"github.com/latticecalc/engine/internal/engineerr"
	"github.com/latticecalc/engine/internal/graphedge"
	"github.com/latticecalc/engine/internal/store"
	"github.com/latticecalc/engine/internal/values"
)

// CellAddress is an external-facing (sheet, row, col) coordinate, 1-based.
type CellAddress struct {
	Sheet uint32
	Row   uint32
	Col   uint32
}

// OperationSummary reports the result of a mutating Graph operation, per
// spec §4.3.
type OperationSummary struct {
	AffectedVertices   []store.VertexId
	CreatedPlaceholders []CellAddress
}

type coordKey uint64

func makeCoordKey(sheet uint32, c store.Coord) coordKey {
	return coordKey(uint64(sheet)<<32 | uint64(c))
}

// Graph is the C3 front door.
type Graph struct {
	Data    *store.DataStore
	Edges   *graphedge.EdgeStore
	Stripes *graphedge.StripeIndex
	Sheets  *SheetTable
	names   *nameTable

	coordToID map[coordKey]store.VertexId

	dirty    map[store.VertexId]struct{}
	volatile map[store.VertexId]struct{}

	usedRows map[uint32]uint32 // sheet -> highest referenced row
	usedCols map[uint32]uint32 // sheet -> highest referenced col

	rangeExpansionLimit int
	enableBlockStripes  bool
}

// New builds an empty Graph.
func New(rangeExpansionLimit int, enableBlockStripes bool) *Graph {
	return &Graph{
		Data:                store.NewDataStore(),
		Edges:               graphedge.NewEdgeStore(),
		Stripes:             graphedge.NewStripeIndex(),
		Sheets:              newSheetTable(),
		names:               newNameTable(),
		coordToID:           make(map[coordKey]store.VertexId),
		dirty:               make(map[store.VertexId]struct{}),
		volatile:            make(map[store.VertexId]struct{}),
		usedRows:            make(map[uint32]uint32),
		usedCols:            make(map[uint32]uint32),
		rangeExpansionLimit: rangeExpansionLimit,
		enableBlockStripes:  enableBlockStripes,
	}
}

// vertexFor returns the vertex at (sheet,row,col), allocating an Empty
// placeholder if none exists yet (spec §3 invariant: "Every referenced
// cell has a vertex"). created reports whether a new placeholder was made.
func (g *Graph) vertexFor(sheet, row, col uint32) (id store.VertexId, created bool) {
	c := store.PackCoord(row, col)
	key := makeCoordKey(sheet, c)
	if id, ok := g.coordToID[key]; ok {
		return id, false
	}
	id = g.Data.Vertices.Allocate(sheet, c)
	g.coordToID[key] = id
	if row > g.usedRows[sheet] {
		g.usedRows[sheet] = row
	}
	if col > g.usedCols[sheet] {
		g.usedCols[sheet] = col
	}
	return id, true
}

// UsedRegion returns the highest row and column any vertex has ever been
// allocated at on sheet (spec §4.5.6: the clip bound for an open-ended
// range reference). Both are 0 if the sheet has no vertices yet.
func (g *Graph) UsedRegion(sheet uint32) (maxRow, maxCol uint32) {
	return g.usedRows[sheet], g.usedCols[sheet]
}

// VertexAt returns the existing vertex at (sheet,row,col) without creating
// one.
func (g *Graph) VertexAt(sheet, row, col uint32) (store.VertexId, bool) {
	key := makeCoordKey(sheet, store.PackCoord(row, col))
	id, ok := g.coordToID[key]
	return id, ok
}

// Address returns the (sheet,row,col) of a vertex.
func (g *Graph) Address(id store.VertexId) CellAddress {
	c := g.Data.Vertices.Coord(id)
	return CellAddress{Sheet: g.Data.Vertices.Sheet(id), Row: c.Row(), Col: c.Col()}
}

// SetCellValue implements set_cell_value (spec §4.3). Value cells never
// mark themselves dirty — they only seed propagation to their dependents.
func (g *Graph) SetCellValue(sheet, row, col uint32, v values.Value) (OperationSummary, error) {
	id, _ := g.vertexFor(sheet, row, col)
	g.clearFormulaAt(id)
	g.Data.Vertices.SetKind(id, store.KindCell)
	g.Data.Vertices.SetValue(id, v)

	affected := g.propagateFrom(id)
	return OperationSummary{AffectedVertices: affected}, nil
}

// SetCellFormula implements set_cell_formula (spec §4.3): parses
// dependencies, rejects a direct self-reference with #CIRC!, registers
// stripe entries for compressed ranges, stages the AST, marks the vertex
// dirty, and propagates.
func (g *Graph) SetCellFormula(sheet, row, col uint32, node ast.Node) (OperationSummary, error) {
	id, _ := g.vertexFor(sheet, row, col)

	if directSelfReference(node, sheet, row, col) {
		return OperationSummary{}, engineerr.New(engineerr.CodeCircularReference, "formula directly references its own cell")
	}

	g.clearFormulaAt(id)

	var placeholders []CellAddress
	g.extractDependencies(node, id, sheet, &placeholders)

	handle := g.Data.Formulas.Intern(node)
	g.Data.Vertices.SetFormulaHandle(id, handle)
	g.Data.Vertices.SetKind(id, store.KindFormulaScalar)
	if isVolatileFormula(node) {
		g.Data.Vertices.SetVolatile(id, true)
		g.volatile[id] = struct{}{}
	}
	g.markDirty(id)

	affected := g.propagateFrom(id)
	return OperationSummary{AffectedVertices: affected, CreatedPlaceholders: placeholders}, nil
}

// ClearCell removes a formula/value, collapsing the vertex back to Empty
// while keeping its id (spec §3 lifecycle: ids are never freed within a
// session).
func (g *Graph) ClearCell(sheet, row, col uint32) (OperationSummary, error) {
	id, ok := g.VertexAt(sheet, row, col)
	if !ok {
		return OperationSummary{}, nil
	}
	g.clearFormulaAt(id)
	g.Data.Vertices.SetKind(id, store.KindEmpty)
	g.Data.Vertices.SetValue(id, values.Empty())
	affected := g.propagateFrom(id)
	return OperationSummary{AffectedVertices: affected}, nil
}

func (g *Graph) clearFormulaAt(id store.VertexId) {
	if h := g.Data.Vertices.FormulaHandle(id); h != 0 {
		g.Data.Formulas.Release(h)
		g.Data.Vertices.SetFormulaHandle(id, 0)
	}
	for _, dep := range g.Edges.OutEdges(id) {
		g.Edges.RemoveEdge(id, dep)
	}
	g.Stripes.Unregister(id, g.enableBlockStripes)
	delete(g.volatile, id)
	g.Data.Vertices.SetVolatile(id, false)
	g.Data.Vertices.SetSelfLoop(id, false)
}

// GetCellValue returns the cached value at (sheet,row,col), or Empty if no
// vertex exists yet.
func (g *Graph) GetCellValue(sheet, row, col uint32) values.Value {
	id, ok := g.VertexAt(sheet, row, col)
	if !ok {
		return values.Empty()
	}
	return g.Data.Vertices.Value(id)
}

// GetFormula returns the AST staged at (sheet,row,col), if any.
func (g *Graph) GetFormula(sheet, row, col uint32) (ast.Node, bool) {
	id, ok := g.VertexAt(sheet, row, col)
	if !ok {
		return nil, false
	}
	h := g.Data.Vertices.FormulaHandle(id)
	if h == 0 {
		return nil, false
	}
	return g.Data.Formulas.Get(h)
}

// GetEvaluationVertices returns every vertex currently dirty or volatile —
// the demand-driven/full work set a Scheduler consumes (spec §4.4 input).
func (g *Graph) GetEvaluationVertices() []store.VertexId {
	seen := make(map[store.VertexId]struct{}, len(g.dirty)+len(g.volatile))
	out := make([]store.VertexId, 0, len(g.dirty)+len(g.volatile))
	for id := range g.dirty {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	for id := range g.volatile {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}

// ClearDirtyFlags clears the dirty bit for each vertex in vertices (called
// by the Engine once it has committed their newly-evaluated values).
func (g *Graph) ClearDirtyFlags(vertices []store.VertexId) {
	for _, id := range vertices {
		g.Data.Vertices.SetDirty(id, false)
		delete(g.dirty, id)
	}
}

// RedirtyVolatiles re-marks every volatile vertex dirty; the Engine calls
// this after each recalc (spec §3: "volatiles are always re-marked dirty
// after each recalc").
func (g *Graph) RedirtyVolatiles() {
	for id := range g.volatile {
		g.markDirty(id)
	}
}

func (g *Graph) markDirty(id store.VertexId) {
	g.Data.Vertices.SetDirty(id, true)
	g.dirty[id] = struct{}{}
}

// IsDirty reports the dirty flag for a vertex.
func (g *Graph) IsDirty(id store.VertexId) bool { return g.Data.Vertices.IsDirty(id) }

// IsVolatile reports the volatile flag for a vertex, satisfying
// schedule.Graph.
func (g *Graph) IsVolatile(id store.VertexId) bool { return g.Data.Vertices.IsVolatile(id) }

// IsFormula reports whether a vertex holds a formula, satisfying
// schedule.Graph.
func (g *Graph) IsFormula(id store.VertexId) bool { return g.Data.Vertices.IsFormula(id) }

// OutEdges returns id's dependencies (the cells/ranges its formula reads),
// satisfying schedule.Graph.
func (g *Graph) OutEdges(id store.VertexId) []store.VertexId { return g.Edges.OutEdges(id) }

// RangeProducers returns the formula vertices that produce values inside
// any compressed range registered for id (an open/oversized range that
// extractRangeDep routed to the stripe index instead of per-cell OutEdges),
// clipped to each range's sheet's used region. Satisfies schedule.Graph so
// the scheduler can pull these producers into the working subgraph and
// layer them before id, the way it already does for direct OutEdges (spec
// §8 E6: D7=SUMIF(S:S,D3,P:P) must see P2/S2's computed values, not the
// Empty placeholder they have before their own formulas run).
func (g *Graph) RangeProducers(id store.VertexId) []store.VertexId {
	ranges := g.Stripes.Ranges(id)
	if len(ranges) == 0 {
		return nil
	}
	seen := make(map[store.VertexId]struct{})
	var out []store.VertexId
	for _, b := range ranges {
		maxRow, maxCol := g.UsedRegion(b.Sheet)
		startRow, endRow := b.StartRow, b.EndRow
		if b.OpenRows {
			startRow, endRow = 1, maxRow
		} else if endRow > maxRow {
			endRow = maxRow
		}
		startCol, endCol := b.StartCol, b.EndCol
		if b.OpenCols {
			startCol, endCol = 1, maxCol
		} else if endCol > maxCol {
			endCol = maxCol
		}
		for row := startRow; row <= endRow; row++ {
			for col := startCol; col <= endCol; col++ {
				vid, ok := g.VertexAt(b.Sheet, row, col)
				if !ok || vid == id {
					continue
				}
				if !g.Data.Vertices.IsFormula(vid) {
					continue
				}
				if _, dup := seen[vid]; dup {
					continue
				}
				seen[vid] = struct{}{}
				out = append(out, vid)
			}
		}
	}
	return out
}

// InEdges returns id's direct dependents (structural edges only, no stripe
// fan-out), satisfying schedule.Graph.
func (g *Graph) InEdges(id store.VertexId) []store.VertexId { return g.Edges.InEdges(id) }

// propagateFrom implements §4.3's dirty propagation: seed with the edited
// vertex's dependents (plus the vertex itself if it is a formula), then
// DFS through reverse edges fused with stripe-matched dependents.
func (g *Graph) propagateFrom(edited store.VertexId) []store.VertexId {
	visited := make(map[store.VertexId]struct{})
	var affected []store.VertexId
	var stack []store.VertexId

	addr := g.Address(edited)
	for _, dependent := range g.dependentsOf(edited, addr) {
		stack = append(stack, dependent)
	}

	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, ok := visited[id]; ok {
			continue
		}
		visited[id] = struct{}{}
		affected = append(affected, id)
		if g.Data.Vertices.IsFormula(id) {
			g.markDirty(id)
		}
		a := g.Address(id)
		for _, dependent := range g.dependentsOf(id, a) {
			if _, ok := visited[dependent]; !ok {
				stack = append(stack, dependent)
			}
		}
	}
	return affected
}

// dependentsOf merges direct reverse-edge dependents with stripe matches
// for the vertex's own address (spec §4.3: "fuses direct in-edges with a
// stripe-index lookup filtered by geometric containment").
func (g *Graph) dependentsOf(id store.VertexId, addr CellAddress) []store.VertexId {
	direct := g.Edges.InEdges(id)
	striped := g.Stripes.MatchCell(addr.Sheet, addr.Row, addr.Col)
	if len(striped) == 0 {
		return direct
	}
	seen := make(map[store.VertexId]struct{}, len(direct)+len(striped))
	out := make([]store.VertexId, 0, len(direct)+len(striped))
	for _, d := range direct {
		if _, ok := seen[d]; !ok {
			seen[d] = struct{}{}
			out = append(out, d)
		}
	}
	for _, d := range striped {
		if _, ok := seen[d]; !ok {
			seen[d] = struct{}{}
			out = append(out, d)
		}
	}
	return out
}

// directSelfReference catches the common E3 case (A1 := A1) synchronously,
// before any graph state is touched. An explicit cross-sheet self-reference
// (Sheet1!A1 written into Sheet1!A1) is caught the same way once the sheet
// name resolves to the current sheet; anything that only becomes a cycle
// transitively is left to the scheduler's SCC pass (spec §4.4).
func directSelfReference(node ast.Node, sheet, row, col uint32) bool {
	found := false
	ast.Collect(node, func(c *ast.CellRef) {
		if c.Deleted {
			return
		}
		if c.HasSheet {
			return
		}
		if uint32(c.Row) == row && uint32(c.Col) == col {
			found = true
		}
	}, nil, nil, nil)
	return found
}
