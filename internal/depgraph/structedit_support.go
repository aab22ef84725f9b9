package depgraph

import (
	"github.com/latticecalc/engine/internal/ast"
	"github.com/latticecalc/engine/internal/store"
)

// SheetVertex pairs a vertex id with its current address, for callers that
// need to enumerate and then relocate every cell on a sheet (spec §4.7
// row/column insert/delete).
type SheetVertex struct {
	ID   store.VertexId
	Row  uint32
	Col  uint32
}

// VerticesOnSheet returns every vertex allocated on sheet, in no particular
// order. The structural editor walks this set once per insert/delete/copy
// to find every formula that might need a reference rewrite and every cell
// that might need to move.
func (g *Graph) VerticesOnSheet(sheet uint32) []SheetVertex {
	out := make([]SheetVertex, 0)
	for key, id := range g.coordToID {
		if uint32(key>>32) != sheet {
			continue
		}
		c := g.Data.Vertices.Coord(id)
		out = append(out, SheetVertex{ID: id, Row: c.Row(), Col: c.Col()})
	}
	return out
}

// RelocateVertex moves an existing vertex to (newRow,newCol) on the same
// sheet, keeping its VertexId (and therefore every dependency edge, which is
// keyed by id, not coordinate) intact. Used by InsertRows/DeleteRows/
// InsertColumns/DeleteColumns to shift cells without disturbing the graph's
// edges.
func (g *Graph) RelocateVertex(id store.VertexId, newRow, newCol uint32) {
	sheet := g.Data.Vertices.Sheet(id)
	old := g.Data.Vertices.Coord(id)
	delete(g.coordToID, makeCoordKey(sheet, old))

	c := store.PackCoord(newRow, newCol)
	g.Data.Vertices.SetCoord(id, c)
	g.coordToID[makeCoordKey(sheet, c)] = id

	if newRow > g.usedRows[sheet] {
		g.usedRows[sheet] = newRow
	}
	if newCol > g.usedCols[sheet] {
		g.usedCols[sheet] = newCol
	}
}

// ReplaceFormulaAST re-stages a formula's AST after a structural-edit
// rewrite: it re-extracts dependencies, re-registers stripe entries, and
// marks the vertex dirty, same as SetCellFormula (spec §4.7 step 5, "dirty
// propagation"). Unlike SetCellFormula it never rejects a direct self
// reference — a rewrite that clamps a reference back onto its own cell is
// the adjuster's documented clamp-at-1 behavior, not a user-authored cycle,
// and rejecting it here would make the edit silently lossy.
func (g *Graph) ReplaceFormulaAST(id store.VertexId, sheet uint32, node ast.Node) []store.VertexId {
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

	return g.propagateFrom(id)
}

// AllFormulaVertices returns every formula vertex in the workbook, on any
// sheet. A structural edit on one sheet can still need to rewrite a formula
// that lives on a different sheet but references the edited one, so the
// editor scans this set rather than VerticesOnSheet(affectedSheet) alone.
func (g *Graph) AllFormulaVertices() []store.VertexId {
	out := make([]store.VertexId, 0)
	for _, id := range g.coordToID {
		if g.Data.Vertices.IsFormula(id) {
			out = append(out, id)
		}
	}
	return out
}

// AllNames returns every defined name in the workbook, workbook-scoped and
// every sheet scope together, for the structural editor's named-range shift
// (spec §4.7 step 3).
func (g *Graph) AllNames() []*Name {
	out := make([]*Name, 0, len(g.names.workbook))
	for _, n := range g.names.workbook {
		out = append(out, n)
	}
	for _, scope := range g.names.bySheet {
		for _, n := range scope {
			out = append(out, n)
		}
	}
	return out
}
