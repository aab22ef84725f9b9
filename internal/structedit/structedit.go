// Package structedit implements C7 of the spec: row/column insert and
// delete, range copy/move, and the reference rewriting that keeps every
// formula consistent with the shifted grid (spec §4.7).
//
// The teacher has no equivalent of this package — sheet.go only ever
// grows a worksheet by direct cell writes, never shifts existing ones — so
// this is built fresh, in the teacher's idiom: small exported operation
// structs (mirroring the teacher's *Request-style option structs elsewhere
// in the corpus) dispatched against the same *depgraph.Graph the rest of
// the engine shares, using ast.Walk to rebuild just the affected
// sub-trees rather than re-parsing formula text.
package structedit

import (
	"github.com/latticecalc/engine/internal/ast"
	"github.com/latticecalc/engine/internal/depgraph"
	"github.com/latticecalc/engine/internal/engineerr"
)

// Summary reports what a structural operation touched.
type Summary struct {
	RelocatedVertices int
	RewrittenFormulas int
	RefErrors         int // references collapsed to #REF! by this edit
}

// axis picks which coordinate (row or col) an operation shifts.
type axis int

const (
	axisRow axis = iota
	axisCol
)

// InsertRows implements InsertRows{sheet, before, count} (spec §4.7):
// every cell at row >= before shifts down by count, and every formula's
// relative row references are translated the same way.
func InsertRows(g *depgraph.Graph, sheet, before, count uint32) (Summary, error) {
	return shiftInsert(g, sheet, axisRow, before, count)
}

// DeleteRows implements DeleteRows{sheet, start, count}: cells in
// [start, start+count) are removed (their formulas' references to them
// collapse to #REF!), and cells at row >= start+count shift up by count.
func DeleteRows(g *depgraph.Graph, sheet, start, count uint32) (Summary, error) {
	return shiftDelete(g, sheet, axisRow, start, count)
}

// InsertColumns implements InsertColumns{sheet, before, count}.
func InsertColumns(g *depgraph.Graph, sheet, before, count uint32) (Summary, error) {
	return shiftInsert(g, sheet, axisCol, before, count)
}

// DeleteColumns implements DeleteColumns{sheet, start, count}.
func DeleteColumns(g *depgraph.Graph, sheet, start, count uint32) (Summary, error) {
	return shiftDelete(g, sheet, axisCol, start, count)
}

func validateSheet(g *depgraph.Graph, sheet uint32) error {
	if _, ok := g.Sheets.Name(sheet); !ok {
		return engineerr.New(engineerr.CodeUnknownSheet, "unknown sheet")
	}
	return nil
}

// shiftInsert moves every vertex at or past the insertion point, then
// rewrites every formula's references to the same rule (spec §4.7 steps
// 1-3: cell shift, range shift, name shift), and finally re-dirties
// everything touched (step 5).
func shiftInsert(g *depgraph.Graph, sheet uint32, ax axis, before, count uint32) (Summary, error) {
	if err := validateSheet(g, sheet); err != nil {
		return Summary{}, err
	}
	if count == 0 {
		return Summary{}, nil
	}

	sum := Summary{}

	// Relocate existing cells, highest index first so no relocation ever
	// overwrites a not-yet-moved vertex's slot.
	verts := g.VerticesOnSheet(sheet)
	sortDescending(verts, ax)
	for _, sv := range verts {
		idx := indexOf(sv, ax)
		if idx < before {
			continue
		}
		newRow, newCol := sv.Row, sv.Col
		if ax == axisRow {
			newRow += count
		} else {
			newCol += count
		}
		g.RelocateVertex(sv.ID, newRow, newCol)
		sum.RelocatedVertices++
	}

	shift := shiftRule{ax: ax, kind: shiftKindInsert, at: before, count: count}
	sum.RewrittenFormulas, sum.RefErrors = rewriteAllFormulas(g, sheet, shift)
	rewriteAllNames(g, sheet, shift)
	return sum, nil
}

// shiftDelete removes the [start, start+count) slice (collapsing references
// into it to #REF!) and moves everything past it back by count.
func shiftDelete(g *depgraph.Graph, sheet uint32, ax axis, start, count uint32) (Summary, error) {
	if err := validateSheet(g, sheet); err != nil {
		return Summary{}, err
	}
	if count == 0 {
		return Summary{}, nil
	}

	sum := Summary{}
	end := start + count // exclusive

	verts := g.VerticesOnSheet(sheet)
	sortAscending(verts, ax)
	for _, sv := range verts {
		idx := indexOf(sv, ax)
		switch {
		case idx >= start && idx < end:
			// The deleted vertex itself keeps its id and becomes an empty
			// placeholder; any formula that referenced it is handled by
			// rewriteAllFormulas turning the reference into #REF!, not by
			// touching this vertex's own stored value.
			g.ClearCell(sheet, sv.Row, sv.Col)
		case idx >= end:
			newRow, newCol := sv.Row, sv.Col
			if ax == axisRow {
				newRow -= count
			} else {
				newCol -= count
			}
			g.RelocateVertex(sv.ID, newRow, newCol)
			sum.RelocatedVertices++
		}
	}

	shift := shiftRule{ax: ax, kind: shiftKindDelete, at: start, count: count}
	sum.RewrittenFormulas, sum.RefErrors = rewriteAllFormulas(g, sheet, shift)
	rewriteAllNames(g, sheet, shift)
	return sum, nil
}

func indexOf(sv depgraph.SheetVertex, ax axis) uint32 {
	if ax == axisRow {
		return sv.Row
	}
	return sv.Col
}

func sortDescending(verts []depgraph.SheetVertex, ax axis) {
	for i := 1; i < len(verts); i++ {
		for j := i; j > 0 && indexOf(verts[j], ax) > indexOf(verts[j-1], ax); j-- {
			verts[j], verts[j-1] = verts[j-1], verts[j]
		}
	}
}

func sortAscending(verts []depgraph.SheetVertex, ax axis) {
	for i := 1; i < len(verts); i++ {
		for j := i; j > 0 && indexOf(verts[j], ax) < indexOf(verts[j-1], ax); j-- {
			verts[j], verts[j-1] = verts[j-1], verts[j]
		}
	}
}

// rewriteAllFormulas walks every formula in the workbook (any sheet can
// hold a formula that references the one being edited) and re-stages its
// AST if the rewrite actually changed anything.
func rewriteAllFormulas(g *depgraph.Graph, sheet uint32, shift shiftRule) (rewritten, refErrors int) {
	for _, id := range g.AllFormulaVertices() {
		addr := g.Address(id)
		node, ok := g.GetFormula(addr.Sheet, addr.Row, addr.Col)
		if !ok {
			continue
		}
		newNode, changed, refs := rewriteNode(node, addr.Sheet, sheet, shift)
		if !changed {
			continue
		}
		g.ReplaceFormulaAST(id, addr.Sheet, newNode)
		rewritten++
		refErrors += refs
	}
	return rewritten, refErrors
}

func rewriteAllNames(g *depgraph.Graph, sheet uint32, shift shiftRule) {
	for _, n := range g.AllNames() {
		switch n.Kind {
		case depgraph.NameKindCell:
			if n.SheetID != sheet {
				continue
			}
			nc, _ := shiftCellRef(&n.Cell, shift)
			n.Cell = nc
			_ = g.UpdateName(n)
		case depgraph.NameKindRange:
			if n.SheetID != sheet {
				continue
			}
			nr, _ := shiftRangeRef(&n.Range, shift)
			n.Range = nr
			_ = g.UpdateName(n)
		case depgraph.NameKindFormula:
			newNode, changed, _ := rewriteNode(n.Formula, n.SheetID, sheet, shift)
			if changed {
				n.Formula = newNode
				_ = g.UpdateName(n)
			}
		}
	}
}

// rewriteNode rewrites every CellRef/RangeRef/NameRef-resolved-range that
// lives on sheet, per shift, via ast.Walk. It never guesses: deleted
// targets become #REF!, and absolute references clamp at 1 rather than
// going negative (spec §4.7 final paragraph).
func rewriteNode(node ast.Node, homeSheet, editedSheet uint32, shift shiftRule) (out ast.Node, changed bool, refErrors int) {
	refSheet := func(c *ast.CellRef) uint32 {
		if c.HasSheet {
			return c.SheetID
		}
		return homeSheet
	}
	out = ast.Walk(node, ast.Visitor{
		VisitCellRef: func(c *ast.CellRef) ast.Node {
			if refSheet(c) != editedSheet {
				return nil
			}
			nc, did := shiftCellRef(c, shift)
			if !did {
				return nil
			}
			changed = true
			if nc.Deleted {
				refErrors++
			}
			return &nc
		},
		VisitRangeRef: func(r *ast.RangeRef) ast.Node {
			if refSheet(&r.Start) != editedSheet {
				return nil
			}
			nr, did := shiftRangeRef(r, shift)
			if !did {
				return nil
			}
			changed = true
			if nr.Deleted {
				refErrors++
			}
			return &nr
		},
	})
	return out, changed, refErrors
}

type shiftKind int

const (
	shiftKindInsert shiftKind = iota
	shiftKindDelete
)

// shiftRule is one structural edit's effect on a single axis.
type shiftRule struct {
	ax    axis
	kind  shiftKind
	at    uint32 // insertion point (insert) or deletion start (delete)
	count uint32
}

// apply translates one coordinate value per spec §4.7 step 1: insert
// shifts indices >= at by +count; delete maps [at, at+count) to "deleted"
// and shifts indices >= at+count by -count. abs cells are reported as
// unaffected by the caller (absolute axes are untouched per the spec).
func (s shiftRule) apply(v uint32) (newV uint32, deleted bool, changed bool) {
	switch s.kind {
	case shiftKindInsert:
		if v < s.at {
			return v, false, false
		}
		return v + s.count, false, true
	case shiftKindDelete:
		end := s.at + s.count
		if v < s.at {
			return v, false, false
		}
		if v < end {
			return v, true, true
		}
		return v - s.count, false, true
	}
	return v, false, false
}

// clamp keeps a shifted coordinate from going below 1 (spec §4.7 final
// paragraph: "the adjuster never guesses... it clamps at 1").
func clamp1(v uint32) uint32 {
	if v < 1 {
		return 1
	}
	return v
}

func shiftCellRef(c *ast.CellRef, s shiftRule) (out ast.CellRef, did bool) {
	out = *c
	if c.Deleted {
		return out, false
	}
	row, col := uint32(c.Row), uint32(c.Col)
	switch s.ax {
	case axisRow:
		if c.RowAbs {
			return out, false
		}
		nv, deleted, changed := s.apply(row)
		if !changed {
			return out, false
		}
		if deleted {
			out.Deleted = true
			return out, true
		}
		out.Row = int32(clamp1(nv))
		return out, true
	case axisCol:
		if c.ColAbs {
			return out, false
		}
		nv, deleted, changed := s.apply(col)
		if !changed {
			return out, false
		}
		if deleted {
			out.Deleted = true
			return out, true
		}
		out.Col = int32(clamp1(nv))
		return out, true
	}
	return out, false
}

// shiftRangeRef implements spec §4.7 step 2: bounded ranges adjust their
// start and end independently; a range whose interior is entirely removed
// becomes #REF!; a partially overlapped range collapses to the surviving
// slice; open/unbounded ranges are left unchanged.
func shiftRangeRef(r *ast.RangeRef, s shiftRule) (out ast.RangeRef, did bool) {
	out = *r
	if r.Deleted {
		return out, false
	}
	if (s.ax == axisRow && r.OpenRows) || (s.ax == axisCol && r.OpenCols) {
		return out, false
	}

	newStart, startChanged := shiftCellRef(&r.Start, s)
	newEnd, endChanged := shiftCellRef(&r.End, s)
	if !startChanged && !endChanged {
		return out, false
	}

	if newStart.Deleted && newEnd.Deleted {
		out.Deleted = true
		return out, true
	}
	// Partial overlap: the surviving slice keeps whichever endpoint wasn't
	// swallowed by the delete, replacing only the shifted axis of the
	// collapsed endpoint — the other axis (and the rest of that endpoint's
	// fields) must stay its own, not the surviving endpoint's.
	if newStart.Deleted {
		setAxisValue(&newStart, s.ax, axisValue(newEnd, s.ax))
		newStart.Deleted = false
	}
	if newEnd.Deleted {
		setAxisValue(&newEnd, s.ax, axisValue(newStart, s.ax))
		newEnd.Deleted = false
	}
	out.Start, out.End = newStart, newEnd
	return out, true
}

func axisValue(c ast.CellRef, ax axis) int32 {
	if ax == axisRow {
		return c.Row
	}
	return c.Col
}

func setAxisValue(c *ast.CellRef, ax axis, v int32) {
	if ax == axisRow {
		c.Row = v
	} else {
		c.Col = v
	}
}
