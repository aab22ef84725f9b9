package structedit

import (
	"github.com/latticecalc/engine/internal/ast"
	"github.com/latticecalc/engine/internal/depgraph"
)

// CopyRange implements CopyRange (spec §4.7 step 4): copies every cell in
// the rows x cols source rectangle to a destination rectangle, translating
// each copied formula's relative references by the destination offset
// (clamped at 1) while absolute references are carried over unchanged.
// Source formulas are left in place, untouched — a copy never rewrites
// anyone else's references, only the pasted formula's own.
func CopyRange(g *depgraph.Graph, srcSheet, srcRow, srcCol, rows, cols, dstSheet, dstRow, dstCol uint32) (Summary, error) {
	if err := validateSheet(g, srcSheet); err != nil {
		return Summary{}, err
	}
	if err := validateSheet(g, dstSheet); err != nil {
		return Summary{}, err
	}

	offset := offsetRule{dr: int64(dstRow) - int64(srcRow), dc: int64(dstCol) - int64(srcCol)}
	sum := Summary{}

	for r := uint32(0); r < rows; r++ {
		for c := uint32(0); c < cols; c++ {
			sRow, sCol := srcRow+r, srcCol+c
			tRow, tCol := dstRow+r, dstCol+c
			if sRow == tRow && sCol == tCol && srcSheet == dstSheet {
				continue
			}
			if node, ok := g.GetFormula(srcSheet, sRow, sCol); ok {
				pasted, _ := rewriteOffset(node, offset)
				if _, err := g.SetCellFormula(dstSheet, tRow, tCol, pasted); err == nil {
					sum.RewrittenFormulas++
				}
				continue
			}
			v := g.GetCellValue(srcSheet, sRow, sCol)
			g.SetCellValue(dstSheet, tRow, tCol, v)
		}
	}
	return sum, nil
}

// MoveRange implements MoveRange: relocates every cell in the source
// rectangle to the destination rectangle (same sheet or cross-sheet), then
// rewrites every reference anywhere in the workbook — including the moved
// formulas' own references to sibling cells inside the block — that
// pointed at a moved cell, so it follows the cell to its new coordinate.
// A moved cell's VertexId never changes (dependency edges are keyed by id,
// not coordinate), but value resolution at eval time is coordinate-based,
// so coordinates that move must drag their referrers with them.
func MoveRange(g *depgraph.Graph, srcSheet, srcRow, srcCol, rows, cols, dstSheet, dstRow, dstCol uint32) (Summary, error) {
	if err := validateSheet(g, srcSheet); err != nil {
		return Summary{}, err
	}
	if err := validateSheet(g, dstSheet); err != nil {
		return Summary{}, err
	}

	rect := moveRect{
		sheet: srcSheet, row0: srcRow, col0: srcCol, rows: rows, cols: cols,
		dstSheet: dstSheet, dr: int64(dstRow) - int64(srcRow), dc: int64(dstCol) - int64(srcCol),
	}
	sum := Summary{}

	for _, sv := range g.VerticesOnSheet(srcSheet) {
		if !rect.contains(srcSheet, sv.Row, sv.Col) {
			continue
		}
		nr, nc := rect.translate(sv.Row, sv.Col)
		if dstSheet == srcSheet {
			g.RelocateVertex(sv.ID, nr, nc)
		} else if node, ok := g.GetFormula(srcSheet, sv.Row, sv.Col); ok {
			moved, _ := rewriteMoved(node, srcSheet, rect)
			g.SetCellFormula(dstSheet, nr, nc, moved)
			g.ClearCell(srcSheet, sv.Row, sv.Col)
		} else {
			g.SetCellValue(dstSheet, nr, nc, g.GetCellValue(srcSheet, sv.Row, sv.Col))
			g.ClearCell(srcSheet, sv.Row, sv.Col)
		}
		sum.RelocatedVertices++
	}

	for _, id := range g.AllFormulaVertices() {
		addr := g.Address(id)
		node, ok := g.GetFormula(addr.Sheet, addr.Row, addr.Col)
		if !ok {
			continue
		}
		newNode, changed := rewriteMoved(node, addr.Sheet, rect)
		if !changed {
			continue
		}
		g.ReplaceFormulaAST(id, addr.Sheet, newNode)
		sum.RewrittenFormulas++
	}

	return sum, nil
}

// offsetRule is CopyRange's per-axis translation: every relative reference
// in the pasted formula shifts by (dr, dc), clamped so a paste near the
// top/left edge never produces a row or column below 1.
type offsetRule struct{ dr, dc int64 }

func clampOffset(v int64) int32 {
	if v < 1 {
		return 1
	}
	return int32(v)
}

func rewriteOffset(node ast.Node, o offsetRule) (ast.Node, bool) {
	changed := false
	out := ast.Walk(node, ast.Visitor{
		VisitCellRef: func(c *ast.CellRef) ast.Node {
			if c.Deleted {
				return nil
			}
			nr, nc := c.Row, c.Col
			if !c.RowAbs {
				nr = clampOffset(int64(c.Row) + o.dr)
			}
			if !c.ColAbs {
				nc = clampOffset(int64(c.Col) + o.dc)
			}
			if nr == c.Row && nc == c.Col {
				return nil
			}
			out := *c
			out.Row, out.Col = nr, nc
			changed = true
			return &out
		},
		VisitRangeRef: func(r *ast.RangeRef) ast.Node {
			if r.Deleted || r.OpenRows || r.OpenCols {
				return nil
			}
			ns, startChanged := rewriteOffsetCell(r.Start, o)
			ne, endChanged := rewriteOffsetCell(r.End, o)
			if !startChanged && !endChanged {
				return nil
			}
			out := *r
			out.Start, out.End = ns, ne
			changed = true
			return &out
		},
	})
	return out, changed
}

func rewriteOffsetCell(c ast.CellRef, o offsetRule) (ast.CellRef, bool) {
	nr, nc := c.Row, c.Col
	if !c.RowAbs {
		nr = clampOffset(int64(c.Row) + o.dr)
	}
	if !c.ColAbs {
		nc = clampOffset(int64(c.Col) + o.dc)
	}
	if nr == c.Row && nc == c.Col {
		return c, false
	}
	c.Row, c.Col = nr, nc
	return c, true
}

// moveRect is the source rectangle and destination offset a MoveRange call
// translates references through.
type moveRect struct {
	sheet      uint32
	row0, col0 uint32
	rows, cols uint32
	dstSheet   uint32
	dr, dc     int64
}

func (m moveRect) contains(sheet, row, col uint32) bool {
	return sheet == m.sheet && row >= m.row0 && row < m.row0+m.rows && col >= m.col0 && col < m.col0+m.cols
}

func (m moveRect) translate(row, col uint32) (uint32, uint32) {
	return clampU(int64(row) + m.dr), clampU(int64(col) + m.dc)
}

func clampU(v int64) uint32 {
	if v < 1 {
		return 1
	}
	return uint32(v)
}

func rewriteMoved(node ast.Node, homeSheet uint32, rect moveRect) (ast.Node, bool) {
	changed := false
	refSheet := func(c *ast.CellRef) uint32 {
		if c.HasSheet {
			return c.SheetID
		}
		return homeSheet
	}
	out := ast.Walk(node, ast.Visitor{
		VisitCellRef: func(c *ast.CellRef) ast.Node {
			if c.Deleted {
				return nil
			}
			sheet := refSheet(c)
			if !rect.contains(sheet, uint32(c.Row), uint32(c.Col)) {
				return nil
			}
			nr, nc := rect.translate(uint32(c.Row), uint32(c.Col))
			out := *c
			out.Row, out.Col = int32(nr), int32(nc)
			if rect.dstSheet != rect.sheet {
				out.SheetID, out.HasSheet = rect.dstSheet, true
			}
			changed = true
			return &out
		},
		VisitRangeRef: func(r *ast.RangeRef) ast.Node {
			if r.Deleted || r.OpenRows || r.OpenCols {
				return nil
			}
			sheet := refSheet(&r.Start)
			if !rect.contains(sheet, uint32(r.Start.Row), uint32(r.Start.Col)) {
				return nil
			}
			if !rect.contains(sheet, uint32(r.End.Row), uint32(r.End.Col)) {
				return nil
			}
			sr, sc := rect.translate(uint32(r.Start.Row), uint32(r.Start.Col))
			er, ec := rect.translate(uint32(r.End.Row), uint32(r.End.Col))
			out := *r
			out.Start.Row, out.Start.Col = int32(sr), int32(sc)
			out.End.Row, out.End.Col = int32(er), int32(ec)
			if rect.dstSheet != rect.sheet {
				out.Start.SheetID, out.Start.HasSheet = rect.dstSheet, true
				out.End.SheetID, out.End.HasSheet = rect.dstSheet, true
			}
			changed = true
			return &out
		},
	})
	return out, changed
}
