package depgraph

import (
	"strings"

	"github.com/latticecalc/engine/internal/ast"
	"github.com/latticecalc/engine/internal/graphedge"
	"github.com/latticecalc/engine/internal/store"
)

// extractDependencies walks node and registers an edge (or stripe entry)
// from formulaID to every vertex it reads, per spec §4.2/§4.3. sheet is the
// sheet the formula itself lives on, used to resolve implicit (unqualified)
// references.
func (g *Graph) extractDependencies(node ast.Node, formulaID store.VertexId, sheet uint32, placeholders *[]CellAddress) {
	ast.Collect(node,
		func(c *ast.CellRef) { g.extractCellDep(c, formulaID, sheet, placeholders) },
		func(r *ast.RangeRef) { g.extractRangeDep(r, formulaID, sheet, placeholders) },
		func(n *ast.NameRef) { g.extractNameDep(n, formulaID, sheet, placeholders) },
		nil,
	)
}

func (g *Graph) resolveSheet(hasSheet bool, sheetName string, fallback uint32) uint32 {
	if !hasSheet {
		return fallback
	}
	return g.Sheets.GetOrCreate(sheetName)
}

func (g *Graph) extractCellDep(c *ast.CellRef, formulaID store.VertexId, sheet uint32, placeholders *[]CellAddress) {
	if c.Deleted {
		return
	}
	targetSheet := g.resolveSheet(c.HasSheet, c.SheetName, sheet)
	targetID, created := g.vertexFor(targetSheet, uint32(c.Row), uint32(c.Col))
	if created {
		*placeholders = append(*placeholders, CellAddress{Sheet: targetSheet, Row: uint32(c.Row), Col: uint32(c.Col)})
	}
	g.Edges.AddEdge(formulaID, targetID)
}

func (g *Graph) extractRangeDep(r *ast.RangeRef, formulaID store.VertexId, sheet uint32, placeholders *[]CellAddress) {
	if r.Deleted {
		return
	}
	targetSheet := g.resolveSheet(r.Start.HasSheet, r.Start.SheetName, sheet)
	bounds := graphedge.RangeBounds{
		Sheet:     targetSheet,
		StartRow:  uint32(r.Start.Row),
		EndRow:    uint32(r.End.Row),
		StartCol:  uint32(r.Start.Col),
		EndCol:    uint32(r.End.Col),
		OpenRows:  r.OpenRows,
		OpenCols:  r.OpenCols,
	}

	if r.OpenRows || r.OpenCols {
		g.Stripes.Register(formulaID, bounds, g.enableBlockStripes)
		return
	}

	cellCount := int(bounds.EndRow-bounds.StartRow+1) * int(bounds.EndCol-bounds.StartCol+1)
	if cellCount > g.rangeExpansionLimit {
		g.Stripes.Register(formulaID, bounds, g.enableBlockStripes)
		return
	}

	for row := bounds.StartRow; row <= bounds.EndRow; row++ {
		for col := bounds.StartCol; col <= bounds.EndCol; col++ {
			targetID, created := g.vertexFor(targetSheet, row, col)
			if created {
				*placeholders = append(*placeholders, CellAddress{Sheet: targetSheet, Row: row, Col: col})
			}
			g.Edges.AddEdge(formulaID, targetID)
		}
	}
}

// extractNameDep resolves a NameRef against the name table and folds in the
// dependency it stands for: a cell or range reference contributes the same
// edges a literal CellRef/RangeRef would, and a formula-valued name
// contributes whatever that formula itself depends on, transitively (spec
// §4.3: "named references participate in dependency tracking exactly as
// their expansion would").
func (g *Graph) extractNameDep(n *ast.NameRef, formulaID store.VertexId, sheet uint32, placeholders *[]CellAddress) {
	name, ok := g.names.resolve(n.Name, sheet)
	if !ok {
		return
	}
	switch name.Kind {
	case NameKindCell:
		g.extractCellDep(&name.Cell, formulaID, name.SheetID, placeholders)
	case NameKindRange:
		g.extractRangeDep(&name.Range, formulaID, name.SheetID, placeholders)
	case NameKindFormula:
		if name.Formula != nil {
			g.extractDependencies(name.Formula, formulaID, name.SheetID, placeholders)
		}
	case NameKindLiteral:
	}
}

// isVolatileFormula reports whether node calls a volatile built-in (NOW,
// TODAY, RAND, RANDBETWEEN), per spec §3's volatile-function list. Collect
// already recurses into every FuncCall's arguments, so a single pass over
// the whole tree is enough.
func isVolatileFormula(node ast.Node) bool {
	found := false
	ast.Collect(node, nil, nil, nil, func(f *ast.FuncCall) {
		switch strings.ToUpper(f.Name) {
		case "NOW", "TODAY", "RAND", "RANDBETWEEN":
			found = true
		}
	})
	return found
}
