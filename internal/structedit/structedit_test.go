package structedit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/latticecalc/engine/internal/ast"
	"github.com/latticecalc/engine/internal/depgraph"
	"github.com/latticecalc/engine/internal/values"
)

func newGraph(t *testing.T) (*depgraph.Graph, uint32) {
	t.Helper()
	g := depgraph.New(1000, false)
	sheet := g.Sheets.GetOrCreate("Sheet1")
	return g, sheet
}

func relCell(row, col int32) ast.CellRef { return ast.CellRef{Row: row, Col: col} }

func TestInsertRowsShiftsCellsAndReferences(t *testing.T) {
	g, sheet := newGraph(t)

	_, err := g.SetCellValue(sheet, 5, 1, values.Num(42))
	require.NoError(t, err)
	cell := relCell(5, 1)
	_, err = g.SetCellFormula(sheet, 1, 1, &cell)
	require.NoError(t, err)

	sum, err := InsertRows(g, sheet, 3, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.RelocatedVertices) // only row 5 was at/after the insertion point
	assert.Equal(t, 1, sum.RewrittenFormulas)

	// The value cell moved from row 5 to row 7.
	assert.Equal(t, 42.0, g.GetCellValue(sheet, 7, 1).Num)
	assert.Equal(t, values.KindEmpty, g.GetCellValue(sheet, 5, 1).Kind)

	node, ok := g.GetFormula(sheet, 1, 1)
	require.True(t, ok)
	ref := node.(*ast.CellRef)
	assert.Equal(t, int32(7), ref.Row)
}

func TestDeleteRowsCollapsesReferenceToRefError(t *testing.T) {
	g, sheet := newGraph(t)

	_, err := g.SetCellValue(sheet, 4, 1, values.Num(1))
	require.NoError(t, err)
	cell := relCell(4, 1)
	_, err = g.SetCellFormula(sheet, 1, 1, &cell)
	require.NoError(t, err)

	sum, err := DeleteRows(g, sheet, 3, 2) // removes rows 3-4
	require.NoError(t, err)
	assert.Equal(t, 1, sum.RefErrors)

	node, ok := g.GetFormula(sheet, 1, 1)
	require.True(t, ok)
	ref := node.(*ast.CellRef)
	assert.True(t, ref.Deleted)
}

func TestDeleteRowsShiftsSurvivingCellsUp(t *testing.T) {
	g, sheet := newGraph(t)

	_, err := g.SetCellValue(sheet, 10, 1, values.Num(99))
	require.NoError(t, err)

	sum, err := DeleteRows(g, sheet, 3, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.RelocatedVertices)
	assert.Equal(t, 99.0, g.GetCellValue(sheet, 8, 1).Num)
}

func TestInsertColumnsRespectsAbsoluteReference(t *testing.T) {
	g, sheet := newGraph(t)

	abs := ast.CellRef{Row: 1, Col: 2, ColAbs: true}
	_, err := g.SetCellFormula(sheet, 1, 1, &abs)
	require.NoError(t, err)

	_, err = InsertColumns(g, sheet, 1, 3)
	require.NoError(t, err)

	node, ok := g.GetFormula(sheet, 1, 1)
	require.True(t, ok)
	ref := node.(*ast.CellRef)
	assert.Equal(t, int32(2), ref.Col) // $B untouched by the insert
}

func TestDeleteRowsShiftsSurvivorDownToRowOne(t *testing.T) {
	g, sheet := newGraph(t)

	_, err := g.SetCellValue(sheet, 3, 1, values.Num(7))
	require.NoError(t, err)

	_, err = DeleteRows(g, sheet, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 7.0, g.GetCellValue(sheet, 1, 1).Num)
}

func TestCopyRangeShiftsRelativeRefsByOffset(t *testing.T) {
	g, sheet := newGraph(t)

	_, err := g.SetCellValue(sheet, 1, 1, values.Num(5))
	require.NoError(t, err)
	cell := relCell(1, 1)
	_, err = g.SetCellFormula(sheet, 2, 1, &cell) // B1: =A1 (row1,col1)
	require.NoError(t, err)

	sum, err := CopyRange(g, sheet, 2, 1, 1, 1, sheet, 5, 3)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.RewrittenFormulas)

	node, ok := g.GetFormula(sheet, 5, 3)
	require.True(t, ok)
	ref := node.(*ast.CellRef)
	// offset is (dr,dc) = (3,2); original ref (1,1) -> (4,3)
	assert.Equal(t, int32(4), ref.Row)
	assert.Equal(t, int32(3), ref.Col)
}

func TestCopyRangePreservesAbsoluteReference(t *testing.T) {
	g, sheet := newGraph(t)

	abs := ast.CellRef{Row: 1, Col: 1, RowAbs: true, ColAbs: true}
	_, err := g.SetCellFormula(sheet, 2, 1, &abs)
	require.NoError(t, err)

	_, err = CopyRange(g, sheet, 2, 1, 1, 1, sheet, 10, 10)
	require.NoError(t, err)

	node, ok := g.GetFormula(sheet, 10, 10)
	require.True(t, ok)
	ref := node.(*ast.CellRef)
	assert.Equal(t, int32(1), ref.Row)
	assert.Equal(t, int32(1), ref.Col)
}

func TestMoveRangeRewritesExternalReference(t *testing.T) {
	g, sheet := newGraph(t)

	_, err := g.SetCellValue(sheet, 1, 1, values.Num(3))
	require.NoError(t, err)
	cell := relCell(1, 1)
	_, err = g.SetCellFormula(sheet, 5, 5, &cell) // F5: =A1, outside the moved block
	require.NoError(t, err)

	sum, err := MoveRange(g, sheet, 1, 1, 1, 1, sheet, 20, 20)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.RelocatedVertices)
	assert.Equal(t, 1, sum.RewrittenFormulas)

	node, ok := g.GetFormula(sheet, 5, 5)
	require.True(t, ok)
	ref := node.(*ast.CellRef)
	assert.Equal(t, int32(20), ref.Row)
	assert.Equal(t, int32(20), ref.Col)
	assert.Equal(t, 3.0, g.GetCellValue(sheet, 20, 20).Num)
}

func TestUnknownSheetReturnsError(t *testing.T) {
	g, _ := newGraph(t)
	_, err := InsertRows(g, 999, 1, 1)
	assert.Error(t, err)
}
