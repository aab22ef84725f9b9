package depgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/latticecalc/engine/internal/ast"
	"github.com/latticecalc/engine/internal/store"
	"github.com/latticecalc/engine/internal/values"
)

func cellRef(row, col int32) ast.Node {
	return &ast.CellRef{Row: row, Col: col}
}

func binary(op string, l, r ast.Node) ast.Node {
	n := ast.BinaryOp{}
	n.Op = op
	n.Left, n.Right = l, r
	return &n
}

func TestSetCellValuePropagatesToDependents(t *testing.T) {
	g := New(1024, false)
	sheet := g.Sheets.GetOrCreate("Sheet1")

	sum, err := g.SetCellFormula(sheet, 2, 1, binary("+", cellRef(1, 1), &ast.NumberLit{Value: 1}))
	require.NoError(t, err)
	assert.Empty(t, sum.AffectedVertices) // B1 placeholder already existed? not yet dirty downstream

	summary, err := g.SetCellValue(sheet, 1, 1, values.IntV(10))
	require.NoError(t, err)
	require.Len(t, summary.AffectedVertices, 1)

	formulaID, ok := g.VertexAt(sheet, 2, 1)
	require.True(t, ok)
	assert.True(t, g.IsDirty(formulaID))
}

func TestSetCellFormulaRejectsDirectSelfReference(t *testing.T) {
	g := New(1024, false)
	sheet := g.Sheets.GetOrCreate("Sheet1")

	_, err := g.SetCellFormula(sheet, 1, 1, cellRef(1, 1))
	require.Error(t, err)
}

func TestSetCellFormulaRecordsPlaceholders(t *testing.T) {
	g := New(1024, false)
	sheet := g.Sheets.GetOrCreate("Sheet1")

	summary, err := g.SetCellFormula(sheet, 1, 1, cellRef(5, 5))
	require.NoError(t, err)
	require.Len(t, summary.CreatedPlaceholders, 1)
	assert.Equal(t, CellAddress{Sheet: sheet, Row: 5, Col: 5}, summary.CreatedPlaceholders[0])
}

func TestClearCellRemovesDependenciesAndDirties(t *testing.T) {
	g := New(1024, false)
	sheet := g.Sheets.GetOrCreate("Sheet1")

	_, err := g.SetCellFormula(sheet, 2, 1, cellRef(1, 1))
	require.NoError(t, err)

	formulaID, _ := g.VertexAt(sheet, 2, 1)
	g.ClearDirtyFlags([]store.VertexId{formulaID})

	_, err = g.ClearCell(sheet, 1, 1)
	require.NoError(t, err)
	assert.True(t, g.IsDirty(formulaID))
}

func TestRangeAboveExpansionLimitUsesStripes(t *testing.T) {
	g := New(4, false) // tiny limit forces stripe registration
	sheet := g.Sheets.GetOrCreate("Sheet1")

	rng := &ast.RangeRef{
		Start: ast.CellRef{Row: 1, Col: 1},
		End:   ast.CellRef{Row: 100, Col: 1},
	}
	_, err := g.SetCellFormula(sheet, 1, 2, rng)
	require.NoError(t, err)

	formulaID, _ := g.VertexAt(sheet, 1, 2)
	g.ClearDirtyFlags([]store.VertexId{formulaID})

	_, err = g.SetCellValue(sheet, 50, 1, values.IntV(7))
	require.NoError(t, err)
	assert.True(t, g.IsDirty(formulaID))
}

func TestRangeProducersFindsFormulasWithinOpenRange(t *testing.T) {
	g := New(1024, false)
	sheet := g.Sheets.GetOrCreate("Sheet1")

	// B2 is a plain value; P2 (col 16) is a formula that reads it. A
	// whole-column P:P dependency must surface P2 as a producer even though
	// it never becomes an OutEdges entry of the reader.
	_, err := g.SetCellValue(sheet, 2, 2, values.IntV(5)) // B2
	require.NoError(t, err)
	_, err = g.SetCellFormula(sheet, 2, 16, cellRef(2, 2)) // P2 := B2
	require.NoError(t, err)

	openP := &ast.RangeRef{Start: ast.CellRef{Col: 16}, End: ast.CellRef{Col: 16}, OpenRows: true}
	_, err = g.SetCellFormula(sheet, 7, 4, openP)
	require.NoError(t, err)

	readerID, ok := g.VertexAt(sheet, 7, 4)
	require.True(t, ok)

	producers := g.RangeProducers(readerID)
	p2ID, ok := g.VertexAt(sheet, 2, 16)
	require.True(t, ok)
	assert.Contains(t, producers, p2ID)
}

func TestRangeProducersOmitsPlainValueCells(t *testing.T) {
	g := New(1024, false)
	sheet := g.Sheets.GetOrCreate("Sheet1")

	_, err := g.SetCellValue(sheet, 2, 16, values.IntV(9)) // P2 is a plain value, not a formula
	require.NoError(t, err)

	openP := &ast.RangeRef{Start: ast.CellRef{Col: 16}, End: ast.CellRef{Col: 16}, OpenRows: true}
	_, err = g.SetCellFormula(sheet, 7, 4, openP)
	require.NoError(t, err)

	readerID, _ := g.VertexAt(sheet, 7, 4)
	assert.Empty(t, g.RangeProducers(readerID))
}

func TestDefineAndResolveNameSheetScopeWins(t *testing.T) {
	g := New(1024, false)
	sheet := g.Sheets.GetOrCreate("Sheet1")

	require.NoError(t, g.DefineName(&Name{Name: "Total", SheetID: 0, Kind: NameKindCell, Cell: ast.CellRef{Row: 1, Col: 1}}))
	require.NoError(t, g.DefineName(&Name{Name: "Total", SheetID: sheet, Kind: NameKindCell, Cell: ast.CellRef{Row: 2, Col: 2}}))

	n, ok := g.ResolveName("Total", sheet)
	require.True(t, ok)
	assert.Equal(t, int32(2), n.Cell.Row)
}

func TestDefineNameRejectsA1LikePattern(t *testing.T) {
	g := New(1024, false)
	err := g.DefineName(&Name{Name: "AB12", Kind: NameKindLiteral})
	require.Error(t, err)
}

func TestDeleteSheetCollapsesReferencesToRefError(t *testing.T) {
	g := New(1024, false)
	sheet := g.Sheets.GetOrCreate("Sheet1")
	g.SetCellValue(sheet, 1, 1, values.IntV(5))

	_, err := g.DeleteSheet(sheet)
	require.NoError(t, err)

	v := g.GetCellValue(sheet, 1, 1)
	assert.True(t, v.IsError())
	assert.Equal(t, values.ErrRef, v.Err)
}

func TestRenameSheetPreservesID(t *testing.T) {
	g := New(1024, false)
	sheet := g.Sheets.GetOrCreate("Sheet1")
	require.NoError(t, g.RenameSheet(sheet, "Renamed"))

	got, ok := g.Sheets.Lookup("Renamed")
	require.True(t, ok)
	assert.Equal(t, sheet, got)
}
