package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/latticecalc/engine/internal/ast"
	"github.com/latticecalc/engine/internal/config"
	"github.com/latticecalc/engine/internal/depgraph"
	"github.com/latticecalc/engine/internal/values"
)

var fixedTime = time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC)

func num(v float64) *ast.NumberLit { return &ast.NumberLit{Value: v} }

func cellRef(row, col int32) *ast.CellRef { return &ast.CellRef{Row: row, Col: col} }

func TestEvaluateAllSimpleChain(t *testing.T) {
	e := New(config.Default())

	_, err := e.SetCellValue(1, 0, 0, values.Num(2))
	require.NoError(t, err)

	formula := &ast.BinaryOp{Op: "*", Left: cellRef(0, 0), Right: num(3)}
	_, err = e.SetCellFormula(1, 0, 1, formula)
	require.NoError(t, err)

	result, err := e.EvaluateAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.ComputedVertices)
	assert.Equal(t, 0, result.CycleErrors)

	v := e.GetCellValue(1, 0, 1)
	assert.Equal(t, 6.0, v.Num)
}

func TestEvaluateAllDetectsCircularReference(t *testing.T) {
	e := New(config.Default())

	// A1 := B1, B1 := A1 (indirect cycle; direct self-refs are rejected at
	// set_cell_formula time, so this is the only way to exercise the
	// scheduler's SCC detection).
	_, err := e.SetCellFormula(1, 0, 1, cellRef(0, 0))
	require.NoError(t, err)
	_, err = e.SetCellFormula(1, 0, 0, cellRef(0, 1))
	require.NoError(t, err)

	result, err := e.EvaluateAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, result.CycleErrors)

	v := e.GetCellValue(1, 0, 0)
	assert.True(t, v.IsError())
	assert.Equal(t, values.ErrCirc, v.Err)
}

func TestEvaluateUntilOnlyComputesSeededTargets(t *testing.T) {
	e := New(config.Default())

	_, err := e.SetCellValue(1, 0, 0, values.Num(10))
	require.NoError(t, err)
	_, err = e.SetCellFormula(1, 0, 1, &ast.BinaryOp{Op: "+", Left: cellRef(0, 0), Right: num(1)})
	require.NoError(t, err)
	_, err = e.SetCellFormula(1, 0, 2, &ast.BinaryOp{Op: "+", Left: cellRef(0, 0), Right: num(100)})
	require.NoError(t, err)

	result, err := e.EvaluateUntil(context.Background(), []depgraph.CellAddress{{Sheet: 1, Row: 0, Col: 1}})
	require.NoError(t, err)
	assert.Equal(t, 1, result.ComputedVertices)
	assert.Equal(t, 11.0, e.GetCellValue(1, 0, 1).Num)
}

func TestEvaluateAllWithParallelLayers(t *testing.T) {
	cfg := config.New(config.WithParallel(true, 4))
	e := New(cfg)

	_, err := e.SetCellValue(1, 0, 0, values.Num(1))
	require.NoError(t, err)
	for col := int32(1); col <= 5; col++ {
		_, err := e.SetCellFormula(1, 0, col, &ast.BinaryOp{Op: "+", Left: cellRef(0, 0), Right: num(float64(col))})
		require.NoError(t, err)
	}

	result, err := e.EvaluateAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, result.ComputedVertices)
	for col := int32(1); col <= 5; col++ {
		assert.Equal(t, 1.0+float64(col), e.GetCellValue(1, 0, col).Num)
	}
}

func TestCancelStopsEvaluation(t *testing.T) {
	e := New(config.Default())
	_, err := e.SetCellValue(1, 0, 0, values.Num(1))
	require.NoError(t, err)
	_, err = e.SetCellFormula(1, 0, 1, cellRef(0, 0))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = e.EvaluateAll(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEvaluateAllSpillsArrayResultAcrossCells(t *testing.T) {
	e := New(config.Default())

	arr := &ast.ArrayLit{Rows: [][]ast.Node{{num(1), num(2)}, {num(3), num(4)}}}
	_, err := e.SetCellFormula(1, 0, 0, arr)
	require.NoError(t, err)

	_, err = e.EvaluateAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1.0, e.GetCellValue(1, 0, 0).Num)
	assert.Equal(t, 2.0, e.GetCellValue(1, 0, 1).Num)
	assert.Equal(t, 3.0, e.GetCellValue(1, 1, 0).Num)
	assert.Equal(t, 4.0, e.GetCellValue(1, 1, 1).Num)
}

func TestEvaluateAllReturnsSpillErrorWhenBlocked(t *testing.T) {
	e := New(config.Default())

	_, err := e.SetCellValue(1, 0, 1, values.Num(99)) // occupies the cell the array would spill into
	require.NoError(t, err)

	arr := &ast.ArrayLit{Rows: [][]ast.Node{{num(1), num(2)}}}
	_, err = e.SetCellFormula(1, 0, 0, arr)
	require.NoError(t, err)

	_, err = e.EvaluateAll(context.Background())
	require.NoError(t, err)

	v := e.GetCellValue(1, 0, 0)
	assert.True(t, v.IsError())
	assert.Equal(t, values.ErrSpill, v.Err)
	assert.Equal(t, 99.0, e.GetCellValue(1, 0, 1).Num) // untouched
}

// openColumn builds a RangeRef for a whole-column reference like "P:P".
func openColumn(col int32) *ast.RangeRef {
	return &ast.RangeRef{
		Start:    ast.CellRef{Col: col},
		End:      ast.CellRef{Col: col},
		OpenRows: true,
	}
}

// TestEvaluateUntilResolvesCompressedRangeProducersBeforeConsumer
// reproduces D7=SUMIF(S:S,D3,P:P) with P2=B2 and S2=D3 feeding P/S through
// formulas that never become OutEdges of D7 (only stripe entries). Spec §8
// E6 requires D7 to see P2/S2's computed values, not their pre-evaluation
// Empty placeholders, even when D7 is the only demanded target.
func TestEvaluateUntilResolvesCompressedRangeProducersBeforeConsumer(t *testing.T) {
	e := New(config.Default())

	// D3="X" (criteria), B2=5 (value P2 forwards).
	_, err := e.SetCellValue(1, 2, 3, values.Text("X"))
	require.NoError(t, err)
	_, err = e.SetCellValue(1, 1, 1, values.Num(5))
	require.NoError(t, err)

	// P2 (col 15) = B2
	_, err = e.SetCellFormula(1, 1, 15, cellRef(1, 1))
	require.NoError(t, err)
	// S2 (col 18) = D3
	_, err = e.SetCellFormula(1, 1, 18, cellRef(2, 3))
	require.NoError(t, err)

	// D7 = SUMIF(S:S, D3, P:P)
	sumif := &ast.FuncCall{Name: "SUMIF", Args: []ast.Node{openColumn(18), cellRef(2, 3), openColumn(15)}}
	_, err = e.SetCellFormula(1, 6, 3, sumif)
	require.NoError(t, err)

	result, err := e.EvaluateUntil(context.Background(), []depgraph.CellAddress{{Sheet: 1, Row: 6, Col: 3}})
	require.NoError(t, err)
	assert.Greater(t, result.ComputedVertices, 0)

	assert.Equal(t, 5.0, e.GetCellValue(1, 6, 3).Num)
}

func TestDeterministicNowFeedsVolatileFunctions(t *testing.T) {
	cfg := config.New(config.WithDeterministicMode(fixedTime, nil))
	e := New(cfg)

	_, err := e.SetCellFormula(1, 0, 0, &ast.FuncCall{Name: "TODAY"})
	require.NoError(t, err)

	_, err = e.EvaluateAll(context.Background())
	require.NoError(t, err)

	v := e.GetCellValue(1, 0, 0)
	assert.False(t, v.IsError())
}
