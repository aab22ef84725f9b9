package interp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/latticecalc/engine/internal/ast"
	"github.com/latticecalc/engine/internal/functions"
	"github.com/latticecalc/engine/internal/rangeview"
	"github.com/latticecalc/engine/internal/values"
)

// fakeContext is a minimal in-memory EvaluationContext for exercising the
// Interpreter without a depgraph.Graph.
type fakeContext struct {
	cells     map[[3]int32]values.Value
	sheets    map[string]uint32
	current   uint32
	names     map[string]values.Value
	nowSerial float64
	hasNow    bool
	cancelled bool
}

func newFakeContext() *fakeContext {
	return &fakeContext{
		cells:  make(map[[3]int32]values.Value),
		sheets: map[string]uint32{"Sheet1": 0, "Sheet2": 1},
		names:  make(map[string]values.Value),
	}
}

func (f *fakeContext) set(row, col int32, v values.Value) {
	f.cells[[3]int32{int32(f.current), row, col}] = v
}

func (f *fakeContext) ResolveCell(ref *ast.CellRef) values.Value {
	v, ok := f.cells[[3]int32{int32(ref.SheetID), ref.Row, ref.Col}]
	if !ok {
		return values.Empty()
	}
	return v
}

func (f *fakeContext) ResolveRange(ref *ast.RangeRef) (rangeview.View, error) {
	rows := make([][]values.Value, 0)
	for r := ref.Start.Row; r <= ref.End.Row; r++ {
		row := make([]values.Value, 0)
		for c := ref.Start.Col; c <= ref.End.Col; c++ {
			row = append(row, f.cells[[3]int32{int32(f.current), r, c}])
		}
		rows = append(rows, row)
	}
	return rangeview.Owned{Rows: rows}, nil
}

func (f *fakeContext) ResolveName(ref *ast.NameRef) (values.Value, rangeview.View, bool, error) {
	v, ok := f.names[ref.Name]
	return v, nil, ok, nil
}

func (f *fakeContext) ResolveSheet(name string) (uint32, bool) {
	id, ok := f.sheets[name]
	return id, ok
}

func (f *fakeContext) CurrentSheet() uint32              { return f.current }
func (f *fakeContext) Functions() *functions.Registry     { return functions.Global() }
func (f *fakeContext) Coercion() values.Coercion          { return values.NewCoercion(values.Excel1900) }
func (f *fakeContext) Now() (float64, bool)               { return f.nowSerial, f.hasNow }
func (f *fakeContext) Cancelled() bool                    { return f.cancelled }

func cellRef(row, col int32) *ast.CellRef {
	return &ast.CellRef{Row: row, Col: col}
}

func TestEvalLiterals(t *testing.T) {
	ip := New()
	ctx := newFakeContext()

	v, err := ip.Eval(&ast.NumberLit{Value: 4.5}, ctx)
	require.NoError(t, err)
	assert.Equal(t, 4.5, v.Num)

	v, err = ip.Eval(&ast.StringLit{Value: "hi"}, ctx)
	require.NoError(t, err)
	assert.Equal(t, "hi", v.Text)

	v, err = ip.Eval(&ast.BoolLit{Value: true}, ctx)
	require.NoError(t, err)
	assert.True(t, v.Bool)
}

func TestEvalCellRefResolvesThroughContext(t *testing.T) {
	ip := New()
	ctx := newFakeContext()
	ctx.set(0, 0, values.Num(7))

	v, err := ip.Eval(cellRef(0, 0), ctx)
	require.NoError(t, err)
	assert.Equal(t, 7.0, v.Num)
}

func TestEvalCellRefUnknownSheetIsRefError(t *testing.T) {
	ip := New()
	ctx := newFakeContext()
	ref := cellRef(0, 0)
	ref.HasSheet = true
	ref.SheetName = "NoSuchSheet"

	v, err := ip.Eval(ref, ctx)
	require.NoError(t, err)
	assert.True(t, v.IsError())
	assert.Equal(t, values.ErrRef, v.Err)
}

func TestEvalBinaryArithmetic(t *testing.T) {
	ip := New()
	ctx := newFakeContext()

	node := &ast.BinaryOp{Op: "+", Left: &ast.NumberLit{Value: 2}, Right: &ast.NumberLit{Value: 3}}
	v, err := ip.Eval(node, ctx)
	require.NoError(t, err)
	assert.Equal(t, 5.0, v.Num)
}

func TestEvalBinaryDivByZero(t *testing.T) {
	ip := New()
	ctx := newFakeContext()

	node := &ast.BinaryOp{Op: "/", Left: &ast.NumberLit{Value: 1}, Right: &ast.NumberLit{Value: 0}}
	v, err := ip.Eval(node, ctx)
	require.NoError(t, err)
	assert.True(t, v.IsError())
	assert.Equal(t, values.ErrDiv, v.Err)
}

func TestEvalBinaryPowerNegativeBaseFractionalExponent(t *testing.T) {
	ip := New()
	ctx := newFakeContext()

	node := &ast.BinaryOp{Op: "^", Left: &ast.NumberLit{Value: -8}, Right: &ast.NumberLit{Value: 0.5}}
	v, err := ip.Eval(node, ctx)
	require.NoError(t, err)
	assert.True(t, v.IsError())
	assert.Equal(t, values.ErrNum, v.Err)
}

func TestEvalBinaryConcatenate(t *testing.T) {
	ip := New()
	ctx := newFakeContext()

	node := &ast.BinaryOp{Op: "&", Left: &ast.StringLit{Value: "a"}, Right: &ast.NumberLit{Value: 1}}
	v, err := ip.Eval(node, ctx)
	require.NoError(t, err)
	assert.Equal(t, "a1", v.Text)
}

func TestEvalBinaryErrorPropagates(t *testing.T) {
	ip := New()
	ctx := newFakeContext()

	node := &ast.BinaryOp{Op: "+", Left: &ast.NumberLit{Value: 1}, Right: cellRef(9, 9)}
	ref := node.Right.(*ast.CellRef)
	ref.HasSheet = true
	ref.SheetName = "Ghost"

	v, err := ip.Eval(node, ctx)
	require.NoError(t, err)
	assert.True(t, v.IsError())
	assert.Equal(t, values.ErrRef, v.Err)
}

func TestEvalBroadcastArrayPlusScalar(t *testing.T) {
	ip := New()
	ctx := newFakeContext()

	arr := &ast.ArrayLit{Rows: [][]ast.Node{
		{&ast.NumberLit{Value: 1}, &ast.NumberLit{Value: 2}},
		{&ast.NumberLit{Value: 3}, &ast.NumberLit{Value: 4}},
	}}
	node := &ast.BinaryOp{Op: "*", Left: arr, Right: &ast.NumberLit{Value: 10}}

	v, err := ip.Eval(node, ctx)
	require.NoError(t, err)
	require.True(t, v.IsArray())
	assert.Equal(t, 10.0, v.Array[0][0].Num)
	assert.Equal(t, 40.0, v.Array[1][1].Num)
}

func TestEvalBinaryRangeTimesRangeBroadcastsElementwise(t *testing.T) {
	ip := New()
	ctx := newFakeContext()
	ctx.set(0, 0, values.Num(1))
	ctx.set(1, 0, values.Num(2))
	ctx.set(2, 0, values.Num(3))
	ctx.set(0, 1, values.Num(10))
	ctx.set(1, 1, values.Num(20))
	ctx.set(2, 1, values.Num(30))

	left := &ast.RangeRef{Start: *cellRef(0, 0), End: *cellRef(2, 0)}
	right := &ast.RangeRef{Start: *cellRef(0, 1), End: *cellRef(2, 1)}
	node := &ast.BinaryOp{Op: "*", Left: left, Right: right}

	v, err := ip.Eval(node, ctx)
	require.NoError(t, err)
	require.True(t, v.IsArray())
	assert.Equal(t, 10.0, v.Array[0][0].Num)
	assert.Equal(t, 40.0, v.Array[1][0].Num)
	assert.Equal(t, 90.0, v.Array[2][0].Num)
}

func TestEvalBinaryRangeTimesScalarBroadcasts(t *testing.T) {
	ip := New()
	ctx := newFakeContext()
	ctx.set(0, 0, values.Num(1))
	ctx.set(1, 0, values.Num(2))

	rng := &ast.RangeRef{Start: *cellRef(0, 0), End: *cellRef(1, 0)}
	node := &ast.BinaryOp{Op: "*", Left: rng, Right: &ast.NumberLit{Value: 10}}

	v, err := ip.Eval(node, ctx)
	require.NoError(t, err)
	require.True(t, v.IsArray())
	assert.Equal(t, 10.0, v.Array[0][0].Num)
	assert.Equal(t, 20.0, v.Array[1][0].Num)
}

func TestEvalBroadcastIncompatibleShapesIsValueError(t *testing.T) {
	ip := New()
	ctx := newFakeContext()

	left := &ast.ArrayLit{Rows: [][]ast.Node{
		{&ast.NumberLit{Value: 1}, &ast.NumberLit{Value: 2}, &ast.NumberLit{Value: 3}},
	}}
	right := &ast.ArrayLit{Rows: [][]ast.Node{
		{&ast.NumberLit{Value: 1}, &ast.NumberLit{Value: 2}},
	}}
	node := &ast.BinaryOp{Op: "+", Left: left, Right: right}

	v, err := ip.Eval(node, ctx)
	require.NoError(t, err)
	assert.True(t, v.IsError())
	assert.Equal(t, values.ErrValue, v.Err)
}

func TestEvalFuncCallSumOverRange(t *testing.T) {
	ip := New()
	ctx := newFakeContext()
	ctx.set(0, 0, values.Num(1))
	ctx.set(0, 1, values.Num(2))
	ctx.set(1, 0, values.Num(3))
	ctx.set(1, 1, values.Num(4))

	rng := &ast.RangeRef{Start: *cellRef(0, 0), End: *cellRef(1, 1)}
	node := &ast.FuncCall{Name: "SUM", Args: []ast.Node{rng}}

	v, err := ip.Eval(node, ctx)
	require.NoError(t, err)
	assert.Equal(t, 10.0, v.Num)
}

func TestEvalFuncCallUnknownNameIsNameError(t *testing.T) {
	ip := New()
	ctx := newFakeContext()

	node := &ast.FuncCall{Name: "NOPE", Args: nil}
	v, err := ip.Eval(node, ctx)
	require.NoError(t, err)
	assert.True(t, v.IsError())
	assert.Equal(t, values.ErrName, v.Err)
}

func TestEvalFuncCallIfErrorRecoversFromErrorArg(t *testing.T) {
	ip := New()
	ctx := newFakeContext()

	badRef := cellRef(0, 0)
	badRef.HasSheet = true
	badRef.SheetName = "Ghost"

	node := &ast.FuncCall{Name: "IFERROR", Args: []ast.Node{badRef, &ast.NumberLit{Value: 99}}}
	v, err := ip.Eval(node, ctx)
	require.NoError(t, err)
	assert.Equal(t, 99.0, v.Num)
}

func TestEvalDeletedCellRefIsRefError(t *testing.T) {
	ip := New()
	ctx := newFakeContext()

	ref := cellRef(0, 0)
	ref.Deleted = true

	v, err := ip.Eval(ref, ctx)
	require.NoError(t, err)
	assert.True(t, v.IsError())
	assert.Equal(t, values.ErrRef, v.Err)
}

func TestEvalCancelledShortCircuits(t *testing.T) {
	ip := New()
	ctx := newFakeContext()
	ctx.cancelled = true

	v, err := ip.Eval(&ast.NumberLit{Value: 1}, ctx)
	require.NoError(t, err)
	assert.True(t, v.IsError())
	assert.Equal(t, values.ErrCancelled, v.Err)
}
