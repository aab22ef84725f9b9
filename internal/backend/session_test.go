package backend

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/latticecalc/engine/internal/ast"
	"github.com/latticecalc/engine/internal/config"
	"github.com/latticecalc/engine/internal/depgraph"
	"github.com/latticecalc/engine/internal/engine"
	"github.com/latticecalc/engine/internal/values"
)

func TestEngineSessionRecordsValueChange(t *testing.T) {
	sess := NewEngineSession(engine.New(config.Default()))
	ctx := context.Background()

	require.NoError(t, sess.SetCellValue(ctx, 1, 0, 0, values.Num(3)))
	require.NoError(t, sess.SetCellValue(ctx, 1, 0, 0, values.Num(4)))

	changes := sess.Changes()
	require.Len(t, changes, 2)
	assert.Equal(t, ChangeValue, changes[1].Kind)
	assert.Equal(t, 3.0, changes[1].OldValue.Num)
	assert.Equal(t, 4.0, changes[1].NewValue.Num)

	// Changes() drains the log.
	assert.Empty(t, sess.Changes())
}

func TestEngineSessionEvaluateAllAndRead(t *testing.T) {
	sess := NewEngineSession(engine.New(config.Default()))
	ctx := context.Background()

	require.NoError(t, sess.SetCellValue(ctx, 1, 0, 0, values.Num(2)))
	formula := &ast.BinaryOp{Op: "+", Left: &ast.CellRef{Row: 0, Col: 0}, Right: &ast.NumberLit{Value: 1}}
	require.NoError(t, sess.SetCellFormula(ctx, 1, 0, 1, formula))

	require.NoError(t, sess.EvaluateAll(ctx))

	v, err := sess.GetCellValue(ctx, 1, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, 3.0, v.Num)
}

func TestEngineSessionBatchReadWrite(t *testing.T) {
	sess := NewEngineSession(engine.New(config.Default()))
	ctx := context.Background()

	cells := []depgraph.CellAddress{{Sheet: 1, Row: 0, Col: 0}, {Sheet: 1, Row: 0, Col: 1}}
	require.NoError(t, sess.BatchWrite(ctx, cells, []values.Value{values.Num(1), values.Num(2)}))

	got, err := sess.BatchRead(ctx, cells)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 1.0, got[0].Num)
	assert.Equal(t, 2.0, got[1].Num)
}

func TestEngineSessionBatchWriteMismatchedLengths(t *testing.T) {
	sess := NewEngineSession(engine.New(config.Default()))
	err := sess.BatchWrite(context.Background(), []depgraph.CellAddress{{Sheet: 1, Row: 0, Col: 0}}, nil)
	assert.Error(t, err)
}
