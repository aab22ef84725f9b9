package functions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/latticecalc/engine/internal/rangeview"
	"github.com/latticecalc/engine/internal/values"
)

type fakeContext struct {
	nowSerial float64
	hasNow    bool
}

func (f fakeContext) Coercion() values.Coercion   { return values.NewCoercion(values.Excel1900) }
func (f fakeContext) Now() (float64, bool)        { return f.nowSerial, f.hasNow }
func (f fakeContext) Cancelled() bool             { return false }

func scalarArg(v values.Value) Arg { return Arg{Scalar: v} }

func rangeArg(rows [][]values.Value) Arg {
	return Arg{IsRange: true, Range: rangeview.Owned{Rows: rows}}
}

func TestSumAcrossRangeAndScalar(t *testing.T) {
	reg := NewRegistry()
	RegisterBuiltins(reg)
	fn, ok := reg.Lookup("sum")
	require.True(t, ok)

	args := []Arg{
		rangeArg([][]values.Value{{values.IntV(1), values.IntV(2)}, {values.IntV(3), values.Empty()}}),
		scalarArg(values.IntV(10)),
	}
	out, err := fn.EvalScalar(fakeContext{}, args)
	require.NoError(t, err)
	assert.Equal(t, 16.0, out.Num)
}

func TestSumPropagatesError(t *testing.T) {
	reg := NewRegistry()
	RegisterBuiltins(reg)
	fn, _ := reg.Lookup("SUM")

	args := []Arg{rangeArg([][]values.Value{{values.IntV(1), values.Error(values.ErrDiv)}})}
	out, err := fn.EvalScalar(fakeContext{}, args)
	require.NoError(t, err)
	assert.True(t, out.IsError())
	assert.Equal(t, values.ErrDiv, out.Err)
}

func TestIfShortCircuitsOnCondition(t *testing.T) {
	reg := NewRegistry()
	RegisterBuiltins(reg)
	fn, _ := reg.Lookup("IF")

	out, err := fn.EvalScalar(fakeContext{}, []Arg{scalarArg(values.Bool(true)), scalarArg(values.Text("yes")), scalarArg(values.Text("no"))})
	require.NoError(t, err)
	assert.Equal(t, "yes", out.Text)
}

func TestAverageDivZeroOnEmpty(t *testing.T) {
	reg := NewRegistry()
	RegisterBuiltins(reg)
	fn, _ := reg.Lookup("AVERAGE")

	out, err := fn.EvalScalar(fakeContext{}, []Arg{rangeArg([][]values.Value{{values.Empty()}})})
	require.NoError(t, err)
	assert.True(t, out.IsError())
	assert.Equal(t, values.ErrDiv, out.Err)
}

func TestPowerNegativeBaseFractionalExponentIsNum(t *testing.T) {
	reg := NewRegistry()
	RegisterBuiltins(reg)
	fn, _ := reg.Lookup("POWER")

	out, err := fn.EvalScalar(fakeContext{}, []Arg{scalarArg(values.Num(-4)), scalarArg(values.Num(0.5))})
	require.NoError(t, err)
	assert.True(t, out.IsError())
	assert.Equal(t, values.ErrNum, out.Err)
}

func TestModByZeroIsDivError(t *testing.T) {
	reg := NewRegistry()
	RegisterBuiltins(reg)
	fn, _ := reg.Lookup("MOD")

	out, err := fn.EvalScalar(fakeContext{}, []Arg{scalarArg(values.Num(5)), scalarArg(values.Num(0))})
	require.NoError(t, err)
	assert.True(t, out.IsError())
	assert.Equal(t, values.ErrDiv, out.Err)
}

func TestNowRespectsDeterministicUnavailable(t *testing.T) {
	reg := NewRegistry()
	RegisterBuiltins(reg)
	fn, _ := reg.Lookup("NOW")

	out, err := fn.EvalScalar(fakeContext{hasNow: false}, nil)
	require.NoError(t, err)
	assert.True(t, out.IsError())
}

func TestGlobalRegistryIsSingleton(t *testing.T) {
	a := Global()
	b := Global()
	assert.Same(t, a, b)
	_, ok := a.Lookup("SUM")
	assert.True(t, ok)
}
