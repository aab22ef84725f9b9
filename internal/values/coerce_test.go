package values

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToNumberLenient(t *testing.T) {
	c := NewCoercion(Excel1900)

	cases := []struct {
		name string
		in   Value
		want float64
	}{
		{"int", IntV(7), 7},
		{"number", Num(3.5), 3.5},
		{"bool true", Bool(true), 1},
		{"bool false", Bool(false), 0},
		{"empty", Empty(), 0},
		{"text number", Text("100"), 100},
		{"text true", Text("TRUE"), 1},
		{"text false", Text(" false "), 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, errv := c.ToNumberLenient(tc.in)
			require.Nil(t, errv)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestToNumberLenientTextGarbage(t *testing.T) {
	c := NewCoercion(Excel1900)
	_, errv := c.ToNumberLenient(Text("not a number"))
	require.NotNil(t, errv)
	assert.Equal(t, ErrValue, errv.Err)
}

func TestToNumberStrictRejectsText(t *testing.T) {
	c := NewCoercion(Excel1900)
	_, errv := c.ToNumberStrict(Text("100"))
	require.NotNil(t, errv)
	assert.Equal(t, ErrValue, errv.Err)
}

func TestSanitizeNumeric(t *testing.T) {
	_, errv := SanitizeNumeric(1.0 / zero())
	require.NotNil(t, errv)
	assert.Equal(t, ErrNum, errv.Err)

	v, errv := SanitizeNumeric(42.0)
	require.Nil(t, errv)
	assert.Equal(t, 42.0, v)
}

func zero() float64 { return 0 }

func TestCompareMixedNumericText(t *testing.T) {
	c := NewCoercion(Excel1900)
	cmp, errv := c.Compare(Text("10"), Num(2))
	require.Nil(t, errv)
	assert.Equal(t, 1, cmp) // 10 > 2 numerically
}

func TestCompareTextCaseInsensitive(t *testing.T) {
	c := NewCoercion(Excel1900)
	cmp, errv := c.Compare(Text("Apple"), Text("apple"))
	require.Nil(t, errv)
	assert.Equal(t, 0, cmp)
}

func TestDateRoundTrip1900LeapBug(t *testing.T) {
	// Excel serial 60 is the fictitious 1900-02-29.
	d := SerialToDate(60, Excel1900)
	assert.Equal(t, 1900, d.Year())
	assert.Equal(t, 2, int(d.Month()))
	assert.Equal(t, 29, d.Day())
}

func TestIsTruthy(t *testing.T) {
	ok, errv := IsTruthy(Num(5))
	require.Nil(t, errv)
	assert.True(t, ok)

	ok, errv = IsTruthy(Num(0))
	require.Nil(t, errv)
	assert.False(t, ok)

	_, errv = IsTruthy(Text("maybe"))
	require.NotNil(t, errv)
}
