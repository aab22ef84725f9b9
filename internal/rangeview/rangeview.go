// Package rangeview implements spec §4.5.6's RangeView: an abstract
// borrowed view over a rectangular region that both the Interpreter and the
// function registry consume without needing to know whether the backing
// data is a materialized array, a slice into the live grid, or a lazily
// clipped infinite reference (A:A).
//
// The teacher has nothing resembling this — RangeNode.Eval (parser.go)
// eagerly collects every cell into a Go slice of Primitive before handing
// it to a function, which is fine until a formula references a whole
// column and that slice would have to hold a million empty cells. This
// package is new work grounded on that eager-collection shape (ForEachCell
// below still visits cells in the same row-major order the teacher's loop
// does) but without the teacher's unconditional materialization.
package rangeview

import "github.com/latticecalc/engine/internal/values"

// View is the RangeView abstraction.
type View interface {
	// Dims returns the view's (rows, cols).
	Dims() (rows, cols int)
	// Get returns the value at 0-based (r, c) within the view.
	Get(r, c int) values.Value
	// As1x1 returns the view's sole value if it is exactly 1x1.
	As1x1() (values.Value, bool)
	// ForEachCell visits every cell in row-major order; fn returning false
	// stops the walk early.
	ForEachCell(fn func(r, c int, v values.Value) bool)
	// ForEachRow visits each row as a slice of cells.
	ForEachRow(fn func(row []values.Value) bool)
}

// Owned is a View backed by a fully materialized 2D slice — the result of
// an array formula or an ArrayLit literal.
type Owned struct {
	Rows [][]values.Value
}

func (o Owned) Dims() (int, int) {
	if len(o.Rows) == 0 {
		return 0, 0
	}
	return len(o.Rows), len(o.Rows[0])
}

func (o Owned) Get(r, c int) values.Value {
	if r < 0 || r >= len(o.Rows) || c < 0 || c >= len(o.Rows[r]) {
		return values.Empty()
	}
	return o.Rows[r][c]
}

func (o Owned) As1x1() (values.Value, bool) {
	if len(o.Rows) == 1 && len(o.Rows[0]) == 1 {
		return o.Rows[0][0], true
	}
	return values.Empty(), false
}

func (o Owned) ForEachCell(fn func(r, c int, v values.Value) bool) {
	for r, row := range o.Rows {
		for c, v := range row {
			if !fn(r, c, v) {
				return
			}
		}
	}
}

func (o Owned) ForEachRow(fn func(row []values.Value) bool) {
	for _, row := range o.Rows {
		if !fn(row) {
			return
		}
	}
}

// CellGetter looks up the value at an absolute 1-based (sheet, row, col),
// the EvaluationContext's reference-resolution primitive.
type CellGetter func(sheet, row, col uint32) values.Value

// Clipped is a View over a (possibly open-ended) reference that never
// materializes the underlying cells eagerly: bounds are resolved once
// (clipped to a used-region hint or the sheet's physical extent per spec
// §4.5.6), and Get/ForEachCell pull through CellGetter on demand.
type Clipped struct {
	Sheet               uint32
	StartRow, StartCol  uint32
	Rows, Cols          int
	Getter              CellGetter
}

func (c Clipped) Dims() (int, int) { return c.Rows, c.Cols }

func (c Clipped) Get(r, c2 int) values.Value {
	if r < 0 || r >= c.Rows || c2 < 0 || c2 >= c.Cols {
		return values.Empty()
	}
	return c.Getter(c.Sheet, c.StartRow+uint32(r), c.StartCol+uint32(c2))
}

func (c Clipped) As1x1() (values.Value, bool) {
	if c.Rows == 1 && c.Cols == 1 {
		return c.Get(0, 0), true
	}
	return values.Empty(), false
}

func (c Clipped) ForEachCell(fn func(r, cc int, v values.Value) bool) {
	for r := 0; r < c.Rows; r++ {
		for cc := 0; cc < c.Cols; cc++ {
			if !fn(r, cc, c.Get(r, cc)) {
				return
			}
		}
	}
}

func (c Clipped) ForEachRow(fn func(row []values.Value) bool) {
	for r := 0; r < c.Rows; r++ {
		row := make([]values.Value, c.Cols)
		for cc := 0; cc < c.Cols; cc++ {
			row[cc] = c.Get(r, cc)
		}
		if !fn(row) {
			return
		}
	}
}

// Scalar adapts a single Value to a 1x1 View, used when a function argument
// position accepts either a Range or a Number/Text/etc. and got a scalar.
type Scalar struct {
	Value values.Value
}

func (s Scalar) Dims() (int, int) { return 1, 1 }
func (s Scalar) Get(r, c int) values.Value {
	if r == 0 && c == 0 {
		return s.Value
	}
	return values.Empty()
}
func (s Scalar) As1x1() (values.Value, bool) { return s.Value, true }
func (s Scalar) ForEachCell(fn func(r, c int, v values.Value) bool) {
	fn(0, 0, s.Value)
}
func (s Scalar) ForEachRow(fn func(row []values.Value) bool) {
	fn([]values.Value{s.Value})
}
