package engine

import (
	"context"

	"github.com/latticecalc/engine/internal/ast"
	"github.com/latticecalc/engine/internal/values"
)

// Batch is a chainable builder over an Engine, generalizing the teacher's
// RunnableSpreadsheet (sheet.go): every call is a no-op once an error has
// occurred, so a chain of SetValue/SetFormula calls can be written without
// checking an error after each one, and the first failure is what Err/Must
// report at the end.
type Batch struct {
	eng   *Engine
	sheet uint32
	err   error
}

// NewBatch starts a batch against eng, operating on sheet until changed
// with Sheet.
func NewBatch(eng *Engine, sheet uint32) *Batch {
	return &Batch{eng: eng, sheet: sheet}
}

// Sheet switches the sheet subsequent calls in the chain target.
func (b *Batch) Sheet(sheet uint32) *Batch {
	if b.err != nil {
		return b
	}
	b.sheet = sheet
	return b
}

// SetValue sets a literal value (chainable).
func (b *Batch) SetValue(row, col uint32, v values.Value) *Batch {
	if b.err != nil {
		return b
	}
	_, b.err = b.eng.SetCellValue(b.sheet, row, col, v)
	return b
}

// SetFormula sets a formula (chainable).
func (b *Batch) SetFormula(row, col uint32, node ast.Node) *Batch {
	if b.err != nil {
		return b
	}
	_, b.err = b.eng.SetCellFormula(b.sheet, row, col, node)
	return b
}

// Clear clears a cell (chainable).
func (b *Batch) Clear(row, col uint32) *Batch {
	if b.err != nil {
		return b
	}
	_, b.err = b.eng.ClearCell(b.sheet, row, col)
	return b
}

// Then runs an arbitrary step against the wrapped Engine, skipped once the
// chain has already failed, the way the teacher's chain short-circuits
// after its first error.
func (b *Batch) Then(step func(*Engine) error) *Batch {
	if b.err != nil {
		return b
	}
	b.err = step(b.eng)
	return b
}

// Evaluate runs EvaluateAll as a chain step, discarding EvalResult; callers
// that need the result should call Engine.EvaluateAll directly after Must.
func (b *Batch) Evaluate(ctx context.Context) *Batch {
	return b.Then(func(e *Engine) error {
		_, err := e.EvaluateAll(ctx)
		return err
	})
}

// Err returns the first error the chain hit, if any.
func (b *Batch) Err() error { return b.err }

// Must returns the wrapped Engine, panicking if the chain failed. Intended
// for setup code (tests, demo data) where a build-time error is a
// programmer mistake, not a runtime condition to handle.
func (b *Batch) Must() *Engine {
	if b.err != nil {
		panic(b.err)
	}
	return b.eng
}
