// Package interp implements C5 of the spec: an AST walker that evaluates a
// single formula to a LiteralValue against an EvaluationContext, with
// NumPy-style broadcasting, lenient/strict coercion, and function dispatch
// delegated to the functions registry.
//
// The teacher attaches Eval directly to each AST node
// (`func (n *BinaryOpNode) Eval(s *Spreadsheet) (Primitive, error)`), so
// the AST and the spreadsheet are one concrete type forever. Here the
// Interpreter type-switches over ast.Node itself and talks only to the
// EvaluationContext interface below, the same decoupling spec §4.5 asks
// for; the per-operator logic (numeric-first addition, #DIV/0! on divide
// by zero, case comparison semantics) is carried over from the teacher's
// BinaryOpNode.Eval almost line for line.
package interp

import (
	"github.com/latticecalc/engine/internal/ast"
	"github.com/latticecalc/engine/internal/functions"
	"github.com/latticecalc/engine/internal/rangeview"
	"github.com/latticecalc/engine/internal/values"
)

// EvaluationContext is everything the Interpreter needs from its host
// (spec §4.5: "reference resolution into RangeViews, function lookup,
// locale, timezone, a workbook seed, a recalc epoch, and an optional
// cancellation flag"). depgraph.Graph-backed engines implement this by
// wrapping graph lookups; tests implement it directly over a map.
type EvaluationContext interface {
	// ResolveCell returns the literal value at a fully-resolved reference
	// (sheet id already substituted for SheetName). A #REF! CellRef
	// resolves to an Error(ErrRef) value rather than an error return.
	ResolveCell(ref *ast.CellRef) values.Value
	// ResolveRange returns a RangeView over a fully-resolved range
	// reference, clipped per spec §4.5.6 if it is open-ended.
	ResolveRange(ref *ast.RangeRef) (rangeview.View, error)
	// ResolveName looks up a defined name and returns the Value or View it
	// stands for; exactly one of the two returns is meaningful depending on
	// the name's kind.
	ResolveName(ref *ast.NameRef) (values.Value, rangeview.View, bool, error)
	// ResolveSheet maps a sheet name to its interned sheet_id (used to
	// qualify a CellRef/RangeRef that carries an explicit sheet name).
	ResolveSheet(name string) (uint32, bool)
	// CurrentSheet is the sheet the formula being evaluated lives on, used
	// to resolve implicit (unqualified) references.
	CurrentSheet() uint32
	// Functions is the registry function dispatch consults.
	Functions() *functions.Registry
	// Coercion is the date-system-aware coercion kernel (spec §4.5.2).
	Coercion() values.Coercion
	// Now returns the deterministic or wall-clock "now" as a spreadsheet
	// serial, or ok=false if neither is configured.
	Now() (serial float64, ok bool)
	// Cancelled reports whether the ambient recalc was asked to abort.
	Cancelled() bool
}

// funcContext adapts an EvaluationContext to functions.Context, so the
// dispatch table never needs to import this package.
type funcContext struct {
	ctx EvaluationContext
}

func (f funcContext) Coercion() values.Coercion { return f.ctx.Coercion() }
func (f funcContext) Now() (float64, bool)      { return f.ctx.Now() }
func (f funcContext) Cancelled() bool           { return f.ctx.Cancelled() }
