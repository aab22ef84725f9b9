// Package functions implements the pluggable function dispatch table of
// spec §4.5.5: a capability-bitset-driven registry the Interpreter consults
// for every FuncCall node.
//
// The teacher (builtin.go) hardcodes a single switch statement in
// FunctionCallNode.Eval mapping function names straight to Go closures,
// with no notion of capabilities, arg schemas, or execution strategy — any
// new function means editing that switch and its inline argument-count
// checks. This package keeps the teacher's per-function logic (SUM/AVERAGE/
// COUNT/IF/... read the same way) but moves each one behind a registered
// Function implementing a shared interface, the registry style
// katalvlaran/lvlath uses for its own pluggable algorithm tables.
package functions

import (
	"sync"

	"github.com/latticecalc/engine/internal/rangeview"
	"github.com/latticecalc/engine/internal/values"
)

// ArgKind is the coarse type a function argument position accepts.
type ArgKind uint8

const (
	ArgAny ArgKind = iota
	ArgRange
	ArgNumber
	ArgText
	ArgLogical
)

// ArgShape distinguishes a scalar argument position from one that accepts a
// whole range.
type ArgShape uint8

const (
	ShapeScalar ArgShape = iota
	ShapeRange
)

// ArgSpec describes one argument position in a Function's signature (spec
// §4.5.5 "arg_schema").
type ArgSpec struct {
	Kind      ArgKind
	Required  bool
	ByRef     bool
	Shape     ArgShape
	Repeating bool
	Default   values.Value
}

// Caps is the capability bitset spec §4.5.5 dispatches on.
type Caps uint16

const (
	CapPure Caps = 1 << iota
	CapVolatile
	CapReduction
	CapWindowed
	CapParallelArgs
	CapBoolOnly
	CapShortCircuit
	CapNumericOnly
	CapStreamOK
	CapLookup
	CapReturnsReference
)

func (c Caps) Has(bit Caps) bool { return c&bit != 0 }

// Arg is one resolved call-site argument: either a scalar Value or a
// rangeview.View, matching whichever the AST node at that position
// produced once the Interpreter evaluated it.
type Arg struct {
	Scalar  values.Value
	Range   rangeview.View
	IsRange bool
}

// AsView adapts an Arg to a rangeview.View regardless of which form it
// arrived in, for functions that only care about iterating cells.
func (a Arg) AsView() rangeview.View {
	if a.IsRange {
		return a.Range
	}
	return rangeview.Scalar{Value: a.Scalar}
}

// AsScalar collapses an Arg to a single Value (its 1x1 form, or Empty for a
// wider range — callers that need range semantics should use AsView
// instead).
func (a Arg) AsScalar() values.Value {
	if !a.IsRange {
		return a.Scalar
	}
	if v, ok := a.Range.As1x1(); ok {
		return v
	}
	return values.Empty()
}

// NumericChunk is a flat batch of numbers handed to a WINDOWED function's
// fold step, so a reduction over a huge range never boxes individual cells
// (spec §4.5.5).
type NumericChunk struct {
	Values []float64
}

// WindowContext feeds NumericChunks to a WINDOWED function one chunk at a
// time.
type WindowContext interface {
	NextChunk() (NumericChunk, bool)
}

// Context is the minimal environment a Function needs, kept separate from
// interp.EvaluationContext so this package never imports interp (interp
// imports functions for dispatch; a narrower structural interface here
// avoids the cycle, and interp's EvaluationContext satisfies this
// interface for free).
type Context interface {
	Coercion() values.Coercion
	Now() (seconds float64, ok bool) // ok=false when no deterministic/wall-clock value is defined
	Cancelled() bool
}

// Function is one entry in the registry.
type Function interface {
	Name() string
	MinArgs() int
	Variadic() bool
	ArgSchema() []ArgSpec
	Caps() Caps
	EvalScalar(ctx Context, args []Arg) (values.Value, error)
	// EvalWindow is only invoked for CapWindowed functions; others may
	// return a zero Value and false.
	EvalWindow(ctx Context, win WindowContext) (values.Value, bool, error)
}

// Registry is the process-global, immutable-after-init function table
// (spec §5 "the function registry is process-global and immutable after
// initialization").
type Registry struct {
	byName map[string]Function
}

var (
	globalOnce     sync.Once
	globalRegistry *Registry
)

// Global returns the process-wide registry, initializing it with the
// built-in catalog on first use.
func Global() *Registry {
	globalOnce.Do(func() {
		globalRegistry = NewRegistry()
		RegisterBuiltins(globalRegistry)
	})
	return globalRegistry
}

// NewRegistry creates an empty registry (tests build their own instead of
// mutating the process-global one).
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Function)}
}

// Register adds fn, keyed case-insensitively by its upper-cased name.
func (r *Registry) Register(fn Function) {
	r.byName[upper(fn.Name())] = fn
}

// Lookup resolves a function by name (case-insensitive, per spreadsheet
// convention).
func (r *Registry) Lookup(name string) (Function, bool) {
	fn, ok := r.byName[upper(name)]
	return fn, ok
}

func upper(s string) string {
	out := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		out[i] = c
	}
	return string(out)
}

// Dispatch implements spec §4.5.5's strategy selection. prewarm is called
// (sequentially, ahead of time) for PARALLEL_ARGS functions before args is
// built, matching the "prewarm subexpressions" rule; callers that don't
// need prewarming may pass a nil func.
func Dispatch(ctx Context, fn Function, args []Arg, win WindowContext, prewarm func()) (values.Value, error) {
	caps := fn.Caps()

	if caps.Has(CapWindowed) && win != nil {
		if v, ok, err := fn.EvalWindow(ctx, win); ok {
			return v, err
		}
	}

	if caps.Has(CapParallelArgs) && prewarm != nil {
		prewarm()
	}

	return fn.EvalScalar(ctx, args)
}
