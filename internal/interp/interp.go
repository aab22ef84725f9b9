package interp

import (
	"math"
	"strings"

	"github.com/latticecalc/engine/internal/ast"
	"github.com/latticecalc/engine/internal/functions"
	"github.com/latticecalc/engine/internal/rangeview"
	"github.com/latticecalc/engine/internal/values"
)

// Interpreter evaluates one AST to a LiteralValue.
type Interpreter struct{}

// New creates an Interpreter. It carries no state of its own — every piece
// of evaluation state (date system, functions, cancellation) lives on the
// EvaluationContext passed to Eval, so one Interpreter is safely shared
// across goroutines evaluating different formulas in the same layer.
func New() *Interpreter { return &Interpreter{} }

// Eval evaluates node against ctx.
func (ip *Interpreter) Eval(node ast.Node, ctx EvaluationContext) (values.Value, error) {
	if ctx.Cancelled() {
		return values.Error(values.ErrCancelled), nil
	}

	switch n := node.(type) {
	case *ast.NumberLit:
		return values.Num(n.Value), nil
	case *ast.StringLit:
		return values.Text(n.Value), nil
	case *ast.BoolLit:
		return values.Bool(n.Value), nil
	case *ast.CellRef:
		return ip.evalCellRef(n, ctx), nil
	case *ast.RangeRef:
		return ip.evalRangeRefAsScalar(n, ctx)
	case *ast.NameRef:
		return ip.evalNameRef(n, ctx)
	case *ast.UnaryOp:
		return ip.evalUnary(n, ctx)
	case *ast.BinaryOp:
		return ip.evalBinary(n, ctx)
	case *ast.FuncCall:
		return ip.evalFuncCall(n, ctx)
	case *ast.ArrayLit:
		return ip.evalArrayLit(n, ctx)
	default:
		return values.Error(values.ErrNImpl), nil
	}
}

func (ip *Interpreter) qualify(hasSheet bool, name string, ctx EvaluationContext, setSheetID func(uint32)) bool {
	if !hasSheet {
		setSheetID(ctx.CurrentSheet())
		return true
	}
	id, ok := ctx.ResolveSheet(name)
	if !ok {
		return false
	}
	setSheetID(id)
	return true
}

func (ip *Interpreter) evalCellRef(n *ast.CellRef, ctx EvaluationContext) values.Value {
	if n.Deleted {
		return values.Error(values.ErrRef)
	}
	resolved := *n
	ok := ip.qualify(n.HasSheet, n.SheetName, ctx, func(id uint32) { resolved.SheetID = id })
	if !ok {
		return values.Error(values.ErrRef)
	}
	return ctx.ResolveCell(&resolved)
}

func (ip *Interpreter) evalRangeRefAsScalar(n *ast.RangeRef, ctx EvaluationContext) (values.Value, error) {
	if n.Deleted {
		return values.Error(values.ErrRef), nil
	}
	view, err := ctx.ResolveRange(n)
	if err != nil {
		return values.Error(values.ErrRef), nil
	}
	if v, ok := view.As1x1(); ok {
		return v, nil
	}
	// A multi-cell range used in scalar position without an aggregating
	// function implicitly takes its top-left cell, matching the teacher's
	// RangeNode.Eval fallback (parser.go) when a range appears bare.
	return view.Get(0, 0), nil
}

func (ip *Interpreter) evalNameRef(n *ast.NameRef, ctx EvaluationContext) (values.Value, error) {
	v, view, ok, err := ctx.ResolveName(n)
	if err != nil {
		return values.Error(values.ErrName), nil
	}
	if !ok {
		return values.Error(values.ErrName), nil
	}
	if view != nil {
		if v1, ok := view.As1x1(); ok {
			return v1, nil
		}
		return view.Get(0, 0), nil
	}
	return v, nil
}

func (ip *Interpreter) evalArrayLit(n *ast.ArrayLit, ctx EvaluationContext) (values.Value, error) {
	rows := make([][]values.Value, len(n.Rows))
	for r, row := range n.Rows {
		out := make([]values.Value, len(row))
		for c, cell := range row {
			v, err := ip.Eval(cell, ctx)
			if err != nil {
				return values.Empty(), err
			}
			out[c] = v
		}
		rows[r] = out
	}
	return values.ArrayV(rows), nil
}

func (ip *Interpreter) evalUnary(n *ast.UnaryOp, ctx EvaluationContext) (values.Value, error) {
	v, err := ip.Eval(n.Operand, ctx)
	if err != nil {
		return values.Empty(), err
	}
	if v.IsError() {
		return v, nil
	}
	coer := ctx.Coercion()
	switch n.Op {
	case "-":
		num, errv := coer.ToNumberLenient(v)
		if errv != nil {
			return *errv, nil
		}
		return values.Num(-num), nil
	case "+":
		num, errv := coer.ToNumberLenient(v)
		if errv != nil {
			return *errv, nil
		}
		return values.Num(num), nil
	case "%":
		num, errv := coer.ToNumberLenient(v)
		if errv != nil {
			return *errv, nil
		}
		return values.Num(num / 100), nil
	default:
		return values.Error(values.ErrNImpl), nil
	}
}

func (ip *Interpreter) evalBinary(n *ast.BinaryOp, ctx EvaluationContext) (values.Value, error) {
	if n.Op == ":" {
		// Reference-combination outside a reference-consuming position
		// (spec §4.5.3: "returns #REF! outside reference context"); this
		// Interpreter only reaches BinaryOp(":") when it wasn't already
		// folded into a RangeRef by the AST contract.
		return values.Error(values.ErrRef), nil
	}

	left, err := ip.evalBinaryOperand(n.Left, ctx)
	if err != nil {
		return values.Empty(), err
	}
	right, err := ip.evalBinaryOperand(n.Right, ctx)
	if err != nil {
		return values.Empty(), err
	}

	if left.IsError() {
		return left, nil
	}
	if right.IsError() {
		return right, nil
	}

	coer := ctx.Coercion()

	if left.IsArray() || right.IsArray() {
		return broadcastBinary(n.Op, left, right, coer)
	}

	return applyScalarOp(n.Op, left, right, coer)
}

// evalBinaryOperand evaluates one side of a BinaryOp, materializing a
// multi-cell RangeRef/NameRef-to-range into an Array value instead of
// collapsing it to its top-left cell (the scalar-position fallback
// evalRangeRefAsScalar/evalNameRef use). Spec §4.5.3 E10 requires
// range-vs-range and range-vs-scalar arithmetic to broadcast elementwise
// (=A1:A3*B1:B3 -> {10,40,90}, not 10), which only happens if both sides
// reach broadcastBinary as arrays when they're not 1x1.
func (ip *Interpreter) evalBinaryOperand(node ast.Node, ctx EvaluationContext) (values.Value, error) {
	switch n := node.(type) {
	case *ast.RangeRef:
		if n.Deleted {
			return values.Error(values.ErrRef), nil
		}
		view, err := ctx.ResolveRange(n)
		if err != nil {
			return values.Error(values.ErrRef), nil
		}
		return materializeView(view), nil
	case *ast.NameRef:
		v, view, ok, err := ctx.ResolveName(n)
		if err != nil {
			return values.Error(values.ErrName), nil
		}
		if !ok {
			return values.Error(values.ErrName), nil
		}
		if view != nil {
			return materializeView(view), nil
		}
		return v, nil
	default:
		return ip.Eval(node, ctx)
	}
}

// materializeView collapses a RangeView to its sole value when it is 1x1,
// matching every other scalar-position range read, and otherwise copies it
// into an Array value so broadcastBinary can operate on it.
func materializeView(view rangeview.View) values.Value {
	if v, ok := view.As1x1(); ok {
		return v
	}
	rows, cols := view.Dims()
	out := make([][]values.Value, rows)
	for r := 0; r < rows; r++ {
		row := make([]values.Value, cols)
		for c := 0; c < cols; c++ {
			row[c] = view.Get(r, c)
		}
		out[r] = row
	}
	return values.ArrayV(out)
}

// applyScalarOp implements spec §4.5.3's per-operator rules for one pair of
// non-array operands, grounded on the teacher's BinaryOpNode.Eval switch.
func applyScalarOp(op string, left, right values.Value, coer values.Coercion) (values.Value, error) {
	switch op {
	case "+", "-", "*":
		l, errv := coer.ToNumberLenient(left)
		if errv != nil {
			return *errv, nil
		}
		r, errv := coer.ToNumberLenient(right)
		if errv != nil {
			return *errv, nil
		}
		var out float64
		switch op {
		case "+":
			out = l + r
		case "-":
			out = l - r
		case "*":
			out = l * r
		}
		sanitized, errv := values.SanitizeNumeric(out)
		if errv != nil {
			return *errv, nil
		}
		return values.Num(sanitized), nil

	case "/":
		l, errv := coer.ToNumberLenient(left)
		if errv != nil {
			return *errv, nil
		}
		r, errv := coer.ToNumberLenient(right)
		if errv != nil {
			return *errv, nil
		}
		if r == 0 {
			return values.Error(values.ErrDiv), nil
		}
		sanitized, errv := values.SanitizeNumeric(l / r)
		if errv != nil {
			return *errv, nil
		}
		return values.Num(sanitized), nil

	case "^":
		l, errv := coer.ToNumberLenient(left)
		if errv != nil {
			return *errv, nil
		}
		r, errv := coer.ToNumberLenient(right)
		if errv != nil {
			return *errv, nil
		}
		if l < 0 && r != math.Trunc(r) {
			return values.Error(values.ErrNum), nil
		}
		sanitized, errv := values.SanitizeNumeric(math.Pow(l, r))
		if errv != nil {
			return *errv, nil
		}
		return values.Num(sanitized), nil

	case "&":
		l, errv := coer.ToTextInvariant(left)
		if errv != nil {
			return *errv, nil
		}
		r, errv := coer.ToTextInvariant(right)
		if errv != nil {
			return *errv, nil
		}
		return values.Text(l + r), nil

	case "=", "<>", "<", "<=", ">", ">=":
		cmp, errv := coer.Compare(left, right)
		if errv != nil {
			return *errv, nil
		}
		var result bool
		switch op {
		case "=":
			result = cmp == 0
		case "<>":
			result = cmp != 0
		case "<":
			result = cmp < 0
		case "<=":
			result = cmp <= 0
		case ">":
			result = cmp > 0
		case ">=":
			result = cmp >= 0
		}
		return values.Bool(result), nil

	default:
		return values.Error(values.ErrNImpl), nil
	}
}

// broadcastBinary implements spec §4.5.3's NumPy-style broadcasting: shapes
// right-aligned, each axis equal or one must be 1, scalar treated as 1x1.
func broadcastBinary(op string, left, right values.Value, coer values.Coercion) (values.Value, error) {
	lr, lc := left.Dims()
	rr, rc := right.Dims()

	rows, rowsOK := broadcastAxis(lr, rr)
	cols, colsOK := broadcastAxis(lc, rc)
	if !rowsOK || !colsOK {
		return values.Error(values.ErrValue), nil
	}

	out := make([][]values.Value, rows)
	for r := 0; r < rows; r++ {
		row := make([]values.Value, cols)
		for c := 0; c < cols; c++ {
			lv := left.At(pickIndex(r, lr), pickIndex(c, lc))
			rv := right.At(pickIndex(r, rr), pickIndex(c, rc))
			v, err := applyScalarOp(op, lv, rv, coer)
			if err != nil {
				return values.Empty(), err
			}
			row[c] = v
		}
		out[r] = row
	}
	return values.ArrayV(out), nil
}

func broadcastAxis(a, b int) (int, bool) {
	if a == b {
		return a, true
	}
	if a == 1 {
		return b, true
	}
	if b == 1 {
		return a, true
	}
	return 0, false
}

func pickIndex(i, dim int) int {
	if dim == 1 {
		return 0
	}
	return i
}

// evalFuncCall resolves a function, evaluates its arguments into
// functions.Arg (scalar or range per the AST shape), and dispatches per
// spec §4.5.5.
func (ip *Interpreter) evalFuncCall(n *ast.FuncCall, ctx EvaluationContext) (values.Value, error) {
	fn, ok := ctx.Functions().Lookup(n.Name)
	if !ok {
		return values.Error(values.ErrName), nil
	}

	if len(n.Args) < fn.MinArgs() {
		return values.Error(values.ErrValue), nil
	}

	args := make([]functions.Arg, len(n.Args))
	for i, a := range n.Args {
		arg, err := ip.evalArg(a, ctx)
		if err != nil {
			return values.Empty(), err
		}
		args[i] = arg
	}

	for _, a := range args {
		if !a.IsRange && a.Scalar.IsError() {
			caps := fn.Caps()
			if !(caps.Has(functions.CapShortCircuit) || strings.EqualFold(n.Name, "IFERROR") || strings.EqualFold(n.Name, "IFNA") || strings.EqualFold(n.Name, "ISERROR") || strings.EqualFold(n.Name, "ISNA") || strings.EqualFold(n.Name, "ISERR")) {
				return a.Scalar, nil
			}
		}
	}

	fctx := funcContext{ctx: ctx}
	out, err := functions.Dispatch(fctx, fn, args, nil, nil)
	if err != nil {
		return values.Empty(), err
	}
	return out, nil
}

// evalArg evaluates one call argument to a functions.Arg, keeping it as a
// RangeView when the AST node is itself a range/name-to-range so reduction
// functions can iterate without the Interpreter materializing the range
// into a Value first.
func (ip *Interpreter) evalArg(node ast.Node, ctx EvaluationContext) (functions.Arg, error) {
	switch n := node.(type) {
	case *ast.RangeRef:
		if n.Deleted {
			return functions.Arg{Scalar: values.Error(values.ErrRef)}, nil
		}
		view, err := ctx.ResolveRange(n)
		if err != nil {
			return functions.Arg{Scalar: values.Error(values.ErrRef)}, nil
		}
		return functions.Arg{IsRange: true, Range: view}, nil
	case *ast.NameRef:
		v, view, ok, err := ctx.ResolveName(n)
		if err != nil || !ok {
			return functions.Arg{Scalar: values.Error(values.ErrName)}, nil
		}
		if view != nil {
			return functions.Arg{IsRange: true, Range: view}, nil
		}
		return functions.Arg{Scalar: v}, nil
	default:
		v, err := ip.Eval(node, ctx)
		if err != nil {
			return functions.Arg{}, err
		}
		if v.IsArray() {
			return functions.Arg{IsRange: true, Range: rangeview.Owned{Rows: v.Array}}, nil
		}
		return functions.Arg{Scalar: v}, nil
	}
}
