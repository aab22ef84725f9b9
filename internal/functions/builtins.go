package functions

import (
	"math"
	"strings"

	"github.com/latticecalc/engine/internal/values"
)

// RegisterBuiltins installs the representative built-in catalog (spec §1's
// "function contract and shared broadcasting/coercion semantics", not the
// full ~500-function set, which is explicitly out of scope). Each entry
// mirrors the teacher's FunctionCallNode.Eval switch case (builtin.go) for
// that name, adapted to the Function interface.
func RegisterBuiltins(r *Registry) {
	for _, fn := range []Function{
		simpleReduction{name: "SUM", identity: 0, fold: func(acc, x float64) float64 { return acc + x }},
		averageFn{},
		countFn{},
		countAFn{},
		extremeFn{name: "MAX", better: func(a, b float64) bool { return b > a }},
		extremeFn{name: "MIN", better: func(a, b float64) bool { return b < a }},
		ifFn{},
		boolReduceFn{name: "AND", identity: true, combine: func(acc, x bool) bool { return acc && x }},
		boolReduceFn{name: "OR", identity: false, combine: func(acc, x bool) bool { return acc || x }},
		notFn{},
		concatenateFn{},
		lenFn{},
		caseFn{name: "UPPER", transform: strings.ToUpper},
		caseFn{name: "LOWER", transform: strings.ToLower},
		caseFn{name: "TRIM", transform: func(s string) string { return strings.Join(strings.Fields(s), " ") }},
		unaryMathFn{name: "ABS", apply: math.Abs},
		roundFn{},
		unaryMathFn{name: "SQRT", apply: math.Sqrt},
		powerFn{},
		modFn{},
		piFn{},
		nowFn{},
		todayFn{},
		randFn{},
		ifErrorFn{name: "IFERROR", matches: func(v values.Value) bool { return v.IsError() }},
		ifErrorFn{name: "IFNA", matches: func(v values.Value) bool { return v.IsError() && v.Err == values.ErrNA }},
		isErrorFn{name: "ISERROR", matches: func(k values.ErrorKind) bool { return true }},
		isErrorFn{name: "ISNA", matches: func(k values.ErrorKind) bool { return k == values.ErrNA }},
		isErrorFn{name: "ISERR", matches: func(k values.ErrorKind) bool { return k != values.ErrNA }},
		sumIfFn{},
		naFn{},
	} {
		r.Register(fn)
	}
}

// --- shared helpers ---

func forEachNumeric(ctx Context, args []Arg, fn func(float64)) *values.Value {
	coer := ctx.Coercion()
	for _, a := range args {
		view := a.AsView()
		var propagated *values.Value
		view.ForEachCell(func(_, _ int, v values.Value) bool {
			if v.Kind == values.KindEmpty {
				return true
			}
			n, errv := coer.ToNumberLenient(v)
			if errv != nil {
				propagated = errv
				return false
			}
			fn(n)
			return true
		})
		if propagated != nil {
			return propagated
		}
	}
	return nil
}

// --- SUM / AVERAGE family ---

type simpleReduction struct {
	name     string
	identity float64
	fold     func(acc, x float64) float64
}

func (f simpleReduction) Name() string     { return f.name }
func (f simpleReduction) MinArgs() int     { return 1 }
func (f simpleReduction) Variadic() bool   { return true }
func (f simpleReduction) Caps() Caps       { return CapPure | CapReduction | CapNumericOnly }
func (f simpleReduction) ArgSchema() []ArgSpec {
	return []ArgSpec{{Kind: ArgNumber, Required: true, Shape: ShapeRange, Repeating: true}}
}
func (f simpleReduction) EvalWindow(ctx Context, win WindowContext) (values.Value, bool, error) {
	return values.Empty(), false, nil
}
func (f simpleReduction) EvalScalar(ctx Context, args []Arg) (values.Value, error) {
	acc := f.identity
	if errv := forEachNumeric(ctx, args, func(n float64) { acc = f.fold(acc, n) }); errv != nil {
		return *errv, nil
	}
	sanitized, errv := values.SanitizeNumeric(acc)
	if errv != nil {
		return *errv, nil
	}
	return values.Num(sanitized), nil
}

type averageFn struct{}

func (averageFn) Name() string   { return "AVERAGE" }
func (averageFn) MinArgs() int   { return 1 }
func (averageFn) Variadic() bool { return true }
func (averageFn) Caps() Caps     { return CapPure | CapReduction | CapNumericOnly }
func (averageFn) ArgSchema() []ArgSpec {
	return []ArgSpec{{Kind: ArgNumber, Required: true, Shape: ShapeRange, Repeating: true}}
}
func (averageFn) EvalWindow(ctx Context, win WindowContext) (values.Value, bool, error) {
	return values.Empty(), false, nil
}
func (averageFn) EvalScalar(ctx Context, args []Arg) (values.Value, error) {
	var sum float64
	var n int
	if errv := forEachNumeric(ctx, args, func(x float64) { sum += x; n++ }); errv != nil {
		return *errv, nil
	}
	if n == 0 {
		return values.Error(values.ErrDiv), nil
	}
	return values.Num(sum / float64(n)), nil
}

type countFn struct{}

func (countFn) Name() string             { return "COUNT" }
func (countFn) MinArgs() int             { return 1 }
func (countFn) Variadic() bool           { return true }
func (countFn) Caps() Caps               { return CapPure | CapReduction }
func (countFn) ArgSchema() []ArgSpec     { return []ArgSpec{{Kind: ArgAny, Required: true, Shape: ShapeRange, Repeating: true}} }
func (countFn) EvalWindow(ctx Context, win WindowContext) (values.Value, bool, error) {
	return values.Empty(), false, nil
}
func (countFn) EvalScalar(ctx Context, args []Arg) (values.Value, error) {
	n := 0
	for _, a := range args {
		a.AsView().ForEachCell(func(_, _ int, v values.Value) bool {
			switch v.Kind {
			case values.KindInt, values.KindNumber, values.KindDate, values.KindDateTime, values.KindTime, values.KindDuration:
				n++
			}
			return true
		})
	}
	return values.IntV(int64(n)), nil
}

type countAFn struct{}

func (countAFn) Name() string         { return "COUNTA" }
func (countAFn) MinArgs() int         { return 1 }
func (countAFn) Variadic() bool       { return true }
func (countAFn) Caps() Caps           { return CapPure | CapReduction }
func (countAFn) ArgSchema() []ArgSpec { return []ArgSpec{{Kind: ArgAny, Required: true, Shape: ShapeRange, Repeating: true}} }
func (countAFn) EvalWindow(ctx Context, win WindowContext) (values.Value, bool, error) {
	return values.Empty(), false, nil
}
func (countAFn) EvalScalar(ctx Context, args []Arg) (values.Value, error) {
	n := 0
	for _, a := range args {
		a.AsView().ForEachCell(func(_, _ int, v values.Value) bool {
			if v.Kind != values.KindEmpty {
				n++
			}
			return true
		})
	}
	return values.IntV(int64(n)), nil
}

type extremeFn struct {
	name   string
	better func(current, candidate float64) bool
}

func (f extremeFn) Name() string   { return f.name }
func (f extremeFn) MinArgs() int   { return 1 }
func (f extremeFn) Variadic() bool { return true }
func (f extremeFn) Caps() Caps     { return CapPure | CapReduction | CapNumericOnly }
func (f extremeFn) ArgSchema() []ArgSpec {
	return []ArgSpec{{Kind: ArgNumber, Required: true, Shape: ShapeRange, Repeating: true}}
}
func (f extremeFn) EvalWindow(ctx Context, win WindowContext) (values.Value, bool, error) {
	return values.Empty(), false, nil
}
func (f extremeFn) EvalScalar(ctx Context, args []Arg) (values.Value, error) {
	have := false
	var best float64
	if errv := forEachNumeric(ctx, args, func(n float64) {
		if !have || f.better(best, n) {
			best, have = n, true
		}
	}); errv != nil {
		return *errv, nil
	}
	if !have {
		return values.Num(0), nil
	}
	return values.Num(best), nil
}

// --- logical ---

type ifFn struct{}

func (ifFn) Name() string   { return "IF" }
func (ifFn) MinArgs() int   { return 2 }
func (ifFn) Variadic() bool { return true }
func (ifFn) Caps() Caps     { return CapPure | CapShortCircuit }
func (ifFn) ArgSchema() []ArgSpec {
	return []ArgSpec{
		{Kind: ArgLogical, Required: true},
		{Kind: ArgAny, Required: true},
		{Kind: ArgAny, Required: false},
	}
}
func (ifFn) EvalWindow(ctx Context, win WindowContext) (values.Value, bool, error) {
	return values.Empty(), false, nil
}
func (ifFn) EvalScalar(ctx Context, args []Arg) (values.Value, error) {
	if len(args) < 2 {
		return values.Error(values.ErrValue), nil
	}
	cond := args[0].AsScalar()
	truthy, errv := values.IsTruthy(cond)
	if errv != nil {
		return *errv, nil
	}
	if truthy {
		return args[1].AsScalar(), nil
	}
	if len(args) >= 3 {
		return args[2].AsScalar(), nil
	}
	return values.Bool(false), nil
}

type boolReduceFn struct {
	name     string
	identity bool
	combine  func(acc, x bool) bool
}

func (f boolReduceFn) Name() string   { return f.name }
func (f boolReduceFn) MinArgs() int   { return 1 }
func (f boolReduceFn) Variadic() bool { return true }
func (f boolReduceFn) Caps() Caps     { return CapPure | CapBoolOnly | CapReduction }
func (f boolReduceFn) ArgSchema() []ArgSpec {
	return []ArgSpec{{Kind: ArgLogical, Required: true, Shape: ShapeRange, Repeating: true}}
}
func (f boolReduceFn) EvalWindow(ctx Context, win WindowContext) (values.Value, bool, error) {
	return values.Empty(), false, nil
}
func (f boolReduceFn) EvalScalar(ctx Context, args []Arg) (values.Value, error) {
	acc := f.identity
	for _, a := range args {
		var propagated *values.Value
		a.AsView().ForEachCell(func(_, _ int, v values.Value) bool {
			if v.Kind == values.KindEmpty {
				return true
			}
			truthy, errv := values.IsTruthy(v)
			if errv != nil {
				propagated = errv
				return false
			}
			acc = f.combine(acc, truthy)
			return true
		})
		if propagated != nil {
			return *propagated, nil
		}
	}
	return values.Bool(acc), nil
}

type notFn struct{}

func (notFn) Name() string             { return "NOT" }
func (notFn) MinArgs() int             { return 1 }
func (notFn) Variadic() bool           { return false }
func (notFn) Caps() Caps               { return CapPure | CapBoolOnly }
func (notFn) ArgSchema() []ArgSpec     { return []ArgSpec{{Kind: ArgLogical, Required: true}} }
func (notFn) EvalWindow(ctx Context, win WindowContext) (values.Value, bool, error) {
	return values.Empty(), false, nil
}
func (notFn) EvalScalar(ctx Context, args []Arg) (values.Value, error) {
	if len(args) != 1 {
		return values.Error(values.ErrValue), nil
	}
	truthy, errv := values.IsTruthy(args[0].AsScalar())
	if errv != nil {
		return *errv, nil
	}
	return values.Bool(!truthy), nil
}

// --- text ---

type concatenateFn struct{}

func (concatenateFn) Name() string   { return "CONCATENATE" }
func (concatenateFn) MinArgs() int   { return 1 }
func (concatenateFn) Variadic() bool { return true }
func (concatenateFn) Caps() Caps     { return CapPure }
func (concatenateFn) ArgSchema() []ArgSpec {
	return []ArgSpec{{Kind: ArgText, Required: true, Repeating: true}}
}
func (concatenateFn) EvalWindow(ctx Context, win WindowContext) (values.Value, bool, error) {
	return values.Empty(), false, nil
}
func (concatenateFn) EvalScalar(ctx Context, args []Arg) (values.Value, error) {
	coer := ctx.Coercion()
	var sb strings.Builder
	for _, a := range args {
		s, errv := coer.ToTextInvariant(a.AsScalar())
		if errv != nil {
			return *errv, nil
		}
		sb.WriteString(s)
	}
	return values.Text(sb.String()), nil
}

type lenFn struct{}

func (lenFn) Name() string             { return "LEN" }
func (lenFn) MinArgs() int             { return 1 }
func (lenFn) Variadic() bool           { return false }
func (lenFn) Caps() Caps               { return CapPure }
func (lenFn) ArgSchema() []ArgSpec     { return []ArgSpec{{Kind: ArgText, Required: true}} }
func (lenFn) EvalWindow(ctx Context, win WindowContext) (values.Value, bool, error) {
	return values.Empty(), false, nil
}
func (lenFn) EvalScalar(ctx Context, args []Arg) (values.Value, error) {
	if len(args) != 1 {
		return values.Error(values.ErrValue), nil
	}
	s, errv := ctx.Coercion().ToTextInvariant(args[0].AsScalar())
	if errv != nil {
		return *errv, nil
	}
	return values.IntV(int64(len([]rune(s)))), nil
}

type caseFn struct {
	name      string
	transform func(string) string
}

func (f caseFn) Name() string             { return f.name }
func (f caseFn) MinArgs() int             { return 1 }
func (f caseFn) Variadic() bool           { return false }
func (f caseFn) Caps() Caps               { return CapPure }
func (f caseFn) ArgSchema() []ArgSpec     { return []ArgSpec{{Kind: ArgText, Required: true}} }
func (f caseFn) EvalWindow(ctx Context, win WindowContext) (values.Value, bool, error) {
	return values.Empty(), false, nil
}
func (f caseFn) EvalScalar(ctx Context, args []Arg) (values.Value, error) {
	if len(args) != 1 {
		return values.Error(values.ErrValue), nil
	}
	s, errv := ctx.Coercion().ToTextInvariant(args[0].AsScalar())
	if errv != nil {
		return *errv, nil
	}
	return values.Text(f.transform(s)), nil
}

// --- math ---

type unaryMathFn struct {
	name  string
	apply func(float64) float64
}

func (f unaryMathFn) Name() string             { return f.name }
func (f unaryMathFn) MinArgs() int             { return 1 }
func (f unaryMathFn) Variadic() bool           { return false }
func (f unaryMathFn) Caps() Caps               { return CapPure | CapNumericOnly }
func (f unaryMathFn) ArgSchema() []ArgSpec     { return []ArgSpec{{Kind: ArgNumber, Required: true}} }
func (f unaryMathFn) EvalWindow(ctx Context, win WindowContext) (values.Value, bool, error) {
	return values.Empty(), false, nil
}
func (f unaryMathFn) EvalScalar(ctx Context, args []Arg) (values.Value, error) {
	if len(args) != 1 {
		return values.Error(values.ErrValue), nil
	}
	n, errv := ctx.Coercion().ToNumberLenient(args[0].AsScalar())
	if errv != nil {
		return *errv, nil
	}
	out, errv := values.SanitizeNumeric(f.apply(n))
	if errv != nil {
		return *errv, nil
	}
	return values.Num(out), nil
}

type roundFn struct{}

func (roundFn) Name() string   { return "ROUND" }
func (roundFn) MinArgs() int   { return 2 }
func (roundFn) Variadic() bool { return false }
func (roundFn) Caps() Caps     { return CapPure | CapNumericOnly }
func (roundFn) ArgSchema() []ArgSpec {
	return []ArgSpec{{Kind: ArgNumber, Required: true}, {Kind: ArgNumber, Required: true}}
}
func (roundFn) EvalWindow(ctx Context, win WindowContext) (values.Value, bool, error) {
	return values.Empty(), false, nil
}
func (roundFn) EvalScalar(ctx Context, args []Arg) (values.Value, error) {
	if len(args) != 2 {
		return values.Error(values.ErrValue), nil
	}
	coer := ctx.Coercion()
	n, errv := coer.ToNumberLenient(args[0].AsScalar())
	if errv != nil {
		return *errv, nil
	}
	digits, errv := coer.ToNumberLenient(args[1].AsScalar())
	if errv != nil {
		return *errv, nil
	}
	mult := math.Pow(10, digits)
	out, errv := values.SanitizeNumeric(math.Round(n*mult) / mult)
	if errv != nil {
		return *errv, nil
	}
	return values.Num(out), nil
}

type powerFn struct{}

func (powerFn) Name() string   { return "POWER" }
func (powerFn) MinArgs() int   { return 2 }
func (powerFn) Variadic() bool { return false }
func (powerFn) Caps() Caps     { return CapPure | CapNumericOnly }
func (powerFn) ArgSchema() []ArgSpec {
	return []ArgSpec{{Kind: ArgNumber, Required: true}, {Kind: ArgNumber, Required: true}}
}
func (powerFn) EvalWindow(ctx Context, win WindowContext) (values.Value, bool, error) {
	return values.Empty(), false, nil
}
func (powerFn) EvalScalar(ctx Context, args []Arg) (values.Value, error) {
	if len(args) != 2 {
		return values.Error(values.ErrValue), nil
	}
	coer := ctx.Coercion()
	base, errv := coer.ToNumberLenient(args[0].AsScalar())
	if errv != nil {
		return *errv, nil
	}
	exp, errv := coer.ToNumberLenient(args[1].AsScalar())
	if errv != nil {
		return *errv, nil
	}
	if base < 0 && exp != math.Trunc(exp) {
		return values.Error(values.ErrNum), nil
	}
	out, errv := values.SanitizeNumeric(math.Pow(base, exp))
	if errv != nil {
		return *errv, nil
	}
	return values.Num(out), nil
}

type modFn struct{}

func (modFn) Name() string   { return "MOD" }
func (modFn) MinArgs() int   { return 2 }
func (modFn) Variadic() bool { return false }
func (modFn) Caps() Caps     { return CapPure | CapNumericOnly }
func (modFn) ArgSchema() []ArgSpec {
	return []ArgSpec{{Kind: ArgNumber, Required: true}, {Kind: ArgNumber, Required: true}}
}
func (modFn) EvalWindow(ctx Context, win WindowContext) (values.Value, bool, error) {
	return values.Empty(), false, nil
}
func (modFn) EvalScalar(ctx Context, args []Arg) (values.Value, error) {
	if len(args) != 2 {
		return values.Error(values.ErrValue), nil
	}
	coer := ctx.Coercion()
	a, errv := coer.ToNumberLenient(args[0].AsScalar())
	if errv != nil {
		return *errv, nil
	}
	b, errv := coer.ToNumberLenient(args[1].AsScalar())
	if errv != nil {
		return *errv, nil
	}
	if b == 0 {
		return values.Error(values.ErrDiv), nil
	}
	out, errv := values.SanitizeNumeric(math.Mod(a, b))
	if errv != nil {
		return *errv, nil
	}
	return values.Num(out), nil
}

type piFn struct{}

func (piFn) Name() string                { return "PI" }
func (piFn) MinArgs() int                { return 0 }
func (piFn) Variadic() bool              { return false }
func (piFn) Caps() Caps                  { return CapPure }
func (piFn) ArgSchema() []ArgSpec        { return nil }
func (piFn) EvalWindow(ctx Context, win WindowContext) (values.Value, bool, error) {
	return values.Empty(), false, nil
}
func (piFn) EvalScalar(ctx Context, args []Arg) (values.Value, error) { return values.Num(math.Pi), nil }

// --- volatile ---

type nowFn struct{}

func (nowFn) Name() string         { return "NOW" }
func (nowFn) MinArgs() int         { return 0 }
func (nowFn) Variadic() bool       { return false }
func (nowFn) Caps() Caps           { return CapVolatile }
func (nowFn) ArgSchema() []ArgSpec { return nil }
func (nowFn) EvalWindow(ctx Context, win WindowContext) (values.Value, bool, error) {
	return values.Empty(), false, nil
}
func (nowFn) EvalScalar(ctx Context, args []Arg) (values.Value, error) {
	serial, ok := ctx.Now()
	if !ok {
		return values.Error(values.ErrError), nil
	}
	return values.Num(serial), nil
}

type todayFn struct{}

func (todayFn) Name() string         { return "TODAY" }
func (todayFn) MinArgs() int         { return 0 }
func (todayFn) Variadic() bool       { return false }
func (todayFn) Caps() Caps           { return CapVolatile }
func (todayFn) ArgSchema() []ArgSpec { return nil }
func (todayFn) EvalWindow(ctx Context, win WindowContext) (values.Value, bool, error) {
	return values.Empty(), false, nil
}
func (todayFn) EvalScalar(ctx Context, args []Arg) (values.Value, error) {
	serial, ok := ctx.Now()
	if !ok {
		return values.Error(values.ErrError), nil
	}
	return values.Num(math.Trunc(serial)), nil
}

type randFn struct{}

func (randFn) Name() string         { return "RAND" }
func (randFn) MinArgs() int         { return 0 }
func (randFn) Variadic() bool       { return false }
func (randFn) Caps() Caps           { return CapVolatile }
func (randFn) ArgSchema() []ArgSpec { return nil }
func (randFn) EvalWindow(ctx Context, win WindowContext) (values.Value, bool, error) {
	return values.Empty(), false, nil
}
func (randFn) EvalScalar(ctx Context, args []Arg) (values.Value, error) {
	serial, ok := ctx.Now()
	if !ok {
		return values.Error(values.ErrError), nil
	}
	frac := serial - math.Trunc(serial)
	if frac < 0 {
		frac += 1
	}
	return values.Num(frac), nil
}

// --- error-handling ---

type ifErrorFn struct {
	name    string
	matches func(values.Value) bool
}

func (f ifErrorFn) Name() string   { return f.name }
func (f ifErrorFn) MinArgs() int   { return 2 }
func (f ifErrorFn) Variadic() bool { return false }
func (f ifErrorFn) Caps() Caps     { return CapPure | CapShortCircuit }
func (f ifErrorFn) ArgSchema() []ArgSpec {
	return []ArgSpec{{Kind: ArgAny, Required: true}, {Kind: ArgAny, Required: true}}
}
func (f ifErrorFn) EvalWindow(ctx Context, win WindowContext) (values.Value, bool, error) {
	return values.Empty(), false, nil
}
func (f ifErrorFn) EvalScalar(ctx Context, args []Arg) (values.Value, error) {
	if len(args) != 2 {
		return values.Error(values.ErrValue), nil
	}
	v := args[0].AsScalar()
	if f.matches(v) {
		return args[1].AsScalar(), nil
	}
	return v, nil
}

type isErrorFn struct {
	name    string
	matches func(values.ErrorKind) bool
}

func (f isErrorFn) Name() string             { return f.name }
func (f isErrorFn) MinArgs() int             { return 1 }
func (f isErrorFn) Variadic() bool           { return false }
func (f isErrorFn) Caps() Caps               { return CapPure }
func (f isErrorFn) ArgSchema() []ArgSpec     { return []ArgSpec{{Kind: ArgAny, Required: true}} }
func (f isErrorFn) EvalWindow(ctx Context, win WindowContext) (values.Value, bool, error) {
	return values.Empty(), false, nil
}
func (f isErrorFn) EvalScalar(ctx Context, args []Arg) (values.Value, error) {
	if len(args) != 1 {
		return values.Error(values.ErrValue), nil
	}
	v := args[0].AsScalar()
	return values.Bool(v.IsError() && f.matches(v.Err)), nil
}

type naFn struct{}

func (naFn) Name() string                { return "NA" }
func (naFn) MinArgs() int                { return 0 }
func (naFn) Variadic() bool              { return false }
func (naFn) Caps() Caps                  { return CapPure }
func (naFn) ArgSchema() []ArgSpec        { return nil }
func (naFn) EvalWindow(ctx Context, win WindowContext) (values.Value, bool, error) {
	return values.Empty(), false, nil
}
func (naFn) EvalScalar(ctx Context, args []Arg) (values.Value, error) {
	return values.Error(values.ErrNA), nil
}

// --- lookup-adjacent ---

type sumIfFn struct{}

func (sumIfFn) Name() string   { return "SUMIF" }
func (sumIfFn) MinArgs() int   { return 2 }
func (sumIfFn) Variadic() bool { return true }
func (sumIfFn) Caps() Caps     { return CapPure | CapLookup }
func (sumIfFn) ArgSchema() []ArgSpec {
	return []ArgSpec{
		{Kind: ArgRange, Required: true, Shape: ShapeRange},
		{Kind: ArgAny, Required: true},
		{Kind: ArgRange, Required: false, Shape: ShapeRange},
	}
}
func (sumIfFn) EvalWindow(ctx Context, win WindowContext) (values.Value, bool, error) {
	return values.Empty(), false, nil
}
func (sumIfFn) EvalScalar(ctx Context, args []Arg) (values.Value, error) {
	if len(args) < 2 {
		return values.Error(values.ErrValue), nil
	}
	coer := ctx.Coercion()
	rng := args[0].AsView()
	criterion := args[1].AsScalar()
	sumRange := rng
	if len(args) >= 3 {
		sumRange = args[2].AsView()
	}

	rr, rc := rng.Dims()
	var sum float64
	var propagated *values.Value
	for r := 0; r < rr; r++ {
		for c := 0; c < rc; c++ {
			cmp, errv := coer.Compare(rng.Get(r, c), criterion)
			if errv != nil {
				propagated = errv
				continue
			}
			if cmp != 0 {
				continue
			}
			n, errv := coer.ToNumberLenient(sumRange.Get(r, c))
			if errv != nil {
				propagated = errv
				continue
			}
			sum += n
		}
	}
	if propagated != nil {
		return *propagated, nil
	}
	out, errv := values.SanitizeNumeric(sum)
	if errv != nil {
		return *errv, nil
	}
	return values.Num(out), nil
}
