package ast

// Visitor is called for every CellRef and RangeRef reached while walking a
// tree. Returning a non-nil replacement node swaps that node in place,
// which is how the structural editor (spec §4.7) rewrites references
// in-place while building a fresh tree (nodes stay immutable; Walk builds
// new parents as needed).
type Visitor struct {
	VisitCellRef  func(*CellRef) Node
	VisitRangeRef func(*RangeRef) Node
	VisitNameRef  func(*NameRef) Node
}

// Walk rewrites n (and its descendants) using v, returning a new tree. If v
// makes no replacements, Walk still returns freshly-allocated parent nodes
// for any node on the path to a changed child, per the "edits allocate
// fresh ASTs" invariant in spec §3.
func Walk(n Node, v Visitor) Node {
	switch t := n.(type) {
	case *CellRef:
		if v.VisitCellRef != nil {
			if r := v.VisitCellRef(t); r != nil {
				return r
			}
		}
		return t
	case *RangeRef:
		if v.VisitRangeRef != nil {
			if r := v.VisitRangeRef(t); r != nil {
				return r
			}
		}
		return t
	case *NameRef:
		if v.VisitNameRef != nil {
			if r := v.VisitNameRef(t); r != nil {
				return r
			}
		}
		return t
	case *UnaryOp:
		op := Walk(t.Operand, v)
		n2 := *t
		n2.Operand = op
		return &n2
	case *BinaryOp:
		l := Walk(t.Left, v)
		r := Walk(t.Right, v)
		n2 := *t
		n2.Left, n2.Right = l, r
		return &n2
	case *FuncCall:
		args := make([]Node, len(t.Args))
		for i, a := range t.Args {
			args[i] = Walk(a, v)
		}
		n2 := *t
		n2.Args = args
		return &n2
	case *ArrayLit:
		rows := make([][]Node, len(t.Rows))
		for i, row := range t.Rows {
			nr := make([]Node, len(row))
			for j, c := range row {
				nr[j] = Walk(c, v)
			}
			rows[i] = nr
		}
		n2 := *t
		n2.Rows = rows
		return &n2
	default:
		return n
	}
}

// Collect walks n and invokes the matching callback for every CellRef,
// RangeRef, NameRef, and FuncCall reached — used by dependency extraction
// (depgraph) which never needs to rewrite, only observe.
func Collect(n Node, onCell func(*CellRef), onRange func(*RangeRef), onName func(*NameRef), onFunc func(*FuncCall)) {
	switch t := n.(type) {
	case *CellRef:
		if onCell != nil {
			onCell(t)
		}
	case *RangeRef:
		if onRange != nil {
			onRange(t)
		}
	case *NameRef:
		if onName != nil {
			onName(t)
		}
	case *UnaryOp:
		Collect(t.Operand, onCell, onRange, onName, onFunc)
	case *BinaryOp:
		Collect(t.Left, onCell, onRange, onName, onFunc)
		Collect(t.Right, onCell, onRange, onName, onFunc)
	case *FuncCall:
		if onFunc != nil {
			onFunc(t)
		}
		for _, a := range t.Args {
			Collect(a, onCell, onRange, onName, onFunc)
		}
	case *ArrayLit:
		for _, row := range t.Rows {
			for _, c := range row {
				Collect(c, onCell, onRange, onName, onFunc)
			}
		}
	}
}
