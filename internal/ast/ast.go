// Package ast defines the formula AST node types enumerated in spec §3.
// Nodes are immutable once stored (§3 "AST") — every structural edit or
// re-parse allocates a fresh tree rather than mutating one in place, the
// same invariant the teacher keeps around its *ASTNode trees in parser.go.
//
// The teacher attaches an Eval method directly to each node
// (`func (n *CellRefNode) Eval(s *Spreadsheet) (Primitive, error)`), which
// couples the AST to one concrete spreadsheet type. Spec §4.5 asks for an
// Interpreter that is independent of the AST's origin (it talks to an
// EvaluationContext instead), so here nodes carry no Eval method; the
// interpreter package type-switches over Node instead.
package ast

// Position records where a node came from in source text, preserved so the
// renderer can reproduce whitespace-normalized source (spec §6, round-trip
// law in §8).
type Position struct {
	Start int
	End   int
}

// Node is the common interface implemented by every AST node kind.
type Node interface {
	Position() Position
	// Token is the original source text this node was parsed from, kept
	// so structural edits can rewrite just the affected sub-tokens instead
	// of re-rendering an entire formula from scratch.
	Token() string
}

type base struct {
	Pos Position
	Src string
}

func (b base) Position() Position { return b.Pos }
func (b base) Token() string      { return b.Src }

// NumberLit is a numeric literal.
type NumberLit struct {
	base
	Value float64
}

// StringLit is a text literal.
type StringLit struct {
	base
	Value string
}

// BoolLit is a TRUE/FALSE literal.
type BoolLit struct {
	base
	Value bool
}

// CellRef is a (sheet, row, col) reference with per-axis absolute/relative
// flags (spec §3 "CellRef"). SheetName is empty when the reference is
// implicitly the formula's own sheet; SheetID is resolved by the graph at
// registration time and is what structural edits and sheet renames key on.
type CellRef struct {
	base
	SheetName string
	SheetID   uint32
	HasSheet  bool
	Row       int32
	Col       int32
	RowAbs    bool
	ColAbs    bool
	// Deleted marks a reference that structural edits collapsed to #REF!;
	// it renders as "#REF!" regardless of Row/Col.
	Deleted bool
}

// RangeRef is a rectangular or open-ended (whole row/column) reference.
// Start/End are both populated for a bounded range; for a whole-column
// reference only the Col fields of Start/End are meaningful (OpenRows is
// true), and symmetrically for a whole row (OpenCols).
type RangeRef struct {
	base
	Start    CellRef
	End      CellRef
	OpenRows bool // whole column(s): e.g. A:A
	OpenCols bool // whole row(s): e.g. 1:1
	Deleted  bool
}

// NameRef is a reference to a defined name (workbook- or sheet-scoped).
type NameRef struct {
	base
	Name string
}

// TableRef is a structured reference into a table (named region); the core
// only needs to carry the table/column identifiers through to resolution,
// which is supplied by the EvaluationContext (spec §4.5).
type TableRef struct {
	base
	Table  string
	Column string
}

// UnaryOp is a prefix operator (-x, +x, %).
type UnaryOp struct {
	base
	Op      string
	Operand Node
}

// BinaryOp is an infix operator: + - * / ^ & and comparisons, plus the
// reference-combination operator ':'.
type BinaryOp struct {
	base
	Op    string
	Left  Node
	Right Node
}

// FuncCall is a function invocation.
type FuncCall struct {
	base
	Name string
	Args []Node
}

// ArrayLit is an inline array constant, e.g. {1,2;3,4}.
type ArrayLit struct {
	base
	Rows [][]Node
}

// NewNumberLit, etc. are convenience constructors used by the parser
// contract (external) and by the structural editor when it rewrites nodes.
func NewNumberLit(pos Position, tok string, v float64) *NumberLit { return &NumberLit{base{pos, tok}, v} }
func NewStringLit(pos Position, tok string, v string) *StringLit { return &StringLit{base{pos, tok}, v} }
func NewBoolLit(pos Position, tok string, v bool) *BoolLit       { return &BoolLit{base{pos, tok}, v} }
