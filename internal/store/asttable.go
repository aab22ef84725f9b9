package store

import "github.com/latticecalc/engine/internal/ast"

// ASTTable interns parsed formula trees by their normalized rendering,
// adapted from the teacher's FormulaTable (formula.go): two cells with
// textually identical formulas (after whitespace normalization) share one
// AST and one reference count, which matters once CopyRange starts
// stamping the same relative formula across hundreds of cells.
type ASTTable struct {
	byKey  map[string]uint32
	nodes  map[uint32]ast.Node
	refs   map[uint32]int
	nextID uint32
}

// NewASTTable creates an empty table; handle 0 means "no formula".
func NewASTTable() *ASTTable {
	return &ASTTable{
		byKey:  make(map[string]uint32),
		nodes:  make(map[uint32]ast.Node),
		refs:   make(map[uint32]int),
		nextID: 1,
	}
}

// Intern stores n (keyed by its rendered form) or bumps the existing
// handle's reference count, returning the handle.
func (t *ASTTable) Intern(n ast.Node) uint32 {
	key := ast.Render(n)
	if id, ok := t.byKey[key]; ok {
		t.refs[id]++
		return id
	}
	id := t.nextID
	t.nextID++
	t.byKey[key] = id
	t.nodes[id] = n
	t.refs[id] = 1
	return id
}

// Get resolves a handle to its AST.
func (t *ASTTable) Get(id uint32) (ast.Node, bool) {
	n, ok := t.nodes[id]
	return n, ok
}

// Release decrements id's reference count, freeing it at zero. Returns
// true if the formula was freed.
func (t *ASTTable) Release(id uint32) bool {
	n, ok := t.nodes[id]
	if !ok {
		return false
	}
	t.refs[id]--
	if t.refs[id] <= 0 {
		delete(t.nodes, id)
		delete(t.byKey, ast.Render(n))
		delete(t.refs, id)
		return true
	}
	return false
}

// Count returns the number of distinct interned formulas.
func (t *ASTTable) Count() int { return len(t.nodes) }
