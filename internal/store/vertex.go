package store

import "github.com/latticecalc/engine/internal/values"

// Kind mirrors spec §3's vertex kind enumeration.
type Kind uint8

const (
	KindEmpty Kind = iota
	KindCell
	KindFormulaScalar
	KindFormulaArray
	KindSource
)

// Flag bits, packed into one byte per vertex.
type Flag uint8

const (
	FlagDirty Flag = 1 << iota
	FlagVolatile
	FlagSelfLoop
)

// VertexStore is the columnar array storage of spec §4.1. All operations
// are O(1) amortized; no enumeration order is promised (callers needing
// geometric order go through depgraph's coord<->id map).
type VertexStore struct {
	coord   []Coord
	sheet   []uint32
	kind    []Kind
	flags   []Flag
	value   []values.Value
	formula []uint32 // handle into store.ASTTable, 0 = none
}

// NewVertexStore creates an empty store. Id 0 is reserved so VertexId zero
// value means "no vertex"; callers should treat index 0 as a sentinel.
func NewVertexStore() *VertexStore {
	vs := &VertexStore{}
	vs.coord = append(vs.coord, 0)
	vs.sheet = append(vs.sheet, 0)
	vs.kind = append(vs.kind, KindEmpty)
	vs.flags = append(vs.flags, 0)
	vs.value = append(vs.value, values.Empty())
	vs.formula = append(vs.formula, 0)
	return vs
}

// Allocate appends a new vertex and returns its id.
func (vs *VertexStore) Allocate(sheet uint32, c Coord) VertexId {
	id := VertexId(len(vs.coord))
	vs.coord = append(vs.coord, c)
	vs.sheet = append(vs.sheet, sheet)
	vs.kind = append(vs.kind, KindEmpty)
	vs.flags = append(vs.flags, 0)
	vs.value = append(vs.value, values.Empty())
	vs.formula = append(vs.formula, 0)
	return id
}

// Len returns 1 + the highest allocated id (id 0 is the reserved sentinel).
func (vs *VertexStore) Len() int { return len(vs.coord) }

func (vs *VertexStore) Coord(id VertexId) Coord    { return vs.coord[id] }
func (vs *VertexStore) Sheet(id VertexId) uint32   { return vs.sheet[id] }
func (vs *VertexStore) Kind(id VertexId) Kind      { return vs.kind[id] }
func (vs *VertexStore) SetKind(id VertexId, k Kind) { vs.kind[id] = k }

func (vs *VertexStore) SetCoord(id VertexId, c Coord) { vs.coord[id] = c }

func (vs *VertexStore) Value(id VertexId) values.Value       { return vs.value[id] }
func (vs *VertexStore) SetValue(id VertexId, v values.Value) { vs.value[id] = v }

func (vs *VertexStore) FormulaHandle(id VertexId) uint32        { return vs.formula[id] }
func (vs *VertexStore) SetFormulaHandle(id VertexId, h uint32) { vs.formula[id] = h }

func (vs *VertexStore) IsDirty(id VertexId) bool    { return vs.flags[id]&FlagDirty != 0 }
func (vs *VertexStore) IsVolatile(id VertexId) bool { return vs.flags[id]&FlagVolatile != 0 }
func (vs *VertexStore) HasSelfLoop(id VertexId) bool { return vs.flags[id]&FlagSelfLoop != 0 }

func (vs *VertexStore) SetDirty(id VertexId, dirty bool) {
	if dirty {
		vs.flags[id] |= FlagDirty
	} else {
		vs.flags[id] &^= FlagDirty
	}
}

func (vs *VertexStore) SetVolatile(id VertexId, volatile bool) {
	if volatile {
		vs.flags[id] |= FlagVolatile
	} else {
		vs.flags[id] &^= FlagVolatile
	}
}

func (vs *VertexStore) SetSelfLoop(id VertexId, selfLoop bool) {
	if selfLoop {
		vs.flags[id] |= FlagSelfLoop
	} else {
		vs.flags[id] &^= FlagSelfLoop
	}
}

// IsFormula reports whether id holds a formula (scalar or array).
func (vs *VertexStore) IsFormula(id VertexId) bool {
	k := vs.kind[id]
	return k == KindFormulaScalar || k == KindFormulaArray
}
