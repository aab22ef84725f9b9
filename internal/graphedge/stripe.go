package graphedge

import "github.com/latticecalc/engine/internal/store"

// StripeType selects which axis a compressed range dependency is indexed
// by, per spec §3.
type StripeType uint8

const (
	StripeRow StripeType = iota
	StripeColumn
	StripeBlock
)

// BlockSize is the edge length of a square Block stripe (spec: "Block
// (256×256)"), matching the teacher's Worksheet chunking granularity
// (worksheet.go's Chunk is also 256 rows x 256 cols) even though here it
// indexes range *dependencies* rather than cell storage.
const BlockSize = 256

// StripeKey identifies one stripe bucket.
type StripeKey struct {
	Sheet uint32
	Type  StripeType
	Index uint32 // row number / column number / block index, depending on Type
}

// RangeBounds is the minimal rectangle description the stripe index and
// the precision side-table need; it mirrors ast.RangeRef's shape without
// importing the ast package (graphedge stays a leaf package).
type RangeBounds struct {
	Sheet                  uint32
	StartRow, EndRow       uint32 // 0 EndRow means "open" (whole column)
	StartCol, EndCol       uint32 // 0 EndCol means "open" (whole row)
	OpenRows               bool
	OpenCols               bool
}

// Contains reports whether (row, col) on the given sheet falls inside b,
// used at invalidation time to avoid false-positive dirtying of formulas
// whose stripe merely overlaps the mutated coordinate (spec §4.3 "only if
// some stored range of f actually covers (r, c)").
func (b RangeBounds) Contains(sheet, row, col uint32) bool {
	if sheet != b.Sheet {
		return false
	}
	if !b.OpenRows && (row < b.StartRow || row > b.EndRow) {
		return false
	}
	if !b.OpenCols && (col < b.StartCol || col > b.EndCol) {
		return false
	}
	return true
}

// StripeIndex is the map<(sheet,StripeType,index), set<VertexId>> of spec
// §4.2, plus the side table of each formula's original compressed ranges
// used for the precision re-check.
type StripeIndex struct {
	buckets map[StripeKey]map[store.VertexId]struct{}
	ranges  map[store.VertexId][]RangeBounds
}

// NewStripeIndex creates an empty index.
func NewStripeIndex() *StripeIndex {
	return &StripeIndex{
		buckets: make(map[StripeKey]map[store.VertexId]struct{}),
		ranges:  make(map[store.VertexId][]RangeBounds),
	}
}

// ChooseStripes implements the capacity heuristic of spec §3: a tall range
// picks Column stripes over its columns, a wide range picks Row stripes
// over its rows, and a square-ish range over the block threshold picks
// Block stripes (only if enableBlockStripes).
func ChooseStripes(b RangeBounds, enableBlockStripes bool) []StripeKey {
	switch {
	case b.OpenRows: // whole column(s): A:A
		keys := make([]StripeKey, 0, b.EndCol-b.StartCol+1)
		for c := b.StartCol; c <= b.EndCol; c++ {
			keys = append(keys, StripeKey{b.Sheet, StripeColumn, c})
		}
		return keys
	case b.OpenCols: // whole row(s): 1:1
		keys := make([]StripeKey, 0, b.EndRow-b.StartRow+1)
		for r := b.StartRow; r <= b.EndRow; r++ {
			keys = append(keys, StripeKey{b.Sheet, StripeRow, r})
		}
		return keys
	}

	rows := b.EndRow - b.StartRow + 1
	cols := b.EndCol - b.StartCol + 1

	if enableBlockStripes && rows > BlockSize && cols > BlockSize {
		keys := make([]StripeKey, 0, 4)
		for br := b.StartRow / BlockSize; br <= b.EndRow/BlockSize; br++ {
			for bc := b.StartCol / BlockSize; bc <= b.EndCol/BlockSize; bc++ {
				keys = append(keys, StripeKey{b.Sheet, StripeBlock, br*1_000_000 + bc})
			}
		}
		return keys
	}

	if rows >= cols {
		keys := make([]StripeKey, 0, cols)
		for c := b.StartCol; c <= b.EndCol; c++ {
			keys = append(keys, StripeKey{b.Sheet, StripeColumn, c})
		}
		return keys
	}
	keys := make([]StripeKey, 0, rows)
	for r := b.StartRow; r <= b.EndRow; r++ {
		keys = append(keys, StripeKey{b.Sheet, StripeRow, r})
	}
	return keys
}

// Register inserts formula into every stripe bucket its compressed range
// touches and records the range in the precision side table.
func (si *StripeIndex) Register(formula store.VertexId, b RangeBounds, enableBlockStripes bool) {
	si.ranges[formula] = append(si.ranges[formula], b)
	for _, k := range ChooseStripes(b, enableBlockStripes) {
		set, ok := si.buckets[k]
		if !ok {
			set = make(map[store.VertexId]struct{})
			si.buckets[k] = set
		}
		set[formula] = struct{}{}
	}
}

// Unregister removes every stripe entry and side-table range belonging to
// formula (used on reassignment/deletion, spec §4.2).
func (si *StripeIndex) Unregister(formula store.VertexId, enableBlockStripes bool) {
	for _, b := range si.ranges[formula] {
		for _, k := range ChooseStripes(b, enableBlockStripes) {
			if set, ok := si.buckets[k]; ok {
				delete(set, formula)
				if len(set) == 0 {
					delete(si.buckets, k)
				}
			}
		}
	}
	delete(si.ranges, formula)
}

// MatchCell returns the formulas whose stripes cover (sheet,row,col),
// deduplicated, then filtered against the side table so a stripe
// collision (e.g. two different ranges sharing a Row stripe) can't dirty a
// formula whose actual range doesn't cover the mutated cell.
func (si *StripeIndex) MatchCell(sheet, row, col uint32) []store.VertexId {
	candidates := make(map[store.VertexId]struct{})
	for _, k := range []StripeKey{
		{sheet, StripeRow, row},
		{sheet, StripeColumn, col},
		{sheet, StripeBlock, (row/BlockSize)*1_000_000 + col/BlockSize},
	} {
		for id := range si.buckets[k] {
			candidates[id] = struct{}{}
		}
	}

	out := make([]store.VertexId, 0, len(candidates))
	for id := range candidates {
		for _, b := range si.ranges[id] {
			if b.Contains(sheet, row, col) {
				out = append(out, id)
				break
			}
		}
	}
	return out
}

// Ranges returns the compressed ranges registered for a formula.
func (si *StripeIndex) Ranges(formula store.VertexId) []RangeBounds {
	return si.ranges[formula]
}
