// Package engine implements C6 of the spec: the Engine that ties the
// dependency graph (C3), scheduler (C4), and interpreter (C5) together into
// evaluate_all/evaluate_until, with optional parallel layer execution.
//
// The teacher's Spreadsheet (sheet.go) plays the same role but owns a
// single-threaded recursive calculateCell walk with no layering and no
// cancellation; Engine keeps the teacher's "mark volatiles dirty, then
// drain the dirty set" recalculation shape (Calculate) but drives it
// through a Schedule instead of recursion, and commits each layer through
// an errgroup so independent formulas in the same layer actually run on
// separate goroutines (spec §4.6).
package engine

import (
	"time"

	"github.com/latticecalc/engine/internal/ast"
	"github.com/latticecalc/engine/internal/config"
	"github.com/latticecalc/engine/internal/depgraph"
	"github.com/latticecalc/engine/internal/functions"
	"github.com/latticecalc/engine/internal/interp"
	"github.com/latticecalc/engine/internal/rangeview"
	"github.com/latticecalc/engine/internal/values"
)

// sharedInterp is the process-wide Interpreter; it carries no per-formula
// state (see interp.New's doc comment), so one instance is safely shared
// across every Engine and every goroutine evaluating a layer.
var sharedInterp = interp.New()

// graphContext adapts a *depgraph.Graph plus the current cell being
// evaluated into an interp.EvaluationContext. One is created per formula
// evaluation (cheap: it is a handful of fields, no allocation of its own
// beyond itself) so CurrentSheet/cancellation can vary per cell while the
// graph and registry are shared read-only state.
type graphContext struct {
	g         *depgraph.Graph
	registry  *functions.Registry
	coercion  values.Coercion
	now       float64
	hasNow    bool
	sheet     uint32
	cancelled func() bool
}

func (c *graphContext) ResolveCell(ref *ast.CellRef) values.Value {
	if ref.Deleted {
		return values.Error(values.ErrRef)
	}
	return c.g.GetCellValue(ref.SheetID, uint32(ref.Row), uint32(ref.Col))
}

func (c *graphContext) ResolveRange(ref *ast.RangeRef) (rangeview.View, error) {
	sheet := ref.Start.SheetID
	startRow, startCol := uint32(ref.Start.Row), uint32(ref.Start.Col)
	endRow, endCol := uint32(ref.End.Row), uint32(ref.End.Col)

	if ref.OpenRows || ref.OpenCols {
		maxRow, maxCol := c.g.UsedRegion(sheet)
		if ref.OpenRows {
			endRow = maxRow
		}
		if ref.OpenCols {
			endCol = maxCol
		}
		if startRow == 0 {
			startRow = 1
		}
		if startCol == 0 {
			startCol = 1
		}
	}

	if endRow < startRow || endCol < startCol {
		return rangeview.Owned{}, nil
	}

	rows := int(endRow-startRow) + 1
	cols := int(endCol-startCol) + 1
	return rangeview.Clipped{
		Sheet:    sheet,
		StartRow: startRow,
		StartCol: startCol,
		Rows:     rows,
		Cols:     cols,
		Getter:   c.g.GetCellValue,
	}, nil
}

func (c *graphContext) ResolveName(ref *ast.NameRef) (values.Value, rangeview.View, bool, error) {
	n, ok := c.g.ResolveName(ref.Name, c.sheet)
	if !ok {
		return values.Empty(), nil, false, nil
	}
	switch n.Kind {
	case depgraph.NameKindCell:
		cr := n.Cell
		cr.SheetID = n.SheetID
		return c.ResolveCell(&cr), nil, true, nil
	case depgraph.NameKindRange:
		rr := n.Range
		rr.Start.SheetID = n.SheetID
		rr.End.SheetID = n.SheetID
		view, err := c.ResolveRange(&rr)
		return values.Empty(), view, true, err
	case depgraph.NameKindLiteral:
		return values.Empty(), nil, true, nil
	case depgraph.NameKindFormula:
		// A named formula is resolved by evaluating it as if it were a cell
		// on its defining sheet; Evaluate builds a fresh sub-context rather
		// than recursing through depgraph, since the named formula was
		// never assigned its own vertex.
		sub := &graphContext{g: c.g, registry: c.registry, coercion: c.coercion, now: c.now, hasNow: c.hasNow, sheet: n.SheetID, cancelled: c.cancelled}
		v, err := sharedInterp.Eval(n.Formula, sub)
		return v, nil, true, err
	default:
		return values.Empty(), nil, false, nil
	}
}

func (c *graphContext) ResolveSheet(name string) (uint32, bool) { return c.g.Sheets.Lookup(name) }
func (c *graphContext) CurrentSheet() uint32                    { return c.sheet }
func (c *graphContext) Functions() *functions.Registry          { return c.registry }
func (c *graphContext) Coercion() values.Coercion                { return c.coercion }
func (c *graphContext) Now() (float64, bool)                     { return c.now, c.hasNow }
func (c *graphContext) Cancelled() bool {
	if c.cancelled == nil {
		return false
	}
	return c.cancelled()
}

// nowFromConfig computes the deterministic or (if not configured) absent
// "now" serial per spec §6: deterministic mode freezes NOW/TODAY/RAND to a
// seeded timestamp rather than reading the wall clock, since formula
// evaluation must be reproducible for a given workbook snapshot.
func nowFromConfig(cfg config.Config) (float64, bool) {
	if cfg.Deterministic.Enabled {
		ts := cfg.Deterministic.TimestampUTC
		if cfg.Deterministic.Timezone != nil {
			ts = ts.In(cfg.Deterministic.Timezone)
		}
		return values.DateToSerial(ts, cfg.DateSystem), true
	}
	return values.DateToSerial(time.Now().UTC(), cfg.DateSystem), true
}
