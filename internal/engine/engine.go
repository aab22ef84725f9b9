package engine

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/latticecalc/engine/internal/ast"
	"github.com/latticecalc/engine/internal/calclog"
	"github.com/latticecalc/engine/internal/config"
	"github.com/latticecalc/engine/internal/depgraph"
	"github.com/latticecalc/engine/internal/functions"
	"github.com/latticecalc/engine/internal/schedule"
	"github.com/latticecalc/engine/internal/store"
	"github.com/latticecalc/engine/internal/values"
)

// cancelCheckStride is how many vertices within one layer Engine evaluates
// between cancellation checks, so a huge layer still responds to Cancel
// promptly instead of only between layers (spec §4.6).
const cancelCheckStride = 128

// EvalResult reports what one evaluate_all/evaluate_until call did, per
// spec §4.6.
type EvalResult struct {
	ComputedVertices int
	CycleErrors      int
	Elapsed          time.Duration
}

// Engine is the C6 front door: a dependency graph, a scheduler, an
// interpreter, and an optional worker pool, wired together the way the
// teacher's Spreadsheet wires storage+calculationStack+functions, but
// driven by an explicit Schedule instead of recursive calculateCell calls.
type Engine struct {
	graph    *depgraph.Graph
	cfg      config.Config
	registry *functions.Registry
	logger   calclog.Logger
	id       string

	cancelled atomic.Bool

	// spills maps a formula vertex that produced an array result larger
	// than 1x1 to the other cells its result was written into, so a later
	// re-evaluation (or a direct overwrite of the anchor) can clear the
	// old footprint before computing a new one (spec §9 array-spill
	// decision, see DESIGN.md).
	spills map[store.VertexId][]store.VertexId
}

// New builds an Engine from cfg. The function registry is the process-wide
// one (spec §5 "the function registry is process-global and immutable
// after initialization"); callers that need a custom catalog should build
// their own functions.Registry and swap it in with WithRegistry.
func New(cfg config.Config) *Engine {
	return &Engine{
		graph:    depgraph.New(cfg.RangeExpansionLimit, cfg.EnableBlockStripes),
		cfg:      cfg,
		registry: functions.Global(),
		logger:   cfg.Logger,
		id:       uuid.NewString(),
		spills:   make(map[store.VertexId][]store.VertexId),
	}
}

// WithRegistry swaps in a custom function registry (e.g. a test double, or
// a superset catalog an embedder has registered additional functions into).
func (e *Engine) WithRegistry(r *functions.Registry) *Engine {
	e.registry = r
	return e
}

// Graph exposes the underlying dependency graph for callers that need the
// lower-level C3 operations (DefineName, RenameSheet, DeleteSheet, ...)
// that Engine does not wrap one-for-one.
func (e *Engine) Graph() *depgraph.Graph { return e.graph }

// SetCellValue implements set_cell_value against the engine's graph.
func (e *Engine) SetCellValue(sheet, row, col uint32, v values.Value) (depgraph.OperationSummary, error) {
	e.clearSpillAt(sheet, row, col)
	summary, err := e.graph.SetCellValue(sheet, row, col, v)
	if err == nil {
		e.logger.StructuralOp("set_cell_value", sheet, len(summary.AffectedVertices))
	}
	return summary, err
}

// SetCellFormula implements set_cell_formula against the engine's graph.
func (e *Engine) SetCellFormula(sheet, row, col uint32, node ast.Node) (depgraph.OperationSummary, error) {
	e.clearSpillAt(sheet, row, col)
	summary, err := e.graph.SetCellFormula(sheet, row, col, node)
	if err == nil {
		e.logger.StructuralOp("set_cell_formula", sheet, len(summary.AffectedVertices))
	}
	return summary, err
}

// ClearCell implements clear_cell.
func (e *Engine) ClearCell(sheet, row, col uint32) (depgraph.OperationSummary, error) {
	e.clearSpillAt(sheet, row, col)
	return e.graph.ClearCell(sheet, row, col)
}

func (e *Engine) clearSpillAt(sheet, row, col uint32) {
	if id, ok := e.graph.VertexAt(sheet, row, col); ok {
		e.clearSpill(id)
	}
}

// GetCellValue returns the cached value at (sheet,row,col).
func (e *Engine) GetCellValue(sheet, row, col uint32) values.Value {
	return e.graph.GetCellValue(sheet, row, col)
}

// Cancel requests that any in-flight EvaluateAll/EvaluateUntil abort at the
// next layer or cancelCheckStride boundary. It is safe to call from any
// goroutine.
func (e *Engine) Cancel() {
	e.cancelled.Store(true)
	e.logger.Cancelled(e.id)
}

func (e *Engine) isCancelled() bool { return e.cancelled.Load() }

// EvaluateAll implements evaluate_all (spec §4.6): recompute every dirty or
// volatile vertex, in dependency order, writing #CIRC! to cycle members
// first.
func (e *Engine) EvaluateAll(ctx context.Context) (EvalResult, error) {
	return e.evaluate(ctx, e.graph.GetEvaluationVertices())
}

// EvaluateUntil implements evaluate_until: recompute only what targets
// transitively need, per spec §4.6's "demand-driven" mode.
func (e *Engine) EvaluateUntil(ctx context.Context, targets []depgraph.CellAddress) (EvalResult, error) {
	seeds := make([]store.VertexId, 0, len(targets))
	for _, t := range targets {
		if id, ok := e.graph.VertexAt(t.Sheet, t.Row, t.Col); ok {
			seeds = append(seeds, id)
		}
	}
	return e.evaluate(ctx, seeds)
}

func (e *Engine) evaluate(ctx context.Context, seeds []store.VertexId) (EvalResult, error) {
	start := time.Now()
	e.cancelled.Store(false)
	e.logger.EvaluateStart(e.id, len(seeds))

	sched := schedule.Build(e.graph, seeds)

	cycleErrors := 0
	for _, cycle := range sched.Cycles {
		cycleErrors += len(cycle)
		for _, id := range cycle {
			e.clearSpill(id)
			e.graph.Data.Vertices.SetValue(id, values.Error(values.ErrCirc))
		}
		e.graph.ClearDirtyFlags(cycle)
		e.logger.CycleDetected(len(cycle))
	}

	computed := 0
	for i, layer := range sched.Layers {
		if e.checkCancelled(ctx) {
			e.graph.RedirtyVolatiles()
			return EvalResult{ComputedVertices: computed, CycleErrors: cycleErrors, Elapsed: time.Since(start)}, context.Canceled
		}
		e.logger.LayerStart(i, len(layer.Vertices))
		n, err := e.runLayer(ctx, layer.Vertices)
		computed += n
		e.logger.LayerDone(i)
		if err != nil {
			e.graph.RedirtyVolatiles()
			return EvalResult{ComputedVertices: computed, CycleErrors: cycleErrors, Elapsed: time.Since(start)}, err
		}
	}

	e.graph.RedirtyVolatiles()
	elapsed := time.Since(start)
	e.logger.EvaluateDone(e.id, computed, cycleErrors, elapsed.Milliseconds())
	return EvalResult{ComputedVertices: computed, CycleErrors: cycleErrors, Elapsed: elapsed}, nil
}

// runLayer evaluates every vertex in one layer. Evaluation (pure, reads the
// already-committed values of earlier layers) happens concurrently when
// EnableParallel is set; the resulting values are committed back to the
// graph sequentially afterward, so no two goroutines ever write the graph
// at once (spec §4.6: "parallel read-only evaluation, sequential commit").
func (e *Engine) runLayer(ctx context.Context, vertices []store.VertexId) (int, error) {
	// A layer's working set includes every vertex the scheduler needed to
	// trace reachability through (plain value cells read by a formula in a
	// later layer), but only formula vertices actually need (re)evaluation;
	// a value cell's committed value is already authoritative.
	formulas := make([]store.VertexId, 0, len(vertices))
	for _, id := range vertices {
		if e.graph.IsFormula(id) {
			formulas = append(formulas, id)
		}
	}
	if len(formulas) == 0 {
		return 0, nil
	}

	results := make([]values.Value, len(formulas))

	if e.cfg.EnableParallel && len(formulas) > 1 {
		grp, gctx := errgroup.WithContext(ctx)
		maxThreads := int64(e.cfg.MaxThreads)
		if maxThreads <= 0 {
			maxThreads = int64(len(formulas))
		}
		sem := semaphore.NewWeighted(maxThreads)
		for idx, id := range formulas {
			idx, id := idx, id
			grp.Go(func() error {
				if err := sem.Acquire(gctx, 1); err != nil {
					return err
				}
				defer sem.Release(1)
				results[idx] = e.evalVertex(id)
				return nil
			})
		}
		if err := grp.Wait(); err != nil {
			return 0, err
		}
	} else {
		for idx, id := range formulas {
			if idx%cancelCheckStride == 0 && e.checkCancelled(ctx) {
				return idx, context.Canceled
			}
			results[idx] = e.evalVertex(id)
		}
	}

	for idx, id := range formulas {
		e.commitValue(id, results[idx])
	}
	e.graph.ClearDirtyFlags(formulas)
	return len(formulas), nil
}

// commitValue writes a formula's freshly evaluated result, spilling an
// array result larger than 1x1 into the cells below/right of the anchor
// per the spec §9 array-spill decision: #SPILL! if any of those cells is
// already occupied, otherwise each cell gets its own element of the array
// (spec DESIGN.md "Open Question decisions" #2).
func (e *Engine) commitValue(id store.VertexId, v values.Value) {
	e.clearSpill(id)

	if !v.IsArray() {
		e.graph.Data.Vertices.SetValue(id, v)
		return
	}
	rows, cols := v.Dims()
	if rows <= 1 && cols <= 1 {
		e.graph.Data.Vertices.SetValue(id, v)
		return
	}

	addr := e.graph.Address(id)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if r == 0 && c == 0 {
				continue
			}
			if e.graph.GetCellValue(addr.Sheet, addr.Row+uint32(r), addr.Col+uint32(c)).Kind != values.KindEmpty {
				e.graph.Data.Vertices.SetValue(id, values.Error(values.ErrSpill))
				return
			}
		}
	}

	spilled := make([]store.VertexId, 0, rows*cols-1)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if r == 0 && c == 0 {
				e.graph.Data.Vertices.SetValue(id, v.At(r, c))
				continue
			}
			sheet, row, col := addr.Sheet, addr.Row+uint32(r), addr.Col+uint32(c)
			e.graph.SetCellValue(sheet, row, col, v.At(r, c))
			if sid, ok := e.graph.VertexAt(sheet, row, col); ok {
				spilled = append(spilled, sid)
			}
		}
	}
	e.spills[id] = spilled
}

// clearSpill removes the footprint a previous array spill from id left
// behind, collapsing each spilled cell back to Empty, so a shrinking or
// now-blocked result never leaves stale values around it.
func (e *Engine) clearSpill(id store.VertexId) {
	spilled, ok := e.spills[id]
	if !ok {
		return
	}
	for _, sid := range spilled {
		addr := e.graph.Address(sid)
		e.graph.ClearCell(addr.Sheet, addr.Row, addr.Col)
	}
	delete(e.spills, id)
}

func (e *Engine) checkCancelled(ctx context.Context) bool {
	if e.isCancelled() {
		return true
	}
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

func (e *Engine) evalVertex(id store.VertexId) values.Value {
	addr := e.graph.Address(id)
	node, ok := e.graph.GetFormula(addr.Sheet, addr.Row, addr.Col)
	if !ok {
		return e.graph.GetCellValue(addr.Sheet, addr.Row, addr.Col)
	}
	now, hasNow := nowFromConfig(e.cfg)
	gctx := &graphContext{
		g:         e.graph,
		registry:  e.registry,
		coercion:  values.NewCoercion(e.cfg.DateSystem),
		now:       now,
		hasNow:    hasNow,
		sheet:     addr.Sheet,
		cancelled: e.isCancelled,
	}
	v, err := sharedInterp.Eval(node, gctx)
	if err != nil {
		return values.Error(values.ErrCalc)
	}
	return v
}
