package backend

import (
	"context"
	"fmt"
	"sync"

	"github.com/latticecalc/engine/internal/ast"
	"github.com/latticecalc/engine/internal/depgraph"
	"github.com/latticecalc/engine/internal/engine"
	"github.com/latticecalc/engine/internal/values"
)

// EngineSession is the reference Session implementation, wrapping an
// *engine.Engine the way a host binding would. It records a changelog
// entry for every direct SetCellValue/SetCellFormula call; it does not
// diff every cell recalculation touches after an EvaluateAll (that would
// mean walking the whole graph to find what changed, which defeats the
// point of incremental evaluation) — only the direct mutation a caller
// made is logged, consistent with "Changes reports what the caller did",
// not "what the engine recomputed".
type EngineSession struct {
	eng *engine.Engine

	mu      sync.Mutex
	changes []ChangeEvent
}

// NewEngineSession wraps eng as a Session.
func NewEngineSession(eng *engine.Engine) *EngineSession {
	return &EngineSession{eng: eng}
}

func (s *EngineSession) SetCellValue(ctx context.Context, sheet, row, col uint32, v values.Value) error {
	old := s.eng.GetCellValue(sheet, row, col)
	if _, err := s.eng.SetCellValue(sheet, row, col, v); err != nil {
		return err
	}
	s.record(ChangeEvent{
		Kind:     ChangeValue,
		Cell:     depgraph.CellAddress{Sheet: sheet, Row: row, Col: col},
		OldValue: old,
		NewValue: v,
	})
	return nil
}

func (s *EngineSession) SetCellFormula(ctx context.Context, sheet, row, col uint32, formula ast.Node) error {
	oldFormula, _ := s.eng.Graph().GetFormula(sheet, row, col)
	if _, err := s.eng.SetCellFormula(sheet, row, col, formula); err != nil {
		return err
	}
	s.record(ChangeEvent{
		Kind:       ChangeFormula,
		Cell:       depgraph.CellAddress{Sheet: sheet, Row: row, Col: col},
		OldFormula: oldFormula,
		NewFormula: formula,
	})
	return nil
}

func (s *EngineSession) GetCellValue(ctx context.Context, sheet, row, col uint32) (values.Value, error) {
	return s.eng.GetCellValue(sheet, row, col), nil
}

func (s *EngineSession) EvaluateAll(ctx context.Context) error {
	_, err := s.eng.EvaluateAll(ctx)
	return err
}

func (s *EngineSession) EvaluateCell(ctx context.Context, sheet, row, col uint32) error {
	_, err := s.eng.EvaluateUntil(ctx, []depgraph.CellAddress{{Sheet: sheet, Row: row, Col: col}})
	return err
}

func (s *EngineSession) BatchRead(ctx context.Context, cells []depgraph.CellAddress) ([]values.Value, error) {
	out := make([]values.Value, len(cells))
	for i, c := range cells {
		out[i] = s.eng.GetCellValue(c.Sheet, c.Row, c.Col)
	}
	return out, nil
}

func (s *EngineSession) BatchWrite(ctx context.Context, cells []depgraph.CellAddress, vals []values.Value) error {
	if len(cells) != len(vals) {
		return fmt.Errorf("backend: BatchWrite got %d cells but %d values", len(cells), len(vals))
	}
	for i, c := range cells {
		if err := s.SetCellValue(ctx, c.Sheet, c.Row, c.Col, vals[i]); err != nil {
			return err
		}
	}
	return nil
}

func (s *EngineSession) Changes() []ChangeEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.changes
	s.changes = nil
	return out
}

func (s *EngineSession) Cancel() {
	s.eng.Cancel()
}

func (s *EngineSession) record(ev ChangeEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.changes = append(s.changes, ev)
}
