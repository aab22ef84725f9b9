// Package backend defines the ingest/extract and embedding contracts spec
// §1/§6 deliberately leave at the interface: file-format backends (XLSX,
// ODS, CSV) and language bindings are Non-goals for this core, but the core
// still needs to name the shape something on the other side of that
// boundary must satisfy. Grounded on the teacher's storage.go (the
// CellStorage interface the rest of Spreadsheet is built against) and on
// xuri/excelize's row/col streaming API referenced in the pack manifests —
// no concrete XLSX implementation lives here, only the contract.
package backend

import (
	"context"

	"github.com/latticecalc/engine/internal/ast"
	"github.com/latticecalc/engine/internal/depgraph"
	"github.com/latticecalc/engine/internal/values"
)

// CellData is one cell's worth of ingest/extract payload. Formula is nil
// for a plain-value cell. StyleID is opaque to the engine — formatting and
// rendering are Non-goals (spec §1) — and exists only so a Backend can
// round-trip a style reference it otherwise has no use for.
type CellData struct {
	Value   values.Value
	Formula ast.Node
	StyleID string
}

// UsedRegion hints at the occupied rectangle per axis, letting a Backend
// avoid iterating an entire sparse sheet. A Backend is free to return zero
// values if it doesn't track used regions; the hint is an optimization, not
// a contract obligation the engine relies on for correctness.
type UsedRegion struct {
	UsedRowsForColumns map[uint32]uint32 // col -> highest used row
	UsedColsForRows    map[uint32]uint32 // row -> highest used col
}

// Backend is what a file-format adapter (XLSX, ODS, CSV, ...) implements to
// feed a workbook into the engine and read it back out, without the engine
// ever depending on that format's parser/writer.
type Backend interface {
	// Ingest streams every populated cell on sheet into the engine via set,
	// which the caller typically wires to Engine.SetCellValue/SetCellFormula.
	Ingest(ctx context.Context, sheet uint32, set func(row, col uint32, data CellData) error) error

	// Extract reads back the populated cells on sheet that the engine
	// currently holds, via get.
	Extract(ctx context.Context, sheet uint32, region UsedRegion, get func(row, col uint32) (CellData, bool)) error
}

// ChangeKind distinguishes the two changelog event shapes a Session emits.
type ChangeKind int

const (
	ChangeValue ChangeKind = iota
	ChangeFormula
)

// ChangeEvent is one entry in a Session's changelog, emitted whenever a
// cell's value or formula is replaced — whether by direct mutation or as a
// side effect of recalculation (e.g. a dependent cell's value changing).
type ChangeEvent struct {
	Kind       ChangeKind
	Cell       depgraph.CellAddress
	OldValue   values.Value
	NewValue   values.Value
	OldFormula ast.Node
	NewFormula ast.Node
}

// Session is the external embedding contract (spec §6): what a host
// language binding or long-lived service wrapper calls against, expressed
// as plain Go so any transport (the pack's zmq4/websocket kernels, gRPC, an
// in-process caller) can sit in front of it without the engine knowing.
type Session interface {
	SetCellValue(ctx context.Context, sheet, row, col uint32, v values.Value) error
	SetCellFormula(ctx context.Context, sheet, row, col uint32, formula ast.Node) error
	GetCellValue(ctx context.Context, sheet, row, col uint32) (values.Value, error)

	EvaluateAll(ctx context.Context) error
	EvaluateCell(ctx context.Context, sheet, row, col uint32) error

	// BatchRead/BatchWrite let a caller cross the boundary once for many
	// cells instead of paying a round trip per cell, the way the teacher's
	// RunnableSpreadsheet batches a chain of Set calls before one Run.
	BatchRead(ctx context.Context, cells []depgraph.CellAddress) ([]values.Value, error)
	BatchWrite(ctx context.Context, cells []depgraph.CellAddress, values []values.Value) error

	// Changes drains changelog events accumulated since the last call,
	// letting a host incrementally sync its own view of the workbook
	// instead of re-reading everything after every mutation.
	Changes() []ChangeEvent

	// Cancel requests that any in-flight EvaluateAll/EvaluateCell stop at
	// the next cancellation check point (spec §4.6).
	Cancel()
}
