// Package calclog is a thin structured-logging wrapper the Engine uses for
// its recalculation lifecycle events. The teacher has no logging at all;
// the pack's spreadsheet-adjacent tool (vinodismyname-mcpxcel, which wraps
// excelize behind an MCP server) pulls in zerolog directly, which is the
// idiomatic choice this package follows.
package calclog

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// Logger wraps zerolog.Logger with the handful of events the engine cares
// about, so call sites read as intent ("evaluate all", "layer done")
// rather than raw field-building.
type Logger struct {
	z zerolog.Logger
}

// Nop returns a Logger that discards everything, the default when a caller
// doesn't configure one (config.Default()).
func Nop() Logger { return Logger{z: zerolog.Nop()} }

// New builds a console-friendly logger writing to w.
func New(w io.Writer) Logger {
	if w == nil {
		w = os.Stderr
	}
	return Logger{z: zerolog.New(w).With().Timestamp().Logger()}
}

func (l Logger) EvaluateStart(sessionID string, targetCount int) {
	l.z.Info().Str("session", sessionID).Int("targets", targetCount).Msg("evaluate_start")
}

func (l Logger) EvaluateDone(sessionID string, computed, cycles int, elapsedMs int64) {
	l.z.Info().
		Str("session", sessionID).
		Int("computed_vertices", computed).
		Int("cycle_errors", cycles).
		Int64("elapsed_ms", elapsedMs).
		Msg("evaluate_done")
}

func (l Logger) LayerStart(layerIndex, size int) {
	l.z.Debug().Int("layer", layerIndex).Int("size", size).Msg("layer_start")
}

func (l Logger) LayerDone(layerIndex int) {
	l.z.Debug().Int("layer", layerIndex).Msg("layer_done")
}

func (l Logger) CycleDetected(members int) {
	l.z.Warn().Int("members", members).Msg("cycle_detected")
}

func (l Logger) StructuralOp(kind string, sheet uint32, affected int) {
	l.z.Info().Str("op", kind).Uint32("sheet", sheet).Int("affected", affected).Msg("structural_op")
}

func (l Logger) Cancelled(sessionID string) {
	l.z.Warn().Str("session", sessionID).Msg("cancelled")
}
