package depgraph

import (
	"github.com/latticecalc/engine/internal/engineerr"
	"github.com/latticecalc/engine/internal/store"
	"github.com/latticecalc/engine/internal/values"
)

// DeleteSheet removes a sheet's name binding and collapses every vertex
// that lived on it to #REF! (spec §9: structural removal of a sheet turns
// references to its cells into #REF! rather than deleting the vertices,
// since other formulas may still hold edges to them).
func (g *Graph) DeleteSheet(sheetID uint32) (OperationSummary, error) {
	if _, ok := g.Sheets.Name(sheetID); !ok {
		return OperationSummary{}, engineerr.New(engineerr.CodeUnknownSheet, "unknown sheet")
	}

	var allAffected []store.VertexId
	for key, id := range g.coordToID {
		if uint32(uint64(key)>>32) != sheetID {
			continue
		}
		g.Data.Vertices.SetValue(id, values.Error(values.ErrRef))
		affected := g.propagateFrom(id)
		allAffected = append(allAffected, affected...)
	}

	g.Sheets.Delete(sheetID)
	return OperationSummary{AffectedVertices: allAffected}, nil
}

// RenameSheet updates the sheet's name while keeping its id, so every
// formula referencing it by SheetID keeps resolving correctly; only the
// textual re-render of quoted sheet names in formula source (an external
// parser/renderer concern) is out of scope here.
func (g *Graph) RenameSheet(sheetID uint32, newName string) error {
	if _, ok := g.Sheets.Name(sheetID); !ok {
		return engineerr.New(engineerr.CodeUnknownSheet, "unknown sheet")
	}
	g.Sheets.Rename(sheetID, newName)
	return nil
}

// DefineName implements define_name (spec §4.3).
func (g *Graph) DefineName(n *Name) error {
	return g.names.define(n)
}

// UpdateName implements update_name: redefine an existing name in place.
func (g *Graph) UpdateName(n *Name) error {
	return g.names.update(n)
}

// DeleteName implements delete_name.
func (g *Graph) DeleteName(name string, sheetID uint32) bool {
	return g.names.delete(name, sheetID)
}

// ResolveName implements resolve_name: sheet scope wins over workbook scope.
func (g *Graph) ResolveName(name string, currentSheet uint32) (*Name, bool) {
	return g.names.resolve(name, currentSheet)
}
