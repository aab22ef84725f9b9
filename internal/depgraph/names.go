package depgraph

import (
	"regexp"

	"github.com/latticecalc/engine/internal/ast"
	"github.com/latticecalc/engine/internal/engineerr"
)

// namePattern is spec §3's name grammar.
var namePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.]*$`)

// a1Pattern rejects names that would be ambiguous with an A1-style
// reference (spec §3: "Names forbid patterns that parse as A1 refs").
var a1Pattern = regexp.MustCompile(`(?i)^\$?[A-Z]{1,3}\$?[0-9]+$`)

// ValidateNamePattern reports whether name is legal for define_name.
func ValidateNamePattern(name string) error {
	if !namePattern.MatchString(name) {
		return engineerr.New(engineerr.CodeInvalidNamePattern, "name does not match [A-Za-z_][A-Za-z0-9_.]*: "+name)
	}
	if a1Pattern.MatchString(name) {
		return engineerr.New(engineerr.CodeInvalidNamePattern, "name parses as a cell reference: "+name)
	}
	return nil
}

// NameKind distinguishes what a defined name resolves to.
type NameKind uint8

const (
	NameKindCell NameKind = iota
	NameKindRange
	NameKindLiteral
	NameKindFormula
)

// Name is a workbook- or sheet-scoped defined name (spec §3 "Name").
// SheetID is 0 for a workbook-scoped name.
type Name struct {
	Name    string
	SheetID uint32 // 0 = workbook scope
	Kind    NameKind
	Cell    ast.CellRef
	Range   ast.RangeRef
	Formula ast.Node
}

// nameTable holds workbook-scoped and per-sheet-scoped names, with
// sheet-scope winning over workbook-scope on a name collision (spec §3
// "A sheet-scoped name shadows a workbook-scoped one of the same name").
type nameTable struct {
	workbook map[string]*Name
	bySheet  map[uint32]map[string]*Name
}

func newNameTable() *nameTable {
	return &nameTable{workbook: make(map[string]*Name), bySheet: make(map[uint32]map[string]*Name)}
}

func (nt *nameTable) define(n *Name) error {
	if err := ValidateNamePattern(n.Name); err != nil {
		return err
	}
	if n.SheetID == 0 {
		if _, exists := nt.workbook[n.Name]; exists {
			return engineerr.New(engineerr.CodeDuplicateName, "name already defined in workbook scope: "+n.Name)
		}
		nt.workbook[n.Name] = n
		return nil
	}
	scope, ok := nt.bySheet[n.SheetID]
	if !ok {
		scope = make(map[string]*Name)
		nt.bySheet[n.SheetID] = scope
	}
	if _, exists := scope[n.Name]; exists {
		return engineerr.New(engineerr.CodeDuplicateName, "name already defined in sheet scope: "+n.Name)
	}
	scope[n.Name] = n
	return nil
}

func (nt *nameTable) update(n *Name) error {
	nt.delete(n.Name, n.SheetID)
	return nt.define(n)
}

func (nt *nameTable) delete(name string, sheetID uint32) bool {
	if sheetID != 0 {
		if scope, ok := nt.bySheet[sheetID]; ok {
			if _, exists := scope[name]; exists {
				delete(scope, name)
				return true
			}
		}
		return false
	}
	if _, exists := nt.workbook[name]; exists {
		delete(nt.workbook, name)
		return true
	}
	return false
}

// resolve implements §4.3 resolve_name: sheet scope wins.
func (nt *nameTable) resolve(name string, currentSheet uint32) (*Name, bool) {
	if scope, ok := nt.bySheet[currentSheet]; ok {
		if n, ok := scope[name]; ok {
			return n, true
		}
	}
	if n, ok := nt.workbook[name]; ok {
		return n, true
	}
	return nil, false
}
