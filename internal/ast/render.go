package ast

import (
	"fmt"
	"strconv"
	"strings"
)

// Render reproduces formula source text for a node, normalizing whitespace
// (spec §8 round-trip law: render(parse(t)) == t modulo whitespace). This
// generalizes the teacher's per-node ToString() methods (parser.go) into a
// single recursive function now that nodes no longer carry behavior.
func Render(n Node) string {
	switch v := n.(type) {
	case *NumberLit:
		return strconv.FormatFloat(v.Value, 'g', -1, 64)
	case *StringLit:
		return "\"" + strings.ReplaceAll(v.Value, "\"", "\"\"") + "\""
	case *BoolLit:
		if v.Value {
			return "TRUE"
		}
		return "FALSE"
	case *CellRef:
		return renderCellRef(*v)
	case *RangeRef:
		return renderRangeRef(*v)
	case *NameRef:
		return v.Name
	case *TableRef:
		return fmt.Sprintf("%s[%s]", v.Table, v.Column)
	case *UnaryOp:
		if v.Op == "%" {
			return Render(v.Operand) + "%"
		}
		return v.Op + Render(v.Operand)
	case *BinaryOp:
		return Render(v.Left) + v.Op + Render(v.Right)
	case *FuncCall:
		parts := make([]string, len(v.Args))
		for i, a := range v.Args {
			parts[i] = Render(a)
		}
		return v.Name + "(" + strings.Join(parts, ",") + ")"
	case *ArrayLit:
		rows := make([]string, len(v.Rows))
		for i, row := range v.Rows {
			cells := make([]string, len(row))
			for j, c := range row {
				cells[j] = Render(c)
			}
			rows[i] = strings.Join(cells, ",")
		}
		return "{" + strings.Join(rows, ";") + "}"
	default:
		return ""
	}
}

func renderCellRef(c CellRef) string {
	if c.Deleted {
		return "#REF!"
	}
	var b strings.Builder
	if c.HasSheet {
		b.WriteString(c.SheetName)
		b.WriteString("!")
	}
	writeAxis(&b, c.Col, c.ColAbs, true)
	writeAxis(&b, c.Row, c.RowAbs, false)
	return b.String()
}

func renderRangeRef(r RangeRef) string {
	if r.Deleted {
		return "#REF!"
	}
	var b strings.Builder
	if r.Start.HasSheet {
		b.WriteString(r.Start.SheetName)
		b.WriteString("!")
	}
	switch {
	case r.OpenRows:
		writeAxis(&b, r.Start.Col, r.Start.ColAbs, true)
		b.WriteString(":")
		writeAxis(&b, r.End.Col, r.End.ColAbs, true)
	case r.OpenCols:
		writeAxis(&b, r.Start.Row, r.Start.RowAbs, false)
		b.WriteString(":")
		writeAxis(&b, r.End.Row, r.End.RowAbs, false)
	default:
		writeAxis(&b, r.Start.Col, r.Start.ColAbs, true)
		writeAxis(&b, r.Start.Row, r.Start.RowAbs, false)
		b.WriteString(":")
		writeAxis(&b, r.End.Col, r.End.ColAbs, true)
		writeAxis(&b, r.End.Row, r.End.RowAbs, false)
	}
	return b.String()
}

func writeAxis(b *strings.Builder, n int32, abs bool, isCol bool) {
	if abs {
		b.WriteString("$")
	}
	if isCol {
		b.WriteString(ColumnLetters(n))
	} else {
		b.WriteString(strconv.Itoa(int(n)))
	}
}

// ColumnLetters converts a 1-based column index to A1-style letters.
func ColumnLetters(col int32) string {
	if col <= 0 {
		return ""
	}
	var b []byte
	for col > 0 {
		col--
		b = append([]byte{byte('A' + col%26)}, b...)
		col /= 26
	}
	return string(b)
}
