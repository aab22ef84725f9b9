// Command calcsh is a small interactive/batch driver over internal/engine.
// It exercises the session contract (set a literal, set a formula, evaluate,
// read a value back) the way an embedder would, without a formula parser —
// formula text parsing is left external per spec §6, so calcsh builds
// ast.Node formulas directly from a tiny command grammar instead of parsing
// Excel-style expressions.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"

	"github.com/latticecalc/engine/internal/ast"
	"github.com/latticecalc/engine/internal/config"
	"github.com/latticecalc/engine/internal/engine"
	"github.com/latticecalc/engine/internal/values"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "-h", "--help", "help":
		usage()
	case "repl":
		os.Exit(replCommand())
	case "batch":
		os.Exit(batchCommand(os.Args[2:]))
	default:
		fmt.Fprintf(os.Stderr, "unknown subcommand: %s\n", os.Args[1])
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage:\n")
	fmt.Fprintf(os.Stderr, "  calcsh repl              interactive session (reads commands from stdin)\n")
	fmt.Fprintf(os.Stderr, "  calcsh batch <file>      run a command script non-interactively (- for stdin)\n")
	fmt.Fprintf(os.Stderr, "  calcsh help              show this help message\n")
	fmt.Fprintf(os.Stderr, "\nCommands:\n")
	printSessionHelp(os.Stderr)
}

func printSessionHelp(w io.Writer) {
	fmt.Fprintf(w, "  set <addr> <number|\"text\">     set a literal value\n")
	fmt.Fprintf(w, "  ref <addr> <addr>               set a formula: addr := other cell\n")
	fmt.Fprintf(w, "  sum <addr> <addr:addr>          set a formula: addr := SUM(range)\n")
	fmt.Fprintf(w, "  get <addr>                      print a cell's current value\n")
	fmt.Fprintf(w, "  clear <addr>                    clear a cell\n")
	fmt.Fprintf(w, "  eval                             evaluate_all\n")
	fmt.Fprintf(w, "  sheet <name>                    switch the active sheet (default Sheet1)\n")
	fmt.Fprintf(w, "  help                             show this command list\n")
	fmt.Fprintf(w, "  quit                             end the session\n")
}

func replCommand() int {
	sess := newSession()
	// Only prompt/echo the banner when stdin is an actual TTY; a piped
	// script should behave like batch mode (spec session contract has no
	// notion of an interactive prompt, so this is purely a REPL nicety).
	interactive := term.IsTerminal(int(os.Stdin.Fd()))
	if interactive {
		fmt.Println("calcsh — type 'help' for commands, 'quit' to exit")
	}
	return sess.run(os.Stdin, os.Stdout, interactive)
}

func batchCommand(args []string) int {
	if len(args) != 1 {
		fmt.Fprintf(os.Stderr, "Usage: calcsh batch <file>\n")
		return 2
	}
	var r io.Reader
	if args[0] == "-" {
		r = os.Stdin
	} else {
		f, err := os.Open(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "open error: %v\n", err)
			return 1
		}
		defer f.Close()
		r = f
	}
	sess := newSession()
	return sess.run(r, os.Stdout, false)
}

// session holds the live engine and the active sheet a bare address
// resolves against, mirroring the teacher's single-active-sheet REPL model.
type session struct {
	eng      *engine.Engine
	sheetIDs map[string]uint32
	sheet    uint32
}

func newSession() *session {
	s := &session{
		eng:      engine.New(config.Default()),
		sheetIDs: make(map[string]uint32),
	}
	s.sheet = s.eng.Graph().Sheets.GetOrCreate("Sheet1")
	s.sheetIDs["Sheet1"] = s.sheet
	return s
}

func (s *session) run(in io.Reader, out io.Writer, interactive bool) int {
	scanner := bufio.NewScanner(in)
	status := 0
	for {
		if interactive {
			fmt.Fprint(out, "calcsh> ")
		}
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if line == "quit" || line == "exit" {
			break
		}
		if err := s.dispatch(line, out); err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
			status = 1
		}
	}
	return status
}

func (s *session) dispatch(line string, out io.Writer) error {
	fields := strings.Fields(line)
	switch fields[0] {
	case "help":
		printSessionHelp(out)
		return nil
	case "sheet":
		if len(fields) != 2 {
			return fmt.Errorf("usage: sheet <name>")
		}
		id, ok := s.sheetIDs[fields[1]]
		if !ok {
			id = s.eng.Graph().Sheets.GetOrCreate(fields[1])
			s.sheetIDs[fields[1]] = id
		}
		s.sheet = id
		return nil
	case "set":
		return s.cmdSet(fields)
	case "ref":
		return s.cmdRef(fields)
	case "sum":
		return s.cmdSum(fields)
	case "get":
		return s.cmdGet(fields, out)
	case "clear":
		return s.cmdClear(fields)
	case "eval":
		return s.cmdEval(out)
	default:
		return fmt.Errorf("unknown command: %s", fields[0])
	}
}

func (s *session) cmdSet(fields []string) error {
	if len(fields) != 3 {
		return fmt.Errorf("usage: set <addr> <number|\"text\">")
	}
	row, col, err := parseA1(fields[1])
	if err != nil {
		return err
	}
	v, err := parseLiteral(fields[2])
	if err != nil {
		return err
	}
	_, err = s.eng.SetCellValue(s.sheet, row, col, v)
	return err
}

func (s *session) cmdRef(fields []string) error {
	if len(fields) != 3 {
		return fmt.Errorf("usage: ref <addr> <addr>")
	}
	row, col, err := parseA1(fields[1])
	if err != nil {
		return err
	}
	srcRow, srcCol, err := parseA1(fields[2])
	if err != nil {
		return err
	}
	_, err = s.eng.SetCellFormula(s.sheet, row, col, &ast.CellRef{Row: int32(srcRow), Col: int32(srcCol)})
	return err
}

func (s *session) cmdSum(fields []string) error {
	if len(fields) != 3 {
		return fmt.Errorf("usage: sum <addr> <addr:addr>")
	}
	row, col, err := parseA1(fields[1])
	if err != nil {
		return err
	}
	start, end, found := strings.Cut(fields[2], ":")
	if !found {
		return fmt.Errorf("range must be addr:addr, got %q", fields[2])
	}
	startRow, startCol, err := parseA1(start)
	if err != nil {
		return err
	}
	endRow, endCol, err := parseA1(end)
	if err != nil {
		return err
	}
	rng := &ast.RangeRef{
		Start: ast.CellRef{Row: int32(startRow), Col: int32(startCol)},
		End:   ast.CellRef{Row: int32(endRow), Col: int32(endCol)},
	}
	formula := &ast.FuncCall{Name: "SUM", Args: []ast.Node{rng}}
	_, err = s.eng.SetCellFormula(s.sheet, row, col, formula)
	return err
}

func (s *session) cmdGet(fields []string, out io.Writer) error {
	if len(fields) != 2 {
		return fmt.Errorf("usage: get <addr>")
	}
	row, col, err := parseA1(fields[1])
	if err != nil {
		return err
	}
	v := s.eng.GetCellValue(s.sheet, row, col)
	fmt.Fprintf(out, "%s: %s\n", fields[1], v.String())
	return nil
}

func (s *session) cmdClear(fields []string) error {
	if len(fields) != 2 {
		return fmt.Errorf("usage: clear <addr>")
	}
	row, col, err := parseA1(fields[1])
	if err != nil {
		return err
	}
	_, err = s.eng.ClearCell(s.sheet, row, col)
	return err
}

func (s *session) cmdEval(out io.Writer) error {
	result, err := s.eng.EvaluateAll(context.Background())
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "computed %d cells, %d cycle errors, %s\n",
		result.ComputedVertices, result.CycleErrors, result.Elapsed)
	return nil
}

func parseLiteral(tok string) (values.Value, error) {
	if strings.HasPrefix(tok, `"`) && strings.HasSuffix(tok, `"`) && len(tok) >= 2 {
		return values.Text(strings.Trim(tok, `"`)), nil
	}
	if tok == "TRUE" || tok == "FALSE" {
		return values.Bool(tok == "TRUE"), nil
	}
	f, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return values.Value{}, fmt.Errorf("invalid literal %q", tok)
	}
	return values.Num(f), nil
}

// parseA1 decodes an A1-style address ("B12") into 1-based (row, col),
// matching the numbering ast.ColumnLetters and the graph coordinates share.
func parseA1(addr string) (row, col uint32, err error) {
	i := 0
	for i < len(addr) && isAlpha(addr[i]) {
		i++
	}
	if i == 0 || i == len(addr) {
		return 0, 0, fmt.Errorf("invalid address %q", addr)
	}
	letters := strings.ToUpper(addr[:i])
	digits := addr[i:]

	c := 0
	for _, r := range letters {
		c = c*26 + int(r-'A'+1)
	}
	rowNum, err := strconv.Atoi(digits)
	if err != nil || rowNum <= 0 {
		return 0, 0, fmt.Errorf("invalid address %q", addr)
	}
	return uint32(rowNum), uint32(c), nil
}

func isAlpha(b byte) bool {
	return (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z')
}
