// Package values defines the closed set of runtime values the interpreter
// produces and consumes: LiteralValue (here: Value) and ExcelErrorKind.
//
// Value is a tagged union rather than an interface hierarchy — the teacher
// (vogtb/go-spreadsheet) represents cell contents as a bare `any` ("Primitive"),
// which works until broadcasting and array results need to distinguish
// "array of one empty cell" from "empty". Spec §4.5.1 asks for a closed sum
// type, so this package pins the Kind enum instead and keeps cheap (non-Array)
// values on the stack.
package values

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Kind identifies which field of a Value is meaningful.
type Kind uint8

const (
	KindEmpty Kind = iota
	KindInt
	KindNumber
	KindBoolean
	KindText
	KindDate
	KindDateTime
	KindTime
	KindDuration
	KindArray
	KindError
	KindPending
)

func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "Empty"
	case KindInt:
		return "Int"
	case KindNumber:
		return "Number"
	case KindBoolean:
		return "Boolean"
	case KindText:
		return "Text"
	case KindDate:
		return "Date"
	case KindDateTime:
		return "DateTime"
	case KindTime:
		return "Time"
	case KindDuration:
		return "Duration"
	case KindArray:
		return "Array"
	case KindError:
		return "Error"
	case KindPending:
		return "Pending"
	default:
		return "Unknown"
	}
}

// ErrorKind enumerates the Excel error values. Propagation rules live in
// the interpreter and in package doc for spec §7.
type ErrorKind uint8

const (
	ErrNull ErrorKind = iota
	ErrDiv
	ErrValue
	ErrRef
	ErrName
	ErrNum
	ErrNA
	ErrError
	ErrNImpl
	ErrSpill
	ErrCalc
	ErrCirc
	ErrCancelled
)

var errorText = map[ErrorKind]string{
	ErrNull:      "#NULL!",
	ErrDiv:       "#DIV/0!",
	ErrValue:     "#VALUE!",
	ErrRef:       "#REF!",
	ErrName:      "#NAME?",
	ErrNum:       "#NUM!",
	ErrNA:        "#N/A",
	ErrError:     "#ERROR!",
	ErrNImpl:     "#NIMPL!",
	ErrSpill:     "#SPILL!",
	ErrCalc:      "#CALC!",
	ErrCirc:      "#CIRC!",
	ErrCancelled: "#CANCELLED!",
}

func (e ErrorKind) String() string {
	if s, ok := errorText[e]; ok {
		return s
	}
	return "#ERROR!"
}

// Value is the tagged-union LiteralValue of spec §4.5.1.
type Value struct {
	Kind  Kind
	Num   float64     // Number, Date/DateTime/Time serial, Duration (days)
	Int   int64       // Int
	Text  string      // Text
	Bool  bool        // Boolean
	Err   ErrorKind   // Error
	Array [][]Value   // Array, row-major
}

// Empty is the zero/blank cell value.
func Empty() Value { return Value{Kind: KindEmpty} }

// IntV builds an Int value.
func IntV(i int64) Value { return Value{Kind: KindInt, Int: i} }

// Num builds a Number value.
func Num(f float64) Value { return Value{Kind: KindNumber, Num: f} }

// Bool builds a Boolean value.
func Bool(b bool) Value { return Value{Kind: KindBoolean, Bool: b} }

// Text builds a Text value.
func Text(s string) Value { return Value{Kind: KindText, Text: s} }

// DateV builds a Date value from a date-system serial number.
func DateV(serial float64) Value { return Value{Kind: KindDate, Num: serial} }

// DateTimeV builds a DateTime value from a date-system serial number.
func DateTimeV(serial float64) Value { return Value{Kind: KindDateTime, Num: serial} }

// TimeV builds a Time-of-day value (fraction of a day, 0..1).
func TimeV(frac float64) Value { return Value{Kind: KindTime, Num: frac} }

// DurationV builds a Duration value measured in days.
func DurationV(days float64) Value { return Value{Kind: KindDuration, Num: days} }

// ArrayV builds an Array value from row-major data.
func ArrayV(rows [][]Value) Value { return Value{Kind: KindArray, Array: rows} }

// Error builds an Error value.
func Error(kind ErrorKind) Value { return Value{Kind: KindError, Err: kind} }

// Pending marks a value that has not yet been computed (used mid-evaluation
// for cells awaiting their layer).
func Pending() Value { return Value{Kind: KindPending} }

// IsError reports whether v is an Error value.
func (v Value) IsError() bool { return v.Kind == KindError }

// IsArray reports whether v is an Array value.
func (v Value) IsArray() bool { return v.Kind == KindArray }

// Dims returns the shape of v, treating any non-array as a 1x1 scalar.
func (v Value) Dims() (rows, cols int) {
	if v.Kind != KindArray {
		return 1, 1
	}
	if len(v.Array) == 0 {
		return 0, 0
	}
	return len(v.Array), len(v.Array[0])
}

// At returns the scalar element at (r,c), broadcasting a 1x1 scalar to any
// coordinate and replicating singleton rows/columns of an array (the caller
// is expected to have already validated compatibility via Broadcastable).
func (v Value) At(r, c int) Value {
	if v.Kind != KindArray {
		return v
	}
	rows, cols := v.Dims()
	rr, cc := r, c
	if rows == 1 {
		rr = 0
	}
	if cols == 1 {
		cc = 0
	}
	if rr < 0 || rr >= len(v.Array) || cc < 0 || cc >= len(v.Array[rr]) {
		return Error(ErrValue)
	}
	return v.Array[rr][cc]
}

// Equal is a structural equality check used by tests and by formula
// deduplication; it intentionally does not implement spreadsheet comparison
// semantics (see coercion.Compare for that).
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindInt:
		return v.Int == o.Int
	case KindNumber, KindDate, KindDateTime, KindTime, KindDuration:
		return v.Num == o.Num
	case KindBoolean:
		return v.Bool == o.Bool
	case KindText:
		return v.Text == o.Text
	case KindError:
		return v.Err == o.Err
	case KindArray:
		if len(v.Array) != len(o.Array) {
			return false
		}
		for i := range v.Array {
			if len(v.Array[i]) != len(o.Array[i]) {
				return false
			}
			for j := range v.Array[i] {
				if !v.Array[i][j].Equal(o.Array[i][j]) {
					return false
				}
			}
		}
		return true
	default:
		return true
	}
}

// String renders v using invariant formatting, for debugging/logging only —
// it is not the spreadsheet display format.
func (v Value) String() string {
	switch v.Kind {
	case KindEmpty:
		return ""
	case KindPending:
		return "<pending>"
	case KindInt:
		return strconv.FormatInt(v.Int, 10)
	case KindNumber:
		return strconv.FormatFloat(v.Num, 'g', -1, 64)
	case KindBoolean:
		if v.Bool {
			return "TRUE"
		}
		return "FALSE"
	case KindText:
		return v.Text
	case KindDate:
		return SerialToDate(v.Num, Excel1900).Format("2006-01-02")
	case KindDateTime:
		return SerialToDate(v.Num, Excel1900).Format("2006-01-02T15:04:05")
	case KindTime:
		return SerialToDate(v.Num, Excel1900).Format("15:04:05")
	case KindDuration:
		return fmt.Sprintf("%gd", v.Num)
	case KindError:
		return v.Err.String()
	case KindArray:
		parts := make([]string, 0, len(v.Array))
		for _, row := range v.Array {
			cells := make([]string, 0, len(row))
			for _, c := range row {
				cells = append(cells, c.String())
			}
			parts = append(parts, strings.Join(cells, ","))
		}
		return "{" + strings.Join(parts, ";") + "}"
	default:
		return ""
	}
}

// DateSystem selects Excel's 1900 (with its deliberate 1900-leap-year bug)
// or 1904 epoch, per spec §6 date_system.
type DateSystem uint8

const (
	Excel1900 DateSystem = iota
	Excel1904
)

var (
	epoch1900 = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)
	epoch1904 = time.Date(1904, time.January, 1, 0, 0, 0, 0, time.UTC)
)

// SerialToDate converts a date-system serial number to a UTC time.Time.
func SerialToDate(serial float64, sys DateSystem) time.Time {
	base := epoch1900
	if sys == Excel1904 {
		base = epoch1904
	}
	days := math.Trunc(serial)
	frac := serial - days
	t := base.AddDate(0, 0, int(days))
	return t.Add(time.Duration(frac * 24 * float64(time.Hour)))
}

// DateToSerial converts a UTC time.Time to a date-system serial number,
// reproducing the 1900 system's well-known leap-year bug: serial 60 is
// treated as 1900-02-29 even though 1900 was not a leap year, so every
// real date on or after 1900-03-01 is one serial higher than a naive
// day-count would produce.
func DateToSerial(t time.Time, sys DateSystem) float64 {
	base := epoch1900
	if sys == Excel1904 {
		base = epoch1904
	}
	d := t.Sub(base)
	serial := d.Hours() / 24
	if sys == Excel1900 && t.After(time.Date(1900, time.February, 28, 0, 0, 0, 0, time.UTC)) {
		serial += 1
	}
	return serial
}
