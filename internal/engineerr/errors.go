// Package engineerr defines the typed error enumeration spec §6 asks for
// on structural and definition operations — the ones that can't be
// expressed as a cell value the way a formula's #REF!/#NAME? can.
// Grounded on the teacher's AppErrorCode/AppError pair (sheet.go), which
// pins one error code per case and carries a message; OpError keeps that
// shape and adds errors.Is/errors.As support via sentinel values, the
// convention katalvlaran/lvlath's core package uses throughout.
package engineerr

import "errors"

// Code enumerates structural/definition failure kinds.
type Code int

const (
	CodeUnknownSheet Code = iota + 1
	CodeInvalidNamePattern
	CodeDuplicateName
	CodeUnknownName
	CodeUnknownRegion
	CodeInvalidReference
	CodeCircularReference
)

// OpError is returned by structural/definition operations (spec §6 "Error
// surface").
type OpError struct {
	Code    Code
	Message string
}

func (e *OpError) Error() string { return e.Message }

// New builds an OpError.
func New(code Code, message string) *OpError {
	return &OpError{Code: code, Message: message}
}

// Sentinel values for errors.Is comparisons against the Code, following the
// sentinel-error convention in katalvlaran/lvlath/core (ErrVertexNotFound,
// ErrEdgeNotFound, ...).
var (
	ErrUnknownSheet        = errors.New("engineerr: unknown sheet")
	ErrInvalidNamePattern  = errors.New("engineerr: invalid name pattern")
	ErrDuplicateName       = errors.New("engineerr: duplicate name in scope")
	ErrUnknownName         = errors.New("engineerr: unknown name")
	ErrUnknownRegion       = errors.New("engineerr: unknown backend region")
	ErrInvalidReference    = errors.New("engineerr: invalid reference")
	ErrCircularReference   = errors.New("engineerr: circular reference")
)

func (e *OpError) sentinel() error {
	switch e.Code {
	case CodeUnknownSheet:
		return ErrUnknownSheet
	case CodeInvalidNamePattern:
		return ErrInvalidNamePattern
	case CodeDuplicateName:
		return ErrDuplicateName
	case CodeUnknownName:
		return ErrUnknownName
	case CodeUnknownRegion:
		return ErrUnknownRegion
	case CodeInvalidReference:
		return ErrInvalidReference
	case CodeCircularReference:
		return ErrCircularReference
	default:
		return nil
	}
}

// Is lets errors.Is(err, engineerr.ErrUnknownSheet) succeed against an
// *OpError carrying that code.
func (e *OpError) Is(target error) bool {
	return e.sentinel() == target
}
