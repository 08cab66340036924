package types

import (
	"errors"
	"fmt"
)

// RefactorError represents errors raised while mining or evaluating refactorings
type RefactorError struct {
	Type    ErrorType
	Message string
	File    string
	Line    int
	Column  int
	Cause   error
}

func (e *RefactorError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("%s:%d:%d: %s", e.File, e.Line, e.Column, e.Message)
	}
	return e.Message
}

func (e *RefactorError) Unwrap() error {
	return e.Cause
}

type ErrorType int

const (
	ParseError ErrorType = iota
	SymbolNotFound
	InvalidOperation
	FileSystemError
	// SynthesisFailure: a line range cannot be turned into statements and a residual body.
	SynthesisFailure
	// EvaluationFailure: I/O or parse error while simulating one placement.
	EvaluationFailure
	// AmbiguousReturn: more than one in-range assignment is read after the range.
	AmbiguousReturn
	// NamingFailure: the naming collaborator failed or timed out.
	NamingFailure
	// LineResolutionFailure: positions of the analyzed unit cannot be mapped to lines.
	LineResolutionFailure
)

func (t ErrorType) String() string {
	switch t {
	case ParseError:
		return "ParseError"
	case SymbolNotFound:
		return "SymbolNotFound"
	case InvalidOperation:
		return "InvalidOperation"
	case FileSystemError:
		return "FileSystemError"
	case SynthesisFailure:
		return "SynthesisFailure"
	case EvaluationFailure:
		return "EvaluationFailure"
	case AmbiguousReturn:
		return "AmbiguousReturn"
	case NamingFailure:
		return "NamingFailure"
	case LineResolutionFailure:
		return "LineResolutionFailure"
	default:
		return "Unknown"
	}
}

// IsErrorType reports whether err wraps a RefactorError of kind t.
func IsErrorType(err error, t ErrorType) bool {
	var re *RefactorError
	return errors.As(err, &re) && re.Type == t
}

// AmbiguousReturnError lists every variable that could serve as the return value.
type AmbiguousReturnError struct {
	Candidates []string
	StartLine  int
	EndLine    int
}

func (e *AmbiguousReturnError) Error() string {
	return fmt.Sprintf("lines %d-%d: ambiguous return value, candidates %v", e.StartLine, e.EndLine, e.Candidates)
}

func (e *AmbiguousReturnError) Unwrap() error {
	return &RefactorError{Type: AmbiguousReturn, Message: "ambiguous return value"}
}
