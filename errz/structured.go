// Package errz defines the error kinds raised by the compiler and the
// interpreter, together with source locations and stack traces.
package errz

import (
	"bytes"
	"fmt"
	"strings"
)

// ErrorKind represents the category of an error.
type ErrorKind int

const (
	// ErrUnknown is the zero kind, reported for errors that carry no kind.
	ErrUnknown ErrorKind = iota
	// ErrSyntax indicates a lexing or parsing error.
	ErrSyntax
	// ErrCompile indicates code that parses but cannot be compiled.
	ErrCompile
	// ErrName indicates an unbound variable.
	ErrName
	// ErrType indicates an operation applied to an unsupported type.
	ErrType
	// ErrOverflow indicates an integer result outside the small-integer range.
	ErrOverflow
	// ErrValue indicates an invalid operand value, such as a negative shift.
	ErrValue
	// ErrZeroDivision indicates division or modulo by zero.
	ErrZeroDivision
	// ErrRecursion indicates the register stack is exhausted.
	ErrRecursion
	// ErrRuntime indicates any other runtime failure.
	ErrRuntime
)

// String returns the string representation of the error kind.
func (k ErrorKind) String() string {
	switch k {
	case ErrUnknown:
		return "unknown error"
	case ErrSyntax:
		return "syntax error"
	case ErrCompile:
		return "compile error"
	case ErrName:
		return "name error"
	case ErrType:
		return "type error"
	case ErrOverflow:
		return "overflow error"
	case ErrValue:
		return "value error"
	case ErrZeroDivision:
		return "zero division error"
	case ErrRecursion:
		return "recursion error"
	case ErrRuntime:
		return "runtime error"
	default:
		return "error"
	}
}

// SourceLocation identifies a position in a source file.
type SourceLocation struct {
	Filename string
	Offset   int
	Line     int    // 1-based
	Column   int    // 1-based
	Source   string // the full source line
}

// IsZero reports whether the location is unset.
func (l SourceLocation) IsZero() bool {
	return l.Line == 0
}

func (l SourceLocation) String() string {
	if l.Filename != "" {
		return fmt.Sprintf("%s:%d:%d", l.Filename, l.Line, l.Column)
	}
	return fmt.Sprintf("%d:%d", l.Line, l.Column)
}

// LocationOf converts a byte offset into a location within src.
func LocationOf(filename, src string, offset int) SourceLocation {
	if offset < 0 {
		return SourceLocation{}
	}
	if offset > len(src) {
		offset = len(src)
	}
	line := 1 + strings.Count(src[:offset], "\n")
	start := strings.LastIndexByte(src[:offset], '\n') + 1
	end := strings.IndexByte(src[offset:], '\n')
	if end < 0 {
		end = len(src)
	} else {
		end += offset
	}
	return SourceLocation{
		Filename: filename,
		Offset:   offset,
		Line:     line,
		Column:   offset - start + 1,
		Source:   src[start:end],
	}
}

// StackFrame is one entry of a runtime stack trace.
type StackFrame struct {
	Function string
	Location SourceLocation
}

// FormatStackTrace renders frames innermost first.
func FormatStackTrace(frames []StackFrame) string {
	var b strings.Builder
	b.WriteString("stack trace (most recent call first):\n")
	for _, f := range frames {
		if f.Location.IsZero() {
			fmt.Fprintf(&b, "  in %s\n", f.Function)
		} else {
			fmt.Fprintf(&b, "  in %s at %s\n", f.Function, f.Location)
		}
	}
	return b.String()
}

func writeSnippet(msg *bytes.Buffer, loc SourceLocation) {
	if loc.Source == "" {
		return
	}
	msg.WriteString(" | ")
	msg.WriteString(loc.Source)
	msg.WriteString("\n")
	if loc.Column > 0 {
		msg.WriteString(" | ")
		msg.WriteString(strings.Repeat(" ", loc.Column-1))
		msg.WriteString("^\n")
	}
}
