package errz

import (
	"bytes"
	"fmt"
	"strings"
)

// CompileError is raised by the parser and the code generator. No code
// object is produced when one occurs.
type CompileError struct {
	Kind     ErrorKind
	Message  string
	Location SourceLocation
}

// NewCompileError builds an error at a byte offset of src.
func NewCompileError(kind ErrorKind, filename, src string, offset int, format string, args ...any) *CompileError {
	return &CompileError{
		Kind:     kind,
		Message:  fmt.Sprintf(format, args...),
		Location: LocationOf(filename, src, offset),
	}
}

// Error implements the error interface.
func (e *CompileError) Error() string {
	var b strings.Builder
	if e.Kind == ErrSyntax {
		b.WriteString("syntax error: ")
	} else {
		b.WriteString("compile error: ")
	}
	b.WriteString(e.Message)
	if !e.Location.IsZero() {
		b.WriteString("\n\nlocation: ")
		b.WriteString(e.Location.String())
		fmt.Fprintf(&b, " (line %d, column %d)", e.Location.Line, e.Location.Column)
	}
	return b.String()
}

// Offset returns the byte offset the error was reported at.
func (e *CompileError) Offset() int { return e.Location.Offset }

// FriendlyErrorMessage renders the error with a source snippet.
func (e *CompileError) FriendlyErrorMessage() string {
	var msg bytes.Buffer
	if e.Location.IsZero() {
		fmt.Fprintf(&msg, "%s: %s\n", e.Kind, e.Message)
		return msg.String()
	}
	fmt.Fprintf(&msg, "%s: %s (%s)\n", e.Kind, e.Message, e.Location)
	writeSnippet(&msg, e.Location)
	return msg.String()
}
