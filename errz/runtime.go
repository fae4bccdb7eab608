package errz

import (
	"bytes"
	"errors"
	"fmt"
)

// RuntimeError is raised by the interpreter's slow-path handlers.
type RuntimeError struct {
	Kind     ErrorKind
	Message  string
	Function string
	PC       int
	Location SourceLocation
	Stack    []StackFrame
	Cause    error
}

// NewRuntimeError builds an error with a formatted message.
func NewRuntimeError(kind ErrorKind, format string, args ...any) *RuntimeError {
	return &RuntimeError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.Location.IsZero() {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s (%d:%d)", e.Kind, e.Message, e.Location.Line, e.Location.Column)
}

// Unwrap returns the underlying cause of the error.
func (e *RuntimeError) Unwrap() error {
	return e.Cause
}

// WithCause wraps the error with a cause.
func (e *RuntimeError) WithCause(cause error) *RuntimeError {
	e.Cause = cause
	return e
}

// FriendlyErrorMessage returns the error with a source snippet and the
// stack trace.
func (e *RuntimeError) FriendlyErrorMessage() string {
	var msg bytes.Buffer
	msg.WriteString(e.Error())
	msg.WriteString("\n")
	writeSnippet(&msg, e.Location)
	if len(e.Stack) > 0 {
		msg.WriteString("\n")
		msg.WriteString(FormatStackTrace(e.Stack))
	}
	return msg.String()
}

// KindOf returns the kind of a compile or runtime error anywhere in err's
// chain, and ErrUnknown, false for any other error.
func KindOf(err error) (ErrorKind, bool) {
	var rt *RuntimeError
	if errors.As(err, &rt) {
		return rt.Kind, true
	}
	var ce *CompileError
	if errors.As(err, &ce) {
		return ce.Kind, true
	}
	return ErrUnknown, false
}
