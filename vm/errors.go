package vm

import (
	"errors"
	"fmt"

	"github.com/clovervm/clover/bytecode"
	"github.com/clovervm/clover/errz"
	"github.com/clovervm/clover/op"
)

// errHalt ends the dispatch loop normally.
var errHalt = errors.New("halt")

// maxTraceFrames bounds the stack trace attached to an error. Deeper
// traces keep the innermost frames and the module frame.
const maxTraceFrames = 64

func nameError(format string, args ...any) error {
	return errz.NewRuntimeError(errz.ErrName, format, args...)
}

func typeError(format string, args ...any) error {
	return errz.NewRuntimeError(errz.ErrType, format, args...)
}

func overflowError(format string, args ...any) error {
	return errz.NewRuntimeError(errz.ErrOverflow, format, args...)
}

func valueError(format string, args ...any) error {
	return errz.NewRuntimeError(errz.ErrValue, format, args...)
}

func zeroDivisionError(format string, args ...any) error {
	return errz.NewRuntimeError(errz.ErrZeroDivision, format, args...)
}

var callSize = op.GetInfo(op.Call).Size

// fail attaches the failing location and stack trace to err, then unwinds
// every frame of the run.
func (t *Thread) fail(s state, err error) error {
	t.faultFP = s.fp
	var rerr *errz.RuntimeError
	if !errors.As(err, &rerr) {
		rerr = errz.NewRuntimeError(errz.ErrRuntime, "%s", err.Error()).WithCause(err)
	}
	if rerr.Function == "" {
		rerr.Function = s.code.Name
		rerr.PC = s.pc
		rerr.Location = s.code.LocationAt(s.pc)
		rerr.Stack = t.stackTrace(s)
	}
	t.log.Debug().Err(rerr).Str("function", rerr.Function).Int("pc", rerr.PC).Msg("runtime error")
	t.unwind(s)
	t.zct.Decref(s.acc)
	t.drain()
	return rerr
}

// stackTrace walks the frame headers from the failing frame to the module
// frame. Caller locations point at the call instruction.
func (t *Thread) stackTrace(s state) []errz.StackFrame {
	frames := []errz.StackFrame{{Function: s.code.Name, Location: s.code.LocationAt(s.pc)}}
	skipped := 0
	for fp := s.fp; ; {
		caller := t.stack[fp+bytecode.HeaderCallerCode]
		if caller.IsNone() {
			break
		}
		code := bytecode.FromValue(caller)
		pc := int(t.stack[fp+bytecode.HeaderReturnPC].Int()) - callSize
		fp = int(t.stack[fp+bytecode.HeaderCallerFP].Int())
		if !code.IsModule() && len(frames) >= maxTraceFrames-2 {
			skipped++
			continue
		}
		if skipped > 0 {
			frames = append(frames, errz.StackFrame{Function: fmt.Sprintf("... %d more frames", skipped)})
		}
		frames = append(frames, errz.StackFrame{Function: code.Name, Location: code.LocationAt(pc)})
	}
	return frames
}
