package vm

import (
	"context"
	"errors"
	"fmt"

	"github.com/clovervm/clover/bytecode"
	"github.com/clovervm/clover/compiler"
	"github.com/clovervm/clover/errz"
	"github.com/clovervm/clover/heap"
	"github.com/clovervm/clover/object"
	"github.com/clovervm/clover/parser"
	"github.com/clovervm/clover/value"
	"github.com/rs/zerolog"
)

// Thread is one interpreter thread: a register stack addressed relative to
// a frame pointer, a thread heap for new objects and a zero-count worklist.
//
// The stack grows toward index zero. A module frame's pointer is the
// length of the stack; each call moves the pointer down by an offset the
// compiler fixed.
type Thread struct {
	m     *Machine
	heap  *heap.ThreadHeap
	zct   *object.ZeroCountTable
	stack []value.Value
	log   zerolog.Logger

	drainThreshold int
	interval       int
	countdown      int
	ctx            context.Context
	running        bool
	released       bool

	// faultFP is the frame pointer of the last failing instruction.
	faultFP int
}

// Machine returns the machine the thread belongs to.
func (t *Thread) Machine() *Machine { return t.m }

// Compile parses and compiles src. The code object belongs to the caller,
// who releases it with Decref.
func (t *Thread) Compile(ctx context.Context, filename, src string, rule parser.Rule) (*bytecode.Code, error) {
	tree, err := parser.Parse(ctx, src, rule, t.m.interns, parser.WithFilename(filename))
	if err != nil {
		return nil, err
	}
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	return compiler.Compile(tree, &compiler.Config{
		Filename:       filename,
		Source:         src,
		Allocator:      t.heap,
		ZeroCountTable: t.zct,
		Builtins:       t.m.builtins,
	})
}

// Eval compiles and runs src, returning the result as a new reference.
func (t *Thread) Eval(ctx context.Context, filename, src string, rule parser.Rule) (value.Value, error) {
	code, err := t.Compile(ctx, filename, src, rule)
	if err != nil {
		return value.None, err
	}
	defer t.Decref(code.Value())
	return t.Run(ctx, code)
}

// Run executes module code to its Halt instruction and returns the
// accumulator. The result is a new reference owned by the caller. Runtime
// failures are returned as *errz.RuntimeError.
func (t *Thread) Run(ctx context.Context, code *bytecode.Code) (result value.Value, err error) {
	if t.released {
		return value.None, errors.New("thread has been released")
	}
	if t.running {
		return value.None, errors.New("thread is already running")
	}
	if !code.IsModule() {
		return value.None, fmt.Errorf("%s is not module code", code.Name)
	}
	t.running = true
	t.ctx = ctx
	t.countdown = t.interval
	defer func() {
		if r := recover(); r != nil {
			t.reset()
			result, err = value.None, fmt.Errorf("panic: %v", r)
		}
		t.running = false
		t.ctx = nil
	}()

	fp := len(t.stack)
	if fp-bytecode.FrameHeaderSize-code.NRegisters() < 0 {
		return value.None, errz.NewRuntimeError(errz.ErrRecursion, "stack too small for %s", code.Name)
	}
	t.stack[fp+bytecode.HeaderCallee] = value.None
	t.stack[fp+bytecode.HeaderReturnPC] = value.None
	t.stack[fp+bytecode.HeaderCallerCode] = value.None
	t.stack[fp+bytecode.HeaderCallerFP] = value.None
	return t.execute(state{fp: fp, code: code, acc: value.None})
}

// Global returns the module global name of code, following the builtins
// scope. The reference is borrowed.
func (t *Thread) Global(code *bytecode.Code, name string) (value.Value, bool) {
	key, ok := t.m.interns.Lookup(name)
	if !ok || code.Globals == nil {
		return value.NotPresent, false
	}
	t.m.mu.RLock()
	defer t.m.mu.RUnlock()
	v := code.Globals.GetByName(key)
	return v, !v.IsNotPresent()
}

// Decref drops a reference obtained from the thread and reclaims whatever
// became unreachable.
func (t *Thread) Decref(v value.Value) {
	t.zct.Decref(v)
	t.drain()
}

// Finalized returns the number of objects the thread has reclaimed.
func (t *Thread) Finalized() int { return t.zct.Finalized() }

// Release detaches the thread from its machine. Code objects and values
// created by the thread must have been released first.
func (t *Thread) Release() {
	if t.released {
		return
	}
	t.drain()
	t.released = true
	t.m.forget(t)
}

func (t *Thread) drain() {
	if n := t.zct.Drain(); n > 0 {
		t.log.Trace().Int("finalized", n).Int("total", t.zct.Finalized()).Msg("drained worklist")
	}
}

// checkpoint polls the context every interval calls and backward jumps.
func (t *Thread) checkpoint() error {
	if t.interval <= 0 || t.ctx == nil {
		return nil
	}
	t.countdown--
	if t.countdown > 0 {
		return nil
	}
	t.countdown = t.interval
	if err := t.ctx.Err(); err != nil {
		return errz.NewRuntimeError(errz.ErrRuntime, "execution cancelled").WithCause(err)
	}
	return nil
}

// reset abandons every value on the stack without releasing it. It is
// only used after a panic, when the frame chain cannot be trusted.
func (t *Thread) reset() {
	for i := range t.stack {
		t.stack[i] = value.None
	}
	t.log.Warn().Msg("thread stack reset after panic")
}
