package vm

import (
	"encoding/binary"

	"github.com/clovervm/clover/bytecode"
	"github.com/clovervm/clover/errz"
	"github.com/clovervm/clover/object"
	"github.com/clovervm/clover/op"
	"github.com/clovervm/clover/value"
)

// state is threaded through every handler. The accumulator and every
// register own one reference to their value.
type state struct {
	fp   int
	pc   int
	acc  value.Value
	code *bytecode.Code
}

// A handler performs one instruction and returns the next state. On error
// it returns the state it was given, so the failing instruction and an
// unchanged accumulator are visible to error reporting.
type handler func(t *Thread, s state) (state, error)

var handlers [256]handler

func init() {
	for i := range handlers {
		handlers[i] = opInvalid
	}
	handlers[op.Nop] = opNop
	handlers[op.Halt] = opHalt
	handlers[op.Return] = opReturn
	handlers[op.Call] = opCall
	handlers[op.LdaConstant] = opLdaConstant
	handlers[op.LdaSmi] = opLdaSmi
	handlers[op.LdaTrue] = opLdaTrue
	handlers[op.LdaFalse] = opLdaFalse
	handlers[op.LdaNone] = opLdaNone
	handlers[op.Ldar] = opLdar
	handlers[op.Star] = opStar
	handlers[op.LdaGlobal] = opLdaGlobal
	handlers[op.StaGlobal] = opStaGlobal
	for i, a := range arithmetic {
		handlers[op.Add+op.Code(i)] = registerArith(a)
		handlers[op.AddSmi+op.Code(i)] = immediateArith(a)
	}
	for i, c := range comparisons {
		handlers[op.Equal+op.Code(i)] = compareHandler(c)
	}
	handlers[op.Not] = opNot
	handlers[op.Negate] = opNegate
	handlers[op.Plus] = opPlus
	handlers[op.BitwiseNot] = opBitwiseNot
	handlers[op.Jump] = opJump
	handlers[op.JumpIfTrue] = opJumpIfTrue
	handlers[op.JumpIfFalse] = opJumpIfFalse
	handlers[op.MakeFunction] = opMakeFunction
	for r := 0; r < op.ShortRegisters; r++ {
		handlers[op.LdarShort+op.Code(r)] = opLdarShort
		handlers[op.StarShort+op.Code(r)] = opStarShort
	}
}

// execute steps the dispatch loop until Halt or an error.
func (t *Thread) execute(s state) (value.Value, error) {
	var err error
	for {
		s, err = handlers[s.code.Instructions[s.pc]](t, s)
		if err == nil {
			continue
		}
		if err == errHalt {
			t.unwind(s)
			t.drain()
			return s.acc, nil
		}
		return value.None, t.fail(s, err)
	}
}

// setAcc moves an owned reference into the accumulator.
func (t *Thread) setAcc(s *state, v value.Value) {
	old := s.acc
	s.acc = v
	t.zct.Decref(old)
}

func (t *Thread) release(idx int) {
	old := t.stack[idx]
	t.stack[idx] = value.None
	t.zct.Decref(old)
}

// clearFrame releases the arguments and registers of a frame and resets
// its header. The callee cell belongs to the caller's registers.
func (t *Thread) clearFrame(fp int, code *bytecode.Code) {
	for i := 0; i < code.NParameters; i++ {
		t.release(fp + i)
	}
	for i := 0; i < code.NRegisters(); i++ {
		t.release(fp + bytecode.RegisterOperand(i))
	}
	t.stack[fp+bytecode.HeaderReturnPC] = value.None
	t.stack[fp+bytecode.HeaderCallerCode] = value.None
	t.stack[fp+bytecode.HeaderCallerFP] = value.None
}

// unwind clears every frame from the current one to the module frame.
func (t *Thread) unwind(s state) {
	fp, code := s.fp, s.code
	for {
		caller := t.stack[fp+bytecode.HeaderCallerCode]
		callerFP := t.stack[fp+bytecode.HeaderCallerFP]
		t.clearFrame(fp, code)
		if caller.IsNone() {
			t.stack[fp+bytecode.HeaderCallee] = value.None
			return
		}
		fp, code = int(callerFP.Int()), bytecode.FromValue(caller)
	}
}

func truthy(v value.Value) bool {
	if !v.IsPtr() {
		return v.InlineTruthy()
	}
	if object.IsString(v) {
		return object.StringLen(v) > 0
	}
	return true
}

func typeName(v value.Value) string {
	return object.KlassOf(v).Name
}

func opInvalid(_ *Thread, s state) (state, error) {
	return s, errz.NewRuntimeError(errz.ErrRuntime, "invalid opcode %d", s.code.Instructions[s.pc])
}

func opNop(_ *Thread, s state) (state, error) {
	s.pc++
	return s, nil
}

func opHalt(_ *Thread, s state) (state, error) {
	return s, errHalt
}

func opLdaConstant(t *Thread, s state) (state, error) {
	k := s.code.Constants[s.code.Instructions[s.pc+1]]
	t.setAcc(&s, object.Incref(k))
	s.pc += 2
	return s, nil
}

func opLdaSmi(t *Thread, s state) (state, error) {
	t.setAcc(&s, value.Smi(int64(int8(s.code.Instructions[s.pc+1]))))
	s.pc += 2
	return s, nil
}

func opLdaTrue(t *Thread, s state) (state, error) {
	t.setAcc(&s, value.True)
	s.pc++
	return s, nil
}

func opLdaFalse(t *Thread, s state) (state, error) {
	t.setAcc(&s, value.False)
	s.pc++
	return s, nil
}

func opLdaNone(t *Thread, s state) (state, error) {
	t.setAcc(&s, value.None)
	s.pc++
	return s, nil
}

func (t *Thread) load(s state, enc, size int) (state, error) {
	v := t.stack[s.fp+enc]
	if v.IsNotPresent() {
		return s, nameError("local variable %q referenced before assignment", s.code.LocalName(enc))
	}
	t.setAcc(&s, object.Incref(v))
	s.pc += size
	return s, nil
}

// store increfs the accumulator before releasing the old register value,
// which may be the same object.
func (t *Thread) store(s state, enc, size int) state {
	idx := s.fp + enc
	old := t.stack[idx]
	t.stack[idx] = object.Incref(s.acc)
	t.zct.Decref(old)
	s.pc += size
	return s
}

func opLdar(t *Thread, s state) (state, error) {
	return t.load(s, int(int8(s.code.Instructions[s.pc+1])), 2)
}

func opLdarShort(t *Thread, s state) (state, error) {
	r := int(s.code.Instructions[s.pc] - byte(op.LdarShort))
	return t.load(s, bytecode.RegisterOperand(r), 1)
}

func opStar(t *Thread, s state) (state, error) {
	return t.store(s, int(int8(s.code.Instructions[s.pc+1])), 2), nil
}

func opStarShort(t *Thread, s state) (state, error) {
	r := int(s.code.Instructions[s.pc] - byte(op.StarShort))
	return t.store(s, bytecode.RegisterOperand(r), 1), nil
}

func globalOperand(s state) int32 {
	return int32(binary.LittleEndian.Uint32(s.code.Instructions[s.pc+1:]))
}

func opLdaGlobal(t *Thread, s state) (state, error) {
	idx := globalOperand(s)
	v := s.code.Globals.Slot(idx)
	if v.IsNotPresent() {
		return t.ldaGlobalSlow(s, idx)
	}
	t.setAcc(&s, object.Incref(v))
	s.pc += 5
	return s, nil
}

// ldaGlobalSlow resolves a global that has no value in the module scope
// through the cached builtins slot or a name lookup.
func (t *Thread) ldaGlobalSlow(s state, idx int32) (state, error) {
	t.m.mu.RLock()
	v := s.code.Globals.GetBySlotIndex(idx)
	t.m.mu.RUnlock()
	if v.IsNotPresent() {
		return s, nameError("name %q is not defined", s.code.GlobalName(int(idx)))
	}
	t.setAcc(&s, object.Incref(v))
	s.pc += 5
	return s, nil
}

func opStaGlobal(t *Thread, s state) (state, error) {
	s.code.Globals.SetBySlotIndex(globalOperand(s), s.acc, t.zct)
	s.pc += 5
	return s, nil
}

func jumpTarget(s state) int {
	disp := int(int16(binary.LittleEndian.Uint16(s.code.Instructions[s.pc+1:])))
	return s.pc + 3 + disp
}

func (t *Thread) jump(s state, target int) (state, error) {
	if target <= s.pc {
		if err := t.checkpoint(); err != nil {
			return s, err
		}
	}
	s.pc = target
	return s, nil
}

func opJump(t *Thread, s state) (state, error) {
	return t.jump(s, jumpTarget(s))
}

func opJumpIfTrue(t *Thread, s state) (state, error) {
	if truthy(s.acc) {
		return t.jump(s, jumpTarget(s))
	}
	s.pc += 3
	return s, nil
}

func opJumpIfFalse(t *Thread, s state) (state, error) {
	if !truthy(s.acc) {
		return t.jump(s, jumpTarget(s))
	}
	s.pc += 3
	return s, nil
}

func opMakeFunction(t *Thread, s state) (state, error) {
	code := s.code.Constants[s.code.Instructions[s.pc+1]]
	t.setAcc(&s, object.NewFunction(t.heap, code))
	s.pc += 2
	return s, nil
}

// opCall validates the callee, then moves the frame pointer so that the
// callee register becomes the new frame's callee cell and the argument
// registers above it become its arguments. Nothing is modified before the
// checks pass.
func opCall(t *Thread, s state) (state, error) {
	ins := s.code.Instructions
	calleeEnc := int(int8(ins[s.pc+1]))
	argc := int(ins[s.pc+2])
	callee := t.stack[s.fp+calleeEnc]
	if !object.IsFunction(callee) {
		return s, typeError("'%s' object is not callable", typeName(callee))
	}
	code := bytecode.FromValue(object.FunctionCode(callee))
	if argc != code.NParameters {
		return s, typeError("%s() takes %d positional argument%s but %d %s given",
			code.Name, code.NParameters, plural(code.NParameters), argc, wasWere(argc))
	}
	if err := t.checkpoint(); err != nil {
		return s, err
	}
	fp := s.fp + calleeEnc + 1
	bottom := fp - bytecode.FrameHeaderSize - code.NRegisters()
	if bottom < 0 {
		return s, errz.NewRuntimeError(errz.ErrRecursion, "maximum recursion depth exceeded")
	}

	// The new window may overlap stale caller temporaries.
	for i := bottom; i <= fp+bytecode.HeaderReturnPC; i++ {
		t.release(i)
	}
	for i := 0; i < code.NLocals; i++ {
		t.stack[fp+bytecode.RegisterOperand(i)] = value.NotPresent
	}
	t.stack[fp+bytecode.HeaderReturnPC] = value.Smi(int64(s.pc + callSize))
	t.stack[fp+bytecode.HeaderCallerCode] = s.code.Value()
	t.stack[fp+bytecode.HeaderCallerFP] = value.Smi(int64(s.fp))
	if t.zct.Pending() > t.drainThreshold {
		t.drain()
	}
	s.fp = fp
	s.pc = 0
	s.code = code
	return s, nil
}

// opReturn releases the frame, drains the worklist and resumes the caller
// with the accumulator as the result.
func opReturn(t *Thread, s state) (state, error) {
	fp := s.fp
	retPC := t.stack[fp+bytecode.HeaderReturnPC]
	caller := t.stack[fp+bytecode.HeaderCallerCode]
	callerFP := t.stack[fp+bytecode.HeaderCallerFP]
	if caller.IsNone() {
		return s, errz.NewRuntimeError(errz.ErrRuntime, "return outside function")
	}
	t.clearFrame(fp, s.code)
	t.drain()
	s.fp = int(callerFP.Int())
	s.pc = int(retPC.Int())
	s.code = bytecode.FromValue(caller)
	return s, nil
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

func wasWere(n int) string {
	if n == 1 {
		return "was"
	}
	return "were"
}
