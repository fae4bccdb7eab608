package compiler

import (
	"encoding/binary"
	"fmt"

	"fortio.org/safecast"
	"github.com/clovervm/clover/bytecode"
	"github.com/clovervm/clover/op"
	"github.com/clovervm/clover/scope"
	"github.com/clovervm/clover/value"
)

// unit holds the state of one code object while it is being compiled.
type unit struct {
	name   string
	parent *unit

	code      []byte
	offsets   []uint32
	constants []value.Value
	// constIndex dedupes smi and string constants.
	constIndex map[value.Value]int

	// scope is the module scope or the function's local symbol table.
	scope *scope.Scope

	isFunction bool
	nParams    int
	// locals maps a name to its register encoding: an argument index for
	// parameters, a register for other locals.
	locals  map[value.Value]int
	nLocals int

	// nextTemp is the number of live temporaries; maxTemps the high-water
	// mark.
	nextTemp int
	maxTemps int

	labels []int
	fixups []fixup
	loops  []loop

	// pos is the source offset recorded for emitted bytes.
	pos uint32
}

type fixup struct {
	site  int // offset of the displacement bytes
	end   int // offset just past the jump instruction
	label int
	pos   uint32
}

type loop struct {
	breakLabel    int
	continueLabel int
}

func newUnit(name string, parent *unit, s *scope.Scope) *unit {
	return &unit{
		name:       name,
		parent:     parent,
		scope:      s,
		constIndex: map[value.Value]int{},
		locals:     map[value.Value]int{},
	}
}

func (u *unit) emit(opcode op.Code, operands ...byte) int {
	pos := len(u.code)
	u.code = append(u.code, byte(opcode))
	u.code = append(u.code, operands...)
	for i := pos; i < len(u.code); i++ {
		u.offsets = append(u.offsets, u.pos)
	}
	return pos
}

func (u *unit) emitReg(opcode op.Code, enc int) {
	u.emit(opcode, byte(int8(enc)))
}

// emitLdar loads a register into the accumulator, using the single-byte
// form when one exists.
func (u *unit) emitLdar(enc int) {
	if n := bytecode.RegisterNumber(enc); enc < -bytecode.FrameHeaderSize && n < op.ShortRegisters {
		u.emit(op.LdarShort + op.Code(n))
		return
	}
	u.emitReg(op.Ldar, enc)
}

// emitStar stores the accumulator into a register.
func (u *unit) emitStar(enc int) {
	if n := bytecode.RegisterNumber(enc); enc < -bytecode.FrameHeaderSize && n < op.ShortRegisters {
		u.emit(op.StarShort + op.Code(n))
		return
	}
	u.emitReg(op.Star, enc)
}

func (u *unit) emitGlobal(opcode op.Code, slot int32) error {
	idx, err := safecast.Conv[uint32](slot)
	if err != nil {
		return fmt.Errorf("global slot %d: %w", slot, err)
	}
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], idx)
	u.emit(opcode, buf[:]...)
	return nil
}

// addConstant returns the pool index of v, adding it if needed. Code
// objects are never deduplicated.
func (u *unit) addConstant(v value.Value, dedupe bool) (int, error) {
	if dedupe {
		if idx, ok := u.constIndex[v]; ok {
			return idx, nil
		}
	}
	if len(u.constants) >= bytecode.MaxConstants {
		return 0, fmt.Errorf("too many constants (limit %d)", bytecode.MaxConstants)
	}
	u.constants = append(u.constants, v)
	idx := len(u.constants) - 1
	if dedupe {
		u.constIndex[v] = idx
	}
	return idx, nil
}

func (u *unit) newLabel() int {
	u.labels = append(u.labels, -1)
	return len(u.labels) - 1
}

func (u *unit) bind(label int) {
	u.labels[label] = len(u.code)
}

// emitJump emits a jump to label with a placeholder displacement that
// resolveJumps fills in.
func (u *unit) emitJump(opcode op.Code, label int) {
	pos := u.emit(opcode, 0, 0)
	u.fixups = append(u.fixups, fixup{site: pos + 1, end: pos + 3, label: label, pos: u.pos})
}

// jumpRangeError reports a displacement that does not fit the encoding.
type jumpRangeError struct {
	distance int
	pos      uint32
}

func (e *jumpRangeError) Error() string {
	return fmt.Sprintf("jump distance %d out of range", e.distance)
}

// resolveJumps writes every jump displacement. It may run more than once.
func (u *unit) resolveJumps() error {
	for _, f := range u.fixups {
		target := u.labels[f.label]
		if target < 0 {
			panic(fmt.Sprintf("compiler: label %d never bound in %s", f.label, u.name))
		}
		disp, err := safecast.Conv[int16](target - f.end)
		if err != nil {
			return &jumpRangeError{distance: target - f.end, pos: f.pos}
		}
		binary.LittleEndian.PutUint16(u.code[f.site:], uint16(disp))
	}
	return nil
}

// temp is a temporary register. Temporaries are released in reverse order
// of allocation.
type temp struct {
	u   *unit
	reg int
}

// registerLimitError reports a code object needing more registers than the
// encoding allows.
type registerLimitError struct{}

func (registerLimitError) Error() string {
	return fmt.Sprintf("too many registers (limit %d)", bytecode.MaxRegisters)
}

func (u *unit) allocTemp() (temp, error) {
	reg := u.nLocals + u.nextTemp
	if reg >= bytecode.MaxRegisters {
		return temp{}, registerLimitError{}
	}
	u.nextTemp++
	if u.nextTemp > u.maxTemps {
		u.maxTemps = u.nextTemp
	}
	return temp{u: u, reg: reg}, nil
}

func (t temp) release() {
	if t.u == nil {
		return
	}
	if t.reg != t.u.nLocals+t.u.nextTemp-1 {
		panic(fmt.Sprintf("compiler: temporary r%d released out of order (top is r%d)",
			t.reg, t.u.nLocals+t.u.nextTemp-1))
	}
	t.u.nextTemp--
}

// operand returns the register encoding of the temporary.
func (t temp) operand() int {
	return bytecode.RegisterOperand(t.reg)
}

func (u *unit) pushLoop(breakLabel, continueLabel int) {
	u.loops = append(u.loops, loop{breakLabel: breakLabel, continueLabel: continueLabel})
}

func (u *unit) popLoop() {
	u.loops = u.loops[:len(u.loops)-1]
}

func (u *unit) currentLoop() (loop, bool) {
	if len(u.loops) == 0 {
		return loop{}, false
	}
	return u.loops[len(u.loops)-1], true
}
