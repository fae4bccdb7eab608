package bytecode

import (
	"encoding/binary"
	"fmt"

	"github.com/clovervm/clover/op"
)

// Instruction is one decoded instruction.
type Instruction struct {
	Offset int
	Op     op.Code
	Info   op.Info
	// Args holds the decoded operands in Info.Operands order. Registers
	// and immediates are sign-extended.
	Args [2]int
}

// End returns the offset just past the instruction.
func (i Instruction) End() int { return i.Offset + i.Info.Size }

// Register returns the register encoding used by the instruction, taking
// short forms into account. ok is false when there is none.
func (i Instruction) Register() (enc int, ok bool) {
	if i.Info.Register >= 0 {
		return RegisterOperand(i.Info.Register), true
	}
	for n, o := range i.Info.Operands {
		if o == op.Reg {
			return i.Args[n], true
		}
	}
	return 0, false
}

// JumpTarget returns the absolute target of a jump instruction.
func (i Instruction) JumpTarget() (int, bool) {
	if len(i.Info.Operands) == 1 && i.Info.Operands[0] == op.Jump16 {
		return i.End() + i.Args[0], true
	}
	return 0, false
}

// Decode decodes the instruction at pc.
func Decode(code []byte, pc int) (Instruction, error) {
	if pc < 0 || pc >= len(code) {
		return Instruction{}, fmt.Errorf("pc %d out of range", pc)
	}
	c := op.Code(code[pc])
	info := op.GetInfo(c)
	if !info.Valid() {
		return Instruction{}, fmt.Errorf("invalid opcode %d at %d", code[pc], pc)
	}
	if pc+info.Size > len(code) {
		return Instruction{}, fmt.Errorf("truncated %s at %d", info.Name, pc)
	}
	ins := Instruction{Offset: pc, Op: c, Info: info}
	pos := pc + 1
	for n, o := range info.Operands {
		switch o {
		case op.Reg, op.Imm8:
			ins.Args[n] = int(int8(code[pos]))
		case op.Const, op.Count:
			ins.Args[n] = int(code[pos])
		case op.Jump16:
			ins.Args[n] = int(int16(binary.LittleEndian.Uint16(code[pos:])))
		case op.Global32:
			ins.Args[n] = int(binary.LittleEndian.Uint32(code[pos:]))
		}
		pos += o.Size()
	}
	return ins, nil
}

// DecodeAll decodes a complete instruction stream.
func DecodeAll(code []byte) ([]Instruction, error) {
	var out []Instruction
	for pc := 0; pc < len(code); {
		ins, err := Decode(code, pc)
		if err != nil {
			return nil, err
		}
		out = append(out, ins)
		pc = ins.End()
	}
	return out, nil
}
