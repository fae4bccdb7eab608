// Package op defines the opcodes of the register bytecode and the operand
// layout of each.
package op

import "fmt"

// Code is a one-byte opcode.
type Code uint8

const (
	Invalid Code = 0

	// Execution
	Nop    Code = 1
	Halt   Code = 2
	Return Code = 3
	Call   Code = 4

	// Accumulator loads and stores
	LdaConstant Code = 10
	LdaSmi      Code = 11
	LdaTrue     Code = 12
	LdaFalse    Code = 13
	LdaNone     Code = 14
	Ldar        Code = 15
	Star        Code = 16
	LdaGlobal   Code = 17
	StaGlobal   Code = 18

	// Binary operations: register (left) op accumulator (right)
	Add        Code = 30
	Sub        Code = 31
	Mul        Code = 32
	Div        Code = 33
	IntDiv     Code = 34
	Pow        Code = 35
	LeftShift  Code = 36
	RightShift Code = 37
	Mod        Code = 38
	BitwiseOr  Code = 39
	BitwiseAnd Code = 40
	BitwiseXor Code = 41

	// Binary operations: accumulator (left) op immediate (right)
	AddSmi        Code = 50
	SubSmi        Code = 51
	MulSmi        Code = 52
	DivSmi        Code = 53
	IntDivSmi     Code = 54
	PowSmi        Code = 55
	LeftShiftSmi  Code = 56
	RightShiftSmi Code = 57
	ModSmi        Code = 58
	BitwiseOrSmi  Code = 59
	BitwiseAndSmi Code = 60
	BitwiseXorSmi Code = 61

	// Comparisons: register (left) op accumulator (right)
	Equal        Code = 70
	NotEqual     Code = 71
	Less         Code = 72
	LessEqual    Code = 73
	Greater      Code = 74
	GreaterEqual Code = 75

	// Unary operations on the accumulator
	Not        Code = 80
	Negate     Code = 81
	Plus       Code = 82
	BitwiseNot Code = 83

	// Control flow
	Jump        Code = 90
	JumpIfTrue  Code = 91
	JumpIfFalse Code = 92

	// Functions
	MakeFunction Code = 100

	// Single-byte forms of Ldar and Star for registers r0..r15.
	LdarShort Code = 0xc0
	StarShort Code = 0xd0
)

// ShortRegisters is the number of registers with single-byte Ldar/Star
// forms.
const ShortRegisters = 16

// SmiForm maps a register-operand binary op to its immediate form.
func SmiForm(c Code) Code {
	if c >= Add && c <= BitwiseXor {
		return c - Add + AddSmi
	}
	return Invalid
}

// Operand describes the encoding of one operand.
type Operand uint8

const (
	// Reg is a signed frame-relative register byte.
	Reg Operand = iota + 1
	// Const is an unsigned constant-pool index byte.
	Const
	// Imm8 is a signed 8-bit immediate.
	Imm8
	// Jump16 is a signed little-endian displacement relative to the end of
	// the instruction.
	Jump16
	// Global32 is an unsigned little-endian global slot index.
	Global32
	// Count is an unsigned argument count byte.
	Count
)

// Size returns the number of bytes the operand occupies.
func (o Operand) Size() int {
	switch o {
	case Jump16:
		return 2
	case Global32:
		return 4
	default:
		return 1
	}
}

func (o Operand) String() string {
	switch o {
	case Reg:
		return "reg"
	case Const:
		return "const"
	case Imm8:
		return "imm8"
	case Jump16:
		return "jump16"
	case Global32:
		return "global32"
	case Count:
		return "count"
	default:
		return fmt.Sprintf("operand(%d)", uint8(o))
	}
}

// Info contains information about an opcode.
type Info struct {
	Code     Code
	Name     string
	Operands []Operand
	// Register is the implicit register number of a short form, or -1.
	Register int
	// Size is the total encoded length in bytes.
	Size int
}

// Valid reports whether the info describes a defined opcode.
func (i Info) Valid() bool { return i.Name != "" }

var infos = make([]Info, 256)

func init() {
	type opInfo struct {
		op       Code
		name     string
		operands []Operand
	}
	ops := []opInfo{
		{Nop, "Nop", nil},
		{Halt, "Halt", nil},
		{Return, "Return", nil},
		{Call, "Call", []Operand{Reg, Count}},
		{LdaConstant, "LdaConstant", []Operand{Const}},
		{LdaSmi, "LdaSmi", []Operand{Imm8}},
		{LdaTrue, "LdaTrue", nil},
		{LdaFalse, "LdaFalse", nil},
		{LdaNone, "LdaNone", nil},
		{Ldar, "Ldar", []Operand{Reg}},
		{Star, "Star", []Operand{Reg}},
		{LdaGlobal, "LdaGlobal", []Operand{Global32}},
		{StaGlobal, "StaGlobal", []Operand{Global32}},
		{Add, "Add", []Operand{Reg}},
		{Sub, "Sub", []Operand{Reg}},
		{Mul, "Mul", []Operand{Reg}},
		{Div, "Div", []Operand{Reg}},
		{IntDiv, "IntDiv", []Operand{Reg}},
		{Pow, "Pow", []Operand{Reg}},
		{LeftShift, "LeftShift", []Operand{Reg}},
		{RightShift, "RightShift", []Operand{Reg}},
		{Mod, "Mod", []Operand{Reg}},
		{BitwiseOr, "BitwiseOr", []Operand{Reg}},
		{BitwiseAnd, "BitwiseAnd", []Operand{Reg}},
		{BitwiseXor, "BitwiseXor", []Operand{Reg}},
		{AddSmi, "AddSmi", []Operand{Imm8}},
		{SubSmi, "SubSmi", []Operand{Imm8}},
		{MulSmi, "MulSmi", []Operand{Imm8}},
		{DivSmi, "DivSmi", []Operand{Imm8}},
		{IntDivSmi, "IntDivSmi", []Operand{Imm8}},
		{PowSmi, "PowSmi", []Operand{Imm8}},
		{LeftShiftSmi, "LeftShiftSmi", []Operand{Imm8}},
		{RightShiftSmi, "RightShiftSmi", []Operand{Imm8}},
		{ModSmi, "ModSmi", []Operand{Imm8}},
		{BitwiseOrSmi, "BitwiseOrSmi", []Operand{Imm8}},
		{BitwiseAndSmi, "BitwiseAndSmi", []Operand{Imm8}},
		{BitwiseXorSmi, "BitwiseXorSmi", []Operand{Imm8}},
		{Equal, "Equal", []Operand{Reg}},
		{NotEqual, "NotEqual", []Operand{Reg}},
		{Less, "Less", []Operand{Reg}},
		{LessEqual, "LessEqual", []Operand{Reg}},
		{Greater, "Greater", []Operand{Reg}},
		{GreaterEqual, "GreaterEqual", []Operand{Reg}},
		{Not, "Not", nil},
		{Negate, "Negate", nil},
		{Plus, "Plus", nil},
		{BitwiseNot, "BitwiseNot", nil},
		{Jump, "Jump", []Operand{Jump16}},
		{JumpIfTrue, "JumpIfTrue", []Operand{Jump16}},
		{JumpIfFalse, "JumpIfFalse", []Operand{Jump16}},
		{MakeFunction, "MakeFunction", []Operand{Const}},
	}
	for _, o := range ops {
		infos[o.op] = newInfo(o.op, o.name, o.operands, -1)
	}
	for r := 0; r < ShortRegisters; r++ {
		infos[LdarShort+Code(r)] = newInfo(LdarShort+Code(r), "Ldar", nil, r)
		infos[StarShort+Code(r)] = newInfo(StarShort+Code(r), "Star", nil, r)
	}
}

func newInfo(c Code, name string, operands []Operand, reg int) Info {
	size := 1
	for _, o := range operands {
		size += o.Size()
	}
	return Info{Code: c, Name: name, Operands: operands, Register: reg, Size: size}
}

// GetInfo returns information about the given opcode.
func GetInfo(op Code) Info {
	return infos[op]
}

func (c Code) String() string {
	if info := infos[c]; info.Valid() {
		if info.Register >= 0 {
			return fmt.Sprintf("%s.r%d", info.Name, info.Register)
		}
		return info.Name
	}
	return fmt.Sprintf("Code(%d)", uint8(c))
}
