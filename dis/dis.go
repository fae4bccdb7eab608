// Package dis disassembles clover bytecode. It decodes with the same
// routine the compiler tests and image loader use, so a listing always
// agrees with what the interpreter executes.
package dis

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/clovervm/clover/bytecode"
	"github.com/clovervm/clover/internal/table"
	"github.com/clovervm/clover/object"
	"github.com/clovervm/clover/op"
	"github.com/clovervm/clover/value"
	"github.com/fatih/color"
)

// maxConstantWidth bounds the rendering of string constants.
const maxConstantWidth = 60

// Instruction is one decoded instruction with its operands rendered.
// Registers are named relative to the frame header, jumps carry their
// absolute target, and Info resolves constants and variable names.
type Instruction struct {
	Function string   `json:"function"`
	Offset   int      `json:"offset"`
	Opcode   op.Code  `json:"opcode"`
	Name     string   `json:"name"`
	Operands []string `json:"operands,omitempty"`
	Info     string   `json:"info,omitempty"`

	constant    value.Value
	hasConstant bool
}

// Disassemble returns the instructions of code followed by those of every
// function nested in its constant pool, depth first.
func Disassemble(code *bytecode.Code) ([]Instruction, error) {
	var out []Instruction
	if err := disassemble(code, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func disassemble(code *bytecode.Code, out *[]Instruction) error {
	instrs, err := bytecode.DecodeAll(code.Instructions)
	if err != nil {
		return fmt.Errorf("%s: %w", code.Name, err)
	}
	for _, ins := range instrs {
		d, err := describe(code, ins)
		if err != nil {
			return err
		}
		*out = append(*out, d)
	}
	for _, fn := range code.Functions() {
		if err := disassemble(fn, out); err != nil {
			return err
		}
	}
	return nil
}

func describe(code *bytecode.Code, ins bytecode.Instruction) (Instruction, error) {
	d := Instruction{
		Function: code.Name,
		Offset:   ins.Offset,
		Opcode:   ins.Op,
		Name:     ins.Info.Name,
	}
	if enc, ok := ins.Register(); ok {
		d.Info = code.LocalName(enc)
		if ins.Info.Register >= 0 {
			d.Operands = append(d.Operands, bytecode.RegisterName(enc))
		}
	}
	for n, o := range ins.Info.Operands {
		arg := ins.Args[n]
		switch o {
		case op.Reg:
			d.Operands = append(d.Operands, bytecode.RegisterName(arg))
		case op.Const:
			if arg >= len(code.Constants) {
				return d, fmt.Errorf("%s: constant index %d out of range at %d", code.Name, arg, ins.Offset)
			}
			d.constant, d.hasConstant = code.Constants[arg], true
			d.Info = constantString(d.constant)
			d.Operands = append(d.Operands, strconv.Itoa(arg))
		case op.Jump16:
			target, _ := ins.JumpTarget()
			d.Operands = append(d.Operands, strconv.Itoa(target))
		case op.Global32:
			d.Info = code.GlobalName(arg)
			d.Operands = append(d.Operands, strconv.Itoa(arg))
		default:
			d.Operands = append(d.Operands, strconv.Itoa(arg))
		}
	}
	return d, nil
}

func constantString(v value.Value) string {
	switch {
	case bytecode.IsCode(v):
		return fmt.Sprintf("<code %s>", bytecode.FromValue(v).Name)
	case object.IsString(v):
		s := object.StringOf(v)
		if len(s) > maxConstantWidth {
			s = s[:maxConstantWidth-3] + "..."
		}
		return strconv.Quote(s)
	default:
		return object.Str(v)
	}
}

var (
	bold    = color.New(color.Bold).SprintFunc()
	yellow  = color.New(color.FgYellow).SprintFunc()
	green   = color.New(color.FgGreen).SprintFunc()
	magenta = color.New(color.FgMagenta).SprintFunc()
	cyan    = color.New(color.FgHiCyan).SprintFunc()
)

func colorInfo(ins Instruction) string {
	if ins.Info == "" {
		return ""
	}
	switch {
	case !ins.hasConstant:
		return cyan(ins.Info)
	case bytecode.IsCode(ins.constant):
		return magenta(ins.Info)
	case object.IsString(ins.constant):
		return green(ins.Info)
	default:
		return yellow(ins.Info)
	}
}

// Print writes one table per code object: code itself first, then each
// nested function.
func Print(w io.Writer, code *bytecode.Code) error {
	instrs, err := Disassemble(code)
	if err != nil {
		return err
	}
	return PrintInstructions(w, instrs)
}

// PrintInstructions writes instructions grouped by function.
func PrintInstructions(w io.Writer, instrs []Instruction) error {
	for start := 0; start < len(instrs); {
		end := start
		for end < len(instrs) && instrs[end].Function == instrs[start].Function {
			end++
		}
		if start > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%s:\n", bold(instrs[start].Function))
		if err := render(w, instrs[start:end]); err != nil {
			return err
		}
		start = end
	}
	return nil
}

func render(w io.Writer, instrs []Instruction) error {
	rows := make([][]string, 0, len(instrs))
	for _, ins := range instrs {
		rows = append(rows, []string{
			strconv.Itoa(ins.Offset),
			bold(ins.Name),
			strings.Join(ins.Operands, ", "),
			colorInfo(ins),
		})
	}
	return table.NewTable(w).
		WithHeader([]string{"OFFSET", "OPCODE", "OPERANDS", "INFO"}).
		WithColumnAlignment([]table.Alignment{
			table.AlignRight,
			table.AlignLeft,
			table.AlignRight,
			table.AlignLeft,
		}).
		WithHeaderAlignment([]table.Alignment{
			table.AlignCenter,
			table.AlignCenter,
			table.AlignCenter,
			table.AlignCenter,
		}).
		WithRows(rows).
		Render()
}
