package vm

import (
	"fmt"

	"github.com/clovervm/clover/bytecode"
	"github.com/clovervm/clover/op"
	"github.com/clovervm/clover/scope"
	"github.com/clovervm/clover/value"
)

// Load rebuilds a module code object from an image. Names are interned and
// scopes are recreated with the image's slot order, so global and local
// slot operands keep their meaning. The code object belongs to the caller.
func (t *Thread) Load(img *bytecode.Image) (*bytecode.Code, error) {
	if err := img.Validate(); err != nil {
		return nil, fmt.Errorf("invalid image: %w", err)
	}
	if err := checkFrames(img, len(img.Slots), true); err != nil {
		return nil, fmt.Errorf("invalid image: %w", err)
	}

	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	module := scope.New(t.heap, t.m.builtins)
	for i, name := range img.Slots {
		if name == "" {
			module.ReserveEmptySlots(1)
		} else {
			module.RegisterSlotIndexForRead(t.m.interns.Intern(name))
		}
		if module.Len() != i+1 {
			t.Decref(module.Value())
			return nil, fmt.Errorf("invalid image: duplicate global %q", name)
		}
	}
	return t.build(img, module, nil, nil)
}

// build creates the code object for img. It takes over the reference to sc
// and releases it on error.
func (t *Thread) build(img *bytecode.Image, sc, enclosing, globals *scope.Scope) (*bytecode.Code, error) {
	if globals == nil {
		globals = sc
	}
	consts := make([]value.Value, 0, len(img.Constants))
	abandon := func(err error) (*bytecode.Code, error) {
		for _, k := range consts {
			t.zct.Decref(k)
		}
		t.Decref(sc.Value())
		return nil, err
	}
	for _, k := range img.Constants {
		switch k.Kind {
		case bytecode.ConstInt:
			v, ok := value.SmiChecked(k.Int)
			if !ok {
				return abandon(fmt.Errorf("%s: integer constant %d out of range", img.Name, k.Int))
			}
			consts = append(consts, v)
		case bytecode.ConstString:
			consts = append(consts, t.m.interns.Intern(k.Str))
		case bytecode.ConstCode:
			fsc, err := t.functionScope(k.Code, sc)
			if err != nil {
				return abandon(err)
			}
			child, err := t.build(k.Code, fsc, sc, globals)
			if err != nil {
				return abandon(err)
			}
			consts = append(consts, child.Value())
		default:
			return abandon(fmt.Errorf("%s: unknown constant kind %d", img.Name, k.Kind))
		}
	}
	p := bytecode.Params{
		Name:         img.Name,
		Filename:     img.Filename,
		Source:       img.Source,
		Instructions: img.Instructions,
		Offsets:      img.Offsets,
		Constants:    consts,
		NParameters:  img.NParameters,
		NLocals:      img.NLocals,
		NTemporaries: img.NTemporaries,
		Scope:        sc,
		Enclosing:    enclosing,
	}
	if enclosing != nil {
		p.Globals = globals
	}
	return bytecode.New(t.heap, p), nil
}

// functionScope recreates the local scope of a function: parameters, the
// reserved header slots, then locals.
func (t *Thread) functionScope(img *bytecode.Image, parent *scope.Scope) (*scope.Scope, error) {
	want := img.NParameters + bytecode.FrameHeaderSize + img.NLocals
	if len(img.Slots) != want {
		return nil, fmt.Errorf("%s: %d scope slots, want %d", img.Name, len(img.Slots), want)
	}
	sc := scope.New(t.heap, parent)
	for i, name := range img.Slots {
		if name == "" {
			sc.ReserveEmptySlots(1)
		} else {
			sc.RegisterSlotIndexForWrite(t.m.interns.Intern(name))
		}
		if sc.Len() != i+1 {
			t.Decref(sc.Value())
			return nil, fmt.Errorf("%s: duplicate local %q", img.Name, name)
		}
	}
	return sc, nil
}

// checkFrames verifies what Validate cannot: register operands stay inside
// the frame, global operands inside the module scope, MakeFunction names a
// code constant, and execution cannot run off the end.
func checkFrames(img *bytecode.Image, nGlobals int, module bool) error {
	nRegs := img.NLocals + img.NTemporaries
	if img.NParameters > bytecode.MaxArguments || nRegs > bytecode.MaxRegisters {
		return fmt.Errorf("%s: frame too large", img.Name)
	}
	if module && img.NParameters != 0 {
		return fmt.Errorf("%s: module code has parameters", img.Name)
	}
	instrs, err := bytecode.DecodeAll(img.Instructions)
	if err != nil {
		return err
	}
	if len(instrs) == 0 {
		return fmt.Errorf("%s: empty code", img.Name)
	}
	end := op.Return
	if module {
		end = op.Halt
	}
	if last := instrs[len(instrs)-1]; last.Op != end {
		return fmt.Errorf("%s: code does not end with %s", img.Name, end)
	}
	for _, ins := range instrs {
		if enc, ok := ins.Register(); ok {
			inArgs := enc >= 0 && enc < img.NParameters
			inRegs := enc < -bytecode.FrameHeaderSize && bytecode.RegisterNumber(enc) < nRegs
			if !inArgs && !inRegs {
				return fmt.Errorf("%s: register %s out of range at %d", img.Name, bytecode.RegisterName(enc), ins.Offset)
			}
		}
		switch ins.Op {
		case op.LdaGlobal, op.StaGlobal:
			if ins.Args[0] >= nGlobals {
				return fmt.Errorf("%s: global %d out of range at %d", img.Name, ins.Args[0], ins.Offset)
			}
		case op.Call:
			enc, _ := ins.Register()
			if enc >= 0 || bytecode.RegisterNumber(enc) < ins.Args[1] {
				return fmt.Errorf("%s: call block out of range at %d", img.Name, ins.Offset)
			}
		case op.MakeFunction:
			if img.Constants[ins.Args[0]].Kind != bytecode.ConstCode {
				return fmt.Errorf("%s: MakeFunction of a non-code constant at %d", img.Name, ins.Offset)
			}
		case op.LdaConstant:
			if img.Constants[ins.Args[0]].Kind == bytecode.ConstCode {
				return fmt.Errorf("%s: LdaConstant of a code constant at %d", img.Name, ins.Offset)
			}
		case op.Return:
			if module {
				return fmt.Errorf("%s: Return in module code at %d", img.Name, ins.Offset)
			}
		case op.Halt:
			if !module {
				return fmt.Errorf("%s: Halt in function code at %d", img.Name, ins.Offset)
			}
		}
	}
	for _, k := range img.Constants {
		if k.Kind == bytecode.ConstCode {
			if err := checkFrames(k.Code, nGlobals, false); err != nil {
				return err
			}
		}
	}
	return nil
}
