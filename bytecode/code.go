package bytecode

import (
	"fmt"

	"github.com/clovervm/clover/errz"
	"github.com/clovervm/clover/object"
	"github.com/clovervm/clover/scope"
	"github.com/clovervm/clover/value"
)

// MaxConstants is the constant pool limit imposed by one-byte indices.
const MaxConstants = 256

// Code is a compiled module or function body. It is a heap object with a
// native payload and is immutable once built.
type Code struct {
	self value.Value

	Name     string
	Filename string
	Source   string

	Instructions []byte
	// Offsets holds the source byte offset for every instruction byte.
	Offsets   []uint32
	Constants []value.Value

	NParameters  int
	NLocals      int
	NTemporaries int

	// Scope is the code's own scope: the module scope for module code, the
	// local symbol table for a function.
	Scope *scope.Scope
	// Enclosing is the lexically enclosing scope of a function, nil for
	// module code.
	Enclosing *scope.Scope
	// Globals is the module scope addressed by LdaGlobal and StaGlobal.
	Globals *scope.Scope
}

// Params holds the fields of a new code object.
type Params struct {
	Name         string
	Filename     string
	Source       string
	Instructions []byte
	Offsets      []uint32
	Constants    []value.Value
	NParameters  int
	NLocals      int
	NTemporaries int
	Scope        *scope.Scope
	Enclosing    *scope.Scope
	Globals      *scope.Scope
}

// New allocates a code object. It takes over the caller's references to
// p.Scope and to every constant, and adds a reference to p.Enclosing.
// p.Globals is borrowed: it is either p.Scope or reachable through
// p.Enclosing.
func New(a object.Allocator, p Params) *Code {
	c := &Code{
		Name:         p.Name,
		Filename:     p.Filename,
		Source:       p.Source,
		Instructions: p.Instructions,
		Offsets:      p.Offsets,
		Constants:    p.Constants,
		NParameters:  p.NParameters,
		NLocals:      p.NLocals,
		NTemporaries: p.NTemporaries,
		Scope:        p.Scope,
		Enclosing:    p.Enclosing,
		Globals:      p.Globals,
	}
	if c.Globals == nil {
		c.Globals = c.Scope
	}
	if c.Enclosing != nil {
		object.Incref(c.Enclosing.Value())
	}
	c.self = object.NewNative(a, object.CodeKlass, c)
	return c
}

// FromValue returns the code behind a code object.
func FromValue(v value.Value) *Code {
	c, ok := object.NativeOf(v).(*Code)
	if !ok {
		panic(fmt.Sprintf("bytecode: %s is not a code object", v))
	}
	return c
}

// IsCode reports whether v is a code object.
func IsCode(v value.Value) bool {
	_, ok := object.NativeOf(v).(*Code)
	return ok
}

// Value returns the heap handle of the code object.
func (c *Code) Value() value.Value { return c.self }

// NRegisters returns the number of locals plus temporaries.
func (c *Code) NRegisters() int { return c.NLocals + c.NTemporaries }

// IsModule reports whether the code is a module body.
func (c *Code) IsModule() bool { return c.Enclosing == nil }

// OffsetAt returns the source offset of the instruction byte at pc.
func (c *Code) OffsetAt(pc int) int {
	if pc < 0 || pc >= len(c.Offsets) {
		return -1
	}
	return int(c.Offsets[pc])
}

// LocationAt returns the source location of the instruction at pc.
func (c *Code) LocationAt(pc int) errz.SourceLocation {
	off := c.OffsetAt(pc)
	if off < 0 || c.Source == "" {
		return errz.SourceLocation{}
	}
	return errz.LocationOf(c.Filename, c.Source, off)
}

// Functions returns the code objects in the constant pool.
func (c *Code) Functions() []*Code {
	var out []*Code
	for _, k := range c.Constants {
		if fn, ok := object.NativeOf(k).(*Code); ok {
			out = append(out, fn)
		}
	}
	return out
}

// LocalName returns the variable name bound to a register encoding, or ""
// for temporaries and header cells.
func (c *Code) LocalName(enc int) string {
	if c.Scope == nil || c.IsModule() {
		return ""
	}
	var idx int
	switch {
	case enc >= 0:
		idx = enc
	case enc < -FrameHeaderSize:
		n := RegisterNumber(enc)
		if n >= c.NLocals {
			return ""
		}
		idx = c.NParameters + FrameHeaderSize + n
	default:
		return ""
	}
	if idx >= c.Scope.Len() {
		return ""
	}
	name := c.Scope.Name(int32(idx))
	if !object.IsString(name) {
		return ""
	}
	return object.StringOf(name)
}

// GlobalName returns the name of a global slot.
func (c *Code) GlobalName(idx int) string {
	if c.Globals == nil || idx >= c.Globals.Len() {
		return ""
	}
	name := c.Globals.Name(int32(idx))
	if !object.IsString(name) {
		return ""
	}
	return object.StringOf(name)
}

// ObjectName implements object.Namer.
func (c *Code) ObjectName() string { return c.Name }

func (c *Code) String() string {
	return fmt.Sprintf("<code %s>", c.Name)
}

// ReleaseRefs implements object.Native.
func (c *Code) ReleaseRefs(z *object.ZeroCountTable) {
	for i, k := range c.Constants {
		c.Constants[i] = value.None
		z.Decref(k)
	}
	if c.Scope != nil {
		// Functions bound in the module scope refer back to it through their
		// own scopes, so module globals are unbound when the module dies.
		if c.IsModule() {
			c.Scope.Clear(z)
		}
		z.Decref(c.Scope.Value())
	}
	if c.Enclosing != nil {
		z.Decref(c.Enclosing.Value())
	}
	c.Scope, c.Enclosing, c.Globals = nil, nil, nil
}
