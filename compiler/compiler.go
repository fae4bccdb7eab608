// Package compiler lowers a syntax tree into register bytecode.
//
// # Registers and the accumulator
//
// Every expression leaves its value in the accumulator. Binary operators
// spill their left operand into a temporary register and combine it with
// the accumulator; when the right operand is an integer literal that fits in
// a signed byte, the immediate form is used instead and no register is
// touched. Temporaries are handed out by a stack counter and must be
// released in reverse order.
//
// # Scopes
//
// Module code addresses variables by global slot (LdaGlobal/StaGlobal) in
// the module scope. Reads register the name for read, which links the slot
// to the builtins scope so that a builtin is found through the slot cache.
// Function code addresses its parameters and locals by register. Locals are
// every name assigned in the function body; other names resolve to module
// globals. Closures are not supported: a function may not read a local of an
// enclosing function.
//
// # Jumps
//
// Jumps target labels. Each jump is emitted with a placeholder displacement
// and a fixup entry; resolveJumps patches all of them once the unit is
// complete, failing when a displacement does not fit in 16 bits.
package compiler

import (
	"errors"

	"github.com/clovervm/clover/ast"
	"github.com/clovervm/clover/bytecode"
	"github.com/clovervm/clover/errz"
	"github.com/clovervm/clover/object"
	"github.com/clovervm/clover/op"
	"github.com/clovervm/clover/scope"
	"github.com/clovervm/clover/value"
)

// Config holds compiler configuration options.
type Config struct {
	// Filename is the source filename, used for error messages.
	Filename string

	// Source is the original source code, used for error locations and
	// kept on the code objects for runtime diagnostics.
	Source string

	// Allocator provides memory for scopes and code objects. Required.
	Allocator object.Allocator

	// ZeroCountTable receives the references released when compilation
	// fails. Required.
	ZeroCountTable *object.ZeroCountTable

	// Builtins is the parent of the module scope. May be nil.
	Builtins *scope.Scope
}

// Compiler compiles one tree into a module code object.
type Compiler struct {
	filename string
	source   string
	alloc    object.Allocator
	zct      *object.ZeroCountTable
	builtins *scope.Scope

	tree    *ast.Tree
	module  *unit
	current *unit
}

// Compile compiles the tree and returns the module code object, owned by
// the caller. On error no code object is produced and every partially
// built object has been released.
func Compile(tree *ast.Tree, cfg *Config) (*bytecode.Code, error) {
	return New(cfg).Compile(tree)
}

// New creates and returns a new Compiler.
func New(cfg *Config) *Compiler {
	return &Compiler{
		filename: cfg.Filename,
		source:   cfg.Source,
		alloc:    cfg.Allocator,
		zct:      cfg.ZeroCountTable,
		builtins: cfg.Builtins,
	}
}

// Compile compiles the tree rooted at tree.Root. A Sequence root is
// compiled as a module body; any expression root is compiled as a single
// expression whose value is the result.
func (c *Compiler) Compile(tree *ast.Tree) (*bytecode.Code, error) {
	c.tree = tree
	c.module = newUnit("<module>", nil, scope.New(c.alloc, c.builtins))
	c.current = c.module
	if tree.Root != ast.NoNode {
		if err := c.compile(tree.Root); err != nil {
			c.abandon()
			return nil, err
		}
	}
	c.module.emit(op.Halt)
	code, err := c.finish(c.module)
	if err != nil {
		c.abandon()
		return nil, err
	}
	return code, nil
}

// finish resolves jumps and builds the code object. The unit's scope and
// constants move into the code object.
func (c *Compiler) finish(u *unit) (*bytecode.Code, error) {
	if err := u.resolveJumps(); err != nil {
		var rangeErr *jumpRangeError
		if errors.As(err, &rangeErr) {
			return nil, c.errorAtPos(rangeErr.pos, "%s", rangeErr.Error())
		}
		return nil, err
	}
	p := bytecode.Params{
		Name:         u.name,
		Filename:     c.filename,
		Source:       c.source,
		Instructions: u.code,
		Offsets:      u.offsets,
		Constants:    u.constants,
		NParameters:  u.nParams,
		NLocals:      u.nLocals,
		NTemporaries: u.maxTemps,
		Scope:        u.scope,
	}
	if u.parent != nil {
		p.Enclosing = u.parent.scope
		p.Globals = c.module.scope
	}
	code := bytecode.New(c.alloc, p)
	u.scope = nil
	u.constants = nil
	return code, nil
}

// abandon releases the scopes and constants of every unit still being
// compiled.
func (c *Compiler) abandon() {
	for u := c.current; u != nil; u = u.parent {
		for _, k := range u.constants {
			c.zct.Decref(k)
		}
		u.constants = nil
		if u.scope != nil {
			c.zct.Decref(u.scope.Value())
			u.scope = nil
		}
	}
	c.zct.Drain()
}

func (c *Compiler) node(id ast.NodeID) *ast.Node {
	return c.tree.Node(id)
}

func (c *Compiler) errorAt(id ast.NodeID, format string, args ...any) error {
	return c.errorAtPos(c.node(id).Offset, format, args...)
}

func (c *Compiler) errorAtPos(pos uint32, format string, args ...any) error {
	return errz.NewCompileError(errz.ErrCompile, c.filename, c.source, int(pos), format, args...)
}

// wrap attaches the node's location to errors raised by the unit helpers.
func (c *Compiler) wrap(id ast.NodeID, err error) error {
	if err == nil {
		return nil
	}
	var compileErr *errz.CompileError
	if errors.As(err, &compileErr) {
		return err
	}
	return c.errorAt(id, "%s", err.Error())
}

// compile dispatches on the node kind. The unit records the node's offset
// for every byte emitted while compiling it.
func (c *Compiler) compile(id ast.NodeID) error {
	n := c.node(id)
	u := c.current
	saved := u.pos
	u.pos = n.Offset
	defer func() { u.pos = saved }()

	switch n.Kind {
	case ast.Sequence:
		for _, stmt := range n.Children {
			if err := c.compile(stmt); err != nil {
				return err
			}
		}
		return nil
	case ast.Literal:
		return c.compileLiteral(id, n)
	case ast.Name:
		return c.compileLoad(id, n.Name)
	case ast.Binary:
		return c.compileBinary(id, n)
	case ast.Unary:
		return c.compileUnary(n)
	case ast.BoolOp:
		return c.compileBoolOp(n)
	case ast.Comparison:
		return c.compileComparison(id, n)
	case ast.Assign:
		return c.compileAssign(n)
	case ast.AugAssign:
		return c.compileAugAssign(id, n)
	case ast.Call:
		return c.compileCall(id, n)
	case ast.If:
		return c.compileIf(n)
	case ast.While:
		return c.compileWhile(n)
	case ast.Break, ast.Continue:
		return c.compileLoopControl(id, n)
	case ast.Return:
		return c.compileReturn(id, n)
	case ast.FunctionDef:
		return c.compileFunctionDef(id, n)
	case ast.Pass:
		return nil
	}
	return c.errorAt(id, "unsupported syntax: %s", n.Kind)
}

// nameString renders an interned name for error messages.
func nameString(v value.Value) string {
	if object.IsString(v) {
		return object.StringOf(v)
	}
	return v.String()
}
