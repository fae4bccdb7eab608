package compiler

import (
	"strings"

	"github.com/clovervm/clover/ast"
	"github.com/clovervm/clover/bytecode"
	"github.com/clovervm/clover/op"
	"github.com/clovervm/clover/scope"
	"github.com/clovervm/clover/value"
)

// assignTarget returns the name assigned by a target node.
func (c *Compiler) assignTarget(target ast.NodeID) (value.Value, error) {
	n := c.node(target)
	if n.Kind != ast.Name {
		return 0, c.errorAt(target, "cannot assign to %s", describe(n))
	}
	return n.Name, nil
}

func describe(n *ast.Node) string {
	switch n.Kind {
	case ast.Literal:
		return "literal"
	case ast.Call:
		return "function call"
	case ast.Comparison:
		return "comparison"
	case ast.BoolOp, ast.Binary, ast.Unary:
		return "expression"
	}
	return strings.ToLower(n.Kind.String())
}

// compileAssign stores the value and leaves it in the accumulator, so a
// chained assignment nests naturally.
func (c *Compiler) compileAssign(n *ast.Node) error {
	name, err := c.assignTarget(n.Lhs)
	if err != nil {
		return err
	}
	if err := c.compile(n.Rhs); err != nil {
		return err
	}
	return c.compileStore(n.Lhs, name)
}

func (c *Compiler) compileAugAssign(id ast.NodeID, n *ast.Node) error {
	name, err := c.assignTarget(n.Lhs)
	if err != nil {
		return err
	}
	if err := c.compileOperation(id, n.Op, n.Lhs, n.Rhs); err != nil {
		return err
	}
	return c.compileStore(n.Lhs, name)
}

// compileIf compiles an if/elif/else chain. Every branch but the last jumps
// to the shared done label; a false condition falls through to the next
// test.
func (c *Compiler) compileIf(n *ast.Node) error {
	u := c.current
	done := u.newLabel()
	for {
		next := u.newLabel()
		if err := c.compile(n.Lhs); err != nil {
			return err
		}
		u.emitJump(op.JumpIfFalse, next)
		if err := c.compile(n.Rhs); err != nil {
			return err
		}
		if n.Else != ast.NoNode {
			u.emitJump(op.Jump, done)
		}
		u.bind(next)
		if n.Else == ast.NoNode {
			break
		}
		orElse := c.node(n.Else)
		if orElse.Kind != ast.If {
			if err := c.compile(n.Else); err != nil {
				return err
			}
			break
		}
		n = orElse
	}
	u.bind(done)
	return nil
}

// compileWhile checks the condition once before entering the body and
// again after it, jumping back while it holds:
//
//	    <cond>
//	    JumpIfFalse else
//	top:
//	    <body>
//	continue:
//	    <cond>
//	    JumpIfTrue top
//	else:
//	    <else body>
//	break:
func (c *Compiler) compileWhile(n *ast.Node) error {
	u := c.current
	top := u.newLabel()
	cont := u.newLabel()
	orElse := u.newLabel()
	brk := u.newLabel()

	if err := c.compile(n.Lhs); err != nil {
		return err
	}
	u.emitJump(op.JumpIfFalse, orElse)
	u.bind(top)
	u.pushLoop(brk, cont)
	if err := c.compile(n.Rhs); err != nil {
		return err
	}
	u.popLoop()
	u.bind(cont)
	if err := c.compile(n.Lhs); err != nil {
		return err
	}
	u.emitJump(op.JumpIfTrue, top)
	u.bind(orElse)
	if n.Else != ast.NoNode {
		if err := c.compile(n.Else); err != nil {
			return err
		}
	}
	u.bind(brk)
	return nil
}

func (c *Compiler) compileLoopControl(id ast.NodeID, n *ast.Node) error {
	u := c.current
	l, ok := u.currentLoop()
	if n.Kind == ast.Break {
		if !ok {
			return c.errorAt(id, "break outside loop")
		}
		u.emitJump(op.Jump, l.breakLabel)
		return nil
	}
	if !ok {
		return c.errorAt(id, "continue outside loop")
	}
	u.emitJump(op.Jump, l.continueLabel)
	return nil
}

func (c *Compiler) compileReturn(id ast.NodeID, n *ast.Node) error {
	u := c.current
	if !u.isFunction {
		return c.errorAt(id, "return outside function")
	}
	if n.Lhs == ast.NoNode {
		u.emit(op.LdaNone)
	} else if err := c.compile(n.Lhs); err != nil {
		return err
	}
	u.emit(op.Return)
	return nil
}

// compileFunctionDef compiles the body into a new code object, emits
// MakeFunction for it and binds the result to the function's name.
//
// The function's scope lists the parameters in order, then FrameHeaderSize
// reserved slots, then the locals. Parameter i is argument register ai;
// local j is register rj.
func (c *Compiler) compileFunctionDef(id ast.NodeID, n *ast.Node) error {
	if len(n.Children) > bytecode.MaxArguments {
		return c.errorAt(id, "too many parameters (limit %d)", bytecode.MaxArguments)
	}
	parent := c.current
	u := newUnit(nameString(n.Name), parent, scope.New(c.alloc, parent.scope))
	u.isFunction = true
	u.nParams = len(n.Children)
	u.pos = n.Offset
	c.current = u

	for i, param := range n.Children {
		name := c.node(param).Name
		u.scope.RegisterSlotIndexForWrite(name)
		u.locals[name] = i
	}
	u.scope.ReserveEmptySlots(bytecode.FrameHeaderSize)
	for _, name := range c.assignedNames(n.Rhs) {
		if _, ok := u.locals[name]; ok {
			continue
		}
		u.scope.RegisterSlotIndexForWrite(name)
		u.locals[name] = bytecode.RegisterOperand(u.nLocals)
		u.nLocals++
	}
	if u.nLocals > bytecode.MaxRegisters {
		return c.errorAt(id, "too many local variables (limit %d)", bytecode.MaxRegisters)
	}

	if err := c.compile(n.Rhs); err != nil {
		return err
	}
	u.emit(op.LdaNone)
	u.emit(op.Return)
	code, err := c.finish(u)
	if err != nil {
		return err
	}
	c.current = parent

	idx, err := parent.addConstant(code.Value(), false)
	if err != nil {
		c.zct.Decref(code.Value())
		return c.wrap(id, err)
	}
	parent.emit(op.MakeFunction, byte(idx))
	return c.compileStore(id, n.Name)
}

// assignedNames lists, in order of first appearance, the names a function
// body binds: assignment targets and nested function names. Nested bodies
// are not searched.
func (c *Compiler) assignedNames(body ast.NodeID) []value.Value {
	var names []value.Value
	seen := map[value.Value]bool{}
	add := func(name value.Value) {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	c.tree.Inspect(body, func(_ ast.NodeID, n *ast.Node) bool {
		switch n.Kind {
		case ast.Assign, ast.AugAssign:
			if target := c.node(n.Lhs); target.Kind == ast.Name {
				add(target.Name)
			}
		case ast.FunctionDef:
			add(n.Name)
			return false
		}
		return true
	})
	return names
}
