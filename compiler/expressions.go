package compiler

import (
	"github.com/clovervm/clover/ast"
	"github.com/clovervm/clover/bytecode"
	"github.com/clovervm/clover/op"
	"github.com/clovervm/clover/value"
)

type opInfo struct {
	standard op.Code
	// commutative operators also accept an immediate on the left.
	commutative bool
}

// binaryOps maps each binary operator to its register form. The immediate
// form is op.SmiForm of the register form.
var binaryOps = map[ast.Operator]opInfo{
	ast.Add:        {op.Add, true},
	ast.Sub:        {op.Sub, false},
	ast.Mul:        {op.Mul, true},
	ast.Div:        {op.Div, false},
	ast.FloorDiv:   {op.IntDiv, false},
	ast.Pow:        {op.Pow, false},
	ast.LeftShift:  {op.LeftShift, false},
	ast.RightShift: {op.RightShift, false},
	ast.Mod:        {op.Mod, false},
	ast.BitOr:      {op.BitwiseOr, true},
	ast.BitAnd:     {op.BitwiseAnd, true},
	ast.BitXor:     {op.BitwiseXor, true},
}

var compareOps = map[ast.Operator]op.Code{
	ast.Eq:    op.Equal,
	ast.NotEq: op.NotEqual,
	ast.Lt:    op.Less,
	ast.LtE:   op.LessEqual,
	ast.Gt:    op.Greater,
	ast.GtE:   op.GreaterEqual,
}

var unaryOps = map[ast.Operator]op.Code{
	ast.Not:    op.Not,
	ast.Neg:    op.Negate,
	ast.Pos:    op.Plus,
	ast.Invert: op.BitwiseNot,
}

// smi8 reports whether the node is an integer literal that fits in an
// immediate operand.
func (c *Compiler) smi8(id ast.NodeID) (int8, bool) {
	n := c.node(id)
	if n.Kind != ast.Literal || n.Op != ast.LitInt {
		return 0, false
	}
	if !value.FitsSmi8(n.Constant.Int()) {
		return 0, false
	}
	return int8(n.Constant.Int()), true
}

func (c *Compiler) compileLiteral(id ast.NodeID, n *ast.Node) error {
	u := c.current
	switch n.Op {
	case ast.LitTrue:
		u.emit(op.LdaTrue)
	case ast.LitFalse:
		u.emit(op.LdaFalse)
	case ast.LitNone:
		u.emit(op.LdaNone)
	case ast.LitInt:
		if imm, ok := c.smi8(id); ok {
			u.emit(op.LdaSmi, byte(imm))
			return nil
		}
		return c.emitConstant(id, n.Constant)
	case ast.LitString:
		return c.emitConstant(id, n.Constant)
	default:
		return c.errorAt(id, "unsupported literal")
	}
	return nil
}

func (c *Compiler) emitConstant(id ast.NodeID, v value.Value) error {
	idx, err := c.current.addConstant(v, true)
	if err != nil {
		return c.wrap(id, err)
	}
	c.current.emit(op.LdaConstant, byte(idx))
	return nil
}

// compileOperation emits lhs op rhs into the accumulator. It serves both
// binary expressions and augmented assignment, where lhs is a name.
func (c *Compiler) compileOperation(id ast.NodeID, operator ast.Operator, lhs, rhs ast.NodeID) error {
	info, ok := binaryOps[operator]
	if !ok {
		return c.errorAt(id, "unsupported operator %s", operator)
	}
	u := c.current
	if imm, ok := c.smi8(rhs); ok {
		if err := c.compile(lhs); err != nil {
			return err
		}
		u.emit(op.SmiForm(info.standard), byte(imm))
		return nil
	}
	if imm, ok := c.smi8(lhs); ok && info.commutative {
		if err := c.compile(rhs); err != nil {
			return err
		}
		u.emit(op.SmiForm(info.standard), byte(imm))
		return nil
	}
	if err := c.compile(lhs); err != nil {
		return err
	}
	tmp, err := u.allocTemp()
	if err != nil {
		return c.wrap(id, err)
	}
	defer tmp.release()
	u.emitStar(tmp.operand())
	if err := c.compile(rhs); err != nil {
		return err
	}
	u.emitReg(info.standard, tmp.operand())
	return nil
}

func (c *Compiler) compileBinary(id ast.NodeID, n *ast.Node) error {
	return c.compileOperation(id, n.Op, n.Lhs, n.Rhs)
}

func (c *Compiler) compileUnary(n *ast.Node) error {
	if err := c.compile(n.Lhs); err != nil {
		return err
	}
	c.current.emit(unaryOps[n.Op])
	return nil
}

// compileBoolOp evaluates the left operand and skips the right one when the
// left already decides the result, which stays in the accumulator.
func (c *Compiler) compileBoolOp(n *ast.Node) error {
	u := c.current
	end := u.newLabel()
	if err := c.compile(n.Lhs); err != nil {
		return err
	}
	if n.Op == ast.And {
		u.emitJump(op.JumpIfFalse, end)
	} else {
		u.emitJump(op.JumpIfTrue, end)
	}
	if err := c.compile(n.Rhs); err != nil {
		return err
	}
	u.bind(end)
	return nil
}

// compileComparison compiles a chain a op1 b op2 c ... Each fragment
// compares the register holding its left operand with the accumulator.
// Every fragment but the last saves its right operand into the other
// register for the next fragment and jumps to the shared skip label on
// false.
func (c *Compiler) compileComparison(id ast.NodeID, n *ast.Node) error {
	u := c.current
	if err := c.compile(n.Lhs); err != nil {
		return err
	}
	first, err := u.allocTemp()
	if err != nil {
		return c.wrap(id, err)
	}
	defer first.release()
	var second temp
	if len(n.Children) > 1 {
		if second, err = u.allocTemp(); err != nil {
			return c.wrap(id, err)
		}
		defer second.release()
	}
	u.emitStar(first.operand())

	skip := u.newLabel()
	left, spare := first, second
	last := len(n.Children) - 1
	for i, fragID := range n.Children {
		frag := c.node(fragID)
		if err := c.compile(frag.Lhs); err != nil {
			return err
		}
		if i < last {
			u.emitStar(spare.operand())
		}
		u.emitReg(compareOps[frag.Op], left.operand())
		if i < last {
			u.emitJump(op.JumpIfFalse, skip)
			left, spare = spare, left
		}
	}
	u.bind(skip)
	return nil
}

// compileLoad loads a variable into the accumulator.
func (c *Compiler) compileLoad(id ast.NodeID, name value.Value) error {
	u := c.current
	if enc, ok := u.locals[name]; ok {
		u.emitLdar(enc)
		return nil
	}
	if err := c.checkNotEnclosingLocal(id, name); err != nil {
		return err
	}
	slot := c.module.scope.RegisterSlotIndexForRead(name)
	return c.wrap(id, u.emitGlobal(op.LdaGlobal, slot))
}

// compileStore stores the accumulator into a variable.
func (c *Compiler) compileStore(id ast.NodeID, name value.Value) error {
	u := c.current
	if enc, ok := u.locals[name]; ok {
		u.emitStar(enc)
		return nil
	}
	slot := c.module.scope.RegisterSlotIndexForWrite(name)
	return c.wrap(id, u.emitGlobal(op.StaGlobal, slot))
}

// checkNotEnclosingLocal rejects reads of an enclosing function's locals,
// which would need a closure.
func (c *Compiler) checkNotEnclosingLocal(id ast.NodeID, name value.Value) error {
	for u := c.current.parent; u != nil && u.isFunction; u = u.parent {
		if _, ok := u.locals[name]; ok {
			return c.errorAt(id, "closures are not supported: %q is local to function %s",
				nameString(name), u.name)
		}
	}
	return nil
}

// compileCall evaluates the callee and arguments into a contiguous block
// of temporaries. The callee occupies the highest register of the block and
// argument i sits i+1 registers below it, which places the arguments at
// a0, a1, ... once the frame pointer moves to just above the callee.
func (c *Compiler) compileCall(id ast.NodeID, n *ast.Node) error {
	u := c.current
	argc := len(n.Children)
	if argc > bytecode.MaxArguments {
		return c.errorAt(id, "too many arguments (limit %d)", bytecode.MaxArguments)
	}
	block := make([]temp, 0, argc+1)
	defer func() {
		for i := len(block) - 1; i >= 0; i-- {
			block[i].release()
		}
	}()
	for i := 0; i <= argc; i++ {
		tmp, err := u.allocTemp()
		if err != nil {
			return c.wrap(id, err)
		}
		block = append(block, tmp)
	}
	callee := block[argc]
	if err := c.compile(n.Lhs); err != nil {
		return err
	}
	u.emitStar(callee.operand())
	for i, arg := range n.Children {
		if err := c.compile(arg); err != nil {
			return err
		}
		u.emitStar(block[argc-1-i].operand())
	}
	u.emit(op.Call, byte(int8(callee.operand())), byte(argc))
	return nil
}
