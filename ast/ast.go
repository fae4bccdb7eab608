// Package ast defines the syntax tree consumed by the compiler.
//
// A Tree is a flat vector of nodes addressed by NodeID. Every node carries a
// kind/operator pair, the byte offset of its first token, up to two fixed
// child links, an optional else link, a variable list of children, and for
// literals and names an already-resolved value.
package ast

import "github.com/clovervm/clover/value"

// NodeID indexes a node within its Tree.
type NodeID int32

// NoNode marks an absent child link.
const NoNode NodeID = -1

// Kind identifies the syntactic form of a node.
type Kind uint8

const (
	Invalid Kind = iota
	// Literal: Op is one of the literal operators, Constant holds the value.
	Literal
	// Name: Name holds the interned identifier.
	Name
	// Binary: Lhs Op Rhs.
	Binary
	// Unary: Op Lhs.
	Unary
	// BoolOp: Lhs and/or Rhs, short-circuiting.
	BoolOp
	// Comparison: Lhs followed by CompareFragment children.
	Comparison
	// CompareFragment: one "Op Lhs" link of a comparison chain.
	CompareFragment
	// Assign: Lhs = Rhs. Rhs may itself be an Assign for chained targets.
	Assign
	// AugAssign: Lhs Op= Rhs.
	AugAssign
	// Call: Lhs(Children...).
	Call
	// Sequence: Children run in order.
	Sequence
	// If: if Lhs: Rhs else Else. Else is NoNode, a Sequence, or an If for elif.
	If
	// While: while Lhs: Rhs else Else.
	While
	Break
	Continue
	// Return: Lhs is the value or NoNode.
	Return
	// FunctionDef: def Name(Children...): Rhs. Children are Name nodes.
	FunctionDef
	Pass
)

var kindNames = [...]string{
	Invalid:         "Invalid",
	Literal:         "Literal",
	Name:            "Name",
	Binary:          "Binary",
	Unary:           "Unary",
	BoolOp:          "BoolOp",
	Comparison:      "Comparison",
	CompareFragment: "CompareFragment",
	Assign:          "Assign",
	AugAssign:       "AugAssign",
	Call:            "Call",
	Sequence:        "Sequence",
	If:              "If",
	While:           "While",
	Break:           "Break",
	Continue:        "Continue",
	Return:          "Return",
	FunctionDef:     "FunctionDef",
	Pass:            "Pass",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Invalid"
}

// IsExpression reports whether nodes of this kind produce a value.
func (k Kind) IsExpression() bool {
	switch k {
	case Literal, Name, Binary, Unary, BoolOp, Comparison, Call:
		return true
	}
	return false
}

// Operator refines a node's kind.
type Operator uint8

const (
	NoOp Operator = iota

	LitInt
	LitString
	LitTrue
	LitFalse
	LitNone

	Add
	Sub
	Mul
	Div
	FloorDiv
	Pow
	LeftShift
	RightShift
	Mod
	BitOr
	BitAnd
	BitXor

	And
	Or

	Not
	Neg
	Pos
	Invert

	Eq
	NotEq
	Lt
	LtE
	Gt
	GtE
)

var operatorNames = [...]string{
	NoOp:       "",
	LitInt:     "int",
	LitString:  "str",
	LitTrue:    "True",
	LitFalse:   "False",
	LitNone:    "None",
	Add:        "+",
	Sub:        "-",
	Mul:        "*",
	Div:        "/",
	FloorDiv:   "//",
	Pow:        "**",
	LeftShift:  "<<",
	RightShift: ">>",
	Mod:        "%",
	BitOr:      "|",
	BitAnd:     "&",
	BitXor:     "^",
	And:        "and",
	Or:         "or",
	Not:        "not",
	Neg:        "-",
	Pos:        "+",
	Invert:     "~",
	Eq:         "==",
	NotEq:      "!=",
	Lt:         "<",
	LtE:        "<=",
	Gt:         ">",
	GtE:        ">=",
}

func (o Operator) String() string {
	if int(o) < len(operatorNames) {
		return operatorNames[o]
	}
	return "?"
}

// IsBinary reports whether o is an arithmetic or bitwise binary operator.
func (o Operator) IsBinary() bool { return o >= Add && o <= BitXor }

// IsComparison reports whether o is a comparison operator.
func (o Operator) IsComparison() bool { return o >= Eq && o <= GtE }

// Node is one entry of a Tree.
type Node struct {
	Kind     Kind
	Op       Operator
	Offset   uint32
	Lhs      NodeID
	Rhs      NodeID
	Else     NodeID
	Children []NodeID
	// Constant is the value of a Literal.
	Constant value.Value
	// Name is the interned identifier of a Name or FunctionDef.
	Name value.Value
}

// Tree is a parsed program.
type Tree struct {
	Nodes []Node
	Root  NodeID
}

// New returns an empty tree.
func New() *Tree {
	return &Tree{Root: NoNode}
}

// Add appends n and returns its id. Unset links must be NoNode; use the
// constructors below to get that right.
func (t *Tree) Add(n Node) NodeID {
	t.Nodes = append(t.Nodes, n)
	return NodeID(len(t.Nodes) - 1)
}

// Node returns the node with the given id.
func (t *Tree) Node(id NodeID) *Node {
	return &t.Nodes[id]
}

// Len returns the number of nodes.
func (t *Tree) Len() int { return len(t.Nodes) }

func newNode(kind Kind, op Operator, offset int) Node {
	return Node{
		Kind:   kind,
		Op:     op,
		Offset: uint32(offset),
		Lhs:    NoNode,
		Rhs:    NoNode,
		Else:   NoNode,
	}
}

// NewLiteral adds a literal.
func (t *Tree) NewLiteral(offset int, op Operator, v value.Value) NodeID {
	n := newNode(Literal, op, offset)
	n.Constant = v
	return t.Add(n)
}

// NewName adds a variable reference.
func (t *Tree) NewName(offset int, name value.Value) NodeID {
	n := newNode(Name, NoOp, offset)
	n.Name = name
	return t.Add(n)
}

// NewBinary adds a Binary or BoolOp node depending on op.
func (t *Tree) NewBinary(offset int, op Operator, lhs, rhs NodeID) NodeID {
	kind := Binary
	if op == And || op == Or {
		kind = BoolOp
	}
	n := newNode(kind, op, offset)
	n.Lhs, n.Rhs = lhs, rhs
	return t.Add(n)
}

// NewUnary adds a unary operation.
func (t *Tree) NewUnary(offset int, op Operator, operand NodeID) NodeID {
	n := newNode(Unary, op, offset)
	n.Lhs = operand
	return t.Add(n)
}

// NewComparison adds a comparison chain over first and fragments.
func (t *Tree) NewComparison(offset int, first NodeID, fragments []NodeID) NodeID {
	n := newNode(Comparison, NoOp, offset)
	n.Lhs = first
	n.Children = fragments
	return t.Add(n)
}

// NewCompareFragment adds one "op operand" link of a comparison chain.
func (t *Tree) NewCompareFragment(offset int, op Operator, operand NodeID) NodeID {
	n := newNode(CompareFragment, op, offset)
	n.Lhs = operand
	return t.Add(n)
}

// NewAssign adds a plain assignment.
func (t *Tree) NewAssign(offset int, target, val NodeID) NodeID {
	n := newNode(Assign, NoOp, offset)
	n.Lhs, n.Rhs = target, val
	return t.Add(n)
}

// NewAugAssign adds an augmented assignment with a binary operator.
func (t *Tree) NewAugAssign(offset int, op Operator, target, val NodeID) NodeID {
	n := newNode(AugAssign, op, offset)
	n.Lhs, n.Rhs = target, val
	return t.Add(n)
}

// NewCall adds a call expression.
func (t *Tree) NewCall(offset int, callee NodeID, args []NodeID) NodeID {
	n := newNode(Call, NoOp, offset)
	n.Lhs = callee
	n.Children = args
	return t.Add(n)
}

// NewSequence adds a statement list.
func (t *Tree) NewSequence(offset int, stmts []NodeID) NodeID {
	n := newNode(Sequence, NoOp, offset)
	n.Children = stmts
	return t.Add(n)
}

// NewIf adds a conditional. orElse may be NoNode.
func (t *Tree) NewIf(offset int, cond, body, orElse NodeID) NodeID {
	n := newNode(If, NoOp, offset)
	n.Lhs, n.Rhs, n.Else = cond, body, orElse
	return t.Add(n)
}

// NewWhile adds a loop. orElse may be NoNode.
func (t *Tree) NewWhile(offset int, cond, body, orElse NodeID) NodeID {
	n := newNode(While, NoOp, offset)
	n.Lhs, n.Rhs, n.Else = cond, body, orElse
	return t.Add(n)
}

// NewStatement adds a Break, Continue or Pass.
func (t *Tree) NewStatement(offset int, kind Kind) NodeID {
	return t.Add(newNode(kind, NoOp, offset))
}

// NewReturn adds a return statement. val may be NoNode.
func (t *Tree) NewReturn(offset int, val NodeID) NodeID {
	n := newNode(Return, NoOp, offset)
	n.Lhs = val
	return t.Add(n)
}

// NewFunctionDef adds a function definition.
func (t *Tree) NewFunctionDef(offset int, name value.Value, params []NodeID, body NodeID) NodeID {
	n := newNode(FunctionDef, NoOp, offset)
	n.Name = name
	n.Children = params
	n.Rhs = body
	return t.Add(n)
}
