package ast

import (
	"fmt"
	"strings"

	"github.com/clovervm/clover/object"
)

// Inspect traverses the subtree rooted at id in depth-first order, calling
// fn for each node. If fn returns false, the node's children are skipped.
// Children are visited in evaluation order: Lhs, Rhs, Children, Else, with
// the exception of Call and FunctionDef, whose Children precede Rhs.
func (t *Tree) Inspect(id NodeID, fn func(id NodeID, n *Node) bool) {
	if id == NoNode {
		return
	}
	n := t.Node(id)
	if !fn(id, n) {
		return
	}
	t.Inspect(n.Lhs, fn)
	if n.Kind == FunctionDef {
		for _, c := range n.Children {
			t.Inspect(c, fn)
		}
		t.Inspect(n.Rhs, fn)
		return
	}
	t.Inspect(n.Rhs, fn)
	for _, c := range n.Children {
		t.Inspect(c, fn)
	}
	t.Inspect(n.Else, fn)
}

// Dump renders the subtree rooted at id as an s-expression.
func (t *Tree) Dump(id NodeID) string {
	var sb strings.Builder
	t.dump(&sb, id)
	return sb.String()
}

func (t *Tree) dump(sb *strings.Builder, id NodeID) {
	if id == NoNode {
		sb.WriteString("_")
		return
	}
	n := t.Node(id)
	switch n.Kind {
	case Literal:
		if n.Op == LitString {
			fmt.Fprintf(sb, "%q", object.StringOf(n.Constant))
		} else {
			sb.WriteString(object.Str(n.Constant))
		}
		return
	case Name:
		sb.WriteString(object.StringOf(n.Name))
		return
	case Break, Continue, Pass:
		sb.WriteString(strings.ToLower(n.Kind.String()))
		return
	}
	sb.WriteString("(")
	switch n.Kind {
	case Binary, BoolOp, Unary, CompareFragment, AugAssign:
		sb.WriteString(n.Op.String())
	case FunctionDef:
		sb.WriteString("def ")
		sb.WriteString(object.StringOf(n.Name))
	default:
		sb.WriteString(strings.ToLower(n.Kind.String()))
	}
	if n.Kind == AugAssign {
		sb.WriteString("=")
	}
	if n.Kind == FunctionDef {
		sb.WriteString(" (")
		for i, c := range n.Children {
			if i > 0 {
				sb.WriteString(" ")
			}
			t.dump(sb, c)
		}
		sb.WriteString(")")
	}
	if n.Lhs != NoNode {
		sb.WriteString(" ")
		t.dump(sb, n.Lhs)
	}
	if n.Rhs != NoNode {
		sb.WriteString(" ")
		t.dump(sb, n.Rhs)
	}
	if n.Kind != FunctionDef {
		for _, c := range n.Children {
			sb.WriteString(" ")
			t.dump(sb, c)
		}
	}
	if n.Else != NoNode {
		sb.WriteString(" ")
		t.dump(sb, n.Else)
	}
	sb.WriteString(")")
}
