package parser

import (
	"github.com/clovervm/clover/ast"
	"github.com/clovervm/clover/internal/token"
)

// Precedence order for operators
const (
	_ int = iota
	LOWEST
	OR      // or
	AND     // and
	NOT     // not x
	COMPARE // == != < <= > >=
	BITOR   // |
	BITXOR  // ^
	BITAND  // &
	SHIFT   // << >>
	SUM     // + -
	PRODUCT // * / // %
	PREFIX  // -x +x ~x
	POWER   // **
	CALL    // f(x)
)

// Precedences for each token type
var precedences = map[token.Type]int{
	token.OR:          OR,
	token.AND:         AND,
	token.EQ:          COMPARE,
	token.NOT_EQ:      COMPARE,
	token.LT:          COMPARE,
	token.LT_EQUALS:   COMPARE,
	token.GT:          COMPARE,
	token.GT_EQUALS:   COMPARE,
	token.PIPE:        BITOR,
	token.CARET:       BITXOR,
	token.AMPERSAND:   BITAND,
	token.LT_LT:       SHIFT,
	token.GT_GT:       SHIFT,
	token.PLUS:        SUM,
	token.MINUS:       SUM,
	token.ASTERISK:    PRODUCT,
	token.SLASH:       PRODUCT,
	token.SLASH_SLASH: PRODUCT,
	token.MOD:         PRODUCT,
	token.POW:         POWER,
	token.LPAREN:      CALL,
}

var binaryOperators = map[token.Type]ast.Operator{
	token.PLUS:        ast.Add,
	token.MINUS:       ast.Sub,
	token.ASTERISK:    ast.Mul,
	token.SLASH:       ast.Div,
	token.SLASH_SLASH: ast.FloorDiv,
	token.MOD:         ast.Mod,
	token.POW:         ast.Pow,
	token.LT_LT:       ast.LeftShift,
	token.GT_GT:       ast.RightShift,
	token.AMPERSAND:   ast.BitAnd,
	token.PIPE:        ast.BitOr,
	token.CARET:       ast.BitXor,
}

var comparisonOperators = map[token.Type]ast.Operator{
	token.EQ:        ast.Eq,
	token.NOT_EQ:    ast.NotEq,
	token.LT:        ast.Lt,
	token.LT_EQUALS: ast.LtE,
	token.GT:        ast.Gt,
	token.GT_EQUALS: ast.GtE,
}

var augmentedOperators = map[token.Type]ast.Operator{
	token.PLUS_EQUALS:      ast.Add,
	token.MINUS_EQUALS:     ast.Sub,
	token.ASTERISK_EQUALS:  ast.Mul,
	token.SLASH_EQUALS:     ast.Div,
	token.SLASH_SLASH_EQ:   ast.FloorDiv,
	token.MOD_EQUALS:       ast.Mod,
	token.POW_EQUALS:       ast.Pow,
	token.LT_LT_EQUALS:     ast.LeftShift,
	token.GT_GT_EQUALS:     ast.RightShift,
	token.AMPERSAND_EQUALS: ast.BitAnd,
	token.PIPE_EQUALS:      ast.BitOr,
	token.CARET_EQUALS:     ast.BitXor,
}

var prefixOperators = map[token.Type]ast.Operator{
	token.MINUS: ast.Neg,
	token.PLUS:  ast.Pos,
	token.TILDE: ast.Invert,
	token.NOT:   ast.Not,
}

func (p *Parser) curPrecedence() int {
	if prec, ok := precedences[p.curToken.Type]; ok {
		return prec
	}
	return LOWEST
}
