package parser

import (
	"strconv"
	"strings"

	"github.com/clovervm/clover/ast"
	"github.com/clovervm/clover/internal/token"
	"github.com/clovervm/clover/value"
)

func (p *Parser) parseExpression(precedence int) ast.NodeID {
	if p.err != nil {
		return ast.NoNode
	}
	p.depth++
	defer func() { p.depth-- }()
	if p.depth > p.maxDepth {
		p.setError(p.curToken.Offset, "exceeded maximum nesting depth of %d", p.maxDepth)
		return ast.NoNode
	}
	prefix := p.prefixParseFns[p.curToken.Type]
	if prefix == nil {
		p.setError(p.curToken.Offset, "invalid syntax (unexpected %s)", tokenDescription(p.curToken))
		return ast.NoNode
	}
	left := prefix()
	for p.err == nil && precedence < p.curPrecedence() {
		infix := p.infixParseFns[p.curToken.Type]
		if infix == nil {
			break
		}
		left = infix(left)
	}
	if p.err != nil {
		return ast.NoNode
	}
	return left
}

func (p *Parser) parseIdent() ast.NodeID {
	tok := p.curToken
	p.nextToken()
	return p.tree.NewName(tok.Offset, p.interner.Intern(tok.Literal))
}

func (p *Parser) parseInt() ast.NodeID {
	tok := p.curToken
	p.nextToken()
	lit := tok.Literal
	if len(lit) > 1 && lit[0] == '0' && lit[1] >= '0' && lit[1] <= '9' &&
		strings.Trim(lit, "0_") != "" {
		p.setError(tok.Offset, "leading zeros in decimal integer literals are not permitted")
		return ast.NoNode
	}
	n, err := strconv.ParseInt(lit, 0, 64)
	if err != nil {
		if numErr, ok := err.(*strconv.NumError); ok && numErr.Err == strconv.ErrRange {
			p.setError(tok.Offset, "integer literal too large: %s", lit)
		} else {
			p.setError(tok.Offset, "invalid integer literal: %s", lit)
		}
		return ast.NoNode
	}
	v, ok := value.SmiChecked(n)
	if !ok {
		p.setError(tok.Offset, "integer literal too large: %s", lit)
		return ast.NoNode
	}
	return p.tree.NewLiteral(tok.Offset, ast.LitInt, v)
}

func (p *Parser) parseString() ast.NodeID {
	tok := p.curToken
	p.nextToken()
	return p.tree.NewLiteral(tok.Offset, ast.LitString, p.interner.Intern(tok.Literal))
}

func (p *Parser) parseConstant() ast.NodeID {
	tok := p.curToken
	p.nextToken()
	switch tok.Type {
	case token.TRUE:
		return p.tree.NewLiteral(tok.Offset, ast.LitTrue, value.True)
	case token.FALSE:
		return p.tree.NewLiteral(tok.Offset, ast.LitFalse, value.False)
	default:
		return p.tree.NewLiteral(tok.Offset, ast.LitNone, value.None)
	}
}

func (p *Parser) parseGroupedExpr() ast.NodeID {
	p.nextToken()
	expr := p.parseExpression(LOWEST)
	if !p.expect(token.RPAREN, "parenthesized expression") {
		return ast.NoNode
	}
	return expr
}

// parsePrefixExpr parses unary minus, plus and invert. A negated integer
// literal is folded into a negative literal.
func (p *Parser) parsePrefixExpr() ast.NodeID {
	tok := p.curToken
	op := prefixOperators[tok.Type]
	p.nextToken()
	operand := p.parseExpression(PREFIX)
	if p.err != nil {
		return ast.NoNode
	}
	if n := p.tree.Node(operand); op == ast.Neg && n.Kind == ast.Literal && n.Op == ast.LitInt {
		if v, ok := value.NegateSmi(n.Constant); ok {
			return p.tree.NewLiteral(tok.Offset, ast.LitInt, v)
		}
	}
	return p.tree.NewUnary(tok.Offset, op, operand)
}

func (p *Parser) parseNot() ast.NodeID {
	tok := p.curToken
	p.nextToken()
	operand := p.parseExpression(NOT)
	if p.err != nil {
		return ast.NoNode
	}
	return p.tree.NewUnary(tok.Offset, ast.Not, operand)
}

// parseInfixExpr parses binary operators and the short-circuiting and/or.
// Exponentiation is right-associative.
func (p *Parser) parseInfixExpr(left ast.NodeID) ast.NodeID {
	tok := p.curToken
	precedence := p.curPrecedence()
	p.nextToken()
	var op ast.Operator
	switch tok.Type {
	case token.AND:
		op = ast.And
	case token.OR:
		op = ast.Or
	default:
		op = binaryOperators[tok.Type]
	}
	if op == ast.Pow {
		precedence--
	}
	right := p.parseExpression(precedence)
	if p.err != nil {
		return ast.NoNode
	}
	return p.tree.NewBinary(p.offsetOf(left), op, left, right)
}

// parseComparison collects a whole comparison chain, so that a < b < c
// becomes one node with two fragments.
func (p *Parser) parseComparison(left ast.NodeID) ast.NodeID {
	var fragments []ast.NodeID
	for p.err == nil {
		op, ok := comparisonOperators[p.curToken.Type]
		if !ok {
			break
		}
		offset := p.curToken.Offset
		p.nextToken()
		operand := p.parseExpression(COMPARE)
		if p.err != nil {
			return ast.NoNode
		}
		fragments = append(fragments, p.tree.NewCompareFragment(offset, op, operand))
	}
	return p.tree.NewComparison(p.offsetOf(left), left, fragments)
}

func (p *Parser) parseCall(callee ast.NodeID) ast.NodeID {
	p.nextToken()
	var args []ast.NodeID
	for p.err == nil && !p.curTokenIs(token.RPAREN) {
		args = append(args, p.parseExpression(LOWEST))
		if !p.curTokenIs(token.COMMA) {
			break
		}
		p.nextToken()
	}
	if !p.expect(token.RPAREN, "call arguments") {
		return ast.NoNode
	}
	return p.tree.NewCall(p.offsetOf(callee), callee, args)
}
