package parser

import (
	"github.com/clovervm/clover/ast"
	"github.com/clovervm/clover/internal/token"
)

// parseStatement parses one compound statement, or one line of simple
// statements separated by semicolons.
func (p *Parser) parseStatement() []ast.NodeID {
	switch p.curToken.Type {
	case token.IF:
		return []ast.NodeID{p.parseIf()}
	case token.WHILE:
		return []ast.NodeID{p.parseWhile()}
	case token.DEF:
		return []ast.NodeID{p.parseDef()}
	case token.INDENT:
		p.setError(p.curToken.Offset, "unexpected indent")
		return nil
	}
	return p.parseSimpleStatements()
}

func (p *Parser) parseSimpleStatements() []ast.NodeID {
	var stmts []ast.NodeID
	for p.err == nil {
		stmts = append(stmts, p.parseSimpleStatement())
		if !p.curTokenIs(token.SEMICOLON) {
			break
		}
		p.nextToken()
		if p.curTokenIs(token.NEWLINE) || p.curTokenIs(token.EOF) {
			break
		}
	}
	if p.err != nil {
		return nil
	}
	if p.curTokenIs(token.EOF) {
		return stmts
	}
	if !p.expect(token.NEWLINE, "statement") {
		return nil
	}
	return stmts
}

func (p *Parser) parseSimpleStatement() ast.NodeID {
	tok := p.curToken
	switch tok.Type {
	case token.PASS:
		p.nextToken()
		return p.tree.NewStatement(tok.Offset, ast.Pass)
	case token.BREAK:
		p.nextToken()
		return p.tree.NewStatement(tok.Offset, ast.Break)
	case token.CONTINUE:
		p.nextToken()
		return p.tree.NewStatement(tok.Offset, ast.Continue)
	case token.RETURN:
		return p.parseReturn()
	}
	return p.parseExpressionStatement()
}

func (p *Parser) parseReturn() ast.NodeID {
	offset := p.curToken.Offset
	p.nextToken()
	switch p.curToken.Type {
	case token.NEWLINE, token.SEMICOLON, token.EOF:
		return p.tree.NewReturn(offset, ast.NoNode)
	}
	val := p.parseExpression(LOWEST)
	if p.err != nil {
		return ast.NoNode
	}
	return p.tree.NewReturn(offset, val)
}

// parseExpressionStatement parses an expression, a possibly chained
// assignment, or an augmented assignment. Targets are not validated here.
func (p *Parser) parseExpressionStatement() ast.NodeID {
	first := p.parseExpression(LOWEST)
	if p.err != nil {
		return ast.NoNode
	}
	if op, ok := augmentedOperators[p.curToken.Type]; ok {
		p.nextToken()
		val := p.parseExpression(LOWEST)
		if p.err != nil {
			return ast.NoNode
		}
		return p.tree.NewAugAssign(p.offsetOf(first), op, first, val)
	}
	if !p.curTokenIs(token.ASSIGN) {
		return first
	}
	targets := []ast.NodeID{first}
	for p.curTokenIs(token.ASSIGN) {
		p.nextToken()
		targets = append(targets, p.parseExpression(LOWEST))
		if p.err != nil {
			return ast.NoNode
		}
	}
	// a = b = v nests as Assign(a, Assign(b, v)).
	val := targets[len(targets)-1]
	for i := len(targets) - 2; i >= 0; i-- {
		val = p.tree.NewAssign(p.offsetOf(targets[i]), targets[i], val)
	}
	return val
}

// parseBlock parses ": NEWLINE INDENT stmts DEDENT" or ": simple_stmts".
func (p *Parser) parseBlock(context string) ast.NodeID {
	if !p.expect(token.COLON, context) {
		return ast.NoNode
	}
	offset := p.curToken.Offset
	if !p.curTokenIs(token.NEWLINE) {
		stmts := p.parseSimpleStatements()
		if p.err != nil {
			return ast.NoNode
		}
		return p.tree.NewSequence(offset, stmts)
	}
	p.nextToken()
	offset = p.curToken.Offset
	if !p.expect(token.INDENT, context) {
		return ast.NoNode
	}
	var stmts []ast.NodeID
	for p.err == nil && !p.curTokenIs(token.DEDENT) && !p.curTokenIs(token.EOF) {
		stmts = append(stmts, p.parseStatement()...)
	}
	if !p.expect(token.DEDENT, context) {
		return ast.NoNode
	}
	return p.tree.NewSequence(offset, stmts)
}

// parseIf handles if and elif; an elif chain nests in Else.
func (p *Parser) parseIf() ast.NodeID {
	offset := p.curToken.Offset
	p.nextToken()
	cond := p.parseExpression(LOWEST)
	body := p.parseBlock("if statement")
	orElse := ast.NoNode
	switch {
	case p.err != nil:
		return ast.NoNode
	case p.curTokenIs(token.ELIF):
		orElse = p.parseIf()
	case p.curTokenIs(token.ELSE):
		p.nextToken()
		orElse = p.parseBlock("else clause")
	}
	if p.err != nil {
		return ast.NoNode
	}
	return p.tree.NewIf(offset, cond, body, orElse)
}

func (p *Parser) parseWhile() ast.NodeID {
	offset := p.curToken.Offset
	p.nextToken()
	cond := p.parseExpression(LOWEST)
	body := p.parseBlock("while statement")
	orElse := ast.NoNode
	if p.err == nil && p.curTokenIs(token.ELSE) {
		p.nextToken()
		orElse = p.parseBlock("else clause")
	}
	if p.err != nil {
		return ast.NoNode
	}
	return p.tree.NewWhile(offset, cond, body, orElse)
}

func (p *Parser) parseDef() ast.NodeID {
	offset := p.curToken.Offset
	p.nextToken()
	nameTok := p.curToken
	if !p.expect(token.IDENT, "function definition") {
		return ast.NoNode
	}
	if !p.expect(token.LPAREN, "function definition") {
		return ast.NoNode
	}
	var params []ast.NodeID
	seen := map[string]bool{}
	for p.err == nil && !p.curTokenIs(token.RPAREN) {
		tok := p.curToken
		if !p.expect(token.IDENT, "function parameters") {
			return ast.NoNode
		}
		if seen[tok.Literal] {
			p.setError(tok.Offset, "duplicate argument %q in function definition", tok.Literal)
			return ast.NoNode
		}
		seen[tok.Literal] = true
		params = append(params, p.tree.NewName(tok.Offset, p.interner.Intern(tok.Literal)))
		if !p.curTokenIs(token.COMMA) {
			break
		}
		p.nextToken()
	}
	if !p.expect(token.RPAREN, "function parameters") {
		return ast.NoNode
	}
	body := p.parseBlock("function definition")
	if p.err != nil {
		return ast.NoNode
	}
	return p.tree.NewFunctionDef(offset, p.interner.Intern(nameTok.Literal), params, body)
}
