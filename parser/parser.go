// Package parser is used to generate the abstract syntax tree (AST) for a program.
//
// A parser is created by calling New() with a lexer as input. The parser should
// then be used only once, by calling Parse to produce the tree.
package parser

import (
	"context"
	"errors"
	"fmt"

	"github.com/clovervm/clover/ast"
	"github.com/clovervm/clover/errz"
	"github.com/clovervm/clover/internal/lexer"
	"github.com/clovervm/clover/internal/token"
	"github.com/clovervm/clover/value"
)

type (
	prefixParseFn func() ast.NodeID
	infixParseFn  func(ast.NodeID) ast.NodeID
)

// Rule selects the entry point of the grammar.
type Rule int

const (
	// File parses a sequence of statements.
	File Rule = iota
	// Eval parses a single expression.
	Eval
)

func (r Rule) String() string {
	if r == Eval {
		return "eval"
	}
	return "file"
}

// Interner maps identifier and string literal text to interned values, so
// that equal names are identical values.
type Interner interface {
	Intern(s string) value.Value
}

// Parse the provided input as source code and return the tree. This is
// shorthand for creating a Lexer and Parser and then calling Parse.
func Parse(ctx context.Context, input string, rule Rule, interner Interner, options ...Option) (*ast.Tree, error) {
	p := New(lexer.New(input), input, interner, options...)
	return p.Parse(ctx, rule)
}

// Option is a configuration function for a Parser.
type Option func(*Parser)

// WithFilename sets the file name used in error locations.
func WithFilename(filename string) Option {
	return func(p *Parser) {
		p.filename = filename
	}
}

// WithMaxDepth sets the maximum nesting depth for the parser.
// This prevents stack overflow on deeply nested input.
// The default is 500.
func WithMaxDepth(depth int) Option {
	return func(p *Parser) {
		p.maxDepth = depth
	}
}

// DefaultMaxDepth is the default maximum nesting depth for parsing.
const DefaultMaxDepth = 500

// Parser object
type Parser struct {
	ctx context.Context

	l     *lexer.Lexer
	input string

	// curToken is the token being examined; peekToken follows it.
	curToken  token.Token
	peekToken token.Token

	tree     *ast.Tree
	interner Interner

	// err is the first error encountered. Parsing stops there.
	err error

	prefixParseFns map[token.Type]prefixParseFn
	infixParseFns  map[token.Type]infixParseFn

	filename string
	depth    int
	maxDepth int
}

// New returns a Parser for the program provided by the given Lexer. input
// must be the text the lexer reads; it is used for error locations.
func New(l *lexer.Lexer, input string, interner Interner, options ...Option) *Parser {
	p := &Parser{
		l:              l,
		input:          input,
		tree:           ast.New(),
		interner:       interner,
		prefixParseFns: map[token.Type]prefixParseFn{},
		infixParseFns:  map[token.Type]infixParseFn{},
		maxDepth:       DefaultMaxDepth,
	}
	for _, opt := range options {
		opt(p)
	}

	// Prime the token pump
	p.nextToken()
	p.nextToken()

	p.registerPrefix(token.IDENT, p.parseIdent)
	p.registerPrefix(token.INT, p.parseInt)
	p.registerPrefix(token.STRING, p.parseString)
	p.registerPrefix(token.TRUE, p.parseConstant)
	p.registerPrefix(token.FALSE, p.parseConstant)
	p.registerPrefix(token.NONE, p.parseConstant)
	p.registerPrefix(token.LPAREN, p.parseGroupedExpr)
	p.registerPrefix(token.MINUS, p.parsePrefixExpr)
	p.registerPrefix(token.PLUS, p.parsePrefixExpr)
	p.registerPrefix(token.TILDE, p.parsePrefixExpr)
	p.registerPrefix(token.NOT, p.parseNot)

	for t := range binaryOperators {
		p.registerInfix(t, p.parseInfixExpr)
	}
	for t := range comparisonOperators {
		p.registerInfix(t, p.parseComparison)
	}
	p.registerInfix(token.AND, p.parseInfixExpr)
	p.registerInfix(token.OR, p.parseInfixExpr)
	p.registerInfix(token.LPAREN, p.parseCall)
	return p
}

// Parse the program that is provided via the lexer.
func (p *Parser) Parse(ctx context.Context, rule Rule) (*ast.Tree, error) {
	p.ctx = ctx
	var root ast.NodeID
	switch rule {
	case Eval:
		root = p.parseEval()
	default:
		root = p.parseFile()
	}
	if p.err != nil {
		return nil, p.err
	}
	p.tree.Root = root
	return p.tree, nil
}

func (p *Parser) parseFile() ast.NodeID {
	var stmts []ast.NodeID
	for p.err == nil && !p.curTokenIs(token.EOF) {
		if p.cancelled() {
			return ast.NoNode
		}
		if p.curTokenIs(token.NEWLINE) {
			p.nextToken()
			continue
		}
		stmts = append(stmts, p.parseStatement()...)
	}
	return p.tree.NewSequence(0, stmts)
}

func (p *Parser) parseEval() ast.NodeID {
	for p.curTokenIs(token.NEWLINE) {
		p.nextToken()
	}
	expr := p.parseExpression(LOWEST)
	for p.err == nil && p.curTokenIs(token.NEWLINE) {
		p.nextToken()
	}
	if p.err == nil && !p.curTokenIs(token.EOF) {
		p.unexpected("expression")
	}
	return expr
}

// nextToken advances by one token. A lexer error becomes the parse error
// and the token stream is replaced by EOF.
func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	if p.err != nil {
		p.peekToken = token.Token{Type: token.EOF, Offset: p.curToken.End, End: p.curToken.End}
		return
	}
	tok, err := p.l.Next()
	if err != nil {
		var lexErr *lexer.Error
		offset := p.curToken.End
		msg := err.Error()
		if errors.As(err, &lexErr) {
			offset, msg = lexErr.Offset, lexErr.Message
		}
		p.setError(offset, "%s", msg)
		tok = token.Token{Type: token.EOF, Offset: offset, End: offset}
	}
	p.peekToken = tok
}

func (p *Parser) registerPrefix(tokenType token.Type, fn prefixParseFn) {
	p.prefixParseFns[tokenType] = fn
}

func (p *Parser) registerInfix(tokenType token.Type, fn infixParseFn) {
	p.infixParseFns[tokenType] = fn
}

func (p *Parser) curTokenIs(t token.Type) bool {
	return p.curToken.Type == t
}

func (p *Parser) offsetOf(id ast.NodeID) int {
	return int(p.tree.Node(id).Offset)
}

// setError records the first error only.
func (p *Parser) setError(offset int, format string, args ...any) {
	if p.err != nil {
		return
	}
	p.err = errz.NewCompileError(errz.ErrSyntax, p.filename, p.input, offset, format, args...)
}

// expect consumes the current token if it has type t and reports an error
// otherwise.
func (p *Parser) expect(t token.Type, context string) bool {
	if p.err != nil {
		return false
	}
	if !p.curTokenIs(t) {
		p.setError(p.curToken.Offset, "unexpected %s while parsing %s (expected %s)",
			tokenDescription(p.curToken), context, tokenTypeDescription(t))
		return false
	}
	p.nextToken()
	return true
}

func (p *Parser) unexpected(context string) {
	p.setError(p.curToken.Offset, "unexpected %s while parsing %s", tokenDescription(p.curToken), context)
}

// cancelled checks if the parsing context has been cancelled.
func (p *Parser) cancelled() bool {
	if p.ctx == nil {
		return false
	}
	select {
	case <-p.ctx.Done():
		if p.err == nil {
			p.err = p.ctx.Err()
		}
		return true
	default:
		return false
	}
}

func tokenDescription(t token.Token) string {
	switch t.Type {
	case token.EOF:
		return "end of input"
	case token.NEWLINE:
		return "newline"
	case token.INDENT:
		return "indent"
	case token.DEDENT:
		return "dedent"
	case token.STRING:
		return fmt.Sprintf("string %q", t.Literal)
	case token.IDENT:
		return fmt.Sprintf("name %q", t.Literal)
	case token.INT:
		return fmt.Sprintf("integer %s", t.Literal)
	}
	return fmt.Sprintf("%q", t.Literal)
}

func tokenTypeDescription(t token.Type) string {
	switch t {
	case token.EOF:
		return "end of input"
	case token.NEWLINE:
		return "newline"
	case token.INDENT:
		return "an indented block"
	case token.DEDENT:
		return "dedent"
	case token.IDENT:
		return "a name"
	}
	return fmt.Sprintf("%q", string(t))
}
