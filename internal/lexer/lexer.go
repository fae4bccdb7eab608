// Package lexer turns source text into tokens.
//
// Indentation is significant: the lexer emits NEWLINE at the end of every
// logical line that produced tokens, INDENT when a line is indented deeper
// than the enclosing block, and one DEDENT per closed block. Blank lines and
// comment-only lines produce nothing. Newlines inside parentheses are
// ignored, as are newlines escaped with a trailing backslash.
package lexer

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/clovervm/clover/internal/token"
)

const tabWidth = 8

// Error is a lexical error at a byte offset.
type Error struct {
	Offset  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (offset %d)", e.Message, e.Offset)
}

// Lexer tokenizes one input string.
type Lexer struct {
	input   string
	pos     int
	parens  int
	indents []int
	// lineStart is true until the first token of a logical line is read.
	lineStart bool
	// lineHasTokens is true once a token other than INDENT/DEDENT was
	// emitted on the current logical line.
	lineHasTokens bool
	pending       []token.Token
	done          bool
}

// New returns a lexer for input.
func New(input string) *Lexer {
	return &Lexer{input: input, indents: []int{0}, lineStart: true}
}

// Next returns the next token. After EOF it keeps returning EOF.
func (l *Lexer) Next() (token.Token, error) {
	if len(l.pending) > 0 {
		tok := l.pending[0]
		l.pending = l.pending[1:]
		return tok, nil
	}
	if l.done {
		return l.tok(token.EOF, l.pos, l.pos), nil
	}
	if l.lineStart && l.parens == 0 {
		if err := l.indentation(); err != nil {
			return token.Token{}, err
		}
		if len(l.pending) > 0 {
			return l.Next()
		}
	}
	if err := l.skipWhitespace(); err != nil {
		return token.Token{}, err
	}
	if l.pos >= len(l.input) {
		return l.eof(), nil
	}

	start := l.pos
	ch := l.input[l.pos]
	switch {
	case ch == '\n' || ch == '\r':
		l.consumeNewline()
		if l.parens > 0 {
			return l.Next()
		}
		l.lineStart = true
		if !l.lineHasTokens {
			return l.Next()
		}
		l.lineHasTokens = false
		return l.tok(token.NEWLINE, start, l.pos), nil
	case isDigit(ch):
		return l.emit(l.readNumber(start)), nil
	case ch == '"' || ch == '\'':
		tok, err := l.readString(start)
		if err != nil {
			return token.Token{}, err
		}
		return l.emit(tok), nil
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.pos:])
	if isIdentStart(r) {
		return l.emit(l.readIdentifier(start)), nil
	}
	for _, op := range operators {
		if strings.HasPrefix(l.input[l.pos:], string(op)) {
			l.pos += len(op)
			switch op {
			case token.LPAREN:
				l.parens++
			case token.RPAREN:
				if l.parens > 0 {
					l.parens--
				}
			}
			return l.emit(l.tok(op, start, l.pos)), nil
		}
	}
	return token.Token{}, &Error{Offset: start, Message: fmt.Sprintf("invalid character %q", r)}
}

// operators is ordered longest first so that prefixes never shadow a
// longer operator.
var operators = []token.Type{
	token.SLASH_SLASH_EQ, token.POW_EQUALS, token.LT_LT_EQUALS, token.GT_GT_EQUALS,
	token.EQ, token.NOT_EQ, token.LT_EQUALS, token.GT_EQUALS, token.LT_LT, token.GT_GT,
	token.POW, token.SLASH_SLASH, token.PLUS_EQUALS, token.MINUS_EQUALS,
	token.ASTERISK_EQUALS, token.SLASH_EQUALS, token.MOD_EQUALS,
	token.AMPERSAND_EQUALS, token.PIPE_EQUALS, token.CARET_EQUALS,
	token.PLUS, token.MINUS, token.ASTERISK, token.SLASH, token.MOD,
	token.AMPERSAND, token.PIPE, token.CARET, token.TILDE,
	token.LT, token.GT, token.ASSIGN, token.LPAREN, token.RPAREN,
	token.COLON, token.COMMA, token.SEMICOLON,
}

func (l *Lexer) tok(t token.Type, start, end int) token.Token {
	return token.Token{Type: t, Literal: l.input[start:end], Offset: start, End: end}
}

func (l *Lexer) emit(tok token.Token) token.Token {
	l.lineStart = false
	l.lineHasTokens = true
	return tok
}

// eof queues the final NEWLINE and DEDENTs, then EOF. An unclosed
// parenthesis suppresses the NEWLINE.
func (l *Lexer) eof() token.Token {
	l.done = true
	end := len(l.input)
	if l.lineHasTokens && l.parens == 0 {
		l.pending = append(l.pending, l.tok(token.NEWLINE, end, end))
		l.lineHasTokens = false
	}
	for len(l.indents) > 1 {
		l.indents = l.indents[:len(l.indents)-1]
		l.pending = append(l.pending, l.tok(token.DEDENT, end, end))
	}
	l.pending = append(l.pending, l.tok(token.EOF, end, end))
	tok := l.pending[0]
	l.pending = l.pending[1:]
	return tok
}

// indentation measures the leading whitespace of the next non-blank line
// and queues INDENT or DEDENT tokens.
func (l *Lexer) indentation() error {
	for {
		col := 0
		p := l.pos
	scan:
		for p < len(l.input) {
			switch l.input[p] {
			case ' ':
				col++
			case '\t':
				col += tabWidth - col%tabWidth
			case '\f':
				col = 0
			default:
				break scan
			}
			p++
		}
		if p >= len(l.input) {
			l.pos = p
			return nil
		}
		switch l.input[p] {
		case '#':
			for p < len(l.input) && l.input[p] != '\n' {
				p++
			}
			l.pos = p
			if p < len(l.input) {
				l.consumeNewline()
			}
			continue
		case '\n', '\r':
			l.pos = p
			l.consumeNewline()
			continue
		}
		l.pos = p
		l.lineStart = false
		top := l.indents[len(l.indents)-1]
		switch {
		case col > top:
			l.indents = append(l.indents, col)
			l.pending = append(l.pending, l.tok(token.INDENT, p, p))
		case col < top:
			for col < l.indents[len(l.indents)-1] {
				l.indents = l.indents[:len(l.indents)-1]
				l.pending = append(l.pending, l.tok(token.DEDENT, p, p))
			}
			if col != l.indents[len(l.indents)-1] {
				return &Error{Offset: p, Message: "unindent does not match any outer indentation level"}
			}
		}
		return nil
	}
}

func (l *Lexer) skipWhitespace() error {
	for l.pos < len(l.input) {
		switch ch := l.input[l.pos]; ch {
		case ' ', '\t', '\f':
			l.pos++
		case '#':
			for l.pos < len(l.input) && l.input[l.pos] != '\n' && l.input[l.pos] != '\r' {
				l.pos++
			}
		case '\\':
			next := l.pos + 1
			if next < len(l.input) && (l.input[next] == '\n' || l.input[next] == '\r') {
				l.pos = next
				l.consumeNewline()
				continue
			}
			return &Error{Offset: l.pos, Message: "unexpected character after line continuation"}
		default:
			return nil
		}
	}
	return nil
}

func (l *Lexer) consumeNewline() {
	if l.input[l.pos] == '\r' {
		l.pos++
		if l.pos < len(l.input) && l.input[l.pos] == '\n' {
			l.pos++
		}
		return
	}
	l.pos++
}

// readNumber reads digits, letters and underscores. The parser validates
// the literal.
func (l *Lexer) readNumber(start int) token.Token {
	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		if !isDigit(ch) && !isASCIILetter(ch) && ch != '_' {
			break
		}
		l.pos++
	}
	return l.tok(token.INT, start, l.pos)
}

func (l *Lexer) readIdentifier(start int) token.Token {
	for l.pos < len(l.input) {
		r, size := utf8.DecodeRuneInString(l.input[l.pos:])
		if !isIdentStart(r) && !unicode.IsDigit(r) {
			break
		}
		l.pos += size
	}
	lit := l.input[start:l.pos]
	return l.tok(token.LookupIdentifier(lit), start, l.pos)
}

func (l *Lexer) readString(start int) (token.Token, error) {
	quote := l.input[l.pos]
	l.pos++
	var sb strings.Builder
	for {
		if l.pos >= len(l.input) || l.input[l.pos] == '\n' || l.input[l.pos] == '\r' {
			return token.Token{}, &Error{Offset: start, Message: "unterminated string literal"}
		}
		ch := l.input[l.pos]
		l.pos++
		if ch == quote {
			break
		}
		if ch != '\\' {
			sb.WriteByte(ch)
			continue
		}
		if l.pos >= len(l.input) {
			return token.Token{}, &Error{Offset: start, Message: "unterminated string literal"}
		}
		esc := l.input[l.pos]
		l.pos++
		switch esc {
		case 'n':
			sb.WriteByte('\n')
		case 't':
			sb.WriteByte('\t')
		case 'r':
			sb.WriteByte('\r')
		case '0':
			sb.WriteByte(0)
		case '\\', '\'', '"':
			sb.WriteByte(esc)
		case '\n':
		default:
			sb.WriteByte('\\')
			sb.WriteByte(esc)
		}
	}
	return token.Token{Type: token.STRING, Literal: sb.String(), Offset: start, End: l.pos}, nil
}

func isDigit(ch byte) bool { return ch >= '0' && ch <= '9' }

func isASCIILetter(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}
