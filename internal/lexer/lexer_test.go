package lexer

import (
	"testing"

	"github.com/clovervm/clover/internal/token"
	"github.com/stretchr/testify/require"
)

type expected struct {
	typ     token.Type
	literal string
}

func lexAll(t *testing.T, input string) []token.Token {
	t.Helper()
	l := New(input)
	var toks []token.Token
	for {
		tok, err := l.Next()
		require.NoError(t, err)
		toks = append(toks, tok)
		if tok.Type == token.EOF {
			return toks
		}
	}
}

func requireTokens(t *testing.T, input string, want []expected) {
	t.Helper()
	toks := lexAll(t, input)
	got := make([]expected, len(toks))
	for i, tok := range toks {
		got[i] = expected{tok.Type, tok.Literal}
	}
	require.Equal(t, want, got)
}

func TestOperators(t *testing.T) {
	requireTokens(t, "a //= b ** 2 >> 1 != ~c", []expected{
		{token.IDENT, "a"},
		{token.SLASH_SLASH_EQ, "//="},
		{token.IDENT, "b"},
		{token.POW, "**"},
		{token.INT, "2"},
		{token.GT_GT, ">>"},
		{token.INT, "1"},
		{token.NOT_EQ, "!="},
		{token.TILDE, "~"},
		{token.IDENT, "c"},
		{token.NEWLINE, ""},
		{token.EOF, ""},
	})
}

func TestKeywordsAndLiterals(t *testing.T) {
	requireTokens(t, `x = None if not True else 'it\'s' "a\tb" 0x1f 1_000`, []expected{
		{token.IDENT, "x"},
		{token.ASSIGN, "="},
		{token.NONE, "None"},
		{token.IF, "if"},
		{token.NOT, "not"},
		{token.TRUE, "True"},
		{token.ELSE, "else"},
		{token.STRING, "it's"},
		{token.STRING, "a\tb"},
		{token.INT, "0x1f"},
		{token.INT, "1_000"},
		{token.NEWLINE, ""},
		{token.EOF, ""},
	})
}

func TestIndentation(t *testing.T) {
	input := `while a:
    a -= 1

    # comment only
    if a:
        b = 1
c = 2
`
	requireTokens(t, input, []expected{
		{token.WHILE, "while"},
		{token.IDENT, "a"},
		{token.COLON, ":"},
		{token.NEWLINE, "\n"},
		{token.INDENT, ""},
		{token.IDENT, "a"},
		{token.MINUS_EQUALS, "-="},
		{token.INT, "1"},
		{token.NEWLINE, "\n"},
		{token.IF, "if"},
		{token.IDENT, "a"},
		{token.COLON, ":"},
		{token.NEWLINE, "\n"},
		{token.INDENT, ""},
		{token.IDENT, "b"},
		{token.ASSIGN, "="},
		{token.INT, "1"},
		{token.NEWLINE, "\n"},
		{token.DEDENT, ""},
		{token.DEDENT, ""},
		{token.IDENT, "c"},
		{token.ASSIGN, "="},
		{token.INT, "2"},
		{token.NEWLINE, "\n"},
		{token.EOF, ""},
	})
}

func TestDedentAtEOF(t *testing.T) {
	requireTokens(t, "def f():\n  return 1", []expected{
		{token.DEF, "def"},
		{token.IDENT, "f"},
		{token.LPAREN, "("},
		{token.RPAREN, ")"},
		{token.COLON, ":"},
		{token.NEWLINE, "\n"},
		{token.INDENT, ""},
		{token.RETURN, "return"},
		{token.INT, "1"},
		{token.NEWLINE, ""},
		{token.DEDENT, ""},
		{token.EOF, ""},
	})
}

func TestImplicitLineJoining(t *testing.T) {
	requireTokens(t, "f(1,\n      2)\nx = 1 + \\\n  2", []expected{
		{token.IDENT, "f"},
		{token.LPAREN, "("},
		{token.INT, "1"},
		{token.COMMA, ","},
		{token.INT, "2"},
		{token.RPAREN, ")"},
		{token.NEWLINE, "\n"},
		{token.IDENT, "x"},
		{token.ASSIGN, "="},
		{token.INT, "1"},
		{token.PLUS, "+"},
		{token.INT, "2"},
		{token.NEWLINE, ""},
		{token.EOF, ""},
	})
}

func TestOffsets(t *testing.T) {
	toks := lexAll(t, "ab = 'x'")
	require.Equal(t, 0, toks[0].Offset)
	require.Equal(t, 2, toks[0].End)
	require.Equal(t, 3, toks[1].Offset)
	require.Equal(t, 5, toks[2].Offset)
	require.Equal(t, 8, toks[2].End)
}

func TestErrors(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		offset int
		msg    string
	}{
		{"unterminated string", "x = 'abc\n", 4, "unterminated string literal"},
		{"bad character", "x = $", 4, "invalid character '$'"},
		{"bad dedent", "if a:\n    b\n  c\n", 14, "unindent does not match any outer indentation level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := New(tt.input)
			var err error
			for err == nil {
				var tok token.Token
				tok, err = l.Next()
				if tok.Type == token.EOF {
					break
				}
			}
			require.Error(t, err)
			var lexErr *Error
			require.ErrorAs(t, err, &lexErr)
			require.Equal(t, tt.offset, lexErr.Offset)
			require.Equal(t, tt.msg, lexErr.Message)
		})
	}
}
