// Package token defines language keywords and tokens used when lexing source code.
package token

// Type describes the type of a token as a string.
type Type string

// Token represents one token lexed from the input source code.
type Token struct {
	Type Type
	// Literal is the source text, except for STRING tokens where it holds
	// the decoded contents.
	Literal string
	Offset  int // byte offset of the first character
	End     int // byte offset just past the last character
}

// Token types
const (
	AMPERSAND        Type = "&"
	AMPERSAND_EQUALS Type = "&="
	AND              Type = "and"
	ASSIGN           Type = "="
	ASTERISK         Type = "*"
	ASTERISK_EQUALS  Type = "*="
	BREAK            Type = "break"
	CARET            Type = "^"
	CARET_EQUALS     Type = "^="
	COLON            Type = ":"
	COMMA            Type = ","
	CONTINUE         Type = "continue"
	DEDENT           Type = "DEDENT"
	DEF              Type = "def"
	ELIF             Type = "elif"
	ELSE             Type = "else"
	EOF              Type = "EOF"
	EQ               Type = "=="
	FALSE            Type = "False"
	GT               Type = ">"
	GT_EQUALS        Type = ">="
	GT_GT            Type = ">>"
	GT_GT_EQUALS     Type = ">>="
	IDENT            Type = "IDENT"
	IF               Type = "if"
	ILLEGAL          Type = "ILLEGAL"
	INDENT           Type = "INDENT"
	INT              Type = "INT"
	LPAREN           Type = "("
	LT               Type = "<"
	LT_EQUALS        Type = "<="
	LT_LT            Type = "<<"
	LT_LT_EQUALS     Type = "<<="
	MINUS            Type = "-"
	MINUS_EQUALS     Type = "-="
	MOD              Type = "%"
	MOD_EQUALS       Type = "%="
	NEWLINE          Type = "NEWLINE"
	NONE             Type = "None"
	NOT              Type = "not"
	NOT_EQ           Type = "!="
	OR               Type = "or"
	PASS             Type = "pass"
	PIPE             Type = "|"
	PIPE_EQUALS      Type = "|="
	PLUS             Type = "+"
	PLUS_EQUALS      Type = "+="
	POW              Type = "**"
	POW_EQUALS       Type = "**="
	RETURN           Type = "return"
	RPAREN           Type = ")"
	SEMICOLON        Type = ";"
	SLASH            Type = "/"
	SLASH_EQUALS     Type = "/="
	SLASH_SLASH      Type = "//"
	SLASH_SLASH_EQ   Type = "//="
	STRING           Type = "STRING"
	TILDE            Type = "~"
	TRUE             Type = "True"
	WHILE            Type = "while"
)

// Reserved keywords
var keywords = map[string]Type{
	"and":      AND,
	"break":    BREAK,
	"continue": CONTINUE,
	"def":      DEF,
	"elif":     ELIF,
	"else":     ELSE,
	"False":    FALSE,
	"if":       IF,
	"None":     NONE,
	"not":      NOT,
	"or":       OR,
	"pass":     PASS,
	"return":   RETURN,
	"True":     TRUE,
	"while":    WHILE,
}

// LookupIdentifier used to determinate whether identifier is keyword nor not
func LookupIdentifier(identifier string) Type {
	if tok, ok := keywords[identifier]; ok {
		return tok
	}
	return IDENT
}

// IsAugmentedAssign reports whether t is one of the "op=" tokens.
func IsAugmentedAssign(t Type) bool {
	switch t {
	case PLUS_EQUALS, MINUS_EQUALS, ASTERISK_EQUALS, SLASH_EQUALS,
		SLASH_SLASH_EQ, MOD_EQUALS, POW_EQUALS, LT_LT_EQUALS, GT_GT_EQUALS,
		AMPERSAND_EQUALS, PIPE_EQUALS, CARET_EQUALS:
		return true
	}
	return false
}
