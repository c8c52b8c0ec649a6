package frontend

import "fmt"

// TokenType is the kind of a token
type TokenType int

const (
	EOF TokenType = iota
	NEWLINE
	BLOCK_START
	BLOCK_END
	INVALID

	// Literals
	NAME
	INT
	FLOAT
	STRING
	FSTRING_START
	FSTRING_MIDDLE
	FSTRING_END
	INTERP_START
	INTERP_END

	// Keywords
	keywordBeg
	AND
	AS
	ASSERT
	ASYNC
	AWAIT
	BREAK
	CASE
	CLASS
	CONTINUE
	DEF
	DEL
	ELIF
	ELSE
	EXCEPT
	EXPORT
	FINALLY
	FOR
	FROM
	IF
	IMPORT
	IN
	IS
	LAMBDA
	LET
	MATCH
	NOT
	OR
	PASS
	RAISE
	RETURN
	TRY
	VAR
	WHILE
	WITH
	YIELD
	TRUE
	FALSE
	NONE
	keywordEnd

	// Operators
	PLUS        // +
	MINUS       // -
	STAR        // *
	SLASH       // /
	DSLASH      // //
	PERCENT     // %
	POWER       // **
	AT          // @
	AMP         // &
	PIPE        // |
	CARET       // ^
	TILDE       // ~
	LSHIFT      // <<
	RSHIFT      // >>
	EQ          // ==
	NE          // !=
	LT          // <
	LE          // <=
	GT          // >
	GE          // >=
	ASSIGN      // =
	PLUS_EQ     // +=
	MINUS_EQ    // -=
	STAR_EQ     // *=
	SLASH_EQ    // /=
	DSLASH_EQ   // //=
	PERCENT_EQ  // %=
	POWER_EQ    // **=
	AMP_EQ      // &=
	PIPE_EQ     // |=
	CARET_EQ    // ^=
	LSHIFT_EQ   // <<=
	RSHIFT_EQ   // >>=
	WALRUS      // :=
	ARROW       // ->
	DOT         // .
	ELLIPSIS    // ...
	BANG        // ! (f-string conversions only)

	// Delimiters
	LPAREN
	RPAREN
	LBRACKET
	RBRACKET
	LBRACE
	RBRACE
	COLON
	COMMA
	SEMICOLON
)

var tokenNames = map[TokenType]string{
	EOF:            "end of file",
	NEWLINE:        "newline",
	BLOCK_START:    "block start",
	BLOCK_END:      "block end",
	INVALID:        "invalid token",
	NAME:           "name",
	INT:            "integer",
	FLOAT:          "float",
	STRING:         "string",
	FSTRING_START:  "f-string",
	FSTRING_MIDDLE: "f-string text",
	FSTRING_END:    "end of f-string",
	INTERP_START:   "'{'",
	INTERP_END:     "'}'",
	PLUS:           "'+'",
	MINUS:          "'-'",
	STAR:           "'*'",
	SLASH:          "'/'",
	DSLASH:         "'//'",
	PERCENT:        "'%'",
	POWER:          "'**'",
	AT:             "'@'",
	AMP:            "'&'",
	PIPE:           "'|'",
	CARET:          "'^'",
	TILDE:          "'~'",
	LSHIFT:         "'<<'",
	RSHIFT:         "'>>'",
	EQ:             "'=='",
	NE:             "'!='",
	LT:             "'<'",
	LE:             "'<='",
	GT:             "'>'",
	GE:             "'>='",
	ASSIGN:         "'='",
	PLUS_EQ:        "'+='",
	MINUS_EQ:       "'-='",
	STAR_EQ:        "'*='",
	SLASH_EQ:       "'/='",
	DSLASH_EQ:      "'//='",
	PERCENT_EQ:     "'%='",
	POWER_EQ:       "'**='",
	AMP_EQ:         "'&='",
	PIPE_EQ:        "'|='",
	CARET_EQ:       "'^='",
	LSHIFT_EQ:      "'<<='",
	RSHIFT_EQ:      "'>>='",
	WALRUS:         "':='",
	ARROW:          "'->'",
	DOT:            "'.'",
	ELLIPSIS:       "'...'",
	BANG:           "'!'",
	LPAREN:         "'('",
	RPAREN:         "')'",
	LBRACKET:       "'['",
	RBRACKET:       "']'",
	LBRACE:         "'{'",
	RBRACE:         "'}'",
	COLON:          "':'",
	COMMA:          "','",
	SEMICOLON:      "';'",
}

// Keywords maps reserved words to their token types
var Keywords = map[string]TokenType{
	"and":      AND,
	"as":       AS,
	"assert":   ASSERT,
	"async":    ASYNC,
	"await":    AWAIT,
	"break":    BREAK,
	"case":     CASE,
	"class":    CLASS,
	"continue": CONTINUE,
	"def":      DEF,
	"del":      DEL,
	"elif":     ELIF,
	"else":     ELSE,
	"except":   EXCEPT,
	"export":   EXPORT,
	"finally":  FINALLY,
	"for":      FOR,
	"from":     FROM,
	"if":       IF,
	"import":   IMPORT,
	"in":       IN,
	"is":       IS,
	"lambda":   LAMBDA,
	"let":      LET,
	"match":    MATCH,
	"not":      NOT,
	"or":       OR,
	"pass":     PASS,
	"raise":    RAISE,
	"return":   RETURN,
	"try":      TRY,
	"var":      VAR,
	"while":    WHILE,
	"with":     WITH,
	"yield":    YIELD,
	"True":     TRUE,
	"False":    FALSE,
	"None":     NONE,
}

var keywordText map[TokenType]string

func init() {
	keywordText = make(map[TokenType]string, len(Keywords))
	for k, v := range Keywords {
		keywordText[v] = k
	}
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	if kw, ok := keywordText[t]; ok {
		return "'" + kw + "'"
	}
	return fmt.Sprintf("token(%d)", int(t))
}

// IsKeyword reports whether t is a reserved word
func (t TokenType) IsKeyword() bool {
	return t > keywordBeg && t < keywordEnd
}

// Token is a positioned lexical unit. Value carries the cooked literal:
// decoded string content, or number text with separators removed.
type Token struct {
	Type   TokenType
	Lexeme string
	Value  string
	Line   int
	Col    int
	Len    int

	// EndLine and EndCol are set only for tokens spanning several lines
	EndLine int
	EndCol  int
}

// End returns the line and column just past the token
func (t Token) End() (int, int) {
	if t.EndLine != 0 {
		return t.EndLine, t.EndCol
	}
	return t.Line, t.Col + t.Len
}

func (t Token) String() string {
	switch t.Type {
	case NAME, INT, FLOAT, STRING, FSTRING_MIDDLE, INVALID:
		return fmt.Sprintf("%s %q", t.Type, t.Lexeme)
	}
	return t.Type.String()
}
