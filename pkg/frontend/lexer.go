// Package frontend - Lexer for Pyxis source in either block syntax
// Design: Hand-written scanner over a rune slice. Indentation blocks and
// brace blocks both surface as BLOCK_START / BLOCK_END, so the parser never
// sees which syntax the author picked.
package frontend

import (
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/GriffinCanCode/pyxis-compiler/pkg/diag"
)

// tabWidth is the indentation width of a tab character
const tabWidth = 4

// frame is one entry of the block stack. Brace frames tolerate any
// indentation on their inner lines.
type frame struct {
	width int
	brace bool
	line  int
	col   int
}

type bracket struct {
	r    rune
	line int
	col  int
}

type Lexer struct {
	source []rune
	start  int
	pos    int
	line   int
	col    int

	startLine int
	startCol  int

	tokens []Token
	diags  *diag.List

	// Block stack for significant whitespace and brace blocks
	frames []frame
	parens []bracket

	atLineStart    bool
	expectIndent   bool // previous logical line ended with a block colon
	lastBlockColon bool // most recent COLON opened a block
	headerLine     bool // current logical line starts with a block keyword
	lineTokens     int
	lambdas        int // lambdas at bracket depth zero still awaiting their colon

	// nested lexers scan f-string interpolations
	nested bool
}

// NewLexer creates a lexer over source
func NewLexer(source string) *Lexer {
	return newLexer([]rune(source), 1, 1, diag.NewList(diag.Lex), false)
}

func newLexer(src []rune, line, col int, diags *diag.List, nested bool) *Lexer {
	l := &Lexer{
		source:      src,
		line:        line,
		col:         col,
		diags:       diags,
		frames:      []frame{{width: 0}},
		atLineStart: !nested,
		nested:      nested,
	}
	if nested {
		// interpolations behave like bracketed text: newlines are insignificant
		l.parens = []bracket{{r: '(', line: line, col: col}}
	}
	if len(src) > 0 && src[0] == '\uFEFF' {
		l.pos++
	}
	return l
}

// Tokenize scans source into a token stream ending in EOF
func Tokenize(source string) ([]Token, []diag.Diagnostic) {
	l := NewLexer(source)
	toks := l.Tokenize()
	return toks, l.Diagnostics()
}

// Tokenize scans the whole input. It always returns a stream terminated by
// EOF, whatever errors were found.
func (l *Lexer) Tokenize() []Token {
	for {
		if l.atLineStart {
			l.atLineStart = false
			if !l.lineStart() {
				break
			}
			continue
		}

		l.skipWhitespace()
		if l.isAtEnd() {
			break
		}

		if l.peek() == '\n' {
			if len(l.parens) > 0 && !l.resumesStatement() {
				l.advance()
				continue
			}
			l.abandonBrackets()
			l.newline()
			continue
		}

		l.scanToken()
	}
	l.finish()
	return l.tokens
}

// Diagnostics returns the lexical errors found so far
func (l *Lexer) Diagnostics() []diag.Diagnostic {
	return l.diags.Items()
}

func (l *Lexer) skipWhitespace() {
	for !l.isAtEnd() {
		c := l.peek()
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\f':
			l.advance()
		case c == '#':
			l.skipLineComment()
		case c == '/' && l.peekAt(1) == '*':
			l.skipBlockComment()
		case c == '\\' && (l.peekAt(1) == '\n' || (l.peekAt(1) == '\r' && l.peekAt(2) == '\n')):
			// explicit line continuation
			l.advance()
			for l.peek() != '\n' {
				l.advance()
			}
			l.advance()
		default:
			return
		}
	}
}

func (l *Lexer) skipLineComment() {
	for !l.isAtEnd() && l.peek() != '\n' {
		l.advance()
	}
}

func (l *Lexer) skipBlockComment() {
	line, col := l.line, l.col
	l.advance()
	l.advance()
	for !l.isAtEnd() {
		if l.peek() == '*' && l.peekAt(1) == '/' {
			l.advance()
			l.advance()
			return
		}
		l.advance()
	}
	l.diags.Errorf(line, col, diag.CodeUnterminatedComment, "unterminated block comment")
}

// lineStart measures the indentation of the next non-blank line and adjusts
// the block stack. It returns false at end of input.
func (l *Lexer) lineStart() bool {
	for {
		width := 0
	measure:
		for {
			switch l.peek() {
			case ' ':
				width++
			case '\t':
				width = (width/tabWidth + 1) * tabWidth
			case '\r', '\f':
			default:
				break measure
			}
			l.advance()
		}

		// Blank and comment-only lines never affect blocks
		for l.peek() == '/' && l.peekAt(1) == '*' {
			l.skipBlockComment()
			for c := l.peek(); c == ' ' || c == '\t' || c == '\r'; c = l.peek() {
				l.advance()
			}
		}
		if l.peek() == '#' {
			l.skipLineComment()
		}
		if l.isAtEnd() {
			return false
		}
		if l.peek() == '\n' {
			l.advance()
			continue
		}

		l.indent(width)
		return true
	}
}

func (l *Lexer) indent(width int) {
	line, col := l.line, l.col

	if l.expectIndent {
		l.expectIndent = false
		if l.peek() == '{' {
			// brace on its own line after a block colon
			l.start = l.pos
			l.advance()
			l.openBlock(false, line, col)
			return
		}
		if width > l.top().width {
			l.frames = append(l.frames, frame{width: width, line: line, col: col})
			l.emit(BLOCK_START, "", "", line, col, 0)
			return
		}
	}

	for {
		top := l.top()
		if top.brace || width >= top.width || len(l.frames) == 1 {
			break
		}
		l.frames = l.frames[:len(l.frames)-1]
		l.emit(BLOCK_END, "", "", line, col, 0)
	}

	top := &l.frames[len(l.frames)-1]
	if top.brace {
		if top.width < 0 {
			top.width = width
		}
		return
	}
	if width != top.width {
		l.diags.Errorf(line, col, diag.CodeInconsistentIndent, "inconsistent indentation")
	}
}

func (l *Lexer) top() frame {
	return l.frames[len(l.frames)-1]
}

func (l *Lexer) newline() {
	if l.significant() {
		l.expectIndent = l.lastType() == COLON && l.lastBlockColon
		l.emit(NEWLINE, "\n", "", l.line, l.col, 1)
	}
	l.advance()
	l.atLineStart = true
}

// significant reports whether a NEWLINE would terminate something
func (l *Lexer) significant() bool {
	switch l.lastType() {
	case NEWLINE, BLOCK_START, BLOCK_END:
		return false
	}
	return len(l.tokens) > 0
}

func (l *Lexer) lastType() TokenType {
	if len(l.tokens) == 0 {
		return NEWLINE
	}
	return l.tokens[len(l.tokens)-1].Type
}

// statementKeywords start a line that cannot continue a bracketed
// expression
var statementKeywords = map[TokenType]bool{
	DEF: true, CLASS: true, LET: true, VAR: true, IMPORT: true, EXPORT: true,
	RETURN: true, WHILE: true, TRY: true, WITH: true, RAISE: true,
}

// resumesStatement reports whether the line after the current newline
// starts at column zero with a statement keyword. Unclosed brackets end
// there instead of swallowing the rest of the file.
func (l *Lexer) resumesStatement() bool {
	if l.nested {
		return false
	}
	i := l.pos + 1
	if i < len(l.source) && l.source[i] == '\r' {
		i++
	}
	j := i
	for j < len(l.source) && isIdentPart(l.source[j]) {
		j++
	}
	if j == i || !isIdentStart(l.source[i]) {
		return false
	}
	return statementKeywords[Keywords[string(l.source[i:j])]]
}

// abandonBrackets reports every open bracket as unclosed and forgets them
func (l *Lexer) abandonBrackets() {
	for _, b := range l.parens {
		l.diags.Errorf(b.line, b.col, diag.CodeUnmatchedBracket, "unclosed '%c'", b.r)
	}
	l.parens = nil
}

func (l *Lexer) finish() {
	if l.nested {
		return
	}
	if l.significant() {
		l.emit(NEWLINE, "", "", l.line, l.col, 0)
	}
	l.abandonBrackets()
	for len(l.frames) > 1 {
		f := l.top()
		if f.brace {
			l.diags.Errorf(f.line, f.col, diag.CodeUnclosedBlock, "unclosed block: missing '}'")
		}
		l.frames = l.frames[:len(l.frames)-1]
		l.emit(BLOCK_END, "", "", l.line, l.col, 0)
	}
	l.emit(EOF, "", "", l.line, l.col, 0)
}

func (l *Lexer) scanToken() {
	l.start = l.pos
	l.startLine, l.startCol = l.line, l.col
	c := l.advance()

	switch c {
	case '(', '[':
		l.parens = append(l.parens, bracket{r: c, line: l.startLine, col: l.startCol})
		if c == '(' {
			l.makeToken(LPAREN)
		} else {
			l.makeToken(LBRACKET)
		}
	case ')':
		l.closeBracket('(', RPAREN)
	case ']':
		l.closeBracket('[', RBRACKET)
	case '{':
		if len(l.parens) == 0 {
			if colon, ok := l.blockBrace(); ok {
				l.openBlock(colon, l.startLine, l.startCol)
				return
			}
		}
		l.parens = append(l.parens, bracket{r: c, line: l.startLine, col: l.startCol})
		l.makeToken(LBRACE)
	case '}':
		if len(l.parens) == 0 {
			l.closeBlock()
			return
		}
		l.closeBracket('{', RBRACE)
	case '+':
		l.pick('=', PLUS_EQ, PLUS)
	case '-':
		switch {
		case l.match('>'):
			l.makeToken(ARROW)
		case l.match('='):
			l.makeToken(MINUS_EQ)
		default:
			l.makeToken(MINUS)
		}
	case '*':
		if l.match('*') {
			l.pick('=', POWER_EQ, POWER)
		} else {
			l.pick('=', STAR_EQ, STAR)
		}
	case '/':
		if l.match('/') {
			l.pick('=', DSLASH_EQ, DSLASH)
		} else {
			l.pick('=', SLASH_EQ, SLASH)
		}
	case '%':
		l.pick('=', PERCENT_EQ, PERCENT)
	case '@':
		l.makeToken(AT)
	case '&':
		l.pick('=', AMP_EQ, AMP)
	case '|':
		l.pick('=', PIPE_EQ, PIPE)
	case '^':
		l.pick('=', CARET_EQ, CARET)
	case '~':
		l.makeToken(TILDE)
	case '<':
		if l.match('<') {
			l.pick('=', LSHIFT_EQ, LSHIFT)
		} else {
			l.pick('=', LE, LT)
		}
	case '>':
		if l.match('>') {
			l.pick('=', RSHIFT_EQ, RSHIFT)
		} else {
			l.pick('=', GE, GT)
		}
	case '=':
		l.pick('=', EQ, ASSIGN)
	case '!':
		if l.match('=') {
			l.makeToken(NE)
			return
		}
		l.invalid(c)
	case ':':
		if l.match('=') {
			l.makeToken(WALRUS)
			return
		}
		l.colon()
	case ',':
		l.makeToken(COMMA)
	case ';':
		l.makeToken(SEMICOLON)
	case '.':
		if isDigit(l.peek()) {
			l.number(c)
			return
		}
		if l.peek() == '.' && l.peekAt(1) == '.' {
			l.advance()
			l.advance()
			l.makeToken(ELLIPSIS)
			return
		}
		l.makeToken(DOT)
	case '"', '\'':
		l.str(c, "")
	default:
		switch {
		case isDigit(c):
			l.number(c)
		case isIdentStart(c):
			l.identifier()
		default:
			l.invalid(c)
		}
	}
}

func (l *Lexer) pick(next rune, yes, no TokenType) {
	if l.match(next) {
		l.makeToken(yes)
		return
	}
	l.makeToken(no)
}

func (l *Lexer) invalid(c rune) {
	l.diags.Errorf(l.startLine, l.startCol, diag.CodeInvalidChar, "invalid character %q", c)
	l.makeToken(INVALID)
}

func (l *Lexer) colon() {
	block := false
	if len(l.parens) == 0 {
		if l.lambdas > 0 {
			l.lambdas--
		} else {
			block = l.headerLine
		}
	}
	l.makeToken(COLON)
	l.lastBlockColon = block
}

func (l *Lexer) closeBracket(open rune, typ TokenType) {
	n := len(l.parens)
	if n == 0 {
		l.diags.Errorf(l.startLine, l.startCol, diag.CodeUnmatchedBracket, "unmatched '%s'", string(l.source[l.start:l.pos]))
		l.makeToken(INVALID)
		return
	}
	top := l.parens[n-1]
	l.parens = l.parens[:n-1]
	if top.r != open {
		l.diags.Errorf(l.startLine, l.startCol, diag.CodeUnmatchedBracket,
			"'%s' does not match '%c' at %d:%d", string(l.source[l.start:l.pos]), top.r, top.line, top.col)
	}
	l.makeToken(typ)
}

// blockBrace decides whether a '{' at bracket depth zero opens a block.
// colon is true when the header omitted its ':' and one must be supplied.
func (l *Lexer) blockBrace() (colon bool, ok bool) {
	if l.lastType() == COLON && l.lastBlockColon {
		return false, true
	}
	if !l.headerLine {
		return false, false
	}
	switch l.lastType() {
	case NAME, INT, FLOAT, STRING, FSTRING_END, TRUE, FALSE, NONE,
		RPAREN, RBRACKET, RBRACE, ELSE, TRY, FINALLY, EXCEPT:
		return true, true
	}
	return false, false
}

func (l *Lexer) openBlock(colon bool, line, col int) {
	if colon {
		l.emit(COLON, "", "", line, col, 0)
	}
	if l.significant() {
		l.emit(NEWLINE, "", "", line, col, 0)
	}
	l.emit(BLOCK_START, "{", "", line, col, 1)
	l.frames = append(l.frames, frame{width: -1, brace: true, line: line, col: col})
	l.lastBlockColon = false
	l.expectIndent = false
}

func (l *Lexer) closeBlock() {
	idx := -1
	for i := len(l.frames) - 1; i > 0; i-- {
		if l.frames[i].brace {
			idx = i
			break
		}
	}
	if idx < 0 {
		l.diags.Errorf(l.startLine, l.startCol, diag.CodeUnmatchedBracket, "unmatched '}'")
		l.makeToken(INVALID)
		return
	}
	if l.significant() {
		l.emit(NEWLINE, "", "", l.startLine, l.startCol, 0)
	}
	for len(l.frames)-1 > idx {
		l.frames = l.frames[:len(l.frames)-1]
		l.emit(BLOCK_END, "", "", l.startLine, l.startCol, 0)
	}
	l.frames = l.frames[:idx]
	l.emit(BLOCK_END, "}", "", l.startLine, l.startCol, 1)
}

func (l *Lexer) identifier() {
	for isIdentPart(l.peek()) {
		l.advance()
	}
	raw := string(l.source[l.start:l.pos])

	// string prefixes
	if q := l.peek(); q == '"' || q == '\'' {
		if isStringPrefix(raw) {
			l.advance()
			l.str(q, raw)
			return
		}
	}

	text := raw
	if !isASCII(raw) {
		text = norm.NFKC.String(raw)
	}
	typ := NAME
	if kw, ok := Keywords[text]; ok {
		typ = kw
	}
	if typ == LAMBDA && len(l.parens) == 0 {
		l.lambdas++
	}
	l.emit(typ, text, "", l.startLine, l.startCol, l.pos-l.start)
}

func isStringPrefix(s string) bool {
	switch s {
	case "f", "F", "r", "R", "fr", "Fr", "fR", "FR", "rf", "rF", "Rf", "RF":
		return true
	}
	return false
}

func isHeaderKeyword(t TokenType) bool {
	switch t {
	case DEF, CLASS, IF, ELIF, ELSE, FOR, WHILE, TRY, EXCEPT, FINALLY, WITH, MATCH, CASE:
		return true
	}
	return false
}

func (l *Lexer) emit(typ TokenType, lexeme, value string, line, col, length int) {
	switch typ {
	case NEWLINE, BLOCK_START, BLOCK_END:
		l.lineTokens = 0
		l.headerLine = false
		l.lambdas = 0
	case EOF:
	default:
		if isHeaderKeyword(typ) {
			switch {
			case l.lineTokens == 0:
				l.headerLine = true
			case l.lineTokens == 1 && (l.lastType() == EXPORT || l.lastType() == ASYNC):
				l.headerLine = true
			}
		}
		l.lineTokens++
	}
	l.tokens = append(l.tokens, Token{
		Type:   typ,
		Lexeme: lexeme,
		Value:  value,
		Line:   line,
		Col:    col,
		Len:    length,
	})
}

func (l *Lexer) makeToken(typ TokenType) {
	l.emit(typ, string(l.source[l.start:l.pos]), "", l.startLine, l.startCol, l.pos-l.start)
}

func (l *Lexer) peek() rune {
	return l.peekAt(0)
}

func (l *Lexer) peekAt(n int) rune {
	if l.pos+n >= len(l.source) {
		return 0
	}
	return l.source[l.pos+n]
}

func (l *Lexer) advance() rune {
	c := l.source[l.pos]
	l.pos++
	if c == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return c
}

func (l *Lexer) match(expected rune) bool {
	if l.isAtEnd() || l.source[l.pos] != expected {
		return false
	}
	l.advance()
	return true
}

func (l *Lexer) isAtEnd() bool {
	return l.pos >= len(l.source)
}

func isDigit(c rune) bool {
	return c >= '0' && c <= '9'
}

func isIdentStart(c rune) bool {
	return c == '_' || unicode.IsLetter(c) || unicode.Is(unicode.Nl, c)
}

func isIdentPart(c rune) bool {
	return isIdentStart(c) || unicode.IsDigit(c) || unicode.In(c, unicode.Mn, unicode.Mc, unicode.Pc)
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}
