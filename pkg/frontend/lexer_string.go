package frontend

import (
	"strings"

	"github.com/GriffinCanCode/pyxis-compiler/pkg/diag"
)

// str scans a string literal whose opening quote q has been consumed.
// prefix holds any f/r letters in front of it.
func (l *Lexer) str(q rune, prefix string) {
	raw := strings.ContainsAny(prefix, "rR")
	triple := false
	if l.peek() == q && l.peekAt(1) == q {
		l.advance()
		l.advance()
		triple = true
		raw = true
	}
	if strings.ContainsAny(prefix, "fF") {
		l.fstring(q, triple, raw)
		return
	}

	var sb strings.Builder
	for {
		if l.isAtEnd() || (!triple && l.peek() == '\n') {
			l.diags.Errorf(l.startLine, l.startCol, diag.CodeUnterminatedString, "unterminated string literal")
			break
		}
		if l.closesString(q, triple) {
			break
		}
		c := l.peek()
		switch {
		case c == '\\' && !raw:
			l.escape(&sb)
		case c == '\\' && l.peekAt(1) == q:
			// a raw string still cannot end on an escaped quote
			sb.WriteRune(l.advance())
			sb.WriteRune(l.advance())
		case c == '\r' && l.peekAt(1) == '\n':
			l.advance()
		default:
			sb.WriteRune(l.advance())
		}
	}
	l.emitSpan(STRING, sb.String())
}

// closesString consumes the closing quote(s) when they are next
func (l *Lexer) closesString(q rune, triple bool) bool {
	if l.peek() != q {
		return false
	}
	if !triple {
		l.advance()
		return true
	}
	if l.peekAt(1) == q && l.peekAt(2) == q {
		l.advance()
		l.advance()
		l.advance()
		return true
	}
	return false
}

// emitSpan emits a token covering start..pos, which may cross lines
func (l *Lexer) emitSpan(typ TokenType, value string) {
	l.emit(typ, string(l.source[l.start:l.pos]), value, l.startLine, l.startCol, l.pos-l.start)
	if l.line != l.startLine {
		tok := &l.tokens[len(l.tokens)-1]
		tok.EndLine, tok.EndCol = l.line, l.col
	}
}

func (l *Lexer) escape(sb *strings.Builder) {
	line, col := l.line, l.col
	l.advance()
	if l.isAtEnd() {
		sb.WriteRune('\\')
		return
	}
	c := l.advance()
	switch c {
	case '\n':
		// escaped newline joins the lines
	case '\\', '\'', '"':
		sb.WriteRune(c)
	case 'n':
		sb.WriteRune('\n')
	case 't':
		sb.WriteRune('\t')
	case 'r':
		sb.WriteRune('\r')
	case 'a':
		sb.WriteRune('\a')
	case 'b':
		sb.WriteRune('\b')
	case 'f':
		sb.WriteRune('\f')
	case 'v':
		sb.WriteRune('\v')
	case 'x', 'u', 'U':
		n := map[rune]int{'x': 2, 'u': 4, 'U': 8}[c]
		r, ok := l.hex(n)
		if !ok || r > 0x10FFFF {
			l.diags.Errorf(line, col, diag.CodeBadEscape, "invalid \\%c escape", c)
			return
		}
		sb.WriteRune(r)
	case '0', '1', '2', '3', '4', '5', '6', '7':
		v := c - '0'
		for i := 0; i < 2 && l.peek() >= '0' && l.peek() <= '7'; i++ {
			v = v*8 + (l.advance() - '0')
		}
		sb.WriteRune(v)
	default:
		// unknown escapes are kept verbatim
		sb.WriteRune('\\')
		sb.WriteRune(c)
	}
}

func (l *Lexer) hex(n int) (rune, bool) {
	var v rune
	for i := 0; i < n; i++ {
		c := l.peek()
		var d rune
		switch {
		case c >= '0' && c <= '9':
			d = c - '0'
		case c >= 'a' && c <= 'f':
			d = c - 'a' + 10
		case c >= 'A' && c <= 'F':
			d = c - 'A' + 10
		default:
			return 0, false
		}
		l.advance()
		v = v*16 + d
	}
	return v, true
}

// fstring scans the body of a formatted string. Literal runs become
// FSTRING_MIDDLE tokens and each {expr} is re-lexed in place.
func (l *Lexer) fstring(q rune, triple, raw bool) {
	openLine, openCol := l.startLine, l.startCol
	l.emit(FSTRING_START, string(l.source[l.start:l.pos]), "", openLine, openCol, l.pos-l.start)

	var sb strings.Builder
	l.start, l.startLine, l.startCol = l.pos, l.line, l.col
	flush := func() {
		if sb.Len() > 0 {
			l.emitSpan(FSTRING_MIDDLE, sb.String())
			sb.Reset()
		}
		l.start, l.startLine, l.startCol = l.pos, l.line, l.col
	}

	for {
		if l.isAtEnd() || (!triple && l.peek() == '\n') {
			flush()
			l.diags.Errorf(openLine, openCol, diag.CodeUnterminatedString, "unterminated f-string")
			l.emit(FSTRING_END, "", "", l.line, l.col, 0)
			return
		}
		c := l.peek()
		if c == q {
			line, col, pos := l.line, l.col, l.pos
			if l.closesString(q, triple) {
				// closing quotes are not part of the literal text
				l.pos, l.line, l.col = pos, line, col
				flush()
				l.closesString(q, triple)
				l.emit(FSTRING_END, string(l.source[pos:l.pos]), "", line, col, l.pos-pos)
				return
			}
		}
		switch {
		case c == '{' && l.peekAt(1) == '{':
			l.advance()
			l.advance()
			sb.WriteRune('{')
		case c == '}' && l.peekAt(1) == '}':
			l.advance()
			l.advance()
			sb.WriteRune('}')
		case c == '{':
			flush()
			l.interpolation(q, triple)
			l.start, l.startLine, l.startCol = l.pos, l.line, l.col
		case c == '}':
			l.diags.Errorf(l.line, l.col, diag.CodeInvalidChar, "single '}' is not allowed in f-string")
			sb.WriteRune(l.advance())
		case c == '\\' && !raw:
			l.escape(&sb)
		case c == '\r' && l.peekAt(1) == '\n':
			l.advance()
		default:
			sb.WriteRune(l.advance())
		}
	}
}

func (l *Lexer) interpolation(q rune, triple bool) {
	l.emit(INTERP_START, "{", "", l.line, l.col, 1)
	l.advance()

	exprStart, exprLine, exprCol := l.pos, l.line, l.col
	end, ok := l.scanInterpolation(q, triple)
	text := l.source[exprStart:end]
	if strings.TrimSpace(string(text)) == "" {
		l.diags.Errorf(exprLine, exprCol, diag.CodeEmptyInterpolation, "empty expression in f-string")
	} else {
		sub := newLexer(text, exprLine, exprCol, l.diags, true)
		l.tokens = append(l.tokens, sub.Tokenize()...)
	}
	for l.pos < end {
		l.advance()
	}
	if !ok {
		l.diags.Errorf(exprLine, exprCol-1, diag.CodeUnterminatedString, "unterminated f-string interpolation")
		l.emit(INTERP_END, "", "", l.line, l.col, 0)
		return
	}

	if l.peek() == '!' {
		l.emit(BANG, "!", "", l.line, l.col, 1)
		l.advance()
		l.start, l.startLine, l.startCol = l.pos, l.line, l.col
		for isIdentPart(l.peek()) {
			l.advance()
		}
		l.makeToken(NAME)
	}
	if l.peek() == ':' {
		l.emit(COLON, ":", "", l.line, l.col, 1)
		l.advance()
		l.start, l.startLine, l.startCol = l.pos, l.line, l.col
		depth := 0
		for !l.isAtEnd() {
			c := l.peek()
			if c == '}' && depth == 0 || c == q || (!triple && c == '\n') {
				break
			}
			if c == '{' {
				depth++
			} else if c == '}' {
				depth--
			}
			l.advance()
		}
		if l.pos > l.start {
			spec := string(l.source[l.start:l.pos])
			l.emitSpan(FSTRING_MIDDLE, spec)
		}
	}
	if l.peek() != '}' {
		l.diags.Errorf(exprLine, exprCol-1, diag.CodeUnterminatedString, "unterminated f-string interpolation")
		l.emit(INTERP_END, "", "", l.line, l.col, 0)
		return
	}
	l.emit(INTERP_END, "}", "", l.line, l.col, 1)
	l.advance()
}

// scanInterpolation finds where the expression of an interpolation ends:
// the '}', '!' or ':' at nesting depth zero. ok is false when the string
// ends first.
func (l *Lexer) scanInterpolation(q rune, triple bool) (int, bool) {
	depth := 0
	src := l.source
	for i := l.pos; i < len(src); i++ {
		c := src[i]
		switch c {
		case '\n':
			if !triple {
				return i, false
			}
		case '(', '[', '{':
			depth++
		case ')', ']':
			if depth > 0 {
				depth--
			}
		case '}':
			if depth == 0 {
				return i, true
			}
			depth--
		case '!':
			if depth == 0 && (i+1 >= len(src) || src[i+1] != '=') {
				return i, true
			}
		case ':':
			if depth == 0 {
				return i, true
			}
		case '"', '\'':
			if c == q && (!triple || (i+2 < len(src) && src[i+1] == q && src[i+2] == q)) {
				return i, false
			}
			// nested literal of the other quote kind
			j := i + 1
			for j < len(src) && src[j] != c && src[j] != '\n' {
				if src[j] == '\\' {
					j++
				}
				j++
			}
			if j >= len(src) || src[j] != c {
				return j, false
			}
			i = j
		}
	}
	return len(src), false
}

// number scans a numeric literal whose first rune has been consumed
func (l *Lexer) number(first rune) {
	typ := INT
	if first == '0' && strings.ContainsRune("xXoObB", l.peek()) {
		base := l.advance() | 0x20
		digits := 0
		for {
			c := l.peek()
			if c == '_' {
				l.advance()
				continue
			}
			if !isBaseDigit(c, base) {
				break
			}
			l.advance()
			digits++
		}
		if digits == 0 {
			l.malformed()
			return
		}
	} else {
		if first == '.' {
			typ = FLOAT
		}
		l.digits()
		if first != '.' && l.peek() == '.' && l.peekAt(1) != '.' && !isIdentStart(l.peekAt(1)) {
			l.advance()
			l.digits()
			typ = FLOAT
		}
		if c := l.peek(); c == 'e' || c == 'E' {
			next := l.peekAt(1)
			if isDigit(next) || ((next == '+' || next == '-') && isDigit(l.peekAt(2))) {
				l.advance()
				if next == '+' || next == '-' {
					l.advance()
				}
				l.digits()
				typ = FLOAT
			}
		}
	}

	text := string(l.source[l.start:l.pos])
	if isIdentPart(l.peek()) || strings.Contains(text, "__") || strings.HasSuffix(text, "_") {
		l.malformed()
		return
	}
	l.emit(typ, text, strings.ReplaceAll(text, "_", ""), l.startLine, l.startCol, l.pos-l.start)
}

func (l *Lexer) digits() {
	for isDigit(l.peek()) || l.peek() == '_' {
		l.advance()
	}
}

func (l *Lexer) malformed() {
	for isIdentPart(l.peek()) {
		l.advance()
	}
	text := string(l.source[l.start:l.pos])
	l.diags.Errorf(l.startLine, l.startCol, diag.CodeMalformedNumber, "malformed number literal %q", text)
	l.makeToken(INVALID)
}

func isBaseDigit(c, base rune) bool {
	switch base {
	case 'x':
		return isDigit(c) || (c|0x20 >= 'a' && c|0x20 <= 'f')
	case 'o':
		return c >= '0' && c <= '7'
	case 'b':
		return c == '0' || c == '1'
	}
	return false
}
