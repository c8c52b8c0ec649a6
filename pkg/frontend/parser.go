// Package frontend - Recursive descent parser for Pyxis
// Design: Predictive parsing over the token slice with bounded lookahead.
// Errors unwind the current statement with a bailout panic; the statement
// loop recovers, resynchronizes and leaves an ErrorStmt in the tree.
package frontend

import (
	"fmt"

	"github.com/GriffinCanCode/pyxis-compiler/pkg/diag"
)

type Parser struct {
	tokens  []Token
	pos     int
	current Token
	last    Token // last consumed token that carries source text
	diags   *diag.List
}

// bailout unwinds a statement after its diagnostic has been recorded
type bailout struct{}

func NewParser(tokens []Token) *Parser {
	if len(tokens) == 0 || tokens[len(tokens)-1].Type != EOF {
		line := 1
		if len(tokens) > 0 {
			line = tokens[len(tokens)-1].Line
		}
		tokens = append(tokens, Token{Type: EOF, Line: line, Col: 1})
	}
	return &Parser{
		tokens:  tokens,
		current: tokens[0],
		last:    tokens[0],
		diags:   diag.NewList(diag.Parse),
	}
}

// Parse builds a module from a token stream. It never fails: statements that
// do not parse become ErrorStmt nodes and are reported as diagnostics.
func Parse(tokens []Token) (*Module, []diag.Diagnostic) {
	p := NewParser(tokens)
	mod := p.Parse()
	return mod, p.diags.Items()
}

func (p *Parser) Parse() *Module {
	first := p.current
	module := &Module{}

	for !p.check(EOF) {
		switch p.current.Type {
		case NEWLINE, SEMICOLON:
			p.advance()
			continue
		case BLOCK_END, BLOCK_START:
			// stray block tokens only follow lexical errors
			p.advance()
			continue
		}
		module.Body = append(module.Body, p.statement()...)
	}

	module.Span = Span{Line: first.Line, Col: first.Col}
	module.EndLine, module.EndCol = p.current.Line, p.current.Col
	if module.EndLine == module.Line && module.EndCol <= module.Col {
		module.EndCol = module.Col + 1
	}
	return module
}

// Diagnostics returns the syntax errors found so far
func (p *Parser) Diagnostics() []diag.Diagnostic {
	return p.diags.Items()
}

// statement parses one compound statement or one line of simple statements
func (p *Parser) statement() (stmts []Stmt) {
	start := p.current
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(bailout); !ok {
				panic(r)
			}
			p.synchronize()
			stmts = []Stmt{&ErrorStmt{Span: p.spanFrom(start)}}
		}
	}()

	if s := p.compound(); s != nil {
		return []Stmt{s}
	}
	return p.simpleLine()
}

// synchronize skips the rest of a broken statement, including any block
// that belongs to it
func (p *Parser) synchronize() {
	depth := 0
	for !p.check(EOF) {
		switch p.current.Type {
		case BLOCK_START:
			depth++
		case BLOCK_END:
			if depth == 0 {
				return
			}
			depth--
			p.advance()
			if depth == 0 && !p.match(ELIF, ELSE, EXCEPT, FINALLY, CASE) {
				return
			}
			continue
		case NEWLINE:
			if depth == 0 {
				p.advance()
				if !p.check(BLOCK_START) {
					return
				}
				continue
			}
		}
		p.advance()
	}
}

// block parses ':' followed by an indented or braced body, or by simple
// statements on the same line
func (p *Parser) block() []Stmt {
	p.consume(COLON, "':'")
	if !p.check(NEWLINE) {
		if p.match(EOF, BLOCK_END) {
			p.failCode(p.current, diag.CodeExpectedBlock, "expected a block")
		}
		return p.simpleLine()
	}
	p.advance()
	return p.suite()
}

// suite parses BLOCK_START stmts BLOCK_END
func (p *Parser) suite() []Stmt {
	if !p.check(BLOCK_START) {
		p.failCode(p.current, diag.CodeExpectedBlock, "expected an indented block")
	}
	p.advance()

	body := []Stmt{}
	for !p.check(BLOCK_END) && !p.check(EOF) {
		if p.match(NEWLINE, SEMICOLON) {
			p.advance()
			continue
		}
		body = append(body, p.statement()...)
	}
	if p.check(BLOCK_END) {
		p.advance()
	}
	return body
}

// simpleLine parses ';'-separated simple statements up to the end of line
func (p *Parser) simpleLine() []Stmt {
	var out []Stmt
	for {
		if p.check(IMPORT) {
			out = append(out, p.importStmt()...)
		} else {
			out = append(out, p.simple())
		}
		if !p.check(SEMICOLON) {
			break
		}
		p.advance()
		if p.match(NEWLINE, EOF, BLOCK_END) {
			break
		}
	}
	p.endLine()
	return out
}

func (p *Parser) endLine() {
	switch p.current.Type {
	case NEWLINE:
		p.advance()
	case EOF, BLOCK_END:
	default:
		p.fail(p.current, "expected end of statement, found %s", p.current)
	}
}

// Token helpers

func (p *Parser) advance() Token {
	prev := p.current
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	p.current = p.tokens[p.pos]
	switch prev.Type {
	case NEWLINE, BLOCK_START, BLOCK_END, EOF:
	default:
		p.last = prev
	}
	return prev
}

func (p *Parser) peek(n int) Token {
	i := p.pos + n
	if i >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[i]
}

func (p *Parser) check(typ TokenType) bool {
	return p.current.Type == typ
}

func (p *Parser) match(types ...TokenType) bool {
	for _, t := range types {
		if p.check(t) {
			return true
		}
	}
	return false
}

// accept consumes the current token if it has the given type
func (p *Parser) accept(typ TokenType) bool {
	if p.check(typ) {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) consume(typ TokenType, what string) Token {
	if p.check(typ) {
		return p.advance()
	}
	p.fail(p.current, "expected %s, found %s", what, p.current)
	return Token{}
}

func (p *Parser) expectName() Token {
	return p.consume(NAME, "a name")
}

// fail records an unexpected-token error and unwinds the statement. INVALID
// tokens were already reported by the lexer.
func (p *Parser) fail(tok Token, format string, args ...any) {
	p.failCode(tok, diag.CodeUnexpectedToken, format, args...)
}

func (p *Parser) failCode(tok Token, code, format string, args ...any) {
	if tok.Type != INVALID {
		p.diags.Errorf(tok.Line, tok.Col, code, format, args...)
	}
	panic(bailout{})
}

// spanFrom covers start through the last consumed token
func (p *Parser) spanFrom(start Token) Span {
	s := Span{Line: start.Line, Col: start.Col}
	s.EndLine, s.EndCol = p.last.End()
	if s.EndLine < s.Line || (s.EndLine == s.Line && s.EndCol <= s.Col) {
		s.EndLine, s.EndCol = s.Line, s.Col+1
	}
	return s
}

// spanTo covers from the start of a through the last consumed token
func (p *Parser) spanTo(a Node) Span {
	s := a.Pos()
	s.EndLine, s.EndCol = p.last.End()
	if s.EndLine < s.Line || (s.EndLine == s.Line && s.EndCol <= s.Col) {
		s.EndLine, s.EndCol = s.Line, s.Col+1
	}
	return s
}

func join(a, b Node) Span {
	sa, sb := a.Pos(), b.Pos()
	return Span{Line: sa.Line, Col: sa.Col, EndLine: sb.EndLine, EndCol: sb.EndCol}
}

func describe(n Node) string {
	switch n := n.(type) {
	case *Ident:
		return fmt.Sprintf("name %q", n.Name)
	case *Call:
		return "function call"
	case *Compare, *Binary, *Unary:
		return "operator expression"
	case *Assign:
		return "assignment"
	}
	return "expression"
}
