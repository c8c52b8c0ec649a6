package frontend

import (
	"strings"

	"github.com/GriffinCanCode/pyxis-compiler/pkg/diag"
)

// compound parses a statement that owns a block, or returns nil
func (p *Parser) compound() Stmt {
	switch p.current.Type {
	case DEF:
		return p.funcDef(p.current, nil, false)
	case ASYNC:
		return p.asyncStmt(p.current, nil)
	case CLASS:
		return p.classDef(p.current, nil)
	case AT:
		return p.decorated()
	case IF:
		return p.ifStmt()
	case FOR:
		return p.forStmt(p.current, false)
	case WHILE:
		return p.whileStmt()
	case TRY:
		return p.tryStmt()
	case WITH:
		return p.withStmt()
	case MATCH:
		return p.matchStmt()
	case EXPORT:
		switch p.peek(1).Type {
		case DEF, CLASS, ASYNC, AT:
			start := p.advance()
			decl := p.compound()
			return &Export{Span: p.spanFrom(start), Decl: decl}
		}
	}
	return nil
}

func (p *Parser) asyncStmt(start Token, decorators []Expr) Stmt {
	p.advance() // async
	switch p.current.Type {
	case DEF:
		return p.funcDef(start, decorators, true)
	case FOR:
		if decorators == nil {
			return p.forStmt(start, true)
		}
	case WITH:
		p.fail(p.current, "'async with' is not supported")
	}
	p.fail(p.current, "expected 'def' after 'async', found %s", p.current)
	return nil
}

func (p *Parser) decorated() Stmt {
	start := p.current
	var decorators []Expr
	for p.check(AT) {
		p.advance()
		decorators = append(decorators, p.namedExpr())
		p.consume(NEWLINE, "newline after decorator")
	}
	switch p.current.Type {
	case DEF:
		return p.funcDef(start, decorators, false)
	case ASYNC:
		return p.asyncStmt(start, decorators)
	case CLASS:
		return p.classDef(start, decorators)
	}
	p.fail(p.current, "expected 'def' or 'class' after decorator, found %s", p.current)
	return nil
}

func (p *Parser) funcDef(start Token, decorators []Expr, async bool) Stmt {
	p.consume(DEF, "'def'")
	name := p.expectName()
	p.consume(LPAREN, "'('")
	params := p.params(RPAREN, true)
	p.consume(RPAREN, "')'")

	var returns Expr
	if p.accept(ARROW) {
		returns = p.expression()
	}
	body := p.block()

	return &FuncDef{
		Span:       p.spanFrom(start),
		Name:       name.Lexeme,
		Decorators: decorators,
		Async:      async,
		Params:     params,
		Returns:    returns,
		Body:       body,
	}
}

// params parses a parameter list up to end. Annotations are only allowed
// in def parameter lists.
func (p *Parser) params(end TokenType, annotated bool) []*Param {
	var params []*Param
	for !p.check(end) {
		start := p.current
		param := &Param{}
		switch {
		case p.check(STAR):
			p.advance()
			if !p.check(NAME) {
				p.fail(p.current, "keyword-only parameters are not supported")
			}
			param.Star = true
		case p.check(POWER):
			p.fail(p.current, "keyword arguments are not supported")
		case p.check(SLASH):
			p.fail(p.current, "positional-only markers are not supported")
		}
		param.Name = p.expectName().Lexeme
		if annotated && p.accept(COLON) {
			param.Annotation = p.expression()
		}
		if p.accept(ASSIGN) {
			if param.Star {
				p.fail(p.last, "a rest parameter cannot have a default")
			}
			param.Default = p.expression()
		}
		param.Span = p.spanFrom(start)
		params = append(params, param)
		if !p.accept(COMMA) {
			break
		}
	}
	return params
}

func (p *Parser) classDef(start Token, decorators []Expr) Stmt {
	p.consume(CLASS, "'class'")
	name := p.expectName()
	var bases []Expr
	if p.accept(LPAREN) {
		for !p.check(RPAREN) {
			if p.check(NAME) && p.peek(1).Type == ASSIGN {
				p.fail(p.current, "keyword arguments are not supported")
			}
			bases = append(bases, p.expression())
			if !p.accept(COMMA) {
				break
			}
		}
		p.consume(RPAREN, "')'")
	}
	body := p.block()
	return &ClassDef{
		Span:       p.spanFrom(start),
		Name:       name.Lexeme,
		Decorators: decorators,
		Bases:      bases,
		Body:       body,
	}
}

func (p *Parser) ifStmt() Stmt {
	start := p.advance()
	stmt := &If{Cond: p.namedExpr()}
	stmt.Body = p.block()
	for p.check(ELIF) {
		clauseStart := p.advance()
		clause := &IfClause{Cond: p.namedExpr()}
		clause.Body = p.block()
		clause.Span = p.spanFrom(clauseStart)
		stmt.Elifs = append(stmt.Elifs, clause)
	}
	if p.accept(ELSE) {
		stmt.Else = p.block()
	}
	stmt.Span = p.spanFrom(start)
	return stmt
}

func (p *Parser) forStmt(start Token, async bool) Stmt {
	p.consume(FOR, "'for'")
	stmt := &For{Async: async, Target: p.targetList(IN)}
	p.consume(IN, "'in'")
	stmt.Iter = p.exprOrTuple()
	stmt.Body = p.block()
	if p.accept(ELSE) {
		stmt.Else = p.block()
	}
	stmt.Span = p.spanFrom(start)
	return stmt
}

func (p *Parser) whileStmt() Stmt {
	start := p.advance()
	stmt := &While{Cond: p.namedExpr()}
	stmt.Body = p.block()
	if p.accept(ELSE) {
		stmt.Else = p.block()
	}
	stmt.Span = p.spanFrom(start)
	return stmt
}

func (p *Parser) tryStmt() Stmt {
	start := p.advance()
	stmt := &Try{Body: p.block()}
	for p.check(EXCEPT) {
		hstart := p.advance()
		h := &ExceptHandler{}
		if !p.check(COLON) {
			h.Type = p.expression()
			if p.accept(AS) {
				h.Name = p.expectName().Lexeme
			}
		}
		h.Body = p.block()
		h.Span = p.spanFrom(hstart)
		stmt.Handlers = append(stmt.Handlers, h)
	}
	if len(stmt.Handlers) > 0 && p.accept(ELSE) {
		stmt.Else = p.block()
	}
	if p.accept(FINALLY) {
		stmt.Finally = p.block()
	}
	if len(stmt.Handlers) == 0 && stmt.Finally == nil {
		p.fail(p.current, "expected 'except' or 'finally', found %s", p.current)
	}
	stmt.Span = p.spanFrom(start)
	return stmt
}

func (p *Parser) withStmt() Stmt {
	start := p.advance()
	stmt := &With{}
	for {
		istart := p.current
		item := &WithItem{Context: p.expression()}
		if p.accept(AS) {
			item.Target = p.target()
			p.checkTarget(item.Target)
		}
		item.Span = p.spanFrom(istart)
		stmt.Items = append(stmt.Items, item)
		if !p.accept(COMMA) {
			break
		}
	}
	stmt.Body = p.block()
	stmt.Span = p.spanFrom(start)
	return stmt
}

// simple parses one simple statement
func (p *Parser) simple() Stmt {
	start := p.current
	switch p.current.Type {
	case LET, VAR:
		return p.varDecl()
	case RETURN:
		p.advance()
		stmt := &Return{}
		if p.startsExpr() {
			stmt.Value = p.exprOrTuple()
		}
		stmt.Span = p.spanFrom(start)
		return stmt
	case YIELD:
		p.advance()
		stmt := &Yield{From: p.accept(FROM)}
		if stmt.From || p.startsExpr() {
			stmt.Value = p.exprOrTuple()
		}
		stmt.Span = p.spanFrom(start)
		return stmt
	case RAISE:
		p.advance()
		stmt := &Raise{}
		if p.startsExpr() {
			stmt.Exc = p.expression()
			if p.accept(FROM) {
				stmt.Cause = p.expression()
			}
		}
		stmt.Span = p.spanFrom(start)
		return stmt
	case BREAK:
		p.advance()
		return &Break{Span: p.spanFrom(start)}
	case CONTINUE:
		p.advance()
		return &Continue{Span: p.spanFrom(start)}
	case PASS:
		p.advance()
		return &Pass{Span: p.spanFrom(start)}
	case ASSERT:
		p.advance()
		stmt := &Assert{Test: p.expression()}
		if p.accept(COMMA) {
			stmt.Msg = p.expression()
		}
		stmt.Span = p.spanFrom(start)
		return stmt
	case DEL:
		p.advance()
		stmt := &Del{}
		for {
			t := p.target()
			p.checkTarget(t)
			stmt.Targets = append(stmt.Targets, t)
			if !p.accept(COMMA) || !p.startsExpr() {
				break
			}
		}
		stmt.Span = p.spanFrom(start)
		return stmt
	case FROM:
		return p.fromImport()
	case EXPORT:
		return p.exportStmt()
	}
	return p.exprStmt()
}

func (p *Parser) varDecl() Stmt {
	start := p.advance()
	stmt := &VarDecl{Mutable: start.Type == VAR}
	if p.check(LBRACE) {
		stmt.Target = p.recordTarget()
	} else {
		stmt.Target = p.targetList(ASSIGN)
	}
	p.checkTarget(stmt.Target)
	if _, ok := stmt.Target.(*Ident); ok && p.accept(COLON) {
		stmt.Annotation = p.expression()
	}
	if p.accept(ASSIGN) {
		stmt.Value = p.exprOrTuple()
	} else if !stmt.Mutable {
		p.fail(p.current, "expected '=' in let declaration, found %s", p.current)
	}
	stmt.Span = p.spanFrom(start)
	return stmt
}

func (p *Parser) exportStmt() Stmt {
	start := p.advance()
	if p.match(LET, VAR) {
		decl := p.varDecl()
		return &Export{Span: p.spanFrom(start), Decl: decl}
	}
	stmt := &Export{}
	for {
		tok := p.expectName()
		stmt.Names = append(stmt.Names, &Ident{Span: p.spanFrom(tok), Name: tok.Lexeme})
		if !p.accept(COMMA) {
			break
		}
	}
	stmt.Span = p.spanFrom(start)
	return stmt
}

// importStmt parses `import a.b [as c], d`; each module becomes one Import
func (p *Parser) importStmt() []Stmt {
	start := p.advance()
	var out []Stmt
	for {
		istart := p.current
		stmt := &Import{Module: p.dottedName()}
		if p.accept(AS) {
			stmt.Alias = p.expectName().Lexeme
		}
		stmt.Span = p.spanFrom(istart)
		if len(out) == 0 {
			stmt.Span = p.spanFrom(start)
		}
		out = append(out, stmt)
		if !p.accept(COMMA) {
			break
		}
	}
	return out
}

func (p *Parser) fromImport() Stmt {
	start := p.advance()
	var module strings.Builder
	for p.match(DOT, ELLIPSIS) {
		module.WriteString(p.advance().Lexeme)
	}
	if p.check(NAME) {
		module.WriteString(p.dottedName())
	} else if module.Len() == 0 {
		p.fail(p.current, "expected module name, found %s", p.current)
	}
	p.consume(IMPORT, "'import'")

	stmt := &Import{Module: module.String(), From: true}
	if p.check(STAR) {
		p.fail(p.current, "wildcard imports are not supported")
	}
	paren := p.accept(LPAREN)
	for {
		tok := p.expectName()
		name := &ImportName{Name: tok.Lexeme}
		if p.accept(AS) {
			name.Alias = p.expectName().Lexeme
		}
		name.Span = p.spanFrom(tok)
		stmt.Names = append(stmt.Names, name)
		if !p.accept(COMMA) || (paren && p.check(RPAREN)) {
			break
		}
	}
	if paren {
		p.consume(RPAREN, "')'")
	}
	stmt.Span = p.spanFrom(start)
	return stmt
}

func (p *Parser) dottedName() string {
	var sb strings.Builder
	sb.WriteString(p.expectName().Lexeme)
	for p.check(DOT) && p.peek(1).Type == NAME {
		p.advance()
		sb.WriteByte('.')
		sb.WriteString(p.advance().Lexeme)
	}
	return sb.String()
}

var compoundOps = []TokenType{
	PLUS_EQ, MINUS_EQ, STAR_EQ, SLASH_EQ, DSLASH_EQ, PERCENT_EQ, POWER_EQ,
	AMP_EQ, PIPE_EQ, CARET_EQ, LSHIFT_EQ, RSHIFT_EQ,
}

// exprStmt parses an expression statement, which covers all assignments
func (p *Parser) exprStmt() Stmt {
	start := p.current
	var x Expr
	if p.check(LBRACE) && p.recordAssignAhead() {
		x = p.recordTarget()
	} else {
		x = p.exprOrTuple()
	}

	switch {
	case p.check(ASSIGN):
		x = p.assignChain(x)
	case p.check(COLON):
		// annotated assignment or bare annotation
		switch x.(type) {
		case *Ident, *Member, *Index:
		default:
			p.failCode(start, diag.CodeInvalidTarget, "cannot annotate %s", describe(x))
		}
		p.advance()
		ann := p.expression()
		if !p.accept(ASSIGN) {
			return &VarDecl{Span: p.spanFrom(start), Mutable: true, Target: x, Annotation: ann}
		}
		value := p.exprOrTuple()
		x = &Assign{Span: p.spanTo(x), Op: ASSIGN, Target: x, Annotation: ann, Value: value}
	case p.match(compoundOps...):
		switch x.(type) {
		case *Ident, *Member, *Index:
		default:
			p.failCode(start, diag.CodeInvalidTarget, "cannot assign to %s", describe(x))
		}
		op := p.advance().Type
		value := p.exprOrTuple()
		x = &Assign{Span: p.spanTo(x), Op: op, Target: x, Value: value}
	}
	return &ExprStmt{Span: p.spanFrom(start), X: x}
}

// assignChain parses `= value`, right-associating a = b = c
func (p *Parser) assignChain(target Expr) Expr {
	p.checkTarget(target)
	p.consume(ASSIGN, "'='")
	var value Expr
	if p.check(LBRACE) && p.recordAssignAhead() {
		value = p.recordTarget()
	} else {
		value = p.exprOrTuple()
	}
	if p.check(ASSIGN) {
		value = p.assignChain(value)
	}
	return &Assign{Span: join(target, value), Op: ASSIGN, Target: target, Value: value}
}

// recordAssignAhead reports whether the braces starting at the current token
// are followed by '=' and so form a destructuring target
func (p *Parser) recordAssignAhead() bool {
	depth := 0
	for i := p.pos; i < len(p.tokens); i++ {
		switch p.tokens[i].Type {
		case LBRACE, LPAREN, LBRACKET:
			depth++
		case RBRACE, RPAREN, RBRACKET:
			depth--
			if depth == 0 {
				return i+1 < len(p.tokens) && p.tokens[i+1].Type == ASSIGN
			}
		case NEWLINE, EOF, BLOCK_START, BLOCK_END:
			return false
		}
	}
	return false
}

// recordTarget parses {a, b: c, **rest}
func (p *Parser) recordTarget() Expr {
	start := p.consume(LBRACE, "'{'")
	rt := &RecordTarget{}
	for !p.check(RBRACE) {
		if p.accept(POWER) {
			tok := p.expectName()
			rt.Rest = &Ident{Span: p.spanFrom(tok), Name: tok.Lexeme}
			p.accept(COMMA)
			break
		}
		fstart := p.current
		var key string
		switch p.current.Type {
		case NAME:
			key = p.advance().Lexeme
		case STRING:
			key = p.advance().Value
		default:
			p.failCode(p.current, diag.CodeInvalidTarget, "expected a field name, found %s", p.current)
		}
		field := &RecordField{Key: key}
		if p.accept(COLON) {
			if p.check(LBRACE) {
				field.Target = p.recordTarget()
			} else {
				field.Target = p.target()
			}
			p.checkTarget(field.Target)
		} else {
			if fstart.Type != NAME {
				p.failCode(fstart, diag.CodeInvalidTarget, "string keys need an explicit target")
			}
			field.Target = &Ident{Span: p.spanFrom(fstart), Name: key}
		}
		field.Span = p.spanFrom(fstart)
		rt.Fields = append(rt.Fields, field)
		if !p.accept(COMMA) {
			break
		}
	}
	p.consume(RBRACE, "'}'")
	rt.Span = p.spanFrom(start)
	return rt
}

// targetList parses comma separated targets up to stop
func (p *Parser) targetList(stop TokenType) Expr {
	first := p.target()
	if !p.check(COMMA) {
		p.checkTarget(first)
		return first
	}
	tup := &TupleLit{Elts: []Expr{first}}
	for p.accept(COMMA) {
		if p.check(stop) {
			break
		}
		tup.Elts = append(tup.Elts, p.target())
	}
	tup.Span = p.spanTo(first)
	p.checkTarget(tup)
	return tup
}

func (p *Parser) target() Expr {
	if p.check(STAR) {
		start := p.advance()
		x := p.target()
		return &Spread{Span: p.spanFrom(start), X: x}
	}
	if p.check(LBRACE) {
		return p.recordTarget()
	}
	return p.binary(0)
}

// checkTarget rejects expressions that cannot be assigned to
func (p *Parser) checkTarget(x Expr) {
	switch t := x.(type) {
	case *Ident, *Member, *Index, *Slice, *RecordTarget:
		return
	case *Spread:
		if !t.Double {
			p.checkTarget(t.X)
			return
		}
	case *TupleLit:
		for _, e := range t.Elts {
			p.checkTarget(e)
		}
		return
	case *ListLit:
		for _, e := range t.Elts {
			p.checkTarget(e)
		}
		return
	}
	s := x.Pos()
	p.failCode(Token{Line: s.Line, Col: s.Col}, diag.CodeInvalidTarget, "cannot assign to %s", describe(x))
}
