package frontend

import "github.com/GriffinCanCode/pyxis-compiler/pkg/diag"

// Binary operator levels, loosest first. Unary operators bind tighter than
// '**', which binds tighter than all of these.
var binaryLevels = [][]TokenType{
	{PIPE},
	{CARET},
	{AMP},
	{LSHIFT, RSHIFT},
	{PLUS, MINUS},
	{STAR, SLASH, DSLASH, PERCENT, AT},
}

var compareOps = map[TokenType]CmpOp{
	EQ: CmpEq,
	NE: CmpNe,
	LT: CmpLt,
	LE: CmpLe,
	GT: CmpGt,
	GE: CmpGe,
	IN: CmpIn,
	IS: CmpIs,
}

func (p *Parser) startsExpr() bool {
	switch p.current.Type {
	case NAME, INT, FLOAT, STRING, FSTRING_START, TRUE, FALSE, NONE,
		LPAREN, LBRACKET, LBRACE, MINUS, PLUS, TILDE, NOT, LAMBDA, AWAIT, STAR:
		return true
	}
	return false
}

// exprOrTuple parses a bare comma list, which is a tuple when it has a comma
func (p *Parser) exprOrTuple() Expr {
	first := p.starExpr()
	if !p.check(COMMA) {
		return first
	}
	tup := &TupleLit{Elts: []Expr{first}}
	for p.accept(COMMA) {
		if !p.startsExpr() {
			break
		}
		tup.Elts = append(tup.Elts, p.starExpr())
	}
	tup.Span = p.spanTo(first)
	return tup
}

func (p *Parser) starExpr() Expr {
	if p.check(STAR) {
		start := p.advance()
		x := p.binary(0)
		return &Spread{Span: p.spanFrom(start), X: x}
	}
	return p.namedExpr()
}

// namedExpr parses an expression that may be a `name := value` binding
func (p *Parser) namedExpr() Expr {
	if p.check(NAME) && p.peek(1).Type == WALRUS {
		tok := p.advance()
		target := &Ident{Span: p.spanFrom(tok), Name: tok.Lexeme}
		p.advance()
		value := p.expression()
		return &Assign{Span: join(target, value), Op: WALRUS, Target: target, Value: value}
	}
	return p.expression()
}

// expression parses a conditional expression or a lambda
func (p *Parser) expression() Expr {
	if p.check(LAMBDA) {
		return p.lambda()
	}
	x := p.orExpr()
	if !p.check(IF) {
		return x
	}
	p.advance()
	cond := p.orExpr()
	p.consume(ELSE, "'else' in conditional expression")
	alt := p.expression()
	return &Ternary{Span: join(x, alt), Cond: cond, Then: x, Else: alt}
}

func (p *Parser) lambda() Expr {
	start := p.advance()
	params := p.params(COLON, false)
	p.consume(COLON, "':'")
	body := p.expression()
	return &Lambda{Span: p.spanFrom(start), Params: params, Body: body}
}

func (p *Parser) orExpr() Expr {
	x := p.andExpr()
	for p.check(OR) {
		p.advance()
		y := p.andExpr()
		x = &Binary{Span: join(x, y), Op: OR, X: x, Y: y}
	}
	return x
}

func (p *Parser) andExpr() Expr {
	x := p.notExpr()
	for p.check(AND) {
		p.advance()
		y := p.notExpr()
		x = &Binary{Span: join(x, y), Op: AND, X: x, Y: y}
	}
	return x
}

func (p *Parser) notExpr() Expr {
	if p.check(NOT) {
		start := p.advance()
		x := p.notExpr()
		return &Unary{Span: p.spanFrom(start), Op: NOT, X: x}
	}
	return p.comparison()
}

func (p *Parser) comparison() Expr {
	x := p.binary(0)
	var cmp *Compare
	for {
		var op CmpOp
		switch {
		case p.check(NOT) && p.peek(1).Type == IN:
			p.advance()
			p.advance()
			op = CmpNotIn
		case p.check(IS):
			p.advance()
			op = CmpIs
			if p.accept(NOT) {
				op = CmpIsNot
			}
		default:
			o, ok := compareOps[p.current.Type]
			if !ok {
				if cmp == nil {
					return x
				}
				cmp.Span = p.spanTo(x)
				return cmp
			}
			p.advance()
			op = o
		}
		if cmp == nil {
			cmp = &Compare{X: x}
		}
		cmp.Ops = append(cmp.Ops, op)
		cmp.Ys = append(cmp.Ys, p.binary(0))
	}
}

func (p *Parser) binary(level int) Expr {
	if level == len(binaryLevels) {
		return p.power()
	}
	x := p.binary(level + 1)
	for p.match(binaryLevels[level]...) {
		op := p.advance().Type
		y := p.binary(level + 1)
		x = &Binary{Span: join(x, y), Op: op, X: x, Y: y}
	}
	return x
}

// power is right associative; its operands are unary expressions, so
// -2 ** 2 groups as (-2) ** 2
func (p *Parser) power() Expr {
	x := p.unary()
	if p.check(POWER) {
		p.advance()
		y := p.power()
		return &Binary{Span: join(x, y), Op: POWER, X: x, Y: y}
	}
	return x
}

func (p *Parser) unary() Expr {
	switch p.current.Type {
	case PLUS, MINUS, TILDE:
		start := p.advance()
		x := p.unary()
		return &Unary{Span: p.spanFrom(start), Op: start.Type, X: x}
	case AWAIT:
		start := p.advance()
		x := p.unary()
		return &Await{Span: p.spanFrom(start), X: x}
	}
	return p.postfix()
}

func (p *Parser) postfix() Expr {
	x := p.primary()
	for {
		switch p.current.Type {
		case LPAREN:
			p.advance()
			args := p.callArgs()
			p.consume(RPAREN, "')'")
			x = &Call{Span: p.spanTo(x), Func: x, Args: args}
		case DOT:
			p.advance()
			if !p.check(NAME) && !p.current.Type.IsKeyword() {
				p.fail(p.current, "expected attribute name, found %s", p.current)
			}
			name := p.advance().Lexeme
			x = &Member{Span: p.spanTo(x), X: x, Name: name}
		case LBRACKET:
			p.advance()
			x = p.subscript(x)
		default:
			return x
		}
	}
}

func (p *Parser) callArgs() []Expr {
	var args []Expr
	for !p.check(RPAREN) {
		switch {
		case p.check(NAME) && p.peek(1).Type == ASSIGN:
			p.fail(p.current, "keyword arguments are not supported")
		case p.check(POWER):
			p.fail(p.current, "keyword argument unpacking is not supported")
		}
		arg := p.starExpr()
		if len(args) == 0 && p.match(FOR, ASYNC) {
			// sole generator argument: f(x for x in xs)
			arg = p.comprehension(GenExp, nil, arg, arg.Pos())
			args = append(args, arg)
			break
		}
		args = append(args, arg)
		if !p.accept(COMMA) {
			break
		}
	}
	return args
}

// subscript parses the part after '[' of an index or slice
func (p *Parser) subscript(x Expr) Expr {
	var lo Expr
	if !p.check(COLON) {
		lo = p.exprOrTuple()
		if p.accept(RBRACKET) {
			return &Index{Span: p.spanTo(x), X: x, Index: lo}
		}
	}
	p.consume(COLON, "':' or ']'")
	s := &Slice{X: x, Lo: lo}
	if !p.match(COLON, RBRACKET) {
		s.Hi = p.expression()
	}
	if p.accept(COLON) && !p.check(RBRACKET) {
		s.Step = p.expression()
	}
	p.consume(RBRACKET, "']'")
	s.Span = p.spanTo(x)
	return s
}

func (p *Parser) primary() Expr {
	tok := p.current
	switch tok.Type {
	case NAME:
		p.advance()
		return &Ident{Span: p.spanFrom(tok), Name: tok.Lexeme}
	case INT:
		p.advance()
		return &IntLit{Span: p.spanFrom(tok), Text: tok.Value}
	case FLOAT:
		p.advance()
		return &FloatLit{Span: p.spanFrom(tok), Text: tok.Value}
	case STRING:
		p.advance()
		value := tok.Value
		for p.check(STRING) {
			// adjacent literals concatenate
			value += p.advance().Value
		}
		return &StringLit{Span: p.spanFrom(tok), Value: value}
	case FSTRING_START:
		return p.fstring()
	case TRUE, FALSE:
		p.advance()
		return &BoolLit{Span: p.spanFrom(tok), Value: tok.Type == TRUE}
	case NONE:
		p.advance()
		return &NoneLit{Span: p.spanFrom(tok)}
	case LPAREN:
		return p.parenExpr()
	case LBRACKET:
		return p.listExpr()
	case LBRACE:
		return p.braceExpr()
	}
	p.fail(tok, "expected expression, found %s", tok)
	return nil
}

func (p *Parser) fstring() Expr {
	start := p.advance()
	fs := &FString{}
	for !p.check(FSTRING_END) {
		switch p.current.Type {
		case FSTRING_MIDDLE:
			fs.Parts = append(fs.Parts, FStringPart{Text: p.advance().Value})
		case INTERP_START:
			p.advance()
			part := FStringPart{X: p.exprOrTuple()}
			if p.accept(BANG) {
				conv := p.expectName()
				if conv.Lexeme != "r" && conv.Lexeme != "s" {
					p.fail(conv, "unknown f-string conversion %q", conv.Lexeme)
				}
				part.Conversion = conv.Lexeme
			}
			if p.accept(COLON) && p.check(FSTRING_MIDDLE) {
				part.Spec = p.advance().Value
			}
			p.consume(INTERP_END, "'}' in f-string")
			fs.Parts = append(fs.Parts, part)
		default:
			p.fail(p.current, "unexpected %s in f-string", p.current)
		}
	}
	p.advance()
	fs.Span = p.spanFrom(start)
	return fs
}

func (p *Parser) parenExpr() Expr {
	start := p.advance()
	if p.accept(RPAREN) {
		return &TupleLit{Span: p.spanFrom(start)}
	}
	first := p.starExpr()
	if p.match(FOR, ASYNC) {
		comp := p.comprehension(GenExp, nil, first, Span{})
		p.consume(RPAREN, "')'")
		c := comp.(*Comprehension)
		c.Span = p.spanFrom(start)
		return c
	}
	if !p.check(COMMA) {
		p.consume(RPAREN, "')'")
		return first
	}
	tup := &TupleLit{Elts: []Expr{first}}
	for p.accept(COMMA) {
		if p.check(RPAREN) {
			break
		}
		tup.Elts = append(tup.Elts, p.starExpr())
	}
	p.consume(RPAREN, "')'")
	tup.Span = p.spanFrom(start)
	return tup
}

func (p *Parser) listExpr() Expr {
	start := p.advance()
	list := &ListLit{}
	if !p.check(RBRACKET) {
		first := p.starExpr()
		if p.match(FOR, ASYNC) {
			comp := p.comprehension(ListComp, nil, first, Span{})
			p.consume(RBRACKET, "']'")
			c := comp.(*Comprehension)
			c.Span = p.spanFrom(start)
			return c
		}
		list.Elts = append(list.Elts, first)
		for p.accept(COMMA) {
			if p.check(RBRACKET) {
				break
			}
			list.Elts = append(list.Elts, p.starExpr())
		}
	}
	p.consume(RBRACKET, "']'")
	list.Span = p.spanFrom(start)
	return list
}

// braceExpr parses dict and set literals and their comprehensions
func (p *Parser) braceExpr() Expr {
	start := p.advance()
	if p.accept(RBRACE) {
		return &DictLit{Span: p.spanFrom(start)}
	}

	if p.check(POWER) || p.peekDictEntry() {
		dict := &DictLit{}
		for !p.check(RBRACE) {
			estart := p.current
			entry := &DictEntry{}
			if p.accept(POWER) {
				x := p.binary(0)
				entry.Value = &Spread{Span: p.spanFrom(estart), X: x, Double: true}
			} else {
				entry.Key = p.expression()
				p.consume(COLON, "':'")
				entry.Value = p.expression()
				if len(dict.Entries) == 0 && p.match(FOR, ASYNC) {
					comp := p.comprehension(DictComp, entry.Key, entry.Value, Span{})
					p.consume(RBRACE, "'}'")
					c := comp.(*Comprehension)
					c.Span = p.spanFrom(start)
					return c
				}
			}
			entry.Span = p.spanFrom(estart)
			dict.Entries = append(dict.Entries, entry)
			if !p.accept(COMMA) {
				break
			}
		}
		p.consume(RBRACE, "'}'")
		dict.Span = p.spanFrom(start)
		return dict
	}

	first := p.starExpr()
	if p.match(FOR, ASYNC) {
		comp := p.comprehension(SetComp, nil, first, Span{})
		p.consume(RBRACE, "'}'")
		c := comp.(*Comprehension)
		c.Span = p.spanFrom(start)
		return c
	}
	set := &SetLit{Elts: []Expr{first}}
	for p.accept(COMMA) {
		if p.check(RBRACE) {
			break
		}
		set.Elts = append(set.Elts, p.starExpr())
	}
	p.consume(RBRACE, "'}'")
	set.Span = p.spanFrom(start)
	return set
}

// peekDictEntry scans the first element of a brace literal for a ':' at
// depth zero
func (p *Parser) peekDictEntry() bool {
	depth := 0
	for i := p.pos; i < len(p.tokens); i++ {
		switch p.tokens[i].Type {
		case LPAREN, LBRACKET, LBRACE, FSTRING_START:
			depth++
		case RPAREN, RBRACKET, FSTRING_END:
			depth--
		case RBRACE:
			if depth == 0 {
				return false
			}
			depth--
		case COLON:
			if depth == 0 {
				return true
			}
		case LAMBDA:
			if depth == 0 {
				return false
			}
		case COMMA, FOR:
			if depth == 0 {
				return false
			}
		case EOF:
			return false
		}
	}
	return false
}

// comprehension parses the for/if clauses after the element. span is the
// element's span for a bare generator argument.
func (p *Parser) comprehension(kind CompKind, key, elt Expr, span Span) Expr {
	comp := &Comprehension{Kind: kind, Key: key, Elt: elt}
	if _, ok := elt.(*Spread); ok {
		p.failCode(p.current, diag.CodeUnexpectedToken, "iterable unpacking cannot be used in a comprehension")
	}
	for p.match(FOR, ASYNC) {
		start := p.current
		clause := &CompClause{Async: p.accept(ASYNC)}
		p.consume(FOR, "'for'")
		clause.Target = p.targetList(IN)
		p.consume(IN, "'in'")
		clause.Iter = p.orExpr()
		for p.check(IF) {
			p.advance()
			clause.Ifs = append(clause.Ifs, p.orExpr())
		}
		clause.Span = p.spanFrom(start)
		comp.Clauses = append(comp.Clauses, clause)
	}
	comp.Span = span
	if span.Line != 0 {
		comp.Span = Span{Line: span.Line, Col: span.Col}
		comp.EndLine, comp.EndCol = p.last.End()
	}
	return comp
}
