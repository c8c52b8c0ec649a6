// Pattern matching parser
package frontend

import "github.com/GriffinCanCode/pyxis-compiler/pkg/diag"

func (p *Parser) matchStmt() Stmt {
	start := p.advance() // consume 'match'

	subject := p.exprOrTuple()
	p.consume(COLON, "':'")
	if !p.accept(NEWLINE) || !p.check(BLOCK_START) {
		p.failCode(p.current, diag.CodeExpectedBlock, "match requires a block of case arms")
	}
	p.advance()

	stmt := &Match{Subject: subject}
	for !p.check(BLOCK_END) && !p.check(EOF) {
		if p.accept(NEWLINE) {
			continue
		}
		caseStart := p.consume(CASE, "'case'")

		arm := &MatchCase{Pattern: p.patternTop()}
		if p.accept(IF) {
			arm.Guard = p.namedExpr()
		}
		arm.Body = p.block()
		arm.Span = p.spanFrom(caseStart)
		stmt.Cases = append(stmt.Cases, arm)
	}
	p.accept(BLOCK_END)

	stmt.Span = p.spanFrom(start)
	return stmt
}

// patternTop allows an open sequence: case a, *rest:
func (p *Parser) patternTop() Pattern {
	start := p.current
	if !p.check(STAR) {
		first := p.asPattern()
		if !p.check(COMMA) {
			return first
		}
		seq := &SequencePattern{RestIndex: -1, Elts: []Pattern{first}}
		for p.accept(COMMA) && !p.match(COLON, IF) {
			p.sequenceElement(seq)
		}
		seq.Span = p.spanFrom(start)
		return seq
	}
	seq := &SequencePattern{RestIndex: -1}
	for {
		p.sequenceElement(seq)
		if !p.accept(COMMA) || p.match(COLON, IF) {
			break
		}
	}
	seq.Span = p.spanFrom(start)
	return seq
}

func (p *Parser) asPattern() Pattern {
	pat := p.orPattern()
	if !p.check(AS) {
		return pat
	}
	p.advance()
	tok := p.expectName()
	target := &CapturePattern{Span: p.spanFrom(tok), Name: tok.Lexeme}
	return &AsPattern{Span: join(pat, target), Pattern: pat, Target: target}
}

func (p *Parser) orPattern() Pattern {
	first := p.closedPattern()
	if !p.check(PIPE) {
		return first
	}
	or := &OrPattern{Alts: []Pattern{first}}
	for p.accept(PIPE) {
		or.Alts = append(or.Alts, p.closedPattern())
	}
	or.Span = p.spanTo(first)
	return or
}

func (p *Parser) closedPattern() Pattern {
	tok := p.current
	switch tok.Type {
	case INT, FLOAT, STRING, TRUE, FALSE, NONE:
		value := p.primary()
		return &LiteralPattern{Span: value.Pos(), Value: value}
	case MINUS:
		p.advance()
		if !p.match(INT, FLOAT) {
			p.failCode(p.current, diag.CodeInvalidPattern, "expected a number after '-' in pattern")
		}
		num := p.primary()
		neg := &Unary{Span: p.spanFrom(tok), Op: MINUS, X: num}
		return &LiteralPattern{Span: neg.Span, Value: neg}
	case NAME:
		return p.namePattern()
	case LPAREN:
		p.advance()
		if p.accept(RPAREN) {
			return &SequencePattern{Span: p.spanFrom(tok), RestIndex: -1}
		}
		if p.check(STAR) {
			seq := &SequencePattern{RestIndex: -1}
			p.sequenceElements(seq, RPAREN)
			seq.Span = p.spanFrom(tok)
			return seq
		}
		inner := p.asPattern()
		if p.accept(RPAREN) {
			return inner
		}
		seq := &SequencePattern{RestIndex: -1, Elts: []Pattern{inner}}
		p.consume(COMMA, "',' or ')'")
		p.sequenceElements(seq, RPAREN)
		seq.Span = p.spanFrom(tok)
		return seq
	case LBRACKET:
		p.advance()
		seq := &SequencePattern{RestIndex: -1}
		p.sequenceElements(seq, RBRACKET)
		seq.Span = p.spanFrom(tok)
		return seq
	case LBRACE:
		return p.mappingPattern()
	}
	p.failCode(tok, diag.CodeInvalidPattern, "expected pattern, found %s", tok)
	return nil
}

func (p *Parser) namePattern() Pattern {
	tok := p.advance()
	if !p.match(DOT, LPAREN) {
		if tok.Lexeme == "_" {
			return &WildcardPattern{Span: p.spanFrom(tok)}
		}
		return &CapturePattern{Span: p.spanFrom(tok), Name: tok.Lexeme}
	}

	var ref Expr = &Ident{Span: p.spanFrom(tok), Name: tok.Lexeme}
	for p.accept(DOT) {
		name := p.expectName()
		ref = &Member{Span: p.spanTo(ref), X: ref, Name: name.Lexeme}
	}
	if !p.check(LPAREN) {
		return &ValuePattern{Span: ref.Pos(), Value: ref}
	}

	p.advance()
	cp := &ClassPattern{Class: ref}
	for !p.check(RPAREN) {
		if p.check(NAME) && p.peek(1).Type == ASSIGN {
			name := p.advance().Lexeme
			p.advance()
			cp.KwNames = append(cp.KwNames, name)
			cp.KwValues = append(cp.KwValues, p.asPattern())
		} else {
			if len(cp.KwNames) > 0 {
				p.failCode(p.current, diag.CodeInvalidPattern, "positional patterns must come before keyword patterns")
			}
			cp.Args = append(cp.Args, p.asPattern())
		}
		if !p.accept(COMMA) {
			break
		}
	}
	p.consume(RPAREN, "')'")
	cp.Span = p.spanFrom(tok)
	return cp
}

// sequenceElements parses pattern elements up to and including end
func (p *Parser) sequenceElements(seq *SequencePattern, end TokenType) {
	for !p.check(end) {
		p.sequenceElement(seq)
		if !p.accept(COMMA) {
			break
		}
	}
	p.consume(end, end.String())
}

func (p *Parser) sequenceElement(seq *SequencePattern) {
	if !p.check(STAR) {
		seq.Elts = append(seq.Elts, p.asPattern())
		return
	}
	p.advance()
	tok := p.expectName()
	seq.Stars++
	if seq.Stars > 1 {
		return
	}
	seq.RestIndex = len(seq.Elts)
	if tok.Lexeme != "_" {
		seq.Rest = &CapturePattern{Span: p.spanFrom(tok), Name: tok.Lexeme}
	}
}

func (p *Parser) mappingPattern() Pattern {
	start := p.advance()
	mp := &MappingPattern{}
	for !p.check(RBRACE) {
		if p.accept(POWER) {
			tok := p.expectName()
			mp.Rest = &CapturePattern{Span: p.spanFrom(tok), Name: tok.Lexeme}
			p.accept(COMMA)
			break
		}
		var key Expr
		switch p.current.Type {
		case STRING, INT, FLOAT, TRUE, FALSE, NONE:
			key = p.primary()
		case MINUS:
			lit := p.closedPattern().(*LiteralPattern)
			key = lit.Value
		case NAME:
			vp, ok := p.namePattern().(*ValuePattern)
			if !ok {
				p.failCode(p.last, diag.CodeInvalidPattern, "mapping keys must be literals or dotted names")
			}
			key = vp.Value
		default:
			p.failCode(p.current, diag.CodeInvalidPattern, "expected mapping key, found %s", p.current)
		}
		p.consume(COLON, "':'")
		mp.Keys = append(mp.Keys, key)
		mp.Values = append(mp.Values, p.asPattern())
		if !p.accept(COMMA) {
			break
		}
	}
	p.consume(RBRACE, "'}'")
	mp.Span = p.spanFrom(start)
	return mp
}
